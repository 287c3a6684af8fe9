package discord

import "github.com/bwmarrin/discordgo"

// Control labels for the primary action button's two states.
const (
	labelCreate  = "Create event"
	labelCreated = "Event created"
)

// buildComponents renders the control set for one published event: the
// stateful primary button wired to the registry identifier, the
// add-to-calendar link, and a location link when a physical venue exists.
// The primary button's only allowed transition is enabled -> disabled with
// the "created" label.
func buildComponents(actionID, calendarURL, mapURL string, created bool) []discordgo.MessageComponent {
	primary := discordgo.Button{
		Label:    labelCreate,
		Style:    discordgo.PrimaryButton,
		Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
		CustomID: actionID,
	}
	if created {
		primary.Label = labelCreated
		primary.Disabled = true
	}

	row := []discordgo.MessageComponent{
		primary,
		discordgo.Button{
			Label: "Add to Google Calendar",
			Style: discordgo.LinkButton,
			Emoji: &discordgo.ComponentEmoji{Name: "🗓️"},
			URL:   calendarURL,
		},
	}
	if mapURL != "" {
		row = append(row, discordgo.Button{
			Label: "Check Location",
			Style: discordgo.LinkButton,
			Emoji: &discordgo.ComponentEmoji{Name: "📍"},
			URL:   mapURL,
		})
	}

	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: row}}
}
