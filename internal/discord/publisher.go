package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"meetupradar/internal/models"
	"meetupradar/internal/publish"
	"meetupradar/internal/registry"
)

// Publisher owns the chat-platform boundary: it posts event messages with
// their control sets and reacts to control activations delivered by the
// gateway. The Action Registry is the only state it shares with the
// scheduler side.
type Publisher struct {
	session   *discordgo.Session
	channelID string
	tz        *time.Location
	store     *registry.Registry
	log       *slog.Logger
}

// New builds a Publisher over a fresh gateway session and registers the
// control-activation handler. The session is not opened yet; call Open.
func New(token, channelID string, tz *time.Location, store *registry.Registry, log *slog.Logger) (*Publisher, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	p := &Publisher{
		session:   session,
		channelID: channelID,
		tz:        tz,
		store:     store,
		log:       log,
	}
	session.AddHandler(p.onInteraction)
	return p, nil
}

// Open connects the gateway session.
func (p *Publisher) Open() error {
	if err := p.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Close shuts the gateway session down.
func (p *Publisher) Close() error {
	return p.session.Close()
}

// Rearm reloads the durable set of pending actions after a restart. The
// activation handler routes by the control's identifier alone, so every
// reloaded record's control in the channel history is live again without
// re-sending anything.
func (p *Publisher) Rearm(ctx context.Context) error {
	recs, err := p.store.Pending(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		p.log.Debug("re-armed pending action",
			slog.String("id", rec.ID),
			slog.String("title", rec.Title),
		)
	}
	p.log.Info("pending actions re-armed", slog.Int("count", len(recs)))
	return nil
}

// SendHeader posts the cycle's header message.
func (p *Publisher) SendHeader(header string) error {
	if _, err := p.session.ChannelMessageSend(p.channelID, header); err != nil {
		return fmt.Errorf("send header: %w", err)
	}
	return nil
}

// Publish posts one event with its control set, reserving its registry
// identifier first so re-discovery across cycles reuses the same action.
func (p *Publisher) Publish(ctx context.Context, ev models.Event, now time.Time) error {
	actionID, err := p.store.Reserve(ctx,
		ev.Title, ev.Start, ev.End,
		ev.Location.Name, ev.Description, ev.URL,
	)
	if err != nil {
		return err
	}

	calendarURL := publish.CalendarURL(ev.Title, ev.Start, ev.End, p.tz, ev.Location.Name)
	mapURL := publish.MapURL(ev.Location.Name)

	_, err = p.session.ChannelMessageSendComplex(p.channelID, &discordgo.MessageSend{
		Content:    publish.Message(ev, now, p.tz),
		Components: buildComponents(actionID, calendarURL, mapURL, false),
	})
	if err != nil {
		return fmt.Errorf("send event message: %w", err)
	}
	return nil
}

// onInteraction handles a control activation: claim the action, perform
// the external scheduled-event creation, and apply the resolved transition.
// The gateway dispatches each activation on its own goroutine, so the
// claim is what makes the check-act span atomic: a concurrent activation
// of the same control sees ErrClaimed instead of a pending record. Consume
// runs only after the external action succeeded; a failure releases the
// claim and leaves the record pending so the control stays retryable.
func (p *Publisher) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	ctx := context.Background()
	actionID := i.MessageComponentData().CustomID
	log := p.log.With(slog.String("action_id", actionID))

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		log.Error("defer interaction response", slog.Any("err", err))
		return
	}

	rec, err := p.store.Claim(ctx, actionID)
	if errors.Is(err, registry.ErrClaimed) {
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: "⏳ This event is already being processed.",
			Flags:   discordgo.MessageFlagsEphemeral,
		}); err != nil {
			log.Error("send followup", slog.Any("err", err))
		}
		return
	}
	found := err == nil
	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		log.Error("action lookup failed", slog.Any("err", err))
	}

	var actionErr error
	if found {
		actionErr = p.createScheduledEvent(i.GuildID, rec)
		if actionErr != nil {
			p.store.Release(actionID)
			log.Error("create scheduled event", slog.Any("err", actionErr), slog.String("title", rec.Title))
		}
	}

	outcome := publish.ResolveTrigger(rec.Title, found, actionErr)

	if outcome.Disable {
		p.disableControls(i, rec)
	}
	if outcome.Consume {
		if err := p.store.Consume(ctx, actionID); err != nil {
			log.Error("consume action", slog.Any("err", err))
		}
	}

	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: outcome.Reply,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		log.Error("send followup", slog.Any("err", err))
	}
}

// createScheduledEvent performs the one-time external action from the
// durable payload.
func (p *Publisher) createScheduledEvent(guildID string, rec registry.ActionRecord) error {
	location := rec.Location
	if location == "" {
		location = rec.URL
	}

	start := rec.Start
	end := rec.End
	_, err := p.session.GuildScheduledEventCreate(guildID, &discordgo.GuildScheduledEventParams{
		Name:               publish.CalendarName(rec.Title),
		Description:        rec.URL,
		ScheduledStartTime: &start,
		ScheduledEndTime:   &end,
		EntityType:         discordgo.GuildScheduledEventEntityTypeExternal,
		EntityMetadata:     &discordgo.GuildScheduledEventEntityMetadata{Location: location},
		PrivacyLevel:       discordgo.GuildScheduledEventPrivacyLevelGuildOnly,
	})
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %v", publish.ErrPermission, err)
	}
	return err
}

// disableControls edits the already-sent message so the primary control
// shows its disabled "created" state.
func (p *Publisher) disableControls(i *discordgo.InteractionCreate, rec registry.ActionRecord) {
	calendarURL := publish.CalendarURL(rec.Title, rec.Start, rec.End, p.tz, rec.Location)
	components := buildComponents(rec.ID, calendarURL, publish.MapURL(rec.Location), true)

	_, err := p.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    i.ChannelID,
		ID:         i.Message.ID,
		Components: &components,
	})
	if err != nil {
		p.log.Error("disable controls", slog.Any("err", err), slog.String("action_id", rec.ID))
	}
}
