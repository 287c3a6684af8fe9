package publish

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"meetupradar/internal/models"
)

const (
	calendarBase = "https://calendar.google.com/calendar/render"
	mapBase      = "https://www.google.com/maps/search/"

	// Title and location fields are bounded before encoding so deep links
	// stay inside platform URL-length limits.
	linkFieldLimit = 128

	calendarStamp = "20060102T150405"
)

// CalendarName is the title used for calendar entries and scheduled events.
func CalendarName(title string) string {
	return "[Meetup] " + title
}

// Message renders one event into its channel message body: the cleaned,
// term-labeled title as a link, the group name, and a relative date phrase,
// displayed in the given timezone.
func Message(ev models.Event, now time.Time, tz *time.Location) string {
	display := ev.Title
	if ev.SearchTerm != "" {
		display = fmt.Sprintf("[%s] %s", capitalize(ev.SearchTerm), ev.Title)
	}

	online := ""
	if ev.Online {
		online = " | ☎️ Online"
	}

	return fmt.Sprintf("# [%s](%s)\n**%s** | **%s**%s\n\n",
		display, ev.URL, ev.Group, RelativeDate(ev.Start, now, tz), online)
}

// RelativeDate phrases the start instant as this week's or next week's
// weekday, based purely on whether it is at most seven days ahead.
func RelativeDate(start, now time.Time, tz *time.Location) string {
	local := start.In(tz)
	phrase := "This %s, %s - %s"
	if int(start.Sub(now).Hours()/24) > 7 {
		phrase = "Next Week %s, %s - %s"
	}
	return fmt.Sprintf(phrase, local.Format("Monday"), local.Format("02 January"), local.Format("15:04"))
}

// CalendarURL builds the add-to-Google-Calendar deep link for an event.
func CalendarURL(title string, start, end time.Time, tz *time.Location, location string) string {
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", truncate(CalendarName(title), linkFieldLimit))
	q.Set("dates", start.In(tz).Format(calendarStamp)+"/"+end.In(tz).Format(calendarStamp))
	if location = strings.TrimSpace(location); location != "" {
		q.Set("location", truncate(location, linkFieldLimit))
	}
	return calendarBase + "?" + q.Encode()
}

// MapURL builds the map deep link for a physical venue. It returns ""
// for empty locations and the online sentinel; those events get no
// location control.
func MapURL(location string) string {
	location = strings.TrimSpace(location)
	if location == "" || location == models.OnlineLocation {
		return ""
	}
	q := url.Values{}
	q.Set("api", "1")
	q.Set("query", truncate(location, linkFieldLimit))
	return mapBase + "?" + q.Encode()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
