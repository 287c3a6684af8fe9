package normalize

import (
	"fmt"
	"strings"
	"time"

	"meetupradar/internal/models"
)

// EventDuration is the fixed length assumed for every gathering; the
// source never publishes an end time.
const EventDuration = time.Hour

// Normalize maps one raw listing plus the search term that discovered it
// into a canonical Event. Listings missing a title, URL, or start time are
// rejected with an error; nothing else escapes this boundary.
func Normalize(raw models.RawListing, searchTerm string) (models.Event, error) {
	title := CleanTitle(raw.Title)
	if title == "" {
		return models.Event{}, fmt.Errorf("listing %q has no usable title", raw.URL)
	}
	if raw.URL == "" {
		return models.Event{}, fmt.Errorf("listing %q has no URL", raw.Title)
	}

	start, err := parseStart(raw.StartDate)
	if err != nil {
		return models.Event{}, fmt.Errorf("listing %q: %w", raw.URL, err)
	}

	online := raw.AttendanceMode == models.AttendanceOnlineURI

	return models.Event{
		Title:       title,
		URL:         raw.URL,
		Start:       start,
		End:         start.Add(EventDuration),
		Location:    resolveLocation(raw, online),
		Group:       groupName(raw.Organizer),
		Description: CleanDescription(raw.Description),
		SearchTerm:  searchTerm,
		Online:      online,
	}, nil
}

// parseStart requires an absolute timestamp with an offset. The instant is
// kept fixed; re-expressing it in a display timezone is a publishing concern.
func parseStart(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing start time")
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04-07:00"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("start time %q is not an absolute timestamp", raw)
}

// resolveLocation keeps a named venue with its coordinate when present,
// synthesizes a display name from address components otherwise, and falls
// back to the online sentinel only for online events.
func resolveLocation(raw models.RawListing, online bool) models.Location {
	loc := models.Location{
		Name:      strings.TrimSpace(raw.LocationName),
		Latitude:  raw.Latitude,
		Longitude: raw.Longitude,
		HasGeo:    raw.HasGeo,
	}

	if loc.Name == "" {
		loc.Name = joinAddress(raw.Street, raw.Locality, raw.Region)
	}
	if loc.Name == "" && online {
		loc.Name = models.OnlineLocation
	}
	return loc
}

func joinAddress(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func groupName(organizer string) string {
	if organizer = strings.TrimSpace(organizer); organizer != "" {
		return organizer
	}
	return "Unknown Group"
}
