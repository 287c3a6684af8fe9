package models

import "time"

// AttendanceOnlineURI is the schema.org value marking an online gathering.
const AttendanceOnlineURI = "https://schema.org/OnlineEventAttendanceMode"

// OnlineLocation is the sentinel display name for events without a venue.
const OnlineLocation = "Online"

// RawListing is one loosely-typed listing lifted out of a JSON-LD block.
// It carries whatever the source page provided and has no identity beyond
// its URL; it is discarded after normalization.
type RawListing struct {
	Title          string
	URL            string
	StartDate      string // ISO-8601 with offset, unparsed
	LocationName   string
	Latitude       float64
	Longitude      float64
	HasGeo         bool
	Street         string
	Locality       string
	Region         string
	Organizer      string
	Description    string
	AttendanceMode string // raw schema.org URI, may be empty
}

// Location is the resolved venue of an Event: a display name plus an
// optional geo coordinate. Online events use the OnlineLocation sentinel.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
	HasGeo    bool
}

// Online reports whether the location is the online sentinel.
func (l Location) Online() bool { return l.Name == OnlineLocation }

// Event is the canonical, cleaned representation of a listing. Identity for
// deduplication is the (Title, Start) pair, never a synthetic key. Events
// are created fresh each cycle and never mutated after creation.
type Event struct {
	Title       string
	URL         string
	Start       time.Time
	End         time.Time
	Location    Location
	Group       string
	Description string
	SearchTerm  string
	Online      bool
}

// Key returns the deduplication key for the event.
func (e Event) Key() EventKey {
	return EventKey{Title: e.Title, Start: e.Start.UTC()}
}

// EventKey identifies a logical event across search terms and cycles.
type EventKey struct {
	Title string
	Start time.Time
}
