package scrape

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"meetupradar/internal/models"
)

// ldEvent mirrors the subset of a schema.org Event JSON-LD block we read.
type ldEvent struct {
	Name                string          `json:"name"`
	URL                 string          `json:"url"`
	StartDate           string          `json:"startDate"`
	Description         string          `json:"description"`
	EventAttendanceMode string          `json:"eventAttendanceMode"`
	Location            json.RawMessage `json:"location"`
	Organizer           json.RawMessage `json:"organizer"`
}

type ldLocation struct {
	Name    string     `json:"name"`
	Geo     *ldGeo     `json:"geo"`
	Address *ldAddress `json:"address"`
}

type ldGeo struct {
	Latitude  flexNumber `json:"latitude"`
	Longitude flexNumber `json:"longitude"`
}

// flexNumber absorbs coordinates published as either JSON numbers or
// quoted strings. Junk values leave it unset instead of failing the block.
type flexNumber struct {
	value float64
	ok    bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n.value = v
	n.ok = true
	return nil
}

type ldAddress struct {
	StreetAddress   string `json:"streetAddress"`
	AddressLocality string `json:"addressLocality"`
	AddressRegion   string `json:"addressRegion"`
}

type ldName struct {
	Name string `json:"name"`
}

// Extract pulls every JSON-LD structured-data block out of a fetched page
// and flattens it into raw listings. Each block is parsed independently; a
// malformed block is logged and skipped and never aborts the extraction.
func Extract(page io.Reader, log *slog.Logger) ([]models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var listings []models.RawListing
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		items, err := decodeBlock([]byte(raw))
		if err != nil {
			log.Warn("skipping malformed structured-data block",
				slog.Int("block", i),
				slog.Any("err", err),
			)
			return
		}

		for _, item := range items {
			listing, ok := toRawListing(item)
			if !ok {
				log.Debug("skipping incomplete listing",
					slog.Int("block", i),
					slog.String("title", item.Name),
				)
				continue
			}
			listings = append(listings, listing)
		}
	})

	return listings, nil
}

// decodeBlock accepts either a single JSON-LD object or a list of them.
func decodeBlock(raw []byte) ([]ldEvent, error) {
	var many []ldEvent
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}

	var one ldEvent
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []ldEvent{one}, nil
}

// toRawListing converts one block item into a raw listing. Items missing
// a title, URL, or start time are dropped, not defaulted.
func toRawListing(item ldEvent) (models.RawListing, bool) {
	if item.Name == "" || item.URL == "" || item.StartDate == "" {
		return models.RawListing{}, false
	}

	listing := models.RawListing{
		Title:          item.Name,
		URL:            item.URL,
		StartDate:      item.StartDate,
		Description:    item.Description,
		AttendanceMode: item.EventAttendanceMode,
		Organizer:      organizerName(item.Organizer),
	}
	fillLocation(&listing, item.Location)
	return listing, true
}

func organizerName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj ldName
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
		return obj.Name
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func fillLocation(listing *models.RawListing, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	var loc ldLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		// Some pages emit the venue as a bare string.
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			listing.LocationName = s
		}
		return
	}

	listing.LocationName = loc.Name
	if loc.Geo != nil && loc.Geo.Latitude.ok && loc.Geo.Longitude.ok {
		listing.Latitude = loc.Geo.Latitude.value
		listing.Longitude = loc.Geo.Longitude.value
		listing.HasGeo = true
	}
	if loc.Address != nil {
		listing.Street = loc.Address.StreetAddress
		listing.Locality = loc.Address.AddressLocality
		listing.Region = loc.Address.AddressRegion
	}
}
