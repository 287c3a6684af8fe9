package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meetupradar/internal/models"
)

const searchBase = "https://www.meetup.com/find/"

// Browser User-Agents rotated per request to look like ordinary traffic.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
}

// Meetup's fixed search radius buckets, ascending.
var distanceTokens = []struct {
	miles int
	token string
}{
	{2, "twoMiles"},
	{5, "fiveMiles"},
	{10, "tenMiles"},
	{25, "twentyFiveMiles"},
	{50, "fiftyMiles"},
	{100, "hundredMiles"},
}

// Client fetches search result pages and extracts their raw listings.
type Client struct {
	http *http.Client
	log  *slog.Logger
}

// NewClient builds a scraping client with a fixed request timeout.
func NewClient(log *slog.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
}

// Search fetches one search result page and returns its raw listings.
// Network failures and non-2xx statuses drop only this query's contribution.
func (c *Client) Search(ctx context.Context, term, location string, radiusMiles int) ([]models.RawListing, error) {
	searchURL, err := BuildSearchURL(term, location, radiusMiles)
	if err != nil {
		return nil, err
	}

	listings, err := c.SearchPage(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	c.log.Info("scraped listings",
		slog.String("term", term),
		slog.String("location", location),
		slog.Int("count", len(listings)),
	)
	return listings, nil
}

// SearchPage fetches the given listing page and extracts its raw listings.
func (c *Client) SearchPage(ctx context.Context, searchURL string) ([]models.RawListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	c.log.Info("fetching listings", slog.String("url", searchURL))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", searchURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", searchURL, resp.StatusCode)
	}

	return Extract(resp.Body, c.log)
}

// BuildSearchURL renders the search-listing URL for a term, a "City, ST"
// location string, and a radius in miles.
func BuildSearchURL(term, location string, radiusMiles int) (string, error) {
	token, err := locationToken(location)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("suggested", "true")
	q.Set("source", "EVENTS")
	q.Set("keywords", term)
	q.Set("location", token)
	q.Set("distance", distanceToken(radiusMiles))
	return searchBase + "?" + q.Encode(), nil
}

// locationToken turns "Denver, CO" into the site's "us--co--Denver" form.
func locationToken(location string) (string, error) {
	parts := strings.SplitN(location, ",", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("location %q must be \"City, ST\"", location)
	}
	city := strings.ReplaceAll(strings.TrimSpace(parts[0]), " ", "-")
	state := strings.ToLower(strings.TrimSpace(parts[1]))
	if city == "" || state == "" {
		return "", fmt.Errorf("location %q must be \"City, ST\"", location)
	}
	return fmt.Sprintf("us--%s--%s", state, city), nil
}

// distanceToken picks the smallest radius bucket covering the request.
func distanceToken(miles int) string {
	for _, d := range distanceTokens {
		if miles <= d.miles {
			return d.token
		}
	}
	return distanceTokens[len(distanceTokens)-1].token
}
