package scrape_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"meetupradar/internal/scrape"
)

func TestBuildSearchURL(t *testing.T) {
	got, err := scrape.BuildSearchURL("machine learning", "Denver, CO", 50)
	require.NoError(t, err)

	parsed, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "www.meetup.com", parsed.Host)
	require.Equal(t, "/find/", parsed.Path)

	q := parsed.Query()
	require.Equal(t, "machine learning", q.Get("keywords"))
	require.Equal(t, "us--co--Denver", q.Get("location"))
	require.Equal(t, "fiftyMiles", q.Get("distance"))
	require.Equal(t, "true", q.Get("suggested"))
	require.Equal(t, "EVENTS", q.Get("source"))
}

func TestBuildSearchURLMultiWordCity(t *testing.T) {
	got, err := scrape.BuildSearchURL("go", "Colorado Springs, CO", 25)
	require.NoError(t, err)

	parsed, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "us--co--Colorado-Springs", parsed.Query().Get("location"))
}

func TestBuildSearchURLBadLocation(t *testing.T) {
	for _, loc := range []string{"Denver", "", ", CO", "Denver, "} {
		_, err := scrape.BuildSearchURL("go", loc, 25)
		require.Error(t, err, "location %q", loc)
	}
}

func TestBuildSearchURLDistanceBuckets(t *testing.T) {
	tests := []struct {
		miles int
		want  string
	}{
		{miles: 1, want: "twoMiles"},
		{miles: 2, want: "twoMiles"},
		{miles: 3, want: "fiveMiles"},
		{miles: 25, want: "twentyFiveMiles"},
		{miles: 26, want: "fiftyMiles"},
		{miles: 100, want: "hundredMiles"},
		{miles: 500, want: "hundredMiles"},
	}

	for _, tt := range tests {
		got, err := scrape.BuildSearchURL("go", "Denver, CO", tt.miles)
		require.NoError(t, err)
		parsed, err := url.Parse(got)
		require.NoError(t, err)
		require.Equal(t, tt.want, parsed.Query().Get("distance"), "miles %d", tt.miles)
	}
}

func TestSearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := scrape.NewClient(testLog)
	_, err := client.SearchPage(context.Background(), srv.URL)
	require.ErrorContains(t, err, "status 403")
}

func TestSearchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page(fullEvent)))
	}))
	defer srv.Close()

	client := scrape.NewClient(testLog)
	listings, err := client.SearchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, "AI Meetup", listings[0].Title)
}
