package app_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meetupradar/internal/app"
	"meetupradar/internal/config"
	"meetupradar/internal/models"
	"meetupradar/internal/registry"
)

type fakeSearcher struct {
	listings map[string][]models.RawListing
	errs     map[string]error
	calls    []string
}

func (f *fakeSearcher) Search(_ context.Context, term, _ string, _ int) ([]models.RawListing, error) {
	f.calls = append(f.calls, term)
	if err := f.errs[term]; err != nil {
		return nil, err
	}
	return f.listings[term], nil
}

type fakePublisher struct {
	headers   int
	published []models.Event
	failOn    string
}

func (f *fakePublisher) SendHeader(string) error {
	f.headers++
	return nil
}

func (f *fakePublisher) Publish(_ context.Context, ev models.Event, _ time.Time) error {
	if ev.Title == f.failOn {
		return errors.New("send failed")
	}
	f.published = append(f.published, ev)
	return nil
}

func listing(title, startDate string) models.RawListing {
	return models.RawListing{
		Title:     title,
		URL:       "https://www.meetup.com/events/" + title,
		StartDate: startDate,
	}
}

func days(v int) *int { return &v }

func testConfig() *config.Config {
	return &config.Config{
		ChannelID:     "1",
		Header:        "header",
		RetentionDays: days(0),
		Locations: []config.Location{{
			Name:        "Denver",
			Location:    "Denver, CO",
			Radius:      25,
			SearchTerms: []string{"ai", "machine learning"},
		}},
	}
}

func newApp(cfg *config.Config, s *fakeSearcher, store *registry.Registry, pub *fakePublisher) *app.App {
	a := app.New(cfg, slog.New(slog.DiscardHandler), s, store, pub)
	a.FetchDelay = func() time.Duration { return 0 }
	a.Pace = func() {}
	return a
}

func openStore(t *testing.T) *registry.Registry {
	t.Helper()
	store, err := registry.Open(filepath.Join(t.TempDir(), "actions.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return store
}

func TestRunCycleDedupesAcrossTerms(t *testing.T) {
	future := time.Now().Add(72 * time.Hour).Format(time.RFC3339)

	searcher := &fakeSearcher{listings: map[string][]models.RawListing{
		"ai":               {listing("AI Meetup", future)},
		"machine learning": {listing("AI Meetup", future)},
	}}
	pub := &fakePublisher{}

	a := newApp(testConfig(), searcher, openStore(t), pub)
	a.RunCycle(context.Background())

	require.Equal(t, []string{"ai", "machine learning"}, searcher.calls)
	require.Equal(t, 1, pub.headers)
	require.Len(t, pub.published, 1)
	require.Equal(t, "AI Meetup", pub.published[0].Title)
}

func TestRunCycleSkipsFailedQuery(t *testing.T) {
	future := time.Now().Add(72 * time.Hour).Format(time.RFC3339)

	searcher := &fakeSearcher{
		listings: map[string][]models.RawListing{
			"machine learning": {listing("ML Meetup", future)},
		},
		errs: map[string]error{"ai": errors.New("fetch failed")},
	}
	pub := &fakePublisher{}

	a := newApp(testConfig(), searcher, openStore(t), pub)
	a.RunCycle(context.Background())

	require.Len(t, pub.published, 1)
	require.Equal(t, "ML Meetup", pub.published[0].Title)
}

func TestRunCycleSkipsFailedSend(t *testing.T) {
	future := func(h int) string { return time.Now().Add(time.Duration(h) * time.Hour).Format(time.RFC3339) }

	searcher := &fakeSearcher{listings: map[string][]models.RawListing{
		"ai": {listing("First", future(48)), listing("Second", future(72))},
	}}
	pub := &fakePublisher{failOn: "First"}

	a := newApp(testConfig(), searcher, openStore(t), pub)
	a.RunCycle(context.Background())

	require.Len(t, pub.published, 1)
	require.Equal(t, "Second", pub.published[0].Title)
}

func TestRunCycleNoEventsSendsNothing(t *testing.T) {
	searcher := &fakeSearcher{}
	pub := &fakePublisher{}

	a := newApp(testConfig(), searcher, openStore(t), pub)
	a.RunCycle(context.Background())

	require.Zero(t, pub.headers)
	require.Empty(t, pub.published)
}

func TestRunCycleDropsPastAndMalformed(t *testing.T) {
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	future := time.Now().Add(48 * time.Hour).Format(time.RFC3339)

	searcher := &fakeSearcher{listings: map[string][]models.RawListing{
		"ai": {
			listing("Past Event", past),
			listing("Good Event", future),
			{Title: "No Start", URL: "https://example.com/x"},
		},
	}}
	pub := &fakePublisher{}

	a := newApp(testConfig(), searcher, openStore(t), pub)
	a.RunCycle(context.Background())

	require.Len(t, pub.published, 1)
	require.Equal(t, "Good Event", pub.published[0].Title)
}

func TestRunCyclePacesEverySend(t *testing.T) {
	future := func(h int) string { return time.Now().Add(time.Duration(h) * time.Hour).Format(time.RFC3339) }

	searcher := &fakeSearcher{listings: map[string][]models.RawListing{
		"ai": {listing("First", future(48)), listing("Second", future(72))},
	}}
	pub := &fakePublisher{}

	a := newApp(testConfig(), searcher, openStore(t), pub)
	paced := 0
	a.Pace = func() { paced++ }
	a.RunCycle(context.Background())

	// Header plus each event message gets a pacing gap.
	require.Len(t, pub.published, 2)
	require.Equal(t, 3, paced)
}

func TestRunCycleZeroRetentionSkipsPurge(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	staleStart := time.Now().AddDate(0, 0, -60)
	staleID, err := store.Reserve(ctx, "Old Event", staleStart, staleStart.Add(time.Hour), "", "", "u")
	require.NoError(t, err)

	a := newApp(testConfig(), &fakeSearcher{}, store, &fakePublisher{})
	a.RunCycle(ctx)

	// retention_days 0 means the pending action survives indefinitely.
	_, err = store.Get(ctx, staleID)
	require.NoError(t, err)
}

func TestRunCyclePurgesStaleActions(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	// A pending action from a long-gone event.
	staleStart := time.Now().AddDate(0, 0, -60)
	staleID, err := store.Reserve(ctx, "Old Event", staleStart, staleStart.Add(time.Hour), "", "", "u")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.RetentionDays = days(30)

	a := newApp(cfg, &fakeSearcher{}, store, &fakePublisher{})
	a.RunCycle(ctx)

	_, err = store.Get(ctx, staleID)
	require.ErrorIs(t, err, registry.ErrNotFound)
}
