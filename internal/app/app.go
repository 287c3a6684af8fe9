package app

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"meetupradar/internal/aggregate"
	"meetupradar/internal/config"
	"meetupradar/internal/models"
	"meetupradar/internal/normalize"
	"meetupradar/internal/registry"
)

// searcher fetches raw listings for one query.
type searcher interface {
	Search(ctx context.Context, term, location string, radiusMiles int) ([]models.RawListing, error)
}

// publisher posts the cycle's messages to the channel.
type publisher interface {
	SendHeader(header string) error
	Publish(ctx context.Context, ev models.Event, now time.Time) error
}

// sendPace is the fixed delay after each channel send within one cycle.
const sendPace = 2 * time.Second

// App drives one scrape -> normalize -> aggregate -> publish cycle. A
// single logical worker runs it; queries are fetched sequentially with a
// small randomized delay in between.
type App struct {
	cfg     *config.Config
	log     *slog.Logger
	scraper searcher
	store   *registry.Registry
	pub     publisher

	// FetchDelay yields the pause between consecutive query fetches.
	// Overridable in tests; the default is a 1-3s randomized gap.
	FetchDelay func() time.Duration

	// Pace runs after every channel send, the header included.
	// Overridable in tests; the default sleeps sendPace.
	Pace func()
}

// New wires the cycle pipeline together.
func New(cfg *config.Config, log *slog.Logger, scraper searcher, store *registry.Registry, pub publisher) *App {
	return &App{
		cfg:     cfg,
		log:     log,
		scraper: scraper,
		store:   store,
		pub:     pub,
		FetchDelay: func() time.Duration {
			return time.Second + rand.N(2*time.Second)
		},
		Pace: func() { time.Sleep(sendPace) },
	}
}

// RunCycle executes one full cycle over every configured location and
// search term. Per-query and per-message failures are logged and skipped;
// nothing aborts the rest of the cycle.
func (a *App) RunCycle(ctx context.Context) {
	a.log.Info("starting collection cycle")

	if days := a.cfg.Retention(); days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		purged, err := a.store.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			a.log.Warn("stale action purge failed", slog.Any("err", err))
		} else if purged > 0 {
			a.log.Info("purged stale actions", slog.Int64("count", purged))
		}
	}

	events := a.collect(ctx)
	if len(events) == 0 {
		a.log.Info("no events found")
		return
	}

	now := time.Now()
	res := aggregate.Aggregate(events, now)
	a.log.Info("aggregated events",
		slog.Int("unique", len(res.Events)),
		slog.Int("this_week", len(res.ThisWeek)),
		slog.Int("next_week", len(res.NextWeek)),
	)
	if len(res.Events) == 0 {
		return
	}

	if err := a.pub.SendHeader(a.cfg.Header); err != nil {
		a.log.Error("post header", slog.Any("err", err))
		return
	}
	a.Pace()

	posted := 0
	for _, group := range res.Groups {
		for _, ev := range group.Events {
			if err := a.pub.Publish(ctx, ev, now); err != nil {
				a.log.Error("post event",
					slog.Any("err", err),
					slog.String("title", ev.Title),
				)
				continue
			}
			posted++
			a.log.Info("posted event", slog.String("title", ev.Title), slog.String("term", group.Term))
			a.Pace()
		}
	}
	a.log.Info("cycle finished", slog.Int("posted", posted))
}

// collect runs every configured query and normalizes the raw listings.
func (a *App) collect(ctx context.Context) []models.Event {
	var events []models.Event
	for _, loc := range a.cfg.Locations {
		a.log.Info("processing location",
			slog.String("name", loc.Name),
			slog.String("location", loc.Location),
		)
		for _, term := range loc.SearchTerms {
			listings, err := a.scraper.Search(ctx, term, loc.Location, loc.Radius)
			if err != nil {
				a.log.Warn("query failed, skipping",
					slog.Any("err", err),
					slog.String("term", term),
					slog.String("location", loc.Location),
				)
				continue
			}

			for _, raw := range listings {
				ev, err := normalize.Normalize(raw, term)
				if err != nil {
					a.log.Debug("dropping listing", slog.Any("reason", err))
					continue
				}
				events = append(events, ev)
			}

			// Small gap between fetches to stay polite. Not a
			// correctness mechanism.
			select {
			case <-time.After(a.FetchDelay()):
			case <-ctx.Done():
				return events
			}
		}
	}
	return events
}
