package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound marks a stale or already-consumed action identifier.
var ErrNotFound = errors.New("action record not found")

// ErrClaimed marks an action whose one-time side effect is already in
// flight on another activation.
var ErrClaimed = errors.New("action record already claimed")

// ActionRecord is the durable payload behind one pending "create calendar
// event" control. Presence in the store means pending; consumption is
// exactly the atomic removal of the row.
type ActionRecord struct {
	ID          string    `gorm:"primaryKey"`
	Title       string    `gorm:"uniqueIndex:idx_actions_title_start;not null"`
	Start       time.Time `gorm:"uniqueIndex:idx_actions_title_start;not null"`
	End         time.Time `gorm:"not null"`
	Location    string
	Description string
	URL         string
	CreatedAt   time.Time
}

// Registry is the durable mapping from opaque identifiers to pending action
// payloads. A small in-memory (title, start) -> id cache sits in front of
// the store as a read-through layer; the store remains authoritative. All
// writes are serialized, so the triggering UI event and the next
// aggregation cycle cannot race each other.
type Registry struct {
	mu     sync.Mutex
	db     *gorm.DB
	cache  map[string]string
	claims map[string]struct{}
	log    *slog.Logger
}

// Open connects to the sqlite database at path, creating the schema if it
// is absent, and returns a ready registry.
func Open(path string, log *slog.Logger) (*Registry, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open action store %q: %w", path, err)
	}
	if err := db.AutoMigrate(&ActionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate action store: %w", err)
	}

	return &Registry{
		db:     db,
		cache:  make(map[string]string),
		claims: make(map[string]struct{}),
		log:    log,
	}, nil
}

// Reserve returns the identifier of the pending record matching (title,
// start), creating and persisting a fresh one when none exists. Calling it
// repeatedly for the same logical event across cycles always yields the
// same identifier and exactly one stored record.
func (r *Registry) Reserve(ctx context.Context, title string, start, end time.Time, location, description, url string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey(title, start)
	if id, ok := r.cache[key]; ok {
		return id, nil
	}

	var existing ActionRecord
	err := r.db.WithContext(ctx).
		Where("title = ? AND start = ?", title, start.UTC()).
		First(&existing).Error
	if err == nil {
		r.cache[key] = existing.ID
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("look up action record: %w", err)
	}

	rec := ActionRecord{
		ID:          uuid.NewString(),
		Title:       title,
		Start:       start.UTC(),
		End:         end.UTC(),
		Location:    location,
		Description: description,
		URL:         url,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", fmt.Errorf("persist action record: %w", err)
	}

	r.cache[key] = rec.ID
	r.log.Debug("reserved action", slog.String("id", rec.ID), slog.String("title", title))
	return rec.ID, nil
}

// Get looks up a pending record by identifier. A stale or consumed
// identifier yields ErrNotFound, never a crash.
func (r *Registry) Get(ctx context.Context, id string) (ActionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rec ActionRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ActionRecord{}, ErrNotFound
	}
	if err != nil {
		return ActionRecord{}, fmt.Errorf("look up action record: %w", err)
	}
	return rec, nil
}

// Claim takes exclusive ownership of a pending record so its one-time
// side effect cannot fire twice from concurrent activations. A second
// Claim before Release or Consume yields ErrClaimed. Claims live in
// process memory only; a restart returns every pending record to the
// unclaimed state.
func (r *Registry) Claim(ctx context.Context, id string) (ActionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.claims[id]; held {
		return ActionRecord{}, ErrClaimed
	}

	var rec ActionRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ActionRecord{}, ErrNotFound
	}
	if err != nil {
		return ActionRecord{}, fmt.Errorf("look up action record: %w", err)
	}

	r.claims[id] = struct{}{}
	r.log.Debug("claimed action", slog.String("id", id))
	return rec, nil
}

// Release gives a claim up without consuming the record, so a later
// activation can retry the failed action.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, id)
}

// Consume atomically and permanently removes the record. Consuming an
// absent identifier is a no-op, so a second consume cannot error or touch
// other records.
func (r *Registry) Consume(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rec ActionRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up action record: %w", err)
	}

	if err := r.db.WithContext(ctx).Delete(&ActionRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("consume action record: %w", err)
	}

	delete(r.cache, cacheKey(rec.Title, rec.Start))
	delete(r.claims, id)
	r.log.Debug("consumed action", slog.String("id", id))
	return nil
}

// Pending reloads the full durable set, oldest start first. Called at
// startup so every surviving record re-arms its control.
func (r *Registry) Pending(ctx context.Context) ([]ActionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var recs []ActionRecord
	if err := r.db.WithContext(ctx).Order("start asc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load pending actions: %w", err)
	}

	for _, rec := range recs {
		r.cache[cacheKey(rec.Title, rec.Start)] = rec.ID
	}
	return recs, nil
}

// PurgeOlderThan removes pending records whose start instant predates the
// cutoff. Controls still pointing at a purged identifier surface the
// normal stale-action outcome when activated.
func (r *Registry) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.db.WithContext(ctx).Where("start < ?", cutoff.UTC()).Delete(&ActionRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge stale actions: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		// Reserve and Pending repopulate the read cache on demand.
		r.cache = make(map[string]string)
	}
	return res.RowsAffected, nil
}

// Count reports how many actions are currently pending.
func (r *Registry) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	if err := r.db.WithContext(ctx).Model(&ActionRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count pending actions: %w", err)
	}
	return n, nil
}

func cacheKey(title string, start time.Time) string {
	return title + "|" + start.UTC().Format(time.RFC3339)
}
