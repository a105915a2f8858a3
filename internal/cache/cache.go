// Package cache stores normalized station lists keyed by fuel, coarse
// location and search radius, expiring them after a TTL.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/pkg/geo"
)

const (
	DefaultTTL = time.Hour

	// SchemaVersion is bumped whenever the cached Station layout changes.
	// Entries written with another version are discarded on read.
	SchemaVersion = 3

	keyPrefix           = "stations:"
	keyLatitudeDecimals = 2
)

// Backend is the persistence used by the cache. *store.Store implements it.
type Backend interface {
	GetJSON(ctx context.Context, key string, version int, dst any) (bool, error)
	PutJSON(ctx context.Context, key string, version int, v any) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// Entry is the persisted form of a cached station list.
type Entry struct {
	SchemaVersion int               `json:"schema_version"`
	Data          []station.Station `json:"data"`
	// Timestamp is the write time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Key builds the cache key for a lookup. Only the latitude participates in
// the location part, rounded to ~1.1 km.
func Key(fuel station.FuelType, latitude, radiusKm float64) string {
	lat := geo.RoundTo(latitude, keyLatitudeDecimals)
	return fmt.Sprintf("%s%s:%.2f:%s", keyPrefix, fuel, lat, strconv.FormatFloat(radiusKm, 'f', -1, 64))
}

type Option func(*StationCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *StationCache) { c.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(c *StationCache) { c.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *StationCache) { c.log = l }
}

type StationCache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func New(backend Backend, opts ...Option) *StationCache {
	c := &StationCache{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached stations for key when the entry is younger than
// the TTL and not empty. Read failures are logged and reported as a miss.
func (c *StationCache) Get(ctx context.Context, key string) ([]station.Station, bool) {
	entry, ok := c.load(ctx, key)
	if !ok || len(entry.Data) == 0 {
		return nil, false
	}

	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	if age >= c.ttl {
		c.log.Debug("cache entry expired", "key", key, "age", age)
		return nil, false
	}
	return entry.Data, true
}

// GetStale returns the cached stations for key regardless of age, with the
// time they were written.
func (c *StationCache) GetStale(ctx context.Context, key string) ([]station.Station, time.Time, bool) {
	entry, ok := c.load(ctx, key)
	if !ok || len(entry.Data) == 0 {
		return nil, time.Time{}, false
	}
	return entry.Data, time.UnixMilli(entry.Timestamp), true
}

// Put stores data under key stamped with the current time.
func (c *StationCache) Put(ctx context.Context, key string, data []station.Station) error {
	entry := Entry{
		SchemaVersion: SchemaVersion,
		Data:          data,
		Timestamp:     c.now().UnixMilli(),
	}
	return c.backend.PutJSON(ctx, key, SchemaVersion, entry)
}

// Clear removes every cached station list and returns how many were removed.
func (c *StationCache) Clear(ctx context.Context) (int, error) {
	keys, err := c.backend.Keys(ctx, keyPrefix)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := c.backend.Delete(ctx, k); err != nil {
			return 0, err
		}
	}
	c.log.Debug("cache cleared", "entries", len(keys))
	return len(keys), nil
}

func (c *StationCache) load(ctx context.Context, key string) (Entry, bool) {
	var entry Entry
	found, err := c.backend.GetJSON(ctx, key, SchemaVersion, &entry)
	if err != nil {
		c.log.Warn("cache read failed", "key", key, "error", err)
		return Entry{}, false
	}
	if !found {
		return Entry{}, false
	}
	if entry.SchemaVersion != SchemaVersion {
		c.log.Debug("discarding cache entry", "key", key, "schema_version", entry.SchemaVersion)
		return Entry{}, false
	}
	return entry, true
}
