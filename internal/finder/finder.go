// Package finder answers station lookups: it serves fresh cache entries,
// fetches from the upstream feed otherwise, and falls back to expired data
// when the feed is unreachable.
package finder

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/rubiojr/carburanti/internal/cache"
	"github.com/rubiojr/carburanti/internal/metrics"
	"github.com/rubiojr/carburanti/internal/proximity"
	"github.com/rubiojr/carburanti/internal/ranking"
	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/pkg/api"
	"github.com/rubiojr/carburanti/pkg/geo"
)

const searchLogPrecision = 2

// ErrInvalidRequest is returned for requests that cannot be served.
var ErrInvalidRequest = errors.New("invalid station request")

type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
	SourceStale   Source = "stale"
	SourceEmpty   Source = "empty"
)

type Fetcher interface {
	FetchStations(ctx context.Context, q api.Query) ([]api.RawStation, error)
}

type SearchLogger interface {
	LogSearch(ctx context.Context, lat, lng, radius float64, fuel string) error
}

type Request struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Fuel      station.FuelType
}

func (r Request) Point() geo.Point {
	return geo.Point{Latitude: r.Latitude, Longitude: r.Longitude}
}

type Result struct {
	// Stations carry their distance from the request point.
	Stations []station.Station
	Source   Source
	Key      string
	// UpdatedAt is when the data was fetched. Zero for empty results.
	UpdatedAt time.Time
	// FetchErr is the upstream failure behind a stale or empty result.
	FetchErr error
}

type Config struct {
	Fetcher   Fetcher
	Cache     *cache.StationCache
	Handoff   *proximity.Handoff
	SearchLog SearchLogger
	Metrics   *metrics.Metrics
	Timeout   time.Duration
	Results   int
	Logger    *slog.Logger
}

type Finder struct {
	cfg   Config
	log   *slog.Logger
	group singleflight.Group
	now   func() time.Time
}

func New(cfg Config) *Finder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = api.DefaultTimeout
	}
	if cfg.Results <= 0 {
		cfg.Results = api.DefaultResults
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Finder{cfg: cfg, log: logger, now: time.Now}
}

// Find returns the stations around the request point for its fuel.
// Upstream failures never surface as errors: they resolve to stale cached
// data or an empty result with FetchErr set. Persistence failures do.
func (f *Finder) Find(ctx context.Context, req Request) (Result, error) {
	if !req.Fuel.Valid() {
		return Result{}, errors.Wrapf(ErrInvalidRequest, "unknown fuel %q", req.Fuel)
	}
	if req.RadiusKm <= 0 {
		return Result{}, errors.Wrapf(ErrInvalidRequest, "radius must be positive, got %v", req.RadiusKm)
	}

	key := cache.Key(req.Fuel, req.Latitude, req.RadiusKm)
	f.logSearch(ctx, req)

	if stations, ok := f.cfg.Cache.Get(ctx, key); ok {
		f.cfg.Metrics.CacheHits.Inc()
		if err := f.handoff(ctx, stations, req.Fuel); err != nil {
			return Result{}, err
		}
		return Result{Stations: ranking.WithDistances(stations, req.Point()), Source: SourceCache, Key: key}, nil
	}
	f.cfg.Metrics.CacheMisses.Inc()

	v, err, shared := f.group.Do(key, func() (any, error) {
		return f.fetch(context.WithoutCancel(ctx), key, req)
	})
	if err != nil {
		return Result{}, err
	}
	if shared {
		f.log.Debug("joined in-flight fetch", "key", key)
	}

	res := v.(Result)
	res.Stations = ranking.WithDistances(res.Stations, req.Point())
	return res, nil
}

func (f *Finder) fetch(ctx context.Context, key string, req Request) (Result, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := f.cfg.Fetcher.FetchStations(fetchCtx, api.Query{
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		DistanceKm: req.RadiusKm,
		Fuel:       req.Fuel.APICode(),
		Results:    f.cfg.Results,
	})
	f.cfg.Metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		f.cfg.Metrics.FetchErrors.Inc()
		f.log.Warn("station fetch failed", "key", key, "error", err)
		if stale, at, ok := f.cfg.Cache.GetStale(ctx, key); ok {
			f.cfg.Metrics.StaleFallbacks.Inc()
			return Result{Stations: stale, Source: SourceStale, Key: key, UpdatedAt: at, FetchErr: err}, nil
		}
		return Result{Source: SourceEmpty, Key: key, FetchErr: err}, nil
	}

	stations := station.Normalize(raw, req.Fuel, station.WithLogger(f.log), station.WithClock(f.now))
	f.cfg.Metrics.DroppedRecords.Add(float64(len(raw) - len(stations)))
	f.cfg.Metrics.StationsFetched.WithLabelValues(string(req.Fuel)).Add(float64(len(stations)))
	f.log.Debug("stations fetched", "key", key, "records", len(raw), "stations", len(stations))

	if len(stations) == 0 {
		return Result{Source: SourceEmpty, Key: key}, nil
	}

	if err := f.cfg.Cache.Put(ctx, key, stations); err != nil {
		return Result{}, errors.Wrap(err, "caching stations")
	}
	if err := f.handoff(ctx, stations, req.Fuel); err != nil {
		return Result{}, err
	}
	return Result{Stations: stations, Source: SourceNetwork, Key: key, UpdatedAt: f.now()}, nil
}

func (f *Finder) handoff(ctx context.Context, stations []station.Station, fuel station.FuelType) error {
	if f.cfg.Handoff == nil {
		return nil
	}
	if err := f.cfg.Handoff.SaveSnapshot(ctx, stations, fuel); err != nil {
		return errors.Wrap(err, "saving background snapshot")
	}
	return nil
}

func (f *Finder) logSearch(ctx context.Context, req Request) {
	if f.cfg.SearchLog == nil {
		return
	}
	lat := geo.RoundTo(req.Latitude, searchLogPrecision)
	lng := geo.RoundTo(req.Longitude, searchLogPrecision)
	if err := f.cfg.SearchLog.LogSearch(ctx, lat, lng, req.RadiusKm, string(req.Fuel)); err != nil {
		f.log.Warn("error logging search", "error", err)
	}
}
