// Package geocode resolves place names to coordinates with Nominatim.
package geocode

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"

	"github.com/rubiojr/carburanti/pkg/geo"
)

const (
	DefaultServer = "https://nominatim.openstreetmap.org/"

	cacheExpiration = 30 * time.Minute
	cacheCleanup    = 90 * time.Minute
)

// ErrNotFound is returned when the query matches no place.
var ErrNotFound = errors.New("location not found")

type Result struct {
	geo.Point
	DisplayName string `json:"displayName"`
}

type LookupFunc func(query string) ([]gominatim.SearchResult, error)

func nominatimLookup(query string) ([]gominatim.SearchResult, error) {
	q := gominatim.SearchQuery{
		Q: url.QueryEscape(query),
	}
	return q.Get()
}

type Option func(*Geocoder)

// WithLookup replaces the Nominatim query.
func WithLookup(fn LookupFunc) Option {
	return func(g *Geocoder) { g.lookup = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Geocoder) { g.log = l }
}

// Geocoder memoizes successful lookups for half an hour.
type Geocoder struct {
	cache  *cache.Cache
	lookup LookupFunc
	log    *slog.Logger
}

// New configures the Nominatim server and returns a Geocoder. An empty
// server selects DefaultServer.
func New(server string, opts ...Option) *Geocoder {
	if server == "" {
		server = DefaultServer
	}
	gominatim.SetServer(server)

	g := &Geocoder{
		cache:  cache.New(cacheExpiration, cacheCleanup),
		lookup: nominatimLookup,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Locate returns the first match for query.
func (g *Geocoder) Locate(ctx context.Context, query string) (Result, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return Result{}, errors.Wrap(ErrNotFound, "empty location")
	}

	if cached, ok := g.cache.Get(key); ok {
		return cached.(Result), nil
	}

	g.log.DebugContext(ctx, "geocoding", "query", query)
	results, err := g.lookup(query)
	if err != nil {
		return Result{}, errors.Wrap(err, "geocoding error")
	}
	if len(results) == 0 {
		return Result{}, errors.Wrapf(ErrNotFound, "%s", query)
	}

	res, err := toResult(results[0])
	if err != nil {
		return Result{}, err
	}
	g.cache.Set(key, res, cache.DefaultExpiration)
	return res, nil
}

func toResult(r gominatim.SearchResult) (Result, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return Result{}, errors.Wrap(err, "error parsing latitude")
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return Result{}, errors.Wrap(err, "error parsing longitude")
	}
	return Result{
		Point:       geo.Point{Latitude: lat, Longitude: lng},
		DisplayName: r.DisplayName,
	}, nil
}
