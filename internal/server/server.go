// Package server exposes the station engine as a JSON HTTP API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"

	"github.com/rubiojr/carburanti/internal/favorites"
	"github.com/rubiojr/carburanti/internal/finder"
	"github.com/rubiojr/carburanti/internal/geocode"
	"github.com/rubiojr/carburanti/internal/metrics"
	"github.com/rubiojr/carburanti/internal/proximity"
	"github.com/rubiojr/carburanti/internal/settings"
	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultRadius    = 5.0 // km
	DefaultTop       = 3
	DefaultRateLimit = 60 // requests per minute and IP

	responseCacheExpiry  = time.Minute
	responseCacheCleanup = 5 * time.Minute
)

type Locator interface {
	Locate(ctx context.Context, query string) (geocode.Result, error)
}

type SearchLogReader interface {
	SearchLogs(ctx context.Context, limit int) ([]store.SearchLog, error)
}

type Config struct {
	Finder    *finder.Finder
	Favorites *favorites.Manager
	Settings  *settings.Manager
	Handoff   *proximity.Handoff
	Geocoder  Locator
	Searches  SearchLogReader
	Metrics   *metrics.Metrics
	Logger    *httplog.Logger
	// RadiusKm is used when a request has no radius.
	RadiusKm  float64
	RateLimit int
}

type Server struct {
	cfg       Config
	log       *slog.Logger
	responses *cache.Cache
	now       func() time.Time
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = httplog.NewLogger("carburanti", httplog.Options{
			LogLevel: slog.LevelWarn,
			Concise:  true,
		})
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = DefaultRadius
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	return &Server{
		cfg:       cfg,
		log:       cfg.Logger.Logger,
		responses: cache.New(responseCacheExpiry, responseCacheCleanup),
		now:       time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(s.cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.cfg.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))

		r.Get("/stations", s.handleStations)
		r.Get("/stations/cheapest", s.handleCheapest)
		r.Get("/stations/{id}/status", s.handleStatus)

		r.Get("/favorites", s.handleListFavorites)
		r.Post("/favorites", s.handleToggleFavorite)
		r.Delete("/favorites/{id}", s.handleDeleteFavorite)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Get("/searches", s.handleSearches)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("error encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, finder.ErrInvalidRequest),
		errors.Is(err, station.ErrUnknownFuel),
		errors.Is(err, settings.ErrUnknownNotification):
		status = http.StatusBadRequest
	case errors.Is(err, geocode.ErrNotFound), errors.Is(err, errNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(errBadRequest, "invalid %s value %q", name, v)
	}
	return f, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.Wrapf(errBadRequest, "invalid %s value %q", name, v)
	}
	return n, nil
}
