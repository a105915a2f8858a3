package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/rubiojr/carburanti/internal/cache"
	"github.com/rubiojr/carburanti/internal/config"
	"github.com/rubiojr/carburanti/internal/favorites"
	"github.com/rubiojr/carburanti/internal/finder"
	"github.com/rubiojr/carburanti/internal/geocode"
	"github.com/rubiojr/carburanti/internal/metrics"
	"github.com/rubiojr/carburanti/internal/proximity"
	"github.com/rubiojr/carburanti/internal/settings"
	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/store"
	"github.com/rubiojr/carburanti/pkg/api"
)

// app holds the components shared by the commands.
type app struct {
	cfg       config.Config
	log       *slog.Logger
	store     *store.Store
	settings  *settings.Manager
	favorites *favorites.Manager
	handoff   *proximity.Handoff
	metrics   *metrics.Metrics
	finder    *finder.Finder
	stations  *cache.StationCache
	geocoder  *geocode.Geocoder
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if v := c.String("db"); v != "" {
		cfg.DBPath = v
	}
	if v := c.String("api-url"); v != "" {
		cfg.APIURL = v
	}
	if v := c.String("log-level"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
			return cfg, errors.Newf("invalid log level %q", v)
		}
	}
	return cfg, nil
}

func newApp(c *cli.Context, logger *slog.Logger) (*app, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}

	kv, err := store.Open(c.Context, cfg.DBPath, logger)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing storage")
	}

	a := &app{
		cfg:       cfg,
		log:       logger,
		store:     kv,
		settings:  settings.New(kv, logger),
		favorites: favorites.New(kv, logger),
		handoff:   proximity.NewHandoff(kv),
		metrics:   metrics.New(),
		geocoder:  geocode.New(geocode.DefaultServer, geocode.WithLogger(logger)),
	}

	client := api.NewFuelPriceAPI(api.WithBaseURL(cfg.APIURL), api.WithTimeout(cfg.Timeout))
	a.stations = cache.New(kv, cache.WithTTL(cfg.CacheTTL), cache.WithLogger(logger))
	a.finder = finder.New(finder.Config{
		Fetcher:   client,
		Cache:     a.stations,
		Handoff:   a.handoff,
		SearchLog: kv,
		Metrics:   a.metrics,
		Timeout:   cfg.Timeout,
		Results:   cfg.Results,
		Logger:    logger,
	})
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("error closing storage", "error", err)
	}
}

// fuelFlag resolves the --fuel flag, falling back to the stored settings.
func (a *app) fuelFlag(c *cli.Context) (station.FuelType, string, error) {
	prefs, err := a.settings.Load(c.Context)
	if err != nil {
		return "", "", err
	}
	if v := c.String("fuel"); v != "" {
		fuel, err := station.ParseFuel(v)
		return fuel, prefs.Language, err
	}
	return prefs.FuelType, prefs.Language, nil
}
