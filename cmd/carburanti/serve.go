package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/httplog/v2"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"github.com/rubiojr/carburanti/internal/finder"
	"github.com/rubiojr/carburanti/internal/server"
)

const (
	shutdownTimeout = 10 * time.Second
	vacuumSchedule  = "@daily"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP server port (default from CARBURANTI_PORT)",
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "Log in JSON",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger := httplog.NewLogger("carburanti", httplog.Options{
		JSON:            c.Bool("json-logs"),
		LogLevel:        cfg.LogLevel,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})

	a, err := newApp(c, logger.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.IsSet("port") {
		a.cfg.Port = c.Int("port")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := a.startRefresh(ctx)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	srv := server.New(server.Config{
		Finder:    a.finder,
		Favorites: a.favorites,
		Settings:  a.settings,
		Handoff:   a.handoff,
		Geocoder:  a.geocoder,
		Searches:  a.store,
		Metrics:   a.metrics,
		Logger:    logger,
		RadiusKm:  a.cfg.RadiusKm,
	})

	httpServer := &http.Server{
		Addr:              a.cfg.ListenAddr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server on", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// startRefresh schedules store maintenance and, when a home area is
// configured, keeps it warm in the cache.
func (a *app) startRefresh(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(vacuumSchedule, func() {
		if err := a.store.Vacuum(ctx); err != nil {
			a.log.Error("Error vacuuming database", "error", err)
		}
	}); err != nil {
		return nil, err
	}

	if a.cfg.Home == nil {
		a.log.Info("No home area configured, scheduled refresh disabled")
		c.Start()
		return c, nil
	}

	refresh := func() {
		prefs, err := a.settings.Load(ctx)
		if err != nil {
			a.log.Error("Error loading settings", "error", err)
			return
		}
		res, err := a.finder.Find(ctx, finder.Request{
			Latitude:  a.cfg.Home.Latitude,
			Longitude: a.cfg.Home.Longitude,
			RadiusKm:  a.cfg.RadiusKm,
			Fuel:      prefs.FuelType,
		})
		if err != nil {
			a.log.Error("Error refreshing home area", "error", err)
			return
		}
		a.log.Info("Home area refreshed", "source", res.Source, "stations", len(res.Stations))
	}

	if _, err := c.AddFunc(a.cfg.RefreshSchedule, refresh); err != nil {
		return nil, errors.Wrapf(err, "invalid refresh schedule %q", a.cfg.RefreshSchedule)
	}
	c.Start()
	go refresh()

	a.log.Info("Scheduled home area refresh", "schedule", a.cfg.RefreshSchedule)
	return c, nil
}
