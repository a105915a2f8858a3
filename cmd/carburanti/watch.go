package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/carburanti/internal/proximity"
	"github.com/rubiojr/carburanti/internal/proximity/gpxtrack"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Replay a GPX track and report stations closer than 1.5 km",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "gpx",
				Usage:    "GPX file with the track to replay",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Delay between track points",
				Value: 0,
			},
			&cli.Float64Flag{
				Name:  "min-displacement",
				Usage: "Skip points closer than this many meters to the previous one",
				Value: 100,
			},
			&cli.BoolFlag{
				Name:  "background-permission",
				Usage: "Whether background location access is granted",
				Value: true,
			},
		},
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	track, err := gpxtrack.Open(c.String("gpx"),
		gpxtrack.WithInterval(c.Duration("interval")),
		gpxtrack.WithMinDisplacement(c.Float64("min-displacement")))
	if err != nil {
		return err
	}

	if _, found, err := a.handoff.LoadSnapshot(c.Context); err != nil {
		return err
	} else if !found {
		fmt.Println("No stations fetched yet, run nearby first.")
	}

	notifier := proximity.LogNotifier{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, nil)),
	}
	monitor := proximity.NewMonitor(proximity.MonitorConfig{
		Handoff:     a.handoff,
		Settings:    a.settings,
		Permissions: proximity.StaticPermission(c.Bool("background-permission")),
		Source:      track,
		Notifier:    notifier,
		Metrics:     a.metrics,
		Logger:      a.log,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	<-monitor.Done()

	fmt.Printf("Replayed %d points in %s\n", len(track.Points()), time.Since(start).Round(time.Millisecond))
	return nil
}
