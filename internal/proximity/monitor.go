package proximity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/rubiojr/carburanti/internal/metrics"
	"github.com/rubiojr/carburanti/internal/settings"
	"github.com/rubiojr/carburanti/pkg/geo"
)

// ErrPermissionDenied is returned by Start when background location access
// is not granted. The monitor stays idle.
var ErrPermissionDenied = errors.New("background location permission denied")

type State int

const (
	Idle State = iota
	Watching
)

func (s State) String() string {
	if s == Watching {
		return "watching"
	}
	return "idle"
}

type PermissionChecker interface {
	BackgroundLocation(ctx context.Context) (bool, error)
}

// LocationSource delivers position updates until ctx is done or the source
// is exhausted, then closes the channel.
type LocationSource interface {
	Subscribe(ctx context.Context) (<-chan geo.Point, error)
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type MonitorConfig struct {
	Handoff     *Handoff
	Settings    *settings.Manager
	Permissions PermissionChecker
	Source      LocationSource
	Notifier    Notifier
	Metrics     *metrics.Metrics // optional
	Logger      *slog.Logger
}

// Monitor runs the proximity check on every location update while watching.
// Updates are handled one at a time on a single goroutine.
type Monitor struct {
	cfg MonitorConfig
	log *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(cfg MonitorConfig) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{cfg: cfg, log: logger}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start subscribes to location updates. Calling Start while watching is a
// no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Watching {
		return nil
	}

	granted, err := m.cfg.Permissions.BackgroundLocation(ctx)
	if err != nil {
		return errors.Wrap(err, "checking background location permission")
	}
	if !granted {
		m.log.Info("proximity monitor not started", "reason", "permission denied")
		return ErrPermissionDenied
	}

	watchCtx, cancel := context.WithCancel(ctx)
	updates, err := m.cfg.Source.Subscribe(watchCtx)
	if err != nil {
		cancel()
		return errors.Wrap(err, "subscribing to location updates")
	}

	done := make(chan struct{})
	m.state = Watching
	m.cancel = cancel
	m.done = done
	go m.run(watchCtx, updates, cancel, done)

	m.log.Info("proximity monitor started")
	return nil
}

// Stop unsubscribes and waits for the update loop to exit. The last
// notified station id is kept.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the current watch ends, either by Stop, by the
// parent context or because the location source was exhausted.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return m.done
}

func (m *Monitor) run(ctx context.Context, updates <-chan geo.Point, cancel context.CancelFunc, done chan struct{}) {
	defer func() {
		cancel()
		m.mu.Lock()
		if m.done == done {
			m.state = Idle
			m.cancel = nil
		}
		m.mu.Unlock()
		close(done)
		m.log.Info("proximity monitor stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case pos, ok := <-updates:
			if !ok {
				return
			}
			if _, err := m.HandleUpdate(ctx, pos); err != nil {
				m.log.Warn("proximity update failed", "error", err)
			}
		}
	}
}

// HandleUpdate runs one proximity check for pos against the persisted
// hand-off state, notifying and recording the station when Decide says so.
func (m *Monitor) HandleUpdate(ctx context.Context, pos geo.Point) (Effect, error) {
	prefs, err := m.cfg.Settings.Load(ctx)
	if err != nil {
		return Effect{}, errors.Wrap(err, "loading settings")
	}
	if !prefs.NotifyProximity {
		return Effect{}, nil
	}

	snap, found, err := m.cfg.Handoff.LoadSnapshot(ctx)
	if err != nil {
		return Effect{}, errors.Wrap(err, "loading station snapshot")
	}
	if !found || len(snap.Stations) == 0 {
		return Effect{}, nil
	}

	last, err := m.cfg.Handoff.LastNotified(ctx)
	if err != nil {
		return Effect{}, errors.Wrap(err, "loading notification state")
	}

	// Snapshot stations only carry prices for the fuel they were fetched for.
	fuel := snap.Fuel
	if !fuel.Valid() {
		fuel = prefs.FuelType
	}

	effect := Decide(Update{
		Position:       pos,
		Stations:       snap.Stations,
		Fuel:           fuel,
		LastNotifiedID: last,
		Language:       prefs.Language,
	})
	if effect.Empty() {
		return effect, nil
	}

	if err := m.cfg.Notifier.Notify(ctx, *effect.Notification); err != nil {
		return effect, errors.Wrap(err, "sending notification")
	}
	if err := m.cfg.Handoff.setLastNotified(ctx, *effect.LastNotifiedID); err != nil {
		return effect, errors.Wrap(err, "saving notification state")
	}
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.Notifications.Inc()
	}

	m.log.Debug("proximity notification sent", "station", effect.Notification.StationID, "distance_km", effect.Notification.DistanceKm)
	return effect, nil
}
