package proximity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rubiojr/carburanti/pkg/geo"
)

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, notif Notification) error {
	n.Logger.InfoContext(ctx, notif.Title, "body", notif.Body, PayloadStationID, notif.StationID)
	return nil
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// StaticPermission grants or denies background location unconditionally.
type StaticPermission bool

func (p StaticPermission) BackgroundLocation(context.Context) (bool, error) {
	return bool(p), nil
}

// ChannelSource forwards positions from C.
type ChannelSource struct {
	C <-chan geo.Point
}

func (s ChannelSource) Subscribe(ctx context.Context) (<-chan geo.Point, error) {
	out := make(chan geo.Point)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-s.C:
				if !ok {
					return
				}
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
