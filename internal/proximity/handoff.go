package proximity

import (
	"context"
	"time"

	"github.com/rubiojr/carburanti/internal/station"
)

const (
	SnapshotKey          = "background_snapshot_v3"
	NotificationStateKey = "notification_state_v3"
	handoffVersion       = 3
)

type Backend interface {
	GetJSON(ctx context.Context, key string, version int, dst any) (bool, error)
	PutJSON(ctx context.Context, key string, version int, v any) error
}

// Snapshot is the last station list the foreground produced, stored for the
// background monitor.
type Snapshot struct {
	Stations []station.Station `json:"stations"`
	Fuel     station.FuelType  `json:"fuel"`
	SavedAt  int64             `json:"saved_at"`
}

type NotificationState struct {
	LastNotifiedStationID *string `json:"last_notified_station_id"`
}

// Handoff is the persisted state shared between foreground lookups and the
// monitor. The foreground writes the snapshot; only the monitor writes the
// notification state.
type Handoff struct {
	kv  Backend
	now func() time.Time
}

func NewHandoff(kv Backend) *Handoff {
	return &Handoff{kv: kv, now: time.Now}
}

func (h *Handoff) SaveSnapshot(ctx context.Context, stations []station.Station, fuel station.FuelType) error {
	return h.kv.PutJSON(ctx, SnapshotKey, handoffVersion, Snapshot{
		Stations: stations,
		Fuel:     fuel,
		SavedAt:  h.now().UnixMilli(),
	})
}

func (h *Handoff) LoadSnapshot(ctx context.Context) (Snapshot, bool, error) {
	var snap Snapshot
	found, err := h.kv.GetJSON(ctx, SnapshotKey, handoffVersion, &snap)
	if err != nil || !found {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (h *Handoff) LastNotified(ctx context.Context) (*string, error) {
	var state NotificationState
	if _, err := h.kv.GetJSON(ctx, NotificationStateKey, handoffVersion, &state); err != nil {
		return nil, err
	}
	return state.LastNotifiedStationID, nil
}

func (h *Handoff) setLastNotified(ctx context.Context, id string) error {
	return h.kv.PutJSON(ctx, NotificationStateKey, handoffVersion, NotificationState{LastNotifiedStationID: &id})
}
