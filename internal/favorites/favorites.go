// Package favorites keeps the user's saved stations. A favorite is a
// snapshot taken when it was saved; it is identified by station id only.
package favorites

import (
	"context"
	"log/slog"
	"slices"

	"github.com/rubiojr/carburanti/internal/address"
	"github.com/rubiojr/carburanti/internal/station"
)

const (
	Key     = "favorites_v3"
	Version = 3
)

type Backend interface {
	GetJSON(ctx context.Context, key string, version int, dst any) (bool, error)
	PutJSON(ctx context.Context, key string, version int, v any) error
}

type Manager struct {
	kv  Backend
	log *slog.Logger
}

func New(kv Backend, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{kv: kv, log: logger}
}

// List returns the favorites in the order they were saved.
func (m *Manager) List(ctx context.Context) ([]station.Station, error) {
	var favs []station.Station
	if _, err := m.kv.GetJSON(ctx, Key, Version, &favs); err != nil {
		return nil, err
	}
	return favs, nil
}

// Toggle removes s when a favorite with the same id exists and appends it
// otherwise. It reports whether s was added.
func (m *Manager) Toggle(ctx context.Context, s station.Station) (bool, error) {
	favs, err := m.List(ctx)
	if err != nil {
		return false, err
	}

	added := false
	if i := indexOf(favs, s.ID); i >= 0 {
		favs = slices.Delete(favs, i, i+1)
	} else {
		s.Distance = nil
		favs = append(favs, s)
		added = true
	}

	if err := m.kv.PutJSON(ctx, Key, Version, favs); err != nil {
		return false, err
	}
	m.log.Debug("favorite toggled", "id", s.ID, "added", added)
	return added, nil
}

// Remove deletes the favorite with id. It reports whether one was removed.
func (m *Manager) Remove(ctx context.Context, id string) (bool, error) {
	favs, err := m.List(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(favs, id)
	if i < 0 {
		return false, nil
	}
	favs = slices.Delete(favs, i, i+1)
	return true, m.kv.PutJSON(ctx, Key, Version, favs)
}

func (m *Manager) Contains(ctx context.Context, id string) (bool, error) {
	favs, err := m.List(ctx)
	if err != nil {
		return false, err
	}
	return indexOf(favs, id) >= 0, nil
}

// Grouped returns the favorites grouped by the city parsed from their
// address.
func (m *Manager) Grouped(ctx context.Context) ([]address.CityGroup, error) {
	favs, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return address.GroupByCity(favs), nil
}

func indexOf(favs []station.Station, id string) int {
	return slices.IndexFunc(favs, func(s station.Station) bool { return s.ID == id })
}
