// Package settings persists user preferences: the active fuel, the
// notification toggles and the language.
package settings

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/translations"
)

const (
	Key     = "settings_v3"
	Version = 3
)

// ErrUnknownNotification is returned by SetNotify for unsupported kinds.
var ErrUnknownNotification = errors.New("unknown notification kind")

type Backend interface {
	GetJSON(ctx context.Context, key string, version int, dst any) (bool, error)
	PutJSON(ctx context.Context, key string, version int, v any) error
}

type Settings struct {
	FuelType        station.FuelType `json:"fuelType"`
	NotifyPrice     bool             `json:"notifPrice"`
	NotifyProximity bool             `json:"notifProximity"`
	Language        string           `json:"language"`
}

func Defaults() Settings {
	return Settings{
		FuelType:        station.Unleaded,
		NotifyPrice:     true,
		NotifyProximity: true,
		Language:        "it",
	}
}

// sanitize replaces values this version no longer supports. Fuels without
// a price feed (electric) fall back to diesel.
func (s Settings) sanitize() Settings {
	if !s.FuelType.Valid() {
		s.FuelType = station.Diesel
	}
	s.Language = translations.Normalize(s.Language)
	return s
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

// Load returns the stored settings. Fields missing from the stored document
// keep their default; an absent or unreadable document yields Defaults.
func (m *Manager) Load(ctx context.Context) (Settings, error) {
	s := Defaults()
	found, err := m.kv.GetJSON(ctx, Key, Version, &s)
	if err != nil {
		return Defaults(), err
	}
	if !found {
		return Defaults(), nil
	}
	return s.sanitize(), nil
}

func (m *Manager) Save(ctx context.Context, s Settings) error {
	return m.kv.PutJSON(ctx, Key, Version, s.sanitize())
}

// Update applies fn to the current settings and saves the result.
func (m *Manager) Update(ctx context.Context, fn func(*Settings)) (Settings, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return s, err
	}
	fn(&s)
	s = s.sanitize()
	if err := m.Save(ctx, s); err != nil {
		return s, err
	}
	m.log.Debug("settings updated", "fuel", s.FuelType, "language", s.Language)
	return s, nil
}

func (m *Manager) SetFuel(ctx context.Context, fuel station.FuelType) (Settings, error) {
	if !fuel.Valid() {
		return Settings{}, errors.Wrapf(station.ErrUnknownFuel, "%q", fuel)
	}
	return m.Update(ctx, func(s *Settings) { s.FuelType = fuel })
}

func (m *Manager) SetLanguage(ctx context.Context, lang string) (Settings, error) {
	return m.Update(ctx, func(s *Settings) { s.Language = lang })
}

// SetNotify toggles a notification category: "price" or "proximity".
func (m *Manager) SetNotify(ctx context.Context, kind string, enabled bool) (Settings, error) {
	switch kind {
	case "price":
		return m.Update(ctx, func(s *Settings) { s.NotifyPrice = enabled })
	case "proximity":
		return m.Update(ctx, func(s *Settings) { s.NotifyProximity = enabled })
	default:
		return Settings{}, errors.Wrapf(ErrUnknownNotification, "%q", kind)
	}
}
