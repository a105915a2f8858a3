// Package status estimates an operating status from price freshness and the
// time of day. There is no live open/closed feed: the result is a heuristic
// and must be presented as approximate.
package status

import (
	"time"

	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/translations"
)

const (
	staleAfterDays = 7
	dayStartHour   = 7
	dayEndHour     = 20

	colorStale = "#FF3B30"
	colorOpen  = "#34C759"
)

// Kind identifies the status category independently of language.
type Kind string

const (
	KindStale   Kind = "stale"
	KindOpen    Kind = "open"
	KindOpen24h Kind = "open_24h"
)

// Status is the displayable status of a station.
type Status struct {
	Kind    Kind   `json:"kind"`
	Label   string `json:"label"`
	Color   string `json:"color"`
	Subtext string `json:"subtext"`
	// Approximate is always true; it travels with the value so clients can
	// surface the disclaimer.
	Approximate bool `json:"approximate"`
}

// Evaluate derives a status from the last price update and the current time.
// The hour is taken in now's location.
func Evaluate(lastUpdate, now time.Time, lang string) Status {
	t := translations.GetTranslations(lang)

	daysOld := now.Sub(lastUpdate).Hours() / 24
	if daysOld > staleAfterDays {
		return Status{Kind: KindStale, Label: t.StatusStale, Color: colorStale, Subtext: t.StatusStaleSub, Approximate: true}
	}

	if hour := now.Hour(); hour >= dayStartHour && hour < dayEndHour {
		return Status{Kind: KindOpen, Label: t.StatusOpen, Color: colorOpen, Subtext: t.StatusOpenSub, Approximate: true}
	}
	return Status{Kind: KindOpen24h, Label: t.StatusOpen24h, Color: colorOpen, Subtext: t.StatusOpen24hSub, Approximate: true}
}

// ForStation evaluates the status of s. An unparseable LastUpdate is treated
// as fresh.
func ForStation(s station.Station, now time.Time, lang string) Status {
	updated, err := s.UpdatedAt()
	if err != nil {
		updated = now
	}
	return Evaluate(updated, now, lang)
}
