// Package station defines the canonical Station model and the normalizer
// that builds it from raw price feed records.
package station

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rubiojr/carburanti/pkg/geo"
)

const (
	UnknownTitle   = "unknown"
	UnknownAddress = "unknown address"
)

// lastUpdateLayouts are tried in order by UpdatedAt.
var lastUpdateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// Station is an immutable snapshot of a fuel station and its prices.
type Station struct {
	ID         string               `json:"id"`
	Brand      string               `json:"brand"`
	Title      string               `json:"title"`
	Address    string               `json:"address"`
	Latitude   float64              `json:"latitude"`
	Longitude  float64              `json:"longitude"`
	Prices     map[FuelType]float64 `json:"prices"`
	LastUpdate string               `json:"lastUpdate"`
	// Distance in kilometers from the reference point of the last lookup.
	Distance *float64 `json:"distance,omitempty"`
}

// Price returns the station price for fuel.
func (s Station) Price(fuel FuelType) (float64, bool) {
	p, ok := s.Prices[fuel]
	return p, ok
}

// Point returns the station coordinates.
func (s Station) Point() geo.Point {
	return geo.Point{Latitude: s.Latitude, Longitude: s.Longitude}
}

// WithDistance returns a copy of s with Distance set.
func (s Station) WithDistance(km float64) Station {
	c := s.clone()
	c.Distance = &km
	return c
}

// UpdatedAt parses LastUpdate.
func (s Station) UpdatedAt() (time.Time, error) {
	for _, layout := range lastUpdateLayouts {
		if t, err := time.Parse(layout, s.LastUpdate); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("unrecognized timestamp %q", s.LastUpdate)
}

func (s Station) clone() Station {
	c := s
	if s.Prices != nil {
		c.Prices = make(map[FuelType]float64, len(s.Prices))
		for k, v := range s.Prices {
			c.Prices[k] = v
		}
	}
	if s.Distance != nil {
		d := *s.Distance
		c.Distance = &d
	}
	return c
}
