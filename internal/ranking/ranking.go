// Package ranking orders stations by price and distance. Every function
// returns new slices and leaves its input untouched.
package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/pkg/geo"
)

// DefaultSearchLimit caps Search results when limit <= 0.
const DefaultSearchLimit = 15

type Tier string

const (
	TierBest   Tier = "best"
	TierTop    Tier = "top"
	TierGood   Tier = "good"
	TierRanked Tier = "ranked"
)

// Ranked is a station with its 1-based position in a price ranking.
type Ranked struct {
	Station station.Station `json:"station"`
	Rank    int             `json:"rank"`
	Tier    Tier            `json:"tier"`
}

func tierFor(rank int) Tier {
	switch rank {
	case 1:
		return TierBest
	case 2:
		return TierTop
	case 3:
		return TierGood
	default:
		return TierRanked
	}
}

// Rank returns the stations priced for fuel sorted by ascending price.
// Stations with equal prices keep their input order.
func Rank(stations []station.Station, fuel station.FuelType) []station.Station {
	ranked := make([]station.Station, 0, len(stations))
	for _, s := range stations {
		if _, ok := s.Price(fuel); ok {
			ranked = append(ranked, s)
		}
	}
	slices.SortStableFunc(ranked, func(a, b station.Station) int {
		pa, _ := a.Price(fuel)
		pb, _ := b.Price(fuel)
		return cmp.Compare(pa, pb)
	})
	return ranked
}

// Top returns the n cheapest stations for fuel with their rank and tier.
func Top(stations []station.Station, fuel station.FuelType, n int) []Ranked {
	ranked := Rank(stations, fuel)
	if n < len(ranked) {
		ranked = ranked[:max(n, 0)]
	}

	out := make([]Ranked, len(ranked))
	for i, s := range ranked {
		out[i] = Ranked{Station: s, Rank: i + 1, Tier: tierFor(i + 1)}
	}
	return out
}

// Cheapest returns the lowest priced station for fuel.
func Cheapest(stations []station.Station, fuel station.FuelType) (station.Station, bool) {
	ranked := Rank(stations, fuel)
	if len(ranked) == 0 {
		return station.Station{}, false
	}
	return ranked[0], true
}

// WithDistances returns copies of stations with Distance set from the
// given point.
func WithDistances(stations []station.Station, from geo.Point) []station.Station {
	out := make([]station.Station, len(stations))
	for i, s := range stations {
		out[i] = s.WithDistance(from.DistanceTo(s.Point()))
	}
	return out
}

// Nearest returns the closest station to from, with Distance set. The
// first station wins on ties.
func Nearest(stations []station.Station, from geo.Point) (station.Station, bool) {
	best := -1
	bestDist := 0.0
	for i, s := range stations {
		d := from.DistanceTo(s.Point())
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 {
		return station.Station{}, false
	}
	return stations[best].WithDistance(bestDist), true
}

// SortByDistance returns stations ordered by ascending distance from from.
func SortByDistance(stations []station.Station, from geo.Point) []station.Station {
	out := WithDistances(stations, from)
	slices.SortStableFunc(out, func(a, b station.Station) int {
		return cmp.Compare(*a.Distance, *b.Distance)
	})
	return out
}

// Search matches text against brand and title, case-insensitively.
func Search(stations []station.Station, text string, limit int) []station.Station {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil
	}

	var out []station.Station
	for _, s := range stations {
		if strings.Contains(strings.ToLower(s.Brand), needle) || strings.Contains(strings.ToLower(s.Title), needle) {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
