package address

import "github.com/rubiojr/carburanti/internal/station"

// CityGroup is a set of stations sharing the same extracted city.
type CityGroup struct {
	City     string            `json:"city"`
	Stations []station.Station `json:"stations"`
}

// GroupByCity groups stations by city, keeping cities in first-seen order
// and stations in input order.
func GroupByCity(stations []station.Station) []CityGroup {
	index := make(map[string]int)
	var groups []CityGroup
	for _, s := range stations {
		city := ExtractCity(s.Address)
		i, ok := index[city]
		if !ok {
			i = len(groups)
			index[city] = i
			groups = append(groups, CityGroup{City: city})
		}
		groups[i].Stations = append(groups[i].Stations, s)
	}
	return groups
}
