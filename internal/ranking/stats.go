package ranking

import (
	"math"

	"github.com/rubiojr/carburanti/internal/station"
)

// Summary holds price statistics for one fuel over a station set.
type Summary struct {
	Fuel              station.FuelType `json:"fuel"`
	Count             int              `json:"count"`
	LowestPrice       float64          `json:"lowestPrice"`
	AveragePrice      float64          `json:"averagePrice"`
	HighestPrice      float64          `json:"highestPrice"`
	StandardDeviation float64          `json:"standardDeviation"`
	// CheapestIDs lists every station sharing the lowest price.
	CheapestIDs       []string       `json:"cheapestIds"`
	BrandDistribution map[string]int `json:"brandDistribution"`
}

// Summarize derives price statistics for fuel. Stations without a price
// for fuel are ignored; Count is zero when none has one.
func Summarize(stations []station.Station, fuel station.FuelType) Summary {
	summary := Summary{
		Fuel:              fuel,
		BrandDistribution: make(map[string]int),
	}

	var prices []float64
	for _, s := range stations {
		p, ok := s.Price(fuel)
		if !ok {
			continue
		}
		prices = append(prices, p)
		summary.BrandDistribution[s.Brand]++

		switch {
		case len(prices) == 1 || p < summary.LowestPrice:
			summary.LowestPrice = p
			summary.CheapestIDs = []string{s.ID}
		case p == summary.LowestPrice:
			summary.CheapestIDs = append(summary.CheapestIDs, s.ID)
		}
		if len(prices) == 1 || p > summary.HighestPrice {
			summary.HighestPrice = p
		}
	}

	summary.Count = len(prices)
	if summary.Count == 0 {
		return summary
	}

	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	avg := sum / float64(len(prices))
	summary.AveragePrice = math.Round(avg*1000) / 1000

	if len(prices) > 1 {
		variance := 0.0
		for _, p := range prices {
			variance += math.Pow(p-avg, 2)
		}
		variance /= float64(len(prices))
		summary.StandardDeviation = math.Sqrt(variance)
	}
	return summary
}
