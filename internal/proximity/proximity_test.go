package proximity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/pkg/geo"
)

var origin = geo.Point{Latitude: 45.46, Longitude: 9.19}

// nearbyStations has X 1.2 km north of origin and two more stations about
// 2 km away.
func nearbyStations() []station.Station {
	return []station.Station{
		{ID: "Y", Brand: "Q8", Latitude: 45.442013, Longitude: 9.19,
			Prices: map[station.FuelType]float64{station.Diesel: 1.689}},
		{ID: "X", Brand: "Eni", Latitude: 45.470792, Longitude: 9.19,
			Prices: map[station.FuelType]float64{station.Diesel: 1.749}},
		{ID: "Z", Brand: "Esso", Latitude: 45.46, Longitude: 9.2157,
			Prices: map[station.FuelType]float64{station.Diesel: 1.709}},
	}
}

func strPtr(s string) *string { return &s }

func TestDecideNotifiesNearest(t *testing.T) {
	effect := Decide(Update{Position: origin, Stations: nearbyStations(), Fuel: station.Diesel, Language: "en"})
	require.False(t, effect.Empty())

	n := effect.Notification
	assert.Equal(t, "X", n.StationID)
	assert.Equal(t, map[string]string{PayloadStationID: "X"}, n.Data)
	assert.InDelta(t, 1.2, n.DistanceKm, 0.01)
	assert.Equal(t, "Eni 1.2 km away: Diesel at 1.749 €", n.Body)
	require.NotNil(t, effect.LastNotifiedID)
	assert.Equal(t, "X", *effect.LastNotifiedID)
}

func TestDecideSkipsAlreadyNotified(t *testing.T) {
	effect := Decide(Update{Position: origin, Stations: nearbyStations(), Fuel: station.Diesel, LastNotifiedID: strPtr("X")})
	assert.True(t, effect.Empty())
	assert.Nil(t, effect.LastNotifiedID)

	effect = Decide(Update{Position: origin, Stations: nearbyStations(), Fuel: station.Diesel, LastNotifiedID: strPtr("Y")})
	assert.False(t, effect.Empty())
}

func TestDecideOutsideThreshold(t *testing.T) {
	far := geo.Point{Latitude: 45.40, Longitude: 9.19}
	assert.True(t, Decide(Update{Position: far, Stations: nearbyStations(), Fuel: station.Diesel}).Empty())
	assert.True(t, Decide(Update{Position: origin, Fuel: station.Diesel}).Empty())
}

func TestDecideWithoutPrice(t *testing.T) {
	effect := Decide(Update{Position: origin, Stations: nearbyStations(), Fuel: station.LPG, Language: "it"})
	require.False(t, effect.Empty())
	assert.Equal(t, "Eni a 1.2 km", effect.Notification.Body)
}
