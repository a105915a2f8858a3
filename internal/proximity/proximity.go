// Package proximity raises a notification when the device gets close to a
// cached station. Decide holds the pure decision; Monitor wires it to a
// location source, persisted state and a notifier.
package proximity

import (
	"fmt"

	"github.com/rubiojr/carburanti/internal/ranking"
	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/translations"
	"github.com/rubiojr/carburanti/pkg/geo"
)

// ThresholdKm is the distance under which the nearest station triggers a
// notification.
const ThresholdKm = 1.5

// PayloadStationID is the notification data key carrying the station id.
const PayloadStationID = "station_id"

// Update is everything a single decision needs.
type Update struct {
	Position geo.Point
	Stations []station.Station
	Fuel     station.FuelType
	// LastNotifiedID is nil when nothing was notified yet.
	LastNotifiedID *string
	Language       string
}

type Notification struct {
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	StationID  string            `json:"station_id"`
	DistanceKm float64           `json:"distance_km"`
	Data       map[string]string `json:"data"`
}

// Effect is the outcome of Decide. A zero Effect means nothing to do.
type Effect struct {
	Notification *Notification
	// LastNotifiedID is the id to persist, set together with Notification.
	LastNotifiedID *string
}

func (e Effect) Empty() bool {
	return e.Notification == nil
}

// Decide finds the station nearest to the update position and returns a
// notification when it is closer than ThresholdKm and differs from the last
// notified one.
func Decide(u Update) Effect {
	nearest, ok := ranking.Nearest(u.Stations, u.Position)
	if !ok {
		return Effect{}
	}

	dist := *nearest.Distance
	if dist >= ThresholdKm {
		return Effect{}
	}
	if u.LastNotifiedID != nil && *u.LastNotifiedID == nearest.ID {
		return Effect{}
	}

	t := translations.GetTranslations(u.Language)
	body := fmt.Sprintf(t.NearbyNoPrice, nearest.Brand, dist)
	if price, ok := nearest.Price(u.Fuel); ok {
		body = fmt.Sprintf(t.NearbyBody, nearest.Brand, dist, u.Fuel.Label(u.Language), price)
	}

	id := nearest.ID
	return Effect{
		Notification: &Notification{
			Title:      t.NearbyTitle,
			Body:       body,
			StationID:  id,
			DistanceKm: dist,
			Data:       map[string]string{PayloadStationID: id},
		},
		LastNotifiedID: &id,
	}
}
