package station

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/rubiojr/carburanti/internal/brand"
	"github.com/rubiojr/carburanti/pkg/api"
)

type normalizer struct {
	now func() time.Time
	log *slog.Logger
}

type Option func(*normalizer)

// WithClock sets the clock used for default timestamps and synthesized ids.
func WithClock(now func() time.Time) Option {
	return func(n *normalizer) {
		n.now = now
	}
}

// WithLogger sets the logger used to report dropped records.
func WithLogger(logger *slog.Logger) Option {
	return func(n *normalizer) {
		n.log = logger
	}
}

// Normalize converts raw feed records into stations priced for fuel.
// Records without usable coordinates or price are dropped. Output order
// matches input order.
func Normalize(records []api.RawStation, fuel FuelType, opts ...Option) []Station {
	n := &normalizer{
		now: time.Now,
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(n)
	}

	now := n.now()
	stations := make([]Station, 0, len(records))
	for i := range records {
		s, reason := n.normalize(&records[i], i, fuel, now)
		if reason != "" {
			n.log.Debug("Dropping station record", "index", i, "id", records[i].ID.String(), "reason", reason)
			continue
		}
		stations = append(stations, s)
	}
	return stations
}

func (n *normalizer) normalize(r *api.RawStation, index int, fuel FuelType, now time.Time) (Station, string) {
	lat, ok := parseFinite(r.Latitudine)
	if !ok {
		return Station{}, "invalid latitude"
	}
	lng, ok := parseFinite(r.Longitudine)
	if !ok {
		return Station{}, "invalid longitude"
	}
	price, ok := parseFinite(r.Prezzo)
	if !ok {
		return Station{}, "invalid price"
	}

	id := strings.TrimSpace(r.ID.String())
	if id == "" {
		id = fmt.Sprintf("temp_%d_%d", index, now.UnixMilli())
	}

	title := r.Name
	if title == "" {
		title = UnknownTitle
	}
	addr := r.Indirizzo
	if addr == "" {
		addr = UnknownAddress
	}
	lastUpdate := r.DtComu
	if lastUpdate == "" {
		lastUpdate = now.UTC().Format(time.RFC3339)
	}

	return Station{
		ID:         id,
		Brand:      brand.Classify(r.Name, r.Operator()),
		Title:      title,
		Address:    addr,
		Latitude:   lat,
		Longitude:  lng,
		Prices:     map[FuelType]float64{fuel: price},
		LastUpdate: lastUpdate,
	}, ""
}

func parseFinite(v api.FlexString) (float64, bool) {
	if strings.TrimSpace(v.String()) == "" {
		return 0, false
	}
	f, err := v.Float()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
