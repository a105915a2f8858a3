package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(t *testing.T) (*StationCache, *store.Store, *clock) {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clk := &clock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	return New(s, WithClock(clk.now)), s, clk
}

func sampleStations() []station.Station {
	return []station.Station{
		{ID: "1", Brand: "Eni", Title: "Agip Point", Address: "Via Roma 1", Latitude: 45.46, Longitude: 9.19,
			Prices: map[station.FuelType]float64{station.Diesel: 1.749}, LastUpdate: "2024-03-10T00:00:00Z"},
		{ID: "2", Brand: "Q8", Title: "Q8 Easy", Address: "Via Milano 2", Latitude: 45.47, Longitude: 9.2,
			Prices: map[station.FuelType]float64{station.Diesel: 1.699}, LastUpdate: "2024-03-09T00:00:00Z"},
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "stations:diesel:45.46:5", Key(station.Diesel, 45.4612, 5))
	assert.Equal(t, "stations:lpg:45.47:2.5", Key(station.LPG, 45.466, 2.5))
	// longitude does not participate
	assert.Equal(t, Key(station.Diesel, 45.461, 10), Key(station.Diesel, 45.459, 10))
}

func TestRoundTripWithinTTL(t *testing.T) {
	ctx := context.Background()
	c, _, clk := newTestCache(t)
	key := Key(station.Diesel, 45.46, 5)

	data := sampleStations()
	require.NoError(t, c.Put(ctx, key, data))

	clk.t = clk.t.Add(59 * time.Minute)
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, data, got)
}

func TestExpiredEntryIsMissButStillStored(t *testing.T) {
	ctx := context.Background()
	c, s, clk := newTestCache(t)
	key := Key(station.Diesel, 45.46, 5)
	written := clk.t

	require.NoError(t, c.Put(ctx, key, sampleStations()))

	clk.t = clk.t.Add(time.Hour)
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	var raw Entry
	found, err := s.GetJSON(ctx, key, SchemaVersion, &raw)
	require.NoError(t, err)
	assert.True(t, found)

	stale, at, ok := c.GetStale(ctx, key)
	require.True(t, ok)
	assert.Len(t, stale, 2)
	assert.True(t, at.Equal(written))
}

func TestEmptyDataIsMiss(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	key := Key(station.CNG, 45.46, 5)

	require.NoError(t, c.Put(ctx, key, nil))
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
	_, _, ok = c.GetStale(ctx, key)
	assert.False(t, ok)
}

func TestSchemaMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	c, s, _ := newTestCache(t)
	key := Key(station.Diesel, 45.46, 5)

	old := Entry{SchemaVersion: SchemaVersion - 1, Data: sampleStations(), Timestamp: time.Now().UnixMilli()}
	require.NoError(t, s.PutJSON(ctx, key, SchemaVersion, old))

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
}

func TestCustomTTL(t *testing.T) {
	ctx := context.Background()
	c, _, clk := newTestCache(t)
	c = New(c.backend, WithClock(clk.now), WithTTL(time.Minute))
	key := Key(station.Unleaded, 41.9, 10)

	require.NoError(t, c.Put(ctx, key, sampleStations()))
	clk.t = clk.t.Add(61 * time.Second)
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
}

func TestClearKeepsOtherKeys(t *testing.T) {
	ctx := context.Background()
	c, s, _ := newTestCache(t)
	require.NoError(t, c.Put(ctx, Key(station.Diesel, 45.46, 5), sampleStations()))
	require.NoError(t, c.Put(ctx, Key(station.LPG, 45.46, 5), sampleStations()))
	require.NoError(t, s.PutJSON(ctx, "settings_v3", 3, map[string]string{"language": "en"}))

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := c.Get(ctx, Key(station.Diesel, 45.46, 5))
	assert.False(t, ok)
	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"settings_v3"}, keys)
}
