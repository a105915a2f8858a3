package finder

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/carburanti/internal/cache"
	"github.com/rubiojr/carburanti/internal/metrics"
	"github.com/rubiojr/carburanti/internal/proximity"
	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/store"
	"github.com/rubiojr/carburanti/pkg/api"
)

type fakeFetcher struct {
	calls   atomic.Int32
	records []api.RawStation
	err     error
	gate    chan struct{}
	queries chan api.Query
}

func (f *fakeFetcher) FetchStations(ctx context.Context, q api.Query) ([]api.RawStation, error) {
	f.calls.Add(1)
	if f.queries != nil {
		f.queries <- q
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.records, f.err
}

func records() []api.RawStation {
	return []api.RawStation{
		{ID: "7", Name: "Agip Point", Indirizzo: "Via Roma 1, 20100 Milano", Latitudine: "45.46", Longitudine: "9.19", Prezzo: "1.749", DtComu: "2024-01-01T00:00:00Z"},
		{ID: "8", Name: "Q8 Easy", Latitudine: "45.47", Longitudine: "9.20", Prezzo: "1,699"},
		{ID: "9", Name: "Broken", Latitudine: "", Longitudine: "9.20", Prezzo: "1.6"},
	}
}

type env struct {
	kv      *store.Store
	cache   *cache.StationCache
	handoff *proximity.Handoff
	metrics *metrics.Metrics
	clock   *time.Time
}

func newEnv(t *testing.T) env {
	t.Helper()
	kv, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "finder.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	now := time.Now()
	e := env{kv: kv, handoff: proximity.NewHandoff(kv), metrics: metrics.New(), clock: &now}
	e.cache = cache.New(kv, cache.WithClock(func() time.Time { return *e.clock }))
	return e
}

func (e env) finder(fetcher Fetcher, timeout time.Duration) *Finder {
	return New(Config{
		Fetcher:   fetcher,
		Cache:     e.cache,
		Handoff:   e.handoff,
		SearchLog: e.kv,
		Metrics:   e.metrics,
		Timeout:   timeout,
	})
}

var milan = Request{Latitude: 45.4612, Longitude: 9.1901, RadiusKm: 5, Fuel: station.Diesel}

func TestFindNetworkThenCache(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	fetcher := &fakeFetcher{records: records(), queries: make(chan api.Query, 1)}
	f := e.finder(fetcher, time.Second)

	res, err := f.Find(ctx, milan)
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, res.Source)
	require.Len(t, res.Stations, 2)
	assert.Equal(t, "Eni", res.Stations[0].Brand)
	require.NotNil(t, res.Stations[0].Distance)
	assert.Equal(t, "stations:diesel:45.46:5", res.Key)

	q := <-fetcher.queries
	assert.Equal(t, api.Query{Latitude: 45.4612, Longitude: 9.1901, DistanceKm: 5, Fuel: "gasolio", Results: api.DefaultResults}, q)

	res, err = f.Find(ctx, milan)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Len(t, res.Stations, 2)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.DroppedRecords))

	snap, found, err := e.handoff.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, snap.Stations, 2)
	assert.Nil(t, snap.Stations[0].Distance)
	assert.Equal(t, station.Diesel, snap.Fuel)

	logs, err := e.kv.SearchLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(2), logs[0].SearchCount)
	assert.Equal(t, 45.46, logs[0].Latitude)
}

func TestFindEmptyResponseIsNotCached(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	fetcher := &fakeFetcher{}
	f := e.finder(fetcher, time.Second)

	res, err := f.Find(ctx, milan)
	require.NoError(t, err)
	assert.Equal(t, SourceEmpty, res.Source)
	assert.NoError(t, res.FetchErr)

	fetcher.records = records()
	res, err = f.Find(ctx, milan)
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, res.Source)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestFindStaleFallback(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	fetcher := &fakeFetcher{records: records()}
	f := e.finder(fetcher, time.Second)

	_, err := f.Find(ctx, milan)
	require.NoError(t, err)

	*e.clock = e.clock.Add(2 * time.Hour)
	fetcher.err = errors.New("connection refused")

	res, err := f.Find(ctx, milan)
	require.NoError(t, err)
	assert.Equal(t, SourceStale, res.Source)
	assert.Len(t, res.Stations, 2)
	assert.ErrorContains(t, res.FetchErr, "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.StaleFallbacks))
}

func TestFindFailureWithoutCache(t *testing.T) {
	e := newEnv(t)
	f := e.finder(&fakeFetcher{err: errors.New("offline")}, time.Second)

	res, err := f.Find(context.Background(), milan)
	require.NoError(t, err)
	assert.Equal(t, SourceEmpty, res.Source)
	assert.Empty(t, res.Stations)
	assert.Error(t, res.FetchErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.FetchErrors))
}

func TestFindTimeout(t *testing.T) {
	e := newEnv(t)
	f := e.finder(&fakeFetcher{records: records(), gate: make(chan struct{})}, 50*time.Millisecond)

	res, err := f.Find(context.Background(), milan)
	require.NoError(t, err)
	assert.Equal(t, SourceEmpty, res.Source)
	assert.True(t, errors.Is(res.FetchErr, context.DeadlineExceeded))
}

func TestFindCoalescesConcurrentRequests(t *testing.T) {
	e := newEnv(t)
	fetcher := &fakeFetcher{records: records(), gate: make(chan struct{}), queries: make(chan api.Query, 10)}
	f := e.finder(fetcher, 5*time.Second)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]Result, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.Find(context.Background(), milan)
			assert.NoError(t, err)
			results[i] = res
		}()
	}

	<-fetcher.queries
	// let the other callers reach the in-flight fetch
	time.Sleep(100 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
	for _, res := range results {
		assert.Len(t, res.Stations, 2)
	}
}

func TestFindInvalidRequest(t *testing.T) {
	e := newEnv(t)
	f := e.finder(&fakeFetcher{}, time.Second)

	_, err := f.Find(context.Background(), Request{Latitude: 1, Longitude: 1, RadiusKm: 5, Fuel: "electric"})
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	_, err = f.Find(context.Background(), Request{Latitude: 1, Longitude: 1, Fuel: station.Diesel})
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}
