package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/muesli/gominatim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/carburanti/internal/cache"
	"github.com/rubiojr/carburanti/internal/favorites"
	"github.com/rubiojr/carburanti/internal/finder"
	"github.com/rubiojr/carburanti/internal/geocode"
	"github.com/rubiojr/carburanti/internal/proximity"
	"github.com/rubiojr/carburanti/internal/settings"
	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/status"
	"github.com/rubiojr/carburanti/internal/store"
	"github.com/rubiojr/carburanti/pkg/api"
)

type stubFetcher struct {
	calls atomic.Int32
}

func (f *stubFetcher) FetchStations(ctx context.Context, q api.Query) ([]api.RawStation, error) {
	f.calls.Add(1)
	return []api.RawStation{
		{ID: "7", Name: "Agip Point", Indirizzo: "Via Roma 1, 20100 Milano", Latitudine: "45.46", Longitudine: "9.19", Prezzo: "1.749", DtComu: "2024-01-01T00:00:00Z"},
		{ID: "8", Name: "Q8 Easy", Indirizzo: "Viale Monza 10, 20127 Milano MI", Latitudine: "45.47", Longitudine: "9.20", Prezzo: "1,699"},
		{ID: "9", Name: "Distributore", Gestore: "Rossi Carburanti", Latitudine: "45.48", Longitudine: "9.21", Prezzo: "1.729"},
	}, nil
}

type testServer struct {
	handler   http.Handler
	fetcher   *stubFetcher
	favorites *favorites.Manager
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	ctx := context.Background()
	kv, err := store.Open(ctx, filepath.Join(t.TempDir(), "server.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	fetcher := &stubFetcher{}
	handoff := proximity.NewHandoff(kv)
	favs := favorites.New(kv, nil)
	f := finder.New(finder.Config{
		Fetcher:   fetcher,
		Cache:     cache.New(kv),
		Handoff:   handoff,
		SearchLog: kv,
		Timeout:   time.Second,
	})
	geocoder := geocode.New("", geocode.WithLookup(func(q string) ([]gominatim.SearchResult, error) {
		if q == "Milano" {
			return []gominatim.SearchResult{{Lat: "45.4642", Lon: "9.19", DisplayName: "Milano"}}, nil
		}
		return nil, nil
	}))

	srv := New(Config{
		Finder:    f,
		Favorites: favs,
		Settings:  settings.New(kv, nil),
		Handoff:   handoff,
		Geocoder:  geocoder,
		Searches:  kv,
		Logger:    httplog.NewLogger("test", httplog.Options{LogLevel: slog.LevelError, Concise: true}),
	})
	return testServer{handler: srv.Routes(), fetcher: fetcher, favorites: favs}
}

func (ts testServer) do(t *testing.T, method, target string, body string, dst any) int {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	if dst != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
	}
	return rec.Code
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/healthz", "", nil))
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/metrics", "", nil))
}

func TestStations(t *testing.T) {
	ts := newTestServer(t)

	var resp struct {
		Source   string `json:"source"`
		Fuel     string `json:"fuel"`
		Stations []struct {
			ID     string        `json:"id"`
			Brand  string        `json:"brand"`
			City   string        `json:"city"`
			Logo   string        `json:"logo"`
			Status status.Status `json:"status"`
		} `json:"stations"`
		Top []struct {
			Rank int    `json:"rank"`
			Tier string `json:"tier"`
		} `json:"top"`
		Summary struct {
			Count int `json:"count"`
		} `json:"summary"`
	}
	code := ts.do(t, http.MethodGet, "/v1/stations?lat=45.46&lng=9.19&fuel=diesel&top=2&lang=en", "", &resp)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, "network", resp.Source)
	assert.Equal(t, "diesel", resp.Fuel)
	require.Len(t, resp.Stations, 3)
	assert.Equal(t, "8", resp.Stations[0].ID)
	assert.Equal(t, "Q8", resp.Stations[0].Brand)
	assert.Equal(t, "Milano", resp.Stations[0].City)
	assert.NotEmpty(t, resp.Stations[0].Logo)
	assert.Equal(t, "Rossi Carburanti", resp.Stations[1].Brand)
	assert.Equal(t, status.KindStale, resp.Stations[2].Status.Kind)
	require.Len(t, resp.Top, 2)
	assert.Equal(t, "best", resp.Top[0].Tier)
	assert.Equal(t, 3, resp.Summary.Count)

	code = ts.do(t, http.MethodGet, "/v1/stations?location=Milano&fuel=diesel", "", &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cache", resp.Source)
	assert.Equal(t, int32(1), ts.fetcher.calls.Load())
}

func TestStationsBadRequests(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/v1/stations?lat=45.46", "", nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/v1/stations?lat=x&lng=9", "", nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/v1/stations?lat=45&lng=9&fuel=electric", "", nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/v1/stations?lat=45&lng=9&radius=-1", "", nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/v1/stations?location=Atlantis", "", nil))
}

func TestCheapestAndStatus(t *testing.T) {
	ts := newTestServer(t)

	var cheapest struct {
		Station struct {
			ID string `json:"id"`
		} `json:"station"`
	}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/stations/cheapest?lat=45.46&lng=9.19&fuel=diesel", "", &cheapest))
	assert.Equal(t, "8", cheapest.Station.ID)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/stations/cheapest?lat=45.46&lng=9.19&fuel=diesel", "", &cheapest))
	assert.Equal(t, int32(1), ts.fetcher.calls.Load())

	var st statusResponse
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/stations/7/status?lang=it", "", &st))
	assert.Equal(t, status.KindStale, st.Status.Kind)
	assert.Equal(t, "Prezzi vecchi", st.Status.Label)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/v1/stations/nope/status", "", nil))
}

func TestCheapestFollowsFavoriteToggle(t *testing.T) {
	ts := newTestServer(t)
	target := "/v1/stations/cheapest?lat=45.46&lng=9.19&fuel=diesel"

	var cheapest struct {
		Station struct {
			ID       string `json:"id"`
			Favorite bool   `json:"favorite"`
		} `json:"station"`
	}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, target, "", &cheapest))
	require.Equal(t, "8", cheapest.Station.ID)
	assert.False(t, cheapest.Station.Favorite)

	body := `{"id":"8","brand":"Q8","title":"Q8 Easy","address":"Viale Monza 10, 20127 Milano MI","latitude":45.47,"longitude":9.2}`
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/v1/favorites", body, nil))

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, target, "", &cheapest))
	assert.True(t, cheapest.Station.Favorite)
	assert.Equal(t, int32(1), ts.fetcher.calls.Load())
}

func TestStationsSortByDistance(t *testing.T) {
	ts := newTestServer(t)

	var resp struct {
		Stations []struct {
			ID       string   `json:"id"`
			Distance *float64 `json:"distance"`
		} `json:"stations"`
	}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/stations?lat=45.46&lng=9.19&fuel=diesel&sort=distance", "", &resp))
	require.Len(t, resp.Stations, 3)
	assert.Equal(t, "7", resp.Stations[0].ID)
	assert.Equal(t, "8", resp.Stations[1].ID)
	assert.Equal(t, "9", resp.Stations[2].ID)
	require.NotNil(t, resp.Stations[0].Distance)
	assert.InDelta(t, 0, *resp.Stations[0].Distance, 0.001)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/v1/stations?lat=45.46&lng=9.19&fuel=diesel&sort=brand", "", nil))
}

func TestFavorites(t *testing.T) {
	ts := newTestServer(t)

	var toggled toggleResponse
	body := `{"id":"7","brand":"Eni","title":"Agip Point","address":"Via Roma 1, 20100 Milano","latitude":45.46,"longitude":9.19,"prices":{"diesel":1.749}}`
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/v1/favorites", body, &toggled))
	assert.True(t, toggled.Added)

	var favs []station.Station
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/favorites", "", &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, 1.749, favs[0].Prices[station.Diesel])

	var groups []struct {
		City string `json:"city"`
	}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/favorites?grouped=1", "", &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "Milano", groups[0].City)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/v1/favorites/7", "", nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/v1/favorites/7", "", nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/v1/favorites", `{"brand":"Eni"}`, nil))
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t)

	var prefs settings.Settings
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/settings", "", &prefs))
	assert.Equal(t, settings.Defaults(), prefs)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, "/v1/settings", `{"fuelType":"gpl","language":"en","notifProximity":false}`, &prefs))
	assert.Equal(t, station.LPG, prefs.FuelType)
	assert.Equal(t, "en", prefs.Language)
	assert.False(t, prefs.NotifyProximity)
	assert.True(t, prefs.NotifyPrice)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/v1/settings", `{"fuelType":"electric"}`, nil))
}

func TestSearches(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/stations?lat=45.46&lng=9.19&fuel=diesel", "", nil))

	var logs []store.SearchLog
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/searches", "", &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "diesel", logs[0].Fuel)
}
