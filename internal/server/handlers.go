package server

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/rubiojr/carburanti/internal/address"
	"github.com/rubiojr/carburanti/internal/brand"
	"github.com/rubiojr/carburanti/internal/cache"
	"github.com/rubiojr/carburanti/internal/finder"
	"github.com/rubiojr/carburanti/internal/ranking"
	"github.com/rubiojr/carburanti/internal/settings"
	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/status"
	"github.com/rubiojr/carburanti/internal/translations"
	"github.com/rubiojr/carburanti/pkg/geo"
)

const (
	defaultSearchLogLimit = 20

	sortPrice    = "price"
	sortDistance = "distance"
)

type lookup struct {
	req  finder.Request
	lang string
}

// resolveLookup reads the lookup parameters, filling fuel and language from
// the stored settings when absent.
func (s *Server) resolveLookup(r *http.Request) (lookup, error) {
	q := r.URL.Query()

	prefs, err := s.cfg.Settings.Load(r.Context())
	if err != nil {
		return lookup{}, err
	}

	l := lookup{req: finder.Request{Fuel: prefs.FuelType}, lang: prefs.Language}
	if v := q.Get("lang"); v != "" {
		l.lang = translations.Normalize(v)
	}
	if v := q.Get("fuel"); v != "" {
		if l.req.Fuel, err = station.ParseFuel(v); err != nil {
			return lookup{}, err
		}
	}
	if l.req.RadiusKm, err = queryFloat(r, "radius", s.cfg.RadiusKm); err != nil {
		return lookup{}, err
	}

	if location := q.Get("location"); location != "" && s.cfg.Geocoder != nil {
		res, err := s.cfg.Geocoder.Locate(r.Context(), location)
		if err != nil {
			return lookup{}, err
		}
		l.req.Latitude, l.req.Longitude = res.Latitude, res.Longitude
		return l, nil
	}

	if q.Get("lat") == "" || q.Get("lng") == "" {
		return lookup{}, errors.Wrap(errBadRequest, "lat and lng are required")
	}
	if l.req.Latitude, err = queryFloat(r, "lat", 0); err != nil {
		return lookup{}, err
	}
	if l.req.Longitude, err = queryFloat(r, "lng", 0); err != nil {
		return lookup{}, err
	}
	return l, nil
}

type stationView struct {
	station.Station
	City     string        `json:"city"`
	Logo     string        `json:"logo,omitempty"`
	Favorite bool          `json:"favorite"`
	Status   status.Status `json:"status"`
}

func (s *Server) view(st station.Station, lang string, favs map[string]bool) stationView {
	logo, _ := brand.Logo(st.Brand)
	return stationView{
		Station:  st,
		City:     address.ExtractCity(st.Address),
		Logo:     logo,
		Favorite: favs[st.ID],
		Status:   status.ForStation(st, s.now(), lang),
	}
}

func (s *Server) favoriteIDs(r *http.Request) map[string]bool {
	ids := make(map[string]bool)
	favs, err := s.cfg.Favorites.List(r.Context())
	if err != nil {
		s.log.Warn("error loading favorites", "error", err)
		return ids
	}
	for _, f := range favs {
		ids[f.ID] = true
	}
	return ids
}

type stationsResponse struct {
	Source     finder.Source    `json:"source"`
	UpdatedAt  *time.Time       `json:"updatedAt,omitempty"`
	Warning    string           `json:"warning,omitempty"`
	Fuel       station.FuelType `json:"fuel"`
	Center     geo.Point        `json:"center"`
	RadiusKm   float64          `json:"radiusKm"`
	Stations   []stationView    `json:"stations"`
	Top        []ranking.Ranked `json:"top"`
	Summary    ranking.Summary  `json:"summary"`
	Disclaimer string           `json:"disclaimer"`
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	l, err := s.resolveLookup(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	topN, err := queryInt(r, "top", DefaultTop)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.cfg.Finder.Find(r.Context(), l.req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	stations := ranking.Rank(res.Stations, l.req.Fuel)
	if text := r.URL.Query().Get("q"); text != "" {
		stations = ranking.Search(stations, text, ranking.DefaultSearchLimit)
	}
	top := ranking.Top(stations, l.req.Fuel, topN)
	switch r.URL.Query().Get("sort") {
	case "", sortPrice:
	case sortDistance:
		stations = ranking.SortByDistance(stations, l.req.Point())
	default:
		s.writeError(w, errors.Wrapf(errBadRequest, "unknown sort %q", r.URL.Query().Get("sort")))
		return
	}

	favs := s.favoriteIDs(r)
	views := make([]stationView, len(stations))
	for i, st := range stations {
		views[i] = s.view(st, l.lang, favs)
	}

	resp := stationsResponse{
		Source:     res.Source,
		Fuel:       l.req.Fuel,
		Center:     l.req.Point(),
		RadiusKm:   l.req.RadiusKm,
		Stations:   views,
		Top:        top,
		Summary:    ranking.Summarize(stations, l.req.Fuel),
		Disclaimer: translations.GetTranslations(l.lang).StatusApproximated,
	}
	if !res.UpdatedAt.IsZero() {
		resp.UpdatedAt = &res.UpdatedAt
	}
	if res.FetchErr != nil {
		resp.Warning = res.FetchErr.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type cheapestResponse struct {
	Station stationView     `json:"station"`
	Summary ranking.Summary `json:"summary"`
}

// cheapestResult is what the response cache keeps. Favorite flags and
// status are rebuilt on every request.
type cheapestResult struct {
	station station.Station
	summary ranking.Summary
}

func (s *Server) handleCheapest(w http.ResponseWriter, r *http.Request) {
	l, err := s.resolveLookup(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	key := cache.Key(l.req.Fuel, l.req.Latitude, l.req.RadiusKm)
	result, ok := s.cachedCheapest(key)
	if !ok {
		res, err := s.cfg.Finder.Find(r.Context(), l.req)
		if err != nil {
			s.writeError(w, err)
			return
		}

		cheapest, found := ranking.Cheapest(res.Stations, l.req.Fuel)
		if !found {
			s.writeError(w, errors.Wrap(errNotFound, "no station sells this fuel nearby"))
			return
		}
		result = cheapestResult{station: cheapest, summary: ranking.Summarize(res.Stations, l.req.Fuel)}
		if res.Source == finder.SourceNetwork || res.Source == finder.SourceCache {
			s.responses.SetDefault(key, result)
		}
	}

	s.writeJSON(w, http.StatusOK, cheapestResponse{
		Station: s.view(result.station, l.lang, s.favoriteIDs(r)),
		Summary: result.summary,
	})
}

func (s *Server) cachedCheapest(key string) (cheapestResult, bool) {
	v, ok := s.responses.Get(key)
	if !ok {
		return cheapestResult{}, false
	}
	result, ok := v.(cheapestResult)
	return result, ok
}

type statusResponse struct {
	ID         string        `json:"id"`
	Status     status.Status `json:"status"`
	Disclaimer string        `json:"disclaimer"`
}

// handleStatus looks the station up among favorites and the last fetched
// stations.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	prefs, err := s.cfg.Settings.Load(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	lang := prefs.Language
	if v := r.URL.Query().Get("lang"); v != "" {
		lang = translations.Normalize(v)
	}

	candidates, err := s.cfg.Favorites.List(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.cfg.Handoff != nil {
		snap, _, err := s.cfg.Handoff.LoadSnapshot(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		candidates = append(candidates, snap.Stations...)
	}

	for _, st := range candidates {
		if st.ID == id {
			s.writeJSON(w, http.StatusOK, statusResponse{
				ID:         id,
				Status:     status.ForStation(st, s.now(), lang),
				Disclaimer: translations.GetTranslations(lang).StatusApproximated,
			})
			return
		}
	}
	s.writeError(w, errors.Wrapf(errNotFound, "station %q", id))
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grouped") != "" {
		groups, err := s.cfg.Favorites.Grouped(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		if groups == nil {
			groups = []address.CityGroup{}
		}
		s.writeJSON(w, http.StatusOK, groups)
		return
	}

	favs, err := s.cfg.Favorites.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if favs == nil {
		favs = []station.Station{}
	}
	s.writeJSON(w, http.StatusOK, favs)
}

type toggleResponse struct {
	ID    string `json:"id"`
	Added bool   `json:"added"`
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var st station.Station
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		s.writeError(w, errors.Wrap(errBadRequest, "invalid station body"))
		return
	}
	if st.ID == "" {
		s.writeError(w, errors.Wrap(errBadRequest, "station id is required"))
		return
	}

	added, err := s.cfg.Favorites.Toggle(r.Context(), st)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toggleResponse{ID: st.ID, Added: added})
}

func (s *Server) handleDeleteFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.cfg.Favorites.Remove(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !removed {
		s.writeError(w, errors.Wrapf(errNotFound, "favorite %q", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.cfg.Settings.Load(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, prefs)
}

type settingsPatch struct {
	FuelType        *string `json:"fuelType"`
	NotifyPrice     *bool   `json:"notifPrice"`
	NotifyProximity *bool   `json:"notifProximity"`
	Language        *string `json:"language"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, errors.Wrap(errBadRequest, "invalid settings body"))
		return
	}

	var fuel station.FuelType
	if patch.FuelType != nil {
		var err error
		if fuel, err = station.ParseFuel(*patch.FuelType); err != nil {
			s.writeError(w, err)
			return
		}
	}

	prefs, err := s.cfg.Settings.Update(r.Context(), func(p *settings.Settings) {
		if fuel != "" {
			p.FuelType = fuel
		}
		if patch.NotifyPrice != nil {
			p.NotifyPrice = *patch.NotifyPrice
		}
		if patch.NotifyProximity != nil {
			p.NotifyProximity = *patch.NotifyProximity
		}
		if patch.Language != nil {
			p.Language = *patch.Language
		}
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleSearches(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Searches == nil {
		s.writeError(w, errors.Wrap(errNotFound, "search log disabled"))
		return
	}
	limit, err := queryInt(r, "limit", defaultSearchLogLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	logs, err := s.cfg.Searches.SearchLogs(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}
