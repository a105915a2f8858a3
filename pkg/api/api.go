// Package api provides types and functions to interact with the Italian
// fuel price feed and fetch nearby station records for a single fuel type.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultBaseURL = "https://prezzi-carburante.onrender.com/api/distributori"
	DefaultTimeout = 30 * time.Second
	DefaultResults = 50
)

// HTTPStatusError is returned when the feed responds with a non-2xx status.
type HTTPStatusError struct {
	URL        string
	Status     string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status response from %s: %s", e.URL, e.Status)
}

// FuelPriceAPI fetches station records from the price feed.
type FuelPriceAPI struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*FuelPriceAPI)

// WithBaseURL overrides the feed endpoint.
func WithBaseURL(baseURL string) Option {
	return func(api *FuelPriceAPI) {
		api.baseURL = baseURL
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(api *FuelPriceAPI) {
		api.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(api *FuelPriceAPI) {
		api.httpClient = c
	}
}

// NewFuelPriceAPI creates a new FuelPriceAPI client with default settings.
func NewFuelPriceAPI(opts ...Option) *FuelPriceAPI {
	api := &FuelPriceAPI{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(api)
	}
	return api
}

// FetchStations returns the raw station records around the query coordinates.
func (api *FuelPriceAPI) FetchStations(ctx context.Context, q Query) ([]RawStation, error) {
	endpoint, err := api.queryURL(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "error creating request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := api.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "error fetching data")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{URL: endpoint, Status: resp.Status, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "error reading response body")
	}

	var stations []RawStation
	if err := json.Unmarshal(body, &stations); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling JSON")
	}

	return stations, nil
}

func (api *FuelPriceAPI) queryURL(q Query) (string, error) {
	u, err := url.Parse(api.baseURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid base URL %q", api.baseURL)
	}

	results := q.Results
	if results <= 0 {
		results = DefaultResults
	}

	params := u.Query()
	params.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	params.Set("distance", strconv.FormatFloat(q.DistanceKm, 'f', -1, 64))
	params.Set("fuel", q.Fuel)
	params.Set("results", strconv.Itoa(results))
	u.RawQuery = params.Encode()

	return u.String(), nil
}
