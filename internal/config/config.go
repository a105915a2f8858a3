// Package config loads runtime configuration from the environment, reading
// a .env file first when one exists.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/rubiojr/carburanti/internal/cache"
	"github.com/rubiojr/carburanti/pkg/api"
	"github.com/rubiojr/carburanti/pkg/geo"
)

type Config struct {
	DBPath          string
	APIURL          string
	Timeout         time.Duration
	Results         int
	RadiusKm        float64
	CacheTTL        time.Duration
	Port            int
	RefreshSchedule string
	// Home is the area kept warm by the scheduled refresh. Nil when unset.
	Home     *geo.Point
	LogLevel slog.Level
}

func Defaults() Config {
	return Config{
		DBPath:          "carburanti.db",
		APIURL:          api.DefaultBaseURL,
		Timeout:         api.DefaultTimeout,
		Results:         api.DefaultResults,
		RadiusKm:        5,
		CacheTTL:        cache.DefaultTTL,
		Port:            8080,
		RefreshSchedule: "@every 1h",
		LogLevel:        slog.LevelInfo,
	}
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, starting from Defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Defaults()
	var err error

	if v := getenv("CARBURANTI_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("CARBURANTI_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := getenv("CARBURANTI_REFRESH_SCHEDULE"); v != "" {
		cfg.RefreshSchedule = v
	}

	if cfg.Timeout, err = durationVar(getenv, "CARBURANTI_TIMEOUT", cfg.Timeout); err != nil {
		return cfg, err
	}
	if cfg.CacheTTL, err = durationVar(getenv, "CARBURANTI_CACHE_TTL", cfg.CacheTTL); err != nil {
		return cfg, err
	}
	if cfg.Results, err = intVar(getenv, "CARBURANTI_RESULTS", cfg.Results); err != nil {
		return cfg, err
	}
	if cfg.Port, err = intVar(getenv, "CARBURANTI_PORT", cfg.Port); err != nil {
		return cfg, err
	}
	if cfg.RadiusKm, err = floatVar(getenv, "CARBURANTI_RADIUS_KM", cfg.RadiusKm); err != nil {
		return cfg, err
	}
	if cfg.RadiusKm <= 0 {
		return cfg, errors.Newf("invalid CARBURANTI_RADIUS_KM: %v", cfg.RadiusKm)
	}

	latStr, lngStr := getenv("CARBURANTI_HOME_LAT"), getenv("CARBURANTI_HOME_LNG")
	if latStr != "" || lngStr != "" {
		lat, err := api.ParseDecimal(latStr)
		if err != nil {
			return cfg, errors.Newf("invalid CARBURANTI_HOME_LAT: %s", latStr)
		}
		lng, err := api.ParseDecimal(lngStr)
		if err != nil {
			return cfg, errors.Newf("invalid CARBURANTI_HOME_LNG: %s", lngStr)
		}
		cfg.Home = &geo.Point{Latitude: lat, Longitude: lng}
	}

	if v := getenv("CARBURANTI_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
			return cfg, errors.Newf("invalid CARBURANTI_LOG_LEVEL: %s", v)
		}
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func intVar(getenv func(string) string, name string, def int) (int, error) {
	s := getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def, errors.Newf("invalid %s: %s", name, s)
	}
	return n, nil
}

func floatVar(getenv func(string) string, name string, def float64) (float64, error) {
	s := getenv(name)
	if s == "" {
		return def, nil
	}
	f, err := api.ParseDecimal(s)
	if err != nil {
		return def, errors.Newf("invalid %s: %s", name, s)
	}
	return f, nil
}

// durationVar accepts Go durations ("90s", "1h") or plain seconds.
func durationVar(getenv func(string) string, name string, def time.Duration) (time.Duration, error) {
	s := getenv(name)
	if s == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def, errors.Newf("invalid %s: %s", name, s)
	}
	return d, nil
}
