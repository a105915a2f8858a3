// Package store persists small JSON documents and search logs in SQLite.
// It is the only state shared between the foreground lookups and the
// background proximity monitor.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultCacheSize = -16 * 1024 // negative value for KiB
	defaultPageSize  = 4096
	busyTimeoutMs    = 10000
)

type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at dbPath.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening database")
	}

	if err := configureSQLitePragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error creating tables")
	}

	logger.Debug("store opened", "path", dbPath)
	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func configureSQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMs),
		"PRAGMA journal_mode = WAL;",
		"PRAGMA auto_vacuum = INCREMENTAL;",
		"PRAGMA temp_store = FILE;",
		"PRAGMA mmap_size = 0;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA cache_size = %d;", defaultCacheSize),
		fmt.Sprintf("PRAGMA page_size = %d;", defaultPageSize),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return errors.Wrapf(err, "error setting %q", p)
		}
	}
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		value BLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS search_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		radius REAL NOT NULL,
		fuel TEXT NOT NULL,
		search_count INTEGER NOT NULL DEFAULT 1,
		last_search TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (latitude, longitude, fuel)
	);
	`

	_, err := db.ExecContext(ctx, createTableSQL)
	return err
}

// GetJSON decodes the value stored under key into dst. It reports false
// when the key is absent, was written with a different version, or holds
// data that no longer decodes. Only query failures are returned as errors.
func (s *Store) GetJSON(ctx context.Context, key string, version int, dst any) (bool, error) {
	var (
		storedVersion int
		value         []byte
	)
	err := s.db.QueryRowContext(ctx, "SELECT version, value FROM kv WHERE key = ?", key).Scan(&storedVersion, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "error reading %q", key)
	}

	if storedVersion != version {
		s.log.Debug("discarding value with unexpected version", "key", key, "version", storedVersion, "want", version)
		return false, nil
	}

	if err := json.Unmarshal(value, dst); err != nil {
		s.log.Warn("discarding corrupt value", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// PutJSON encodes v and stores it under key, replacing any previous value.
func (s *Store) PutJSON(ctx context.Context, key string, version int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "error encoding %q", key)
	}
	return s.putRaw(ctx, key, version, data)
}

func (s *Store) putRaw(ctx context.Context, key string, version int, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, version, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET version = excluded.version, value = excluded.value, updated_at = excluded.updated_at
	`, key, version, data)
	if err != nil {
		return errors.Wrapf(err, "error writing %q", key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return errors.Wrapf(err, "error deleting %q", key)
	}
	return nil
}

// Keys lists the stored keys starting with prefix, sorted.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key", len(prefix), prefix)
	if err != nil {
		return nil, errors.Wrap(err, "error listing keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, "error scanning key")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SearchLog is an aggregated lookup area.
type SearchLog struct {
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Radius      float64   `json:"radius"`
	Fuel        string    `json:"fuel"`
	SearchCount int64     `json:"searchCount"`
	LastSearch  time.Time `json:"lastSearch"`
}

// LogSearch records a lookup. Coordinates are expected already rounded so
// nearby searches aggregate into one row.
func (s *Store) LogSearch(ctx context.Context, lat, lng, radius float64, fuel string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_logs (latitude, longitude, radius, fuel) VALUES (?, ?, ?, ?)
		ON CONFLICT(latitude, longitude, fuel) DO UPDATE SET
			search_count = search_count + 1,
			radius = excluded.radius,
			last_search = CURRENT_TIMESTAMP
	`, lat, lng, radius, fuel)
	if err != nil {
		return errors.Wrap(err, "error logging search")
	}
	return nil
}

// SearchLogs returns the most searched areas first. limit <= 0 returns all.
func (s *Store) SearchLogs(ctx context.Context, limit int) ([]SearchLog, error) {
	query := `SELECT latitude, longitude, radius, fuel, search_count, last_search
			  FROM search_logs
			  ORDER BY search_count DESC, last_search DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "error retrieving search logs")
	}
	defer rows.Close()

	var logs []SearchLog
	for rows.Next() {
		var l SearchLog
		if err := rows.Scan(&l.Latitude, &l.Longitude, &l.Radius, &l.Fuel, &l.SearchCount, &l.LastSearch); err != nil {
			return nil, errors.Wrap(err, "error scanning search log")
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error during rows iteration")
	}
	return logs, nil
}

// Vacuum reclaims free pages left by overwritten values.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA incremental_vacuum(1000)"); err != nil {
		return errors.Wrap(err, "error performing incremental vacuum")
	}
	return nil
}
