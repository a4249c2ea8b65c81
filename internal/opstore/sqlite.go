package opstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists operational samples to a local SQLite file.
// This is the default backend for single-board deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed Store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opstore: open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operational_samples (
		timestamp      DATETIME NOT NULL,
		fps            REAL NOT NULL,
		artnet_packets INTEGER NOT NULL,
		artnet_dropped INTEGER NOT NULL,
		arbiter_state  INTEGER NOT NULL,
		group_count    INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_operational_samples_timestamp
		ON operational_samples(timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("opstore: create schema: %w", err)
	}
	return nil
}

// SaveSample inserts one sample.
func (s *SQLiteStore) SaveSample(sample *OperationalSample) error {
	query := `
		INSERT INTO operational_samples
			(timestamp, fps, artnet_packets, artnet_dropped, arbiter_state, group_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, sample.Timestamp, sample.FPS, sample.ArtNetPackets,
		sample.ArtNetDropped, sample.ArbiterState, sample.GroupCount)
	if err != nil {
		return fmt.Errorf("opstore: save sample: %w", err)
	}
	return nil
}

// ListSamples returns samples matching opts, most recent first.
func (s *SQLiteStore) ListSamples(opts ListOptions) ([]*OperationalSample, error) {
	query := `
		SELECT timestamp, fps, artnet_packets, artnet_dropped, arbiter_state, group_count
		FROM operational_samples
		WHERE timestamp >= ?
		ORDER BY timestamp DESC
	`
	args := []interface{}{opts.Since}
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("opstore: list samples: %w", err)
	}
	defer rows.Close()

	var samples []*OperationalSample
	for rows.Next() {
		var sample OperationalSample
		var ts time.Time
		if err := rows.Scan(&ts, &sample.FPS, &sample.ArtNetPackets,
			&sample.ArtNetDropped, &sample.ArbiterState, &sample.GroupCount); err != nil {
			continue
		}
		sample.Timestamp = ts
		samples = append(samples, &sample)
	}
	return samples, nil
}

// Prune deletes every sample older than olderThan.
func (s *SQLiteStore) Prune(olderThan time.Time) error {
	_, err := s.db.Exec(`DELETE FROM operational_samples WHERE timestamp < ?`, olderThan)
	if err != nil {
		return fmt.Errorf("opstore: prune: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
