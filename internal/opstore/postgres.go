package opstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore persists operational samples to a Postgres database,
// for fleets that centralize history across many ledctrl instances.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a Postgres-backed Store using dsn, a
// standard libpq connection string.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opstore: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opstore: ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operational_samples (
		timestamp      TIMESTAMPTZ NOT NULL,
		fps            DOUBLE PRECISION NOT NULL,
		artnet_packets BIGINT NOT NULL,
		artnet_dropped BIGINT NOT NULL,
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
func (s *PostgresStore) SaveSample(sample *OperationalSample) error {
	query := `
		INSERT INTO operational_samples
			(timestamp, fps, artnet_packets, artnet_dropped, arbiter_state, group_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.Exec(query, sample.Timestamp, sample.FPS, sample.ArtNetPackets,
		sample.ArtNetDropped, sample.ArbiterState, sample.GroupCount)
	if err != nil {
		return fmt.Errorf("opstore: save sample: %w", err)
	}
	return nil
}

// ListSamples returns samples matching opts, most recent first.
func (s *PostgresStore) ListSamples(opts ListOptions) ([]*OperationalSample, error) {
	query := `
		SELECT timestamp, fps, artnet_packets, artnet_dropped, arbiter_state, group_count
		FROM operational_samples
		WHERE timestamp >= $1
		ORDER BY timestamp DESC
	`
	args := []interface{}{opts.Since}
	if opts.Limit > 0 {
		query += ` LIMIT $2`
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
func (s *PostgresStore) Prune(olderThan time.Time) error {
	_, err := s.db.Exec(`DELETE FROM operational_samples WHERE timestamp < $1`, olderThan)
	if err != nil {
		return fmt.Errorf("opstore: prune: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
