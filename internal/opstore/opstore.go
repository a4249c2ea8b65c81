// Package opstore persists operational samples — periodic snapshots
// of animation FPS, Art-Net packet counts, and arbiter state — so a
// deployment can be graphed or audited after the fact. It never
// persists animation frames or pattern output, only the roll-up
// counters exposed by internal/metrics.
package opstore

import (
	"fmt"
	"time"
)

// Store defines the interface for persisting operational samples.
type Store interface {
	SaveSample(sample *OperationalSample) error
	ListSamples(opts ListOptions) ([]*OperationalSample, error)
	Prune(olderThan time.Time) error
	Close() error
}

// Driver selects the persistence backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverInfluxDB Driver = "influxdb"
)

// Config holds opstore configuration.
type Config struct {
	Driver Driver
	DSN    string

	// InfluxDB-specific fields; ignored by other drivers.
	InfluxOrg    string
	InfluxBucket string
	InfluxToken  string
}

// New constructs a Store for the configured driver.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return NewSQLiteStore(cfg.DSN)
	case DriverPostgres:
		return NewPostgresStore(cfg.DSN)
	case DriverInfluxDB:
		return NewInfluxStore(cfg.DSN, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	default:
		return nil, fmt.Errorf("opstore: unsupported driver: %s", cfg.Driver)
	}
}
