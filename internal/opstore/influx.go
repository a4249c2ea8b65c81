package opstore

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxStore persists operational samples to InfluxDB, for fleets
// that already run a time-series backend for dashboards.
type InfluxStore struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	org      string
	bucket   string
}

// NewInfluxStore constructs an InfluxDB-backed Store.
func NewInfluxStore(serverURL, token, org, bucket string) (*InfluxStore, error) {
	client := influxdb2.NewClient(serverURL, token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("opstore: ping influxdb: %w", err)
	}

	return &InfluxStore{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		queryAPI: client.QueryAPI(org),
		org:      org,
		bucket:   bucket,
	}, nil
}

// SaveSample writes one sample as an InfluxDB point.
func (s *InfluxStore) SaveSample(sample *OperationalSample) error {
	point := influxdb2.NewPoint(
		"operational_sample",
		map[string]string{}, // no tags; single-instance deployments
		map[string]interface{}{
			"fps":            sample.FPS,
			"artnet_packets": sample.ArtNetPackets,
			"artnet_dropped": sample.ArtNetDropped,
			"arbiter_state":  sample.ArbiterState,
			"group_count":    sample.GroupCount,
		},
		sample.Timestamp,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("opstore: write point: %w", err)
	}
	return nil
}

// ListSamples queries InfluxDB with a Flux range filter.
func (s *InfluxStore) ListSamples(opts ListOptions) ([]*OperationalSample, error) {
	since := opts.Since
	if since.IsZero() {
		since = time.Unix(0, 0)
	}

	flux := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: %s)
			|> filter(fn: (r) => r._measurement == "operational_sample")
			|> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
	`, s.bucket, since.Format(time.RFC3339))
	if opts.Limit > 0 {
		flux += fmt.Sprintf("|> limit(n: %d)\n", opts.Limit)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("opstore: query influxdb: %w", err)
	}
	defer result.Close()

	var samples []*OperationalSample
	for result.Next() {
		rec := result.Record()
		sample := &OperationalSample{Timestamp: rec.Time()}
		if v, ok := rec.ValueByKey("fps").(float64); ok {
			sample.FPS = v
		}
		if v, ok := rec.ValueByKey("artnet_packets").(int64); ok {
			sample.ArtNetPackets = v
		}
		if v, ok := rec.ValueByKey("artnet_dropped").(int64); ok {
			sample.ArtNetDropped = v
		}
		if v, ok := rec.ValueByKey("arbiter_state").(int64); ok {
			sample.ArbiterState = int(v)
		}
		if v, ok := rec.ValueByKey("group_count").(int64); ok {
			sample.GroupCount = int(v)
		}
		samples = append(samples, sample)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("opstore: read influxdb result: %w", result.Err())
	}
	return samples, nil
}

// Prune deletes every sample older than olderThan via InfluxDB's
// predicate-based delete API, scoped to this store's bucket.
func (s *InfluxStore) Prune(olderThan time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Unix(0, 0)
	predicate := `_measurement="operational_sample"`
	if err := s.client.DeleteAPI().DeleteWithName(ctx, s.org, s.bucket, start, olderThan, predicate); err != nil {
		return fmt.Errorf("opstore: prune: %w", err)
	}
	return nil
}

// Close releases the InfluxDB client.
func (s *InfluxStore) Close() error {
	s.client.Close()
	return nil
}
