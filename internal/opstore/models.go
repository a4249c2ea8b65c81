package opstore

import "time"

// OperationalSample is one periodic roll-up of the running core's
// state, mirroring the fields exposed by metrics.Metrics.GetMetrics.
type OperationalSample struct {
	Timestamp     time.Time `json:"timestamp"`
	FPS           float64   `json:"fps"`
	ArtNetPackets int64     `json:"artnet_packets"`
	ArtNetDropped int64     `json:"artnet_dropped"`
	ArbiterState  int       `json:"arbiter_state"`
	GroupCount    int       `json:"group_count"`
}

// ListOptions filters ListSamples.
type ListOptions struct {
	Since time.Time // zero value means no lower bound
	Limit int       // 0 means no limit
}
