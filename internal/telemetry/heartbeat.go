package telemetry

import "time"

// Heartbeat is the periodic liveness message published over NATS. It
// carries the service lifecycle state so operators can correlate what the
// SCM believes with what the agent reports.
type Heartbeat struct {
	Service       string         `json:"service"`
	State         string         `json:"state"`
	Version       string         `json:"version"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Timestamp     string         `json:"timestamp"`
	Metrics       *SystemMetrics `json:"metrics,omitempty"`
}

// NewHeartbeat builds a heartbeat snapshot for the given lifecycle state
func NewHeartbeat(service, state, version string, startedAt time.Time, metrics *SystemMetrics) Heartbeat {
	return Heartbeat{
		Service:       service,
		State:         state,
		Version:       version,
		UptimeSeconds: round(time.Since(startedAt).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Metrics:       metrics,
	}
}
