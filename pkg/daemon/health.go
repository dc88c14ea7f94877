package daemon

import (
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/collectors"
)

// HealthStatus is the HEALTH response.
type HealthStatus struct {
	PID       int                         `json:"pid"`
	StartedAt time.Time                   `json:"started_at"`
	Uptime    string                      `json:"uptime"`
	Healthy   bool                        `json:"healthy"`
	Producers []collectors.ProducerStatus `json:"producers"`
}

// newHealthStatus summarises the registry. The process is healthy when
// every producer is.
func newHealthStatus(pid int, started, now time.Time, producers []collectors.ProducerStatus) *HealthStatus {
	healthy := true
	for _, p := range producers {
		if !p.Healthy {
			healthy = false
			break
		}
	}
	if producers == nil {
		producers = []collectors.ProducerStatus{}
	}
	return &HealthStatus{
		PID:       pid,
		StartedAt: started,
		Uptime:    now.Sub(started).Truncate(time.Second).String(),
		Healthy:   healthy,
		Producers: producers,
	}
}

// healthStatusToJSON serializes a HealthStatus to indented JSON string.
func healthStatusToJSON(status *HealthStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal health status: %w", err)
	}
	return string(data), nil
}
