package eventlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes job lifecycle events on
// "bookbinder.exports.<event-type>". This is an internal integration
// channel for downstream services; clients still observe job state by
// polling only.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the given NATS URL.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("NATS publisher connected", "url", url)
	return &NATSPublisher{conn: conn}, nil
}

// Publish implements Publisher. Failures are logged and dropped; job state
// never depends on the event channel.
func (p *NATSPublisher) Publish(jobID, eventType string, fields map[string]any) {
	payload := map[string]any{"job_id": jobID, "type": eventType}
	for k, v := range fields {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("Failed to marshal export event", "job_id", jobID, "type", eventType, "error", err)
		return
	}
	if err := p.conn.Publish("bookbinder.exports."+eventType, data); err != nil {
		slog.Warn("Failed to publish export event", "job_id", jobID, "type", eventType, "error", err)
	}
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
