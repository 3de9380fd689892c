// Package publisher defines the outbound event stream: small notifications
// emitted when ingestion makes progress, so downstream consumers can react
// without polling the database.
package publisher

import "context"

// Event kinds emitted by the ingestion pipeline.
const (
	KindReportAccepted    = "report_accepted"
	KindPlayersDiscovered = "players_discovered"
)

// Event is one published notification.
type Event struct {
	Kind   string `json:"kind"`
	Server string `json:"server,omitempty"`
	Player string `json:"player,omitempty"`
	Count  int64  `json:"count,omitempty"`
	Time   int64  `json:"time"`
}

// Provider publishes events to a backend.
type Provider interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NoOp discards all events.
type NoOp struct{}

// Publish drops the event.
func (NoOp) Publish(context.Context, Event) error { return nil }

// Close is a no-op.
func (NoOp) Close() error { return nil }
