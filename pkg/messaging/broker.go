package messaging

import (
	"context"
)

// Broker is the push channel behind live agenda views: every committed
// mutation is published and open panels converge by replaying events.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels
const (
	ChannelAgenda = "agenda.events"
)

// Event types
const (
	EventCellSaved   = "cell_saved"
	EventCellDeleted = "cell_deleted"
	EventRegistry    = "registry_changed"
)

// Event is the payload pushed on every committed mutation.
type Event struct {
	Type       string      `json:"type"`
	Resource   string      `json:"resource"`
	ResourceID string      `json:"resourceId"`
	Data       interface{} `json:"data,omitempty"`
}
