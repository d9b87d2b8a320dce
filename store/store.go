// Package store provides the optional persistent slot for the most recent
// payload of each relayed topic, so a restarted gateway can serve sensor
// state before the first broker push arrives.
package store

import (
	"context"
	"encoding/json"
)

// LastValueStore keeps exactly one payload per topic, overwritten on every
// update. No history is retained.
type LastValueStore interface {
	Put(ctx context.Context, topic string, payload json.RawMessage) error
	Get(ctx context.Context, topic string) (json.RawMessage, error)
	Close() error
}
