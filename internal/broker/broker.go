// Package broker wraps the Redis queue/key-value service used to receive
// tasks and publish their results.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoItem is returned by BlockingPopAny when a positive timeout elapsed
// before any queue produced an item.
var ErrNoItem = errors.New("broker: no item before timeout")

// Error is a failed broker operation (connection loss, protocol error,
// server-side error).
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("broker %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Broker is the capability the worker needs from the queue service.
type Broker interface {
	// BlockingPopAny waits until one of queues yields an item. Queues are
	// checked in order. A zero timeout waits until an item arrives or ctx is
	// done.
	BlockingPopAny(ctx context.Context, queues []string, timeout time.Duration) (queue, payload string, err error)
	// SetWithExpiry writes key, replacing any previous value.
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}
