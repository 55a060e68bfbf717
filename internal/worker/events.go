package worker

import (
	"sync/atomic"
	"time"
)

// EventKind identifies a worker lifecycle event.
type EventKind string

const (
	EventTaskReceived  EventKind = "task_received"
	EventTaskCompleted EventKind = "task_completed"
	EventDecodeFailed  EventKind = "decode_failed"
	EventBrokerError   EventKind = "broker_error"
	EventWriteFailed   EventKind = "write_failed"
)

// Event describes something that happened in the loop. Fields that do not
// apply to Kind are empty.
type Event struct {
	Kind   EventKind `json:"kind"`
	Queue  string    `json:"queue,omitempty"`
	TaskID string    `json:"task_id,omitempty"`
	Type   string    `json:"task_type,omitempty"`
	Failed bool      `json:"failed,omitempty"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// EventSink receives loop events. Publish is called on the loop goroutine and
// must not block.
type EventSink interface {
	Publish(Event)
}

type multiSink []EventSink

func (m multiSink) Publish(e Event) {
	for _, s := range m {
		s.Publish(e)
	}
}

// Stats counts loop events. The zero value is ready to use.
type Stats struct {
	received       atomic.Int64
	succeeded      atomic.Int64
	failed         atomic.Int64
	decodeFailures atomic.Int64
	brokerErrors   atomic.Int64
	writeFailures  atomic.Int64
	lastActivity   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Received       int64     `json:"received"`
	Succeeded      int64     `json:"succeeded"`
	Failed         int64     `json:"failed"`
	DecodeFailures int64     `json:"decode_failures"`
	BrokerErrors   int64     `json:"broker_errors"`
	WriteFailures  int64     `json:"write_failures"`
	LastActivity   time.Time `json:"last_activity,omitzero"`
}

func (s *Stats) Publish(e Event) {
	switch e.Kind {
	case EventTaskReceived:
		s.received.Add(1)
	case EventTaskCompleted:
		if e.Failed {
			s.failed.Add(1)
		} else {
			s.succeeded.Add(1)
		}
	case EventDecodeFailed:
		s.decodeFailures.Add(1)
	case EventBrokerError:
		s.brokerErrors.Add(1)
	case EventWriteFailed:
		s.writeFailures.Add(1)
	}
	s.lastActivity.Store(e.At.UnixNano())
}

func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Received:       s.received.Load(),
		Succeeded:      s.succeeded.Load(),
		Failed:         s.failed.Load(),
		DecodeFailures: s.decodeFailures.Load(),
		BrokerErrors:   s.brokerErrors.Load(),
		WriteFailures:  s.writeFailures.Load(),
	}
	if ns := s.lastActivity.Load(); ns != 0 {
		snap.LastActivity = time.Unix(0, ns).UTC()
	}
	return snap
}
