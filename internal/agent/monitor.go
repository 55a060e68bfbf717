// Package agent maintains the optional websocket link to a monitor service.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"mcp-worker/internal/worker"
	"mcp-worker/utils"
)

const (
	// websocket timeouts
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 1024 * 1024

	// reconnect/backoff
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	maxJitter      = 500 * time.Millisecond

	defaultHeartbeat  = 5 * time.Second
	defaultBufferSize = 256
)

// Monitor sends signed heartbeats and worker events to a websocket endpoint.
// It is a worker.EventSink; events that do not fit in the buffer are dropped.
type Monitor struct {
	url       string
	agentID   string
	secret    []byte
	heartbeat time.Duration
	backoff   time.Duration
	maxWait   time.Duration
	logger    logr.Logger
	dialer    *websocket.Dialer

	events  chan worker.Event
	dropped atomic.Int64
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithHeartbeatInterval sets the heartbeat period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.heartbeat = d
		}
	}
}

// WithBackoff sets the initial and maximum reconnect delay.
func WithBackoff(initial, max time.Duration) Option {
	return func(m *Monitor) {
		m.backoff = initial
		m.maxWait = max
	}
}

// WithBufferSize bounds the number of events queued while disconnected.
func WithBufferSize(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.events = make(chan worker.Event, n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

func NewMonitor(url, agentID string, secret []byte, opts ...Option) *Monitor {
	m := &Monitor{
		url:       url,
		agentID:   agentID,
		secret:    secret,
		heartbeat: defaultHeartbeat,
		backoff:   initialBackoff,
		maxWait:   maxBackoff,
		logger:    logr.Discard(),
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		events:    make(chan worker.Event, defaultBufferSize),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Publish queues e for delivery without blocking.
func (m *Monitor) Publish(e worker.Event) {
	select {
	case m.events <- e:
	default:
		m.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (m *Monitor) Dropped() int64 { return m.dropped.Load() }

type taskEventMessage struct {
	Type    string `json:"type"`
	AgentID string `json:"agent_id"`
	worker.Event
}

// Run keeps the link up until ctx is cancelled. It returns nil on
// cancellation; connection failures are retried with backoff and jitter.
func (m *Monitor) Run(ctx context.Context) error {
	if len(m.secret) == 0 {
		return errors.New("monitor: signature secret is empty")
	}

	attempt := 0
	backoff := m.backoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		m.logger.Info("Attempting WebSocket dial", "url", m.url, "attempt", attempt+1)
		conn, err := m.dial(ctx)
		if err != nil {
			m.logger.Error(err, "monitor dial failed")
			attempt++
			sleep := backoff + rand.N(maxJitter)
			if sleep > m.maxWait {
				sleep = m.maxWait
			}
			m.logger.Info("Reconnect sleeping before next attempt", "delay", sleep)
			if !wait(ctx, sleep) {
				return nil
			}
			backoff *= 2
			if backoff > m.maxWait {
				backoff = m.maxWait
			}
			continue
		}

		attempt = 0
		backoff = m.backoff
		m.logger.Info("monitor connection established", "url", m.url)

		if err := m.session(ctx, conn); err != nil {
			m.logger.Error(err, "connection lost; will attempt to reconnect")
		}
		if !wait(ctx, m.backoff/2) {
			return nil
		}
	}
}

func (m *Monitor) dial(ctx context.Context) (*websocket.Conn, error) {
	token, err := utils.GenerateJWTToken(m.agentID, m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := m.dialer.DialContext(ctx, m.url, header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("dial %s (status=%s): %w: %s", m.url, resp.Status, err, body)
		}
		return nil, fmt.Errorf("dial %s: %w", m.url, err)
	}
	return conn, nil
}

// session runs one connection until it fails or ctx is cancelled.
func (m *Monitor) session(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	errCh := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			m.logger.V(1).Info("Received from monitor", "message", string(msg))
		}
	}()

	heartbeat := time.NewTicker(m.heartbeat)
	defer heartbeat.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"),
				time.Now().Add(writeWait))
			return nil
		case err := <-errCh:
			return fmt.Errorf("read: %w", err)
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-heartbeat.C:
			msg := utils.PrepareHeartbeatMessage(m.secret, m.agentID)
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return fmt.Errorf("heartbeat: %w", err)
			}
			m.logger.V(1).Info("Heartbeat sent")
		case e := <-m.events:
			b, err := json.Marshal(taskEventMessage{Type: "task_event", AgentID: m.agentID, Event: e})
			if err != nil {
				m.logger.Error(err, "encode event", "kind", e.Kind)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return fmt.Errorf("event: %w", err)
			}
		}
	}
}

// wait sleeps for d and reports false if ctx was cancelled first.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
