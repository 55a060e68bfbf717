// Package worker runs the consume, decode, execute and report loop.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"mcp-worker/internal/broker"
	"mcp-worker/internal/runner"
	"mcp-worker/internal/task"
)

const (
	// ResultTTL is how long a result record stays in the broker.
	ResultTTL = 3600 * time.Second
	// DefaultRetryDelay is the fixed pause after a failed pop.
	DefaultRetryDelay = 5 * time.Second
)

// Worker consumes tasks one at a time until its context is cancelled.
type Worker struct {
	broker     broker.Broker
	exec       runner.TaskExecutor
	logger     logr.Logger
	queues     []string
	retryDelay time.Duration
	popTimeout time.Duration
	sink       multiSink
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration)
}

// Option configures a Worker.
type Option func(*Worker)

// WithRetryDelay sets the pause after a broker error.
func WithRetryDelay(d time.Duration) Option {
	return func(w *Worker) { w.retryDelay = d }
}

// WithPopTimeout bounds each blocking pop. Zero waits until an item arrives.
func WithPopTimeout(d time.Duration) Option {
	return func(w *Worker) { w.popTimeout = d }
}

// WithEventSinks attaches sinks that observe loop events.
func WithEventSinks(sinks ...EventSink) Option {
	return func(w *Worker) { w.sink = append(w.sink, sinks...) }
}

// New creates a Worker reading from b and executing with exec.
func New(b broker.Broker, exec runner.TaskExecutor, logger logr.Logger, opts ...Option) *Worker {
	w := &Worker{
		broker:     b,
		exec:       exec,
		logger:     logger,
		queues:     task.Queues(),
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run loops until ctx is cancelled. Broker errors, bad payloads and failed
// tasks never end the loop. A task that has been popped is always executed
// and its result written, even if ctx is cancelled meanwhile.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Listening for commands on queues", "queues", w.queues)

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopping")
			return nil
		}

		queue, payload, err := w.broker.BlockingPopAny(ctx, w.queues, w.popTimeout)
		switch {
		case err == nil:
			w.handle(context.WithoutCancel(ctx), queue, payload)
		case errors.Is(err, broker.ErrNoItem):
			continue
		case ctx.Err() != nil:
			continue
		default:
			w.logger.Error(err, "[ERROR] Redis Error in Loop", "retryIn", w.retryDelay)
			w.publish(Event{Kind: EventBrokerError, Error: err.Error()})
			w.sleep(ctx, w.retryDelay)
		}
	}
}

func (w *Worker) handle(ctx context.Context, queue, payload string) {
	w.logger.Info(">>> RECEIVED", "queue", queue, "payload", payload)

	t, err := task.Decode([]byte(payload))
	if err != nil {
		w.logger.Error(err, "[ERROR] JSON Parse Error", "queue", queue)
		w.publish(Event{Kind: EventDecodeFailed, Queue: queue, Error: err.Error()})
		return
	}

	log := w.logger.WithValues("taskID", t.ID)
	log.Info("Processing Task ID", "type", t.Type, "targetHost", t.TargetHost)
	w.publish(Event{Kind: EventTaskReceived, Queue: queue, TaskID: t.ID, Type: string(t.Type)})

	outcome := w.exec.Execute(ctx, t)
	if outcome.Failed {
		log.Info("task failed", "error", outcome.Err)
	} else {
		log.Info("task succeeded", "outputBytes", len(outcome.Output))
	}
	w.publish(Event{
		Kind:   EventTaskCompleted,
		Queue:  queue,
		TaskID: t.ID,
		Type:   string(t.Type),
		Failed: outcome.Failed,
		Error:  outcome.Err,
	})

	key := task.ResultKey(t.ID)
	if err := w.broker.SetWithExpiry(ctx, key, outcome.String(), ResultTTL); err != nil {
		log.Error(err, "failed to write result", "key", key)
		w.publish(Event{Kind: EventWriteFailed, TaskID: t.ID, Error: err.Error()})
		return
	}
	log.Info("Result written to Redis", "key", key)
}

func (w *Worker) publish(e Event) {
	e.At = w.now()
	w.sink.Publish(e)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
