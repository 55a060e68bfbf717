package runner

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/go-logr/logr"

	"mcp-worker/internal/task"
)

const shellAck = "Shell command executed successfully."

// TaskExecutor turns a decoded task into an outcome. Implementations must not
// panic or return partially; every failure is an error outcome.
type TaskExecutor interface {
	Execute(ctx context.Context, t *task.Task) task.Outcome
}

// Executor dispatches tasks by type.
type Executor struct {
	cmd       CommandExecutor
	dockerBin string
	logger    logr.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithDockerBin overrides the container runtime binary.
func WithDockerBin(path string) Option {
	return func(e *Executor) {
		if path != "" {
			e.dockerBin = path
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an Executor running subprocesses through cmd.
func NewExecutor(cmd CommandExecutor, opts ...Option) *Executor {
	e := &Executor{
		cmd:       cmd,
		dockerBin: "docker",
		logger:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, t *task.Task) (out task.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(fmt.Errorf("%v", r), "executor panic", "taskID", t.ID, "stack", string(debug.Stack()))
			out = task.Failure(fmt.Sprintf("internal executor error: %v", r))
		}
	}()

	e.logger.Info("Executing task type", "taskID", t.ID, "type", t.Type)
	switch t.Type {
	case task.TypeShell:
		e.logger.Info("TaskType was SHELL. (Not implemented, mock success)", "taskID", t.ID)
		return task.Success(shellAck)
	case task.TypeDocker:
		return e.runDocker(ctx, t)
	default:
		return task.Failure(fmt.Sprintf("unsupported task type: %s", t.Type))
	}
}
