package task

import (
	"encoding/json"
	"fmt"
)

// Queues the worker consumes from, in priority order.
const (
	ShellQueue  = "mcp::tasks::shell"
	DockerQueue = "mcp::tasks::docker"

	resultPrefix = "mcp::result::"
)

// Queues returns the queue names in the order they are passed to the broker.
func Queues() []string {
	return []string{ShellQueue, DockerQueue}
}

// QueueFor maps a task type to the queue its tasks are submitted on.
func QueueFor(t Type) string {
	if t == TypeShell {
		return ShellQueue
	}
	return DockerQueue
}

// ResultKey is the broker key the outcome of task id is written under.
func ResultKey(id string) string {
	return resultPrefix + id
}

// Type selects the executor branch for a task.
type Type string

const (
	TypeShell  Type = "SHELL"
	TypeDocker Type = "DOCKER"
)

// UnmarshalText accepts only the exact uppercase names.
func (t *Type) UnmarshalText(b []byte) error {
	switch v := Type(b); v {
	case TypeShell, TypeDocker:
		*t = v
		return nil
	default:
		return fmt.Errorf("unknown task_type %q", string(b))
	}
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// Task is one unit of requested work as delivered on a queue.
type Task struct {
	ID         string  `json:"id"`
	TargetHost string  `json:"target_host"`
	Type       Type    `json:"task_type"`
	Details    Details `json:"-"`
}

// Details is the per-type payload of a task. The concrete value is
// ShellDetails or DockerDetails depending on Task.Type.
type Details interface {
	taskType() Type
}

// ShellDetails is kept verbatim; SHELL tasks do not read it.
type ShellDetails struct {
	Raw json.RawMessage
}

func (ShellDetails) taskType() Type { return TypeShell }

// DockerDetails names the container runtime sub-action.
type DockerDetails struct {
	Command string `json:"command"`
}

func (DockerDetails) taskType() Type { return TypeDocker }

// Docker commands understood by the executor.
const (
	DockerListContainers = "list_containers"
)
