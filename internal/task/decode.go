package task

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeError reports a payload that cannot be turned into a Task.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode task: %s: %v", e.Reason, e.Err)
	}
	return "decode task: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses a broker payload. id and task_type are required and field
// names match exactly. DOCKER details yield a command only when they are an
// object with a string "command"; anything else decodes to an empty command.
func Decode(payload []byte) (*Task, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, &DecodeError{Reason: "malformed payload", Err: err}
	}

	rawID, ok := present(fields, "id")
	if !ok {
		return nil, &DecodeError{Reason: "missing field `id`"}
	}
	var id string
	if err := json.Unmarshal(rawID, &id); err != nil {
		return nil, &DecodeError{Reason: "invalid field `id`", Err: err}
	}
	if id == "" {
		return nil, &DecodeError{Reason: "missing field `id`"}
	}

	rawType, ok := present(fields, "task_type")
	if !ok {
		return nil, &DecodeError{Reason: "missing field `task_type`"}
	}
	var typ Type
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return nil, &DecodeError{Reason: "invalid field `task_type`", Err: err}
	}

	t := &Task{ID: id, Type: typ}
	if raw, ok := present(fields, "target_host"); ok {
		if err := json.Unmarshal(raw, &t.TargetHost); err != nil {
			return nil, &DecodeError{Reason: "invalid field `target_host`", Err: err}
		}
	}

	details := fields["details"]
	switch t.Type {
	case TypeShell:
		t.Details = ShellDetails{Raw: details}
	case TypeDocker:
		t.Details = decodeDocker(details)
	}
	return t, nil
}

// present returns the raw value of key unless it is absent or null.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func decodeDocker(raw json.RawMessage) DockerDetails {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return DockerDetails{}
	}
	var command string
	if err := json.Unmarshal(obj["command"], &command); err != nil {
		return DockerDetails{}
	}
	return DockerDetails{Command: command}
}

// Encode produces the wire form of t.
func Encode(t *Task) ([]byte, error) {
	var details any
	switch d := t.Details.(type) {
	case ShellDetails:
		if len(d.Raw) > 0 {
			details = d.Raw
		}
	case DockerDetails:
		details = d
	}
	return json.Marshal(struct {
		ID         string `json:"id"`
		TargetHost string `json:"target_host"`
		Type       Type   `json:"task_type"`
		Details    any    `json:"details"`
	}{t.ID, t.TargetHost, t.Type, details})
}
