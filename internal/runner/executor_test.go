package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-worker/internal/task"
)

// mockCall records a single command invocation.
type mockCall struct {
	Name string
	Args []string
}

// mockExecutor records calls and returns a pre-configured result.
type mockExecutor struct {
	calls  []mockCall
	result *ExecResult
	err    error
	panic  any
}

func (m *mockExecutor) Run(_ context.Context, name string, args []string) (*ExecResult, error) {
	m.calls = append(m.calls, mockCall{Name: name, Args: args})
	if m.panic != nil {
		panic(m.panic)
	}
	return m.result, m.err
}

func dockerTask(command string) *task.Task {
	return &task.Task{ID: "t1", TargetHost: "h1", Type: task.TypeDocker, Details: task.DockerDetails{Command: command}}
}

func TestExecuteShellIsPlaceholder(t *testing.T) {
	mock := &mockExecutor{}
	e := NewExecutor(mock)

	for _, raw := range []string{``, `{}`, `{"command":"rm -rf /"}`, `[1,2]`} {
		out := e.Execute(context.Background(), &task.Task{
			ID:      "s1",
			Type:    task.TypeShell,
			Details: task.ShellDetails{Raw: []byte(raw)},
		})
		assert.Equal(t, "SUCCESS: Shell command executed successfully.", out.String())
	}
	assert.Empty(t, mock.calls, "SHELL must not run anything")
}

func TestExecuteListContainers(t *testing.T) {
	stdout := "{\"Names\":\"c1\"}\n{\"Names\":\"c2\"}\n"
	mock := &mockExecutor{result: &ExecResult{ExitCode: 0, Stdout: []byte(stdout), Stderr: []byte("warning")}}
	e := NewExecutor(mock)

	out := e.Execute(context.Background(), dockerTask("list_containers"))
	assert.False(t, out.Failed)
	assert.Equal(t, stdout, out.Output)
	assert.Equal(t, "SUCCESS: "+stdout, out.String())

	require.Len(t, mock.calls, 1)
	assert.Equal(t, "docker", mock.calls[0].Name)
	assert.Equal(t, []string{"ps", "-a", "--format", "{{json .}}"}, mock.calls[0].Args)
}

func TestExecuteListContainersCustomBinary(t *testing.T) {
	mock := &mockExecutor{result: &ExecResult{}}
	e := NewExecutor(mock, WithDockerBin("/usr/local/bin/podman"))

	e.Execute(context.Background(), dockerTask("list_containers"))
	require.Len(t, mock.calls, 1)
	assert.Equal(t, "/usr/local/bin/podman", mock.calls[0].Name)
}

func TestExecuteListContainersNonZeroExit(t *testing.T) {
	mock := &mockExecutor{result: &ExecResult{
		ExitCode: 1,
		Stdout:   []byte("ignored"),
		Stderr:   []byte("Cannot connect to the Docker daemon"),
	}}
	e := NewExecutor(mock)

	out := e.Execute(context.Background(), dockerTask("list_containers"))
	assert.True(t, out.Failed)
	assert.Equal(t, "ERROR: Docker command failed: Cannot connect to the Docker daemon", out.String())
}

func TestExecuteListContainersLaunchFailure(t *testing.T) {
	mock := &mockExecutor{err: errors.New(`exec: "docker": executable file not found in $PATH`)}
	e := NewExecutor(mock)

	out := e.Execute(context.Background(), dockerTask("list_containers"))
	assert.True(t, out.Failed)
	assert.Equal(t, `Failed to execute docker command: exec: "docker": executable file not found in $PATH`, out.Err)
}

func TestExecuteUnsupportedDockerCommand(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"bogus", "ERROR: Unsupported Docker command: bogus"},
		{"", "ERROR: Unsupported Docker command: "},
		{"LIST_CONTAINERS", "ERROR: Unsupported Docker command: LIST_CONTAINERS"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			mock := &mockExecutor{}
			out := NewExecutor(mock).Execute(context.Background(), dockerTask(tt.command))
			assert.Equal(t, tt.want, out.String())
			assert.Empty(t, mock.calls)
		})
	}
}

func TestExecuteLossyOutput(t *testing.T) {
	mock := &mockExecutor{result: &ExecResult{Stdout: []byte{'o', 'k', 0xff, 0xfe, '!'}}}

	out := NewExecutor(mock).Execute(context.Background(), dockerTask("list_containers"))
	assert.False(t, out.Failed)
	assert.Equal(t, "ok�!", out.Output)
}

func TestExecuteRecoversPanic(t *testing.T) {
	mock := &mockExecutor{panic: "boom"}

	out := NewExecutor(mock).Execute(context.Background(), dockerTask("list_containers"))
	assert.True(t, out.Failed)
	assert.Contains(t, out.Err, "boom")
}
