package task

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocker(t *testing.T) {
	got, err := Decode([]byte(`{"id":"t1","target_host":"h1","task_type":"DOCKER","details":{"command":"list_containers"}}`))
	require.NoError(t, err)

	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, "h1", got.TargetHost)
	assert.Equal(t, TypeDocker, got.Type)
	assert.Equal(t, DockerDetails{Command: DockerListContainers}, got.Details)
}

func TestDecodeShellKeepsDetailsVerbatim(t *testing.T) {
	got, err := Decode([]byte(`{"id":"s1","target_host":"h1","task_type":"SHELL","details":[1,"two",{"x":3}]}`))
	require.NoError(t, err)

	assert.Equal(t, TypeShell, got.Type)
	d, ok := got.Details.(ShellDetails)
	require.True(t, ok)
	assert.JSONEq(t, `[1,"two",{"x":3}]`, string(d.Raw))
}

func TestDecodeDockerMissingCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"no details", `{"id":"a","task_type":"DOCKER"}`},
		{"null details", `{"id":"a","task_type":"DOCKER","details":null}`},
		{"empty object", `{"id":"a","task_type":"DOCKER","details":{}}`},
		{"other fields only", `{"id":"a","task_type":"DOCKER","details":{"image":"nginx"}}`},
		{"details not an object", `{"id":"a","task_type":"DOCKER","details":"list_containers"}`},
		{"details an array", `{"id":"a","task_type":"DOCKER","details":[1]}`},
		{"command not a string", `{"id":"a","task_type":"DOCKER","details":{"command":42}}`},
		{"command null", `{"id":"a","task_type":"DOCKER","details":{"command":null}}`},
		{"command differs in case", `{"id":"a","task_type":"DOCKER","details":{"Command":"list_containers"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, DockerDetails{}, got.Details)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `hello`},
		{"truncated", `{"id":"t1","task_type":"DOC`},
		{"missing id", `{"task_type":"SHELL","details":{}}`},
		{"empty id", `{"id":"","task_type":"SHELL"}`},
		{"numeric id", `{"id":7,"task_type":"SHELL"}`},
		{"missing task_type", `{"id":"t1","details":{}}`},
		{"lowercase task_type", `{"id":"t1","task_type":"docker"}`},
		{"unknown task_type", `{"id":"t1","task_type":"K8S"}`},
		{"empty task_type", `{"id":"t1","task_type":""}`},
		{"null payload", `null`},
		{"array payload", `[{"id":"t1","task_type":"SHELL"}]`},
		{"null id", `{"id":null,"task_type":"SHELL"}`},
		{"null task_type", `{"id":"t1","task_type":null}`},
		{"numeric task_type", `{"id":"t1","task_type":1}`},
		{"numeric target_host", `{"id":"t1","target_host":5,"task_type":"SHELL"}`},
		{"uppercase field names", `{"ID":"n4","TASK_TYPE":"SHELL"}`},
		{"mixed case id", `{"Id":"n4","task_type":"SHELL"}`},
		{"mixed case task_type", `{"id":"n4","Task_Type":"SHELL"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload))
			require.Error(t, err)
			assert.Nil(t, got)

			var de *DecodeError
			assert.True(t, errors.As(err, &de), "expected *DecodeError, got %T", err)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	in := &Task{ID: "t9", TargetHost: "h", Type: TypeDocker, Details: DockerDetails{Command: "bogus"}}
	b, err := Encode(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t9","target_host":"h","task_type":"DOCKER","details":{"command":"bogus"}}`, string(b))

	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "SUCCESS: done", Success("done").String())
	assert.Equal(t, "SUCCESS: ", Success("").String())
	assert.Equal(t, "ERROR: Unsupported Docker command: bogus", Failure("Unsupported Docker command: bogus").String())
}

func TestKeysAndQueues(t *testing.T) {
	assert.Equal(t, "mcp::result::t1", ResultKey("t1"))
	assert.Equal(t, []string{"mcp::tasks::shell", "mcp::tasks::docker"}, Queues())
	assert.Equal(t, ShellQueue, QueueFor(TypeShell))
	assert.Equal(t, DockerQueue, QueueFor(TypeDocker))
}

func TestDecodeOptionalTargetHost(t *testing.T) {
	got, err := Decode([]byte(`{"id":"t1","task_type":"SHELL","target_host":null}`))
	require.NoError(t, err)
	assert.Empty(t, got.TargetHost)

	got, err = Decode([]byte(`{"id":"t1","task_type":"SHELL","TARGET_HOST":"h9"}`))
	require.NoError(t, err)
	assert.Empty(t, got.TargetHost)
}
