package runner

import (
	"context"
	"fmt"
	"strings"

	"mcp-worker/internal/task"
)

// dockerListArgs asks the runtime for every container, one JSON object per
// line.
var dockerListArgs = []string{"ps", "-a", "--format", "{{json .}}"}

func (e *Executor) runDocker(ctx context.Context, t *task.Task) task.Outcome {
	d, _ := t.Details.(task.DockerDetails)

	switch d.Command {
	case task.DockerListContainers:
		e.logger.Info("Executing docker ps -a --format '{{json .}}'", "taskID", t.ID)
		res, err := e.cmd.Run(ctx, e.dockerBin, dockerListArgs)
		if err != nil {
			return task.Failure(fmt.Sprintf("Failed to execute docker command: %v", err))
		}
		if res.ExitCode != 0 {
			return task.Failure("Docker command failed: " + lossy(res.Stderr))
		}
		return task.Success(lossy(res.Stdout))
	default:
		return task.Failure("Unsupported Docker command: " + d.Command)
	}
}

// lossy decodes subprocess output, replacing invalid UTF-8 sequences.
func lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
