package runner

import (
	"context"
)

// ExecResult holds the outcome of a command that ran to completion.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandExecutor abstracts os/exec for testing.
type CommandExecutor interface {
	// Run executes a command. A non-zero exit is reported through ExecResult;
	// the error is reserved for failures to launch or wait for the process.
	Run(ctx context.Context, name string, args []string) (*ExecResult, error)
}
