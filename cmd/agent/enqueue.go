package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"mcp-worker/internal/broker"
	"mcp-worker/internal/config"
	"mcp-worker/internal/task"
)

const enqueueTimeout = 10 * time.Second

// runEnqueue pushes one task onto its queue and prints the task id.
func runEnqueue(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	fs.SetOutput(stderr)
	typ := fs.String("type", string(task.TypeDocker), "task type: SHELL or DOCKER")
	command := fs.String("command", task.DockerListContainers, "docker command (DOCKER tasks)")
	id := fs.String("id", "", "task id (random when empty)")
	target := fs.String("target", "", "target host")
	redisHost := fs.String("redis", "", "broker host, defaults to REDIS_HOST")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	t, err := buildTask(*typ, *command, *id, *target)
	if err != nil {
		fmt.Fprintf(stderr, "enqueue: %v\n", err)
		return 2
	}

	host := *redisHost
	if host == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(stderr, "enqueue: %v\n", err)
			return 1
		}
		host = cfg.RedisHost
	}

	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()
	if err := enqueue(ctx, broker.NormalizeAddr(host), t); err != nil {
		fmt.Fprintf(stderr, "enqueue: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, t.ID)
	return 0
}

func buildTask(typ, command, id, target string) (*task.Task, error) {
	var tt task.Type
	if err := tt.UnmarshalText([]byte(typ)); err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	if target == "" {
		target, _ = os.Hostname()
	}

	t := &task.Task{ID: id, TargetHost: target, Type: tt}
	switch tt {
	case task.TypeShell:
		t.Details = task.ShellDetails{}
	case task.TypeDocker:
		t.Details = task.DockerDetails{Command: command}
	}
	return t, nil
}

func enqueue(ctx context.Context, addr string, t *task.Task) error {
	payload, err := task.Encode(t)
	if err != nil {
		return err
	}
	rc, err := broker.NewRedisClient(addr)
	if err != nil {
		return err
	}
	defer rc.Close()
	return rc.Push(ctx, task.QueueFor(t.Type), string(payload))
}
