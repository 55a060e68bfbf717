package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"mcp-worker/internal/agent"
	"mcp-worker/internal/broker"
	"mcp-worker/internal/config"
	"mcp-worker/internal/logging"
	"mcp-worker/internal/runner"
	"mcp-worker/internal/server"
	"mcp-worker/internal/worker"
)

const startupPingTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "enqueue" {
		os.Exit(runEnqueue(os.Args[2:], os.Stdout, os.Stderr))
	}
	os.Exit(run(os.Stdout))
}

// run starts the worker and blocks until shutdown. Diagnostics go to stdout
// and, once the logger exists, to the log file as well.
func run(stdout io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stdout, "FATAL: %v\n", err)
		return 1
	}

	logger, closeLog, err := logging.New(logging.Options{FilePath: cfg.LogFile, Level: cfg.LogLevel, Stdout: stdout})
	if err != nil {
		fmt.Fprintf(stdout, "FATAL: %v\n", err)
		return 1
	}
	defer closeLog()

	logger.Info("--- MCP-WORKER START ---", "agentID", cfg.AgentID, "redisHost", cfg.RedisHost)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := connect(ctx, cfg.RedisHost, broker.WithPollInterval(cfg.PollInterval))
	if err != nil {
		logger.Error(err, "FATAL: Redis connection failed")
		return 1
	}
	defer rc.Close()
	logger.Info("Connected to Redis", "addr", broker.NormalizeAddr(cfg.RedisHost))

	if err := serve(ctx, cfg, rc, logger); err != nil {
		logger.Error(err, "FATAL: worker stopped")
		return 1
	}
	logger.Info("Shutting down gracefully")
	return 0
}

func connect(ctx context.Context, host string, opts ...broker.Option) (*broker.RedisClient, error) {
	rc, err := broker.NewRedisClient(broker.NormalizeAddr(host), opts...)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}

// serve runs the worker loop and the optional health server and monitor link
// until ctx is cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config, b broker.Broker, logger logr.Logger) error {
	exec := runner.NewExecutor(
		&runner.OSExecutor{Timeout: cfg.ExecTimeout},
		runner.WithDockerBin(cfg.DockerBin),
		runner.WithLogger(logger.WithName("runner")),
	)

	stats := &worker.Stats{}
	sinks := []worker.EventSink{stats}

	var monitor *agent.Monitor
	if cfg.MonitorURL != "" {
		monitor = agent.NewMonitor(cfg.MonitorURL, cfg.AgentID, []byte(cfg.SignatureSecret),
			agent.WithHeartbeatInterval(cfg.HeartbeatInterval),
			agent.WithLogger(logger.WithName("monitor")),
		)
		sinks = append(sinks, monitor)
	}

	w := worker.New(b, exec, logger.WithName("worker"),
		worker.WithRetryDelay(cfg.RetryDelay),
		worker.WithPopTimeout(cfg.PopTimeout),
		worker.WithEventSinks(sinks...),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })

	if cfg.HealthAddr != "" {
		srv := server.NewServer(cfg.HealthAddr, server.Deps{
			Broker:  b,
			Stats:   stats,
			AgentID: cfg.AgentID,
			Logger:  logger.WithName("server"),
		})
		g.Go(func() error { return srv.Start(gctx) })
	}
	if monitor != nil {
		g.Go(func() error { return monitor.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
