package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/cppig/internal/config"
	"github.com/efebarandurmaz/cppig/internal/observability"
	"github.com/efebarandurmaz/cppig/internal/server"
	temporalmod "github.com/efebarandurmaz/cppig/internal/temporal"
)

var version = "0.1.0"

func main() {
	var configPath string
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if err := run(configPath); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Log.Observability(), os.Stderr)
	if err != nil {
		return err
	}
	temporalmod.SetLogger(logger)
	scanMetrics := observability.NewScanMetrics()
	temporalmod.SetMetrics(scanMetrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown := server.NewShutdown(cfg.Worker.ShutdownTimeout, logger)
	defer shutdown.Run()

	tcfg := observability.DefaultTracingConfig()
	tcfg.ServiceName = "cppig-worker"
	tcfg.ServiceVersion = version
	tcfg.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tcfg.SampleRate = cfg.Tracing.SampleRate
	tcfg.Environment = cfg.Tracing.Environment
	tp, err := observability.InitTracing(ctx, tcfg)
	if err != nil {
		return err
	}
	shutdown.Register("tracing", 80, tp.Shutdown)

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	shutdown.Register("temporal-client", 90, func(context.Context) error {
		c.Close()
		return nil
	})

	health := server.NewHealthServer(version, logger)
	health.RegisterCheck("temporal", func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
		return err
	})
	health.Handle("GET /metrics", scanMetrics.Handler())
	if cfg.Worker.HealthAddr != "" {
		ln, err := net.Listen("tcp", cfg.Worker.HealthAddr)
		if err != nil {
			return err
		}
		go func() {
			if err := health.Serve(ln); err != nil {
				logger.Error("health server", "error", err)
			}
		}()
		logger.Info("health endpoints listening", "addr", ln.Addr().String())
	}
	shutdown.Register("health", 5, health.Shutdown)

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		return err
	}
	shutdown.Register("temporal-worker", 20, func(context.Context) error {
		w.Stop()
		return nil
	})
	health.SetReady(true)
	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue)

	<-ctx.Done()
	logger.Info("worker stopping")
	return shutdown.Run()
}
