// Package main runs the foodgrid master, which accepts client connections,
// routes store commands to the worker that owns each store and merges the
// replies of scatter queries.
//
// Architecture:
//
//	┌──────────────────────────────────────────┐
//	│                 Master                    │
//	├──────────────────────────────────────────┤
//	│  Frame protocol (MASTER_LISTEN):          │
//	│    client commands  - routed or scattered │
//	│    reducerResults   - report stream       │
//	├──────────────────────────────────────────┤
//	│  Ops HTTP (MASTER_OPS_ADDR, optional):    │
//	│    /health  /workers  /stats              │
//	└──────────────────────────────────────────┘
//
// Configuration (flag, environment, YAML key):
//   - --listen, MASTER_LISTEN, listen: client address (default ":5055")
//   - --workers, MASTER_WORKERS, workers: ordered worker list (required)
//   - --worker-timeout, MASTER_WORKER_TIMEOUT: per-exchange deadline (10s)
//   - --health-interval, MASTER_HEALTH_INTERVAL: worker ping period (5s)
//   - --ops, MASTER_OPS_ADDR: ops HTTP address (disabled when empty)
//   - --config: YAML file applied before the environment
//
// Example usage:
//
//	MASTER_WORKERS=localhost:7001,localhost:7002 ./master
//
// The order of the worker list decides which worker owns which store; it
// must not change while stores are loaded.
package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/dreamware/foodgrid/internal/config"
	"github.com/dreamware/foodgrid/internal/coordinator"
)

// logFatal is a variable to allow mocking log.Fatalf in tests.
var logFatal = log.Fatalf

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logFatal("master: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "master",
		Usage: "route food-ordering commands to worker shards",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML settings file"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded when present"},
			&cli.StringFlag{Name: "listen", Usage: "client listen address"},
			&cli.StringSliceFlag{Name: "workers", Usage: "worker addresses in shard order"},
			&cli.DurationFlag{Name: "worker-timeout", Usage: "deadline for one worker exchange"},
			&cli.DurationFlag{Name: "health-interval", Usage: "worker ping period"},
			&cli.StringFlag{Name: "ops", Usage: "ops HTTP address"},
		},
		Action: run,
	}
}

// loadConfig layers flags over the file and environment settings.
func loadConfig(c *cli.Context) (config.Master, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return config.Master{}, err
	}
	cfg, err := config.LoadMaster(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.StringSlice("workers")
	}
	if c.IsSet("worker-timeout") {
		cfg.WorkerTimeout = c.Duration("worker-timeout")
	}
	if c.IsSet("health-interval") {
		cfg.HealthInterval = c.Duration("health-interval")
	}
	if c.IsSet("ops") {
		cfg.OpsAddr = c.String("ops")
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger("master")
	if err != nil {
		return err
	}

	m, err := coordinator.New(coordinator.Options{
		Listen:         cfg.Listen,
		Workers:        cfg.Workers,
		WorkerTimeout:  cfg.WorkerTimeout,
		HealthInterval: cfg.HealthInterval,
		OpsAddr:        cfg.OpsAddr,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	if err := m.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return m.Run(ctx)
}
