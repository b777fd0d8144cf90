// Package main runs one foodgrid worker: the in-memory owner of every store
// whose name hashes to its position in the master's worker list.
//
// Architecture:
//
//	┌──────────────────────────────────────────┐
//	│                 Worker                    │
//	├──────────────────────────────────────────┤
//	│  Frame protocol (WORKER_LISTEN):          │
//	│    store admin, buy, queries from master  │
//	├──────────────────────────────────────────┤
//	│  StoreCache + SalesLedger   (memory)      │
//	│  SnapshotDir                (DATA_DIR)    │
//	│  TelemetryStream ──► reducer              │
//	├──────────────────────────────────────────┤
//	│  Ops HTTP (WORKER_OPS_ADDR, optional):    │
//	│    /health  /info                         │
//	└──────────────────────────────────────────┘
//
// Configuration (flag, environment):
//   - --listen, WORKER_LISTEN: master-facing address (required)
//   - --id, WORKER_ID: telemetry identity (default Worker-<uuid prefix>)
//   - --reducer, WORKER_REDUCER_ADDR: reducer address (localhost:7003)
//   - --data-dir, WORKER_DATA_DIR: snapshot root (data)
//   - --queue-size, WORKER_QUEUE_SIZE: telemetry buffer (1024)
//   - --ops, WORKER_OPS_ADDR: ops HTTP address
//   - --config: YAML file applied before the environment
//
// Example usage:
//
//	WORKER_LISTEN=:7001 ./worker
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/dreamware/foodgrid/internal/config"
	"github.com/dreamware/foodgrid/internal/ops"
	"github.com/dreamware/foodgrid/internal/storage"
	"github.com/dreamware/foodgrid/internal/worker"
)

// logFatal is a variable to allow mocking log.Fatalf in tests.
var logFatal = log.Fatalf

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logFatal("worker: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "worker",
		Usage: "serve one shard of stores",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML settings file"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded when present"},
			&cli.StringFlag{Name: "listen", Usage: "master-facing listen address"},
			&cli.StringFlag{Name: "id", Usage: "worker identifier"},
			&cli.StringFlag{Name: "reducer", Usage: "reducer address"},
			&cli.StringFlag{Name: "data-dir", Usage: "snapshot directory"},
			&cli.IntFlag{Name: "queue-size", Usage: "telemetry queue capacity"},
			&cli.StringFlag{Name: "ops", Usage: "ops HTTP address"},
		},
		Action: run,
	}
}

// loadConfig layers flags over the file and environment settings.
func loadConfig(c *cli.Context) (config.Worker, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return config.Worker{}, err
	}
	cfg, err := config.LoadWorker(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	if c.IsSet("id") {
		cfg.ID = c.String("id")
	}
	if c.IsSet("reducer") {
		cfg.ReducerAddr = c.String("reducer")
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("queue-size") {
		cfg.QueueSize = c.Int("queue-size")
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
	id := worker.NewID(cfg.ID)
	logger, err := cfg.NewLogger("worker")
	if err != nil {
		return err
	}
	logger = logger.WithField("worker_id", id)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry := worker.NewTelemetryStream(cfg.ReducerAddr, cfg.QueueSize, logger)
	telemetry.Start(ctx)
	defer telemetry.Close()

	svc := worker.NewService(worker.Options{
		ID:        id,
		Catalog:   storage.NewStoreCache(),
		Ledger:    storage.NewSalesLedger(),
		Snapshots: storage.NewSnapshotDir(cfg.DataDir),
		Telemetry: telemetry,
		Logger:    logger,
	})

	srv := worker.NewServer(svc, logger)
	if err := srv.Listen(cfg.Listen); err != nil {
		return errors.Wrap(err, "listen")
	}
	if cfg.OpsAddr != "" {
		opsSrv, err := ops.Start(cfg.OpsAddr, ops.Router(logger, svc.OpsRoutes()...), logger)
		if err != nil {
			return errors.Wrap(err, "ops listen")
		}
		defer opsSrv.Shutdown()
	}

	err = srv.Serve(ctx)
	logger.Info("worker stopped")
	return err
}
