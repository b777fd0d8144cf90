// Package main runs the foodgrid reducer, which merges worker telemetry
// into one aggregation map and pushes snapshots of it to the master.
//
// Configuration (flag, environment):
//   - --listen, REDUCER_LISTEN: worker-facing address (default ":7003")
//   - --master, REDUCER_MASTER_ADDR: master address (localhost:5055)
//   - --ops, REDUCER_OPS_ADDR: ops HTTP address with /health and /snapshot
//   - --config: YAML file applied before the environment
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
	"github.com/dreamware/foodgrid/internal/reducer"
)

// logFatal is a variable to allow mocking log.Fatalf in tests.
var logFatal = log.Fatalf

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logFatal("reducer: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "reducer",
		Usage: "aggregate worker telemetry for the master",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML settings file"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded when present"},
			&cli.StringFlag{Name: "listen", Usage: "worker-facing listen address"},
			&cli.StringFlag{Name: "master", Usage: "master address"},
			&cli.StringFlag{Name: "ops", Usage: "ops HTTP address"},
		},
		Action: run,
	}
}

func loadConfig(c *cli.Context) (config.Reducer, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return config.Reducer{}, err
	}
	cfg, err := config.LoadReducer(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	if c.IsSet("master") {
		cfg.MasterAddr = c.String("master")
	}
	if c.IsSet("ops") {
		cfg.OpsAddr = c.String("ops")
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger("reducer")
	if err != nil {
		return err
	}

	agg := reducer.NewAggregator()
	srv := reducer.NewServer(agg, logger)
	if err := srv.Listen(cfg.Listen); err != nil {
		return errors.Wrap(err, "listen")
	}
	if cfg.OpsAddr != "" {
		opsSrv, err := ops.Start(cfg.OpsAddr, ops.Router(logger, agg.OpsRoutes()...), logger)
		if err != nil {
			return errors.Wrap(err, "ops listen")
		}
		defer opsSrv.Shutdown()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := reducer.NewReporter(agg, cfg.MasterAddr, logger)
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		reporter.Run(ctx)
	}()

	err = srv.Serve(ctx)
	<-reported
	logger.WithField("pushed", reporter.Pushed()).Info("reducer stopped")
	return err
}
