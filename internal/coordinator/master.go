package coordinator

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/cluster"
	"github.com/dreamware/foodgrid/internal/ops"
)

// ErrNoWorkerReachable is returned by Start when no worker answers.
var ErrNoWorkerReachable = errors.New("no worker reachable")

// Options configures a Master.
type Options struct {
	Listen         string
	Workers        []string
	WorkerTimeout  time.Duration
	HealthInterval time.Duration
	// OpsAddr enables the ops HTTP endpoints when non-empty.
	OpsAddr string
	Logger  *log.Entry
}

// Master wires the worker registry, dispatcher, health monitor, report
// board and listeners together.
type Master struct {
	opts       Options
	logger     *log.Entry
	registry   *WorkerRegistry
	dispatcher *Dispatcher
	board      *ReportBoard
	monitor    *HealthMonitor
	server     *Server
	ops        *ops.Server
}

// New validates opts and builds an unstarted Master.
func New(opts Options) (*Master, error) {
	if opts.WorkerTimeout <= 0 {
		opts.WorkerTimeout = 10 * time.Second
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "master")
	}

	registry, err := NewWorkerRegistry(opts.Workers, opts.WorkerTimeout, logger)
	if err != nil {
		return nil, err
	}
	m := &Master{
		opts:     opts,
		logger:   logger,
		registry: registry,
		board:    NewReportBoard(),
		monitor:  NewHealthMonitor(opts.HealthInterval, logger),
	}
	m.dispatcher = NewDispatcher(registry, logger)
	m.server = NewServer(m.dispatcher, m.board, logger)

	m.monitor.SetCheckFunction(func(w cluster.WorkerInfo) error {
		return registry.Get(w.Index).Ping()
	})
	m.monitor.SetOnUnhealthy(func(id string) {
		for i := 0; i < registry.Len(); i++ {
			if WorkerID(i) == id {
				registry.Get(i).Reset()
			}
		}
	})
	return m, nil
}

// Start dials every worker and binds the listeners. It fails when no
// worker is reachable.
func (m *Master) Start() error {
	reachable := m.registry.ConnectAll(m.logger)
	if reachable == 0 {
		return ErrNoWorkerReachable
	}
	m.logger.WithFields(log.Fields{
		"workers":   m.registry.Len(),
		"reachable": reachable,
	}).Info("worker links established")

	if err := m.server.Listen(m.opts.Listen); err != nil {
		return errors.Wrap(err, "listen")
	}
	if m.opts.OpsAddr != "" {
		srv, err := ops.Start(m.opts.OpsAddr, ops.Router(m.logger, m.OpsRoutes()...), m.logger)
		if err != nil {
			m.server.ln.Close()
			return errors.Wrap(err, "ops listen")
		}
		m.ops = srv
	}
	return nil
}

// Addr returns the bound client address.
func (m *Master) Addr() string {
	return m.server.Addr()
}

// OpsAddr returns the bound ops address, or "" when ops is disabled.
func (m *Master) OpsAddr() string {
	if m.ops == nil {
		return ""
	}
	return m.ops.Addr()
}

// Board returns the reducer report board.
func (m *Master) Board() *ReportBoard {
	return m.board
}

// Run serves until ctx is cancelled, then releases every resource.
func (m *Master) Run(ctx context.Context) error {
	go m.monitor.Start(ctx, m.registry.Infos)

	err := m.server.Serve(ctx)

	m.monitor.Stop()
	if m.ops != nil {
		if shutdownErr := m.ops.Shutdown(); shutdownErr != nil {
			m.logger.WithError(shutdownErr).Warn("ops shutdown failed")
		}
	}
	m.registry.Close()
	m.logger.Info("master stopped")
	return err
}

// Workers returns the positional worker list with health attached.
func (m *Master) Workers() []cluster.WorkerInfo {
	infos := m.registry.Infos()
	for i := range infos {
		if h := m.monitor.GetWorkerHealth(infos[i].ID); h != nil {
			infos[i].HealthStatus = h.Status
			infos[i].LastHealthCheck = h.LastCheck
			infos[i].ConsecutiveFails = h.ConsecutiveFails
		}
	}
	return infos
}

// OpsRoutes returns the master's ops endpoints.
func (m *Master) OpsRoutes() []ops.Route {
	return []ops.Route{
		{
			Path: "/workers",
			Handler: func(w http.ResponseWriter, _ *http.Request) {
				ops.WriteJSON(w, http.StatusOK, cluster.WorkersResponse{Workers: m.Workers()})
			},
		},
		{
			Path: "/stats",
			Handler: func(w http.ResponseWriter, _ *http.Request) {
				ops.WriteJSON(w, http.StatusOK, m.board.Stats())
			},
		},
	}
}
