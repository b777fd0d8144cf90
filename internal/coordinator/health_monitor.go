package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/cluster"
	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/wire"
)

// Health states reported by the monitor.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusUnknown   = "unknown"
)

// WorkerHealth tracks the health status of a single worker.
// It maintains the current status, last successful check time, and failure count.
// Thread-safe: Protected by HealthMonitor's mutex when accessed.
type WorkerHealth struct {
	LastCheck        time.Time // Timestamp of the last health check attempt
	LastHealthy      time.Time // Timestamp of the last successful health check
	WorkerID         string    // Positional identifier, e.g. "worker-0"
	Status           string    // Current status: "healthy", "unhealthy", "unknown"
	ConsecutiveFails int       // Number of consecutive failed health checks
}

// HealthMonitor periodically pings every worker and tracks the result.
// Health is observational: routing is positional and never changes, but
// operators see failing workers and the master resets their links.
// Thread-safe: All methods are safe for concurrent access.
type HealthMonitor struct {
	workers     map[string]*WorkerHealth         // Current health status per worker
	checkFunc   func(w cluster.WorkerInfo) error // Function to perform health check
	onUnhealthy func(workerID string)            // Callback when worker becomes unhealthy
	logger      *log.Entry
	ctx         context.Context    // Context for cancellation
	cancel      context.CancelFunc // Cancel function for shutdown
	interval    time.Duration      // How often to check worker health
	timeout     time.Duration      // Dial/ping timeout for the default check
	mu          sync.RWMutex       // Protects workers map
	wg          sync.WaitGroup     // Wait group for graceful shutdown
	maxFailures int                // Failures before marking unhealthy
}

// NewHealthMonitor creates a new health monitor with the specified check interval.
// Workers are marked unhealthy after 3 consecutive failures.
//
// Parameters:
//   - interval: How often to perform health checks (recommended: 5s)
//   - logger: Entry used for all monitor logging
//
// Example:
//
//	monitor := NewHealthMonitor(5*time.Second, logger)
//	go monitor.Start(ctx, registry.Infos)
func NewHealthMonitor(interval time.Duration, logger *log.Entry) *HealthMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &HealthMonitor{
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		workers:     make(map[string]*WorkerHealth),
		logger:      logger.WithField("component", "health"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetOnUnhealthy sets the callback invoked when a worker becomes unhealthy.
// The master uses it to drop the worker's link so the next request redials.
func (h *HealthMonitor) SetOnUnhealthy(callback func(workerID string)) {
	h.onUnhealthy = callback
}

// SetCheckFunction overrides the default check, which dials the worker on a
// fresh connection and sends ping.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(w cluster.WorkerInfo) error) {
	h.checkFunc = checkFunc
}

// Start begins the health monitoring process in the current goroutine.
// It checks every worker returned by workerProvider once immediately and
// then every interval, until ctx or Stop cancels it.
//
// Parameters:
//   - ctx: Context for cancellation
//   - workerProvider: Function that returns the current worker list
func (h *HealthMonitor) Start(ctx context.Context, workerProvider func() []cluster.WorkerInfo) {
	h.wg.Add(1)
	defer h.wg.Done()

	if ctx == nil {
		ctx = h.ctx
	}
	if h.checkFunc == nil {
		h.checkFunc = h.defaultHealthCheck
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.WithField("interval", h.interval).Info("health monitor started")

	h.checkAllWorkers(workerProvider())

	for {
		select {
		case <-ticker.C:
			h.checkAllWorkers(workerProvider())
		case <-ctx.Done():
			h.logger.Debug("health monitor stopping due to context cancellation")
			return
		case <-h.ctx.Done():
			h.logger.Debug("health monitor stopping due to internal cancellation")
			return
		}
	}
}

// Stop cancels the monitoring goroutine and waits for it to complete.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
	h.logger.Info("health monitor stopped")
}

// checkAllWorkers checks each worker and forgets workers no longer listed.
func (h *HealthMonitor) checkAllWorkers(workers []cluster.WorkerInfo) {
	current := make(map[string]bool)

	for _, w := range workers {
		current[w.ID] = true
		h.checkWorker(w)
	}

	h.mu.Lock()
	for id := range h.workers {
		if !current[id] {
			delete(h.workers, id)
			h.logger.WithField("worker", id).Info("removed worker from health monitoring")
		}
	}
	h.mu.Unlock()
}

// checkWorker performs a health check on a single worker.
//
// Implementation:
//  1. Get or create health record for the worker
//  2. Run the check without holding the lock
//  3. Update status and consecutive failures
//  4. Trigger unhealthy callback on the transition to unhealthy
func (h *HealthMonitor) checkWorker(w cluster.WorkerInfo) {
	h.mu.Lock()
	health, exists := h.workers[w.ID]
	if !exists {
		health = &WorkerHealth{
			WorkerID:    w.ID,
			Status:      StatusUnknown,
			LastCheck:   time.Now(),
			LastHealthy: time.Now(),
		}
		h.workers[w.ID] = health
	}
	h.mu.Unlock()

	err := h.checkFunc(w)

	h.mu.Lock()
	defer h.mu.Unlock()

	health.LastCheck = time.Now()
	logger := h.logger.WithField("worker", w.ID)

	if err != nil {
		health.ConsecutiveFails++
		logger.WithError(err).WithField("attempt", health.ConsecutiveFails).Warn("health check failed")

		if health.ConsecutiveFails >= h.maxFailures {
			previousStatus := health.Status
			health.Status = StatusUnhealthy

			if previousStatus != StatusUnhealthy && h.onUnhealthy != nil {
				logger.WithField("failures", health.ConsecutiveFails).Error("worker marked unhealthy")
				// Call callback without holding the lock
				go h.onUnhealthy(w.ID)
			}
		}
		return
	}

	if health.Status == StatusUnhealthy {
		logger.Info("worker recovered and is now healthy")
	}
	health.Status = StatusHealthy
	health.ConsecutiveFails = 0
	health.LastHealthy = time.Now()
}

// defaultHealthCheck opens a short-lived connection to the worker and
// expects pong in reply to ping.
func (h *HealthMonitor) defaultHealthCheck(w cluster.WorkerInfo) error {
	conn, err := wire.Dial(w.Addr, h.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := conn.Exchange(h.timeout, wire.Text(protocol.CmdPing))
	if err != nil {
		return errors.Wrap(err, "ping")
	}
	if resp.Text != protocol.Pong {
		return errors.Errorf("unexpected ping reply %q", resp.String())
	}
	return nil
}

// GetWorkerHealth returns a copy of one worker's health record, or nil if
// the worker is not being monitored.
func (h *HealthMonitor) GetWorkerHealth(workerID string) *WorkerHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.workers[workerID]
	if !exists {
		return nil
	}
	copied := *health
	return &copied
}

// GetAllWorkerHealth returns copies of every health record keyed by worker id.
func (h *HealthMonitor) GetAllWorkerHealth() map[string]*WorkerHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]*WorkerHealth, len(h.workers))
	for id, health := range h.workers {
		copied := *health
		result[id] = &copied
	}
	return result
}

// IsHealthy reports whether a worker is currently healthy.
// Returns false if the worker is not being monitored.
func (h *HealthMonitor) IsHealthy(workerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.workers[workerID]
	return exists && health.Status == StatusHealthy
}
