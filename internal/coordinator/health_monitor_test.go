package coordinator

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/foodgrid/internal/cluster"
	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/wire"
)

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

func twoWorkers() []cluster.WorkerInfo {
	return []cluster.WorkerInfo{
		{ID: "worker-0", Index: 0, Addr: "127.0.0.1:9001"},
		{ID: "worker-1", Index: 1, Addr: "127.0.0.1:9002"},
	}
}

// TestNewHealthMonitor verifies that NewHealthMonitor creates a properly configured instance.
func TestNewHealthMonitor(t *testing.T) {
	monitor := NewHealthMonitor(5*time.Second, quietLogger())
	defer monitor.Stop()

	assert.Equal(t, 5*time.Second, monitor.interval)
	assert.Equal(t, 2*time.Second, monitor.timeout)
	assert.Equal(t, 3, monitor.maxFailures)
	assert.NotNil(t, monitor.ctx)
	assert.Len(t, monitor.workers, 0)
}

// TestHealthMonitorStart verifies that the monitor checks every worker repeatedly.
func TestHealthMonitorStart(t *testing.T) {
	monitor := NewHealthMonitor(50*time.Millisecond, quietLogger())

	var mu sync.Mutex
	calls := map[string]int{}
	monitor.SetCheckFunction(func(w cluster.WorkerInfo) error {
		mu.Lock()
		calls[w.ID]++
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go monitor.Start(ctx, twoWorkers)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls["worker-0"] >= 3 && calls["worker-1"] >= 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, monitor.IsHealthy("worker-0"))
	assert.True(t, monitor.IsHealthy("worker-1"))
	assert.Len(t, monitor.GetAllWorkerHealth(), 2)
	monitor.Stop()
}

// TestHealthMonitorWorkerFailure verifies the transition to unhealthy after
// maxFailures consecutive failures, the single callback, and recovery.
func TestHealthMonitorWorkerFailure(t *testing.T) {
	monitor := NewHealthMonitor(20*time.Millisecond, quietLogger())

	var mu sync.Mutex
	failing := true
	monitor.SetCheckFunction(func(w cluster.WorkerInfo) error {
		mu.Lock()
		defer mu.Unlock()
		if w.ID == "worker-1" && failing {
			return errors.New("connection refused")
		}
		return nil
	})

	unhealthy := make(chan string, 4)
	monitor.SetOnUnhealthy(func(id string) { unhealthy <- id })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go monitor.Start(ctx, twoWorkers)

	select {
	case id := <-unhealthy:
		assert.Equal(t, "worker-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("worker-1 never reported unhealthy")
	}

	health := monitor.GetWorkerHealth("worker-1")
	require.NotNil(t, health)
	assert.Equal(t, StatusUnhealthy, health.Status)
	assert.GreaterOrEqual(t, health.ConsecutiveFails, 3)
	assert.True(t, monitor.IsHealthy("worker-0"))

	// Further failures must not fire the callback again.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, unhealthy, 0)

	mu.Lock()
	failing = false
	mu.Unlock()

	require.Eventually(t, func() bool { return monitor.IsHealthy("worker-1") }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, monitor.GetWorkerHealth("worker-1").ConsecutiveFails)
	monitor.Stop()
}

// TestHealthMonitorWorkerRemoval verifies that workers missing from the
// provider are forgotten.
func TestHealthMonitorWorkerRemoval(t *testing.T) {
	monitor := NewHealthMonitor(time.Hour, quietLogger())
	monitor.SetCheckFunction(func(cluster.WorkerInfo) error { return nil })

	monitor.checkAllWorkers(twoWorkers())
	assert.Len(t, monitor.GetAllWorkerHealth(), 2)

	monitor.checkAllWorkers(twoWorkers()[:1])
	assert.Len(t, monitor.GetAllWorkerHealth(), 1)
	assert.Nil(t, monitor.GetWorkerHealth("worker-1"))
	assert.False(t, monitor.IsHealthy("worker-1"))
}

// TestHealthMonitorStop verifies that Stop returns once Start has exited.
func TestHealthMonitorStop(t *testing.T) {
	monitor := NewHealthMonitor(10*time.Millisecond, quietLogger())
	monitor.SetCheckFunction(func(cluster.WorkerInfo) error { return nil })

	done := make(chan struct{})
	go func() {
		monitor.Start(context.Background(), twoWorkers)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)

	monitor.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

// TestDefaultHealthCheck pings a real listener over the frame protocol.
func TestDefaultHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{name: "pong", reply: protocol.Pong},
		{name: "wrong reply", reply: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := wire.Listen("127.0.0.1:0", func(conn *wire.Conn) {
				if _, err := conn.Receive(); err != nil {
					return
				}
				_ = conn.Send(wire.Text(tt.reply))
			}, quietLogger())
			require.NoError(t, err)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go l.Serve(ctx)

			monitor := NewHealthMonitor(time.Hour, quietLogger())
			err = monitor.defaultHealthCheck(cluster.WorkerInfo{ID: "worker-0", Addr: l.Addr()})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		monitor := NewHealthMonitor(time.Hour, quietLogger())
		monitor.timeout = 200 * time.Millisecond
		assert.Error(t, monitor.defaultHealthCheck(cluster.WorkerInfo{ID: "worker-0", Addr: "127.0.0.1:1"}))
	})
}
