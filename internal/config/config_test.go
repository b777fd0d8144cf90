package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMasterDefaults(t *testing.T) {
	cfg, err := LoadMaster("")
	require.NoError(t, err)
	assert.Equal(t, ":5055", cfg.Listen)
	assert.Equal(t, 10*time.Second, cfg.WorkerTimeout)
	assert.Equal(t, 5*time.Second, cfg.HealthInterval)
	assert.Equal(t, "info", cfg.Level)
	assert.Error(t, cfg.Validate(), "no workers configured")
}

func TestLoadMasterLayers(t *testing.T) {
	path := writeFile(t, "master.yaml", `
listen: ":6000"
workers:
  - "w0:7001"
  - "w1:7002"
workerTimeout: 3s
logLevel: debug
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := LoadMaster(path)
		require.NoError(t, err)
		assert.Equal(t, ":6000", cfg.Listen)
		assert.Equal(t, []string{"w0:7001", "w1:7002"}, cfg.Workers)
		assert.Equal(t, 3*time.Second, cfg.WorkerTimeout)
		assert.Equal(t, 5*time.Second, cfg.HealthInterval)
		assert.Equal(t, "debug", cfg.Level)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("environment over file", func(t *testing.T) {
		t.Setenv("MASTER_WORKERS", "a:1,b:2,c:3")
		t.Setenv("MASTER_OPS_ADDR", ":8080")
		t.Setenv("LOG_FORMAT", "json")

		cfg, err := LoadMaster(path)
		require.NoError(t, err)
		assert.Equal(t, ":6000", cfg.Listen)
		assert.Equal(t, []string{"a:1", "b:2", "c:3"}, cfg.Workers)
		assert.Equal(t, ":8080", cfg.OpsAddr)
		assert.Equal(t, "json", cfg.Format)
	})
}

func TestLoadWorkerAndReducer(t *testing.T) {
	t.Setenv("WORKER_LISTEN", ":7101")
	t.Setenv("WORKER_QUEUE_SIZE", "16")
	t.Setenv("REDUCER_MASTER_ADDR", "master:5055")

	w, err := LoadWorker("")
	require.NoError(t, err)
	assert.Equal(t, ":7101", w.Listen)
	assert.Equal(t, 16, w.QueueSize)
	assert.Equal(t, DefaultReducerAddr, w.ReducerAddr)
	assert.Equal(t, "data", w.DataDir)
	assert.NoError(t, w.Validate())

	r, err := LoadReducer("")
	require.NoError(t, err)
	assert.Equal(t, ":7003", r.Listen)
	assert.Equal(t, "master:5055", r.MasterAddr)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name:  "missing file",
			setup: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
		},
		{
			name:  "bad yaml",
			setup: func(t *testing.T) string { return writeFile(t, "bad.yaml", "listen: [") },
		},
		{
			name: "bad duration",
			setup: func(t *testing.T) string {
				t.Setenv("MASTER_WORKER_TIMEOUT", "soon")
				return ""
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMaster(tt.setup(t))
			assert.Error(t, err)
		})
	}
}

func TestWorkerValidate(t *testing.T) {
	w := DefaultWorker()
	assert.Error(t, w.Validate())
	w.Listen = ":7001"
	assert.NoError(t, w.Validate())
	w.QueueSize = 0
	assert.Error(t, w.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "REDUCER_OPS_ADDR=:9100\n")
	t.Setenv("REDUCER_OPS_ADDR", "")
	os.Unsetenv("REDUCER_OPS_ADDR")

	require.NoError(t, LoadDotEnv(path))
	r, err := LoadReducer("")
	require.NoError(t, err)
	assert.Equal(t, ":9100", r.OpsAddr)

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")), "missing file is ignored")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	entry, err := Logging{Level: "warn", Format: "json"}.newLogger("worker", &buf)
	require.NoError(t, err)
	assert.Equal(t, log.WarnLevel, entry.Logger.GetLevel())

	entry.Info("hidden")
	entry.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"component":"worker"`)

	_, err = Logging{Level: "loud"}.NewLogger("x")
	assert.Error(t, err)
	_, err = Logging{Level: "info", Format: "xml"}.NewLogger("x")
	assert.Error(t, err)
}
