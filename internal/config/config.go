// Package config loads process settings for the master, workers and the
// reducer.
//
// Settings are layered, later layers winning:
//
//  1. defaults in code
//  2. an optional YAML file (--config)
//  3. environment variables, prefixed MASTER_, WORKER_ or REDUCER_
//  4. command-line flags, applied by the binaries
//
// A .env file in the working directory is loaded into the environment
// before step 3 when present. Every variable is also read without its
// prefix when the prefixed name is unset, so one .env can set LOG_LEVEL for
// all processes.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment prefixes per process.
const (
	PrefixMaster  = "MASTER"
	PrefixWorker  = "WORKER"
	PrefixReducer = "REDUCER"
)

// Default addresses.
const (
	DefaultMasterAddr  = "localhost:5055"
	DefaultReducerAddr = "localhost:7003"
)

// Logging is shared by every process.
type Logging struct {
	Level  string `yaml:"logLevel" envconfig:"LOG_LEVEL"`
	Format string `yaml:"logFormat" envconfig:"LOG_FORMAT"`
}

// Master configures the dispatcher process.
type Master struct {
	Logging        `yaml:",inline"`
	Listen         string        `yaml:"listen" envconfig:"LISTEN"`
	Workers        []string      `yaml:"workers" envconfig:"WORKERS"`
	WorkerTimeout  time.Duration `yaml:"workerTimeout" envconfig:"WORKER_TIMEOUT"`
	HealthInterval time.Duration `yaml:"healthInterval" envconfig:"HEALTH_INTERVAL"`
	OpsAddr        string        `yaml:"opsAddr" envconfig:"OPS_ADDR"`
}

// Worker configures one shard process.
type Worker struct {
	Logging     `yaml:",inline"`
	Listen      string `yaml:"listen" envconfig:"LISTEN"`
	ID          string `yaml:"id" envconfig:"ID"`
	ReducerAddr string `yaml:"reducerAddr" envconfig:"REDUCER_ADDR"`
	DataDir     string `yaml:"dataDir" envconfig:"DATA_DIR"`
	QueueSize   int    `yaml:"queueSize" envconfig:"QUEUE_SIZE"`
	OpsAddr     string `yaml:"opsAddr" envconfig:"OPS_ADDR"`
}

// Reducer configures the aggregation process.
type Reducer struct {
	Logging    `yaml:",inline"`
	Listen     string `yaml:"listen" envconfig:"LISTEN"`
	MasterAddr string `yaml:"masterAddr" envconfig:"MASTER_ADDR"`
	OpsAddr    string `yaml:"opsAddr" envconfig:"OPS_ADDR"`
}

func defaultLogging() Logging {
	return Logging{Level: "info", Format: "text"}
}

// DefaultMaster returns the master defaults.
func DefaultMaster() Master {
	return Master{
		Logging:        defaultLogging(),
		Listen:         ":5055",
		WorkerTimeout:  10 * time.Second,
		HealthInterval: 5 * time.Second,
	}
}

// DefaultWorker returns the worker defaults.
func DefaultWorker() Worker {
	return Worker{
		Logging:     defaultLogging(),
		ReducerAddr: DefaultReducerAddr,
		DataDir:     "data",
		QueueSize:   1024,
	}
}

// DefaultReducer returns the reducer defaults.
func DefaultReducer() Reducer {
	return Reducer{
		Logging:    defaultLogging(),
		Listen:     ":7003",
		MasterAddr: DefaultMasterAddr,
	}
}

// LoadDotEnv loads path (".env" when empty) into the environment.
// A missing file is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

// Load applies the YAML file at path (skipped when empty) and then the
// environment under prefix to cfg, which must be a pointer to a struct
// already holding the defaults.
func Load(prefix, path string, cfg any) error {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errors.Wrapf(err, "parse %s", path)
		}
	}
	return errors.Wrapf(envconfig.Process(prefix, cfg), "%s environment", prefix)
}

// LoadMaster returns the master settings from defaults, path and the
// environment.
func LoadMaster(path string) (Master, error) {
	cfg := DefaultMaster()
	if err := Load(PrefixMaster, path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWorker returns the worker settings from defaults, path and the
// environment.
func LoadWorker(path string) (Worker, error) {
	cfg := DefaultWorker()
	if err := Load(PrefixWorker, path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadReducer returns the reducer settings from defaults, path and the
// environment.
func LoadReducer(path string) (Reducer, error) {
	cfg := DefaultReducer()
	if err := Load(PrefixReducer, path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings the master cannot start without.
func (m Master) Validate() error {
	if len(m.Workers) == 0 {
		return errors.New("at least one worker address is required")
	}
	for i, addr := range m.Workers {
		if addr == "" {
			return errors.Errorf("worker %d has an empty address", i)
		}
	}
	return nil
}

// Validate checks the settings a worker cannot start without.
func (w Worker) Validate() error {
	if w.Listen == "" {
		return errors.New("worker listen address is required")
	}
	if w.QueueSize <= 0 {
		return errors.Errorf("queue size must be positive, got %d", w.QueueSize)
	}
	return nil
}
