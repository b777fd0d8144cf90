package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewLogger builds a logger from l, tagging every entry with component.
func (l Logging) NewLogger(component string) (*log.Entry, error) {
	return l.newLogger(component, os.Stderr)
}

func (l Logging) newLogger(component string, out io.Writer) (*log.Entry, error) {
	logger := log.New()
	logger.SetOutput(out)

	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	logger.SetLevel(level)

	switch l.Format {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, errors.Errorf("unknown log format %q", l.Format)
	}
	return logger.WithField("component", component), nil
}
