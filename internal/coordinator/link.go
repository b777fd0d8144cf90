package coordinator

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/wire"
)

// WorkerLink is the master's persistent stream to one worker.
//
// Every exchange (request frames out, one response frame in) runs under the
// link mutex, so handlers sharing the link can never interleave frames.
// When an exchange fails the connection is dropped and the next exchange
// dials again, which is how a restarted worker comes back into service.
type WorkerLink struct {
	// Index is the worker's position in the configured worker list.
	Index int
	// Addr is the worker's host:port.
	Addr string

	timeout time.Duration
	logger  *log.Entry

	mu   sync.Mutex
	conn *wire.Conn
}

// NewWorkerLink creates an unconnected link.
func NewWorkerLink(index int, addr string, timeout time.Duration, logger *log.Entry) *WorkerLink {
	return &WorkerLink{
		Index:   index,
		Addr:    addr,
		timeout: timeout,
		logger:  logger.WithFields(log.Fields{"worker": index, "addr": addr}),
	}
}

// Connect dials the worker if the link has no open connection.
func (l *WorkerLink) Connect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connectLocked()
}

func (l *WorkerLink) connectLocked() error {
	if l.conn != nil {
		return nil
	}
	conn, err := wire.Dial(l.Addr, l.timeout)
	if err != nil {
		return err
	}
	l.conn = conn
	l.logger.Info("connected to worker")
	return nil
}

// Exchange sends frames and returns the worker's single response.
func (l *WorkerLink) Exchange(frames ...wire.Frame) (wire.Frame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exchangeLocked(frames...)
}

// Session runs fn with the link held. Every exchange fn makes reaches the
// worker back to back, with no other handler's frames in between.
func (l *WorkerLink) Session(fn func(exchange func(frames ...wire.Frame) (wire.Frame, error)) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.exchangeLocked)
}

func (l *WorkerLink) exchangeLocked(frames ...wire.Frame) (wire.Frame, error) {
	if err := l.connectLocked(); err != nil {
		return wire.Frame{}, errors.Wrapf(err, "worker %d", l.Index)
	}
	resp, err := l.conn.Exchange(l.timeout, frames...)
	if err != nil {
		l.logger.WithError(err).Warn("worker exchange failed, dropping connection")
		l.conn.Close()
		l.conn = nil
		return wire.Frame{}, errors.Wrapf(err, "worker %d", l.Index)
	}
	return resp, nil
}

// Ping checks the worker over the shared stream.
func (l *WorkerLink) Ping() error {
	resp, err := l.Exchange(wire.Text(protocol.CmdPing))
	if err != nil {
		return err
	}
	if resp.Text != protocol.Pong {
		return errors.Errorf("worker %d answered ping with %q", l.Index, resp.String())
	}
	return nil
}

// Connected reports whether the link currently holds an open connection.
func (l *WorkerLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Reset drops the current connection, if any.
func (l *WorkerLink) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
		l.logger.Info("worker link reset")
	}
}

// Close is Reset under the name io.Closer callers expect.
func (l *WorkerLink) Close() error {
	l.Reset()
	return nil
}
