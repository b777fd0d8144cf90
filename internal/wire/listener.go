package wire

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Handler serves one accepted connection. The connection is closed when
// the handler returns.
type Handler func(conn *Conn)

// Listener runs a Handler in its own goroutine for every accepted
// connection and tracks open connections so shutdown can close them.
type Listener struct {
	ln      net.Listener
	handler Handler
	logger  *log.Entry

	mu    sync.Mutex
	conns map[*Conn]struct{}
	wg    sync.WaitGroup
}

// Listen binds addr for handler.
func Listen(addr string, handler Handler, logger *log.Entry) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}
	return &Listener{
		ln:      ln,
		handler: handler,
		logger:  logger,
		conns:   make(map[*Conn]struct{}),
	}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Serve accepts until ctx is cancelled. On cancellation it closes every
// open connection, waits for handlers to return and reports nil.
func (l *Listener) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			l.ln.Close()
		case <-stop:
		}
	}()

	for {
		c, err := l.ln.Accept()
		if err != nil {
			l.closeAll()
			l.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		conn := NewConn(c)
		l.track(conn, true)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.track(conn, false)
			defer conn.Close()
			l.handler(conn)
		}()
	}
}

// Close stops accepting without waiting for open connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

func (l *Listener) track(c *Conn, add bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if add {
		l.conns[c] = struct{}{}
		return
	}
	delete(l.conns, c)
}

func (l *Listener) closeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for c := range l.conns {
		c.Close()
	}
}
