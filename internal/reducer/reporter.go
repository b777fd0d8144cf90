package reducer

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/ops"
	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/wire"
)

// Reporter pushes aggregation snapshots to the master over a dedicated
// stream opened with the reducerResults command. It wakes on every
// aggregator update; several updates between wakes collapse into one push
// of the latest state.
type Reporter struct {
	agg        *Aggregator
	addr       string
	timeout    time.Duration
	maxRetries uint64
	retryDelay time.Duration
	logger     *log.Entry
	newBackOff func() backoff.BackOff

	mu     sync.Mutex
	conn   *wire.Conn
	pushed uint64
}

// NewReporter creates a reporter for the master at masterAddr.
func NewReporter(agg *Aggregator, masterAddr string, logger *log.Entry) *Reporter {
	return &Reporter{
		agg:        agg,
		addr:       masterAddr,
		timeout:    5 * time.Second,
		maxRetries: 5,
		retryDelay: 10 * time.Second,
		logger:     logger.WithField("master", masterAddr),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// Pushed returns how many snapshots the master acknowledged.
func (r *Reporter) Pushed() uint64 {
	return atomic.LoadUint64(&r.pushed)
}

// Run pushes snapshots until ctx is cancelled. When a push exhausts its
// retries the latest snapshot is pushed again after retryDelay, or sooner
// if a new update arrives.
func (r *Reporter) Run(ctx context.Context) {
	defer r.close()

	r.mu.Lock()
	if err := r.connect(); err != nil {
		r.logger.WithError(err).Warn("master not reachable yet, will retry on first update")
	}
	r.mu.Unlock()

	var retry <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.agg.Updates():
		case <-retry:
		}
		retry = nil

		if err := r.Push(ctx, r.agg.Snapshot()); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.WithError(err).Error("snapshot push failed, keeping it for the next attempt")
			retry = time.After(r.retryDelay)
		}
	}
}

// Push sends one report and waits for the master's ack, reconnecting with
// exponential backoff between attempts.
func (r *Reporter) Push(ctx context.Context, report protocol.Report) error {
	frame, err := wire.Map(report)
	if err != nil {
		return err
	}

	op := func() error {
		r.mu.Lock()
		defer r.mu.Unlock()

		if err := r.connect(); err != nil {
			return err
		}
		reply, err := r.conn.Exchange(r.timeout, frame)
		if err != nil {
			r.conn.Close()
			r.conn = nil
			return err
		}
		if reply.Text != protocol.Acknowledged {
			r.logger.WithField("reply", reply.String()).Warn("unexpected master reply")
		}
		atomic.AddUint64(&r.pushed, 1)
		return nil
	}
	notify := func(err error, next time.Duration) {
		r.logger.WithError(err).WithField("retryIn", next).Warn("snapshot push attempt failed")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
	return backoff.RetryNotify(op, b, notify)
}

// connect opens the stream when there is none. Callers hold r.mu.
func (r *Reporter) connect() error {
	if r.conn != nil {
		return nil
	}
	conn, err := wire.Dial(r.addr, r.timeout)
	if err != nil {
		return err
	}
	if err := conn.Send(wire.Text(protocol.CmdReducerResults)); err != nil {
		conn.Close()
		return err
	}
	r.conn = conn
	r.logger.Info("results stream to master opened")
	return nil
}

func (r *Reporter) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

// OpsRoutes exposes the current aggregation map.
func (a *Aggregator) OpsRoutes() []ops.Route {
	return []ops.Route{{
		Path: "/snapshot",
		Handler: func(w http.ResponseWriter, _ *http.Request) {
			ops.WriteJSON(w, http.StatusOK, a.Snapshot())
		},
	}}
}
