package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/wire"
)

var errReducerBackoff = errors.New("reducer unreachable, waiting to redial")

// TelemetryStats counts what happened to emitted records.
type TelemetryStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// TelemetryStream forwards telemetry records to the reducer over one
// long-lived connection. Records are queued by Emit and sent FIFO by a
// single goroutine, each exchange waiting for the reducer's ack.
//
// The stream never blocks command handling: a full queue, an unreachable
// reducer or a failed exchange drops the record. After a failure the
// connection is redialed no earlier than the next exponential backoff
// interval.
type TelemetryStream struct {
	addr    string
	timeout time.Duration
	queue   chan protocol.Telemetry
	logger  *log.Entry

	mu        sync.Mutex
	conn      *wire.Conn
	retry     *backoff.ExponentialBackOff
	nextDial  time.Time
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup

	sent    uint64
	dropped uint64
}

// NewTelemetryStream creates a stream to the reducer at addr buffering up to
// size records.
func NewTelemetryStream(addr string, size int, logger *log.Entry) *TelemetryStream {
	if size <= 0 {
		size = 1
	}
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 250 * time.Millisecond
	retry.MaxInterval = 10 * time.Second
	retry.MaxElapsedTime = 0

	return &TelemetryStream{
		addr:    addr,
		timeout: 5 * time.Second,
		queue:   make(chan protocol.Telemetry, size),
		logger:  logger.WithField("reducer", addr),
		retry:   retry,
		done:    make(chan struct{}),
	}
}

// Start launches the sender goroutine. It returns immediately.
func (t *TelemetryStream) Start(ctx context.Context) {
	t.wg.Add(1)
	go t.run(ctx)
}

// Emit queues rec without blocking.
func (t *TelemetryStream) Emit(rec protocol.Telemetry) {
	select {
	case t.queue <- rec:
	default:
		atomic.AddUint64(&t.dropped, 1)
		t.logger.WithField("requestType", rec.RequestType).Debug("telemetry queue full, record dropped")
	}
}

// Stats returns the sent and dropped counters.
func (t *TelemetryStream) Stats() TelemetryStats {
	return TelemetryStats{
		Sent:    atomic.LoadUint64(&t.sent),
		Dropped: atomic.LoadUint64(&t.dropped),
	}
}

// Close stops the sender and closes the reducer connection. Records still
// queued are discarded.
func (t *TelemetryStream) Close() {
	t.closeOnce.Do(func() { close(t.done) })
	t.wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

func (t *TelemetryStream) run(ctx context.Context) {
	defer t.wg.Done()
	for {
		select {
		case rec := <-t.queue:
			if err := t.send(rec); err != nil {
				atomic.AddUint64(&t.dropped, 1)
				t.logger.WithError(err).Debug("telemetry dropped")
				continue
			}
			atomic.AddUint64(&t.sent, 1)
		case <-ctx.Done():
			return
		case <-t.done:
			return
		}
	}
}

// send performs one mapResult exchange under the stream mutex.
func (t *TelemetryStream) send(rec protocol.Telemetry) error {
	frame, err := wire.Map(rec)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureConn(); err != nil {
		return err
	}
	reply, err := t.conn.Exchange(t.timeout, wire.Text(protocol.CmdMapResult), frame)
	if err != nil {
		t.logger.WithError(err).Warn("reducer stream broken")
		t.conn.Close()
		t.conn = nil
		t.nextDial = time.Now().Add(t.retry.NextBackOff())
		return err
	}
	if reply.Text != protocol.Acknowledged {
		t.logger.WithField("reply", reply.String()).Warn("unexpected reducer reply")
	}
	return nil
}

// ensureConn dials when there is no connection and the backoff window has
// passed. Callers hold t.mu.
func (t *TelemetryStream) ensureConn() error {
	if t.conn != nil {
		return nil
	}
	if time.Now().Before(t.nextDial) {
		return errReducerBackoff
	}
	conn, err := wire.Dial(t.addr, t.timeout)
	if err != nil {
		t.nextDial = time.Now().Add(t.retry.NextBackOff())
		return err
	}
	t.retry.Reset()
	t.conn = conn
	t.logger.Info("connected to reducer")
	return nil
}
