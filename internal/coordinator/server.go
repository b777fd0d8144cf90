package coordinator

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/wire"
)

// Server accepts client connections and the reducer's push stream.
type Server struct {
	dispatcher *Dispatcher
	board      *ReportBoard
	logger     *log.Entry
	ln         *wire.Listener
	ctx        context.Context
}

// NewServer creates a server dispatching through d and posting reducer
// reports to board.
func NewServer(d *Dispatcher, board *ReportBoard, logger *log.Entry) *Server {
	return &Server{dispatcher: d, board: board, logger: logger, ctx: context.Background()}
}

// Listen binds addr.
func (s *Server) Listen(addr string) error {
	ln, err := wire.Listen(addr, s.serveConn, s.logger)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.ctx = ctx
	s.logger.WithField("addr", s.Addr()).Info("master listening")
	return s.ln.Serve(ctx)
}

// serveConn handles client commands in order until the peer hangs up.
// A connection whose first command is reducerResults becomes the
// reducer's report stream for the rest of its life.
func (s *Server) serveConn(conn *wire.Conn) {
	logger := s.logger.WithField("peer", conn.RemoteAddr())
	logger.Debug("client connected")

	for {
		cmd, err := conn.Receive()
		if err != nil {
			if err != io.EOF {
				logger.WithError(err).Debug("client read failed")
			}
			return
		}
		if !cmd.IsText() {
			if err := conn.Send(wire.Text(protocol.InvalidDataFormat)); err != nil {
				return
			}
			continue
		}

		name := protocol.Name(cmd.Text)
		if name == protocol.CmdReducerResults {
			s.serveReports(conn, logger)
			return
		}

		var payload *wire.Frame
		if protocol.HasPayload(name) {
			f, err := conn.Receive()
			if err != nil {
				logger.WithError(err).Debug("payload read failed")
				return
			}
			payload = &f
		}

		logger.WithField("command", name).Debug("dispatching")
		if err := conn.Send(s.dispatcher.Dispatch(s.ctx, cmd.Text, payload)); err != nil {
			logger.WithError(err).Debug("client write failed")
			return
		}
	}
}

// serveReports reads reducer snapshots until the stream closes.
func (s *Server) serveReports(conn *wire.Conn, logger *log.Entry) {
	logger.Info("reducer stream opened")
	for {
		f, err := conn.Receive()
		if err != nil {
			if err != io.EOF {
				logger.WithError(err).Warn("reducer stream read failed")
			}
			logger.Info("reducer stream closed")
			return
		}

		var report protocol.Report
		if err := f.DecodeMap(&report); err != nil {
			logger.WithError(err).Warn("bad reducer report")
			if err := conn.Send(wire.Text(protocol.InvalidDataFormat)); err != nil {
				return
			}
			continue
		}
		s.board.Post(report)
		logger.WithFields(log.Fields{
			"requestCounts":  report.RequestCounts(),
			"workerRequests": report.WorkerRequests(),
			"storeSales":     report.StoreSales(),
		}).Info("reducer report received")

		if err := conn.Send(wire.Text(protocol.Acknowledged)); err != nil {
			return
		}
	}
}
