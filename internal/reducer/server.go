package reducer

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/wire"
)

// Server accepts worker telemetry streams.
type Server struct {
	agg    *Aggregator
	logger *log.Entry
	ln     *wire.Listener
}

// NewServer creates a server merging into agg.
func NewServer(agg *Aggregator, logger *log.Entry) *Server {
	return &Server{agg: agg, logger: logger}
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

// Serve accepts worker connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.WithField("addr", s.Addr()).Info("reducer listening")
	return s.ln.Serve(ctx)
}

// serveConn reads (mapResult, map) pairs until the worker hangs up.
func (s *Server) serveConn(conn *wire.Conn) {
	logger := s.logger.WithField("peer", conn.RemoteAddr())
	logger.Info("worker stream opened")

	for {
		cmd, err := conn.Receive()
		if err != nil {
			if err != io.EOF {
				logger.WithError(err).Warn("worker stream read failed")
			}
			return
		}
		if !cmd.IsText() || protocol.Name(cmd.Text) != protocol.CmdMapResult {
			logger.WithField("frame", cmd.String()).Warn("unexpected frame on worker stream")
			if err := conn.Send(wire.Text(protocol.UnknownCommand)); err != nil {
				return
			}
			continue
		}

		body, err := conn.Receive()
		if err != nil {
			logger.WithError(err).Warn("telemetry body read failed")
			return
		}
		var rec protocol.Telemetry
		if err := body.DecodeMap(&rec); err != nil {
			logger.WithError(err).Warn("bad telemetry body")
			if err := conn.Send(wire.Text(protocol.InvalidDataFormat)); err != nil {
				return
			}
			continue
		}

		s.agg.Merge(rec)
		logger.WithFields(log.Fields{
			"worker":      rec.WorkerID,
			"requestType": rec.RequestType,
		}).Debug("telemetry merged")

		if err := conn.Send(wire.Text(protocol.Acknowledged)); err != nil {
			return
		}
	}
}
