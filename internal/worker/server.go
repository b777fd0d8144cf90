package worker

import (
	"context"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/ops"
	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/storage"
	"github.com/dreamware/foodgrid/internal/wire"
)

// Server accepts master connections and serves request/response pairs on
// each until the peer closes it.
type Server struct {
	svc    *Service
	logger *log.Entry
	ln     *wire.Listener
}

// NewServer creates a server for svc.
func NewServer(svc *Service, logger *log.Entry) *Server {
	return &Server{svc: svc, logger: logger}
}

// Listen binds addr. It must be called before Serve.
func (s *Server) Listen(addr string) error {
	ln, err := wire.Listen(addr, s.serveConn, s.logger)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.WithField("addr", s.Addr()).Info("worker listening")
	return s.ln.Serve(ctx)
}

func (s *Server) serveConn(conn *wire.Conn) {
	logger := s.logger.WithField("peer", conn.RemoteAddr())
	logger.Debug("connection opened")

	for {
		cmd, err := conn.Receive()
		if err != nil {
			if err != io.EOF {
				logger.WithError(err).Debug("connection read failed")
			}
			return
		}
		if !cmd.IsText() {
			if err := conn.Send(wire.Text(protocol.InvalidDataFormat)); err != nil {
				return
			}
			continue
		}

		req := Request{Line: cmd.Text}
		if protocol.WorkerHasPayload(protocol.Name(cmd.Text)) {
			payload, err := conn.Receive()
			if err != nil {
				logger.WithError(err).Debug("payload read failed")
				return
			}
			req.Payload = &payload
		}

		if err := conn.Send(s.svc.Handle(req)); err != nil {
			logger.WithError(err).Debug("response write failed")
			return
		}
	}
}

// Info is the body of the worker's /info endpoint.
type Info struct {
	ID        string               `json:"id"`
	Stores    storage.CatalogStats `json:"stores"`
	UnitsSold int                  `json:"unitsSold"`
	Revenue   string               `json:"revenue"`
	Ops       OperationStats       `json:"operations"`
	Telemetry *TelemetryStats      `json:"telemetry,omitempty"`
}

// Info summarises the worker for operators.
func (s *Service) Info() Info {
	total := s.ledger.Total()
	info := Info{
		ID:        s.id,
		Stores:    s.catalog.Stats(),
		UnitsSold: total.Units,
		Revenue:   protocol.FormatRevenue(total.Revenue),
		Ops:       s.Stats(),
	}
	if ts, ok := s.telemetry.(*TelemetryStream); ok {
		stats := ts.Stats()
		info.Telemetry = &stats
	}
	return info
}

// OpsRoutes returns the worker's ops endpoints.
func (s *Service) OpsRoutes() []ops.Route {
	return []ops.Route{{
		Path: "/info",
		Handler: func(w http.ResponseWriter, _ *http.Request) {
			ops.WriteJSON(w, http.StatusOK, s.Info())
		},
	}}
}
