// Package ops serves the small HTTP surface each process exposes for
// operators: health, identity and state dumps. It is separate from the
// frame protocol and never carries client traffic.
package ops

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Route is one GET endpoint.
type Route struct {
	Path    string
	Handler http.HandlerFunc
}

// Router builds a gorilla/mux router with a /health endpoint plus routes,
// wrapped in request logging.
func Router(logger *log.Entry, routes ...Route) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	for _, route := range routes {
		r.HandleFunc(route.Path, route.Handler).Methods(http.MethodGet)
	}
	return logMiddleware(logger, r)
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(b); err != nil {
		log.WithError(err).Error("write ops response")
	}
}

func logMiddleware(logger *log.Entry, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL.String(),
			"remoteAddr": r.RemoteAddr,
		}).Debug("ops request")
		h.ServeHTTP(w, r)
	})
}

// Server is a running ops listener.
type Server struct {
	srv  *http.Server
	addr string
}

// Start listens on addr and serves h in the background. The listener is
// bound before Start returns so bind failures surface to the caller.
func Start(addr string, h http.Handler, logger *log.Entry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("ops server stopped")
		}
	}()
	logger.WithField("addr", ln.Addr().String()).Info("ops endpoint listening")
	return &Server{srv: srv, addr: ln.Addr().String()}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown stops the server, waiting at most five seconds for requests in
// flight.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
