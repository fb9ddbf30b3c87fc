package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/domain"
)

// Server exposes the operational surface: prometheus metrics, a liveness
// probe and a small status endpoint.
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	venue   domain.Venue
	logger  *zap.Logger
	started time.Time
}

func NewServer(addr string, venue domain.Venue, logger *zap.Logger) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		venue:   venue,
		logger:  logger,
		started: time.Now(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	s.router.Handle("GET /metrics", promhttp.Handler())
	s.router.HandleFunc("GET /healthz", s.handleHealthz)
	s.router.HandleFunc("GET /status", s.handleStatus)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}
	if acct, err := s.venue.AccountSnapshot(r.Context()); err == nil {
		status["balance"] = acct.Balance
		status["equity"] = acct.Equity
	}
	if positions, err := s.venue.OpenPositions(r.Context(), ""); err == nil {
		status["open_positions"] = len(positions)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn("status encode failed", zap.Error(err))
	}
}

func (s *Server) Start() error {
	s.logger.Info("web server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
