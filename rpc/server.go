package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pegvault/core/events"
	"pegvault/native/reserve"
)

// Server hosts the public and admin HTTP surface over the reserve engine.
type Server struct {
	engine   *reserve.Engine
	recorder *events.Recorder
	auth     *Authenticator
	log      *slog.Logger
	listen   string
}

// NewServer constructs the HTTP server. The recorder is optional; without it
// the events endpoint serves an empty list.
func NewServer(listen string, engine *reserve.Engine, recorder *events.Recorder, auth *Authenticator, log *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("rpc: engine required")
	}
	if auth == nil {
		return nil, fmt.Errorf("rpc: admin authenticator required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, recorder: recorder, auth: auth, log: log, listen: listen}, nil
}

// Handler assembles the route tree. Exposed separately so tests can drive it
// through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/reserves", s.handleListReserves)
		r.Get("/reserves/{asset}", s.handleGetReserve)
		r.Get("/whitelist", s.handleWhitelist)
		r.Get("/vesting/{account}", s.handleVesting)
		r.Get("/freereserve/{asset}", s.handleFreeReserve)
		r.Get("/events", s.handleEvents)
		r.Post("/mint", s.handleMint)
		r.Post("/mint/estimate", s.handleMintEstimate)
		r.Post("/burn", s.handleBurn)
		r.Post("/redeem", s.handleRedeem)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Post("/reserves", s.handleRegisterReserve)
			r.Post("/withdraw", s.handleWithdraw)
			r.Post("/withdraw/all", s.handleWithdrawAll)
			r.Post("/drain", s.handleDrain)
			r.Post("/drain/all", s.handleDrainAll)
			r.Post("/salvage", s.handleSalvage)
			r.Post("/beneficiary", s.handleSetBeneficiary)
			r.Post("/tax", s.handleSetGlobalTax)
			r.Post("/ownership", s.handleTransferOwnership)
			r.Get("/withdrawals", s.handleListWithdrawals)
			r.Get("/withdrawals/export", s.handleExportWithdrawals)
		})
	})

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("rpc listening", "address", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
