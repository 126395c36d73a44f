package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"afriswap/internal/exchange"
	"afriswap/internal/metrics"
)

// Server exposes the exchange over HTTP. The exchange core assumes a
// strictly serialized call sequence, so every engine call is funneled
// through one mutex; the engine's own guard then only fires on genuine
// re-entry from transfer hooks.
type Server struct {
	engine  *exchange.Engine
	metrics *metrics.Set
	logger  *zap.Logger
	mu      sync.Mutex
	http    *http.Server
}

func New(addr string, engine *exchange.Engine, m *metrics.Set, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		engine:  engine,
		metrics: m,
		logger:  logger,
	}

	r := mux.NewRouter()
	r.Use(s.logRequests)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/swap", s.handleSwap).Methods(http.MethodPost)
	v1.HandleFunc("/liquidity", s.handleProvide).Methods(http.MethodPost)
	v1.HandleFunc("/positions/{id:[0-9]+}", s.handleRemove).Methods(http.MethodDelete)
	v1.HandleFunc("/pools", s.handleListPools).Methods(http.MethodGet)
	v1.HandleFunc("/pools/{id:[0-9]+}", s.handleGetPool).Methods(http.MethodGet)
	v1.HandleFunc("/providers/{addr}", s.handleGetProvider).Methods(http.MethodGet)
	v1.HandleFunc("/rewards/claim", s.handleClaim).Methods(http.MethodPost)
	v1.HandleFunc("/profile/autostake", s.handleAutoStake).Methods(http.MethodPost)
	v1.HandleFunc("/admin/pools", s.handleCreatePool).Methods(http.MethodPost)
	v1.HandleFunc("/admin/fee", s.handleSetFee).Methods(http.MethodPost)
	v1.HandleFunc("/admin/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	v1.HandleFunc("/admin/burn", s.handleBurn).Methods(http.MethodPost)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// withEngine runs fn while holding the engine mutex. The deferred unlock
// keeps the server serving even if an engine call panics.
func (s *Server) withEngine(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps exchange errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, exchange.ErrInvalidAsset),
		errors.Is(err, exchange.ErrInvalidAmount),
		errors.Is(err, exchange.ErrBelowMinimum),
		errors.Is(err, exchange.ErrInvalidFee):
		status = http.StatusBadRequest
	case errors.Is(err, exchange.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, exchange.ErrPoolNotFound),
		errors.Is(err, exchange.ErrPositionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, exchange.ErrInsufficientPoolSize),
		errors.Is(err, exchange.ErrInsufficientBalance),
		errors.Is(err, exchange.ErrTransferFailed):
		status = http.StatusConflict
	case errors.Is(err, exchange.ErrReentrantCall):
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
