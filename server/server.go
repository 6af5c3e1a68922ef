// Package server exposes the transaction engine over HTTP for the dashboard.
// Operation handlers are asynchronous: they start the engine call on a
// context detached from the request, reply 202, and let the client follow the
// lifecycle record via the status endpoint. A client that disconnects only
// stops watching; the operation still runs to its terminal state.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendboard/engine"
	"lendboard/engine/lifecycle"
	"lendboard/ledger"
)

const requestLimit = 1 << 20 // 1 MiB

// Engine is the subset of the transaction engine the HTTP surface drives.
type Engine interface {
	Deposit(ctx context.Context, sess engine.Session, pool engine.Pool, amount uint64) (lifecycle.Record, error)
	Withdraw(ctx context.Context, sess engine.Session, pool engine.Pool, amount uint64) (lifecycle.Record, error)
	WithdrawAll(ctx context.Context, sess engine.Session, pool engine.Pool) (lifecycle.Record, error)
	Status() lifecycle.Record
	Reset() bool
}

// Server wires the engine and pool registry into a chi router.
type Server struct {
	engine  Engine
	pools   map[string]engine.Pool
	network string
	log     *slog.Logger
}

// New constructs a Server over the engine for the configured pools.
func New(eng Engine, pools []engine.Pool, network string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	byName := make(map[string]engine.Pool, len(pools))
	for _, pool := range pools {
		byName[pool.Name] = pool
	}
	return &Server{engine: eng, pools: byName, network: network, log: log}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/pools", s.listPools)
		r.Get("/status", s.status)
		r.Post("/reset", s.reset)
		r.Post("/deposit", s.deposit)
		r.Post("/withdraw", s.withdraw)
		r.Post("/withdraw-all", s.withdrawAll)
	})
	return r
}

type operationRequest struct {
	Pool   string `json:"pool"`
	Owner  string `json:"owner"`
	Amount string `json:"amount,omitempty"`
}

type poolView struct {
	Name     string `json:"name"`
	CoinType string `json:"coinType"`
	Decimals int    `json:"decimals"`
}

func (s *Server) listPools(w http.ResponseWriter, _ *http.Request) {
	views := make([]poolView, 0, len(s.pools))
	for _, pool := range s.pools {
		views = append(views, poolView{Name: pool.Name, CoinType: pool.CoinType, Decimals: pool.Decimals})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) reset(w http.ResponseWriter, _ *http.Request) {
	if !s.engine.Reset() {
		writeError(w, http.StatusConflict, errors.New("no terminal operation to reset"))
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	s.startOperation(w, r, true, func(ctx context.Context, sess engine.Session, pool engine.Pool, amount uint64) {
		_, _ = s.engine.Deposit(ctx, sess, pool, amount)
	})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	s.startOperation(w, r, true, func(ctx context.Context, sess engine.Session, pool engine.Pool, amount uint64) {
		_, _ = s.engine.Withdraw(ctx, sess, pool, amount)
	})
}

func (s *Server) withdrawAll(w http.ResponseWriter, r *http.Request) {
	s.startOperation(w, r, false, func(ctx context.Context, sess engine.Session, pool engine.Pool, _ uint64) {
		_, _ = s.engine.WithdrawAll(ctx, sess, pool)
	})
}

func (s *Server) startOperation(w http.ResponseWriter, r *http.Request, needsAmount bool, run func(context.Context, engine.Session, engine.Pool, uint64)) {
	var req operationRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pool, ok := s.pools[strings.TrimSpace(req.Pool)]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown pool %q", req.Pool))
		return
	}
	owner := strings.TrimSpace(req.Owner)
	if !strings.HasPrefix(owner, "0x") {
		writeError(w, http.StatusBadRequest, fmt.Errorf("owner %q is not an address", req.Owner))
		return
	}

	var amount uint64
	if needsAmount {
		var err error
		amount, err = ledger.ToBaseUnits(strings.TrimSpace(req.Amount), pool.Decimals)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	if state := s.engine.Status().State; state != lifecycle.StateIdle {
		writeError(w, http.StatusConflict, fmt.Errorf("operation state is %s; reset before starting a new operation", state))
		return
	}

	sess := engine.Session{Owner: ledger.Address(owner), Network: s.network}
	go run(context.Background(), sess, pool, amount)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"pool":     pool.Name,
	})
}

func decodeRequest(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, requestLimit))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(data) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
