// Package http exposes the goal and ledger services as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"risparmi/internal/core"
	"risparmi/internal/ledger"
	"risparmi/internal/services"
)

// GoalAPI is what the handlers need from the goal service.
type GoalAPI interface {
	CreateGoal(ctx context.Context, in services.CreateGoalInput) (services.GoalResult, error)
	ContributeToGoal(ctx context.Context, userID, goalID uuid.UUID, amount decimal.Decimal) (services.GoalResult, error)
	UpdateGoal(ctx context.Context, in services.UpdateGoalInput) (services.GoalResult, error)
	DeleteGoal(ctx context.Context, userID, goalID uuid.UUID) error
	GetGoal(ctx context.Context, userID, goalID uuid.UUID) (services.GoalResult, error)
	ListGoals(ctx context.Context, userID uuid.UUID) ([]services.GoalResult, error)
	CumulativeSavings(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	MonthlyNets(ctx context.Context, userID uuid.UUID) ([]ledger.MonthlyNet, error)
	GoalEvents(ctx context.Context, userID uuid.UUID) ([]core.GoalEvent, error)
}

// TransactionStore is what the transaction CRUD handlers need from
// storage.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error
}

// NewServer builds the API server. Timeouts are set by the caller.
func NewServer(addr string, goals GoalAPI, txs TransactionStore) *http.Server {
	h := &handlers{goals: goals, txs: txs}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/goals", h.createGoal)
	mux.HandleFunc("GET /api/goals", h.listGoals)
	mux.HandleFunc("GET /api/goals/events", h.listGoalEvents)
	mux.HandleFunc("GET /api/goals/{id}", h.getGoal)
	mux.HandleFunc("PUT /api/goals/{id}", h.updateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", h.deleteGoal)
	mux.HandleFunc("POST /api/goals/{id}/contribute", h.contributeToGoal)

	mux.HandleFunc("GET /api/savings", h.cumulativeSavings)
	mux.HandleFunc("GET /api/savings/monthly", h.monthlySavings)

	mux.HandleFunc("POST /api/transactions", h.createTransaction)
	mux.HandleFunc("GET /api/transactions", h.listTransactions)
	mux.HandleFunc("DELETE /api/transactions/{id}", h.deleteTransaction)

	return &http.Server{
		Addr:    addr,
		Handler: withRequestLogging(mux),
	}
}

type handlers struct {
	goals GoalAPI
	txs   TransactionStore
}

// withRequestLogging logs one line per request with method, path,
// status and duration.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.InfoContext(r.Context(), "Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
