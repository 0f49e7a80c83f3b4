package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"risparmi/internal/core"
)

// Store is the storage collaborator the goal services need. Implemented
// by storage.SQLiteRepository.
type Store interface {
	InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error)
	ListContributions(ctx context.Context, userID uuid.UUID, goalDescription string) ([]core.Transaction, error)
	DeleteContributions(ctx context.Context, userID uuid.UUID, goalDescription string) (int64, error)
	CountMonthlySummaries(ctx context.Context, userID uuid.UUID, monthKey string) (int64, error)

	GetGoal(ctx context.Context, id uuid.UUID) (*core.Goal, error)
	GetGoalByDescription(ctx context.Context, userID uuid.UUID, description string, excludeID uuid.UUID) (*core.Goal, error)
	InsertGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	DeleteGoal(ctx context.Context, id uuid.UUID) (bool, error)
	ListGoals(ctx context.Context, userID uuid.UUID) ([]core.Goal, error)

	ListGoalEvents(ctx context.Context, userID uuid.UUID) ([]core.GoalEvent, error)
}

// TransactionWriter maintains the synthetic "Saving for: X" expense
// transactions that represent money moved from general savings into a
// goal.
type TransactionWriter struct {
	store Store
	now   func() time.Time
}

func NewTransactionWriter(store Store) *TransactionWriter {
	return &TransactionWriter{store: store, now: time.Now}
}

// SumContributions returns the total of all contribution transactions
// linked to a goal description.
func (w *TransactionWriter) SumContributions(ctx context.Context, userID uuid.UUID, goalDescription string) (decimal.Decimal, error) {
	txs, err := w.store.ListContributions(ctx, userID, goalDescription)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum contributions: %w", err)
	}

	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total, nil
}

// DeleteContributions removes every contribution transaction linked to
// a goal description.
func (w *TransactionWriter) DeleteContributions(ctx context.Context, userID uuid.UUID, goalDescription string) (int64, error) {
	return w.store.DeleteContributions(ctx, userID, goalDescription)
}

// CreateContribution inserts one expense transaction representing a
// single contribution to a goal, dated now.
func (w *TransactionWriter) CreateContribution(ctx context.Context, userID uuid.UUID, goalDescription string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.Validationf("contribution amount must be positive")
	}

	_, err := w.store.InsertTransaction(ctx, core.Transaction{
		UserID:      userID,
		Kind:        core.Expense,
		Amount:      amount,
		Description: core.ContributionDescription(goalDescription),
		Category:    core.CategoryGoalSavings,
		Date:        w.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("create contribution: %w", err)
	}
	return nil
}

// CreateConsolidatedContribution inserts one expense transaction for a
// goal's entire saved amount, dated now. A zero amount is a no-op: a
// goal with nothing saved has no ledger entries at all.
func (w *TransactionWriter) CreateConsolidatedContribution(ctx context.Context, userID uuid.UUID, goalDescription string, amount decimal.Decimal, icon string) error {
	if !amount.IsPositive() {
		return nil
	}

	if err := w.CreateContribution(ctx, userID, goalDescription, amount); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Consolidated contribution created",
		"user_id", userID,
		"goal_description", goalDescription,
		"amount", amount,
		"icon", icon)
	return nil
}

// HasMonthlySummaryForCurrentMonth reports whether a monthly_savings
// transaction already closes the current UTC calendar month. While one
// exists, no new dated contribution may be created: it would
// double-count against the manual summary.
func (w *TransactionWriter) HasMonthlySummaryForCurrentMonth(ctx context.Context, userID uuid.UUID) (bool, error) {
	count, err := w.store.CountMonthlySummaries(ctx, userID, core.MonthKey(w.now()))
	if err != nil {
		return false, fmt.Errorf("check monthly summary: %w", err)
	}
	return count > 0, nil
}
