// Package ledger derives a user's cumulative savings from their
// transaction history.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"risparmi/internal/core"
)

// TransactionSource is the slice of the repository the reader needs.
type TransactionSource interface {
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error)
}

// MonthlyNet is one calendar month's aggregate. When a manual monthly
// summary exists it replaces the computed income-expense delta
// entirely; Net always carries the effective figure.
type MonthlyNet struct {
	Month      string // YYYY-MM, UTC
	Income     decimal.Decimal
	Expense    decimal.Decimal
	Net        decimal.Decimal
	HasSummary bool
}

type Reader struct {
	src TransactionSource
}

func NewReader(src TransactionSource) *Reader {
	return &Reader{src: src}
}

// CumulativeSavings returns the user's all-time net savings: monthly
// nets summed in chronological order. The result may be negative;
// sufficiency is the caller's concern.
func (r *Reader) CumulativeSavings(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	nets, err := r.MonthlyNets(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, n := range nets {
		total = total.Add(n.Net)
	}

	slog.DebugContext(ctx, "Computed cumulative savings",
		"user_id", userID,
		"months", len(nets),
		"total", total)

	return total, nil
}

// MonthlyNets buckets the user's transactions by UTC calendar month and
// returns the per-month aggregates in chronological order.
//
// Transactions with an unset date are skipped. If a month holds more
// than one manual summary, the most recently created one wins: the
// source lists transactions in creation order and later entries
// overwrite earlier ones.
func (r *Reader) MonthlyNets(ctx context.Context, userID uuid.UUID) ([]MonthlyNet, error) {
	txs, err := r.src.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	buckets := make(map[string]*monthBucket)
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		key := core.MonthKey(tx.Date)
		b := buckets[key]
		if b == nil {
			b = &monthBucket{income: decimal.Zero, expense: decimal.Zero}
			buckets[key] = b
		}

		switch tx.Kind {
		case core.Income:
			b.income = b.income.Add(tx.Amount)
		case core.Expense:
			b.expense = b.expense.Add(tx.Amount)
		case core.MonthlySavings:
			b.summary = tx.Amount
			b.hasSummary = true
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	// YYYY-MM keys sort lexicographically into chronological order.
	sort.Strings(keys)

	nets := make([]MonthlyNet, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		n := MonthlyNet{
			Month:      k,
			Income:     b.income,
			Expense:    b.expense,
			HasSummary: b.hasSummary,
		}
		if b.hasSummary {
			n.Net = b.summary
		} else {
			n.Net = b.income.Sub(b.expense)
		}
		nets = append(nets, n)
	}

	return nets, nil
}

type monthBucket struct {
	income     decimal.Decimal
	expense    decimal.Decimal
	summary    decimal.Decimal
	hasSummary bool
}
