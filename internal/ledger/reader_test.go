package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"risparmi/internal/core"
)

type fakeSource struct {
	txs []core.Transaction
	err error
}

func (f *fakeSource) ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	return f.txs, f.err
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func tx(t *testing.T, kind core.TransactionKind, amount string, date time.Time) core.Transaction {
	t.Helper()
	return core.Transaction{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Kind:        kind,
		Amount:      dec(t, amount),
		Description: "test",
		Date:        date,
	}
}

func TestCumulativeSavingsIncomeMinusExpense(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	src := &fakeSource{txs: []core.Transaction{
		tx(t, core.Income, "1000", jan),
		tx(t, core.Expense, "200", jan.AddDate(0, 0, 5)),
		tx(t, core.Income, "500.50", feb),
		tx(t, core.Expense, "100.25", feb),
	}}

	got, err := NewReader(src).CumulativeSavings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := dec(t, "1200.25"); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCumulativeSavingsIndependentOfOrder(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	forward := []core.Transaction{
		tx(t, core.Income, "100", jan),
		tx(t, core.Expense, "30", mar),
		tx(t, core.Income, "20", mar),
	}
	reversed := []core.Transaction{forward[2], forward[1], forward[0]}

	a, err := NewReader(&fakeSource{txs: forward}).CumulativeSavings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewReader(&fakeSource{txs: reversed}).CumulativeSavings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("order changed the total: %s vs %s", a, b)
	}
	if want := dec(t, "90"); !a.Equal(want) {
		t.Fatalf("expected %s, got %s", want, a)
	}
}

func TestMonthlySummaryOverridesComputedDelta(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	src := &fakeSource{txs: []core.Transaction{
		tx(t, core.Income, "1000", jan),
		tx(t, core.Expense, "400", jan),
		tx(t, core.MonthlySavings, "250", jan),
	}}

	got, err := NewReader(src).CumulativeSavings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := dec(t, "250"); !got.Equal(want) {
		t.Fatalf("summary should override delta: expected %s, got %s", want, got)
	}
}

func TestDuplicateMonthlySummaryLastCreatedWins(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	// The source returns transactions in creation order; the later
	// summary must win.
	src := &fakeSource{txs: []core.Transaction{
		tx(t, core.MonthlySavings, "100", jan),
		tx(t, core.MonthlySavings, "300", jan),
	}}

	got, err := NewReader(src).CumulativeSavings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := dec(t, "300"); !got.Equal(want) {
		t.Fatalf("expected most recent summary %s, got %s", want, got)
	}
}

func TestNegativeCumulativeSavingsAllowed(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	src := &fakeSource{txs: []core.Transaction{
		tx(t, core.Income, "100", jan),
		tx(t, core.Expense, "350", jan),
	}}

	got, err := NewReader(src).CumulativeSavings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := dec(t, "-250"); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSkipsZeroDates(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	src := &fakeSource{txs: []core.Transaction{
		tx(t, core.Income, "100", jan),
		tx(t, core.Income, "999", time.Time{}), // unparseable date upstream
	}}

	got, err := NewReader(src).CumulativeSavings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := dec(t, "100"); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSourceErrorPropagates(t *testing.T) {
	boom := errors.New("query failed")
	_, err := NewReader(&fakeSource{err: boom}).CumulativeSavings(context.Background(), uuid.New())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}

func TestMonthlyNetsChronological(t *testing.T) {
	src := &fakeSource{txs: []core.Transaction{
		tx(t, core.Income, "10", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
		tx(t, core.Income, "20", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)),
		tx(t, core.Income, "30", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}}

	nets, err := NewReader(src).MonthlyNets(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2024-12", "2025-01", "2025-02"}
	if len(nets) != len(want) {
		t.Fatalf("expected %d months, got %d", len(want), len(nets))
	}
	for i, m := range want {
		if nets[i].Month != m {
			t.Fatalf("month %d: expected %s, got %s", i, m, nets[i].Month)
		}
	}
}
