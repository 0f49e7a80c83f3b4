package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income         TransactionKind = "income"
	Expense        TransactionKind = "expense"
	MonthlySavings TransactionKind = "monthly_savings"

	StatusActive   GoalStatus = "active"
	StatusAchieved GoalStatus = "achieved"
	StatusArchived GoalStatus = "archived"

	// CategoryGoalSavings marks a transaction as a goal-contribution
	// record. Together with the ContributionDescription pattern these
	// are the only transactions the goal service creates or deletes.
	CategoryGoalSavings = "Goal Savings"

	contributionPrefix = "Saving for: "
)

type (
	TransactionKind string
	GoalStatus      string

	Transaction struct {
		ID          uuid.UUID
		UserID      uuid.UUID
		Kind        TransactionKind
		Amount      decimal.Decimal
		Description string
		Category    string
		Date        time.Time
		Recurrence  string // informational only
		CreatedAt   time.Time
	}

	Goal struct {
		ID           uuid.UUID
		UserID       uuid.UUID
		Description  string
		TargetAmount decimal.Decimal
		SavedAmount  decimal.Decimal
		TargetDate   time.Time
		Status       GoalStatus
		Icon         string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// GoalEvent is an audit record written by the event worker from
	// published goal lifecycle messages.
	GoalEvent struct {
		ID         int64
		GoalID     uuid.UUID
		UserID     uuid.UUID
		Event      string
		Amount     decimal.Decimal
		OccurredAt time.Time
	}
)

// ContributionDescription returns the description carried by every
// synthetic transaction linked to a goal with the given description.
func ContributionDescription(goalDescription string) string {
	return contributionPrefix + goalDescription
}

// NormalizeDescription lower-cases and trims a goal description for the
// per-user case-insensitive uniqueness check.
func NormalizeDescription(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MonthKey returns the zero-padded UTC bucket key for a date. The
// format sorts lexicographically in chronological order.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func (k TransactionKind) Valid() bool {
	switch k {
	case Income, Expense, MonthlySavings:
		return true
	}
	return false
}

func (s GoalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusAchieved, StatusArchived:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	if t.UserID == uuid.Nil {
		return Validationf("missing user id")
	}
	if !t.Kind.Valid() {
		return Validationf("invalid transaction kind %q", t.Kind)
	}
	if !t.Amount.IsPositive() {
		return Validationf("amount must be positive")
	}
	if strings.TrimSpace(t.Description) == "" {
		return Validationf("empty description")
	}
	if len(t.Description) > 200 {
		return Validationf("description too long (max 200 characters)")
	}
	if t.Date.IsZero() {
		return Validationf("date cannot be zero")
	}
	return nil
}

func (g Goal) Validate() error {
	if g.UserID == uuid.Nil {
		return Validationf("missing user id")
	}
	if strings.TrimSpace(g.Description) == "" {
		return Validationf("empty description")
	}
	if len(g.Description) > 200 {
		return Validationf("description too long (max 200 characters)")
	}
	if !g.TargetAmount.IsPositive() {
		return Validationf("target amount must be positive")
	}
	if g.SavedAmount.IsNegative() {
		return Validationf("saved amount cannot be negative")
	}
	if !g.Status.Valid() {
		return Validationf("invalid status %q", g.Status)
	}
	return nil
}

// Progress returns the funded percentage of the goal, capped at 100.
func (g Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	p := g.SavedAmount.Div(g.TargetAmount).Mul(hundred)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// Remaining returns the amount still missing to reach the target,
// never negative.
func (g Goal) Remaining() decimal.Decimal {
	r := g.TargetAmount.Sub(g.SavedAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}
