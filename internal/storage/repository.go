package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"risparmi/internal/core"

	_ "modernc.org/sqlite"
)

// timeFormat is how all dates are stored. RFC 3339 in UTC keeps
// lexicographic ordering chronological and makes substr(tx_date, 1, 7)
// the month bucket key.
const timeFormat = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertTransaction persists a transaction, assigning an id and
// creation timestamp when missing.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount, description, category, tx_date, recurrence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID.String(), tx.UserID.String(), string(tx.Kind), tx.Amount.String(),
		tx.Description, tx.Category, tx.Date.UTC().Format(timeFormat),
		tx.Recurrence, tx.CreatedAt.Format(timeFormat))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"user_id", tx.UserID,
		"kind", tx.Kind,
		"amount", tx.Amount,
		"category", tx.Category)

	return tx, nil
}

// ListTransactions returns every transaction for a user, oldest
// creation first. Insertion order matters to the ledger when a month
// carries more than one manual summary.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, amount, description, category, tx_date, recurrence, created_at
		FROM transactions WHERE user_id = ? ORDER BY created_at, id`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return r.scanTransactions(ctx, rows)
}

// ListContributions returns the synthetic goal-contribution
// transactions for one (user, goal description) pair.
func (r *SQLiteRepository) ListContributions(ctx context.Context, userID uuid.UUID, goalDescription string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, amount, description, category, tx_date, recurrence, created_at
		FROM transactions
		WHERE user_id = ? AND category = ? AND description = ?
		ORDER BY created_at, id`,
		userID.String(), core.CategoryGoalSavings, core.ContributionDescription(goalDescription))
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	return r.scanTransactions(ctx, rows)
}

// DeleteContributions removes all contribution transactions linked to
// a goal description and reports how many rows went away.
func (r *SQLiteRepository) DeleteContributions(ctx context.Context, userID uuid.UUID, goalDescription string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM transactions WHERE user_id = ? AND category = ? AND description = ?`,
		userID.String(), core.CategoryGoalSavings, core.ContributionDescription(goalDescription))
	if err != nil {
		return 0, fmt.Errorf("delete contributions: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete contributions rows affected: %w", err)
	}

	if count > 0 {
		slog.InfoContext(ctx, "Contribution transactions deleted",
			"user_id", userID,
			"goal_description", goalDescription,
			"count", count)
	}
	return count, nil
}

// DeleteTransaction removes a single user-owned transaction.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`,
		id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows affected: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: transaction %s", core.ErrNotFound, id)
	}
	return nil
}

// CountMonthlySummaries reports how many monthly_savings transactions a
// user has in the given YYYY-MM bucket.
func (r *SQLiteRepository) CountMonthlySummaries(ctx context.Context, userID uuid.UUID, monthKey string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE user_id = ? AND kind = ? AND substr(tx_date, 1, 7) = ?`,
		userID.String(), string(core.MonthlySavings), monthKey).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count monthly summaries: %w", err)
	}
	return count, nil
}

// InsertGoal persists a new goal, assigning an id and timestamps when
// missing. A duplicate normalized description surfaces as a conflict.
func (r *SQLiteRepository) InsertGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, description, description_norm, target_amount, saved_amount, target_date, status, icon, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.UserID.String(), g.Description, core.NormalizeDescription(g.Description),
		g.TargetAmount.String(), g.SavedAmount.String(), g.TargetDate.UTC().Format(timeFormat),
		string(g.Status), g.Icon, g.CreatedAt.Format(timeFormat), g.UpdatedAt.Format(timeFormat))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Goal{}, core.Conflictf("goal %q already exists", g.Description)
		}
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved",
		"id", g.ID,
		"user_id", g.UserID,
		"description", g.Description,
		"target_amount", g.TargetAmount)

	return g, nil
}

// GetGoal returns a goal by id, or nil when no such goal exists.
func (r *SQLiteRepository) GetGoal(ctx context.Context, id uuid.UUID) (*core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, description, target_amount, saved_amount, target_date, status, icon, created_at, updated_at
		FROM goals WHERE id = ?`, id.String())
	return r.scanGoal(row)
}

// GetGoalByDescription finds a goal by normalized description for the
// uniqueness check. excludeID, when non-nil, leaves one goal out of the
// search so a goal does not collide with itself on update.
func (r *SQLiteRepository) GetGoalByDescription(ctx context.Context, userID uuid.UUID, description string, excludeID uuid.UUID) (*core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, description, target_amount, saved_amount, target_date, status, icon, created_at, updated_at
		FROM goals WHERE user_id = ? AND description_norm = ? AND id != ?`,
		userID.String(), core.NormalizeDescription(description), excludeID.String())
	return r.scanGoal(row)
}

// ListGoals returns every goal for a user, newest first.
func (r *SQLiteRepository) ListGoals(ctx context.Context, userID uuid.UUID) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, description, target_amount, saved_amount, target_date, status, icon, created_at, updated_at
		FROM goals WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoalRow(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// UpdateGoal writes back every mutable goal field.
func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET description = ?, description_norm = ?, target_amount = ?, saved_amount = ?, target_date = ?, status = ?, icon = ?, updated_at = ?
		WHERE id = ?`,
		g.Description, core.NormalizeDescription(g.Description), g.TargetAmount.String(),
		g.SavedAmount.String(), g.TargetDate.UTC().Format(timeFormat), string(g.Status),
		g.Icon, g.UpdatedAt.Format(timeFormat), g.ID.String())
	if err != nil {
		if isUniqueViolation(err) {
			return core.Goal{}, core.Conflictf("goal %q already exists", g.Description)
		}
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal rows affected: %w", err)
	}
	if count == 0 {
		return core.Goal{}, fmt.Errorf("%w: goal %s", core.ErrNotFound, g.ID)
	}

	return g, nil
}

// DeleteGoal removes a goal and reports whether it existed.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("delete goal: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete goal rows affected: %w", err)
	}
	return count > 0, nil
}

// InsertGoalEvent appends an audit row for a goal lifecycle event.
func (r *SQLiteRepository) InsertGoalEvent(ctx context.Context, ev core.GoalEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goal_events (goal_id, user_id, event, amount, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.GoalID.String(), ev.UserID.String(), ev.Event, ev.Amount.String(),
		ev.OccurredAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert goal event: %w", err)
	}
	return nil
}

// ListGoalEvents returns a user's goal audit trail, oldest first.
func (r *SQLiteRepository) ListGoalEvents(ctx context.Context, userID uuid.UUID) ([]core.GoalEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, goal_id, user_id, event, amount, occurred_at
		FROM goal_events WHERE user_id = ? ORDER BY id`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("list goal events: %w", err)
	}
	defer rows.Close()

	var events []core.GoalEvent
	for rows.Next() {
		var (
			ev                              core.GoalEvent
			goalID, usrID, amount, occurred string
		)
		if err := rows.Scan(&ev.ID, &goalID, &usrID, &ev.Event, &amount, &occurred); err != nil {
			return nil, fmt.Errorf("scan goal event: %w", err)
		}
		ev.GoalID, err = uuid.Parse(goalID)
		if err != nil {
			return nil, fmt.Errorf("parse goal event goal id: %w", err)
		}
		ev.UserID, err = uuid.Parse(usrID)
		if err != nil {
			return nil, fmt.Errorf("parse goal event user id: %w", err)
		}
		ev.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse goal event amount: %w", err)
		}
		if t, err := time.Parse(timeFormat, occurred); err == nil {
			ev.OccurredAt = t
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list goal events: %w", err)
	}
	return events, nil
}

func (r *SQLiteRepository) scanTransactions(ctx context.Context, rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		var (
			tx                    core.Transaction
			id, usrID, kind       string
			amount, date, created string
		)
		if err := rows.Scan(&id, &usrID, &kind, &amount, &tx.Description, &tx.Category, &date, &tx.Recurrence, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse transaction id: %w", err)
		}
		tx.ID = parsed
		if tx.UserID, err = uuid.Parse(usrID); err != nil {
			return nil, fmt.Errorf("parse transaction user id: %w", err)
		}
		tx.Kind = core.TransactionKind(kind)
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse transaction amount: %w", err)
		}
		// A malformed date leaves Date zero; the ledger skips such
		// records rather than failing the whole scan.
		if t, err := time.Parse(timeFormat, date); err == nil {
			tx.Date = t
		} else {
			slog.WarnContext(ctx, "Skipping unparseable transaction date",
				"id", tx.ID, "tx_date", date)
		}
		if t, err := time.Parse(timeFormat, created); err == nil {
			tx.CreatedAt = t
		}

		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanGoal(row *sql.Row) (*core.Goal, error) {
	g, err := scanGoalRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func scanGoalRow(row rowScanner) (core.Goal, error) {
	var (
		g                                core.Goal
		id, usrID, target, saved, status string
		targetDate, created, updated     string
	)
	err := row.Scan(&id, &usrID, &g.Description, &target, &saved, &targetDate, &status, &g.Icon, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Goal{}, err
		}
		return core.Goal{}, fmt.Errorf("scan goal: %w", err)
	}

	if g.ID, err = uuid.Parse(id); err != nil {
		return core.Goal{}, fmt.Errorf("parse goal id: %w", err)
	}
	if g.UserID, err = uuid.Parse(usrID); err != nil {
		return core.Goal{}, fmt.Errorf("parse goal user id: %w", err)
	}
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return core.Goal{}, fmt.Errorf("parse goal target amount: %w", err)
	}
	if g.SavedAmount, err = decimal.NewFromString(saved); err != nil {
		return core.Goal{}, fmt.Errorf("parse goal saved amount: %w", err)
	}
	g.Status = core.GoalStatus(status)
	if t, err := time.Parse(timeFormat, targetDate); err == nil {
		g.TargetDate = t
	}
	if t, err := time.Parse(timeFormat, created); err == nil {
		g.CreatedAt = t
	}
	if t, err := time.Parse(timeFormat, updated); err == nil {
		g.UpdatedAt = t
	}
	return g, nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error
	// text; there is no exported sentinel for them.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
