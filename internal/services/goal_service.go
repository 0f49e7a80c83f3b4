package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"risparmi/internal/amqp"
	"risparmi/internal/core"
	"risparmi/internal/ledger"
)

// GoalService reconciles goals with their linked ledger entries. Every
// mutation keeps three things consistent: the goal's own fields, the
// synthetic "Saving for: X" transactions, and the user's overall
// savings sufficiency.
//
// Mutations are serialized per goal id. The multi-step delete-then-
// insert sequence inside Update is still not atomic across storage
// calls; when it fails halfway the error says what was already removed.
type GoalService struct {
	store      Store
	reader     *ledger.Reader
	writer     *TransactionWriter
	amqpClient *amqp.Client
	locks      *keyedMutex
	now        func() time.Time
}

func NewGoalService(store Store, amqpClient *amqp.Client) *GoalService {
	return &GoalService{
		store:      store,
		reader:     ledger.NewReader(store),
		writer:     NewTransactionWriter(store),
		amqpClient: amqpClient,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

// GoalResult is a goal together with its derived presentation figures.
type GoalResult struct {
	Goal      core.Goal
	Progress  decimal.Decimal
	Remaining decimal.Decimal
}

// CreateGoalInput carries the fields for a new goal.
type CreateGoalInput struct {
	UserID       uuid.UUID
	Description  string
	TargetAmount decimal.Decimal
	TargetDate   time.Time
	Icon         string
}

// UpdateGoalInput carries a partial goal edit. Nil fields stay
// untouched.
type UpdateGoalInput struct {
	UserID uuid.UUID
	GoalID uuid.UUID

	Description  *string
	TargetAmount *decimal.Decimal
	SavedAmount  *decimal.Decimal
	TargetDate   *time.Time
	Status       *core.GoalStatus
	Icon         *string
}

func result(g core.Goal) GoalResult {
	return GoalResult{Goal: g, Progress: g.Progress(), Remaining: g.Remaining()}
}

// CumulativeSavings exposes the user's all-time net savings.
func (s *GoalService) CumulativeSavings(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return s.reader.CumulativeSavings(ctx, userID)
}

// MonthlyNets exposes the per-month aggregates behind the cumulative
// figure.
func (s *GoalService) MonthlyNets(ctx context.Context, userID uuid.UUID) ([]ledger.MonthlyNet, error) {
	return s.reader.MonthlyNets(ctx, userID)
}

// GetGoal returns one goal with derived figures.
func (s *GoalService) GetGoal(ctx context.Context, userID, goalID uuid.UUID) (GoalResult, error) {
	g, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return GoalResult{}, err
	}
	return result(*g), nil
}

// ListGoals returns all of a user's goals with derived figures.
func (s *GoalService) ListGoals(ctx context.Context, userID uuid.UUID) ([]GoalResult, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	results := make([]GoalResult, len(goals))
	for i, g := range goals {
		results[i] = result(g)
	}
	return results, nil
}

// GoalEvents returns the user's goal lifecycle audit trail, oldest
// first. Rows appear once the event worker has drained the queue.
func (s *GoalService) GoalEvents(ctx context.Context, userID uuid.UUID) ([]core.GoalEvent, error) {
	events, err := s.store.ListGoalEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goal events: %w", err)
	}
	return events, nil
}

// CreateGoal validates and persists a new goal with nothing saved yet.
func (s *GoalService) CreateGoal(ctx context.Context, in CreateGoalInput) (GoalResult, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return GoalResult{}, core.Validationf("empty description")
	}
	if !in.TargetAmount.IsPositive() {
		return GoalResult{}, core.Validationf("target amount must be positive")
	}
	if err := s.requireFutureDate(in.TargetDate); err != nil {
		return GoalResult{}, err
	}

	existing, err := s.store.GetGoalByDescription(ctx, in.UserID, description, uuid.Nil)
	if err != nil {
		return GoalResult{}, fmt.Errorf("check description uniqueness: %w", err)
	}
	if existing != nil {
		return GoalResult{}, core.Conflictf("goal %q already exists", description)
	}

	g, err := s.store.InsertGoal(ctx, core.Goal{
		UserID:       in.UserID,
		Description:  description,
		TargetAmount: in.TargetAmount,
		SavedAmount:  decimal.Zero,
		TargetDate:   in.TargetDate.UTC(),
		Status:       core.StatusActive,
		Icon:         in.Icon,
	})
	if err != nil {
		return GoalResult{}, err
	}

	s.publishEvent(ctx, g, amqp.EventGoalCreated, decimal.Zero)
	return result(g), nil
}

// ContributeToGoal moves part of the user's general savings into a
// goal. The contribution is capped at the goal's remaining amount and
// at the user's actual cumulative savings.
func (s *GoalService) ContributeToGoal(ctx context.Context, userID, goalID uuid.UUID, amount decimal.Decimal) (GoalResult, error) {
	if !amount.IsPositive() {
		return GoalResult{}, core.Validationf("contribution amount must be positive")
	}

	unlock := s.locks.Lock(goalID.String())
	defer unlock()

	g, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return GoalResult{}, err
	}
	if g.Status != core.StatusActive {
		return GoalResult{}, core.Conflictf("goal %q is %s, contributions need an active goal", g.Description, g.Status)
	}

	remaining := g.TargetAmount.Sub(g.SavedAmount)
	if !remaining.IsPositive() {
		// Guard; an active goal should never be fully funded.
		return GoalResult{}, core.Conflictf("goal %q is already fully funded", g.Description)
	}

	// Never overshoot the target, regardless of what the client asked.
	actual := decimal.Min(amount, remaining)

	available, err := s.reader.CumulativeSavings(ctx, userID)
	if err != nil {
		return GoalResult{}, err
	}
	if actual.GreaterThan(available) {
		return GoalResult{}, &core.InsufficientFundsError{Requested: actual, Available: available}
	}

	closed, err := s.writer.HasMonthlySummaryForCurrentMonth(ctx, userID)
	if err != nil {
		return GoalResult{}, err
	}
	if closed {
		return GoalResult{}, core.Conflictf("a monthly summary already closes the current month, remove it before contributing")
	}

	if err := s.writer.CreateContribution(ctx, userID, g.Description, actual); err != nil {
		return GoalResult{}, err
	}

	g.SavedAmount = g.SavedAmount.Add(actual)
	if g.SavedAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.SavedAmount = g.TargetAmount
		g.Status = core.StatusAchieved
	}

	updated, err := s.store.UpdateGoal(ctx, *g)
	if err != nil {
		return GoalResult{}, err
	}

	slog.InfoContext(ctx, "Contribution applied",
		"goal_id", updated.ID,
		"user_id", userID,
		"requested", amount,
		"applied", actual,
		"saved_amount", updated.SavedAmount,
		"status", updated.Status)

	if updated.Status == core.StatusAchieved {
		s.publishEvent(ctx, updated, amqp.EventGoalAchieved, updated.SavedAmount)
	}

	return result(updated), nil
}

// UpdateGoal applies a partial edit, rewriting the goal's linked
// transactions whenever the effective saved amount or the linkage
// description changes.
func (s *GoalService) UpdateGoal(ctx context.Context, in UpdateGoalInput) (GoalResult, error) {
	unlock := s.locks.Lock(in.GoalID.String())
	defer unlock()

	g, err := s.ownedGoal(ctx, in.UserID, in.GoalID)
	if err != nil {
		return GoalResult{}, err
	}

	originalDescription := g.Description
	originalSaved := g.SavedAmount
	originalStatus := g.Status

	newDescription := originalDescription
	if in.Description != nil {
		newDescription = strings.TrimSpace(*in.Description)
		if newDescription == "" {
			return GoalResult{}, core.Validationf("empty description")
		}
		if core.NormalizeDescription(newDescription) != core.NormalizeDescription(originalDescription) {
			other, err := s.store.GetGoalByDescription(ctx, in.UserID, newDescription, g.ID)
			if err != nil {
				return GoalResult{}, fmt.Errorf("check description uniqueness: %w", err)
			}
			if other != nil {
				return GoalResult{}, core.Conflictf("goal %q already exists", newDescription)
			}
		}
	}

	newTarget := g.TargetAmount
	if in.TargetAmount != nil {
		if !in.TargetAmount.IsPositive() {
			return GoalResult{}, core.Validationf("target amount must be positive")
		}
		newTarget = *in.TargetAmount
	}

	newStatus := g.Status
	if in.Status != nil {
		if !in.Status.Valid() {
			return GoalResult{}, core.Validationf("invalid status %q", *in.Status)
		}
		newStatus = *in.Status
	}

	// Reactivating an achieved or archived goal needs a fresh future
	// target date supplied in the same edit.
	if newStatus == core.StatusActive && g.Status != core.StatusActive {
		if in.TargetDate == nil {
			return GoalResult{}, core.Validationf("reactivating a goal requires a future target date")
		}
	}
	if in.TargetDate != nil && newStatus == core.StatusActive {
		if err := s.requireFutureDate(*in.TargetDate); err != nil {
			return GoalResult{}, err
		}
	}

	// Effective saved amount: an explicit override wins, then the
	// achieved status forces it to the target, and a target reduction
	// clamps it. The linked transactions are rewritten from this same
	// figure, so the cache and the ledger stay equal.
	effectiveSaved := originalSaved
	if in.SavedAmount != nil {
		if in.SavedAmount.IsNegative() {
			return GoalResult{}, core.Validationf("saved amount cannot be negative")
		}
		effectiveSaved = *in.SavedAmount
	}
	if effectiveSaved.GreaterThan(newTarget) {
		effectiveSaved = newTarget
	}
	if newStatus == core.StatusAchieved {
		effectiveSaved = newTarget
	}

	descriptionChanged := newDescription != originalDescription
	relink := !effectiveSaved.Equal(originalSaved) ||
		(descriptionChanged && originalSaved.IsPositive())

	if relink {
		prior, err := s.writer.SumContributions(ctx, in.UserID, originalDescription)
		if err != nil {
			return GoalResult{}, err
		}

		deleted, err := s.writer.DeleteContributions(ctx, in.UserID, originalDescription)
		if err != nil {
			return GoalResult{}, err
		}

		slog.InfoContext(ctx, "Relinking goal transactions",
			"goal_id", g.ID,
			"old_description", originalDescription,
			"new_description", newDescription,
			"prior_sum", prior,
			"deleted_count", deleted,
			"new_saved_amount", effectiveSaved)

		if effectiveSaved.IsPositive() {
			// Past this point the old transactions are gone and there
			// is no rollback; every rejection has to say so.
			closed, err := s.writer.HasMonthlySummaryForCurrentMonth(ctx, in.UserID)
			if err != nil {
				return GoalResult{}, err
			}
			if closed {
				return GoalResult{}, core.Conflictf("a monthly summary already closes the current month; previously linked transactions were already removed, manual correction may be required")
			}

			available, err := s.reader.CumulativeSavings(ctx, in.UserID)
			if err != nil {
				return GoalResult{}, err
			}
			if effectiveSaved.GreaterThan(available) {
				return GoalResult{}, &core.InsufficientFundsError{
					Requested:    effectiveSaved,
					Available:    available,
					PriorRemoved: true,
				}
			}

			icon := g.Icon
			if in.Icon != nil {
				icon = *in.Icon
			}
			if err := s.writer.CreateConsolidatedContribution(ctx, in.UserID, newDescription, effectiveSaved, icon); err != nil {
				return GoalResult{}, err
			}
		}
	}

	g.Description = newDescription
	g.TargetAmount = newTarget
	g.SavedAmount = effectiveSaved
	g.Status = newStatus
	if in.TargetDate != nil {
		g.TargetDate = in.TargetDate.UTC()
	}
	if in.Icon != nil {
		g.Icon = *in.Icon
	}

	// Final consistency clamp: a goal that just reached its target is
	// achieved, whatever the caller said.
	if g.Status == core.StatusActive && g.SavedAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.Status = core.StatusAchieved
	}

	updated, err := s.store.UpdateGoal(ctx, *g)
	if err != nil {
		return GoalResult{}, err
	}

	if updated.Status == core.StatusAchieved && originalStatus != core.StatusAchieved {
		s.publishEvent(ctx, updated, amqp.EventGoalAchieved, updated.SavedAmount)
	}

	return result(updated), nil
}

// DeleteGoal removes a goal and its linked transactions. Transactions
// go first: a crash in between leaves an orphaned goal, which is
// recoverable, instead of stale entries silently counted into future
// cumulative savings.
func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID uuid.UUID) error {
	unlock := s.locks.Lock(goalID.String())
	defer unlock()

	g, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return err
	}

	deleted, err := s.writer.DeleteContributions(ctx, userID, g.Description)
	if err != nil {
		return err
	}

	existed, err := s.store.DeleteGoal(ctx, goalID)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("%w: goal %s", core.ErrNotFound, goalID)
	}

	slog.InfoContext(ctx, "Goal deleted",
		"goal_id", goalID,
		"user_id", userID,
		"description", g.Description,
		"transactions_removed", deleted)

	s.publishEvent(ctx, *g, amqp.EventGoalDeleted, g.SavedAmount)
	return nil
}

func (s *GoalService) ownedGoal(ctx context.Context, userID, goalID uuid.UUID) (*core.Goal, error) {
	g, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("find goal: %w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("%w: goal %s", core.ErrNotFound, goalID)
	}
	if g.UserID != userID {
		return nil, fmt.Errorf("%w: goal %s belongs to another user", core.ErrForbidden, goalID)
	}
	return g, nil
}

func (s *GoalService) requireFutureDate(d time.Time) error {
	if d.IsZero() {
		return core.Validationf("missing target date")
	}
	dayStart := s.now().UTC().Truncate(24 * time.Hour)
	if !d.After(dayStart) {
		return core.Validationf("target date must be in the future")
	}
	return nil
}

func (s *GoalService) publishEvent(ctx context.Context, g core.Goal, event string, amount decimal.Decimal) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping goal event", "event", event)
		return
	}

	msg := amqp.NewGoalEventMessage(g.ID.String(), g.UserID.String(), event, g.Description, amount.String())
	if err := s.amqpClient.PublishGoalEvent(ctx, msg); err != nil {
		// Events are best effort; the mutation already committed.
		slog.ErrorContext(ctx, "Failed to publish goal event",
			"goal_id", g.ID, "event", event, "error", err)
	}
}
