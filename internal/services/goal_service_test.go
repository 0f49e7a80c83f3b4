package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"risparmi/internal/core"
)

// fakeStore is an in-memory Store for service tests. It mimics the
// repository's ordering contract: transactions come back in creation
// order.
type fakeStore struct {
	mu    sync.Mutex
	seq   int
	txs   []core.Transaction
	goals map[uuid.UUID]core.Goal

	deleteContributionCalls int
	listErr                 error
}

func newFakeStore() *fakeStore {
	return &fakeStore{goals: make(map[uuid.UUID]core.Goal)}
}

func (f *fakeStore) InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	f.seq++
	tx.CreatedAt = time.Unix(int64(f.seq), 0)
	f.txs = append(f.txs, tx)
	return tx, nil
}

func (f *fakeStore) ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) ListContributions(ctx context.Context, userID uuid.UUID, goalDescription string) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := core.ContributionDescription(goalDescription)
	var out []core.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID && tx.Category == core.CategoryGoalSavings && tx.Description == want {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteContributions(ctx context.Context, userID uuid.UUID, goalDescription string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteContributionCalls++
	want := core.ContributionDescription(goalDescription)
	var kept []core.Transaction
	var removed int64
	for _, tx := range f.txs {
		if tx.UserID == userID && tx.Category == core.CategoryGoalSavings && tx.Description == want {
			removed++
			continue
		}
		kept = append(kept, tx)
	}
	f.txs = kept
	return removed, nil
}

func (f *fakeStore) CountMonthlySummaries(ctx context.Context, userID uuid.UUID, monthKey string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, tx := range f.txs {
		if tx.UserID == userID && tx.Kind == core.MonthlySavings && core.MonthKey(tx.Date) == monthKey {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) GetGoal(ctx context.Context, id uuid.UUID) (*core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (f *fakeStore) GetGoalByDescription(ctx context.Context, userID uuid.UUID, description string, excludeID uuid.UUID) (*core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	norm := core.NormalizeDescription(description)
	for _, g := range f.goals {
		if g.UserID == userID && g.ID != excludeID && core.NormalizeDescription(g.Description) == norm {
			goal := g
			return &goal, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	g.CreatedAt = time.Now().UTC()
	g.UpdatedAt = g.CreatedAt
	f.goals[g.ID] = g
	return g, nil
}

func (f *fakeStore) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.goals[g.ID]; !ok {
		return core.Goal{}, core.ErrNotFound
	}
	g.UpdatedAt = time.Now().UTC()
	f.goals[g.ID] = g
	return g, nil
}

func (f *fakeStore) DeleteGoal(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.goals[id]; !ok {
		return false, nil
	}
	delete(f.goals, id)
	return true, nil
}

func (f *fakeStore) ListGoals(ctx context.Context, userID uuid.UUID) ([]core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Goal
	for _, g := range f.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out, nil
}

func (f *fakeStore) ListGoalEvents(ctx context.Context, userID uuid.UUID) ([]core.GoalEvent, error) {
	return nil, nil
}

type GoalServiceSuite struct {
	suite.Suite
	store *fakeStore
	svc   *GoalService
	user  uuid.UUID
	ctx   context.Context
}

func (s *GoalServiceSuite) SetupTest() {
	s.store = newFakeStore()
	s.svc = NewGoalService(s.store, nil)
	s.user = uuid.New()
	s.ctx = context.Background()
}

func (s *GoalServiceSuite) dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	require.NoError(s.T(), err)
	return d
}

func (s *GoalServiceSuite) seedTransaction(kind core.TransactionKind, amount string, date time.Time) {
	_, err := s.store.InsertTransaction(s.ctx, core.Transaction{
		UserID:      s.user,
		Kind:        kind,
		Amount:      s.dec(amount),
		Description: "seed",
		Date:        date,
	})
	require.NoError(s.T(), err)
}

func (s *GoalServiceSuite) seedSavings(amount string) {
	// Dated two months back so the current-month summary guard never
	// trips on seed data.
	s.seedTransaction(core.Income, amount, time.Now().UTC().AddDate(0, -2, 0))
}

func (s *GoalServiceSuite) createGoal(description, target string) GoalResult {
	res, err := s.svc.CreateGoal(s.ctx, CreateGoalInput{
		UserID:       s.user,
		Description:  description,
		TargetAmount: s.dec(target),
		TargetDate:   time.Now().UTC().AddDate(0, 1, 0),
	})
	require.NoError(s.T(), err)
	return res
}

func (s *GoalServiceSuite) contributionSum(description string) decimal.Decimal {
	sum, err := NewTransactionWriter(s.store).SumContributions(s.ctx, s.user, description)
	require.NoError(s.T(), err)
	return sum
}

func (s *GoalServiceSuite) TestCreateGoalValidations() {
	futureDate := time.Now().UTC().AddDate(0, 1, 0)

	cases := []struct {
		name string
		in   CreateGoalInput
	}{
		{"empty description", CreateGoalInput{UserID: s.user, Description: "   ", TargetAmount: s.dec("10"), TargetDate: futureDate}},
		{"zero target", CreateGoalInput{UserID: s.user, Description: "Bike", TargetAmount: decimal.Zero, TargetDate: futureDate}},
		{"past date", CreateGoalInput{UserID: s.user, Description: "Bike", TargetAmount: s.dec("10"), TargetDate: time.Now().UTC().AddDate(0, 0, -1)}},
	}
	for _, tc := range cases {
		_, err := s.svc.CreateGoal(s.ctx, tc.in)
		assert.ErrorIs(s.T(), err, core.ErrValidation, tc.name)
	}
	assert.Empty(s.T(), s.store.goals, "validation failures must not persist anything")
}

func (s *GoalServiceSuite) TestCreateGoalDuplicateDescriptionCaseInsensitive() {
	s.createGoal("New Bike", "500")

	_, err := s.svc.CreateGoal(s.ctx, CreateGoalInput{
		UserID:       s.user,
		Description:  "  new bike ",
		TargetAmount: s.dec("100"),
		TargetDate:   time.Now().UTC().AddDate(0, 1, 0),
	})
	assert.ErrorIs(s.T(), err, core.ErrConflict)
}

func (s *GoalServiceSuite) TestCreateGoalStartsEmptyAndActive() {
	res := s.createGoal("Bike", "500")
	assert.True(s.T(), res.Goal.SavedAmount.IsZero())
	assert.Equal(s.T(), core.StatusActive, res.Goal.Status)
	assert.True(s.T(), res.Progress.IsZero())
	assert.True(s.T(), res.Remaining.Equal(s.dec("500")))
}

func (s *GoalServiceSuite) TestContributeCapsAtRemainingAndAchieves() {
	// Income 1000 and expense 200 leave 800 of savings.
	s.seedTransaction(core.Income, "1000", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
	s.seedTransaction(core.Expense, "200", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))

	goal := s.createGoal("Bike", "500")

	first, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("300"))
	require.NoError(s.T(), err)
	assert.True(s.T(), first.Goal.SavedAmount.Equal(s.dec("300")))
	assert.Equal(s.T(), core.StatusActive, first.Goal.Status)
	assert.True(s.T(), first.Remaining.Equal(s.dec("200")))

	// Second contribution asks for 300 but only 200 remains.
	second, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("300"))
	require.NoError(s.T(), err)
	assert.True(s.T(), second.Goal.SavedAmount.Equal(s.dec("500")))
	assert.Equal(s.T(), core.StatusAchieved, second.Goal.Status)
	assert.True(s.T(), second.Progress.Equal(s.dec("100")))
	assert.True(s.T(), second.Remaining.IsZero())

	// Ledger consistency: linked transactions sum to the cached amount.
	assert.True(s.T(), s.contributionSum("Bike").Equal(s.dec("500")))
}

func (s *GoalServiceSuite) TestContributeRejectsNonPositiveAmount() {
	goal := s.createGoal("Bike", "500")
	_, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, decimal.Zero)
	assert.ErrorIs(s.T(), err, core.ErrValidation)
}

func (s *GoalServiceSuite) TestContributeInsufficientSavings() {
	s.seedSavings("100")
	goal := s.createGoal("Bike", "500")

	_, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("300"))
	require.ErrorIs(s.T(), err, core.ErrInsufficientFunds)

	var ife *core.InsufficientFundsError
	require.ErrorAs(s.T(), err, &ife)
	assert.True(s.T(), ife.Available.Equal(s.dec("100")))
	assert.Contains(s.T(), err.Error(), "100.00", "error must state the available figure")
	assert.True(s.T(), s.contributionSum("Bike").IsZero(), "no transaction on rejection")
}

func (s *GoalServiceSuite) TestContributeNeverExceedsCumulativeSavings() {
	s.seedSavings("250")
	goal := s.createGoal("Bike", "500")

	res, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("250"))
	require.NoError(s.T(), err)
	assert.True(s.T(), res.Goal.SavedAmount.Equal(s.dec("250")))

	// The first contribution consumed all general savings.
	_, err = s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("1"))
	assert.ErrorIs(s.T(), err, core.ErrInsufficientFunds)
}

func (s *GoalServiceSuite) TestContributeRequiresActiveGoal() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")

	archived := core.StatusArchived
	_, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, Status: &archived})
	require.NoError(s.T(), err)

	_, err = s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("100"))
	assert.ErrorIs(s.T(), err, core.ErrConflict)
}

func (s *GoalServiceSuite) TestContributeGoalNotFoundAndForbidden() {
	_, err := s.svc.ContributeToGoal(s.ctx, s.user, uuid.New(), s.dec("10"))
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")
	_, err = s.svc.ContributeToGoal(s.ctx, uuid.New(), goal.Goal.ID, s.dec("10"))
	assert.ErrorIs(s.T(), err, core.ErrForbidden)
}

func (s *GoalServiceSuite) TestContributeBlockedByMonthlySummary() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")

	// A manual summary closes the current month.
	s.seedTransaction(core.MonthlySavings, "400", time.Now().UTC())

	before := s.store.deleteContributionCalls
	_, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("100"))
	assert.ErrorIs(s.T(), err, core.ErrConflict)
	assert.Equal(s.T(), before, s.store.deleteContributionCalls, "contribute path must not delete transactions")
	assert.True(s.T(), s.contributionSum("Bike").IsZero())
}

func (s *GoalServiceSuite) TestUpdateRenameRelinksTransactions() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")
	_, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("100"))
	require.NoError(s.T(), err)
	_, err = s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("200"))
	require.NoError(s.T(), err)

	car := "Car"
	res, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, Description: &car})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Car", res.Goal.Description)
	assert.True(s.T(), res.Goal.SavedAmount.Equal(s.dec("300")))

	// The two Bike entries are replaced by one consolidated Car entry.
	assert.True(s.T(), s.contributionSum("Bike").IsZero())
	assert.True(s.T(), s.contributionSum("Car").Equal(s.dec("300")))
	carTxs, err := s.store.ListContributions(s.ctx, s.user, "Car")
	require.NoError(s.T(), err)
	assert.Len(s.T(), carTxs, 1)
}

func (s *GoalServiceSuite) TestUpdateRenameWithNothingSavedSkipsRelink() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")

	before := s.store.deleteContributionCalls
	car := "Car"
	_, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, Description: &car})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), before, s.store.deleteContributionCalls)
}

func (s *GoalServiceSuite) TestUpdateSavedAmountOverride() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")

	saved := s.dec("250")
	res, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, SavedAmount: &saved})
	require.NoError(s.T(), err)
	assert.True(s.T(), res.Goal.SavedAmount.Equal(s.dec("250")))
	assert.True(s.T(), s.contributionSum("Bike").Equal(s.dec("250")))
}

func (s *GoalServiceSuite) TestUpdateSavedAmountCappedAtTarget() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")

	saved := s.dec("900")
	res, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, SavedAmount: &saved})
	require.NoError(s.T(), err)
	assert.True(s.T(), res.Goal.SavedAmount.Equal(s.dec("500")))
	assert.Equal(s.T(), core.StatusAchieved, res.Goal.Status, "reaching the target flips an active goal to achieved")
	assert.True(s.T(), s.contributionSum("Bike").Equal(s.dec("500")))
}

func (s *GoalServiceSuite) TestUpdateNegativeSavedAmountRejected() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")

	saved := s.dec("-1")
	_, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, SavedAmount: &saved})
	assert.ErrorIs(s.T(), err, core.ErrValidation)
}

func (s *GoalServiceSuite) TestUpdateInsufficientSavingsAfterDeletion() {
	s.seedSavings("400")
	goal := s.createGoal("Bike", "500")
	_, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("300"))
	require.NoError(s.T(), err)

	// 450 exceeds the recomputed savings (400 once the old linked
	// transactions are excluded again).
	saved := s.dec("450")
	_, err = s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, SavedAmount: &saved})
	require.ErrorIs(s.T(), err, core.ErrInsufficientFunds)
	assert.Contains(s.T(), err.Error(), "previously linked transactions were already removed")
	assert.Contains(s.T(), err.Error(), "400.00", "error must state the available figure")

	// Known gap: the old transactions are gone and nothing replaced
	// them.
	assert.True(s.T(), s.contributionSum("Bike").IsZero())
}

func (s *GoalServiceSuite) TestUpdateBlockedByMonthlySummaryAfterDeletion() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")
	_, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("300"))
	require.NoError(s.T(), err)

	s.seedTransaction(core.MonthlySavings, "200", time.Now().UTC())

	saved := s.dec("350")
	_, err = s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, SavedAmount: &saved})
	require.ErrorIs(s.T(), err, core.ErrConflict)
	assert.Contains(s.T(), err.Error(), "previously linked transactions were already removed")
	assert.True(s.T(), s.contributionSum("Bike").IsZero())
}

func (s *GoalServiceSuite) TestUpdateAchievedForcesSavedToTarget() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")
	_, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("100"))
	require.NoError(s.T(), err)

	achieved := core.StatusAchieved
	override := s.dec("200") // ignored: achieved wins
	res, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{
		UserID:      s.user,
		GoalID:      goal.Goal.ID,
		Status:      &achieved,
		SavedAmount: &override,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.StatusAchieved, res.Goal.Status)
	assert.True(s.T(), res.Goal.SavedAmount.Equal(s.dec("500")))
	assert.True(s.T(), s.contributionSum("Bike").Equal(s.dec("500")))
}

func (s *GoalServiceSuite) TestUpdateAchievedGoalAllowsPastTargetDate() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")

	achieved := core.StatusAchieved
	_, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, Status: &achieved})
	require.NoError(s.T(), err)

	past := time.Now().UTC().AddDate(0, 0, -10)
	res, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, TargetDate: &past})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.StatusAchieved, res.Goal.Status)
}

func (s *GoalServiceSuite) TestUpdateReactivationNeedsFutureDate() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")

	archived := core.StatusArchived
	_, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, Status: &archived})
	require.NoError(s.T(), err)

	active := core.StatusActive
	_, err = s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, Status: &active})
	assert.ErrorIs(s.T(), err, core.ErrValidation)

	future := time.Now().UTC().AddDate(0, 2, 0)
	res, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{
		UserID:     s.user,
		GoalID:     goal.Goal.ID,
		Status:     &active,
		TargetDate: &future,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.StatusActive, res.Goal.Status)
}

func (s *GoalServiceSuite) TestUpdateTargetReductionClampsSaved() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")
	_, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("300"))
	require.NoError(s.T(), err)

	target := s.dec("200")
	res, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, TargetAmount: &target})
	require.NoError(s.T(), err)
	assert.True(s.T(), res.Goal.SavedAmount.Equal(s.dec("200")))
	assert.Equal(s.T(), core.StatusAchieved, res.Goal.Status)
	assert.True(s.T(), s.contributionSum("Bike").Equal(s.dec("200")))
}

func (s *GoalServiceSuite) TestUpdateDuplicateDescriptionRejected() {
	s.seedSavings("1000")
	s.createGoal("Car", "900")
	goal := s.createGoal("Bike", "500")

	dup := "car"
	_, err := s.svc.UpdateGoal(s.ctx, UpdateGoalInput{UserID: s.user, GoalID: goal.Goal.ID, Description: &dup})
	assert.ErrorIs(s.T(), err, core.ErrConflict)
}

func (s *GoalServiceSuite) TestDeleteGoalRemovesLinkedTransactions() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")
	_, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("300"))
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.svc.DeleteGoal(s.ctx, s.user, goal.Goal.ID))

	assert.True(s.T(), s.contributionSum("Bike").IsZero())
	g, err := s.store.GetGoal(s.ctx, goal.Goal.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), g)

	// Deleting the linked transactions restores the general savings.
	total, err := s.svc.CumulativeSavings(s.ctx, s.user)
	require.NoError(s.T(), err)
	assert.True(s.T(), total.Equal(s.dec("1000")))
}

func (s *GoalServiceSuite) TestDeleteGoalOwnership() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")

	err := s.svc.DeleteGoal(s.ctx, uuid.New(), goal.Goal.ID)
	assert.ErrorIs(s.T(), err, core.ErrForbidden)

	err = s.svc.DeleteGoal(s.ctx, s.user, uuid.New())
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *GoalServiceSuite) TestStorageErrorPropagates() {
	s.seedSavings("1000")
	goal := s.createGoal("Bike", "500")

	boom := errors.New("query failed")
	s.store.listErr = boom
	_, err := s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("10"))
	assert.ErrorIs(s.T(), err, boom)
}

func (s *GoalServiceSuite) TestConcurrentContributionsNeverOvershoot() {
	s.seedSavings("10000")
	goal := s.createGoal("Bike", "500")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Failures are fine (fully funded); overshooting is not.
			s.svc.ContributeToGoal(s.ctx, s.user, goal.Goal.ID, s.dec("100")) //nolint:errcheck
		}()
	}
	wg.Wait()

	g, err := s.store.GetGoal(s.ctx, goal.Goal.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), g)
	assert.True(s.T(), g.SavedAmount.LessThanOrEqual(s.dec("500")),
		"saved %s exceeds target", g.SavedAmount)
	assert.True(s.T(), s.contributionSum("Bike").Equal(g.SavedAmount),
		"ledger and cache diverged")
}

func (s *GoalServiceSuite) TestListGoals() {
	s.createGoal("Bike", "500")
	s.createGoal("Car", "900")

	goals, err := s.svc.ListGoals(s.ctx, s.user)
	require.NoError(s.T(), err)
	require.Len(s.T(), goals, 2)

	descriptions := []string{goals[0].Goal.Description, goals[1].Goal.Description}
	assert.True(s.T(), strings.Contains(strings.Join(descriptions, ","), "Bike"))
	assert.True(s.T(), strings.Contains(strings.Join(descriptions, ","), "Car"))
}

func TestGoalServiceSuite(t *testing.T) {
	suite.Run(t, new(GoalServiceSuite))
}
