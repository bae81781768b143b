/*
service.go - Transactional entry point for every economy operation

PURPOSE:
  Service is what the HTTP layer and the scheduler call. Each mutating
  operation runs the same cycle:

    1. Lock the service (operations are serialized per process)
    2. Open a repository transaction (WithTx)
    3. Load State and replay the ledger into a Character
    4. Mutate State, queue ledger transactions, collect notifications
    5. Save touched sections and append the queued transactions
    6. Commit; on any error nothing is written

  Guard sets and the counters they protect therefore always land in the
  same commit. A crash between "mark awarded" and "credit bonus" cannot
  happen because both are one write.

READS:
  Read operations (Dashboard, Day, Transactions) load outside WithTx and
  recompute everything. Nothing derived is cached between calls.

NOTIFICATIONS:
  Operations return one-shot Notification values for the caller to
  display. They are not persisted.

SEE ALSO:
  - state.go: Aggregate loaded and saved here
  - tasks.go, instances.go, sidequests.go, objectives.go, shop.go
*/
package mission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
)

// Publisher is told about days whose completed work changed, after the
// change has been committed. Implementations must not block.
type Publisher interface {
	Publish(ctx context.Context, entityID generic.EntityID, day generic.Date)
}

type Service struct {
	Repo      generic.TxRepository
	Policy    Policy
	Clock     generic.Clock
	Logger    *slog.Logger
	Publisher Publisher

	mu sync.Mutex
}

func NewService(repo generic.TxRepository, policy Policy, clock generic.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Repo: repo, Policy: policy, Clock: clock, Logger: logger}
}

// Today is the service's current local date.
func (s *Service) Today() generic.Date {
	return generic.Today(s.Clock)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

// work is the scratchpad handed to a mutating operation.
type work struct {
	state    *State
	policy   Policy
	today    generic.Date
	existing []generic.Transaction
	pending  []generic.Transaction
	notes    []Notification
	publish  []generic.Date
}

// balance includes transactions queued earlier in the same operation.
func (w *work) balance() generic.Balance {
	scores := w.policy.Aggregate(w.state, w.today)
	all := append(append([]generic.Transaction(nil), w.existing...), w.pending...)
	return generic.NewBalance(scores.TaskEarnings, generic.FoldCharacter(all))
}

func (w *work) character() generic.Character {
	all := append(append([]generic.Transaction(nil), w.existing...), w.pending...)
	return generic.FoldCharacter(all)
}

// entry queues a ledger transaction. Zero amounts are dropped.
func (w *work) entry(pool generic.Pool, typ generic.TransactionType, amount decimal.Decimal, ref, reason, key string) {
	if amount.IsZero() {
		return
	}
	w.pending = append(w.pending, generic.Transaction{
		ID:             generic.TransactionID(uuid.NewString()),
		EntityID:       w.state.EntityID,
		Pool:           pool,
		EffectiveAt:    w.today,
		Delta:          generic.Credits(amount),
		Type:           typ,
		ReferenceID:    ref,
		Reason:         reason,
		IdempotencyKey: key,
		CreatedAt:      time.Now().UTC(),
	})
}

func (w *work) notify(n Notification) {
	w.notes = append(w.notes, n)
}

// awardDailyGrind checks d and credits the bonus in the same commit.
func (w *work) awardDailyGrind(d generic.Date) {
	n, ok := w.policy.AwardDailyGrind(w.state, d)
	if !ok {
		return
	}
	w.entry(generic.PoolBonuses, generic.TxDailyBonus, n.Amount, d.String(), "daily grind conquered", DailyGrindKey(w.state.EntityID, d))
	w.notify(n)
}

// update runs fn for a registered user. Unknown users are not created
// implicitly; Register is the only way in.
func (s *Service) update(ctx context.Context, entityID generic.EntityID, fn func(*work) error) (*work, error) {
	return s.transact(ctx, entityID, func(w *work) error {
		if !w.state.Exists() {
			return fmt.Errorf("user %s: %w", entityID, generic.ErrEntityNotFound)
		}
		return fn(w)
	})
}

// transact runs fn inside a repository transaction and persists the result.
func (s *Service) transact(ctx context.Context, entityID generic.EntityID, fn func(*work) error) (*work, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required: %w", generic.ErrEntityNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var w *work
	err := s.Repo.WithTx(ctx, func(repo generic.Repository) error {
		state, err := LoadState(ctx, repo, entityID, s.Policy)
		if err != nil {
			return err
		}
		txs, err := repo.Load(ctx, entityID)
		if err != nil {
			return fmt.Errorf("load ledger for %s: %w", entityID, err)
		}
		w = &work{state: state, policy: s.Policy, today: s.Today(), existing: txs}

		if err := fn(w); err != nil {
			return err
		}
		if err := state.Save(ctx, repo); err != nil {
			return err
		}
		if len(w.pending) > 0 {
			if err := generic.NewLedger(repo).AppendBatch(ctx, w.pending); err != nil {
				return fmt.Errorf("append ledger for %s: %w", entityID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		for _, d := range w.publish {
			s.Publisher.Publish(ctx, entityID, d)
		}
	}
	return w, nil
}

// =============================================================================
// READS
// =============================================================================

// Dashboard is the full derived view of one user.
type Dashboard struct {
	Today     generic.Date    `json:"today"`
	DailyGoal decimal.Decimal `json:"dailyGoal"`
	Scores
	Balance generic.Balance `json:"balance"`
}

// Snapshot loads the current state without opening a transaction.
func (s *Service) Snapshot(ctx context.Context, entityID generic.EntityID) (*State, error) {
	return LoadState(ctx, s.Repo, entityID, s.Policy)
}

func (s *Service) Dashboard(ctx context.Context, entityID generic.EntityID) (Dashboard, error) {
	state, err := s.Snapshot(ctx, entityID)
	if err != nil {
		return Dashboard{}, err
	}
	txs, err := s.Repo.Load(ctx, entityID)
	if err != nil {
		return Dashboard{}, err
	}
	today := s.Today()
	scores := s.Policy.Aggregate(state, today)
	return Dashboard{
		Today:     today,
		DailyGoal: state.Settings.DailyGoal,
		Scores:    scores,
		Balance:   generic.NewBalance(scores.TaskEarnings, generic.FoldCharacter(txs)),
	}, nil
}

// Balance is the current balance alone.
func (s *Service) Balance(ctx context.Context, entityID generic.EntityID) (generic.Balance, error) {
	d, err := s.Dashboard(ctx, entityID)
	if err != nil {
		return generic.Balance{}, err
	}
	return d.Balance, nil
}

// Day lists the instances scheduled on d.
func (s *Service) Day(ctx context.Context, entityID generic.EntityID, d generic.Date) ([]Instance, error) {
	state, err := s.Snapshot(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return state.InstancesForDate(d), nil
}

func (s *Service) Transactions(ctx context.Context, entityID generic.EntityID) ([]generic.Transaction, error) {
	return generic.NewLedger(s.Repo).Transactions(ctx, entityID)
}

func (s *Service) Users(ctx context.Context) ([]generic.EntityID, error) {
	return s.Repo.ListEntities(ctx)
}

// =============================================================================
// ACCOUNT
// =============================================================================

// Register creates the user's settings document if needed and grants the
// one-time funding bonus to a brand new account (no tasks, no templates,
// untouched counters).
func (s *Service) Register(ctx context.Context, entityID generic.EntityID) ([]Notification, error) {
	w, err := s.transact(ctx, entityID, func(w *work) error {
		st := w.state
		if !st.Exists() {
			st.touch(SectionSettings)
		}
		if len(st.Tasks) > 0 || len(st.Recurring) > 0 || !w.character().IsPristine() {
			return nil
		}
		w.entry(generic.PoolBonuses, generic.TxFunding, w.policy.FundingBonus, "", "account funded", FundingKey(st.EntityID))
		w.notify(Notification{Title: TitleAccountFunded, Amount: w.policy.FundingBonus})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w.notes, nil
}

// SetDailyGoal changes the streak threshold. Zero disables streaks.
func (s *Service) SetDailyGoal(ctx context.Context, entityID generic.EntityID, goal decimal.Decimal) error {
	if goal.IsNegative() {
		return fmt.Errorf("daily goal %s: %w", goal.String(), generic.ErrInvalidAmount)
	}
	_, err := s.update(ctx, entityID, func(w *work) error {
		w.state.Settings.DailyGoal = goal
		w.state.touch(SectionSettings)
		return nil
	})
	return err
}

// =============================================================================
// WAGER SETTLEMENT
// =============================================================================

// SettleBets runs the once-per-day lost bet sweep. The guard advances even
// when nothing was lost; the charge is one `spent` entry for the total.
func (s *Service) SettleBets(ctx context.Context, entityID generic.EntityID) (Settlement, []Notification, error) {
	var res Settlement
	w, err := s.update(ctx, entityID, func(w *work) error {
		res = SettleLostBets(w.state, w.today)
		if res.Ran && res.TotalLost.IsPositive() {
			w.entry(generic.PoolSpent, generic.TxBetLoss, res.TotalLost, w.today.String(),
				fmt.Sprintf("%d lost bet(s)", len(res.Lost)), BetSettlementKey(w.state.EntityID, w.today))
			w.notify(Notification{Title: TitleBetsSettled, Amount: res.TotalLost.Neg()})
		}
		return nil
	})
	if err != nil {
		return Settlement{}, nil, err
	}
	if res.Ran {
		s.logger().Info("bets settled",
			"entity", entityID,
			"date", res.Date.String(),
			"lost", len(res.Lost),
			"total_lost", res.TotalLost.StringFixed(2))
	}
	return res, w.notes, nil
}
