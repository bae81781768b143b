/*
wager.go - Wagering Subsystem

PURPOSE:
  Lets a user stake currency on finishing a mission for a multiplied
  payout, and settles unresolved stakes once their day is over.

STATE MACHINE (per instance):
  NoBet ──commit with stake──▶ Placed ──completed──▶ Won
                                  │
                                  └──day elapsed, swept──▶ Lost

  Placed → Won   happens synchronously on completion. The payout
                 (stake + stake*multiplier) goes to `bonuses`.
  Placed → Lost  happens ONLY in SettleLostBets, never synchronously.
                 The stake goes to `spent`.
  Won → Placed   happens only when a completed instance is marked
                 incomplete again; the payout is reversed by the caller.

SETTLEMENT SWEEP:
  Runs at most once per calendar day, guarded by LastBetSettlement.
  It scans all dates strictly before today:
    - single tasks, by date bucket
    - recurring completions, by completion-map date key
  Each Placed wager with betWon still unset becomes Lost; the stakes are
  summed and charged as ONE ledger entry in the same commit that
  advances the guard. Today's and future wagers are never touched.

VALIDATION:
  Stakes must be > 0 and <= current balance. Multipliers are clamped to
  the policy's odds bounds.

SEE ALSO:
  - service.go: SettleBets / CompleteInstance wire these into the store
  - narrative/odds.go: Multiplier quotes from the text service
*/
package mission

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
)

// Wager is embedded in tasks, completions and instances.
type Wager struct {
	BetPlaced     bool            `json:"betPlaced,omitempty"`
	BetAmount     decimal.Decimal `json:"betAmount"`
	BetMultiplier decimal.Decimal `json:"betMultiplier"`
	BetWon        *bool           `json:"betWon,omitempty"`
}

type WagerStatus string

const (
	NoBet  WagerStatus = "none"
	Placed WagerStatus = "placed"
	Won    WagerStatus = "won"
	Lost   WagerStatus = "lost"
)

func (w Wager) Status() WagerStatus {
	switch {
	case !w.BetPlaced:
		return NoBet
	case w.BetWon == nil:
		return Placed
	case *w.BetWon:
		return Won
	default:
		return Lost
	}
}

// Payout is stake + stake*multiplier.
func (w Wager) Payout() decimal.Decimal {
	return w.BetAmount.Add(w.Winnings())
}

// Winnings is the profit part of the payout.
func (w Wager) Winnings() decimal.Decimal {
	return w.BetAmount.Mul(w.BetMultiplier)
}

// BetSlip is a stake the caller wants to place at commit time.
type BetSlip struct {
	Stake      decimal.Decimal `json:"stake"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// PlaceBet validates the slip against the balance and returns a Placed
// wager. No state is touched on error.
func (p Policy) PlaceBet(slip BetSlip, balance generic.Balance) (Wager, error) {
	stake := generic.Credits(slip.Stake)
	if !stake.IsPositive() {
		return Wager{}, &InvalidStakeError{Stake: slip.Stake, Reason: "stake must be positive"}
	}
	if !balance.CanAfford(stake) {
		return Wager{}, &InvalidStakeError{
			Stake:  slip.Stake,
			Reason: "stake exceeds balance",
			Err:    &generic.InsufficientBalanceError{Available: balance.Current, Requested: stake},
		}
	}
	return Wager{
		BetPlaced:     true,
		BetAmount:     slip.Stake,
		BetMultiplier: p.Odds.Clamp(slip.Multiplier),
	}, nil
}

// win moves Placed → Won and reports the payout. Other states are left alone.
func (w *Wager) win() (decimal.Decimal, bool) {
	if w.Status() != Placed {
		return decimal.Zero, false
	}
	won := true
	w.BetWon = &won
	return w.Payout(), true
}

// reopen moves Won → Placed and reports the payout to reverse.
func (w *Wager) reopen() (decimal.Decimal, bool) {
	if w.Status() != Won {
		return decimal.Zero, false
	}
	w.BetWon = nil
	return w.Payout(), true
}

func (w *Wager) lose() decimal.Decimal {
	lost := false
	w.BetWon = &lost
	return w.BetAmount
}

// =============================================================================
// SETTLEMENT SWEEP
// =============================================================================

// Settlement reports what a sweep did.
type Settlement struct {
	Date      generic.Date    `json:"date"`
	Ran       bool            `json:"ran"`
	TotalLost decimal.Decimal `json:"totalLost"`
	Lost      []string        `json:"lost"`
}

// SettleLostBets runs the once-per-day sweep against today. If the guard
// already equals today it returns Ran=false and changes nothing. Otherwise
// it marks every unresolved past wager Lost, advances the guard, and
// returns the total the caller must charge to `spent` in the same write.
func SettleLostBets(s *State, today generic.Date) Settlement {
	res := Settlement{Date: today, TotalLost: decimal.Zero}
	if s.LastBetSettlement == today {
		return res
	}
	res.Ran = true

	for d, bucket := range s.Tasks {
		if !d.Before(today) {
			continue
		}
		for i := range bucket {
			t := &bucket[i]
			if t.Completed || t.Status() != Placed {
				continue
			}
			res.TotalLost = res.TotalLost.Add(t.lose())
			res.Lost = append(res.Lost, t.ID)
			s.touch(SectionTasks)
		}
	}

	for i := range s.Recurring {
		rt := &s.Recurring[i]
		for d, c := range rt.Completions {
			if !d.Before(today) || c.Completed || c.Status() != Placed {
				continue
			}
			res.TotalLost = res.TotalLost.Add(c.lose())
			rt.Completions[d] = c
			res.Lost = append(res.Lost, InstanceID(rt.ID, d))
			s.touch(SectionRecurring)
		}
	}

	sort.Strings(res.Lost)
	s.LastBetSettlement = today
	s.touch(SectionLastBetSettlement)
	return res
}
