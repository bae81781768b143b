/*
scheduler.go - Automated bet settlement scheduler

PURPOSE:
  Sweeps every user's unresolved wagers from past days into losses.
  Settlement is otherwise only triggered by POST /settlement; the
  scheduler guarantees it also happens for users who never call it.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start, then on every tick
  - Calls Service.SettleBets for each known user
  - The per-user last_bet_settlement_date guard turns every run after
    the first of a calendar day into a no-op, so ticking hourly still
    settles at most once per day and catches midnight rollovers

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSettlementScheduler(service)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: SettleBets endpoint (manual settlement)
  - mission/wager.go: SettleLostBets
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/task-economy/mission"
)

// SettlementScheduler handles automated lost-bet settlement.
type SettlementScheduler struct {
	Service       *mission.Service
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSettlementScheduler creates a new scheduler.
func NewSettlementScheduler(svc *mission.Service) *SettlementScheduler {
	return &SettlementScheduler{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *SettlementScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	log.Printf("[Scheduler] Started with check interval: %v", ss.CheckInterval)
}

// Stop stops the scheduler.
func (ss *SettlementScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		ss.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (ss *SettlementScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.settleAll()

	for {
		select {
		case <-ss.ticker.C:
			ss.settleAll()
		case <-ss.stop:
			return
		}
	}
}

// SweepResult counts what one pass did.
type SweepResult struct {
	Settled int
	Skipped int
	Failed  int
}

func (ss *SettlementScheduler) settleAll() SweepResult {
	ctx := context.Background()
	var res SweepResult

	users, err := ss.Service.Users(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing users: %v", err)
		return res
	}

	for _, user := range users {
		settlement, _, err := ss.Service.SettleBets(ctx, user)
		switch {
		case err != nil:
			res.Failed++
			log.Printf("[Scheduler] Error settling bets for %s: %v", user, err)
		case !settlement.Ran:
			res.Skipped++
		default:
			res.Settled++
			if len(settlement.Lost) > 0 {
				log.Printf("[Scheduler] Settled %s: %d lost bet(s), total=%s",
					user, len(settlement.Lost), settlement.TotalLost.StringFixed(2))
			}
		}
	}

	if res.Settled > 0 || res.Failed > 0 {
		log.Printf("[Scheduler] Completed: %d settled, %d skipped (already done), %d failed",
			res.Settled, res.Skipped, res.Failed)
	}
	return res
}

// RunNow triggers an immediate sweep (for testing/admin).
func (ss *SettlementScheduler) RunNow() SweepResult {
	return ss.settleAll()
}

// NextRunTime returns when the next scheduled check will occur.
func (ss *SettlementScheduler) NextRunTime() time.Time {
	return time.Now().Add(ss.CheckInterval)
}
