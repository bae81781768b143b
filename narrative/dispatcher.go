package narrative

import (
	"context"
	"log/slog"
	"sync"

	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/mission"
)

// Dispatcher implements mission.Publisher. Publish only queues; a single
// worker later summarizes the committed day and stores the returned text
// as diary feedback. A full queue drops the request, and repeated
// requests for the same day collapse into one.
type Dispatcher struct {
	Service *mission.Service
	Client  *Client
	Logger  *slog.Logger

	jobs    chan dayKey
	mu      sync.Mutex
	pending map[dayKey]bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

type dayKey struct {
	entity generic.EntityID
	day    generic.Date
}

var _ mission.Publisher = (*Dispatcher)(nil)

func NewDispatcher(svc *mission.Service, client *Client, logger *slog.Logger, buffer int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		Service: svc,
		Client:  client,
		Logger:  logger,
		jobs:    make(chan dayKey, buffer),
		pending: make(map[dayKey]bool),
		stop:    make(chan struct{}),
	}
}

// Publish never blocks.
func (d *Dispatcher) Publish(_ context.Context, entityID generic.EntityID, day generic.Date) {
	key := dayKey{entity: entityID, day: day}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[key] {
		return
	}
	select {
	case d.jobs <- key:
		d.pending[key] = true
	default:
		d.Logger.Warn("feedback queue full, dropping request", "entity", entityID, "date", day.String())
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop waits for the job in flight, if any. Queued jobs are discarded.
func (d *Dispatcher) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			return
		case key := <-d.jobs:
			d.mu.Lock()
			delete(d.pending, key)
			d.mu.Unlock()
			d.process(context.Background(), key)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, key dayKey) {
	st, err := d.Service.Snapshot(ctx, key.entity)
	if err != nil {
		d.Logger.Error("feedback snapshot failed", "entity", key.entity, "error", err)
		return
	}
	summary := SummarizeDay(d.Service.Policy, st, key.day, d.Service.Today())

	resp, err := d.Client.Feedback(ctx, summary)
	if err != nil {
		d.Logger.Warn("feedback request failed", "entity", key.entity, "date", key.day.String(), "error", err)
		return
	}

	text := resp.Feedback
	if _, err := d.Service.SetDiaryEntry(ctx, key.entity, key.day, mission.DiaryPatch{Feedback: &text}); err != nil {
		d.Logger.Error("feedback save failed", "entity", key.entity, "date", key.day.String(), "error", err)
		return
	}
	d.Logger.Info("feedback stored", "entity", key.entity, "date", key.day.String())
}
