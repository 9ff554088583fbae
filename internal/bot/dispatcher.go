package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/polkiloo/flowershop/internal/metrics"
)

const shardBuffer = 64

// ErrDispatcherStopped is returned for events dispatched outside of Start/Stop window.
var ErrDispatcherStopped = errors.New("dispatcher is not running")

// EventHandler reacts to a single event.
type EventHandler interface {
	Handle(ctx context.Context, ev Event)
}

// Dispatcher routes events of one user to the same shard, keeping their order.
// Events of different users proceed in parallel on different shards.
type Dispatcher struct {
	handler EventHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
	count   int

	mu      sync.RWMutex
	shards  []chan Event
	running bool
	wg      sync.WaitGroup
}

// NewDispatcher constructs dispatcher with shards goroutines.
func NewDispatcher(handler EventHandler, shards int, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if shards <= 0 {
		shards = 1
	}
	return &Dispatcher{handler: handler, logger: logger, metrics: m, count: shards}
}

// Start launches shard workers. Handlers receive ctx detached from cancellation of Start caller.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}

	runCtx := context.WithoutCancel(ctx)
	d.shards = make([]chan Event, d.count)
	for i := range d.shards {
		ch := make(chan Event, shardBuffer)
		d.shards[i] = ch
		d.wg.Add(1)
		go d.run(runCtx, ch)
	}
	d.running = true
}

// Dispatch enqueues event to the shard of its user.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return ErrDispatcherStopped
	}

	select {
	case d.shards[d.shardOf(ev)] <- ev:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch update %d: %w", ev.UpdateID, ctx.Err())
	}
}

func (d *Dispatcher) shardOf(ev Event) int {
	key := ev.UserID
	if key == 0 {
		key = ev.ChatID
	}
	return int(uint64(key) % uint64(len(d.shards)))
}

// Stop drains queued events and waits for shard workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, events <-chan Event) {
	defer d.wg.Done()
	for ev := range events {
		d.handle(ctx, ev)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				slog.Int("update_id", ev.UpdateID),
				slog.Int64("user_id", ev.UserID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	d.metrics.BotEvent(string(ev.Kind))
	d.handler.Handle(ctx, ev)
}
