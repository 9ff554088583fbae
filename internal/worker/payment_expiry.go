package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
)

// PaymentFacade exposes the subset of application functionality required by the worker.
type PaymentFacade interface {
	AwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error)
	ExpirePayment(ctx context.Context, orderID int64) error
}

// PaymentExpiry cancels invoiced orders that were not paid within timeout.
type PaymentExpiry struct {
	facade       PaymentFacade
	timeout      time.Duration
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger
	now          func() time.Time

	jobs   chan model.Order
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewPaymentExpiry constructs payment expiry worker pool.
func NewPaymentExpiry(facade PaymentFacade, timeout, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *PaymentExpiry {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &PaymentExpiry{
		facade:       facade,
		timeout:      timeout,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		now:          time.Now,
		jobs:         make(chan model.Order, batchSize*workers),
	}
}

// Start launches background sweeping.
func (p *PaymentExpiry) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *PaymentExpiry) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *PaymentExpiry) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *PaymentExpiry) sweep(ctx context.Context) {
	cutoff := p.now().Add(-p.timeout)
	orders, err := p.facade.AwaitingPayment(ctx, cutoff, p.batchSize)
	if err != nil {
		p.logger.Error("fetch orders awaiting payment failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- order:
		}
	}
}

func (p *PaymentExpiry) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-p.jobs:
			if !ok {
				return
			}
			p.expire(ctx, order)
		}
	}
}

func (p *PaymentExpiry) expire(ctx context.Context, order model.Order) {
	err := p.facade.ExpirePayment(ctx, order.ID)
	switch {
	case err == nil:
		p.logger.Info("unpaid order cancelled", slog.Int64("order_id", order.ID))
	case errors.Is(err, domainErrors.ErrInvalidTransition):
		// paid or cancelled after the sweep read it
		p.logger.Debug("order already settled", slog.Int64("order_id", order.ID))
	default:
		p.logger.Error("expire payment failed", slog.Int64("order_id", order.ID), slog.String("error", err.Error()))
	}
}
