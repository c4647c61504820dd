package service

import (
	"context"
	"time"

	"vendora/internal/repository"
	"vendora/pkg/logger"
)

const sweepBatchSize = 200

// TimeoutSweeper periodically expires open orders whose payment deadline has
// passed. Each order is expired in its own transaction so one bad row never
// stalls the batch.
type TimeoutSweeper struct {
	orders    *repository.OrderRepository
	lifecycle *OrderService
	interval  time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewTimeoutSweeper(orders *repository.OrderRepository, lifecycle *OrderService, interval time.Duration) *TimeoutSweeper {
	return &TimeoutSweeper{
		orders:    orders,
		lifecycle: lifecycle,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *TimeoutSweeper) Start() {
	go s.run()
}

func (s *TimeoutSweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *TimeoutSweeper) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.SweepOnce(context.Background(), time.Now())
		}
	}
}

// SweepOnce expires every currently overdue open order. Exported so tests and
// admin tooling can trigger a sweep deterministically.
func (s *TimeoutSweeper) SweepOnce(ctx context.Context, now time.Time) {
	expired, err := s.orders.ListExpired(now, sweepBatchSize)
	if err != nil {
		logger.L().Errorw("timeout sweep query failed", "error", err)
		return
	}
	for _, o := range expired {
		if err := s.lifecycle.Expire(ctx, o.ID, now); err != nil {
			// A concurrent payment or cancellation may have closed the order
			// between the query and the lock; that is not a failure.
			logger.L().Warnw("expire skipped", "order_id", o.ID, "error", err)
		}
	}
	if len(expired) > 0 {
		logger.L().Infow("timeout sweep complete", "candidates", len(expired))
	}
}
