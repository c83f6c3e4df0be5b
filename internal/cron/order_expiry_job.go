package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/aquatrade/aquatrade-backend/pkg/logger"
)

const defaultPendingOrderTTL = 24 * time.Hour

type pendingOrderExpirer interface {
	ExpirePending(ctx context.Context, ttl time.Duration) (int, error)
}

// OrderExpiryJobParams configure the pending order sweeper.
type OrderExpiryJobParams struct {
	Logger *logger.Logger
	Orders pendingOrderExpirer
	TTL    time.Duration
}

// NewOrderExpiryJob builds the job that cancels unpaid orders past their TTL
// and returns their reserved stock.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderExpiryJob{logg: params.Logger, orders: params.Orders, ttl: ttl}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders pendingOrderExpirer
	ttl    time.Duration
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	expired, err := j.orders.ExpirePending(ctx, j.ttl)
	j.logg.Info(j.logg.WithField(ctx, "count", expired), "pending order sweep complete")
	if err != nil {
		return fmt.Errorf("expire pending orders: %w", err)
	}
	return nil
}
