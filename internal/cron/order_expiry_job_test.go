package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aquatrade/aquatrade-backend/pkg/logger"
)

type stubExpirer struct {
	ttl     time.Duration
	expired int
	err     error
	calls   int
}

func (s *stubExpirer) ExpirePending(_ context.Context, ttl time.Duration) (int, error) {
	s.calls++
	s.ttl = ttl
	return s.expired, s.err
}

func TestOrderExpiryJobPassesTTL(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	expirer := &stubExpirer{expired: 3}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: logg,
		Orders: expirer,
		TTL:    6 * time.Hour,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "order-expiry" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.calls != 1 || expirer.ttl != 6*time.Hour {
		t.Fatalf("expirer called %d times with ttl %s", expirer.calls, expirer.ttl)
	}
}

func TestOrderExpiryJobDefaultsTTL(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	expirer := &stubExpirer{}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: logg, Orders: expirer})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.ttl != defaultPendingOrderTTL {
		t.Fatalf("ttl = %s, want default", expirer.ttl)
	}
}

func TestOrderExpiryJobPropagatesError(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	expirer := &stubExpirer{err: errors.New("db down")}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: logg, Orders: expirer})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
