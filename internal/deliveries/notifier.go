package deliveries

import (
	"context"

	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
)

// Notifier receives delivery lifecycle events. Push/chat delivery is an
// external concern; implementations must not fail the transition.
type Notifier interface {
	DeliveryPickedUp(ctx context.Context, delivery *models.Delivery)
	DeliveryCompleted(ctx context.Context, delivery *models.Delivery)
}

// NoopNotifier discards all events.
type NoopNotifier struct{}

func (NoopNotifier) DeliveryPickedUp(context.Context, *models.Delivery)  {}
func (NoopNotifier) DeliveryCompleted(context.Context, *models.Delivery) {}
