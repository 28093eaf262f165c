package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/retreatbase/payout-service/internal/domain"
)

// CheckoutEventConsumer bridges RabbitMQ deliveries into the scheduler. The
// returned bool follows the broker contract: true acknowledges, false
// re-queues.
type CheckoutEventConsumer struct {
	service *Service
}

func NewCheckoutEventConsumer(service *Service) *CheckoutEventConsumer {
	return &CheckoutEventConsumer{service: service}
}

func (c *CheckoutEventConsumer) HandleMessage(body []byte) bool {
	event, err := domain.ParseCheckoutCompleted(body)
	if err != nil {
		// Malformed payloads are acknowledged and dropped; re-queuing them
		// would loop forever.
		log.Printf("checkout-consumer: rejecting payload: %v", err)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.service.HandleCheckoutCompleted(ctx, event); err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			log.Printf("checkout-consumer: dropping event with invalid amount for retreat %s: %v", event.RetreatID, err)
			return true
		}
		log.Printf("checkout-consumer: processing error for retreat %s: %v", event.RetreatID, err)
		return false
	}

	return true
}
