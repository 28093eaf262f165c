/**
 * @description
 * This file contains the core business logic for the payout-service. The `Service`
 * struct orchestrates escrow creation and payout execution, coordinating between
 * the database repository, the Stripe transfer client, and the message broker.
 *
 * Key features:
 * - Schedules deposit and final payouts when a checkout completes.
 * - Executes due payouts through a guarded state machine.
 * - Publishes events to RabbitMQ for asynchronous processing by other services.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/stripeclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"time"

	"github.com/retreatbase/payout-service/internal/domain"
	"github.com/retreatbase/payout-service/internal/store"
	"github.com/retreatbase/payout-service/pkg/stripeclient"
)

// FinalPayoutLeadDays is how many days before the retreat start date the
// final installment becomes due.
const FinalPayoutLeadDays = 7

// TransferClient is the narrow slice of the Stripe client the executor needs.
type TransferClient interface {
	CreateTransfer(ctx context.Context, req stripeclient.TransferRequest) (*stripeclient.Transfer, error)
}

// EventPublisher is the event-publishing surface the service depends on. It
// is a subset of rabbitmq.Publisher so tests can substitute a recorder.
type EventPublisher interface {
	PublishPayoutEvent(ctx context.Context, routingKey string, event domain.PayoutEvent) error
}

// Service provides the core business logic for escrow and payouts.
type Service struct {
	repo           store.Repository
	transferClient TransferClient
	eventProducer  EventPublisher
	currency       string
	now            func() time.Time
}

// NewService creates a new payout service instance.
func NewService(repo store.Repository, transfers TransferClient, producer EventPublisher, currency string) *Service {
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		repo:           repo,
		transferClient: transfers,
		eventProducer:  producer,
		currency:       currency,
		now:            time.Now,
	}
}
