/**
 * @description
 * Event payloads consumed and published by the payout engine. Webhook-style
 * events arrive as a small envelope with a type discriminator; each event type
 * has its own typed payload that is parsed and validated at the boundary
 * before any business logic runs.
 */

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event type discriminators on the retreatbase.events exchange.
const (
	EventTypeCheckoutCompleted = "checkout.session.completed"
	EventTypePayoutCompleted   = "payout.completed"
	EventTypePayoutFailed      = "payout.failed"
)

var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrMalformedEvent   = errors.New("malformed event payload")
)

// EventEnvelope is the outer message shape on the events exchange.
type EventEnvelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// CheckoutCompletedEvent is emitted by the checkout surface when a booking
// payment settles. It is the sole trigger for escrow creation and payout
// scheduling.
type CheckoutCompletedEvent struct {
	RetreatID        uuid.UUID `json:"retreat_id"`
	UserID           uuid.UUID `json:"user_id"`
	PlatformFeeCents int64     `json:"platform_fee_cents"`
	AmountTotalCents int64     `json:"amount_total_cents"`
	PaymentIntentID  string    `json:"payment_intent_id"`
}

// ParseCheckoutCompleted decodes and validates a checkout-completed event from
// a raw message body. Validation happens here so malformed producer payloads
// are rejected before touching the scheduler.
func ParseCheckoutCompleted(body []byte) (*CheckoutCompletedEvent, error) {
	var envelope EventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if envelope.Type != EventTypeCheckoutCompleted {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, envelope.Type)
	}

	var event CheckoutCompletedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if event.RetreatID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing retreat_id", ErrMalformedEvent)
	}
	if event.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user_id", ErrMalformedEvent)
	}
	if event.AmountTotalCents <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount_total_cents", ErrMalformedEvent)
	}
	if event.PlatformFeeCents < 0 || event.PlatformFeeCents > event.AmountTotalCents {
		return nil, fmt.Errorf("%w: platform_fee_cents out of range", ErrMalformedEvent)
	}
	if event.PaymentIntentID == "" {
		return nil, fmt.Errorf("%w: missing payment_intent_id", ErrMalformedEvent)
	}

	return &event, nil
}

// PayoutEvent is published after each terminal payout transition so the
// notification surface can fan out to recipients.
type PayoutEvent struct {
	PayoutID         uuid.UUID `json:"payout_id"`
	RecipientUserID  uuid.UUID `json:"recipient_user_id"`
	Amount           int64     `json:"amount"`
	PayoutType       string    `json:"payout_type"`
	StripeTransferID string    `json:"stripe_transfer_id,omitempty"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}
