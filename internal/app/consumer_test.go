package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retreatbase/payout-service/internal/domain"
)

func envelopeBody(t *testing.T, eventType string, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	body, err := json.Marshal(domain.EventEnvelope{Type: eventType, Data: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}

func TestCheckoutConsumer_AcksMalformedPayload(t *testing.T) {
	consumer := NewCheckoutEventConsumer(newSchedulerService(&schedulerRepoStub{}, time.Now().UTC()))

	if !consumer.HandleMessage([]byte("{broken")) {
		t.Fatal("malformed payloads must be acknowledged, not re-queued")
	}
}

func TestCheckoutConsumer_RequeuesOnProcessingError(t *testing.T) {
	// Repo stub with no retreat: lookup fails, which is retryable.
	consumer := NewCheckoutEventConsumer(newSchedulerService(&schedulerRepoStub{}, time.Now().UTC()))

	body := envelopeBody(t, domain.EventTypeCheckoutCompleted, domain.CheckoutCompletedEvent{
		RetreatID:        uuid.New(),
		UserID:           uuid.New(),
		AmountTotalCents: 50_000,
		PlatformFeeCents: 5_000,
		PaymentIntentID:  "pi_test_retry",
	})

	if consumer.HandleMessage(body) {
		t.Fatal("transient processing errors should re-queue the delivery")
	}
}

func TestCheckoutConsumer_AcksSuccessfulProcessing(t *testing.T) {
	now := time.Now().UTC()
	startDate := now.AddDate(0, 0, 30)
	retreatID := uuid.New()
	repo := &schedulerRepoStub{
		retreat: &domain.Retreat{ID: retreatID, StartDate: &startDate},
		members: []domain.TeamMember{
			{ID: uuid.New(), RetreatID: retreatID, UserID: uuid.New(), FeeAmount: 4.00, Agreed: true},
		},
	}
	consumer := NewCheckoutEventConsumer(newSchedulerService(repo, now))

	body := envelopeBody(t, domain.EventTypeCheckoutCompleted, domain.CheckoutCompletedEvent{
		RetreatID:        retreatID,
		UserID:           uuid.New(),
		AmountTotalCents: 50_000,
		PlatformFeeCents: 5_000,
		PaymentIntentID:  "pi_test_ok",
	})

	if !consumer.HandleMessage(body) {
		t.Fatal("successful processing should acknowledge the delivery")
	}
	if len(repo.payouts) != 2 {
		t.Fatalf("expected the consumer to schedule payouts, got %d", len(repo.payouts))
	}
}
