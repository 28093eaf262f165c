package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retreatbase/payout-service/internal/domain"
	"github.com/retreatbase/payout-service/internal/store"
)

// schedulerRepoStub records everything the checkout handler writes.
type schedulerRepoStub struct {
	store.Repository

	retreat *domain.Retreat
	members []domain.TeamMember

	bookings []domain.Booking
	escrows  []domain.EscrowAccount
	payments []domain.BookingPayment
	payouts  []domain.ScheduledPayout
}

func (s *schedulerRepoStub) GetBookingByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Booking, error) {
	for i := range s.bookings {
		if s.bookings[i].PaymentIntentID == paymentIntentID {
			return &s.bookings[i], nil
		}
	}
	return nil, store.ErrBookingNotFound
}

func (s *schedulerRepoStub) GetRetreat(ctx context.Context, retreatID uuid.UUID) (*domain.Retreat, error) {
	if s.retreat == nil {
		return nil, store.ErrRetreatNotFound
	}
	return s.retreat, nil
}

func (s *schedulerRepoStub) ListAgreedTeamMembers(ctx context.Context, retreatID uuid.UUID) ([]domain.TeamMember, error) {
	return s.members, nil
}

func (s *schedulerRepoStub) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	s.bookings = append(s.bookings, *booking)
	return nil
}

func (s *schedulerRepoStub) CreateEscrow(ctx context.Context, escrow *domain.EscrowAccount) error {
	s.escrows = append(s.escrows, *escrow)
	return nil
}

func (s *schedulerRepoStub) CreateBookingPayment(ctx context.Context, payment *domain.BookingPayment) error {
	s.payments = append(s.payments, *payment)
	return nil
}

func (s *schedulerRepoStub) CreateScheduledPayouts(ctx context.Context, payouts []domain.ScheduledPayout) error {
	s.payouts = append(s.payouts, payouts...)
	return nil
}

func newSchedulerService(repo *schedulerRepoStub, now time.Time) *Service {
	svc := NewService(repo, nil, nil, "usd")
	svc.now = func() time.Time { return now }
	return svc
}

func checkoutEvent(retreatID uuid.UUID) *domain.CheckoutCompletedEvent {
	return &domain.CheckoutCompletedEvent{
		RetreatID:        retreatID,
		UserID:           uuid.New(),
		AmountTotalCents: 100_000,
		PlatformFeeCents: 10_000,
		PaymentIntentID:  "pi_test_123",
	}
}

func TestHandleCheckoutCompleted_SchedulesTwoInstallmentsPerMember(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startDate := now.AddDate(0, 0, 30)
	retreatID := uuid.New()

	memberA := uuid.New()
	memberB := uuid.New()
	repo := &schedulerRepoStub{
		retreat: &domain.Retreat{ID: retreatID, StartDate: &startDate},
		members: []domain.TeamMember{
			{ID: uuid.New(), RetreatID: retreatID, UserID: memberA, Role: "host", FeeAmount: 4.00, Agreed: true},
			{ID: uuid.New(), RetreatID: retreatID, UserID: memberB, Role: "chef", FeeAmount: 4.00, Agreed: true},
		},
	}
	svc := newSchedulerService(repo, now)

	if err := svc.HandleCheckoutCompleted(context.Background(), checkoutEvent(retreatID)); err != nil {
		t.Fatalf("HandleCheckoutCompleted returned error: %v", err)
	}

	if len(repo.escrows) != 1 {
		t.Fatalf("expected one escrow account, got %d", len(repo.escrows))
	}
	escrow := repo.escrows[0]
	if escrow.HeldAmount != 100_000 || escrow.TotalAmount != 100_000 {
		t.Fatalf("escrow should hold the gross payment, got held=%d total=%d", escrow.HeldAmount, escrow.TotalAmount)
	}
	if escrow.Status != domain.EscrowStatusHolding {
		t.Fatalf("new escrow should be holding, got %q", escrow.Status)
	}

	if len(repo.payouts) != 4 {
		t.Fatalf("expected 4 scheduled payouts (2 per member), got %d", len(repo.payouts))
	}

	finalDue := startDate.AddDate(0, 0, -FinalPayoutLeadDays)
	for _, payout := range repo.payouts {
		if payout.Status != domain.PayoutStatusScheduled {
			t.Fatalf("payout %s should start scheduled, got %q", payout.ID, payout.Status)
		}
		if payout.EscrowID != escrow.ID {
			t.Fatalf("payout %s bound to wrong escrow", payout.ID)
		}
		switch payout.PayoutType {
		case domain.PayoutTypeDeposit:
			if payout.Amount != 200 {
				t.Fatalf("deposit should be half the fee, got %d", payout.Amount)
			}
			if !payout.ScheduledDate.Equal(now) {
				t.Fatalf("deposit should be due immediately, got %v", payout.ScheduledDate)
			}
		case domain.PayoutTypeFinal:
			if payout.Amount != 200 {
				t.Fatalf("final should be the remaining fee, got %d", payout.Amount)
			}
			if !payout.ScheduledDate.Equal(finalDue) {
				t.Fatalf("final should be due %v, got %v", finalDue, payout.ScheduledDate)
			}
		default:
			t.Fatalf("unexpected payout type %q", payout.PayoutType)
		}
	}

	if len(repo.bookings) != 1 || len(repo.payments) != 1 {
		t.Fatalf("expected one booking and one payment record, got %d and %d", len(repo.bookings), len(repo.payments))
	}
}

func TestHandleCheckoutCompleted_RedeliveredEventCreatesNothingTwice(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startDate := now.AddDate(0, 0, 30)
	retreatID := uuid.New()

	repo := &schedulerRepoStub{
		retreat: &domain.Retreat{ID: retreatID, StartDate: &startDate},
		members: []domain.TeamMember{
			{ID: uuid.New(), RetreatID: retreatID, UserID: uuid.New(), FeeAmount: 4.00, Agreed: true},
		},
	}
	svc := newSchedulerService(repo, now)

	event := checkoutEvent(retreatID)
	if err := svc.HandleCheckoutCompleted(context.Background(), event); err != nil {
		t.Fatalf("first delivery returned error: %v", err)
	}
	if err := svc.HandleCheckoutCompleted(context.Background(), event); err != nil {
		t.Fatalf("redelivery must succeed without side effects: %v", err)
	}

	if len(repo.bookings) != 1 {
		t.Fatalf("escrow must be created exactly once per checkout; got %d bookings", len(repo.bookings))
	}
	if len(repo.escrows) != 1 || len(repo.payments) != 1 {
		t.Fatalf("redelivery duplicated records: escrows=%d payments=%d", len(repo.escrows), len(repo.payments))
	}
	if len(repo.payouts) != 2 {
		t.Fatalf("redelivery duplicated the payout schedule: got %d payouts", len(repo.payouts))
	}
}

func TestHandleCheckoutCompleted_OddFeeFinalAbsorbsExtraCent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startDate := now.AddDate(0, 0, 30)
	retreatID := uuid.New()

	repo := &schedulerRepoStub{
		retreat: &domain.Retreat{ID: retreatID, StartDate: &startDate},
		members: []domain.TeamMember{
			{ID: uuid.New(), RetreatID: retreatID, UserID: uuid.New(), FeeAmount: 4.01, Agreed: true},
		},
	}
	svc := newSchedulerService(repo, now)

	if err := svc.HandleCheckoutCompleted(context.Background(), checkoutEvent(retreatID)); err != nil {
		t.Fatalf("HandleCheckoutCompleted returned error: %v", err)
	}

	var deposit, final int64
	for _, payout := range repo.payouts {
		switch payout.PayoutType {
		case domain.PayoutTypeDeposit:
			deposit = payout.Amount
		case domain.PayoutTypeFinal:
			final = payout.Amount
		}
	}
	if deposit != 200 || final != 201 {
		t.Fatalf("odd fee should split 200/201, got %d/%d", deposit, final)
	}
}

func TestHandleCheckoutCompleted_NoStartDateSkipsScheduling(t *testing.T) {
	retreatID := uuid.New()
	repo := &schedulerRepoStub{
		retreat: &domain.Retreat{ID: retreatID},
		members: []domain.TeamMember{
			{ID: uuid.New(), RetreatID: retreatID, UserID: uuid.New(), FeeAmount: 4.00, Agreed: true},
		},
	}
	svc := newSchedulerService(repo, time.Now().UTC())

	if err := svc.HandleCheckoutCompleted(context.Background(), checkoutEvent(retreatID)); err != nil {
		t.Fatalf("missing start date should not be an error: %v", err)
	}
	if len(repo.escrows) != 1 || len(repo.bookings) != 1 {
		t.Fatal("booking and escrow must still be recorded without a start date")
	}
	if len(repo.payouts) != 0 {
		t.Fatalf("no payouts may be scheduled without a start date, got %d", len(repo.payouts))
	}
}

func TestHandleCheckoutCompleted_LateBookingFinalDueImmediately(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startDate := now.AddDate(0, 0, 3) // inside the lead window
	retreatID := uuid.New()

	repo := &schedulerRepoStub{
		retreat: &domain.Retreat{ID: retreatID, StartDate: &startDate},
		members: []domain.TeamMember{
			{ID: uuid.New(), RetreatID: retreatID, UserID: uuid.New(), FeeAmount: 4.00, Agreed: true},
		},
	}
	svc := newSchedulerService(repo, now)

	if err := svc.HandleCheckoutCompleted(context.Background(), checkoutEvent(retreatID)); err != nil {
		t.Fatalf("HandleCheckoutCompleted returned error: %v", err)
	}

	for _, payout := range repo.payouts {
		if payout.PayoutType == domain.PayoutTypeFinal && !payout.ScheduledDate.Equal(now) {
			t.Fatalf("late-booking final installment should be due now, got %v", payout.ScheduledDate)
		}
	}
}

func TestHandleCheckoutCompleted_NoAgreedMembersHoldsWithoutPayouts(t *testing.T) {
	now := time.Now().UTC()
	startDate := now.AddDate(0, 0, 30)
	retreatID := uuid.New()

	repo := &schedulerRepoStub{
		retreat: &domain.Retreat{ID: retreatID, StartDate: &startDate},
	}
	svc := newSchedulerService(repo, now)

	if err := svc.HandleCheckoutCompleted(context.Background(), checkoutEvent(retreatID)); err != nil {
		t.Fatalf("HandleCheckoutCompleted returned error: %v", err)
	}
	if len(repo.escrows) != 1 {
		t.Fatalf("escrow should still be created, got %d", len(repo.escrows))
	}
	if len(repo.payouts) != 0 {
		t.Fatalf("no payouts expected without agreed members, got %d", len(repo.payouts))
	}
}

func TestHandleCheckoutCompleted_InvalidMemberFeeIsSkipped(t *testing.T) {
	now := time.Now().UTC()
	startDate := now.AddDate(0, 0, 30)
	retreatID := uuid.New()

	repo := &schedulerRepoStub{
		retreat: &domain.Retreat{ID: retreatID, StartDate: &startDate},
		members: []domain.TeamMember{
			{ID: uuid.New(), RetreatID: retreatID, UserID: uuid.New(), FeeAmount: 0, Agreed: true},
			{ID: uuid.New(), RetreatID: retreatID, UserID: uuid.New(), FeeAmount: 4.00, Agreed: true},
		},
	}
	svc := newSchedulerService(repo, now)

	if err := svc.HandleCheckoutCompleted(context.Background(), checkoutEvent(retreatID)); err != nil {
		t.Fatalf("HandleCheckoutCompleted returned error: %v", err)
	}
	if len(repo.payouts) != 2 {
		t.Fatalf("only the member with a valid fee should be scheduled, got %d payouts", len(repo.payouts))
	}
}
