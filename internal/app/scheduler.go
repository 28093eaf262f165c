/**
 * @description
 * Checkout-completion handling: creates the booking, escrow account, and
 * payment audit record, then derives the deposit and final payout schedule
 * for every agreed team member on the retreat roster.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/retreatbase/payout-service/internal/domain"
	"github.com/retreatbase/payout-service/internal/store"
)

// HandleCheckoutCompleted ingests a settled checkout: it records the booking,
// opens the escrow account holding the gross payment, and schedules two
// payout installments per agreed team member. The deposit installment is due
// immediately; the final installment is due FinalPayoutLeadDays before the
// retreat starts.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, event *domain.CheckoutCompletedEvent) error {
	log.Printf("HandleCheckoutCompleted: retreat %s amount %d fee %d", event.RetreatID, event.AmountTotalCents, event.PlatformFeeCents)

	if err := ValidateAmount(event.AmountTotalCents); err != nil {
		return fmt.Errorf("invalid checkout amount: %w", err)
	}

	// Broker delivery is at-least-once, so a redelivered event must find its
	// prior booking and stop before creating a second escrow.
	if existing, err := s.repo.GetBookingByPaymentIntentID(ctx, event.PaymentIntentID); err == nil {
		log.Printf("HandleCheckoutCompleted: payment intent %s already processed as booking %s; skipping", event.PaymentIntentID, existing.ID)
		return nil
	} else if !errors.Is(err, store.ErrBookingNotFound) {
		return fmt.Errorf("failed to check for existing booking: %w", err)
	}

	retreat, err := s.repo.GetRetreat(ctx, event.RetreatID)
	if err != nil {
		return fmt.Errorf("failed to load retreat: %w", err)
	}

	booking := &domain.Booking{
		ID:              uuid.New(),
		RetreatID:       event.RetreatID,
		GuestUserID:     event.UserID,
		AmountTotal:     event.AmountTotalCents,
		PlatformFee:     event.PlatformFeeCents,
		PaymentIntentID: event.PaymentIntentID,
		Status:          "confirmed",
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	// The escrow holds the gross payment. The platform fee is tracked on the
	// account but stays held until payouts release recipient shares; whatever
	// remains after full release is the platform's margin.
	escrow := &domain.EscrowAccount{
		ID:              uuid.New(),
		BookingID:       booking.ID,
		TotalAmount:     event.AmountTotalCents,
		HeldAmount:      event.AmountTotalCents,
		PlatformFee:     event.PlatformFeeCents,
		Status:          domain.EscrowStatusHolding,
		PaymentIntentID: event.PaymentIntentID,
	}
	if err := s.repo.CreateEscrow(ctx, escrow); err != nil {
		return fmt.Errorf("failed to create escrow account: %w", err)
	}

	payment := &domain.BookingPayment{
		ID:              uuid.New(),
		BookingID:       booking.ID,
		Amount:          event.AmountTotalCents,
		PlatformFee:     event.PlatformFeeCents,
		PaymentIntentID: event.PaymentIntentID,
		Status:          "succeeded",
	}
	if err := s.repo.CreateBookingPayment(ctx, payment); err != nil {
		return fmt.Errorf("failed to create booking payment: %w", err)
	}

	if retreat.StartDate == nil {
		// The escrow holds the funds, but without a start date there is no
		// schedule to derive. Payouts get created later once the retreat has
		// dates; this is bookkeeping, not an error.
		log.Printf("HandleCheckoutCompleted: retreat %s has no start date; escrow %s holds with no scheduled payouts", event.RetreatID, escrow.ID)
		return nil
	}

	members, err := s.repo.ListAgreedTeamMembers(ctx, event.RetreatID)
	if err != nil {
		return fmt.Errorf("failed to list team members: %w", err)
	}
	if len(members) == 0 {
		log.Printf("HandleCheckoutCompleted: retreat %s has no agreed team members; escrow %s holds with no scheduled payouts", event.RetreatID, escrow.ID)
		return nil
	}

	payouts := buildPayoutSchedule(escrow.ID, members, s.now().UTC(), *retreat.StartDate)
	if err := s.repo.CreateScheduledPayouts(ctx, payouts); err != nil {
		return fmt.Errorf("failed to create scheduled payouts: %w", err)
	}

	log.Printf("HandleCheckoutCompleted: escrow %s created with %d scheduled payouts", escrow.ID, len(payouts))
	return nil
}

// buildPayoutSchedule derives the two-installment payout plan for a roster.
// Members without a positive agreed fee are schedule-less; they never reach
// the executor.
func buildPayoutSchedule(escrowID uuid.UUID, members []domain.TeamMember, now, startDate time.Time) []domain.ScheduledPayout {
	finalDue := startDate.AddDate(0, 0, -FinalPayoutLeadDays)
	if finalDue.Before(now) {
		// Late booking: the final window already passed, so both
		// installments are due immediately.
		finalDue = now
	}

	payouts := make([]domain.ScheduledPayout, 0, len(members)*2)
	for _, member := range members {
		// Roster fees are stored in major units by the marketplace schema;
		// everything downstream is integer cents.
		feeCents, err := NormalizeAmount(member.FeeAmount)
		if err == nil {
			err = ValidateAmount(feeCents)
		}
		if err != nil {
			log.Printf("buildPayoutSchedule: skipping member %s with invalid fee %v", member.UserID, member.FeeAmount)
			continue
		}

		deposit, final := SplitFee(feeCents)
		teamID := member.ID
		if deposit > 0 {
			payouts = append(payouts, domain.ScheduledPayout{
				ID:              uuid.New(),
				EscrowID:        escrowID,
				RecipientUserID: member.UserID,
				RetreatTeamID:   &teamID,
				Amount:          deposit,
				PayoutType:      domain.PayoutTypeDeposit,
				ScheduledDate:   now,
				Status:          domain.PayoutStatusScheduled,
			})
		}
		payouts = append(payouts, domain.ScheduledPayout{
			ID:              uuid.New(),
			EscrowID:        escrowID,
			RecipientUserID: member.UserID,
			RetreatTeamID:   &teamID,
			Amount:          final,
			PayoutType:      domain.PayoutTypeFinal,
			ScheduledDate:   finalDue,
			Status:          domain.PayoutStatusScheduled,
		})
	}
	return payouts
}

// GetEscrow exposes one escrow account for the admin surface.
func (s *Service) GetEscrow(ctx context.Context, escrowID uuid.UUID) (*domain.EscrowAccount, error) {
	return s.repo.GetEscrowByID(ctx, escrowID)
}

// ListPayouts exposes the admin payout listing with its summary block.
func (s *Service) ListPayouts(ctx context.Context, opts domain.PayoutListOptions) ([]domain.AdminPayoutRow, *domain.PayoutListSummary, error) {
	rows, err := s.repo.ListPayouts(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	summary, err := s.repo.SummarizePayouts(ctx, s.now().UTC())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to summarize payouts: %w", err)
	}
	return rows, summary, nil
}
