/**
 * @description
 * Payout execution: drains a batch of due or explicitly named payouts through
 * a guarded state machine. Each payout is validated, checked for escrow
 * solvency and recipient eligibility, claimed with a status-transition guard,
 * and only then disbursed through the transfer client with a per-run
 * idempotency key.
 *
 * A failing payout never aborts the batch; the run always produces a summary.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/retreatbase/payout-service/internal/domain"
	"github.com/retreatbase/payout-service/internal/store"
	"github.com/retreatbase/payout-service/pkg/stripeclient"
)

// RunPayouts executes a batch of payouts and returns the per-payout outcomes.
// Callers either name explicit payout ids or set ProcessAllDue; an empty
// selection is rejected so a misconfigured cron cannot silently no-op.
func (s *Service) RunPayouts(ctx context.Context, req domain.PayoutRunRequest) (*domain.PayoutRunSummary, error) {
	runID := uuid.New()

	var (
		payouts []domain.ScheduledPayout
		err     error
	)
	switch {
	case len(req.PayoutIDs) > 0:
		payouts, err = s.repo.FindPayoutsByIDs(ctx, req.PayoutIDs, req.RetryFailed, MaxPayoutsPerRun)
	case req.ProcessAllDue:
		payouts, err = s.repo.FindDuePayouts(ctx, s.now().UTC(), req.RetryFailed, MaxPayoutsPerRun)
	default:
		return nil, ErrEmptyRunSelection
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select payouts for run: %w", err)
	}

	log.Printf("RunPayouts: run %s starting with %d payouts", runID, len(payouts))

	summary := &domain.PayoutRunSummary{
		RunID:     runID,
		Results:   make([]domain.PayoutResult, 0, len(payouts)),
		Timestamp: s.now().UTC(),
	}

	for i := range payouts {
		result := s.executePayout(ctx, runID, &payouts[i])
		summary.Results = append(summary.Results, result)
		switch result.Outcome {
		case domain.PayoutOutcomeCompleted:
			summary.Processed++
		case domain.PayoutOutcomeFailed:
			summary.Failed++
		case domain.PayoutOutcomeSkipped:
			summary.Skipped++
		}
	}
	summary.Total = len(summary.Results)

	log.Printf("RunPayouts: run %s finished processed=%d failed=%d skipped=%d total=%d",
		runID, summary.Processed, summary.Failed, summary.Skipped, summary.Total)
	return summary, nil
}

// executePayout drives one payout through the pipeline. Skips leave the row
// in its prior state; failures are terminal on the row but retryable in a
// later run.
func (s *Service) executePayout(ctx context.Context, runID uuid.UUID, payout *domain.ScheduledPayout) domain.PayoutResult {
	result := domain.PayoutResult{
		PayoutID:        payout.ID,
		RecipientUserID: payout.RecipientUserID,
		Amount:          payout.Amount,
	}

	// Shape and cap checks come first; rows that can never disburse fail
	// without touching the claim.
	if err := ValidateAmount(payout.Amount); err != nil {
		return s.failPayout(ctx, payout, result, err.Error())
	}
	if err := CheckPayoutCap(payout.Amount); err != nil {
		return s.failPayout(ctx, payout, result, err.Error())
	}

	// Solvency: the escrow must still hold enough to cover this payout.
	escrow, err := s.repo.GetEscrowByID(ctx, payout.EscrowID)
	if err != nil {
		return s.failPayout(ctx, payout, result, fmt.Sprintf("escrow lookup failed: %v", err))
	}
	if escrow.HeldAmount < payout.Amount {
		return s.failPayout(ctx, payout, result,
			fmt.Sprintf("insufficient escrow funds: held %d, need %d", escrow.HeldAmount, payout.Amount))
	}

	// Eligibility is a skip, not a failure: the recipient can finish
	// onboarding and the payout picks up on a later run untouched.
	account, err := s.repo.GetConnectedAccount(ctx, payout.RecipientUserID)
	if err != nil {
		if errors.Is(err, store.ErrConnectedAccountNotFound) {
			return skipPayout(result, "recipient has no connected payment account")
		}
		return s.failPayout(ctx, payout, result, fmt.Sprintf("connected account lookup failed: %v", err))
	}
	if !account.PayoutsEnabled || !account.OnboardingComplete {
		return skipPayout(result, "recipient payment account is not ready for payouts")
	}

	// Claim the row. Losing the claim means a concurrent run owns it.
	claimed, err := s.repo.ClaimPayoutForProcessing(ctx, payout.ID)
	if err != nil {
		return s.failPayout(ctx, payout, result, fmt.Sprintf("claim failed: %v", err))
	}
	if !claimed {
		return skipPayout(result, "payout already claimed by another run")
	}

	transfer, err := s.transferClient.CreateTransfer(ctx, stripeclient.TransferRequest{
		Amount:             payout.Amount,
		Currency:           s.currency,
		DestinationAccount: account.StripeAccountID,
		TransferGroup:      "escrow_" + payout.EscrowID.String(),
		Description:        fmt.Sprintf("%s payout for retreat booking", payout.PayoutType),
		IdempotencyKey:     IdempotencyKey(payout.ID, runID),
	})
	if err != nil {
		return s.failPayout(ctx, payout, result, sanitizeFailureReason(err.Error()))
	}

	if err := s.repo.MarkPayoutCompleted(ctx, payout.ID, transfer.ID); err != nil {
		// The money moved but the row did not. The row stays in processing,
		// which is not a claimable status, so no retry run can issue a second
		// transfer; an operator reconciles it by transfer id.
		log.Printf("CRITICAL: payout %s transferred (%s) but completion update failed: %v", payout.ID, transfer.ID, err)
		if _, relErr := s.repo.ReleaseEscrow(ctx, payout.EscrowID, payout.Amount, payout.PayoutType); relErr != nil {
			log.Printf("CRITICAL: payout %s completed but escrow %s release failed: %v", payout.ID, payout.EscrowID, relErr)
		}
		result.Outcome = domain.PayoutOutcomeFailed
		result.Reason = fmt.Sprintf("transfer %s succeeded but completion update failed", transfer.ID)
		result.StripeTransferID = transfer.ID
		return result
	}

	if _, err := s.repo.ReleaseEscrow(ctx, payout.EscrowID, payout.Amount, payout.PayoutType); err != nil {
		log.Printf("CRITICAL: payout %s completed but escrow %s release failed: %v", payout.ID, payout.EscrowID, err)
	}

	s.publishPayoutEvent(ctx, domain.EventTypePayoutCompleted, payout, transfer.ID, "")

	result.Outcome = domain.PayoutOutcomeCompleted
	result.StripeTransferID = transfer.ID
	return result
}

func (s *Service) failPayout(ctx context.Context, payout *domain.ScheduledPayout, result domain.PayoutResult, reason string) domain.PayoutResult {
	reason = sanitizeFailureReason(reason)
	if err := s.repo.MarkPayoutFailed(ctx, payout.ID, reason); err != nil {
		log.Printf("RunPayouts: failed to mark payout %s as failed: %v", payout.ID, err)
	}
	s.publishPayoutEvent(ctx, domain.EventTypePayoutFailed, payout, "", reason)

	result.Outcome = domain.PayoutOutcomeFailed
	result.Reason = reason
	return result
}

func skipPayout(result domain.PayoutResult, reason string) domain.PayoutResult {
	result.Outcome = domain.PayoutOutcomeSkipped
	result.Reason = reason
	return result
}

func (s *Service) publishPayoutEvent(ctx context.Context, eventType string, payout *domain.ScheduledPayout, transferID, failureReason string) {
	if s.eventProducer == nil {
		return
	}
	event := domain.PayoutEvent{
		PayoutID:         payout.ID,
		RecipientUserID:  payout.RecipientUserID,
		Amount:           payout.Amount,
		PayoutType:       payout.PayoutType,
		StripeTransferID: transferID,
		FailureReason:    failureReason,
		Timestamp:        s.now().UTC(),
	}
	if err := s.eventProducer.PublishPayoutEvent(ctx, eventType, event); err != nil {
		log.Printf("RunPayouts: failed to publish %s for payout %s: %v", eventType, payout.ID, err)
	}
}
