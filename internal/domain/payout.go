/**
 * @description
 * This file defines the scheduled-payout domain models: the payout obligations
 * created at checkout completion, the team roster entries they are derived
 * from, the connected payment accounts they are paid into, and the DTOs used
 * by the execution and admin listing endpoints.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scheduled payout statuses. A payout moves out of `scheduled` exactly once;
// `completed` is terminal.
const (
	PayoutStatusPending    = "pending"
	PayoutStatusScheduled  = "scheduled"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
	PayoutStatusCancelled  = "cancelled"
)

// Payout installment phases. Each agreed team member gets one of each.
const (
	PayoutTypeDeposit = "deposit"
	PayoutTypeFinal   = "final"
)

// ScheduledPayout is a future-dated obligation to transfer a specific amount
// to one recipient. Rows are never deleted; they form the audit trail.
type ScheduledPayout struct {
	ID               uuid.UUID  `json:"id"`
	EscrowID         uuid.UUID  `json:"escrow_id"`
	RecipientUserID  uuid.UUID  `json:"recipient_user_id"`
	RetreatTeamID    *uuid.UUID `json:"retreat_team_id,omitempty"`
	Amount           int64      `json:"amount"` // in cents
	PayoutType       string     `json:"payout_type"`
	ScheduledDate    time.Time  `json:"scheduled_date"`
	Status           string     `json:"status"`
	StripeTransferID *string    `json:"stripe_transfer_id,omitempty"`
	FailureReason    *string    `json:"failure_reason,omitempty"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TeamMember is a retreat roster entry. Only entries with Agreed set at
// checkout-completion time generate scheduled payouts. Read-only here; the
// roster is owned by the retreat CRUD surface, which stores fees as a
// decimal in major currency units. The scheduler normalizes to cents.
type TeamMember struct {
	ID        uuid.UUID `json:"id"`
	RetreatID uuid.UUID `json:"retreat_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`       // host, cohost, venue, chef, staff, other
	FeeAmount float64   `json:"fee_amount"` // in major currency units
	FeeType   string    `json:"fee_type"`   // flat, per_person, per_night, percentage
	Agreed    bool      `json:"agreed"`
}

// ConnectedAccount is the per-recipient external payment account directory
// entry. A missing row or payouts disabled causes a payout to be skipped,
// not failed.
type ConnectedAccount struct {
	UserID             uuid.UUID `json:"user_id"`
	StripeAccountID    string    `json:"stripe_account_id"`
	PayoutsEnabled     bool      `json:"payouts_enabled"`
	OnboardingComplete bool      `json:"onboarding_complete"`
}

// PayoutRunRequest is the DTO for the execution entrypoint. Callers either
// name explicit payout ids or ask for everything due.
type PayoutRunRequest struct {
	PayoutIDs     []uuid.UUID `json:"payout_ids,omitempty"`
	ProcessAllDue bool        `json:"process_all_due,omitempty"`
	RetryFailed   bool        `json:"retry_failed,omitempty"`
}

// Per-payout outcomes inside a run.
const (
	PayoutOutcomeCompleted = "completed"
	PayoutOutcomeFailed    = "failed"
	PayoutOutcomeSkipped   = "skipped"
)

// PayoutResult records the outcome of one payout within a run.
type PayoutResult struct {
	PayoutID         uuid.UUID `json:"payout_id"`
	RecipientUserID  uuid.UUID `json:"recipient_user_id"`
	Amount           int64     `json:"amount"`
	Outcome          string    `json:"outcome"`
	Reason           string    `json:"reason,omitempty"`
	StripeTransferID string    `json:"stripe_transfer_id,omitempty"`
}

// PayoutRunSummary is returned by the execution entrypoint and consumed by
// operational alerting. It is always produced, even when every payout fails.
type PayoutRunSummary struct {
	RunID     uuid.UUID      `json:"run_id"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Total     int            `json:"total"`
	Results   []PayoutResult `json:"results"`
	Timestamp time.Time      `json:"timestamp"`
}

// AdminPayoutRow is one row of the admin listing: a scheduled payout joined
// with its escrow, retreat, and recipient context.
type AdminPayoutRow struct {
	Payout             ScheduledPayout `json:"payout"`
	EscrowHeldAmount   int64           `json:"escrow_held_amount"`
	EscrowReleased     int64           `json:"escrow_released_amount"`
	EscrowStatus       string          `json:"escrow_status"`
	RetreatID          uuid.UUID       `json:"retreat_id"`
	RetreatTitle       string          `json:"retreat_title"`
	RetreatStartDate   *time.Time      `json:"retreat_start_date,omitempty"`
	RecipientName      string          `json:"recipient_name"`
	RecipientEmail     string          `json:"recipient_email"`
	AccountConnected   bool            `json:"account_connected"`
	PayoutsEnabled     bool            `json:"payouts_enabled"`
	OnboardingComplete bool            `json:"onboarding_complete"`
}

// PayoutListOptions controls filtering for the admin listing.
type PayoutListOptions struct {
	Status    string
	RetreatID *uuid.UUID
	Limit     int
}

// PayoutListSummary is the aggregate block of the admin listing: the
// actionable queue an operator drains manually when the cron path is down.
type PayoutListSummary struct {
	CountsByStatus    map[string]int `json:"counts_by_status"`
	DueTodayOrEarlier int            `json:"due_today_or_earlier"`
	TotalDueAmount    int64          `json:"total_due_amount"`
}
