/**
 * @description
 * This file defines the escrow ledger domain model. An EscrowAccount holds one
 * booking's funds between checkout completion and disbursement to team members.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (cents), which
 *   avoids floating-point inaccuracies with financial data.
 * - The ledger invariant is held + released + refunded == total after every
 *   mutation; held only decreases and released only increases once the account
 *   is created.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Escrow account statuses. An account never regresses from a released state
// back to holding except through the refund flow.
const (
	EscrowStatusHolding         = "holding"
	EscrowStatusPartialReleased = "partial_released"
	EscrowStatusFullyReleased   = "fully_released"
	EscrowStatusRefunded        = "refunded"
	EscrowStatusDisputed        = "disputed"
)

// EscrowAccount is the ledger record for one booking's payment. It maps
// directly to the `escrow_accounts` table.
type EscrowAccount struct {
	ID              uuid.UUID  `json:"id"`
	BookingID       uuid.UUID  `json:"booking_id"`
	TotalAmount     int64      `json:"total_amount"`    // in cents, set once at creation
	HeldAmount      int64      `json:"held_amount"`     // in cents
	ReleasedAmount  int64      `json:"released_amount"` // in cents
	RefundedAmount  int64      `json:"refunded_amount"` // in cents
	PlatformFee     int64      `json:"platform_fee"`    // in cents
	Status          string     `json:"status"`
	PaymentIntentID string     `json:"payment_intent_id"`
	DepositReleased *time.Time `json:"deposit_released_at,omitempty"`
	FinalReleased   *time.Time `json:"final_released_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// StatusAfterRelease returns the escrow status implied by the held amount that
// remains after a release has been applied.
func StatusAfterRelease(remainingHeld int64) string {
	if remainingHeld <= 0 {
		return EscrowStatusFullyReleased
	}
	return EscrowStatusPartialReleased
}

// Booking links a paying guest to a retreat and anchors the escrow account.
type Booking struct {
	ID              uuid.UUID `json:"id"`
	RetreatID       uuid.UUID `json:"retreat_id"`
	GuestUserID     uuid.UUID `json:"guest_user_id"`
	AmountTotal     int64     `json:"amount_total"` // in cents
	PlatformFee     int64     `json:"platform_fee"` // in cents
	PaymentIntentID string    `json:"payment_intent_id"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// BookingPayment is the payment audit record written alongside the escrow
// account when a checkout completes.
type BookingPayment struct {
	ID              uuid.UUID `json:"id"`
	BookingID       uuid.UUID `json:"booking_id"`
	Amount          int64     `json:"amount"`       // in cents
	PlatformFee     int64     `json:"platform_fee"` // in cents
	PaymentIntentID string    `json:"payment_intent_id"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// Retreat is the slice of the retreats table the payout engine reads: the
// start date drives final-payout scheduling and the title feeds the admin
// listing.
type Retreat struct {
	ID         uuid.UUID  `json:"id"`
	HostUserID uuid.UUID  `json:"host_user_id"`
	Title      string     `json:"title"`
	StartDate  *time.Time `json:"start_date,omitempty"`
}
