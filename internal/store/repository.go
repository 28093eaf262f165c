/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the payout-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation and handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retreatbase/payout-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Booking and escrow methods
	CreateBooking(ctx context.Context, booking *domain.Booking) error
	// GetBookingByPaymentIntentID is the ingestion idempotency check: a
	// redelivered checkout event finds its prior booking here and short
	// circuits before creating anything twice.
	GetBookingByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Booking, error)
	CreateBookingPayment(ctx context.Context, payment *domain.BookingPayment) error
	CreateEscrow(ctx context.Context, escrow *domain.EscrowAccount) error
	GetEscrowByID(ctx context.Context, escrowID uuid.UUID) (*domain.EscrowAccount, error)
	// ReleaseEscrow atomically moves amount from held to released under a
	// row-level lock and returns the updated account. Two concurrent
	// releases against the same escrow serialize on the row lock.
	ReleaseEscrow(ctx context.Context, escrowID uuid.UUID, amount int64, payoutType string) (*domain.EscrowAccount, error)

	// Retreat and roster methods (read-only slice of the marketplace schema)
	GetRetreat(ctx context.Context, retreatID uuid.UUID) (*domain.Retreat, error)
	ListAgreedTeamMembers(ctx context.Context, retreatID uuid.UUID) ([]domain.TeamMember, error)

	// Scheduled payout methods
	CreateScheduledPayouts(ctx context.Context, payouts []domain.ScheduledPayout) error
	FindPayoutsByIDs(ctx context.Context, ids []uuid.UUID, includeFailed bool, limit int) ([]domain.ScheduledPayout, error)
	FindDuePayouts(ctx context.Context, asOf time.Time, includeFailed bool, limit int) ([]domain.ScheduledPayout, error)
	// ClaimPayoutForProcessing transitions a payout to `processing` only if it
	// is still in a claimable state; returns false when another run got there
	// first. This is the at-most-once guard across concurrent runs.
	ClaimPayoutForProcessing(ctx context.Context, payoutID uuid.UUID) (bool, error)
	MarkPayoutCompleted(ctx context.Context, payoutID uuid.UUID, stripeTransferID string) error
	MarkPayoutFailed(ctx context.Context, payoutID uuid.UUID, failureReason string) error

	// Connected account directory (read-only)
	GetConnectedAccount(ctx context.Context, userID uuid.UUID) (*domain.ConnectedAccount, error)

	// Admin listing methods
	ListPayouts(ctx context.Context, opts domain.PayoutListOptions) ([]domain.AdminPayoutRow, error)
	SummarizePayouts(ctx context.Context, asOf time.Time) (*domain.PayoutListSummary, error)
}
