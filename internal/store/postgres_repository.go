/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the SQL needed by the payout engine: escrow ledger mutations,
 * scheduled payout state transitions, the read-only roster/connected-account
 * slices, and the admin listing joins.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/retreatbase/payout-service/internal/domain"
)

var (
	ErrBookingNotFound          = errors.New("booking not found")
	ErrEscrowNotFound           = errors.New("escrow account not found")
	ErrInsufficientEscrowFunds  = errors.New("insufficient escrow funds")
	ErrRetreatNotFound          = errors.New("retreat not found")
	ErrPayoutNotFound           = errors.New("scheduled payout not found")
	ErrConnectedAccountNotFound = errors.New("connected payment account not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateBooking inserts the booking record that anchors the escrow account.
func (r *PostgresRepository) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, retreat_id, guest_user_id, amount_total, platform_fee, payment_intent_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.RetreatID,
		booking.GuestUserID,
		booking.AmountTotal,
		booking.PlatformFee,
		booking.PaymentIntentID,
		booking.Status,
	)
	return err
}

// GetBookingByPaymentIntentID looks up the booking created for a payment
// intent, if any. Used to make checkout-event ingestion idempotent under
// at-least-once delivery.
func (r *PostgresRepository) GetBookingByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Booking, error) {
	var booking domain.Booking
	query := `
		SELECT id, retreat_id, guest_user_id, amount_total, platform_fee, payment_intent_id, status, created_at
		FROM bookings
		WHERE payment_intent_id = $1
	`
	err := r.db.QueryRow(ctx, query, paymentIntentID).Scan(
		&booking.ID,
		&booking.RetreatID,
		&booking.GuestUserID,
		&booking.AmountTotal,
		&booking.PlatformFee,
		&booking.PaymentIntentID,
		&booking.Status,
		&booking.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// CreateBookingPayment inserts the payment audit record for a booking.
func (r *PostgresRepository) CreateBookingPayment(ctx context.Context, payment *domain.BookingPayment) error {
	query := `
		INSERT INTO booking_payments (id, booking_id, amount, platform_fee, payment_intent_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.Amount,
		payment.PlatformFee,
		payment.PaymentIntentID,
		payment.Status,
	)
	return err
}

// CreateEscrow inserts a new escrow account. Called exactly once per booking
// when a checkout-completed event is processed.
func (r *PostgresRepository) CreateEscrow(ctx context.Context, escrow *domain.EscrowAccount) error {
	query := `
		INSERT INTO escrow_accounts (
			id, booking_id, total_amount, held_amount, released_amount, refunded_amount,
			platform_fee, status, payment_intent_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		escrow.ID,
		escrow.BookingID,
		escrow.TotalAmount,
		escrow.HeldAmount,
		escrow.ReleasedAmount,
		escrow.RefundedAmount,
		escrow.PlatformFee,
		escrow.Status,
		escrow.PaymentIntentID,
	)
	return err
}

const escrowColumns = `
	id, booking_id, total_amount, held_amount, released_amount, refunded_amount,
	platform_fee, status, payment_intent_id, deposit_released_at, final_released_at,
	created_at, updated_at
`

func scanEscrow(row pgx.Row) (*domain.EscrowAccount, error) {
	var escrow domain.EscrowAccount
	err := row.Scan(
		&escrow.ID,
		&escrow.BookingID,
		&escrow.TotalAmount,
		&escrow.HeldAmount,
		&escrow.ReleasedAmount,
		&escrow.RefundedAmount,
		&escrow.PlatformFee,
		&escrow.Status,
		&escrow.PaymentIntentID,
		&escrow.DepositReleased,
		&escrow.FinalReleased,
		&escrow.CreatedAt,
		&escrow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

// GetEscrowByID retrieves one escrow account.
func (r *PostgresRepository) GetEscrowByID(ctx context.Context, escrowID uuid.UUID) (*domain.EscrowAccount, error) {
	query := fmt.Sprintf("SELECT %s FROM escrow_accounts WHERE id = $1", escrowColumns)
	escrow, err := scanEscrow(r.db.QueryRow(ctx, query, escrowID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrEscrowNotFound
		}
		return nil, err
	}
	return escrow, nil
}

// ReleaseEscrow moves amount from held to released under a FOR UPDATE row
// lock so concurrent runs against the same escrow serialize. Fails with
// ErrInsufficientEscrowFunds when the held balance cannot cover the release.
func (r *PostgresRepository) ReleaseEscrow(ctx context.Context, escrowID uuid.UUID, amount int64, payoutType string) (*domain.EscrowAccount, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var held int64
	err = tx.QueryRow(ctx, "SELECT held_amount FROM escrow_accounts WHERE id = $1 FOR UPDATE", escrowID).Scan(&held)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrEscrowNotFound
		}
		return nil, err
	}
	if held < amount {
		return nil, ErrInsufficientEscrowFunds
	}

	newStatus := domain.StatusAfterRelease(held - amount)
	stampColumn := "deposit_released_at"
	if payoutType == domain.PayoutTypeFinal {
		stampColumn = "final_released_at"
	}

	query := fmt.Sprintf(`
		UPDATE escrow_accounts
		SET held_amount = held_amount - $1,
		    released_amount = released_amount + $1,
		    status = $2,
		    %s = NOW(),
		    updated_at = NOW()
		WHERE id = $3
		RETURNING %s
	`, stampColumn, escrowColumns)

	escrow, err := scanEscrow(tx.QueryRow(ctx, query, amount, newStatus, escrowID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return escrow, nil
}

// GetRetreat retrieves the slice of a retreat the payout engine needs.
func (r *PostgresRepository) GetRetreat(ctx context.Context, retreatID uuid.UUID) (*domain.Retreat, error) {
	var retreat domain.Retreat
	query := `SELECT id, host_user_id, title, start_date FROM retreats WHERE id = $1`
	err := r.db.QueryRow(ctx, query, retreatID).Scan(&retreat.ID, &retreat.HostUserID, &retreat.Title, &retreat.StartDate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRetreatNotFound
		}
		return nil, err
	}
	return &retreat, nil
}

// ListAgreedTeamMembers retrieves the roster entries with agreed fee terms
// for a retreat. Only these generate scheduled payouts. The fee_amount
// column is a decimal in major units; cents conversion happens in app.
func (r *PostgresRepository) ListAgreedTeamMembers(ctx context.Context, retreatID uuid.UUID) ([]domain.TeamMember, error) {
	query := `
		SELECT id, retreat_id, user_id, role, fee_amount, COALESCE(fee_type, 'flat'), agreed
		FROM retreat_team_members
		WHERE retreat_id = $1 AND agreed = true
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, retreatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.TeamMember
	for rows.Next() {
		var member domain.TeamMember
		err := rows.Scan(
			&member.ID,
			&member.RetreatID,
			&member.UserID,
			&member.Role,
			&member.FeeAmount,
			&member.FeeType,
			&member.Agreed,
		)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// CreateScheduledPayouts inserts all payout rows for one booking atomically.
func (r *PostgresRepository) CreateScheduledPayouts(ctx context.Context, payouts []domain.ScheduledPayout) error {
	if len(payouts) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO scheduled_payouts (
			id, escrow_id, recipient_user_id, retreat_team_id, amount, payout_type,
			scheduled_date, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, payout := range payouts {
		_, err := tx.Exec(ctx, query,
			payout.ID,
			payout.EscrowID,
			payout.RecipientUserID,
			payout.RetreatTeamID,
			payout.Amount,
			payout.PayoutType,
			payout.ScheduledDate,
			payout.Status,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const scheduledPayoutColumns = `
	id, escrow_id, recipient_user_id, retreat_team_id, amount, payout_type,
	scheduled_date, status, stripe_transfer_id, failure_reason, processed_at,
	created_at, updated_at
`

func collectScheduledPayouts(rows pgx.Rows) ([]domain.ScheduledPayout, error) {
	var payouts []domain.ScheduledPayout
	for rows.Next() {
		var payout domain.ScheduledPayout
		err := rows.Scan(
			&payout.ID,
			&payout.EscrowID,
			&payout.RecipientUserID,
			&payout.RetreatTeamID,
			&payout.Amount,
			&payout.PayoutType,
			&payout.ScheduledDate,
			&payout.Status,
			&payout.StripeTransferID,
			&payout.FailureReason,
			&payout.ProcessedAt,
			&payout.CreatedAt,
			&payout.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, payout)
	}
	return payouts, rows.Err()
}

func claimableStatuses(includeFailed bool) []string {
	statuses := []string{domain.PayoutStatusScheduled}
	if includeFailed {
		statuses = append(statuses, domain.PayoutStatusFailed)
	}
	return statuses
}

// FindPayoutsByIDs retrieves an explicit batch of payouts still in a
// re-executable state, earliest scheduled first. Completed and cancelled
// payouts are filtered out so replaying a batch is a no-op for them.
func (r *PostgresRepository) FindPayoutsByIDs(ctx context.Context, ids []uuid.UUID, includeFailed bool, limit int) ([]domain.ScheduledPayout, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM scheduled_payouts
		WHERE id = ANY($1) AND status = ANY($2)
		ORDER BY scheduled_date ASC, created_at ASC
		LIMIT $3
	`, scheduledPayoutColumns)

	rows, err := r.db.Query(ctx, query, ids, claimableStatuses(includeFailed), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScheduledPayouts(rows)
}

// FindDuePayouts retrieves payouts due on or before asOf, earliest
// obligations first, capped at limit.
func (r *PostgresRepository) FindDuePayouts(ctx context.Context, asOf time.Time, includeFailed bool, limit int) ([]domain.ScheduledPayout, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM scheduled_payouts
		WHERE status = ANY($1) AND scheduled_date <= $2
		ORDER BY scheduled_date ASC, created_at ASC
		LIMIT $3
	`, scheduledPayoutColumns)

	rows, err := r.db.Query(ctx, query, claimableStatuses(includeFailed), asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScheduledPayouts(rows)
}

// ClaimPayoutForProcessing transitions a payout to processing only if it is
// still claimable. A false return means another run claimed or completed it
// first; the caller treats that as a skip.
func (r *PostgresRepository) ClaimPayoutForProcessing(ctx context.Context, payoutID uuid.UUID) (bool, error) {
	query := `
		UPDATE scheduled_payouts
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
	`
	tag, err := r.db.Exec(ctx, query, payoutID,
		domain.PayoutStatusProcessing,
		domain.PayoutStatusScheduled,
		domain.PayoutStatusFailed,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkPayoutCompleted records a successful disbursement. Guarded so a
// completed payout can never be overwritten.
func (r *PostgresRepository) MarkPayoutCompleted(ctx context.Context, payoutID uuid.UUID, stripeTransferID string) error {
	query := `
		UPDATE scheduled_payouts
		SET status = $2, stripe_transfer_id = $3, failure_reason = NULL,
		    processed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status <> $2
	`
	tag, err := r.db.Exec(ctx, query, payoutID, domain.PayoutStatusCompleted, stripeTransferID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPayoutNotFound
	}
	return nil
}

// MarkPayoutFailed records a terminal failure with a bounded reason string.
func (r *PostgresRepository) MarkPayoutFailed(ctx context.Context, payoutID uuid.UUID, failureReason string) error {
	query := `
		UPDATE scheduled_payouts
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status <> $4
	`
	tag, err := r.db.Exec(ctx, query, payoutID,
		domain.PayoutStatusFailed,
		failureReason,
		domain.PayoutStatusCompleted,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPayoutNotFound
	}
	return nil
}

// GetConnectedAccount retrieves a recipient's connected payment account.
func (r *PostgresRepository) GetConnectedAccount(ctx context.Context, userID uuid.UUID) (*domain.ConnectedAccount, error) {
	var account domain.ConnectedAccount
	query := `
		SELECT user_id, stripe_account_id, payouts_enabled, onboarding_complete
		FROM connected_accounts
		WHERE user_id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&account.UserID,
		&account.StripeAccountID,
		&account.PayoutsEnabled,
		&account.OnboardingComplete,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrConnectedAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListPayouts retrieves scheduled payouts joined with escrow, retreat,
// recipient profile, and connected-account context for the admin surface.
func (r *PostgresRepository) ListPayouts(ctx context.Context, opts domain.PayoutListOptions) ([]domain.AdminPayoutRow, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	query := `
		SELECT
			sp.id, sp.escrow_id, sp.recipient_user_id, sp.retreat_team_id, sp.amount,
			sp.payout_type, sp.scheduled_date, sp.status, sp.stripe_transfer_id,
			sp.failure_reason, sp.processed_at, sp.created_at, sp.updated_at,
			ea.held_amount, ea.released_amount, ea.status AS escrow_status,
			rt.id AS retreat_id, rt.title AS retreat_title, rt.start_date,
			COALESCE(u.full_name, '') AS recipient_name,
			COALESCE(u.email, '') AS recipient_email,
			ca.user_id IS NOT NULL AS account_connected,
			COALESCE(ca.payouts_enabled, false) AS payouts_enabled,
			COALESCE(ca.onboarding_complete, false) AS onboarding_complete
		FROM scheduled_payouts sp
		JOIN escrow_accounts ea ON ea.id = sp.escrow_id
		JOIN bookings b ON b.id = ea.booking_id
		JOIN retreats rt ON rt.id = b.retreat_id
		LEFT JOIN users u ON u.id = sp.recipient_user_id
		LEFT JOIN connected_accounts ca ON ca.user_id = sp.recipient_user_id
		WHERE 1 = 1
	`

	args := []interface{}{}
	argPos := 1
	if status := strings.TrimSpace(strings.ToLower(opts.Status)); status != "" {
		query += fmt.Sprintf(" AND sp.status = $%d", argPos)
		args = append(args, status)
		argPos++
	}
	if opts.RetreatID != nil {
		query += fmt.Sprintf(" AND rt.id = $%d", argPos)
		args = append(args, *opts.RetreatID)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY sp.scheduled_date ASC, sp.created_at ASC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.AdminPayoutRow, 0, limit)
	for rows.Next() {
		var row domain.AdminPayoutRow
		err := rows.Scan(
			&row.Payout.ID,
			&row.Payout.EscrowID,
			&row.Payout.RecipientUserID,
			&row.Payout.RetreatTeamID,
			&row.Payout.Amount,
			&row.Payout.PayoutType,
			&row.Payout.ScheduledDate,
			&row.Payout.Status,
			&row.Payout.StripeTransferID,
			&row.Payout.FailureReason,
			&row.Payout.ProcessedAt,
			&row.Payout.CreatedAt,
			&row.Payout.UpdatedAt,
			&row.EscrowHeldAmount,
			&row.EscrowReleased,
			&row.EscrowStatus,
			&row.RetreatID,
			&row.RetreatTitle,
			&row.RetreatStartDate,
			&row.RecipientName,
			&row.RecipientEmail,
			&row.AccountConnected,
			&row.PayoutsEnabled,
			&row.OnboardingComplete,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// SummarizePayouts computes the status counts and the actionable due queue
// (scheduled payouts due on or before asOf) for the admin listing.
func (r *PostgresRepository) SummarizePayouts(ctx context.Context, asOf time.Time) (*domain.PayoutListSummary, error) {
	summary := &domain.PayoutListSummary{CountsByStatus: make(map[string]int)}

	rows, err := r.db.Query(ctx, "SELECT status, COUNT(*) FROM scheduled_payouts GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary.CountsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query := `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM scheduled_payouts
		WHERE status = $1 AND scheduled_date <= $2
	`
	err = r.db.QueryRow(ctx, query, domain.PayoutStatusScheduled, asOf).Scan(
		&summary.DueTodayOrEarlier,
		&summary.TotalDueAmount,
	)
	if err != nil {
		return nil, err
	}

	return summary, nil
}
