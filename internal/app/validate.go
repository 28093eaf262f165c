/**
 * @description
 * Money validation and safety-cap helpers shared by the scheduler and the
 * executor. Every amount that enters or leaves the ledger passes through
 * ValidateAmount; every disbursement additionally passes the absolute
 * per-payout cap before any external call is made.
 */

package app

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxPayoutsPerRun bounds the batch size of a single execution run.
	MaxPayoutsPerRun = 100

	// MaxPayoutAmount is the absolute per-payout cap in cents. Any single
	// disbursement above this fails before reaching the payment provider.
	MaxPayoutAmount = 5_000_000 // 50,000.00 in major units

	// maxFailureReasonLen bounds stored failure reasons so provider error
	// bodies cannot bloat the audit trail.
	maxFailureReasonLen = 500
)

var (
	ErrInvalidAmount     = errors.New("amount must be a positive whole number of cents")
	ErrPayoutExceedsCap  = errors.New("payout amount exceeds the per-payout safety cap")
	ErrEmptyRunSelection = errors.New("run request selects no payouts")
)

// ValidateAmount rejects non-positive amounts. Amounts are int64 cents end to
// end, so fractional and NaN-style inputs cannot reach this layer; zero and
// negative still can.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	return nil
}

// NormalizeAmount converts a major-unit amount to cents, rounding to the
// nearest cent. NaN, infinities, and values that overflow int64 cents are
// rejected so they can never reach the ledger.
func NormalizeAmount(major float64) (int64, error) {
	if math.IsNaN(major) || math.IsInf(major, 0) {
		return 0, fmt.Errorf("%w: not a finite number", ErrInvalidAmount)
	}
	cents := math.Round(major * 100)
	if cents >= math.MaxInt64 || cents <= math.MinInt64 {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return int64(cents), nil
}

// CheckPayoutCap enforces the absolute per-payout maximum.
func CheckPayoutCap(amount int64) error {
	if amount > MaxPayoutAmount {
		return fmt.Errorf("%w: %d > %d", ErrPayoutExceedsCap, amount, MaxPayoutAmount)
	}
	return nil
}

// SplitFee divides a fee into deposit and final installments. The deposit
// takes the floor half; the final installment absorbs the odd cent so the
// two always sum back to the fee.
func SplitFee(fee int64) (deposit int64, final int64) {
	deposit = fee / 2
	final = fee - deposit
	return deposit, final
}

// IdempotencyKey derives the provider idempotency key for one payout within
// one run. The key is stable across network retries inside a run but differs
// between runs; cross-run dedup is handled by the payout status transition.
func IdempotencyKey(payoutID, runID uuid.UUID) string {
	return fmt.Sprintf("payout_%s_run_%s", payoutID, runID)
}

// sanitizeFailureReason collapses whitespace and truncates provider error
// text before it is persisted to the payout row. Truncation backs up to a
// rune boundary so multi-byte provider text is never cut mid-rune.
func sanitizeFailureReason(reason string) string {
	reason = strings.Join(strings.Fields(reason), " ")
	if reason == "" {
		return "unknown error"
	}
	if len(reason) > maxFailureReasonLen {
		cut := maxFailureReasonLen
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut]
	}
	return reason
}
