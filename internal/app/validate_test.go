package app

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
)

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		name    string
		amount  int64
		wantErr bool
	}{
		{"positive", 2500, false},
		{"one cent", 1, false},
		{"zero", 0, true},
		{"negative", -100, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAmount(tc.amount)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for amount %d", tc.amount)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error for amount %d: %v", tc.amount, err)
			}
		})
	}
}

func TestNormalizeAmount(t *testing.T) {
	cases := []struct {
		name    string
		major   float64
		want    int64
		wantErr bool
	}{
		{"whole units", 125, 12500, false},
		{"fractional cents round", 19.999, 2000, false},
		{"half cent rounds up", 0.005, 1, false},
		{"negative carries through", -3.5, -350, false},
		{"nan", math.NaN(), 0, true},
		{"positive infinity", math.Inf(1), 0, true},
		{"negative infinity", math.Inf(-1), 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeAmount(tc.major)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %v", tc.major)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeAmount(%v) = %d, want %d", tc.major, got, tc.want)
			}
		})
	}
}

func TestCheckPayoutCap(t *testing.T) {
	if err := CheckPayoutCap(MaxPayoutAmount); err != nil {
		t.Fatalf("amount at the cap should pass, got %v", err)
	}
	if err := CheckPayoutCap(MaxPayoutAmount + 1); err == nil {
		t.Fatal("amount one cent over the cap should fail")
	}
}

func TestSplitFee(t *testing.T) {
	cases := []struct {
		fee         int64
		wantDeposit int64
		wantFinal   int64
	}{
		{400, 200, 200},
		{401, 200, 201},
		{1, 0, 1},
	}

	for _, tc := range cases {
		deposit, final := SplitFee(tc.fee)
		if deposit != tc.wantDeposit || final != tc.wantFinal {
			t.Fatalf("SplitFee(%d) = (%d, %d), want (%d, %d)", tc.fee, deposit, final, tc.wantDeposit, tc.wantFinal)
		}
		if deposit+final != tc.fee {
			t.Fatalf("SplitFee(%d) does not conserve the fee: %d + %d", tc.fee, deposit, final)
		}
	}
}

func TestIdempotencyKey(t *testing.T) {
	payoutID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	runID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	key := IdempotencyKey(payoutID, runID)
	want := "payout_11111111-1111-1111-1111-111111111111_run_22222222-2222-2222-2222-222222222222"
	if key != want {
		t.Fatalf("got key %q, want %q", key, want)
	}

	otherRun := IdempotencyKey(payoutID, uuid.New())
	if otherRun == key {
		t.Fatal("keys for different runs must differ")
	}
}

func TestSanitizeFailureReason(t *testing.T) {
	if got := sanitizeFailureReason("  card\n\ndeclined   by  issuer "); got != "card declined by issuer" {
		t.Fatalf("whitespace not collapsed: %q", got)
	}
	if got := sanitizeFailureReason(""); got != "unknown error" {
		t.Fatalf("empty reason should map to placeholder, got %q", got)
	}
	long := strings.Repeat("x", 2*maxFailureReasonLen)
	if got := sanitizeFailureReason(long); len(got) != maxFailureReasonLen {
		t.Fatalf("long reason not truncated, len=%d", len(got))
	}
}

func TestSanitizeFailureReason_TruncatesOnRuneBoundary(t *testing.T) {
	// Three-byte runes do not divide the length cap evenly, so a byte-index
	// cut would land inside a rune.
	long := strings.Repeat("€", maxFailureReasonLen)
	got := sanitizeFailureReason(long)
	if len(got) > maxFailureReasonLen {
		t.Fatalf("truncated reason exceeds cap, len=%d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncated reason is not valid UTF-8")
	}
	if want := strings.Repeat("€", maxFailureReasonLen/3); got != want {
		t.Fatalf("expected %d whole runes, got %d bytes", maxFailureReasonLen/3, len(got))
	}
}
