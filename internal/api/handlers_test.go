package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/retreatbase/payout-service/internal/app"
)

func TestProcessPayoutsHandler_RejectsInvalidBody(t *testing.T) {
	h := NewPayoutHandlers(nil)
	req := httptest.NewRequest(http.MethodPost, "/payouts/process", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.ProcessPayoutsHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProcessPayoutsHandler_RejectsEmptySelection(t *testing.T) {
	h := NewPayoutHandlers(nil)
	req := httptest.NewRequest(http.MethodPost, "/payouts/process", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.ProcessPayoutsHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty selection, got %d", rec.Code)
	}
}

func TestProcessPayoutsHandler_RejectsOversizedBatch(t *testing.T) {
	h := NewPayoutHandlers(nil)

	ids := make([]string, 0, app.MaxPayoutsPerRun+1)
	for i := 0; i < app.MaxPayoutsPerRun+1; i++ {
		ids = append(ids, fmt.Sprintf("%q", uuid.New()))
	}
	body := fmt.Sprintf(`{"payout_ids":[%s]}`, strings.Join(ids, ","))

	req := httptest.NewRequest(http.MethodPost, "/payouts/process", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ProcessPayoutsHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized batch, got %d", rec.Code)
	}
}

func TestListPayoutsHandler_RejectsBadRetreatID(t *testing.T) {
	h := NewPayoutHandlers(nil)
	req := httptest.NewRequest(http.MethodGet, "/payouts?retreat_id=not-a-uuid", nil)
	rec := httptest.NewRecorder()

	h.ListPayoutsHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad retreat id, got %d", rec.Code)
	}
}

func TestListPayoutsHandler_RejectsBadLimit(t *testing.T) {
	h := NewPayoutHandlers(nil)
	req := httptest.NewRequest(http.MethodGet, "/payouts?limit=-5", nil)
	rec := httptest.NewRecorder()

	h.ListPayoutsHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}
