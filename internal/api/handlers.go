/**
 * @description
 * This file contains the HTTP handlers for the payout-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/retreatbase/payout-service/internal/app"
	"github.com/retreatbase/payout-service/internal/domain"
	"github.com/retreatbase/payout-service/internal/store"
)

// PayoutHandlers holds the application service that handlers will use.
type PayoutHandlers struct {
	service *app.Service
}

// NewPayoutHandlers creates a new instance of PayoutHandlers.
func NewPayoutHandlers(service *app.Service) *PayoutHandlers {
	return &PayoutHandlers{service: service}
}

// payoutListResponse is the admin listing payload: the joined rows plus the
// aggregate summary block.
type payoutListResponse struct {
	Payouts []domain.AdminPayoutRow   `json:"payouts"`
	Summary *domain.PayoutListSummary `json:"summary"`
}

// ProcessPayoutsHandler runs a payout batch for the admin surface. Callers
// either name explicit payout ids or set process_all_due.
func (h *PayoutHandlers) ProcessPayoutsHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.PayoutRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if len(req.PayoutIDs) == 0 && !req.ProcessAllDue {
		h.writeError(w, http.StatusBadRequest, "Request must name payout_ids or set process_all_due")
		return
	}
	if len(req.PayoutIDs) > app.MaxPayoutsPerRun {
		h.writeError(w, http.StatusBadRequest, "Too many payout ids for a single run")
		return
	}

	summary, err := h.service.RunPayouts(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrEmptyRunSelection) {
			h.writeError(w, http.StatusBadRequest, "Request must name payout_ids or set process_all_due")
			return
		}
		log.Printf("level=error component=api msg=\"payout run failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Payout run failed")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// CronProcessPayoutsHandler is the scheduler-facing variant: no body, always
// drains the due queue. Auth and rate limiting happen in middleware.
func (h *PayoutHandlers) CronProcessPayoutsHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.RunPayouts(r.Context(), domain.PayoutRunRequest{ProcessAllDue: true})
	if err != nil {
		log.Printf("level=error component=api msg=\"cron payout run failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Payout run failed")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// ListPayoutsHandler serves the admin payout listing with optional status and
// retreat filters.
func (h *PayoutHandlers) ListPayoutsHandler(w http.ResponseWriter, r *http.Request) {
	opts := domain.PayoutListOptions{
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
	}

	if retreatParam := strings.TrimSpace(r.URL.Query().Get("retreat_id")); retreatParam != "" {
		retreatID, err := uuid.Parse(retreatParam)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid retreat_id")
			return
		}
		opts.RetreatID = &retreatID
	}

	if limitParam := strings.TrimSpace(r.URL.Query().Get("limit")); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit <= 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		opts.Limit = limit
	}

	rows, summary, err := h.service.ListPayouts(r.Context(), opts)
	if err != nil {
		log.Printf("level=error component=api msg=\"payout listing failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Could not list payouts")
		return
	}
	if rows == nil {
		rows = []domain.AdminPayoutRow{}
	}

	h.writeJSON(w, http.StatusOK, payoutListResponse{Payouts: rows, Summary: summary})
}

// GetEscrowHandler serves one escrow account for the admin surface.
func (h *PayoutHandlers) GetEscrowHandler(w http.ResponseWriter, r *http.Request) {
	escrowID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "escrowID")))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid escrow id")
		return
	}

	escrow, err := h.service.GetEscrow(r.Context(), escrowID)
	if err != nil {
		if errors.Is(err, store.ErrEscrowNotFound) {
			h.writeError(w, http.StatusNotFound, "Escrow account not found")
			return
		}
		log.Printf("level=error component=api msg=\"escrow lookup failed\" escrow_id=%s err=%v", escrowID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not load escrow account")
		return
	}

	h.writeJSON(w, http.StatusOK, escrow)
}

// writeJSON is a helper for writing JSON responses.
func (h *PayoutHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *PayoutHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
