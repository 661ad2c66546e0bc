package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/burakozf/splitledger/internal/api/httpx"
	"github.com/burakozf/splitledger/internal/api/validate"
	"github.com/burakozf/splitledger/internal/middleware"
	"github.com/burakozf/splitledger/internal/services"
)

type SettlementHandler struct {
	Svc *services.SettlementService
}

func NewSettlementHandler(svc *services.SettlementService) *SettlementHandler {
	return &SettlementHandler{Svc: svc}
}

// Create records a debt repayment from payer to payee. The caller must be
// one of the two parties.
func (h *SettlementHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity", nil)
		return
	}
	var req services.SettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed JSON body", nil)
		return
	}
	var errs validate.Errs
	if e := validate.PositiveID("payer_id", req.PayerID); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.PositiveID("payee_id", req.PayeeID); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.PositiveAmount("amount", req.Amount); e != nil {
		errs = append(errs, *e)
	}
	if len(errs) > 0 {
		writeServiceError(w, errs)
		return
	}
	settlement, err := h.Svc.Create(r.Context(), req, caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, settlement)
}

func (h *SettlementHandler) Get(w http.ResponseWriter, r *http.Request) {
	settlement, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, settlement)
}

func (h *SettlementHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}
	settlements, err := h.Svc.ListByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, settlements)
}

func (h *SettlementHandler) ListBetween(w http.ResponseWriter, r *http.Request) {
	userA, ok := urlID(w, r, "userA")
	if !ok {
		return
	}
	userB, ok := urlID(w, r, "userB")
	if !ok {
		return
	}
	settlements, err := h.Svc.ListBetween(r.Context(), userA, userB)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, settlements)
}
