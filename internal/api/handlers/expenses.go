package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/burakozf/splitledger/internal/api/httpx"
	"github.com/burakozf/splitledger/internal/api/validate"
	"github.com/burakozf/splitledger/internal/middleware"
	"github.com/burakozf/splitledger/internal/services"
)

type ExpenseHandler struct {
	Svc *services.ExpenseService
}

func NewExpenseHandler(svc *services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{Svc: svc}
}

// Create records a shared expense on behalf of the authenticated caller.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity", nil)
		return
	}
	var req services.ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed JSON body", nil)
		return
	}
	var errs validate.Errs
	if e := validate.PositiveID("paid_by", req.PaidBy); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.PositiveAmount("total_amount", req.TotalAmount); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.Required("split_type", string(req.SplitType)); e != nil {
		errs = append(errs, *e)
	}
	if len(errs) > 0 {
		writeServiceError(w, errs)
		return
	}
	views, err := h.Svc.RecordExpense(r.Context(), req, caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, views)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.GetExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// Group lists all obligations recorded by one expense.
func (h *ExpenseHandler) Group(w http.ResponseWriter, r *http.Request) {
	views, err := h.Svc.GetExpenseGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *ExpenseHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "user_id query parameter required", nil)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	views, err := h.Svc.ListUserExpenses(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *ExpenseHandler) ListBetween(w http.ResponseWriter, r *http.Request) {
	userA, ok := urlID(w, r, "userA")
	if !ok {
		return
	}
	userB, ok := urlID(w, r, "userB")
	if !ok {
		return
	}
	views, err := h.Svc.ListExpensesBetween(r.Context(), userA, userB)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

// Cancel voids an active obligation and reverses its balance effect. Only
// the creator, the payer or the ower may cancel.
func (h *ExpenseHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity", nil)
		return
	}
	if err := h.Svc.CancelExpense(r.Context(), chi.URLParam(r, "id"), caller); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
