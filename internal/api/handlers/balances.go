package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/burakozf/splitledger/internal/api/httpx"
	"github.com/burakozf/splitledger/internal/services"
)

type BalanceHandler struct {
	Svc *services.BalanceService
}

func NewBalanceHandler(svc *services.BalanceService) *BalanceHandler {
	return &BalanceHandler{Svc: svc}
}

// Pair reports the balance between two users from the first user's side.
func (h *BalanceHandler) Pair(w http.ResponseWriter, r *http.Request) {
	userA, ok := urlID(w, r, "userA")
	if !ok {
		return
	}
	userB, ok := urlID(w, r, "userB")
	if !ok {
		return
	}
	pb, err := h.Svc.GetPairBalance(r.Context(), userA, userB)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pb)
}

func (h *BalanceHandler) User(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}
	balances, err := h.Svc.GetUserBalances(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, balances)
}

func (h *BalanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}
	summary, err := h.Svc.GetSummary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary)
}

// Optimize suggests the minimal payment set that settles the given group.
func (h *BalanceHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserIDs []int64 `json:"user_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed JSON body", nil)
		return
	}
	opt, err := h.Svc.Optimize(r.Context(), req.UserIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, opt)
}

func (h *BalanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}
