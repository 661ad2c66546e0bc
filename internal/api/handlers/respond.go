package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/burakozf/splitledger/internal/api/httpx"
	"github.com/burakozf/splitledger/internal/api/validate"
	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/netting"
	"github.com/burakozf/splitledger/internal/repository"
	"github.com/burakozf/splitledger/internal/services"
	"github.com/burakozf/splitledger/internal/splitter"
)

// writeServiceError maps service-layer errors onto HTTP statuses. Validation
// failures are 400, authorization failures 403, missing records 404 and
// state conflicts 409; anything unrecognized is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var verrs validate.Errs
	if errors.As(err, &verrs) {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "invalid request", verrs)
		return
	}
	switch {
	case errors.Is(err, splitter.ErrInvalidSplit),
		errors.Is(err, models.ErrSameUser),
		errors.Is(err, netting.ErrTooFewUsers),
		errors.Is(err, services.ErrBelowMinimum),
		errors.Is(err, services.ErrAboveMaximum),
		errors.Is(err, services.ErrTooManyParticipants),
		errors.Is(err, services.ErrPayerNotIncluded),
		errors.Is(err, services.ErrInvalidMethod):
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
	case errors.Is(err, services.ErrNotParticipant):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, repository.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "record not found", nil)
	case errors.Is(err, services.ErrNoDebt),
		errors.Is(err, services.ErrExceedsDebt),
		errors.Is(err, services.ErrNotActive),
		errors.Is(err, repository.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

// urlID parses a positive int64 path parameter, writing a 400 on failure.
func urlID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", name+" must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
