// Package httpx holds the JSON response helpers every handler writes
// through, so success and error bodies stay uniform across the API.
package httpx

import (
	"encoding/json"
	"net/http"
)

// APIError is the error envelope clients receive. Code is a stable
// machine-readable token; Details carries field-level validation output
// when present.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding failures are dropped:
// the status line is already on the wire by then.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an APIError envelope with the given status.
func WriteError(w http.ResponseWriter, status int, code, msg string, details any) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}
