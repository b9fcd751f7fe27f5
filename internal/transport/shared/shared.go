// Package shared centralizes JSON response envelopes so every handler reports
// errors the same way: a machine-readable kind plus a human-readable detail.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "lendflow/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into its HTTP status and envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorResponse{
		Error:  string(code),
		Detail: dErrors.Detail(err),
	})
}
