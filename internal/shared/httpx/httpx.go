// Package httpx holds the JSON response helpers shared by the HTTP servers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/shared/apperr"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON serializes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteRaw sends an already serialized JSON body untouched.
func WriteRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteError maps err to its status. INTERNAL details stay in the log.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	code := apperr.CodeOf(err)
	msg := err.Error()
	var e *apperr.Error
	if errors.As(err, &e) && code != apperr.CodeInternal {
		msg = e.Message
	}
	if code == apperr.CodeInternal {
		log.Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	WriteJSON(w, code.HTTPStatus(), ErrorResponse{Code: string(code), Message: msg})
}

// DecodeJSON reads a request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("bad json: %v", err)
	}
	return nil
}
