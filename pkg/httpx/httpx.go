package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"payablelane/pkg/domain"

	"github.com/google/uuid"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// PeekJSON decodes the body into dst without consuming it: the returned
// reader carries the full body for a later ReadJSON. Unknown fields are
// allowed here since dst is usually a partial view of the request.
func PeekJSON(r *http.Request, dst any) (io.ReadCloser, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	WriteJSON(w, status, resp)
}

// WriteDomainError maps the core error taxonomy onto HTTP statuses.
func WriteDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", ve.Error(), map[string]any{"field": ve.Field})
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusForbidden, "UNAUTHORIZED", err.Error(), nil)
	case errors.Is(err, domain.ErrWrongSigner):
		WriteError(w, http.StatusConflict, "WRONG_SIGNER", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, domain.ErrDeedNotExecuted):
		WriteError(w, http.StatusConflict, "DEED_NOT_EXECUTED", err.Error(), nil)
	case errors.Is(err, domain.ErrAlreadyMinted):
		WriteError(w, http.StatusConflict, "ALREADY_MINTED", err.Error(), nil)
	case errors.Is(err, domain.ErrConflict):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
