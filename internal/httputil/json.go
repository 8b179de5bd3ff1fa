package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, ErrorResponse{Error: msg})
}

// WriteLedgerError maps the core error taxonomy to HTTP status codes.
func WriteLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrRestrictionViolation):
		WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrAlreadyWithdrawn):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInvalidArgument):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
