package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/openbmc-go/pldmd/internal/store/models"
)

// parseUint8 parses an 8-bit route parameter (e.g. a terminus or effecter
// component id).
func parseUint8(raw string) (uint8, error) {
	v, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// decodeJSONBody decodes r's JSON body into v. On failure it writes a 400
// response itself and returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "invalid request body")
		return false
	}
	return true
}

// mapStoreError translates an internal/store sentinel error to an HTTP
// status and message.
func mapStoreError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrTerminusNotFound):
		return http.StatusNotFound, "terminus not found"
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, models.ErrDuplicateUser):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, models.ErrDuplicateTerminus):
		return http.StatusConflict, "terminus already exists"
	case errors.Is(err, models.ErrUserDisabled):
		return http.StatusForbidden, "user account is disabled"
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// handleStoreError maps a store error to an HTTP problem response and writes it.
func handleStoreError(w http.ResponseWriter, err error) {
	status, msg := mapStoreError(err)
	WriteProblem(w, status, http.StatusText(status), msg)
}
