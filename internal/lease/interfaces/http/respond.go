package leasehttp

import (
	"encoding/json"
	"fmt"
	"net/http"

	lease "lease-escrow/internal/lease/domain"
)

type errorBody struct {
	Error string `json:"error"`
	Class string `json:"class,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusOf maps an error class to its HTTP status.
func statusOf(err error) (int, string) {
	switch lease.Class(err) {
	case lease.ErrValidation:
		return http.StatusBadRequest, "validation"
	case lease.ErrUnauthorized:
		return http.StatusForbidden, "unauthorized"
	case lease.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case lease.ErrPrecondition:
		return http.StatusUnprocessableEntity, "precondition"
	case lease.ErrConflict:
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, ""
}

func writeError(w http.ResponseWriter, err error) {
	status, class := statusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, errorBody{Error: message, Class: class})
}

var errBadBody = fmt.Errorf("%w: invalid request body", lease.ErrValidation)

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadBody
	}
	return nil
}

const maxBodyBytes = 1 << 20
