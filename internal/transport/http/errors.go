package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"exam-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

type errorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	QuestionIndex *int   `json:"questionIndex,omitempty"`
}

var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{domain.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{domain.ErrTestNotActive, http.StatusConflict, "test_not_active"},
	{domain.ErrDuplicateSubmission, http.StatusConflict, "duplicate_submission"},
	{domain.ErrVersionConflict, http.StatusConflict, "version_conflict"},
	{domain.ErrDeadlineExceeded, http.StatusGone, "deadline_exceeded"},
	{domain.ErrLockTimeout, http.StatusServiceUnavailable, "lock_timeout"},
}

// writeError maps an error kind to its status code and JSON body.
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp := errorResponse{Error: verr.Error(), Code: "validation_error"}
		if verr.QuestionIndex >= 0 {
			idx := verr.QuestionIndex
			resp.QuestionIndex = &idx
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		writeProblem(w, http.StatusUnprocessableEntity, "validation_error", fieldErrs.Error())
		return
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			writeProblem(w, k.status, k.code, err.Error())
			return
		}
	}
	log.Printf("internal error: %v", err)
	writeProblem(w, http.StatusInternalServerError, "internal", "internal error")
}

func writeProblem(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
