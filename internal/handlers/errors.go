package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"therapytrack/internal/service"
	"therapytrack/internal/validation"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error    string             `json:"error"`
	Redirect string             `json:"redirect,omitempty"`
	Fields   []validation.Error `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondWithError(w http.ResponseWriter, logger *zap.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		logger.Error(logMsg, zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps service errors onto status codes. A forbidden
// edit points the client back at the therapy; a missing therapy points it at
// the therapy list.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var forbidden *service.ForbiddenError
	var fields validation.Errors
	var field validation.Error

	switch {
	case errors.As(err, &forbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{
			Error:    service.ErrForbidden.Error(),
			Redirect: fmt.Sprintf("/therapies/%d", forbidden.TherapyID),
		})
	case errors.Is(err, service.ErrTherapyNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Redirect: "/therapies"})
	case errors.Is(err, service.ErrChildNotFound), errors.Is(err, service.ErrAssessmentNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrAssessmentExists), errors.Is(err, service.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrWrongRole), errors.Is(err, service.ErrEmailUnverified):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
	case errors.As(err, &field):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: []validation.Error{field}})
	default:
		respondWithError(w, logger, http.StatusInternalServerError, ErrInternalServerError, "request failed", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return false
	}
	return true
}
