package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"therapytrack/internal/service"
	"therapytrack/internal/validation"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.NewNop(), 418, "Teapot", "", nil)

	if recorder.Code != 418 {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected JSON content type, got %q", got)
	}
	if body := decodeError(t, recorder); body.Error != "Teapot" {
		t.Fatalf("expected error 'Teapot', got %q", body.Error)
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.New(core), 500, "Internal server error", "", errors.New("boom"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].Message != "Internal server error" {
		t.Fatalf("expected log to use user message, got %q", entries[0].Message)
	}
	if got := entries[0].ContextMap()["error"]; got != "boom" {
		t.Fatalf("expected log to include error, got %v", got)
	}
}

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantRedirect string
		wantFields   int
	}{
		{"forbidden edit", &service.ForbiddenError{TherapyID: 7}, http.StatusForbidden, "/therapies/7", 0},
		{"wrapped forbidden", fmt.Errorf("save: %w", &service.ForbiddenError{TherapyID: 3}), http.StatusForbidden, "/therapies/3", 0},
		{"missing therapy", service.ErrTherapyNotFound, http.StatusNotFound, "/therapies", 0},
		{"missing assessment", service.ErrAssessmentNotFound, http.StatusNotFound, "", 0},
		{"duplicate assessment", service.ErrAssessmentExists, http.StatusConflict, "", 0},
		{"wrong role", service.ErrWrongRole, http.StatusForbidden, "", 0},
		{"unverified oauth email", service.ErrEmailUnverified, http.StatusForbidden, "", 0},
		{"field errors", validation.Errors{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}, http.StatusBadRequest, "", 2},
		{"single field error", validation.Error{Field: "title", Message: "title is required"}, http.StatusBadRequest, "", 1},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, zap.NewNop(), tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeError(t, rec)
			if body.Redirect != tt.wantRedirect {
				t.Errorf("redirect = %q, want %q", body.Redirect, tt.wantRedirect)
			}
			if len(body.Fields) != tt.wantFields {
				t.Errorf("fields = %v, want %d entries", body.Fields, tt.wantFields)
			}
		})
	}
}
