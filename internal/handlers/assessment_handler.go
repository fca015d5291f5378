package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"therapytrack/internal/models"
	"therapytrack/internal/service"
)

// AssessmentHandler serves the four assessment variants and live score totals
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
	logger            *zap.Logger
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(assessmentService *service.AssessmentService, logger *zap.Logger) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService, logger: logger}
}

// CreateAssessment records an assessment for a therapy
func (h *AssessmentHandler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	therapyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	var req assessmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.assessmentService.CreateAssessment(r.Context(), GetUserFromContext(r.Context()), therapyID, kind, req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// GetAssessment returns one assessment
func (h *AssessmentHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.assessmentService.GetAssessment(r.Context(), GetUserFromContext(r.Context()), kind, id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateAssessment replaces an assessment's scores
func (h *AssessmentHandler) UpdateAssessment(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req assessmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.assessmentService.UpdateAssessment(r.Context(), GetUserFromContext(r.Context()), kind, id, req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// PreviewTotal recomputes the total while a form is being filled in
func (h *AssessmentHandler) PreviewTotal(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	preview, err := h.assessmentService.PreviewTotal(r.PathValue("instrument"), req.Scores)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (req assessmentRequest) input() service.AssessmentInput {
	return service.AssessmentInput{
		Scores:          req.Scores,
		Interpretations: req.Interpretations,
		Recommendation:  req.Recommendation,
	}
}

func pathKind(w http.ResponseWriter, r *http.Request) (models.AssessmentKind, bool) {
	kind, err := models.ParseAssessmentKind(r.PathValue("kind"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return "", false
	}
	return kind, true
}
