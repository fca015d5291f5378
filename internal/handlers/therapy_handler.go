package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"therapytrack/internal/service"
)

// TherapyHandler serves therapies and their progress reports
type TherapyHandler struct {
	therapyService *service.TherapyService
	reportService  *service.ReportService
	logger         *zap.Logger
}

// NewTherapyHandler creates a new therapy handler
func NewTherapyHandler(therapyService *service.TherapyService, reportService *service.ReportService, logger *zap.Logger) *TherapyHandler {
	return &TherapyHandler{
		therapyService: therapyService,
		reportService:  reportService,
		logger:         logger,
	}
}

// ListTherapies returns one page of the user's therapies, filtered by q
func (h *TherapyHandler) ListTherapies(w http.ResponseWriter, r *http.Request) {
	page, err := h.therapyService.PageTherapies(r.Context(), GetUserFromContext(r.Context()), r.URL.Query().Get("q"), queryPage(r))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CreateTherapy opens a therapy for a child
func (h *TherapyHandler) CreateTherapy(w http.ResponseWriter, r *http.Request) {
	var in service.TherapyInput
	if !decodeJSON(w, r, &in) {
		return
	}
	therapy, err := h.therapyService.CreateTherapy(r.Context(), GetUserFromContext(r.Context()), in)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, therapy)
}

// GetTherapy returns a therapy with the caller's edit permission
func (h *TherapyHandler) GetTherapy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.therapyService.GetTherapy(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateTherapy changes the title and notes of an owned therapy
func (h *TherapyHandler) UpdateTherapy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req therapyUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	therapy, err := h.therapyService.UpdateTherapy(r.Context(), GetUserFromContext(r.Context()), id, req.Title, req.Notes)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, therapy)
}

// Report returns the therapy's progress report
func (h *TherapyHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	report, err := h.reportService.ProgressReport(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
