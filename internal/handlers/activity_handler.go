package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"therapytrack/internal/activity"
	"therapytrack/internal/service"
)

// ActivityHandler serves the combined activity feed
type ActivityHandler struct {
	activityService *service.ActivityService
	logger          *zap.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityService *service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{activityService: activityService, logger: logger}
}

// ListActivities returns one page of the feed filtered by type and q
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	typeFilter := query.Get("type")
	if _, err := activity.ParseType(typeFilter); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	page, err := h.activityService.Page(r.Context(), GetUserFromContext(r.Context()), typeFilter, query.Get("q"), queryPage(r))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
