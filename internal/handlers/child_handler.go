package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"therapytrack/internal/service"
)

// ChildHandler serves child profiles
type ChildHandler struct {
	childService *service.ChildService
	logger       *zap.Logger
}

// NewChildHandler creates a new child handler
func NewChildHandler(childService *service.ChildService, logger *zap.Logger) *ChildHandler {
	return &ChildHandler{childService: childService, logger: logger}
}

// ListChildren returns the children visible to the current user
func (h *ChildHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.childService.ListChildren(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}

// CreateChild registers a child for the current parent
func (h *ChildHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var in service.ChildInput
	if !decodeJSON(w, r, &in) {
		return
	}
	child, err := h.childService.CreateChild(r.Context(), GetUserFromContext(r.Context()), in)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, child)
}

// GetChild returns one child
func (h *ChildHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	child, err := h.childService.GetChild(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, child)
}

// pathID parses a positive integer path parameter
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return 0, false
	}
	return id, true
}

// queryPage reads the page query parameter; anything unparsable is page 1
func queryPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return page
}
