package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"therapytrack/internal/models"
	"therapytrack/internal/security"
	"therapytrack/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	csrf                 *security.CSRFGenerator
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	logger               *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, csrf *security.CSRFGenerator, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, logger *zap.Logger) *AuthHandler {
	if oauthProviders == nil {
		oauthProviders = map[string]OAuthProvider{}
	}
	return &AuthHandler{
		authService:          authService,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		logger:               logger,
	}
}

// Register creates an account and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name, req.Role); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	// Auto-login after registration
	session, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "login after registration failed", err)
		return
	}
	h.startSession(w, r, http.StatusCreated, session, user)
}

// Login checks credentials and sets the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
			return
		}
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "login failed", err)
		return
	}
	h.startSession(w, r, http.StatusOK, session, user)
}

// Token issues a bearer token for API clients that do not keep cookies
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, expiresAt, err := h.authService.IssueToken(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
			return
		}
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "token issue failed", err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}

// Logout ends the session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to delete session", zap.Error(err))
		}
	}

	http.SetCookie(w, security.ExpiredCookie(r, security.SessionCookieName))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current user and, for cookie sessions, a fresh CSRF token
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	resp := meResponse{User: GetUserFromContext(r.Context())}
	if sessionID := sessionFromContext(r.Context()); sessionID != "" {
		token, err := h.csrf.Token(sessionID)
		if err != nil {
			respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "csrf token failed", err)
			return
		}
		resp.CSRFToken = token
	}
	writeJSON(w, http.StatusOK, resp)
}

// Providers lists the OAuth providers that are configured
func (h *AuthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.oauthProviderViews())
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, session *models.Session, user *models.User) {
	token, err := h.csrf.Token(session.ID)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "csrf token failed", err)
		return
	}

	http.SetCookie(w, security.SessionCookie(r, session.ID, session.ExpiresAt))
	h.logger.Info("user signed in",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)
	writeJSON(w, status, sessionResponse{User: user, CSRFToken: token, ExpiresAt: session.ExpiresAt})
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
