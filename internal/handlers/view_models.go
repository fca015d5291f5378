package handlers

import (
	"time"

	"therapytrack/internal/models"
)

type registerRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is returned after a cookie login. The CSRF token must be
// echoed in the X-CSRF-Token header on later mutations.
type sessionResponse struct {
	User      *models.User `json:"user"`
	CSRFToken string       `json:"csrf_token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type meResponse struct {
	User      *models.User `json:"user"`
	CSRFToken string       `json:"csrf_token,omitempty"`
}

type therapyUpdateRequest struct {
	Title string `json:"title"`
	Notes string `json:"notes"`
}

type assessmentRequest struct {
	Scores          map[string]string `json:"scores"`
	Interpretations map[string]string `json:"interpretations"`
	Recommendation  string            `json:"recommendation"`
}

type previewRequest struct {
	Scores map[string]string `json:"scores"`
}

// OAuthProviderView describes a configured sign-in provider
type OAuthProviderView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

type healthResponse struct {
	Status   string        `json:"status"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}
