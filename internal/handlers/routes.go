package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"therapytrack/internal/metrics"
	"therapytrack/internal/models"
	"therapytrack/internal/security"
)

// Router bundles the handlers and middleware served by the API
type Router struct {
	Middleware  *Middleware
	Auth        *AuthHandler
	Children    *ChildHandler
	Therapies   *TherapyHandler
	Assessments *AssessmentHandler
	Activities  *ActivityHandler
	Startup     *StartupStatus
	AuthLimiter *security.RateLimiter
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// Handler registers every route and wraps the mux in request logging
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	m := rt.Middleware

	mux.HandleFunc("GET /healthz", rt.Startup.Health)
	mux.Handle("GET /metrics", rt.Metrics.Handler())

	// Auth routes
	mux.HandleFunc("POST /api/auth/register", m.RateLimit(rt.AuthLimiter, rt.Auth.Register))
	mux.HandleFunc("POST /api/auth/login", m.RateLimit(rt.AuthLimiter, rt.Auth.Login))
	mux.HandleFunc("POST /api/auth/token", m.RateLimit(rt.AuthLimiter, rt.Auth.Token))
	mux.HandleFunc("POST /api/auth/logout", rt.Auth.Logout)
	mux.HandleFunc("GET /api/auth/providers", rt.Auth.Providers)
	mux.HandleFunc("GET /api/auth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /api/auth/{provider}/callback", rt.Auth.OAuthCallback)
	mux.HandleFunc("GET /api/me", m.RequireAuth(rt.Auth.Me))

	// Children
	mux.HandleFunc("GET /api/children", m.RequireAuth(rt.Children.ListChildren))
	mux.HandleFunc("POST /api/children", m.RequireRole(models.RoleParent, rt.Children.CreateChild))
	mux.HandleFunc("GET /api/children/{id}", m.RequireAuth(rt.Children.GetChild))

	// Therapies
	mux.HandleFunc("GET /api/therapies", m.RequireAuth(rt.Therapies.ListTherapies))
	mux.HandleFunc("POST /api/therapies", m.RequireRole(models.RoleCounselor, rt.Therapies.CreateTherapy))
	mux.HandleFunc("GET /api/therapies/{id}", m.RequireAuth(rt.Therapies.GetTherapy))
	mux.HandleFunc("PUT /api/therapies/{id}", m.RequireAuth(rt.Therapies.UpdateTherapy))
	mux.HandleFunc("GET /api/therapies/{id}/report", m.RequireAuth(rt.Therapies.Report))

	// Assessments
	mux.HandleFunc("POST /api/therapies/{id}/assessments/{kind}", m.RequireAuth(rt.Assessments.CreateAssessment))
	mux.HandleFunc("GET /api/assessments/{kind}/{id}", m.RequireAuth(rt.Assessments.GetAssessment))
	mux.HandleFunc("PUT /api/assessments/{kind}/{id}", m.RequireAuth(rt.Assessments.UpdateAssessment))
	mux.HandleFunc("POST /api/scores/{instrument}/total", m.RequireAuth(rt.Assessments.PreviewTotal))

	mux.HandleFunc("GET /api/activities", m.RequireAuth(rt.Activities.ListActivities))

	return Logging(rt.Logger, rt.Metrics, mux)
}
