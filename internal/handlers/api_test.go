package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"therapytrack/internal/metrics"
	"therapytrack/internal/models"
	"therapytrack/internal/repository"
	"therapytrack/internal/scoring"
	"therapytrack/internal/security"
	"therapytrack/internal/service"
	"therapytrack/internal/testutil"
)

type testServer struct {
	handler http.Handler
	startup *StartupStatus
}

func newTestServer(t *testing.T, authRate int, trustedProxies ...string) *testServer {
	t.Helper()
	db := testutil.OpenDB(t)
	logger := zap.NewNop()
	m := metrics.New()

	userRepo := repository.NewUserRepository(db)
	childRepo := repository.NewChildRepository(db)
	therapyRepo := repository.NewTherapyRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)

	authService := service.NewAuthService(userRepo, security.NewTokenIssuer("jwt-secret", time.Hour), time.Hour)
	csrf := security.NewCSRFGenerator("csrf-secret")
	limiter := security.NewRateLimiter(authRate, time.Minute)
	t.Cleanup(limiter.Stop)
	clientIP, err := security.NewClientIPResolver(trustedProxies)
	require.NoError(t, err)

	startup := NewStartupStatus()
	rt := &Router{
		Middleware: NewMiddleware(authService, csrf, clientIP, logger),
		Auth:       NewAuthHandler(authService, csrf, nil, "", logger),
		Children:   NewChildHandler(service.NewChildService(childRepo), logger),
		Therapies: NewTherapyHandler(
			service.NewTherapyService(therapyRepo, childRepo, 12),
			service.NewReportService(therapyRepo, assessmentRepo),
			logger,
		),
		Assessments: NewAssessmentHandler(
			service.NewAssessmentService(assessmentRepo, therapyRepo, userRepo, scoring.Lenient, nil, m, logger),
			logger,
		),
		Activities:  NewActivityHandler(service.NewActivityService(therapyRepo, assessmentRepo, 12), logger),
		Startup:     startup,
		AuthLimiter: limiter,
		Metrics:     m,
		Logger:      logger,
	}
	return &testServer{handler: rt.Handler(), startup: startup}
}

// client is a signed-in browser: session cookie plus CSRF token
type client struct {
	cookie *http.Cookie
	csrf   string
	bearer string
	user   models.User
}

func (s *testServer) do(t *testing.T, c *client, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c != nil {
		if c.cookie != nil {
			req.AddCookie(c.cookie)
			req.Header.Set(security.CSRFHeader, c.csrf)
		}
		if c.bearer != "" {
			req.Header.Set("Authorization", "Bearer "+c.bearer)
		}
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, email, name string, role models.Role) *client {
	t.Helper()
	rec := s.do(t, nil, http.MethodPost, "/api/auth/register", registerRequest{
		Email: email, Password: "password123", Name: name, Role: role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	c := &client{csrf: resp.CSRFToken, user: *resp.User}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == security.SessionCookieName {
			c.cookie = cookie
		}
	}
	require.NotNil(t, c.cookie, "session cookie set")
	return c
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type fixture struct {
	counselor *client
	parent    *client
	therapyID int64
}

func setupTherapy(t *testing.T, s *testServer) fixture {
	t.Helper()
	f := fixture{
		counselor: s.register(t, "counselor@example.com", "Dr. Rivera", models.RoleCounselor),
		parent:    s.register(t, "parent@example.com", "Sam Hart", models.RoleParent),
	}

	rec := s.do(t, f.parent, http.MethodPost, "/api/children", service.ChildInput{Fullname: "Alice Hart"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	child := decode[models.Child](t, rec)

	rec = s.do(t, f.counselor, http.MethodPost, "/api/therapies", service.TherapyInput{ChildID: child.ID, Title: "Anxiety support"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	f.therapyID = decode[models.TherapyWithChild](t, rec).ID
	return f
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

var sdqScores = map[string]string{
	"emotional": "5", "conduct": "3", "hyperactivity": "2", "peer": "1", "prosocial": "4", "difficulties": "11",
}

func TestAssessmentLifecycle(t *testing.T) {
	s := newTestServer(t, 100)
	f := setupTherapy(t, s)
	path := "/api/therapies/" + itoa(f.therapyID) + "/assessments/pretest"

	rec := s.do(t, f.counselor, http.MethodPost, path, assessmentRequest{Scores: sdqScores})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Assessment](t, rec)
	assert.Equal(t, 26, created.Total)

	rec = s.do(t, f.counselor, http.MethodPost, path, assessmentRequest{Scores: sdqScores})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, f.parent, http.MethodGet, "/api/assessments/pretest/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[service.AssessmentView](t, rec)
	assert.False(t, view.CanEdit)
	assert.Equal(t, "Alice Hart", view.ChildName)

	rec = s.do(t, f.counselor, http.MethodPut, "/api/assessments/pretest/"+itoa(created.ID), assessmentRequest{
		Scores: map[string]string{"emotional": "2", "conduct": "2"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, decode[models.Assessment](t, rec).Total)

	rec = s.do(t, f.counselor, http.MethodGet, "/api/assessments/homework/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParentEditIsForbiddenWithRedirect(t *testing.T) {
	s := newTestServer(t, 100)
	f := setupTherapy(t, s)

	rec := s.do(t, f.parent, http.MethodPost, "/api/therapies/"+itoa(f.therapyID)+"/assessments/posttest", assessmentRequest{Scores: sdqScores})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "/therapies/"+itoa(f.therapyID), decode[errorResponse](t, rec).Redirect)

	rec = s.do(t, f.parent, http.MethodPut, "/api/therapies/"+itoa(f.therapyID), therapyUpdateRequest{Title: "Mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, f.parent, http.MethodGet, "/api/therapies/"+itoa(f.therapyID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[service.TherapyView](t, rec).CanEdit)

	rec = s.do(t, f.counselor, http.MethodGet, "/api/therapies/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/therapies", decode[errorResponse](t, rec).Redirect)

	rec = s.do(t, f.parent, http.MethodPost, "/api/therapies", service.TherapyInput{ChildID: 1, Title: "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestActivitiesFilterAndPaging(t *testing.T) {
	s := newTestServer(t, 100)
	f := setupTherapy(t, s)

	rec := s.do(t, f.counselor, http.MethodPost, "/api/therapies/"+itoa(f.therapyID)+"/assessments/screening", assessmentRequest{
		Scores: map[string]string{"depression": "4", "anxiety": "", "stress": "x"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, f.parent, http.MethodGet, "/api/activities?type=all&q=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Items      []map[string]interface{} `json:"items"`
		TotalItems int                      `json:"total_items"`
		TotalPages int                      `json:"total_pages"`
	}](t, rec)
	assert.Equal(t, 2, page.TotalItems)
	types := []interface{}{page.Items[0]["type"], page.Items[1]["type"]}
	assert.ElementsMatch(t, []interface{}{"therapy", "screening"}, types)

	rec = s.do(t, f.parent, http.MethodGet, "/api/activities?type=therapy&page=9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"page":1`)

	rec = s.do(t, f.parent, http.MethodGet, "/api/activities?type=homework", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, f.counselor, http.MethodGet, "/api/therapies?q=anxiety", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_items":1`)
}

func TestPreviewTotal(t *testing.T) {
	s := newTestServer(t, 100)
	c := s.register(t, "counselor@example.com", "Dr. Rivera", models.RoleCounselor)

	rec := s.do(t, c, http.MethodPost, "/api/scores/sdq/total", previewRequest{Scores: sdqScores})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 26, decode[service.ScorePreview](t, rec).Total)

	rec = s.do(t, c, http.MethodPost, "/api/scores/sdq/total", previewRequest{Scores: map[string]string{"height": "1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequirements(t *testing.T) {
	s := newTestServer(t, 100)
	parent := s.register(t, "parent@example.com", "Sam Hart", models.RoleParent)

	rec := s.do(t, nil, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	noCSRF := &client{cookie: parent.cookie}
	rec = s.do(t, noCSRF, http.MethodPost, "/api/children", service.ChildInput{Fullname: "Bo"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ErrInvalidCSRFToken, decode[errorResponse](t, rec).Error)

	rec = s.do(t, noCSRF, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, rec.Code, "reads need no CSRF token")
	assert.Equal(t, parent.csrf, decode[meResponse](t, rec).CSRFToken)

	rec = s.do(t, nil, http.MethodPost, "/api/auth/token", loginRequest{Email: "parent@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[tokenResponse](t, rec)
	assert.Equal(t, "Bearer", token.TokenType)

	bearer := &client{bearer: token.AccessToken}
	rec = s.do(t, bearer, http.MethodPost, "/api/children", service.ChildInput{Fullname: "Bo"})
	assert.Equal(t, http.StatusCreated, rec.Code, "bearer clients skip CSRF")

	rec = s.do(t, nil, http.MethodPost, "/api/auth/login", loginRequest{Email: "parent@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, parent, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, parent, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(t, nil, http.MethodPost, "/api/auth/register", registerRequest{Email: "bad", Password: "short", Name: "Al", Role: "admin"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[errorResponse](t, rec).Fields, 3)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t, 2)
	body := loginRequest{Email: "nobody@example.com", Password: "password123"}

	for i := 0; i < 2; i++ {
		rec := s.do(t, nil, http.MethodPost, "/api/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := s.do(t, nil, http.MethodPost, "/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func (s *testServer) loginFrom(t *testing.T, remote, forwardedFor string) int {
	t.Helper()
	body := `{"email":"nobody@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestLoginRateLimitIgnoresRotatedForwardedFor(t *testing.T) {
	s := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.loginFrom(t, "203.0.113.7:5000", "198.51.100."+strconv.Itoa(i)))
	}
	assert.Equal(t, http.StatusTooManyRequests, s.loginFrom(t, "203.0.113.7:5000", "198.51.100.99"))
}

func TestLoginRateLimitBehindTrustedProxy(t *testing.T) {
	s := newTestServer(t, 1, "10.0.0.0/8")

	assert.Equal(t, http.StatusUnauthorized, s.loginFrom(t, "10.0.0.2:5000", "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, s.loginFrom(t, "10.0.0.2:5000", "198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, s.loginFrom(t, "10.0.0.2:5000", "198.51.100.2"))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(t, nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.startup.CompleteStep(StepDatabase)
	s.startup.MarkReady()
	rec = s.do(t, nil, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, decode[healthResponse](t, rec).Progress)

	rec = s.do(t, nil, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `therapytrack_http_requests_total{method="GET",route="GET /healthz",status="200"} 1`)
}

func TestOAuthProviders(t *testing.T) {
	_, ok := GoogleProvider("", "secret")
	assert.False(t, ok)

	google, ok := GoogleProvider("id", "secret")
	require.True(t, ok)
	h := NewAuthHandler(nil, nil, map[string]OAuthProvider{"google": google}, "https://app.example.com/", zap.NewNop())

	views := h.oauthProviderViews()
	require.Len(t, views, 1)
	assert.Equal(t, "/api/auth/google/start", views[0].URL)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/start", nil)
	req.SetPathValue("provider", "google")
	rec := httptest.NewRecorder()
	h.StartOAuth(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "accounts.google.com")
	assert.Contains(t, location, "redirect_uri=https%3A%2F%2Fapp.example.com%2Fapi%2Fauth%2Fgoogle%2Fcallback")

	req = httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state=forged", nil)
	req.SetPathValue("provider", "google")
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "real"})
	rec = httptest.NewRecorder()
	h.OAuthCallback(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
