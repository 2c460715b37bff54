package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/riskgate/internal/auth"
	"github.com/BradenHooton/riskgate/internal/handlers"
	"github.com/BradenHooton/riskgate/internal/middleware"
	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/BradenHooton/riskgate/internal/routes"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func newRouter(t *testing.T, opts routes.Options) *chi.Mux {
	t.Helper()
	login := &handlers.MockLoginService{
		LoginFunc: func(ctx context.Context, identity, secret string, lctx models.LoginContext) (*models.LoginResult, error) {
			return &models.LoginResult{Decision: models.DecisionAllow}, nil
		},
	}
	challenge := &handlers.MockChallengeService{
		CompleteFunc: func(ctx context.Context, code, challengeToken string) (*models.ChallengeResult, error) {
			return &models.ChallengeResult{Decision: models.DecisionAllow}, nil
		},
	}
	tm := auth.NewTokenManager("test-secret-key-at-least-32-chars!!", time.Minute, time.Minute)

	r := chi.NewRouter()
	routes.RegisterRoutes(r,
		handlers.NewAuthHandler(login, challenge, nil, nil),
		handlers.NewHealthHandler(&handlers.MockPinger{}, "memory", nil),
		tm,
		opts,
	)
	return r
}

func serve(r http.Handler, method, path, body string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w.Code
}

func TestRegisterRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	r := newRouter(t, routes.Options{MetricsHandler: metrics, LegacyPaths: true})

	login := `{"username":"alice","password":"password123"}`
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/auth/login", login))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/login", login))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/auth/verify-challenge", `{"code":"123456"}`))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/verify-challenge", `{"code":"123456"}`))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", ""))
	assert.Equal(t, http.StatusTeapot, serve(r, http.MethodGet, "/metrics", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/auth/session", ""))
	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodGet, "/auth/login", ""))
}

func TestRegisterRoutes_WithoutOptionalRoutes(t *testing.T) {
	r := newRouter(t, routes.Options{})

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/login", `{}`))
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/metrics", ""))
}

func TestRegisterRoutes_RateLimitsAuthEndpoints(t *testing.T) {
	r := newRouter(t, routes.Options{RateLimit: middleware.RateLimitConfig{RequestsPerMinute: 1}})

	login := `{"username":"alice","password":"password123"}`
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/auth/login", login))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/auth/login", login))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", ""))
}
