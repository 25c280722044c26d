package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/api"
	"github.com/charlesng35/estatehub/internal/app"
	iauth "github.com/charlesng35/estatehub/internal/auth"
	sharedtestutil "github.com/charlesng35/estatehub/internal/database/testutil"
	"github.com/charlesng35/estatehub/internal/middleware"
	"github.com/charlesng35/estatehub/internal/monitoring"
	"github.com/charlesng35/estatehub/internal/storage"
	"github.com/charlesng35/estatehub/pkg/mail"
	"github.com/charlesng35/estatehub/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Config   *app.Config
	Services *api.Services
	Store    *storage.MemoryStore
	Mailer   *mail.Recorder
}

// EnvOption tweaks the configuration before the router is built.
type EnvOption func(*app.Config)

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{}
	cfg.Server.PublicURL = "https://homes.test"
	cfg.Server.RateLimit.Requests = 1000
	cfg.Server.RateLimit.Window = time.Minute
	cfg.Auth.JWT.Secret = "test-suite-super-secret-key-32-bytes!!"
	cfg.Auth.JWT.Issuer = "test-suite"
	cfg.Auth.JWT.TTL = time.Hour
	cfg.Auth.InviteTTL = 24 * time.Hour
	cfg.Auth.OpenSignup = true
	cfg.Auth.LoginLimit = 1000
	cfg.Auth.LoginWindow = time.Minute
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	store := storage.NewMemoryStore("https://cdn.homes.test")
	recorder := &mail.Recorder{}

	svc, err := api.NewServices(db, api.ServiceOptions{
		Store:     store,
		Mailer:    recorder,
		PublicURL: cfg.Server.PublicURL,
		InviteTTL: cfg.Auth.InviteTTL,
		Config:    cfg,
	})
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Config:    cfg,
		JWT:       jwtSvc,
		Services:  svc,
		Health:    monitoring.NewHealthManager(),
		RateStore: middleware.NewMemoryRateStore(),
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Config:   cfg,
		Services: svc,
		Store:    store,
		Mailer:   recorder,
	}
}

// UserPayload captures the subset of user fields returned from auth endpoints.
type UserPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsRoot   bool   `json:"is_root"`
	IsActive bool   `json:"is_active"`
}

// Session bundles the JSON response from the login and register endpoints.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        UserPayload `json:"user"`
	Permissions []string    `json:"permissions"`
}

// Register signs up a fresh account with a random username and returns its session.
func (e *Env) Register(prefix string) Session {
	e.T.Helper()

	username := prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	payload := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "Sup3rSecret!",
	}

	w := e.Request(http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())
	return e.decodeSession(w, username)
}

// CreateRootUser runs first-time setup and logs the root account in.
func (e *Env) CreateRootUser(password string) Session {
	e.T.Helper()

	payload := map[string]string{
		"username": "root",
		"email":    "root@example.com",
		"password": password,
	}
	w := e.Request(http.MethodPost, "/api/setup/initialize", payload, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	return e.Login("root", password)
}

// Login authenticates with username or email and returns the issued session.
func (e *Env) Login(identifier, password string) Session {
	e.T.Helper()

	payload := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
	return e.decodeSession(w, identifier)
}

func (e *Env) decodeSession(w *httptest.ResponseRecorder, identifier string) Session {
	e.T.Helper()

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var session Session
	DecodeInto(e.T, resp.Data, &session)
	require.NotEmpty(e.T, session.AccessToken)
	require.Equal(e.T, "Bearer", session.TokenType)
	require.True(e.T, session.ExpiresAt.After(time.Now()))
	require.Contains(e.T, []string{session.User.Username, session.User.Email}, identifier)
	return session
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// RequireError asserts the status and error code of a failed response.
func RequireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, code, resp.Error.Code)
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
