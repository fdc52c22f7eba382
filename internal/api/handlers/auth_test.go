package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/api/problem"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const loginSecret = "handlers-login-secret-0123456789abcdef"

func newAuthHandler(t *testing.T) (*AuthHandler, *auth.JWTManager) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	directory := auth.NewDirectory([]auth.User{
		{Username: "admin", Password: string(hash), Roles: []string{"ROLE_ADMIN"}},
		{Username: "collab", Password: "collab", Roles: []string{"collaborator"}},
	})
	manager := auth.NewJWTManager(loginSecret, 30*time.Minute, "eventdesk")
	handler := NewAuthHandler(directory, manager, "test")
	handler.now = func() time.Time { return fixedNow }
	return handler, manager
}

func TestLogin(t *testing.T) {
	handler, manager := newAuthHandler(t)

	rec := serve(handler.Login, call{method: http.MethodPost, target: "/api/auth/login", body: `{"username":"admin","password":"s3cret"}`})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "2026-03-01T12:30:00Z", body.ExpiresAt)
	require.Equal(t, "admin", body.User.Username)
	require.Equal(t, []string{"admin"}, body.User.Roles)
	require.True(t, body.User.Admin)

	claims, err := manager.Validate(body.Token)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Subject)
	require.True(t, claims.IsAdmin())
}

func TestLogin_Collaborator(t *testing.T) {
	handler, manager := newAuthHandler(t)

	rec := serve(handler.Login, call{method: http.MethodPost, target: "/api/auth/login", body: `{"username":"collab","password":"collab"}`})

	require.Equal(t, http.StatusOK, rec.Code)
	var body loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.User.Admin)

	claims, err := manager.Validate(body.Token)
	require.NoError(t, err)
	require.False(t, claims.IsAdmin())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	handler, _ := newAuthHandler(t)

	wrongPassword := serve(handler.Login, call{method: http.MethodPost, target: "/api/auth/login", body: `{"username":"admin","password":"nope"}`})
	unknownUser := serve(handler.Login, call{method: http.MethodPost, target: "/api/auth/login", body: `{"username":"ghost","password":"s3cret"}`})

	first := decodeProblem(t, wrongPassword, http.StatusUnauthorized, problem.TypeUnauthorized)
	second := decodeProblem(t, unknownUser, http.StatusUnauthorized, problem.TypeUnauthorized)
	require.Equal(t, first.Detail, second.Detail)
	require.Equal(t, "invalid username or password", first.Detail)
}

func TestLogin_RejectedUsernameNotLogged(t *testing.T) {
	handler, _ := newAuthHandler(t)
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"hunter2-typed-here","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(logger.WithContext(req.Context()))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, logs.String(), "login rejected")
	require.Contains(t, logs.String(), `"username_len":18`)
	require.NotContains(t, logs.String(), "hunter2")
}

func TestLogin_Validation(t *testing.T) {
	handler, _ := newAuthHandler(t)

	rec := serve(handler.Login, call{method: http.MethodPost, target: "/api/auth/login", body: `{"username":"admin"}`})
	body := decodeProblem(t, rec, http.StatusBadRequest, problem.TypeValidation)
	require.Equal(t, "is required", body.Errors["password"])
	require.NotContains(t, body.Errors, "username")

	rec = serve(handler.Login, call{method: http.MethodPost, target: "/api/auth/login", body: `{}`})
	body = decodeProblem(t, rec, http.StatusBadRequest, problem.TypeValidation)
	require.Len(t, body.Errors, 2)
	require.Equal(t, "invalid fields: username, password", body.Detail)

	rec = serve(handler.Login, call{method: http.MethodPost, target: "/api/auth/login", body: `{"username":"a","password":"b","remember":true}`})
	decodeProblem(t, rec, http.StatusBadRequest, problem.TypeValidation)
}

func TestLogin_NotConfigured(t *testing.T) {
	rec := serve(NewAuthHandler(nil, nil, "test").Login, call{method: http.MethodPost, target: "/api/auth/login", body: `{"username":"a","password":"b"}`})
	decodeProblem(t, rec, http.StatusInternalServerError, problem.TypeServerError)
}
