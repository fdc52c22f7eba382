// Package testauth mints bearer tokens for tests and local development.
// It must never be wired into a production code path.
//
// Tokens are signed with the development secret unless a secret is given,
// so they are only accepted by a server running in development or test.
package testauth

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/config"
)

const (
	DefaultIssuer = "eventdesk"
	defaultExpiry = time.Hour
)

// TestAuthenticator adds a fixed bearer token to requests.
type TestAuthenticator struct {
	token   string
	subject string
	roles   []string
}

// Config configures the test authenticator.
type Config struct {
	// JWTSecret defaults to DEV_JWT_SECRET, then config.DevJWTSecret.
	JWTSecret string
	// JWTIssuer defaults to DefaultIssuer.
	JWTIssuer string
	// Subject defaults to "test-user".
	Subject string
	// Roles defaults to collaborator.
	Roles []string
	// Expiry defaults to one hour.
	Expiry time.Duration
}

func NewTestAuthenticator(cfg Config) (*TestAuthenticator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = os.Getenv("DEV_JWT_SECRET")
	}
	if secret == "" {
		secret = config.DevJWTSecret
	}
	issuer := cfg.JWTIssuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "test-user"
	}
	roles := cfg.Roles
	if len(roles) == 0 {
		roles = []string{string(auth.RoleCollaborator)}
	}
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = defaultExpiry
	}

	token, err := auth.NewJWTManager(secret, expiry, issuer).Generate(subject, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}
	return &TestAuthenticator{token: token, subject: subject, roles: roles}, nil
}

// AddAuth sets the Authorization header on req.
func (ta *TestAuthenticator) AddAuth(req *http.Request) {
	if req == nil || ta == nil {
		return
	}
	req.Header.Set("Authorization", ta.GetAuthHeader())
}

// GetAuthHeader returns the Authorization header value.
func (ta *TestAuthenticator) GetAuthHeader() string {
	return "Bearer " + ta.token
}

func (ta *TestAuthenticator) Token() string { return ta.token }

func (ta *TestAuthenticator) Subject() string { return ta.subject }

// Admin returns an authenticator for an admin subject signed with secret.
func Admin(secret, subject string) (*TestAuthenticator, error) {
	return NewTestAuthenticator(Config{JWTSecret: secret, Subject: subject, Roles: []string{string(auth.RoleAdmin)}})
}

// Collaborator returns an authenticator for a collaborator subject signed
// with secret.
func Collaborator(secret, subject string) (*TestAuthenticator, error) {
	return NewTestAuthenticator(Config{JWTSecret: secret, Subject: subject, Roles: []string{string(auth.RoleCollaborator)}})
}

// DevJWTToken signs a token with the development secret for ad-hoc use.
func DevJWTToken(subject string, roles ...string) (string, error) {
	ta, err := NewTestAuthenticator(Config{Subject: subject, Roles: roles})
	if err != nil {
		return "", err
	}
	return ta.token, nil
}
