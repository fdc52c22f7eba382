package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/api/problem"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	Directory  *auth.Directory
	JWTManager *auth.JWTManager
	Env        string
	now        func() time.Time
}

func NewAuthHandler(directory *auth.Directory, jwtManager *auth.JWTManager, env string) *AuthHandler {
	return &AuthHandler{
		Directory:  directory,
		JWTManager: jwtManager,
		Env:        env,
		now:        time.Now,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
	User      userInfo `json:"user"`
}

type userInfo struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Admin    bool     `json:"admin"`
}

// Login handles POST /api/auth/login. Unknown users and wrong passwords get
// the same 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Directory == nil || h.JWTManager == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", errors.New("login is not configured"), h.env())
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	if !validateRequest(w, r, req, h.Env) {
		return
	}

	principal, err := h.Directory.Authenticate(req.Username, req.Password)
	if err != nil {
		// The submitted name may be a mistyped password, so only its length is logged.
		zerolog.Ctx(r.Context()).Info().Int("username_len", len(req.Username)).Msg("login rejected")
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", err, h.Env,
			problem.WithDetail("invalid username or password"))
		return
	}

	issuedAt := h.now()
	token, err := h.JWTManager.Generate(principal.Username, principal.Roles)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("username", principal.Username).Msg("login succeeded")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: issuedAt.Add(h.JWTManager.Expiry()).UTC().Format(time.RFC3339),
		User: userInfo{
			Username: principal.Username,
			Roles:    principal.Roles,
			Admin:    auth.IsAdmin(principal.Roles),
		},
	})
}

func (h *AuthHandler) env() string {
	if h == nil {
		return ""
	}
	return h.Env
}
