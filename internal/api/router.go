package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/Togather-Foundation/eventdesk/internal/api/handlers"
	"github.com/Togather-Foundation/eventdesk/internal/api/middleware"
	"github.com/Togather-Foundation/eventdesk/internal/api/problem"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/config"
	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/Togather-Foundation/eventdesk/internal/metrics"
	"github.com/rs/zerolog"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Config    config.Config
	Logger    zerolog.Logger
	Events    *events.Service
	Directory *auth.Directory
	JWT       *auth.JWTManager
	Store     handlers.Pinger
	Version   string
	GitCommit string
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	env := cfg.Environment

	publicEvents := handlers.NewPublicEventsHandler(deps.Events, env)
	manageEvents := handlers.NewEventsHandler(deps.Events, env)
	authHandler := handlers.NewAuthHandler(deps.Directory, deps.JWT, env)
	health := handlers.NewHealthChecker(deps.Store, deps.Version, deps.GitCommit)

	rateLimit := middleware.RateLimit(cfg.RateLimit)
	bodyLimit := middleware.RequestSize(middleware.DefaultMaxBodySize)
	bearer := middleware.JWTAuth(deps.JWT, env)

	public := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierPublic)(rateLimit(h))
	}
	managed := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierManagement)(rateLimit(bodyLimit(bearer(h))))
	}
	login := middleware.WithRateLimitTierHandler(middleware.TierLogin)(rateLimit(bodyLimit(http.HandlerFunc(authHandler.Login))))

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", health.Readyz())
	mux.Handle("/metrics", methodMux(map[string]http.Handler{http.MethodGet: metrics.Handler()}))
	mux.Handle("/api/openapi.json", OpenAPIHandler())

	mux.Handle("/api/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: login,
	}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet: public(publicEvents.List),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: public(publicEvents.Get),
	}))

	mux.Handle(handlers.ManagementPath, methodMux(map[string]http.Handler{
		http.MethodGet:  managed(manageEvents.List),
		http.MethodPost: managed(manageEvents.Create),
	}))
	mux.Handle(handlers.ManagementPath+"/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    managed(manageEvents.Get),
		http.MethodPatch:  managed(manageEvents.Patch),
		http.MethodDelete: managed(manageEvents.Delete),
	}))
	mux.Handle(handlers.ManagementPath+"/{id}/submit", methodMux(map[string]http.Handler{
		http.MethodPost: managed(manageEvents.Submit),
	}))
	mux.Handle(handlers.ManagementPath+"/{id}/approve", methodMux(map[string]http.Handler{
		http.MethodPost: managed(manageEvents.Approve),
	}))
	mux.Handle(handlers.ManagementPath+"/{id}/reject", methodMux(map[string]http.Handler{
		http.MethodPost: managed(manageEvents.Reject),
	}))
	mux.Handle("/", notFound(env))

	// Tracing and metrics read the matched pattern, so they sit directly
	// around the mux.
	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.AuditContext(cfg.RateLimit.TrustedProxyCIDRs)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	handler = middleware.CORS(cfg.CORS, deps.Logger)(handler)
	handler = middleware.SecurityHeaders(!cfg.IsDevelopment())(handler)
	return handler
}

func notFound(env string) http.Handler {
	errNoRoute := errors.New("no route matches the request path")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", errNoRoute, env,
			problem.WithDetail("no resource at "+r.URL.Path))
	})
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
