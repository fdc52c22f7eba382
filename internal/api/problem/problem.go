package problem

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

const typeBase = "https://eventdesk.dev/problems/"

// Problem type URIs.
const (
	TypeNotFound     = typeBase + "not-found"
	TypeValidation   = typeBase + "validation-error"
	TypeForbidden    = typeBase + "forbidden"
	TypeConflict     = typeBase + "conflict"
	TypeUnauthorized = typeBase + "unauthorized"
	TypeRateLimited  = typeBase + "rate-limited"
	TypeTooLarge     = typeBase + "payload-too-large"
	TypeServerError  = typeBase + "server-error"
)

type ProblemDetails struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Errors   map[string]any `json:"errors,omitempty"`
}

type Option func(*ProblemDetails)

func WithDetail(detail string) Option {
	return func(p *ProblemDetails) {
		p.Detail = detail
	}
}

func WithErrors(errs map[string]any) Option {
	return func(p *ProblemDetails) {
		p.Errors = errs
	}
}

// Write sends an RFC 7807 response. Unless WithDetail is given, the error text
// becomes the detail only in development and test.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	problem := ProblemDetails{
		Type:   typ,
		Title:  title,
		Status: status,
	}

	for _, opt := range opts {
		opt(&problem)
	}

	if problem.Detail == "" && err != nil {
		if env == "development" || env == "test" {
			problem.Detail = err.Error()
		} else {
			problem.Detail = http.StatusText(status)
		}
	}

	if r != nil {
		problem.Instance = r.URL.Path
		logProblem(r, problem, err)
	}

	WriteProblem(w, problem)
}

func logProblem(r *http.Request, problem ProblemDetails, err error) {
	if err == nil {
		return
	}
	logger := zerolog.Ctx(r.Context())

	var event *zerolog.Event
	switch {
	case problem.Status >= http.StatusInternalServerError:
		event = logger.Error()
	case problem.Status >= http.StatusBadRequest:
		event = logger.Warn()
	default:
		return
	}
	event.
		Err(err).
		Int("status", problem.Status).
		Str("type", problem.Type).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Msg(problem.Title)
}

func WriteProblem(w http.ResponseWriter, problem ProblemDetails) {
	payload, err := json.Marshal(problem)
	if err != nil {
		fallback := fmt.Sprintf("{\"type\":%q,\"title\":\"%s\",\"status\":500}", TypeServerError, http.StatusText(http.StatusInternalServerError))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallback))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(problem.Status)
	_, _ = w.Write(payload)
}
