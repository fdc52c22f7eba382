package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/Togather-Foundation/eventdesk/internal/api/problem"
	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errEmptyBody is returned by decodeJSON for a request without a body.
var errEmptyBody = errors.New("request body is required")

// decodeJSON reads exactly one JSON object into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// writeDecodeError maps body decoding failures to 413 or 400.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Payload too large", err,
			env, problem.WithDetail(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
		return
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
		problem.WithDetail(decodeDetail(err)))
}

func decodeDetail(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, errEmptyBody):
		return err.Error()
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("invalid value for %s", typeErr.Field)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	default:
		return err.Error()
	}
}

// validateRequest runs struct tag validation and writes a 400 listing each
// failing field. It reports whether the request was valid.
func validateRequest(w http.ResponseWriter, r *http.Request, req any, env string) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
		return false
	}

	fields := make(map[string]any, len(fieldErrs))
	names := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = validationMessage(fe)
		names = append(names, fe.Field())
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
		problem.WithDetail("invalid fields: "+strings.Join(names, ", ")),
		problem.WithErrors(fields))
	return false
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}

// pathID parses the {id} segment. A missing or non-numeric value writes a 400.
func pathID(w http.ResponseWriter, r *http.Request, env string) (int64, bool) {
	raw := strings.TrimSpace(pathParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		verr := events.ValidationError{Field: "id", Message: fmt.Sprintf("%q is not a valid event id", raw)}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", verr, env,
			problem.WithDetail(verr.Error()))
		return 0, false
	}
	return id, true
}

// writeEventError maps engine errors onto problem responses. Domain error
// messages are safe to show; anything else is a 500.
func writeEventError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var notFound events.NotFoundError
	if errors.As(err, &notFound) {
		zerolog.Ctx(r.Context()).Debug().
			Int64("event_id", notFound.ID).
			Str("reason", string(notFound.Reason)).
			Msg("event hidden or missing")
	}

	switch {
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env,
			problem.WithDetail(err.Error()))
	case errors.Is(err, events.ErrInvalidInput):
		opts := []problem.Option{problem.WithDetail(err.Error())}
		var verr events.ValidationError
		if errors.As(err, &verr) && verr.Field != "" {
			opts = append(opts, problem.WithErrors(map[string]any{verr.Field: verr.Message}))
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env, opts...)
	case errors.Is(err, events.ErrPermissionDenied):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, env,
			problem.WithDetail(err.Error()))
	case errors.Is(err, events.ErrInvalidTransition):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Invalid status transition", err, env,
			problem.WithDetail(err.Error()))
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
	}
}
