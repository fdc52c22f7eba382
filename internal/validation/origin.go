// Package validation checks configuration values that the standard parsers
// accept too loosely.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// OriginError describes a rejected browser origin.
type OriginError struct {
	Field   string
	Message string
	Origin  string
}

func (e OriginError) Error() string {
	return fmt.Sprintf("%s: %s (origin: %s)", e.Field, e.Message, e.Origin)
}

// ValidateOrigin checks that origin has the shape browsers send in the
// Origin header: an http or https scheme and a host, optionally a port, and
// nothing else. With requireHTTPS only https is accepted.
func ValidateOrigin(origin, field string, requireHTTPS bool) error {
	fail := func(msg string) error {
		return OriginError{Field: field, Message: msg, Origin: origin}
	}

	if strings.TrimSpace(origin) == "" {
		return fail("origin must not be empty")
	}
	if origin == "*" {
		return fail("wildcard origins are not supported")
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return fail("invalid origin format")
	}
	if parsed.Scheme == "" {
		return fail("origin must include a scheme (http:// or https://)")
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fail("origin scheme must be http or https")
	}
	if requireHTTPS && scheme != "https" {
		return fail("origin must use HTTPS")
	}
	if parsed.Host == "" {
		return fail("origin must include a host")
	}
	if parsed.User != nil {
		return fail("origin must not contain credentials")
	}
	if parsed.Path != "" || parsed.RawQuery != "" || parsed.Fragment != "" || strings.HasSuffix(origin, "?") {
		return fail("origin must not contain a path, query or fragment")
	}
	return nil
}

// ValidateOrigins checks every entry and reports the first failure.
func ValidateOrigins(origins []string, field string, requireHTTPS bool) error {
	for _, origin := range origins {
		if err := ValidateOrigin(origin, field, requireHTTPS); err != nil {
			return err
		}
	}
	return nil
}
