package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAPIHandler(t *testing.T) {
	handler := OpenAPIHandler()

	tests := []struct {
		name         string
		method       string
		expectStatus int
		expectBody   bool
	}{
		{name: "GET returns document", method: http.MethodGet, expectStatus: http.StatusOK, expectBody: true},
		{name: "HEAD has no body", method: http.MethodHead, expectStatus: http.StatusOK},
		{name: "POST not allowed", method: http.MethodPost, expectStatus: http.StatusMethodNotAllowed},
		{name: "DELETE not allowed", method: http.MethodDelete, expectStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/openapi.json", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			require.Equal(t, tt.expectStatus, w.Code)
			if tt.expectStatus == http.StatusMethodNotAllowed {
				require.Equal(t, "GET, HEAD", w.Header().Get("Allow"))
				return
			}
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.expectBody {
				require.NotZero(t, w.Body.Len())
			} else {
				require.Zero(t, w.Body.Len())
			}
		})
	}
}

func TestOpenAPIDocumentDescribesRoutes(t *testing.T) {
	doc, err := openAPIDocument()
	require.NoError(t, err)

	var parsed struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(doc, &parsed))
	require.Equal(t, "3.0.3", parsed.OpenAPI)

	want := map[string][]string{
		"/api/auth/login":             {"post"},
		"/api/v1/events":              {"get"},
		"/api/v1/events/{id}":         {"get"},
		"/api/v2/events":              {"get", "post"},
		"/api/v2/events/{id}":         {"get", "patch", "delete"},
		"/api/v2/events/{id}/submit":  {"post"},
		"/api/v2/events/{id}/approve": {"post"},
		"/api/v2/events/{id}/reject":  {"post"},
	}
	for path, methods := range want {
		ops, ok := parsed.Paths[path]
		require.True(t, ok, "missing path %s", path)
		for _, method := range methods {
			require.Contains(t, ops, method, "%s %s", method, path)
		}
	}
}

func TestOpenAPIHandlerConcurrentRequests(t *testing.T) {
	handler := OpenAPIHandler()

	var wg sync.WaitGroup
	bodies := make([]string, 10)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
			bodies[i] = w.Body.String()
		}(i)
	}
	wg.Wait()

	for _, body := range bodies {
		require.Equal(t, bodies[0], body)
	}
}
