package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// healthcheckCmd represents the healthcheck command
	healthcheckCmd = &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is ready",
		Long: `Performs a health check by calling the /readyz endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.
It exits with code 0 if the server is ready, non-zero otherwise.

Exit codes:
  0 - Server is ready
  1 - Server is not ready or unreachable
  2 - Invalid response from server`,
		RunE: runHealthcheck,
	}

	// Flags
	healthcheckTimeout int
	healthcheckURL     string
)

func init() {
	healthcheckCmd.Flags().IntVar(&healthcheckTimeout, "timeout", 5, "timeout in seconds")
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/readyz)")
}

// HealthResponse matches the body served by /readyz and /healthz.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthCheckResult is the outcome of one probe.
type HealthCheckResult struct {
	IsHealthy bool
	Status    string
	Error     string
	LatencyMs int64
	// Invalid marks a response that could not be parsed.
	Invalid bool
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	url := healthcheckURL
	if url == "" {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		url = fmt.Sprintf("http://localhost:%s/readyz", port)
	}

	result := performHealthCheck(cmd.Context(), url)
	if result.IsHealthy {
		return nil
	}

	if result.Error != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Health check failed: %s\n", result.Error)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "Server status: %s\n", result.Status)
	}
	if result.Invalid {
		os.Exit(2)
	}
	os.Exit(1)
	return nil
}

func performHealthCheck(ctx context.Context, url string) HealthCheckResult {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(healthcheckTimeout)*time.Second)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HealthCheckResult{Error: fmt.Sprintf("create request: %v", err)}
	}

	resp, err := http.DefaultClient.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthCheckResult{Error: err.Error(), LatencyMs: latency}
	}
	defer func() { _ = resp.Body.Close() }()

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return HealthCheckResult{Error: fmt.Sprintf("parse response: %v", err), LatencyMs: latency, Invalid: true}
	}

	return HealthCheckResult{
		IsHealthy: resp.StatusCode == http.StatusOK && healthyStatus(body.Status),
		Status:    body.Status,
		LatencyMs: latency,
	}
}

func healthyStatus(status string) bool {
	return status == "ready" || status == "ok"
}
