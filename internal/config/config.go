package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/validation"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DevJWTSecret signs tokens in development and test when JWT_SECRET is unset.
// It is public knowledge; never use it anywhere else.
const DevJWTSecret = "eventdesk-development-secret-do-not-use"

const minJWTSecretLength = 32

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Auth        AuthConfig      `yaml:"auth"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	CORS        CORSConfig      `yaml:"cors"`
	Logging     LoggingConfig   `yaml:"logging"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Events      EventsConfig    `yaml:"events"`
	Security    SecurityConfig  `yaml:"-"`
	Environment string          `yaml:"environment"`

	// Warnings collects non-fatal problems found while loading, for the caller
	// to log once a logger exists.
	Warnings []string `yaml:"-"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	ExpiryMinutes int    `yaml:"jwt_expiry_minutes"`
	Issuer        string `yaml:"jwt_issuer"`
}

func (a AuthConfig) Expiry() time.Duration {
	return time.Duration(a.ExpiryMinutes) * time.Minute
}

type RateLimitConfig struct {
	PublicPerMinute     int      `yaml:"public_per_minute"`
	ManagementPerMinute int      `yaml:"management_per_minute"`
	LoginPer15Minutes   int      `yaml:"login_per_15_minutes"`
	TrustedProxyCIDRs   []string `yaml:"trusted_proxy_cidrs"`
}

type CORSConfig struct {
	AllowedOrigins  []string `yaml:"allowed_origins"`
	AllowAllOrigins bool     `yaml:"-"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

type EventsConfig struct {
	ClearRejectionReason bool `yaml:"clear_rejection_reason"`
	Seed                 bool `yaml:"seed"`
}

// SecurityConfig holds the credential directory and the permission matrix.
// Both are read-only once loaded.
type SecurityConfig struct {
	Users       []auth.User
	Permissions auth.Matrix
}

// fileConfig is the YAML file layout. Users and permissions live at the top
// level next to the regular sections.
type fileConfig struct {
	Config      `yaml:",inline"`
	Users       []auth.User                 `yaml:"users"`
	Permissions map[string]auth.Permissions `yaml:"permissions"`
}

// Default returns the built-in configuration before any file or environment
// overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			ExpiryMinutes: 60,
			Issuer:        "eventdesk",
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:     60,
			ManagementPerMinute: 300,
			LoginPer15Minutes:   5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: "eventdesk",
			SampleRate:  1.0,
		},
		Events: EventsConfig{
			ClearRejectionReason: true,
		},
		Security: SecurityConfig{
			Permissions: auth.DefaultMatrix(),
		},
		Environment: "development",
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// CONFIG_FILE when path is empty) and the environment, in that order.
func Load(path string) (Config, error) {
	// A missing .env is fine; real environment variables always win.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		var err error
		cfg, err = loadFile(cfg, path)
		if err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := finalize(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config file %s not found", path)
		}
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	fc := fileConfig{Config: cfg}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := fc.Config
	out.Security = cfg.Security
	if len(fc.Users) > 0 {
		out.Security.Users = fc.Users
	}
	if len(fc.Permissions) > 0 {
		matrix := make(auth.Matrix, len(out.Security.Permissions)+len(fc.Permissions))
		for role, perms := range out.Security.Permissions {
			matrix[role] = perms
		}
		// A role block replaces that role's defaults entirely.
		seen := make(map[auth.Role]string, len(fc.Permissions))
		for name, perms := range fc.Permissions {
			role := auth.CanonicalRole(name)
			if role == "" {
				return Config{}, fmt.Errorf("config file %s: permissions has a blank role name", path)
			}
			if other, ok := seen[role]; ok {
				return Config{}, fmt.Errorf("config file %s: permissions %q and %q name the same role", path, other, name)
			}
			seen[role] = name
			matrix[role] = perms
		}
		out.Security.Permissions = matrix
	}
	return out, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.ExpiryMinutes = getEnvInt("JWT_EXPIRY_MINUTES", cfg.Auth.ExpiryMinutes)
	cfg.Auth.Issuer = getEnv("JWT_ISSUER", cfg.Auth.Issuer)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.RateLimit.PublicPerMinute = getEnvInt("RATE_LIMIT_PUBLIC", cfg.RateLimit.PublicPerMinute)
	cfg.RateLimit.ManagementPerMinute = getEnvInt("RATE_LIMIT_MANAGEMENT", cfg.RateLimit.ManagementPerMinute)
	cfg.RateLimit.LoginPer15Minutes = getEnvInt("RATE_LIMIT_LOGIN", cfg.RateLimit.LoginPer15Minutes)
	cfg.RateLimit.TrustedProxyCIDRs = getEnvList("TRUSTED_PROXY_CIDRS", cfg.RateLimit.TrustedProxyCIDRs)

	cfg.CORS.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.CORS.AllowedOrigins)

	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.OTLPEndpoint = getEnv("OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)

	cfg.Events.ClearRejectionReason = getEnvBool("EVENTS_CLEAR_REJECTION_REASON", cfg.Events.ClearRejectionReason)
	seedDefault := cfg.Events.Seed || isDevelopment(getEnv("ENVIRONMENT", cfg.Environment))
	cfg.Events.Seed = getEnvBool("EVENTS_SEED", seedDefault)

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
}

func finalize(cfg *Config) error {
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	dev := cfg.IsDevelopment()

	if cfg.Auth.JWTSecret == "" {
		if !dev {
			return fmt.Errorf("JWT_SECRET is required")
		}
		cfg.Auth.JWTSecret = DevJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using the development secret")
	} else if !dev && len(cfg.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if cfg.Auth.ExpiryMinutes <= 0 {
		return fmt.Errorf("JWT_EXPIRY_MINUTES must be positive")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", cfg.Server.Port)
	}
	if cfg.RateLimit.PublicPerMinute < 0 || cfg.RateLimit.ManagementPerMinute < 0 || cfg.RateLimit.LoginPer15Minutes < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	if dev {
		cfg.CORS.AllowAllOrigins = true
	} else if len(cfg.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in %s", cfg.Environment)
	}
	if err := validation.ValidateOrigins(cfg.CORS.AllowedOrigins, "CORS_ALLOWED_ORIGINS", cfg.Environment == "production"); err != nil {
		return err
	}

	switch cfg.Tracing.Exporter {
	case "stdout", "otlp", "none":
	default:
		return fmt.Errorf("TRACING_EXPORTER must be stdout, otlp or none, got %q", cfg.Tracing.Exporter)
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be between 0 and 1")
	}

	if len(cfg.Security.Users) == 0 && dev {
		cfg.Security.Users = DefaultUsers()
		cfg.Warnings = append(cfg.Warnings, "no users configured, installed development users admin and collab")
	}
	if cfg.Security.Permissions == nil {
		cfg.Security.Permissions = auth.DefaultMatrix()
	}
	return nil
}

// DefaultUsers are the well-known development accounts.
func DefaultUsers() []auth.User {
	return []auth.User{
		{Username: "admin", Password: "admin", Roles: []string{string(auth.RoleAdmin)}},
		{Username: "collab", Password: "collab", Roles: []string{string(auth.RoleCollaborator)}},
	}
}

func (c Config) IsDevelopment() bool {
	return isDevelopment(c.Environment)
}

func isDevelopment(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "test":
		return true
	default:
		return false
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
