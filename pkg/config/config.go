package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	Storage            string // postgres | memory
	DatabaseURL        string
	DB                 DBConfig
	RedisURL           string
	JobQueueKey        string
	JWTSecret          string
	JWTIssuer          string
	CORSAllowedOrigins []string
	Admission          AdmissionPolicy
	StaleAnalysisAfter time.Duration
	StaleCheckInterval time.Duration
	DashboardCacheTTL  time.Duration
	APIRateLimit       int
	APIRateWindow      time.Duration
}

// DBConfig holds discrete Postgres settings used when DATABASE_URL is empty
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// AdmissionPolicy controls who may start an analysis and what it costs
type AdmissionPolicy struct {
	CooldownMinutes int  `yaml:"cooldown_minutes"`
	CreditCost      int  `yaml:"credit_cost"`
	PeriodDays      int  `yaml:"period_days"`
	RefundFailed    bool `yaml:"refund_failed"`
}

// Cooldown is the minimum spacing between two analysis requests of a user
func (p AdmissionPolicy) Cooldown() time.Duration {
	return time.Duration(p.CooldownMinutes) * time.Minute
}

// Period is the data window an analysis covers
func (p AdmissionPolicy) Period() time.Duration {
	return time.Duration(p.PeriodDays) * 24 * time.Hour
}

// DefaultAdmissionPolicy returns the built-in admission defaults
func DefaultAdmissionPolicy() AdmissionPolicy {
	return AdmissionPolicy{
		CooldownMinutes: 60,
		CreditCost:      1,
		PeriodDays:      30,
		RefundFailed:    true,
	}
}

// fileConfig is the optional YAML document named by CONFIG_FILE.
// Environment variables take precedence over it.
type fileConfig struct {
	Admission *AdmissionPolicy `yaml:"admission"`
}

// Load reads configuration from an optional .env file, an optional YAML
// file and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	policy := DefaultAdmissionPolicy()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fc, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if fc.Admission != nil {
			policy = *fc.Admission
		}
	}

	var errs []error
	intEnv := func(key string, def int) int {
		v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	boolEnv := func(key string, def bool) bool {
		v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  intEnv("SERVER_PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Storage:     strings.ToLower(getEnv("STORAGE", "postgres")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     intEnv("DB_PORT", 5432),
			User:     getEnv("DB_USER", "storepulse"),
			Password: getEnv("DB_PASSWORD", "dev"),
			Name:     getEnv("DB_NAME", "storepulse"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisURL:           os.Getenv("REDIS_URL"),
		JobQueueKey:        getEnv("JOB_QUEUE_KEY", "storepulse:analysis_jobs"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          getEnv("JWT_ISSUER", "storepulse"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		Admission: AdmissionPolicy{
			CooldownMinutes: intEnv("ANALYSIS_COOLDOWN_MINUTES", policy.CooldownMinutes),
			CreditCost:      intEnv("ANALYSIS_CREDIT_COST", policy.CreditCost),
			PeriodDays:      intEnv("ANALYSIS_PERIOD_DAYS", policy.PeriodDays),
			RefundFailed:    boolEnv("REFUND_FAILED_ANALYSES", policy.RefundFailed),
		},
		StaleAnalysisAfter: time.Duration(intEnv("STALE_ANALYSIS_MINUTES", 30)) * time.Minute,
		StaleCheckInterval: time.Duration(intEnv("STALE_CHECK_INTERVAL_SECONDS", 60)) * time.Second,
		DashboardCacheTTL:  time.Duration(intEnv("DASHBOARD_CACHE_SECONDS", 30)) * time.Second,
		APIRateLimit:       intEnv("API_RATE_LIMIT", 120),
		APIRateWindow:      time.Duration(intEnv("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	var errs []error
	if c.Storage != "postgres" && c.Storage != "memory" {
		errs = append(errs, fmt.Errorf("invalid STORAGE %q: want postgres or memory", c.Storage))
	}
	if c.Admission.CreditCost < 0 {
		errs = append(errs, errors.New("ANALYSIS_CREDIT_COST must not be negative"))
	}
	if c.Admission.CooldownMinutes < 0 {
		errs = append(errs, errors.New("ANALYSIS_COOLDOWN_MINUTES must not be negative"))
	}
	if c.Admission.PeriodDays <= 0 {
		errs = append(errs, errors.New("ANALYSIS_PERIOD_DAYS must be positive"))
	}
	if c.IsProduction() && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CONFIG_FILE: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse CONFIG_FILE: %w", err)
	}
	return &fc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
