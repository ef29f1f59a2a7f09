package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Guard    GuardConfig
	Session  SessionConfig
	Notify   NotifyConfig
}

type DatabaseConfig struct {
	Driver            string
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	SQLitePath        string
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// GuardConfig holds the brute-force guard settings. BanDuration is also the
// window after which an inactive failure count is forgotten.
type GuardConfig struct {
	MaxFailures        int
	BanDuration        time.Duration
	TrackerCapacity    int
	SweepInterval      time.Duration
	TrustForwardedFor  bool
	TrustedProxies     []string
	LoginRatePerMinute int
}

type SessionConfig struct {
	Secret string
	Expiry time.Duration
}

// NotifyConfig configures ban notification email. Empty Region disables it.
type NotifyConfig struct {
	AWSRegion   string
	FromAddress string
	ToAddress   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabase(),
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Guard: GuardConfig{
			MaxFailures:        getEnvAsInt("GUARD_MAX_FAILURES", 5),
			BanDuration:        getEnvAsDuration("GUARD_BAN_DURATION", 15*time.Minute),
			TrackerCapacity:    getEnvAsInt("GUARD_TRACKER_CAPACITY", 10000),
			SweepInterval:      getEnvAsDuration("GUARD_SWEEP_INTERVAL", 10*time.Minute),
			TrustForwardedFor:  getEnvAsBool("TRUST_FORWARDED_FOR", true),
			TrustedProxies:     splitList(getEnv("TRUSTED_PROXIES", "")),
			LoginRatePerMinute: getEnvAsInt("LOGIN_RATE_PER_MINUTE", 30),
		},
		Session: SessionConfig{
			Secret: sessionSecret,
			Expiry: getEnvAsDuration("SESSION_EXPIRY", 1*time.Hour),
		},
		Notify: NotifyConfig{
			AWSRegion:   getEnv("BAN_NOTIFY_AWS_REGION", ""),
			FromAddress: getEnv("BAN_NOTIFY_FROM", ""),
			ToAddress:   getEnv("BAN_NOTIFY_TO", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Validate session secret strength
	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings. Used by tools that do not
// serve traffic and so have no session secret.
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	db := loadDatabase()
	if err := db.validate(); err != nil {
		return nil, err
	}
	return &db, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Driver:            strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "gatekeeper"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		SQLitePath:        getEnv("SQLITE_PATH", "data/gatekeeper.db"),
	}
}

func (c *DatabaseConfig) validate() error {
	switch c.Driver {
	case DriverPostgres:
		if c.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}
	return nil
}

func (c *Config) validate() error {
	if err := c.Database.validate(); err != nil {
		return err
	}

	if c.Guard.MaxFailures < 1 {
		return fmt.Errorf("GUARD_MAX_FAILURES must be at least 1 (got %d)", c.Guard.MaxFailures)
	}
	if c.Guard.BanDuration <= 0 {
		return fmt.Errorf("GUARD_BAN_DURATION must be positive")
	}
	if c.Guard.TrackerCapacity < 1 {
		return fmt.Errorf("GUARD_TRACKER_CAPACITY must be at least 1")
	}
	if c.Guard.SweepInterval <= 0 {
		return fmt.Errorf("GUARD_SWEEP_INTERVAL must be positive")
	}

	if c.Notify.AWSRegion != "" && (c.Notify.FromAddress == "" || c.Notify.ToAddress == "") {
		return fmt.Errorf("BAN_NOTIFY_FROM and BAN_NOTIFY_TO are required when BAN_NOTIFY_AWS_REGION is set")
	}

	return nil
}

// validateSessionSecret enforces minimum security standards for the session signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Enabled reports whether ban notification email is configured
func (c NotifyConfig) Enabled() bool {
	return c.AWSRegion != ""
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		// Default to no origins in production
		return splitList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5000",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5000",
		"http://127.0.0.1:5173",
	}
}
