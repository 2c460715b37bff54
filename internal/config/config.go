package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/riskgate/internal/anomaly"
	"github.com/BradenHooton/riskgate/internal/risk"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backend names
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	ChallengeModeStatic = "static"
	ChallengeModeTOTP   = "totp"

	AnomalyModeForest = "forest"
	AnomalyModeBand   = "band"
)

const defaultDemoUsers = "alice:password123,bob:securepass,charlie:password123"

type Config struct {
	Database    DatabaseConfig
	Redis       RedisConfig
	Server      ServerConfig
	Auth        AuthConfig
	History     HistoryConfig
	Credentials CredentialConfig
	Anomaly     AnomalyConfig
	Notify      NotifyConfig
	Telemetry   TelemetryConfig
	Risk        risk.Config
}

type DatabaseConfig struct {
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
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type ServerConfig struct {
	Port               string
	Env                string
	LogLevel           string
	AllowedOrigins     []string
	TrustedProxies     []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	RateLimitPerMinute int
	LegacyPaths        bool
}

type AuthConfig struct {
	JWTSecret            string
	AccessTokenExpiry    time.Duration
	ChallengeTokenExpiry time.Duration
	ChallengeMode        string
	StaticCode           string
	TOTPSecret           string
	FailureBaseDelay     time.Duration
	FailureRandomDelay   time.Duration
}

type HistoryConfig struct {
	Backend       string
	Retention     time.Duration // 0 keeps history forever
	SweepInterval time.Duration
}

type CredentialConfig struct {
	Backend    string
	DemoUsers  string
	BcryptCost int
}

type AnomalyConfig struct {
	Mode     string
	Temporal anomaly.TemporalConfig
}

type NotifyConfig struct {
	SESRegion      string
	SESFromAddress string
	AlertFallback  string
}

// Enabled reports whether block alerts go out through SES
func (c NotifyConfig) Enabled() bool {
	return c.SESRegion != "" && c.SESFromAddress != ""
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	envName := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabase(),
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "riskgate"),
		},
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			Env:                envName,
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:     parseAllowedOrigins(envName),
			TrustedProxies:     getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:        getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimitPerMinute: getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 30),
			LegacyPaths:        getEnvAsBool("LEGACY_PATHS", true),
		},
		Auth: AuthConfig{
			JWTSecret:            jwtSecret,
			AccessTokenExpiry:    getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			ChallengeTokenExpiry: getEnvAsDuration("CHALLENGE_TOKEN_EXPIRY", 5*time.Minute),
			ChallengeMode:        strings.ToLower(getEnv("CHALLENGE_MODE", ChallengeModeStatic)),
			StaticCode:           getEnv("CHALLENGE_STATIC_CODE", "123456"),
			TOTPSecret:           getEnv("CHALLENGE_TOTP_SECRET", ""),
			FailureBaseDelay:     getEnvAsDuration("AUTH_FAILURE_DELAY", 200*time.Millisecond),
			FailureRandomDelay:   getEnvAsDuration("AUTH_FAILURE_JITTER", 100*time.Millisecond),
		},
		History: HistoryConfig{
			Backend:       strings.ToLower(getEnv("HISTORY_BACKEND", BackendMemory)),
			Retention:     getEnvAsDuration("HISTORY_RETENTION", 0),
			SweepInterval: getEnvAsDuration("HISTORY_SWEEP_INTERVAL", 1*time.Hour),
		},
		Credentials: CredentialConfig{
			Backend:    strings.ToLower(getEnv("CREDENTIAL_BACKEND", BackendMemory)),
			DemoUsers:  getEnv("DEMO_USERS", defaultDemoUsers),
			BcryptCost: getEnvAsInt("BCRYPT_COST", 12),
		},
		Anomaly: AnomalyConfig{
			Mode: strings.ToLower(getEnv("ANOMALY_MODE", AnomalyModeForest)),
		},
		Notify: NotifyConfig{
			SESRegion:      getEnv("SES_REGION", ""),
			SESFromAddress: getEnv("SES_FROM_ADDRESS", ""),
			AlertFallback:  getEnv("ALERT_FALLBACK_ADDRESS", ""),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "riskgate"),
		},
	}

	// Risk and anomaly blocks are tag-driven
	if err := env.Parse(&cfg.Risk); err != nil {
		return nil, fmt.Errorf("parse risk config: %w", err)
	}
	if err := env.Parse(&cfg.Anomaly.Temporal); err != nil {
		return nil, fmt.Errorf("parse anomaly config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings. Used by tools that do not
// need the auth configuration.
func LoadDatabase() DatabaseConfig {
	_ = godotenv.Load()
	return loadDatabase()
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "riskgate"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
	}
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if err := validateJWTSecret(c.Auth.JWTSecret, c.Server.Env); err != nil {
		return err
	}

	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if err := c.Anomaly.Temporal.Validate(); err != nil {
		return err
	}

	switch c.History.Backend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("HISTORY_BACKEND must be one of memory, postgres, redis (got %q)", c.History.Backend)
	}
	switch c.Credentials.Backend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("CREDENTIAL_BACKEND must be one of memory, postgres (got %q)", c.Credentials.Backend)
	}
	if c.UsesPostgres() && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required when a postgres backend is selected")
	}

	switch c.Anomaly.Mode {
	case AnomalyModeForest, AnomalyModeBand:
	default:
		return fmt.Errorf("ANOMALY_MODE must be one of forest, band (got %q)", c.Anomaly.Mode)
	}

	switch c.Auth.ChallengeMode {
	case ChallengeModeStatic:
		if c.Auth.StaticCode == "" {
			return fmt.Errorf("CHALLENGE_STATIC_CODE is required in static challenge mode")
		}
		if c.Server.Env == "production" {
			return fmt.Errorf("static challenge mode is not allowed in production")
		}
	case ChallengeModeTOTP:
		if c.Auth.TOTPSecret == "" {
			return fmt.Errorf("CHALLENGE_TOTP_SECRET is required in totp challenge mode")
		}
	default:
		return fmt.Errorf("CHALLENGE_MODE must be one of static, totp (got %q)", c.Auth.ChallengeMode)
	}

	// A shorter retention would drop attempts the velocity signal still counts
	if c.History.Retention > 0 {
		if c.History.Retention < c.Risk.VelocityWindow {
			return fmt.Errorf("HISTORY_RETENTION (%s) must be at least RISK_VELOCITY_WINDOW (%s)",
				c.History.Retention, c.Risk.VelocityWindow)
		}
		if c.History.SweepInterval <= 0 {
			return fmt.Errorf("HISTORY_SWEEP_INTERVAL must be positive when retention is enabled")
		}
	}

	return nil
}

// UsesPostgres reports whether any store needs the database pool
func (c *Config) UsesPostgres() bool {
	return c.History.Backend == BackendPostgres || c.Credentials.Backend == BackendPostgres
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, envName string) error {
	minLength := 16
	if envName == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, envName, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
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

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(envName string) []string {
	if origins := getEnvAsList("ALLOWED_ORIGINS"); origins != nil {
		return origins
	}
	if envName == "production" {
		return []string{}
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
