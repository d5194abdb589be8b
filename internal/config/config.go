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
	defaultAppName        = "VaultPay"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultAccessTTL      = 15 * time.Minute
	defaultOTPTTL         = 5 * time.Minute
	defaultOTPAttempts    = 5
	defaultOTPDigits      = 6
	defaultFeePercent     = 1.0
	defaultAlertCapacity  = 50
	defaultDailyLimit     = 420_000
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret      string
	AccessTokenTTL time.Duration

	OTPTTL      time.Duration
	OTPAttempts int
	OTPDigits   int

	FeePercent    float64
	AlertCapacity int
	DailyLimit    int64

	Risk RiskConfig

	// SeedDemo provisions a pre-funded demo account on startup when running
	// against the in-memory store.
	SeedDemo bool
}

// RiskConfig holds the operator-tunable scoring thresholds. Zero values mean
// "use the risk package default".
type RiskConfig struct {
	LowThreshold    int64
	HighThreshold   int64
	SlopeDivisor    int64
	StepUpThreshold int
	Denylist        []string
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file in the working directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: defaultAccessTTL,
		OTPTTL:         defaultOTPTTL,
		OTPAttempts:    defaultOTPAttempts,
		OTPDigits:      defaultOTPDigits,
		FeePercent:     defaultFeePercent,
		AlertCapacity:  defaultAlertCapacity,
		DailyLimit:     defaultDailyLimit,
		SeedDemo:       getEnv("SEED_DEMO", "") == "true",
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationEnv("OTP_TTL", cfg.OTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPAttempts, err = intEnv("OTP_ATTEMPTS", cfg.OTPAttempts); err != nil {
		return Config{}, err
	}
	if cfg.OTPDigits, err = intEnv("OTP_DIGITS", cfg.OTPDigits); err != nil {
		return Config{}, err
	}
	if cfg.AlertCapacity, err = intEnv("ALERT_CAPACITY", cfg.AlertCapacity); err != nil {
		return Config{}, err
	}
	if cfg.DailyLimit, err = int64Env("DAILY_LIMIT", cfg.DailyLimit); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("FEE_PERCENT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FEE_PERCENT: %w", err)
		}
		cfg.FeePercent = f
	}

	if cfg.Risk.LowThreshold, err = int64Env("RISK_LOW_THRESHOLD", 0); err != nil {
		return Config{}, err
	}
	if cfg.Risk.HighThreshold, err = int64Env("RISK_HIGH_THRESHOLD", 0); err != nil {
		return Config{}, err
	}
	if cfg.Risk.SlopeDivisor, err = int64Env("RISK_SLOPE_DIVISOR", 0); err != nil {
		return Config{}, err
	}
	if cfg.Risk.StepUpThreshold, err = intEnv("RISK_STEPUP_THRESHOLD", 0); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("RISK_DENYLIST"); v != "" {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Risk.Denylist = append(cfg.Risk.Denylist, s)
			}
		}
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
		cfg.JWTSecret = "dev-secret-do-not-use"
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development-like environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
