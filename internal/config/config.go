package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application runtime configuration.
type Config struct {
	Env             string
	LogLevel        string
	HTTPPort        string
	DatabaseURL     string
	DBMaxConns      int32
	DBMinConns      int32
	JWTSecret       string
	ClientURL       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ReadTimeout     time.Duration
	HeaderTimeout   time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers      string
	OutboxPollEvery   time.Duration
	OTLPEndpoint      string
	OTelSampleRatio   float64
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SMTPFrom          string
	EmailCooldown     time.Duration
	InviteTTL         time.Duration
	RunWorkers        bool
	ImportWorkers     int
	ImportMaxAttempts int
	ImportMaxBytes    int64
	ImportRetention   time.Duration
	ImportLease       time.Duration

	DefaultSlotCapacity    int
	DefaultPaymentMethod   string
	StatusTransitionPolicy string
	RejectPastAppointments bool
}

// Load reads environment variables and .env (if present).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DBMaxConns:      int32(getInt("DB_MAX_CONNS", 20)),
		DBMinConns:      int32(getInt("DB_MIN_CONNS", 2)),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		ClientURL:       getEnv("CLIENT_URL", "http://localhost:3000"),
		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		HeaderTimeout:   getDuration("HTTP_HEADER_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:     getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		OutboxPollEvery:   getDuration("OUTBOX_POLL_EVERY", 2*time.Second),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelSampleRatio:   getFloat("OTEL_SAMPLING_RATIO", 1),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getInt("SMTP_PORT", 587),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:          getEnv("SMTP_FROM", os.Getenv("SMTP_USER")),
		EmailCooldown:     getDuration("EMAIL_COOLDOWN", 60*time.Second),
		InviteTTL:         getDuration("INVITE_TTL", 7*24*time.Hour),
		RunWorkers:        getBool("RUN_IMPORT_WORKERS", true),
		ImportWorkers:     getInt("IMPORT_WORKERS", 2),
		ImportMaxAttempts: getInt("IMPORT_MAX_ATTEMPTS", 3),
		ImportMaxBytes:    int64(getInt("IMPORT_MAX_BYTES", 10<<20)),
		ImportRetention:   getDuration("IMPORT_JOB_RETENTION", 24*time.Hour),
		ImportLease:       getDuration("IMPORT_JOB_LEASE", 5*time.Minute),

		DefaultSlotCapacity:    getInt("DEFAULT_SLOT_CAPACITY", 3),
		DefaultPaymentMethod:   getEnv("DEFAULT_PAYMENT_METHOD", "cash"),
		StatusTransitionPolicy: strings.ToLower(getEnv("STATUS_TRANSITION_POLICY", "open")),
		RejectPastAppointments: getBool("REJECT_PAST_APPOINTMENTS", false),
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}
	if cfg.StatusTransitionPolicy != "open" && cfg.StatusTransitionPolicy != "terminal" {
		return cfg, errors.New("STATUS_TRANSITION_POLICY must be open or terminal")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		// Support seconds as integer without suffix.
		if secs, convErr := strconv.Atoi(val); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}
