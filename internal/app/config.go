package app

import (
	"strings"
	"time"

	"github.com/yungbote/neurobridge-progress/internal/data/db"
	"github.com/yungbote/neurobridge-progress/internal/platform/envutil"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
)

type Config struct {
	LogMode string
	Port    string

	DBDriver   string
	Postgres   db.PostgresConfig
	SQLitePath string

	JWTSecretKey string
	CORSOrigins  []string

	StreakLocation       *time.Location
	StreakCASMaxAttempts int
	CertificatePrefix    string

	RedisAddr         string
	RedisPassword     string
	CertificateStream string
	StreamMaxLen      int64

	MetricsAddr string
	ServiceName string
	Environment string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		LogMode:  envutil.String("LOG_MODE", "development"),
		Port:     envutil.String("PORT", "8080"),
		DBDriver: strings.ToLower(envutil.String("DB_DRIVER", db.DriverPostgres)),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "progress"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},
		SQLitePath: envutil.String("SQLITE_PATH", "progress.db"),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		CORSOrigins:  splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		StreakCASMaxAttempts: envutil.Int("STREAK_CAS_MAX_ATTEMPTS", 5),
		CertificatePrefix:    envutil.String("CERTIFICATE_PREFIX", "CERT"),

		RedisAddr:         envutil.String("REDIS_ADDR", ""),
		RedisPassword:     envutil.String("REDIS_PASSWORD", ""),
		CertificateStream: envutil.String("CERTIFICATE_EVENTS_STREAM", "progress:certificate_issued"),
		StreamMaxLen:      int64(envutil.Int("CERTIFICATE_EVENTS_MAXLEN", 100000)),

		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "neurobridge-progress"),
		Environment: envutil.String("APP_ENV", "development"),
	}

	tz := envutil.String("STREAK_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		if log != nil {
			log.Warn("invalid STREAK_TIMEZONE, falling back to UTC", "value", tz, "error", err)
		}
		loc = time.UTC
	}
	cfg.StreakLocation = loc

	if cfg.JWTSecretKey == "" && log != nil {
		log.Warn("JWT_SECRET_KEY is empty; learner auth is disabled")
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
