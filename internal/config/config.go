package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	AuthCookieSecure bool
	AuthJWTSecret    string
	AuthJWTTTL       time.Duration

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Email        EmailConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
	Scheduler    SchedulerConfig
	Bootstrap    BootstrapConfig
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type NotificationConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

type RateLimitConfig struct {
	Enabled bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ApplicationWriteRate  float64
	ApplicationWriteBurst int
}

type SchedulerConfig struct {
	Enabled          bool
	RunInterval      time.Duration
	BatchSize        int
	SessionRetention time.Duration
	EnabledJobs      []string
}

type BootstrapConfig struct {
	SeedDemoData bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "dfund"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		AuthCookieSecure:  authCookieSecure,
		AuthJWTSecret:     strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthJWTTTL:        time.Duration(getenvInt("AUTH_JWT_TTL_HOURS", 24)) * time.Hour,
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "dfund"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "dfund.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME_SECONDS", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME_SECONDS", 300),
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: strings.TrimSpace(getenv("SMTP_USERNAME", "")),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     strings.TrimSpace(getenv("SMTP_FROM", "")),
		},
		Notification: NotificationConfig{
			QueueSize:   getenvInt("NOTIFICATION_QUEUE_SIZE", 256),
			Workers:     getenvInt("NOTIFICATION_WORKERS", 2),
			SendTimeout: time.Duration(getenvInt("NOTIFICATION_SEND_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:               getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:             strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "localhost:6379")),
			RedisPassword:         getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:               getenvInt("RATE_LIMIT_REDIS_DB", 0),
			ApplicationWriteRate:  getenvFloat("RATE_LIMIT_APPLICATION_WRITE_RATE", 1),
			ApplicationWriteBurst: getenvInt("RATE_LIMIT_APPLICATION_WRITE_BURST", 10),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getenvBool("SCHEDULER_ENABLED", true),
			RunInterval:      time.Duration(getenvInt("SCHEDULER_INTERVAL_SECONDS", 60)) * time.Second,
			BatchSize:        getenvInt("SCHEDULER_BATCH_SIZE", 100),
			SessionRetention: time.Duration(getenvInt("SCHEDULER_SESSION_RETENTION_HOURS", 168)) * time.Hour,
			EnabledJobs:      getenvList("SCHEDULER_JOBS"),
		},
		Bootstrap: BootstrapConfig{
			SeedDemoData: getenvBool("BOOTSTRAP_SEED_DEMO_DATA", false),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
