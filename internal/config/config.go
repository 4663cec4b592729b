package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/jaekwang-park/todo-notes/internal/capture"
	"github.com/jaekwang-park/todo-notes/internal/session"
)

var validEnvs = map[string]bool{
	"local": true,
	"alpha": true,
	"beta":  true,
	"prod":  true,
}

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

type Config struct {
	ServerPort     string
	AppEnv         string
	LogLevel       string
	StoreBackend   string
	SessionFile    string
	CaptureLocale  string
	MetricsEnabled bool
	DB             DBConfig
	Mongo          MongoConfig
	Cognito        CognitoConfig
}

func (c Config) ParseLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid SERVER_PORT %q: %w", c.ServerPort, err)
	}
	if !validEnvs[c.AppEnv] {
		return fmt.Errorf("invalid APP_ENV %q: must be one of local, alpha, beta, prod", c.AppEnv)
	}

	switch c.StoreBackend {
	case BackendPostgres:
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_BACKEND is mongo")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("MONGODB_DATABASE is required when STORE_BACKEND is mongo")
		}
	case BackendMemory:
		if c.AppEnv != "local" {
			return fmt.Errorf("STORE_BACKEND memory must not be used in %s environment", c.AppEnv)
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: must be one of postgres, mongo, memory", c.StoreBackend)
	}

	if c.Cognito.UserPoolID == "" {
		return fmt.Errorf("COGNITO_USER_POOL_ID is required")
	}
	if c.Cognito.AppClientID == "" {
		return fmt.Errorf("COGNITO_APP_CLIENT_ID is required")
	}
	if c.SessionFile == "" {
		return fmt.Errorf("SESSION_FILE must not be empty")
	}
	if !strings.Contains(c.CaptureLocale, "-") {
		return fmt.Errorf("invalid CAPTURE_LOCALE %q: expected a language tag such as en-US", c.CaptureLocale)
	}
	return nil
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     d.Name,
		RawQuery: fmt.Sprintf("sslmode=%s", url.QueryEscape(d.SSLMode)),
	}
	return u.String()
}

type MongoConfig struct {
	URI      string
	Database string
}

type CognitoConfig struct {
	Region          string
	UserPoolID      string
	AppClientID     string
	AppClientSecret string
}

func Load() Config {
	return Config{
		ServerPort:     envOrDefault("SERVER_PORT", "8080"),
		AppEnv:         envOrDefault("APP_ENV", "local"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		StoreBackend:   strings.ToLower(envOrDefault("STORE_BACKEND", BackendPostgres)),
		SessionFile:    envOrDefault("SESSION_FILE", session.DefaultTokenPath()),
		CaptureLocale:  envOrDefault("CAPTURE_LOCALE", capture.DefaultLocale),
		MetricsEnabled: strings.EqualFold(envOrDefault("METRICS_ENABLED", "true"), "true"),
		DB: DBConfig{
			Host:     envOrDefault("DB_HOST", "localhost"),
			Port:     envOrDefault("DB_PORT", "5432"),
			User:     envOrDefault("DB_USER", "todo"),
			Password: envOrDefault("DB_PASSWORD", "todo"),
			Name:     envOrDefault("DB_NAME", "todo"),
			SSLMode:  envOrDefault("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:      os.Getenv("MONGODB_URI"),
			Database: envOrDefault("MONGODB_DATABASE", "todo_notes"),
		},
		Cognito: CognitoConfig{
			Region:          envOrDefault("COGNITO_REGION", "ap-northeast-1"),
			UserPoolID:      os.Getenv("COGNITO_USER_POOL_ID"),
			AppClientID:     os.Getenv("COGNITO_APP_CLIENT_ID"),
			AppClientSecret: os.Getenv("COGNITO_APP_CLIENT_SECRET"),
		},
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
