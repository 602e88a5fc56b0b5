package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	IdempotencyTTL time.Duration
}

type ComplianceConfig struct {
	Enabled  bool
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

type LogConfig struct {
	Level       string
	Development bool
}

var envBindings = map[string]string{
	"database.driver":          "DATABASE_DRIVER",
	"database.dsn":             "DATABASE_DSN",
	"database.host":            "DATABASE_HOST",
	"database.port":            "DATABASE_PORT",
	"database.user":            "DATABASE_USER",
	"database.password":        "DATABASE_PASSWORD",
	"database.name":            "DATABASE_NAME",
	"database.ssl_mode":        "DATABASE_SSL_MODE",
	"database.auto_migrate":    "DATABASE_AUTO_MIGRATE",
	"redis.host":               "REDIS_HOST",
	"redis.port":               "REDIS_PORT",
	"redis.password":           "REDIS_PASSWORD",
	"redis.db":                 "REDIS_DB",
	"jwt.secret_key":           "JWT_SECRET_KEY",
	"jwt.refresh_secret_key":   "JWT_REFRESH_SECRET_KEY",
	"jwt.expiry_hours":         "JWT_EXPIRY_HOURS",
	"jwt.refresh_expiry_hours": "JWT_REFRESH_EXPIRY_HOURS",
	"argon2.time":              "ARGON2_TIME",
	"argon2.memory":            "ARGON2_MEMORY",
	"argon2.threads":           "ARGON2_THREADS",
	"argon2.key_length":        "ARGON2_KEY_LENGTH",
	"argon2.salt_length":       "ARGON2_SALT_LENGTH",
	"server.port":              "PORT",
	"server.read_timeout":      "SERVER_READ_TIMEOUT",
	"server.write_timeout":     "SERVER_WRITE_TIMEOUT",
	"server.idle_timeout":      "SERVER_IDLE_TIMEOUT",
	"server.request_timeout":   "SERVER_REQUEST_TIMEOUT",
	"server.max_body_bytes":    "SERVER_MAX_BODY_BYTES",
	"idempotency.ttl":          "IDEMPOTENCY_TTL",
	"compliance.enabled":       "COMPLIANCE_ENABLED",
	"compliance.base_url":      "COMPLIANCE_BASE_URL",
	"compliance.email":         "COMPLIANCE_EMAIL",
	"compliance.password":      "COMPLIANCE_PASSWORD",
	"compliance.timeout":       "COMPLIANCE_TIMEOUT",
	"log.level":                "LOG_LEVEL",
	"log.development":          "LOG_DEVELOPMENT",
}

// Init reads the .env file, binds environment variables and registers defaults.
// A missing .env file is not an error.
func Init() error {
	viper.SetConfigFile(".env")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("database.auto_migrate", true)

	viper.SetDefault("jwt.expiry_hours", 1)
	viper.SetDefault("jwt.refresh_expiry_hours", 24*7)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("server.request_timeout", 30*time.Second)
	viper.SetDefault("server.max_body_bytes", 1_048_576)
	viper.SetDefault("idempotency.ttl", 24*time.Hour)

	viper.SetDefault("compliance.enabled", false)
	viper.SetDefault("compliance.base_url", "https://compliance-api.cubos.io")
	viper.SetDefault("compliance.timeout", 10*time.Second)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
}

func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           viper.GetString("server.port"),
		ReadTimeout:    viper.GetDuration("server.read_timeout"),
		WriteTimeout:   viper.GetDuration("server.write_timeout"),
		IdleTimeout:    viper.GetDuration("server.idle_timeout"),
		RequestTimeout: viper.GetDuration("server.request_timeout"),
		MaxBodyBytes:   viper.GetInt64("server.max_body_bytes"),
		IdempotencyTTL: viper.GetDuration("idempotency.ttl"),
	}
}

func LoadComplianceConfig() *ComplianceConfig {
	return &ComplianceConfig{
		Enabled:  viper.GetBool("compliance.enabled"),
		BaseURL:  strings.TrimRight(viper.GetString("compliance.base_url"), "/"),
		Email:    viper.GetString("compliance.email"),
		Password: viper.GetString("compliance.password"),
		Timeout:  viper.GetDuration("compliance.timeout"),
	}
}

func LoadLogConfig() *LogConfig {
	return &LogConfig{
		Level:       viper.GetString("log.level"),
		Development: viper.GetBool("log.development"),
	}
}
