package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultIndoorURL  = "https://drive.google.com/uc?export=download&id=1YPNmFBB5xo2QJr05NR0elhLEceXA6XBZ"
	defaultOutdoorURL = "https://drive.google.com/uc?export=download&id=1nA15O8JQPNmg0ph2uXkV7E-R4tFQwEqQ"
)

// LogLevel decodes LOG_LEVEL, accepting "warning" as an alias for warn.
type LogLevel slog.Level

func (l *LogLevel) Decode(value string) error {
	if strings.TrimSpace(value) == "" {
		value = "info"
	}
	level, err := parseLogLevel(value)
	if err != nil {
		return err
	}
	*l = LogLevel(level)
	return nil
}

type Config struct {
	AppEnv   string   `envconfig:"APP_ENV" default:"dev" validate:"oneof=dev prod"`
	LogLevel LogLevel `envconfig:"LOG_LEVEL" default:"info"`

	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080" validate:"required"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s" validate:"gt=0"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"60s" validate:"gt=0"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	// IndoorURL and OutdoorURL are http(s) URLs or local file paths.
	IndoorURL    string        `envconfig:"INDOOR_CSV_URL" validate:"required"`
	OutdoorURL   string        `envconfig:"OUTDOOR_CSV_URL" validate:"required"`
	CacheDir     string        `envconfig:"CACHE_DIR" default:"data/cache" validate:"required"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"0s" validate:"gte=0"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"60s" validate:"gt=0"`

	Driver          string        `envconfig:"DB_DRIVER" default:"sqlite3" validate:"required"`
	DSN             string        `envconfig:"DB_DSN"`
	Path            string        `envconfig:"SQLITE_PATH" default:"data/aqdash.db"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"1" validate:"gte=0"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"1" validate:"gte=0"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"0s" validate:"gte=0"`
	LogSQL          bool          `envconfig:"DB_LOG_SQL" default:"false"`

	MQTTEnabled  bool   `envconfig:"MQTT_ENABLED" default:"false"`
	MQTTBroker   string `envconfig:"MQTT_BROKER" default:"localhost" validate:"required_if=MQTTEnabled true"`
	MQTTPort     int    `envconfig:"MQTT_PORT" default:"1883" validate:"min=1,max=65535"`
	MQTTTopic    string `envconfig:"MQTT_TOPIC" default:"aqdash/readings" validate:"required_if=MQTTEnabled true"`
	MQTTClientID string `envconfig:"MQTT_CLIENT_ID"`
}

// Level returns the configured slog level.
func (c Config) Level() slog.Level {
	return slog.Level(c.LogLevel)
}

func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	// Variables that are set but empty bypass envconfig defaults.
	cfg.AppEnv = orDefault(cfg.AppEnv, "dev")
	cfg.HTTPAddr = orDefault(cfg.HTTPAddr, ":8080")
	cfg.IndoorURL = orDefault(cfg.IndoorURL, defaultIndoorURL)
	cfg.OutdoorURL = orDefault(cfg.OutdoorURL, defaultOutdoorURL)
	cfg.CacheDir = orDefault(cfg.CacheDir, "data/cache")
	cfg.Driver = orDefault(cfg.Driver, "sqlite3")
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.Path = orDefault(cfg.Path, "data/aqdash.db")
	cfg.MQTTBroker = orDefault(cfg.MQTTBroker, "localhost")
	cfg.MQTTTopic = orDefault(cfg.MQTTTopic, "aqdash/readings")
	if strings.TrimSpace(cfg.MQTTClientID) == "" {
		cfg.MQTTClientID = "aqdash-" + uuid.NewString()
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	fe := verrs[0]
	switch fe.Field() {
	case "AppEnv":
		return fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	default:
		return fmt.Errorf("invalid %s %v (%s)", fe.Field(), fe.Value(), fe.Tag())
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
