package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("INDOOR_CSV_URL", "")
	t.Setenv("OUTDOOR_CSV_URL", "")
	t.Setenv("MQTT_CLIENT_ID", "")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.Level() != slog.LevelInfo {
		t.Errorf("Level() = %v, want %v", got.Level(), slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if got.IndoorURL != defaultIndoorURL {
		t.Errorf("IndoorURL = %q, want %q", got.IndoorURL, defaultIndoorURL)
	}
	if got.OutdoorURL != defaultOutdoorURL {
		t.Errorf("OutdoorURL = %q, want %q", got.OutdoorURL, defaultOutdoorURL)
	}
	if got.CacheTTL != 0 {
		t.Errorf("CacheTTL = %v, want 0", got.CacheTTL)
	}
	if got.FetchTimeout != 60*time.Second {
		t.Errorf("FetchTimeout = %v, want 60s", got.FetchTimeout)
	}
	if !strings.HasPrefix(got.MQTTClientID, "aqdash-") {
		t.Errorf("MQTTClientID = %q, want aqdash- prefix", got.MQTTClientID)
	}
	if got.MQTTEnabled {
		t.Error("MQTTEnabled = true, want false")
	}
}

func TestLoadFromEnv_AppEnv_Valid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		want   string
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod", appEnv: "prod", want: "prod"},
		{name: "dev with whitespace", appEnv: "  dev  ", want: "dev"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.appEnv)
			t.Setenv("LOG_LEVEL", "")
			t.Setenv("HTTP_ADDR", "")

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_AppEnv_Invalid(t *testing.T) {
	for _, appEnv := range []string{"staging", "qa", "DEV", "whatever"} {
		t.Run(appEnv, func(t *testing.T) {
			t.Setenv("APP_ENV", appEnv)
			t.Setenv("LOG_LEVEL", "")
			t.Setenv("HTTP_ADDR", "")

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
			if !strings.Contains(err.Error(), "APP_ENV") {
				t.Errorf("error = %q, want mention of APP_ENV", err.Error())
			}
		})
	}
}

func TestLoadFromEnv_HTTPAddr(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "default when empty", in: "", want: ":8080"},
		{name: "trims whitespace", in: "  :9090  ", want: ":9090"},
		{name: "host:port", in: "127.0.0.1:8081", want: "127.0.0.1:8081"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "")
			t.Setenv("LOG_LEVEL", "")
			t.Setenv("HTTP_ADDR", tt.in)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.HTTPAddr != tt.want {
				t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Sources(t *testing.T) {
	t.Setenv("INDOOR_CSV_URL", " testdata/indoor.csv ")
	t.Setenv("OUTDOOR_CSV_URL", "http://example.com/outdoor.csv")
	t.Setenv("CACHE_TTL", "1h")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.IndoorURL != "testdata/indoor.csv" {
		t.Errorf("IndoorURL = %q, want trimmed path", got.IndoorURL)
	}
	if got.OutdoorURL != "http://example.com/outdoor.csv" {
		t.Errorf("OutdoorURL = %q", got.OutdoorURL)
	}
	if got.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", got.CacheTTL)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "log level", key: "LOG_LEVEL", val: "verbose"},
		{name: "negative ttl", key: "CACHE_TTL", val: "-5s"},
		{name: "bad duration", key: "FETCH_TIMEOUT", val: "soon"},
		{name: "port out of range", key: "MQTT_PORT", val: "70000"},
		{name: "bad int", key: "DB_MAX_OPEN_CONNS", val: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.val)
			}
		})
	}
}

func TestLoadFromEnv_MQTTClientIDKept(t *testing.T) {
	t.Setenv("MQTT_CLIENT_ID", "kitchen-dashboard")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.MQTTClientID != "kitchen-dashboard" {
		t.Errorf("MQTTClientID = %q, want kitchen-dashboard", got.MQTTClientID)
	}
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "  DEBUG ", want: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"trace", "fatal", "1"} {
		if _, err := parseLogLevel(in); err == nil {
			t.Errorf("parseLogLevel(%q) error = nil, want non-nil", in)
		}
	}
}

func TestLogLevel_DecodeEmptyIsInfo(t *testing.T) {
	var l LogLevel
	if err := l.Decode(""); err != nil {
		t.Fatalf("Decode(\"\") error = %v", err)
	}
	if slog.Level(l) != slog.LevelInfo {
		t.Errorf("Decode(\"\") = %v, want info", slog.Level(l))
	}
}
