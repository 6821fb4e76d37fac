package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bitmapadapter/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_ADDR", "DATA_DIR", "STAGE", "STAGE_WIDTH", "STAGE_HEIGHT", "MAX_UPLOAD_BYTES",
		"MAX_DIMENSION", "OUTPUT_FORMAT", "JOB_RETENTION", "JANITOR_INTERVAL",
		"REQUEST_TIMEOUT", "LOG_LEVEL", "CONFIG_FILE", "RATE_LIMIT", "TRUSTED_PROXIES",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_WithEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("DATA_DIR", "./tmp/data")
	t.Setenv("STAGE_WIDTH", "640")
	t.Setenv("STAGE_HEIGHT", "360")
	t.Setenv("JOB_RETENTION", "5m")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr != ":9999" {
		t.Fatalf("expected SERVER_ADDR :9999, got %s", cfg.ServerAddr)
	}
	if cfg.DataDir != "./tmp/data" {
		t.Fatalf("expected DATA_DIR ./tmp/data, got %s", cfg.DataDir)
	}
	if cfg.Stage.Width != 640 || cfg.Stage.Height != 360 {
		t.Fatalf("expected stage 640x360, got %s", cfg.Stage)
	}
	if cfg.JobRetention != 5*time.Minute {
		t.Fatalf("expected JOB_RETENTION 5m, got %s", cfg.JobRetention)
	}
}

func TestLoad_StageEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STAGE", "640x480")
	t.Setenv("STAGE_HEIGHT", "400")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Stage.Width != 640 || cfg.Stage.Height != 400 {
		t.Fatalf("expected stage 640x400, got %s", cfg.Stage)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr == "" {
		t.Fatalf("expected default SERVER_ADDR, got empty")
	}
	if cfg.Stage.Width != 480 || cfg.Stage.Height != 360 {
		t.Fatalf("expected default stage 480x360, got %s", cfg.Stage)
	}
	if cfg.OutputFormat != "image/png" {
		t.Fatalf("expected default output format image/png, got %s", cfg.OutputFormat)
	}
}

func TestLoad_YAMLFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server_addr: ":7000"
stage:
  width: 960
  height: 540
output_format: image/jpeg
request_timeout: 2s
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_ADDR", ":7001")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr != ":7001" {
		t.Fatalf("expected env to win over file, got %s", cfg.ServerAddr)
	}
	if cfg.Stage.Width != 960 || cfg.Stage.Height != 540 {
		t.Fatalf("expected stage from file 960x540, got %s", cfg.Stage)
	}
	if cfg.OutputFormat != "image/jpeg" {
		t.Fatalf("expected output format from file, got %s", cfg.OutputFormat)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Fatalf("expected request timeout 2s, got %s", cfg.RequestTimeout)
	}
	if cfg.ConfigFile != path {
		t.Fatalf("expected ConfigFile %s, got %s", path, cfg.ConfigFile)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"STAGE_WIDTH":      "0",
		"STAGE_HEIGHT":     "9000",
		"STAGE":            "480by360",
		"MAX_DIMENSION":    "-1",
		"OUTPUT_FORMAT":    "image/tiff",
		"LOG_LEVEL":        "chatty",
		"JANITOR_INTERVAL": "soon",
		"MAX_UPLOAD_BYTES": "lots",
		"RATE_LIMIT":       "-3",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestReadStage(t *testing.T) {
	path := writeFile(t, "stage:\n  width: 320\n")
	fs, err := config.ReadStage(path)
	if err != nil {
		t.Fatalf("ReadStage: %v", err)
	}
	if fs.Width != 320 || fs.Height != 0 {
		t.Fatalf("expected 320x0, got %s", fs)
	}
}
