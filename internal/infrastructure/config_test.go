package infra

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *AppConfig {
	cfg := new(AppConfig)
	cfg.AppID = "progress"
	cfg.Env = EnvDevelopment
	cfg.Database.Driver = DriverMemory
	cfg.Database.MaxConn = 10
	cfg.Logging.Level = "info"
	cfg.Security.IDLength = 21
	cfg.Security.JWTMethod = "HS256"
	cfg.Security.JWTSecret = "secret"
	cfg.Security.TokenName = "token"
	cfg.Progress.CompletionThreshold = 0.95
	cfg.Progress.RewindTolerance = 10 * time.Second
	cfg.Progress.SkewTolerance = 5 * time.Second
	cfg.Progress.DurationTolerance = 2 * time.Second
	cfg.Dashboard.MaxParallel = 8
	return cfg
}

func TestValidateConfig(t *testing.T) {
	cases := map[string]struct {
		mutate func(cfg *AppConfig)
		want   string
	}{
		"valid memory config": {func(cfg *AppConfig) {}, ""},
		"missing app id":      {func(cfg *AppConfig) { cfg.AppID = "" }, "app_id is required"},
		"unknown driver":      {func(cfg *AppConfig) { cfg.Database.Driver = "sqlite" }, "database.driver must be one of"},
		"sql driver without schema": {func(cfg *AppConfig) {
			cfg.Database.Driver = "postgres"
			cfg.Database.User = "u"
		}, "database.schema is required"},
		"threshold above one": {func(cfg *AppConfig) { cfg.Progress.CompletionThreshold = 1.5 }, "progress.completion_threshold is out of range"},
		"no parallelism":      {func(cfg *AppConfig) { cfg.Dashboard.MaxParallel = 0 }, "dashboard.max_parallel is out of range"},
		"missing secret":      {func(cfg *AppConfig) { cfg.Security.JWTSecret = "" }, "security.jwt_secret is required"},
	}
	for name, c := range cases {
		cfg := validConfig()
		c.mutate(cfg)
		err := validateConfig(cfg)
		if c.want == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: error = %v, want it to contain %q", name, err, c.want)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file must be skipped, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "app.env")
	if err := os.WriteFile(path, []byte("GOAPP_TEST_ENV_FILE=loaded\n"), 0600); err != nil {
		t.Fatal(err)
	}
	defer os.Unsetenv("GOAPP_TEST_ENV_FILE")
	if err := loadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv("GOAPP_TEST_ENV_FILE"); v != "loaded" {
		t.Fatalf("GOAPP_TEST_ENV_FILE = %q", v)
	}
}
