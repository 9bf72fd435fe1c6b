package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Engine.MaxDepth != 8 {
		t.Errorf("default max_depth = %d, want 8", cfg.Engine.MaxDepth)
	}
	if cfg.Engine.DefinitionPath == "" {
		t.Error("default definition_path must not be empty")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom missing file: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want default 8080", cfg.Server.Port)
	}
}

func TestLoadFrom_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appforge.yaml")
	yaml := `
server:
  port: "9090"
engine:
  max_depth: 4
  definition_path: wf.yaml
breaker:
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Engine.MaxDepth != 4 {
		t.Errorf("max_depth = %d, want 4", cfg.Engine.MaxDepth)
	}
	if cfg.Engine.DefinitionPath != "wf.yaml" {
		t.Errorf("definition_path = %q, want wf.yaml", cfg.Engine.DefinitionPath)
	}
	if cfg.Breaker.Timeout != 5*time.Second {
		t.Errorf("breaker timeout = %v, want 5s", cfg.Breaker.Timeout)
	}
	// Untouched sections keep defaults.
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url = %q, want default", cfg.NATS.URL)
	}
}

func TestLoadFrom_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appforge.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("APPFORGE_PORT", "7070")
	t.Setenv("APPFORGE_ENGINE_MAX_DEPTH", "3")
	t.Setenv("APPFORGE_LOG_ASYNC", "true")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, want env override 7070", cfg.Server.Port)
	}
	if cfg.Engine.MaxDepth != 3 {
		t.Errorf("max_depth = %d, want 3", cfg.Engine.MaxDepth)
	}
	if !cfg.Logging.Async {
		t.Error("log async = false, want true from env")
	}
}

func TestLoadFrom_InvalidEnvIgnored(t *testing.T) {
	t.Setenv("APPFORGE_ENGINE_MAX_DEPTH", "not-a-number")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Engine.MaxDepth != 8 {
		t.Errorf("max_depth = %d, want default 8 when env is malformed", cfg.Engine.MaxDepth)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"empty dsn", func(c *Config) { c.Postgres.DSN = "" }},
		{"empty nats url", func(c *Config) { c.NATS.URL = "" }},
		{"zero max_depth", func(c *Config) { c.Engine.MaxDepth = 0 }},
		{"empty definition", func(c *Config) { c.Engine.DefinitionPath = "" }},
		{"zero workers", func(c *Config) { c.Engine.Workers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if err := validate(&cfg); err == nil {
				t.Error("validate accepted invalid config")
			}
		})
	}
}
