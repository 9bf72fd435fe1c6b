package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "appforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "APPFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "APPFORGE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "APPFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "APPFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "APPFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "APPFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "APPFORGE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "APPFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "APPFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "APPFORGE_LOG_ASYNC")
	setString(&cfg.Engine.DefinitionPath, "APPFORGE_DEFINITION")
	setInt(&cfg.Engine.MaxDepth, "APPFORGE_ENGINE_MAX_DEPTH")
	setInt(&cfg.Engine.MaxSynthesized, "APPFORGE_ENGINE_MAX_SYNTHESIZED")
	setInt(&cfg.Engine.Workers, "APPFORGE_ENGINE_WORKERS")
	setBool(&cfg.Engine.SimAgents, "APPFORGE_SIM_AGENTS")
	setInt64(&cfg.Cache.TemplateMB, "APPFORGE_CACHE_TEMPLATE_MB")
	setInt(&cfg.Breaker.MaxFailures, "APPFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "APPFORGE_BREAKER_TIMEOUT")
	setBool(&cfg.Telemetry.Enabled, "APPFORGE_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "APPFORGE_OTLP_ENDPOINT")
	setString(&cfg.Notify.SlackWebhookURL, "APPFORGE_SLACK_WEBHOOK_URL")
	setBool(&cfg.Auth.Enabled, "APPFORGE_AUTH_ENABLED")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Engine.DefinitionPath == "" {
		return errors.New("engine.definition_path is required")
	}
	if cfg.Engine.MaxDepth < 1 {
		return errors.New("engine.max_depth must be >= 1")
	}
	if cfg.Engine.MaxSynthesized < 1 {
		return errors.New("engine.max_synthesized must be >= 1")
	}
	if cfg.Engine.Workers < 1 {
		return errors.New("engine.workers must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
