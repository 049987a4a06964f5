package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pilotforce-server-go/internal/platform/errors"
)

// Loader reads configuration from a YAML file layered over code defaults,
// with environment variables taking final precedence for secrets.
type Loader struct {
	path      string
	useDotEnv bool
}

// NewLoader creates a loader reading from the default config path.
func NewLoader() *Loader {
	return &Loader{
		path:      "config.yaml",
		useDotEnv: true,
	}
}

// WithPath overrides the config file location.
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load merges defaults, the YAML file (when present) and environment overrides.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	cfg := Default()

	path := l.path
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "loader.load", "invalid yaml in "+path, err)
		}
	case os.IsNotExist(err):
		path = ""
	default:
		return nil, errors.Wrap(errors.KindConfig, "loader.load", "cannot read "+path, err)
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PILOTFORCE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PILOTFORCE_JWT_SECRET"); v != "" {
		cfg.Server.Auth.JWTSecret = v
	}
	if v := os.Getenv("PILOTFORCE_PRESIGN_SECRET"); v != "" {
		cfg.Presign.Secret = v
	}
	if v := os.Getenv("PILOTFORCE_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("PILOTFORCE_REDIS_ADDR"); v != "" {
		if cfg.Presign.Cache.Redis == nil {
			cfg.Presign.Cache.Redis = &PresignRedisCache{}
		}
		cfg.Presign.Cache.Redis.Addr = v
	}
	if v := os.Getenv("PILOTFORCE_PUBLIC_URL"); v != "" {
		cfg.Web.PublicURL = v
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New(errors.KindConfig, "loader.validate",
			fmt.Sprintf("invalid server port %d", cfg.Server.Port))
	}
	if cfg.Server.Auth.Enabled && cfg.Server.Auth.JWTSecret == "" {
		return errors.New(errors.KindConfig, "loader.validate",
			"auth enabled but jwt_secret is empty (set PILOTFORCE_JWT_SECRET)")
	}
	if cfg.Presign.Secret == "" {
		return errors.New(errors.KindConfig, "loader.validate",
			"presign secret is empty (set PILOTFORCE_PRESIGN_SECRET)")
	}
	return nil
}
