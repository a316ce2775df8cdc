// Package config loads bqgate settings from a YAML file, the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"bqgate/internal/domain"
)

// EnvPrefix prefixes environment overrides: BQGATE_BACKEND_PROJECT sets
// backend.project.
const EnvPrefix = "BQGATE"

// keyDelim separates nested config keys. Entity names may contain dots.
const keyDelim = "::"

func key(parts ...string) string {
	return strings.Join(parts, keyDelim)
}

// Config is the full bqgate configuration.
type Config struct {
	Listen         string               `mapstructure:"listen"`
	Log            LogConfig            `mapstructure:"log"`
	Backend        domain.Backend       `mapstructure:"backend"`
	Entities       map[string]string    `mapstructure:"entities"`
	StrictEntities bool                 `mapstructure:"strict_entities"`
	Cache          CacheConfig          `mapstructure:"cache"`
	Secrets        SecretsConfig        `mapstructure:"secrets"`
	Snapshots      []domain.SnapshotJob `mapstructure:"snapshots"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// CacheConfig locates the state database (response cache and snapshot run
// history). Responses are cached only when TTL is positive.
type CacheConfig struct {
	Path string        `mapstructure:"path"` // empty means ~/.local/share/bqgate/bqgate.db
	TTL  time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether responses should be cached.
func (c CacheConfig) Enabled() bool {
	return c.TTL > 0
}

type SecretsConfig struct {
	Provider string `mapstructure:"provider"` // "env" or "keychain"
}

// Options control where Load looks.
type Options struct {
	// File is an explicit config file. When empty, bqgate.yaml is searched
	// in the working directory and $HOME/.config/bqgate.
	File string
	// DotEnv is loaded into the environment before reading overrides.
	// Defaults to ".env"; a missing file is ignored.
	DotEnv string
	// Fs is the filesystem config files are read from. Defaults to the OS.
	Fs afero.Fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault(key("log", "level"), "info")
	v.SetDefault(key("log", "format"), "json")

	v.SetDefault(key("backend", "name"), "default")
	v.SetDefault(key("backend", "driver"), string(domain.BackendDriverBigQuery))
	v.SetDefault(key("backend", "project"), "")
	v.SetDefault(key("backend", "location"), "")
	v.SetDefault(key("backend", "credentials_file"), "")
	v.SetDefault(key("backend", "endpoint"), "")
	v.SetDefault(key("backend", "max_results"), 1000)
	v.SetDefault(key("backend", "timeout"), "30s")
	v.SetDefault(key("backend", "host"), "")
	v.SetDefault(key("backend", "port"), 0)
	v.SetDefault(key("backend", "database"), "")
	v.SetDefault(key("backend", "username"), "")
	v.SetDefault(key("backend", "ssl_mode"), "")

	v.SetDefault("strict_entities", false)
	v.SetDefault(key("cache", "path"), "")
	v.SetDefault(key("cache", "ttl"), "0s")
	v.SetDefault(key("secrets", "provider"), "env")
}

// Load reads the configuration. A missing config file is not an error; every
// key has a default and can be overridden from the environment.
func Load(opts Options) (*Config, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.DotEnv == "" {
		opts.DotEnv = ".env"
	}
	if _, err := os.Stat(opts.DotEnv); err == nil {
		if err := godotenv.Load(opts.DotEnv); err != nil {
			return nil, fmt.Errorf("load %s: %w", opts.DotEnv, err)
		}
	}

	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelim))
	v.SetFs(opts.Fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelim, "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("bqgate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "bqgate"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings Load cannot default.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend.Driver {
	case domain.BackendDriverBigQuery, domain.BackendDriverPostgres, domain.BackendDriverMySQL, domain.BackendDriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("backend.driver: unsupported %q", c.Backend.Driver))
	}
	if c.Listen == "" {
		errs = append(errs, errors.New("listen: must not be empty"))
	}

	seen := make(map[string]bool)
	for i, j := range c.Snapshots {
		at := fmt.Sprintf("snapshots[%d]", i)
		if j.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", at))
		} else if seen[j.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name %q", at, j.Name))
		}
		seen[j.Name] = true
		if j.Entity == "" {
			errs = append(errs, fmt.Errorf("%s: entity is required", at))
		}
		if j.Output == "" {
			errs = append(errs, fmt.Errorf("%s: output is required", at))
		}
		switch j.Trigger {
		case "", domain.SnapshotTriggerManual:
		case domain.SnapshotTriggerCron:
			if j.Schedule == "" {
				errs = append(errs, fmt.Errorf("%s: cron trigger needs a schedule", at))
			}
		case domain.SnapshotTriggerWatch:
			if j.WatchPath == "" {
				errs = append(errs, fmt.Errorf("%s: file_watch trigger needs watch_path", at))
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown trigger %q", at, j.Trigger))
		}
	}
	return errors.Join(errs...)
}
