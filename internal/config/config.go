// Package config loads layered settings: defaults, a YAML config file,
// APIPLAY_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vedsharma/apiplay/internal/storage"
)

// Setting keys
const (
	KeyDataDir      = "data_dir"
	KeyStorage      = "storage"
	KeyLogLevel     = "log_level"
	KeyLogFormat    = "log_format"
	KeyTimeout      = "timeout"
	KeyHistoryLimit = "history_limit"
)

// EnvPrefix is prepended to every key when read from the environment
const EnvPrefix = "APIPLAY"

// DefaultTimeout bounds a single HTTP execution
const DefaultTimeout = 30 * time.Second

// Config is the resolved configuration
type Config struct {
	DataDir      string
	Storage      string
	LogLevel     string
	LogFormat    string
	Timeout      time.Duration
	HistoryLimit int

	// File is the config file that was read, if any
	File string
}

// New returns a viper instance with defaults and environment binding set up
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyStorage, storage.BackendSQLite)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyHistoryLimit, storage.DefaultHistoryLimit)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and returns the typed result. An
// explicit file must exist; the default ~/.apiplay/config.yaml is optional.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		dir, err := storage.DefaultDataDir()
		if err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DataDir:      expandHome(v.GetString(KeyDataDir)),
		Storage:      strings.ToLower(v.GetString(KeyStorage)),
		LogLevel:     v.GetString(KeyLogLevel),
		LogFormat:    v.GetString(KeyLogFormat),
		HistoryLimit: v.GetInt(KeyHistoryLimit),
		File:         v.ConfigFileUsed(),
	}

	switch cfg.Storage {
	case storage.BackendSQLite, storage.BackendJSON, storage.BackendMemory:
	default:
		return nil, fmt.Errorf("invalid %s %q (want sqlite, json or memory)", KeyStorage, cfg.Storage)
	}
	timeout, err := parseTimeout(v)
	if err != nil {
		return nil, err
	}
	cfg.Timeout = timeout
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = storage.DefaultHistoryLimit
	}
	return cfg, nil
}

// parseTimeout reads the timeout as a Go duration ("5s", "1m30s") or as a
// bare number of seconds ("30", 2.5)
func parseTimeout(v *viper.Viper) (time.Duration, error) {
	if d, ok := v.Get(KeyTimeout).(time.Duration); ok {
		return d, nil
	}

	raw := strings.TrimSpace(v.GetString(KeyTimeout))
	if raw == "" {
		return DefaultTimeout, nil
	}

	var d time.Duration
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		d = time.Duration(secs * float64(time.Second))
	} else if d, err = time.ParseDuration(raw); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyTimeout, raw, err)
	}

	if d < time.Millisecond {
		return 0, fmt.Errorf("invalid %s %q: must be at least 1ms", KeyTimeout, raw)
	}
	return d, nil
}

// StorageOptions converts the config into backend options
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		DataDir:      c.DataDir,
		HistoryLimit: c.HistoryLimit,
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
