// Package config loads kaitodo configuration from the config file and
// environment.
//
// Sources, in precedence order: KAITODO_* environment variables, then
// $KAITODO_DATA_DIR/config.yaml (default ~/.kaitodo/config.yaml), then
// built-in defaults.
package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the resolved configuration.
type Config struct {
	// DataDir holds the local store database and logs.
	DataDir string `mapstructure:"data_dir"`

	// ServerURL is the record service base URL.
	ServerURL string `mapstructure:"server_url"`

	// RefreshInterval is the watch daemon's fallback pull interval.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// LogFile, when set, routes logs there with rotation instead of stderr.
	LogFile string `mapstructure:"log_file"`
}

// Load reads configuration. A missing config file is not an error; defaults
// and environment cover everything.
func Load() (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	defaultDataDir := filepath.Join(home, ".kaitodo")

	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("refresh_interval", 30*time.Second)
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("KAITODO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dataDir := v.GetString("data_dir")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// StorePath returns the local store database location.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "kaitodo.db")
}

// Logger builds a prefixed logger. With LogFile set, output goes through a
// rotating file writer; otherwise stderr.
func (c *Config) Logger(prefix string) *log.Logger {
	var w io.Writer = os.Stderr
	if c.LogFile != "" {
		w = &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	return log.New(w, prefix, log.LstdFlags)
}
