// Package config loads the client settings from defaults, a YAML file, DU_ environment variables and flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyConfigURL          = "config-url"
	KeyStateDir           = "state-dir"
	KeyDownloadDir        = "download-dir"
	KeyFallbackDir        = "fallback-dir"
	KeyProfile            = "profile"
	KeyCurrentVersionCode = "current-version-code"
	KeyManifest           = "manifest"
	KeyInstallCommand     = "install-command"
	KeyRetryDelay         = "retry-delay"
	KeyPollInterval       = "poll-interval"
	KeyTriggerDir         = "trigger-dir"
	KeyMetricsAddr        = "metrics-addr"
	KeyHTTPTimeout        = "http-timeout"
	KeyLogLevel           = "log-level"
	KeyLogFile            = "log-file"
)

const (
	envPrefix = "DU"

	DefaultPollInterval = 30 * time.Minute
	DefaultHTTPTimeout  = 5 * time.Minute
	downloadDirName     = "app_updates"
	triggerDirName      = "triggers"
)

type Config struct {
	ConfigURL   string
	StateDir    string
	DownloadDir string
	FallbackDir string
	Profile     string
	// CurrentVersionCode is used when no Manifest is configured
	CurrentVersionCode int
	Manifest           string
	InstallCommand     string
	RetryDelay         time.Duration
	PollInterval       time.Duration
	TriggerDir         string
	MetricsAddr        string
	HTTPTimeout        time.Duration
	LogLevel           string
	LogFile            string
}

// Load resolves the settings with the precedence defaults < file < environment < changed flags.
// A missing or empty file is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := mergeConfigFile(v, path); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	cfg := &Config{
		ConfigURL:          v.GetString(KeyConfigURL),
		StateDir:           v.GetString(KeyStateDir),
		DownloadDir:        v.GetString(KeyDownloadDir),
		FallbackDir:        v.GetString(KeyFallbackDir),
		Profile:            v.GetString(KeyProfile),
		CurrentVersionCode: v.GetInt(KeyCurrentVersionCode),
		Manifest:           v.GetString(KeyManifest),
		InstallCommand:     v.GetString(KeyInstallCommand),
		RetryDelay:         v.GetDuration(KeyRetryDelay),
		PollInterval:       v.GetDuration(KeyPollInterval),
		TriggerDir:         v.GetString(KeyTriggerDir),
		MetricsAddr:        v.GetString(KeyMetricsAddr),
		HTTPTimeout:        v.GetDuration(KeyHTTPTimeout),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFile:            v.GetString(KeyLogFile),
	}

	if err := cfg.applyDerivedDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDerivedDefaults() error {
	if c.StateDir == "" {
		dir, err := defaultStateDir()
		if err != nil {
			return err
		}
		c.StateDir = dir
	}
	if c.DownloadDir == "" {
		c.DownloadDir = filepath.Join(c.StateDir, downloadDirName)
	}
	if c.TriggerDir == "" {
		c.TriggerDir = filepath.Join(c.StateDir, triggerDirName)
	}
	return nil
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if c.ConfigURL == "" {
		return errors.New("config-url is required")
	}
	if c.CurrentVersionCode < 0 {
		return fmt.Errorf("current-version-code must not be negative, got %d", c.CurrentVersionCode)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry-delay must not be negative, got %s", c.RetryDelay)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyProfile, "lenient")
	v.SetDefault(KeyRetryDelay, time.Duration(0))
	v.SetDefault(KeyPollInterval, DefaultPollInterval)
	v.SetDefault(KeyHTTPTimeout, DefaultHTTPTimeout)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "console")
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func defaultStateDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("determine cache directory: %w", err)
	}
	return filepath.Join(dir, "directupdate"), nil
}
