// Package config loads vdrun settings from defaults, an optional YAML file and
// VDRUN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sa6mwa/vdrun/platform"
)

const (
	// AppName is the application name.
	AppName = "vdrun"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// EnvPrefix prefixes environment overrides, e.g. VDRUN_RUN_TIMEOUT.
	EnvPrefix = "VDRUN"
)

type (
	// Config is the effective configuration.
	Config struct {
		Tool      ToolConfig      `mapstructure:"tool" yaml:"tool"`
		Run       RunConfig       `mapstructure:"run" yaml:"run"`
		Provision ProvisionConfig `mapstructure:"provision" yaml:"provision"`
		Log       LogConfig       `mapstructure:"log" yaml:"log"`
		Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
	}

	// ToolConfig locates the resize tool.
	ToolConfig struct {
		// Names overrides executable names per platform tag (mac, win, linux).
		Names map[string]string `mapstructure:"names" yaml:"names,omitempty"`
		// Paths points a platform tag at an executable on disk, bypassing the
		// embedded bundle.
		Paths map[string]string `mapstructure:"paths" yaml:"paths,omitempty"`
		// Dir is searched for executables missing from the bundle.
		Dir string `mapstructure:"dir" yaml:"dir,omitempty"`
		// AllowDigests restricts embedded executables to these sha256 digests
		// (hex, or sha256sum lines). Empty allows any payload.
		AllowDigests []string `mapstructure:"allow_digests" yaml:"allow_digests,omitempty"`
	}

	// RunConfig controls the subprocess.
	RunConfig struct {
		Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
		KillOnCancel bool          `mapstructure:"kill_on_cancel" yaml:"kill_on_cancel"`
		Args         []string      `mapstructure:"args" yaml:"args,omitempty"`
		Concurrency  int           `mapstructure:"concurrency" yaml:"concurrency"`
	}

	// ProvisionConfig controls extraction of embedded executables.
	ProvisionConfig struct {
		TempDir string `mapstructure:"temp_dir" yaml:"temp_dir,omitempty"`
		Memfd   bool   `mapstructure:"memfd" yaml:"memfd"`
	}

	LogConfig struct {
		Level string `mapstructure:"level" yaml:"level"`
	}

	WatchConfig struct {
		Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
		Ignore   []string      `mapstructure:"ignore" yaml:"ignore,omitempty"`
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Concurrency: runtime.NumCPU(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Dir returns the configuration directory: $XDG_CONFIG_HOME/vdrun, falling
// back to os.UserConfigDir.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// Load reads configuration. When path is non-empty that file must exist;
// otherwise config.yaml in Dir() and vdrun.yaml in the working directory are
// tried, and a missing file is not an error. It returns the config and the
// file it was read from (empty when only defaults and environment apply).
func Load(path string) (*Config, string, error) {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("tool.names", map[string]string{})
	v.SetDefault("tool.paths", map[string]string{})
	v.SetDefault("tool.dir", "")
	v.SetDefault("tool.allow_digests", []string{})
	v.SetDefault("run.timeout", defaults.Run.Timeout)
	v.SetDefault("run.kill_on_cancel", defaults.Run.KillOnCancel)
	v.SetDefault("run.args", []string{})
	v.SetDefault("run.concurrency", defaults.Run.Concurrency)
	v.SetDefault("provision.temp_dir", "")
	v.SetDefault("provision.memfd", defaults.Provision.Memfd)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.ignore", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("load config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("load config: %w", err)
			}
			v.SetConfigName(AppName)
			v.AddConfigPath(".")
			if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("load config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, v.ConfigFileUsed(), nil
}

// Validate rejects unknown platform tags and negative durations.
func (c *Config) Validate() error {
	for _, m := range []map[string]string{c.Tool.Names, c.Tool.Paths} {
		for k := range m {
			if !knownTag(k) {
				return fmt.Errorf("unknown platform %q (want one of mac, win, linux)", k)
			}
		}
	}
	if c.Run.Timeout < 0 {
		return fmt.Errorf("run.timeout must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

func knownTag(s string) bool {
	for _, t := range platform.Tags {
		if string(t) == s {
			return true
		}
	}
	return false
}

// ExecutableNames maps Tool.Names onto platform tags.
func (c *Config) ExecutableNames() map[platform.Tag]string {
	names := make(map[platform.Tag]string, len(c.Tool.Names))
	for k, v := range c.Tool.Names {
		names[platform.Tag(k)] = v
	}
	return names
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
