// Package config resolves gitlane settings from defaults, an optional
// gitlane.yaml, GITLANE_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/thiagokokada/gitlane/internal/git"
	"github.com/thiagokokada/gitlane/internal/render"
)

const (
	fileName  = "gitlane"
	envPrefix = "GITLANE"

	DefaultDebounce = 500 * time.Millisecond
)

// Config keys, shared by the config file, the environment and flags.
const (
	KeyLimit     = "limit"
	KeyMode      = "mode"
	KeyFormat    = "format"
	KeyColor     = "color"
	KeyWatch     = "watch"
	KeySyntax    = "syntax"
	KeyVerbose   = "verbose"
	KeyCacheSize = "cache_size"
	KeyDebounce  = "debounce"
)

type Config struct {
	// Limit caps the number of rows or entries printed; 0 prints everything.
	Limit     int           `mapstructure:"limit"`
	Mode      string        `mapstructure:"mode"`
	Format    string        `mapstructure:"format"`
	Color     bool          `mapstructure:"color"`
	Watch     bool          `mapstructure:"watch"`
	Syntax    bool          `mapstructure:"syntax"`
	Verbose   bool          `mapstructure:"verbose"`
	CacheSize int           `mapstructure:"cache_size"`
	Debounce  time.Duration `mapstructure:"debounce"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// New returns a viper instance with gitlane defaults and environment
// bindings. colorDefault is used when nothing else sets the color key,
// typically whether stdout is a terminal.
func New(colorDefault bool) *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLimit, 0)
	v.SetDefault(KeyMode, render.ThemeAuto.String())
	v.SetDefault(KeyFormat, string(render.FormatText))
	v.SetDefault(KeyColor, colorDefault)
	v.SetDefault(KeyWatch, false)
	v.SetDefault(KeySyntax, true)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyCacheSize, git.DefaultCacheSize)
	v.SetDefault(KeyDebounce, DefaultDebounce)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag of fs whose name is a config key, translating
// dashes to underscores.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if !isKey(key) {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("bind flag %s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

func isKey(key string) bool {
	switch key {
	case KeyLimit, KeyMode, KeyFormat, KeyColor, KeyWatch, KeySyntax, KeyVerbose, KeyCacheSize, KeyDebounce:
		return true
	}
	return false
}

// Load reads the config file (explicit when path is set, otherwise searched
// in the user config directories) and decodes the merged settings. A missing
// file is only an error when it was named explicitly.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func searchPaths() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, fileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", fileName))
	}
	return dirs
}

func (c Config) Validate() error {
	var errs []error
	if c.Limit < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeyLimit, c.Limit))
	}
	if _, err := render.ParseTheme(c.Mode); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyMode, err))
	}
	if _, err := render.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyFormat, err))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeyCacheSize, c.CacheSize))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %s", KeyDebounce, c.Debounce))
	}
	return errors.Join(errs...)
}

func (c Config) Theme() render.ThemePreference {
	theme, _ := render.ParseTheme(c.Mode)
	return theme
}

func (c Config) OutputFormat() render.Format {
	f, _ := render.ParseFormat(c.Format)
	return f
}
