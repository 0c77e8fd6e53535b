// Package config loads command line settings from flags, environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read as settings,
// e.g. KISMETDB_LOG_LEVEL.
const EnvPrefix = "KISMETDB"

// Setting keys.
const (
	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"
	KeyImmutable = "immutable"
	KeyInverted  = "inverted-timestamps"
)

// Config holds the resolved settings.
type Config struct {
	LogLevel           string `mapstructure:"log-level"`
	LogFormat          string `mapstructure:"log-format"`
	Immutable          bool   `mapstructure:"immutable"`
	InvertedTimestamps bool   `mapstructure:"inverted-timestamps"`
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyImmutable, false)
	v.SetDefault(KeyInverted, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds the flags that share a name with a setting key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range []string{KeyLogLevel, KeyLogFormat, KeyImmutable, KeyInverted} {
		f := flags.Lookup(key)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	return nil
}

// Load reads the optional config file and returns the merged settings.
// Flags override the environment, which overrides the file.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file %s not found", file)
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
