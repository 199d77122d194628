// Package config loads sqlport settings, profile files and job files.
//
// Settings come from sqlport.yaml, SQLPORT_* environment variables and
// command line flags, in increasing priority. Profile files are YAML or HCL
// and produce profile.Node values; job files are YAML.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// EnvPrefix is the prefix of environment variables read into Settings.
const EnvPrefix = "SQLPORT"

// Settings is the process wide configuration.
type Settings struct {
	Log LogSettings `mapstructure:"log" yaml:"log"`
	// Concurrency bounds the number of jobs exporting at once.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// FlushRows is how often streaming sinks are flushed.
	FlushRows int `mapstructure:"flush_rows" yaml:"flush_rows"`
	// ProgressRows is the minimum row distance between progress reports.
	ProgressRows int    `mapstructure:"progress_rows" yaml:"progress_rows"`
	ProfilesFile string `mapstructure:"profiles_file" yaml:"profiles_file"`
	// MetricsAddr enables the /metrics endpoint when set.
	MetricsAddr string          `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	Tracing     TracingSettings `mapstructure:"tracing" yaml:"tracing"`
}

// LogSettings configures the zap logger.
type LogSettings struct {
	Level    string `mapstructure:"level" yaml:"level"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

// TracingSettings configures the span exporter.
type TracingSettings struct {
	Enabled      bool    `mapstructure:"enabled" yaml:"enabled"`
	SamplingRate float64 `mapstructure:"sampling_rate" yaml:"sampling_rate"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *Settings {
	return &Settings{
		Log: LogSettings{
			Level:    "info",
			Encoding: "console",
		},
		Concurrency:  runtime.NumCPU(),
		FlushRows:    1000,
		ProgressRows: 10000,
		ProfilesFile: DefaultProfilesFile(),
		Tracing: TracingSettings{
			SamplingRate: 1,
		},
	}
}

// DefaultProfilesFile is $XDG_CONFIG_HOME/sqlport/profiles.yaml or its
// platform equivalent.
func DefaultProfilesFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "profiles.yaml"
	}
	return filepath.Join(dir, "sqlport", "profiles.yaml")
}

// Validate checks that values are within range.
func (s *Settings) Validate() error {
	if s.Concurrency <= 0 {
		return errors.New(errors.ErrorTypeConfig, "concurrency must be positive")
	}
	if s.FlushRows <= 0 {
		return errors.New(errors.ErrorTypeConfig, "flush_rows must be positive")
	}
	if s.ProgressRows <= 0 {
		return errors.New(errors.ErrorTypeConfig, "progress_rows must be positive")
	}
	switch s.Log.Encoding {
	case "json", "console":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "log encoding must be json or console, got %q", s.Log.Encoding)
	}
	if s.Tracing.SamplingRate < 0 || s.Tracing.SamplingRate > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing sampling_rate must be between 0 and 1")
	}
	return nil
}

// NewViper returns a viper instance with defaults and environment binding
// in place. configFile overrides the search path when set.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	d := DefaultSettings()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("flush_rows", d.FlushRows)
	v.SetDefault("progress_rows", d.ProgressRows)
	v.SetDefault("profiles_file", d.ProfilesFile)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.sampling_rate", d.Tracing.SamplingRate)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sqlport")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "sqlport"))
		}
		v.AddConfigPath(".")
	}
	return v
}

// LoadSettings reads the config file, if any, and decodes v into Settings.
// A missing file in the search path is not an error; a missing explicit
// file is.
func LoadSettings(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read settings").
				WithDetail("file", v.ConfigFileUsed())
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
