// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package config layers scriptdap's runtime configuration: command-line
// flags over environment variables over an optional YAML file over
// built-in defaults, using spf13/viper the way most of this corpus's
// CLI tools do.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the fully resolved, typed configuration for a `scriptdap debug`
// invocation.
type Config struct {
	Transport    string `mapstructure:"transport"`     // "tcp" or "stdio"
	Addr         string `mapstructure:"addr"`          // loopback:port for tcp transport
	StopOnEntry  bool   `mapstructure:"stop_on_entry"`
	LogLevel     string `mapstructure:"log_level"`
	MetricsAddr  string `mapstructure:"metrics_addr"` // empty disables /metrics
}

// Defaults matches spec.md §6's reference transport defaults.
func Defaults() Config {
	return Config{
		Transport:   "tcp",
		Addr:        "127.0.0.1:4711",
		StopOnEntry: false,
		LogLevel:    "info",
		MetricsAddr: "",
	}
}

// Load builds a Config from flags > env (SCRIPTDAP_*) > file > defaults,
// mirroring the teacher's viper-based layering in its runtime config.
func Load(flags *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("scriptdap")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	def := Defaults()
	v.SetDefault("transport", def.Transport)
	v.SetDefault("addr", def.Addr)
	v.SetDefault("stop_on_entry", def.StopOnEntry)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("metrics_addr", def.MetricsAddr)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("config: binding flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, seeding a config file a user can hand
// edit and point --config at. Used by `scriptdap config init`.
func Save(path string, cfg Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
