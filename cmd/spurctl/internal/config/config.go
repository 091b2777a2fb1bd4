// SPDX-License-Identifier: MPL-2.0

// Package config loads spurctl's named connection profiles using Viper,
// with a TOML profile file as the base layer and environment/flag
// overlays on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// HostKeyPolicyName is the string form of ssh.HostKeyPolicy used in
// profile files, matched case-insensitively against "raise", "warn",
// "accept", and "auto-add".
type HostKeyPolicyName string

// ShellTypeName selects the ssh.ShellType a profile wraps commands with.
type ShellTypeName string

// Profile describes one named remote target.
type Profile struct {
	Hostname           string            `toml:"hostname" mapstructure:"hostname"`
	Port               int               `toml:"port" mapstructure:"port"`
	Username           string            `toml:"username" mapstructure:"username"`
	Password           string            `toml:"password" mapstructure:"password"`
	PrivateKeyFile     string            `toml:"private_key_file" mapstructure:"private_key_file"`
	LookForKeys        bool              `toml:"look_for_keys" mapstructure:"look_for_keys"`
	LoadSystemHostKeys bool              `toml:"load_system_host_keys" mapstructure:"load_system_host_keys"`
	ConnectTimeout     time.Duration     `toml:"connect_timeout" mapstructure:"connect_timeout"`
	HostKeyPolicy      HostKeyPolicyName `toml:"host_key_policy" mapstructure:"host_key_policy"`
	ShellType          ShellTypeName     `toml:"shell_type" mapstructure:"shell_type"`
}

// Config holds every named profile spurctl knows about.
type Config struct {
	Profiles map[string]Profile `toml:"profiles" mapstructure:"profiles"`
}

const (
	// AppName names the configuration directory under the user's config home.
	AppName = "spurctl"
	// FileName is the profile file's base name, without extension.
	FileName = "config"
	// FileExt is the profile file's format.
	FileExt = "toml"
)

// DefaultConfig returns an empty profile set.
func DefaultConfig() *Config {
	return &Config{Profiles: map[string]Profile{}}
}

// Dir returns the directory spurctl looks for its config file in,
// honoring XDG_CONFIG_HOME when it is set, on any OS, and falling back
// to ~/.config otherwise.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// Load reads the profile file, overlaying SPURCTL_-prefixed environment
// variables, and returns the parsed Config. A missing file is not an
// error; it yields an empty profile set.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(FileName)
	v.SetConfigType(FileExt)
	v.SetEnvPrefix("SPURCTL")
	v.AutomaticEnv()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading spurctl config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing spurctl config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return &cfg, nil
}

// EnsureDir creates the config directory if it does not already exist.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// Save writes cfg to the profile file, creating the config directory if
// needed.
func Save(cfg *Config) error {
	if err := EnsureDir(); err != nil {
		return err
	}
	dir, err := Dir()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling spurctl config: %w", err)
	}

	path := filepath.Join(dir, FileName+"."+FileExt)
	return os.WriteFile(path, data, 0o600)
}
