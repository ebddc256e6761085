// Package config handles TOML-based configuration loading and validation.
// The file is parsed as data only and merged over built-in defaults.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds all application configuration.
type Config struct {
	Listen               string   `toml:"listen"`
	Environment          string   `toml:"environment"`
	ExtractorPath        string   `toml:"extractor_path"`
	ExtractorName        string   `toml:"extractor_name"`
	ProbeTimeout         Duration `toml:"probe_timeout"`
	StreamTimeout        Duration `toml:"stream_timeout"`
	KillGrace            Duration `toml:"kill_grace"`
	ShutdownTimeout      Duration `toml:"shutdown_timeout"`
	SocketTimeout        int      `toml:"socket_timeout"`
	MaxMetadataBytes     int64    `toml:"max_metadata_bytes"`
	MaxConcurrentStreams int      `toml:"max_concurrent_streams"`
	ProtectedPhrases     []string `toml:"protected_phrases"`
	EnrichMetadata       bool     `toml:"enrich_metadata"`
	History              bool     `toml:"history"`
	DownloadDir          string   `toml:"download_dir"`
	Player               string   `toml:"player"`
	LogLevel             string   `toml:"log_level"`
	LogFormat            string   `toml:"log_format"`
	Debug                bool     `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen:               ":5000",
		Environment:          "development",
		ExtractorName:        "yt-dlp",
		ProbeTimeout:         Duration{60 * time.Second},
		StreamTimeout:        Duration{0},
		KillGrace:            Duration{3 * time.Second},
		ShutdownTimeout:      Duration{10 * time.Second},
		SocketTimeout:        20,
		MaxMetadataBytes:     16 * 1024 * 1024,
		MaxConcurrentStreams: 0,
		EnrichMetadata:       false,
		History:              true,
		DownloadDir:          "~/Downloads/mediarelay",
		Player:               "mpv",
		LogLevel:             "info",
		LogFormat:            "console",
		Debug:                false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mediarelay"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mediarelay"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file at the default location and merges it with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path and merges it with defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}

	if c.ExtractorPath == "" && c.ExtractorName == "" {
		return fmt.Errorf("either extractor_path or extractor_name must be set")
	}
	if strings.ContainsAny(c.ExtractorName, `/\`) {
		return fmt.Errorf("extractor_name %q must be a bare command name", c.ExtractorName)
	}

	if c.ProbeTimeout.Duration < 0 || c.StreamTimeout.Duration < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	if c.KillGrace.Duration <= 0 {
		return fmt.Errorf("kill_grace must be positive")
	}
	if c.SocketTimeout < 0 {
		return fmt.Errorf("socket_timeout cannot be negative")
	}
	if c.MaxMetadataBytes < 64*1024 {
		return fmt.Errorf("max_metadata_bytes must be at least 65536, got %d", c.MaxMetadataBytes)
	}
	if c.MaxConcurrentStreams < 0 {
		return fmt.Errorf("max_concurrent_streams cannot be negative")
	}

	validPlayers := map[string]bool{"mpv": true, "vlc": true, "iina": true, "celluloid": true}
	if !validPlayers[c.Player] {
		return fmt.Errorf("unsupported player %q (valid: mpv, vlc, iina, celluloid)", c.Player)
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("unsupported log_level %q (valid: trace, debug, info, warn, error)", c.LogLevel)
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("unsupported log_format %q (valid: console, json)", c.LogFormat)
	}

	return nil
}

// IsProduction reports whether the relay runs in a production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ExpandDownloadDir resolves ~ in the download directory path.
func (c *Config) ExpandDownloadDir() (string, error) {
	dir := c.DownloadDir
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}

// HistoryPath returns the path to the activity journal database.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "mediarelay", "history.db"), nil
}
