package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.ExtractorName != "yt-dlp" {
		t.Errorf("default extractor = %q, want yt-dlp", cfg.ExtractorName)
	}
	if cfg.ProbeTimeout.Duration != 60*time.Second {
		t.Errorf("default probe timeout = %v, want 60s", cfg.ProbeTimeout.Duration)
	}
	if cfg.StreamTimeout.Duration != 0 {
		t.Errorf("default stream timeout = %v, want unbounded", cfg.StreamTimeout.Duration)
	}
	if !cfg.History {
		t.Error("default history should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad listen", func(c *Config) { c.Listen = "5000" }, true},
		{"no extractor", func(c *Config) { c.ExtractorName = ""; c.ExtractorPath = "" }, true},
		{"explicit path only", func(c *Config) { c.ExtractorName = ""; c.ExtractorPath = "/opt/yt-dlp" }, false},
		{"extractor name with slash", func(c *Config) { c.ExtractorName = "../yt-dlp" }, true},
		{"negative probe timeout", func(c *Config) { c.ProbeTimeout.Duration = -time.Second }, true},
		{"zero kill grace", func(c *Config) { c.KillGrace.Duration = 0 }, true},
		{"tiny metadata cap", func(c *Config) { c.MaxMetadataBytes = 10 }, true},
		{"negative stream cap", func(c *Config) { c.MaxConcurrentStreams = -1 }, true},
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"invalid log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"json logs", func(c *Config) { c.LogFormat = "json" }, false},
		{"vlc player", func(c *Config) { c.Player = "vlc" }, false},
		{"unknown player", func(c *Config) { c.Player = "totem" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromTOML(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	relayDir := filepath.Join(tmpDir, "mediarelay")
	if err := os.MkdirAll(relayDir, 0755); err != nil {
		t.Fatal(err)
	}

	content := `
listen = "127.0.0.1:8080"
extractor_path = "/opt/bin/yt-dlp"
probe_timeout = "15s"
stream_timeout = "2h"
max_concurrent_streams = 4
protected_phrases = ["members only content"]
history = false
log_format = "json"
`
	if err := os.WriteFile(filepath.Join(relayDir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Listen != "127.0.0.1:8080" {
		t.Errorf("listen = %q, want 127.0.0.1:8080", cfg.Listen)
	}
	if cfg.ExtractorPath != "/opt/bin/yt-dlp" {
		t.Errorf("extractor_path = %q", cfg.ExtractorPath)
	}
	if cfg.ProbeTimeout.Duration != 15*time.Second {
		t.Errorf("probe_timeout = %v, want 15s", cfg.ProbeTimeout.Duration)
	}
	if cfg.StreamTimeout.Duration != 2*time.Hour {
		t.Errorf("stream_timeout = %v, want 2h", cfg.StreamTimeout.Duration)
	}
	if cfg.MaxConcurrentStreams != 4 {
		t.Errorf("max_concurrent_streams = %d, want 4", cfg.MaxConcurrentStreams)
	}
	if len(cfg.ProtectedPhrases) != 1 || cfg.ProtectedPhrases[0] != "members only content" {
		t.Errorf("protected_phrases = %v", cfg.ProtectedPhrases)
	}
	if cfg.History {
		t.Error("history should be false")
	}
	// Untouched keys keep their defaults
	if cfg.KillGrace.Duration != 3*time.Second {
		t.Errorf("kill_grace = %v, want default 3s", cfg.KillGrace.Duration)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`probe_timeout = "soon"`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() should reject an unparsable duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not error on missing file: %v", err)
	}
	if cfg.Listen != ":5000" {
		t.Errorf("missing file should return defaults, got listen = %q", cfg.Listen)
	}
}

func TestExpandDownloadDir(t *testing.T) {
	cfg := Default()
	cfg.DownloadDir = "/tmp/test-downloads"

	dir, err := cfg.ExpandDownloadDir()
	if err != nil {
		t.Fatalf("ExpandDownloadDir() error: %v", err)
	}
	if dir != "/tmp/test-downloads" {
		t.Errorf("got %q, want /tmp/test-downloads", dir)
	}
}

func TestHistoryPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	path, err := HistoryPath()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(tmpDir, "mediarelay", "history.db")
	if path != want {
		t.Errorf("HistoryPath() = %q, want %q", path, want)
	}
}
