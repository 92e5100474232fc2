package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Endpoint.URL != DefaultEndpoint {
		t.Errorf("expected default endpoint %s, got %s", DefaultEndpoint, cfg.Endpoint.URL)
	}
	if cfg.Endpoint.RetryAttempts != 1 {
		t.Errorf("expected a single attempt by default, got %d", cfg.Endpoint.RetryAttempts)
	}
	if cfg.InlineCount() != 3 {
		t.Errorf("expected 3 inline examples, got %d", cfg.InlineCount())
	}
	if cfg.Server.BasePath != "/api/editor/" {
		t.Errorf("expected base path /api/editor/, got %s", cfg.Server.BasePath)
	}
	if !cfg.LoadRemotePrefixes() {
		t.Error("expected remote prefixes enabled by default")
	}
	if !cfg.MetricsEnabled() {
		t.Error("expected metrics enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing endpoint",
			modify:  func(c *Config) { c.Endpoint.URL = "" },
			wantErr: true,
		},
		{
			name:    "non-http endpoint",
			modify:  func(c *Config) { c.Endpoint.URL = "ftp://example.org/sparql" },
			wantErr: true,
		},
		{
			name:    "zero retry attempts",
			modify:  func(c *Config) { c.Endpoint.RetryAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "negative inline count",
			modify:  func(c *Config) { c.Examples.InlineCount = ptr(-1) },
			wantErr: true,
		},
		{
			name:    "watch without local dir",
			modify:  func(c *Config) { c.Examples.Watch = true },
			wantErr: true,
		},
		{
			name:    "cache disabled",
			modify:  func(c *Config) { c.Autocomplete.CacheSize = ptr(-1) },
			wantErr: false,
		},
		{
			name:    "unbounded cache",
			modify:  func(c *Config) { c.Autocomplete.CacheSize = ptr(0) },
			wantErr: false,
		},
		{
			name:    "negative cache ttl",
			modify:  func(c *Config) { c.Autocomplete.CacheTTL = ptr(-time.Second) },
			wantErr: true,
		},
		{
			name:    "base path without trailing slash",
			modify:  func(c *Config) { c.Server.BasePath = "/api" },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
endpoint:
  url: "https://example.org/sparql"
  timeout: 10s
  retry_attempts: 3
prefixes:
  load_remote: false
  defaults:
    ex: "http://example.org/"
examples:
  inline_count: 5
  local_dir: "./queries"
autocomplete:
  cache_ttl: 1h
server:
  addr: ":9090"
  metrics: false
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Endpoint.URL != "https://example.org/sparql" {
		t.Errorf("expected endpoint https://example.org/sparql, got %s", cfg.Endpoint.URL)
	}
	if cfg.Endpoint.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Endpoint.Timeout)
	}
	if cfg.Endpoint.RetryAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Endpoint.RetryAttempts)
	}
	if cfg.LoadRemotePrefixes() {
		t.Error("expected remote prefixes disabled")
	}
	if cfg.Prefixes.Defaults["ex"] != "http://example.org/" {
		t.Errorf("expected ex prefix, got %v", cfg.Prefixes.Defaults)
	}
	if cfg.InlineCount() != 5 {
		t.Errorf("expected inline count 5, got %d", cfg.InlineCount())
	}
	if cfg.TermCacheTTL() != time.Hour {
		t.Errorf("expected cache ttl 1h, got %v", cfg.TermCacheTTL())
	}
	if cfg.MetricsEnabled() {
		t.Error("expected metrics disabled")
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("endpoint: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	disabled := false
	override := &Config{
		Endpoint: EndpointConfig{
			URL: "https://example.org/sparql",
		},
		Prefixes: PrefixesConfig{
			LoadRemote: &disabled,
			Defaults:   map[string]string{"ex": "http://example.org/"},
		},
	}

	base.Merge(override)

	if base.Endpoint.URL != "https://example.org/sparql" {
		t.Errorf("expected endpoint override, got %s", base.Endpoint.URL)
	}
	// Timeout should remain from base since override didn't set it
	if base.Endpoint.Timeout != 60*time.Second {
		t.Errorf("expected timeout to remain default, got %v", base.Endpoint.Timeout)
	}
	if base.LoadRemotePrefixes() {
		t.Error("expected remote prefixes disabled after merge")
	}
	if base.Prefixes.Defaults["ex"] != "http://example.org/" {
		t.Errorf("expected merged prefix defaults, got %v", base.Prefixes.Defaults)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Endpoint.URL = "https://saved.example.org/sparql"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Endpoint.URL != "https://saved.example.org/sparql" {
		t.Errorf("expected saved endpoint, got %s", loaded.Endpoint.URL)
	}
}

func TestConfigMerge_ExplicitZero(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
examples:
  inline_count: 0
autocomplete:
  cache_size: 0
  cache_ttl: 0s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	override, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Merge(override)

	if cfg.InlineCount() != 0 {
		t.Errorf("expected inline count 0, got %d", cfg.InlineCount())
	}
	if cfg.TermCacheSize() != 0 {
		t.Errorf("expected unbounded cache size 0, got %d", cfg.TermCacheSize())
	}
	if cfg.TermCacheTTL() != 0 {
		t.Errorf("expected cache ttl 0, got %v", cfg.TermCacheTTL())
	}
}

func TestConfigMerge_UnsetKeepsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(&Config{})

	if cfg.InlineCount() != DefaultInlineCount {
		t.Errorf("expected default inline count, got %d", cfg.InlineCount())
	}
	if cfg.TermCacheSize() != DefaultCacheSize {
		t.Errorf("expected default cache size, got %d", cfg.TermCacheSize())
	}
	if cfg.TermCacheTTL() != DefaultCacheTTL {
		t.Errorf("expected default cache ttl, got %v", cfg.TermCacheTTL())
	}
}
