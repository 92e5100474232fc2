// Package config provides configuration loading and management for sparqled.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the SPARQL endpoint used when none is configured.
const DefaultEndpoint = "https://sparql.uniprot.org/sparql"

// Defaults for settings where zero is a meaningful value.
const (
	DefaultInlineCount = 3
	DefaultCacheSize   = 16
	DefaultCacheTTL    = 10 * time.Minute
)

// Config represents the complete sparqled configuration
type Config struct {
	Endpoint     EndpointConfig     `yaml:"endpoint"`
	Prefixes     PrefixesConfig     `yaml:"prefixes"`
	Examples     ExamplesConfig     `yaml:"examples"`
	Autocomplete AutocompleteConfig `yaml:"autocomplete"`
	Server       ServerConfig       `yaml:"server"`

	// LogLevel is one of debug, info, warn, error (empty keeps the CLI flag)
	LogLevel string `yaml:"log_level,omitempty"`
}

// EndpointConfig configures the SPARQL endpoint client
type EndpointConfig struct {
	// URL is the SPARQL endpoint
	URL string `yaml:"url"`
	// Timeout bounds each HTTP request
	Timeout time.Duration `yaml:"timeout"`
	// UserAgent is sent with every request
	UserAgent string `yaml:"user_agent"`
	// MaxResponseBytes caps response bodies
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
	// RetryAttempts is the total number of attempts per request (1 = no retries)
	RetryAttempts int `yaml:"retry_attempts"`
}

// PrefixesConfig configures the prefix table
type PrefixesConfig struct {
	// Defaults extends or overrides the built-in prefixes
	Defaults map[string]string `yaml:"defaults,omitempty"`
	// LoadRemote fetches the endpoint's declared prefixes (default: true)
	LoadRemote *bool `yaml:"load_remote,omitempty"`
}

// ExamplesConfig configures example queries
type ExamplesConfig struct {
	// InlineCount is the number of examples shown outside the modal (0 = all in the modal)
	InlineCount *int `yaml:"inline_count,omitempty"`
	// LocalDir holds additional .rq example files (empty = none)
	LocalDir string `yaml:"local_dir,omitempty"`
	// LocalGlob selects files under LocalDir
	LocalGlob string `yaml:"local_glob,omitempty"`
	// Watch reloads local examples when files change
	Watch bool `yaml:"watch"`
}

// AutocompleteConfig configures the VoID term cache
type AutocompleteConfig struct {
	// CacheSize bounds cached term lists (0 = unbounded, -1 = no cache)
	CacheSize *int `yaml:"cache_size,omitempty"`
	// CacheTTL expires cached term lists (0 = never)
	CacheTTL *time.Duration `yaml:"cache_ttl,omitempty"`
}

// ServerConfig configures the HTTP service
type ServerConfig struct {
	// Addr is the listen address
	Addr string `yaml:"addr"`
	// BasePath prefixes the JSON API routes
	BasePath string `yaml:"base_path"`
	// Metrics exposes /metrics (default: true)
	Metrics *bool `yaml:"metrics,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			URL:              DefaultEndpoint,
			Timeout:          60 * time.Second,
			UserAgent:        "sparqled",
			MaxResponseBytes: 32 * 1024 * 1024,
			RetryAttempts:    1,
		},
		Examples: ExamplesConfig{
			InlineCount: ptr(DefaultInlineCount),
			LocalGlob:   "**/*.rq",
		},
		Autocomplete: AutocompleteConfig{
			CacheSize: ptr(DefaultCacheSize),
			CacheTTL:  ptr(DefaultCacheTTL),
		},
		Server: ServerConfig{
			Addr:     ":8080",
			BasePath: "/api/editor/",
		},
	}
}

// LoadRemotePrefixes reports whether the endpoint prefix fetch is enabled.
func (c *Config) LoadRemotePrefixes() bool {
	return c.Prefixes.LoadRemote == nil || *c.Prefixes.LoadRemote
}

// MetricsEnabled reports whether /metrics is served.
func (c *Config) MetricsEnabled() bool {
	return c.Server.Metrics == nil || *c.Server.Metrics
}

// InlineCount returns the number of inline examples.
func (c *Config) InlineCount() int {
	if c.Examples.InlineCount == nil {
		return DefaultInlineCount
	}
	return *c.Examples.InlineCount
}

// TermCacheSize returns the term cache size.
func (c *Config) TermCacheSize() int {
	if c.Autocomplete.CacheSize == nil {
		return DefaultCacheSize
	}
	return *c.Autocomplete.CacheSize
}

// TermCacheTTL returns the term cache expiry.
func (c *Config) TermCacheTTL() time.Duration {
	if c.Autocomplete.CacheTTL == nil {
		return DefaultCacheTTL
	}
	return *c.Autocomplete.CacheTTL
}

func ptr[T any](v T) *T {
	return &v
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Endpoint.URL == "" {
		return fmt.Errorf("endpoint.url is required")
	}
	u, err := url.Parse(c.Endpoint.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint.url must be an http(s) URL: %q", c.Endpoint.URL)
	}
	if c.Endpoint.Timeout < 0 {
		return fmt.Errorf("endpoint.timeout must not be negative")
	}
	if c.Endpoint.RetryAttempts < 1 {
		return fmt.Errorf("endpoint.retry_attempts must be at least 1")
	}
	if c.InlineCount() < 0 {
		return fmt.Errorf("examples.inline_count must not be negative")
	}
	if c.Examples.Watch && c.Examples.LocalDir == "" {
		return fmt.Errorf("examples.watch requires examples.local_dir")
	}
	if c.TermCacheSize() < -1 {
		return fmt.Errorf("autocomplete.cache_size must be -1 or greater")
	}
	if c.TermCacheTTL() < 0 {
		return fmt.Errorf("autocomplete.cache_ttl must not be negative")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") || !strings.HasSuffix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start and end with /")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values
// and for pointer fields that are set)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Endpoint
	if other.Endpoint.URL != "" {
		c.Endpoint.URL = other.Endpoint.URL
	}
	if other.Endpoint.Timeout != 0 {
		c.Endpoint.Timeout = other.Endpoint.Timeout
	}
	if other.Endpoint.UserAgent != "" {
		c.Endpoint.UserAgent = other.Endpoint.UserAgent
	}
	if other.Endpoint.MaxResponseBytes != 0 {
		c.Endpoint.MaxResponseBytes = other.Endpoint.MaxResponseBytes
	}
	if other.Endpoint.RetryAttempts != 0 {
		c.Endpoint.RetryAttempts = other.Endpoint.RetryAttempts
	}

	// Prefixes
	if len(other.Prefixes.Defaults) > 0 {
		if c.Prefixes.Defaults == nil {
			c.Prefixes.Defaults = make(map[string]string, len(other.Prefixes.Defaults))
		}
		for k, v := range other.Prefixes.Defaults {
			c.Prefixes.Defaults[k] = v
		}
	}
	if other.Prefixes.LoadRemote != nil {
		c.Prefixes.LoadRemote = other.Prefixes.LoadRemote
	}

	// Examples
	if other.Examples.InlineCount != nil {
		c.Examples.InlineCount = other.Examples.InlineCount
	}
	if other.Examples.LocalDir != "" {
		c.Examples.LocalDir = other.Examples.LocalDir
	}
	if other.Examples.LocalGlob != "" {
		c.Examples.LocalGlob = other.Examples.LocalGlob
	}
	if other.Examples.Watch {
		c.Examples.Watch = true
	}

	// Autocomplete
	if other.Autocomplete.CacheSize != nil {
		c.Autocomplete.CacheSize = other.Autocomplete.CacheSize
	}
	if other.Autocomplete.CacheTTL != nil {
		c.Autocomplete.CacheTTL = other.Autocomplete.CacheTTL
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.BasePath != "" {
		c.Server.BasePath = other.Server.BasePath
	}
	if other.Server.Metrics != nil {
		c.Server.Metrics = other.Server.Metrics
	}

	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}
