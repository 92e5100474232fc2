package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "sparqled.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/sparqled"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// EnvFile is read from the working directory
	EnvFile = ".env"
)

// Environment variables applied last.
const (
	EnvEndpoint = "SPARQLED_ENDPOINT"
	EnvAddr     = "SPARQLED_ADDR"
	EnvLogLevel = "SPARQLED_LOG_LEVEL"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger    *slog.Logger
	workDir   string
	homeDir   string
	lookupEnv func(string) (string, bool)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithWorkDir sets the directory the project config search and .env start from.
func WithWorkDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.workDir = dir
	}
}

// WithHomeDir sets the home directory holding the user config.
func WithHomeDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.homeDir = dir
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookupEnv = fn
	}
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/sparqled/config.yaml)
// 3. Project config (sparqled.yaml in current or parent directories)
// 4. .env in the working directory
// 5. Environment variables
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if userConfig, err := LoadFromFile(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	l.applyEnv(config, l.readEnvFile())

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil {
		return nil
	}

	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// readEnvFile reads .env from the working directory without touching the
// process environment.
func (l *Loader) readEnvFile() map[string]string {
	dir := l.dir()
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, EnvFile)
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to read env file", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	}
	l.logger.Debug("Loaded env file", slog.String("path", path))
	return values
}

// applyEnv applies the .env values, then the process environment.
func (l *Loader) applyEnv(config *Config, dotenv map[string]string) {
	lookup := func(key string) (string, bool) {
		if v, ok := l.lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if v, ok := lookup(EnvEndpoint); ok && v != "" {
		config.Endpoint.URL = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		config.Server.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		config.LogLevel = v
	}
}

func (l *Loader) dir() string {
	if l.workDir != "" {
		return l.workDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home := l.homeDir
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for sparqled.yaml in the working and parent directories
func (l *Loader) findProjectConfig() string {
	dir := l.dir()
	if dir == "" {
		return ""
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
