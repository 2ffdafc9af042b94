package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Owner     string          `mapstructure:"owner"`
	Solver    SolverConfig    `mapstructure:"solver"`
	History   HistoryConfig   `mapstructure:"history"`
	Files     FilesConfig     `mapstructure:"files"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Reporting ReportingConfig `mapstructure:"reporting"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
}

// SolverConfig points at the solve/retrieve service.
type SolverConfig struct {
	Host    string `mapstructure:"host"`
	Timeout int    `mapstructure:"timeout"`
}

// HistoryConfig points at the session persistence service.
type HistoryConfig struct {
	Host    string `mapstructure:"host"`
	Timeout int    `mapstructure:"timeout"`
}

// FilesConfig points at the file-context upload service.
type FilesConfig struct {
	Host string `mapstructure:"host"`
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	LogFile string `mapstructure:"log_file"`
	Persist bool   `mapstructure:"persist"`
	Level   string `mapstructure:"level"`
}

// ReportingConfig holds the fire-and-forget error reporting endpoint.
type ReportingConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Enabled  bool   `mapstructure:"enabled"`
}

// RetrievalConfig holds the local example-problem retrieval fallback.
type RetrievalConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Path           string  `mapstructure:"path"`
	Collection     string  `mapstructure:"collection"`
	K              int     `mapstructure:"k"`
	ScoreThreshold float32 `mapstructure:"score_threshold"`
	Embedding      struct {
		Model    string `mapstructure:"model"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"embedding"`
}

var (
	global *Config
	mu     sync.RWMutex
)

// Get returns the loaded configuration. Load must have run first;
// callers before that get zero-value defaults.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return &Config{}
	}
	return global
}

// Load reads configuration from the given file (or the default
// ~/.optsolve/settings.yaml), applies defaults and environment
// overrides, and installs the result as the global config.
func Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".optsolve"))
		}
		viper.AddConfigPath("./.optsolve")
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.BindEnv("solver.host", "OPTSOLVE_SOLVER_HOST")
	viper.BindEnv("history.host", "OPTSOLVE_HISTORY_HOST")
	viper.BindEnv("owner", "OPTSOLVE_OWNER")
	viper.BindEnv("retrieval.embedding.endpoint", "OLLAMA_HOST")

	// A missing settings file is fine; defaults apply. With an explicit
	// cfgFile viper reports the miss as a plain fs.ErrNotExist rather
	// than ConfigFileNotFoundError, so tolerate both.
	if err := viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", viper.ConfigFileUsed(), err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mu.Lock()
	global = cfg
	mu.Unlock()

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("owner", "anonymous")

	viper.SetDefault("solver.host", "http://localhost:5000")
	viper.SetDefault("solver.timeout", 30)

	viper.SetDefault("history.host", "http://localhost:5001")
	viper.SetDefault("history.timeout", 15)

	viper.SetDefault("files.host", "http://localhost:5002")

	viper.SetDefault("logging.log_file", "optsolve.log")
	viper.SetDefault("logging.persist", false)
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("reporting.enabled", false)
	viper.SetDefault("reporting.endpoint", "")

	viper.SetDefault("retrieval.enabled", true)
	viper.SetDefault("retrieval.path", "")
	viper.SetDefault("retrieval.collection", "example-problems")
	viper.SetDefault("retrieval.k", 2)
	viper.SetDefault("retrieval.score_threshold", 0.0)
	viper.SetDefault("retrieval.embedding.model", "nomic-embed-text")
	viper.SetDefault("retrieval.embedding.endpoint", "http://localhost:11434")
}

// BaseSettingsDir returns the directory holding the settings file.
func BaseSettingsDir() string {
	if configPath := viper.GetString("config.path"); configPath != "" {
		return configPath
	}
	currentConfig := viper.ConfigFileUsed()
	if currentConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		return filepath.Join(home, ".optsolve")
	}
	return filepath.Dir(currentConfig)
}

// BuildSettingsPath resolves a file name against the settings directory.
func BuildSettingsPath(target string) string {
	return filepath.Join(BaseSettingsDir(), target)
}
