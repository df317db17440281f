// internal/config/config.go
//
// This package handles configuration and the .magi directory structure.
// Every machine that runs the council gets a .magi/ folder in the user's
// home directory (or wherever MAGI_DATA_DIR points).

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DataDirName is the name of the directory we create for council state.
	DataDirName = ".magi"

	envPrefix  = "MAGI"
	configName = "config"
	configType = "yaml"

	defaultModel            = "gpt-4o-mini"
	defaultBaseURL          = "https://api.openai.com/v1"
	defaultAgentTemperature = 0.5
	defaultJudgeTemperature = 0.1
	defaultSynthTemperature = 0.3
	defaultAgentTimeout     = 2 * time.Minute
)

// Provider holds the OpenAI-compatible endpoint settings shared by every
// council role.
type Provider struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// Temperatures carries the per-role sampling temperatures. The judge runs
// much colder than the members so its verdicts stay consistent.
type Temperatures struct {
	Agent     float64 `mapstructure:"agent"`
	Judge     float64 `mapstructure:"judge"`
	Synthesis float64 `mapstructure:"synthesis"`
}

// Tools toggles the capabilities handed to council members.
type Tools struct {
	WebSearch         bool   `mapstructure:"web_search"`
	SearchEndpoint    string `mapstructure:"search_endpoint"`
	KnowledgeEndpoint string `mapstructure:"knowledge_endpoint"`
}

// Config holds the runtime configuration for the council.
type Config struct {
	DataDir           string        `mapstructure:"data_dir"`
	Provider          Provider      `mapstructure:"provider"`
	Temperatures      Temperatures  `mapstructure:"temperatures"`
	Tools             Tools         `mapstructure:"tools"`
	AgentTimeout      time.Duration `mapstructure:"agent_timeout"`
	AutoSaveResults   bool          `mapstructure:"auto_save_results"`
	PersonalitiesPath string        `mapstructure:"personalities_path"`
}

const defaultConfigYAML = `# magi council configuration
# Values here can be overridden with MAGI_* environment variables,
# e.g. MAGI_PROVIDER_API_KEY or MAGI_PROVIDER_BASE_URL.

provider:
  base_url: https://api.openai.com/v1
  model: gpt-4o-mini
  # api_key: set via MAGI_PROVIDER_API_KEY instead of storing it here

temperatures:
  agent: 0.5
  judge: 0.1
  synthesis: 0.3

tools:
  web_search: true

agent_timeout: 2m
auto_save_results: true
`

// DefaultDataDir resolves ~/.magi, honoring MAGI_DATA_DIR.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv(envPrefix + "_DATA_DIR"); dir != "" {
		return filepath.Clean(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, DataDirName), nil
}

// InitDataDir creates the council state directory structure and seeds a
// commented config.yaml on first run.
//
// Structure created:
//
//	.magi/
//	├── config.yaml   <- editable settings
//	├── results/      <- auto-saved deliberation results
//	└── logs/         <- activity log
func InitDataDir(dataDir string) error {
	dirs := []string{
		dataDir,
		filepath.Join(dataDir, "results"),
		filepath.Join(dataDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureConfigFile(filepath.Join(dataDir, configName+"."+configType))
}

// Load reads config.yaml from dataDir, applies defaults, and overlays any
// MAGI_* environment variables. A missing config file is not an error.
func Load(dataDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dataDir)

	v.SetDefault("data_dir", dataDir)
	v.SetDefault("provider.base_url", defaultBaseURL)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", defaultModel)
	v.SetDefault("temperatures.agent", defaultAgentTemperature)
	v.SetDefault("temperatures.judge", defaultJudgeTemperature)
	v.SetDefault("temperatures.synthesis", defaultSynthTemperature)
	v.SetDefault("tools.web_search", true)
	v.SetDefault("tools.search_endpoint", "")
	v.SetDefault("tools.knowledge_endpoint", "")
	v.SetDefault("agent_timeout", defaultAgentTimeout)
	v.SetDefault("auto_save_results", true)
	v.SetDefault("personalities_path", filepath.Join(dataDir, "personalities.yaml"))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse config: %w", err)
	}

	cfg.normalize(dataDir)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// MemoryPath returns the sqlite database holding per-agent session memory.
func (c *Config) MemoryPath() string {
	return filepath.Join(c.DataDir, "memory.db")
}

// ResultsDir returns where deliberation results are auto-saved.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.DataDir, "results")
}

// LogPath returns the activity log location.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "council.log")
}

func (c *Config) normalize(dataDir string) {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = dataDir
	}
	c.DataDir = filepath.Clean(c.DataDir)
	c.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(c.Provider.BaseURL), "/")
	c.Provider.Model = strings.TrimSpace(c.Provider.Model)
	c.Provider.APIKey = strings.TrimSpace(c.Provider.APIKey)
	if strings.TrimSpace(c.PersonalitiesPath) == "" {
		c.PersonalitiesPath = filepath.Join(c.DataDir, "personalities.yaml")
	}
	if c.AgentTimeout <= 0 {
		c.AgentTimeout = defaultAgentTimeout
	}
}

func (c *Config) validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("provider.model is required")
	}
	for name, value := range map[string]float64{
		"temperatures.agent":     c.Temperatures.Agent,
		"temperatures.judge":     c.Temperatures.Judge,
		"temperatures.synthesis": c.Temperatures.Synthesis,
	} {
		if value < 0 || value > 2 {
			return fmt.Errorf("%s must be in [0, 2], got %v", name, value)
		}
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
