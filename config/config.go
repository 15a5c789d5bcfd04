package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the service configuration. It can be written as JSON, YAML or TOML.
type Config struct {
	ServerAddr   string        `json:"server_addr,omitempty" yaml:"server_addr" toml:"server_addr"`
	DatabasePath string        `json:"database_path,omitempty" yaml:"database_path" toml:"database_path"`
	UploadDir    string        `json:"upload_dir,omitempty" yaml:"upload_dir" toml:"upload_dir"`
	LLM          *LLMConfig    `json:"llm,omitempty" yaml:"llm" toml:"llm"`
	Reaper       ReaperConfig  `json:"reaper" yaml:"reaper" toml:"reaper"`
	Logging      LoggingConfig `json:"logging" yaml:"logging" toml:"logging"`
}

// LLMConfig selects and configures the generation backend.
type LLMConfig struct {
	Provider string `json:"provider,omitempty" yaml:"provider" toml:"provider"` // ollama, openai, deepseek, mock
	Model    string `json:"model,omitempty" yaml:"model" toml:"model"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key" toml:"api_key"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url" toml:"base_url"`
	Timeout  string `json:"timeout,omitempty" yaml:"timeout" toml:"timeout"`
}

// ReaperConfig controls garbage collection of unreferenced attachment files.
type ReaperConfig struct {
	Schedule    string `json:"schedule,omitempty" yaml:"schedule" toml:"schedule"` // cron spec; "off" disables
	GracePeriod string `json:"grace_period,omitempty" yaml:"grace_period" toml:"grace_period"`
}

type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level" toml:"level"`    // debug, info, warn, error
	Format string `json:"format,omitempty" yaml:"format" toml:"format"` // json, console
}

// Default returns a configuration that runs against a local Ollama.
func Default() Config {
	return Config{
		ServerAddr:   ":3000",
		DatabasePath: "data/specs.db",
		UploadDir:    "uploads",
		// Model and base_url are left to the provider's client defaults.
		LLM: &LLMConfig{
			Provider: "ollama",
			Timeout:  "60s",
		},
		Reaper: ReaperConfig{
			Schedule:    "@every 1h",
			GracePeriod: "10m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the config file at path over the defaults and applies environment
// overrides. An empty path yields defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := decode(path, data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}
	cfg.fillDefaults()
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".json", "":
		return json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// fillDefaults restores defaults for fields a config file left blank.
// llm.provider is never filled so an explicit empty provider stays invalid.
func (c *Config) fillDefaults() {
	d := Default()
	if c.ServerAddr == "" {
		c.ServerAddr = d.ServerAddr
	}
	if c.DatabasePath == "" {
		c.DatabasePath = d.DatabasePath
	}
	if c.UploadDir == "" {
		c.UploadDir = d.UploadDir
	}
	if c.LLM == nil {
		c.LLM = d.LLM
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = d.LLM.Timeout
	}
	if c.Reaper.Schedule == "" {
		c.Reaper.Schedule = d.Reaper.Schedule
	}
	if c.Reaper.GracePeriod == "" {
		c.Reaper.GracePeriod = d.Reaper.GracePeriod
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

func (c *Config) applyEnvOverrides() {
	if c.LLM.Provider == "ollama" {
		if v := os.Getenv("OLLAMA_URL"); v != "" {
			c.LLM.BaseURL = v
		}
		if v := os.Getenv("OLLAMA_MODEL"); v != "" {
			c.LLM.Model = v
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("SPEC_DB_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("SPEC_UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.ServerAddr = ":" + strings.TrimPrefix(v, ":")
	}
}

// Validate checks the fields every command depends on.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("config must include database_path")
	}
	if c.UploadDir == "" {
		return errors.New("config must include upload_dir")
	}
	if c.LLM == nil || c.LLM.Provider == "" {
		return errors.New("llm config missing; please set llm.provider")
	}
	if _, err := c.LLM.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Reaper.Grace(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration parses the generation deadline; empty means 60s.
func (l *LLMConfig) TimeoutDuration() (time.Duration, error) {
	if l == nil || l.Timeout == "" {
		return 60 * time.Second, nil
	}
	d, err := time.ParseDuration(l.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid llm.timeout %q: %w", l.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("llm.timeout must be positive, got %s", l.Timeout)
	}
	return d, nil
}

// Grace parses the reaper grace period; empty means 10m.
func (r ReaperConfig) Grace() (time.Duration, error) {
	if r.GracePeriod == "" {
		return 10 * time.Minute, nil
	}
	d, err := time.ParseDuration(r.GracePeriod)
	if err != nil {
		return 0, fmt.Errorf("invalid reaper.grace_period %q: %w", r.GracePeriod, err)
	}
	return d, nil
}

// Enabled reports whether the reaper runs on a schedule.
func (r ReaperConfig) Enabled() bool {
	return r.Schedule != "" && r.Schedule != "off"
}
