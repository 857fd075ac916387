package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SKILLRT_DISPATCH_THRESHOLD.
const EnvPrefix = "SKILLRT"

var v *viper.Viper

// Init initializes the viper instance
func Init() {
	v = viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Viper returns the viper instance
func Viper() *viper.Viper {
	return v
}

// LoadDotEnv loads variables from a .env file into the process
// environment. Existing variables win. A missing default file is not an
// error; a missing explicit file is.
func LoadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Log configuration
type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
	Path  string `mapstructure:"path" yaml:"path"`
	Debug bool   `mapstructure:"debug" yaml:"debug"`
}

// Store configuration
type Store struct {
	// Path of the SQLite database, or ":memory:".
	Path string `mapstructure:"path" yaml:"path"`
}

// Messages are the responses the session speaks on its own.
type Messages struct {
	Fallback  string `mapstructure:"fallback" yaml:"fallback"`
	Cancelled string `mapstructure:"cancelled" yaml:"cancelled"`
	Apology   string `mapstructure:"apology" yaml:"apology"`
	Confirm   string `mapstructure:"confirm" yaml:"confirm"`
	Farewell  string `mapstructure:"farewell" yaml:"farewell"`
	Done      string `mapstructure:"done" yaml:"done"`
}

// Dispatch configuration. Timeouts are in seconds.
type Dispatch struct {
	Threshold      float64  `mapstructure:"threshold" yaml:"threshold"`
	ConfirmTimeout float64  `mapstructure:"confirm_timeout" yaml:"confirm_timeout"`
	SkillTimeout   float64  `mapstructure:"skill_timeout" yaml:"skill_timeout"`
	QueueSize      int      `mapstructure:"queue_size" yaml:"queue_size"`
	SerialSpeech   bool     `mapstructure:"serial_speech" yaml:"serial_speech"`
	Affirmative    []string `mapstructure:"affirmative" yaml:"affirmative"`
	Negative       []string `mapstructure:"negative" yaml:"negative"`
	Exit           []string `mapstructure:"exit" yaml:"exit"`
	Messages       Messages `mapstructure:"messages" yaml:"messages"`
}

// ConfirmTimeoutDuration returns the confirmation timeout.
func (d Dispatch) ConfirmTimeoutDuration() time.Duration {
	return Seconds(d.ConfirmTimeout)
}

// SkillTimeoutDuration returns the default skill timeout.
func (d Dispatch) SkillTimeoutDuration() time.Duration {
	return Seconds(d.SkillTimeout)
}

// Seconds converts fractional seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Skills configuration
type Skills struct {
	// Dir holds SKILL.md skill directories.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// Config is an optional YAML file of per-skill overrides.
	Config       string `mapstructure:"config" yaml:"config"`
	Builtin      bool   `mapstructure:"builtin" yaml:"builtin"`
	HistoryDepth int    `mapstructure:"history_depth" yaml:"history_depth"`
}

// LLM configuration for the optional intent classifier
type LLM struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	Provider       string  `mapstructure:"provider" yaml:"provider"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`
	Model          string  `mapstructure:"model" yaml:"model"`
	URL            string  `mapstructure:"url" yaml:"url"` // Custom LLM service URL
	UseTools       bool    `mapstructure:"use_tools" yaml:"use_tools"`
	ToolConfidence float64 `mapstructure:"tool_confidence" yaml:"tool_confidence"`
}

const (
	ListenerConsole = "console"
	ListenerBus     = "bus"
)

// Listener selects where commands come from and where responses go.
type Listener struct {
	Type   string `mapstructure:"type" yaml:"type"` // console, bus
	Prompt string `mapstructure:"prompt" yaml:"prompt"`
	BusURL string `mapstructure:"bus_url" yaml:"bus_url"`
	Name   string `mapstructure:"name" yaml:"name"`
}

// Tracing configuration
type Tracing struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Level   string `mapstructure:"level" yaml:"level"` // minimal, standard, detailed
}

// Config represents the application configuration
type Config struct {
	Log      Log      `mapstructure:"log" yaml:"log"`
	Store    Store    `mapstructure:"store" yaml:"store"`
	Dispatch Dispatch `mapstructure:"dispatch" yaml:"dispatch"`
	Skills   Skills   `mapstructure:"skills" yaml:"skills"`
	LLM      LLM      `mapstructure:"llm" yaml:"llm"`
	Listener Listener `mapstructure:"listener" yaml:"listener"`
	Tracing  Tracing  `mapstructure:"tracing" yaml:"tracing"`
}

// setDefaults registers defaults with viper so environment overrides apply
// to every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.path", "./log")

	v.SetDefault("store.path", "./data/skillrt.db")

	v.SetDefault("dispatch.threshold", 0.5)
	v.SetDefault("dispatch.confirm_timeout", 15.0)
	v.SetDefault("dispatch.skill_timeout", 30.0)
	v.SetDefault("dispatch.queue_size", 1)
	v.SetDefault("dispatch.serial_speech", true)
	v.SetDefault("dispatch.affirmative", []string{"yes", "y", "confirm"})
	v.SetDefault("dispatch.negative", []string{"no", "n", "cancel"})
	v.SetDefault("dispatch.exit", []string{"exit", "quit", "goodbye"})
	v.SetDefault("dispatch.messages.fallback", "Sorry, I didn't understand that.")
	v.SetDefault("dispatch.messages.cancelled", "Okay, cancelled.")
	v.SetDefault("dispatch.messages.apology", "Sorry, something went wrong while running {skill}.")
	v.SetDefault("dispatch.messages.confirm", "Do you want me to {command}? Say yes or no.")
	v.SetDefault("dispatch.messages.farewell", "Goodbye!")
	v.SetDefault("dispatch.messages.done", "Done.")

	v.SetDefault("skills.dir", "./skills")
	v.SetDefault("skills.builtin", true)
	v.SetDefault("skills.history_depth", 10)

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.tool_confidence", 0.75)

	v.SetDefault("listener.type", ListenerConsole)
	v.SetDefault("listener.prompt", "> ")
	v.SetDefault("listener.name", "skillrt")

	v.SetDefault("tracing.enabled", true)
	v.SetDefault("tracing.level", "standard")
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	if v == nil {
		Init()
	}
	setDefaults(v)

	cfg := &Config{}
	if err := Viper().Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that viper cannot.
func (c *Config) Validate() error {
	d := c.Dispatch
	if d.Threshold < 0 || d.Threshold > 1 {
		return fmt.Errorf("dispatch.threshold must be within [0, 1], got %v", d.Threshold)
	}
	if d.ConfirmTimeout <= 0 {
		return fmt.Errorf("dispatch.confirm_timeout must be positive, got %v", d.ConfirmTimeout)
	}
	if d.SkillTimeout <= 0 {
		return fmt.Errorf("dispatch.skill_timeout must be positive, got %v", d.SkillTimeout)
	}
	if d.QueueSize < 1 {
		return fmt.Errorf("dispatch.queue_size must be at least 1, got %d", d.QueueSize)
	}

	switch c.Listener.Type {
	case ListenerConsole:
	case ListenerBus:
		if c.Listener.BusURL == "" {
			return fmt.Errorf("listener.bus_url is required for the bus listener")
		}
	default:
		return fmt.Errorf("unknown listener type: %s", c.Listener.Type)
	}

	switch c.Tracing.Level {
	case "minimal", "standard", "detailed":
	default:
		return fmt.Errorf("unknown tracing level: %s", c.Tracing.Level)
	}
	return nil
}
