package skill

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Override adjusts an installed skill without editing its source.
type Override struct {
	RequiresConfirmation *bool         `yaml:"requires_confirmation,omitempty"`
	ConfirmPrompt        string        `yaml:"confirm_prompt,omitempty"`
	Timeout              time.Duration `yaml:"timeout,omitempty"`
	// Triggers are appended after the skill's own triggers.
	Triggers []string `yaml:"triggers,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty"`
}

// Config represents the skills override file
type Config struct {
	Skills map[string]Override `yaml:"skills"`
}

// LoadConfig loads skill overrides from a file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read skills config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse skills config: %w", err)
	}
	if config.Skills == nil {
		config.Skills = make(map[string]Override)
	}

	return &config, nil
}

// GetDefaultConfig returns an empty override set
func GetDefaultConfig() *Config {
	return &Config{
		Skills: make(map[string]Override),
	}
}

// Apply applies the override for s, if any. It reports false when the skill
// is disabled and should not be registered.
func (c *Config) Apply(s *Skill) bool {
	if c == nil || s == nil {
		return true
	}
	o, exists := c.Skills[s.Name]
	if !exists {
		return true
	}
	if o.Disabled {
		return false
	}
	if o.RequiresConfirmation != nil {
		s.RequiresConfirmation = *o.RequiresConfirmation
	}
	if o.ConfirmPrompt != "" {
		s.ConfirmPrompt = o.ConfirmPrompt
	}
	if o.Timeout > 0 {
		s.Timeout = o.Timeout
	}
	s.Triggers = append(s.Triggers, o.Triggers...)
	return true
}
