package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultScript is run when a manifest names no script.
const DefaultScript = "main.sh"

// Metadata represents the YAML frontmatter in SKILL.md
type Metadata struct {
	Name                 string        `yaml:"name"`
	Description          string        `yaml:"description"`
	Triggers             []string      `yaml:"triggers"`
	RequiresConfirmation bool          `yaml:"requires_confirmation"`
	ConfirmPrompt        string        `yaml:"confirm_prompt"`
	Timeout              time.Duration `yaml:"timeout"`
	Script               string        `yaml:"script"`
}

// Manifest is a parsed SKILL.md. It describes a scripted skill whose handler
// is supplied by the caller.
type Manifest struct {
	Metadata

	BasePath     string // Path to skill directory (e.g., skills/uninstall)
	ScriptsPath  string // Path to scripts directory (e.g., skills/uninstall/scripts)
	SKILLPath    string // Path to SKILL.md file
	Instructions string // Markdown body after the frontmatter
	LoadedAt     time.Time
}

// ScriptPath returns the absolute-or-relative path of the script to run.
func (m *Manifest) ScriptPath() string {
	script := m.Script
	if script == "" {
		script = DefaultScript
	}
	return filepath.Join(m.ScriptsPath, script)
}

// Skill builds a registrable skill backed by h.
func (m *Manifest) Skill(h Handler) *Skill {
	return &Skill{
		Name:                 m.Name,
		Description:          m.Description,
		Triggers:             append([]string(nil), m.Triggers...),
		RequiresConfirmation: m.RequiresConfirmation,
		ConfirmPrompt:        m.ConfirmPrompt,
		Timeout:              m.Timeout,
		Handler:              h,
		Source:               m.SKILLPath,
		LoadedAt:             m.LoadedAt,
	}
}

// ParseSKILL parses a SKILL.md file and extracts metadata and content
func ParseSKILL(skillPath string) (*Manifest, error) {
	data, err := os.ReadFile(skillPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SKILL.md: %w", err)
	}

	frontmatter, body, err := extractFrontmatter(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to extract frontmatter: %w", err)
	}

	var metadata Metadata
	if err := yaml.Unmarshal([]byte(frontmatter), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter YAML: %w", err)
	}
	if metadata.Name == "" {
		metadata.Name = filepath.Base(filepath.Dir(skillPath))
	}

	basePath := filepath.Dir(skillPath)
	return &Manifest{
		Metadata:     metadata,
		BasePath:     basePath,
		ScriptsPath:  filepath.Join(basePath, "scripts"),
		SKILLPath:    skillPath,
		Instructions: strings.TrimSpace(body),
		LoadedAt:     time.Now(),
	}, nil
}

// extractFrontmatter splits "---\n<yaml>\n---\n<body>".
func extractFrontmatter(content string) (string, string, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", content, fmt.Errorf("SKILL.md must start with YAML frontmatter (---)")
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), nil
		}
	}
	return "", content, fmt.Errorf("invalid frontmatter format: closing --- not found")
}
