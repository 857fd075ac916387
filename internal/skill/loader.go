package skill

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/hb-chen/skillrt/pkg/logger"
)

// Loader loads skill manifests from a directory
type Loader struct {
	skillsDir string
}

// NewLoader creates a new skill loader
func NewLoader(skillsDir string) *Loader {
	return &Loader{
		skillsDir: skillsDir,
	}
}

// LoadAll loads every SKILL.md under the skills directory. Manifests come
// back sorted by path so registration order is stable across runs.
func (l *Loader) LoadAll() ([]*Manifest, error) {
	if _, err := os.Stat(l.skillsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("skills directory does not exist: %s", l.skillsDir)
	}

	var paths []string
	err := filepath.WalkDir(l.skillsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "SKILL.md" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk skills directory: %w", err)
	}
	sort.Strings(paths)

	manifests := make([]*Manifest, 0, len(paths))
	for _, path := range paths {
		m, err := ParseSKILL(path)
		if err != nil {
			// Log error but continue loading other skills
			logger.Warnf("Failed to load skill from %s: %v", path, err)
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// LoadSkill loads a specific manifest by directory name
func (l *Loader) LoadSkill(name string) (*Manifest, error) {
	skillPath := filepath.Join(l.skillsDir, name, "SKILL.md")
	if _, err := os.Stat(skillPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkill, name)
	}
	return ParseSKILL(skillPath)
}
