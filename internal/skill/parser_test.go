package skill

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uninstallSKILL = `---
name: uninstall
description: Remove an installed application
triggers:
  - uninstall {app}
  - remove {app}
requires_confirmation: true
confirm_prompt: Uninstall {app}? Say yes or no.
timeout: 45s
script: remove.sh
---

# Uninstall

Runs the platform uninstaller.
`

func writeSkill(t *testing.T, dir, name, content string) string {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Join(skillDir, "scripts"), 0o755))
	path := filepath.Join(skillDir, "SKILL.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseSKILL(t *testing.T) {
	path := writeSkill(t, t.TempDir(), "uninstall", uninstallSKILL)

	m, err := ParseSKILL(path)
	require.NoError(t, err)

	assert.Equal(t, "uninstall", m.Name)
	assert.Equal(t, []string{"uninstall {app}", "remove {app}"}, m.Triggers)
	assert.True(t, m.RequiresConfirmation)
	assert.Equal(t, 45*time.Second, m.Timeout)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "scripts", "remove.sh"), m.ScriptPath())
	assert.Contains(t, m.Instructions, "platform uninstaller")

	s := m.Skill(nopHandler())
	assert.Equal(t, path, s.Source)
	assert.Equal(t, "Uninstall {app}? Say yes or no.", s.ConfirmPrompt)
}

func TestParseSKILL_NameDefaultsToDirectory(t *testing.T) {
	path := writeSkill(t, t.TempDir(), "screenshot", "---\ntriggers: [take a screenshot]\n---\n")
	m, err := ParseSKILL(path)
	require.NoError(t, err)
	assert.Equal(t, "screenshot", m.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "scripts", DefaultScript), m.ScriptPath())
}

func TestParseSKILL_MissingFrontmatter(t *testing.T) {
	path := writeSkill(t, t.TempDir(), "broken", "# no frontmatter\n")
	_, err := ParseSKILL(path)
	assert.Error(t, err)
}

func TestLoader_LoadAllSkipsBrokenAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "zeta", "---\nname: zeta\ntriggers: [zeta]\n---\n")
	writeSkill(t, dir, "alpha", "---\nname: alpha\ntriggers: [alpha]\n---\n")
	writeSkill(t, dir, "broken", "---\nname: [unclosed\n")

	manifests, err := NewLoader(dir).LoadAll()
	require.NoError(t, err)
	require.Len(t, manifests, 2)
	assert.Equal(t, "alpha", manifests[0].Name)
	assert.Equal(t, "zeta", manifests[1].Name)
}

func TestLoader_MissingDir(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope")).LoadAll()
	assert.Error(t, err)

	_, err = NewLoader(t.TempDir()).LoadSkill("ghost")
	assert.ErrorIs(t, err, ErrUnknownSkill)
}

func TestConfig_Apply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
skills:
  screenshot:
    requires_confirmation: true
    timeout: 5s
    triggers: ["grab the screen"]
  music:
    disabled: true
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	shot := &Skill{Name: "screenshot", Triggers: []string{"take a screenshot"}}
	assert.True(t, cfg.Apply(shot))
	assert.True(t, shot.RequiresConfirmation)
	assert.Equal(t, 5*time.Second, shot.Timeout)
	assert.Equal(t, []string{"take a screenshot", "grab the screen"}, shot.Triggers)

	assert.False(t, cfg.Apply(&Skill{Name: "music"}))
	assert.True(t, cfg.Apply(&Skill{Name: "other"}))
	assert.True(t, GetDefaultConfig().Apply(&Skill{Name: "other"}))
}
