package direct

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hb-chen/skillrt/internal/skill"
)

func requireBash(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
}

func writeScriptSkill(t *testing.T, dir, name, script string) {
	t.Helper()
	base := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "scripts"), 0o755))
	md := "---\nname: " + name + "\ntriggers: [\"" + name + " {target}\"]\n---\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, "SKILL.md"), []byte(md), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "scripts", skill.DefaultScript), []byte(script), 0o755))
}

func loadOne(t *testing.T, dir string) *skill.Skill {
	t.Helper()
	skills, err := LoadSkills(dir, nil)
	require.NoError(t, err)
	require.Len(t, skills, 1)
	return skills[0]
}

func TestScriptHandler_PassesParams(t *testing.T) {
	requireBash(t)
	dir := t.TempDir()
	writeScriptSkill(t, dir, "greet", `echo "hello $SKILL_PARAM_TARGET ($1 $2)"`)

	s := loadOne(t, dir)
	reply, err := s.Handler.Execute(context.Background(), skill.Params{"target": "world"}, nil)
	require.NoError(t, err)
	assert.Equal(t, skill.StatusOK, reply.Status)
	assert.Equal(t, "hello world (--target world)", reply.Text)
}

func TestScriptHandler_NonZeroExitIsReportedFailure(t *testing.T) {
	requireBash(t)
	dir := t.TempDir()
	writeScriptSkill(t, dir, "fail", "echo 'no such app' >&2\nexit 3\n")

	reply, err := loadOne(t, dir).Handler.Execute(context.Background(), skill.Params{"target": "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, skill.StatusError, reply.Status)
	assert.Equal(t, "no such app", reply.Text)
}

func TestScriptHandler_HonorsCancellation(t *testing.T) {
	requireBash(t)
	dir := t.TempDir()
	writeScriptSkill(t, dir, "slow", "sleep 5\n")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := loadOne(t, dir).Handler.Execute(ctx, skill.Params{"target": "x"}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestScriptRunner_MissingScript(t *testing.T) {
	_, err := NewScriptRunner().Run(context.Background(), filepath.Join(t.TempDir(), "nope.sh"), nil, nil)
	assert.Error(t, err)
}
