package direct

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hb-chen/skillrt/internal/skill"
)

// ScriptHandler executes a scripted skill by running its script. Slot values
// are passed both as --name value arguments and SKILL_PARAM_NAME variables.
type ScriptHandler struct {
	manifest *skill.Manifest
	runner   *ScriptRunner
}

// NewScriptHandler creates a handler for a parsed SKILL.md
func NewScriptHandler(m *skill.Manifest, runner *ScriptRunner) *ScriptHandler {
	if runner == nil {
		runner = NewScriptRunner()
	}
	return &ScriptHandler{manifest: m, runner: runner}
}

// Execute implements skill.Handler.
func (h *ScriptHandler) Execute(ctx context.Context, params skill.Params, sc skill.SessionContext) (skill.Reply, error) {
	args, env := h.prepareExecution(params, sc)

	res, err := h.runner.Run(ctx, h.manifest.ScriptPath(), args, env)
	if err != nil {
		return skill.Reply{}, err
	}

	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("%s exited with code %d", h.manifest.Name, res.ExitCode)
		}
		return skill.Failed(msg), nil
	}
	return skill.OK(strings.TrimSpace(res.Stdout)), nil
}

// prepareExecution prepares arguments and environment variables for script execution
func (h *ScriptHandler) prepareExecution(params skill.Params, sc skill.SessionContext) ([]string, map[string]string) {
	env := map[string]string{
		"SKILL_NAME":         h.manifest.Name,
		"SKILL_BASE_PATH":    h.manifest.BasePath,
		"SKILL_SCRIPTS_PATH": h.manifest.ScriptsPath,
	}
	if sc != nil {
		env["SKILL_SESSION_ID"] = sc.SessionID()
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var args []string
	for _, key := range keys {
		value := params[key]
		env["SKILL_PARAM_"+strings.ToUpper(key)] = value

		// values that look like flags only travel through the environment
		if value != "" && !strings.HasPrefix(value, "-") {
			args = append(args, "--"+key, value)
		}
	}
	return args, env
}

// LoadSkills loads every manifest under dir and wraps it in a ScriptHandler.
func LoadSkills(dir string, runner *ScriptRunner) ([]*skill.Skill, error) {
	manifests, err := skill.NewLoader(dir).LoadAll()
	if err != nil {
		return nil, err
	}
	skills := make([]*skill.Skill, 0, len(manifests))
	for _, m := range manifests {
		skills = append(skills, m.Skill(NewScriptHandler(m, runner)))
	}
	return skills, nil
}
