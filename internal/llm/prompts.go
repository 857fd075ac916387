package llm

import (
	"strings"
	"text/template"
)

// ClassifyPromptTemplate asks the model to pick a skill for a command.
const ClassifyPromptTemplate = `You route commands for a voice assistant to one of its skills.

Available Skills:
{{range .Skills}}- {{.Name}}: {{.Description}}
  examples: {{join .Triggers "; "}}
{{end}}
Command: {{.Command}}

If no skill fits, answer with an empty skill name. Fill params with the
values for the {slot} placeholders shown in the examples.

Respond with a single JSON object and nothing else:
{"skill": "name", "params": {"slot": "value"}, "confidence": 0.0}`

var classifyPrompt = template.Must(template.New("classify").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(ClassifyPromptTemplate))

// ClassifyPromptData holds data for the classification prompt
type ClassifyPromptData struct {
	Skills  []SkillInfo
	Command string
}

// SkillInfo holds skill information for prompts
type SkillInfo struct {
	Name        string
	Description string
	Triggers    []string
}

// FormatClassifyPrompt renders the classification prompt
func FormatClassifyPrompt(data ClassifyPromptData) (string, error) {
	var b strings.Builder
	if err := classifyPrompt.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
