package llm

import (
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/hb-chen/skillrt/internal/skill"
)

// ConvertSkillsToTools converts skills to LLM tools. Each slot used by a
// skill's triggers becomes a string parameter.
func ConvertSkillsToTools(skills []*skill.Skill) []llms.Tool {
	tools := make([]llms.Tool, 0, len(skills))

	for _, s := range skills {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        s.Name,
				Description: describe(s),
				Parameters:  generateInputSchema(s),
			},
		})
	}

	return tools
}

func describe(s *skill.Skill) string {
	if s.Description != "" {
		return s.Description
	}
	return fmt.Sprintf("Handles requests such as %q", s.Triggers[0])
}

// generateInputSchema generates a JSON schema for skill input
func generateInputSchema(s *skill.Skill) map[string]any {
	properties := make(map[string]any)
	for _, name := range s.Slots() {
		properties[name] = map[string]any{
			"type":        "string",
			"description": fmt.Sprintf("Value for {%s}", name),
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

// ParseToolCall parses a tool call into a skill name and its slot values.
// Non-string argument values are rendered with fmt.
func ParseToolCall(toolCall llms.ToolCall) (string, map[string]string, error) {
	if toolCall.FunctionCall == nil {
		return "", nil, fmt.Errorf("tool call has no function call")
	}

	params := make(map[string]string)
	if args := toolCall.FunctionCall.Arguments; args != "" {
		var raw map[string]any
		if err := json.Unmarshal([]byte(args), &raw); err != nil {
			return "", nil, fmt.Errorf("failed to parse tool arguments: %w", err)
		}
		for k, v := range raw {
			switch v := v.(type) {
			case string:
				params[k] = v
			case nil:
			default:
				params[k] = fmt.Sprint(v)
			}
		}
	}

	return toolCall.FunctionCall.Name, params, nil
}
