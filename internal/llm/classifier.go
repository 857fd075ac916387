package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hb-chen/skillrt/internal/router"
	"github.com/hb-chen/skillrt/internal/skill"
	"github.com/hb-chen/skillrt/pkg/logger"
)

// DefaultToolConfidence is the confidence given to a tool call, which
// carries no score of its own.
const DefaultToolConfidence = 0.75

// Classifier asks a language model which skill a command is for. It is a
// fallback for input no trigger pattern matched.
type Classifier struct {
	client         *Client
	useTools       bool
	toolConfidence float64
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithTools makes the classifier offer skills as tools instead of asking
// for a JSON answer.
func WithTools(enabled bool) ClassifierOption {
	return func(c *Classifier) {
		c.useTools = enabled
	}
}

// WithToolConfidence sets the confidence reported for tool calls.
func WithToolConfidence(v float64) ClassifierOption {
	return func(c *Classifier) {
		if v > 0 && v <= 1 {
			c.toolConfidence = v
		}
	}
}

// NewClassifier creates a classifier backed by client.
func NewClassifier(client *Client, opts ...ClassifierOption) *Classifier {
	c := &Classifier{client: client, toolConfidence: DefaultToolConfidence}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type classification struct {
	Skill      string            `json:"skill"`
	Params     map[string]string `json:"params"`
	Confidence float64           `json:"confidence"`
}

// Classify implements router.Classifier.
func (c *Classifier) Classify(ctx context.Context, text string, skills []*skill.Skill) (router.Classification, error) {
	data := ClassifyPromptData{Command: text}
	for _, s := range skills {
		data.Skills = append(data.Skills, SkillInfo{
			Name:        s.Name,
			Description: describe(s),
			Triggers:    s.Triggers,
		})
	}
	prompt, err := FormatClassifyPrompt(data)
	if err != nil {
		return router.Classification{}, fmt.Errorf("failed to render prompt: %w", err)
	}

	if c.useTools {
		content, calls, err := c.client.GenerateWithTools(ctx, prompt, ConvertSkillsToTools(skills))
		if err != nil {
			return router.Classification{}, err
		}
		if len(calls) > 0 {
			name, params, err := ParseToolCall(calls[0])
			if err != nil {
				return router.Classification{}, err
			}
			logger.Debugf("[Classifier] tool call %s for %q", name, text)
			return router.Classification{Skill: name, Params: params, Confidence: c.toolConfidence}, nil
		}
		return parseClassification(content)
	}

	completion, err := c.client.Generate(ctx, prompt)
	if err != nil {
		return router.Classification{}, err
	}
	return parseClassification(completion)
}

// parseClassification extracts the JSON object from a completion. Models
// like to wrap answers in code fences or prose.
func parseClassification(completion string) (router.Classification, error) {
	start := strings.Index(completion, "{")
	end := strings.LastIndex(completion, "}")
	if start < 0 || end < start {
		return router.Classification{}, fmt.Errorf("no JSON object in completion: %q", truncate(completion, 120))
	}

	var out classification
	if err := json.Unmarshal([]byte(completion[start:end+1]), &out); err != nil {
		return router.Classification{}, fmt.Errorf("failed to parse classification: %w", err)
	}
	return router.Classification{
		Skill:      strings.TrimSpace(out.Skill),
		Params:     out.Params,
		Confidence: out.Confidence,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
