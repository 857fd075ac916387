package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client wraps the LLM client
type Client struct {
	llm   llms.Model
	model string // Model name for API calls
}

// NewClient creates a new LLM client
func NewClient(provider, apiKey, url, modelName string) (*Client, error) {
	var llmModel llms.Model
	var err error

	switch provider {
	case "openai":
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		opts := []openai.Option{
			openai.WithToken(apiKey),
		}
		// Add custom URL if provided
		if url != "" {
			opts = append(opts, openai.WithBaseURL(url))
		}
		llmModel, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	return &Client{llm: llmModel, model: modelName}, nil
}

// NewClientWithModel wraps an already constructed model.
func NewClientWithModel(m llms.Model, modelName string) *Client {
	return &Client{llm: m, model: modelName}
}

func (c *Client) options(extra ...llms.CallOption) []llms.CallOption {
	var options []llms.CallOption
	if c.model != "" {
		options = append(options, llms.WithModel(c.model))
	}
	return append(options, extra...)
}

// Generate generates text from a prompt
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := c.llm.Call(ctx, prompt, c.options(llms.WithTemperature(0))...)
	if err != nil {
		return "", fmt.Errorf("LLM generation failed: %w", err)
	}
	return completion, nil
}

// GenerateWithTools generates text with tool calling support
func (c *Client) GenerateWithTools(ctx context.Context, prompt string, tools []llms.Tool) (string, []llms.ToolCall, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	response, err := c.llm.GenerateContent(ctx, messages, c.options(llms.WithTools(tools), llms.WithTemperature(0))...)
	if err != nil {
		return "", nil, fmt.Errorf("LLM generation with tools failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", nil, nil
	}

	choice := response.Choices[0]
	return choice.Content, choice.ToolCalls, nil
}

// GetModel returns the underlying LLM model
func (c *Client) GetModel() llms.Model {
	return c.llm
}
