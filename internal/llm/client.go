package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/leilabot/leila/internal/config"
	"github.com/leilabot/leila/internal/responder"
)

// chatCompletions is the slice of the OpenAI client the Client needs.
// Narrowed to an interface so tests can stub the network call.
type chatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client adapts the OpenAI chat completions API to the responder's
// Completer contract. Model, temperature and token budget arrive with
// each request, so one client serves every tier.
type Client struct {
	completions    chatCompletions
	requestTimeout time.Duration
}

func NewClient(cfg config.ProviderConfig) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("llm: api key required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultRequestTimeout) * time.Second
	}

	return &Client{
		completions:    &client.Chat.Completions,
		requestTimeout: timeout,
	}, nil
}

// Complete issues one non-streaming chat completion.
func (c *Client) Complete(ctx context.Context, req responder.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	completion, err := c.completions.New(ctx, c.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion: empty response")
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *Client) buildParams(req responder.CompletionRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.Reasoning {
		params.ReasoningEffort = shared.ReasoningEffort("low")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Text))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Text))
		default:
			messages = append(messages, openai.UserMessage(m.Text))
		}
	}
	params.Messages = messages
	return params
}
