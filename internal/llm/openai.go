package llm

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/storesage/storesage/internal/config"
	"github.com/storesage/storesage/internal/model"
	"github.com/storesage/storesage/internal/prompt"
)

const maxAttempts = 2

// Client calls an OpenAI-compatible chat completion endpoint. A failed turn
// degrades to FallbackResponse instead of surfacing an error to the caller.
type Client struct {
	client *openai.Client
	cfg    config.LLMConfig
	logger *zap.Logger
}

func NewClient(cfg config.LLMConfig, logger *zap.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}
}

func (c *Client) Model() string {
	return c.cfg.Model
}

// Generate runs the chat completion with a per-attempt timeout and one
// retry. When both attempts fail the canned fallback is returned; the
// error return is reserved for a cancelled parent context.
func (c *Client) Generate(ctx context.Context, p prompt.Prompt) (Reply, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: float32(c.cfg.Temperature),
		Messages:    c.messages(p),
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Second)
		resp, err := c.client.CreateChatCompletion(attemptCtx, req)
		cancel()

		if err == nil && len(resp.Choices) > 0 {
			return Reply{Content: resp.Choices[0].Message.Content, Model: c.cfg.Model}, nil
		}
		if err == nil {
			err = errEmptyCompletion
		}
		lastErr = err
		c.logger.Warn("chat completion attempt failed",
			zap.Int("attempt", attempt),
			zap.String("model", c.cfg.Model),
			zap.Error(err))

		if ctx.Err() != nil {
			return Reply{}, ctx.Err()
		}
	}

	c.logger.Error("chat completion failed, using fallback", zap.Error(lastErr))
	return Reply{Content: FallbackResponse, Fallback: true}, nil
}

func (c *Client) messages(p prompt.Prompt) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(p.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: p.System,
	})
	for _, turn := range p.History {
		role := openai.ChatMessageRoleUser
		if turn.ChatType == model.ChatTypeAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.UserMessage,
	})
	return messages
}
