package azure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/assistant"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

// ErrImagesUnsupported is returned for image requests; chat deployments only
// produce text
var ErrImagesUnsupported = errors.New("image generation is not supported by the Azure OpenAI gateway")

const apiVersion = "2024-08-01-preview"

// OpenAIClient is a chat.AIGateway on Azure OpenAI with retry logic and logging
type OpenAIClient struct {
	client     *openai.Client
	deployment string
	prompter   *assistant.Prompter
	logger     *zap.Logger
	maxRetries int
	baseDelay  time.Duration

	// complete performs one request; replaced in tests
	complete func(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

var _ chat.AIGateway = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new Azure OpenAI client using the openai-go SDK with Azure extensions
func NewOpenAIClient(endpoint, apiKey, deployment string, prompter *assistant.Prompter, logger *zap.Logger) (*OpenAIClient, error) {
	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, fmt.Errorf("endpoint, apiKey, and deployment are required")
	}

	client := openai.NewClient(
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
	)

	c := &OpenAIClient{
		client:     &client,
		deployment: deployment,
		prompter:   prompter,
		logger:     logger,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
	c.complete = c.completeOnce
	return c, nil
}

// GetChatResponse implements chat.AIGateway
func (c *OpenAIClient) GetChatResponse(ctx context.Context, history []model.Message, mode healthmode.ID, lang model.Language, userID string) (chat.ChatResponse, error) {
	latest, _ := assistant.Latest(history)
	if latest.Content == "" {
		return nil, fmt.Errorf("azure openai: history has no latest message")
	}
	if _, ok := assistant.ImagePrompt(latest.Content); ok {
		return nil, ErrImagesUnsupported
	}

	text, err := c.Complete(ctx, c.messages(ctx, history, mode, lang, userID))
	if err != nil {
		return nil, err
	}
	return chat.TextResponse{Text: text, Mode: mode}, nil
}

// messages maps the history onto chat completion roles behind the system
// prompt and the seeded acknowledgement
func (c *OpenAIClient) messages(ctx context.Context, history []model.Message, mode healthmode.ID, lang model.Language, userID string) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	msgs = append(msgs,
		openai.SystemMessage(c.prompter.SystemPrompt(ctx, mode, lang, userID)),
		openai.AssistantMessage(assistant.Acknowledgement(lang)),
	)
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		if m.Role == model.MessageRoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return msgs
}

// Complete sends a chat completion request to Azure OpenAI with retry logic
func (c *OpenAIClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	startTime := time.Now()
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Info("retrying Azure OpenAI request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("Azure OpenAI request aborted: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := c.complete(ctx, messages)
		if err == nil {
			c.logger.Info("Azure OpenAI request completed",
				zap.Duration("processing_time", time.Since(startTime)),
				zap.Int("attempts", attempt+1),
			)
			return result, nil
		}

		lastErr = err
		if !c.isRetryable(ctx, err) {
			c.logger.Error("non-retryable Azure OpenAI error",
				zap.Error(err),
				zap.Int("attempt", attempt+1),
			)
			break
		}

		c.logger.Warn("Azure OpenAI request failed, will retry",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
		)
	}

	c.logger.Error("Azure OpenAI request failed after retries",
		zap.Error(lastErr),
		zap.Duration("total_time", time.Since(startTime)),
		zap.Int("max_retries", c.maxRetries),
	)

	return "", fmt.Errorf("Azure OpenAI request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *OpenAIClient) completeOnce(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	requestStart := time.Now()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.deployment),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from Azure OpenAI")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}

	c.logger.Info("Azure OpenAI token usage",
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("request_time", time.Since(requestStart)),
	)

	return content, nil
}

// isRetryable leaves out cancelled requests, auth failures and invalid requests
func (c *OpenAIClient) isRetryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 400, 401, 403, 404, 422:
			return false
		}
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{"authentication", "unauthorized", "401", "invalid", "bad request", "400"} {
		if strings.Contains(errStr, marker) {
			return false
		}
	}
	return true
}
