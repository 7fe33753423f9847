// Package gemini implements chat.AIGateway on Google Gemini through the genai
// SDK.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/assistant"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

const (
	DefaultChatModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"
)

// Config selects the backend and models. With a project the Vertex AI backend
// is used, otherwise the Gemini API with APIKey.
type Config struct {
	APIKey      string
	Project     string
	Location    string
	ChatModel   string
	ImageModel  string
	Temperature float32
}

// contentGenerator is the part of genai.Models the gateway uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gateway answers chat turns and image requests with Gemini
type Gateway struct {
	models     contentGenerator
	chatModel  string
	imageModel string
	config     *genai.GenerateContentConfig
	prompter   *assistant.Prompter
	images     assistant.ImageStore
	logger     *zap.Logger
}

var _ chat.AIGateway = (*Gateway)(nil)

// NewGateway creates a Gemini client. images may be nil, generated images
// are then returned inline as data URLs.
func NewGateway(ctx context.Context, cfg Config, prompter *assistant.Prompter, images assistant.ImageStore, logger *zap.Logger) (*Gateway, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Project != "" {
		if cfg.Location == "" {
			return nil, fmt.Errorf("gemini location is required with project %q", cfg.Project)
		}
		clientCfg = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	} else if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini requires an API key or a project")
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newGateway(client.Models, cfg, prompter, images, logger), nil
}

func newGateway(models contentGenerator, cfg Config, prompter *assistant.Prompter, images assistant.ImageStore, logger *zap.Logger) *Gateway {
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	topP := float32(0.9)

	return &Gateway{
		models:     models,
		chatModel:  cfg.ChatModel,
		imageModel: cfg.ImageModel,
		config: &genai.GenerateContentConfig{
			Temperature:     &temperature,
			TopP:            &topP,
			MaxOutputTokens: 8192,
		},
		prompter: prompter,
		images:   images,
		logger:   logger,
	}
}

// GetChatResponse implements chat.AIGateway
func (g *Gateway) GetChatResponse(ctx context.Context, history []model.Message, mode healthmode.ID, lang model.Language, userID string) (chat.ChatResponse, error) {
	latest, _ := assistant.Latest(history)
	if latest.Content == "" {
		return nil, fmt.Errorf("gemini: history has no latest message")
	}
	if prompt, ok := assistant.ImagePrompt(latest.Content); ok {
		return g.generateImage(ctx, prompt, mode, userID)
	}

	start := time.Now()
	contents := g.contents(ctx, history, mode, lang, userID)
	res, err := g.models.GenerateContent(ctx, g.chatModel, contents, g.config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty text")
	}

	fields := []zap.Field{
		zap.String("model", g.chatModel),
		zap.String("health_mode", string(mode)),
		zap.Duration("processing_time", time.Since(start)),
	}
	if res.UsageMetadata != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", res.UsageMetadata.PromptTokenCount),
			zap.Int32("total_tokens", res.UsageMetadata.TotalTokenCount),
		)
	}
	g.logger.Info("gemini request completed", fields...)

	return chat.TextResponse{Text: text, Mode: mode}, nil
}

// contents seeds the system prompt as a user turn followed by the
// acknowledgement, then replays the history
func (g *Gateway) contents(ctx context.Context, history []model.Message, mode healthmode.ID, lang model.Language, userID string) []*genai.Content {
	system := g.prompter.SystemPrompt(ctx, mode, lang, userID)

	contents := make([]*genai.Content, 0, len(history)+2)
	contents = append(contents,
		genai.NewContentFromText(system, genai.RoleUser),
		genai.NewContentFromText(assistant.Acknowledgement(lang), genai.RoleModel),
	)
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if m.Role == model.MessageRoleAssistant {
			role = genai.Role(genai.RoleModel)
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

func (g *Gateway) generateImage(ctx context.Context, prompt string, mode healthmode.ID, userID string) (chat.ChatResponse, error) {
	res, err := g.models.GenerateContent(ctx, g.imageModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate image: %w", err)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no image generated in response")
	}

	var caption []string
	for _, part := range res.Candidates[0].Content.Parts {
		if part.Text != "" {
			caption = append(caption, part.Text)
			continue
		}
		if part.InlineData == nil {
			continue
		}

		url, err := g.storeImage(ctx, userID, part.InlineData)
		if err != nil {
			return nil, err
		}
		g.logger.Info("image generated",
			zap.String("model", g.imageModel),
			zap.String("mime_type", part.InlineData.MIMEType),
			zap.Int("size_bytes", len(part.InlineData.Data)),
		)
		return chat.ImageResponse{
			Text:     strings.Join(caption, "\n"),
			ImageURL: url,
			Mode:     mode,
		}, nil
	}
	return nil, fmt.Errorf("no image data found in response")
}

func (g *Gateway) storeImage(ctx context.Context, userID string, blob *genai.Blob) (string, error) {
	if g.images == nil {
		return "data:" + blob.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data), nil
	}

	filename := fmt.Sprintf("%s/%s.%s", userID, uuid.New().String(), extension(blob.MIMEType))
	url, err := g.images.UploadImage(ctx, filename, blob.Data, blob.MIMEType)
	if err != nil {
		return "", fmt.Errorf("failed to store generated image: %w", err)
	}
	return url, nil
}

func extension(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "jpeg"), strings.Contains(mimeType, "jpg"):
		return "jpg"
	case strings.Contains(mimeType, "webp"):
		return "webp"
	default:
		return "png"
	}
}
