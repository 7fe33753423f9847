// Command check-gateways sends one chat turn through the configured AI
// provider and round-trips a PDF through blob storage, using the same
// environment as the server.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/assistant"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/azure"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/config"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/gemini"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/memory"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/profile"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	failed := false

	logger.Info("=== Checking AI gateway ===", zap.String("provider", cfg.AI.Provider))
	if err := checkAI(ctx, cfg, logger); err != nil {
		logger.Error("AI gateway check failed", zap.Error(err))
		failed = true
	} else {
		logger.Info("AI gateway check passed")
	}

	if cfg.Azure.Storage.Enabled() {
		logger.Info("=== Checking blob storage ===", zap.String("container", cfg.Azure.Storage.Container))
		if err := checkBlobStorage(ctx, cfg, logger); err != nil {
			logger.Error("Blob storage check failed", zap.Error(err))
			failed = true
		} else {
			logger.Info("Blob storage check passed")
		}
	} else {
		logger.Info("Blob storage not configured, skipping")
	}

	if failed {
		os.Exit(1)
	}
}

func checkAI(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	prompter := assistant.NewPrompter(profile.NewService(memory.NewProfileStore(), logger), logger)

	var ai chat.AIGateway
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		g, err := gemini.NewGateway(ctx, gemini.Config{
			APIKey:     cfg.Gemini.APIKey,
			Project:    cfg.Gemini.Project,
			Location:   cfg.Gemini.Location,
			ChatModel:  cfg.Gemini.ChatModel,
			ImageModel: cfg.Gemini.ImageModel,
		}, prompter, nil, logger)
		if err != nil {
			return fmt.Errorf("failed to create Gemini gateway: %w", err)
		}
		ai = g
	case config.ProviderAzure:
		c, err := azure.NewOpenAIClient(cfg.Azure.OpenAI.Endpoint, cfg.Azure.OpenAI.APIKey, cfg.Azure.OpenAI.Deployment, prompter, logger)
		if err != nil {
			return fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		ai = c
	default:
		ai = assistant.Echo{}
	}

	checks := []struct {
		lang model.Language
		text string
	}{
		{model.LanguageEnglish, "What are two simple ways to stay hydrated in summer?"},
		{model.LanguageHindi, "Garmi mein paani peene ke do aasaan tareeke batayein."},
	}
	for _, tc := range checks {
		history := []model.Message{{
			ID:        "check",
			Role:      model.MessageRoleUser,
			Content:   tc.text,
			Timestamp: time.Now(),
		}}
		resp, err := ai.GetChatResponse(ctx, history, healthmode.General, tc.lang, "")
		if err != nil {
			return fmt.Errorf("chat response (%s) failed: %w", tc.lang, err)
		}
		text, ok := resp.(chat.TextResponse)
		if !ok || text.Text == "" {
			return fmt.Errorf("chat response (%s) was empty", tc.lang)
		}
		logger.Info("Chat response received",
			zap.String("language", string(tc.lang)),
			zap.Int("response_length", len(text.Text)),
		)
	}
	return nil
}

func checkBlobStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client, err := azure.NewBlobStorageClient(cfg.Azure.Storage.AccountName, cfg.Azure.Storage.AccountKey, cfg.Azure.Storage.Container, logger)
	if err != nil {
		return fmt.Errorf("failed to create Blob Storage client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("container unreachable: %w", err)
	}

	testPDF := []byte("%PDF-1.4\ncheck-gateways")
	name, err := client.UploadPDF(ctx, fmt.Sprintf("checks/transcript-%d.pdf", time.Now().Unix()), testPDF)
	if err != nil {
		return fmt.Errorf("PDF upload failed: %w", err)
	}
	logger.Info("PDF uploaded", zap.String("blob_name", name))

	downloaded, err := client.Download(ctx, name)
	if err != nil {
		return fmt.Errorf("PDF download failed: %w", err)
	}
	if !bytes.Equal(downloaded, testPDF) {
		return fmt.Errorf("downloaded PDF doesn't match uploaded PDF")
	}
	return nil
}
