package assistant

import (
	"context"
	"fmt"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

// Echo is an offline chat.AIGateway for local development. It repeats the
// latest user turn tagged with the resolved mode.
type Echo struct{}

var _ chat.AIGateway = Echo{}

func (Echo) GetChatResponse(_ context.Context, history []model.Message, mode healthmode.ID, lang model.Language, _ string) (chat.ChatResponse, error) {
	latest, _ := Latest(history)
	if latest.Content == "" {
		return nil, fmt.Errorf("echo: empty history")
	}
	if prompt, ok := ImagePrompt(latest.Content); ok {
		return chat.ImageResponse{Text: fmt.Sprintf("[%s] no image generator configured for %q", mode, prompt), Mode: mode}, nil
	}
	name := healthmode.Get(mode).Name
	if lang == model.LanguageHindi {
		name = healthmode.Get(mode).NameHindi
	}
	return chat.TextResponse{Text: fmt.Sprintf("[%s] %s", name, latest.Content), Mode: mode}, nil
}
