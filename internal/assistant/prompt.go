// Package assistant holds what the AI gateways share: system prompt
// composition, image request detection and the echo gateway.
package assistant

import (
	"context"
	"strings"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

// ContextSource renders the personalized health context of a user
type ContextSource interface {
	PromptContext(ctx context.Context, userID string) (string, error)
}

const personalizedInstructions = `

=== INSTRUCTIONS FOR PERSONALIZED RESPONSES ===
1. Use the profile above to personalize the health advice
2. Reference medical conditions, allergies and medications when relevant
3. Consider diet, exercise, sleep and stress levels
4. Build upon existing health suggestions and encourage progress
5. Use emergency contact information when discussing emergency preparedness`

// Acknowledgements seed the model turn that follows the system prompt
var acknowledgements = map[model.Language]string{
	model.LanguageEnglish: "Absolutely! I'll help you with your health as Swasth AI. I'll provide you the best health advice in Hinglish.",
	model.LanguageHindi:   "Bilkul! Main aapki health ke saath help karunga. Swasth AI ke roop mein, main aapko best health advice dunga Hinglish mein.",
}

// Acknowledgement returns the seeded assistant reply for lang
func Acknowledgement(lang model.Language) string {
	if ack, ok := acknowledgements[lang]; ok {
		return ack
	}
	return acknowledgements[model.DefaultLanguage]
}

// Prompter builds the system prompt of a round trip
type Prompter struct {
	profiles ContextSource
	logger   *zap.Logger
}

// NewPrompter creates a Prompter. profiles may be nil, in which case the
// personalized mode answers without a profile.
func NewPrompter(profiles ContextSource, logger *zap.Logger) *Prompter {
	return &Prompter{profiles: profiles, logger: logger}
}

// SystemPrompt returns the mode prompt in lang, extended with the user's
// health profile in personalized mode. Profile load failures are logged and
// the plain mode prompt is used.
func (p *Prompter) SystemPrompt(ctx context.Context, mode healthmode.ID, lang model.Language, userID string) string {
	prompt := healthmode.Get(mode).PromptFor(lang)
	if mode != healthmode.Personalized || userID == "" || p.profiles == nil {
		return prompt
	}

	profileContext, err := p.profiles.PromptContext(ctx, userID)
	if err != nil {
		p.logger.Warn("failed to load personalized context",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return prompt
	}
	if profileContext == "" {
		return prompt
	}
	return prompt + "\n\n" + profileContext + personalizedInstructions
}

// ImagePrompt reports whether content asks for a generated image and returns
// the prompt without its marker
func ImagePrompt(content string) (string, bool) {
	if !strings.HasPrefix(content, chat.ImagePromptPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(content, chat.ImagePromptPrefix)), true
}

// Latest returns the last message of history and the turns before it
func Latest(history []model.Message) (model.Message, []model.Message) {
	if len(history) == 0 {
		return model.Message{}, nil
	}
	return history[len(history)-1], history[:len(history)-1]
}

// ImageStore keeps generated images and returns a URL the client can load
type ImageStore interface {
	UploadImage(ctx context.Context, filename string, data []byte, contentType string) (string, error)
}
