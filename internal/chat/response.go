package chat

import (
	"context"
	"time"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

// ChatResponse is the reply of an AI gateway: either a TextResponse or an
// ImageResponse.
type ChatResponse interface {
	isChatResponse()
}

// TextResponse is a plain text reply
type TextResponse struct {
	Text string
	Mode healthmode.ID
}

// ImageResponse is a reply that carries a generated image
type ImageResponse struct {
	Text     string
	ImageURL string
	Mode     healthmode.ID
}

func (TextResponse) isChatResponse()  {}
func (ImageResponse) isChatResponse() {}

// ResponseFunc turns the recent history into a reply
type ResponseFunc func(ctx context.Context, history []model.Message) (ChatResponse, error)

// assistantMessage normalizes resp into an assistant message
func assistantMessage(resp ChatResponse, id, conversationID string, at time.Time) (model.Message, bool) {
	msg := model.Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           model.MessageRoleAssistant,
		Timestamp:      at,
	}
	switch r := resp.(type) {
	case TextResponse:
		msg.Content = r.Text
		msg.HealthMode = string(r.Mode)
	case ImageResponse:
		msg.Content = r.Text
		msg.HealthMode = string(r.Mode)
		if r.ImageURL != "" {
			url := r.ImageURL
			msg.ImageURL = &url
		}
	default:
		return msg, false
	}
	return msg, true
}

// withMode fills in the mode of resp when the gateway left it empty
func withMode(resp ChatResponse, mode healthmode.ID) ChatResponse {
	switch r := resp.(type) {
	case TextResponse:
		if r.Mode == "" {
			r.Mode = mode
		}
		return r
	case ImageResponse:
		if r.Mode == "" {
			r.Mode = mode
		}
		return r
	default:
		return resp
	}
}
