package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

const (
	// DefaultHistoryLimit is how many recent messages are sent to the AI gateway
	DefaultHistoryLimit = 10
	// FallbackReply is shown when a round trip fails
	FallbackReply = "Sorry, I couldn't process your request. Please try again."
)

// MessageLog owns the ordered messages of the open conversation and runs
// one AI round trip per user turn.
type MessageLog struct {
	store        PersistenceGateway
	events       *EventBus
	logger       *zap.Logger
	historyLimit int
	fallback     string
	now          func() time.Time
	newID        func() string

	mu             sync.RWMutex
	conversationID string
	messages       []model.Message
	pending        int
}

// MessageLogOption configures a MessageLog
type MessageLogOption func(*MessageLog)

// WithHistoryLimit overrides the number of messages sent as context
func WithHistoryLimit(n int) MessageLogOption {
	return func(l *MessageLog) {
		if n > 0 {
			l.historyLimit = n
		}
	}
}

// WithFallbackReply overrides the reply used when a round trip fails
func WithFallbackReply(text string) MessageLogOption {
	return func(l *MessageLog) {
		if text != "" {
			l.fallback = text
		}
	}
}

// WithClock overrides time and id generation
func WithClock(now func() time.Time, newID func() string) MessageLogOption {
	return func(l *MessageLog) {
		if now != nil {
			l.now = now
		}
		if newID != nil {
			l.newID = newID
		}
	}
}

// NewMessageLog creates an empty message log
func NewMessageLog(store PersistenceGateway, events *EventBus, logger *zap.Logger, opts ...MessageLogOption) *MessageLog {
	l := &MessageLog{
		store:        store,
		events:       events,
		logger:       logger,
		historyLimit: DefaultHistoryLimit,
		fallback:     FallbackReply,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// HandleMessage runs a full turn: the user message is appended and
// persisted, the reply is requested with the recent history, and the
// assistant message is appended and persisted. Failures are logged and
// turned into the fallback reply; they are never returned.
func (l *MessageLog) HandleMessage(ctx context.Context, content string, respond ResponseFunc, conversationID string) {
	if strings.TrimSpace(content) == "" {
		return
	}

	userMsg := model.Message{
		ID:             l.newID(),
		ConversationID: conversationID,
		Role:           model.MessageRoleUser,
		Content:        content,
		Timestamp:      l.now(),
	}
	l.append(userMsg)

	l.setLoading(conversationID, true)
	defer l.setLoading(conversationID, false)

	assistant, err := l.roundTrip(ctx, userMsg, respond, conversationID)
	if err != nil {
		l.logger.Error("chat round trip failed",
			zap.Error(err),
			zap.String("conversation_id", conversationID),
			zap.String("message_id", userMsg.ID),
		)
		l.appendAndSave(ctx, model.Message{
			ID:             l.newID(),
			ConversationID: conversationID,
			Role:           model.MessageRoleAssistant,
			Content:        l.fallback,
			Timestamp:      l.now(),
		})
		return
	}

	l.appendAndSave(ctx, assistant)
}

func (l *MessageLog) roundTrip(ctx context.Context, userMsg model.Message, respond ResponseFunc, conversationID string) (model.Message, error) {
	if _, err := l.store.SaveMessage(ctx, conversationID, userMsg); err != nil {
		return model.Message{}, fmt.Errorf("failed to save user message: %w", err)
	}

	if respond == nil {
		return model.Message{}, errors.New("no response handler")
	}

	history := l.history(conversationID)
	if len(history) == 0 {
		history = []model.Message{userMsg}
	}

	resp, err := respond(ctx, history)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to get chat response: %w", err)
	}

	msg, ok := assistantMessage(resp, l.newID(), conversationID, l.now())
	if !ok {
		return model.Message{}, fmt.Errorf("unsupported chat response %T", resp)
	}
	return msg, nil
}

// appendAndSave appends msg and persists it. A persistence failure at this
// point is logged only: the reply is already visible.
func (l *MessageLog) appendAndSave(ctx context.Context, msg model.Message) {
	l.append(msg)
	if _, err := l.store.SaveMessage(ctx, msg.ConversationID, msg); err != nil {
		l.logger.Error("failed to save assistant message",
			zap.Error(err),
			zap.String("conversation_id", msg.ConversationID),
			zap.String("message_id", msg.ID),
		)
	}
}

// InjectAssistantMessage appends an assistant message without a user turn.
// The message is not persisted.
func (l *MessageLog) InjectAssistantMessage(content string, mode healthmode.ID) model.Message {
	l.mu.RLock()
	conversationID := l.conversationID
	l.mu.RUnlock()

	msg := model.Message{
		ID:             l.newID(),
		ConversationID: conversationID,
		Role:           model.MessageRoleAssistant,
		Content:        content,
		Timestamp:      l.now(),
		HealthMode:     string(mode),
	}
	l.append(msg)
	return msg
}

// append adds msg to the log when the log still shows its conversation.
// Replies for a conversation the user navigated away from are only persisted.
func (l *MessageLog) append(msg model.Message) {
	l.mu.Lock()
	if l.conversationID != msg.ConversationID {
		l.mu.Unlock()
		l.logger.Debug("message belongs to a conversation that is no longer open",
			zap.String("conversation_id", msg.ConversationID),
			zap.String("message_id", msg.ID),
		)
		return
	}
	l.messages = append(l.messages, msg)
	l.mu.Unlock()

	l.publish(Event{Type: EventMessageAppended, ConversationID: msg.ConversationID, Message: &msg})
}

func (l *MessageLog) history(conversationID string) []model.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.conversationID != conversationID {
		return nil
	}
	start := 0
	if len(l.messages) > l.historyLimit {
		start = len(l.messages) - l.historyLimit
	}
	out := make([]model.Message, len(l.messages)-start)
	copy(out, l.messages[start:])
	return out
}

func (l *MessageLog) setLoading(conversationID string, loading bool) {
	l.mu.Lock()
	if loading {
		l.pending++
	} else if l.pending > 0 {
		l.pending--
	}
	state := l.pending > 0
	l.mu.Unlock()

	l.publish(Event{Type: EventLoadingChanged, ConversationID: conversationID, Loading: &state})
}

// Begin clears the log and opens conversationID. An empty id means a new,
// unsaved conversation.
func (l *MessageLog) Begin(conversationID string) {
	l.Replace(conversationID, nil)
}

// Replace swaps the log content for the messages of conversationID
func (l *MessageLog) Replace(conversationID string, msgs []model.Message) {
	l.mu.Lock()
	l.conversationID = conversationID
	l.messages = append([]model.Message(nil), msgs...)
	l.mu.Unlock()
}

// Clear empties the log and unsets its conversation
func (l *MessageLog) Clear() {
	l.Replace("", nil)
}

// Messages returns a copy of the log
func (l *MessageLog) Messages() []model.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// ConversationID returns the conversation the log currently shows
func (l *MessageLog) ConversationID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.conversationID
}

// IsLoading reports whether a round trip is outstanding
func (l *MessageLog) IsLoading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pending > 0
}

func (l *MessageLog) publish(evt Event) {
	if l.events != nil {
		l.events.Publish(evt)
	}
}
