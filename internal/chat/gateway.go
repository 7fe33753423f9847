package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

var (
	// ErrConversationNotFound is returned by persistence gateways for unknown ids
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrTitleRequired is returned when renaming to a blank title
	ErrTitleRequired = errors.New("title is required")
	// ErrSessionClosed is returned by a session that was signed out or evicted
	ErrSessionClosed = errors.New("session closed")
)

// PersistenceGateway stores conversations and their messages
type PersistenceGateway interface {
	CreateConversation(ctx context.Context, userID, firstMessage string) (string, error)
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
	// GetUserConversations returns the user's conversations in no particular order
	GetUserConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	// SaveMessage stores msg, increments the conversation's message count and
	// refreshes its updated time.
	SaveMessage(ctx context.Context, conversationID string, msg model.Message) (string, error)
	// GetConversationMessages returns messages ordered by timestamp ascending
	GetConversationMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	// DeleteConversation removes the conversation and all of its messages atomically
	DeleteConversation(ctx context.Context, conversationID string) error
	// DeleteAllUserConversations deletes conversations one by one and stops at
	// the first failure with a *BulkDeleteError.
	DeleteAllUserConversations(ctx context.Context, userID string) (int, error)
	UpdateConversationTitle(ctx context.Context, conversationID, title string) error
}

// AIGateway produces an assistant reply for the given history
type AIGateway interface {
	GetChatResponse(ctx context.Context, history []model.Message, mode healthmode.ID, lang model.Language, userID string) (ChatResponse, error)
}

// LocalStateStore persists per-user device state
type LocalStateStore interface {
	Load(userID string) (model.LocalState, error)
	SetLanguage(userID string, lang model.Language) error
	SetLastActiveConversation(userID, conversationID string) error
	SetSidebarCollapsed(userID string, collapsed bool) error
}

// Auditor records destructive operations
type Auditor interface {
	LogDelete(ctx context.Context, userID string, resource audit.ResourceType, resourceID string, data map[string]interface{}) error
}

// BulkDeleteError reports a bulk delete that stopped part way.
// Conversations deleted before the failure stay deleted.
type BulkDeleteError struct {
	Deleted   int
	Remaining int
	FailedID  string
	Err       error
}

func (e *BulkDeleteError) Error() string {
	return fmt.Sprintf("bulk delete stopped after %d conversations (%d remaining) at %s: %v",
		e.Deleted, e.Remaining, e.FailedID, e.Err)
}

func (e *BulkDeleteError) Unwrap() error {
	return e.Err
}

// DeleteSequentially deletes ids in order and aborts on the first failure
func DeleteSequentially(ctx context.Context, ids []string, del func(ctx context.Context, id string) error) (int, error) {
	for i, id := range ids {
		if err := del(ctx, id); err != nil {
			return i, &BulkDeleteError{
				Deleted:   i,
				Remaining: len(ids) - i,
				FailedID:  id,
				Err:       err,
			}
		}
	}
	return len(ids), nil
}
