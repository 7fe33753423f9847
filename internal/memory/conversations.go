// Package memory holds in-process stores used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

type conversationEntry struct {
	conv     model.Conversation
	messages []model.Message
}

// ConversationStore is an in-memory chat.PersistenceGateway
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversationEntry
	now           func() time.Time
}

// NewConversationStore creates an empty store
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*conversationEntry),
		now:           time.Now,
	}
}

var _ chat.PersistenceGateway = (*ConversationStore)(nil)

func (s *ConversationStore) CreateConversation(ctx context.Context, userID, firstMessage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := uuid.New().String()
	s.conversations[id] = &conversationEntry{
		conv: model.Conversation{
			ID:        id,
			UserID:    userID,
			Title:     model.ConversationTitle(firstMessage),
			CreatedAt: &now,
			UpdatedAt: &now,
		},
	}
	return id, nil
}

func (s *ConversationStore) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.conversations[conversationID]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	conv := e.conv
	return &conv, nil
}

func (s *ConversationStore) GetUserConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Conversation
	for _, e := range s.conversations {
		if e.conv.UserID == userID {
			out = append(out, e.conv)
		}
	}
	return out, nil
}

func (s *ConversationStore) SaveMessage(ctx context.Context, conversationID string, msg model.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.conversations[conversationID]
	if !ok {
		return "", chat.ErrConversationNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	msg.ConversationID = conversationID
	e.messages = append(e.messages, msg)

	now := s.now()
	e.conv.UpdatedAt = &now
	e.conv.MessageCount++
	return msg.ID, nil
}

func (s *ConversationStore) GetConversationMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.conversations[conversationID]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	out := make([]model.Message, len(e.messages))
	copy(out, e.messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *ConversationStore) DeleteConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return chat.ErrConversationNotFound
	}
	delete(s.conversations, conversationID)
	return nil
}

func (s *ConversationStore) DeleteAllUserConversations(ctx context.Context, userID string) (int, error) {
	convs, err := s.GetUserConversations(ctx, userID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	return chat.DeleteSequentially(ctx, ids, s.DeleteConversation)
}

func (s *ConversationStore) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.conversations[conversationID]
	if !ok {
		return chat.ErrConversationNotFound
	}
	now := s.now()
	e.conv.Title = title
	e.conv.UpdatedAt = &now
	return nil
}

// MessageCount returns the number of stored messages of a conversation
func (s *ConversationStore) MessageCount(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.conversations[conversationID]; ok {
		return len(e.messages)
	}
	return 0
}
