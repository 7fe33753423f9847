package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

type conversationDoc struct {
	UserID       string     `firestore:"user_id"`
	Title        string     `firestore:"title"`
	CreatedAt    *time.Time `firestore:"created_at"`
	UpdatedAt    *time.Time `firestore:"updated_at"`
	MessageCount int        `firestore:"message_count"`
}

type messageDoc struct {
	Role       string    `firestore:"role"`
	Content    string    `firestore:"content"`
	ImageURL   *string   `firestore:"image_url"`
	HealthMode string    `firestore:"health_mode"`
	Timestamp  time.Time `firestore:"timestamp"`
}

func toConversation(id string, d conversationDoc) model.Conversation {
	return model.Conversation{
		ID:           id,
		UserID:       d.UserID,
		Title:        d.Title,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		MessageCount: d.MessageCount,
	}
}

func toMessageDoc(m model.Message) messageDoc {
	return messageDoc{
		Role:       string(m.Role),
		Content:    m.Content,
		ImageURL:   m.ImageURL,
		HealthMode: m.HealthMode,
		Timestamp:  m.Timestamp,
	}
}

func toMessage(id, conversationID string, d messageDoc) model.Message {
	return model.Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           model.MessageRole(d.Role),
		Content:        d.Content,
		Timestamp:      d.Timestamp,
		ImageURL:       d.ImageURL,
		HealthMode:     d.HealthMode,
	}
}

var _ chat.PersistenceGateway = (*Store)(nil)

func (s *Store) CreateConversation(ctx context.Context, userID, firstMessage string) (string, error) {
	ref := s.conversationsCol().NewDoc()
	_, err := ref.Create(ctx, map[string]interface{}{
		"user_id":       userID,
		"title":         model.ConversationTitle(firstMessage),
		"created_at":    firestore.ServerTimestamp,
		"updated_at":    firestore.ServerTimestamp,
		"message_count": 0,
	})
	if err != nil {
		s.logger.Error("failed to create conversation", zap.Error(err), zap.String("user_id", userID))
		return "", fmt.Errorf("firestore CreateConversation: %w", err)
	}
	return ref.ID, nil
}

func (s *Store) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	snap, err := s.conversationDoc(conversationID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, chat.ErrConversationNotFound
		}
		return nil, fmt.Errorf("firestore GetConversation: %w", err)
	}

	var doc conversationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetConversation decode: %w", err)
	}
	c := toConversation(snap.Ref.ID, doc)
	return &c, nil
}

func (s *Store) GetUserConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	iter := s.conversationsCol().Where("user_id", "==", userID).Documents(ctx)
	defer iter.Stop()

	var out []model.Conversation
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore GetUserConversations: %w", err)
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			s.logger.Warn("skipping undecodable conversation", zap.Error(err), zap.String("conversation_id", snap.Ref.ID))
			continue
		}
		out = append(out, toConversation(snap.Ref.ID, doc))
	}
	return out, nil
}

// SaveMessage writes the message and bumps the parent in one transaction
func (s *Store) SaveMessage(ctx context.Context, conversationID string, msg model.Message) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	sealed, err := s.sealer.SealMessage(msg)
	if err != nil {
		return "", err
	}

	convRef := s.conversationDoc(conversationID)
	msgRef := s.messagesCol(conversationID).Doc(msg.ID)

	err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(convRef); err != nil {
			if isNotFound(err) {
				return chat.ErrConversationNotFound
			}
			return err
		}
		if err := tx.Set(msgRef, toMessageDoc(sealed)); err != nil {
			return err
		}
		return tx.Update(convRef, []firestore.Update{
			{Path: "message_count", Value: firestore.Increment(1)},
			{Path: "updated_at", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			return "", err
		}
		s.logger.Error("failed to save message",
			zap.Error(err),
			zap.String("conversation_id", conversationID),
			zap.String("message_id", msg.ID),
		)
		return "", fmt.Errorf("firestore SaveMessage: %w", err)
	}
	return msg.ID, nil
}

func (s *Store) GetConversationMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	iter := s.messagesCol(conversationID).OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	out := []model.Message{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore GetConversationMessages: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}
		out = append(out, toMessage(snap.Ref.ID, conversationID, doc))
	}

	if err := s.sealer.OpenMessages(out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteConversation removes the conversation document and its messages in
// one transaction
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	convRef := s.conversationDoc(conversationID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(convRef); err != nil {
			if isNotFound(err) {
				return chat.ErrConversationNotFound
			}
			return err
		}

		refs, err := tx.Documents(s.messagesCol(conversationID)).GetAll()
		if err != nil {
			return err
		}
		for _, snap := range refs {
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(convRef)
	})
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			return err
		}
		s.logger.Error("failed to delete conversation", zap.Error(err), zap.String("conversation_id", conversationID))
		return fmt.Errorf("firestore DeleteConversation: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllUserConversations(ctx context.Context, userID string) (int, error) {
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

func (s *Store) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	_, err := s.conversationDoc(conversationID).Update(ctx, []firestore.Update{
		{Path: "title", Value: title},
		{Path: "updated_at", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if isNotFound(err) {
			return chat.ErrConversationNotFound
		}
		return fmt.Errorf("firestore UpdateConversationTitle: %w", err)
	}
	return nil
}
