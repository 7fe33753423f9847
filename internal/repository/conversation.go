package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/security"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

// ConversationRepository stores conversations and messages in PostgreSQL
type ConversationRepository struct {
	db     *pgxpool.Pool
	sealer *security.Encryptor
	logger *zap.Logger
}

// NewConversationRepository creates a new ConversationRepository. A nil
// sealer stores message content in the clear.
func NewConversationRepository(db *pgxpool.Pool, sealer *security.Encryptor, logger *zap.Logger) *ConversationRepository {
	return &ConversationRepository{
		db:     db,
		sealer: sealer,
		logger: logger,
	}
}

var _ chat.PersistenceGateway = (*ConversationRepository)(nil)

// CreateConversation creates a conversation titled after its first message
func (r *ConversationRepository) CreateConversation(ctx context.Context, userID, firstMessage string) (string, error) {
	query := `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at, message_count)
		VALUES ($1, $2, $3, NOW(), NOW(), 0)
	`

	id := uuid.New().String()
	if _, err := r.db.Exec(ctx, query, id, userID, model.ConversationTitle(firstMessage)); err != nil {
		r.logger.Error("failed to create conversation", zap.Error(err), zap.String("user_id", userID))
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return id, nil
}

// GetConversation retrieves a conversation by ID
func (r *ConversationRepository) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at, message_count
		FROM conversations
		WHERE id = $1
	`

	var c model.Conversation
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.MessageCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chat.ErrConversationNotFound
		}
		r.logger.Error("failed to get conversation", zap.Error(err), zap.String("conversation_id", conversationID))
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &c, nil
}

// GetUserConversations retrieves all conversations of a user
func (r *ConversationRepository) GetUserConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at, message_count
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC NULLS LAST
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to get conversations", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get conversations: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			r.logger.Error("failed to scan conversation", zap.Error(err))
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return convs, nil
}

// SaveMessage inserts msg and bumps the conversation's count and updated time
// in one transaction
func (r *ConversationRepository) SaveMessage(ctx context.Context, conversationID string, msg model.Message) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	sealed, err := r.sealer.SealMessage(msg)
	if err != nil {
		return "", err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := tx.Exec(ctx, `
		UPDATE conversations
		SET message_count = message_count + 1, updated_at = NOW()
		WHERE id = $1
	`, conversationID)
	if err != nil {
		r.logger.Error("failed to update conversation", zap.Error(err), zap.String("conversation_id", conversationID))
		return "", fmt.Errorf("failed to update conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return "", chat.ErrConversationNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, image_url, health_mode, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		sealed.ID,
		conversationID,
		sealed.Role,
		sealed.Content,
		sealed.ImageURL,
		sealed.HealthMode,
		sealed.Timestamp,
	)
	if err != nil {
		r.logger.Error("failed to save message",
			zap.Error(err),
			zap.String("conversation_id", conversationID),
			zap.String("message_id", msg.ID),
		)
		return "", fmt.Errorf("failed to save message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit message: %w", err)
	}
	return msg.ID, nil
}

// GetConversationMessages retrieves the messages of a conversation, oldest first
func (r *ConversationRepository) GetConversationMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, image_url, health_mode, timestamp
		FROM messages
		WHERE conversation_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		r.logger.Error("failed to get messages", zap.Error(err), zap.String("conversation_id", conversationID))
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.ImageURL, &m.HealthMode, &m.Timestamp); err != nil {
			r.logger.Error("failed to scan message", zap.Error(err))
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	if err := r.sealer.OpenMessages(msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteConversation removes a conversation and its messages in one transaction
func (r *ConversationRepository) DeleteConversation(ctx context.Context, conversationID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, conversationID); err != nil {
		r.logger.Error("failed to delete messages", zap.Error(err), zap.String("conversation_id", conversationID))
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, conversationID)
	if err != nil {
		r.logger.Error("failed to delete conversation", zap.Error(err), zap.String("conversation_id", conversationID))
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return chat.ErrConversationNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// DeleteAllUserConversations deletes the user's conversations one at a time
// and stops at the first failure
func (r *ConversationRepository) DeleteAllUserConversations(ctx context.Context, userID string) (int, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM conversations WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list conversations: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("failed to list conversations: %w", err)
	}

	deleted, err := chat.DeleteSequentially(ctx, ids, r.DeleteConversation)
	if err != nil {
		r.logger.Error("bulk delete stopped", zap.Error(err), zap.String("user_id", userID), zap.Int("deleted", deleted))
	}
	return deleted, err
}

// UpdateConversationTitle renames a conversation
func (r *ConversationRepository) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE conversations SET title = $1, updated_at = NOW() WHERE id = $2
	`, title, conversationID)
	if err != nil {
		r.logger.Error("failed to rename conversation", zap.Error(err), zap.String("conversation_id", conversationID))
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return chat.ErrConversationNotFound
	}
	return nil
}

// Ping checks the database connection
func (r *ConversationRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
