package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
	OperationExport OperationType = "EXPORT"
	OperationLogin  OperationType = "LOGIN"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceConversation     ResourceType = "conversation"
	ResourceUser             ResourceType = "user"
	ResourceHealthProfile    ResourceType = "health_profile"
	ResourceHealthSuggestion ResourceType = "health_suggestion"
	ResourceEmergencyContact ResourceType = "emergency_contact"
	ResourceTranscript       ResourceType = "transcript"
)

// Entry represents an audit log entry
type Entry struct {
	UserID         string
	OperationType  OperationType
	ResourceType   ResourceType
	ResourceID     string
	Timestamp      time.Time
	IPAddress      string
	UserAgent      string
	AdditionalData map[string]interface{}
}

// Store persists audit entries
type Store interface {
	Insert(ctx context.Context, entry Entry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
}

type requestMetaKey struct{}

type requestMeta struct {
	ip        string
	userAgent string
}

// WithRequestMeta attaches the caller's address and user agent to ctx
func WithRequestMeta(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, requestMeta{ip: ip, userAgent: userAgent})
}

// Logger handles audit logging
type Logger struct {
	store  Store
	logger *zap.Logger
}

// NewLogger creates a new audit logger. A nil store only writes to the
// structured log.
func NewLogger(store Store, logger *zap.Logger) *Logger {
	return &Logger{
		store:  store,
		logger: logger,
	}
}

// Log creates an audit log entry
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if meta, ok := ctx.Value(requestMetaKey{}).(requestMeta); ok {
		if entry.IPAddress == "" {
			entry.IPAddress = meta.ip
		}
		if entry.UserAgent == "" {
			entry.UserAgent = meta.userAgent
		}
	}

	l.logger.Info("Audit log entry",
		zap.String("user_id", entry.UserID),
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
		zap.String("ip_address", entry.IPAddress),
	)

	if l.store == nil {
		return nil
	}
	if err := l.store.Insert(ctx, entry); err != nil {
		l.logger.Error("Failed to write audit log",
			zap.Error(err),
			zap.String("user_id", entry.UserID),
			zap.String("operation", string(entry.OperationType)),
			zap.String("resource_type", string(entry.ResourceType)),
		)
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// LogCreate logs a CREATE operation
func (l *Logger) LogCreate(ctx context.Context, userID string, resource ResourceType, resourceID string) error {
	return l.Log(ctx, Entry{
		UserID:        userID,
		OperationType: OperationCreate,
		ResourceType:  resource,
		ResourceID:    resourceID,
	})
}

// LogUpdate logs an UPDATE operation
func (l *Logger) LogUpdate(ctx context.Context, userID string, resource ResourceType, resourceID string) error {
	return l.Log(ctx, Entry{
		UserID:        userID,
		OperationType: OperationUpdate,
		ResourceType:  resource,
		ResourceID:    resourceID,
	})
}

// LogDelete logs a DELETE operation
func (l *Logger) LogDelete(ctx context.Context, userID string, resource ResourceType, resourceID string, data map[string]interface{}) error {
	return l.Log(ctx, Entry{
		UserID:         userID,
		OperationType:  OperationDelete,
		ResourceType:   resource,
		ResourceID:     resourceID,
		AdditionalData: data,
	})
}

// LogExport logs a transcript export
func (l *Logger) LogExport(ctx context.Context, userID, conversationID, blobName string) error {
	return l.Log(ctx, Entry{
		UserID:         userID,
		OperationType:  OperationExport,
		ResourceType:   ResourceTranscript,
		ResourceID:     conversationID,
		AdditionalData: map[string]interface{}{"blob_name": blobName},
	})
}

// LogLogin logs a sign-in
func (l *Logger) LogLogin(ctx context.Context, userID string) error {
	return l.Log(ctx, Entry{
		UserID:        userID,
		OperationType: OperationLogin,
		ResourceType:  ResourceUser,
		ResourceID:    userID,
	})
}

// GetAuditLogs retrieves audit logs for a user, newest first
func (l *Logger) GetAuditLogs(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.ListByUser(ctx, userID, limit)
}
