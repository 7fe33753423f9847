package docstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
)

const auditCollection = "audit_logs"

var _ audit.Store = (*Store)(nil)

type auditDoc struct {
	UserID         string                 `firestore:"user_id"`
	OperationType  string                 `firestore:"operation_type"`
	ResourceType   string                 `firestore:"resource_type"`
	ResourceID     string                 `firestore:"resource_id"`
	Timestamp      time.Time              `firestore:"timestamp"`
	IPAddress      string                 `firestore:"ip_address"`
	UserAgent      string                 `firestore:"user_agent"`
	AdditionalData map[string]interface{} `firestore:"additional_data,omitempty"`
}

func (s *Store) Insert(ctx context.Context, entry audit.Entry) error {
	_, _, err := s.client.Collection(auditCollection).Add(ctx, auditDoc{
		UserID:         entry.UserID,
		OperationType:  string(entry.OperationType),
		ResourceType:   string(entry.ResourceType),
		ResourceID:     entry.ResourceID,
		Timestamp:      entry.Timestamp,
		IPAddress:      entry.IPAddress,
		UserAgent:      entry.UserAgent,
		AdditionalData: entry.AdditionalData,
	})
	if err != nil {
		return fmt.Errorf("firestore audit Insert: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	iter := s.client.Collection(auditCollection).
		Where("user_id", "==", userID).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var entries []audit.Entry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore audit ListByUser: %w", err)
		}
		var d auditDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode auditDoc: %w", err)
		}
		entries = append(entries, audit.Entry{
			UserID:         d.UserID,
			OperationType:  audit.OperationType(d.OperationType),
			ResourceType:   audit.ResourceType(d.ResourceType),
			ResourceID:     d.ResourceID,
			Timestamp:      d.Timestamp,
			IPAddress:      d.IPAddress,
			UserAgent:      d.UserAgent,
			AdditionalData: d.AdditionalData,
		})
	}
	return entries, nil
}
