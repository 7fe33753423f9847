package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
)

// AuditStore keeps audit entries in memory
type AuditStore struct {
	mu      sync.Mutex
	entries []audit.Entry
}

// NewAuditStore creates an empty store
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

var _ audit.Store = (*AuditStore)(nil)

func (s *AuditStore) Insert(ctx context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AuditStore) ListByUser(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []audit.Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
