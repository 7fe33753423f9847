package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/identity"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/profile"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

// ProfileStore is an in-memory profile.Store
type ProfileStore struct {
	mu          sync.RWMutex
	profiles    map[string]model.HealthProfile
	suggestions map[string]model.HealthSuggestion
	contacts    map[string]model.EmergencyContact
}

// NewProfileStore creates an empty store
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles:    make(map[string]model.HealthProfile),
		suggestions: make(map[string]model.HealthSuggestion),
		contacts:    make(map[string]model.EmergencyContact),
	}
}

var _ profile.Store = (*ProfileStore)(nil)

func (s *ProfileStore) GetHealthProfile(ctx context.Context, userID string) (*model.HealthProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return &p, nil
}

func (s *ProfileStore) SaveHealthProfile(ctx context.Context, p *model.HealthProfile) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[p.UserID]
	if ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = p.UpdatedAt
	}
	s.profiles[p.UserID] = *p
	return !ok, nil
}

func (s *ProfileStore) SaveSuggestion(ctx context.Context, sg *model.HealthSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions[sg.ID] = *sg
	return nil
}

func (s *ProfileStore) ListSuggestions(ctx context.Context, userID string) ([]model.HealthSuggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.HealthSuggestion
	for _, sg := range s.suggestions {
		if sg.UserID == userID {
			out = append(out, sg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *ProfileStore) CompleteSuggestion(ctx context.Context, userID, suggestionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sg, ok := s.suggestions[suggestionID]
	if !ok || sg.UserID != userID {
		return profile.ErrSuggestionNotFound
	}
	sg.Completed = true
	sg.CompletedAt = &at
	s.suggestions[suggestionID] = sg
	return nil
}

func (s *ProfileStore) SaveEmergencyContact(ctx context.Context, c *model.EmergencyContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = *c
	return nil
}

func (s *ProfileStore) ListEmergencyContacts(ctx context.Context, userID string) ([]model.EmergencyContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.EmergencyContact
	for _, c := range s.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// UserStore is an in-memory identity.UserStore
type UserStore struct {
	mu    sync.RWMutex
	users map[string]model.UserProfile
}

// NewUserStore creates an empty store
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]model.UserProfile)}
}

var _ identity.UserStore = (*UserStore)(nil)

func (s *UserStore) GetUser(ctx context.Context, uid string) (*model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[uid]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) UpsertUser(ctx context.Context, u *model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UID] = *u
	return nil
}

func (s *UserStore) UpdateUserProfile(ctx context.Context, uid string, update identity.ProfileUpdate) (*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		u.PhotoURL = *update.PhotoURL
	}
	s.users[uid] = u
	return &u, nil
}
