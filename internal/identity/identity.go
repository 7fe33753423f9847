package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

var (
	// ErrUserNotFound is returned by user stores for unknown uids
	ErrUserNotFound = errors.New("user not found")
	// ErrNotSignedIn is returned for operations that need a signed-in user
	ErrNotSignedIn = errors.New("user is not signed in")
	// ErrInvalidProfile is returned for profile fields that fail validation
	ErrInvalidProfile = errors.New("invalid user profile")
)

// DefaultProfileTTL is how long a fetched profile counts as fresh
const DefaultProfileTTL = time.Minute

// ProfileUpdate holds the editable profile fields; nil leaves a field unchanged
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// UserStore persists user profiles
type UserStore interface {
	GetUser(ctx context.Context, uid string) (*model.UserProfile, error)
	UpsertUser(ctx context.Context, u *model.UserProfile) error
	UpdateUserProfile(ctx context.Context, uid string, update ProfileUpdate) (*model.UserProfile, error)
}

// EventType tells subscribers how the auth state changed
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Event is pushed to subscribers on every sign-in and sign-out
type Event struct {
	Type EventType
	UID  string
	At   time.Time
}

type cacheEntry struct {
	profile   model.UserProfile
	fetchedAt time.Time
}

// Service tracks signed-in users and caches their profiles
type Service struct {
	store  UserStore
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	signedIn map[string]time.Time
	cache    map[string]cacheEntry

	subMu  sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

// NewService creates a new Service. A non-positive ttl uses DefaultProfileTTL.
func NewService(store UserStore, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &Service{
		store:    store,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
		signedIn: make(map[string]time.Time),
		cache:    make(map[string]cacheEntry),
		subs:     make(map[int]func(Event)),
	}
}

// SignIn records a login for the user, creating the profile on first login
func (s *Service) SignIn(ctx context.Context, u model.UserProfile) (*model.UserProfile, error) {
	if strings.TrimSpace(u.UID) == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrInvalidProfile)
	}
	now := s.now()

	existing, err := s.store.GetUser(ctx, u.UID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		u.CreatedAt = now
	case err != nil:
		return nil, fmt.Errorf("failed to get user: %w", err)
	default:
		u.CreatedAt = existing.CreatedAt
		if u.DisplayName == "" {
			u.DisplayName = existing.DisplayName
		}
		if u.PhotoURL == "" {
			u.PhotoURL = existing.PhotoURL
		}
		if u.Email == "" {
			u.Email = existing.Email
		}
	}
	if u.Provider == "" {
		u.Provider = "password"
	}
	u.LastLogin = now

	if err := s.store.UpsertUser(ctx, &u); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.mu.Lock()
	s.signedIn[u.UID] = now
	s.cache[u.UID] = cacheEntry{profile: u, fetchedAt: now}
	s.mu.Unlock()

	s.logger.Info("user signed in", zap.String("user_id", u.UID), zap.String("provider", u.Provider))
	s.notify(Event{Type: EventSignedIn, UID: u.UID, At: now})
	return &u, nil
}

// SignOut forgets the user's session and cached profile
func (s *Service) SignOut(uid string) {
	s.mu.Lock()
	_, was := s.signedIn[uid]
	delete(s.signedIn, uid)
	delete(s.cache, uid)
	s.mu.Unlock()

	if !was {
		return
	}
	s.logger.Info("user signed out", zap.String("user_id", uid))
	s.notify(Event{Type: EventSignedOut, UID: uid, At: s.now()})
}

// IsSignedIn reports whether uid has an active session
func (s *Service) IsSignedIn(uid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.signedIn[uid]
	return ok
}

// CurrentUser returns the profile of a signed-in user
func (s *Service) CurrentUser(ctx context.Context, uid string) (*model.UserProfile, error) {
	if !s.IsSignedIn(uid) {
		return nil, ErrNotSignedIn
	}
	return s.GetUserData(ctx, uid, false)
}

// GetUserData returns the profile of uid. A cached profile younger than the
// TTL is returned unless force is set.
func (s *Service) GetUserData(ctx context.Context, uid string, force bool) (*model.UserProfile, error) {
	if !force {
		s.mu.RLock()
		entry, ok := s.cache[uid]
		s.mu.RUnlock()
		if ok && s.fresh(entry) {
			p := entry.profile
			return &p, nil
		}
	}

	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[uid] = cacheEntry{profile: *u, fetchedAt: s.now()}
	s.mu.Unlock()
	return u, nil
}

// UpdateUserProfile changes the editable fields and refreshes the cache
func (s *Service) UpdateUserProfile(ctx context.Context, uid string, update ProfileUpdate) (*model.UserProfile, error) {
	if !s.IsSignedIn(uid) {
		return nil, ErrNotSignedIn
	}
	if update.DisplayName != nil && strings.TrimSpace(*update.DisplayName) == "" {
		return nil, fmt.Errorf("%w: display name cannot be empty", ErrInvalidProfile)
	}

	u, err := s.store.UpdateUserProfile(ctx, uid, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.mu.Lock()
	s.cache[uid] = cacheEntry{profile: *u, fetchedAt: s.now()}
	s.mu.Unlock()
	return u, nil
}

func (s *Service) fresh(e cacheEntry) bool {
	return s.now().Sub(e.fetchedAt) < s.ttl
}

// Subscribe registers fn for auth state changes and returns an unsubscribe func
func (s *Service) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Service) notify(evt Event) {
	s.subMu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}

// SweepCache drops stale profile entries and returns how many were removed
func (s *Service) SweepCache() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for uid, e := range s.cache {
		if !s.fresh(e) {
			delete(s.cache, uid)
			removed++
		}
	}
	return removed
}

// ScheduleSweep registers SweepCache on c with the given cron spec
func (s *Service) ScheduleSweep(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if n := s.SweepCache(); n > 0 {
			s.logger.Debug("swept stale profiles", zap.Int("count", n))
		}
	})
}
