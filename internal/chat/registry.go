package chat

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Registry keeps one SessionManager per signed-in user
type Registry struct {
	deps   Dependencies
	opts   []MessageLogOption
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*SessionManager
}

// NewRegistry creates an empty registry
func NewRegistry(deps Dependencies, opts ...MessageLogOption) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		deps:     deps,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*SessionManager),
	}
}

// Session returns the session of userID, creating it on first use
func (r *Registry) Session(userID string) *SessionManager {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.sessions[userID]; ok {
		return m
	}
	m := NewSessionManager(userID, r.deps, r.opts...)
	r.sessions[userID] = m
	r.logger.Debug("session opened", zap.String("user_id", userID))
	return m
}

// Open creates the session of userID, loads its roster and reopens the
// last active conversation
func (r *Registry) Open(ctx context.Context, userID string) *SessionManager {
	m := r.Session(userID)
	m.LoadUserConversations(ctx)
	if m.RestoreLastActive(ctx) {
		r.logger.Debug("last active conversation restored",
			zap.String("user_id", userID),
			zap.String("conversation_id", m.ActiveConversationID()),
		)
	}
	return m
}

// Lookup returns an existing session without creating one
func (r *Registry) Lookup(userID string) (*SessionManager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.sessions[userID]
	return m, ok
}

// Close signs the session out and forgets it. Background round trips are
// allowed to finish first.
func (r *Registry) Close(userID string) {
	r.mu.Lock()
	m, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if !ok {
		return
	}
	m.drain()
	m.SignOut()
	m.Close()
	r.logger.Debug("session closed", zap.String("user_id", userID))
}

// EvictIdle drops sessions unused for longer than maxIdle that have no
// round trip in flight. It returns the number of evicted sessions.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var idle []*SessionManager
	for id, m := range r.sessions {
		if m.LastUsed().Before(cutoff) && !m.IsLoading() {
			idle = append(idle, m)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, m := range idle {
		m.Close()
	}
	if len(idle) > 0 {
		r.logger.Info("evicted idle sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown waits for all background round trips
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*SessionManager, 0, len(r.sessions))
	for _, m := range r.sessions {
		sessions = append(sessions, m)
	}
	r.mu.Unlock()

	for _, m := range sessions {
		m.Close()
	}
}

// ScheduleEviction registers idle eviction on c with the given cron spec
func (r *Registry) ScheduleEviction(c *cron.Cron, spec string, maxIdle time.Duration) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		r.EvictIdle(maxIdle)
	})
}
