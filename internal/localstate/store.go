// Package localstate keeps small per-user preferences in yaml files on the
// local disk.
package localstate

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

const (
	keyLastActive = "last_active_conversation"
	keyLanguage   = "language"
	keySidebar    = "sidebar_collapsed"
)

// Store persists model.LocalState, one file per user
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates the directory if needed and returns a Store rooted there
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("local state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create local state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(userID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%x.yaml", sha256.Sum256([]byte(userID))))
}

// open reads the user's file; a missing file yields the defaults
func (s *Store) open(userID string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(s.path(userID))
	v.SetConfigType("yaml")
	v.SetDefault(keyLanguage, string(model.DefaultLanguage))
	v.SetDefault(keySidebar, false)
	v.SetDefault(keyLastActive, "")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read local state: %w", err)
	}
	return v, nil
}

// Load returns the stored state of userID
func (s *Store) Load(userID string) (model.LocalState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.open(userID)
	if err != nil {
		return model.LocalState{}, err
	}
	var st model.LocalState
	if err := v.Unmarshal(&st); err != nil {
		return model.LocalState{}, fmt.Errorf("failed to decode local state: %w", err)
	}
	if _, ok := model.ParseLanguage(string(st.Language)); !ok {
		st.Language = model.DefaultLanguage
	}
	return st, nil
}

func (s *Store) set(userID, key string, value interface{}) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.open(userID)
	if err != nil {
		return err
	}
	v.Set(key, value)
	if err := v.WriteConfigAs(s.path(userID)); err != nil {
		return fmt.Errorf("failed to write local state: %w", err)
	}
	return nil
}

// SetLanguage stores the preferred language
func (s *Store) SetLanguage(userID string, lang model.Language) error {
	return s.set(userID, keyLanguage, string(lang))
}

// SetLastActiveConversation stores the conversation to reopen; an empty id clears it
func (s *Store) SetLastActiveConversation(userID, conversationID string) error {
	return s.set(userID, keyLastActive, conversationID)
}

// SetSidebarCollapsed stores the sidebar flag
func (s *Store) SetSidebarCollapsed(userID string, collapsed bool) error {
	return s.set(userID, keySidebar, collapsed)
}

// Forget removes the user's file
func (s *Store) Forget(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(userID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove local state: %w", err)
	}
	return nil
}
