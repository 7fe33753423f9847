package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

// fakeStore is a PersistenceGateway with failure injection
type fakeStore struct {
	mu            sync.Mutex
	nextID        int
	conversations map[string]*model.Conversation
	messages      map[string][]model.Message
	saveCalls     []model.Message

	createErr      error
	saveErr        error
	listErr        error
	getMessagesErr error
	deleteErrFor   map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.Message),
		deleteErrFor:  make(map[string]error),
	}
}

func (s *fakeStore) CreateConversation(ctx context.Context, userID, firstMessage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.nextID++
	id := fmt.Sprintf("conv-%d", s.nextID)
	now := time.Now()
	s.conversations[id] = &model.Conversation{
		ID:        id,
		UserID:    userID,
		Title:     model.ConversationTitle(firstMessage),
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	return id, nil
}

func (s *fakeStore) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) GetUserConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Conversation
	for _, c := range s.conversations {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) SaveMessage(ctx context.Context, conversationID string, msg model.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls = append(s.saveCalls, msg)
	if s.saveErr != nil {
		return "", s.saveErr
	}
	c, ok := s.conversations[conversationID]
	if !ok {
		return "", ErrConversationNotFound
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	now := time.Now()
	c.UpdatedAt = &now
	c.MessageCount++
	return msg.ID, nil
}

func (s *fakeStore) GetConversationMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getMessagesErr != nil {
		return nil, s.getMessagesErr
	}
	out := make([]model.Message, len(s.messages[conversationID]))
	copy(out, s.messages[conversationID])
	return out, nil
}

func (s *fakeStore) DeleteConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErrFor[conversationID]; err != nil {
		return err
	}
	if _, ok := s.conversations[conversationID]; !ok {
		return ErrConversationNotFound
	}
	delete(s.conversations, conversationID)
	delete(s.messages, conversationID)
	return nil
}

func (s *fakeStore) DeleteAllUserConversations(ctx context.Context, userID string) (int, error) {
	convs, err := s.GetUserConversations(ctx, userID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	return DeleteSequentially(ctx, ids, s.DeleteConversation)
}

func (s *fakeStore) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	c.Title = title
	return nil
}

func (s *fakeStore) conversation(id string) model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.conversations[id]
}

func (s *fakeStore) saved() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.saveCalls))
	copy(out, s.saveCalls)
	return out
}

func (s *fakeStore) conversationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// mockAI is a testify mock of AIGateway
type mockAI struct {
	mock.Mock
}

func (m *mockAI) GetChatResponse(ctx context.Context, history []model.Message, mode healthmode.ID, lang model.Language, userID string) (ChatResponse, error) {
	args := m.Called(ctx, history, mode, lang, userID)
	resp, _ := args.Get(0).(ChatResponse)
	return resp, args.Error(1)
}

// funcAI adapts a function to AIGateway
type funcAI func(ctx context.Context, history []model.Message, mode healthmode.ID, lang model.Language, userID string) (ChatResponse, error)

func (f funcAI) GetChatResponse(ctx context.Context, history []model.Message, mode healthmode.ID, lang model.Language, userID string) (ChatResponse, error) {
	return f(ctx, history, mode, lang, userID)
}

func echoAI() funcAI {
	return func(ctx context.Context, history []model.Message, mode healthmode.ID, lang model.Language, userID string) (ChatResponse, error) {
		return TextResponse{Text: "re: " + history[len(history)-1].Content}, nil
	}
}

var errGateway = errors.New("gateway unavailable")

// fakeLocal is an in-memory LocalStateStore
type fakeLocal struct {
	mu     sync.Mutex
	states map[string]model.LocalState
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{states: make(map[string]model.LocalState)}
}

func (l *fakeLocal) Load(userID string) (model.LocalState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[userID], nil
}

func (l *fakeLocal) SetLanguage(userID string, lang model.Language) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.states[userID]
	st.Language = lang
	l.states[userID] = st
	return nil
}

func (l *fakeLocal) SetLastActiveConversation(userID, conversationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.states[userID]
	st.LastActiveConversation = conversationID
	l.states[userID] = st
	return nil
}

func (l *fakeLocal) SetSidebarCollapsed(userID string, collapsed bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.states[userID]
	st.SidebarCollapsed = collapsed
	l.states[userID] = st
	return nil
}

// recordingAuditor records delete calls
type recordingAuditor struct {
	mu      sync.Mutex
	deleted []string
}

func (a *recordingAuditor) LogDelete(ctx context.Context, userID string, resource audit.ResourceType, resourceID string, data map[string]interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, resourceID)
	return nil
}
