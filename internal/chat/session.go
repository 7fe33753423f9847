package chat

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

// ImagePromptPrefix marks a user turn that asks for a generated image
const ImagePromptPrefix = "Generate image: "

// Status is the state of the active conversation pointer
type Status string

const (
	// StatusUnset means a new, unsaved conversation
	StatusUnset Status = "unset"
	// StatusPending means the conversation exists but the roster has not caught up
	StatusPending Status = "pending"
	// StatusEstablished means the conversation is active and in the roster
	StatusEstablished Status = "established"
)

// State is a snapshot of a session
type State struct {
	UserID               string               `json:"user_id"`
	ActiveConversationID string               `json:"active_conversation_id,omitempty"`
	Status               Status               `json:"status"`
	Messages             []model.Message      `json:"messages"`
	Conversations        []model.Conversation `json:"conversations"`
	HealthMode           healthmode.ID        `json:"health_mode"`
	Language             model.Language       `json:"language"`
	IsLoading            bool                 `json:"is_loading"`
	IsGeneratingImage    bool                 `json:"is_generating_image"`
	SidebarCollapsed     bool                 `json:"sidebar_collapsed"`
}

// Dependencies are the collaborators of a SessionManager
type Dependencies struct {
	Store      PersistenceGateway
	AI         AIGateway
	LocalState LocalStateStore
	Auditor    Auditor
	Logger     *zap.Logger

	// DebounceInterval locks the language toggle; zero uses the default
	DebounceInterval time.Duration
}

// SessionManager owns the conversation state of one signed-in user
type SessionManager struct {
	store   PersistenceGateway
	ai      AIGateway
	local   LocalStateStore
	auditor Auditor
	logger  *zap.Logger
	events  *EventBus
	log     *MessageLog
	toggle  *Debouncer

	mu               sync.RWMutex
	userID           string
	activeID         string
	status           Status
	conversations    []model.Conversation
	mode             healthmode.ID
	language         model.Language
	sidebarCollapsed bool
	lastActive       string
	generatingImage  int
	lastUsed         time.Time
	closed           bool

	// creating serializes the way out of StatusUnset
	creating sync.Mutex
	seqMu    sync.Mutex
	seq      map[string]*sync.Mutex
	inflight sync.WaitGroup
}

// NewSessionManager creates the session of userID and restores its local state
func NewSessionManager(userID string, deps Dependencies, opts ...MessageLogOption) *SessionManager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("user_id", userID))
	events := NewEventBus()

	m := &SessionManager{
		store:    deps.Store,
		ai:       deps.AI,
		local:    deps.LocalState,
		auditor:  deps.Auditor,
		logger:   logger,
		events:   events,
		log:      NewMessageLog(deps.Store, events, logger, opts...),
		toggle:   NewDebouncer(deps.DebounceInterval),
		userID:   userID,
		status:   StatusUnset,
		mode:     healthmode.Default,
		language: model.DefaultLanguage,
		seq:      make(map[string]*sync.Mutex),
		lastUsed: time.Now(),
	}

	if m.local != nil && userID != "" {
		st, err := m.local.Load(userID)
		if err != nil {
			logger.Warn("failed to load local state", zap.Error(err))
		} else {
			if lang, ok := model.ParseLanguage(string(st.Language)); ok {
				m.language = lang
			}
			m.sidebarCollapsed = st.SidebarCollapsed
			m.lastActive = st.LastActiveConversation
		}
	}
	return m
}

// UserID returns the signed-in user or an empty string after sign-out
func (m *SessionManager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

// SignOut drops all conversation state of the session
func (m *SessionManager) SignOut() {
	m.mu.Lock()
	m.userID = ""
	m.conversations = nil
	m.activeID = ""
	m.status = StatusUnset
	m.mu.Unlock()

	m.log.Clear()
	m.events.Publish(Event{Type: EventCleared})
}

func (m *SessionManager) touch() {
	m.mu.Lock()
	m.lastUsed = time.Now()
	m.mu.Unlock()
}

// LastUsed returns when the session last served an operation
func (m *SessionManager) LastUsed() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUsed
}

// SendMessage routes a user message into the active conversation, creating
// one first when the session is unset. For a new conversation the round trip
// runs in the background and the id is returned right away. An empty id with
// a nil error means nothing was sent.
func (m *SessionManager) SendMessage(ctx context.Context, content string, mode *healthmode.ID) (string, error) {
	return m.send(ctx, content, mode, false)
}

// GenerateImage asks the AI gateway for an image. It always waits for the reply.
func (m *SessionManager) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", nil
	}

	m.setGeneratingImage(1)
	defer m.setGeneratingImage(-1)

	return m.send(ctx, ImagePromptPrefix+prompt, nil, true)
}

func (m *SessionManager) send(ctx context.Context, content string, mode *healthmode.ID, wait bool) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	userID := m.UserID()
	if userID == "" {
		return "", nil
	}
	// the background turns below are added while this count is held
	if !m.admit() {
		return "", ErrSessionClosed
	}
	defer m.inflight.Done()
	m.touch()

	m.creating.Lock()
	conversationID, isNew, err := m.ensureConversation(ctx, userID, content)
	if err != nil {
		m.creating.Unlock()
		return "", err
	}
	// a new conversation takes its turn lock before the next sender can see
	// it, so that sender queues behind this turn
	seq := m.sequencer(conversationID)
	if isNew {
		seq.Lock()
		m.creating.Unlock()
	} else {
		m.creating.Unlock()
		seq.Lock()
	}

	respond := m.responder(userID, m.resolveMode(mode))

	if isNew && !wait {
		detached := context.WithoutCancel(ctx)
		m.inflight.Add(2)
		go func() {
			defer m.inflight.Done()
			defer seq.Unlock()
			m.log.HandleMessage(detached, content, respond, conversationID)
		}()
		go func() {
			defer m.inflight.Done()
			m.LoadUserConversations(detached)
		}()
		return conversationID, nil
	}

	defer seq.Unlock()
	m.log.HandleMessage(ctx, content, respond, conversationID)
	if isNew {
		m.LoadUserConversations(ctx)
	}
	return conversationID, nil
}

// ensureConversation returns the active conversation or creates one
func (m *SessionManager) ensureConversation(ctx context.Context, userID, content string) (string, bool, error) {
	m.mu.RLock()
	active := m.activeID
	m.mu.RUnlock()
	if active != "" {
		return active, false, nil
	}

	id, err := m.store.CreateConversation(ctx, userID, content)
	if err != nil {
		m.logger.Error("failed to create conversation", zap.Error(err))
		return "", false, fmt.Errorf("failed to create conversation: %w", err)
	}

	m.mu.Lock()
	m.activeID = id
	m.status = StatusPending
	m.mu.Unlock()

	m.log.Begin(id)
	m.rememberActive(userID, id)
	m.events.Publish(Event{Type: EventActiveChanged, ConversationID: id, Status: StatusPending})

	m.logger.Info("conversation created", zap.String("conversation_id", id))
	return id, true, nil
}

func (m *SessionManager) sequencer(conversationID string) *sync.Mutex {
	m.seqMu.Lock()
	defer m.seqMu.Unlock()
	s, ok := m.seq[conversationID]
	if !ok {
		s = &sync.Mutex{}
		m.seq[conversationID] = s
	}
	return s
}

func (m *SessionManager) resolveMode(mode *healthmode.ID) healthmode.ID {
	if mode != nil && *mode != "" {
		return *mode
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// responder binds mode, language and user into a ResponseFunc
func (m *SessionManager) responder(userID string, mode healthmode.ID) ResponseFunc {
	m.mu.RLock()
	lang := m.language
	m.mu.RUnlock()

	return func(ctx context.Context, history []model.Message) (ChatResponse, error) {
		latest := ""
		if len(history) > 0 {
			latest = history[len(history)-1].Content
		}
		resolved := healthmode.Resolve(mode, latest)
		if resolved != mode {
			m.logger.Info("health mode resolved from message",
				zap.String("requested_mode", string(mode)),
				zap.String("resolved_mode", string(resolved)),
			)
		}
		resp, err := m.ai.GetChatResponse(ctx, history, resolved, lang, userID)
		if err != nil {
			return nil, err
		}
		return withMode(resp, resolved), nil
	}
}

// NewConversation clears the log and unsets the active conversation
func (m *SessionManager) NewConversation() {
	m.touch()
	m.mu.Lock()
	m.activeID = ""
	m.status = StatusUnset
	m.mu.Unlock()

	m.log.Clear()
	m.events.Publish(Event{Type: EventCleared, Status: StatusUnset})
}

// ClearChat has the same effect as NewConversation
func (m *SessionManager) ClearChat() {
	m.NewConversation()
}

// LoadConversation replaces the log with the stored messages of
// conversationID and makes it active. Failures are logged and leave the
// state unchanged.
func (m *SessionManager) LoadConversation(ctx context.Context, conversationID string) {
	userID := m.UserID()
	if userID == "" {
		return
	}
	m.touch()

	conv, err := m.store.GetConversation(ctx, conversationID)
	if err != nil {
		m.logger.Error("failed to load conversation", zap.Error(err), zap.String("conversation_id", conversationID))
		return
	}
	if conv.UserID != userID {
		m.logger.Warn("conversation belongs to another user", zap.String("conversation_id", conversationID))
		return
	}

	msgs, err := m.store.GetConversationMessages(ctx, conversationID)
	if err != nil {
		m.logger.Error("failed to load conversation messages", zap.Error(err), zap.String("conversation_id", conversationID))
		return
	}

	m.log.Replace(conversationID, msgs)
	m.mu.Lock()
	m.activeID = conversationID
	m.status = StatusEstablished
	m.mu.Unlock()

	m.rememberActive(userID, conversationID)
	m.events.Publish(Event{Type: EventActiveChanged, ConversationID: conversationID, Status: StatusEstablished})
}

// LoadUserConversations refreshes the roster, newest first. It never changes
// the active conversation; a pending conversation found in the roster
// becomes established.
func (m *SessionManager) LoadUserConversations(ctx context.Context) {
	userID := m.UserID()
	if userID == "" {
		return
	}

	convs, err := m.store.GetUserConversations(ctx, userID)
	if err != nil {
		m.logger.Error("failed to load user conversations", zap.Error(err))
		return
	}
	SortConversations(convs)

	m.mu.Lock()
	if m.userID != userID {
		m.mu.Unlock()
		return
	}
	m.conversations = convs
	established := ""
	if m.status == StatusPending && containsConversation(convs, m.activeID) {
		m.status = StatusEstablished
		established = m.activeID
	}
	m.mu.Unlock()

	m.events.Publish(Event{Type: EventRosterRefreshed, Value: fmt.Sprint(len(convs))})
	if established != "" {
		m.events.Publish(Event{Type: EventActiveChanged, ConversationID: established, Status: StatusEstablished})
	}
}

// SortConversations orders conversations by updated time, newest first.
// Conversations without an updated time go last.
func SortConversations(convs []model.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i].UpdatedAt, convs[j].UpdatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func containsConversation(convs []model.Conversation, id string) bool {
	for _, c := range convs {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ownedConversation loads conversationID and checks it belongs to userID
func (m *SessionManager) ownedConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := m.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// Transcript returns a conversation of the user with all its stored
// messages. It does not change the active conversation.
func (m *SessionManager) Transcript(ctx context.Context, conversationID string) (*model.Conversation, []model.Message, error) {
	userID := m.UserID()
	if userID == "" {
		return nil, nil, ErrConversationNotFound
	}
	m.touch()

	conv, err := m.ownedConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := m.store.GetConversationMessages(ctx, conversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conversation messages: %w", err)
	}
	return conv, msgs, nil
}

// DeleteConversation deletes a conversation and its messages. It reports
// whether the active conversation was cleared as a result.
func (m *SessionManager) DeleteConversation(ctx context.Context, conversationID string) (bool, error) {
	userID := m.UserID()
	if userID == "" {
		return false, nil
	}
	m.touch()

	conv, err := m.ownedConversation(ctx, userID, conversationID)
	if err != nil {
		return false, err
	}

	if err := m.store.DeleteConversation(ctx, conversationID); err != nil {
		m.logger.Error("failed to delete conversation", zap.Error(err), zap.String("conversation_id", conversationID))
		return false, fmt.Errorf("failed to delete conversation: %w", err)
	}
	m.audit(ctx, userID, audit.ResourceConversation, conversationID, map[string]interface{}{
		"title":         conv.Title,
		"message_count": conv.MessageCount,
	})

	m.mu.Lock()
	kept := m.conversations[:0]
	for _, c := range m.conversations {
		if c.ID != conversationID {
			kept = append(kept, c)
		}
	}
	m.conversations = kept
	wasActive := m.activeID == conversationID
	m.mu.Unlock()

	m.seqMu.Lock()
	delete(m.seq, conversationID)
	m.seqMu.Unlock()

	if wasActive {
		m.ClearChat()
		m.rememberActive(userID, "")
	}
	return wasActive, nil
}

// DeleteAllConversations deletes every conversation of the user. It stops at
// the first failure; the returned count covers what was deleted.
func (m *SessionManager) DeleteAllConversations(ctx context.Context) (int, error) {
	userID := m.UserID()
	if userID == "" {
		return 0, nil
	}
	m.touch()

	deleted, err := m.store.DeleteAllUserConversations(ctx, userID)
	m.audit(ctx, userID, audit.ResourceConversation, "*", map[string]interface{}{
		"deleted": deleted,
		"failed":  err != nil,
	})

	m.ClearChat()
	m.rememberActive(userID, "")
	m.LoadUserConversations(ctx)

	if err != nil {
		m.logger.Error("bulk delete stopped", zap.Error(err), zap.Int("deleted", deleted))
		return deleted, err
	}
	return deleted, nil
}

// RenameConversation sets a new title
func (m *SessionManager) RenameConversation(ctx context.Context, conversationID, title string) error {
	userID := m.UserID()
	if userID == "" {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	m.touch()

	if _, err := m.ownedConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := m.store.UpdateConversationTitle(ctx, conversationID, title); err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}

	now := time.Now()
	m.mu.Lock()
	for i := range m.conversations {
		if m.conversations[i].ID == conversationID {
			m.conversations[i].Title = title
			m.conversations[i].UpdatedAt = &now
		}
	}
	SortConversations(m.conversations)
	m.mu.Unlock()
	return nil
}

// SetHealthMode pins a mode, starts a new conversation and shows the mode's
// welcome message. Selecting the current mode does nothing.
func (m *SessionManager) SetHealthMode(mode healthmode.ID) healthmode.Mode {
	selected := healthmode.Get(mode)

	m.mu.Lock()
	if m.mode == selected.ID {
		m.mu.Unlock()
		return selected
	}
	m.mode = selected.ID
	lang := m.language
	m.mu.Unlock()

	m.NewConversation()
	m.log.InjectAssistantMessage(selected.WelcomeFor(lang), selected.ID)
	m.events.Publish(Event{Type: EventModeChanged, Value: string(selected.ID)})
	return selected
}

// SetLanguage changes the language and persists it locally
func (m *SessionManager) SetLanguage(lang model.Language) error {
	parsed, ok := model.ParseLanguage(string(lang))
	if !ok {
		return fmt.Errorf("unsupported language: %s", lang)
	}

	m.mu.Lock()
	m.language = parsed
	userID := m.userID
	m.mu.Unlock()

	if m.local != nil && userID != "" {
		if err := m.local.SetLanguage(userID, parsed); err != nil {
			m.logger.Warn("failed to persist language", zap.Error(err))
		}
	}
	m.events.Publish(Event{Type: EventLanguageChanged, Value: string(parsed)})
	return nil
}

// ToggleLanguage switches between English and Hindi. Toggles arriving while
// the debounce lock is held are ignored and report false.
func (m *SessionManager) ToggleLanguage() (model.Language, bool) {
	if !m.toggle.TryAcquire() {
		return m.Language(), false
	}
	next := model.LanguageHindi
	if m.Language() == model.LanguageHindi {
		next = model.LanguageEnglish
	}
	if err := m.SetLanguage(next); err != nil {
		m.logger.Warn("failed to toggle language", zap.Error(err), zap.String("language", string(next)))
		return m.Language(), false
	}
	return next, true
}

// SetSidebarCollapsed stores the sidebar flag for the user's device
func (m *SessionManager) SetSidebarCollapsed(collapsed bool) {
	m.mu.Lock()
	m.sidebarCollapsed = collapsed
	userID := m.userID
	m.mu.Unlock()

	if m.local != nil && userID != "" {
		if err := m.local.SetSidebarCollapsed(userID, collapsed); err != nil {
			m.logger.Warn("failed to persist sidebar state", zap.Error(err))
		}
	}
	m.events.Publish(Event{Type: EventSidebarChanged, Value: strconv.FormatBool(collapsed)})
}

// Language returns the session language
func (m *SessionManager) Language() model.Language {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.language
}

// HealthMode returns the selected mode
func (m *SessionManager) HealthMode() healthmode.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// ActiveConversationID returns the active conversation or an empty string
func (m *SessionManager) ActiveConversationID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

// Messages returns the open conversation's messages
func (m *SessionManager) Messages() []model.Message {
	return m.log.Messages()
}

// IsLoading reports whether a round trip is in flight
func (m *SessionManager) IsLoading() bool {
	return m.log.IsLoading()
}

// Conversations returns the cached roster
func (m *SessionManager) Conversations() []model.Conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Conversation, len(m.conversations))
	copy(out, m.conversations)
	return out
}

// State returns a snapshot of the session
func (m *SessionManager) State() State {
	m.mu.RLock()
	st := State{
		UserID:               m.userID,
		ActiveConversationID: m.activeID,
		Status:               m.status,
		HealthMode:           m.mode,
		Language:             m.language,
		IsGeneratingImage:    m.generatingImage > 0,
		SidebarCollapsed:     m.sidebarCollapsed,
	}
	st.Conversations = make([]model.Conversation, len(m.conversations))
	copy(st.Conversations, m.conversations)
	m.mu.RUnlock()

	st.Messages = m.log.Messages()
	st.IsLoading = m.log.IsLoading()
	return st
}

// Subscribe streams state changes until the returned cancel is called
func (m *SessionManager) Subscribe() (<-chan Event, func()) {
	return m.events.Subscribe()
}

// Wait blocks until background round trips have finished
func (m *SessionManager) Wait() {
	m.inflight.Wait()
}

// Close refuses new messages, waits for background work and ends all
// subscriptions
func (m *SessionManager) Close() {
	m.drain()
	m.events.Close()
}

// drain marks the session closed and waits for the turns already admitted
func (m *SessionManager) drain() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.inflight.Wait()
}

// admit counts a send in flight unless the session is closed
func (m *SessionManager) admit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.inflight.Add(1)
	return true
}

// RestoreLastActive reopens the conversation remembered in local state when
// no conversation is open and the roster still lists it. It reports whether
// the conversation was reopened.
func (m *SessionManager) RestoreLastActive(ctx context.Context) bool {
	m.mu.RLock()
	id := m.lastActive
	restore := id != "" && m.activeID == "" && containsConversation(m.conversations, id)
	m.mu.RUnlock()
	if !restore {
		return false
	}

	m.LoadConversation(ctx, id)
	return m.ActiveConversationID() == id
}

func (m *SessionManager) setGeneratingImage(delta int) {
	m.mu.Lock()
	m.generatingImage += delta
	if m.generatingImage < 0 {
		m.generatingImage = 0
	}
	m.mu.Unlock()
}

func (m *SessionManager) rememberActive(userID, conversationID string) {
	m.mu.Lock()
	m.lastActive = conversationID
	m.mu.Unlock()

	if m.local == nil {
		return
	}
	if err := m.local.SetLastActiveConversation(userID, conversationID); err != nil {
		m.logger.Warn("failed to persist last active conversation", zap.Error(err))
	}
}

func (m *SessionManager) audit(ctx context.Context, userID string, resource audit.ResourceType, resourceID string, data map[string]interface{}) {
	if m.auditor == nil {
		return
	}
	if err := m.auditor.LogDelete(ctx, userID, resource, resourceID, data); err != nil {
		m.logger.Warn("failed to write audit entry", zap.Error(err), zap.String("resource_id", resourceID))
	}
}
