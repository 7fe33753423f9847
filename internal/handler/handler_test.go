package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/assistant"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/azure"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/identity"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/memory"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/middleware"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/pdf"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/profile"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/api"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

const testUser = "user-1"

func init() {
	gin.SetMode(gin.TestMode)
}

type exportRecord struct {
	userID, conversationID, blobName string
}

type changeRecord struct {
	op       audit.OperationType
	resource audit.ResourceType
}

type recordingAuditor struct {
	records []exportRecord
	changes []changeRecord
}

func (r *recordingAuditor) LogExport(_ context.Context, userID, conversationID, blobName string) error {
	r.records = append(r.records, exportRecord{userID, conversationID, blobName})
	return nil
}

func (r *recordingAuditor) LogCreate(_ context.Context, _ string, resource audit.ResourceType, _ string) error {
	r.changes = append(r.changes, changeRecord{audit.OperationCreate, resource})
	return nil
}

func (r *recordingAuditor) LogUpdate(_ context.Context, _ string, resource audit.ResourceType, _ string) error {
	r.changes = append(r.changes, changeRecord{audit.OperationUpdate, resource})
	return nil
}

type failingPinger struct{ err error }

func (p failingPinger) Ping(context.Context) error { return p.err }

type fixture struct {
	router        *gin.Engine
	registry      *chat.Registry
	identity      *identity.Service
	conversations *memory.ConversationStore
	blobs         *azure.MockBlobStorageClient
	audits        *recordingAuditor
}

func newFixture(t *testing.T, pingers map[string]Pinger) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		conversations: memory.NewConversationStore(),
		blobs:         azure.NewMockBlobStorageClient("https://blobs.test", logger),
		audits:        &recordingAuditor{},
	}
	f.identity = identity.NewService(memory.NewUserStore(), time.Minute, logger)
	f.registry = chat.NewRegistry(chat.Dependencies{
		Store:  f.conversations,
		AI:     assistant.Echo{},
		Logger: logger,
	})
	t.Cleanup(f.registry.Shutdown)

	server := NewServer(Config{
		Sessions: f.registry,
		Identity: f.identity,
		Profiles: profile.NewService(memory.NewProfileStore(), logger),
		Renderer: pdf.NewPDFGenerator(logger),
		Exports:  f.blobs,
		Auditor:  f.audits,
		Pingers:  pingers,
		Origins:  []string{"*"},
		Version:  "test",
		Logger:   logger,
	})

	doc, err := api.Load(context.Background())
	require.NoError(t, err)
	validate, err := middleware.OpenAPIValidationMiddleware(doc, logger)
	require.NoError(t, err)

	f.router = gin.New()
	f.router.Use(middleware.RecoveryMiddleware(logger), middleware.RequestIDMiddleware(), validate)
	public := f.router.Group("/api/v1")
	protected := f.router.Group("/api/v1", middleware.IdentityMiddleware(f.identity))
	api.RegisterHandlers(public, protected, server, ParamError)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.UserHeader, testUser)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/auth/session",
		`{"uid":"`+testUser+`","email":"asha@example.com","display_name":"Asha","provider":"google"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestProtectedRoutesRequireSignIn(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/session", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.CodeUnauthorized, decode[middleware.ErrorResponse](t, w).Code)

	f.signIn(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/session", "").Code)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/v1/auth/session", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/session", "").Code)
}

func TestSignInAndProfile(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	me := decode[model.UserProfile](t, f.do(t, http.MethodGet, "/api/v1/me?force=true", ""))
	assert.Equal(t, "Asha", me.DisplayName)
	assert.Equal(t, "asha@example.com", me.Email)

	w := f.do(t, http.MethodPut, "/api/v1/me", `{"display_name":"Asha R"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Asha R", decode[model.UserProfile](t, w).DisplayName)

	w = f.do(t, http.MethodPut, "/api/v1/me", `{"display_name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/me?force=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModes(t *testing.T) {
	f := newFixture(t, nil)

	modes := decode[[]map[string]interface{}](t, f.do(t, http.MethodGet, "/api/v1/modes", ""))
	assert.Len(t, modes, 7)

	resp := decode[api.SuggestModeResponse](t, f.do(t, http.MethodPost, "/api/v1/modes/suggest", `{"text":"I have chest pain"}`))
	assert.Equal(t, "emergency", resp.Mode)
	assert.True(t, resp.Emergency)
}

func TestSendMessageFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	w := f.do(t, http.MethodPost, "/api/v1/messages", `{"content":"What should I eat for breakfast?"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	sent := decode[api.SendMessageResponse](t, w)
	require.NotEmpty(t, sent.ConversationId)

	session := f.registry.Session(testUser)
	session.Wait()

	state := decode[chat.State](t, f.do(t, http.MethodGet, "/api/v1/session", ""))
	assert.Equal(t, sent.ConversationId, state.ActiveConversationID)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, model.MessageRoleAssistant, state.Messages[1].Role)

	w = f.do(t, http.MethodPost, "/api/v1/messages", `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/messages", `{"content":"   "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[api.SendMessageResponse](t, w).Sent)
}

func TestGenerateImage(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	w := f.do(t, http.MethodPost, "/api/v1/images", `{"prompt":"a healthy breakfast plate"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[struct {
		ConversationID string         `json:"conversation_id"`
		Message        *model.Message `json:"message"`
	}](t, w)
	assert.NotEmpty(t, resp.ConversationID)
	require.NotNil(t, resp.Message)
	assert.Equal(t, model.MessageRoleAssistant, resp.Message.Role)
}

func TestLanguageAndMode(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	w := f.do(t, http.MethodPut, "/api/v1/session/language", `{"language":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, api.LanguageResponse{Language: "hi", Changed: true}, decode[api.LanguageResponse](t, w))

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/v1/session/language", `{"language":"fr"}`).Code)

	toggled := decode[api.LanguageResponse](t, f.do(t, http.MethodPost, "/api/v1/session/language/toggle", ""))
	assert.Equal(t, "en", toggled.Language)
	assert.True(t, toggled.Changed)
	ignored := decode[api.LanguageResponse](t, f.do(t, http.MethodPost, "/api/v1/session/language/toggle", ""))
	assert.False(t, ignored.Changed)

	w = f.do(t, http.MethodPut, "/api/v1/session/mode", `{"mode":"health_tips"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Messages []model.Message `json:"messages"`
	}](t, w)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "health_tips", resp.Messages[0].HealthMode)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/v1/session/mode", `{"mode":"astrology"}`).Code)

	state := decode[chat.State](t, f.do(t, http.MethodPost, "/api/v1/session/new", ""))
	assert.Equal(t, chat.StatusUnset, state.Status)
	assert.Empty(t, state.Messages)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/v1/session/sidebar", `{"collapsed":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/v1/session/sidebar", `{}`).Code)
	state = decode[chat.State](t, f.do(t, http.MethodGet, "/api/v1/session", ""))
	assert.True(t, state.SidebarCollapsed)
}

func TestConversationLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	sent := decode[api.SendMessageResponse](t, f.do(t, http.MethodPost, "/api/v1/messages", `{"content":"Headache since morning"}`))
	f.registry.Session(testUser).Wait()
	id := sent.ConversationId

	f.do(t, http.MethodPost, "/api/v1/session/new", "")

	convs := decode[[]model.Conversation](t, f.do(t, http.MethodGet, "/api/v1/conversations", ""))
	require.Len(t, convs, 1)
	assert.Equal(t, "Headache since morning", convs[0].Title)

	w := f.do(t, http.MethodGet, "/api/v1/conversations/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[chat.State](t, w).Messages, 2)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/conversations/missing", "").Code)

	w = f.do(t, http.MethodPatch, "/api/v1/conversations/"+id, `{"title":"Migraine"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPatch, "/api/v1/conversations/missing", `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPatch, "/api/v1/conversations/"+id, `{"title":"  "}`).Code)

	w = f.do(t, http.MethodDelete, "/api/v1/conversations/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, api.DeleteConversationResponse{Deleted: true, ClearedActive: true}, decode[api.DeleteConversationResponse](t, w))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/v1/conversations/"+id, "").Code)
}

func TestDeleteAllConversations(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	for _, text := range []string{"first question", "second question"} {
		f.do(t, http.MethodPost, "/api/v1/session/new", "")
		f.do(t, http.MethodPost, "/api/v1/messages", `{"content":"`+text+`"}`)
		f.registry.Session(testUser).Wait()
	}

	w := f.do(t, http.MethodDelete, "/api/v1/conversations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[api.DeleteAllResponse](t, w).Deleted)
	assert.Empty(t, decode[[]model.Conversation](t, f.do(t, http.MethodGet, "/api/v1/conversations", "")))
}

func TestExportConversation(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	sent := decode[api.SendMessageResponse](t, f.do(t, http.MethodPost, "/api/v1/messages", `{"content":"Tips for better sleep"}`))
	f.registry.Session(testUser).Wait()

	w := f.do(t, http.MethodPost, "/api/v1/conversations/"+sent.ConversationId+"/export", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	require.Len(t, f.audits.records, 1)
	assert.Equal(t, sent.ConversationId, f.audits.records[0].conversationID)
	assert.Contains(t, f.blobs.ListBlobs(), f.audits.records[0].blobName)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/v1/conversations/missing/export", "").Code)
}

func TestHealthProfileRoutes(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/health-profile", "").Code)

	w := f.do(t, http.MethodPut, "/api/v1/health-profile",
		`{"age":34,"height_cm":162.5,"date_of_birth":"1990-04-12","allergies":["peanuts"],"preferences":{"sleep_hours":7}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p := decode[model.HealthProfile](t, f.do(t, http.MethodGet, "/api/v1/health-profile", ""))
	require.NotNil(t, p.Age)
	assert.Equal(t, 34, *p.Age)
	assert.Equal(t, []string{"peanuts"}, p.Allergies)
	require.NotNil(t, p.DateOfBirth)
	assert.Equal(t, 1990, p.DateOfBirth.Year())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/v1/health-profile", `{"age":200}`).Code)

	w = f.do(t, http.MethodPost, "/api/v1/health-profile/suggestions", `{"type":"exercise","title":"Walk 30 minutes"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sg := decode[model.HealthSuggestion](t, w)
	assert.Equal(t, model.PriorityMedium, sg.Priority)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/v1/health-profile/suggestions/"+sg.ID+"/complete", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/v1/health-profile/suggestions/missing/complete", "").Code)

	suggestions := decode[[]model.HealthSuggestion](t, f.do(t, http.MethodGet, "/api/v1/health-profile/suggestions", ""))
	require.Len(t, suggestions, 1)
	assert.True(t, suggestions[0].Completed)

	f.do(t, http.MethodPost, "/api/v1/health-profile/contacts", `{"name":"Ravi","phone":"+91 98765 43210"}`)
	w = f.do(t, http.MethodPost, "/api/v1/health-profile/contacts", `{"name":"Meera","phone":"112","is_primary":true}`)
	require.Equal(t, http.StatusCreated, w.Code)

	contacts := decode[[]model.EmergencyContact](t, f.do(t, http.MethodGet, "/api/v1/health-profile/contacts", ""))
	require.Len(t, contacts, 2)
	assert.Equal(t, "Meera", contacts[0].Name)

	assert.Equal(t, []changeRecord{
		{audit.OperationUpdate, audit.ResourceHealthProfile},
		{audit.OperationCreate, audit.ResourceHealthSuggestion},
		{audit.OperationCreate, audit.ResourceEmergencyContact},
		{audit.OperationCreate, audit.ResourceEmergencyContact},
	}, f.audits.changes)
}

func TestGetHealth(t *testing.T) {
	f := newFixture(t, map[string]Pinger{"store": failingPinger{}})
	w := f.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	f = newFixture(t, map[string]Pinger{"store": failingPinger{}, "blob": failingPinger{err: errors.New("dns")}})
	w = f.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, map[string]interface{}{"store": "connected", "blob": "unreachable"}, body["backends"])
}

func TestSessionEvents(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	header := http.Header{}
	header.Set(middleware.UserHeader, testUser)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/session/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first map[string]interface{}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "state", first["type"])

	f.registry.Session(testUser).SetHealthMode("myth_fact")

	seen := map[chat.EventType]bool{}
	for !seen[chat.EventModeChanged] {
		var evt chat.Event
		require.NoError(t, conn.ReadJSON(&evt))
		seen[evt.Type] = true
	}
	assert.True(t, seen[chat.EventCleared])
}
