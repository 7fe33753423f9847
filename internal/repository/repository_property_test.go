package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/identity"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/profile"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/security"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

// setupTestDB creates a PostgreSQL testcontainer and returns the connection pool
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("swasth_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	require.NoError(t, EnsureSchema(ctx, pool))
	// applying twice is harmless
	require.NoError(t, EnsureSchema(ctx, pool))

	cleanup := func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return pool, cleanup
}

func TestConversationRepository_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	sealer, err := security.NewEncryptorFromPassphrase("test-key")
	require.NoError(t, err)
	repo := NewConversationRepository(pool, sealer, zap.NewNop())
	ctx := context.Background()

	id, err := repo.CreateConversation(ctx, "user-1", "I have had a sore throat since Monday morning")
	require.NoError(t, err)

	conv, err := repo.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "I have had a sore throat sin...", conv.Title)
	assert.Equal(t, 0, conv.MessageCount)
	require.NotNil(t, conv.UpdatedAt)
	before := *conv.UpdatedAt

	img := "https://blob/throat.png"
	base := time.Now().UTC().Truncate(time.Millisecond)
	_, err = repo.SaveMessage(ctx, id, model.Message{ID: uuid.New().String(), Role: model.MessageRoleUser, Content: "sore throat", Timestamp: base})
	require.NoError(t, err)
	_, err = repo.SaveMessage(ctx, id, model.Message{Role: model.MessageRoleAssistant, Content: "gargle with warm salt water", ImageURL: &img, HealthMode: "symptoms_checker", Timestamp: base.Add(time.Second)})
	require.NoError(t, err)

	msgs, err := repo.GetConversationMessages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "sore throat", msgs[0].Content)
	assert.Equal(t, "gargle with warm salt water", msgs[1].Content)
	require.NotNil(t, msgs[1].ImageURL)
	assert.Equal(t, img, *msgs[1].ImageURL)
	assert.Equal(t, "symptoms_checker", msgs[1].HealthMode)

	var stored string
	require.NoError(t, pool.QueryRow(ctx, `SELECT content FROM messages WHERE conversation_id = $1 ORDER BY timestamp LIMIT 1`, id).Scan(&stored))
	assert.Contains(t, stored, security.SealedPrefix)

	conv, err = repo.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, conv.MessageCount)
	assert.False(t, conv.UpdatedAt.Before(before))

	require.NoError(t, repo.UpdateConversationTitle(ctx, id, "Sore throat"))
	conv, err = repo.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Sore throat", conv.Title)

	require.NoError(t, repo.DeleteConversation(ctx, id))
	_, err = repo.GetConversation(ctx, id)
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)
	msgs, err = repo.GetConversationMessages(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.ErrorIs(t, repo.DeleteConversation(ctx, id), chat.ErrConversationNotFound)
	_, err = repo.SaveMessage(ctx, id, model.Message{Role: model.MessageRoleUser, Content: "late"})
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)
}

func TestConversationRepository_UserIsolationAndBulkDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewConversationRepository(pool, nil, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.CreateConversation(ctx, "user-1", fmt.Sprintf("chat %d", i))
		require.NoError(t, err)
	}
	keep, err := repo.CreateConversation(ctx, "user-2", "other user")
	require.NoError(t, err)

	convs, err := repo.GetUserConversations(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, convs, 3)

	n, err := repo.DeleteAllUserConversations(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	convs, err = repo.GetUserConversations(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, convs)
	_, err = repo.GetConversation(ctx, keep)
	assert.NoError(t, err)
}

// Property: messageCount always equals the number of stored messages
func TestProperty_MessageCountMatchesStoredMessages(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewConversationRepository(pool, nil, zap.NewNop())

	properties := gopter.NewProperties(nil)

	properties.Property("message_count == len(messages)", prop.ForAll(
		func(n int) bool {
			ctx := context.Background()
			id, err := repo.CreateConversation(ctx, "user-prop", "counting")
			if err != nil {
				return false
			}
			for i := 0; i < n; i++ {
				if _, err := repo.SaveMessage(ctx, id, model.Message{Role: model.MessageRoleUser, Content: fmt.Sprint(i)}); err != nil {
					t.Logf("save failed: %v", err)
					return false
				}
			}
			conv, err := repo.GetConversation(ctx, id)
			if err != nil {
				return false
			}
			msgs, err := repo.GetConversationMessages(ctx, id)
			return err == nil && conv.MessageCount == n && len(msgs) == n
		},
		gen.IntRange(0, 10),
	))

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties.TestingRun(t, params)
}

func TestHealthProfileRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewHealthProfileRepository(pool, zap.NewNop())
	ctx := context.Background()

	_, err := repo.GetHealthProfile(ctx, "user-1")
	assert.True(t, errors.Is(err, profile.ErrProfileNotFound))

	age := 41
	sleep := 6.5
	p := &model.HealthProfile{
		UserID:            "user-1",
		Age:               &age,
		Gender:            "male",
		MedicalConditions: []string{"Hypertension"},
		Preferences:       model.LifestylePreferences{DietType: "vegetarian", SleepHours: &sleep},
		UpdatedAt:         time.Now(),
	}
	created, err := repo.SaveHealthProfile(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)

	p.Allergies = []string{"Peanuts"}
	p.UpdatedAt = time.Now()
	created, err = repo.SaveHealthProfile(ctx, p)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetHealthProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 41, *got.Age)
	assert.Equal(t, []string{"Hypertension"}, got.MedicalConditions)
	assert.Equal(t, []string{"Peanuts"}, got.Allergies)
	assert.Empty(t, got.Medications)
	assert.Equal(t, "vegetarian", got.Preferences.DietType)
	assert.InDelta(t, 6.5, *got.Preferences.SleepHours, 0.001)
	assert.Nil(t, got.WeightKG)

	sg := &model.HealthSuggestion{
		ID:        uuid.New().String(),
		UserID:    "user-1",
		Type:      model.SuggestionCheckup,
		Title:     "BP check",
		Priority:  model.PriorityHigh,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.SaveSuggestion(ctx, sg))
	require.NoError(t, repo.CompleteSuggestion(ctx, "user-1", sg.ID, time.Now()))
	assert.ErrorIs(t, repo.CompleteSuggestion(ctx, "user-2", sg.ID, time.Now()), profile.ErrSuggestionNotFound)

	list, err := repo.ListSuggestions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)
	assert.NotNil(t, list[0].CompletedAt)

	require.NoError(t, repo.SaveEmergencyContact(ctx, &model.EmergencyContact{ID: uuid.New().String(), UserID: "user-1", Name: "Bina", Phone: "1"}))
	require.NoError(t, repo.SaveEmergencyContact(ctx, &model.EmergencyContact{ID: uuid.New().String(), UserID: "user-1", Name: "Yash", Phone: "2", IsPrimary: true}))
	contacts, err := repo.ListEmergencyContacts(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Yash", contacts[0].Name)
}

func TestUserRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool, zap.NewNop())
	ctx := context.Background()

	_, err := repo.GetUser(ctx, "uid-1")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpsertUser(ctx, &model.UserProfile{
		UID: "uid-1", Email: "a@example.com", DisplayName: "Asha", Provider: "google", CreatedAt: now, LastLogin: now,
	}))

	name := "Asha R"
	u, err := repo.UpdateUserProfile(ctx, "uid-1", identity.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Asha R", u.DisplayName)
	assert.Equal(t, "a@example.com", u.Email)

	_, err = repo.UpdateUserProfile(ctx, "missing", identity.ProfileUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestAuditPgStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := audit.NewPgStore(pool, zap.NewNop())
	logger := audit.NewLogger(store, zap.NewNop())
	ctx := audit.WithRequestMeta(context.Background(), "127.0.0.1", "go-test")

	require.NoError(t, logger.LogDelete(ctx, "user-1", audit.ResourceConversation, "conv-1", map[string]interface{}{"title": "Fever"}))
	require.NoError(t, logger.LogLogin(ctx, "user-1"))

	entries, err := logger.GetAuditLogs(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.OperationLogin, entries[0].OperationType)
	assert.Equal(t, "127.0.0.1", entries[1].IPAddress)
	assert.Equal(t, "Fever", entries[1].AdditionalData["title"])
}
