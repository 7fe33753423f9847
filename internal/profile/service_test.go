package profile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/memory"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/profile"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
func timePtr(t time.Time) *time.Time { return &t }

func TestSaveHealthProfile_ValidationErrors(t *testing.T) {
	svc := profile.NewService(memory.NewProfileStore(), zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name        string
		userID      string
		profile     *model.HealthProfile
		expectedErr string
	}{
		{
			name:        "empty user ID",
			userID:      "",
			profile:     &model.HealthProfile{},
			expectedErr: "user ID is required",
		},
		{
			name:        "negative age",
			userID:      "user-1",
			profile:     &model.HealthProfile{Age: intPtr(-1)},
			expectedErr: "age must be between 0 and 130",
		},
		{
			name:        "zero height",
			userID:      "user-1",
			profile:     &model.HealthProfile{HeightCM: floatPtr(0)},
			expectedErr: "height must be positive",
		},
		{
			name:        "negative weight",
			userID:      "user-1",
			profile:     &model.HealthProfile{WeightKG: floatPtr(-70)},
			expectedErr: "weight must be positive",
		},
		{
			name:        "too much sleep",
			userID:      "user-1",
			profile:     &model.HealthProfile{Preferences: model.LifestylePreferences{SleepHours: floatPtr(25)}},
			expectedErr: "sleep hours must be between 0 and 24",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SaveHealthProfile(ctx, tt.userID, tt.profile)
			assert.ErrorIs(t, err, profile.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestSaveHealthProfile_KeepsCreatedAt(t *testing.T) {
	svc := profile.NewService(memory.NewProfileStore(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.SaveHealthProfile(ctx, "user-1", &model.HealthProfile{Age: intPtr(34)}))
	first, err := svc.GetHealthProfile(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.SaveHealthProfile(ctx, "user-1", &model.HealthProfile{Age: intPtr(35)}))
	second, err := svc.GetHealthProfile(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 35, *second.Age)
	assert.Equal(t, "user-1", second.UserID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestAddSuggestion(t *testing.T) {
	svc := profile.NewService(memory.NewProfileStore(), zap.NewNop())
	ctx := context.Background()

	sg := &model.HealthSuggestion{Type: model.SuggestionExercise, Title: "Walk 30 minutes"}
	require.NoError(t, svc.AddSuggestion(ctx, "user-1", sg))
	assert.NotEmpty(t, sg.ID)
	assert.Equal(t, model.PriorityMedium, sg.Priority)

	assert.Error(t, svc.AddSuggestion(ctx, "user-1", &model.HealthSuggestion{Type: "astrology", Title: "x"}))
	assert.Error(t, svc.AddSuggestion(ctx, "user-1", &model.HealthSuggestion{Type: model.SuggestionDiet, Title: "x", Priority: "urgent"}))
	assert.Error(t, svc.AddSuggestion(ctx, "user-1", &model.HealthSuggestion{Type: model.SuggestionDiet}))

	require.NoError(t, svc.CompleteSuggestion(ctx, "user-1", sg.ID))
	list, err := svc.ListSuggestions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)
	assert.NotNil(t, list[0].CompletedAt)

	err = svc.CompleteSuggestion(ctx, "user-2", sg.ID)
	assert.True(t, errors.Is(err, profile.ErrSuggestionNotFound))
}

func TestEmergencyContacts_PrimaryFirst(t *testing.T) {
	svc := profile.NewService(memory.NewProfileStore(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.AddEmergencyContact(ctx, "user-1", &model.EmergencyContact{Name: "Anil", Phone: "+911", Relation: "brother"}))
	require.NoError(t, svc.AddEmergencyContact(ctx, "user-1", &model.EmergencyContact{Name: "Zoya", Phone: "+912", Relation: "spouse", IsPrimary: true}))
	assert.Error(t, svc.AddEmergencyContact(ctx, "user-1", &model.EmergencyContact{Name: "No phone"}))

	contacts, err := svc.ListEmergencyContacts(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Zoya", contacts[0].Name)
	assert.Equal(t, "Anil", contacts[1].Name)
}

func TestPromptContext_EmptyWithoutProfile(t *testing.T) {
	svc := profile.NewService(memory.NewProfileStore(), zap.NewNop())

	text, err := svc.PromptContext(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestPromptContext_RendersSnapshot(t *testing.T) {
	store := memory.NewProfileStore()
	svc := profile.NewService(store, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.SaveHealthProfile(ctx, "user-1", &model.HealthProfile{
		Age:               intPtr(52),
		Gender:            "female",
		HeightCM:          floatPtr(160),
		MedicalConditions: []string{"Type 2 diabetes"},
		Allergies:         []string{"Penicillin"},
	}))
	require.NoError(t, svc.AddEmergencyContact(ctx, "user-1", &model.EmergencyContact{Name: "Ravi", Phone: "+91987", Relation: "son", IsPrimary: true}))
	require.NoError(t, svc.AddSuggestion(ctx, "user-1", &model.HealthSuggestion{
		Type:     model.SuggestionCheckup,
		Title:    "HbA1c test",
		Priority: model.PriorityHigh,
		DueDate:  timePtr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	}))

	text, err := svc.PromptContext(ctx, "user-1")
	require.NoError(t, err)

	assert.Contains(t, text, "=== USER HEALTH PROFILE ===")
	assert.Contains(t, text, "- Age: 52")
	assert.Contains(t, text, "- Height: 160 cm")
	assert.Contains(t, text, "- Weight: Not specified")
	assert.Contains(t, text, "- Medical Conditions: Type 2 diabetes")
	assert.Contains(t, text, "- Current Medications: None specified")
	assert.Contains(t, text, "- Ravi (son): +91987 [PRIMARY]")
	assert.Contains(t, text, "- HbA1c test (checkup, Priority: high) - Due: 01 Jun 2025")
	assert.Contains(t, text, "No recently completed suggestions")
}

func TestFormatContext_LimitsCompleted(t *testing.T) {
	done := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	var suggestions []model.HealthSuggestion
	for _, title := range []string{"one", "two", "three", "four"} {
		suggestions = append(suggestions, model.HealthSuggestion{Title: title, Completed: true, CompletedAt: &done})
	}

	text := profile.FormatContext(&profile.Snapshot{
		Profile:     &model.HealthProfile{},
		Suggestions: suggestions,
	})

	assert.Contains(t, text, "- three (Completed: 01 Feb 2025)")
	assert.NotContains(t, text, "- four")
	assert.Contains(t, text, "No active health suggestions")
	assert.Contains(t, text, "No emergency contacts specified")
}
