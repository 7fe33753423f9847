package model

import "time"

// Language is the UI and response language of a session
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// DefaultLanguage is used when nothing was persisted for a user
const DefaultLanguage = LanguageEnglish

// ParseLanguage returns the language for s and whether it is supported
func ParseLanguage(s string) (Language, bool) {
	switch Language(s) {
	case LanguageEnglish, LanguageHindi:
		return Language(s), true
	default:
		return DefaultLanguage, false
	}
}

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleUser      MessageRole = "user"
)

// Message represents one turn of a conversation
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Timestamp      time.Time   `json:"timestamp"`
	ImageURL       *string     `json:"image_url,omitempty"`
	HealthMode     string      `json:"health_mode,omitempty"`
}

// Conversation is a titled thread of messages owned by one user
type Conversation struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Title        string     `json:"title"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	MessageCount int        `json:"message_count"`
}

const (
	maxTitleLength = 30
	titleCutLength = 27
	titleEllipsis  = "..."
)

// ConversationTitle derives a conversation title from the first user message
func ConversationTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) > maxTitleLength {
		return string(runes[:titleCutLength]) + titleEllipsis
	}
	return firstMessage
}

// UserProfile represents the identity of a signed-in user
type UserProfile struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Provider    string    `json:"provider"`
	CreatedAt   time.Time `json:"created_at"`
	LastLogin   time.Time `json:"last_login"`
}

// LifestylePreferences holds lifestyle answers of a health profile
type LifestylePreferences struct {
	DietType      string   `json:"diet_type,omitempty"`
	ExerciseLevel string   `json:"exercise_level,omitempty"`
	SleepHours    *float64 `json:"sleep_hours,omitempty"`
	StressLevel   string   `json:"stress_level,omitempty"`
}

// HealthProfile represents the medical profile used by personalized mode
type HealthProfile struct {
	UserID            string               `json:"user_id"`
	Age               *int                 `json:"age,omitempty"`
	Gender            string               `json:"gender,omitempty"`
	HeightCM          *float64             `json:"height_cm,omitempty"`
	WeightKG          *float64             `json:"weight_kg,omitempty"`
	BloodGroup        string               `json:"blood_group,omitempty"`
	DateOfBirth       *time.Time           `json:"date_of_birth,omitempty"`
	MedicalConditions []string             `json:"medical_conditions,omitempty"`
	Allergies         []string             `json:"allergies,omitempty"`
	Medications       []string             `json:"medications,omitempty"`
	Preferences       LifestylePreferences `json:"preferences"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// SuggestionType categorizes a health suggestion
type SuggestionType string

const (
	SuggestionDiet       SuggestionType = "diet"
	SuggestionExercise   SuggestionType = "exercise"
	SuggestionMedication SuggestionType = "medication"
	SuggestionCheckup    SuggestionType = "checkup"
	SuggestionLifestyle  SuggestionType = "lifestyle"
	SuggestionEmergency  SuggestionType = "emergency"
)

// Priority ranks a health suggestion
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// HealthSuggestion represents a personalized recommendation for a user
type HealthSuggestion struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Type        SuggestionType `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    Priority       `json:"priority"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	Completed   bool           `json:"completed"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// EmergencyContact represents a person to call in an emergency
type EmergencyContact struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Relation  string `json:"relation"`
	IsPrimary bool   `json:"is_primary"`
}

// LocalState holds the per-device values persisted outside the remote store
type LocalState struct {
	LastActiveConversation string   `json:"last_active_conversation,omitempty" mapstructure:"last_active_conversation"`
	Language               Language `json:"language" mapstructure:"language"`
	SidebarCollapsed       bool     `json:"sidebar_collapsed" mapstructure:"sidebar_collapsed"`
}
