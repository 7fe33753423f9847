package api

import (
	"github.com/oapi-codegen/runtime/types"
)

// SignInRequest defines model for SignInRequest.
type SignInRequest struct {
	Uid         string       `json:"uid"`
	Email       *types.Email `json:"email,omitempty"`
	DisplayName *string      `json:"display_name,omitempty"`
	PhotoUrl    *string      `json:"photo_url,omitempty"`
	Provider    *string      `json:"provider,omitempty"`
}

// UpdateMeRequest defines model for UpdateMeRequest.
type UpdateMeRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	PhotoUrl    *string `json:"photo_url,omitempty"`
}

// SuggestModeRequest is the body of POST /modes/suggest.
type SuggestModeRequest struct {
	Text string `json:"text"`
}

// SuggestModeResponse carries the classified mode.
type SuggestModeResponse struct {
	Mode      string `json:"mode"`
	Emergency bool   `json:"emergency"`
}

// SetLanguageRequest is the body of PUT /session/language.
type SetLanguageRequest struct {
	Language string `json:"language"`
}

// SetSidebarRequest is the body of PUT /session/sidebar.
type SetSidebarRequest struct {
	Collapsed bool `json:"collapsed"`
}

// LanguageResponse reports the session language.
type LanguageResponse struct {
	Language string `json:"language"`
	Changed  bool   `json:"changed"`
}

// SetModeRequest is the body of PUT /session/mode.
type SetModeRequest struct {
	Mode string `json:"mode"`
}

// SendMessageRequest is the body of POST /messages.
type SendMessageRequest struct {
	Content    string  `json:"content"`
	HealthMode *string `json:"health_mode,omitempty"`
}

// SendMessageResponse names the conversation the message went to.
type SendMessageResponse struct {
	ConversationId string `json:"conversation_id,omitempty"`
	Sent           bool   `json:"sent"`
}

// GenerateImageRequest is the body of POST /images.
type GenerateImageRequest struct {
	Prompt string `json:"prompt"`
}

// RenameConversationRequest is the body of PATCH /conversations/{id}.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// DeleteConversationResponse reports whether the active conversation was cleared.
type DeleteConversationResponse struct {
	Deleted       bool `json:"deleted"`
	ClearedActive bool `json:"cleared_active"`
}

// DeleteAllResponse reports a bulk delete.
type DeleteAllResponse struct {
	Deleted int `json:"deleted"`
}

// LifestylePreferences defines model for the preferences of a HealthProfileRequest.
type LifestylePreferences struct {
	DietType      *string  `json:"diet_type,omitempty"`
	ExerciseLevel *string  `json:"exercise_level,omitempty"`
	SleepHours    *float64 `json:"sleep_hours,omitempty"`
	StressLevel   *string  `json:"stress_level,omitempty"`
}

// HealthProfileRequest defines model for HealthProfileRequest.
type HealthProfileRequest struct {
	Age               *int                  `json:"age,omitempty"`
	Gender            *string               `json:"gender,omitempty"`
	HeightCm          *float64              `json:"height_cm,omitempty"`
	WeightKg          *float64              `json:"weight_kg,omitempty"`
	BloodGroup        *string               `json:"blood_group,omitempty"`
	DateOfBirth       *types.Date           `json:"date_of_birth,omitempty"`
	MedicalConditions *[]string             `json:"medical_conditions,omitempty"`
	Allergies         *[]string             `json:"allergies,omitempty"`
	Medications       *[]string             `json:"medications,omitempty"`
	Preferences       *LifestylePreferences `json:"preferences,omitempty"`
}

// SuggestionRequest defines model for SuggestionRequest.
type SuggestionRequest struct {
	Type        string      `json:"type"`
	Title       string      `json:"title"`
	Description *string     `json:"description,omitempty"`
	Priority    *string     `json:"priority,omitempty"`
	DueDate     *types.Date `json:"due_date,omitempty"`
}

// ContactRequest defines model for ContactRequest.
type ContactRequest struct {
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Relation  *string `json:"relation,omitempty"`
	IsPrimary *bool   `json:"is_primary,omitempty"`
}

// GetMeParams defines parameters for GetMe.
type GetMeParams struct {
	Force *bool `form:"force,omitempty" json:"force,omitempty"`
}
