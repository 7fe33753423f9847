package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/middleware"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/api"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

// GetHealthProfile returns the caller's health profile
func (s *Server) GetHealthProfile(c *gin.Context) {
	p, err := s.profiles.GetHealthProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, s.logger, "Failed to get health profile", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SaveHealthProfile creates or replaces the caller's health profile
func (s *Server) SaveHealthProfile(c *gin.Context) {
	var req api.HealthProfileRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}
	userID := middleware.UserID(c)

	p := &model.HealthProfile{
		Age:               req.Age,
		Gender:            derefString(req.Gender),
		HeightCM:          req.HeightCm,
		WeightKG:          req.WeightKg,
		BloodGroup:        derefString(req.BloodGroup),
		DateOfBirth:       dateToTimePtr(req.DateOfBirth),
		MedicalConditions: derefStrings(req.MedicalConditions),
		Allergies:         derefStrings(req.Allergies),
		Medications:       derefStrings(req.Medications),
	}
	if prefs := req.Preferences; prefs != nil {
		p.Preferences = model.LifestylePreferences{
			DietType:      derefString(prefs.DietType),
			ExerciseLevel: derefString(prefs.ExerciseLevel),
			SleepHours:    prefs.SleepHours,
			StressLevel:   derefString(prefs.StressLevel),
		}
	}

	if err := s.profiles.SaveHealthProfile(c.Request.Context(), userID, p); err != nil {
		respondError(c, s.logger, "Failed to save health profile", err)
		return
	}

	s.recordChange(c, audit.OperationUpdate, audit.ResourceHealthProfile, userID)
	s.logger.Info("health profile saved", zap.String("user_id", userID))
	c.JSON(http.StatusOK, p)
}

// ListSuggestions returns the caller's suggestions, newest first
func (s *Server) ListSuggestions(c *gin.Context) {
	suggestions, err := s.profiles.ListSuggestions(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, s.logger, "Failed to list suggestions", err)
		return
	}
	if suggestions == nil {
		suggestions = []model.HealthSuggestion{}
	}
	c.JSON(http.StatusOK, suggestions)
}

// AddSuggestion stores a new suggestion for the caller
func (s *Server) AddSuggestion(c *gin.Context) {
	var req api.SuggestionRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}

	sg := &model.HealthSuggestion{
		Type:        model.SuggestionType(req.Type),
		Title:       req.Title,
		Description: derefString(req.Description),
		Priority:    model.Priority(derefString(req.Priority)),
		DueDate:     dateToTimePtr(req.DueDate),
	}
	if err := s.profiles.AddSuggestion(c.Request.Context(), middleware.UserID(c), sg); err != nil {
		respondError(c, s.logger, "Failed to add suggestion", err)
		return
	}
	s.recordChange(c, audit.OperationCreate, audit.ResourceHealthSuggestion, sg.ID)
	c.JSON(http.StatusCreated, sg)
}

// CompleteSuggestion marks a suggestion as done
func (s *Server) CompleteSuggestion(c *gin.Context, id string) {
	if err := s.profiles.CompleteSuggestion(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, s.logger, "Failed to complete suggestion", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListContacts returns the caller's emergency contacts, primary first
func (s *Server) ListContacts(c *gin.Context) {
	contacts, err := s.profiles.ListEmergencyContacts(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, s.logger, "Failed to list emergency contacts", err)
		return
	}
	if contacts == nil {
		contacts = []model.EmergencyContact{}
	}
	c.JSON(http.StatusOK, contacts)
}

// AddContact stores a new emergency contact for the caller
func (s *Server) AddContact(c *gin.Context) {
	var req api.ContactRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}

	contact := &model.EmergencyContact{
		Name:      req.Name,
		Phone:     req.Phone,
		Relation:  derefString(req.Relation),
		IsPrimary: derefBool(req.IsPrimary),
	}
	if err := s.profiles.AddEmergencyContact(c.Request.Context(), middleware.UserID(c), contact); err != nil {
		respondError(c, s.logger, "Failed to add emergency contact", err)
		return
	}
	s.recordChange(c, audit.OperationCreate, audit.ResourceEmergencyContact, contact.ID)
	c.JSON(http.StatusCreated, contact)
}
