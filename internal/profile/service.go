package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrProfileNotFound is returned when a user has no health profile yet
	ErrProfileNotFound = errors.New("health profile not found")
	// ErrSuggestionNotFound is returned for unknown suggestion ids
	ErrSuggestionNotFound = errors.New("health suggestion not found")
	// ErrInvalidInput wraps every validation failure of the service
	ErrInvalidInput = errors.New("invalid health data")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Store persists health profiles, suggestions and emergency contacts
type Store interface {
	GetHealthProfile(ctx context.Context, userID string) (*model.HealthProfile, error)
	// SaveHealthProfile creates or updates the profile and reports whether it was created
	SaveHealthProfile(ctx context.Context, p *model.HealthProfile) (bool, error)
	SaveSuggestion(ctx context.Context, s *model.HealthSuggestion) error
	// ListSuggestions returns suggestions newest first
	ListSuggestions(ctx context.Context, userID string) ([]model.HealthSuggestion, error)
	CompleteSuggestion(ctx context.Context, userID, suggestionID string, at time.Time) error
	SaveEmergencyContact(ctx context.Context, c *model.EmergencyContact) error
	// ListEmergencyContacts returns contacts with the primary ones first
	ListEmergencyContacts(ctx context.Context, userID string) ([]model.EmergencyContact, error)
}

// Service manages the health profile data behind personalized mode
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new Service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// GetHealthProfile returns the profile of userID
func (s *Service) GetHealthProfile(ctx context.Context, userID string) (*model.HealthProfile, error) {
	if userID == "" {
		return nil, invalid("user ID is required")
	}
	return s.store.GetHealthProfile(ctx, userID)
}

// SaveHealthProfile validates and stores a profile
func (s *Service) SaveHealthProfile(ctx context.Context, userID string, p *model.HealthProfile) error {
	if userID == "" {
		return invalid("user ID is required")
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 130) {
		return invalid("age must be between 0 and 130")
	}
	if p.HeightCM != nil && *p.HeightCM <= 0 {
		return invalid("height must be positive")
	}
	if p.WeightKG != nil && *p.WeightKG <= 0 {
		return invalid("weight must be positive")
	}
	if p.Preferences.SleepHours != nil && (*p.Preferences.SleepHours < 0 || *p.Preferences.SleepHours > 24) {
		return invalid("sleep hours must be between 0 and 24")
	}

	p.UserID = userID
	p.UpdatedAt = time.Now()

	created, err := s.store.SaveHealthProfile(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to save health profile: %w", err)
	}

	s.logger.Info("health profile saved",
		zap.String("user_id", userID),
		zap.Bool("created", created),
	)
	return nil
}

// AddSuggestion stores a new, uncompleted suggestion
func (s *Service) AddSuggestion(ctx context.Context, userID string, sg *model.HealthSuggestion) error {
	if userID == "" {
		return invalid("user ID is required")
	}
	if strings.TrimSpace(sg.Title) == "" {
		return invalid("suggestion title is required")
	}
	switch sg.Type {
	case model.SuggestionDiet, model.SuggestionExercise, model.SuggestionMedication,
		model.SuggestionCheckup, model.SuggestionLifestyle, model.SuggestionEmergency:
	default:
		return invalid("invalid suggestion type: %s", sg.Type)
	}
	switch sg.Priority {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityCritical:
	case "":
		sg.Priority = model.PriorityMedium
	default:
		return invalid("invalid suggestion priority: %s", sg.Priority)
	}

	sg.ID = uuid.New().String()
	sg.UserID = userID
	sg.Completed = false
	sg.CompletedAt = nil
	sg.CreatedAt = time.Now()

	if err := s.store.SaveSuggestion(ctx, sg); err != nil {
		return fmt.Errorf("failed to save health suggestion: %w", err)
	}
	return nil
}

// ListSuggestions returns the user's suggestions newest first
func (s *Service) ListSuggestions(ctx context.Context, userID string) ([]model.HealthSuggestion, error) {
	return s.store.ListSuggestions(ctx, userID)
}

// CompleteSuggestion marks a suggestion as done
func (s *Service) CompleteSuggestion(ctx context.Context, userID, suggestionID string) error {
	if err := s.store.CompleteSuggestion(ctx, userID, suggestionID, time.Now()); err != nil {
		return fmt.Errorf("failed to complete suggestion: %w", err)
	}
	return nil
}

// AddEmergencyContact stores a contact
func (s *Service) AddEmergencyContact(ctx context.Context, userID string, c *model.EmergencyContact) error {
	if userID == "" {
		return invalid("user ID is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("contact name is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return invalid("contact phone is required")
	}

	c.ID = uuid.New().String()
	c.UserID = userID
	if err := s.store.SaveEmergencyContact(ctx, c); err != nil {
		return fmt.Errorf("failed to save emergency contact: %w", err)
	}
	return nil
}

// ListEmergencyContacts returns the user's contacts, primary first
func (s *Service) ListEmergencyContacts(ctx context.Context, userID string) ([]model.EmergencyContact, error) {
	return s.store.ListEmergencyContacts(ctx, userID)
}

// Snapshot is everything personalized mode knows about a user
type Snapshot struct {
	Profile     *model.HealthProfile
	Suggestions []model.HealthSuggestion
	Contacts    []model.EmergencyContact
}

// Load fetches profile, suggestions and contacts in parallel. A missing
// profile is not an error.
func (s *Service) Load(ctx context.Context, userID string) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.store.GetHealthProfile(gctx, userID)
		if errors.Is(err, ErrProfileNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load health profile: %w", err)
		}
		snap.Profile = p
		return nil
	})
	g.Go(func() error {
		sg, err := s.store.ListSuggestions(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load health suggestions: %w", err)
		}
		snap.Suggestions = sg
		return nil
	})
	g.Go(func() error {
		c, err := s.store.ListEmergencyContacts(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load emergency contacts: %w", err)
		}
		snap.Contacts = c
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// PromptContext loads the snapshot of userID and renders it for the system
// prompt. It returns an empty string when the user has no profile.
func (s *Service) PromptContext(ctx context.Context, userID string) (string, error) {
	snap, err := s.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	if snap.Profile == nil {
		return "", nil
	}
	return FormatContext(snap), nil
}
