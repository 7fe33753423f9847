package docstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/profile"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

type profileDoc struct {
	Age               *int       `firestore:"age"`
	Gender            string     `firestore:"gender"`
	HeightCM          *float64   `firestore:"height_cm"`
	WeightKG          *float64   `firestore:"weight_kg"`
	BloodGroup        string     `firestore:"blood_group"`
	DateOfBirth       *time.Time `firestore:"date_of_birth"`
	MedicalConditions []string   `firestore:"medical_conditions"`
	Allergies         []string   `firestore:"allergies"`
	Medications       []string   `firestore:"medications"`
	DietType          string     `firestore:"diet_type"`
	ExerciseLevel     string     `firestore:"exercise_level"`
	SleepHours        *float64   `firestore:"sleep_hours"`
	StressLevel       string     `firestore:"stress_level"`
	CreatedAt         time.Time  `firestore:"created_at"`
	UpdatedAt         time.Time  `firestore:"updated_at"`
}

func toProfileDoc(p *model.HealthProfile) profileDoc {
	return profileDoc{
		Age:               p.Age,
		Gender:            p.Gender,
		HeightCM:          p.HeightCM,
		WeightKG:          p.WeightKG,
		BloodGroup:        p.BloodGroup,
		DateOfBirth:       p.DateOfBirth,
		MedicalConditions: p.MedicalConditions,
		Allergies:         p.Allergies,
		Medications:       p.Medications,
		DietType:          p.Preferences.DietType,
		ExerciseLevel:     p.Preferences.ExerciseLevel,
		SleepHours:        p.Preferences.SleepHours,
		StressLevel:       p.Preferences.StressLevel,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toProfile(uid string, d profileDoc) *model.HealthProfile {
	return &model.HealthProfile{
		UserID:            uid,
		Age:               d.Age,
		Gender:            d.Gender,
		HeightCM:          d.HeightCM,
		WeightKG:          d.WeightKG,
		BloodGroup:        d.BloodGroup,
		DateOfBirth:       d.DateOfBirth,
		MedicalConditions: d.MedicalConditions,
		Allergies:         d.Allergies,
		Medications:       d.Medications,
		Preferences: model.LifestylePreferences{
			DietType:      d.DietType,
			ExerciseLevel: d.ExerciseLevel,
			SleepHours:    d.SleepHours,
			StressLevel:   d.StressLevel,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type suggestionDoc struct {
	Type        string     `firestore:"type"`
	Title       string     `firestore:"title"`
	Description string     `firestore:"description"`
	Priority    string     `firestore:"priority"`
	DueDate     *time.Time `firestore:"due_date"`
	Completed   bool       `firestore:"completed"`
	CreatedAt   time.Time  `firestore:"created_at"`
	CompletedAt *time.Time `firestore:"completed_at"`
}

type contactDoc struct {
	Name      string `firestore:"name"`
	Phone     string `firestore:"phone"`
	Relation  string `firestore:"relation"`
	IsPrimary bool   `firestore:"is_primary"`
}

var _ profile.Store = (*Store)(nil)

func (s *Store) GetHealthProfile(ctx context.Context, userID string) (*model.HealthProfile, error) {
	snap, err := s.profileDoc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, profile.ErrProfileNotFound
		}
		return nil, fmt.Errorf("firestore GetHealthProfile: %w", err)
	}
	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode profileDoc: %w", err)
	}
	return toProfile(userID, doc), nil
}

// SaveHealthProfile keeps created_at of an existing profile
func (s *Store) SaveHealthProfile(ctx context.Context, p *model.HealthProfile) (bool, error) {
	ref := s.profileDoc(p.UserID)
	created := false

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case isNotFound(err):
			created = true
			p.CreatedAt = p.UpdatedAt
		case err != nil:
			return err
		default:
			var existing profileDoc
			if err := snap.DataTo(&existing); err != nil {
				return err
			}
			created = false
			p.CreatedAt = existing.CreatedAt
		}
		return tx.Set(ref, toProfileDoc(p))
	})
	if err != nil {
		return false, fmt.Errorf("firestore SaveHealthProfile: %w", err)
	}
	return created, nil
}

func (s *Store) SaveSuggestion(ctx context.Context, sg *model.HealthSuggestion) error {
	_, err := s.suggestionsCol(sg.UserID).Doc(sg.ID).Set(ctx, suggestionDoc{
		Type:        string(sg.Type),
		Title:       sg.Title,
		Description: sg.Description,
		Priority:    string(sg.Priority),
		DueDate:     sg.DueDate,
		Completed:   sg.Completed,
		CreatedAt:   sg.CreatedAt,
		CompletedAt: sg.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("firestore SaveSuggestion: %w", err)
	}
	return nil
}

func (s *Store) ListSuggestions(ctx context.Context, userID string) ([]model.HealthSuggestion, error) {
	iter := s.suggestionsCol(userID).OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []model.HealthSuggestion
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSuggestions: %w", err)
		}
		var d suggestionDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode suggestionDoc: %w", err)
		}
		out = append(out, model.HealthSuggestion{
			ID:          snap.Ref.ID,
			UserID:      userID,
			Type:        model.SuggestionType(d.Type),
			Title:       d.Title,
			Description: d.Description,
			Priority:    model.Priority(d.Priority),
			DueDate:     d.DueDate,
			Completed:   d.Completed,
			CreatedAt:   d.CreatedAt,
			CompletedAt: d.CompletedAt,
		})
	}
	return out, nil
}

func (s *Store) CompleteSuggestion(ctx context.Context, userID, suggestionID string, at time.Time) error {
	_, err := s.suggestionsCol(userID).Doc(suggestionID).Update(ctx, []firestore.Update{
		{Path: "completed", Value: true},
		{Path: "completed_at", Value: at},
	})
	if err != nil {
		if isNotFound(err) {
			return profile.ErrSuggestionNotFound
		}
		return fmt.Errorf("firestore CompleteSuggestion: %w", err)
	}
	return nil
}

func (s *Store) SaveEmergencyContact(ctx context.Context, c *model.EmergencyContact) error {
	_, err := s.contactsCol(c.UserID).Doc(c.ID).Set(ctx, contactDoc{
		Name:      c.Name,
		Phone:     c.Phone,
		Relation:  c.Relation,
		IsPrimary: c.IsPrimary,
	})
	if err != nil {
		return fmt.Errorf("firestore SaveEmergencyContact: %w", err)
	}
	return nil
}

func (s *Store) ListEmergencyContacts(ctx context.Context, userID string) ([]model.EmergencyContact, error) {
	snaps, err := s.contactsCol(userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore ListEmergencyContacts: %w", err)
	}

	out := make([]model.EmergencyContact, 0, len(snaps))
	for _, snap := range snaps {
		var d contactDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode contactDoc: %w", err)
		}
		out = append(out, model.EmergencyContact{
			ID:        snap.Ref.ID,
			UserID:    userID,
			Name:      d.Name,
			Phone:     d.Phone,
			Relation:  d.Relation,
			IsPrimary: d.IsPrimary,
		})
	}
	sortContacts(out)
	return out, nil
}

func sortContacts(contacts []model.EmergencyContact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		if contacts[i].IsPrimary != contacts[j].IsPrimary {
			return contacts[i].IsPrimary
		}
		return contacts[i].Name < contacts[j].Name
	})
}
