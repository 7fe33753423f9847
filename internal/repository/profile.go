package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/profile"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

// HealthProfileRepository manages health profiles, suggestions and emergency contacts
type HealthProfileRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewHealthProfileRepository creates a new HealthProfileRepository
func NewHealthProfileRepository(db *pgxpool.Pool, logger *zap.Logger) *HealthProfileRepository {
	return &HealthProfileRepository{
		db:     db,
		logger: logger,
	}
}

var _ profile.Store = (*HealthProfileRepository)(nil)

// GetHealthProfile retrieves the profile of a user
func (r *HealthProfileRepository) GetHealthProfile(ctx context.Context, userID string) (*model.HealthProfile, error) {
	query := `
		SELECT user_id, age, gender, height_cm, weight_kg, blood_group, date_of_birth,
		       medical_conditions, allergies, medications,
		       diet_type, exercise_level, sleep_hours, stress_level,
		       created_at, updated_at
		FROM health_profiles
		WHERE user_id = $1
	`

	var p model.HealthProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Age,
		&p.Gender,
		&p.HeightCM,
		&p.WeightKG,
		&p.BloodGroup,
		&p.DateOfBirth,
		&p.MedicalConditions,
		&p.Allergies,
		&p.Medications,
		&p.Preferences.DietType,
		&p.Preferences.ExerciseLevel,
		&p.Preferences.SleepHours,
		&p.Preferences.StressLevel,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrProfileNotFound
		}
		r.logger.Error("failed to get health profile", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get health profile: %w", err)
	}
	return &p, nil
}

// SaveHealthProfile upserts a profile and reports whether it was created
func (r *HealthProfileRepository) SaveHealthProfile(ctx context.Context, p *model.HealthProfile) (bool, error) {
	query := `
		INSERT INTO health_profiles (
			user_id, age, gender, height_cm, weight_kg, blood_group, date_of_birth,
			medical_conditions, allergies, medications,
			diet_type, exercise_level, sleep_hours, stress_level,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		ON CONFLICT (user_id) DO UPDATE SET
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			height_cm = EXCLUDED.height_cm,
			weight_kg = EXCLUDED.weight_kg,
			blood_group = EXCLUDED.blood_group,
			date_of_birth = EXCLUDED.date_of_birth,
			medical_conditions = EXCLUDED.medical_conditions,
			allergies = EXCLUDED.allergies,
			medications = EXCLUDED.medications,
			diet_type = EXCLUDED.diet_type,
			exercise_level = EXCLUDED.exercise_level,
			sleep_hours = EXCLUDED.sleep_hours,
			stress_level = EXCLUDED.stress_level,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0), created_at
	`

	var created bool
	err := r.db.QueryRow(ctx, query,
		p.UserID,
		p.Age,
		p.Gender,
		p.HeightCM,
		p.WeightKG,
		p.BloodGroup,
		p.DateOfBirth,
		nonNil(p.MedicalConditions),
		nonNil(p.Allergies),
		nonNil(p.Medications),
		p.Preferences.DietType,
		p.Preferences.ExerciseLevel,
		p.Preferences.SleepHours,
		p.Preferences.StressLevel,
		p.UpdatedAt,
	).Scan(&created, &p.CreatedAt)
	if err != nil {
		r.logger.Error("failed to save health profile", zap.Error(err), zap.String("user_id", p.UserID))
		return false, fmt.Errorf("failed to save health profile: %w", err)
	}
	return created, nil
}

// SaveSuggestion inserts a health suggestion
func (r *HealthProfileRepository) SaveSuggestion(ctx context.Context, s *model.HealthSuggestion) error {
	query := `
		INSERT INTO health_suggestions (id, user_id, type, title, description, priority, due_date, completed, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.Type,
		s.Title,
		s.Description,
		s.Priority,
		s.DueDate,
		s.Completed,
		s.CreatedAt,
		s.CompletedAt,
	)
	if err != nil {
		r.logger.Error("failed to save health suggestion", zap.Error(err), zap.String("user_id", s.UserID))
		return fmt.Errorf("failed to save health suggestion: %w", err)
	}
	return nil
}

// ListSuggestions retrieves a user's suggestions, newest first
func (r *HealthProfileRepository) ListSuggestions(ctx context.Context, userID string) ([]model.HealthSuggestion, error) {
	query := `
		SELECT id, user_id, type, title, description, priority, due_date, completed, created_at, completed_at
		FROM health_suggestions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to get health suggestions", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get health suggestions: %w", err)
	}
	defer rows.Close()

	var out []model.HealthSuggestion
	for rows.Next() {
		var s model.HealthSuggestion
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Type,
			&s.Title,
			&s.Description,
			&s.Priority,
			&s.DueDate,
			&s.Completed,
			&s.CreatedAt,
			&s.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan health suggestion: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating health suggestions: %w", err)
	}
	return out, nil
}

// CompleteSuggestion marks a suggestion of userID as completed
func (r *HealthProfileRepository) CompleteSuggestion(ctx context.Context, userID, suggestionID string, at time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE health_suggestions SET completed = TRUE, completed_at = $1
		WHERE id = $2 AND user_id = $3
	`, at, suggestionID, userID)
	if err != nil {
		r.logger.Error("failed to complete health suggestion", zap.Error(err), zap.String("suggestion_id", suggestionID))
		return fmt.Errorf("failed to complete health suggestion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return profile.ErrSuggestionNotFound
	}
	return nil
}

// SaveEmergencyContact inserts an emergency contact
func (r *HealthProfileRepository) SaveEmergencyContact(ctx context.Context, c *model.EmergencyContact) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO emergency_contacts (id, user_id, name, phone, relation, is_primary)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.UserID, c.Name, c.Phone, c.Relation, c.IsPrimary)
	if err != nil {
		r.logger.Error("failed to save emergency contact", zap.Error(err), zap.String("user_id", c.UserID))
		return fmt.Errorf("failed to save emergency contact: %w", err)
	}
	return nil
}

// ListEmergencyContacts retrieves a user's contacts, primary first
func (r *HealthProfileRepository) ListEmergencyContacts(ctx context.Context, userID string) ([]model.EmergencyContact, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, phone, relation, is_primary
		FROM emergency_contacts
		WHERE user_id = $1
		ORDER BY is_primary DESC, name ASC
	`, userID)
	if err != nil {
		r.logger.Error("failed to get emergency contacts", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get emergency contacts: %w", err)
	}

	contacts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.EmergencyContact, error) {
		var c model.EmergencyContact
		err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Relation, &c.IsPrimary)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan emergency contacts: %w", err)
	}
	return contacts, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
