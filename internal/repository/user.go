package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/identity"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
	"go.uber.org/zap"
)

// UserRepository manages user profiles
type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

var _ identity.UserStore = (*UserRepository)(nil)

const userColumns = `uid, email, display_name, photo_url, provider, created_at, last_login`

func scanUser(row pgx.Row) (*model.UserProfile, error) {
	var u model.UserProfile
	if err := row.Scan(&u.UID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.Provider, &u.CreatedAt, &u.LastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUser retrieves a user by uid
func (r *UserRepository) GetUser(ctx context.Context, uid string) (*model.UserProfile, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid))
	if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		r.logger.Error("failed to get user", zap.Error(err), zap.String("user_id", uid))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, err
}

// UpsertUser creates the user or refreshes its profile and last login
func (r *UserRepository) UpsertUser(ctx context.Context, u *model.UserProfile) error {
	query := `
		INSERT INTO users (uid, email, display_name, photo_url, provider, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			photo_url = EXCLUDED.photo_url,
			provider = EXCLUDED.provider,
			last_login = EXCLUDED.last_login
	`

	_, err := r.db.Exec(ctx, query, u.UID, u.Email, u.DisplayName, u.PhotoURL, u.Provider, u.CreatedAt, u.LastLogin)
	if err != nil {
		r.logger.Error("failed to upsert user", zap.Error(err), zap.String("user_id", u.UID))
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// UpdateUserProfile changes the display name and photo; nil fields are kept
func (r *UserRepository) UpdateUserProfile(ctx context.Context, uid string, update identity.ProfileUpdate) (*model.UserProfile, error) {
	query := `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    photo_url = COALESCE($3, photo_url)
		WHERE uid = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, uid, update.DisplayName, update.PhotoURL))
	if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		r.logger.Error("failed to update user", zap.Error(err), zap.String("user_id", uid))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, err
}
