package docstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/identity"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

var _ identity.UserStore = (*Store)(nil)

type userDoc struct {
	Email       string    `firestore:"email"`
	DisplayName string    `firestore:"display_name"`
	PhotoURL    string    `firestore:"photo_url"`
	Provider    string    `firestore:"provider"`
	CreatedAt   time.Time `firestore:"created_at"`
	LastLogin   time.Time `firestore:"last_login"`
}

func toUser(uid string, d userDoc) *model.UserProfile {
	return &model.UserProfile{
		UID:         uid,
		Email:       d.Email,
		DisplayName: d.DisplayName,
		PhotoURL:    d.PhotoURL,
		Provider:    d.Provider,
		CreatedAt:   d.CreatedAt,
		LastLogin:   d.LastLogin,
	}
}

func (s *Store) GetUser(ctx context.Context, uid string) (*model.UserProfile, error) {
	snap, err := s.userDoc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("firestore GetUser: %w", err)
	}
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode userDoc: %w", err)
	}
	return toUser(uid, d), nil
}

func (s *Store) UpsertUser(ctx context.Context, u *model.UserProfile) error {
	_, err := s.userDoc(u.UID).Set(ctx, userDoc{
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Provider:    u.Provider,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
	})
	if err != nil {
		return fmt.Errorf("firestore UpsertUser: %w", err)
	}
	return nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, uid string, update identity.ProfileUpdate) (*model.UserProfile, error) {
	var updates []firestore.Update
	if update.DisplayName != nil {
		updates = append(updates, firestore.Update{Path: "display_name", Value: *update.DisplayName})
	}
	if update.PhotoURL != nil {
		updates = append(updates, firestore.Update{Path: "photo_url", Value: *update.PhotoURL})
	}
	if len(updates) > 0 {
		if _, err := s.userDoc(uid).Update(ctx, updates); err != nil {
			if isNotFound(err) {
				return nil, identity.ErrUserNotFound
			}
			return nil, fmt.Errorf("firestore UpdateUserProfile: %w", err)
		}
	}
	return s.GetUser(ctx, uid)
}
