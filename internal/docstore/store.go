// Package docstore implements the persistence interfaces on Cloud Firestore.
package docstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/security"
	"go.uber.org/zap"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
	usersCollection         = "users"
	profilesCollection      = "health_profiles"
	suggestionsCollection   = "suggestions"
	contactsCollection      = "contacts"
)

// Store is a Firestore-backed chat.PersistenceGateway, profile.Store and
// identity.UserStore
type Store struct {
	client *firestore.Client
	sealer *security.Encryptor
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a Firestore store for projectID. The client honours
// FIRESTORE_EMULATOR_HOST.
func NewStore(ctx context.Context, projectID string, sealer *security.Encryptor, logger *zap.Logger) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, sealer: sealer, logger: logger, now: time.Now}, nil
}

// Close releases the client
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reads a missing document to check connectivity
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(usersCollection).Doc("_ping").Get(ctx)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

func (s *Store) conversationsCol() *firestore.CollectionRef {
	return s.client.Collection(conversationsCollection)
}

func (s *Store) conversationDoc(id string) *firestore.DocumentRef {
	return s.conversationsCol().Doc(id)
}

func (s *Store) messagesCol(conversationID string) *firestore.CollectionRef {
	return s.conversationDoc(conversationID).Collection(messagesCollection)
}

func (s *Store) userDoc(uid string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(uid)
}

func (s *Store) profileDoc(uid string) *firestore.DocumentRef {
	return s.client.Collection(profilesCollection).Doc(uid)
}

func (s *Store) suggestionsCol(uid string) *firestore.CollectionRef {
	return s.profileDoc(uid).Collection(suggestionsCollection)
}

func (s *Store) contactsCol(uid string) *firestore.CollectionRef {
	return s.profileDoc(uid).Collection(contactsCollection)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
