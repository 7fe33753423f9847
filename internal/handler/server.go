// Package handler implements the HTTP API on top of the session registry,
// the identity service and the health profile service.
package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/identity"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/middleware"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/pdf"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/api"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

// Sessions hands out the session of a signed-in user
type Sessions interface {
	Session(userID string) *chat.SessionManager
	Open(ctx context.Context, userID string) *chat.SessionManager
}

// Identity signs users in and out and serves their profiles
type Identity interface {
	SignIn(ctx context.Context, u model.UserProfile) (*model.UserProfile, error)
	SignOut(uid string)
	CurrentUser(ctx context.Context, uid string) (*model.UserProfile, error)
	GetUserData(ctx context.Context, uid string, force bool) (*model.UserProfile, error)
	UpdateUserProfile(ctx context.Context, uid string, update identity.ProfileUpdate) (*model.UserProfile, error)
}

// Profiles manages health profiles, suggestions and emergency contacts
type Profiles interface {
	GetHealthProfile(ctx context.Context, userID string) (*model.HealthProfile, error)
	SaveHealthProfile(ctx context.Context, userID string, p *model.HealthProfile) error
	AddSuggestion(ctx context.Context, userID string, sg *model.HealthSuggestion) error
	ListSuggestions(ctx context.Context, userID string) ([]model.HealthSuggestion, error)
	CompleteSuggestion(ctx context.Context, userID, suggestionID string) error
	AddEmergencyContact(ctx context.Context, userID string, c *model.EmergencyContact) error
	ListEmergencyContacts(ctx context.Context, userID string) ([]model.EmergencyContact, error)
}

// TranscriptRenderer renders a conversation as a PDF
type TranscriptRenderer interface {
	Generate(data *pdf.TranscriptData) ([]byte, error)
}

// ExportStore keeps a copy of every export
type ExportStore interface {
	UploadPDF(ctx context.Context, filename string, data []byte) (string, error)
}

// Auditor records exports and changes to user data
type Auditor interface {
	LogCreate(ctx context.Context, userID string, resource audit.ResourceType, resourceID string) error
	LogUpdate(ctx context.Context, userID string, resource audit.ResourceType, resourceID string) error
	LogExport(ctx context.Context, userID, conversationID, blobName string) error
}

// Pinger checks a backend dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the collaborators of a Server. Exports, Auditor and Pingers
// are optional.
type Config struct {
	Sessions Sessions
	Identity Identity
	Profiles Profiles
	Renderer TranscriptRenderer
	Exports  ExportStore
	Auditor  Auditor
	Pingers  map[string]Pinger
	Origins  []string
	Version  string
	Logger   *zap.Logger
}

// Server implements api.ServerInterface
type Server struct {
	sessions Sessions
	identity Identity
	profiles Profiles
	renderer TranscriptRenderer
	exports  ExportStore
	auditor  Auditor
	pingers  map[string]Pinger
	origins  []string
	version  string
	logger   *zap.Logger
}

var _ api.ServerInterface = (*Server)(nil)

// NewServer creates a new Server
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		sessions: cfg.Sessions,
		identity: cfg.Identity,
		profiles: cfg.Profiles,
		renderer: cfg.Renderer,
		exports:  cfg.Exports,
		auditor:  cfg.Auditor,
		pingers:  cfg.Pingers,
		origins:  cfg.Origins,
		version:  cfg.Version,
		logger:   logger,
	}
}

// recordChange audits a create or update; failures are only logged
func (s *Server) recordChange(c *gin.Context, op audit.OperationType, resource audit.ResourceType, resourceID string) {
	if s.auditor == nil {
		return
	}
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	var err error
	if op == audit.OperationCreate {
		err = s.auditor.LogCreate(ctx, userID, resource, resourceID)
	} else {
		err = s.auditor.LogUpdate(ctx, userID, resource, resourceID)
	}
	if err != nil {
		s.logger.Warn("failed to write audit entry",
			zap.Error(err),
			zap.String("resource", string(resource)),
			zap.String("resource_id", resourceID),
		)
	}
}
