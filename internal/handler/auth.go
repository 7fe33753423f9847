package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/identity"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/middleware"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/api"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

// SignIn records a login and opens the user's session
func (s *Server) SignIn(c *gin.Context) {
	var req api.SignInRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}
	if strings.TrimSpace(req.Uid) == "" {
		middleware.Abort(c, http.StatusBadRequest, middleware.CodeValidation, "uid is required", nil)
		return
	}

	u, err := s.identity.SignIn(c.Request.Context(), model.UserProfile{
		UID:         req.Uid,
		Email:       emailString(req.Email),
		DisplayName: derefString(req.DisplayName),
		PhotoURL:    derefString(req.PhotoUrl),
		Provider:    derefString(req.Provider),
	})
	if err != nil {
		respondError(c, s.logger, "Failed to sign in", err)
		return
	}

	c.Set(middleware.UserIDKey, u.UID)
	s.sessions.Open(c.Request.Context(), u.UID)

	c.JSON(http.StatusOK, u)
}

// SignOut ends the session of the caller
func (s *Server) SignOut(c *gin.Context) {
	s.identity.SignOut(middleware.UserID(c))
	c.Status(http.StatusNoContent)
}

// GetMe returns the cached profile of the caller
func (s *Server) GetMe(c *gin.Context, params api.GetMeParams) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	var (
		u   *model.UserProfile
		err error
	)
	if derefBool(params.Force) {
		u, err = s.identity.GetUserData(ctx, userID, true)
	} else {
		u, err = s.identity.CurrentUser(ctx, userID)
	}
	if err != nil {
		respondError(c, s.logger, "Failed to get user profile", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateMe changes the display name or photo of the caller
func (s *Server) UpdateMe(c *gin.Context) {
	var req api.UpdateMeRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}

	u, err := s.identity.UpdateUserProfile(c.Request.Context(), middleware.UserID(c), identity.ProfileUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoUrl,
	})
	if err != nil {
		respondError(c, s.logger, "Failed to update user profile", err)
		return
	}
	s.recordChange(c, audit.OperationUpdate, audit.ResourceUser, u.UID)
	c.JSON(http.StatusOK, u)
}
