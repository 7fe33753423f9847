package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/middleware"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/pdf"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/api"
)

// ListConversations refreshes the roster and returns it newest first
func (s *Server) ListConversations(c *gin.Context) {
	session := s.session(c)
	session.LoadUserConversations(c.Request.Context())
	c.JSON(http.StatusOK, session.Conversations())
}

// DeleteAllConversations deletes every conversation of the caller. A partial
// failure reports how far the delete got.
func (s *Server) DeleteAllConversations(c *gin.Context) {
	deleted, err := s.session(c).DeleteAllConversations(c.Request.Context())
	if err != nil {
		var bulkErr *chat.BulkDeleteError
		if errors.As(err, &bulkErr) {
			_ = c.Error(err)
			s.logger.Error("bulk delete incomplete",
				zap.Error(err),
				zap.Int("deleted", bulkErr.Deleted),
				zap.Int("remaining", bulkErr.Remaining),
			)
			middleware.Abort(c, http.StatusInternalServerError, middleware.CodeInternal, "Failed to delete all conversations",
				map[string]interface{}{"deleted": bulkErr.Deleted, "remaining": bulkErr.Remaining})
			return
		}
		respondError(c, s.logger, "Failed to delete all conversations", err)
		return
	}
	c.JSON(http.StatusOK, api.DeleteAllResponse{Deleted: deleted})
}

// LoadConversation makes a conversation active and returns the session
func (s *Server) LoadConversation(c *gin.Context, id string) {
	session := s.session(c)
	session.LoadConversation(c.Request.Context(), id)
	if session.ActiveConversationID() != id {
		middleware.Abort(c, http.StatusNotFound, middleware.CodeNotFound, "Conversation not found",
			map[string]interface{}{"conversation_id": id})
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// RenameConversation sets a new title
func (s *Server) RenameConversation(c *gin.Context, id string) {
	var req api.RenameConversationRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}
	if err := s.session(c).RenameConversation(c.Request.Context(), id, req.Title); err != nil {
		respondError(c, s.logger, "Failed to rename conversation", err)
		return
	}
	s.recordChange(c, audit.OperationUpdate, audit.ResourceConversation, id)
	c.JSON(http.StatusOK, gin.H{"id": id, "title": req.Title})
}

// DeleteConversation deletes one conversation
func (s *Server) DeleteConversation(c *gin.Context, id string) {
	cleared, err := s.session(c).DeleteConversation(c.Request.Context(), id)
	if err != nil {
		respondError(c, s.logger, "Failed to delete conversation", err)
		return
	}
	c.JSON(http.StatusOK, api.DeleteConversationResponse{Deleted: true, ClearedActive: cleared})
}

// ExportConversation renders a conversation transcript as a PDF. A copy is
// stored and audited when an export store is configured.
func (s *Server) ExportConversation(c *gin.Context, id string) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	session := s.session(c)

	conv, msgs, err := session.Transcript(ctx, id)
	if err != nil {
		respondError(c, s.logger, "Failed to export conversation", err)
		return
	}

	var userName string
	if u, err := s.identity.GetUserData(ctx, userID, false); err == nil {
		userName = u.DisplayName
	}

	data, err := s.renderer.Generate(&pdf.TranscriptData{
		UserName:     userName,
		Conversation: *conv,
		Messages:     msgs,
		Language:     session.Language(),
	})
	if err != nil {
		respondError(c, s.logger, "Failed to render transcript", err)
		return
	}

	filename := fmt.Sprintf("%s.pdf", id)
	if s.exports != nil {
		blobName, err := s.exports.UploadPDF(ctx, userID+"/"+filename, data)
		if err != nil {
			respondError(c, s.logger, "Failed to store transcript", err)
			return
		}
		if s.auditor != nil {
			if err := s.auditor.LogExport(ctx, userID, id, blobName); err != nil {
				s.logger.Warn("failed to audit export", zap.Error(err), zap.String("conversation_id", id))
			}
		}
	}

	s.logger.Info("conversation exported",
		zap.String("user_id", userID),
		zap.String("conversation_id", id),
		zap.Int("messages", len(msgs)),
		zap.Int("size", len(data)),
	)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
