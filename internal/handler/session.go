package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/middleware"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/api"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

func (s *Server) session(c *gin.Context) *chat.SessionManager {
	return s.sessions.Session(middleware.UserID(c))
}

// ListModes returns the health mode catalog
func (s *Server) ListModes(c *gin.Context) {
	c.JSON(http.StatusOK, healthmode.All())
}

// SuggestMode classifies free text into a health mode
func (s *Server) SuggestMode(c *gin.Context) {
	var req api.SuggestModeRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}
	emergency := healthmode.DetectEmergencyKeywords(req.Text)
	mode := healthmode.SuggestHealthMode(req.Text)
	if emergency {
		mode = healthmode.Emergency
	}
	c.JSON(http.StatusOK, api.SuggestModeResponse{
		Mode:      string(mode),
		Emergency: emergency,
	})
}

// GetSession returns a snapshot of the caller's session
func (s *Server) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.session(c).State())
}

// SetLanguage changes the session language
func (s *Server) SetLanguage(c *gin.Context) {
	var req api.SetLanguageRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}
	lang, ok := model.ParseLanguage(req.Language)
	if !ok {
		middleware.Abort(c, http.StatusBadRequest, middleware.CodeValidation, "Unsupported language",
			map[string]interface{}{"language": req.Language})
		return
	}

	session := s.session(c)
	changed := session.Language() != lang
	if err := session.SetLanguage(lang); err != nil {
		respondError(c, s.logger, "Failed to set language", err)
		return
	}
	c.JSON(http.StatusOK, api.LanguageResponse{Language: string(lang), Changed: changed})
}

// SetSidebar stores the sidebar flag
func (s *Server) SetSidebar(c *gin.Context) {
	var req api.SetSidebarRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}
	s.session(c).SetSidebarCollapsed(req.Collapsed)
	c.JSON(http.StatusOK, gin.H{"sidebar_collapsed": req.Collapsed})
}

// ToggleLanguage switches between English and Hindi. Toggles inside the
// debounce window are ignored.
func (s *Server) ToggleLanguage(c *gin.Context) {
	lang, changed := s.session(c).ToggleLanguage()
	c.JSON(http.StatusOK, api.LanguageResponse{Language: string(lang), Changed: changed})
}

// SetMode pins a health mode and starts a new conversation with its welcome
func (s *Server) SetMode(c *gin.Context) {
	var req api.SetModeRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}
	id := healthmode.ID(req.Mode)
	if !healthmode.IsValid(id) {
		middleware.Abort(c, http.StatusBadRequest, middleware.CodeValidation, "Unknown health mode",
			map[string]interface{}{"mode": req.Mode})
		return
	}

	session := s.session(c)
	mode := session.SetHealthMode(id)
	c.JSON(http.StatusOK, gin.H{
		"mode":     mode,
		"messages": session.Messages(),
	})
}

// NewConversation clears the active conversation
func (s *Server) NewConversation(c *gin.Context) {
	session := s.session(c)
	session.NewConversation()
	c.JSON(http.StatusOK, session.State())
}

// SendMessage routes a user message. A new conversation answers 202 before
// the reply exists; the reply arrives on the event stream.
func (s *Server) SendMessage(c *gin.Context) {
	var req api.SendMessageRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}

	var mode *healthmode.ID
	if req.HealthMode != nil {
		id := healthmode.ID(*req.HealthMode)
		if !healthmode.IsValid(id) {
			middleware.Abort(c, http.StatusBadRequest, middleware.CodeValidation, "Unknown health mode",
				map[string]interface{}{"mode": *req.HealthMode})
			return
		}
		mode = &id
	}

	conversationID, err := s.session(c).SendMessage(c.Request.Context(), req.Content, mode)
	if err != nil {
		respondError(c, s.logger, "Failed to send message", err)
		return
	}
	if conversationID == "" {
		c.JSON(http.StatusOK, api.SendMessageResponse{Sent: false})
		return
	}

	s.logger.Debug("message accepted",
		zap.String("user_id", middleware.UserID(c)),
		zap.String("conversation_id", conversationID),
	)
	c.JSON(http.StatusAccepted, api.SendMessageResponse{ConversationId: conversationID, Sent: true})
}

// GenerateImage asks for an image and waits for the reply
func (s *Server) GenerateImage(c *gin.Context) {
	var req api.GenerateImageRequest
	if !bindJSON(c, s.logger, &req) {
		return
	}

	session := s.session(c)
	conversationID, err := session.GenerateImage(c.Request.Context(), req.Prompt)
	if err != nil {
		respondError(c, s.logger, "Failed to generate image", err)
		return
	}
	if conversationID == "" {
		middleware.Abort(c, http.StatusBadRequest, middleware.CodeValidation, "prompt is required", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conversationID,
		"message":         lastReply(session.Messages()),
	})
}

// lastReply returns the newest assistant message or nil
func lastReply(msgs []model.Message) *model.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.MessageRoleAssistant {
			m := msgs[i]
			return &m
		}
	}
	return nil
}
