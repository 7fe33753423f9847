package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /api/v1/health)
	GetHealth(c *gin.Context)
	// (POST /api/v1/auth/session)
	SignIn(c *gin.Context)
	// (DELETE /api/v1/auth/session)
	SignOut(c *gin.Context)
	// (GET /api/v1/me)
	GetMe(c *gin.Context, params GetMeParams)
	// (PUT /api/v1/me)
	UpdateMe(c *gin.Context)
	// (GET /api/v1/modes)
	ListModes(c *gin.Context)
	// (POST /api/v1/modes/suggest)
	SuggestMode(c *gin.Context)
	// (GET /api/v1/session)
	GetSession(c *gin.Context)
	// (PUT /api/v1/session/language)
	SetLanguage(c *gin.Context)
	// (POST /api/v1/session/language/toggle)
	ToggleLanguage(c *gin.Context)
	// (PUT /api/v1/session/sidebar)
	SetSidebar(c *gin.Context)
	// (PUT /api/v1/session/mode)
	SetMode(c *gin.Context)
	// (POST /api/v1/session/new)
	NewConversation(c *gin.Context)
	// (GET /api/v1/session/events)
	SessionEvents(c *gin.Context)
	// (POST /api/v1/messages)
	SendMessage(c *gin.Context)
	// (POST /api/v1/images)
	GenerateImage(c *gin.Context)
	// (GET /api/v1/conversations)
	ListConversations(c *gin.Context)
	// (DELETE /api/v1/conversations)
	DeleteAllConversations(c *gin.Context)
	// (GET /api/v1/conversations/{id})
	LoadConversation(c *gin.Context, id string)
	// (PATCH /api/v1/conversations/{id})
	RenameConversation(c *gin.Context, id string)
	// (DELETE /api/v1/conversations/{id})
	DeleteConversation(c *gin.Context, id string)
	// (POST /api/v1/conversations/{id}/export)
	ExportConversation(c *gin.Context, id string)
	// (GET /api/v1/health-profile)
	GetHealthProfile(c *gin.Context)
	// (PUT /api/v1/health-profile)
	SaveHealthProfile(c *gin.Context)
	// (GET /api/v1/health-profile/suggestions)
	ListSuggestions(c *gin.Context)
	// (POST /api/v1/health-profile/suggestions)
	AddSuggestion(c *gin.Context)
	// (POST /api/v1/health-profile/suggestions/{id}/complete)
	CompleteSuggestion(c *gin.Context, id string)
	// (GET /api/v1/health-profile/contacts)
	ListContacts(c *gin.Context)
	// (POST /api/v1/health-profile/contacts)
	AddContact(c *gin.Context)
}

// ErrorHandler answers requests whose parameters could not be bound
type ErrorHandler func(c *gin.Context, err error, statusCode int)

// ServerInterfaceWrapper converts path and query parameters before calling
// the handler
type ServerInterfaceWrapper struct {
	Handler      ServerInterface
	ErrorHandler ErrorHandler
}

func (w *ServerInterfaceWrapper) pathID(c *gin.Context) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		w.ErrorHandler(c, fmt.Errorf("invalid format for parameter id: %w", err), http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// GetMe binds the force query parameter
func (w *ServerInterfaceWrapper) GetMe(c *gin.Context) {
	var params GetMeParams
	err := runtime.BindQueryParameter("form", true, false, "force", c.Request.URL.Query(), &params.Force)
	if err != nil {
		w.ErrorHandler(c, fmt.Errorf("invalid format for parameter force: %w", err), http.StatusBadRequest)
		return
	}
	w.Handler.GetMe(c, params)
}

func (w *ServerInterfaceWrapper) withID(handle func(c *gin.Context, id string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.pathID(c)
		if !ok {
			return
		}
		handle(c, id)
	}
}

// RegisterHandlers mounts the public operations on public and the rest on
// protected. Both routers are expected to be rooted at /api/v1.
func RegisterHandlers(public, protected gin.IRouter, si ServerInterface, errorHandler ErrorHandler) {
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, gin.H{"msg": err.Error()})
		}
	}
	w := &ServerInterfaceWrapper{Handler: si, ErrorHandler: errorHandler}

	public.GET("/health", si.GetHealth)
	public.POST("/auth/session", si.SignIn)
	public.GET("/modes", si.ListModes)
	public.POST("/modes/suggest", si.SuggestMode)

	protected.DELETE("/auth/session", si.SignOut)
	protected.GET("/me", w.GetMe)
	protected.PUT("/me", si.UpdateMe)

	protected.GET("/session", si.GetSession)
	protected.PUT("/session/language", si.SetLanguage)
	protected.POST("/session/language/toggle", si.ToggleLanguage)
	protected.PUT("/session/sidebar", si.SetSidebar)
	protected.PUT("/session/mode", si.SetMode)
	protected.POST("/session/new", si.NewConversation)
	protected.GET("/session/events", si.SessionEvents)

	protected.POST("/messages", si.SendMessage)
	protected.POST("/images", si.GenerateImage)

	protected.GET("/conversations", si.ListConversations)
	protected.DELETE("/conversations", si.DeleteAllConversations)
	protected.GET("/conversations/:id", w.withID(si.LoadConversation))
	protected.PATCH("/conversations/:id", w.withID(si.RenameConversation))
	protected.DELETE("/conversations/:id", w.withID(si.DeleteConversation))
	protected.POST("/conversations/:id/export", w.withID(si.ExportConversation))

	protected.GET("/health-profile", si.GetHealthProfile)
	protected.PUT("/health-profile", si.SaveHealthProfile)
	protected.GET("/health-profile/suggestions", si.ListSuggestions)
	protected.POST("/health-profile/suggestions", si.AddSuggestion)
	protected.POST("/health-profile/suggestions/:id/complete", w.withID(si.CompleteSuggestion))
	protected.GET("/health-profile/contacts", si.ListContacts)
	protected.POST("/health-profile/contacts", si.AddContact)
}
