package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/identity"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/middleware"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/profile"
)

// Service errors keep their HTTP mapping however deeply they are wrapped
func TestProperty_ErrorStatusMapping(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{chat.ErrConversationNotFound, http.StatusNotFound, middleware.CodeNotFound},
		{profile.ErrProfileNotFound, http.StatusNotFound, middleware.CodeNotFound},
		{profile.ErrSuggestionNotFound, http.StatusNotFound, middleware.CodeNotFound},
		{identity.ErrUserNotFound, http.StatusNotFound, middleware.CodeNotFound},
		{profile.ErrInvalidInput, http.StatusBadRequest, middleware.CodeValidation},
		{chat.ErrTitleRequired, http.StatusBadRequest, middleware.CodeValidation},
		{identity.ErrInvalidProfile, http.StatusBadRequest, middleware.CodeValidation},
		{identity.ErrNotSignedIn, http.StatusUnauthorized, middleware.CodeUnauthorized},
		{chat.ErrSessionClosed, http.StatusConflict, middleware.CodeConflict},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError, middleware.CodeInternal},
	}

	properties.Property("wrapped errors map to the status of their sentinel", prop.ForAll(
		func(index, depth int, context string) bool {
			tc := cases[index]
			err := tc.err
			for i := 0; i < depth; i++ {
				err = fmt.Errorf("%s: %w", context, err)
			}
			status, code := statusFor(err)
			if status != tc.status || code != tc.code {
				t.Logf("%v mapped to %d %s", err, status, code)
				return false
			}
			return true
		},
		gen.IntRange(0, len(cases)-1),
		gen.IntRange(0, 4),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Every error response carries a code and a message; only server errors hide
// their details
func TestProperty_ErrorResponseStructure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	sentinels := []error{
		chat.ErrConversationNotFound,
		profile.ErrInvalidInput,
		identity.ErrNotSignedIn,
		fmt.Errorf("disk full"),
	}

	properties.Property("error responses follow the standard structure", prop.ForAll(
		func(index int, message string) bool {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/conversations/x", nil)

			respondError(c, zap.NewNop(), message, sentinels[index])

			var resp middleware.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Logf("invalid body: %s", w.Body.String())
				return false
			}
			if resp.Code == "" || resp.Message != message {
				return false
			}
			if w.Code == http.StatusInternalServerError {
				return resp.Details == nil && len(c.Errors) == 1
			}
			return resp.Details["reason"] != nil && len(c.Errors) == 0
		},
		gen.IntRange(0, len(sentinels)-1),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Malformed JSON never reaches a service
func TestProperty_MalformedBodiesAreRejected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	server := NewServer(Config{Logger: zap.NewNop()})
	routes := map[string]gin.HandlerFunc{
		"/auth/session":               server.SignIn,
		"/me":                         server.UpdateMe,
		"/modes/suggest":              server.SuggestMode,
		"/session/language":           server.SetLanguage,
		"/session/mode":               server.SetMode,
		"/messages":                   server.SendMessage,
		"/images":                     server.GenerateImage,
		"/health-profile":             server.SaveHealthProfile,
		"/health-profile/suggestions": server.AddSuggestion,
		"/health-profile/contacts":    server.AddContact,
	}
	paths := make([]interface{}, 0, len(routes))
	for path := range routes {
		paths = append(paths, path)
	}

	properties.Property("invalid JSON answers VALIDATION_ERROR", prop.ForAll(
		func(path string, garbage string) bool {
			router := gin.New()
			router.POST(path, routes[path])

			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{"+garbage))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			var resp middleware.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				return false
			}
			return w.Code == http.StatusBadRequest && resp.Code == middleware.CodeValidation
		},
		gen.OneConstOf(paths...),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
