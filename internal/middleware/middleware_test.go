package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vcscsvcscs/swasth-ai/backend/pkg/api"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestIdentityMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "not signed in", header: "u-2", wantStatus: http.StatusUnauthorized},
		{name: "signed in", header: "u-1", wantStatus: http.StatusOK, wantUser: "u-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(IdentityMiddleware(signedIn{"u-1": true}))

			var seen string
			router.GET("/api/v1/session", func(c *gin.Context) {
				seen = UserID(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
			if tt.header != "" {
				req.Header.Set(UserHeader, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantUser, seen)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, CodeUnauthorized, decodeError(t, w).Code)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, CodeInternal, decodeError(t, w).Code)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestSlowRequestMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	router := gin.New()
	router.Use(RequestLoggingMiddleware(logger))
	router.Use(SlowRequestMiddleware(logger, time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.Status(http.StatusOK)
	})
	router.GET("/fast", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

	require.Equal(t, 1, logs.FilterMessage("Slow request").Len())
	completed := logs.FilterMessage("Request completed").All()
	require.Len(t, completed, 1)
	assert.Equal(t, true, completed[0].ContextMap()["slow"])

	router = gin.New()
	router.Use(SlowRequestMiddleware(logger, time.Hour))
	router.GET("/fast", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, 1, logs.FilterMessage("Slow request").Len())
}

func TestTracingMiddlewareGeneratesIDs(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware(), TracingMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "trace-1")
	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "trace-1", w.Header().Get("X-Trace-ID"))
}

func TestAuditMetaMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(AuditMetaMiddleware())

	var ctx context.Context
	router.GET("/", func(c *gin.Context) {
		ctx = c.Request.Context()
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "swasth-test")
	router.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, ctx)
	assert.NotEqual(t, context.Background(), ctx)
}

func validationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	doc, err := api.Load(context.Background())
	require.NoError(t, err)

	validate, err := OpenAPIValidationMiddleware(doc, zap.NewNop())
	require.NoError(t, err)

	router := gin.New()
	router.Use(validate)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.POST("/api/v1/messages", ok)
	router.PUT("/api/v1/session/language", ok)
	router.PATCH("/api/v1/conversations/:id", ok)
	router.GET("/undocumented", ok)
	return router
}

func TestOpenAPIValidationMiddleware(t *testing.T) {
	router := validationRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "valid message", method: http.MethodPost, path: "/api/v1/messages", body: `{"content":"hello"}`, wantStatus: http.StatusOK},
		{name: "valid message with mode", method: http.MethodPost, path: "/api/v1/messages", body: `{"content":"hello","health_mode":"emergency"}`, wantStatus: http.StatusOK},
		{name: "empty content", method: http.MethodPost, path: "/api/v1/messages", body: `{"content":""}`, wantStatus: http.StatusBadRequest},
		{name: "missing content", method: http.MethodPost, path: "/api/v1/messages", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "unknown mode", method: http.MethodPost, path: "/api/v1/messages", body: `{"content":"hi","health_mode":"astrology"}`, wantStatus: http.StatusBadRequest},
		{name: "unsupported language", method: http.MethodPut, path: "/api/v1/session/language", body: `{"language":"fr"}`, wantStatus: http.StatusBadRequest},
		{name: "supported language", method: http.MethodPut, path: "/api/v1/session/language", body: `{"language":"hi"}`, wantStatus: http.StatusOK},
		{name: "title too long", method: http.MethodPatch, path: "/api/v1/conversations/c-1", body: `{"title":"` + strings.Repeat("x", 101) + `"}`, wantStatus: http.StatusBadRequest},
		{name: "undocumented path", method: http.MethodGet, path: "/undocumented", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusBadRequest {
				resp := decodeError(t, w)
				assert.Equal(t, CodeValidation, resp.Code)
				assert.NotEmpty(t, resp.Details["reason"])
			}
		})
	}
}

func TestOpenAPIValidationKeepsBody(t *testing.T) {
	doc, err := api.Load(context.Background())
	require.NoError(t, err)
	validate, err := OpenAPIValidationMiddleware(doc, zap.NewNop())
	require.NoError(t, err)

	router := gin.New()
	router.Use(validate)

	var body struct {
		Content string `json:"content"`
	}
	router.POST("/api/v1/messages", func(c *gin.Context) {
		require.NoError(t, c.ShouldBindJSON(&body))
		c.Status(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"content":"fever"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "fever", body.Content)
}

func TestValidationDetails(t *testing.T) {
	details := validationDetails(&openapi3.SchemaError{Reason: "minimum string length is 1"})
	assert.Equal(t, "minimum string length is 1", details["reason"])

	details = validationDetails(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), details["reason"])
}
