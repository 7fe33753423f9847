package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OpenAPIValidationMiddleware rejects requests that do not match the operation
// documented for their path. Paths missing from the document pass through.
func OpenAPIValidationMiddleware(doc *openapi3.T, logger *zap.Logger) (gin.HandlerFunc, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(c *gin.Context) {
		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
				logger.Debug("openapi route lookup failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			}
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			logger.Info("request failed validation",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			Abort(c, http.StatusBadRequest, CodeValidation, "Invalid request", validationDetails(err))
			return
		}

		c.Next()
	}, nil
}

func validationDetails(err error) map[string]interface{} {
	details := map[string]interface{}{}

	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		details["reason"] = reqErr.Reason
		if reqErr.Parameter != nil {
			details["parameter"] = reqErr.Parameter.Name
		}
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		details["reason"] = schemaErr.Reason
		if pointer := schemaErr.JSONPointer(); len(pointer) > 0 {
			details["field"] = strings.Join(pointer, ".")
		}
	}

	if len(details) == 0 {
		details["reason"] = err.Error()
	}
	return details
}
