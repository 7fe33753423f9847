package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const pingTimeout = 3 * time.Second

// GetHealth pings every configured backend
func (s *Server) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	names := make([]string, 0, len(s.pingers))
	for name := range s.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	backends := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.pingers[name].Ping(ctx); err != nil {
			s.logger.Error("health check failed", zap.String("backend", name), zap.Error(err))
			backends[name] = "unreachable"
			status = http.StatusServiceUnavailable
			continue
		}
		backends[name] = "connected"
	}

	health := "healthy"
	if status != http.StatusOK {
		health = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":   health,
		"backends": backends,
		"service":  "swasth-ai-backend",
		"version":  s.version,
	})
}
