package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netsentry-io/netsentry/pkg/api/dto"
)

// RuleCounter reports how many rules are currently loaded.
type RuleCounter interface {
	Len() int
}

// Health godoc
// @Summary      Health check
// @Description  Returns process health and the loaded rule count
// @Tags         global
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Router       /health [get]
func Health(counter RuleCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.HealthResponse{
			Status:     "healthy",
			RulesCount: counter.Len(),
			Timestamp:  time.Now().Format(time.RFC3339),
		})
	}
}
