package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netsentry-io/netsentry/pkg/api/dto"
	"github.com/netsentry-io/netsentry/pkg/types"
)

// Decider is the decision engine contract the admission surface needs.
type Decider interface {
	Check(ctx context.Context, req types.Request) bool
}

// CheckHandler is the admission endpoint for the intercepting proxy.
type CheckHandler struct {
	engine Decider
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(engine Decider) *CheckHandler {
	return &CheckHandler{engine: engine}
}

// Check godoc
// @Summary      Decide an intercepted request
// @Description  Returns the allow/deny verdict for a normalized request descriptor; allowed=false means the proxy responds 403
// @Tags         admission
// @Accept       json
// @Produce      json
// @Param        request body dto.CheckRequest true "Request descriptor"
// @Success      200 {object} dto.CheckResponse
// @Failure      400 {object} dto.ErrorResponse
// @Router       /check [post]
func (h *CheckHandler) Check(c *gin.Context) {
	var req dto.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Host == "" || req.URL == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "missing host or url"})
		return
	}

	allowed := h.engine.Check(c.Request.Context(), types.Request{
		Host:   req.Host,
		URL:    req.URL,
		Method: req.Method,
		Path:   req.Path,
	})

	c.JSON(http.StatusOK, dto.CheckResponse{Allowed: allowed})
}

// Guard is the in-process embedding form of the admission check: a
// middleware for collaborators that route intercepted traffic through a gin
// engine directly. Denied requests are answered with the synthesized 403.
func Guard(engine Decider) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := c.Request
		req := types.Request{
			Host:   r.Host,
			URL:    r.URL.String(),
			Method: r.Method,
			Path:   r.URL.Path,
		}
		if !engine.Check(r.Context(), req) {
			c.String(http.StatusForbidden, "Access denied by network firewall")
			c.Abort()
			return
		}
		c.Next()
	}
}
