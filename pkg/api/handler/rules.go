package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/netsentry-io/netsentry/pkg/api/dto"
	"github.com/netsentry-io/netsentry/pkg/api/service"
	"github.com/netsentry-io/netsentry/pkg/types"
)

// RuleHandler handles rule management requests.
type RuleHandler struct {
	svc *service.Monitor
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(svc *service.Monitor) *RuleHandler {
	return &RuleHandler{svc: svc}
}

// List godoc
// @Summary      List rules
// @Description  Returns the full rule set from the cache
// @Tags         rules
// @Produce      json
// @Success      200 {object} dto.RulesResponse
// @Router       /api/v1/rules [get]
func (h *RuleHandler) List(c *gin.Context) {
	state := h.svc.State()
	c.JSON(http.StatusOK, dto.RulesResponse{
		Rules:      state.Rules,
		Count:      len(state.Rules),
		LastUpdate: state.LastUpdate,
	})
}

// Add godoc
// @Summary      Add or update a rule
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        request body dto.AddRuleRequest true "Rule"
// @Success      200 {object} dto.RuleWriteResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /api/v1/rules [post]
func (h *RuleHandler) Add(c *gin.Context) {
	var req dto.AddRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Target == "" || req.Action == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "missing target or action"})
		return
	}

	action, err := h.svc.AddRule(req.Target, req.Action)
	if err != nil {
		if errors.Is(err, types.ErrInvalidAction) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid action"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to save rules"})
		return
	}

	c.JSON(http.StatusOK, dto.RuleWriteResponse{Success: true, Target: req.Target, Action: string(action)})
}

// Delete godoc
// @Summary      Delete a rule
// @Tags         rules
// @Produce      json
// @Param        target path string true "Rule target"
// @Success      200 {object} dto.RuleWriteResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /api/v1/rules/{target} [delete]
func (h *RuleHandler) Delete(c *gin.Context) {
	// Wildcard params keep their leading slash; rule targets (hosts,
	// URLs) are stored without it.
	target := strings.TrimPrefix(c.Param("target"), "/")

	if err := h.svc.DeleteRule(target); err != nil {
		if errors.Is(err, service.ErrRuleNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to save rules"})
		return
	}

	c.JSON(http.StatusOK, dto.RuleWriteResponse{Success: true, Target: target})
}

// Clear godoc
// @Summary      Clear all rules
// @Tags         rules
// @Produce      json
// @Success      200 {object} dto.ClearResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /api/v1/rules/clear [post]
func (h *RuleHandler) Clear(c *gin.Context) {
	if err := h.svc.ClearRules(); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to clear rules"})
		return
	}
	c.JSON(http.StatusOK, dto.ClearResponse{Success: true})
}

// Export godoc
// @Summary      Export rules
// @Description  Returns the raw rule set in its file shape
// @Tags         rules
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /api/v1/export [get]
func (h *RuleHandler) Export(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ExportRules())
}

// Import godoc
// @Summary      Import rules
// @Description  Replaces the full rule set after validating every action
// @Tags         rules
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.ImportResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /api/v1/import [post]
func (h *RuleHandler) Import(c *gin.Context) {
	var raw map[string]string
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid format, expected JSON object"})
		return
	}

	count, err := h.svc.ImportRules(raw)
	if err != nil {
		if errors.Is(err, types.ErrInvalidAction) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to save rules"})
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{Success: true, Count: count})
}
