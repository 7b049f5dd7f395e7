package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netsentry-io/netsentry/pkg/api/dto"
	"github.com/netsentry-io/netsentry/pkg/api/service"
	"github.com/netsentry-io/netsentry/pkg/types"
)

// PendingHandler handles the approval queue surface.
type PendingHandler struct {
	svc *service.Monitor
}

// NewPendingHandler creates a new PendingHandler.
func NewPendingHandler(svc *service.Monitor) *PendingHandler {
	return &PendingHandler{svc: svc}
}

// List godoc
// @Summary      List pending requests
// @Tags         pending
// @Produce      json
// @Success      200 {object} dto.PendingResponse
// @Router       /api/v1/pending [get]
func (h *PendingHandler) List(c *gin.Context) {
	state := h.svc.State()
	pending := state.Pending
	if pending == nil {
		pending = []types.PendingRequest{}
	}
	c.JSON(http.StatusOK, dto.PendingResponse{
		Pending:    pending,
		Count:      len(pending),
		LastUpdate: state.LastUpdate,
	})
}

// Approve godoc
// @Summary      Approve or deny a pending request
// @Description  Writes the corresponding rule and clears matching pending entries. Domain actions clear every entry for the host.
// @Tags         pending
// @Accept       json
// @Produce      json
// @Param        request body dto.ApproveRequest true "Approval"
// @Success      200 {object} dto.RuleWriteResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /api/v1/approve [post]
func (h *PendingHandler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Host == "" || req.URL == "" || req.Action == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "missing required fields"})
		return
	}

	target, action, err := h.svc.Approve(req.Host, req.URL, req.Action)
	if err != nil {
		if errors.Is(err, types.ErrInvalidAction) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid action"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to save"})
		return
	}

	c.JSON(http.StatusOK, dto.RuleWriteResponse{Success: true, Target: target, Action: string(action)})
}
