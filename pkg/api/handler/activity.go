package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netsentry-io/netsentry/pkg/accesslog"
	"github.com/netsentry-io/netsentry/pkg/api/dto"
	"github.com/netsentry-io/netsentry/pkg/api/service"
)

// streamRecentLimit is how many recent entries each SSE frame carries.
const streamRecentLimit = 10

// ActivityHandler serves statistics, recent activity, and the live stream.
type ActivityHandler struct {
	svc  *service.Monitor
	tick time.Duration
}

// NewActivityHandler creates a new ActivityHandler. tick is the SSE
// emission check period.
func NewActivityHandler(svc *service.Monitor, tick time.Duration) *ActivityHandler {
	if tick <= 0 {
		tick = time.Second
	}
	return &ActivityHandler{svc: svc, tick: tick}
}

// Stats godoc
// @Summary      Decision statistics
// @Tags         activity
// @Produce      json
// @Success      200 {object} dto.StatsResponse
// @Router       /api/v1/stats [get]
func (h *ActivityHandler) Stats(c *gin.Context) {
	state := h.svc.State()
	c.JSON(http.StatusOK, dto.StatsResponse{
		Stats:      state.Stats,
		LastUpdate: state.LastUpdate,
	})
}

// Requests godoc
// @Summary      Recent requests
// @Tags         activity
// @Produce      json
// @Param        limit query int false "Maximum entries" default(100)
// @Success      200 {object} dto.RequestsResponse
// @Router       /api/v1/requests [get]
func (h *ActivityHandler) Requests(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	state := h.svc.State()
	recent := state.Recent
	if limit < len(recent) {
		recent = recent[:limit]
	}
	if recent == nil {
		recent = []accesslog.Entry{}
	}

	c.JSON(http.StatusOK, dto.RequestsResponse{
		Requests:   recent,
		Count:      len(recent),
		LastUpdate: state.LastUpdate,
	})
}

// Stream godoc
// @Summary      Live update stream
// @Description  Server-Sent Events; a frame is emitted only when the cache's last-update token has changed
// @Tags         activity
// @Produce      text/event-stream
// @Router       /api/v1/stream [get]
func (h *ActivityHandler) Stream(c *gin.Context) {
	// Set SSE headers
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	ctx := c.Request.Context()
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	var lastSent string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := h.svc.State()
			if state.LastUpdate == "" || state.LastUpdate == lastSent {
				continue
			}

			recent := state.Recent
			if len(recent) > streamRecentLimit {
				recent = recent[:streamRecentLimit]
			}
			payload := dto.StreamPayload{
				Requests:  recent,
				Pending:   state.Pending,
				Stats:     state.Stats,
				Timestamp: state.LastUpdate,
			}
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}

			if _, err := c.Writer.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
			lastSent = state.LastUpdate
		}
	}
}
