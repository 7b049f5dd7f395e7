package api

import (
	"context"

	"github.com/netsentry-io/netsentry/pkg/api/handler"
	"github.com/netsentry-io/netsentry/pkg/api/middleware"
	"github.com/netsentry-io/netsentry/pkg/api/service"
	"github.com/netsentry-io/netsentry/pkg/types"
)

// Firewall is the decision engine contract the admission surface serves.
type Firewall interface {
	Check(ctx context.Context, req types.Request) bool
	Len() int
}

// setupManagementRoutes configures the sentry-ui API routes.
func (s *Server) setupManagementRoutes(svc *service.Monitor) {
	// Health (no auth required)
	s.engine.GET("/health", handler.Health(countRules{svc}))
	s.engine.GET("/healthz", handler.Health(countRules{svc}))

	// API v1 group
	v1 := s.engine.Group("/api/v1")
	v1.Use(middleware.Auth(s.config.APIKey))

	ruleHandler := handler.NewRuleHandler(svc)
	v1.GET("/rules", ruleHandler.List)
	v1.POST("/rules", ruleHandler.Add)
	v1.POST("/rules/clear", ruleHandler.Clear)
	v1.DELETE("/rules/*target", ruleHandler.Delete)
	v1.GET("/export", ruleHandler.Export)
	v1.POST("/import", ruleHandler.Import)

	pendingHandler := handler.NewPendingHandler(svc)
	v1.GET("/pending", pendingHandler.List)
	v1.POST("/approve", pendingHandler.Approve)

	activityHandler := handler.NewActivityHandler(svc, s.config.StreamInterval)
	v1.GET("/stats", activityHandler.Stats)
	v1.GET("/requests", activityHandler.Requests)
	v1.GET("/stream", activityHandler.Stream)
}

// setupAdmissionRoutes configures the sentryd routes.
func (s *Server) setupAdmissionRoutes(engine Firewall) {
	s.engine.GET("/health", handler.Health(engine))
	s.engine.GET("/healthz", handler.Health(engine))

	checkHandler := handler.NewCheckHandler(engine)
	s.engine.POST("/check", checkHandler.Check)
}

// countRules adapts the cached rule set to the health handler.
type countRules struct {
	svc *service.Monitor
}

func (c countRules) Len() int {
	return len(c.svc.State().Rules)
}
