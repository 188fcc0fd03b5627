package controller

import (
	"github.com/Itish41/FranchiseOps/middleware"
	"github.com/gin-gonic/gin"
)

// Routes bundles everything the router needs.
type Routes struct {
	Cron       *CronController
	Actions    *ActionItemController
	Health     gin.HandlerFunc
	CronSecret string
}

// NewRouter wires the HTTP surface onto a gin engine.
func NewRouter(r Routes) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.GlobalRateLimiter.Limit())

	if r.Health != nil {
		router.GET("/health", r.Health)
	}

	cron := router.Group("/api/cron", middleware.StrictRateLimiter.Limit())
	if r.Cron != nil {
		engineAuth := middleware.OptionalCronAuth(r.CronSecret)
		cron.POST("/action-engine", engineAuth, r.Cron.RunActionEngine)
		cron.GET("/action-engine", engineAuth, r.Cron.RunActionEngine)

		automationAuth := middleware.RequireCronAuth(r.CronSecret)
		cron.POST("/automations", automationAuth, r.Cron.ProcessAutomations)
		cron.GET("/automations", automationAuth, r.Cron.ProcessAutomations)
	}

	if r.Actions != nil {
		router.GET("/action-items", r.Actions.ListActionItems)
		router.GET("/action-items/search", r.Actions.SearchActionItems)
		router.PUT("/action-items/:id/status", r.Actions.UpdateActionItemStatus)
	}
	return router
}
