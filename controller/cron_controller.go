package controller

import (
	"context"
	"fmt"
	"log"
	"net/http"

	services "github.com/Itish41/FranchiseOps/service"
	"github.com/gin-gonic/gin"
)

// CronController exposes the scheduled jobs over HTTP.
type CronController struct {
	engine    *services.ActionEngine
	processor *services.AutomationProcessor
}

func NewCronController(engine *services.ActionEngine, processor *services.AutomationProcessor) *CronController {
	return &CronController{engine: engine, processor: processor}
}

// recoverAs500 turns a handler panic into a single error response.
func recoverAs500(ctx *gin.Context, name string) {
	if r := recover(); r != nil {
		log.Printf("[%s] Handler panicked: %v", name, r)
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprint(r),
		})
	}
}

// runContext keeps request values but not its cancellation: a run that has
// started goes to completion even if the caller hangs up.
func runContext(ctx *gin.Context) context.Context {
	return context.WithoutCancel(ctx.Request.Context())
}

// RunActionEngine always answers 200 with the per-unit errors embedded.
func (c *CronController) RunActionEngine(ctx *gin.Context) {
	defer recoverAs500(ctx, "RunActionEngine")
	result := c.engine.Run(runContext(ctx))
	ctx.JSON(http.StatusOK, gin.H{
		"success":             true,
		"locations_processed": result.LocationsProcessed,
		"actions_generated":   result.ActionsGenerated,
		"created":             result.Created,
		"updated":             result.Updated,
		"resolved":            result.Resolved,
		"errors":              result.Errors,
		"started_at":          result.StartedAt,
		"finished_at":         result.FinishedAt,
	})
}

func (c *CronController) ProcessAutomations(ctx *gin.Context) {
	defer recoverAs500(ctx, "ProcessAutomations")
	result := c.processor.Process(runContext(ctx))
	ctx.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processed": result.Processed,
		"skipped":   result.Skipped,
		"completed": result.Completed,
		"errors":    result.Errors,
		"total":     result.Total,
	})
}
