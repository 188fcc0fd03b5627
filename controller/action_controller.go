package controller

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	model "github.com/Itish41/FranchiseOps/models"
	services "github.com/Itish41/FranchiseOps/service"
	"github.com/gin-gonic/gin"
)

// ActionItemRepository is the read/transition side of the action item store.
type ActionItemRepository interface {
	ListActionItems(ctx context.Context, f services.ActionItemFilter) ([]model.ActionItem, error)
	TransitionActionItem(ctx context.Context, id string, to model.ActionStatus, at time.Time) (*model.ActionItem, error)
}

// ActionItemSearcher runs full text search over indexed action items.
type ActionItemSearcher interface {
	SearchActionItems(ctx context.Context, query, locationID string) ([]map[string]interface{}, error)
}

type ActionItemController struct {
	repo     ActionItemRepository
	searcher ActionItemSearcher
	now      func() time.Time
}

func NewActionItemController(repo ActionItemRepository, searcher ActionItemSearcher) *ActionItemController {
	return &ActionItemController{repo: repo, searcher: searcher, now: time.Now}
}

// ListActionItems returns action items filtered by location and status.
func (c *ActionItemController) ListActionItems(ctx *gin.Context) {
	filter := services.ActionItemFilter{
		LocationID: ctx.Query("location_id"),
		Status:     model.ActionStatus(ctx.Query("status")),
	}
	if raw := ctx.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	items, err := c.repo.ListActionItems(ctx.Request.Context(), filter)
	if err != nil {
		log.Printf("[ListActionItems] Error fetching action items: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve action items",
			"details": err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Action items retrieved successfully",
		"items":   items,
	})
}

// SearchActionItems queries Elasticsearch.
func (c *ActionItemController) SearchActionItems(ctx *gin.Context) {
	query := strings.TrimSpace(ctx.Query("q"))
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}
	if c.searcher == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": services.ErrSearchUnavailable.Error()})
		return
	}

	results, err := c.searcher.SearchActionItems(ctx.Request.Context(), query, ctx.Query("location_id"))
	if errors.Is(err, services.ErrSearchUnavailable) {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("[SearchActionItems] Search failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"results": results})
}

// UpdateActionItemStatus applies a manual status change such as
// open -> in_progress or in_progress -> resolved.
func (c *ActionItemController) UpdateActionItemStatus(ctx *gin.Context) {
	actionID := ctx.Param("id")
	if actionID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Action ID required"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status provided", "details": err.Error()})
		return
	}

	item, err := c.repo.TransitionActionItem(ctx.Request.Context(), actionID, model.ActionStatus(req.Status), c.now().UTC())
	switch {
	case errors.Is(err, services.ErrActionItemNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, model.ErrInvalidTransition):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrStaleTransition):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("[UpdateActionItemStatus] Error updating action item %s: %v", actionID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Action item updated", "item": item})
}
