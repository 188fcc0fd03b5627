package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	model "github.com/Itish41/FranchiseOps/models"
	"github.com/Itish41/FranchiseOps/rules"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlannedUpdate rewrites an existing active item with a new firing.
type PlannedUpdate struct {
	Item   model.ActionItem
	Output rules.ActionItemOutput
}

// ReconcilePlan is the diff between one run's findings and the persisted
// active items of a location.
type ReconcilePlan struct {
	Resolve []string
	Update  []PlannedUpdate
	Create  []rules.ActionItemOutput
}

// PlanReconciliation diffs fired outputs against active items. Only open
// items are resolved; in_progress items are matched for updates but never
// closed. active must be ordered oldest first so the oldest duplicate wins
// and the newer open duplicates are resolved.
func PlanReconciliation(fired []rules.ActionItemOutput, active []model.ActionItem) ReconcilePlan {
	var plan ReconcilePlan

	firedIDs := make(map[string]struct{}, len(fired))
	for _, out := range fired {
		firedIDs[out.RuleID] = struct{}{}
	}

	existing := make(map[string]model.ActionItem, len(active))
	for _, item := range active {
		if !item.Status.Active() {
			continue
		}
		_, still := firedIDs[item.RuleID]
		_, dup := existing[item.RuleID]
		if !dup {
			existing[item.RuleID] = item
		}
		// open rows close when the rule stops firing, and newer duplicates
		// close while it still fires
		if item.Status == model.StatusOpen && (!still || dup) {
			plan.Resolve = append(plan.Resolve, item.ID)
		}
	}

	seen := make(map[string]struct{}, len(fired))
	for _, out := range fired {
		if _, dup := seen[out.RuleID]; dup {
			continue
		}
		seen[out.RuleID] = struct{}{}
		if item, ok := existing[out.RuleID]; ok {
			plan.Update = append(plan.Update, PlannedUpdate{Item: item, Output: out})
		} else {
			plan.Create = append(plan.Create, out)
		}
	}
	return plan
}

// ReconcileOutcome counts what applying a plan changed.
type ReconcileOutcome struct {
	Created  int
	Updated  int
	Resolved int
	// Touched holds the created and updated rows for downstream indexing.
	Touched []model.ActionItem
	Errors  []error
}

// Reconciler applies plans to an ActionItemStore.
type Reconciler struct {
	store  ActionItemStore
	expiry time.Duration
}

func NewReconciler(store ActionItemStore, expiry time.Duration) *Reconciler {
	if expiry <= 0 {
		expiry = DefaultActionExpiry
	}
	return &Reconciler{store: store, expiry: expiry}
}

func contentOf(out rules.ActionItemOutput) (ActionContent, error) {
	data, err := json.Marshal(out.Data)
	if err != nil {
		return ActionContent{}, fmt.Errorf("marshal data: %w", err)
	}
	return ActionContent{
		Priority:          out.Priority,
		Title:             out.Title,
		Description:       out.Description,
		RecommendedAction: out.RecommendedAction,
		Data:              data,
	}, nil
}

// Apply writes the plan for one location: resolves first, then updates,
// then creates. Each write failure is collected and the rest still run.
func (r *Reconciler) Apply(ctx context.Context, loc model.Location, plan ReconcilePlan, now time.Time) ReconcileOutcome {
	var outcome ReconcileOutcome

	if len(plan.Resolve) > 0 {
		n, err := r.store.ResolveOpenActionItems(ctx, plan.Resolve, now)
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Errorf("resolve: %w", err))
		}
		outcome.Resolved = int(n)
	}

	for _, u := range plan.Update {
		item, err := r.update(ctx, u.Item, u.Output, now)
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Errorf("update rule %s: %w", u.Output.RuleID, err))
			continue
		}
		if item == nil {
			// the row left the active set since it was read; treat as new
			created, err := r.create(ctx, loc, u.Output, now)
			if err != nil {
				outcome.Errors = append(outcome.Errors, fmt.Errorf("create rule %s: %w", u.Output.RuleID, err))
				continue
			}
			outcome.Created++
			outcome.Touched = append(outcome.Touched, *created)
			continue
		}
		outcome.Updated++
		outcome.Touched = append(outcome.Touched, *item)
	}

	for _, out := range plan.Create {
		item, err := r.create(ctx, loc, out, now)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// another run created it first
				existing, uerr := r.updateExisting(ctx, loc, out, now)
				if uerr == nil && existing != nil {
					outcome.Updated++
					outcome.Touched = append(outcome.Touched, *existing)
					continue
				}
				if uerr != nil {
					err = uerr
				}
			}
			outcome.Errors = append(outcome.Errors, fmt.Errorf("create rule %s: %w", out.RuleID, err))
			continue
		}
		outcome.Created++
		outcome.Touched = append(outcome.Touched, *item)
	}
	return outcome
}

// update rewrites the content of item in place, keeping its id and status.
// It returns nil, nil when the row is no longer active.
func (r *Reconciler) update(ctx context.Context, item model.ActionItem, out rules.ActionItemOutput, now time.Time) (*model.ActionItem, error) {
	content, err := contentOf(out)
	if err != nil {
		return nil, err
	}
	ok, err := r.store.UpdateActionItemContent(ctx, item.ID, content, now)
	if err != nil || !ok {
		return nil, err
	}
	item.Priority = content.Priority
	item.Title = content.Title
	item.Description = content.Description
	item.RecommendedAction = content.RecommendedAction
	item.Data = datatypes.JSON(content.Data)
	item.UpdatedAt = now
	return &item, nil
}

func (r *Reconciler) updateExisting(ctx context.Context, loc model.Location, out rules.ActionItemOutput, now time.Time) (*model.ActionItem, error) {
	existing, err := r.store.FindActiveActionItem(ctx, loc.ID, out.RuleID)
	if err != nil || existing == nil {
		return nil, err
	}
	log.Printf("[Reconciler] location %s: rule %s created concurrently, updating %s", loc.Name, out.RuleID, existing.ID)
	return r.update(ctx, *existing, out, now)
}

func (r *Reconciler) create(ctx context.Context, loc model.Location, out rules.ActionItemOutput, now time.Time) (*model.ActionItem, error) {
	content, err := contentOf(out)
	if err != nil {
		return nil, err
	}
	item := &model.ActionItem{
		OrganizationID:    loc.OrganizationID,
		LocationID:        loc.ID,
		RuleID:            out.RuleID,
		Category:          out.Category,
		Priority:          out.Priority,
		Status:            model.StatusOpen,
		Title:             out.Title,
		Description:       out.Description,
		RecommendedAction: out.RecommendedAction,
		Data:              datatypes.JSON(content.Data),
		Source:            out.Source,
		ExpiresAt:         now.Add(r.expiry),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := r.store.CreateActionItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}
