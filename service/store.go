package services

import (
	"context"
	"time"

	model "github.com/Itish41/FranchiseOps/models"
)

// ContextSource is the read side the context builder needs.
type ContextSource interface {
	KPIHistory(ctx context.Context, locationID string, from, to time.Time) ([]model.KPIDaily, error)
	UncontactedLeads(ctx context.Context, locationID string) ([]model.Lead, error)
	LeadsCreatedSince(ctx context.Context, locationID string, since time.Time) ([]model.Lead, error)
	ComplianceItems(ctx context.Context, locationID string) ([]model.ComplianceItem, error)
	AdSpend(ctx context.Context, locationID string, from, to time.Time) ([]model.AdSpendDaily, error)
	UnrepliedReviews(ctx context.Context, locationID string) ([]model.GBPReview, error)
	DrivesBetween(ctx context.Context, locationID string, from, to time.Time) ([]model.DriveAppointment, error)
	ActiveStudents(ctx context.Context, locationID string) ([]model.Student, error)
}

// ActionItemStore is the action item persistence contract.
type ActionItemStore interface {
	ActiveLocations(ctx context.Context, organizationID string) ([]model.Location, error)
	// LatestBenchmark returns nil, nil when no benchmark exists.
	LatestBenchmark(ctx context.Context) (*model.NetworkBenchmark, error)
	// ActiveActionItems returns open and in_progress items, oldest first.
	ActiveActionItems(ctx context.Context, locationID string) ([]model.ActionItem, error)
	// FindActiveActionItem returns nil, nil when there is none.
	FindActiveActionItem(ctx context.Context, locationID, ruleID string) (*model.ActionItem, error)
	CreateActionItem(ctx context.Context, item *model.ActionItem) error
	// UpdateActionItemContent rewrites the mutable fields of an active item and
	// reports whether a row was changed.
	UpdateActionItemContent(ctx context.Context, id string, content ActionContent, at time.Time) (bool, error)
	// ResolveOpenActionItems moves the given ids to resolved if they are still open.
	ResolveOpenActionItems(ctx context.Context, ids []string, at time.Time) (int64, error)
}

// ActionContent is the part of an action item a rule firing may rewrite.
type ActionContent struct {
	Priority          model.Priority
	Title             string
	Description       string
	RecommendedAction string
	Data              []byte
}

// AutomationStore is the enrollment persistence contract.
type AutomationStore interface {
	// DueEnrollments returns active enrollments due at now with their
	// automation and lead (and the lead's location) loaded.
	DueEnrollments(ctx context.Context, now time.Time, limit int) ([]model.AutomationEnrollment, error)
	// StepAt returns nil, nil when the automation has no step at that order.
	StepAt(ctx context.Context, automationID string, order int) (*model.AutomationStep, error)
	StepSucceeded(ctx context.Context, enrollmentID, stepID string) (bool, error)
	InsertAutomationLog(ctx context.Context, entry *model.AutomationLog) error
	InsertActivityLog(ctx context.Context, entry *model.ActivityLog) error
	UpdateLeadField(ctx context.Context, leadID, column string, value interface{}, at time.Time) error
	AdvanceEnrollment(ctx context.Context, id string, nextOrder int, nextAt, at time.Time) error
	CompleteEnrollment(ctx context.Context, id string, at time.Time) error
}
