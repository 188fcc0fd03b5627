package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category groups action items on the dashboard.
type Category string

const (
	CategoryLeadFollowup Category = "lead_followup"
	CategoryScheduling   Category = "scheduling"
	CategoryMarketing    Category = "marketing"
	CategoryCompliance   Category = "compliance"
	CategoryOperations   Category = "operations"
	CategoryFinancial    Category = "financial"
	CategoryPerformance  Category = "performance"
	CategoryReputation   Category = "reputation"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryLeadFollowup, CategoryScheduling, CategoryMarketing, CategoryCompliance,
		CategoryOperations, CategoryFinancial, CategoryPerformance, CategoryReputation:
		return true
	}
	return false
}

// Priority is the severity of an action item.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities by severity. Critical is 4, low is 1, unknown is 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// AtLeast reports whether p is as severe as other or more.
func (p Priority) AtLeast(other Priority) bool {
	return p.Rank() >= other.Rank()
}

// ActionStatus is the lifecycle state of a persisted action item.
type ActionStatus string

const (
	StatusOpen       ActionStatus = "open"
	StatusInProgress ActionStatus = "in_progress"
	StatusResolved   ActionStatus = "resolved"
	StatusExpired    ActionStatus = "expired"
	StatusDismissed  ActionStatus = "dismissed"
)

// ActiveStatuses are the statuses eligible for upsert matching.
var ActiveStatuses = []ActionStatus{StatusOpen, StatusInProgress}

// Active reports whether s is open or in_progress.
func (s ActionStatus) Active() bool {
	return s == StatusOpen || s == StatusInProgress
}

// Terminal reports whether no further transition is allowed from s.
func (s ActionStatus) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed || s == StatusExpired
}

var ErrInvalidTransition = errors.New("invalid action item status transition")

var transitions = map[ActionStatus][]ActionStatus{
	StatusOpen:       {StatusInProgress, StatusResolved, StatusDismissed, StatusExpired},
	StatusInProgress: {StatusResolved, StatusExpired},
}

// CanTransition checks the action item state machine.
func CanTransition(from, to ActionStatus) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// ActionItem is a persisted recommendation produced by a rule for a location.
// At most one row per (LocationID, RuleID) may be open or in_progress; the
// partial unique index ux_action_items_active_rule enforces it.
type ActionItem struct {
	ID                string         `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID    string         `gorm:"index" json:"organization_id"`
	LocationID        string         `gorm:"type:uuid;not null;index" json:"location_id"`
	RuleID            string         `gorm:"not null;index" json:"rule_id"`
	Category          Category       `gorm:"not null" json:"category"`
	Priority          Priority       `gorm:"not null" json:"priority"`
	Status            ActionStatus   `gorm:"not null;default:open;index" json:"status"`
	Title             string         `gorm:"not null" json:"title"`
	Description       string         `json:"description"`
	RecommendedAction string         `json:"recommended_action"`
	Data              datatypes.JSON `json:"data"`
	Source            string         `json:"source"`
	ExpiresAt         time.Time      `json:"expires_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (a *ActionItem) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
