package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Automation statuses. Only active automations advance their enrollments.
const (
	AutomationActive   = "active"
	AutomationPaused   = "paused"
	AutomationInactive = "inactive"
)

// Enrollment statuses.
const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
)

// Automation log statuses.
const (
	StepSucceeded = "success"
	StepFailed    = "failed"
)

// StepType selects the step variant in the step catalog.
type StepType string

const (
	StepSendMessage StepType = "send_message"
	StepWait        StepType = "wait"
	StepChangeStage StepType = "change_stage"
	StepUpdateField StepType = "update_field"
	StepNotify      StepType = "notify"
	StepWebhook     StepType = "webhook"
	StepCondition   StepType = "condition"
)

// Automation is a named ordered workflow applied to leads.
type Automation struct {
	ID             string           `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID string           `gorm:"index" json:"organization_id"`
	Name           string           `gorm:"not null" json:"name"`
	TriggerEvent   string           `json:"trigger_event"`
	Status         string           `gorm:"not null;default:active" json:"status"`
	Steps          []AutomationStep `gorm:"foreignKey:AutomationID" json:"steps,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (a *Automation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AutomationStep is one position in an automation. DelaySeconds is waited
// before the step runs, measured from the moment the previous step ran.
type AutomationStep struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	AutomationID string         `gorm:"type:uuid;not null;uniqueIndex:ux_step_order" json:"automation_id"`
	StepOrder    int            `gorm:"not null;uniqueIndex:ux_step_order" json:"step_order"`
	StepType     StepType       `gorm:"not null" json:"step_type"`
	Config       datatypes.JSON `json:"config"`
	DelaySeconds int            `gorm:"not null;default:0" json:"delay_seconds"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (s *AutomationStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// AutomationEnrollment is a lead's position in an automation.
type AutomationEnrollment struct {
	ID               string      `gorm:"type:uuid;primaryKey" json:"id"`
	AutomationID     string      `gorm:"type:uuid;not null;index" json:"automation_id"`
	Automation       *Automation `gorm:"foreignKey:AutomationID" json:"automation,omitempty"`
	LeadID           string      `gorm:"type:uuid;not null;index" json:"lead_id"`
	Lead             *Lead       `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	Status           string      `gorm:"not null;default:active;index:idx_enrollment_due" json:"status"`
	CurrentStepOrder int         `gorm:"not null;default:1" json:"current_step_order"`
	NextExecutionAt  *time.Time  `gorm:"index:idx_enrollment_due" json:"next_execution_at"`
	CompletedAt      *time.Time  `json:"completed_at"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (e *AutomationEnrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// AutomationLog records one step execution for an enrollment. A success row
// for (EnrollmentID, StepID) marks the step as already executed.
type AutomationLog struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	EnrollmentID string         `gorm:"type:uuid;not null;index:idx_automation_log_step" json:"enrollment_id"`
	StepID       string         `gorm:"type:uuid;not null;index:idx_automation_log_step" json:"step_id"`
	StepOrder    int            `json:"step_order"`
	StepType     StepType       `json:"step_type"`
	Status       string         `gorm:"not null" json:"status"`
	Result       datatypes.JSON `json:"result"`
	Error        string         `json:"error"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (l *AutomationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// ActivityLog is an entry on a lead's timeline.
type ActivityLog struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID       string         `gorm:"type:uuid;not null;index" json:"lead_id"`
	LocationID   string         `gorm:"type:uuid;index" json:"location_id"`
	ActivityType string         `gorm:"not null" json:"activity_type"`
	Description  string         `json:"description"`
	Metadata     datatypes.JSON `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
