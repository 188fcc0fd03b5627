package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lead is a prospective student in a location's CRM pipeline.
type Lead struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID  string     `gorm:"index" json:"organization_id"`
	LocationID      string     `gorm:"type:uuid;not null;index" json:"location_id"`
	Location        *Location  `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Source          string     `json:"source"`
	PipelineStage   string     `gorm:"not null;default:new" json:"pipeline_stage"`
	Status          string     `gorm:"not null;default:open" json:"status"`
	Priority        string     `json:"priority"`
	AssignedTo      string     `json:"assigned_to"`
	Notes           string     `json:"notes"`
	Contacted       bool       `gorm:"not null;default:false" json:"contacted"`
	LastContactedAt *time.Time `json:"last_contacted_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// FullName joins first and last name, skipping blanks.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// DriveAppointment is a scheduled behind-the-wheel lesson.
type DriveAppointment struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	LocationID     string    `gorm:"type:uuid;not null;index" json:"location_id"`
	StudentID      string    `gorm:"type:uuid;index" json:"student_id"`
	InstructorName string    `json:"instructor_name"`
	ScheduledAt    time.Time `gorm:"not null;index" json:"scheduled_at"`
	Status         string    `gorm:"not null;default:scheduled" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Drive appointment statuses.
const (
	DriveScheduled = "scheduled"
	DriveCompleted = "completed"
	DriveNoShow    = "no_show"
	DriveCancelled = "cancelled"
)

func (d *DriveAppointment) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// Student is an enrolled customer of a location.
type Student struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	LocationID       string    `gorm:"type:uuid;not null;index" json:"location_id"`
	Name             string    `json:"name"`
	Status           string    `gorm:"not null;default:active;index" json:"status"`
	BalanceDue       float64   `json:"balance_due"`
	LessonsRemaining int       `json:"lessons_remaining"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
