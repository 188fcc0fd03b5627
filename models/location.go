package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a franchise unit. The engines only read it.
type Location struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID string    `gorm:"index" json:"organization_id"`
	Name           string    `gorm:"not null" json:"name"`
	IsActive       bool      `gorm:"not null;index" json:"is_active"`
	Timezone       string    `json:"timezone"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// NetworkBenchmark is a network-wide average snapshot for one period.
type NetworkBenchmark struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	Period         string    `gorm:"not null;index" json:"period"`
	AvgAnswerRate  float64   `json:"avg_answer_rate"`
	AvgCostPerLead float64   `json:"avg_cost_per_lead"`
	AvgRating      float64   `json:"avg_rating"`
	AvgNoShowRate  float64   `json:"avg_no_show_rate"`
	AvgWeeklyLeads float64   `json:"avg_weekly_leads"`
	CreatedAt      time.Time `json:"created_at"`
}

func (b *NetworkBenchmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
