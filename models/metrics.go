package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KPIDaily is one day of operating numbers for a location.
type KPIDaily struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	LocationID       string    `gorm:"type:uuid;not null;index:idx_kpi_location_date" json:"location_id"`
	Date             time.Time `gorm:"not null;index:idx_kpi_location_date" json:"date"`
	CallsReceived    int       `json:"calls_received"`
	CallsAnswered    int       `json:"calls_answered"`
	MissedCalls      int       `json:"missed_calls"`
	LeadsCreated     int       `json:"leads_created"`
	LessonsScheduled int       `json:"lessons_scheduled"`
	LessonsCompleted int       `json:"lessons_completed"`
	Revenue          float64   `json:"revenue"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName keeps the table name aligned with kpi_daily.
func (KPIDaily) TableName() string { return "kpi_daily" }

func (k *KPIDaily) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// AdSpendDaily is one day of spend on one paid channel.
type AdSpendDaily struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	LocationID  string    `gorm:"type:uuid;not null;index" json:"location_id"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	Channel     string    `json:"channel"`
	Spend       float64   `json:"spend"`
	Clicks      int       `json:"clicks"`
	Impressions int       `json:"impressions"`
	Leads       int       `json:"leads"`
	CreatedAt   time.Time `json:"created_at"`
}

func (AdSpendDaily) TableName() string { return "ad_spend_daily" }

func (a *AdSpendDaily) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// GBPReview is a Google Business Profile review.
type GBPReview struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	LocationID   string    `gorm:"type:uuid;not null;index" json:"location_id"`
	ReviewerName string    `json:"reviewer_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	Replied      bool      `gorm:"not null;default:false" json:"replied"`
	ReviewedAt   time.Time `json:"reviewed_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (GBPReview) TableName() string { return "gbp_reviews" }

func (r *GBPReview) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
