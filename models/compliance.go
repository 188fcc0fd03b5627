package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComplianceItem tracks a licence, policy or certificate a location must keep current.
type ComplianceItem struct {
	// ID is a unique identifier for the item, stored as a UUID.
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	// LocationID references the location the item belongs to.
	LocationID string `gorm:"type:uuid;not null;index" json:"location_id"`

	// Name is the display name (e.g., "Commercial Auto Insurance").
	Name string `gorm:"not null" json:"name"`

	// ItemType classifies the item (e.g., 'license', 'insurance', 'vehicle_registration').
	ItemType string `json:"item_type"`

	// ExpiresAt is the date the item stops being valid.
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`

	// DocumentURL points at the stored copy of the certificate, when uploaded.
	DocumentURL string `json:"document_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *ComplianceItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ComplianceState is the computed standing of a compliance item on a given day.
type ComplianceState string

const (
	ComplianceValid    ComplianceState = "valid"
	ComplianceExpiring ComplianceState = "expiring"
	ComplianceExpired  ComplianceState = "expired"
)

// ComplianceExpiringWindow is how many days ahead an item counts as expiring.
const ComplianceExpiringWindow = 30
