package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	model "github.com/Itish41/FranchiseOps/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrActionItemNotFound = errors.New("action item not found")
	ErrStaleTransition    = errors.New("action item changed concurrently")
)

// activeItemIndexSQL enforces at most one open/in_progress item per rule and location.
const activeItemIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS ux_action_items_active_rule
	ON action_items (location_id, rule_id) WHERE status IN ('open', 'in_progress')`

func activeStatusValues() []string {
	return []string{string(model.StatusOpen), string(model.StatusInProgress)}
}

// GormStore implements every persistence contract on a *gorm.DB.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates the schema from the models. Production databases use
// the SQL migrations instead; this is for local sqlite and tests.
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&model.Location{},
		&model.NetworkBenchmark{},
		&model.KPIDaily{},
		&model.Lead{},
		&model.ComplianceItem{},
		&model.AdSpendDaily{},
		&model.GBPReview{},
		&model.DriveAppointment{},
		&model.Student{},
		&model.ActionItem{},
		&model.Automation{},
		&model.AutomationStep{},
		&model.AutomationEnrollment{},
		&model.AutomationLog{},
		&model.ActivityLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(activeItemIndexSQL).Error; err != nil {
		return fmt.Errorf("create active item index: %w", err)
	}
	return nil
}

func (s *GormStore) ActiveLocations(ctx context.Context, organizationID string) ([]model.Location, error) {
	var locations []model.Location
	q := s.db.WithContext(ctx).Where("is_active = ?", true)
	if organizationID != "" {
		q = q.Where("organization_id = ?", organizationID)
	}
	if err := q.Order("name").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

func (s *GormStore) LatestBenchmark(ctx context.Context) (*model.NetworkBenchmark, error) {
	var rows []model.NetworkBenchmark
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *GormStore) KPIHistory(ctx context.Context, locationID string, from, to time.Time) ([]model.KPIDaily, error) {
	var rows []model.KPIDaily
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND date >= ? AND date <= ?", locationID, from, to).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

// UncontactedLeads prefers the get_uncontacted_leads database function and
// falls back to a plain query when it is not installed.
func (s *GormStore) UncontactedLeads(ctx context.Context, locationID string) ([]model.Lead, error) {
	var leads []model.Lead
	err := s.db.WithContext(ctx).Raw("SELECT * FROM get_uncontacted_leads(?)", locationID).Scan(&leads).Error
	if err == nil {
		return leads, nil
	}
	log.Printf("[UncontactedLeads] get_uncontacted_leads unavailable, using query: %v", err)

	leads = nil
	err = s.db.WithContext(ctx).
		Where("location_id = ? AND contacted = ?", locationID, false).
		Order("created_at ASC").
		Find(&leads).Error
	return leads, err
}

func (s *GormStore) LeadsCreatedSince(ctx context.Context, locationID string, since time.Time) ([]model.Lead, error) {
	var leads []model.Lead
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND created_at >= ?", locationID, since).
		Order("created_at ASC").
		Find(&leads).Error
	return leads, err
}

func (s *GormStore) ComplianceItems(ctx context.Context, locationID string) ([]model.ComplianceItem, error) {
	var items []model.ComplianceItem
	err := s.db.WithContext(ctx).Where("location_id = ?", locationID).Order("expires_at ASC").Find(&items).Error
	return items, err
}

func (s *GormStore) AdSpend(ctx context.Context, locationID string, from, to time.Time) ([]model.AdSpendDaily, error) {
	var rows []model.AdSpendDaily
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND date >= ? AND date <= ?", locationID, from, to).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) UnrepliedReviews(ctx context.Context, locationID string) ([]model.GBPReview, error) {
	var reviews []model.GBPReview
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND replied = ?", locationID, false).
		Order("reviewed_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (s *GormStore) DrivesBetween(ctx context.Context, locationID string, from, to time.Time) ([]model.DriveAppointment, error) {
	var drives []model.DriveAppointment
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND scheduled_at >= ? AND scheduled_at <= ?", locationID, from, to).
		Order("scheduled_at ASC").
		Find(&drives).Error
	return drives, err
}

func (s *GormStore) ActiveStudents(ctx context.Context, locationID string) ([]model.Student, error) {
	var students []model.Student
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND status = ?", locationID, "active").
		Where("(balance_due > 0 OR lessons_remaining > 0)").
		Find(&students).Error
	return students, err
}

func (s *GormStore) ActiveActionItems(ctx context.Context, locationID string) ([]model.ActionItem, error) {
	var items []model.ActionItem
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND status IN ?", locationID, activeStatusValues()).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (s *GormStore) FindActiveActionItem(ctx context.Context, locationID, ruleID string) (*model.ActionItem, error) {
	var item model.ActionItem
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND rule_id = ? AND status IN ?", locationID, ruleID, activeStatusValues()).
		Order("created_at ASC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *GormStore) CreateActionItem(ctx context.Context, item *model.ActionItem) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *GormStore) UpdateActionItemContent(ctx context.Context, id string, c ActionContent, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.ActionItem{}).
		Where("id = ? AND status IN ?", id, activeStatusValues()).
		Updates(map[string]interface{}{
			"priority":           c.Priority,
			"title":              c.Title,
			"description":        c.Description,
			"recommended_action": c.RecommendedAction,
			"data":               datatypes.JSON(c.Data),
			"updated_at":         at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) ResolveOpenActionItems(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&model.ActionItem{}).
		Where("id IN ? AND status = ?", ids, model.StatusOpen).
		Updates(map[string]interface{}{
			"status":     model.StatusResolved,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

// ActionItemFilter narrows ListActionItems. Empty fields match everything.
type ActionItemFilter struct {
	LocationID string
	Status     model.ActionStatus
	Limit      int
}

func (s *GormStore) ListActionItems(ctx context.Context, f ActionItemFilter) ([]model.ActionItem, error) {
	q := s.db.WithContext(ctx).Model(&model.ActionItem{})
	if f.LocationID != "" {
		q = q.Where("location_id = ?", f.LocationID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = 200
	}
	var items []model.ActionItem
	err := q.Order("created_at DESC").Limit(f.Limit).Find(&items).Error
	return items, err
}

// TransitionActionItem applies a manual status change checked against the
// state machine. The write only lands if the status is still the one read.
func (s *GormStore) TransitionActionItem(ctx context.Context, id string, to model.ActionStatus, at time.Time) (*model.ActionItem, error) {
	var item model.ActionItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActionItemNotFound
		}
		return nil, err
	}
	if err := model.CanTransition(item.Status, to); err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&model.ActionItem{}).
		Where("id = ? AND status = ?", id, item.Status).
		Updates(map[string]interface{}{"status": to, "updated_at": at})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrStaleTransition
	}
	item.Status = to
	item.UpdatedAt = at
	return &item, nil
}

func (s *GormStore) DueEnrollments(ctx context.Context, now time.Time, limit int) ([]model.AutomationEnrollment, error) {
	var enrollments []model.AutomationEnrollment
	err := s.db.WithContext(ctx).
		Preload("Automation").
		Preload("Lead").
		Preload("Lead.Location").
		Where("status = ? AND next_execution_at <= ?", model.EnrollmentActive, now).
		Order("next_execution_at ASC").
		Limit(limit).
		Find(&enrollments).Error
	return enrollments, err
}

func (s *GormStore) StepAt(ctx context.Context, automationID string, order int) (*model.AutomationStep, error) {
	var step model.AutomationStep
	err := s.db.WithContext(ctx).
		Where("automation_id = ? AND step_order = ?", automationID, order).
		First(&step).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &step, nil
}

func (s *GormStore) StepSucceeded(ctx context.Context, enrollmentID, stepID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.AutomationLog{}).
		Where("enrollment_id = ? AND step_id = ? AND status = ?", enrollmentID, stepID, model.StepSucceeded).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) InsertAutomationLog(ctx context.Context, entry *model.AutomationLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) InsertActivityLog(ctx context.Context, entry *model.ActivityLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// UpdateLeadField writes one column. Callers must have checked column against
// the lead field allow-list.
func (s *GormStore) UpdateLeadField(ctx context.Context, leadID, column string, value interface{}, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]interface{}{column: value, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("lead %s not found", leadID)
	}
	return nil
}

func (s *GormStore) AdvanceEnrollment(ctx context.Context, id string, nextOrder int, nextAt, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.AutomationEnrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_step_order": nextOrder,
			"next_execution_at":  nextAt,
			"updated_at":         at,
		}).Error
}

func (s *GormStore) CompleteEnrollment(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.AutomationEnrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            model.EnrollmentCompleted,
			"completed_at":      at,
			"next_execution_at": nil,
			"updated_at":        at,
		}).Error
}
