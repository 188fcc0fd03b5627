package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	model "github.com/Itish41/FranchiseOps/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FixedTime is the clock used across service tests.
var FixedTime = time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return FixedTime }

// newTestStore opens a private in-memory sqlite database with the full schema.
func newTestStore(t *testing.T) (*GormStore, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := NewGormStore(db)
	require.NoError(t, store.AutoMigrate(context.Background()))
	return store, db
}

func seedLocation(t *testing.T, db *gorm.DB, name string) model.Location {
	t.Helper()
	loc := model.Location{Name: name, OrganizationID: "org-1", IsActive: true, Timezone: "America/Chicago"}
	require.NoError(t, db.Create(&loc).Error)
	return loc
}

func dayStart(offset int) time.Time {
	return time.Date(FixedTime.Year(), FixedTime.Month(), FixedTime.Day()+offset, 0, 0, 0, 0, time.UTC)
}

// seedKPIs writes n daily rows ending today.
func seedKPIs(t *testing.T, db *gorm.DB, locationID string, n int, fill func(i int, k *model.KPIDaily)) {
	t.Helper()
	for i := 0; i < n; i++ {
		k := model.KPIDaily{LocationID: locationID, Date: dayStart(i - n + 1), CreatedAt: FixedTime}
		if fill != nil {
			fill(i, &k)
		}
		require.NoError(t, db.Create(&k).Error)
	}
}

func activeItems(t *testing.T, db *gorm.DB, locationID, ruleID string) []model.ActionItem {
	t.Helper()
	var items []model.ActionItem
	require.NoError(t, db.
		Where("location_id = ? AND rule_id = ? AND status IN ?", locationID, ruleID, activeStatusValues()).
		Find(&items).Error)
	return items
}
