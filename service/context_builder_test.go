package services

import (
	"context"
	"errors"
	"testing"
	"time"

	model "github.com/Itish41/FranchiseOps/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockContextSource is a testify mock of ContextSource.
type MockContextSource struct {
	mock.Mock
}

func (m *MockContextSource) KPIHistory(ctx context.Context, locationID string, from, to time.Time) ([]model.KPIDaily, error) {
	args := m.Called(ctx, locationID, from, to)
	return args.Get(0).([]model.KPIDaily), args.Error(1)
}

func (m *MockContextSource) UncontactedLeads(ctx context.Context, locationID string) ([]model.Lead, error) {
	args := m.Called(ctx, locationID)
	return args.Get(0).([]model.Lead), args.Error(1)
}

func (m *MockContextSource) LeadsCreatedSince(ctx context.Context, locationID string, since time.Time) ([]model.Lead, error) {
	args := m.Called(ctx, locationID, since)
	return args.Get(0).([]model.Lead), args.Error(1)
}

func (m *MockContextSource) ComplianceItems(ctx context.Context, locationID string) ([]model.ComplianceItem, error) {
	args := m.Called(ctx, locationID)
	return args.Get(0).([]model.ComplianceItem), args.Error(1)
}

func (m *MockContextSource) AdSpend(ctx context.Context, locationID string, from, to time.Time) ([]model.AdSpendDaily, error) {
	args := m.Called(ctx, locationID, from, to)
	return args.Get(0).([]model.AdSpendDaily), args.Error(1)
}

func (m *MockContextSource) UnrepliedReviews(ctx context.Context, locationID string) ([]model.GBPReview, error) {
	args := m.Called(ctx, locationID)
	return args.Get(0).([]model.GBPReview), args.Error(1)
}

func (m *MockContextSource) DrivesBetween(ctx context.Context, locationID string, from, to time.Time) ([]model.DriveAppointment, error) {
	args := m.Called(ctx, locationID, from, to)
	return args.Get(0).([]model.DriveAppointment), args.Error(1)
}

func (m *MockContextSource) ActiveStudents(ctx context.Context, locationID string) ([]model.Student, error) {
	args := m.Called(ctx, locationID)
	return args.Get(0).([]model.Student), args.Error(1)
}

func TestContextBuilder_Build(t *testing.T) {
	ctx := context.Background()
	loc := model.Location{ID: "loc-1", Name: "Omaha"}
	monthAgo := dayStart(-30)
	weekAgo := dayStart(-7)

	src := new(MockContextSource)
	src.On("KPIHistory", ctx, "loc-1", monthAgo, FixedTime).Return([]model.KPIDaily{
		{Date: dayStart(-2), CallsReceived: 3},
		{Date: dayStart(-1), CallsReceived: 5},
	}, nil)
	src.On("UncontactedLeads", ctx, "loc-1").Return([]model.Lead{{ID: "lead-1"}}, nil)
	src.On("LeadsCreatedSince", ctx, "loc-1", weekAgo).Return([]model.Lead{{ID: "lead-2"}}, nil)
	src.On("ComplianceItems", ctx, "loc-1").Return([]model.ComplianceItem{
		{Name: "Insurance", ExpiresAt: dayStart(3).Add(18 * time.Hour)},
		{Name: "Permit", ExpiresAt: dayStart(-1)},
		{Name: "Registration", ExpiresAt: dayStart(90)},
	}, nil)
	src.On("AdSpend", ctx, "loc-1", monthAgo, FixedTime).Return([]model.AdSpendDaily{
		{Date: dayStart(-20), Spend: 50},
		{Date: dayStart(-7), Spend: 30},
		{Date: dayStart(-1), Spend: 20},
	}, nil)
	src.On("UnrepliedReviews", ctx, "loc-1").Return([]model.GBPReview{{Rating: 2}}, nil)
	src.On("DrivesBetween", ctx, "loc-1", weekAgo, FixedTime).Return([]model.DriveAppointment{{Status: model.DriveNoShow}}, nil)
	src.On("ActiveStudents", ctx, "loc-1").Return([]model.Student{{BalanceDue: 100}}, nil)

	benchmark := &model.NetworkBenchmark{Period: "2025-02"}
	ec, warnings := NewContextBuilder(src).Build(ctx, loc, benchmark, FixedTime)

	assert.Empty(t, warnings)
	assert.Equal(t, FixedTime, ec.Now)
	assert.Same(t, benchmark, ec.Benchmark)
	require.NotNil(t, ec.TodayKPI)
	assert.Equal(t, 5, ec.TodayKPI.CallsReceived)
	assert.Len(t, ec.KPIHistory, 2)
	assert.Len(t, ec.UncontactedLeads, 1)
	assert.Len(t, ec.RecentLeads, 1)
	assert.Len(t, ec.AdSpend30d, 3)
	assert.Len(t, ec.AdSpend7d, 2)
	assert.Len(t, ec.UnrepliedReviews, 1)
	assert.Len(t, ec.RecentDrives, 1)
	assert.Len(t, ec.ActiveStudents, 1)

	require.Len(t, ec.Compliance, 3)
	assert.Equal(t, 3, ec.Compliance[0].DaysUntilExpiry)
	assert.Equal(t, model.ComplianceExpiring, ec.Compliance[0].Status)
	assert.Equal(t, -1, ec.Compliance[1].DaysUntilExpiry)
	assert.Equal(t, model.ComplianceExpired, ec.Compliance[1].Status)
	assert.Equal(t, model.ComplianceValid, ec.Compliance[2].Status)
	src.AssertExpectations(t)
}

func TestContextBuilder_DegradesPerSource(t *testing.T) {
	ctx := context.Background()
	loc := model.Location{ID: "loc-1", Name: "Omaha"}
	boom := errors.New("timeout")

	src := new(MockContextSource)
	src.On("KPIHistory", ctx, "loc-1", mock.Anything, mock.Anything).Return([]model.KPIDaily(nil), boom)
	src.On("UncontactedLeads", ctx, "loc-1").Return([]model.Lead(nil), errors.New("function missing"))
	src.On("LeadsCreatedSince", ctx, "loc-1", mock.Anything).Return([]model.Lead{}, nil)
	src.On("ComplianceItems", ctx, "loc-1").Return([]model.ComplianceItem{{Name: "Insurance", ExpiresAt: dayStart(5)}}, nil)
	src.On("AdSpend", ctx, "loc-1", mock.Anything, mock.Anything).Return([]model.AdSpendDaily(nil), boom)
	src.On("UnrepliedReviews", ctx, "loc-1").Return([]model.GBPReview{}, nil)
	src.On("DrivesBetween", ctx, "loc-1", mock.Anything, mock.Anything).Return([]model.DriveAppointment{}, nil)
	src.On("ActiveStudents", ctx, "loc-1").Return([]model.Student{}, nil)

	ec, warnings := NewContextBuilder(src).Build(ctx, loc, nil, FixedTime)

	// The uncontacted leads helper is optional and never reported.
	require.Len(t, warnings, 2)
	assert.ErrorIs(t, warnings[0], boom)
	assert.Contains(t, warnings[0].Error(), "location Omaha: kpi history")
	assert.Contains(t, warnings[1].Error(), "location Omaha: ad spend")

	assert.Nil(t, ec.TodayKPI)
	assert.Empty(t, ec.UncontactedLeads)
	assert.Nil(t, ec.Benchmark)
	require.Len(t, ec.Compliance, 1)
	assert.Equal(t, 5, ec.Compliance[0].DaysUntilExpiry)
}

func TestContextBuilder_UsesLocationTimezone(t *testing.T) {
	ctx := context.Background()
	// 03:00 UTC on March 5 is still the evening of March 4 in Chicago.
	now := time.Date(2025, time.March, 5, 3, 0, 0, 0, time.UTC)
	localToday := time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2025, time.March, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		timezone  string
		today     time.Time
		wantDays  int
		wantKPIOn time.Time
	}{
		{name: "chicago", timezone: "America/Chicago", today: localToday, wantDays: 4, wantKPIOn: localToday},
		{name: "unset", timezone: "", today: localToday.AddDate(0, 0, 1), wantDays: 3, wantKPIOn: localToday.AddDate(0, 0, 1)},
		{name: "unknown falls back to utc", timezone: "Mars/Olympus", today: localToday.AddDate(0, 0, 1), wantDays: 3, wantKPIOn: localToday.AddDate(0, 0, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := model.Location{ID: "loc-1", Name: "Omaha", Timezone: tt.timezone}
			monthAgo := tt.today.AddDate(0, 0, -30)
			weekAgo := tt.today.AddDate(0, 0, -7)

			src := new(MockContextSource)
			src.On("KPIHistory", ctx, "loc-1", monthAgo, now).Return([]model.KPIDaily{
				{Date: localToday, CallsReceived: 4},
				{Date: localToday.AddDate(0, 0, 1), CallsReceived: 1},
			}, nil)
			src.On("UncontactedLeads", ctx, "loc-1").Return([]model.Lead{}, nil)
			src.On("LeadsCreatedSince", ctx, "loc-1", weekAgo).Return([]model.Lead{}, nil)
			src.On("ComplianceItems", ctx, "loc-1").Return([]model.ComplianceItem{{Name: "Insurance", ExpiresAt: expiry}}, nil)
			src.On("AdSpend", ctx, "loc-1", monthAgo, now).Return([]model.AdSpendDaily{}, nil)
			src.On("UnrepliedReviews", ctx, "loc-1").Return([]model.GBPReview{}, nil)
			src.On("DrivesBetween", ctx, "loc-1", weekAgo, now).Return([]model.DriveAppointment{}, nil)
			src.On("ActiveStudents", ctx, "loc-1").Return([]model.Student{}, nil)

			ec, warnings := NewContextBuilder(src).Build(ctx, loc, nil, now)

			assert.Empty(t, warnings)
			require.Len(t, ec.Compliance, 1)
			assert.Equal(t, tt.wantDays, ec.Compliance[0].DaysUntilExpiry)
			require.NotNil(t, ec.TodayKPI)
			assert.True(t, ec.TodayKPI.Date.Equal(tt.wantKPIOn), ec.TodayKPI.Date)
			src.AssertExpectations(t)
		})
	}
}
