package rules

import (
	"testing"
	"time"

	"github.com/Itish41/FranchiseOps/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(testNow.Year(), testNow.Month(), testNow.Day()+offset, 0, 0, 0, 0, time.UTC)
}

// kpiDays returns n consecutive rows ending today, oldest first.
func kpiDays(n int, fill func(i int, k *models.KPIDaily)) []models.KPIDaily {
	rows := make([]models.KPIDaily, n)
	for i := range rows {
		rows[i] = models.KPIDaily{Date: day(i - n + 1)}
		if fill != nil {
			fill(i, &rows[i])
		}
	}
	return rows
}

func baseContext() EvaluationContext {
	return EvaluationContext{
		Location: models.Location{ID: "loc-1", Name: "Omaha", IsActive: true},
		Now:      testNow,
	}
}

func withKPI(ec EvaluationContext, rows []models.KPIDaily) EvaluationContext {
	ec.KPIHistory = rows
	if len(rows) > 0 {
		ec.TodayKPI = &rows[len(rows)-1]
	}
	return ec
}

func evaluate(t *testing.T, id string, ec EvaluationContext) *ActionItemOutput {
	t.Helper()
	c := DefaultCatalog(DefaultThresholds)
	fired, failed := c.Evaluate(ec)
	require.Empty(t, failed)
	for i := range fired {
		if fired[i].RuleID == id {
			return &fired[i]
		}
	}
	return nil
}

func TestMissedCalls(t *testing.T) {
	tests := []struct {
		name     string
		fill     func(i int, k *models.KPIDaily)
		priority models.Priority
	}{
		{
			name: "too few calls",
			fill: func(i int, k *models.KPIDaily) {
				if i == 0 {
					k.CallsReceived, k.MissedCalls = 3, 3
				}
			},
		},
		{
			name: "healthy answer rate",
			fill: func(i int, k *models.KPIDaily) { k.CallsReceived, k.CallsAnswered, k.MissedCalls = 10, 9, 1 },
		},
		{
			name:     "below high threshold",
			fill:     func(i int, k *models.KPIDaily) { k.CallsReceived, k.CallsAnswered, k.MissedCalls = 10, 7, 3 },
			priority: models.PriorityHigh,
		},
		{
			name:     "below critical threshold",
			fill:     func(i int, k *models.KPIDaily) { k.CallsReceived, k.CallsAnswered, k.MissedCalls = 10, 4, 6 },
			priority: models.PriorityCritical,
		},
		{
			name:     "received derived from answered plus missed",
			fill:     func(i int, k *models.KPIDaily) { k.CallsAnswered, k.MissedCalls = 1, 3 },
			priority: models.PriorityCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := evaluate(t, RuleMissedCalls, withKPI(baseContext(), kpiDays(7, tt.fill)))
			if tt.priority == "" {
				assert.Nil(t, out)
				return
			}
			require.NotNil(t, out)
			assert.Equal(t, tt.priority, out.Priority)
			assert.Equal(t, models.CategoryScheduling, out.Category)
			assert.Equal(t, SourceActionEngine, out.Source)
		})
	}
}

func TestMissedCalls_OnlyLastSevenDays(t *testing.T) {
	rows := kpiDays(14, func(i int, k *models.KPIDaily) {
		if i < 7 {
			k.CallsReceived, k.MissedCalls = 20, 20
			return
		}
		k.CallsReceived, k.CallsAnswered = 10, 10
	})
	assert.Nil(t, evaluate(t, RuleMissedCalls, withKPI(baseContext(), rows)))
}

func TestUncontactedLeads(t *testing.T) {
	ec := withKPI(baseContext(), kpiDays(1, nil))
	assert.Nil(t, evaluate(t, RuleUncontactedLeads, ec))

	ec.UncontactedLeads = []models.Lead{
		{ID: "a", CreatedAt: testNow.Add(-2 * time.Hour)},
		{ID: "b", CreatedAt: testNow.Add(-30 * time.Hour)},
	}
	out := evaluate(t, RuleUncontactedLeads, ec)
	require.NotNil(t, out)
	assert.Equal(t, models.PriorityMedium, out.Priority)
	assert.Equal(t, models.CategoryLeadFollowup, out.Category)
	assert.Equal(t, 2, out.Data["count"])
	assert.Contains(t, out.Description, "30 hours")

	for i := 0; i < 3; i++ {
		ec.UncontactedLeads = append(ec.UncontactedLeads, models.Lead{CreatedAt: testNow})
	}
	out = evaluate(t, RuleUncontactedLeads, ec)
	require.NotNil(t, out)
	assert.Equal(t, models.PriorityHigh, out.Priority)
}

func TestComplianceExpiring(t *testing.T) {
	status := func(name string, days int) ComplianceStatus {
		return ComplianceStatus{Item: models.ComplianceItem{Name: name}, DaysUntilExpiry: days}
	}
	tests := []struct {
		name     string
		items    []ComplianceStatus
		priority models.Priority
		title    string
	}{
		{name: "nothing due", items: []ComplianceStatus{status("Insurance", 45)}},
		{name: "notice window", items: []ComplianceStatus{status("Insurance", 25), status("Permit", 90)}, priority: models.PriorityMedium},
		{name: "high window", items: []ComplianceStatus{status("Insurance", 25), status("Permit", 10)}, priority: models.PriorityHigh, title: "Permit expires in 10 days"},
		{name: "critical window", items: []ComplianceStatus{status("Insurance", 3)}, priority: models.PriorityCritical, title: "Insurance expires in 3 days"},
		{name: "already expired", items: []ComplianceStatus{status("Insurance", -2)}, priority: models.PriorityCritical, title: "Insurance expired 2 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := withKPI(baseContext(), kpiDays(1, nil))
			ec.Compliance = tt.items
			out := evaluate(t, RuleComplianceExpiring, ec)
			if tt.priority == "" {
				assert.Nil(t, out)
				return
			}
			require.NotNil(t, out)
			assert.Equal(t, tt.priority, out.Priority)
			assert.Equal(t, models.CategoryCompliance, out.Category)
			if tt.title != "" {
				assert.Equal(t, tt.title, out.Title)
			}
		})
	}
}

func TestAdSpendRules(t *testing.T) {
	ec := withKPI(baseContext(), kpiDays(1, nil))
	ec.AdSpend7d = []models.AdSpendDaily{{Spend: 80}, {Spend: 40}}
	ec.AdSpend30d = ec.AdSpend7d

	out := evaluate(t, RuleAdSpendNoLeads, ec)
	require.NotNil(t, out)
	assert.Equal(t, models.PriorityHigh, out.Priority)
	assert.Equal(t, models.CategoryMarketing, out.Category)

	ec.AdSpend7d = []models.AdSpendDaily{{Spend: 120, Leads: 1}}
	assert.Nil(t, evaluate(t, RuleAdSpendNoLeads, ec))

	// Cost per lead needs a benchmark.
	ec.AdSpend30d = []models.AdSpendDaily{{Spend: 600, Leads: 4}}
	assert.Nil(t, evaluate(t, RuleCostPerLeadAboveNet, ec))

	ec.Benchmark = &models.NetworkBenchmark{Period: "2025-02", AvgCostPerLead: 50}
	out = evaluate(t, RuleCostPerLeadAboveNet, ec)
	require.NotNil(t, out)
	assert.Equal(t, 150.0, out.Data["cost_per_lead"])

	ec.Benchmark.AvgCostPerLead = 120
	assert.Nil(t, evaluate(t, RuleCostPerLeadAboveNet, ec))
}

func TestUnrepliedReviews(t *testing.T) {
	ec := withKPI(baseContext(), kpiDays(1, nil))
	ec.UnrepliedReviews = []models.GBPReview{{Rating: 5}, {Rating: 4}}
	out := evaluate(t, RuleUnrepliedReviews, ec)
	require.NotNil(t, out)
	assert.Equal(t, models.PriorityMedium, out.Priority)

	ec.UnrepliedReviews = append(ec.UnrepliedReviews, models.GBPReview{Rating: 2})
	out = evaluate(t, RuleUnrepliedReviews, ec)
	require.NotNil(t, out)
	assert.Equal(t, models.PriorityHigh, out.Priority)
	assert.Equal(t, 1, out.Data["low_rated"])
}

func TestDriveNoShows(t *testing.T) {
	drives := func(noShows, completed int) []models.DriveAppointment {
		var ds []models.DriveAppointment
		for i := 0; i < noShows; i++ {
			ds = append(ds, models.DriveAppointment{Status: models.DriveNoShow, ScheduledAt: testNow.Add(-time.Hour)})
		}
		for i := 0; i < completed; i++ {
			ds = append(ds, models.DriveAppointment{Status: models.DriveCompleted, ScheduledAt: testNow.Add(-time.Hour)})
		}
		return ds
	}

	ec := withKPI(baseContext(), kpiDays(1, nil))

	ec.RecentDrives = drives(2, 2)
	assert.Nil(t, evaluate(t, RuleDriveNoShows, ec), "below minimum drives")

	ec.RecentDrives = drives(1, 9)
	assert.Nil(t, evaluate(t, RuleDriveNoShows, ec), "rate at 10%")

	ec.RecentDrives = drives(3, 7)
	out := evaluate(t, RuleDriveNoShows, ec)
	require.NotNil(t, out)
	assert.Equal(t, models.PriorityMedium, out.Priority)

	ec.RecentDrives = drives(5, 5)
	out = evaluate(t, RuleDriveNoShows, ec)
	require.NotNil(t, out)
	assert.Equal(t, models.PriorityHigh, out.Priority)

	// Cancelled and future drives are not counted.
	ec.RecentDrives = append(drives(2, 2),
		models.DriveAppointment{Status: models.DriveCancelled, ScheduledAt: testNow.Add(-time.Hour)},
		models.DriveAppointment{Status: models.DriveScheduled, ScheduledAt: testNow.Add(time.Hour)},
	)
	assert.Nil(t, evaluate(t, RuleDriveNoShows, ec))
}

func TestOutstandingBalances(t *testing.T) {
	ec := withKPI(baseContext(), kpiDays(1, nil))
	ec.ActiveStudents = []models.Student{{BalanceDue: 200}, {BalanceDue: 100}, {LessonsRemaining: 3}}
	assert.Nil(t, evaluate(t, RuleOutstandingBalances, ec))

	ec.ActiveStudents = append(ec.ActiveStudents, models.Student{BalanceDue: 300})
	out := evaluate(t, RuleOutstandingBalances, ec)
	require.NotNil(t, out)
	assert.Equal(t, models.PriorityMedium, out.Priority)
	assert.Equal(t, models.CategoryFinancial, out.Category)
	assert.Equal(t, 3, out.Data["students"])

	ec.ActiveStudents = []models.Student{{BalanceDue: 2600}}
	out = evaluate(t, RuleOutstandingBalances, ec)
	require.NotNil(t, out)
	assert.Equal(t, models.PriorityHigh, out.Priority)
}

func TestLeadVolumeDrop(t *testing.T) {
	steady := kpiDays(28, func(i int, k *models.KPIDaily) { k.LeadsCreated = 2 })
	assert.Nil(t, evaluate(t, RuleLeadVolumeDrop, withKPI(baseContext(), steady)))

	dropped := kpiDays(28, func(i int, k *models.KPIDaily) {
		if i < 21 {
			k.LeadsCreated = 2
		}
	})
	out := evaluate(t, RuleLeadVolumeDrop, withKPI(baseContext(), dropped))
	require.NotNil(t, out)
	assert.Equal(t, models.CategoryPerformance, out.Category)
	assert.Equal(t, 0, out.Data["recent_7d"])

	short := kpiDays(10, func(i int, k *models.KPIDaily) {
		if i < 3 {
			k.LeadsCreated = 5
		}
	})
	assert.Nil(t, evaluate(t, RuleLeadVolumeDrop, withKPI(baseContext(), short)))
}

func TestKPIReportingGap(t *testing.T) {
	out := evaluate(t, RuleKPIReportingGap, baseContext())
	require.NotNil(t, out)
	assert.Equal(t, models.PriorityLow, out.Priority)
	assert.Equal(t, models.CategoryOperations, out.Category)

	assert.Nil(t, evaluate(t, RuleKPIReportingGap, withKPI(baseContext(), kpiDays(3, nil))))

	stale := []models.KPIDaily{{Date: day(-5)}}
	out = evaluate(t, RuleKPIReportingGap, withKPI(baseContext(), stale))
	require.NotNil(t, out)
	assert.Equal(t, day(-5), out.Data["last_reported"])
}
