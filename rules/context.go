// Package rules holds the per-location evaluation context and the catalog of
// rule predicates the action engine runs against it.
package rules

import (
	"time"

	"github.com/Itish41/FranchiseOps/models"
)

// ComplianceStatus is a compliance item with its standing computed for the run day.
type ComplianceStatus struct {
	Item            models.ComplianceItem  `json:"item"`
	DaysUntilExpiry int                    `json:"days_until_expiry"`
	Status          models.ComplianceState `json:"status"`
}

// EvaluationContext is the snapshot a location's rules see for one run.
// It is built once per location per run and must not be modified by rules.
type EvaluationContext struct {
	Location models.Location
	Now      time.Time

	// TodayKPI is today's row, or the most recent one in KPIHistory. Nil when
	// there is no history at all.
	TodayKPI *models.KPIDaily
	// KPIHistory covers the last 30 days, oldest first.
	KPIHistory []models.KPIDaily

	UncontactedLeads []models.Lead
	// RecentLeads were created in the last 7 days.
	RecentLeads []models.Lead

	Compliance []ComplianceStatus

	AdSpend7d  []models.AdSpendDaily
	AdSpend30d []models.AdSpendDaily

	UnrepliedReviews []models.GBPReview

	// RecentDrives were scheduled in the last 7 days.
	RecentDrives   []models.DriveAppointment
	ActiveStudents []models.Student

	// Benchmark is the latest network snapshot; nil when none exists.
	Benchmark *models.NetworkBenchmark
}

// LastKPIDays returns at most the last n rows of the KPI history.
func (ec EvaluationContext) LastKPIDays(n int) []models.KPIDaily {
	if n >= len(ec.KPIHistory) {
		return ec.KPIHistory
	}
	return ec.KPIHistory[len(ec.KPIHistory)-n:]
}

func sumSpend(rows []models.AdSpendDaily) (spend float64, leads int) {
	for _, r := range rows {
		spend += r.Spend
		leads += r.Leads
	}
	return spend, leads
}
