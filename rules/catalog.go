package rules

import (
	"fmt"
	"sort"
	"time"

	"github.com/Itish41/FranchiseOps/models"
)

// Stable rule ids. Changing one orphans every action item it produced.
const (
	RuleMissedCalls         = "missed_calls"
	RuleUncontactedLeads    = "uncontacted_leads"
	RuleComplianceExpiring  = "compliance_expiring"
	RuleAdSpendNoLeads      = "ad_spend_no_leads"
	RuleCostPerLeadAboveNet = "cost_per_lead_above_network"
	RuleUnrepliedReviews    = "unreplied_reviews"
	RuleDriveNoShows        = "drive_no_shows"
	RuleOutstandingBalances = "outstanding_balances"
	RuleLeadVolumeDrop      = "lead_volume_drop"
	RuleKPIReportingGap     = "kpi_reporting_gap"
)

const (
	kpiReportingGapDays      = 3
	leadVolumeMinPriorWeekly = 1.0
)

// DefaultCatalog builds the standard rule set with the given thresholds.
func DefaultCatalog(t Thresholds) *Catalog {
	t = t.WithDefaults()
	c, err := NewCatalog(
		missedCalls(t),
		uncontactedLeads(t),
		complianceExpiring(t),
		adSpendNoLeads(t),
		costPerLeadAboveNetwork(t),
		unrepliedReviews(t),
		driveNoShows(t),
		outstandingBalances(t),
		leadVolumeDrop(t),
		kpiReportingGap(),
	)
	if err != nil {
		// ids above are constants; a clash is a programming error
		panic(err)
	}
	return c
}

func missedCalls(t Thresholds) Rule {
	return Rule{
		ID:       RuleMissedCalls,
		Category: models.CategoryScheduling,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			var received, answered, missed int
			for _, d := range ec.LastKPIDays(7) {
				dayReceived := d.CallsReceived
				if alt := d.CallsAnswered + d.MissedCalls; alt > dayReceived {
					dayReceived = alt
				}
				received += dayReceived
				answered += d.CallsAnswered
				missed += d.MissedCalls
			}
			if received < t.MinCallsForAnswerRate {
				return nil, nil
			}
			rate := float64(answered) / float64(received)
			if rate >= t.AnswerRateHigh {
				return nil, nil
			}
			priority := models.PriorityHigh
			if rate < t.AnswerRateCritical {
				priority = models.PriorityCritical
			}
			return &ActionItemOutput{
				Priority:          priority,
				Title:             fmt.Sprintf("Answer rate at %.0f%% over the last 7 days", rate*100),
				Description:       fmt.Sprintf("%s answered %d of %d calls; %d were missed.", ec.Location.Name, answered, received, missed),
				RecommendedAction: "Review front desk coverage and set up call forwarding for peak hours.",
				Data: map[string]interface{}{
					"calls_received": received,
					"calls_answered": answered,
					"missed_calls":   missed,
					"answer_rate":    rate,
				},
			}, nil
		},
	}
}

func uncontactedLeads(t Thresholds) Rule {
	return Rule{
		ID:       RuleUncontactedLeads,
		Category: models.CategoryLeadFollowup,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			n := len(ec.UncontactedLeads)
			if n == 0 {
				return nil, nil
			}
			oldest := ec.UncontactedLeads[0].CreatedAt
			for _, l := range ec.UncontactedLeads[1:] {
				if l.CreatedAt.Before(oldest) {
					oldest = l.CreatedAt
				}
			}
			priority := models.PriorityMedium
			if n >= t.UncontactedHighCount {
				priority = models.PriorityHigh
			}
			return &ActionItemOutput{
				Priority:          priority,
				Title:             fmt.Sprintf("%d leads waiting for first contact", n),
				Description:       fmt.Sprintf("The oldest has been waiting %.0f hours.", ec.Now.Sub(oldest).Hours()),
				RecommendedAction: "Call or text each uncontacted lead today.",
				Data: map[string]interface{}{
					"count":        n,
					"oldest_since": oldest,
				},
			}, nil
		},
	}
}

func complianceExpiring(t Thresholds) Rule {
	return Rule{
		ID:       RuleComplianceExpiring,
		Category: models.CategoryCompliance,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			var due []ComplianceStatus
			for _, c := range ec.Compliance {
				if c.DaysUntilExpiry <= t.ComplianceNoticeDays {
					due = append(due, c)
				}
			}
			if len(due) == 0 {
				return nil, nil
			}
			sort.Slice(due, func(i, j int) bool { return due[i].DaysUntilExpiry < due[j].DaysUntilExpiry })
			soonest := due[0]

			priority := models.PriorityMedium
			switch {
			case soonest.DaysUntilExpiry <= t.ComplianceCriticalDays:
				priority = models.PriorityCritical
			case soonest.DaysUntilExpiry <= t.ComplianceHighDays:
				priority = models.PriorityHigh
			}

			names := make([]string, 0, len(due))
			for _, c := range due {
				names = append(names, c.Item.Name)
			}
			title := fmt.Sprintf("%s expires in %d days", soonest.Item.Name, soonest.DaysUntilExpiry)
			if soonest.DaysUntilExpiry < 0 {
				title = fmt.Sprintf("%s expired %d days ago", soonest.Item.Name, -soonest.DaysUntilExpiry)
			}
			return &ActionItemOutput{
				Priority:          priority,
				Title:             title,
				Description:       fmt.Sprintf("%d compliance items need renewal within %d days.", len(due), t.ComplianceNoticeDays),
				RecommendedAction: "Renew the listed items and upload the new certificates.",
				Data: map[string]interface{}{
					"items":        names,
					"soonest_days": soonest.DaysUntilExpiry,
				},
			}, nil
		},
	}
}

func adSpendNoLeads(t Thresholds) Rule {
	return Rule{
		ID:       RuleAdSpendNoLeads,
		Category: models.CategoryMarketing,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			spend, leads := sumSpend(ec.AdSpend7d)
			if spend < t.AdSpendNoLeadsMin || leads > 0 {
				return nil, nil
			}
			return &ActionItemOutput{
				Priority:          models.PriorityHigh,
				Title:             fmt.Sprintf("$%.2f ad spend with no leads this week", spend),
				Description:       "Paid campaigns produced no attributed leads in the last 7 days.",
				RecommendedAction: "Pause the campaigns and check landing page forms and tracking.",
				Data:              map[string]interface{}{"spend_7d": spend},
			}, nil
		},
	}
}

func costPerLeadAboveNetwork(t Thresholds) Rule {
	return Rule{
		ID:       RuleCostPerLeadAboveNet,
		Category: models.CategoryMarketing,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			if ec.Benchmark == nil || ec.Benchmark.AvgCostPerLead <= 0 {
				return nil, nil
			}
			spend, leads := sumSpend(ec.AdSpend30d)
			if leads == 0 {
				return nil, nil
			}
			cpl := spend / float64(leads)
			limit := ec.Benchmark.AvgCostPerLead * t.CostPerLeadMultiplier
			if cpl <= limit {
				return nil, nil
			}
			return &ActionItemOutput{
				Priority:          models.PriorityMedium,
				Title:             fmt.Sprintf("Cost per lead $%.2f vs network $%.2f", cpl, ec.Benchmark.AvgCostPerLead),
				Description:       "30-day cost per lead is well above the network average.",
				RecommendedAction: "Shift budget to the channels with the lowest cost per lead.",
				Data: map[string]interface{}{
					"cost_per_lead":  cpl,
					"network_cpl":    ec.Benchmark.AvgCostPerLead,
					"spend_30d":      spend,
					"leads_30d":      leads,
					"benchmark_from": ec.Benchmark.Period,
				},
			}, nil
		},
	}
}

func unrepliedReviews(t Thresholds) Rule {
	return Rule{
		ID:       RuleUnrepliedReviews,
		Category: models.CategoryReputation,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			n := len(ec.UnrepliedReviews)
			if n == 0 {
				return nil, nil
			}
			low := 0
			for _, r := range ec.UnrepliedReviews {
				if r.Rating <= t.LowRating {
					low++
				}
			}
			priority := models.PriorityMedium
			if low > 0 {
				priority = models.PriorityHigh
			}
			return &ActionItemOutput{
				Priority:          priority,
				Title:             fmt.Sprintf("%d reviews without a reply", n),
				Description:       fmt.Sprintf("%d of them are rated %d stars or lower.", low, t.LowRating),
				RecommendedAction: "Reply to each review, starting with the low ratings.",
				Data:              map[string]interface{}{"count": n, "low_rated": low},
			}, nil
		},
	}
}

func driveNoShows(t Thresholds) Rule {
	return Rule{
		ID:       RuleDriveNoShows,
		Category: models.CategoryScheduling,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			total, noShows := 0, 0
			for _, d := range ec.RecentDrives {
				if d.Status == models.DriveCancelled || d.ScheduledAt.After(ec.Now) {
					continue
				}
				total++
				if d.Status == models.DriveNoShow {
					noShows++
				}
			}
			if total < t.MinDrivesForNS {
				return nil, nil
			}
			rate := float64(noShows) / float64(total)
			if rate <= t.NoShowRate {
				return nil, nil
			}
			priority := models.PriorityMedium
			if rate > 2*t.NoShowRate {
				priority = models.PriorityHigh
			}
			return &ActionItemOutput{
				Priority:          priority,
				Title:             fmt.Sprintf("%.0f%% of drives were no-shows this week", rate*100),
				Description:       fmt.Sprintf("%d of %d drive appointments were missed.", noShows, total),
				RecommendedAction: "Turn on appointment reminders the day before each drive.",
				Data:              map[string]interface{}{"no_shows": noShows, "drives": total, "rate": rate},
			}, nil
		},
	}
}

func outstandingBalances(t Thresholds) Rule {
	return Rule{
		ID:       RuleOutstandingBalances,
		Category: models.CategoryFinancial,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			var total float64
			students := 0
			for _, s := range ec.ActiveStudents {
				if s.BalanceDue > 0 {
					total += s.BalanceDue
					students++
				}
			}
			if total < t.OutstandingBalanceMin {
				return nil, nil
			}
			priority := models.PriorityMedium
			if total >= 5*t.OutstandingBalanceMin {
				priority = models.PriorityHigh
			}
			return &ActionItemOutput{
				Priority:          priority,
				Title:             fmt.Sprintf("$%.2f outstanding across %d students", total, students),
				Description:       "Active students carry unpaid balances.",
				RecommendedAction: "Collect balances before scheduling further lessons.",
				Data:              map[string]interface{}{"total_due": total, "students": students},
			}, nil
		},
	}
}

func leadVolumeDrop(t Thresholds) Rule {
	return Rule{
		ID:       RuleLeadVolumeDrop,
		Category: models.CategoryPerformance,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			if len(ec.KPIHistory) < 14 {
				return nil, nil
			}
			split := len(ec.KPIHistory) - 7
			prior, recent := 0, 0
			for _, d := range ec.KPIHistory[:split] {
				prior += d.LeadsCreated
			}
			for _, d := range ec.KPIHistory[split:] {
				recent += d.LeadsCreated
			}
			priorWeekly := float64(prior) / float64(split) * 7
			if priorWeekly < leadVolumeMinPriorWeekly || float64(recent) >= priorWeekly*t.LeadVolumeDropRatio {
				return nil, nil
			}
			return &ActionItemOutput{
				Priority:          models.PriorityMedium,
				Title:             fmt.Sprintf("Leads down to %d this week from %.1f", recent, priorWeekly),
				Description:       "Weekly lead volume fell sharply against the rest of the month.",
				RecommendedAction: "Check campaign status, listings and the website contact form.",
				Data:              map[string]interface{}{"recent_7d": recent, "prior_weekly_avg": priorWeekly},
			}, nil
		},
	}
}

func kpiReportingGap() Rule {
	return Rule{
		ID:       RuleKPIReportingGap,
		Category: models.CategoryOperations,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			if ec.TodayKPI != nil && ec.Now.Sub(ec.TodayKPI.Date) < kpiReportingGapDays*24*time.Hour {
				return nil, nil
			}
			out := &ActionItemOutput{
				Priority:          models.PriorityLow,
				Title:             "Daily KPIs are not being reported",
				Description:       fmt.Sprintf("No KPI row in the last %d days.", kpiReportingGapDays),
				RecommendedAction: "Check the phone system and booking integrations.",
			}
			if ec.TodayKPI != nil {
				out.Data = map[string]interface{}{"last_reported": ec.TodayKPI.Date}
			}
			return out, nil
		},
	}
}
