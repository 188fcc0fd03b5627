package services

import (
	"context"
	"fmt"
	"log"
	"time"
	_ "time/tzdata" // location zones resolve without system zoneinfo

	model "github.com/Itish41/FranchiseOps/models"
	"github.com/Itish41/FranchiseOps/rules"
)

const (
	kpiHistoryDays = 30
	recentDays     = 7
)

// ContextBuilder assembles the evaluation context for one location.
type ContextBuilder struct {
	source ContextSource
}

func NewContextBuilder(source ContextSource) *ContextBuilder {
	return &ContextBuilder{source: source}
}

// locationZone is the location's time zone, UTC when unset or unknown.
func locationZone(loc model.Location) *time.Location {
	if loc.Timezone == "" {
		return time.UTC
	}
	zone, err := time.LoadLocation(loc.Timezone)
	if err != nil {
		log.Printf("[ContextBuilder] location %s: unknown timezone %q, using UTC", loc.Name, loc.Timezone)
		return time.UTC
	}
	return zone
}

// startOfDay is the calendar day of t in zone, as midnight UTC the way
// daily rows store their date.
func startOfDay(t time.Time, zone *time.Location) time.Time {
	t = t.In(zone)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Build queries every context source for the location. A failing source
// leaves its field empty and adds one error to the returned list; the
// uncontacted leads lookup is optional and degrades silently.
func (b *ContextBuilder) Build(ctx context.Context, loc model.Location, benchmark *model.NetworkBenchmark, now time.Time) (rules.EvaluationContext, []error) {
	now = now.UTC()
	zone := locationZone(loc)
	today := startOfDay(now, zone)
	weekAgo := today.AddDate(0, 0, -recentDays)
	monthAgo := today.AddDate(0, 0, -kpiHistoryDays)

	ec := rules.EvaluationContext{
		Location:  loc,
		Now:       now,
		Benchmark: benchmark,
	}
	var warnings []error
	degrade := func(source string, err error) {
		log.Printf("[ContextBuilder] location %s: %s unavailable: %v", loc.Name, source, err)
		warnings = append(warnings, fmt.Errorf("location %s: %s: %w", loc.Name, source, err))
	}

	if rows, err := b.source.KPIHistory(ctx, loc.ID, monthAgo, now); err != nil {
		degrade("kpi history", err)
	} else {
		ec.KPIHistory = rows
		// rows are ascending; the newest one not after the local today wins
		for i := len(rows) - 1; i >= 0; i-- {
			if !rows[i].Date.After(today) {
				latest := rows[i]
				ec.TodayKPI = &latest
				break
			}
		}
	}

	if leads, err := b.source.UncontactedLeads(ctx, loc.ID); err != nil {
		log.Printf("[ContextBuilder] location %s: uncontacted leads unavailable: %v", loc.Name, err)
	} else {
		ec.UncontactedLeads = leads
	}

	if leads, err := b.source.LeadsCreatedSince(ctx, loc.ID, weekAgo); err != nil {
		degrade("recent leads", err)
	} else {
		ec.RecentLeads = leads
	}

	if items, err := b.source.ComplianceItems(ctx, loc.ID); err != nil {
		degrade("compliance items", err)
	} else {
		ec.Compliance = complianceStatuses(items, today, zone)
	}

	if rows, err := b.source.AdSpend(ctx, loc.ID, monthAgo, now); err != nil {
		degrade("ad spend", err)
	} else {
		ec.AdSpend30d = rows
		for _, r := range rows {
			if !r.Date.Before(weekAgo) {
				ec.AdSpend7d = append(ec.AdSpend7d, r)
			}
		}
	}

	if reviews, err := b.source.UnrepliedReviews(ctx, loc.ID); err != nil {
		degrade("unreplied reviews", err)
	} else {
		ec.UnrepliedReviews = reviews
	}

	if drives, err := b.source.DrivesBetween(ctx, loc.ID, weekAgo, now); err != nil {
		degrade("drive appointments", err)
	} else {
		ec.RecentDrives = drives
	}

	if students, err := b.source.ActiveStudents(ctx, loc.ID); err != nil {
		degrade("active students", err)
	} else {
		ec.ActiveStudents = students
	}

	return ec, warnings
}

// complianceStatuses computes days until expiry in whole calendar days of zone.
func complianceStatuses(items []model.ComplianceItem, today time.Time, zone *time.Location) []rules.ComplianceStatus {
	out := make([]rules.ComplianceStatus, 0, len(items))
	for _, item := range items {
		days := int(startOfDay(item.ExpiresAt, zone).Sub(today).Hours() / 24)
		state := model.ComplianceValid
		switch {
		case days < 0:
			state = model.ComplianceExpired
		case days <= model.ComplianceExpiringWindow:
			state = model.ComplianceExpiring
		}
		out = append(out, rules.ComplianceStatus{Item: item, DaysUntilExpiry: days, Status: state})
	}
	return out
}
