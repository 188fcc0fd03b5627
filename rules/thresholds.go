package rules

// Thresholds are the tunable numbers behind the default catalog. Zero values
// are replaced by DefaultThresholds in WithDefaults.
type Thresholds struct {
	// MissedCalls
	MinCallsForAnswerRate int     `yaml:"min_calls_for_answer_rate"`
	AnswerRateHigh        float64 `yaml:"answer_rate_high"`
	AnswerRateCritical    float64 `yaml:"answer_rate_critical"`

	// UncontactedLeads
	UncontactedHighCount int `yaml:"uncontacted_high_count"`

	// Compliance, in days until expiry
	ComplianceCriticalDays int `yaml:"compliance_critical_days"`
	ComplianceHighDays     int `yaml:"compliance_high_days"`
	ComplianceNoticeDays   int `yaml:"compliance_notice_days"`

	// Ad spend
	AdSpendNoLeadsMin     float64 `yaml:"ad_spend_no_leads_min"`
	CostPerLeadMultiplier float64 `yaml:"cost_per_lead_multiplier"`

	// Reviews
	LowRating int `yaml:"low_rating"`

	// Drives
	NoShowRate     float64 `yaml:"no_show_rate"`
	MinDrivesForNS int     `yaml:"min_drives_for_no_show"`

	// Balances
	OutstandingBalanceMin float64 `yaml:"outstanding_balance_min"`

	// Lead volume, fraction of the prior weekly average
	LeadVolumeDropRatio float64 `yaml:"lead_volume_drop_ratio"`
}

// DefaultThresholds are used when no configuration overrides them.
var DefaultThresholds = Thresholds{
	MinCallsForAnswerRate:  10,
	AnswerRateHigh:         0.8,
	AnswerRateCritical:     0.5,
	UncontactedHighCount:   5,
	ComplianceCriticalDays: 7,
	ComplianceHighDays:     14,
	ComplianceNoticeDays:   30,
	AdSpendNoLeadsMin:      100,
	CostPerLeadMultiplier:  1.5,
	LowRating:              3,
	NoShowRate:             0.2,
	MinDrivesForNS:         5,
	OutstandingBalanceMin:  500,
	LeadVolumeDropRatio:    0.5,
}

// WithDefaults returns t with every zero field taken from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds
	if t.MinCallsForAnswerRate == 0 {
		t.MinCallsForAnswerRate = d.MinCallsForAnswerRate
	}
	if t.AnswerRateHigh == 0 {
		t.AnswerRateHigh = d.AnswerRateHigh
	}
	if t.AnswerRateCritical == 0 {
		t.AnswerRateCritical = d.AnswerRateCritical
	}
	if t.UncontactedHighCount == 0 {
		t.UncontactedHighCount = d.UncontactedHighCount
	}
	if t.ComplianceCriticalDays == 0 {
		t.ComplianceCriticalDays = d.ComplianceCriticalDays
	}
	if t.ComplianceHighDays == 0 {
		t.ComplianceHighDays = d.ComplianceHighDays
	}
	if t.ComplianceNoticeDays == 0 {
		t.ComplianceNoticeDays = d.ComplianceNoticeDays
	}
	if t.AdSpendNoLeadsMin == 0 {
		t.AdSpendNoLeadsMin = d.AdSpendNoLeadsMin
	}
	if t.CostPerLeadMultiplier == 0 {
		t.CostPerLeadMultiplier = d.CostPerLeadMultiplier
	}
	if t.LowRating == 0 {
		t.LowRating = d.LowRating
	}
	if t.NoShowRate == 0 {
		t.NoShowRate = d.NoShowRate
	}
	if t.MinDrivesForNS == 0 {
		t.MinDrivesForNS = d.MinDrivesForNS
	}
	if t.OutstandingBalanceMin == 0 {
		t.OutstandingBalanceMin = d.OutstandingBalanceMin
	}
	if t.LeadVolumeDropRatio == 0 {
		t.LeadVolumeDropRatio = d.LeadVolumeDropRatio
	}
	return t
}
