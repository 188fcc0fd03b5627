package rules

import (
	"errors"
	"testing"

	"github.com/Itish41/FranchiseOps/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRule(id string, out *ActionItemOutput, err error) Rule {
	return Rule{
		ID:       id,
		Category: models.CategoryOperations,
		Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
			if out == nil {
				return nil, err
			}
			cp := *out
			return &cp, err
		},
	}
}

func TestRule_Evaluate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		want    *ActionItemOutput
		wantErr string
	}{
		{
			name: "fills defaults",
			rule: fixedRule("r1", &ActionItemOutput{Title: "t"}, nil),
			want: &ActionItemOutput{
				RuleID:   "r1",
				Category: models.CategoryOperations,
				Priority: models.PriorityMedium,
				Title:    "t",
				Source:   SourceActionEngine,
			},
		},
		{
			name: "keeps explicit values",
			rule: fixedRule("r1", &ActionItemOutput{
				RuleID:   "ignored",
				Category: models.CategoryMarketing,
				Priority: models.PriorityCritical,
				Title:    "t",
				Source:   "manual",
			}, nil),
			want: &ActionItemOutput{
				RuleID:   "r1",
				Category: models.CategoryMarketing,
				Priority: models.PriorityCritical,
				Title:    "t",
				Source:   "manual",
			},
		},
		{
			name: "not fired",
			rule: fixedRule("r1", nil, nil),
		},
		{
			name:    "error",
			rule:    fixedRule("r1", nil, errors.New("boom")),
			wantErr: "boom",
		},
		{
			name: "panic is recovered",
			rule: Rule{ID: "r1", Check: func(ec EvaluationContext) (*ActionItemOutput, error) {
				var m map[string]int
				m["x"] = 1
				return nil, nil
			}},
			wantErr: "rule panicked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Evaluate(EvaluationContext{})
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_Register(t *testing.T) {
	c, err := NewCatalog(fixedRule("b", nil, nil), fixedRule("a", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.IDs())
	assert.Equal(t, 2, c.Len())

	err = c.Register(fixedRule("a", nil, nil))
	assert.ErrorIs(t, err, ErrDuplicateRule)

	assert.Error(t, c.Register(Rule{ID: ""}))
	assert.Error(t, c.Register(Rule{ID: "no-check"}))

	_, err = NewCatalog(fixedRule("x", nil, nil), fixedRule("x", nil, nil))
	assert.ErrorIs(t, err, ErrDuplicateRule)
}

func TestCatalog_EvaluateIsolatesFailures(t *testing.T) {
	c, err := NewCatalog(
		fixedRule("fires", &ActionItemOutput{Title: "one"}, nil),
		fixedRule("quiet", nil, nil),
		Rule{ID: "panics", Check: func(ec EvaluationContext) (*ActionItemOutput, error) { panic("bad data") }},
		fixedRule("errors", nil, errors.New("no data")),
		fixedRule("also_fires", &ActionItemOutput{Title: "two"}, nil),
	)
	require.NoError(t, err)

	fired, failed := c.Evaluate(EvaluationContext{})

	require.Len(t, fired, 2)
	assert.Equal(t, "also_fires", fired[0].RuleID)
	assert.Equal(t, "fires", fired[1].RuleID)

	require.Len(t, failed, 2)
	assert.Equal(t, "errors", failed[0].RuleID)
	assert.Equal(t, "panics", failed[1].RuleID)
	assert.Contains(t, failed[1].Error(), "rule panics: rule panicked: bad data")
}

func TestDefaultCatalog_RegistersEveryRule(t *testing.T) {
	c := DefaultCatalog(Thresholds{})
	assert.ElementsMatch(t, []string{
		RuleMissedCalls,
		RuleUncontactedLeads,
		RuleComplianceExpiring,
		RuleAdSpendNoLeads,
		RuleCostPerLeadAboveNet,
		RuleUnrepliedReviews,
		RuleDriveNoShows,
		RuleOutstandingBalances,
		RuleLeadVolumeDrop,
		RuleKPIReportingGap,
	}, c.IDs())
}

func TestThresholds_WithDefaults(t *testing.T) {
	got := Thresholds{AnswerRateHigh: 0.9, LowRating: 2}.WithDefaults()
	assert.Equal(t, 0.9, got.AnswerRateHigh)
	assert.Equal(t, 2, got.LowRating)
	assert.Equal(t, DefaultThresholds.MinCallsForAnswerRate, got.MinCallsForAnswerRate)
	assert.Equal(t, DefaultThresholds.ComplianceNoticeDays, got.ComplianceNoticeDays)
	assert.Equal(t, DefaultThresholds, Thresholds{}.WithDefaults())
}
