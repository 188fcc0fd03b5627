package rules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Itish41/FranchiseOps/models"
)

// SourceActionEngine tags outputs produced by the action engine.
const SourceActionEngine = "action_engine"

// ActionItemOutput is a single rule firing, before reconciliation.
type ActionItemOutput struct {
	RuleID            string                 `json:"rule_id"`
	Category          models.Category        `json:"category"`
	Priority          models.Priority        `json:"priority"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	RecommendedAction string                 `json:"recommended_action"`
	Data              map[string]interface{} `json:"data,omitempty"`
	Source            string                 `json:"source"`
}

// CheckFunc inspects a context and returns a finding, or nil when the rule
// does not fire. It must not perform I/O.
type CheckFunc func(ec EvaluationContext) (*ActionItemOutput, error)

// Rule is a registered predicate. ID is the deduplication key for the
// findings it produces and must never change once released.
type Rule struct {
	ID       string
	Category models.Category
	Check    CheckFunc
}

// Evaluate runs the check and normalises its output. A panic inside the
// check is returned as an error.
func (r Rule) Evaluate(ec EvaluationContext) (out *ActionItemOutput, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("rule panicked: %v", p)
		}
	}()

	out, err = r.Check(ec)
	if err != nil || out == nil {
		return nil, err
	}

	out.RuleID = r.ID
	if out.Category == "" {
		out.Category = r.Category
	}
	if out.Priority == "" {
		out.Priority = models.PriorityMedium
	}
	if out.Source == "" {
		out.Source = SourceActionEngine
	}
	return out, nil
}

// RuleError is a failed rule evaluation.
type RuleError struct {
	RuleID string
	Err    error
}

func (e RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.RuleID, e.Err)
}

var ErrDuplicateRule = errors.New("duplicate rule id")

// Catalog is a registry of rules keyed by ID.
type Catalog struct {
	rules map[string]Rule
}

// NewCatalog registers the given rules.
func NewCatalog(rs ...Rule) (*Catalog, error) {
	c := &Catalog{rules: make(map[string]Rule, len(rs))}
	for _, r := range rs {
		if err := c.Register(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds a rule. IDs must be unique and non-empty.
func (c *Catalog) Register(r Rule) error {
	if r.ID == "" || r.Check == nil {
		return fmt.Errorf("rule must have an id and a check")
	}
	if _, ok := c.rules[r.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
	}
	c.rules[r.ID] = r
	return nil
}

// IDs returns the registered rule ids, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.rules))
	for id := range c.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len is the number of registered rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Evaluate runs every rule against ec. Failed rules are reported in the
// second return value and treated as not fired.
func (c *Catalog) Evaluate(ec EvaluationContext) ([]ActionItemOutput, []RuleError) {
	var (
		fired  []ActionItemOutput
		failed []RuleError
	)
	for _, id := range c.IDs() {
		out, err := c.rules[id].Evaluate(ec)
		if err != nil {
			failed = append(failed, RuleError{RuleID: id, Err: err})
			continue
		}
		if out != nil {
			fired = append(fired, *out)
		}
	}
	return fired, failed
}
