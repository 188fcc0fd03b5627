package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	model "github.com/Itish41/FranchiseOps/models"
	"gorm.io/datatypes"
)

// DefaultBatchSize is how many due enrollments one tick loads.
const DefaultBatchSize = 50

// ActivityAutomationStep is the activity log type for executed steps.
const ActivityAutomationStep = "automation_step"

// ProcessResult summarises one automation processor tick. Errors is never nil.
type ProcessResult struct {
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Completed int      `json:"completed"`
	Errors    []string `json:"errors"`
	Total     int      `json:"total"`
}

type ProcessorOptions struct {
	BatchSize int
	Archiver  RunArchiver
	Now       func() time.Time
}

func (o *ProcessorOptions) defaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// AutomationProcessor advances due enrollments one step per tick.
type AutomationProcessor struct {
	store   AutomationStore
	catalog *StepCatalog
	opts    ProcessorOptions
}

func NewAutomationProcessor(store AutomationStore, catalog *StepCatalog, opts ProcessorOptions) *AutomationProcessor {
	opts.defaults()
	if catalog == nil {
		catalog = NewStepCatalog()
	}
	return &AutomationProcessor{store: store, catalog: catalog, opts: opts}
}

type enrollmentOutcome int

const (
	outcomeProcessed enrollmentOutcome = iota
	outcomeSkipped
	outcomeCompleted
	// outcomeStalled means the enrollment did not move and is retried next tick.
	outcomeStalled
)

var errLeadMissing = errors.New("lead not found")

// Process runs one tick. Failures are collected per enrollment.
func (p *AutomationProcessor) Process(ctx context.Context) ProcessResult {
	now := p.opts.Now().UTC()
	result := ProcessResult{Errors: []string{}}

	enrollments, err := p.store.DueEnrollments(ctx, now, p.opts.BatchSize)
	if err != nil {
		log.Printf("[ProcessAutomations] Error loading due enrollments: %v", err)
		result.Errors = append(result.Errors, fmt.Sprintf("load due enrollments: %v", err))
		return p.finish(ctx, result, now)
	}
	result.Total = len(enrollments)
	if result.Total == 0 {
		return p.finish(ctx, result, now)
	}

	for i := range enrollments {
		run := &enrollmentRun{p: p, enr: enrollments[i], now: now}
		outcome := run.process(ctx)
		result.Errors = append(result.Errors, run.errs...)
		switch outcome {
		case outcomeSkipped:
			result.Skipped++
		case outcomeCompleted:
			result.Processed++
			result.Completed++
		case outcomeProcessed:
			result.Processed++
		}
	}

	log.Printf("[ProcessAutomations] %d due, %d processed, %d completed, %d skipped, %d errors",
		result.Total, result.Processed, result.Completed, result.Skipped, len(result.Errors))
	return p.finish(ctx, result, now)
}

func (p *AutomationProcessor) finish(ctx context.Context, result ProcessResult, now time.Time) ProcessResult {
	if p.opts.Archiver != nil && result.Total > 0 {
		if err := p.opts.Archiver.ArchiveRun(ctx, "automations", result, now); err != nil {
			log.Printf("[ProcessAutomations] Archiving run report failed: %v", err)
		}
	}
	return result
}

// enrollmentRun carries one enrollment through one tick.
type enrollmentRun struct {
	p    *AutomationProcessor
	enr  model.AutomationEnrollment
	now  time.Time
	errs []string
}

func (r *enrollmentRun) fail(format string, args ...interface{}) {
	msg := fmt.Sprintf("enrollment %s: ", r.enr.ID) + fmt.Sprintf(format, args...)
	log.Printf("[ProcessAutomations] %s", msg)
	r.errs = append(r.errs, msg)
}

func (r *enrollmentRun) stall(format string, args ...interface{}) enrollmentOutcome {
	r.fail(format, args...)
	return outcomeStalled
}

func (r *enrollmentRun) process(ctx context.Context) (outcome enrollmentOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = r.stall("panic: %v", rec)
		}
	}()
	enr, store := r.enr, r.p.store

	if enr.Automation == nil || enr.Automation.Status != model.AutomationActive {
		return outcomeSkipped
	}
	if enr.Lead == nil {
		return r.stall("%v", errLeadMissing)
	}

	step, err := store.StepAt(ctx, enr.AutomationID, enr.CurrentStepOrder)
	if err != nil {
		return r.stall("load step %d: %v", enr.CurrentStepOrder, err)
	}
	if step == nil {
		return r.complete(ctx)
	}

	// Steps with side effects are not repeated once a success log exists.
	if step.StepType != model.StepWait && step.StepType != model.StepCondition {
		done, err := store.StepSucceeded(ctx, enr.ID, step.ID)
		if err != nil {
			return r.stall("check step %d ledger: %v", step.StepOrder, err)
		}
		if done {
			log.Printf("[ProcessAutomations] enrollment %s: step %d already executed, advancing", enr.ID, step.StepOrder)
			return r.advance(ctx, FlowDecision{Action: FlowContinue})
		}
	}

	res, execErr := r.p.catalog.Execute(*step, *enr.Lead, enr.Lead.Location)
	entry := &model.AutomationLog{
		EnrollmentID: enr.ID,
		StepID:       step.ID,
		StepOrder:    step.StepOrder,
		StepType:     step.StepType,
		Status:       model.StepSucceeded,
		CreatedAt:    r.now,
	}
	switch {
	case execErr != nil:
		entry.Status = model.StepFailed
		entry.Error = execErr.Error()
		res = StepResult{Type: step.StepType, Summary: fmt.Sprintf("Step %s failed", step.StepType), Flow: FlowDecision{Action: FlowContinue}}
		r.fail("step %d: %v", step.StepOrder, execErr)
	case res.Mutation != nil:
		if err := r.applyMutation(ctx, res.Mutation); err != nil {
			entry.Status = model.StepFailed
			entry.Error = err.Error()
			r.fail("step %d: %v", step.StepOrder, err)
		}
	}
	entry.Result = toJSON(res)

	if err := store.InsertAutomationLog(ctx, entry); err != nil {
		return r.stall("step %d: write automation log: %v", step.StepOrder, err)
	}

	locationID := enr.Lead.LocationID
	if enr.Lead.Location != nil {
		locationID = enr.Lead.Location.ID
	}
	activity := &model.ActivityLog{
		LeadID:       enr.LeadID,
		LocationID:   locationID,
		ActivityType: ActivityAutomationStep,
		Description:  res.Summary,
		Metadata: toJSON(map[string]interface{}{
			"automation_id":   enr.AutomationID,
			"automation_name": enr.Automation.Name,
			"enrollment_id":   enr.ID,
			"step_order":      step.StepOrder,
			"step_type":       step.StepType,
			"status":          entry.Status,
		}),
		CreatedAt: r.now,
	}
	if err := store.InsertActivityLog(ctx, activity); err != nil {
		r.fail("step %d: write activity log: %v", step.StepOrder, err)
	}

	return r.advance(ctx, res.Flow)
}

// applyMutation writes an allow-listed lead column.
func (r *enrollmentRun) applyMutation(ctx context.Context, m *LeadMutation) error {
	allowed := false
	for _, column := range MutableLeadFields {
		if column == m.Column {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%q: %w", m.Column, ErrFieldNotAllowed)
	}
	if err := r.p.store.UpdateLeadField(ctx, r.enr.LeadID, m.Column, m.Value, r.now); err != nil {
		return fmt.Errorf("apply %s: %w", m.Column, err)
	}
	return nil
}

func (r *enrollmentRun) complete(ctx context.Context) enrollmentOutcome {
	if err := r.p.store.CompleteEnrollment(ctx, r.enr.ID, r.now); err != nil {
		return r.stall("complete: %v", err)
	}
	return outcomeCompleted
}

// advance moves the enrollment to the step chosen by flow, or completes it
// when that step does not exist.
func (r *enrollmentRun) advance(ctx context.Context, flow FlowDecision) enrollmentOutcome {
	nextOrder := r.enr.CurrentStepOrder + 1
	switch flow.Action {
	case FlowEnd:
		return r.complete(ctx)
	case FlowGoto:
		nextOrder = flow.Target
	}

	next, err := r.p.store.StepAt(ctx, r.enr.AutomationID, nextOrder)
	if err != nil {
		return r.stall("load step %d: %v", nextOrder, err)
	}
	if next == nil {
		return r.complete(ctx)
	}
	nextAt := r.now.Add(time.Duration(next.DelaySeconds) * time.Second)
	if err := r.p.store.AdvanceEnrollment(ctx, r.enr.ID, nextOrder, nextAt, r.now); err != nil {
		return r.stall("advance to step %d: %v", nextOrder, err)
	}
	return outcomeProcessed
}

func toJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}
