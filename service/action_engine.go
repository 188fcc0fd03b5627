package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	model "github.com/Itish41/FranchiseOps/models"
	"github.com/Itish41/FranchiseOps/rules"
	"golang.org/x/sync/errgroup"
)

// DefaultActionExpiry is how long a new action item stays valid.
const DefaultActionExpiry = 7 * 24 * time.Hour

// ErrNoActiveLocations is the message reported when there is nothing to evaluate.
const ErrNoActiveLocations = "no active locations found"

// RunResult summarises one action engine run. Errors is never nil.
type RunResult struct {
	LocationsProcessed int       `json:"locations_processed"`
	ActionsGenerated   int       `json:"actions_generated"`
	Created            int       `json:"created"`
	Updated            int       `json:"updated"`
	Resolved           int       `json:"resolved"`
	Errors             []string  `json:"errors"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
}

// ActionIndexer receives every action item a run created or updated.
type ActionIndexer interface {
	IndexActionItems(ctx context.Context, items []model.ActionItem) error
}

// RunArchiver stores a copy of a run report.
type RunArchiver interface {
	ArchiveRun(ctx context.Context, kind string, report interface{}, at time.Time) error
}

// EngineOptions configures an ActionEngine. Zero values are replaced in defaults.
type EngineOptions struct {
	// OrganizationID limits the run to one organization. Empty means all.
	OrganizationID string
	ActionExpiry   time.Duration
	// Concurrency is how many locations are processed at once. Default 1.
	Concurrency int
	Indexer     ActionIndexer
	Archiver    RunArchiver
	Now         func() time.Time
}

func (o *EngineOptions) defaults() {
	if o.ActionExpiry <= 0 {
		o.ActionExpiry = DefaultActionExpiry
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// ActionEngine evaluates the rule catalog for every active location and
// reconciles the findings into persisted action items.
type ActionEngine struct {
	store      ActionItemStore
	builder    *ContextBuilder
	catalog    *rules.Catalog
	reconciler *Reconciler
	opts       EngineOptions
}

func NewActionEngine(store ActionItemStore, source ContextSource, catalog *rules.Catalog, opts EngineOptions) *ActionEngine {
	opts.defaults()
	return &ActionEngine{
		store:      store,
		builder:    NewContextBuilder(source),
		catalog:    catalog,
		reconciler: NewReconciler(store, opts.ActionExpiry),
		opts:       opts,
	}
}

type locationResult struct {
	fired   int
	outcome ReconcileOutcome
	errors  []string
}

// Run never fails as a whole: per-location and per-rule problems end up in
// RunResult.Errors and the remaining locations are still processed.
func (e *ActionEngine) Run(ctx context.Context) RunResult {
	start := e.opts.Now().UTC()
	result := RunResult{Errors: []string{}, StartedAt: start}
	log.Printf("[RunActionEngine] Starting run with %d rules", e.catalog.Len())

	locations, err := e.store.ActiveLocations(ctx, e.opts.OrganizationID)
	if err != nil {
		log.Printf("[RunActionEngine] Error loading locations: %v", err)
		result.Errors = append(result.Errors, fmt.Sprintf("load active locations: %v", err))
		return e.finish(ctx, result, nil)
	}
	if len(locations) == 0 {
		log.Println("[RunActionEngine] No active locations")
		result.Errors = append(result.Errors, ErrNoActiveLocations)
		return e.finish(ctx, result, nil)
	}

	benchmark, err := e.store.LatestBenchmark(ctx)
	if err != nil {
		log.Printf("[RunActionEngine] Benchmark unavailable, continuing without: %v", err)
		benchmark = nil
	}

	var (
		mu      sync.Mutex
		touched []model.ActionItem
		g       errgroup.Group
	)
	g.SetLimit(e.opts.Concurrency)
	for _, loc := range locations {
		g.Go(func() error {
			lr := e.processLocation(ctx, loc, benchmark, start)
			mu.Lock()
			defer mu.Unlock()
			result.LocationsProcessed++
			result.ActionsGenerated += lr.fired
			result.Created += lr.outcome.Created
			result.Updated += lr.outcome.Updated
			result.Resolved += lr.outcome.Resolved
			result.Errors = append(result.Errors, lr.errors...)
			touched = append(touched, lr.outcome.Touched...)
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("[RunActionEngine] Processed %d locations, %d actions (%d created, %d updated, %d resolved), %d errors",
		result.LocationsProcessed, result.ActionsGenerated, result.Created, result.Updated, result.Resolved, len(result.Errors))
	return e.finish(ctx, result, touched)
}

func (e *ActionEngine) finish(ctx context.Context, result RunResult, touched []model.ActionItem) RunResult {
	result.FinishedAt = e.opts.Now().UTC()
	if e.opts.Indexer != nil && len(touched) > 0 {
		if err := e.opts.Indexer.IndexActionItems(ctx, touched); err != nil {
			log.Printf("[RunActionEngine] Indexing action items failed: %v", err)
		}
	}
	if e.opts.Archiver != nil {
		if err := e.opts.Archiver.ArchiveRun(ctx, "action-engine", result, result.StartedAt); err != nil {
			log.Printf("[RunActionEngine] Archiving run report failed: %v", err)
		}
	}
	return result
}

// processLocation runs build, evaluate and reconcile for one location, in
// that order.
func (e *ActionEngine) processLocation(ctx context.Context, loc model.Location, benchmark *model.NetworkBenchmark, now time.Time) (lr locationResult) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[RunActionEngine] location %s: panic: %v", loc.Name, p)
			lr.errors = append(lr.errors, fmt.Sprintf("location %s: panic: %v", loc.Name, p))
		}
	}()

	ec, warnings := e.builder.Build(ctx, loc, benchmark, now)
	for _, w := range warnings {
		lr.errors = append(lr.errors, w.Error())
	}

	fired, failed := e.catalog.Evaluate(ec)
	for _, rf := range failed {
		log.Printf("[RunActionEngine] location %s: rule %s failed: %v", loc.Name, rf.RuleID, rf.Err)
		lr.errors = append(lr.errors, fmt.Sprintf("location %s: rule %s: %v", loc.Name, rf.RuleID, rf.Err))
	}
	lr.fired = len(fired)

	active, err := e.store.ActiveActionItems(ctx, loc.ID)
	if err != nil {
		lr.errors = append(lr.errors, fmt.Sprintf("location %s: load action items: %v", loc.Name, err))
		return lr
	}

	plan := PlanReconciliation(fired, active)
	lr.outcome = e.reconciler.Apply(ctx, loc, plan, now)
	for _, werr := range lr.outcome.Errors {
		lr.errors = append(lr.errors, fmt.Sprintf("location %s: %v", loc.Name, werr))
	}
	return lr
}
