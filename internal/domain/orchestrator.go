package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"qlty.dev/pkg/qlty/internal/adapter"
	"qlty.dev/pkg/qlty/internal/controller"
	m "qlty.dev/pkg/qlty/internal/model"
	"qlty.dev/pkg/qlty/pkg"
)

// RunAbortedMessage is set on tests that never started because the run was interrupted.
const RunAbortedMessage = "run aborted"

// RunArgs selects what a run executes.
type RunArgs struct {
	Platform m.Platform
	// Filter names a single test ID. Empty runs the whole catalog.
	Filter string
	// Workers is the number of tests executed at once. Values below 1 mean 1.
	Workers int
}

// RunResult is what a finished run produced.
type RunResult struct {
	Run      m.TestRun
	Records  []m.TestRecord
	Dispatch m.DispatchReport
}

// Totals counts the records of the run.
func (r RunResult) Totals() m.RunTotals {
	return m.Totals(r.Records)
}

// Orchestrator executes a selection of the catalog as one run.
type Orchestrator interface {
	Run(ctx context.Context, args RunArgs) (RunResult, error)
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*orchestrator)

// WithRunLabel sets the build and user shown in the run name.
func WithRunLabel(build, user string) OrchestratorOption {
	return func(o *orchestrator) {
		o.build = build
		o.user = user
	}
}

// WithRunClock overrides time.Now for run timestamps.
func WithRunClock(now func() time.Time) OrchestratorOption {
	return func(o *orchestrator) {
		o.now = now
	}
}

// WithRunIDs overrides the run ID generator.
func WithRunIDs(next func() string) OrchestratorOption {
	return func(o *orchestrator) {
		o.newID = next
	}
}

type orchestrator struct {
	controller.UI

	catalog    *Catalog
	registry   ResultRegistry
	lifecycle  LifecycleController
	provider   adapter.DriverProvider
	dispatcher Dispatcher
	store      adapter.ReportStore

	build string
	user  string
	now   func() time.Time
	newID func() string
}

// NewOrchestrator wires the run pipeline. provider may be nil for API-only catalogs
// and store may be nil when reports are not persisted.
func NewOrchestrator(
	catalog *Catalog,
	registry ResultRegistry,
	lifecycle LifecycleController,
	provider adapter.DriverProvider,
	dispatcher Dispatcher,
	store adapter.ReportStore,
	ui controller.UI,
	opts ...OrchestratorOption,
) Orchestrator {
	o := &orchestrator{
		UI:         ui,
		catalog:    catalog,
		registry:   registry,
		lifecycle:  lifecycle,
		provider:   provider,
		dispatcher: dispatcher,
		store:      store,
		build:      "LOCAL",
		now:        time.Now,
		newID:      uuid.NewString,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func (o *orchestrator) Run(ctx context.Context, args RunArgs) (RunResult, error) {
	entries, err := o.catalog.Select(args.Filter)
	if err != nil {
		slog.Error("Failed to select tests", "filter", args.Filter, "error", err)
		return RunResult{}, err
	}

	if len(entries) == 0 {
		return RunResult{}, ErrNoTests
	}

	workers := args.Workers
	if workers < 1 {
		workers = 1
	}

	if err := o.checkDriver(ctx, args.Platform, entries); err != nil {
		return RunResult{}, err
	}

	run := o.newRun(args.Platform)

	journal := o.openJournal(run.ID)
	o.registry.Reset(journal)

	defer func() {
		if journal != nil {
			if err := journal.Close(); err != nil {
				slog.Warn("Failed to close run journal", "run", run.ID, "error", err)
			}
		}
	}()

	if err := o.Start(ctx, controller.WithRunMode()); err != nil {
		slog.Error("Failed to start UI", "error", err)
		return RunResult{}, fmt.Errorf("start ui: %w", err)
	}
	defer o.Close(ctx)

	slog.Info("Starting run", "run", run.ID, "name", run.Name, "tests", len(entries), "workers", workers)
	o.DisplayRunInfo(ctx, run, len(entries), workers)

	aborted := o.execute(ctx, run, entries, workers)

	result := o.finalize(ctx, run)
	if aborted {
		slog.Warn("Run aborted", "run", run.ID)
		return result, ErrRunAborted
	}

	return result, nil
}

func (o *orchestrator) checkDriver(ctx context.Context, platform m.Platform, entries []Entry) error {
	needsDriver := false

	for _, e := range entries {
		if e.Target != m.TargetAPI && e.Supports(platform) {
			needsDriver = true
			break
		}
	}

	if !needsDriver {
		return nil
	}

	if o.provider == nil {
		return fmt.Errorf("%w: no driver provider configured", ErrDriverUnavailable)
	}

	if err := o.provider.Ping(ctx); err != nil {
		slog.Error("Driver provider is not reachable", "error", err)
		return fmt.Errorf("%w: %w", ErrDriverUnavailable, err)
	}

	return nil
}

func (o *orchestrator) newRun(platform m.Platform) m.TestRun {
	start := o.now()

	run := m.TestRun{
		ID:        o.newID(),
		Name:      m.RunName(start, platform, o.build, o.user),
		Platform:  platform,
		StartTime: start,
	}

	if o.dispatcher != nil {
		run.Integrations = o.dispatcher.Kinds()
	}

	return run
}

func (o *orchestrator) openJournal(runID string) pkg.Journal[m.TestRecord] {
	if o.store == nil {
		return nil
	}

	journal, err := pkg.OpenJournal[m.TestRecord](o.store.JournalPath(runID))
	if err != nil {
		slog.Warn("Run journal disabled", "run", runID, "error", err)
		return nil
	}

	return journal
}

// execute runs entries with at most workers in flight and reports whether the run
// was aborted. With one worker every entry is handled in catalog order.
func (o *orchestrator) execute(ctx context.Context, run m.TestRun, entries []Entry, workers int) bool {
	var (
		group   errgroup.Group
		aborted atomic.Bool
	)

	group.SetLimit(workers)

	slots := make(chan int, workers)
	for i := 0; i < workers; i++ {
		slots <- i
	}

	for _, entry := range entries {
		current := entry

		group.Go(func() error {
			if ctx.Err() != nil {
				aborted.Store(true)
				o.skip(ctx, current, RunAbortedMessage)

				return nil
			}

			if !current.Supports(run.Platform) {
				o.skip(ctx, current, current.SkipReason(run.Platform))
				return nil
			}

			slot := <-slots
			defer func() { slots <- slot }()

			o.DisplayStartingTest(ctx, current.ID(), slot)

			rec, err := o.lifecycle.Execute(ctx, run, current)
			if err != nil {
				slog.Error("Failed to execute test", "test", current.ID(), "error", err)
				return nil
			}

			o.DisplayCompletedTest(ctx, rec)

			return nil
		})
	}

	_ = group.Wait()

	return aborted.Load() || ctx.Err() != nil
}

func (o *orchestrator) skip(ctx context.Context, entry Entry, reason string) {
	id := entry.ID()

	if _, err := o.registry.Register(id, entry.CaseIDs, entry.Feature, entry.Target); err != nil {
		slog.Error("Failed to register skipped test", "test", id, "error", err)
		return
	}

	if err := o.registry.Complete(id, m.Skipped, 0, reason); err != nil {
		slog.Error("Failed to skip test", "test", id, "error", err)
		return
	}

	if rec, ok := o.registry.Get(id); ok {
		o.DisplayCompletedTest(ctx, rec)
	}
}

// finalize closes the registry, dispatches the run once and persists the report.
// It runs even when ctx is cancelled.
func (o *orchestrator) finalize(ctx context.Context, run m.TestRun) RunResult {
	ctx = context.WithoutCancel(ctx)

	if n := o.registry.FinalizePending(IncompleteExecutionMessage); n > 0 {
		slog.Warn("Run finished with incomplete tests", "run", run.ID, "count", n)
	}

	o.registry.Freeze()

	run.EndTime = o.now()
	run.Finalized = true

	records := o.registry.Snapshot()

	var dispatch m.DispatchReport
	if o.dispatcher != nil {
		dispatch = o.dispatcher.Dispatch(ctx, run, records)
	}

	report := m.NewRunReport(run, records, dispatch)

	if o.store != nil {
		if err := o.store.Save(report); err != nil {
			slog.Error("Failed to save run report", "run", run.ID, "error", err)
		}
	}

	o.DisplaySummary(ctx, report)

	return RunResult{Run: run, Records: records, Dispatch: dispatch}
}
