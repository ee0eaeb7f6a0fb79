package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"qlty.dev/pkg/qlty/internal/adapter"
	m "qlty.dev/pkg/qlty/internal/model"
)

// LifecycleState is a step of a single test execution.
type LifecycleState int

// Lifecycle states in the order a test moves through them.
const (
	StateCreated LifecycleState = iota
	StateSettingUp
	StateRunning
	StateTearingDown
	StateDone
)

func (s LifecycleState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSettingUp:
		return "setting-up"
	case StateRunning:
		return "running"
	case StateTearingDown:
		return "tearing-down"
	case StateDone:
		return "done"
	}

	return fmt.Sprintf("state(%d)", int(s))
}

const tearDownPhase = "tearDown"

// quitTimeout bounds the cleanup of a session that arrived after its acquisition timed out.
const quitTimeout = 30 * time.Second

// LifecycleConfig holds the per-run settings of the lifecycle controller.
type LifecycleConfig struct {
	Capabilities map[m.Platform]adapter.Capabilities
	Decorate     adapter.CapabilityDecorator
	// DriverTimeout bounds session acquisition.
	DriverTimeout time.Duration
	// TestTimeout bounds SetUp and the body separately. Zero disables it.
	TestTimeout time.Duration
	// ManagedDrivers leaves session teardown to an external driver manager.
	ManagedDrivers   bool
	CollectArtifacts bool
	// OnTransition observes every state change.
	OnTransition func(id m.TestID, from, to LifecycleState)
}

// LifecycleController drives one test through set up, execution and teardown.
type LifecycleController interface {
	Execute(ctx context.Context, run m.TestRun, entry Entry) (m.TestRecord, error)
}

type lifecycleController struct {
	cfg       LifecycleConfig
	registry  ResultRegistry
	provider  adapter.DriverProvider
	collector adapter.ArtifactCollector
}

// NewLifecycleController builds a controller. collector may be nil.
func NewLifecycleController(
	cfg LifecycleConfig,
	registry ResultRegistry,
	provider adapter.DriverProvider,
	collector adapter.ArtifactCollector,
) LifecycleController {
	return &lifecycleController{
		cfg:       cfg,
		registry:  registry,
		provider:  provider,
		collector: collector,
	}
}

// execution tracks the state of one test instance.
type execution struct {
	id    m.TestID
	state LifecycleState
	hook  func(id m.TestID, from, to LifecycleState)
}

func (e *execution) to(next LifecycleState) {
	prev := e.state
	e.state = next

	slog.Debug("Test state changed", "test", e.id, "from", prev, "to", next)

	if e.hook != nil {
		e.hook(e.id, prev, next)
	}
}

// driverLease owns the session of one test. Release is idempotent.
type driverLease struct {
	mu       sync.Mutex
	provider adapter.DriverProvider
	handle   adapter.DriverHandle
	managed  bool
	released bool
}

func (l *driverLease) Release(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released || l.handle == nil {
		l.released = true
		return
	}

	l.released = true

	if l.managed {
		slog.Debug("Leaving session to driver manager", "session", l.handle.SessionID())
		return
	}

	if err := l.provider.Quit(ctx, l.handle); err != nil {
		slog.Error("Failed to release driver", "session", l.handle.SessionID(), "error", fmt.Errorf("%w: %w", ErrDriverRelease, err))
	}
}

func (lc *lifecycleController) Execute(ctx context.Context, run m.TestRun, entry Entry) (m.TestRecord, error) {
	id := entry.ID()
	ex := &execution{id: id, state: StateCreated, hook: lc.cfg.OnTransition}
	lease := &driverLease{provider: lc.provider, managed: lc.cfg.ManagedDrivers}
	teardownCtx := context.WithoutCancel(ctx)

	defer lease.Release(teardownCtx)

	started := time.Now()

	ex.to(StateSettingUp)

	if entry.Target != m.TargetAPI {
		handle, err := lc.acquire(ctx, run, entry)
		if err != nil {
			slog.Error("Failed to acquire driver", "test", id, "platform", run.Platform, "error", err)
			return lc.abandon(ex, lease, teardownCtx, entry, started, err.Error())
		}

		lease.handle = handle
	}

	if _, err := lc.registry.Register(id, entry.CaseIDs, entry.Feature, entry.Target); err != nil {
		lease.Release(teardownCtx)
		ex.to(StateDone)

		return m.TestRecord{}, err
	}

	ex.to(StateRunning)

	tc := entry.New()
	t := newT(ctx, id, run.Platform, lease.handle)

	result := outcome{status: m.Passed}
	if s, ok := tc.(SetUpper); ok {
		result = guarded(t, lc.cfg.TestTimeout, "setUp", s.SetUp)
	}

	if result.status == m.Passed {
		result = guarded(t, lc.cfg.TestTimeout, "test", func(t *T) error {
			tc.Run(t)
			return nil
		})
	}

	ex.to(StateTearingDown)

	if td, ok := tc.(TearDowner); ok {
		tdResult := guarded(t, lc.cfg.TestTimeout, tearDownPhase, func(t *T) error {
			td.TearDown(t)
			return nil
		})
		result = mergeTearDown(result, tdResult)
	}

	opts := []CompleteOption{WithArtifacts(t.collectedArtifacts()...)}

	if lease.handle != nil {
		opts = append(opts, WithSessionID(lease.handle.SessionID()))

		if lc.cfg.CollectArtifacts && lc.collector != nil {
			collected, err := lc.collector.Collect(teardownCtx, run.ID, m.TestRecord{ID: id, Status: result.status}, lease.handle)
			if err != nil {
				slog.Warn("Some artifacts were not captured", "test", id, "error", err)
			}

			opts = append(opts, WithArtifacts(collected...))
		}
	}

	if err := lc.registry.Complete(id, result.status, time.Since(started), result.message, opts...); err != nil {
		slog.Error("Failed to complete test record", "test", id, "error", err)
	}

	lease.Release(teardownCtx)
	ex.to(StateDone)

	rec, _ := lc.registry.Get(id)

	return rec, nil
}

// abandon finishes a test whose session could not be opened: the record is
// registered and completed errored and the state jumps straight to Done.
func (lc *lifecycleController) abandon(
	ex *execution,
	lease *driverLease,
	ctx context.Context,
	entry Entry,
	started time.Time,
	message string,
) (m.TestRecord, error) {
	id := entry.ID()

	if _, err := lc.registry.Register(id, entry.CaseIDs, entry.Feature, entry.Target); err != nil {
		lease.Release(ctx)
		ex.to(StateDone)

		return m.TestRecord{}, err
	}

	if err := lc.registry.Complete(id, m.Errored, time.Since(started), message); err != nil {
		slog.Error("Failed to complete test record", "test", id, "error", err)
	}

	lease.Release(ctx)
	ex.to(StateDone)

	rec, _ := lc.registry.Get(id)

	return rec, nil
}

func (lc *lifecycleController) capabilities(run m.TestRun, id m.TestID) adapter.Capabilities {
	caps := adapter.Capabilities{}
	if base, ok := lc.cfg.Capabilities[run.Platform]; ok {
		caps = base.Clone()
	}

	if lc.cfg.Decorate != nil {
		caps = lc.cfg.Decorate(run, id, caps)
	}

	return caps
}

// acquire opens a session bounded by DriverTimeout even if the provider ignores
// its context. A session that arrives late is closed in the background.
func (lc *lifecycleController) acquire(ctx context.Context, run m.TestRun, entry Entry) (adapter.DriverHandle, error) {
	if lc.provider == nil {
		return nil, fmt.Errorf("%w: no driver provider configured", ErrDriverAcquisition)
	}

	actx := ctx
	cancel := func() {}

	if lc.cfg.DriverTimeout > 0 {
		actx, cancel = context.WithTimeout(ctx, lc.cfg.DriverTimeout)
	}

	ch := make(chan acquireResult, 1)
	caps := lc.capabilities(run, entry.ID())

	go func() {
		h, err := lc.provider.Acquire(actx, run.Platform, caps)
		ch <- acquireResult{handle: h, err: err}
	}()

	select {
	case a := <-ch:
		cancel()

		if a.err != nil {
			if errors.Is(a.err, context.DeadlineExceeded) {
				return nil, lc.timeoutError()
			}

			return nil, fmt.Errorf("%w: %w", ErrDriverAcquisition, a.err)
		}

		if a.handle == nil {
			return nil, fmt.Errorf("%w: provider returned no session", ErrDriverAcquisition)
		}

		return a.handle, nil
	case <-actx.Done():
		cause := actx.Err()

		cancel()
		go lc.discardLate(ch)

		if errors.Is(cause, context.DeadlineExceeded) {
			return nil, lc.timeoutError()
		}

		return nil, fmt.Errorf("%w: %w", ErrDriverAcquisition, cause)
	}
}

func (lc *lifecycleController) timeoutError() error {
	return fmt.Errorf("%w: %w: driver acquisition timed out after %s", ErrDriverAcquisition, ErrTimeout, lc.cfg.DriverTimeout)
}

type acquireResult struct {
	handle adapter.DriverHandle
	err    error
}

func (lc *lifecycleController) discardLate(ch <-chan acquireResult) {
	a := <-ch
	if a.handle == nil || lc.cfg.ManagedDrivers {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
	defer cancel()

	if err := lc.provider.Quit(ctx, a.handle); err != nil {
		slog.Warn("Failed to close late session", "session", a.handle.SessionID(), "error", err)
	}
}

func mergeTearDown(body, teardown outcome) outcome {
	if teardown.status == m.Passed || teardown.status == m.Skipped {
		return body
	}

	message := teardown.message
	if !strings.HasPrefix(message, tearDownPhase) {
		message = tearDownPhase + ": " + message
	}

	if body.status == m.Passed || body.status == m.Skipped {
		return outcome{status: m.Errored, message: message}
	}

	body.message = joinMessages(body.message, message)

	return body
}

func joinMessages(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}

	return a + "\n" + b
}
