package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"qlty.dev/pkg/qlty/internal/adapter"
	m "qlty.dev/pkg/qlty/internal/model"
)

// Dispatcher defaults.
const (
	DefaultSinkTimeout   = 30 * time.Second
	DefaultSinkRetries   = 2
	DefaultRetryInterval = 500 * time.Millisecond
)

// DispatcherConfig bounds how long and how often a sink is tried.
type DispatcherConfig struct {
	// Timeout applies to each attempt. Zero uses DefaultSinkTimeout.
	Timeout time.Duration
	// Retries is the number of extra attempts after a temporary failure.
	Retries       uint64
	RetryInterval time.Duration
}

// Dispatcher hands a finalized run to every enabled sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, run m.TestRun, records []m.TestRecord) m.DispatchReport
	Kinds() []m.SinkKind
}

type dispatcher struct {
	cfg   DispatcherConfig
	sinks []adapter.Sink
}

// NewDispatcher creates a dispatcher over sinks. Outcomes keep the order of sinks.
func NewDispatcher(cfg DispatcherConfig, sinks ...adapter.Sink) Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSinkTimeout
	}

	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	return &dispatcher{cfg: cfg, sinks: sinks}
}

func (d *dispatcher) Kinds() []m.SinkKind {
	kinds := make([]m.SinkKind, 0, len(d.sinks))
	for _, s := range d.sinks {
		kinds = append(kinds, s.Kind())
	}

	return kinds
}

func (d *dispatcher) Dispatch(ctx context.Context, run m.TestRun, records []m.TestRecord) m.DispatchReport {
	report := m.DispatchReport{Outcomes: make([]m.SinkOutcome, len(d.sinks))}
	if len(d.sinks) == 0 {
		return report
	}

	summary := m.NewRunSummary(run, records)

	var group errgroup.Group

	for i, sink := range d.sinks {
		idx, current := i, sink

		group.Go(func() error {
			report.Outcomes[idx] = d.publish(ctx, current, summary, m.CloneRecords(records))
			return nil
		})
	}

	_ = group.Wait()

	for _, o := range report.Outcomes {
		switch o.State {
		case m.SinkFailed:
			slog.Warn("Sink failed", "sink", o.Sink, "attempts", o.Attempts, "error", fmt.Errorf("%w: %s", ErrSinkPublish, o.Reason))
		case m.SinkSkipped:
			slog.Info("Sink skipped", "sink", o.Sink, "reason", o.Reason)
		default:
			slog.Info("Sink published", "sink", o.Sink, "duration", o.Duration)
		}
	}

	return report
}

func (d *dispatcher) publish(ctx context.Context, sink adapter.Sink, summary m.RunSummary, records []m.TestRecord) m.SinkOutcome {
	started := time.Now()
	attempts := 0

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.cfg.RetryInterval
	policy.MaxElapsedTime = 0

	op := func() error {
		attempts++

		err := d.attempt(ctx, sink, summary, records)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, adapter.ErrSinkSkipped):
			return backoff.Permanent(err)
		case errors.Is(err, ErrTimeout), adapter.IsTemporary(err):
			return err
		}

		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		slog.Debug("Retrying sink", "sink", sink.Kind(), "attempt", attempts, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, d.cfg.Retries), ctx), notify)

	outcome := m.SinkOutcome{
		Sink:     sink.Kind(),
		State:    m.SinkSucceeded,
		Attempts: attempts,
		Duration: time.Since(started),
	}

	switch {
	case err == nil:
	case errors.Is(err, adapter.ErrSinkSkipped):
		outcome.State = m.SinkSkipped
		outcome.Reason = err.Error()
	default:
		outcome.State = m.SinkFailed
		outcome.Reason = err.Error()
	}

	return outcome
}

// attempt runs one Publish under its own deadline. A sink that ignores its
// context is abandoned when the deadline passes.
func (d *dispatcher) attempt(ctx context.Context, sink adapter.Sink, summary m.RunSummary, records []m.TestRecord) error {
	actx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)

	var once sync.Once

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Sink panicked", "sink", sink.Kind(), "panic", r, "stack", string(debug.Stack()))
				once.Do(func() { done <- fmt.Errorf("%w: %v", ErrUnexpectedFault, r) })
			}
		}()

		err := sink.Publish(actx, summary, records)
		once.Do(func() { done <- err })
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) && actx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("%w: %s after %s", ErrTimeout, sink.Kind(), d.cfg.Timeout)
		}

		return err
	case <-actx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("%w: %s after %s", ErrTimeout, sink.Kind(), d.cfg.Timeout)
	}
}
