package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"qlty.dev/pkg/qlty/internal/adapter"
	m "qlty.dev/pkg/qlty/internal/model"
)

// TestCase is a unit of UI or API testing. The body receives a *T bound to
// one test execution.
type TestCase interface {
	Run(t *T)
}

// SetUpper is implemented by test cases that prepare state before the body runs.
type SetUpper interface {
	SetUp(t *T) error
}

// TearDowner is implemented by test cases that clean up after the body.
type TearDowner interface {
	TearDown(t *T)
}

// TestFunc adapts a plain function to TestCase.
type TestFunc func(t *T)

// Run implements TestCase.
func (f TestFunc) Run(t *T) {
	f(t)
}

// T is the handle a test body uses to report its outcome. It satisfies
// testify's require.TestingT, so testify assertions work inside bodies.
type T struct {
	ctx      context.Context
	id       m.TestID
	platform m.Platform
	driver   adapter.DriverHandle

	mu        sync.Mutex
	failures  int
	skips     int
	messages  []string
	artifacts []m.Artifact
}

func newT(ctx context.Context, id m.TestID, platform m.Platform, driver adapter.DriverHandle) *T {
	return &T{ctx: ctx, id: id, platform: platform, driver: driver}
}

// Context is cancelled when the run is aborted.
func (t *T) Context() context.Context {
	return t.ctx
}

// ID returns the test identifier.
func (t *T) ID() m.TestID {
	return t.id
}

// Platform returns the run platform.
func (t *T) Platform() m.Platform {
	return t.platform
}

// Driver returns the session of a UI test, or nil for API tests.
func (t *T) Driver() adapter.DriverHandle {
	return t.driver
}

// Helper is a no-op kept for testify compatibility.
func (t *T) Helper() {}

// Logf records a log line for the test.
func (t *T) Logf(format string, args ...interface{}) {
	slog.Info(fmt.Sprintf(format, args...), "test", t.id)
}

// Errorf marks the test failed and records the message. The body keeps running.
func (t *T) Errorf(format string, args ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))

	t.mu.Lock()
	t.failures++
	t.messages = append(t.messages, msg)
	t.mu.Unlock()

	slog.Debug("Test assertion failed", "test", t.id, "message", msg)
}

// FailNow marks the test failed and stops the body.
func (t *T) FailNow() {
	t.mu.Lock()
	t.failures++
	t.mu.Unlock()

	runtime.Goexit()
}

// Fatalf is Errorf followed by FailNow.
func (t *T) Fatalf(format string, args ...interface{}) {
	t.Errorf(format, args...)
	t.FailNow()
}

// Skipf marks the test skipped and stops the body.
func (t *T) Skipf(format string, args ...interface{}) {
	t.mu.Lock()
	t.skips++
	t.messages = append(t.messages, fmt.Sprintf(format, args...))
	t.mu.Unlock()

	runtime.Goexit()
}

// Skip marks the test skipped and stops the body.
func (t *T) Skip(args ...interface{}) {
	t.Skipf("%s", strings.TrimSpace(fmt.Sprintln(args...)))
}

// Failed reports whether the test has failed.
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.failures > 0
}

// AddArtifact attaches a file reference to the test record.
func (t *T) AddArtifact(kind m.ArtifactKind, path m.Path) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.artifacts = append(t.artifacts, m.Artifact{Kind: kind, Path: path})
}

// mark is a position in the reporting history of a T.
type mark struct {
	failures int
	skips    int
	messages int
}

func (t *T) mark() mark {
	t.mu.Lock()
	defer t.mu.Unlock()

	return mark{failures: t.failures, skips: t.skips, messages: len(t.messages)}
}

// since reports what was recorded after from.
func (t *T) since(from mark) (failed, skipped bool, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.failures > from.failures, t.skips > from.skips, strings.Join(t.messages[from.messages:], "\n")
}

func (t *T) collectedArtifacts() []m.Artifact {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]m.Artifact(nil), t.artifacts...)
}

// outcome is the status a phase of a test ended with.
type outcome struct {
	status  m.Status
	message string
}

// guarded runs fn on its own goroutine so that FailNow, Skip and panics
// cannot escape. A zero timeout waits forever.
func guarded(t *T, timeout time.Duration, phase string, fn func(*T) error) outcome {
	type result struct {
		returned bool
		err      error
		panicked interface{}
		stack    []byte
	}

	start := t.mark()
	done := make(chan result, 1)

	go func() {
		var res result

		defer func() {
			if r := recover(); r != nil {
				res.panicked = r
				res.stack = debug.Stack()
			}

			done <- res
		}()

		res.err = fn(t)
		res.returned = true
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		tm := time.NewTimer(timeout)
		defer tm.Stop()

		timer = tm.C
	}

	var res result
	select {
	case res = <-done:
	case <-timer:
		slog.Error("Test phase timed out", "test", t.id, "phase", phase, "timeout", timeout)
		return outcome{status: m.Errored, message: fmt.Sprintf("%s timed out after %s: %v", phase, timeout, ErrTimeout)}
	}

	failed, skipped, message := t.since(start)

	switch {
	case res.panicked != nil:
		return panicOutcome(t, phase, res.panicked, res.stack)
	case res.err != nil:
		return errorOutcome(phase, res.err)
	case failed:
		return outcome{status: m.Failed, message: message}
	case skipped:
		return outcome{status: m.Skipped, message: message}
	}

	return outcome{status: m.Passed}
}

func panicOutcome(t *T, phase string, value interface{}, stack []byte) outcome {
	if err, ok := value.(error); ok && errors.Is(err, ErrAssertion) {
		return outcome{status: m.Failed, message: err.Error()}
	}

	slog.Error("Test panicked", "test", t.id, "phase", phase, "panic", value, "stack", string(stack))

	return outcome{status: m.Errored, message: fmt.Sprintf("%s: %v: %v", phase, ErrUnexpectedFault, value)}
}

func errorOutcome(phase string, err error) outcome {
	if errors.Is(err, ErrAssertion) {
		return outcome{status: m.Failed, message: err.Error()}
	}

	return outcome{status: m.Errored, message: fmt.Sprintf("%s: %v", phase, err)}
}
