package domain

import "errors"

// Registry errors.
var (
	ErrDuplicateTestID = errors.New("duplicate test id")
	ErrUnknownTestID   = errors.New("unknown test id")
	ErrRunFinalized    = errors.New("run already finalized")
)

// Orchestrator-level errors. These end a run early.
var (
	ErrTestNotFound      = errors.New("test not found")
	ErrNoTests           = errors.New("no tests selected")
	ErrDriverUnavailable = errors.New("driver provisioning unavailable")
	ErrRunAborted        = errors.New("run aborted")
)

// Per-test and per-sink errors. These never end a run.
var (
	ErrDriverAcquisition = errors.New("driver acquisition failed")
	ErrDriverRelease     = errors.New("driver release failed")
	ErrAssertion         = errors.New("assertion failed")
	ErrUnexpectedFault   = errors.New("unexpected fault")
	ErrSinkPublish       = errors.New("sink publish failed")
	ErrTimeout           = errors.New("timeout")
)
