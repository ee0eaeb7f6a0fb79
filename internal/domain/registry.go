package domain

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	m "qlty.dev/pkg/qlty/internal/model"
	"qlty.dev/pkg/qlty/pkg"
)

// IncompleteExecutionMessage is set on records still pending at finalization.
const IncompleteExecutionMessage = "incomplete execution"

// Registration is returned by ResultRegistry.Register.
type Registration struct {
	ID        m.TestID
	Index     int
	StartedAt time.Time
}

// CompleteOption attaches extra data to a completed record.
type CompleteOption func(*m.TestRecord)

// WithArtifacts adds artifact references to the record.
func WithArtifacts(artifacts ...m.Artifact) CompleteOption {
	return func(r *m.TestRecord) {
		r.Artifacts = append(r.Artifacts, artifacts...)
	}
}

// WithSessionID records the remote session the test ran in.
func WithSessionID(id string) CompleteOption {
	return func(r *m.TestRecord) {
		if id != "" {
			r.SessionID = id
		}
	}
}

// ResultRegistry stores the records of the active run. It is safe for concurrent use.
type ResultRegistry interface {
	Register(id m.TestID, caseIDs []string, feature string, target m.Target) (Registration, error)
	Complete(id m.TestID, status m.Status, duration time.Duration, message string, opts ...CompleteOption) error
	Get(id m.TestID) (m.TestRecord, bool)
	Snapshot() []m.TestRecord
	FinalizePending(message string) int
	Freeze()
	// Reset clears the registry for a new run, journaling to j when it is not nil.
	Reset(j pkg.Journal[m.TestRecord])
	Len() int
}

// RegistryOption configures a ResultRegistry.
type RegistryOption func(*resultRegistry)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *resultRegistry) {
		r.now = now
	}
}

type resultRegistry struct {
	mu      sync.RWMutex
	records map[m.TestID]*m.TestRecord
	order   []m.TestID
	frozen  bool
	journal pkg.Journal[m.TestRecord]
	now     func() time.Time
}

// NewResultRegistry creates an empty registry.
func NewResultRegistry(opts ...RegistryOption) ResultRegistry {
	r := &resultRegistry{
		records: make(map[m.TestID]*m.TestRecord),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *resultRegistry) Register(id m.TestID, caseIDs []string, feature string, target m.Target) (Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return Registration{}, fmt.Errorf("register %s: %w", id, ErrRunFinalized)
	}

	if _, ok := r.records[id]; ok {
		return Registration{}, fmt.Errorf("register %s: %w", id, ErrDuplicateTestID)
	}

	rec := &m.TestRecord{
		ID:        id,
		CaseIDs:   append([]string(nil), caseIDs...),
		Feature:   feature,
		Target:    target,
		Status:    m.Pending,
		StartedAt: r.now(),
	}

	r.records[id] = rec
	r.order = append(r.order, id)
	r.journalLocked(rec)

	slog.Debug("Registered test", "test", id, "cases", caseIDs, "feature", feature)

	return Registration{ID: id, Index: len(r.order) - 1, StartedAt: rec.StartedAt}, nil
}

func (r *resultRegistry) Complete(id m.TestID, status m.Status, duration time.Duration, message string, opts ...CompleteOption) error {
	if !status.IsTerminal() {
		return fmt.Errorf("complete %s: status %s is not terminal", id, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("complete %s: %w", id, ErrUnknownTestID)
	}

	if rec.Status.IsTerminal() {
		slog.Warn("Ignoring repeated completion", "test", id, "current", rec.Status, "attempted", status)
		return nil
	}

	if r.frozen {
		return fmt.Errorf("complete %s: %w", id, ErrRunFinalized)
	}

	rec.Status = status
	rec.Duration = duration
	rec.Message = message

	for _, opt := range opts {
		opt(rec)
	}

	r.journalLocked(rec)

	slog.Debug("Completed test", "test", id, "status", status, "duration", duration)

	return nil
}

func (r *resultRegistry) Get(id m.TestID) (m.TestRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return m.TestRecord{}, false
	}

	return rec.Clone(), true
}

// Snapshot returns deep copies of all records in registration order.
func (r *resultRegistry) Snapshot() []m.TestRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]m.TestRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].Clone())
	}

	return out
}

// FinalizePending marks every pending record errored and returns how many were changed.
func (r *resultRegistry) FinalizePending(message string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return 0
	}

	changed := 0

	for _, id := range r.order {
		rec := r.records[id]
		if rec.Status != m.Pending {
			continue
		}

		rec.Status = m.Errored
		rec.Message = message

		if rec.Duration == 0 {
			rec.Duration = r.now().Sub(rec.StartedAt)
		}

		r.journalLocked(rec)
		changed++

		slog.Warn("Marked pending test errored at finalization", "test", id)
	}

	return changed
}

func (r *resultRegistry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frozen = true
}

func (r *resultRegistry) Reset(j pkg.Journal[m.TestRecord]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[m.TestID]*m.TestRecord)
	r.order = nil
	r.frozen = false
	r.journal = j
}

func (r *resultRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

func (r *resultRegistry) journalLocked(rec *m.TestRecord) {
	if r.journal == nil {
		return
	}

	if err := r.journal.Append(rec.Clone()); err != nil {
		slog.Error("Failed to journal record", "test", rec.ID, "error", err)
	}
}
