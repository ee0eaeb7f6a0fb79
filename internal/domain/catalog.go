package domain

import (
	"fmt"
	"strings"
	"sync"

	m "qlty.dev/pkg/qlty/internal/model"
)

// Entry declares one test: its identity, tracking metadata and a factory for fresh instances.
type Entry struct {
	Class   string
	Method  string
	CaseIDs []string
	Feature string
	Target  m.Target
	// Platforms limits the entry to the listed platforms. Empty means all.
	Platforms []m.Platform
	New       func() TestCase
}

// ID returns the Class.Method identifier.
func (e Entry) ID() m.TestID {
	return m.NewTestID(e.Class, e.Method)
}

// Supports reports whether the entry runs on p.
func (e Entry) Supports(p m.Platform) bool {
	if len(e.Platforms) == 0 {
		return true
	}

	for _, candidate := range e.Platforms {
		if candidate == p {
			return true
		}
	}

	return false
}

// SkipReason explains why the entry does not run on p.
func (e Entry) SkipReason(p m.Platform) string {
	names := make([]string, 0, len(e.Platforms))
	for _, candidate := range e.Platforms {
		names = append(names, string(candidate))
	}

	return fmt.Sprintf("%s test cases only, skipping on %s", strings.Join(names, "/"), p)
}

// Descriptor returns the listing view of the entry.
func (e Entry) Descriptor() m.TestDescriptor {
	return m.TestDescriptor{
		ID:        e.ID(),
		Feature:   e.Feature,
		Target:    e.Target,
		CaseIDs:   append([]string(nil), e.CaseIDs...),
		Platforms: append([]m.Platform(nil), e.Platforms...),
	}
}

// Catalog is the declarative registry of tests built at program start.
type Catalog struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[m.TestID]int
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[m.TestID]int)}
}

// Add registers an entry. IDs must be unique and every entry needs a factory.
func (c *Catalog) Add(e Entry) error {
	if e.Class == "" || e.Method == "" {
		return fmt.Errorf("catalog entry needs class and method, got %q", e.ID())
	}

	if e.New == nil {
		return fmt.Errorf("catalog entry %s has no factory", e.ID())
	}

	if e.Target == "" {
		e.Target = m.TargetUI
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[e.ID()]; ok {
		return fmt.Errorf("catalog entry %s: %w", e.ID(), ErrDuplicateTestID)
	}

	c.index[e.ID()] = len(c.entries)
	c.entries = append(c.entries, e)

	return nil
}

// MustAdd is Add that panics on error, for package-level catalogs.
func (c *Catalog) MustAdd(entries ...Entry) *Catalog {
	for _, e := range entries {
		if err := c.Add(e); err != nil {
			panic(err)
		}
	}

	return c
}

// Entries returns all entries in registration order.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]Entry(nil), c.entries...)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Select returns the entry named by filter, or every entry when filter is empty.
func (c *Catalog) Select(filter string) ([]Entry, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return c.Entries(), nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[m.TestID(filter)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTestNotFound, filter)
	}

	return []Entry{c.entries[i]}, nil
}
