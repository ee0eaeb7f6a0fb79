package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	m "qlty.dev/pkg/qlty/internal/model"
	"qlty.dev/pkg/qlty/pkg"
)

const (
	reportFileName  = "report.yaml"
	journalFileName = "journal.gob"
)

// ErrReportNotFound is returned when no report exists for a run.
var ErrReportNotFound = errors.New("report not found")

// ReportStore persists run reports and the journals used to recover interrupted runs.
type ReportStore interface {
	Save(report m.RunReport) error
	Load(runID string) (m.RunReport, error)
	List() ([]m.TestRun, error)
	Latest() (m.RunReport, error)
	JournalPath(runID string) string
	Recover(runID string) ([]m.TestRecord, error)
}

type yamlReportStore struct {
	root m.Path
}

// NewReportStore stores one directory per run under root.
func NewReportStore(root m.Path) ReportStore {
	return &yamlReportStore{root: root}
}

func (s *yamlReportStore) runDir(runID string) string {
	return filepath.Join(string(s.root), runID)
}

func (s *yamlReportStore) Save(report m.RunReport) error {
	if report.Run.ID == "" {
		return errors.New("report has no run id")
	}

	dir := s.runDir(report.Run.ID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(dir, reportFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	slog.Debug("Saved run report", "path", path, "records", len(report.Records))

	return nil
}

func (s *yamlReportStore) Load(runID string) (m.RunReport, error) {
	path := filepath.Join(s.runDir(runID), reportFileName)

	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return m.RunReport{}, fmt.Errorf("%w: %s", ErrReportNotFound, runID)
	}

	if err != nil {
		return m.RunReport{}, fmt.Errorf("read report: %w", err)
	}

	var report m.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return m.RunReport{}, fmt.Errorf("parse report %s: %w", path, err)
	}

	return report, nil
}

// List returns the runs with a saved report, oldest first.
func (s *yamlReportStore) List() ([]m.TestRun, error) {
	entries, err := os.ReadDir(string(s.root))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	runs := make([]m.TestRun, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		report, err := s.Load(entry.Name())
		if errors.Is(err, ErrReportNotFound) {
			continue
		}

		if err != nil {
			slog.Warn("Skipping unreadable report", "run", entry.Name(), "error", err)
			continue
		}

		runs = append(runs, report.Run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartTime.Before(runs[j].StartTime)
	})

	return runs, nil
}

func (s *yamlReportStore) Latest() (m.RunReport, error) {
	runs, err := s.List()
	if err != nil {
		return m.RunReport{}, err
	}

	if len(runs) == 0 {
		return m.RunReport{}, fmt.Errorf("%w in %s", ErrReportNotFound, s.root)
	}

	return s.Load(runs[len(runs)-1].ID)
}

func (s *yamlReportStore) JournalPath(runID string) string {
	return filepath.Join(s.runDir(runID), journalFileName)
}

// Recover rebuilds the records of a run from its journal. Later entries for
// a test replace earlier ones; registration order is kept.
func (s *yamlReportStore) Recover(runID string) ([]m.TestRecord, error) {
	entries, err := pkg.ReadJournal[m.TestRecord](s.JournalPath(runID))
	if err != nil {
		return nil, fmt.Errorf("recover run %s: %w", runID, err)
	}

	index := make(map[m.TestID]int, len(entries))
	records := make([]m.TestRecord, 0, len(entries))

	for _, e := range entries {
		if i, ok := index[e.ID]; ok {
			records[i] = e
			continue
		}

		index[e.ID] = len(records)
		records = append(records, e)
	}

	return records, nil
}
