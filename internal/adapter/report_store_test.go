package adapter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "qlty.dev/pkg/qlty/internal/model"
	"qlty.dev/pkg/qlty/pkg"
)

func sampleRun(id string, start time.Time) m.TestRun {
	return m.TestRun{
		ID:           id,
		Name:         m.RunName(start, m.PlatformAndroid, "CI", "alice"),
		Platform:     m.PlatformAndroid,
		StartTime:    start,
		EndTime:      start.Add(90 * time.Second),
		Integrations: []m.SinkKind{m.SinkChat},
		Finalized:    true,
	}
}

func TestReportStore_SaveLoad(t *testing.T) {
	store := NewReportStore(m.Path(t.TempDir()))
	start := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	records := []m.TestRecord{
		{ID: "LoginTest.testValid", Target: m.TargetUI, Status: m.Passed, CaseIDs: []string{"C1"}, Duration: time.Second},
		{ID: "LoginTest.testInvalid", Target: m.TargetUI, Status: m.Failed, Message: "expected error banner"},
	}
	dispatch := m.DispatchReport{Outcomes: []m.SinkOutcome{{Sink: m.SinkChat, State: m.SinkSucceeded, Attempts: 1}}}

	report := m.NewRunReport(sampleRun("run-1", start), records, dispatch)
	require.NoError(t, store.Save(report))

	loaded, err := store.Load("run-1")
	require.NoError(t, err)
	assert.Equal(t, report.Run.Name, loaded.Run.Name)
	assert.True(t, loaded.Run.StartTime.Equal(start))
	assert.Equal(t, report.Totals, loaded.Totals)
	require.Len(t, loaded.Records, 2)
	assert.Equal(t, m.Failed, loaded.Records[1].Status)
	assert.Equal(t, "expected error banner", loaded.Records[1].Message)
	assert.Equal(t, dispatch, loaded.Dispatch)
}

func TestReportStore_SaveWithoutID(t *testing.T) {
	store := NewReportStore(m.Path(t.TempDir()))
	require.Error(t, store.Save(m.RunReport{}))
}

func TestReportStore_LoadMissing(t *testing.T) {
	store := NewReportStore(m.Path(t.TempDir()))

	_, err := store.Load("nope")
	require.ErrorIs(t, err, ErrReportNotFound)

	_, err = store.Latest()
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportStore_ListAndLatest(t *testing.T) {
	root := t.TempDir()
	store := NewReportStore(m.Path(root))
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(m.NewRunReport(sampleRun("second", base.Add(time.Hour)), nil, m.DispatchReport{})))
	require.NoError(t, store.Save(m.NewRunReport(sampleRun("first", base), nil, m.DispatchReport{})))

	// directories without a report and stray files are ignored
	require.NoError(t, os.MkdirAll(filepath.Join(root, "journal-only"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))

	runs, err := store.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "first", runs[0].ID)
	assert.Equal(t, "second", runs[1].ID)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Run.ID)
}

func TestReportStore_ListMissingRoot(t *testing.T) {
	store := NewReportStore(m.Path(filepath.Join(t.TempDir(), "absent")))

	runs, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReportStore_Recover(t *testing.T) {
	store := NewReportStore(m.Path(t.TempDir()))

	journal, err := pkg.OpenJournal[m.TestRecord](store.JournalPath("run-1"))
	require.NoError(t, err)

	require.NoError(t, journal.Append(m.TestRecord{ID: "A.one", Status: m.Pending}))
	require.NoError(t, journal.Append(m.TestRecord{ID: "B.two", Status: m.Pending}))
	require.NoError(t, journal.Append(m.TestRecord{ID: "A.one", Status: m.Passed}))
	require.NoError(t, journal.Close())

	records, err := store.Recover("run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, m.TestID("A.one"), records[0].ID)
	assert.Equal(t, m.Passed, records[0].Status)
	assert.Equal(t, m.Pending, records[1].Status)

	_, err = store.Recover("missing")
	require.Error(t, err)
}
