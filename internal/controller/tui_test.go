package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "qlty.dev/pkg/qlty/internal/model"
)

func TestTUI_DisplayCatalogPrintsShortLists(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	err := tui.DisplayCatalog(context.Background(), []m.TestDescriptor{{ID: "Login.test_ok", Target: m.TargetUI}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Test catalog")
	assert.Contains(t, out, "Login.test_ok")
}

func TestTUI_DisplayRunsEmpty(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	require.NoError(t, tui.DisplayRuns(context.Background(), nil))
	assert.Contains(t, buf.String(), "No runs recorded")
}

func TestTUI_DisplaySummaryWithoutLiveView(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	tui.DisplaySummary(context.Background(), sampleReport())

	assert.Contains(t, buf.String(), "Login.test_bad")
}

func TestTUI_BrowseModeStartsNothing(t *testing.T) {
	tui := NewTUI(&bytes.Buffer{})

	require.NoError(t, tui.Start(context.Background(), WithBrowseMode()))
	assert.Nil(t, tui.program)

	tui.Wait(context.Background())
	tui.Close(context.Background())
}

func TestRunModel_Progress(t *testing.T) {
	report := sampleReport()

	var model tea.Model = newRunModel()
	model, _ = model.Update(runInfoMsg{run: report.Run, tests: 3, workers: 2})
	model, _ = model.Update(testStartedMsg{id: "Login.test_ok", worker: 0})
	model, _ = model.Update(testStartedMsg{id: "Login.test_bad", worker: 1})

	view := model.View()
	assert.Contains(t, view, report.Run.Name)
	assert.Contains(t, view, "0/3 done with 2 worker(s)")
	assert.Less(t, strings.Index(view, "[0] Login.test_ok"), strings.Index(view, "[1] Login.test_bad"))

	model, _ = model.Update(testCompletedMsg{record: report.Records[0]})

	view = model.View()
	assert.Contains(t, view, "1/3 done")
	assert.NotContains(t, view, "[0] Login.test_ok")
	assert.Contains(t, view, "PASSED Login.test_ok")
}

func TestRunModel_SummaryQuits(t *testing.T) {
	var model tea.Model = newRunModel()

	model, cmd := model.Update(summaryMsg{report: sampleReport()})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, model.View(), "pass rate")
}

func TestRunModel_KeepsRecentResults(t *testing.T) {
	rm := newRunModel()
	rm.tests = 15

	var model tea.Model = rm
	for i := 0; i < 15; i++ {
		model, _ = model.Update(testCompletedMsg{record: m.TestRecord{ID: m.TestID(fmt.Sprintf("Suite.test_%02d", i)), Status: m.Passed}})
	}

	view := model.View()
	assert.NotContains(t, view, "Suite.test_04")
	assert.Contains(t, view, "Suite.test_05")
	assert.Contains(t, view, "Suite.test_14")
}

func TestPagerModel_Scrolling(t *testing.T) {
	lines := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}

	pm := newPagerModel("title", strings.Join(lines, "\n"))
	pm.height = 15

	require.True(t, pm.needsPagination())
	assert.Equal(t, 10, pm.itemsPerPage())
	assert.Equal(t, 20, pm.maxOffset())

	tests := []struct {
		key  string
		want int
	}{
		{key: "j", want: 1},
		{key: "d", want: 11},
		{key: "G", want: 20},
		{key: "j", want: 20},
		{key: "u", want: 10},
		{key: "g", want: 0},
		{key: "k", want: 0},
	}

	var model tea.Model = pm
	for _, tt := range tests {
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})
		assert.Equal(t, tt.want, model.(pagerModel).offset, "after %q", tt.key)
	}

	view := model.View()
	assert.Contains(t, view, "Lines 1-10 of 30")
	assert.Contains(t, view, "line 9")
	assert.NotContains(t, view, "line 10\n")

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestPagerModel_NoPaginationWithoutHeight(t *testing.T) {
	pm := newPagerModel("title", "a\nb\n")

	assert.False(t, pm.needsPagination())
	assert.Equal(t, "  title\n\na\nb\n", pm.View())
}
