package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	m "qlty.dev/pkg/qlty/internal/model"
)

const recentResults = 10

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the live run view. Browse mode renders on demand.
func (p *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := newStartConfig(options...)
	if cfg.mode != ModeRun {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.program != nil {
		return nil
	}

	p.program = tea.NewProgram(
		newRunModel(),
		tea.WithOutput(p.output),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	p.done = make(chan struct{})

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)

		if _, err := program.Run(); err != nil {
			_, _ = fmt.Fprintf(p.output, "ui error: %v\n", err)
		}
	}(p.program, p.done)

	return nil
}

// Close stops the live view and waits for its last frame.
func (p *TUI) Close(_ context.Context) {
	p.mu.Lock()
	program, done := p.program, p.done
	p.program, p.done = nil, nil
	p.mu.Unlock()

	if program == nil {
		return
	}

	program.Quit()
	<-done
}

// Wait blocks until the live view exits.
func (p *TUI) Wait(ctx context.Context) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (p *TUI) send(msg tea.Msg) {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
}

type runInfoMsg struct {
	run     m.TestRun
	tests   int
	workers int
}

type testStartedMsg struct {
	id     m.TestID
	worker int
}

type testCompletedMsg struct {
	record m.TestRecord
}

type summaryMsg struct {
	report m.RunReport
}

// DisplayRunInfo implements UI.
func (p *TUI) DisplayRunInfo(_ context.Context, run m.TestRun, tests int, workers int) {
	p.send(runInfoMsg{run: run, tests: tests, workers: workers})
}

// DisplayStartingTest implements UI.
func (p *TUI) DisplayStartingTest(_ context.Context, id m.TestID, worker int) {
	p.send(testStartedMsg{id: id, worker: worker})
}

// DisplayCompletedTest implements UI.
func (p *TUI) DisplayCompletedTest(_ context.Context, record m.TestRecord) {
	p.send(testCompletedMsg{record: record})
}

// DisplaySummary renders the final frame of the live view, or prints the
// report when no live view is running.
func (p *TUI) DisplaySummary(_ context.Context, report m.RunReport) {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()

	if program == nil {
		_, _ = fmt.Fprint(p.output, renderReport(report))
		return
	}

	program.Send(summaryMsg{report: report})
}

// DisplayCatalog implements UI.
func (p *TUI) DisplayCatalog(ctx context.Context, tests []m.TestDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.page("🧪 Test catalog", renderCatalogTable(tests))
}

// DisplayRuns implements UI.
func (p *TUI) DisplayRuns(ctx context.Context, runs []m.TestRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(runs) == 0 {
		return p.page("📂 Recorded runs", "  📭 No runs recorded\n")
	}

	return p.page("📂 Recorded runs", renderRunsTable(runs))
}

// DisplayReport implements UI.
func (p *TUI) DisplayReport(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.page("📊 Run report", renderReport(report))
}

// DisplayComparison implements UI.
func (p *TUI) DisplayComparison(ctx context.Context, base, head m.RunReport, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if diff == "" {
		diff = "No status changes\n"
	}

	return p.page(fmt.Sprintf("🔀 %s → %s", base.Run.ID, head.Run.ID), diff)
}

// page prints short content directly and opens a scrollable view otherwise.
func (p *TUI) page(title, content string) error {
	model := newPagerModel(title, content)

	if f, ok := p.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			model.height = height
			model.width = width
		}
	}

	if !model.needsPagination() {
		_, err := fmt.Fprint(p.output, model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(p.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// runModel is the live view of a run.
type runModel struct {
	spinner   spinner.Model
	run       m.TestRun
	tests     int
	workers   int
	running   map[m.TestID]int
	completed []m.TestRecord
	summary   *m.RunReport
	width     int
}

func newRunModel() runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = mutedStyle

	return runModel{
		spinner: s,
		running: make(map[m.TestID]int),
	}
}

func (rm runModel) Init() tea.Cmd {
	return rm.spinner.Tick
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rm.width = msg.Width
		return rm, nil

	case runInfoMsg:
		rm.run = msg.run
		rm.tests = msg.tests
		rm.workers = msg.workers

		return rm, nil

	case testStartedMsg:
		rm.running[msg.id] = msg.worker
		return rm, nil

	case testCompletedMsg:
		delete(rm.running, msg.record.ID)
		rm.completed = append(rm.completed, msg.record)

		return rm, nil

	case summaryMsg:
		report := msg.report
		rm.summary = &report
		rm.running = map[m.TestID]int{}

		return rm, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		rm.spinner, cmd = rm.spinner.Update(msg)

		return rm, cmd
	}

	return rm, nil
}

func (rm runModel) View() string {
	var b strings.Builder

	if rm.run.Name != "" {
		fmt.Fprintf(&b, "  🚀 %s\n", titleStyle.Render(rm.run.Name))
	}

	if rm.summary != nil {
		b.WriteString("\n")
		b.WriteString(renderReport(*rm.summary))

		return b.String()
	}

	fmt.Fprintf(&b, "  %d/%d done with %d worker(s)\n\n", len(rm.completed), rm.tests, rm.workers)

	ids := make([]m.TestID, 0, len(rm.running))
	for id := range rm.running {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return rm.running[ids[i]] < rm.running[ids[j]] })

	for _, id := range ids {
		fmt.Fprintf(&b, "  %s [%d] %s\n", rm.spinner.View(), rm.running[id], id)
	}

	start := len(rm.completed) - recentResults
	if start < 0 {
		start = 0
	}

	if len(rm.running) > 0 && len(rm.completed) > 0 {
		b.WriteString("\n")
	}

	for _, rec := range rm.completed[start:] {
		fmt.Fprintf(&b, "  %s %s %s\n", statusLabel(rec.Status), rec.ID, mutedStyle.Render(m.ReadableDuration(rec.Duration)))
	}

	return b.String()
}

// pagerModel shows pre-rendered content with scrolling.
type pagerModel struct {
	title    string
	lines    []string
	height   int
	width    int
	offset   int
	quitting bool
}

func newPagerModel(title, content string) pagerModel {
	return pagerModel{
		title: title,
		lines: strings.Split(strings.TrimRight(content, "\n"), "\n"),
	}
}

func (pm pagerModel) Init() tea.Cmd {
	return nil
}

func (pm pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.height = msg.Height
		pm.width = msg.Width

		return pm, nil

	case tea.KeyMsg:
		return pm.handleKeyPress(msg)
	}

	return pm, nil
}

func (pm pagerModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // only quit keys are matched by type
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		pm.quitting = true
		return pm, tea.Quit
	default:
	}

	switch msg.String() {
	case "q":
		pm.quitting = true
		return pm, tea.Quit

	case "down", "j":
		pm.offset = pm.clamp(pm.offset + 1)

	case "up", "k":
		pm.offset = pm.clamp(pm.offset - 1)

	case "g", "home":
		pm.offset = 0

	case "G", "end":
		pm.offset = pm.maxOffset()

	case "d", "pgdown":
		pm.offset = pm.clamp(pm.offset + pm.itemsPerPage())

	case "u", "pgup":
		pm.offset = pm.clamp(pm.offset - pm.itemsPerPage())
	}

	return pm, nil
}

func (pm pagerModel) clamp(offset int) int {
	if offset < 0 {
		return 0
	}

	if maxOff := pm.maxOffset(); offset > maxOff {
		return maxOff
	}

	return offset
}

func (pm pagerModel) itemsPerPage() int {
	if pm.height == 0 {
		return 10
	}
	// title, blank line and a two line footer
	reserved := 5

	available := pm.height - reserved
	if available < 1 {
		return 1
	}

	return available
}

func (pm pagerModel) maxOffset() int {
	maxOff := len(pm.lines) - pm.itemsPerPage()
	if maxOff < 0 {
		return 0
	}

	return maxOff
}

func (pm pagerModel) needsPagination() bool {
	return pm.height > 0 && len(pm.lines) > pm.itemsPerPage()
}

func (pm pagerModel) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "  %s\n\n", titleStyle.Render(pm.title))

	visible := pm.lines
	if pm.needsPagination() {
		end := pm.offset + pm.itemsPerPage()
		if end > len(pm.lines) {
			end = len(pm.lines)
		}

		visible = pm.lines[pm.offset:end]
	}

	for _, line := range visible {
		fmt.Fprintf(&b, "%s\n", line)
	}

	if pm.needsPagination() {
		fmt.Fprintf(&b, "\n  Lines %d-%d of %d\n", pm.offset+1, pm.offset+len(visible), len(pm.lines))
		b.WriteString("  ↑/k: up | ↓/j: down | g: top | G: bottom | q: quit\n")
	}

	return b.String()
}
