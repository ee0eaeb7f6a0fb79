package controller

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	m "qlty.dev/pkg/qlty/internal/model"
)

const maxMessageWidth = 60

var (
	passedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	erroredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	titleStyle   = lipgloss.NewStyle().Bold(true)
)

func statusStyle(status m.Status) lipgloss.Style {
	switch status {
	case m.Passed:
		return passedStyle
	case m.Failed:
		return failedStyle
	case m.Errored:
		return erroredStyle
	case m.Skipped:
		return skippedStyle
	}

	return mutedStyle
}

func statusLabel(status m.Status) string {
	return statusStyle(status).Render(strings.ToUpper(status.String()))
}

func sinkLabel(state m.SinkState) string {
	switch state {
	case m.SinkSucceeded:
		return passedStyle.Render(string(state))
	case m.SinkFailed:
		return failedStyle.Render(string(state))
	}

	return skippedStyle.Render(string(state))
}

// firstLine trims a message to a single table cell.
func firstLine(message string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	if len(line) > maxMessageWidth {
		line = line[:maxMessageWidth-3] + "..."
	}

	return line
}

func newTable(buf *bytes.Buffer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)

	return table
}

func renderRecordsTable(records []m.TestRecord) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Test", "Status", "Duration", "Cases", "Message"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})

	for _, rec := range records {
		table.Append([]string{
			string(rec.ID),
			statusLabel(rec.Status),
			m.ReadableDuration(rec.Duration),
			strings.Join(rec.CaseIDs, ","),
			firstLine(rec.Message),
		})
	}

	totals := m.Totals(records)
	table.SetFooter([]string{
		fmt.Sprintf("Total %d", totals.Total),
		fmt.Sprintf("%d passed", totals.Passed),
		"",
		"",
		fmt.Sprintf("%d failed, %d errored, %d skipped", totals.Failed, totals.Errored, totals.Skipped),
	})

	table.Render()

	return buf.String()
}

func renderCatalogTable(tests []m.TestDescriptor) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Test", "Target", "Feature", "Cases", "Platforms"})

	for _, d := range tests {
		platforms := "all"
		if len(d.Platforms) > 0 {
			names := make([]string, 0, len(d.Platforms))
			for _, p := range d.Platforms {
				names = append(names, string(p))
			}

			platforms = strings.Join(names, ",")
		}

		table.Append([]string{string(d.ID), string(d.Target), d.Feature, strings.Join(d.CaseIDs, ","), platforms})
	}

	table.SetFooter([]string{fmt.Sprintf("Total %d", len(tests)), "", "", "", ""})
	table.Render()

	return buf.String()
}

func renderRunsTable(runs []m.TestRun) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Run", "Name", "Platform", "Started", "Duration", "Finalized"})

	for _, r := range runs {
		table.Append([]string{
			r.ID,
			r.Name,
			string(r.Platform),
			r.StartTime.Format("2006-01-02 15:04:05"),
			m.ReadableDuration(r.Duration()),
			fmt.Sprintf("%t", r.Finalized),
		})
	}

	table.Render()

	return buf.String()
}

func renderDispatchTable(dispatch m.DispatchReport) string {
	if len(dispatch.Outcomes) == 0 {
		return ""
	}

	var buf bytes.Buffer

	table := newTable(&buf, []string{"Sink", "State", "Attempts", "Reason"})

	for _, o := range dispatch.Outcomes {
		table.Append([]string{string(o.Sink), sinkLabel(o.State), fmt.Sprintf("%d", o.Attempts), firstLine(o.Reason)})
	}

	table.Render()

	return buf.String()
}

func renderTotals(totals m.RunTotals, elapsed string) string {
	return fmt.Sprintf("%s %d | %s %d | %s %d | %s %d | pass rate %.1f%% | %s",
		titleStyle.Render("Total"), totals.Total,
		passedStyle.Render("Passed"), totals.Passed,
		failedStyle.Render("Failed"), totals.Failed+totals.Errored,
		skippedStyle.Render("Skipped"), totals.Skipped,
		totals.PassRate(), elapsed)
}

func renderReport(report m.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", titleStyle.Render(report.Run.Name))
	fmt.Fprintf(&b, "run %s on %s\n\n", report.Run.ID, report.Run.Platform)
	b.WriteString(renderRecordsTable(report.Records))
	b.WriteString("\n")
	b.WriteString(renderTotals(report.Totals, m.ReadableDuration(report.Run.Duration())))
	b.WriteString("\n")

	if table := renderDispatchTable(report.Dispatch); table != "" {
		b.WriteString("\n")
		b.WriteString(table)
	}

	return b.String()
}
