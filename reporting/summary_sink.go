package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-reporter/runner"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const SummarySinkName = "summary"

const maxErrorWidth = 80

var _ runner.RunFinishHook = (*SummarySink)(nil)

// SummarySink prints a results table when the run finishes
type SummarySink struct {
	w io.Writer
}

func NewSummarySink(w io.Writer) *SummarySink {
	return &SummarySink{w: w}
}

func (s *SummarySink) OnRunFinish(rc *runner.RunContext, summary *types.RunSummary) error {
	s.printResultsTable(summary)
	_, err := fmt.Fprintln(s.w, summary.String())
	return err
}

// printResultsTable prints one row per finished test grouped by package
func (s *SummarySink) printResultsTable(summary *types.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(s.w)
	t.SetTitle(fmt.Sprintf("Test Results (%s)", formatDuration(summary.Duration)))

	t.AppendHeader(table.Row{"Package", "Test", "Duration", "Status", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Package", AutoMerge: true},
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: maxErrorWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, report := range summary.Reports {
		pkg, test := types.SplitNodeID(report.NodeID)
		depth, path := types.ParseTestNameHierarchy(test)
		name := test
		if depth > 0 {
			name = strings.Repeat("  ", depth) + "└── " + path[len(path)-1]
		}
		errMsg := ""
		if report.Failed() {
			errMsg = extractKeyErrorMessage(report.LongRepr)
		} else if report.WasXFail {
			errMsg = "xfail: " + report.XFailReason
		}
		t.AppendRow(table.Row{pkg, name, formatDuration(report.Duration), getResultString(report), errMsg})
	}

	switch {
	case summary.HasFailures():
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case summary.Passed == 0 && summary.Skipped > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d passed, %d failed, %d skipped", summary.Passed, summary.Failed, summary.Skipped),
		formatDuration(summary.Duration),
		"",
		"",
	})
	t.Render()
}

func getResultString(report *types.TestReport) string {
	switch {
	case report.WasXFail:
		return "~ xfail"
	case report.Passed():
		return "✓ pass"
	case report.Skipped():
		return "- skip"
	default:
		return "✗ fail"
	}
}

// extractKeyErrorMessage picks the most telling line of a failure output
func extractKeyErrorMessage(longRepr string) string {
	var last string
	for _, line := range strings.Split(longRepr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "=== ") || strings.HasPrefix(line, "--- ") {
			continue
		}
		if strings.HasPrefix(line, "Error:") || strings.Contains(line, "panic:") {
			return truncate(line)
		}
		if last == "" {
			last = line
		}
	}
	return truncate(last)
}

// truncate shortens s by display width, never splitting a rune
func truncate(s string) string {
	return text.Snip(s, maxErrorWidth*2, "...")
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
