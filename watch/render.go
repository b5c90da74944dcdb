package watch

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ethereum-optimism/infra/op-reporter/reporting"
)

// Renderer prints test results as single status lines
type Renderer struct {
	w       io.Writer
	green   func(a ...any) string
	red     func(a ...any) string
	yellow  func(a ...any) string
	cyan    func(a ...any) string
	faint   func(a ...any) string
	noColor bool
}

type RendererOption func(*Renderer)

func WithNoColor(nc bool) RendererOption {
	return func(r *Renderer) {
		r.noColor = nc
	}
}

func NewRenderer(w io.Writer, opts ...RendererOption) *Renderer {
	r := &Renderer{w: w}
	for _, opt := range opts {
		opt(r)
	}
	sprint := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if r.noColor {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	r.green = sprint(color.FgGreen)
	r.red = sprint(color.FgRed)
	r.yellow = sprint(color.FgYellow)
	r.cyan = sprint(color.FgCyan)
	r.faint = sprint(color.Faint)
	return r
}

// Result renders a finished test
func (r *Renderer) Result(nodeID, status string, duration float64, message string) {
	switch status {
	case reporting.StatusPassed:
		fmt.Fprintf(r.w, "%s %s %s\n", r.green("✓"), nodeID, r.cyan(fmt.Sprintf("(%.2fs)", duration)))
	case reporting.StatusSkipped:
		fmt.Fprintf(r.w, "%s %s %s\n", r.yellow("↷"), nodeID, r.yellow("(skipped)"))
	case reporting.StatusRunning:
		fmt.Fprintf(r.w, "%s %s\n", r.faint("…"), nodeID)
	default:
		if msg := firstLine(message); msg != "" {
			fmt.Fprintf(r.w, "%s %s - %s\n", r.red("✗"), nodeID, r.red(msg))
			return
		}
		fmt.Fprintf(r.w, "%s %s\n", r.red("✗"), nodeID)
	}
}

// Update renders a status line of the stdout protocol
func (r *Renderer) Update(u reporting.Update) {
	var duration float64
	if u.Duration != nil {
		duration = *u.Duration
	}
	var message string
	if u.Message != nil {
		message = *u.Message
	}
	r.Result(u.NodeID, u.Status, duration, message)
}

// Line passes a line through unchanged
func (r *Renderer) Line(line string) {
	fmt.Fprintln(r.w, line)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
