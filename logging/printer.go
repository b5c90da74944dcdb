package logging

import (
	"fmt"
	"io"
	"strings"
)

// Printer is the output primitive of a run: everything the host shows on the
// console goes through it.
type Printer interface {
	Print(args ...any)
}

// ConsolePrinter prints lines to a writer, flushing after every line
type ConsolePrinter struct {
	w io.Writer
}

func NewConsolePrinter(w io.Writer) *ConsolePrinter {
	return &ConsolePrinter{w: w}
}

// Print writes the space-joined arguments followed by a newline
func (p *ConsolePrinter) Print(args ...any) {
	_, _ = fmt.Fprintln(p.w, JoinArgs(args...))
	Flush(p.w)
}

// JoinArgs joins arguments with single spaces, converting non-strings with fmt
func JoinArgs(args ...any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if s, ok := arg.(string); ok {
			parts[i] = s
		} else {
			parts[i] = fmt.Sprint(arg)
		}
	}
	return strings.Join(parts, " ")
}

// Flush pushes buffered output of w, if it buffers, to its destination
func Flush(w io.Writer) {
	switch f := w.(type) {
	case interface{ Flush() error }:
		_ = f.Flush()
	case interface{ Sync() error }:
		_ = f.Sync()
	}
}
