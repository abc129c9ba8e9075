package cli

import (
	"fmt"
	"io"
)

// IO is a command's view of stdin, stdout and stderr.
//
// Commands report saves that need attention (retired key, unreadable schema)
// with [IO.Warn] instead of failing: the report still prints, and the notes
// appear on stderr both before the first line of stdout and after the last,
// so they survive "| head" and "| tail". Any note turns the exit code to 1.
type IO struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	notes   []saveNote
	flushed bool
}

// saveNote is one save that needs attention.
type saveNote struct {
	slot  string
	issue string
	fix   string
}

func (n saveNote) String() string {
	return fmt.Sprintf("warning: %s: %s (%s)", n.slot, n.issue, n.fix)
}

// NewIO creates a new IO instance.
func NewIO(in io.Reader, out, errOut io.Writer) *IO {
	return &IO{in: in, out: out, errOut: errOut}
}

// In returns the command's stdin.
func (o *IO) In() io.Reader {
	return o.in
}

// Warn records that slot has issue, with fix telling the user what to do.
func (o *IO) Warn(slot, issue, fix string) {
	o.notes = append(o.notes, saveNote{slot: slot, issue: issue, fix: fix})
}

// Println writes a line to stdout, after any pending notes.
func (o *IO) Println(a ...any) {
	o.flushNotes()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes to stdout, after any pending notes.
func (o *IO) Printf(format string, a ...any) {
	o.flushNotes()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish repeats the notes on stderr and returns the exit code: 1 when any
// save needs attention, 0 otherwise.
func (o *IO) Finish() int {
	o.flushNotes()

	for _, n := range o.notes {
		_, _ = fmt.Fprintln(o.errOut, n)
	}

	if len(o.notes) > 0 {
		return 1
	}

	return 0
}

func (o *IO) flushNotes() {
	if o.flushed || len(o.notes) == 0 {
		return
	}

	for _, n := range o.notes {
		_, _ = fmt.Fprintln(o.errOut, n)
	}

	o.flushed = true
}
