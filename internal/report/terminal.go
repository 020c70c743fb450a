package report

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// styleFor picks rounded box drawing for terminals and plain ASCII otherwise.
func styleFor(w io.Writer) table.Style {
	if IsTerminal(w) {
		return table.StyleRounded
	}
	return table.StyleDefault
}
