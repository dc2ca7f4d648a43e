package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/c001-ZHSH/star-plan-analysis/internal/session"
)

const progressBarWidth = 20

// terminalView prints the session transitions a user would watch in the
// browser: catalog size, progress changes and alerts.
type terminalView struct {
	out    io.Writer
	errOut io.Writer

	catalogShown bool
	lastStatus   string
}

func newTerminalView(out, errOut io.Writer) *terminalView {
	return &terminalView{out: out, errOut: errOut}
}

func (v *terminalView) Render(s session.State) {
	if s.CatalogVisible && !v.catalogShown {
		v.catalogShown = true
		fmt.Fprintf(v.out, "%d targets found (%s)\n", len(s.Targets), s.SelectedLabel)
	}
	if !s.CatalogVisible {
		v.catalogShown = false
	}

	if !s.StatusVisible {
		v.lastStatus = ""
		return
	}
	if s.StatusText == v.lastStatus {
		return
	}
	v.lastStatus = s.StatusText
	fmt.Fprintf(v.out, "%s %s\n", progressBar(s.Progress), s.StatusText)
}

func (v *terminalView) Alert(message string) {
	fmt.Fprintf(v.errOut, "! %s\n", message)
}

func progressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * progressBarWidth / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled) + "]"
}
