package preview

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Render writes lines as a table. Nothing is written for an empty preview.
func Render(w io.Writer, lines []Line) {
	if len(lines) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"學校", "學系", "名額", "檢定標準"})
	for _, l := range lines {
		t.AppendRow(table.Row{l.School, l.Department, l.Quota, l.Standards})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
