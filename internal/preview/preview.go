// Package preview turns the sample rows of a completed job into display lines.
package preview

import (
	"strings"

	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
)

// Line is one rendered preview row.
type Line struct {
	School     string `json:"school"`
	Department string `json:"department"`
	Quota      string `json:"quota"`
	Standards  string `json:"standards"`
}

// Subject standards in display order.
var standardFields = []struct {
	field string
	label string
}{
	{client.FieldChinese, "國"},
	{client.FieldEnglish, "英"},
	{client.FieldMathA, "數A"},
	{client.FieldMathB, "數B"},
	{client.FieldSocial, "社"},
	{client.FieldScience, "自"},
}

// Standards joins the non-empty subject standards of row as "國:頂標, 英:前標".
func Standards(row client.PreviewRow) string {
	parts := make([]string, 0, len(standardFields))
	for _, f := range standardFields {
		if v := row.Get(f.field); v != "" {
			parts = append(parts, f.label+":"+v)
		}
	}
	return strings.Join(parts, ", ")
}

func Lines(rows []client.PreviewRow) []Line {
	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, Line{
			School:     row.School(),
			Department: row.Department(),
			Quota:      row.Quota(),
			Standards:  Standards(row),
		})
	}
	return lines
}
