// Package presenter renders aggregation summaries into user-facing formats.
// Rendering is pure formatting: no network or filesystem access. Writing the
// result anywhere is the caller's responsibility.
package presenter

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/causify-ai/ascope/internal/models"
)

// Format selects the rendering of a summary
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatTable    Format = "table"
)

// Render formats a summary in the requested format. Keys are emitted in
// ascending order so identical summaries always render identically.
func Render(summary models.Summary, format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return renderMarkdown(summary), nil
	case FormatTable:
		return renderTable(summary), nil
	default:
		return "", &models.ValidationError{Stage: models.StagePresent, Reason: "unknown format " + string(format)}
	}
}

func renderMarkdown(summary models.Summary) string {
	var buf bytes.Buffer
	buf.WriteString("| Key | Entities | Relations |\n")
	buf.WriteString("| --- | ---: | ---: |\n")
	for _, key := range summary.Keys() {
		count := summary[key]
		fmt.Fprintf(&buf, "| %s | %d | %d |\n", key, count.Entities, count.Relations)
	}
	fmt.Fprintf(&buf, "| total | %d | %d |\n", summary.TotalEntities(), summary.TotalRelations())
	return buf.String()
}

func renderTable(summary models.Summary) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tENTITIES\tRELATIONS")
	for _, key := range summary.Keys() {
		count := summary[key]
		fmt.Fprintf(w, "%s\t%d\t%d\n", key, count.Entities, count.Relations)
	}
	fmt.Fprintf(w, "total\t%d\t%d\n", summary.TotalEntities(), summary.TotalRelations())
	w.Flush()
	return buf.String()
}
