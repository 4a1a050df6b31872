// Package export renders PRR documents into downloadable formats.
package export

import (
	"fmt"
	"strings"

	t "prrgen/internal/types"
)

// PlainText renders the document as a flat text file, one underlined heading
// per section in document order.
func PlainText(doc *t.PRRDocument) string {
	var b strings.Builder
	b.WriteString(doc.Title + "\n")
	b.WriteString(strings.Repeat("=", len(doc.Title)) + "\n\n")
	fmt.Fprintf(&b, "Version: %s\n", doc.Version)
	fmt.Fprintf(&b, "Generated: %s\n", doc.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	if doc.Degraded {
		b.WriteString("Note: this report was generated with degraded analysis results.\n")
	}
	b.WriteString("\n")
	for _, sec := range doc.Sections {
		b.WriteString(sec.Heading + "\n")
		b.WriteString(strings.Repeat("-", len(sec.Heading)) + "\n")
		b.WriteString(sec.Body + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
