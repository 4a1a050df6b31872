package export

import (
	"strings"
	"testing"
	"time"

	"prrgen/internal/types"
)

func TestPlainText(t *testing.T) {
	doc := &types.PRRDocument{
		Title:       "Shop - Production Readiness Review",
		Version:     "1.0",
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Sections: []types.Section{
			{Heading: "Service Overview", Body: "The shop."},
			{Heading: "Architecture Analysis", Body: "Two tiers."},
		},
	}
	out := PlainText(doc)

	if !strings.HasPrefix(out, "Shop - Production Readiness Review\n====") {
		t.Fatalf("missing underlined title:\n%s", out)
	}
	if !strings.Contains(out, "Generated: 2026-08-01 12:00 UTC") {
		t.Fatalf("missing timestamp:\n%s", out)
	}
	if !strings.Contains(out, "Service Overview\n----------------\nThe shop.") {
		t.Fatalf("missing section:\n%s", out)
	}
	if strings.Contains(out, "degraded") {
		t.Fatal("non-degraded document must not carry the degraded note")
	}
	if !strings.HasSuffix(out, "\n") || strings.HasSuffix(out, "\n\n") {
		t.Fatal("output must end with exactly one newline")
	}

	doc.Degraded = true
	if !strings.Contains(PlainText(doc), "degraded analysis results") {
		t.Fatal("degraded note missing")
	}
}

func TestPlainTextSectionOrder(t *testing.T) {
	doc := &types.PRRDocument{
		Title: "X",
		Sections: []types.Section{
			{Heading: "B", Body: "second"},
			{Heading: "A", Body: "first"},
		},
	}
	out := PlainText(doc)
	if strings.Index(out, "B\n-\nsecond") > strings.Index(out, "A\n-\nfirst") {
		t.Fatal("sections must render in document order")
	}
}
