package compare

import (
	"fmt"
	"strings"
	"time"

	"snapdiff/internal/snapshot"
)

// FormatReport renders a human readable summary of d. Paths are shown
// relative to their snapshot prefix, using the newer snapshot's separator.
func FormatReport(d *Diff) string {
	if !d.HasChanges() {
		return fmt.Sprintf("No changes detected (%d unchanged).\n", len(d.Unchanged))
	}

	sep := byte('/')
	if d.Newer != nil {
		sep = d.Newer.Separator()
	}
	rel := func(e *snapshot.Entry) string {
		p, err := d.RelativePath(e, sep)
		if err != nil {
			return e.Path()
		}
		return p
	}

	var b strings.Builder
	b.WriteString("Changes detected:\n\n")

	if len(d.Created) > 0 {
		fmt.Fprintf(&b, "CREATED (%d):\n", len(d.Created))
		for _, e := range d.Created {
			fmt.Fprintf(&b, "  + %s%s\n", rel(e), describe(e))
		}
		b.WriteString("\n")
	}

	if len(d.Deleted) > 0 {
		fmt.Fprintf(&b, "DELETED (%d):\n", len(d.Deleted))
		for _, e := range d.Deleted {
			fmt.Fprintf(&b, "  - %s%s\n", rel(e), describe(e))
		}
		b.WriteString("\n")
	}

	if len(d.Modified) > 0 {
		fmt.Fprintf(&b, "MODIFIED (%d):\n", len(d.Modified))
		for _, p := range d.Modified {
			fmt.Fprintf(&b, "  ~ %s\n", rel(p.Newer))
			fmt.Fprintf(&b, "    Old:%s\n", describe(p.Older))
			fmt.Fprintf(&b, "    New:%s\n", describe(p.Newer))
		}
		b.WriteString("\n")
	}

	writePairs(&b, "MOVED", "->", d.Moved, rel)
	writePairs(&b, "COPIED", "=>", d.Copied, rel)

	if len(d.Touched) > 0 {
		fmt.Fprintf(&b, "TOUCHED (%d):\n", len(d.Touched))
		for _, p := range d.Touched {
			fmt.Fprintf(&b, "  * %s (%s -> %s)\n", rel(p.Newer), formatTime(p.Older.ModifiedTime), formatTime(p.Newer.ModifiedTime))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Summary: %d created, %d deleted, %d modified, %d moved, %d copied, %d touched, %d unchanged\n",
		len(d.Created), len(d.Deleted), len(d.Modified), len(d.Moved), len(d.Copied), len(d.Touched), len(d.Unchanged))

	return b.String()
}

func writePairs(b *strings.Builder, title, arrow string, pairs []Pair, rel func(*snapshot.Entry) string) {
	if len(pairs) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", title, len(pairs))
	for _, p := range pairs {
		fmt.Fprintf(b, "  %s %s %s\n", rel(p.Older), arrow, rel(p.Newer))
	}
	b.WriteString("\n")
}

func describe(e *snapshot.Entry) string {
	var parts []string
	if e.IsDir() {
		parts = append(parts, "dir")
	}
	if e.Size != nil {
		parts = append(parts, fmt.Sprintf("size=%d", *e.Size))
	}
	if e.ModifiedTime != nil {
		parts = append(parts, "modified="+formatTime(e.ModifiedTime))
	}
	if e.HasHash() {
		parts = append(parts, fmt.Sprintf("%s=%s", e.HashAlgorithm(), e.HashHex()))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "?"
	}
	return t.UTC().Format(time.RFC3339)
}
