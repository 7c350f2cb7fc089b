package bibtex

import (
	"fmt"
	"strings"
)

// Format serializes a record as a BibTeX entry with brace-delimited
// values, one field per line. Field values are written verbatim.
func Format(rec Record) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", rec.Kind, rec.Key))
	for _, f := range rec.Fields {
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", f.Name, f.Value))
	}
	b.WriteString("}\n")

	return b.String()
}

// FormatAll serializes records in order, separated by blank lines.
func FormatAll(records []Record) string {
	var entries []string
	for _, rec := range records {
		entries = append(entries, Format(rec))
	}
	return strings.Join(entries, "\n")
}
