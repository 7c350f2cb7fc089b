// Package reconcile merges fetched metadata into bibliographic records
// using similarity-gated field updates.
package reconcile

import (
	"errors"
	"strconv"
	"strings"

	"bibclean/internal/bibtex"
	"bibclean/internal/csl"
	"bibclean/internal/similarity"
)

// ErrTitleMismatch signals that the fetched document's title does not
// resemble the record's title, so the whole document was rejected.
var ErrTitleMismatch = errors.New("title mismatch")

// Thresholds holds the similarity cutoffs used during reconciliation.
type Thresholds struct {
	// TitleGate is applied between the record title and the fetched
	// title before any field is touched.
	TitleGate float64
	// FieldMerge is applied per field when deciding whether a fetched
	// value may replace an existing one.
	FieldMerge float64
}

// DefaultThresholds returns the standard 0.7 cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{TitleGate: 0.7, FieldMerge: 0.7}
}

var monthAbbrevs = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// SmartUpdate decides between an existing field value and a fetched one.
// A fetched value is adopted when it fills a gap or closely matches the
// existing value (normalizing formatting drift); an unrelated fetched
// value is refused to protect against resolver false positives. The
// result is always exactly old or new.
func SmartUpdate(old, new string, threshold float64) string {
	if new == "" {
		return old
	}
	if old == "" {
		return new
	}
	if strings.EqualFold(old, new) {
		return old
	}
	if similarity.Similar(old, new, threshold) {
		return new
	}
	return old
}

// Reconcile merges a fetched metadata document into a record, returning a
// new record. The original is never modified. Returns ErrTitleMismatch
// when the document fails the title gate; the caller must then pass the
// original record through unchanged.
func Reconcile(rec bibtex.Record, doc *csl.Document, th Thresholds) (bibtex.Record, error) {
	fetchedTitle := doc.FullTitle()
	if !similarity.Similar(rec.Get(bibtex.FieldTitle), fetchedTitle, th.TitleGate) {
		return rec, ErrTitleMismatch
	}

	out := rec
	update := func(field, fetched string) {
		merged := SmartUpdate(out.Get(field), fetched, th.FieldMerge)
		if merged != "" {
			out = out.WithField(field, merged)
		}
	}

	update(bibtex.FieldTitle, fetchedTitle)
	update(bibtex.FieldAuthor, renderAuthors(doc.Author))

	if field := containerField(rec.Kind); field != "" {
		update(field, doc.ContainerName())
	}

	update(bibtex.FieldPublisher, doc.Publisher)

	if year, ok := doc.Issued.Year(); ok {
		update(bibtex.FieldYear, strconv.Itoa(year))
	}
	if month, ok := doc.Issued.Month(); ok {
		update(bibtex.FieldMonth, monthAbbrevs[month-1])
	}

	update(bibtex.FieldVolume, doc.Volume.String())
	update(bibtex.FieldNumber, doc.Issue.String())
	update(bibtex.FieldPages, formatPageRange(doc.Page))
	update(bibtex.FieldDOI, doc.DOI)

	return out, nil
}

// containerField routes the container title into the field appropriate
// for the entry kind. Kinds without a container convention get no update.
func containerField(kind string) string {
	switch kind {
	case "article":
		return bibtex.FieldJournal
	case "inproceedings", "incollection":
		return bibtex.FieldBooktitle
	default:
		return ""
	}
}

// renderAuthors formats a structured author list as "Family, Given"
// joined by " and ". Authors missing either name part are dropped.
// Returns "" when nothing usable remains, leaving the old value in place.
func renderAuthors(authors []csl.Name) string {
	var parts []string
	for _, a := range authors {
		if a.Family == "" || a.Given == "" {
			continue
		}
		parts = append(parts, a.Family+", "+a.Given)
	}
	return strings.Join(parts, " and ")
}

// formatPageRange rewrites single hyphens between digits as double
// hyphens (BibTeX range notation). Existing double hyphens are left alone.
func formatPageRange(page string) string {
	if page == "" {
		return ""
	}
	var b strings.Builder
	runes := []rune(page)
	for i, r := range runes {
		if r == '-' &&
			i > 0 && isDigit(runes[i-1]) &&
			i+1 < len(runes) && isDigit(runes[i+1]) {
			b.WriteString("--")
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
