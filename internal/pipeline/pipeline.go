// Package pipeline orchestrates metadata resolution and reconciliation
// over a sequence of bibliographic records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bibclean/internal/bibtex"
	"bibclean/internal/crossref"
	"bibclean/internal/csl"
	"bibclean/internal/reconcile"
	"bibclean/internal/similarity"
)

// Outcome classifies what happened to a single record.
type Outcome string

const (
	// OutcomeUpdated means metadata was fetched and merged.
	OutcomeUpdated Outcome = "updated"
	// OutcomeUnchanged means no metadata could be obtained.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeSkipped means the fetched title failed the similarity gate.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means reconciliation hit an internal error and the
	// original record was substituted.
	OutcomeFailed Outcome = "failed"
)

// Result pairs an output record with its outcome. Record is always
// usable: on anything but OutcomeUpdated it is the original, unchanged.
type Result struct {
	Record  bibtex.Record
	Outcome Outcome
	Err     error
}

// Resolver retrieves metadata documents from an external registry.
type Resolver interface {
	FetchByDOI(ctx context.Context, doi string) (*csl.Document, error)
	SearchDOI(ctx context.Context, title, author string) (string, error)
}

// DOIExtractor pulls a DOI out of a local file (e.g. a linked PDF).
type DOIExtractor func(path string) (string, error)

// Pipeline resolves and reconciles records one at a time, in order.
type Pipeline struct {
	resolver   Resolver
	thresholds reconcile.Thresholds
	extractDOI DOIExtractor
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDOIExtractor enables DOI extraction from a record's linked file
// before falling back to title/author search.
func WithDOIExtractor(fn DOIExtractor) Option {
	return func(p *Pipeline) {
		p.extractDOI = fn
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// New creates a pipeline over the given resolver and thresholds.
func New(resolver Resolver, th reconcile.Thresholds, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:   resolver,
		thresholds: th,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Clean processes all records sequentially and returns one result per
// record in input order.
func (p *Pipeline) Clean(ctx context.Context, records []bibtex.Record) []Result {
	results := make([]Result, len(records))
	for i, rec := range records {
		results[i] = p.Process(ctx, rec)
	}
	return results
}

// Process resolves metadata for a single record and reconciles it.
// Every failure mode passes the original record through unchanged; a bad
// record never aborts the batch.
func (p *Pipeline) Process(ctx context.Context, rec bibtex.Record) (res Result) {
	// Reconciliation faults on one record must not take down the run.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("reconciliation panic", "key", rec.Key, "panic", r)
			res = Result{Record: rec, Outcome: OutcomeFailed, Err: fmt.Errorf("internal error: %v", r)}
		}
	}()

	doi := p.resolveDOI(ctx, rec)
	if doi == "" {
		return Result{Record: rec, Outcome: OutcomeUnchanged}
	}

	doc, err := p.resolver.FetchByDOI(ctx, doi)
	if err != nil {
		// Absorbed: a failed lookup is final for this record within a run.
		p.logger.Warn("DOI lookup failed", "key", rec.Key, "doi", doi, "error", err)
		return Result{Record: rec, Outcome: OutcomeUnchanged}
	}

	// Defensive duplicate of the reconciler's title gate: a mismatched
	// title means the document is almost certainly the wrong work.
	if !titleMatches(rec, doc, p.thresholds.TitleGate) {
		return Result{Record: rec, Outcome: OutcomeSkipped}
	}

	out, err := reconcile.Reconcile(rec, doc, p.thresholds)
	if err != nil {
		if errors.Is(err, reconcile.ErrTitleMismatch) {
			return Result{Record: rec, Outcome: OutcomeSkipped}
		}
		p.logger.Error("reconciliation failed", "key", rec.Key, "error", err)
		return Result{Record: rec, Outcome: OutcomeFailed, Err: err}
	}

	return Result{Record: out, Outcome: OutcomeUpdated}
}

// resolveDOI finds a DOI for the record: its own doi field first, then a
// linked file, then title/author search. Returns "" when nothing worked.
func (p *Pipeline) resolveDOI(ctx context.Context, rec bibtex.Record) string {
	if doi := rec.Get(bibtex.FieldDOI); doi != "" {
		return crossref.NormalizeDOI(doi)
	}

	if p.extractDOI != nil {
		if path := rec.Get(bibtex.FieldFile); path != "" {
			doi, err := p.extractDOI(path)
			if err != nil {
				p.logger.Warn("DOI extraction from file failed", "key", rec.Key, "file", path, "error", err)
			} else if doi != "" {
				return crossref.NormalizeDOI(doi)
			}
		}
	}

	title := rec.Get(bibtex.FieldTitle)
	if title == "" {
		return ""
	}

	doi, err := p.resolver.SearchDOI(ctx, title, FirstAuthor(rec.Get(bibtex.FieldAuthor)))
	if err != nil {
		p.logger.Warn("DOI search failed", "key", rec.Key, "title", title, "error", err)
		return ""
	}
	return crossref.NormalizeDOI(doi)
}

// titleMatches applies the title-similarity gate between a record and a
// fetched document.
func titleMatches(rec bibtex.Record, doc *csl.Document, threshold float64) bool {
	return similarity.Similar(rec.Get(bibtex.FieldTitle), doc.FullTitle(), threshold)
}

// FirstAuthor extracts the first author from a BibTeX author field
// ("Family, Given and Family, Given ...").
func FirstAuthor(authors string) string {
	if authors == "" {
		return ""
	}
	first, _, _ := strings.Cut(authors, " and ")
	return strings.TrimSpace(first)
}
