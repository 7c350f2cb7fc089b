package reconcile

import (
	"encoding/json"
	"errors"
	"testing"

	"bibclean/internal/bibtex"
	"bibclean/internal/csl"
)

func mustDoc(t *testing.T, raw string) *csl.Document {
	t.Helper()
	var doc csl.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("bad test document: %v", err)
	}
	return &doc
}

func TestSmartUpdate(t *testing.T) {
	cases := []struct {
		name      string
		old, new  string
		threshold float64
		want      string
	}{
		{"empty new keeps old", "Nature", "", 0.7, "Nature"},
		{"empty old fills gap", "", "Nature", 0.7, "Nature"},
		{"case-only difference keeps old", "NATURE", "Nature", 0.7, "NATURE"},
		{"close match adopts new", "Smith, J.", "Smith, John", 0.7, "Smith, John"},
		{"unrelated keeps old", "Nature", "Science Weekly", 0.7, "Nature"},
		{"both empty stays empty", "", "", 0.7, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := SmartUpdate(c.old, c.new, c.threshold)
			if got != c.want {
				t.Errorf("SmartUpdate(%q, %q) = %q, want %q", c.old, c.new, got, c.want)
			}
		})
	}
}

func TestSmartUpdate_Totality(t *testing.T) {
	// Result must always be exactly old or new, never a third value.
	values := []string{"", "a", "abc", "ABC", "completely different"}
	for _, old := range values {
		for _, new := range values {
			got := SmartUpdate(old, new, 0.7)
			if got != old && got != new {
				t.Errorf("SmartUpdate(%q, %q) = %q, neither input", old, new, got)
			}
			if new == "" && got != old {
				t.Errorf("SmartUpdate(%q, \"\") = %q, want old unchanged", old, got)
			}
		}
	}
}

func TestReconcile_Scenario(t *testing.T) {
	rec := bibtex.Record{
		Kind: "article",
		Key:  "k1",
		Fields: []bibtex.Field{
			{Name: "title", Value: "Deep Learning"},
			{Name: "author", Value: "Smith, J."},
		},
	}
	doc := mustDoc(t, `{
		"title": "Deep Learning",
		"author": [{"family": "Smith", "given": "John"}],
		"container-title": ["Nature"],
		"issued": {"date-parts": [[2020, 5]]}
	}`)

	out, err := Reconcile(rec, doc, DefaultThresholds())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}

	if out.Kind != "article" || out.Key != "k1" {
		t.Errorf("kind/key changed: %s/%s", out.Kind, out.Key)
	}
	if got := out.Get("title"); got != "Deep Learning" {
		t.Errorf("title = %q", got)
	}
	if got := out.Get("author"); got != "Smith, John" {
		t.Errorf("author = %q, want Smith, John", got)
	}
	if got := out.Get("journal"); got != "Nature" {
		t.Errorf("journal = %q, want Nature", got)
	}
	if got := out.Get("year"); got != "2020" {
		t.Errorf("year = %q, want 2020", got)
	}
	if got := out.Get("month"); got != "May" {
		t.Errorf("month = %q, want May", got)
	}
}

func TestReconcile_TitleGateRejects(t *testing.T) {
	rec := bibtex.Record{
		Kind: "article",
		Key:  "k1",
		Fields: []bibtex.Field{
			{Name: "title", Value: "Quantum Computing Basics"},
			{Name: "author", Value: "Jones, A."},
		},
	}
	doc := mustDoc(t, `{
		"title": "A Survey of Networking",
		"author": [{"family": "Jones", "given": "Alice"}],
		"container-title": ["Nature"]
	}`)

	out, err := Reconcile(rec, doc, DefaultThresholds())
	if !errors.Is(err, ErrTitleMismatch) {
		t.Fatalf("expected ErrTitleMismatch, got %v", err)
	}
	if !out.Equal(rec) {
		t.Errorf("rejected reconciliation must return the record unchanged, got %+v", out)
	}
}

func TestReconcile_TitleGateUsesSubtitle(t *testing.T) {
	rec := bibtex.Record{
		Kind: "article",
		Key:  "k1",
		Fields: []bibtex.Field{
			{Name: "title", Value: "Deep Learning: A Survey"},
		},
	}
	doc := mustDoc(t, `{"title": ["Deep Learning"], "subtitle": ["A Survey"]}`)

	out, err := Reconcile(rec, doc, DefaultThresholds())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := out.Get("title"); got != "Deep Learning: A Survey" {
		t.Errorf("title = %q", got)
	}
}

func TestReconcile_ContainerRouting(t *testing.T) {
	doc := mustDoc(t, `{"title": "T", "container-title": ["Proc. ICML"]}`)

	proc := bibtex.Record{Kind: "inproceedings", Key: "k",
		Fields: []bibtex.Field{{Name: "title", Value: "T"}}}
	out, err := Reconcile(proc, doc, DefaultThresholds())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := out.Get("booktitle"); got != "Proc. ICML" {
		t.Errorf("booktitle = %q", got)
	}
	if out.Has("journal") {
		t.Error("inproceedings must not receive a journal field")
	}

	book := bibtex.Record{Kind: "book", Key: "k",
		Fields: []bibtex.Field{{Name: "title", Value: "T"}}}
	out, err = Reconcile(book, doc, DefaultThresholds())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if out.Has("journal") || out.Has("booktitle") {
		t.Error("kinds without a container convention must get no container update")
	}
}

func TestReconcile_AuthorsMissingPartsDropped(t *testing.T) {
	rec := bibtex.Record{Kind: "article", Key: "k",
		Fields: []bibtex.Field{{Name: "title", Value: "T"}}}
	doc := mustDoc(t, `{
		"title": "T",
		"author": [
			{"family": "Smith", "given": "John"},
			{"family": "OnlyFamily"},
			{"given": "OnlyGiven"},
			{"family": "Doe", "given": "Jane"}
		]
	}`)

	out, err := Reconcile(rec, doc, DefaultThresholds())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := out.Get("author"); got != "Smith, John and Doe, Jane" {
		t.Errorf("author = %q", got)
	}
}

func TestReconcile_MonthBoundaries(t *testing.T) {
	rec := bibtex.Record{Kind: "article", Key: "k",
		Fields: []bibtex.Field{{Name: "title", Value: "T"}}}

	for _, c := range []struct {
		month int
		want  string
	}{
		{1, "Jan"},
		{12, "Dec"},
	} {
		doc := &csl.Document{
			Title:  "T",
			Issued: csl.Date{DateParts: [][]int{{2020, c.month}}},
		}
		out, err := Reconcile(rec, doc, DefaultThresholds())
		if err != nil {
			t.Fatalf("Reconcile() error: %v", err)
		}
		if got := out.Get("month"); got != c.want {
			t.Errorf("month %d = %q, want %q", c.month, got, c.want)
		}
	}

	for _, month := range []int{0, 13} {
		doc := &csl.Document{
			Title:  "T",
			Issued: csl.Date{DateParts: [][]int{{2020, month}}},
		}
		out, err := Reconcile(rec, doc, DefaultThresholds())
		if err != nil {
			t.Fatalf("Reconcile() error: %v", err)
		}
		if out.Has("month") {
			t.Errorf("month %d should produce no month field", month)
		}
	}
}

func TestReconcile_PageRange(t *testing.T) {
	rec := bibtex.Record{Kind: "article", Key: "k",
		Fields: []bibtex.Field{{Name: "title", Value: "T"}}}
	doc := mustDoc(t, `{"title": "T", "page": "123-130"}`)

	out, err := Reconcile(rec, doc, DefaultThresholds())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := out.Get("pages"); got != "123--130" {
		t.Errorf("pages = %q, want 123--130", got)
	}
}

func TestReconcile_IssueBecomesNumber(t *testing.T) {
	rec := bibtex.Record{Kind: "article", Key: "k",
		Fields: []bibtex.Field{{Name: "title", Value: "T"}}}
	doc := mustDoc(t, `{"title": "T", "issue": "7", "volume": 42}`)

	out, err := Reconcile(rec, doc, DefaultThresholds())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := out.Get("number"); got != "7" {
		t.Errorf("number = %q, want 7", got)
	}
	if got := out.Get("volume"); got != "42" {
		t.Errorf("volume = %q, want 42", got)
	}
}

func TestReconcile_ExistingDOIKeptUnlessSimilar(t *testing.T) {
	rec := bibtex.Record{Kind: "article", Key: "k",
		Fields: []bibtex.Field{
			{Name: "title", Value: "T"},
			{Name: "doi", Value: "10.9999/existing"},
		}}
	doc := mustDoc(t, `{"title": "T", "DOI": "10.1038/unrelated"}`)

	out, err := Reconcile(rec, doc, DefaultThresholds())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := out.Get("doi"); got != "10.9999/existing" {
		t.Errorf("doi = %q, want existing value kept", got)
	}

	// Missing DOI gets filled in.
	rec2 := bibtex.Record{Kind: "article", Key: "k",
		Fields: []bibtex.Field{{Name: "title", Value: "T"}}}
	out, err = Reconcile(rec2, doc, DefaultThresholds())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := out.Get("doi"); got != "10.1038/unrelated" {
		t.Errorf("doi = %q, want filled in", got)
	}
}

func TestFormatPageRange(t *testing.T) {
	cases := []struct{ in, want string }{
		{"123-130", "123--130"},
		{"123--130", "123--130"},
		{"e1001", "e1001"},
		{"", ""},
		{"12-13, 20-21", "12--13, 20--21"},
	}
	for _, c := range cases {
		if got := formatPageRange(c.in); got != c.want {
			t.Errorf("formatPageRange(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
