// Package bibtex provides the bibliographic record model and BibTeX
// parsing and serialization.
package bibtex

// Standard field names used across the package. Field names are
// normalized to lowercase on parse.
const (
	FieldAuthor    = "author"
	FieldTitle     = "title"
	FieldJournal   = "journal"
	FieldBooktitle = "booktitle"
	FieldPublisher = "publisher"
	FieldYear      = "year"
	FieldMonth     = "month"
	FieldVolume    = "volume"
	FieldNumber    = "number"
	FieldPages     = "pages"
	FieldDOI       = "doi"
	FieldFile      = "file"
)

// Field is a single name/value pair within a record.
type Field struct {
	Name  string
	Value string
}

// Record represents a single bibliographic entry. Kind is the entry type
// (article, inproceedings, ...), Key the citation key. Fields preserve
// their original order; mutation happens by deriving a new Record via
// WithField, never in place.
type Record struct {
	Kind   string
	Key    string
	Fields []Field
}

// Get returns the value of the named field, or "" if absent.
func (r Record) Get(name string) string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Has reports whether the named field is present with a non-empty value.
func (r Record) Has(name string) bool {
	return r.Get(name) != ""
}

// WithField returns a copy of the record with the named field set to the
// given value. An existing field keeps its position; a new field is
// appended. The receiver is left unmodified.
func (r Record) WithField(name, value string) Record {
	out := r
	out.Fields = make([]Field, len(r.Fields), len(r.Fields)+1)
	copy(out.Fields, r.Fields)

	for i, f := range out.Fields {
		if f.Name == name {
			out.Fields[i].Value = value
			return out
		}
	}
	out.Fields = append(out.Fields, Field{Name: name, Value: value})
	return out
}

// Equal reports whether two records have the same kind, key, and fields
// in the same order.
func (r Record) Equal(other Record) bool {
	if r.Kind != other.Kind || r.Key != other.Key || len(r.Fields) != len(other.Fields) {
		return false
	}
	for i := range r.Fields {
		if r.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}
