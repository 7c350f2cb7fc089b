// Package csl models CSL-JSON citation metadata documents as returned by
// doi.org content negotiation and the Crossref works API.
package csl

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is a CSL-JSON metadata document. Every field is optional;
// accessors return zero values for anything the registry omitted.
type Document struct {
	Title           StringOrList   `json:"title,omitempty"`
	Subtitle        StringOrList   `json:"subtitle,omitempty"`
	Author          []Name         `json:"author,omitempty"`
	ContainerTitle  StringOrList   `json:"container-title,omitempty"`
	CollectionTitle StringOrList   `json:"collection-title,omitempty"`
	Event           Event          `json:"event,omitempty"`
	Publisher       string         `json:"publisher,omitempty"`
	Issued          Date           `json:"issued,omitempty"`
	Volume          FlexibleString `json:"volume,omitempty"`
	Issue           FlexibleString `json:"issue,omitempty"`
	Page            string         `json:"page,omitempty"`
	DOI             string         `json:"DOI,omitempty"`
}

// Name is a structured author name.
type Name struct {
	Family string `json:"family,omitempty"`
	Given  string `json:"given,omitempty"`
}

// Event holds conference/event metadata. Some registries emit it as a
// plain string instead of an object; those are ignored since only the
// structured name is usable.
type Event struct {
	Name string `json:"name,omitempty"`
}

func (e *Event) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		e.Name = obj.Name
		return nil
	}
	// Non-object event (e.g. bare string): no structured name available.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into Event", string(data))
}

// Date holds a CSL date as year/month/day part lists.
type Date struct {
	DateParts [][]int `json:"date-parts,omitempty"`
}

// Year returns the issued year, or false if absent.
func (d Date) Year() (int, bool) {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) < 1 {
		return 0, false
	}
	return d.DateParts[0][0], true
}

// Month returns the issued month (1-12), or false if absent or out of range.
func (d Date) Month() (int, bool) {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) < 2 {
		return 0, false
	}
	m := d.DateParts[0][1]
	if m < 1 || m > 12 {
		return 0, false
	}
	return m, true
}

// FullTitle returns the document title, with ": subtitle" appended when a
// subtitle is present. Empty if the document has no title.
func (doc *Document) FullTitle() string {
	title := doc.Title.String()
	if title == "" {
		return ""
	}
	if sub := doc.Subtitle.String(); sub != "" {
		return title + ": " + sub
	}
	return title
}

// ContainerName resolves the containing work's name in priority order:
// container-title, then collection-title, then the event name.
func (doc *Document) ContainerName() string {
	if v := doc.ContainerTitle.String(); v != "" {
		return v
	}
	if v := doc.CollectionTitle.String(); v != "" {
		return v
	}
	return doc.Event.Name
}

// StringOrList unmarshals from a JSON string or from a list of strings,
// in which case the first element is used. Crossref emits titles as
// one-element lists; doi.org emits plain strings.
type StringOrList string

func (s *StringOrList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrList(single)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) > 0 {
			*s = StringOrList(list[0])
		} else {
			*s = ""
		}
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into StringOrList", string(data))
}

func (s StringOrList) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s StringOrList) String() string {
	return string(s)
}

// FlexibleString unmarshals from either a JSON string or a number.
// Registries are inconsistent about volume and issue types.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexibleString(strconv.Itoa(i))
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f FlexibleString) String() string {
	return string(f)
}
