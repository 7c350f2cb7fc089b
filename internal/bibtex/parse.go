package bibtex

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseError reports a syntax problem with its byte offset in the input.
type ParseError struct {
	Offset  int
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("bibtex: %s at offset %d", e.Message, e.Offset)
}

// Parse reads BibTeX source and returns its entries in file order.
// Entry kinds and field names are lowercased; @comment, @preamble, and
// @string blocks are skipped. Field values may be brace-delimited,
// quote-delimited, or bare (numbers and month macros).
func Parse(data []byte) ([]Record, error) {
	p := &parser{src: []rune(string(data))}
	var records []Record

	for {
		if !p.skipToEntry() {
			return records, nil
		}
		kind := strings.ToLower(p.readIdentifier())
		if kind == "" {
			return nil, ParseError{Offset: p.pos, Message: "expected entry type after @"}
		}

		switch kind {
		case "comment", "preamble", "string":
			if err := p.skipBlock(); err != nil {
				return nil, err
			}
			continue
		}

		rec, err := p.readEntry(kind)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune { return p.src[p.pos] }

// skipToEntry advances past free text to the character after the next '@'.
// Returns false at end of input.
func (p *parser) skipToEntry() bool {
	for !p.eof() {
		if p.peek() == '@' {
			p.pos++
			return true
		}
		p.pos++
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) readIdentifier() string {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-' || c == ':' || c == '.' || c == '/' || c == '+' {
			p.pos++
			continue
		}
		break
	}
	return string(p.src[start:p.pos])
}

// skipBlock consumes a balanced {...} or (...) block.
func (p *parser) skipBlock() error {
	p.skipSpace()
	if p.eof() {
		return ParseError{Offset: p.pos, Message: "unexpected end of input"}
	}
	open := p.peek()
	var close rune
	switch open {
	case '{':
		close = '}'
	case '(':
		close = ')'
	default:
		return ParseError{Offset: p.pos, Message: "expected { or ("}
	}
	p.pos++
	depth := 1
	for !p.eof() {
		switch p.peek() {
		case open:
			depth++
		case close:
			depth--
		}
		p.pos++
		if depth == 0 {
			return nil
		}
	}
	return ParseError{Offset: p.pos, Message: "unterminated block"}
}

func (p *parser) readEntry(kind string) (Record, error) {
	p.skipSpace()
	if p.eof() || p.peek() != '{' {
		return Record{}, ParseError{Offset: p.pos, Message: "expected { after entry type"}
	}
	p.pos++

	p.skipSpace()
	key := p.readIdentifier()
	if key == "" {
		return Record{}, ParseError{Offset: p.pos, Message: "expected citation key"}
	}
	p.skipSpace()
	if p.eof() || p.peek() != ',' {
		return Record{}, ParseError{Offset: p.pos, Message: "expected , after citation key"}
	}
	p.pos++

	rec := Record{Kind: kind, Key: key}
	for {
		p.skipSpace()
		if p.eof() {
			return Record{}, ParseError{Offset: p.pos, Message: "unterminated entry"}
		}
		if p.peek() == '}' {
			p.pos++
			return rec, nil
		}

		name := strings.ToLower(p.readIdentifier())
		if name == "" {
			return Record{}, ParseError{Offset: p.pos, Message: "expected field name"}
		}
		p.skipSpace()
		if p.eof() || p.peek() != '=' {
			return Record{}, ParseError{Offset: p.pos, Message: "expected = after field name"}
		}
		p.pos++

		value, err := p.readValue()
		if err != nil {
			return Record{}, err
		}
		rec.Fields = append(rec.Fields, Field{Name: name, Value: value})

		p.skipSpace()
		if !p.eof() && p.peek() == ',' {
			p.pos++
		}
	}
}

// readValue reads a field value: {braced}, "quoted", or bare.
func (p *parser) readValue() (string, error) {
	p.skipSpace()
	if p.eof() {
		return "", ParseError{Offset: p.pos, Message: "expected field value"}
	}

	switch p.peek() {
	case '{':
		p.pos++
		start := p.pos
		depth := 1
		for !p.eof() {
			switch p.peek() {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					v := string(p.src[start:p.pos])
					p.pos++
					return collapseSpace(v), nil
				}
			}
			p.pos++
		}
		return "", ParseError{Offset: p.pos, Message: "unterminated braced value"}

	case '"':
		p.pos++
		start := p.pos
		for !p.eof() {
			if p.peek() == '"' {
				v := string(p.src[start:p.pos])
				p.pos++
				return collapseSpace(v), nil
			}
			p.pos++
		}
		return "", ParseError{Offset: p.pos, Message: "unterminated quoted value"}

	default:
		v := p.readIdentifier()
		if v == "" {
			return "", ParseError{Offset: p.pos, Message: "expected field value"}
		}
		return v, nil
	}
}

// collapseSpace folds runs of whitespace (including newlines from wrapped
// values) into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
