// Package placeholder substitutes named {tokens} in raw query text with the
// SQL literal rendering of caller-supplied values.
//
// Token syntax follows the CLI's query language: a placeholder is an
// identifier wrapped in single braces, e.g. {bucket} or {id}. Doubled
// braces ({{ and }}) escape literal braces in the output. Resolution is a
// pure function of (text, params); it has no side effects and is safe to
// call repeatedly.
package placeholder

import "strings"

// Resolve substitutes every placeholder in text with the literal rendering
// of its bound value. It returns an *UnboundError when a token has no
// binding and a *MalformedError when a token is syntactically invalid.
func Resolve(text string, params map[string]any) (string, error) {
	var out strings.Builder
	out.Grow(len(text))

	s := scanner{input: text}
	for {
		tok, err := s.next()
		if err != nil {
			return "", err
		}
		switch tok.kind {
		case tokenEOF:
			return out.String(), nil
		case tokenText:
			out.WriteString(tok.value)
		case tokenName:
			val, ok := params[tok.value]
			if !ok {
				return "", &UnboundError{Name: tok.value, Offset: tok.offset}
			}
			lit, err := Literal(val)
			if err != nil {
				return "", err
			}
			out.WriteString(lit)
		}
	}
}

// Names returns the distinct placeholder names in text, in order of first
// appearance. It reports the same malformed-token errors as Resolve.
func Names(text string) ([]string, error) {
	var names []string
	seen := make(map[string]struct{})

	s := scanner{input: text}
	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokenEOF {
			return names, nil
		}
		if tok.kind != tokenName {
			continue
		}
		if _, ok := seen[tok.value]; ok {
			continue
		}
		seen[tok.value] = struct{}{}
		names = append(names, tok.value)
	}
}

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenName
	tokenEOF
)

type token struct {
	kind   tokenKind
	value  string
	offset int
}

// scanner walks query text producing text runs and placeholder names.
type scanner struct {
	input string
	pos   int
}

// peekAt returns the byte at i, or 0 past the end of input.
func (s *scanner) peekAt(i int) byte {
	if i >= len(s.input) {
		return 0
	}
	return s.input[i]
}

func (s *scanner) next() (token, error) {
	if s.pos >= len(s.input) {
		return token{kind: tokenEOF, offset: s.pos}, nil
	}

	switch s.input[s.pos] {
	case '{':
		// Escaped literal brace.
		if s.peekAt(s.pos+1) == '{' {
			tok := token{kind: tokenText, value: "{", offset: s.pos}
			s.pos += 2
			return tok, nil
		}
		return s.scanPlaceholder()
	case '}':
		if s.peekAt(s.pos+1) == '}' {
			tok := token{kind: tokenText, value: "}", offset: s.pos}
			s.pos += 2
			return tok, nil
		}
		return token{}, NewMalformedError(s.pos, "single '}' outside placeholder (use '}}' for a literal brace)")
	}

	return s.scanText()
}

// scanText consumes literal text up to the next brace or EOF.
func (s *scanner) scanText() (token, error) {
	start := s.pos
	for s.pos < len(s.input) && s.input[s.pos] != '{' && s.input[s.pos] != '}' {
		s.pos++
	}
	return token{kind: tokenText, value: s.input[start:s.pos], offset: start}, nil
}

// scanPlaceholder consumes "{name}" with the cursor on the opening brace.
func (s *scanner) scanPlaceholder() (token, error) {
	start := s.pos
	s.pos++ // consume '{'

	nameStart := s.pos
	for s.pos < len(s.input) && s.input[s.pos] != '}' {
		if !isNameChar(s.input[s.pos], s.pos == nameStart) {
			return token{}, NewMalformedError(start, "invalid character %q in placeholder name", s.input[s.pos])
		}
		s.pos++
	}
	if s.pos >= len(s.input) {
		return token{}, NewMalformedError(start, "unterminated placeholder (missing '}')")
	}
	name := s.input[nameStart:s.pos]
	s.pos++ // consume '}'

	if name == "" {
		return token{}, NewMalformedError(start, "empty placeholder name")
	}
	return token{kind: tokenName, value: name, offset: start}, nil
}

func isNameChar(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case c >= '0' && c <= '9':
		return !first
	default:
		return false
	}
}
