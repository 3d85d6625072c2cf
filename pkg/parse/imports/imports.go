// Package imports finds import targets in Typst markup. It tokenizes just
// far enough to skip comments and unrelated string literals, so a specifier
// mentioned in prose or a comment is never mistaken for an import.
package imports

// Scan returns the string-literal targets of every #import statement in src,
// in order of appearance.
func Scan(src string) []string {
	var targets []string

	s := scanner{input: src}
	for !s.done() {
		switch {
		case s.consume("//"):
			s.skipLineComment()
		case s.consume("/*"):
			s.skipBlockComment()
		case s.peek() == '"':
			s.readString()
		case s.consume("#import"):
			if target, ok := s.importTarget(); ok {
				targets = append(targets, target)
			}
		default:
			s.pos++
		}
	}
	return targets
}

type scanner struct {
	input string
	pos   int
}

func (s *scanner) done() bool {
	return s.pos >= len(s.input)
}

func (s *scanner) peek() byte {
	if s.done() {
		return 0
	}
	return s.input[s.pos]
}

func (s *scanner) consume(prefix string) bool {
	if len(s.input)-s.pos < len(prefix) || s.input[s.pos:s.pos+len(prefix)] != prefix {
		return false
	}
	s.pos += len(prefix)
	return true
}

func (s *scanner) skipLineComment() {
	for !s.done() && s.input[s.pos] != '\n' {
		s.pos++
	}
}

// skipBlockComment handles nesting, which Typst allows.
func (s *scanner) skipBlockComment() {
	depth := 1
	for !s.done() && depth > 0 {
		switch {
		case s.consume("/*"):
			depth++
		case s.consume("*/"):
			depth--
		default:
			s.pos++
		}
	}
}

// readString consumes a string literal and returns its raw contents.
func (s *scanner) readString() (string, bool) {
	if s.peek() != '"' {
		return "", false
	}
	s.pos++
	start := s.pos
	for !s.done() {
		switch s.input[s.pos] {
		case '\\':
			s.pos += 2
		case '"':
			content := s.input[start:s.pos]
			s.pos++
			return content, true
		default:
			s.pos++
		}
	}
	return "", false
}

// importTarget reads the expression following #import and returns it when it
// is a string literal. Comments and whitespace in between are skipped.
func (s *scanner) importTarget() (string, bool) {
	for !s.done() {
		switch {
		case s.peek() == ' ' || s.peek() == '\t':
			s.pos++
		case s.consume("//"):
			s.skipLineComment()
		case s.consume("/*"):
			s.skipBlockComment()
		case s.peek() == '"':
			return s.readString()
		default:
			// Not a string import (an identifier, a path expression, ...).
			return "", false
		}
	}
	return "", false
}
