// Package include recognizes preprocessor include directives.
package include

import "errors"

// Parse failures, one per structural check, in the order they are applied.
var (
	ErrExpectedHash    = errors.New("expected '#'")
	ErrExpectedInclude = errors.New("expected 'include'")
	ErrExpectedOpening = errors.New("expected opening delimiter")
	ErrExpectedClosing = errors.New("expected closing delimiter")
)

const keyword = "include"

// ParseLine extracts the target of a `#include <path>` or `#include "path"`
// line. Any opening delimiter may be paired with any closing one.
//
// The returned slice aliases line. Callers that keep the target past the
// lifetime of line's backing buffer must copy it.
func ParseLine(line []byte) ([]byte, error) {
	line = trimLeft(line)
	if len(line) == 0 || line[0] != '#' {
		return nil, ErrExpectedHash
	}
	line = trimLeft(line[1:])

	word, line := chopAlpha(line)
	if string(word) != keyword {
		return nil, ErrExpectedInclude
	}

	line = trimLeft(line)
	if len(line) == 0 || !isOpening(line[0]) {
		return nil, ErrExpectedOpening
	}
	line = trimRight(line[1:])
	if len(line) == 0 || !isClosing(line[len(line)-1]) {
		return nil, ErrExpectedClosing
	}
	return line[:len(line)-1], nil
}

// IsDirective reports whether err came from a line that started with '#' but
// was not a well-formed include.
func IsDirective(err error) bool {
	return err != nil && !errors.Is(err, ErrExpectedHash)
}

func chopAlpha(s []byte) (word, rest []byte) {
	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func trimLeft(s []byte) []byte {
	for len(s) > 0 && isSpace(s[0]) {
		s = s[1:]
	}
	return s
}

func trimRight(s []byte) []byte {
	for len(s) > 0 && isSpace(s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	return s
}

// isSpace matches the C locale: space, \t, \n, \v, \f, \r.
func isSpace(c byte) bool {
	return c == ' ' || (c >= '\t' && c <= '\r')
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isOpening(c byte) bool { return c == '<' || c == '"' }

func isClosing(c byte) bool { return c == '>' || c == '"' }
