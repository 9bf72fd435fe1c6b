// Package template implements the parsed expression interpolator for
// workflow definitions. A template is a string with zero or more
// {{ ... }} spans; each span holds a small expression evaluated against
// the {event, state} context. Expressions support dotted paths, slice
// indexing, postfix filters (join, replace, strip), conditional
// expressions (A if COND else B), membership tests (X in Y) and the
// uuid() builtin. Rendering is pure apart from uuid().
package template

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokDot
	tokLParen
	tokRParen
	tokComma
	tokEq  // ==
	tokNeq // !=
)

// keywords recognized inside expressions. Everything else is an ident.
var keywords = map[string]bool{
	"if": true, "else": true, "in": true,
	"and": true, "or": true, "not": true,
	"true": true, "false": true,
	"True": true, "False": true, "None": true, "null": true,
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

// lex tokenizes an expression. Errors carry the byte offset so
// definition-load failures point at the broken span.
func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for l.pos < len(l.src) {
		r := rune(l.src[l.pos])
		switch {
		case unicode.IsSpace(r):
			l.pos++
		case r == '.':
			l.emit(tokDot, ".")
		case r == '(':
			l.emit(tokLParen, "(")
		case r == ')':
			l.emit(tokRParen, ")")
		case r == ',':
			l.emit(tokComma, ",")
		case r == '=' || r == '!':
			if l.pos+1 >= len(l.src) || l.src[l.pos+1] != '=' {
				return nil, fmt.Errorf("template: unexpected %q at %d", r, l.pos)
			}
			if r == '=' {
				l.toks = append(l.toks, token{tokEq, "==", l.pos})
			} else {
				l.toks = append(l.toks, token{tokNeq, "!=", l.pos})
			}
			l.pos += 2
		case r == '\'' || r == '"':
			if err := l.lexString(byte(r)); err != nil {
				return nil, err
			}
		case unicode.IsDigit(r):
			l.lexNumber()
		case unicode.IsLetter(r) || r == '_':
			l.lexIdent()
		default:
			return nil, fmt.Errorf("template: unexpected %q at %d", r, l.pos)
		}
	}
	l.toks = append(l.toks, token{tokEOF, "", l.pos})
	return l.toks, nil
}

func (l *lexer) emit(kind tokenKind, text string) {
	l.toks = append(l.toks, token{kind, text, l.pos})
	l.pos++
}

func (l *lexer) lexString(quote byte) error {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			b.WriteByte(l.src[l.pos])
			l.pos++
			continue
		}
		if c == quote {
			l.pos++
			l.toks = append(l.toks, token{tokString, b.String(), start})
			return nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return fmt.Errorf("template: unterminated string at %d", start)
}

func (l *lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.src) && unicode.IsDigit(rune(l.src[l.pos])) {
		l.pos++
	}
	l.toks = append(l.toks, token{tokNumber, l.src[start:l.pos], start})
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) {
		r := rune(l.src[l.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		l.pos++
	}
	l.toks = append(l.toks, token{tokIdent, l.src[start:l.pos], start})
}

// parseInt converts a number token; lexNumber guarantees digits only.
func parseInt(text string) int {
	n, _ := strconv.Atoi(text)
	return n
}
