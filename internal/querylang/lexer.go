package querylang

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokString
	tokInt
	tokFloat
	tokKeyword  // import, if, else, for, while, in, true, false, null
	tokOperator // + - * / % == != < <= > >= && || ! =
	tokPunct    // . , ( ) [ ] { } : ;
)

type token struct {
	typ tokenType
	lit string
	pos Pos
}

func (t token) String() string {
	if t.typ == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.lit)
}

var keywords = map[string]bool{
	"import": true, "if": true, "else": true, "for": true,
	"while": true, "in": true, "true": true, "false": true, "null": true,
}

// SyntaxError reports a snippet that cannot be tokenized or parsed.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) errorf(pos Pos, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peek() rune {
	if l.off >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.off:])
	return r
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) skipSpaceAndComments() {
	for l.off < len(l.src) {
		r := l.peek()
		switch {
		case r == '#':
			for l.off < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case unicode.IsSpace(r):
			l.advance()
		default:
			return
		}
	}
}

// next returns the next token, or an error for an unterminated string or an
// unrecognized character.
func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	pos := Pos{Line: l.line, Col: l.col}
	if l.off >= len(l.src) {
		return token{typ: tokEOF, pos: pos}, nil
	}

	r := l.peek()
	switch {
	case r == '"':
		return l.lexString(pos)
	case unicode.IsDigit(r):
		return l.lexNumber(pos)
	case r == '_' || unicode.IsLetter(r):
		return l.lexIdent(pos)
	}

	l.advance()
	switch r {
	case '.', ',', '(', ')', '[', ']', '{', '}', ':', ';':
		return token{typ: tokPunct, lit: string(r), pos: pos}, nil
	case '+', '-', '*', '/', '%':
		return token{typ: tokOperator, lit: string(r), pos: pos}, nil
	case '=', '!', '<', '>':
		if l.peek() == '=' {
			l.advance()
			return token{typ: tokOperator, lit: string(r) + "=", pos: pos}, nil
		}
		return token{typ: tokOperator, lit: string(r), pos: pos}, nil
	case '&', '|':
		if l.peek() == r {
			l.advance()
			return token{typ: tokOperator, lit: string(r) + string(r), pos: pos}, nil
		}
		return token{}, l.errorf(pos, "unexpected character %q", r)
	}
	return token{}, l.errorf(pos, "unexpected character %q", r)
}

func (l *lexer) lexString(pos Pos) (token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.off >= len(l.src) {
			return token{}, l.errorf(pos, "unterminated string")
		}
		r := l.advance()
		switch r {
		case '"':
			return token{typ: tokString, lit: sb.String(), pos: pos}, nil
		case '\\':
			if l.off >= len(l.src) {
				return token{}, l.errorf(pos, "unterminated string")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"', '\\':
				sb.WriteRune(esc)
			default:
				return token{}, l.errorf(pos, "invalid escape \\%c", esc)
			}
		case '\n':
			return token{}, l.errorf(pos, "unterminated string")
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *lexer) lexNumber(pos Pos) (token, error) {
	start := l.off
	isFloat := false
	for l.off < len(l.src) {
		r := l.peek()
		if unicode.IsDigit(r) {
			l.advance()
			continue
		}
		// A dot is part of the number only when followed by a digit, so
		// `2.data` still lexes as INT DOT IDENT.
		if r == '.' && !isFloat {
			if nr, _ := utf8.DecodeRuneInString(l.src[l.off+1:]); unicode.IsDigit(nr) {
				isFloat = true
				l.advance()
				continue
			}
		}
		break
	}
	lit := l.src[start:l.off]
	typ := tokInt
	if isFloat {
		typ = tokFloat
	}
	return token{typ: typ, lit: lit, pos: pos}, nil
}

func (l *lexer) lexIdent(pos Pos) (token, error) {
	start := l.off
	for l.off < len(l.src) {
		r := l.peek()
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			l.advance()
			continue
		}
		break
	}
	lit := l.src[start:l.off]
	if keywords[lit] {
		return token{typ: tokKeyword, lit: lit, pos: pos}, nil
	}
	return token{typ: tokIdent, lit: lit, pos: pos}, nil
}
