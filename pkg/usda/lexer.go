package usda

import (
	"fmt"
	"strings"
)

// tokenKind classifies lexer output.
type tokenKind int

const (
	tokEOF    tokenKind = iota
	tokIdent            // def, Mesh, point3f, primvars:displayColor, true
	tokString           // "World", """doc"""
	tokNumber           // 1, -0.5, 1e-3
	tokPunct            // ( ) [ ] { } = , ; :
	tokAsset            // @./tex.png@
	tokPath             // </World/Looks/Mat>
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokPunct:
		return "punctuation"
	case tokAsset:
		return "asset path"
	case tokPath:
		return "prim path"
	default:
		return fmt.Sprintf("tokenKind(%d)", int(k))
	}
}

type token struct {
	kind tokenKind
	text string // unquoted for strings, assets and paths
	line int
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) String() string {
	if t.kind == tokEOF {
		return t.kind.String()
	}
	return fmt.Sprintf("%s %q", t.kind, t.text)
}

// lexError marks input the lexer could not tokenize. Tokens produced up to
// that point remain usable.
type lexError struct {
	line int
	msg  string
}

func (e *lexError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

// lex splits src into tokens. '#' starts a comment running to end of line.
// Braces inside strings never produce punctuation tokens.
func lex(src string) ([]token, error) {
	var toks []token
	line := 1
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '"' || c == '\'':
			start := line
			s, n, nl, ok := scanString(src[i:])
			if !ok {
				return toks, &lexError{line: start, msg: "unterminated string"}
			}
			toks = append(toks, token{kind: tokString, text: s, line: start})
			line += nl
			i += n
		case c == '@':
			end := strings.IndexByte(src[i+1:], '@')
			if end < 0 {
				return toks, &lexError{line: line, msg: "unterminated asset path"}
			}
			text := src[i+1 : i+1+end]
			toks = append(toks, token{kind: tokAsset, text: text, line: line})
			line += strings.Count(text, "\n")
			i += end + 2
		case c == '<':
			end := strings.IndexByte(src[i+1:], '>')
			if end < 0 || strings.IndexByte(src[i+1:i+1+end], '\n') >= 0 {
				return toks, &lexError{line: line, msg: "unterminated prim path"}
			}
			toks = append(toks, token{kind: tokPath, text: src[i+1 : i+1+end], line: line})
			i += end + 2
		case isNumberStart(src, i):
			j := i + 1
			for j < len(src) && isNumberChar(src[j], src[j-1]) {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], line: line})
			i = j
		case isIdentStart(c) || ((c == '-' || c == '+') && i+1 < len(src) && isIdentStart(src[i+1])):
			j := i + 1
			for j < len(src) && isIdentChar(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], line: line})
			i = j
		case strings.IndexByte("()[]{}=,;:", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c), line: line})
			i++
		default:
			return toks, &lexError{line: line, msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks, nil
}

// scanString reads a single, double or triple quoted string at the start
// of s. It returns the unquoted text, bytes consumed and newlines crossed.
func scanString(s string) (text string, n, newlines int, ok bool) {
	q := s[0]
	if len(s) >= 3 && s[1] == q && s[2] == q {
		delim := s[:3]
		end := strings.Index(s[3:], delim)
		if end < 0 {
			return "", 0, 0, false
		}
		text = s[3 : 3+end]
		return text, end + 6, strings.Count(text, "\n"), true
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case q:
			return b.String(), i + 1, 0, true
		case '\n':
			return "", 0, 0, false
		case '\\':
			if i+1 < len(s) {
				i++
				switch s[i] {
				case 'n':
					b.WriteByte('\n')
				case 't':
					b.WriteByte('\t')
				default:
					b.WriteByte(s[i])
				}
			}
		default:
			b.WriteByte(s[i])
		}
	}
	return "", 0, 0, false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == ':' || c == '.'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNumberStart(src string, i int) bool {
	c := src[i]
	if isDigit(c) {
		return true
	}
	if (c == '-' || c == '+' || c == '.') && i+1 < len(src) {
		n := src[i+1]
		return isDigit(n) || (n == '.' && c != '.' && i+2 < len(src) && isDigit(src[i+2]))
	}
	return false
}

func isNumberChar(c, prev byte) bool {
	if isDigit(c) || c == '.' || c == 'e' || c == 'E' {
		return true
	}
	return (c == '-' || c == '+') && (prev == 'e' || prev == 'E')
}
