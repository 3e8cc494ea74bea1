package filter

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokEq
	tokNe
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// SyntaxError reports an invalid filter expression
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("filter: %s at offset %d", e.Msg, e.Pos)
}

func lex(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case r == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case r == '[':
			tokens = append(tokens, token{tokLBracket, "[", i})
			i++
		case r == ']':
			tokens = append(tokens, token{tokRBracket, "]", i})
			i++
		case r == ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
		case r == '=' || r == '!':
			if i+1 >= len(runes) || runes[i+1] != '=' {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected %q", r)}
			}
			if r == '=' {
				tokens = append(tokens, token{tokEq, "==", i})
			} else {
				tokens = append(tokens, token{tokNe, "!=", i})
			}
			i += 2
		case r == '"' || r == '\'':
			s, next, err := lexString(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokString, s, i})
			i = next
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(runes) && (runes[i] == '_' || unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
				i++
			}
			tokens = append(tokens, token{tokIdent, string(runes[start:i]), start})
		default:
			return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected %q", r)}
		}
	}

	return append(tokens, token{tokEOF, "", len(runes)}), nil
}

func lexString(runes []rune, start int) (string, int, error) {
	quote := runes[start]
	var b strings.Builder
	for i := start + 1; i < len(runes); i++ {
		switch runes[i] {
		case quote:
			return b.String(), i + 1, nil
		case '\\':
			if i+1 < len(runes) {
				i++
				switch runes[i] {
				case 'n':
					b.WriteRune('\n')
				case 't':
					b.WriteRune('\t')
				default:
					b.WriteRune(runes[i])
				}
				continue
			}
		}
		b.WriteRune(runes[i])
	}
	return "", 0, &SyntaxError{Pos: start, Msg: "unterminated string"}
}
