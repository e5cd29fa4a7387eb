package flow

import (
	"fmt"
	"strings"
	"unicode"
)

type TokenType int

const (
	EOF TokenType = iota
	Ident
	Int
	Float
	String
	Punct
)

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "end of input"
	case Ident:
		return "identifier"
	case Int:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Punct:
		return "punctuation"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  TokenType
	Line  int
}

// two-character operators, checked before single characters
var operators = []string{"->", "==", "!=", "<=", ">=", "&&", "||"}

const singles = "(){}[],:;+-*/%<>=!"

// Tokenize splits Flow source into tokens. The result always ends with EOF.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	line := 1
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}

		// Line comment
		if r == '/' && i+1 < len(runes) && runes[i+1] == '/' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			line++
			continue
		}

		if r == '"' {
			var b strings.Builder
			start := line
			i++
			for i < len(runes) && runes[i] != '"' {
				c := runes[i]
				if c == '\n' {
					line++
				}
				if c == '\\' && i+1 < len(runes) {
					i++
					switch runes[i] {
					case 'n':
						c = '\n'
					case 't':
						c = '\t'
					default:
						c = runes[i]
					}
				}
				b.WriteRune(c)
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("line %d: unterminated string literal", start)
			}
			tokens = append(tokens, Token{b.String(), String, start})
			continue
		}

		if unicode.IsDigit(r) {
			start := i
			typ := Int
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' || runes[i] == '_') {
				if runes[i] == '.' {
					if typ == Float {
						return nil, fmt.Errorf("line %d: malformed number", line)
					}
					typ = Float
				}
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), typ, line})
			i--
			continue
		}

		if unicode.IsLetter(r) || r == '_' {
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), Ident, line})
			i--
			continue
		}

		matched := false
		if i+1 < len(runes) {
			pair := string(runes[i : i+2])
			for _, op := range operators {
				if pair == op {
					tokens = append(tokens, Token{op, Punct, line})
					i++
					matched = true
					break
				}
			}
		}
		if matched {
			continue
		}

		if strings.ContainsRune(singles, r) {
			tokens = append(tokens, Token{string(r), Punct, line})
			continue
		}

		return nil, fmt.Errorf("line %d: unexpected character %q", line, r)
	}

	tokens = append(tokens, Token{"", EOF, line})
	return tokens, nil
}
