package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// StringFence brackets string-literal bounds in a decoded parameter
// string, so the directive decoder can split on it unambiguously.
// The lexer rewrites each unescaped quote of a literal into this token.
const StringFence = "|\"|"

// Line is one non-blank source line split into its mnemonic and
// parameter string. Spaces and semicolons inside string literals
// survive in Params; everything else is separator-collapsed.
type Line struct {
	Mnemonic string
	Params   string
	Pos      Position
}

// Lexer scans CVMA source text into line-bound (mnemonic, params)
// pairs. It is a character-class machine, not a token stream: a line is
// the unit of syntax and the decoder never needs finer granularity.
type Lexer struct {
	input    string
	filename string
}

// NewLexer creates a new lexer for the given input
func NewLexer(input, filename string) *Lexer {
	return &Lexer{input: input, filename: filename}
}

// isContent reports whether the rune belongs to a mnemonic or
// parameter. Classification is Unicode-aware: mnemonics carry Polish
// diacritics, which are letters under unicode.IsLetter but not ASCII.
func isContent(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) ||
		ch == '.' || ch == '@' || ch == '\\' || ch == '"'
}

// Lines scans the whole input and returns the decoded lines. Blank
// lines and comment-only lines are dropped.
func (l *Lexer) Lines() []Line {
	// The scanner emits on newline, so make sure the last line has one.
	runes := []rune(l.input)
	if len(runes) == 0 || runes[len(runes)-1] != '\n' {
		runes = append(runes, '\n')
	}

	var lines []Line
	var mnemonic, params strings.Builder

	isParam := false
	isString := false
	isEscape := false
	isComment := false
	line := 0

	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if ch == '\n' {
			isComment = false
			isParam = false
			line++

			if mnemonic.Len() == 0 {
				params.Reset()
				continue
			}

			lines = append(lines, Line{
				Mnemonic: mnemonic.String(),
				Params:   params.String(),
				Pos: Position{
					Filename: l.filename,
					Line:     line,
					Column:   utf8.RuneCountInString(mnemonic.String()) + 1,
				},
			})

			mnemonic.Reset()
			params.Reset()
			continue
		}

		if isComment {
			continue
		}

		if !isContent(ch) {
			// Separator or punctuation. A space after a non-empty
			// mnemonic switches accumulation to the parameter string;
			// inside a string literal spaces and ';' are literal text.
			if ch == ' ' && mnemonic.Len() > 0 {
				isParam = true
			}
			if ch == ' ' && isString {
				params.WriteRune(ch)
			}
			if ch == ';' {
				if isString {
					params.WriteRune(ch)
				} else {
					isComment = true
				}
			}
			continue
		}

		if ch == '\\' && i+1 < len(runes) && runes[i+1] == '"' {
			isEscape = true
			continue
		}

		if ch == '"' {
			if isEscape {
				isEscape = false
				params.WriteRune(ch)
			} else {
				isString = !isString
				params.WriteString(StringFence)
			}
			continue
		}

		if isParam {
			params.WriteRune(ch)
		} else {
			mnemonic.WriteRune(ch)
		}
	}

	return lines
}
