// Package lexer converts SQL source text into a flat token stream.
//
// Keywords match case-insensitively; identifiers keep their case.
// Dotted paths, brackets, and slice colons are emitted as separate
// tokens — reassembling `a.b[0]` into a field path is the parser's job.
// The lexer fails hard on malformed input (unterminated strings, stray
// characters); it never produces a best-effort token stream.
package lexer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/mongosql/internal/sqlerr"
)

type lexer struct {
	input []rune
	pos   int
}

// Tokenize scans the whole input and returns the token stream,
// terminated by an EOF token. The input is NFC-normalized first so that
// visually identical identifiers compare equal.
func Tokenize(input string) ([]Token, error) {
	l := &lexer{input: []rune(norm.NFC.String(input))}
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (Token, error) {
	l.skipWhitespace()
	start := l.pos

	if l.atEnd() {
		return Token{Kind: EOF, Pos: start}, nil
	}

	ch := l.current()
	switch {
	case ch == '*':
		l.pos++
		return Token{Kind: STAR, Lexeme: "*", Pos: start}, nil
	case ch == ',':
		l.pos++
		return Token{Kind: COMMA, Lexeme: ",", Pos: start}, nil
	case ch == '.':
		l.pos++
		return Token{Kind: DOT, Lexeme: ".", Pos: start}, nil
	case ch == '(':
		l.pos++
		return Token{Kind: LPAREN, Lexeme: "(", Pos: start}, nil
	case ch == ')':
		l.pos++
		return Token{Kind: RPAREN, Lexeme: ")", Pos: start}, nil
	case ch == '[':
		l.pos++
		return Token{Kind: LBRACKET, Lexeme: "[", Pos: start}, nil
	case ch == ']':
		l.pos++
		return Token{Kind: RBRACKET, Lexeme: "]", Pos: start}, nil
	case ch == ':':
		l.pos++
		return Token{Kind: COLON, Lexeme: ":", Pos: start}, nil
	case ch == ';':
		l.pos++
		return Token{Kind: SEMICOLON, Lexeme: ";", Pos: start}, nil
	case ch == '+':
		l.pos++
		return Token{Kind: PLUS, Lexeme: "+", Pos: start}, nil
	case ch == '-':
		l.pos++
		return Token{Kind: MINUS, Lexeme: "-", Pos: start}, nil
	case ch == '/':
		l.pos++
		return Token{Kind: SLASH, Lexeme: "/", Pos: start}, nil
	case ch == '%':
		l.pos++
		return Token{Kind: PERCENT, Lexeme: "%", Pos: start}, nil
	case ch == '=':
		l.pos++
		return Token{Kind: EQ, Lexeme: "=", Pos: start}, nil
	case ch == '!':
		l.pos++
		if !l.atEnd() && l.current() == '=' {
			l.pos++
			return Token{Kind: NE, Lexeme: "!=", Pos: start}, nil
		}
		return Token{}, sqlerr.NewAt(sqlerr.CodeInvalidCharacter, start,
			"unexpected character '!' (did you mean '!=' ?)")
	case ch == '>':
		l.pos++
		if !l.atEnd() && l.current() == '=' {
			l.pos++
			return Token{Kind: GE, Lexeme: ">=", Pos: start}, nil
		}
		return Token{Kind: GT, Lexeme: ">", Pos: start}, nil
	case ch == '<':
		l.pos++
		if !l.atEnd() && l.current() == '=' {
			l.pos++
			return Token{Kind: LE, Lexeme: "<=", Pos: start}, nil
		}
		if !l.atEnd() && l.current() == '>' {
			l.pos++
			return Token{Kind: NE, Lexeme: "<>", Pos: start}, nil
		}
		return Token{Kind: LT, Lexeme: "<", Pos: start}, nil
	case ch == '\'' || ch == '"':
		return l.scanString(ch, start)
	case unicode.IsDigit(ch):
		return l.scanNumber(start), nil
	case unicode.IsLetter(ch) || ch == '_' || ch == '$':
		return l.scanIdentifier(start), nil
	default:
		return Token{}, sqlerr.NewAt(sqlerr.CodeInvalidCharacter, start,
			"unexpected character %q", string(ch))
	}
}

// scanString scans a quoted string literal. A doubled quote inside the
// literal escapes the quote character itself ('it''s' -> it's).
func (l *lexer) scanString(quote rune, start int) (Token, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for !l.atEnd() {
		ch := l.current()
		if ch == quote {
			if l.peek() == quote {
				sb.WriteRune(quote)
				l.pos += 2
				continue
			}
			l.pos++ // closing quote
			return Token{Kind: STRING, Lexeme: sb.String(), Pos: start}, nil
		}
		sb.WriteRune(ch)
		l.pos++
	}
	return Token{}, sqlerr.NewAt(sqlerr.CodeUnterminatedString, start,
		"unterminated string literal")
}

// scanNumber scans an integer or decimal literal. A leading '-' is
// never part of the number; the parser decides whether MINUS is unary.
func (l *lexer) scanNumber(start int) Token {
	for !l.atEnd() && unicode.IsDigit(l.current()) {
		l.pos++
	}
	if !l.atEnd() && l.current() == '.' && unicode.IsDigit(l.peek()) {
		l.pos++
		for !l.atEnd() && unicode.IsDigit(l.current()) {
			l.pos++
		}
	}
	return Token{Kind: NUMBER, Lexeme: string(l.input[start:l.pos]), Pos: start}
}

func (l *lexer) scanIdentifier(start int) Token {
	for !l.atEnd() {
		ch := l.current()
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '$' {
			l.pos++
			continue
		}
		break
	}
	lexeme := string(l.input[start:l.pos])
	if kind, ok := keywords[strings.ToUpper(lexeme)]; ok {
		return Token{Kind: kind, Lexeme: lexeme, Pos: start}
	}
	return Token{Kind: IDENT, Lexeme: lexeme, Pos: start}
}

func (l *lexer) skipWhitespace() {
	for !l.atEnd() && unicode.IsSpace(l.current()) {
		l.pos++
	}
}

func (l *lexer) current() rune { return l.input[l.pos] }

func (l *lexer) peek() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *lexer) atEnd() bool { return l.pos >= len(l.input) }
