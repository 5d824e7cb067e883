// Package lexer turns Lox source text into a lazy stream of tokens.
package lexer

import (
	"strconv"
	"unicode/utf8"

	"github.com/funvibe/lox/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

// NextToken scans and returns the next token. Once the input is exhausted it
// keeps returning EOF. Lexical errors come back as ILLEGAL tokens so the
// caller can report them and carry on.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	if l.atEnd() {
		return token.Token{Type: token.EOF, Lexeme: "", Line: l.line}
	}

	line := l.line
	ch := l.ch

	switch {
	case isLetter(ch):
		ident := l.readIdentifier()
		return token.Token{Type: token.LookupIdent(ident), Lexeme: ident, Literal: ident, Line: line}
	case isDigit(ch):
		return l.readNumber()
	case ch == '"':
		return l.readString()
	}

	var tok token.Token
	switch ch {
	case '(':
		tok = newToken(token.LPAREN, ch, line)
	case ')':
		tok = newToken(token.RPAREN, ch, line)
	case '{':
		tok = newToken(token.LBRACE, ch, line)
	case '}':
		tok = newToken(token.RBRACE, ch, line)
	case ';':
		tok = newToken(token.SEMICOLON, ch, line)
	case ',':
		tok = newToken(token.COMMA, ch, line)
	case '.':
		tok = newToken(token.DOT, ch, line)
	case '-':
		tok = newToken(token.MINUS, ch, line)
	case '+':
		tok = newToken(token.PLUS, ch, line)
	case '/':
		tok = newToken(token.SLASH, ch, line)
	case '*':
		tok = newToken(token.ASTERISK, ch, line)
	case '!':
		tok = l.twoChar('=', token.NOT_EQ, token.BANG, line)
	case '=':
		tok = l.twoChar('=', token.EQ, token.ASSIGN, line)
	case '<':
		tok = l.twoChar('=', token.LT_EQ, token.LT, line)
	case '>':
		tok = l.twoChar('=', token.GT_EQ, token.GT, line)
	default:
		tok = token.Token{Type: token.ILLEGAL, Lexeme: string(ch), Literal: "Unexpected character.", Line: line}
	}
	l.readChar()
	return tok
}

// twoChar handles maximal munch for operators that may be followed by next.
func (l *Lexer) twoChar(next rune, long, short token.TokenType, line int) token.Token {
	if l.peekChar() == next {
		first := l.ch
		l.readChar()
		lexeme := string(first) + string(l.ch)
		return token.Token{Type: long, Lexeme: lexeme, Literal: lexeme, Line: line}
	}
	return newToken(short, l.ch, line)
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() token.Token {
	startLine := l.line
	position := l.position

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // .
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	lexeme := l.input[position:l.position]
	val, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "Invalid number literal.", Line: startLine}
	}
	return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: val, Line: startLine}
}

// readString consumes a double-quoted literal. Strings may span lines and
// have no escape sequences.
func (l *Lexer) readString() token.Token {
	startLine := l.line
	position := l.position
	l.readChar() // opening "

	for l.ch != '"' && !l.atEnd() {
		l.readChar()
	}
	if l.atEnd() {
		return token.Token{Type: token.ILLEGAL, Lexeme: l.input[position:], Literal: "Unterminated string.", Line: startLine}
	}

	content := l.input[position+1 : l.position]
	l.readChar() // closing "
	return token.Token{Type: token.STRING, Lexeme: l.input[position:l.position], Literal: content, Line: startLine}
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func newToken(tokenType token.TokenType, ch rune, line int) token.Token {
	literal := string(ch)
	return token.Token{Type: tokenType, Lexeme: literal, Literal: literal, Line: line}
}

func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && !l.atEnd() {
				l.readChar()
			}
			continue
		}
		break
	}
}
