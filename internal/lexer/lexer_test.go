package lexer

import (
	"testing"

	"github.com/funvibe/lox/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `var five = 5;
fun add(a, b) { return a + b; }
// a comment
if (five >= 10.5 and !false) print "hi"; else five != nil;
class A < B { init() { this.x = super.y; } }
a <= b == c > d < e - f * g / h, i or j;
while for true`

	tests := []struct {
		expectedType   token.TokenType
		expectedLexeme string
		expectedLine   int
	}{
		{token.VAR, "var", 1},
		{token.IDENT, "five", 1},
		{token.ASSIGN, "=", 1},
		{token.NUMBER, "5", 1},
		{token.SEMICOLON, ";", 1},
		{token.FUN, "fun", 2},
		{token.IDENT, "add", 2},
		{token.LPAREN, "(", 2},
		{token.IDENT, "a", 2},
		{token.COMMA, ",", 2},
		{token.IDENT, "b", 2},
		{token.RPAREN, ")", 2},
		{token.LBRACE, "{", 2},
		{token.RETURN, "return", 2},
		{token.IDENT, "a", 2},
		{token.PLUS, "+", 2},
		{token.IDENT, "b", 2},
		{token.SEMICOLON, ";", 2},
		{token.RBRACE, "}", 2},
		{token.IF, "if", 4},
		{token.LPAREN, "(", 4},
		{token.IDENT, "five", 4},
		{token.GT_EQ, ">=", 4},
		{token.NUMBER, "10.5", 4},
		{token.AND, "and", 4},
		{token.BANG, "!", 4},
		{token.FALSE, "false", 4},
		{token.RPAREN, ")", 4},
		{token.PRINT, "print", 4},
		{token.STRING, `"hi"`, 4},
		{token.SEMICOLON, ";", 4},
		{token.ELSE, "else", 4},
		{token.IDENT, "five", 4},
		{token.NOT_EQ, "!=", 4},
		{token.NIL, "nil", 4},
		{token.SEMICOLON, ";", 4},
		{token.CLASS, "class", 5},
		{token.IDENT, "A", 5},
		{token.LT, "<", 5},
		{token.IDENT, "B", 5},
		{token.LBRACE, "{", 5},
		{token.IDENT, "init", 5},
		{token.LPAREN, "(", 5},
		{token.RPAREN, ")", 5},
		{token.LBRACE, "{", 5},
		{token.THIS, "this", 5},
		{token.DOT, ".", 5},
		{token.IDENT, "x", 5},
		{token.ASSIGN, "=", 5},
		{token.SUPER, "super", 5},
		{token.DOT, ".", 5},
		{token.IDENT, "y", 5},
		{token.SEMICOLON, ";", 5},
		{token.RBRACE, "}", 5},
		{token.RBRACE, "}", 5},
		{token.IDENT, "a", 6},
		{token.LT_EQ, "<=", 6},
		{token.IDENT, "b", 6},
		{token.EQ, "==", 6},
		{token.IDENT, "c", 6},
		{token.GT, ">", 6},
		{token.IDENT, "d", 6},
		{token.LT, "<", 6},
		{token.IDENT, "e", 6},
		{token.MINUS, "-", 6},
		{token.IDENT, "f", 6},
		{token.ASTERISK, "*", 6},
		{token.IDENT, "g", 6},
		{token.SLASH, "/", 6},
		{token.IDENT, "h", 6},
		{token.COMMA, ",", 6},
		{token.IDENT, "i", 6},
		{token.OR, "or", 6},
		{token.IDENT, "j", 6},
		{token.SEMICOLON, ";", 6},
		{token.WHILE, "while", 7},
		{token.FOR, "for", 7},
		{token.TRUE, "true", 7},
		{token.EOF, "", 7},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)", i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q", i, tt.expectedLexeme, tok.Lexeme)
		}
		if tok.Line != tt.expectedLine {
			t.Fatalf("tests[%d] - line wrong. expected=%d, got=%d", i, tt.expectedLine, tok.Line)
		}
	}
}

func TestNumberAndStringLiterals(t *testing.T) {
	l := New(`12.25 "multi
line" 3.`)

	num := l.NextToken()
	if v, ok := num.Literal.(float64); !ok || v != 12.25 {
		t.Fatalf("number literal wrong: %#v", num.Literal)
	}

	str := l.NextToken()
	if str.Type != token.STRING || str.Literal != "multi\nline" {
		t.Fatalf("string literal wrong: %#v", str)
	}
	if str.Line != 1 {
		t.Errorf("string should report its starting line, got %d", str.Line)
	}

	// A trailing dot is not part of the number.
	three := l.NextToken()
	if three.Lexeme != "3" {
		t.Errorf("expected lexeme 3, got %q", three.Lexeme)
	}
	if dot := l.NextToken(); dot.Type != token.DOT {
		t.Errorf("expected DOT, got %q", dot.Type)
	}
}

func TestLexicalErrorsDoNotStopScanning(t *testing.T) {
	l := New("var @ x;\n\"open")

	want := []struct {
		typ  token.TokenType
		msg  string
		line int
	}{
		{token.VAR, "", 1},
		{token.ILLEGAL, "Unexpected character.", 1},
		{token.IDENT, "", 1},
		{token.SEMICOLON, "", 1},
		{token.ILLEGAL, "Unterminated string.", 2},
		{token.EOF, "", 2},
	}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w.typ {
			t.Fatalf("token %d: expected %q, got %q", i, w.typ, tok.Type)
		}
		if w.msg != "" && tok.Literal != w.msg {
			t.Errorf("token %d: expected message %q, got %v", i, w.msg, tok.Literal)
		}
		if tok.Line != w.line {
			t.Errorf("token %d: expected line %d, got %d", i, w.line, tok.Line)
		}
	}
}

func TestEOFIsSticky(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != token.EOF {
			t.Fatalf("call %d: expected EOF, got %q", i, tok.Type)
		}
	}
}

func TestUnterminatedStringReportsOpeningLine(t *testing.T) {
	l := New("print 1;\n\"one\ntwo\nthree")
	for i := 0; i < 3; i++ {
		l.NextToken()
	}

	tok := l.NextToken()
	if tok.Type != token.ILLEGAL || tok.Literal != "Unterminated string." {
		t.Fatalf("expected unterminated string, got %#v", tok)
	}
	if tok.Line != 2 {
		t.Errorf("expected line 2, got %d", tok.Line)
	}
	if tok.Lexeme != "\"one\ntwo\nthree" {
		t.Errorf("lexeme should run to end of input, got %q", tok.Lexeme)
	}
	if eof := l.NextToken(); eof.Type != token.EOF || eof.Line != 4 {
		t.Errorf("expected EOF on line 4, got %q on line %d", eof.Type, eof.Line)
	}
}
