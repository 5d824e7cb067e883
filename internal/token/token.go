package token

type TokenType string

const (
	ILLEGAL = "ILLEGAL" // Lexical error; Literal holds the message
	EOF     = "EOF"

	// Literals
	IDENT  = "IDENT"
	STRING = "STRING"
	NUMBER = "NUMBER"

	// Punctuation
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	COMMA     = ","
	DOT       = "."
	SEMICOLON = ";"

	// Operators
	MINUS    = "-"
	PLUS     = "+"
	SLASH    = "/"
	ASTERISK = "*"
	BANG     = "!"
	NOT_EQ   = "!="
	ASSIGN   = "="
	EQ       = "=="
	GT       = ">"
	GT_EQ    = ">="
	LT       = "<"
	LT_EQ    = "<="

	// Keywords
	AND    = "AND"
	CLASS  = "CLASS"
	ELSE   = "ELSE"
	FALSE  = "FALSE"
	FOR    = "FOR"
	FUN    = "FUN"
	IF     = "IF"
	NIL    = "NIL"
	OR     = "OR"
	PRINT  = "PRINT"
	RETURN = "RETURN"
	SUPER  = "SUPER"
	THIS   = "THIS"
	TRUE   = "TRUE"
	VAR    = "VAR"
	WHILE  = "WHILE"
)

// Token is a single lexical unit. Lexeme is the exact source text; Literal
// holds the decoded value (float64 for numbers, string for strings) or the
// diagnostic message for ILLEGAL tokens.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
}

var keywords = map[string]TokenType{
	"and":    AND,
	"class":  CLASS,
	"else":   ELSE,
	"false":  FALSE,
	"for":    FOR,
	"fun":    FUN,
	"if":     IF,
	"nil":    NIL,
	"or":     OR,
	"print":  PRINT,
	"return": RETURN,
	"super":  SUPER,
	"this":   THIS,
	"true":   TRUE,
	"var":    VAR,
	"while":  WHILE,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
