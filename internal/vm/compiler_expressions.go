package vm

import (
	"github.com/funvibe/lox/internal/config"
	"github.com/funvibe/lox/internal/token"
)

// Precedence levels, lowest to highest
type Precedence int

const (
	PREC_NONE       Precedence = iota
	PREC_ASSIGNMENT            // =
	PREC_OR                    // or
	PREC_AND                   // and
	PREC_EQUALITY              // == !=
	PREC_COMPARISON            // < > <= >=
	PREC_TERM                  // + -
	PREC_FACTOR                // * /
	PREC_UNARY                 // ! -
	PREC_CALL                  // . ()
	PREC_PRIMARY
)

type parseFn func(c *Compiler, canAssign bool)

// ParseRule says how a token parses in prefix and infix position, and how
// tightly it binds as an infix operator.
type ParseRule struct {
	Prefix     parseFn
	Infix      parseFn
	Precedence Precedence
}

var rules map[token.TokenType]ParseRule

func init() {
	rules = map[token.TokenType]ParseRule{
		token.LPAREN:   {(*Compiler).grouping, (*Compiler).call, PREC_CALL},
		token.DOT:      {nil, (*Compiler).dot, PREC_CALL},
		token.MINUS:    {(*Compiler).unary, (*Compiler).binary, PREC_TERM},
		token.PLUS:     {nil, (*Compiler).binary, PREC_TERM},
		token.SLASH:    {nil, (*Compiler).binary, PREC_FACTOR},
		token.ASTERISK: {nil, (*Compiler).binary, PREC_FACTOR},
		token.BANG:     {(*Compiler).unary, nil, PREC_NONE},
		token.NOT_EQ:   {nil, (*Compiler).binary, PREC_EQUALITY},
		token.EQ:       {nil, (*Compiler).binary, PREC_EQUALITY},
		token.GT:       {nil, (*Compiler).binary, PREC_COMPARISON},
		token.GT_EQ:    {nil, (*Compiler).binary, PREC_COMPARISON},
		token.LT:       {nil, (*Compiler).binary, PREC_COMPARISON},
		token.LT_EQ:    {nil, (*Compiler).binary, PREC_COMPARISON},
		token.IDENT:    {(*Compiler).variable, nil, PREC_NONE},
		token.STRING:   {(*Compiler).stringLiteral, nil, PREC_NONE},
		token.NUMBER:   {(*Compiler).number, nil, PREC_NONE},
		token.AND:      {nil, (*Compiler).and, PREC_AND},
		token.OR:       {nil, (*Compiler).or, PREC_OR},
		token.FALSE:    {(*Compiler).literal, nil, PREC_NONE},
		token.TRUE:     {(*Compiler).literal, nil, PREC_NONE},
		token.NIL:      {(*Compiler).literal, nil, PREC_NONE},
		token.THIS:     {(*Compiler).this, nil, PREC_NONE},
		token.SUPER:    {(*Compiler).super, nil, PREC_NONE},
	}
}

// getRule returns the empty rule for tokens that never start or continue
// an expression.
func getRule(t token.TokenType) ParseRule {
	return rules[t]
}

func (c *Compiler) expression() {
	c.parsePrecedence(PREC_ASSIGNMENT)
}

// parsePrecedence parses any expression at prec or tighter. Assignment is
// only allowed when the caller is at assignment level, so `a + b = c`
// falls through to the invalid target error.
func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := getRule(c.parser.previous.Type).Prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= PREC_ASSIGNMENT
	prefix(c, canAssign)

	for prec <= getRule(c.parser.current.Type).Precedence {
		c.advance()
		infix := getRule(c.parser.previous.Type).Infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.ASSIGN) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(canAssign bool) {
	n, _ := c.parser.previous.Literal.(float64)
	c.emitConstant(NumberVal(n))
}

func (c *Compiler) stringLiteral(canAssign bool) {
	s, _ := c.parser.previous.Literal.(string)
	c.emitConstant(ObjVal(c.vm.copyString(s)))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.parser.previous.Type {
	case token.FALSE:
		c.emitOp(OP_FALSE)
	case token.TRUE:
		c.emitOp(OP_TRUE)
	case token.NIL:
		c.emitOp(OP_NIL)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	operator := c.parser.previous.Type
	c.parsePrecedence(PREC_UNARY)

	switch operator {
	case token.BANG:
		c.emitOp(OP_NOT)
	case token.MINUS:
		c.emitOp(OP_NEG)
	}
}

func (c *Compiler) binary(canAssign bool) {
	operator := c.parser.previous.Type
	rule := getRule(operator)
	// Left associative: the right operand binds one level tighter.
	c.parsePrecedence(rule.Precedence + 1)

	switch operator {
	case token.NOT_EQ:
		c.emitOp(OP_NE)
	case token.EQ:
		c.emitOp(OP_EQ)
	case token.GT:
		c.emitOp(OP_GT)
	case token.GT_EQ:
		c.emitOp(OP_GE)
	case token.LT:
		c.emitOp(OP_LT)
	case token.LT_EQ:
		c.emitOp(OP_LE)
	case token.PLUS:
		c.emitOp(OP_ADD)
	case token.MINUS:
		c.emitOp(OP_SUB)
	case token.ASTERISK:
		c.emitOp(OP_MUL)
	case token.SLASH:
		c.emitOp(OP_DIV)
	}
}

// and short-circuits: a falsey left operand stays on the stack as the result.
func (c *Compiler) and(canAssign bool) {
	endJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.parsePrecedence(PREC_AND)
	c.patchJump(endJump)
}

func (c *Compiler) or(canAssign bool) {
	elseJump := c.emitJump(OP_JUMP_IF_FALSE)
	endJump := c.emitJump(OP_JUMP)
	c.patchJump(elseJump)
	c.emitOp(OP_POP)
	c.parsePrecedence(PREC_OR)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.parser.previous.Lexeme, canAssign)
}

// namedVariable emits a load or store, resolving name as a local, then an
// upvalue, then a global.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	wide := false

	arg := c.resolveLocal(name)
	switch {
	case arg != -1:
		getOp, setOp = OP_GET_LOCAL, OP_SET_LOCAL
	default:
		if arg = c.resolveUpvalue(name); arg != -1 {
			getOp, setOp = OP_GET_UPVALUE, OP_SET_UPVALUE
		} else {
			arg = int(c.identifierConstant(name))
			getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
			wide = true
		}
	}

	op := getOp
	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		op = setOp
	}

	if wide {
		c.emitOpShort(op, uint16(arg))
	} else {
		c.emitBytes(byte(op), byte(arg))
	}
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitBytes(byte(OP_CALL), argCount)
}

func (c *Compiler) argumentList() byte {
	argCount := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argCount == config.MaxArgs {
				c.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(argCount)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "Expect property name after '.'.")
	name := c.identifierConstant(c.parser.previous.Lexeme)

	switch {
	case canAssign && c.match(token.ASSIGN):
		c.expression()
		c.emitOpShort(OP_SET_PROPERTY, name)
	case c.match(token.LPAREN):
		argCount := c.argumentList()
		c.emitOpShort(OP_INVOKE, name)
		c.emitByte(argCount)
	default:
		c.emitOpShort(OP_GET_PROPERTY, name)
	}
}

func (c *Compiler) this(canAssign bool) {
	if c.parser.currentClass == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.namedVariable(config.ThisName, false)
}

func (c *Compiler) super(canAssign bool) {
	switch {
	case c.parser.currentClass == nil:
		c.error("Can't use 'super' outside of a class.")
	case !c.parser.currentClass.hasSuperclass:
		c.error("Can't use 'super' in a class with no superclass.")
	}

	c.consume(token.DOT, "Expect '.' after 'super'.")
	c.consume(token.IDENT, "Expect superclass method name.")
	name := c.identifierConstant(c.parser.previous.Lexeme)

	c.namedVariable(config.ThisName, false)
	if c.match(token.LPAREN) {
		argCount := c.argumentList()
		c.namedVariable(config.SuperName, false)
		c.emitOpShort(OP_SUPER_INVOKE, name)
		c.emitByte(argCount)
	} else {
		c.namedVariable(config.SuperName, false)
		c.emitOpShort(OP_GET_SUPER, name)
	}
}
