package vm

import (
	"github.com/funvibe/lox/internal/config"
	"github.com/funvibe/lox/internal/token"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.parser.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(token.ASSIGN) {
		c.expression()
	} else {
		c.emitOp(OP_NIL)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	// A function may refer to itself recursively.
	c.markInitialized()
	c.compileFunction(TYPE_FUNCTION)
	c.defineVariable(global)
}

// compileFunction compiles a parameter list and body into a new ObjFunction and
// emits the OP_CLOSURE that instantiates it.
func (c *Compiler) compileFunction(funcType FunctionType) {
	fc := newCompiler(c.parser, c.vm, c, funcType)
	fc.beginScope()

	fc.consume(token.LPAREN, "Expect '(' after function name.")
	if !fc.check(token.RPAREN) {
		for {
			fc.function.Arity++
			if fc.function.Arity > config.MaxArgs {
				fc.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := fc.parseVariable("Expect parameter name.")
			fc.defineVariable(constant)
			if !fc.match(token.COMMA) {
				break
			}
		}
	}
	fc.consume(token.RPAREN, "Expect ')' after parameters.")
	fc.consume(token.LBRACE, "Expect '{' before function body.")
	fc.block()

	// No endScope: the frame is discarded wholesale on return.
	fn := fc.endCompiler()
	c.emitOpShort(OP_CLOSURE, c.makeConstant(ObjVal(fn)))
	for _, uv := range fc.upvalues {
		isLocal := byte(0)
		if uv.IsLocal {
			isLocal = 1
		}
		c.emitBytes(isLocal, uv.Index)
	}
}

func (c *Compiler) method() {
	c.consume(token.IDENT, "Expect method name.")
	name := c.parser.previous.Lexeme
	constant := c.identifierConstant(name)

	funcType := TYPE_METHOD
	if name == config.InitMethodName {
		funcType = TYPE_INITIALIZER
	}
	c.compileFunction(funcType)
	c.emitOpShort(OP_METHOD, constant)
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "Expect class name.")
	className := c.parser.previous.Lexeme
	nameConstant := c.identifierConstant(className)
	c.declareVariable()

	c.emitOpShort(OP_CLASS, nameConstant)
	c.defineVariable(nameConstant)

	class := &ClassCompiler{enclosing: c.parser.currentClass}
	c.parser.currentClass = class

	if c.match(token.LT) {
		c.consume(token.IDENT, "Expect superclass name.")
		c.variable(false)

		if className == c.parser.previous.Lexeme {
			c.error("A class can't inherit from itself.")
		}

		// "super" is a local in a scope wrapping the methods, so each
		// method captures the superclass as an upvalue.
		c.beginScope()
		c.addLocal(config.SuperName)
		c.defineVariable(0)

		c.namedVariable(className, false)
		c.emitOp(OP_INHERIT)
		class.hasSuperclass = true
	}

	c.namedVariable(className, false)
	c.consume(token.LBRACE, "Expect '{' before class body.")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "Expect '}' after class body.")
	c.emitOp(OP_POP)

	if class.hasSuperclass {
		c.endScope()
	}
	c.parser.currentClass = class.enclosing
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(OP_PRINT)
}

func (c *Compiler) returnStatement() {
	if c.funcType == TYPE_SCRIPT {
		c.error("Can't return from top-level code.")
	}

	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}

	if c.funcType == TYPE_INITIALIZER {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(OP_RETURN)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.statement()

	elseJump := c.emitJump(OP_JUMP)
	c.patchJump(thenJump)
	c.emitOp(OP_POP)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

// expressionStatement discards the value, except at the top level of a REPL
// line where it is printed.
func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	if c.parser.replMode && c.funcType == TYPE_SCRIPT && c.scopeDepth == 0 {
		c.emitOp(OP_PRINT)
		return
	}
	c.emitOp(OP_POP)
}
