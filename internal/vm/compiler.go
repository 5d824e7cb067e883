package vm

import (
	"fmt"
	"strings"

	"github.com/funvibe/lox/internal/config"
	"github.com/funvibe/lox/internal/lexer"
	"github.com/funvibe/lox/internal/token"
	"github.com/tliron/commonlog"
)

var compilerLog = commonlog.GetLogger("lox.compiler")

// Diagnostic is one compile error.
type Diagnostic struct {
	Line    int
	Where   string // " at 'x'", " at end", or "" for lexical errors
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, d.Where, d.Message)
}

// CompileError collects every diagnostic reported while compiling a source.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// FunctionType tells the compiler what kind of body it is compiling
type FunctionType int

const (
	TYPE_FUNCTION FunctionType = iota
	TYPE_INITIALIZER
	TYPE_METHOD
	TYPE_SCRIPT
)

// Local is a variable living in a stack slot of the current function.
// Depth -1 marks a declared but not yet initialized local.
type Local struct {
	Name       string
	Depth      int
	IsCaptured bool
}

// Upvalue records where a closure captures a variable from: a local slot
// of the enclosing function, or one of the enclosing function's upvalues.
type Upvalue struct {
	Index   uint8
	IsLocal bool
}

// Parser is shared by every Compiler in the chain for one source.
type Parser struct {
	lexer       *lexer.Lexer
	current     token.Token
	previous    token.Token
	hadError    bool
	panicMode   bool
	diagnostics []Diagnostic

	currentClass *ClassCompiler
	replMode     bool
}

// ClassCompiler tracks the class body being compiled, innermost first.
type ClassCompiler struct {
	enclosing     *ClassCompiler
	hasSuperclass bool
}

// Compiler holds the state of one function being compiled. Nested function
// declarations push a new Compiler whose enclosing is the current one.
type Compiler struct {
	enclosing  *Compiler
	function   *ObjFunction
	funcType   FunctionType
	locals     []Local
	upvalues   []Upvalue
	scopeDepth int

	parser *Parser
	vm     *VM
}

func newCompiler(p *Parser, vm *VM, enclosing *Compiler, funcType FunctionType) *Compiler {
	c := &Compiler{
		enclosing: enclosing,
		funcType:  funcType,
		locals:    make([]Local, 0, config.MaxLocals),
		parser:    p,
		vm:        vm,
	}
	c.function = vm.newFunction()
	// Rooted from here on.
	vm.compiler = c

	if funcType != TYPE_SCRIPT {
		c.function.Name = vm.copyString(p.previous.Lexeme)
	}

	// Slot zero holds the callee, or the receiver inside methods.
	slotZero := ""
	if funcType != TYPE_FUNCTION && funcType != TYPE_SCRIPT {
		slotZero = config.ThisName
	}
	c.locals = append(c.locals, Local{Name: slotZero, Depth: 0})
	return c
}

// Compile compiles source into the top-level script function.
func (vm *VM) Compile(source string) (*ObjFunction, error) {
	return vm.compile(source, false)
}

func (vm *VM) compile(source string, replMode bool) (*ObjFunction, error) {
	p := &Parser{lexer: lexer.New(source), replMode: replMode}
	c := newCompiler(p, vm, nil, TYPE_SCRIPT)

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endCompiler()

	if p.hadError {
		compilerLog.Debugf("[%s] compile failed with %d error(s)", vm.shortID(), len(p.diagnostics))
		return nil, &CompileError{Diagnostics: p.diagnostics}
	}
	return fn, nil
}

func (c *Compiler) endCompiler() *ObjFunction {
	c.emitReturn()
	fn := c.function

	if c.vm.settings.Debug.PrintCode && !c.parser.hadError {
		name := fn.name()
		if name == "" {
			name = config.ScriptName
		}
		compilerLog.Infof("\n%s", Disassemble(fn.Chunk, name))
	}

	c.vm.compiler = c.enclosing
	return fn
}

func (c *Compiler) currentChunk() *Chunk {
	return c.function.Chunk
}

// Token stream

func (c *Compiler) advance() {
	p := c.parser
	p.previous = p.current
	for {
		p.current = p.lexer.NextToken()
		if p.current.Type != token.ILLEGAL {
			break
		}
		msg, _ := p.current.Literal.(string)
		c.errorAtCurrent(msg)
	}
}

func (c *Compiler) consume(t token.TokenType, msg string) {
	if c.parser.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) check(t token.TokenType) bool {
	return c.parser.current.Type == t
}

func (c *Compiler) match(t token.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

// Error reporting

func (c *Compiler) error(msg string) {
	c.errorAt(c.parser.previous, msg)
}

func (c *Compiler) errorAtCurrent(msg string) {
	c.errorAt(c.parser.current, msg)
}

// errorAt records a diagnostic unless the parser is already in panic mode,
// which suppresses cascades until the next statement boundary.
func (c *Compiler) errorAt(tok token.Token, msg string) {
	p := c.parser
	if p.panicMode {
		return
	}
	p.panicMode = true

	where := ""
	switch tok.Type {
	case token.EOF:
		where = " at end"
	case token.ILLEGAL:
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	p.diagnostics = append(p.diagnostics, Diagnostic{Line: tok.Line, Where: where, Message: msg})
	p.hadError = true
}

// synchronize skips tokens until something that looks like a statement
// boundary.
func (c *Compiler) synchronize() {
	p := c.parser
	p.panicMode = false

	for p.current.Type != token.EOF {
		if p.previous.Type == token.SEMICOLON {
			return
		}
		switch p.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// Emission

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.parser.previous.Line)
}

func (c *Compiler) emitBytes(b1, b2 byte) {
	c.emitByte(b1)
	c.emitByte(b2)
}

func (c *Compiler) emitOp(op Opcode) {
	c.currentChunk().WriteOp(op, c.parser.previous.Line)
}

func (c *Compiler) emitShort(v uint16) {
	c.currentChunk().WriteShort(v, c.parser.previous.Line)
}

// emitOpShort emits an instruction with a 16-bit operand.
func (c *Compiler) emitOpShort(op Opcode, operand uint16) {
	c.emitOp(op)
	c.emitShort(operand)
}

func (c *Compiler) emitReturn() {
	if c.funcType == TYPE_INITIALIZER {
		c.emitBytes(byte(OP_GET_LOCAL), 0)
	} else {
		c.emitOp(OP_NIL)
	}
	c.emitOp(OP_RETURN)
}

func (c *Compiler) makeConstant(v Value) uint16 {
	idx := c.currentChunk().AddConstant(v)
	if idx >= config.MaxConstants {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return uint16(idx)
}

func (c *Compiler) emitConstant(v Value) {
	c.emitOpShort(OP_CONST, c.makeConstant(v))
}
