package vm

import (
	"github.com/funvibe/lox/internal/config"
	"github.com/funvibe/lox/internal/token"
)

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope pops the scope's locals, closing the ones a closure captured.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].IsCaptured {
			c.emitOp(OP_CLOSE_UPVALUE)
		} else {
			c.emitOp(OP_POP)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (c *Compiler) addLocal(name string) {
	if len(c.locals) >= config.MaxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.locals = append(c.locals, Local{Name: name, Depth: -1})
}

// declareVariable records a new local in the current scope. Globals are
// late bound and need no declaration.
func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.parser.previous.Lexeme
	for i := len(c.locals) - 1; i >= 0; i-- {
		local := &c.locals[i]
		if local.Depth != -1 && local.Depth < c.scopeDepth {
			break
		}
		if local.Name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

// parseVariable consumes a variable name. For globals it returns the name's
// constant index; for locals the result is unused.
func (c *Compiler) parseVariable(msg string) uint16 {
	c.consume(token.IDENT, msg)
	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.parser.previous.Lexeme)
}

func (c *Compiler) identifierConstant(name string) uint16 {
	return c.makeConstant(ObjVal(c.vm.copyString(name)))
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].Depth = c.scopeDepth
}

func (c *Compiler) defineVariable(global uint16) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpShort(OP_DEFINE_GLOBAL, global)
}

// resolveLocal returns the slot of name in this function, or -1.
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			if c.locals[i].Depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue finds name in an enclosing function and threads it through
// every intermediate function as an upvalue. Returns -1 for globals.
func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}

	if local := c.enclosing.resolveLocal(name); local != -1 {
		c.enclosing.locals[local].IsCaptured = true
		return c.addUpvalue(uint8(local), true)
	}

	if upvalue := c.enclosing.resolveUpvalue(name); upvalue != -1 {
		return c.addUpvalue(uint8(upvalue), false)
	}

	return -1
}

func (c *Compiler) addUpvalue(index uint8, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}

	if len(c.upvalues) >= config.MaxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}

	c.upvalues = append(c.upvalues, Upvalue{Index: index, IsLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

// Jumps

// emitJump emits op with a placeholder offset and returns the operand's
// position for patchJump.
func (c *Compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitBytes(0xff, 0xff)
	return c.currentChunk().Len() - 2
}

func (c *Compiler) patchJump(offset int) {
	// -2 to skip the operand itself
	jump := c.currentChunk().Len() - offset - 2
	if jump > config.MaxJump {
		c.error("Too much code to jump over.")
	}
	c.currentChunk().Code[offset] = byte(jump >> 8)
	c.currentChunk().Code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(OP_LOOP)
	offset := c.currentChunk().Len() - loopStart + 2
	if offset > config.MaxJump {
		c.error("Loop body too large.")
	}
	c.emitBytes(byte(offset>>8), byte(offset))
}
