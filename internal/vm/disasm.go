package vm

import (
	"fmt"
	"strings"

	"github.com/funvibe/lox/internal/config"
)

// Disassemble returns a human-readable listing of the chunk. Functions
// created by OP_CLOSURE are listed after the instruction that creates them.
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&sb, chunk, offset, true)
	}

	return sb.String()
}

// DisassembleInstruction renders the instruction at offset and returns it
// together with the offset of the next instruction.
func DisassembleInstruction(chunk *Chunk, offset int) (string, int) {
	var sb strings.Builder
	next := disassembleInstruction(&sb, chunk, offset, false)
	return sb.String(), next
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int, nested bool) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	op := Opcode(chunk.Code[offset])
	name := op.String()

	switch op {
	case OP_NIL, OP_TRUE, OP_FALSE, OP_POP,
		OP_EQ, OP_NE, OP_GT, OP_GE, OP_LT, OP_LE,
		OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_NOT, OP_NEG,
		OP_PRINT, OP_CLOSE_UPVALUE, OP_RETURN, OP_INHERIT:
		return simpleInstruction(sb, name, offset)

	case OP_CONST, OP_GET_GLOBAL, OP_DEFINE_GLOBAL, OP_SET_GLOBAL,
		OP_GET_PROPERTY, OP_SET_PROPERTY, OP_GET_SUPER,
		OP_CLASS, OP_METHOD:
		return constantInstruction(sb, name, chunk, offset)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		return byteInstruction(sb, name, chunk, offset)

	case OP_JUMP, OP_JUMP_IF_FALSE:
		return jumpInstruction(sb, name, 1, chunk, offset)
	case OP_LOOP:
		return jumpInstruction(sb, name, -1, chunk, offset)

	case OP_INVOKE, OP_SUPER_INVOKE:
		return invokeInstruction(sb, name, chunk, offset)

	case OP_CLOSURE:
		return closureInstruction(sb, name, chunk, offset, nested)

	default:
		sb.WriteString(fmt.Sprintf("Unknown opcode %d\n", op))
		return offset + 1
	}
}

func simpleInstruction(sb *strings.Builder, name string, offset int) int {
	sb.WriteString(fmt.Sprintf("%s\n", name))
	return offset + 1
}

func constantInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	idx := int(chunk.ReadShort(offset + 1))

	if idx < len(chunk.Constants) {
		sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, idx, chunk.Constants[idx].String()))
	} else {
		sb.WriteString(fmt.Sprintf("%-16s %4d (invalid)\n", name, idx))
	}

	return offset + 3
}

func byteInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, slot))
	return offset + 2
}

func jumpInstruction(sb *strings.Builder, name string, sign int, chunk *Chunk, offset int) int {
	jump := int(chunk.ReadShort(offset + 1))
	target := offset + 3 + sign*jump
	sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", name, offset, target))
	return offset + 3
}

func invokeInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	idx := int(chunk.ReadShort(offset + 1))
	argCount := chunk.Code[offset+3]
	method := "(invalid)"
	if idx < len(chunk.Constants) {
		method = chunk.Constants[idx].String()
	}
	sb.WriteString(fmt.Sprintf("%-16s (%d args) %4d '%s'\n", name, argCount, idx, method))
	return offset + 4
}

func closureInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int, nested bool) int {
	idx := int(chunk.ReadShort(offset + 1))
	offset += 3

	if idx >= len(chunk.Constants) || !chunk.Constants[idx].IsFunction() {
		sb.WriteString(fmt.Sprintf("%-16s %4d (not a function)\n", name, idx))
		return offset
	}
	fn := chunk.Constants[idx].AsFunction()
	sb.WriteString(fmt.Sprintf("%-16s %4d %s\n", name, idx, fn.Inspect()))

	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		index := chunk.Code[offset+1]

		kind := "upvalue"
		if isLocal == 1 {
			kind = "local"
		}
		sb.WriteString(fmt.Sprintf("%04d    |                     %s %d\n", offset, kind, index))
		offset += 2
	}

	if nested {
		fnName := fn.name()
		if fnName == "" {
			fnName = config.ScriptName
		}
		body := strings.TrimRight(Disassemble(fn.Chunk, fnName), "\n")
		sb.WriteString("    | " + strings.ReplaceAll(body, "\n", "\n    | ") + "\n")
	}

	return offset
}
