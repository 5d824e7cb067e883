package vm

import (
	"fmt"
	"strings"
)

// run executes instructions until the outermost frame returns.
func (vm *VM) run() error {
	for {
		if vm.settings.Debug.TraceExecution {
			vm.traceInstruction()
		}

		done, err := vm.step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// step executes a single instruction. done reports that the script returned.
func (vm *VM) step() (done bool, err error) {
	op := Opcode(vm.readByte())

	switch op {
	case OP_CONST:
		vm.push(vm.readConstant())

	case OP_NIL:
		vm.push(NilVal())

	case OP_TRUE:
		vm.push(BoolVal(true))

	case OP_FALSE:
		vm.push(BoolVal(false))

	case OP_POP:
		vm.pop()

	case OP_GET_LOCAL:
		slot := int(vm.readByte())
		vm.push(vm.stack[vm.frame.base+slot])

	case OP_SET_LOCAL:
		slot := int(vm.readByte())
		// Assignment is an expression; the value stays on the stack.
		vm.stack[vm.frame.base+slot] = vm.peek(0)

	case OP_GET_GLOBAL:
		name := vm.readString()
		val, ok := vm.globals.Get(name)
		if !ok {
			return false, vm.runtimeError("Undefined variable '%s'.", name.Chars)
		}
		vm.push(val)

	case OP_DEFINE_GLOBAL:
		name := vm.readString()
		vm.globals.Set(name, vm.peek(0))
		vm.pop()

	case OP_SET_GLOBAL:
		name := vm.readString()
		if vm.globals.Set(name, vm.peek(0)) {
			// Assigning never creates a global.
			vm.globals.Delete(name)
			return false, vm.runtimeError("Undefined variable '%s'.", name.Chars)
		}

	case OP_GET_UPVALUE:
		slot := int(vm.readByte())
		vm.push(vm.upvalueGet(vm.frame.closure.Upvalues[slot]))

	case OP_SET_UPVALUE:
		slot := int(vm.readByte())
		vm.upvalueSet(vm.frame.closure.Upvalues[slot], vm.peek(0))

	case OP_GET_PROPERTY:
		name := vm.readString()
		if !vm.peek(0).IsInstance() {
			return false, vm.runtimeError("Only instances have properties.")
		}
		instance := vm.peek(0).AsInstance()
		if val, ok := instance.Fields.Get(name); ok {
			vm.pop()
			vm.push(val)
			break
		}
		if err := vm.bindMethod(instance.Class, name); err != nil {
			return false, err
		}

	case OP_SET_PROPERTY:
		name := vm.readString()
		if !vm.peek(1).IsInstance() {
			return false, vm.runtimeError("Only instances have fields.")
		}
		instance := vm.peek(1).AsInstance()
		instance.Fields.Set(name, vm.peek(0))
		val := vm.pop()
		vm.pop()
		vm.push(val)

	case OP_GET_SUPER:
		name := vm.readString()
		superclass := vm.pop().AsClass()
		if err := vm.bindMethod(superclass, name); err != nil {
			return false, err
		}

	case OP_EQ:
		b := vm.pop()
		a := vm.pop()
		vm.push(BoolVal(a.Equals(b)))

	case OP_NE:
		b := vm.pop()
		a := vm.pop()
		vm.push(BoolVal(!a.Equals(b)))

	case OP_GT, OP_GE, OP_LT, OP_LE, OP_SUB, OP_MUL, OP_DIV:
		if err := vm.numericBinary(op); err != nil {
			return false, err
		}

	case OP_ADD:
		if err := vm.add(); err != nil {
			return false, err
		}

	case OP_NOT:
		vm.push(BoolVal(vm.pop().IsFalsey()))

	case OP_NEG:
		if !vm.peek(0).IsNumber() {
			return false, vm.runtimeError("Operand must be a number.")
		}
		vm.push(NumberVal(-vm.pop().AsNumber()))

	case OP_PRINT:
		fmt.Fprintln(vm.out, vm.pop().String())

	case OP_JUMP:
		offset := int(vm.readShort())
		vm.frame.ip += offset

	case OP_JUMP_IF_FALSE:
		offset := int(vm.readShort())
		if vm.peek(0).IsFalsey() {
			vm.frame.ip += offset
		}

	case OP_LOOP:
		offset := int(vm.readShort())
		vm.frame.ip -= offset

	case OP_CALL:
		argCount := int(vm.readByte())
		if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
			return false, err
		}

	case OP_INVOKE:
		method := vm.readString()
		argCount := int(vm.readByte())
		if err := vm.invoke(method, argCount); err != nil {
			return false, err
		}

	case OP_SUPER_INVOKE:
		method := vm.readString()
		argCount := int(vm.readByte())
		superclass := vm.pop().AsClass()
		if err := vm.invokeFromClass(superclass, method, argCount); err != nil {
			return false, err
		}

	case OP_CLOSURE:
		fn := vm.readConstant().AsFunction()
		closure := vm.newClosure(fn)
		// Pushed before capturing so a collection triggered by
		// captureUpvalue sees it.
		vm.push(ObjVal(closure))
		for i := range closure.Upvalues {
			isLocal := vm.readByte()
			index := int(vm.readByte())
			if isLocal == 1 {
				closure.Upvalues[i] = vm.captureUpvalue(vm.frame.base + index)
			} else {
				closure.Upvalues[i] = vm.frame.closure.Upvalues[index]
			}
		}

	case OP_CLOSE_UPVALUE:
		vm.closeUpvalues(vm.sp - 1)
		vm.pop()

	case OP_RETURN:
		result := vm.pop()
		vm.closeUpvalues(vm.frame.base)
		for vm.sp > vm.frame.base {
			vm.pop()
		}
		vm.push(result)
		vm.frameCount--
		if vm.frameCount == 0 {
			// The outermost result stays on the stack for the caller.
			vm.frame = nil
			return true, nil
		}
		vm.frame = &vm.frames[vm.frameCount-1]

	case OP_CLASS:
		vm.push(ObjVal(vm.newClass(vm.readString())))

	case OP_INHERIT:
		if !vm.peek(1).IsClass() {
			return false, vm.runtimeError("Superclass must be a class.")
		}
		subclass := vm.peek(0).AsClass()
		subclass.Superclass = vm.peek(1).AsClass()
		vm.pop()

	case OP_METHOD:
		name := vm.readString()
		method := vm.peek(0)
		class := vm.peek(1).AsClass()
		class.Methods.Set(name, method)
		vm.pop()

	default:
		panic(fmt.Errorf("%w %d", errUnknownOpcode, op))
	}

	return false, nil
}

// traceInstruction logs the stack and the instruction about to run.
func (vm *VM) traceInstruction() {
	var sb strings.Builder
	sb.WriteString("          ")
	for i := 0; i < vm.sp; i++ {
		sb.WriteString("[ ")
		sb.WriteString(vm.stack[i].String())
		sb.WriteString(" ]")
	}
	instr := traceDisassemble(vm.frame.chunk, vm.frame.ip)
	vmLog.Debugf("[%s] %s\n%s", vm.shortID(), sb.String(), strings.TrimRight(instr, "\n"))
}

// traceDisassemble tolerates truncated operands; step reports them properly.
func traceDisassemble(chunk *Chunk, offset int) (s string) {
	if offset >= len(chunk.Code) {
		return fmt.Sprintf("%04d <end of code>", offset)
	}
	defer func() {
		if recover() != nil {
			s = fmt.Sprintf("%04d <truncated>", offset)
		}
	}()
	s, _ = DisassembleInstruction(chunk, offset)
	return s
}
