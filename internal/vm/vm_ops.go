package vm

// numericBinary executes the arithmetic and comparison opcodes that accept
// only numbers.
func (vm *VM) numericBinary(op Opcode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()

	switch op {
	case OP_GT:
		vm.push(BoolVal(a > b))
	case OP_GE:
		vm.push(BoolVal(a >= b))
	case OP_LT:
		vm.push(BoolVal(a < b))
	case OP_LE:
		vm.push(BoolVal(a <= b))
	case OP_SUB:
		vm.push(NumberVal(a - b))
	case OP_MUL:
		vm.push(NumberVal(a * b))
	case OP_DIV:
		vm.push(NumberVal(a / b))
	}
	return nil
}

// add handles + for two numbers or two strings.
func (vm *VM) add() error {
	a, b := vm.peek(1), vm.peek(0)

	switch {
	case a.IsString() && b.IsString():
		vm.concatenate()
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(NumberVal(a.AsNumber() + b.AsNumber()))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

// concatenate joins the two strings on top of the stack. Both stay on the
// stack until the result exists, since interning it may collect.
func (vm *VM) concatenate() {
	b := vm.peek(0).AsString()
	a := vm.peek(1).AsString()
	result := vm.copyString(a.Chars + b.Chars)
	vm.pop()
	vm.pop()
	vm.push(ObjVal(result))
}
