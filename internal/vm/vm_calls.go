package vm

// callValue dispatches a call on whatever sits argCount slots below the top.
func (vm *VM) callValue(callee Value, argCount int) error {
	if callee.IsObj() {
		switch obj := callee.Obj.(type) {
		case *ObjBoundMethod:
			// The receiver takes the callee's slot and becomes `this`.
			vm.stack[vm.sp-argCount-1] = obj.Receiver
			return vm.call(obj.Method, argCount)

		case *ObjClass:
			vm.stack[vm.sp-argCount-1] = ObjVal(vm.newInstance(obj))
			if initializer, ok := obj.findMethod(vm.initString); ok {
				return vm.call(initializer, argCount)
			}
			if argCount != 0 {
				return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
			}
			return nil

		case *ObjClosure:
			return vm.call(obj, argCount)

		case *ObjNative:
			return vm.callNative(obj, argCount)
		}
	}
	return vm.runtimeError("Can only call functions and classes.")
}

// call pushes a frame for closure. Arguments are already on the stack.
func (vm *VM) call(closure *ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == len(vm.frames) {
		return vm.runtimeError("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.chunk = closure.Function.Chunk
	frame.ip = 0
	frame.base = vm.sp - argCount - 1
	vm.frame = frame
	return nil
}

func (vm *VM) callNative(native *ObjNative, argCount int) error {
	if native.Arity >= 0 && argCount != native.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", native.Arity, argCount)
	}

	args := vm.stack[vm.sp-argCount : vm.sp]
	result, err := native.Fn(args)
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}

	for i := 0; i < argCount+1; i++ {
		vm.pop()
	}
	vm.push(result)
	return nil
}

// invoke is property access fused with a call. A field holding a callable
// shadows a method of the same name.
func (vm *VM) invoke(name *ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsInstance() {
		return vm.runtimeError("Only instances have methods.")
	}
	instance := receiver.AsInstance()

	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.sp-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *ObjClass, name *ObjString, argCount int) error {
	method, ok := class.findMethod(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method, argCount)
}

// bindMethod replaces the receiver on top of the stack with a bound method.
func (vm *VM) bindMethod(class *ObjClass, name *ObjString) error {
	method, ok := class.findMethod(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}

	bound := vm.newBoundMethod(vm.peek(0), method)
	vm.pop()
	vm.push(ObjVal(bound))
	return nil
}

// Upvalues

// captureUpvalue returns the open upvalue for a stack slot, creating it if
// needed. Closures capturing the same variable share one upvalue.
func (vm *VM) captureUpvalue(location int) *ObjUpvalue {
	var prev *ObjUpvalue
	uv := vm.openUpvalues
	for uv != nil && uv.Location > location {
		prev = uv
		uv = uv.Next
	}
	if uv != nil && uv.Location == location {
		return uv
	}

	created := vm.newUpvalue(location)
	created.Next = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above last, moving the
// variable off the stack into the upvalue.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Location >= last {
		uv := vm.openUpvalues
		uv.Closed = vm.stack[uv.Location]
		uv.Location = -1
		vm.openUpvalues = uv.Next
		uv.Next = nil
	}
}

func (vm *VM) upvalueGet(uv *ObjUpvalue) Value {
	if uv.isOpen() {
		return vm.stack[uv.Location]
	}
	return uv.Closed
}

func (vm *VM) upvalueSet(uv *ObjUpvalue, val Value) {
	if uv.isOpen() {
		vm.stack[uv.Location] = val
		return
	}
	uv.Closed = val
}
