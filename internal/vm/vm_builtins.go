package vm

import (
	"time"

	"github.com/funvibe/lox/internal/config"
)

// defineBuiltins registers the standard natives.
func (vm *VM) defineBuiltins() {
	vm.DefineNative(config.ClockFuncName, 0, func(args []Value) (Value, error) {
		return NumberVal(time.Since(vm.startTime).Seconds()), nil
	})
}

// DefineNative binds a Go function to a global name. Arity -1 accepts any
// number of arguments.
func (vm *VM) DefineNative(name string, arity int, fn NativeFn) {
	// Both objects stay on the stack until the global table owns them.
	vm.push(ObjVal(vm.copyString(name)))
	vm.push(ObjVal(vm.newNative(name, arity, fn)))
	vm.globals.Set(vm.peek(1).AsString(), vm.peek(0))
	vm.pop()
	vm.pop()
}
