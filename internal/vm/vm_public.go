package vm

import (
	"sort"

	"github.com/funvibe/lox/internal/config"
)

// Host access to globals. These must not be called while the VM is running.

// GetGlobal returns the value bound to name.
func (vm *VM) GetGlobal(name string) (Value, bool) {
	key := vm.strings.FindString(name, hashString(name))
	if key == nil {
		// Never interned, so it cannot be a global.
		return NilVal(), false
	}
	return vm.globals.Get(key)
}

// SetGlobal binds name to a nil, boolean or number value, or to an object
// that is already reachable. Use SetGlobalString for new strings.
func (vm *VM) SetGlobal(name string, val Value) {
	vm.push(val)
	key := vm.copyString(name)
	vm.globals.Set(key, vm.peek(0))
	vm.pop()
}

// SetGlobalString binds name to a string value.
func (vm *VM) SetGlobalString(name, s string) {
	key := vm.copyString(name)
	vm.push(ObjVal(key))
	str := vm.copyString(s)
	vm.globals.Set(key, ObjVal(str))
	vm.pop()
}

// NewString interns s. The result is only safe until the next allocation
// unless it is stored somewhere the collector can see, such as the return
// value of a native.
func (vm *VM) NewString(s string) Value {
	return ObjVal(vm.copyString(s))
}

// GlobalNames returns the names of every global, sorted.
func (vm *VM) GlobalNames() []string {
	names := make([]string, 0, vm.globals.Len())
	vm.globals.Range(func(key *ObjString, _ Value) bool {
		names = append(names, key.Chars)
		return true
	})
	sort.Strings(names)
	return names
}

// Settings returns the session's settings.
func (vm *VM) Settings() config.Settings {
	return vm.settings
}

// Call invokes callee with args from the host and returns its result. The
// callee may be a closure, a bound method, a class or a native. A runtime
// error unwinds the call and leaves the VM usable.
func (vm *VM) Call(callee Value, args ...Value) (result Value, err error) {
	if vm.frameCount != 0 {
		return NilVal(), ErrBusy
	}
	defer vm.recoverRun(&err)

	vm.push(callee)
	for _, arg := range args {
		vm.push(arg)
	}
	if err := vm.callValue(callee, len(args)); err != nil {
		vm.resetStack()
		return NilVal(), err
	}
	// Natives and classes without an initializer finish without a frame.
	if vm.frameCount > 0 {
		if err := vm.run(); err != nil {
			vm.resetStack()
			return NilVal(), err
		}
	}
	return vm.pop(), nil
}

// Retain keeps v alive across allocations until ReleaseAll. Hosts use it to
// hold objects they have created but not yet handed to the VM.
func (vm *VM) Retain(v Value) {
	vm.hostRoots = append(vm.hostRoots, v)
}

// ReleaseAll drops every value kept by Retain.
func (vm *VM) ReleaseAll() {
	clear(vm.hostRoots)
	vm.hostRoots = vm.hostRoots[:0]
}
