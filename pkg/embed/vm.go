package lox

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/funvibe/lox/internal/config"
	"github.com/funvibe/lox/internal/vm"
)

// VM wraps a Lox VM session with a Go-friendly API. Diagnostics are returned
// as errors instead of being printed; use SetErrorOutput to print them too.
type VM struct {
	machine    *vm.VM
	marshaller *Marshaller
}

// HostFunc is a Go function callable from Lox with already converted
// arguments. Numbers arrive as float64.
type HostFunc func(args []interface{}) (interface{}, error)

// New creates a VM with the default settings.
func New() *VM {
	return NewWithSettings(config.Defaults())
}

// NewWithSettings creates a VM with explicit settings.
func NewWithSettings(settings config.Settings) *VM {
	machine := vm.New(settings)
	machine.SetErrorOutput(io.Discard)
	return &VM{
		machine:    machine,
		marshaller: NewMarshaller(machine),
	}
}

// NewFromConfig creates a VM with settings read from a YAML or TOML file.
func NewFromConfig(path string) (*VM, error) {
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewWithSettings(settings), nil
}

// SetOutput redirects print.
func (v *VM) SetOutput(w io.Writer) {
	v.machine.SetOutput(w)
}

// SetErrorOutput makes the VM print diagnostics to w as well.
func (v *VM) SetErrorOutput(w io.Writer) {
	v.machine.SetErrorOutput(w)
}

// Eval compiles and runs code. Globals it defines stay visible to later calls.
func (v *VM) Eval(code string) error {
	_, err := v.machine.Interpret(code)
	return err
}

// LoadFile runs a script file.
func (v *VM) LoadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := v.Eval(string(content)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Get retrieves a global variable.
func (v *VM) Get(name string) (interface{}, error) {
	val, ok := v.machine.GetGlobal(name)
	if !ok {
		return nil, fmt.Errorf("variable '%s' not found", name)
	}
	return v.marshaller.FromValue(val, nil)
}

// Set defines or overwrites a global variable.
func (v *VM) Set(name string, val interface{}) error {
	if s, ok := val.(string); ok {
		v.machine.SetGlobalString(name, s)
		return nil
	}
	value, err := v.marshaller.ToValue(val)
	if err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	v.machine.SetGlobal(name, value)
	return nil
}

// Globals lists the names of every global, sorted.
func (v *VM) Globals() []string {
	return v.machine.GlobalNames()
}

// Bind registers fn as a native function. An arity of -1 accepts any number
// of arguments. An error returned by fn becomes a Lox runtime error.
func (v *VM) Bind(name string, arity int, fn HostFunc) {
	v.machine.DefineNative(name, arity, func(args []vm.Value) (vm.Value, error) {
		goArgs := make([]interface{}, len(args))
		for i, arg := range args {
			val, err := v.marshaller.FromValue(arg, nil)
			if err != nil {
				return vm.NilVal(), fmt.Errorf("%s: argument %d: %w", name, i+1, err)
			}
			goArgs[i] = val
		}

		result, err := fn(goArgs)
		if err != nil {
			return vm.NilVal(), err
		}
		return v.marshaller.ToValue(result)
	})
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// BindFunc registers an arbitrary Go function as a native. Parameters are
// converted from Lox by type; the function may return nothing, one value, a
// lone error, or one value followed by an error.
func (v *VM) BindFunc(name string, fn interface{}) error {
	fnValue := reflect.ValueOf(fn)
	if !fnValue.IsValid() || fnValue.Kind() != reflect.Func {
		return fmt.Errorf("bind %s: %T is not a function", name, fn)
	}
	fnType := fnValue.Type()
	if fnType.NumOut() > 2 || fnType.NumOut() == 2 && fnType.Out(1) != errorType {
		return fmt.Errorf("bind %s: results must be (T) or (T, error)", name)
	}
	errorOnly := fnType.NumOut() == 1 && fnType.Out(0) == errorType

	numIn := fnType.NumIn()
	isVariadic := fnType.IsVariadic()
	arity := numIn
	if isVariadic {
		arity = -1
	}

	v.machine.DefineNative(name, arity, func(args []vm.Value) (vm.Value, error) {
		if isVariadic && len(args) < numIn-1 {
			return vm.NilVal(), fmt.Errorf("%s: expected at least %d arguments but got %d", name, numIn-1, len(args))
		}

		goArgs := make([]reflect.Value, len(args))
		for i, arg := range args {
			var targetType reflect.Type
			if isVariadic && i >= numIn-1 {
				targetType = fnType.In(numIn - 1).Elem()
			} else {
				targetType = fnType.In(i)
			}

			val, err := v.marshaller.FromValue(arg, targetType)
			if err != nil {
				return vm.NilVal(), fmt.Errorf("%s: argument %d: %w", name, i+1, err)
			}
			if val == nil {
				goArgs[i] = reflect.Zero(targetType)
			} else {
				goArgs[i] = reflect.ValueOf(val)
			}
		}

		results := fnValue.Call(goArgs)
		switch {
		case len(results) == 0:
			return vm.NilVal(), nil
		case errorOnly:
			if errVal := results[0].Interface(); errVal != nil {
				return vm.NilVal(), errVal.(error)
			}
			return vm.NilVal(), nil
		case len(results) == 2:
			if errVal := results[1].Interface(); errVal != nil {
				return vm.NilVal(), errVal.(error)
			}
		}
		return v.marshaller.ToValue(results[0].Interface())
	})
	return nil
}

// Call invokes the global named funcName with converted arguments.
func (v *VM) Call(funcName string, args ...interface{}) (interface{}, error) {
	callee, ok := v.machine.GetGlobal(funcName)
	if !ok {
		return nil, fmt.Errorf("function '%s' not found", funcName)
	}

	defer v.machine.ReleaseAll()
	values := make([]vm.Value, len(args))
	for i, arg := range args {
		val, err := v.marshaller.ToValue(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		v.machine.Retain(val)
		values[i] = val
	}

	result, err := v.machine.Call(callee, values...)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result, nil)
}
