package lox

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/funvibe/lox/internal/vm"
)

// ErrUnsupported reports a value with no counterpart on the other side.
var ErrUnsupported = errors.New("unsupported value")

var valueType = reflect.TypeOf(vm.Value{})

// Marshaller converts between Go values and Lox values. Lox has one number
// type, so every Go integer and float becomes a float64 on the way in.
type Marshaller struct {
	machine *vm.VM
}

func NewMarshaller(machine *vm.VM) *Marshaller {
	return &Marshaller{machine: machine}
}

// ToValue converts a Go value to a Lox value. A string result is a fresh
// heap object: it must be handed to the VM, or retained, before the next
// allocation.
func (m *Marshaller) ToValue(val interface{}) (vm.Value, error) {
	if val == nil {
		return vm.NilVal(), nil
	}
	if v, ok := val.(vm.Value); ok {
		return v, nil
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Bool:
		return vm.BoolVal(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return vm.NumberVal(float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return vm.NumberVal(float64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return vm.NumberVal(v.Float()), nil
	case reflect.String:
		return m.machine.NewString(v.String()), nil
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return vm.NilVal(), nil
		}
		return m.ToValue(v.Elem().Interface())
	default:
		return vm.NilVal(), fmt.Errorf("%w: Go %s", ErrUnsupported, v.Type())
	}
}

// FromValue converts a Lox value to Go. targetType is optional; without it
// numbers come back as float64.
func (m *Marshaller) FromValue(val vm.Value, targetType reflect.Type) (interface{}, error) {
	if targetType == valueType {
		return val, nil
	}

	var natural interface{}
	switch {
	case val.IsNil():
		if targetType == nil {
			return nil, nil
		}
		return reflect.Zero(targetType).Interface(), nil
	case val.IsBool():
		natural = val.AsBool()
	case val.IsNumber():
		n := val.AsNumber()
		if targetType != nil && isIntegerKind(targetType.Kind()) && n != math.Trunc(n) {
			return nil, fmt.Errorf("%s is not an integer", val)
		}
		natural = n
	case val.IsString():
		natural = val.AsString().Chars
	default:
		return nil, fmt.Errorf("%w: Lox %s", ErrUnsupported, val.TypeName())
	}

	if targetType == nil || targetType.Kind() == reflect.Interface {
		return natural, nil
	}
	rv := reflect.ValueOf(natural)
	if !rv.Type().ConvertibleTo(targetType) || rv.Kind() == reflect.String && targetType.Kind() != reflect.String {
		return nil, fmt.Errorf("cannot use Lox %s as Go %s", val.TypeName(), targetType)
	}
	return rv.Convert(targetType).Interface(), nil
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
