package vm

import (
	"math"
	"strconv"
)

// ValueType identifies the variant held by a Value
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj // Heap object (string, function, class, ...)
)

func (t ValueType) String() string {
	switch t {
	case ValNil:
		return "nil"
	case ValBool:
		return "bool"
	case ValNumber:
		return "number"
	case ValObj:
		return "object"
	}
	return "unknown"
}

// Value is the VM's tagged union. Numbers and booleans live inline in Data;
// heap objects are referenced through Obj.
type Value struct {
	Type ValueType
	Data uint64 // bool as 0/1, number as IEEE-754 bits
	Obj  Obj
}

// Constructors

func NilVal() Value { return Value{Type: ValNil} }

func BoolVal(b bool) Value {
	if b {
		return Value{Type: ValBool, Data: 1}
	}
	return Value{Type: ValBool, Data: 0}
}

func NumberVal(n float64) Value {
	return Value{Type: ValNumber, Data: math.Float64bits(n)}
}

func ObjVal(o Obj) Value { return Value{Type: ValObj, Obj: o} }

// Predicates

func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }

func (v Value) IsString() bool      { return v.isObjType(OBJ_STRING) }
func (v Value) IsFunction() bool    { return v.isObjType(OBJ_FUNCTION) }
func (v Value) IsNative() bool      { return v.isObjType(OBJ_NATIVE) }
func (v Value) IsClosure() bool     { return v.isObjType(OBJ_CLOSURE) }
func (v Value) IsClass() bool       { return v.isObjType(OBJ_CLASS) }
func (v Value) IsInstance() bool    { return v.isObjType(OBJ_INSTANCE) }
func (v Value) IsBoundMethod() bool { return v.isObjType(OBJ_BOUND_METHOD) }

func (v Value) isObjType(t ObjectType) bool {
	return v.Type == ValObj && v.Obj.Type() == t
}

// Accessors. Callers check the variant first.

func (v Value) AsBool() bool      { return v.Data != 0 }
func (v Value) AsNumber() float64 { return math.Float64frombits(v.Data) }

func (v Value) AsString() *ObjString           { return v.Obj.(*ObjString) }
func (v Value) AsFunction() *ObjFunction       { return v.Obj.(*ObjFunction) }
func (v Value) AsNative() *ObjNative           { return v.Obj.(*ObjNative) }
func (v Value) AsClosure() *ObjClosure         { return v.Obj.(*ObjClosure) }
func (v Value) AsClass() *ObjClass             { return v.Obj.(*ObjClass) }
func (v Value) AsInstance() *ObjInstance       { return v.Obj.(*ObjInstance) }
func (v Value) AsBoundMethod() *ObjBoundMethod { return v.Obj.(*ObjBoundMethod) }

// IsFalsey reports Lox falsiness: only nil and false are false.
func (v Value) IsFalsey() bool {
	return v.Type == ValNil || (v.Type == ValBool && v.Data == 0)
}

// Equals is Lox ==. Numbers compare by IEEE value, objects by identity.
// Interned strings make identity equal to content equality for strings.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return v.Data == other.Data
	case ValNumber:
		return v.AsNumber() == other.AsNumber()
	case ValObj:
		return v.Obj == other.Obj
	}
	return false
}

// String renders the value the way print does.
func (v Value) String() string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.AsNumber())
	case ValObj:
		return v.Obj.Inspect()
	}
	return "<unknown>"
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	abs := math.Abs(n)
	if abs == 0 || (abs >= 1e-4 && abs < 1e21) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// TypeName is the user-facing name of the value's type.
func (v Value) TypeName() string {
	if v.Type == ValObj {
		return string(v.Obj.Type())
	}
	return v.Type.String()
}
