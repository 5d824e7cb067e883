package vm

import (
	"fmt"
	"hash/fnv"
	"unsafe"
)

// ObjectType names a heap object variant
type ObjectType string

const (
	OBJ_STRING       ObjectType = "string"
	OBJ_FUNCTION     ObjectType = "function"
	OBJ_NATIVE       ObjectType = "native"
	OBJ_CLOSURE      ObjectType = "closure"
	OBJ_UPVALUE      ObjectType = "upvalue"
	OBJ_CLASS        ObjectType = "class"
	OBJ_INSTANCE     ObjectType = "instance"
	OBJ_BOUND_METHOD ObjectType = "bound method"
)

// Obj is implemented by every heap object. The header links the object
// into the VM's allocation list and carries the mark bit.
type Obj interface {
	Type() ObjectType
	Inspect() string
	header() *objHeader
}

type objHeader struct {
	marked bool
	size   int // bytes charged to the heap at allocation
	next   Obj
}

func (h *objHeader) header() *objHeader { return h }

// ObjString is an immutable interned string. Two ObjStrings with the same
// content are always the same object.
type ObjString struct {
	objHeader
	Chars string
	Hash  uint32
}

func (s *ObjString) Type() ObjectType { return OBJ_STRING }
func (s *ObjString) Inspect() string  { return s.Chars }

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// ObjFunction is a compiled function: bytecode plus arity and upvalue count
type ObjFunction struct {
	objHeader
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *ObjString // nil for the top-level script
}

func (f *ObjFunction) Type() ObjectType { return OBJ_FUNCTION }

func (f *ObjFunction) Inspect() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

func (f *ObjFunction) name() string {
	if f.Name == nil {
		return ""
	}
	return f.Name.Chars
}

// NativeFn is a host function callable from Lox
type NativeFn func(args []Value) (Value, error)

// ObjNative wraps a NativeFn. Arity -1 accepts any argument count.
type ObjNative struct {
	objHeader
	Name  string
	Arity int
	Fn    NativeFn
}

func (n *ObjNative) Type() ObjectType { return OBJ_NATIVE }
func (n *ObjNative) Inspect() string  { return "<native fn>" }

// ObjClosure pairs a function with the variables it captured
type ObjClosure struct {
	objHeader
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Type() ObjectType { return OBJ_CLOSURE }
func (c *ObjClosure) Inspect() string  { return c.Function.Inspect() }

// ObjUpvalue is a captured variable. While open, Location indexes the live
// stack slot; once closed, Location is -1 and the value lives in Closed.
type ObjUpvalue struct {
	objHeader
	Location int
	Closed   Value
	Next     *ObjUpvalue // next open upvalue, lower stack slot
}

func (u *ObjUpvalue) Type() ObjectType { return OBJ_UPVALUE }
func (u *ObjUpvalue) Inspect() string  { return "upvalue" }

func (u *ObjUpvalue) isOpen() bool { return u.Location >= 0 }

// ObjClass holds a class's own methods. Inherited methods are found by
// walking Superclass.
type ObjClass struct {
	objHeader
	Name       *ObjString
	Superclass *ObjClass
	Methods    Table
}

func (c *ObjClass) Type() ObjectType { return OBJ_CLASS }
func (c *ObjClass) Inspect() string  { return c.Name.Chars }

// findMethod looks the name up on the class, then its ancestors.
func (c *ObjClass) findMethod(name *ObjString) (*ObjClosure, bool) {
	for class := c; class != nil; class = class.Superclass {
		if method, ok := class.Methods.Get(name); ok {
			return method.AsClosure(), true
		}
	}
	return nil, false
}

type ObjInstance struct {
	objHeader
	Class  *ObjClass
	Fields Table
}

func (i *ObjInstance) Type() ObjectType { return OBJ_INSTANCE }
func (i *ObjInstance) Inspect() string  { return i.Class.Name.Chars + " instance" }

// ObjBoundMethod remembers the receiver a method was accessed through
type ObjBoundMethod struct {
	objHeader
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) Type() ObjectType { return OBJ_BOUND_METHOD }
func (b *ObjBoundMethod) Inspect() string  { return b.Method.Function.Inspect() }

// Approximate heap charges per object kind, used to pace the collector.
var (
	sizeString      = int(unsafe.Sizeof(ObjString{}))
	sizeFunction    = int(unsafe.Sizeof(ObjFunction{})) + int(unsafe.Sizeof(Chunk{}))
	sizeNative      = int(unsafe.Sizeof(ObjNative{}))
	sizeClosure     = int(unsafe.Sizeof(ObjClosure{}))
	sizeUpvalue     = int(unsafe.Sizeof(ObjUpvalue{}))
	sizeClass       = int(unsafe.Sizeof(ObjClass{}))
	sizeInstance    = int(unsafe.Sizeof(ObjInstance{}))
	sizeBoundMethod = int(unsafe.Sizeof(ObjBoundMethod{}))
	sizePointer     = int(unsafe.Sizeof(uintptr(0)))
)

// Allocation. Every constructor goes through vm.allocate, which may collect
// before linking the new object. Callers must keep any object they still
// need reachable (usually by pushing it) across these calls.

// copyString returns the interned string for chars, allocating it on first use.
func (vm *VM) copyString(chars string) *ObjString {
	hash := hashString(chars)
	if interned := vm.strings.FindString(chars, hash); interned != nil {
		return interned
	}
	s := &ObjString{Chars: chars, Hash: hash}
	vm.allocate(s, sizeString+len(chars))
	vm.strings.Set(s, NilVal())
	return s
}

func (vm *VM) newFunction() *ObjFunction {
	f := &ObjFunction{Chunk: NewChunk()}
	vm.allocate(f, sizeFunction)
	return f
}

func (vm *VM) newNative(name string, arity int, fn NativeFn) *ObjNative {
	n := &ObjNative{Name: name, Arity: arity, Fn: fn}
	vm.allocate(n, sizeNative)
	return n
}

func (vm *VM) newClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	vm.allocate(c, sizeClosure+fn.UpvalueCount*sizePointer)
	return c
}

func (vm *VM) newUpvalue(location int) *ObjUpvalue {
	u := &ObjUpvalue{Location: location}
	vm.allocate(u, sizeUpvalue)
	return u
}

func (vm *VM) newClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name}
	vm.allocate(c, sizeClass)
	return c
}

func (vm *VM) newInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{Class: class}
	vm.allocate(i, sizeInstance)
	return i
}

func (vm *VM) newBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	vm.allocate(b, sizeBoundMethod)
	return b
}
