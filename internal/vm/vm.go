package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/funvibe/lox/internal/config"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var vmLog = commonlog.GetLogger("lox.vm")

// Sentinel errors
var (
	errStackOverflow     = errors.New("stack overflow")
	errTruncatedBytecode = errors.New("truncated bytecode")
	errUnknownOpcode     = errors.New("unknown opcode")

	// ErrBusy is returned by Call while the VM is already running code.
	ErrBusy = errors.New("vm is already running")
)

// InterpretResult classifies the outcome of Interpret
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	}
	return "unknown"
}

// TraceEntry is one active call frame at the time of a runtime error.
// Function is empty for the top-level script.
type TraceEntry struct {
	Function string
	Line     int
}

func (e TraceEntry) String() string {
	if e.Function == "" {
		return fmt.Sprintf("[line %d] in %s", e.Line, config.ScriptName)
	}
	return fmt.Sprintf("[line %d] in %s()", e.Line, e.Function)
}

// RuntimeError is a Lox runtime error with the call stack, innermost first.
type RuntimeError struct {
	Message string
	Trace   []TraceEntry
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, t := range e.Trace {
		sb.WriteString("\n")
		sb.WriteString(t.String())
	}
	return sb.String()
}

// CallFrame represents a single function invocation
type CallFrame struct {
	closure *ObjClosure
	chunk   *Chunk
	ip      int
	base    int // stack slot of the callee; locals start here
}

// VM is one interpreter session. Globals, interned strings and the heap
// persist across Interpret calls. A VM is not safe for concurrent use.
type VM struct {
	id       uuid.UUID
	settings config.Settings

	stack []Value
	sp    int

	frames     []CallFrame
	frameCount int
	frame      *CallFrame

	globals      Table
	strings      Table // intern set; keys are held weakly
	initString   *ObjString
	openUpvalues *ObjUpvalue // sorted by stack slot, highest first

	// Heap
	objects        Obj
	objectCount    int
	bytesAllocated int
	nextGC         int
	grayStack      []Obj
	collections    int
	freed          int

	compiler  *Compiler // innermost function being compiled, a GC root
	hostRoots []Value   // values the host keeps alive between calls

	out       io.Writer
	errOut    io.Writer
	startTime time.Time
}

// New creates a VM with the given settings and the standard natives defined.
func New(settings config.Settings) *VM {
	vm := &VM{
		id:        uuid.New(),
		settings:  settings,
		stack:     make([]Value, settings.StackSize()),
		frames:    make([]CallFrame, settings.MaxFrames),
		nextGC:    settings.GC.InitialThreshold,
		out:       os.Stdout,
		errOut:    os.Stderr,
		startTime: time.Now(),
	}
	vm.initString = vm.copyString(config.InitMethodName)
	vm.defineBuiltins()

	vmLog.Infof("[%s] session started (frames=%d, stack=%d, gc threshold=%d)",
		vm.shortID(), settings.MaxFrames, len(vm.stack), vm.nextGC)
	return vm
}

// SetOutput redirects print.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetErrorOutput redirects compile and runtime diagnostics.
func (vm *VM) SetErrorOutput(w io.Writer) {
	vm.errOut = w
}

// ID identifies the session in log lines.
func (vm *VM) ID() uuid.UUID {
	return vm.id
}

func (vm *VM) shortID() string {
	return vm.id.String()[:8]
}

// Interpret compiles and runs source. Diagnostics are written to the error
// output and also returned.
func (vm *VM) Interpret(source string) (InterpretResult, error) {
	return vm.interpret(source, false)
}

// InterpretREPL is Interpret for one interactive line: top-level expression
// statements print their value.
func (vm *VM) InterpretREPL(line string) (InterpretResult, error) {
	return vm.interpret(line, true)
}

func (vm *VM) interpret(source string, replMode bool) (InterpretResult, error) {
	fn, err := vm.compile(source, replMode)
	if err != nil {
		fmt.Fprintln(vm.errOut, err)
		return InterpretCompileError, err
	}

	if err := vm.execute(fn); err != nil {
		fmt.Fprintln(vm.errOut, err)
		return InterpretRuntimeError, err
	}
	return InterpretOK, nil
}

// execute runs a compiled script.
func (vm *VM) execute(fn *ObjFunction) (err error) {
	defer vm.recoverRun(&err)

	vm.push(ObjVal(fn))
	closure := vm.newClosure(fn)
	vm.pop()
	vm.push(ObjVal(closure))
	if err := vm.call(closure, 0); err != nil {
		vm.resetStack()
		return err
	}

	if err := vm.run(); err != nil {
		vm.resetStack()
		return err
	}
	// The script's implicit nil.
	vm.pop()
	return nil
}

// recoverRun turns panics raised by corrupt bytecode or stack exhaustion
// into runtime errors. It must be deferred directly.
func (vm *VM) recoverRun(err *error) {
	r := recover()
	if r == nil {
		return
	}
	rerr, ok := r.(error)
	switch {
	case ok && errors.Is(rerr, errStackOverflow):
		*err = vm.runtimeError("Stack overflow.")
	case ok && (errors.Is(rerr, errTruncatedBytecode) || errors.Is(rerr, errUnknownOpcode)):
		*err = vm.runtimeError("Invalid bytecode: %v.", rerr)
	default:
		panic(r)
	}
	vm.resetStack()
}

// resetStack abandons every frame. Upvalues still open are closed first so
// closures that escaped the failed run keep their last values.
func (vm *VM) resetStack() {
	vm.closeUpvalues(0)
	vm.sp = 0
	vm.frameCount = 0
	vm.frame = nil
	vm.openUpvalues = nil
}

// runtimeError builds a RuntimeError carrying the current call stack.
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	rerr := &RuntimeError{Message: fmt.Sprintf(format, args...)}
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		// ip already points past the failing instruction.
		instruction := frame.ip - 1
		if instruction < 0 {
			instruction = 0
		}
		line := 0
		if instruction < len(frame.chunk.Lines) {
			line = frame.chunk.Lines[instruction]
		}
		rerr.Trace = append(rerr.Trace, TraceEntry{
			Function: frame.closure.Function.name(),
			Line:     line,
		})
	}
	vmLog.Debugf("[%s] runtime error: %s", vm.shortID(), rerr.Message)
	return rerr
}

// Stack operations

func (vm *VM) push(val Value) {
	if vm.sp >= len(vm.stack) {
		panic(errStackOverflow)
	}
	vm.stack[vm.sp] = val
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	val := vm.stack[vm.sp]
	vm.stack[vm.sp] = Value{} // release reference
	return val
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

// Bytecode reading

func (vm *VM) readByte() byte {
	frame := vm.frame
	if frame.ip >= len(frame.chunk.Code) {
		panic(errTruncatedBytecode)
	}
	b := frame.chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort() uint16 {
	hi := uint16(vm.readByte())
	lo := uint16(vm.readByte())
	return hi<<8 | lo
}

func (vm *VM) readConstant() Value {
	idx := int(vm.readShort())
	consts := vm.frame.chunk.Constants
	if idx >= len(consts) {
		panic(errTruncatedBytecode)
	}
	return consts[idx]
}

func (vm *VM) readString() *ObjString {
	return vm.readConstant().AsString()
}
