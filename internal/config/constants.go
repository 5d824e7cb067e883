package config

const Version = "0.4.0"

const SourceFileExt = ".lox"

// Fixed encoding widths of the bytecode format.
const (
	MaxLocals    = 256     // one-byte local slot operand
	MaxUpvalues  = 256     // one-byte upvalue index operand
	MaxArgs      = 255     // one-byte argument count operand
	MaxConstants = 1 << 16 // two-byte constant index operand
	MaxJump      = 0xffff  // two-byte jump offset operand
)

// Reserved names
const (
	InitMethodName = "init"
	ThisName       = "this"
	SuperName      = "super"
	ScriptName     = "script"
)

// Built-in function names
const (
	ClockFuncName = "clock"
)

// Config files picked up from the working directory when -config is absent.
var DefaultConfigFiles = []string{"lox.yaml", "lox.yml", "lox.toml"}
