// Package vm implements the Lox bytecode compiler, object heap and virtual machine
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Stack manipulation
	OP_CONST Opcode = iota // Push constant from pool: [idx16]
	OP_NIL                 // Push nil
	OP_TRUE                // Push true
	OP_FALSE               // Push false
	OP_POP                 // Discard top of stack

	// Variables
	OP_GET_LOCAL     // Push local slot: [slot8]
	OP_SET_LOCAL     // Store top into local slot: [slot8]
	OP_GET_GLOBAL    // Push global by name: [name16]
	OP_DEFINE_GLOBAL // Bind global, pop value: [name16]
	OP_SET_GLOBAL    // Store top into existing global: [name16]
	OP_GET_UPVALUE   // Push captured variable: [idx8]
	OP_SET_UPVALUE   // Store top into captured variable: [idx8]

	// Properties
	OP_GET_PROPERTY // Field or bound method of instance: [name16]
	OP_SET_PROPERTY // Store field on instance: [name16]
	OP_GET_SUPER    // Bind superclass method to this: [name16]

	// Comparison
	OP_EQ // ==
	OP_NE // !=
	OP_GT // >
	OP_GE // >=
	OP_LT // <
	OP_LE // <=

	// Arithmetic
	OP_ADD // + (numbers or strings)
	OP_SUB // -
	OP_MUL // *
	OP_DIV // /
	OP_NOT // !
	OP_NEG // Unary minus

	OP_PRINT // Pop and print

	// Control flow
	OP_JUMP          // Unconditional forward jump: [off16]
	OP_JUMP_IF_FALSE // Forward jump if top is falsey, top stays: [off16]
	OP_LOOP          // Backward jump: [off16]

	// Functions
	OP_CALL          // Call callee below args: [argc8]
	OP_INVOKE        // Fused property get + call: [name16 argc8]
	OP_SUPER_INVOKE  // Fused super get + call: [name16 argc8]
	OP_CLOSURE       // Create closure: [fn16 (isLocal8 index8)*]
	OP_CLOSE_UPVALUE // Hoist top local into its upvalue and pop
	OP_RETURN        // Return from function

	// Classes
	OP_CLASS   // Push new class: [name16]
	OP_INHERIT // Link subclass (top) to superclass (below), pop subclass
	OP_METHOD  // Install closure (top) into class (below), pop closure: [name16]
)

// OpcodeNames maps opcodes to their string names (for debugging)
var OpcodeNames = map[Opcode]string{
	OP_CONST: "CONST",
	OP_NIL:   "NIL",
	OP_TRUE:  "TRUE",
	OP_FALSE: "FALSE",
	OP_POP:   "POP",

	OP_GET_LOCAL:     "GET_LOCAL",
	OP_SET_LOCAL:     "SET_LOCAL",
	OP_GET_GLOBAL:    "GET_GLOBAL",
	OP_DEFINE_GLOBAL: "DEFINE_GLOBAL",
	OP_SET_GLOBAL:    "SET_GLOBAL",
	OP_GET_UPVALUE:   "GET_UPVALUE",
	OP_SET_UPVALUE:   "SET_UPVALUE",

	OP_GET_PROPERTY: "GET_PROPERTY",
	OP_SET_PROPERTY: "SET_PROPERTY",
	OP_GET_SUPER:    "GET_SUPER",

	OP_EQ: "EQ",
	OP_NE: "NE",
	OP_GT: "GT",
	OP_GE: "GE",
	OP_LT: "LT",
	OP_LE: "LE",

	OP_ADD: "ADD",
	OP_SUB: "SUB",
	OP_MUL: "MUL",
	OP_DIV: "DIV",
	OP_NOT: "NOT",
	OP_NEG: "NEG",

	OP_PRINT: "PRINT",

	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",
	OP_LOOP:          "LOOP",

	OP_CALL:          "CALL",
	OP_INVOKE:        "INVOKE",
	OP_SUPER_INVOKE:  "SUPER_INVOKE",
	OP_CLOSURE:       "CLOSURE",
	OP_CLOSE_UPVALUE: "CLOSE_UPVALUE",
	OP_RETURN:        "RETURN",

	OP_CLASS:   "CLASS",
	OP_INHERIT: "INHERIT",
	OP_METHOD:  "METHOD",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}
