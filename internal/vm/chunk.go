package vm

// Chunk is a sequence of bytecode with its constant pool and a source line
// for every byte.
type Chunk struct {
	Code      []byte
	Constants []Value
	Lines     []int

	index map[Value]int // keyed by exact bits, so 0 and -0 stay distinct
}

func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]Value, 0, 16),
		Lines:     make([]int, 0, 64),
	}
}

func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// WriteShort writes a big-endian 16-bit operand.
func (c *Chunk) WriteShort(v uint16, line int) {
	c.Write(byte(v>>8), line)
	c.Write(byte(v), line)
}

// AddConstant returns the pool index of value, appending it only if an
// identical constant is not already there.
func (c *Chunk) AddConstant(value Value) int {
	if c.index == nil {
		c.index = make(map[Value]int)
	}
	if idx, ok := c.index[value]; ok {
		return idx
	}
	c.Constants = append(c.Constants, value)
	idx := len(c.Constants) - 1
	c.index[value] = idx
	return idx
}

func (c *Chunk) Len() int {
	return len(c.Code)
}

// ReadShort decodes the 16-bit operand at offset.
func (c *Chunk) ReadShort(offset int) uint16 {
	return uint16(c.Code[offset])<<8 | uint16(c.Code[offset+1])
}
