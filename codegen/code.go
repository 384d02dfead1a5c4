// Package codegen walks a proc's folded AST body and emits a
// stack-machine bytecode stream for it (spec.md §4.7 "Bytecode
// Emitter"). The opcode/instruction encoding and the emit/patch-jump
// machinery are a direct generalization of informatter-nilan's
// compiler.Opcode/compiler.ASTCompiler, widened from Nilan's small
// expression language to DM's full statement and expression grammar and
// extended with the max-stack-size bookkeeping the teacher never needed
// (spec.md §4.7's "stack discipline").
package codegen

import (
	"encoding/binary"
	"fmt"
)

// Opcode identifies a single bytecode instruction, exactly as
// compiler.Opcode does in the teacher.
type Opcode byte

// Instructions is a raw encoded instruction stream.
type Instructions []byte

// Resource marks a constant-pool entry that came from a DM resource
// literal ('icon.dmi') rather than a plain string literal, so jsonout
// can tell the two apart when encoding a proc's constant pool
// (spec.md §6 "resource -> {type:resource, id:N}").
type Resource string

const (
	OP_CONSTANT Opcode = iota
	OP_NULL
	OP_POP
	OP_DUP

	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_GET_GLOBAL
	OP_SET_GLOBAL
	OP_GET_FIELD
	OP_SET_FIELD
	OP_GET_INDEX
	OP_SET_INDEX

	OP_NEW
	OP_CALL
	OP_CALL_METHOD

	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_POW
	OP_CONCAT

	OP_BAND
	OP_BOR
	OP_BXOR
	OP_SHL
	OP_SHR

	OP_EQ
	OP_NEQ
	OP_LT
	OP_LE
	OP_GT
	OP_GE
	OP_EQUIV
	OP_NEQUIV

	OP_NEG
	OP_NOT
	OP_BNOT
	OP_PRE_INC
	OP_PRE_DEC
	OP_POST_INC
	OP_POST_DEC

	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_JUMP_IF_TRUE
	OP_JUMP_IF_NULL

	OP_SCOPE_EXIT
	OP_RETURN
	OP_RETURN_NULL

	OP_PUSH_HANDLER
	OP_POP_HANDLER
	OP_THROW

	OP_ITER_START
	OP_ITER_NEXT

	OP_SPAWN
	OP_LOCATE
	OP_CALL_BUILTIN
	OP_END
)

// OpCodeDefinition names an opcode and the byte-width of each of its
// operands, exactly the shape compiler.OpCodeDefinition uses.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*OpCodeDefinition{
	OP_CONSTANT: {"OP_CONSTANT", []int{2}},
	OP_NULL:     {"OP_NULL", nil},
	OP_POP:      {"OP_POP", nil},
	OP_DUP:      {"OP_DUP", nil},

	OP_GET_LOCAL:  {"OP_GET_LOCAL", []int{2}},
	OP_SET_LOCAL:  {"OP_SET_LOCAL", []int{2}},
	OP_GET_GLOBAL: {"OP_GET_GLOBAL", []int{2}},
	OP_SET_GLOBAL: {"OP_SET_GLOBAL", []int{2}},
	OP_GET_FIELD:  {"OP_GET_FIELD", []int{2}},
	OP_SET_FIELD:  {"OP_SET_FIELD", []int{2}},
	OP_GET_INDEX:  {"OP_GET_INDEX", nil},
	OP_SET_INDEX:  {"OP_SET_INDEX", nil},

	OP_NEW:          {"OP_NEW", []int{2, 1}},
	OP_CALL:         {"OP_CALL", []int{2, 1}},
	OP_CALL_METHOD:  {"OP_CALL_METHOD", []int{2, 1}},

	OP_ADD:    {"OP_ADD", nil},
	OP_SUB:    {"OP_SUB", nil},
	OP_MUL:    {"OP_MUL", nil},
	OP_DIV:    {"OP_DIV", nil},
	OP_MOD:    {"OP_MOD", nil},
	OP_POW:    {"OP_POW", nil},
	OP_CONCAT: {"OP_CONCAT", nil},

	OP_BAND: {"OP_BAND", nil},
	OP_BOR:  {"OP_BOR", nil},
	OP_BXOR: {"OP_BXOR", nil},
	OP_SHL:  {"OP_SHL", nil},
	OP_SHR:  {"OP_SHR", nil},

	OP_EQ:      {"OP_EQ", nil},
	OP_NEQ:     {"OP_NEQ", nil},
	OP_LT:      {"OP_LT", nil},
	OP_LE:      {"OP_LE", nil},
	OP_GT:      {"OP_GT", nil},
	OP_GE:      {"OP_GE", nil},
	OP_EQUIV:   {"OP_EQUIV", nil},
	OP_NEQUIV:  {"OP_NEQUIV", nil},

	OP_NEG:       {"OP_NEG", nil},
	OP_NOT:       {"OP_NOT", nil},
	OP_BNOT:      {"OP_BNOT", nil},
	OP_PRE_INC:   {"OP_PRE_INC", nil},
	OP_PRE_DEC:   {"OP_PRE_DEC", nil},
	OP_POST_INC:  {"OP_POST_INC", nil},
	OP_POST_DEC:  {"OP_POST_DEC", nil},

	OP_JUMP:           {"OP_JUMP", []int{2}},
	OP_JUMP_IF_FALSE:  {"OP_JUMP_IF_FALSE", []int{2}},
	OP_JUMP_IF_TRUE:   {"OP_JUMP_IF_TRUE", []int{2}},
	OP_JUMP_IF_NULL:   {"OP_JUMP_IF_NULL", []int{2}},

	OP_SCOPE_EXIT:  {"OP_SCOPE_EXIT", []int{2}},
	OP_RETURN:      {"OP_RETURN", nil},
	OP_RETURN_NULL: {"OP_RETURN_NULL", nil},

	OP_PUSH_HANDLER: {"OP_PUSH_HANDLER", []int{2}},
	OP_POP_HANDLER:  {"OP_POP_HANDLER", nil},
	OP_THROW:        {"OP_THROW", nil},

	OP_ITER_START: {"OP_ITER_START", nil},
	OP_ITER_NEXT:  {"OP_ITER_NEXT", []int{2}},

	OP_SPAWN: {"OP_SPAWN", []int{2}},

	OP_LOCATE:       {"OP_LOCATE", []int{1, 1}}, // argc, hasContainer(0/1)
	OP_CALL_BUILTIN: {"OP_CALL_BUILTIN", []int{1}},

	OP_END: {"OP_END", nil},
}

// Get returns the definition for op, mirroring compiler.Get.
func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("codegen: opcode %d undefined", op)
	}
	return def, nil
}

// MakeInstruction encodes op and its operands into a byte slice, with
// every multi-byte operand in big-endian order, exactly like
// compiler.MakeInstruction (extended here to also support 1-byte
// operands, used for call/new arities).
func MakeInstruction(op Opcode, operands ...int) []byte {
	def, err := Get(op)
	if err != nil {
		return []byte{}
	}

	length := 1
	for _, w := range def.OperandWidths {
		length += w
	}
	instruction := make([]byte, length)
	instruction[0] = byte(op)

	offset := 1
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(o))
		case 1:
			instruction[offset] = byte(o)
		}
		offset += width
	}
	return instruction
}

// ReadUint16 reads a big-endian uint16 operand starting at ins[offset].
func ReadUint16(ins Instructions, offset int) int {
	return int(binary.BigEndian.Uint16(ins[offset:]))
}

// ReadUint8 reads a single-byte operand at ins[offset].
func ReadUint8(ins Instructions, offset int) int {
	return int(ins[offset])
}

// InstructionWidth returns the total encoded width (opcode byte plus
// operand bytes) of the instruction at ins[offset].
func InstructionWidth(ins Instructions, offset int) int {
	def, err := Get(Opcode(ins[offset]))
	if err != nil {
		return 1
	}
	width := 1
	for _, w := range def.OperandWidths {
		width += w
	}
	return width
}
