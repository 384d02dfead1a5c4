package disasm_test

import (
	"strings"
	"testing"

	"dmc/codegen"
	"dmc/disasm"
	"dmc/objtree"
)

func TestInstructionRendersConstantWithValue(t *testing.T) {
	ins := codegen.MakeInstruction(codegen.OP_CONSTANT, 0)
	got := disasm.Instruction(codegen.Instructions(ins), 0, []any{int64(5)})
	want := "opcode: OP_CONSTANT, operand: 0, operand widths: 2 bytes, value: 5"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInstructionRendersNoOperandOpcode(t *testing.T) {
	ins := codegen.MakeInstruction(codegen.OP_ADD)
	got := disasm.Instruction(codegen.Instructions(ins), 0, nil)
	want := "opcode: OP_ADD, operand: None, operand widths: 0 bytes"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProcRendersEveryInstructionOnItsOwnLine(t *testing.T) {
	var bc []byte
	bc = append(bc, codegen.MakeInstruction(codegen.OP_CONSTANT, 0)...)
	bc = append(bc, codegen.MakeInstruction(codegen.OP_CONSTANT, 1)...)
	bc = append(bc, codegen.MakeInstruction(codegen.OP_ADD)...)
	bc = append(bc, codegen.MakeInstruction(codegen.OP_END)...)

	proc := &objtree.Proc{Bytecode: bc, Constants: []any{int64(1), int64(2)}}
	out := disasm.Proc(proc)
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "value: 1") || !strings.Contains(lines[1], "value: 2") {
		t.Errorf("expected constant values rendered inline, got %v", lines)
	}
}
