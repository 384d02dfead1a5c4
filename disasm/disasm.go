// Package disasm renders a compiled proc's bytecode as a human-readable
// instruction listing, pulled out of the emitter into its own package
// since the `inspect` REPL (cmd/dmc) also needs it.
//
// Grounded on informatter-nilan's
// ASTCompiler.DiassembleBytecode/DiassembleInstruction — the same
// opcode-by-opcode textual format ("opcode: X, operand: Y, ...") — but
// driven by codegen's generic OpCodeDefinition/ReadUint16/ReadUint8
// helpers instead of a per-opcode switch, since DM's opcode set is much
// larger than Nilan's small expression-language one.
package disasm

import (
	"fmt"
	"strings"

	"dmc/codegen"
	"dmc/objtree"
	"dmc/path"
)

// Instruction renders the single instruction starting at ins[offset].
func Instruction(ins codegen.Instructions, offset int, constants []any) string {
	op := codegen.Opcode(ins[offset])
	def, err := codegen.Get(op)
	if err != nil {
		return fmt.Sprintf("opcode: <unknown %d>", ins[offset])
	}

	if len(def.OperandWidths) == 0 {
		return fmt.Sprintf("opcode: %s, operand: None, operand widths: 0 bytes", def.Name)
	}

	var operands []string
	pos := offset + 1
	for _, w := range def.OperandWidths {
		switch w {
		case 2:
			operands = append(operands, fmt.Sprintf("%d", codegen.ReadUint16(ins, pos)))
		case 1:
			operands = append(operands, fmt.Sprintf("%d", codegen.ReadUint8(ins, pos)))
		}
		pos += w
	}

	totalWidth := 0
	for _, w := range def.OperandWidths {
		totalWidth += w
	}
	line := fmt.Sprintf("opcode: %s, operand: %s, operand widths: %d bytes", def.Name, strings.Join(operands, ","), totalWidth)

	if op == codegen.OP_CONSTANT && constants != nil {
		idx := codegen.ReadUint16(ins, offset+1)
		if idx >= 0 && idx < len(constants) {
			line += fmt.Sprintf(", value: %v", constants[idx])
		}
	}
	return line
}

// Proc renders every instruction in proc's bytecode, one per line.
func Proc(proc *objtree.Proc) string {
	var b strings.Builder
	ins := codegen.Instructions(proc.Bytecode)
	offset := 0
	for offset < len(ins) {
		b.WriteString(Instruction(ins, offset, proc.Constants))
		width := codegen.InstructionWidth(ins, offset)
		offset += width
		if offset < len(ins) {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Tree renders every proc in tree, headed by its qualified name.
func Tree(tree *objtree.Tree) string {
	var b strings.Builder
	for _, proc := range tree.Procs {
		owner := tree.Objects[proc.OwningTypeID]
		fmt.Fprintf(&b, "proc %s/%s:\n", path.String(owner.Path), proc.Name)
		b.WriteString(Proc(proc))
		b.WriteString("\n\n")
	}
	return b.String()
}
