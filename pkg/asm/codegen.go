package asm

import (
	"fmt"

	"n2t.dev/toolchain/pkg/diag"
	"n2t.dev/toolchain/pkg/hack"
)

// ----------------------------------------------------------------------------
// Code Generator

// Takes an 'asm.Program' and spits out its textual counterpart.
//
// This is the output side of the VM translator: the VM lowerer produces typed
// asm instructions and this generator renders them line by line into the '.asm'
// format consumed back by the assembler (or by the course CPU emulator).
type CodeGenerator struct {
	program Program // The set of instructions to render in Asm textual format
}

// Initializes and returns to the caller a brand new 'CodeGenerator' struct.
// Requires that argument Program 'p' (what we want to translate) is non-nil.
func NewCodeGenerator(p Program) CodeGenerator {
	return CodeGenerator{program: p}
}

// Translates each instruction in the 'program' field to the Asm textual format.
//
// Each instruction will pass through the following steps: evaluation, validation
// and then conversion to its textual representation (a string) so that it can be
// further elaborated by the caller (e.g. dumping to a file, reassembly, ...).
func (cg *CodeGenerator) Generate() ([]string, error) {
	asm := make([]string, 0, len(cg.program))

	for _, instruction := range cg.program {
		var generated string
		var err error

		switch tInstruction := instruction.(type) {
		case AInstruction:
			generated, err = cg.GenerateAInst(tInstruction)
		case CInstruction:
			generated, err = cg.GenerateCInst(tInstruction)
		case LabelDecl:
			generated, err = cg.GenerateLabelDecl(tInstruction)
		default:
			err = diag.Errorf(diag.EncodeError, "unrecognized instruction '%T'", instruction)
		}

		if err != nil {
			return nil, err
		}
		asm = append(asm, generated)
	}

	return asm, nil
}

// Specialized function to convert an A Instruction to the Asm format.
func (CodeGenerator) GenerateAInst(inst AInstruction) (string, error) {
	if inst.Location == "" {
		return "", diag.Errorf(diag.EncodeError, "unable to produce A instruction with empty location")
	}

	return fmt.Sprintf("@%s", inst.Location), nil
}

// Specialized function to convert a C Instruction to the Asm format.
//
// Both the 'dest=' and ';jump' halves are rendered only when present, the
// correctness of the single mnemonics is enforced downstream by the encoding
// tables (a C instruction rendered here may still fail reassembly).
func (CodeGenerator) GenerateCInst(inst CInstruction) (string, error) {
	if inst.Comp == "" {
		return "", diag.Errorf(diag.EncodeError, "expected 'comp' directive in C instruction")
	}

	generated := inst.Comp
	if inst.Dest != "" {
		generated = fmt.Sprintf("%s=%s", inst.Dest, generated)
	}
	if inst.Jump != "" {
		generated = fmt.Sprintf("%s;%s", generated, inst.Jump)
	}

	return generated, nil
}

// Specialized function to convert a Label Declaration to the Asm format.
func (CodeGenerator) GenerateLabelDecl(inst LabelDecl) (string, error) {
	if inst.Name == "" {
		return "", diag.Errorf(diag.EncodeError, "unable to produce empty label declaration")
	}
	if _, found := hack.BuiltInTable[inst.Name]; found {
		return "", diag.Errorf(diag.SemanticError, "unable to override built-in label '%s'", inst.Name)
	}

	return fmt.Sprintf("(%s)", inst.Name), nil
}
