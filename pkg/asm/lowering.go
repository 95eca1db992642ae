package asm

import (
	"strconv"

	"n2t.dev/toolchain/pkg/diag"
	"n2t.dev/toolchain/pkg/hack"
)

// ----------------------------------------------------------------------------
// Asm Lowerer

// The Lowerer takes an 'asm.Program' and produces its 'hack.Program' counterpart.
//
// This is the first pass of the assembly algorithm: label declarations are peeled
// off the instruction stream and bound (in the returned Symbol Table) to the ROM
// address of the next real instruction, since a label consumes no ROM word of its
// own. A/C instructions are classified and validated on the way through, the
// actual bit-level translation is left to the 'hack' code generator (pass two).
type Lowerer struct{ program Program }

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program to be not nil nor empty.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Triggers the lowering process. It iterates instruction by instruction and calls
// the specialized helper function based on the instruction type, accumulating the
// converted instructions and the label bindings discovered along the way.
func (l *Lowerer) Lower() (hack.Program, hack.SymbolTable, error) {
	converted, table := hack.Program{}, hack.SymbolTable{}

	if len(l.program) == 0 {
		return nil, nil, diag.Errorf(diag.SyntaxError, "the given 'program' is empty")
	}

	for _, asmInst := range l.program {
		switch tAsmInst := asmInst.(type) {
		case AInstruction: // Converts 'asm.AInstruction' to 'hack.AInstruction'
			hackInst, err := l.HandleAInst(tAsmInst)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case CInstruction: // Converts 'asm.CInstruction' to 'hack.CInstruction'
			hackInst, err := l.HandleCInst(tAsmInst)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case LabelDecl: // Adds 'asm.LabelDecl' to the 'hack.SymbolTable'
			label, err := l.HandleLabelDecl(tAsmInst)
			if err != nil {
				return nil, nil, err
			}
			if _, duplicate := table[label]; duplicate {
				return nil, nil, diag.Errorf(diag.SemanticError, "duplicate declaration of label '%s'", label)
			}
			// 'len(converted)' is exactly the ROM address of the upcoming instruction
			table[label] = uint16(len(converted))

		default: // Error case, unrecognized instruction type
			return nil, nil, diag.Errorf(diag.SyntaxError, "unrecognized instruction '%T'", asmInst)
		}
	}

	return converted, table, nil
}

// Specialized function to convert an 'asm.AInstruction' node to a 'hack.AInstruction'.
func (Lowerer) HandleAInst(inst AInstruction) (hack.Instruction, error) {
	if inst.Location == "" {
		return nil, diag.Errorf(diag.SyntaxError, "A instruction with empty location")
	}

	// Based on one of the following cases below (the type of the symbol) we do different things:
	// 1) If it's present in the BuiltInTable we set the 'LocType' to 'BuiltIn' accordingly
	if _, found := hack.BuiltInTable[inst.Location]; found {
		return hack.AInstruction{LocType: hack.BuiltIn, LocName: inst.Location}, nil
	}
	// 2) If it starts with a digit it's a raw address (symbols cannot), the final
	// bound check against the 15 bit address space happens in the codegen phase
	if inst.Location[0] >= '0' && inst.Location[0] <= '9' {
		if _, err := strconv.ParseUint(inst.Location, 10, 16); err != nil {
			return nil, diag.Errorf(diag.EncodeError, "address '%s' is out of range", inst.Location)
		}
		return hack.AInstruction{LocType: hack.Raw, LocName: inst.Location}, nil
	}
	// 3) Else it's a user defined label/variable and we set 'LocType' to 'Label' accordingly
	return hack.AInstruction{LocType: hack.Label, LocName: inst.Location}, nil
}

// Specialized function to convert an 'asm.CInstruction' node to a 'hack.CInstruction'.
func (Lowerer) HandleCInst(inst CInstruction) (hack.Instruction, error) {
	if inst.Comp == "" { // The 'Comp' directive is the only mandatory one
		return nil, diag.Errorf(diag.SyntaxError, "'comp' directive should always be provided")
	}

	return hack.CInstruction{Dest: inst.Dest, Comp: inst.Comp, Jump: inst.Jump}, nil
}

// Specialized function to extract from an 'asm.LabelDecl' node the identifier of the label.
func (Lowerer) HandleLabelDecl(inst LabelDecl) (string, error) {
	if inst.Name == "" {
		return "", diag.Errorf(diag.SyntaxError, "label declaration with empty name")
	}
	if _, found := hack.BuiltInTable[inst.Name]; found {
		return "", diag.Errorf(diag.SemanticError, "unable to override built-in label '%s'", inst.Name)
	}
	return inst.Name, nil
}
