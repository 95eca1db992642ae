package hack

import (
	"fmt"
	"strconv"

	"n2t.dev/toolchain/pkg/diag"
)

// ----------------------------------------------------------------------------
// Translation tables

// This section contains the translation tables cornerstone of the codegen phase.
//
// These tables provide a simple yet effective way to resolve everything built-in
// in the Hack specification. Notably we have the following tables defined:
//	- 'BuiltInTable': Specifies how to translate BuiltIn labels in A instructions to their address
//  - 'CompTable': Specifies how to translate the 'Comp' opcode in C instructions
//  - 'DestTable': Specifies how to translate the 'Dest' opcode in C instructions
//  - 'JumpTable': Specifies how to translate the 'Jump' opcode in C instructions

var (
	BuiltInTable = map[string]uint16{
		// Virtual Machine specific aliases (see the VM translator)
		"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4,
		// Named general purpose registers
		"R0": 0, "R1": 1, "R2": 2, "R3": 3, "R4": 4, "R5": 5,
		"R6": 6, "R7": 7, "R8": 8, "R9": 9, "R10": 10, "R11": 11,
		"R12": 12, "R13": 13, "R14": 14, "R15": 15,
		// Memory mapped I/O locations
		"SCREEN": 16384, "KBD": 24576,
	}

	CompTable = map[string]uint16{
		// - Constants and identities
		"0": 0b0101010, "1": 0b0111111, "-1": 0b0111010,
		"D": 0b0001100, "A": 0b0110000, "M": 0b1110000,
		// - Binary and numerical negations
		"!D": 0b0001101, "!A": 0b0110001, "!M": 0b1110001,
		"-D": 0b0001111, "-A": 0b0110011, "-M": 0b1110011,
		// - Increment and decrement operations
		"D+1": 0b0011111, "A+1": 0b0110111, "M+1": 0b1110111,
		"D-1": 0b0001110, "A-1": 0b0110010, "M-1": 0b1110010,
		// - Register with register operations
		"D+A": 0b0000010, "D+M": 0b1000010,
		"D-A": 0b0010011, "D-M": 0b1010011,
		"A-D": 0b0000111, "M-D": 0b1000111,
		// - Bitwise register with register operations
		"D&A": 0b0000000, "D&M": 0b1000000,
		"D|A": 0b0010101, "D|M": 0b1010101,
	}

	DestTable = map[string]uint16{
		"": 0b000, "M": 0b001, "D": 0b010, "A": 0b100,
		"MD": 0b011, "AM": 0b101, "AD": 0b110, "AMD": 0b111,
	}

	JumpTable = map[string]uint16{
		"": 0b000, "JGT": 0b001, "JEQ": 0b010, "JGE": 0b011,
		"JLT": 0b100, "JNE": 0b101, "JLE": 0b110, "JMP": 0b111,
	}
)

// ----------------------------------------------------------------------------
// Code Generator

// Takes a 'hack.Program' and spits out its binary counterpart.
//
// In order to resolve user defined labels in A instructions, a Symbol Table
// (produced by the assembler's lowering pass) is provided at construction.
// Symbols that are neither built-in nor labels are treated as RAM variables
// and allocated consecutive addresses starting from 16.
type CodeGenerator struct {
	program    Program     // The set of instructions to convert in Hack binary format
	table      SymbolTable // Mapping to resolve user-defined labels to their underlying address
	nVarOffset uint16      // Internal offset to allocate memory for new variables
}

// Initializes and returns to the caller a brand new 'CodeGenerator' struct.
// Requires both a non-nil Program 'p' (what we want to translate) as well as
// an optionally nullable Symbol Table 'st' used to resolve user defined labels.
func NewCodeGenerator(p Program, st SymbolTable) CodeGenerator {
	if st == nil {
		st = SymbolTable{}
	}
	return CodeGenerator{program: p, table: st}
}

// Translates each instruction in the 'Program' to the Hack binary format.
//
// Each instruction will pass through the following steps: evaluation, validation
// and then conversion to its binary representation (rendered as a 16 char string
// of 0s and 1s) so that it can be further elaborated by the function caller
// (e.g. dumping .hack code to a file, runtime interpretation, ...).
func (cg *CodeGenerator) Generate() ([]string, error) {
	hack := make([]string, 0, len(cg.program))

	for _, instruction := range cg.program {
		var generated string
		var err error

		switch tInstruction := instruction.(type) {
		case AInstruction:
			generated, err = cg.GenerateAInst(tInstruction)
		case CInstruction:
			generated, err = cg.GenerateCInst(tInstruction)
		default:
			err = diag.Errorf(diag.EncodeError, "unrecognized instruction '%T'", instruction)
		}

		if err != nil {
			return nil, err
		}
		hack = append(hack, generated)
	}

	return hack, nil
}

// Specialized function to convert an A Instruction to the Hack format.
//
// As part of the conversion (for both built-in and user-defined labels) there's a
// lookup on their respective symbol tables in order to determine the 'real' location
// address. Locations resolved to an Out-of-Bound address return an error, unresolved
// ones are allocated as new RAM variables.
func (cg *CodeGenerator) GenerateAInst(inst AInstruction) (string, error) {
	found, address := false, uint16(0)

	switch inst.LocType {
	case Raw: // Simply translate the raw address from 'string' to 'int'
		num, err := strconv.ParseUint(inst.LocName, 10, 16)
		address, found = uint16(num), err == nil
	case Label: // Lookup the label name in the provided SymbolTable
		address, found = cg.table[inst.LocName]
		// Not found means it's a variable reference rather than a jump target:
		// assign the next free RAM location (starting from 16 onwards) and update
		// the SymbolTable so that future references resolve to the same address.
		if !found {
			address, found = 16+cg.nVarOffset, true
			cg.table[inst.LocName] = address
			cg.nVarOffset++
		}
	case BuiltIn: // Lookup the register name in the well-known table
		address, found = BuiltInTable[inst.LocName]
	}

	if !found {
		return "", diag.Errorf(diag.EncodeError, "unable to resolve address for location '%s'", inst.LocName)
	}
	// An A instruction always has the first bit set to zero (the opcode bit), this
	// also means that there are only 15 bits left to address the computer memory,
	// so an address of 2^15 or above is out of bounds.
	if address >= MaxAddressableMemory {
		return "", diag.Errorf(diag.EncodeError, "location '%s' resolved to an out of bounds address %d", inst.LocName, address)
	}
	// So here we just need to convert the address to its 16 bit binary representation
	return fmt.Sprintf("%016b", address), nil
}

// Specialized function to convert a C Instruction to the Hack format.
//
// The three directives are resolved independently against their translation
// tables, an unknown mnemonic in any of them aborts the whole codegen phase.
func (cg *CodeGenerator) GenerateCInst(inst CInstruction) (string, error) {
	command := uint16(0b111 << 13) // Puts the initial '111' opcode at the start

	// CInst.Comp: the only mandatory directive
	if opcode, found := CompTable[inst.Comp]; found && inst.Comp != "" {
		command |= opcode << 6
	} else {
		return "", diag.Errorf(diag.EncodeError, "unknown 'comp' mnemonic '%s'", inst.Comp)
	}
	// CInst.Dest: the empty string resolves to the no-destination bit pattern
	if opcode, found := DestTable[inst.Dest]; found {
		command |= opcode << 3
	} else {
		return "", diag.Errorf(diag.EncodeError, "unknown 'dest' mnemonic '%s'", inst.Dest)
	}
	// CInst.Jump: the empty string resolves to the no-jump bit pattern
	if opcode, found := JumpTable[inst.Jump]; found {
		command |= opcode
	} else {
		return "", diag.Errorf(diag.EncodeError, "unknown 'jump' mnemonic '%s'", inst.Jump)
	}

	return fmt.Sprintf("%016b", command), nil
}
