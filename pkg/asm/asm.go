package asm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the Asm language.
//
// We declare a shared 'Instruction' interface for A and C instructions as well as
// label declarations marking specific code sections (allowing arbitrary jumps at
// runtime during code execution). This in turn enables iterations and conditionals
// both here and at the upper levels (VM, Compiler).

// Just used to put together label declarations, A inst and C inst in the same datatype.
type Instruction interface{}

// An Asm program is the linear list of instructions and label declarations as
// they appear in the source (or as they are emitted by the VM translator).
type Program []Instruction

// ----------------------------------------------------------------------------
// Label Declarations

// In memory representation of a label declaration statement for the Asm language.
//
// We just keep track of the user defined name to resolve future references to the
// same label (e.g. when referencing a label in an A Instruction). During the
// lowering phase this label will be mapped to its location in the program and a
// symbol table will be generated from it, the latter is then used in the codegen
// phase. A label declaration consumes no ROM word of its own.
type LabelDecl struct {
	Name string // The symbol/ident chosen by the user for the label
}

// ----------------------------------------------------------------------------
// A Instructions

// In memory representation of an A Instruction for the Asm language.
//
// The A instruction has only one functionality in the Hack computer, it instructs
// the CPU to load a specific memory address/location from the computer memory (this
// includes both the RAM and the memory mapped I/O). The location can be referenced
// either by an alias (labels and builtins) or by specifying the raw location.
// During the lowering phase each location will be assigned its type (Raw | BuiltIn | Label).
type AInstruction struct {
	Location string // A generic "payload" (the label/builtin/raw symbol)
}

// ----------------------------------------------------------------------------
// C Instructions

// In memory representation of a C Instruction for the Asm language.
//
// The C instruction handles the computation side of the Hack computer, it instructs
// the CPU on what operation to execute and which registers to use, also it allows to
// specify jump conditions to change the execution flow at runtime. Absent 'Dest' and
// 'Jump' directives are represented as the empty string.
type CInstruction struct {
	Comp string // The 'computation' mnemonic, defines the calculation that the CPU should perform
	Dest string // The 'destination' mnemonic, defines if/where the result should be saved
	Jump string // The 'jump' mnemonic, defines on what premise the jump to another instruction should occur
}
