package asm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"n2t.dev/toolchain/pkg/asm"
	"n2t.dev/toolchain/pkg/diag"
	"n2t.dev/toolchain/pkg/hack"
)

func parse(t *testing.T, source string) asm.Program {
	t.Helper()
	parser := asm.NewParser(strings.NewReader(source))
	program, err := parser.Parse()
	require.NoError(t, err)
	return program
}

func TestParseInstructions(t *testing.T) {
	t.Run("A instructions and labels", func(t *testing.T) {
		program := parse(t, "@2\n@sum\n(LOOP)\n@LOOP\n")

		require.Len(t, program, 4)
		assert.Equal(t, asm.AInstruction{Location: "2"}, program[0])
		assert.Equal(t, asm.AInstruction{Location: "sum"}, program[1])
		assert.Equal(t, asm.LabelDecl{Name: "LOOP"}, program[2])
		assert.Equal(t, asm.AInstruction{Location: "LOOP"}, program[3])
	})

	t.Run("C instructions in all three shapes", func(t *testing.T) {
		program := parse(t, "D=A\n0;JMP\nAM=M-1\nD=D+A\nMD=M+1;JGE\n")

		require.Len(t, program, 5)
		assert.Equal(t, asm.CInstruction{Dest: "D", Comp: "A"}, program[0])
		assert.Equal(t, asm.CInstruction{Comp: "0", Jump: "JMP"}, program[1])
		assert.Equal(t, asm.CInstruction{Dest: "AM", Comp: "M-1"}, program[2])
		assert.Equal(t, asm.CInstruction{Dest: "D", Comp: "D+A"}, program[3])
		assert.Equal(t, asm.CInstruction{Dest: "MD", Comp: "M+1", Jump: "JGE"}, program[4])
	})

	t.Run("Comments and blank lines are skipped", func(t *testing.T) {
		source := `
// leading comment
@2 // trailing comment
/* block
   comment */
D=A
`
		program := parse(t, source)
		require.Len(t, program, 2)
		assert.Equal(t, asm.AInstruction{Location: "2"}, program[0])
		assert.Equal(t, asm.CInstruction{Dest: "D", Comp: "A"}, program[1])
	})

	t.Run("Malformed input is a syntax error naming the line", func(t *testing.T) {
		parser := asm.NewParser(strings.NewReader("@2\nD=A\nwhatisthis?!\n"))
		_, err := parser.Parse()
		require.Error(t, err)

		category, tagged := diag.CategoryOf(err)
		assert.True(t, tagged)
		assert.Equal(t, diag.SyntaxError, category)
		assert.Contains(t, err.Error(), "line 3")
	})
}

func TestLowering(t *testing.T) {
	t.Run("Labels bind to the next instruction's ROM address", func(t *testing.T) {
		// (LOOP) must resolve to 2: the label line itself takes no ROM word
		program := parse(t, "@sum\nM=0\n(LOOP)\n@sum\nD=M\n@LOOP\n0;JMP\n")

		lowerer := asm.NewLowerer(program)
		lowered, table, err := lowerer.Lower()
		require.NoError(t, err)

		assert.Equal(t, hack.SymbolTable{"LOOP": 2}, table)
		assert.Len(t, lowered, 6) // 7 source lines minus the label declaration
	})

	t.Run("Location classification", func(t *testing.T) {
		program := parse(t, "@2\n@SP\n@R13\n@counter\n")

		lowerer := asm.NewLowerer(program)
		lowered, _, err := lowerer.Lower()
		require.NoError(t, err)

		assert.Equal(t, hack.AInstruction{LocType: hack.Raw, LocName: "2"}, lowered[0])
		assert.Equal(t, hack.AInstruction{LocType: hack.BuiltIn, LocName: "SP"}, lowered[1])
		assert.Equal(t, hack.AInstruction{LocType: hack.BuiltIn, LocName: "R13"}, lowered[2])
		assert.Equal(t, hack.AInstruction{LocType: hack.Label, LocName: "counter"}, lowered[3])
	})

	t.Run("Duplicate labels are rejected", func(t *testing.T) {
		program := parse(t, "(END)\n@END\n(END)\n0;JMP\n")

		lowerer := asm.NewLowerer(program)
		_, _, err := lowerer.Lower()
		require.Error(t, err)

		category, _ := diag.CategoryOf(err)
		assert.Equal(t, diag.SemanticError, category)
	})

	t.Run("Built-in names cannot be redeclared", func(t *testing.T) {
		program := parse(t, "(SP)\n0;JMP\n")

		lowerer := asm.NewLowerer(program)
		_, _, err := lowerer.Lower()
		require.Error(t, err)
	})
}

// End to end over the in-process pipeline: parse -> lower -> binary codegen.
func TestAssembleEndToEnd(t *testing.T) {
	assemble := func(t *testing.T, source string) []string {
		t.Helper()
		program := parse(t, source)
		lowerer := asm.NewLowerer(program)
		lowered, table, err := lowerer.Lower()
		require.NoError(t, err)
		codegen := hack.NewCodeGenerator(lowered, table)
		binary, err := codegen.Generate()
		require.NoError(t, err)
		return binary
	}

	t.Run("Add two constants", func(t *testing.T) {
		binary := assemble(t, "@2\nD=A\n@3\nD=D+A\n@0\nM=D\n")

		assert.Equal(t, []string{
			"0000000000000010",
			"1110110000010000",
			"0000000000000011",
			"1110000010010000",
			"0000000000000000",
			"1110001100001000",
		}, binary)
	})

	t.Run("Symbols resolve to ROM and RAM addresses", func(t *testing.T) {
		binary := assemble(t, "@sum\nM=0\n(LOOP)\n@sum\nD=M\n@LOOP\n0;JMP\n")

		assert.Equal(t, "0000000000010000", binary[0]) // 'sum' is the first variable -> RAM 16
		assert.Equal(t, "0000000000010000", binary[2]) // later references share the slot
		assert.Equal(t, "0000000000000010", binary[4]) // 'LOOP' declared at ROM address 2
		assert.Equal(t, "1110101010000111", binary[5]) // the closing unconditional jump
	})
}
