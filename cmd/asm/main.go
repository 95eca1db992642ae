package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"

	"n2t.dev/toolchain/pkg/asm"
	"n2t.dev/toolchain/pkg/hack"
)

var Description = strings.ReplaceAll(`
The Hack Assembler takes assembly language code written in the Hack assembly language
and translates it into machine code that can be executed by the Hack computer. The process
involves parsing the assembly code, resolving symbols, and generating machine code.
`, "\n", " ")

var HackAssembler = cli.New(Description).
	WithArg(cli.NewArg("input", "The assembly (.asm) file to be translated")).
	WithAction(Handler)

// Translates args[0] into the sibling '.hack' file. The output is rendered fully
// in memory and written only on success, so a failed run leaves no partial file.
func Handler(args []string, options map[string]string) int {
	input := args[0]
	output := strings.TrimSuffix(input, filepath.Ext(input)) + ".hack"

	content, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	// Instantiate a parser for the Asm program
	parser := asm.NewParser(bytes.NewReader(content))
	// Parses the input file content and extracts an 'asm.Program' from it.
	asmProgram, err := parser.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'parsing' pass: %s\n", err)
		return -1
	}

	// Instantiate a lowerer to convert the program from Asm to Hack
	lowerer := asm.NewLowerer(asmProgram)
	// Lowers the asm.Program to its 'hack.Program' counterpart plus the label table (pass one).
	hackProgram, table, err := lowerer.Lower()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	// Now, instantiates a code generator for the Hack (compiled) program
	codegen := hack.NewCodeGenerator(hackProgram, table)
	// Iterates over each instruction and spits out the relative binary representation (pass two).
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	rendered := strings.Join(compiled, "\n") + "\n"
	if err := os.WriteFile(output, []byte(rendered), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to write output file: %s\n", err)
		return -1
	}

	return 0
}

func main() { os.Exit(HackAssembler.Run(os.Args, os.Stdout)) }
