package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"

	"n2t.dev/toolchain/pkg/asm"
	"n2t.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of one or multiple modules/files) written
in the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	WithArg(cli.NewArg("input", "The bytecode (.vm) file or directory to be translated")).
	WithOption(cli.NewOption("bootstrap", "Includes bootstrap code even for single-file inputs").
		WithType(cli.TypeBool)).
	WithAction(Handler)

// Translates a single '.vm' file or a directory of them into one '.asm' file.
//
// For a directory the output is '<dir>/<dirname>.asm', the modules are laid out
// in lexicographic filename order and the bootstrap preamble is always emitted.
// For a single file the output is the sibling '<stem>.asm' and the bootstrap is
// emitted only on explicit request (the bare translation is what the course's
// per-module test scripts expect).
func Handler(args []string, options map[string]string) int {
	input := args[0]

	info, err := os.Stat(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to access input path: %s\n", err)
		return -1
	}

	inputs, output := []string{}, ""
	_, bootstrap := options["bootstrap"]

	if info.IsDir() {
		inputs, err = filepath.Glob(filepath.Join(input, "*.vm"))
		if err != nil || len(inputs) == 0 {
			fmt.Fprintf(os.Stderr, "ERROR: No .vm files found in directory '%s'\n", input)
			return -1
		}
		sort.Strings(inputs) // Stable module layout, and so a single well-defined entrypoint

		output = filepath.Join(input, filepath.Base(filepath.Clean(input))+".asm")
		bootstrap = true
	} else {
		inputs = []string{input}
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".asm"
	}

	// Allocates a 'vm.Program' to collect all the parsed translation units (the
	// .vm files), each parsed independently and then lowered into a monolithic
	// assembly output.
	program := vm.Program{}

	for _, path := range inputs {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// The module name (the filename without extension) namespaces the module's
		// 'static' segment and its structured labels.
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		// Instantiate a parser for the Vm module
		parser := vm.NewParser(bytes.NewReader(content), name)
		// Parses the input file content and extracts a 'vm.Module' from it.
		module, err := parser.Parse()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}

		program = append(program, module)
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	lowerer := vm.NewLowerer(program, bootstrap)
	// Lowers the vm.Program to its 'asm.Program' counterpart (bootstrap included).
	asmProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	// Now, instantiates a code generator for the Asm (translated) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
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

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
