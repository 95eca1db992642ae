package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"

	"n2t.dev/toolchain/pkg/jack"
	"n2t.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The Jack Compiler compiles programs (composed of multiple classes/files) written in
the Jack language into VM modules that can be further elaborated. The Jack language
is a higher-level OOP language tailored for use with the Hack computer architecture.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	WithArg(cli.NewArg("input", "The source (.jack) file or directory to be compiled")).
	WithAction(Handler)

// Compiles every 'X.jack' reachable from the input path into a sibling 'X.vm'.
//
// Each class is its own translation unit: it is parsed, lowered and written out
// independently of every other one (there is no linking step, calls across
// classes resolve by name at runtime).
func Handler(args []string, options map[string]string) int {
	// Aggregates all the Translation Units (TUs) found during the input walk.
	// In Jack a TU is always a class file, so file stem and class name coincide.
	TUs := []string{}

	err := filepath.Walk(args[0], func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".jack" {
			return nil // We recurse on dirs and ignore other filetypes
		}

		TUs = append(TUs, path)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to walk input path: %s\n", err)
		return -1
	}
	if len(TUs) == 0 {
		fmt.Fprintf(os.Stderr, "ERROR: No .jack files found at '%s'\n", args[0])
		return -1
	}
	sort.Strings(TUs)

	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Jack class
		parser := jack.NewParser(bytes.NewReader(content))
		// Parses the input file content and extracts a typed 'jack.Class' from it.
		class, err := parser.Parse()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'parsing' pass on '%s': %s\n", tu, err)
			return -1
		}

		// Instantiate a lowerer to convert the class from Jack to Vm
		lowerer := jack.NewLowerer(class)
		// Lowers the jack.Class to its 'vm.Module' counterpart.
		module, err := lowerer.Lower()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'lowering' pass on '%s': %s\n", tu, err)
			return -1
		}

		// Now, instantiates a code generator for the Vm (compiled) module
		codegen := vm.NewCodeGenerator(vm.Program{module})
		// Iterates over each operation and spits out the relative textual representation.
		compiled, err := codegen.Generate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'codegen' pass on '%s': %s\n", tu, err)
			return -1
		}

		output := strings.TrimSuffix(tu, filepath.Ext(tu)) + ".vm"
		rendered := strings.Join(compiled[module.Name], "\n") + "\n"
		if err := os.WriteFile(output, []byte(rendered), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to write output file: %s\n", err)
			return -1
		}
	}

	return 0
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stdout)) }
