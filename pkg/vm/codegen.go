package vm

import (
	"fmt"

	"n2t.dev/toolchain/pkg/diag"
)

// ----------------------------------------------------------------------------
// Code Generator

// Takes a 'vm.Program' and spits out its textual counterpart.
//
// This is the output side of the Jack compiler: the Jack lowerer produces typed
// VM operations per class and this generator renders each module into the lines
// of its '.vm' file. The translation can be done without any additional data
// structure but the program.
type CodeGenerator struct {
	program Program // The set of modules to render in VM textual format
}

// Initializes and returns to the caller a brand new 'CodeGenerator' struct.
// Requires that argument Program 'p' (what we want to translate) is non-nil.
func NewCodeGenerator(p Program) CodeGenerator {
	return CodeGenerator{program: p}
}

// Translates each operation in the 'program' to the VM string format.
//
// The result maps each module name to its rendered lines so that the caller can
// dump each translation unit to its own file.
func (cg *CodeGenerator) Generate() (map[string][]string, error) {
	vm := map[string][]string{}

	for _, module := range cg.program {
		lines := make([]string, 0, len(module.Ops))

		for _, operation := range module.Ops {
			var generated string
			var err error

			switch tOperation := operation.(type) {
			case MemoryOp:
				generated, err = cg.GenerateMemoryOp(tOperation)
			case ArithmeticOp:
				generated, err = cg.GenerateArithmeticOp(tOperation)
			case LabelDecl:
				generated, err = cg.GenerateLabelDecl(tOperation)
			case GotoOp:
				generated, err = cg.GenerateGotoOp(tOperation)
			case FuncDecl:
				generated, err = cg.GenerateFuncDecl(tOperation)
			case FuncCallOp:
				generated, err = cg.GenerateFuncCallOp(tOperation)
			case ReturnOp:
				generated, err = cg.GenerateReturnOp(tOperation)
			default:
				err = diag.Errorf(diag.EncodeError, "unrecognized operation '%T'", operation)
			}

			if err != nil {
				return nil, diag.Wrapf(err, "module '%s'", module.Name)
			}
			lines = append(lines, generated)
		}

		vm[module.Name] = lines
	}

	return vm, nil
}

// Specialized function to convert a 'MemoryOp' operation to the VM format.
func (cg *CodeGenerator) GenerateMemoryOp(op MemoryOp) (string, error) {
	// Bound checking on segments that do have an upper bound to the allowed offsets
	if op.Segment == Pointer && op.Offset > 1 {
		return "", diag.Errorf(diag.EncodeError, "invalid 'pointer' offset, got %d", op.Offset)
	}
	if op.Segment == Temp && op.Offset > 7 {
		return "", diag.Errorf(diag.EncodeError, "invalid 'temp' offset, got %d", op.Offset)
	}
	if op.Segment == Constant && op.Operation == Pop {
		return "", diag.Errorf(diag.EncodeError, "cannot pop into the 'constant' segment")
	}

	return fmt.Sprintf("%s %s %d", op.Operation, op.Segment, op.Offset), nil
}

// Specialized function to convert an 'ArithmeticOp' operation to the VM format.
func (cg *CodeGenerator) GenerateArithmeticOp(op ArithmeticOp) (string, error) {
	return string(op.Operation), nil
}

// Specialized function to convert a 'LabelDecl' operation to the VM format.
func (cg *CodeGenerator) GenerateLabelDecl(op LabelDecl) (string, error) {
	if op.Name == "" {
		return "", diag.Errorf(diag.EncodeError, "unable to produce empty label declaration")
	}

	return fmt.Sprintf("label %s", op.Name), nil
}

// Specialized function to convert a 'GotoOp' operation to the VM format.
func (cg *CodeGenerator) GenerateGotoOp(op GotoOp) (string, error) {
	if op.Label == "" {
		return "", diag.Errorf(diag.EncodeError, "unable to produce empty jump label")
	}

	return fmt.Sprintf("%s %s", op.Jump, op.Label), nil
}

// Specialized function to convert a 'FuncDecl' operation to the VM format.
func (cg *CodeGenerator) GenerateFuncDecl(op FuncDecl) (string, error) {
	if op.Name == "" {
		return "", diag.Errorf(diag.EncodeError, "unable to produce empty function declaration")
	}

	return fmt.Sprintf("function %s %d", op.Name, op.NLocals), nil
}

// Specialized function to convert a 'ReturnOp' operation to the VM format.
func (cg *CodeGenerator) GenerateReturnOp(op ReturnOp) (string, error) {
	return "return", nil
}

// Specialized function to convert a 'FuncCallOp' operation to the VM format.
func (cg *CodeGenerator) GenerateFuncCallOp(op FuncCallOp) (string, error) {
	if op.Name == "" {
		return "", diag.Errorf(diag.EncodeError, "unable to produce empty function call")
	}

	return fmt.Sprintf("call %s %d", op.Name, op.NArgs), nil
}
