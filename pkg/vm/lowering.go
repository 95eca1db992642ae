package vm

import (
	"fmt"

	"n2t.dev/toolchain/pkg/asm"
	"n2t.dev/toolchain/pkg/diag"
)

// ----------------------------------------------------------------------------
// Translation tables

var (
	// Segments whose base address is held in a pointer register (effective
	// address = M[register] + offset).
	baseTable = map[SegmentType]string{
		Local: "LCL", Argument: "ARG", This: "THIS", That: "THAT",
	}

	// Segments that alias a fixed register file (effective address = register + offset).
	aliasTable = map[SegmentType]string{
		Pointer: "R3", Temp: "R5",
	}

	// Comp mnemonics for the binary arithmetic/logic operations. The operand
	// popped second (held in M) is the left one, so 'sub' is M-D.
	binaryTable = map[ArithOpType]string{
		Add: "D+M", Sub: "M-D", And: "D&M", Or: "D|M",
	}

	// Comp mnemonics for the unary operations, applied to the stack top in place.
	unaryTable = map[ArithOpType]string{
		Neg: "-M", Not: "!M",
	}

	// Jump mnemonics for the comparison operations (x cmp y with x on the left).
	compareTable = map[ArithOpType]string{
		Eq: "JEQ", Gt: "JGT", Lt: "JLT",
	}
)

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a 'vm.Program' and produces its 'asm.Program' counterpart,
// implementing the Standard VM Mapping for the Hack platform.
//
// The Lowerer is the only stateful piece of the translator: it tracks the module
// currently being lowered (whose name prefixes 'static' symbols and structured
// labels) and owns the monotonic counter used to mint globally unique label
// suffixes for comparisons and call return addresses. Identical inputs therefore
// always lower to identical assembly.
type Lowerer struct {
	program   Program // The modules to lower, in their final layout order
	bootstrap bool    // Whether to emit the SP init + 'call Sys.init 0' preamble
	module    string  // Name of the module currently being lowered
	nLabels   uint    // Monotonic seed for unique label suffixes
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// The bootstrap preamble is requested by the caller (directory inputs).
func NewLowerer(p Program, bootstrap bool) Lowerer {
	return Lowerer{program: p, bootstrap: bootstrap}
}

// Triggers the lowering process. Emits the optional bootstrap first, then each
// module's operations in order, dispatching on the operation type (much like a
// recursive descent parser but for lowering).
func (l *Lowerer) Lower() (asm.Program, error) {
	if len(l.program) == 0 {
		return nil, diag.Errorf(diag.SyntaxError, "the given 'program' is empty")
	}

	program := asm.Program{}

	// The bootstrap sets the stack pointer to its base location (256) and then
	// performs a genuine 'call Sys.init 0' so that the very first stack frame
	// follows the same calling convention as every other one.
	if l.bootstrap {
		program = append(program,
			asm.AInstruction{Location: "256"},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
		call, err := l.HandleFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
		if err != nil {
			return nil, err
		}
		program = append(program, call...)
	}

	for _, module := range l.program {
		l.module = module.Name

		for _, operation := range module.Ops {
			var insts []asm.Instruction
			var err error

			switch tOperation := operation.(type) {
			case MemoryOp:
				insts, err = l.HandleMemoryOp(tOperation)
			case ArithmeticOp:
				insts, err = l.HandleArithmeticOp(tOperation)
			case LabelDecl:
				insts, err = l.HandleLabelDecl(tOperation)
			case GotoOp:
				insts, err = l.HandleGotoOp(tOperation)
			case FuncDecl:
				insts, err = l.HandleFuncDecl(tOperation)
			case FuncCallOp:
				insts, err = l.HandleFuncCallOp(tOperation)
			case ReturnOp:
				insts, err = l.HandleReturnOp(tOperation)
			default:
				err = diag.Errorf(diag.SyntaxError, "unrecognized operation '%T'", operation)
			}

			if err != nil {
				return nil, diag.Wrapf(err, "module '%s'", module.Name)
			}
			program = append(program, insts...)
		}
	}

	return program, nil
}

// Mints the next unique label suffix (monotonic per translation).
func (l *Lowerer) nextID() string {
	id := fmt.Sprintf("%04x", l.nLabels)
	l.nLabels++
	return id
}

// The closing sequence of every push: stores D on the stack top and bumps SP.
func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// Specialized function to convert a 'vm.MemoryOp' to a list of 'asm.Instruction'.
func (l *Lowerer) HandleMemoryOp(op MemoryOp) ([]asm.Instruction, error) {
	// Bound checking on segments that do have an upper bound to the allowed offsets
	if op.Segment == Pointer && op.Offset > 1 {
		return nil, diag.Errorf(diag.SemanticError, "invalid 'pointer' offset, got %d", op.Offset)
	}
	if op.Segment == Temp && op.Offset > 7 {
		return nil, diag.Errorf(diag.SemanticError, "invalid 'temp' offset, got %d", op.Offset)
	}

	if op.Operation == Push {
		var load []asm.Instruction

		switch {
		case op.Segment == Constant: // The offset itself is the pushed value
			load = []asm.Instruction{
				asm.AInstruction{Location: fmt.Sprint(op.Offset)},
				asm.CInstruction{Dest: "D", Comp: "A"},
			}
		case baseTable[op.Segment] != "": // Dereference base pointer + offset
			load = []asm.Instruction{
				asm.AInstruction{Location: fmt.Sprint(op.Offset)},
				asm.CInstruction{Dest: "D", Comp: "A"},
				asm.AInstruction{Location: baseTable[op.Segment]},
				asm.CInstruction{Dest: "A", Comp: "D+M"},
				asm.CInstruction{Dest: "D", Comp: "M"},
			}
		case aliasTable[op.Segment] != "": // Fixed register file + offset
			load = []asm.Instruction{
				asm.AInstruction{Location: fmt.Sprint(op.Offset)},
				asm.CInstruction{Dest: "D", Comp: "A"},
				asm.AInstruction{Location: aliasTable[op.Segment]},
				asm.CInstruction{Dest: "A", Comp: "D+A"},
				asm.CInstruction{Dest: "D", Comp: "M"},
			}
		case op.Segment == Static: // Module-namespaced assembly symbol
			load = []asm.Instruction{
				asm.AInstruction{Location: fmt.Sprintf("%s.%d", l.module, op.Offset)},
				asm.CInstruction{Dest: "D", Comp: "M"},
			}
		default:
			return nil, diag.Errorf(diag.SyntaxError, "unrecognized segment '%s'", op.Segment)
		}

		return append(load, pushD()...), nil
	}

	if op.Operation == Pop {
		switch {
		case op.Segment == Constant:
			return nil, diag.Errorf(diag.SemanticError, "cannot pop into the 'constant' segment")
		case op.Segment == Static:
			return []asm.Instruction{
				asm.AInstruction{Location: "SP"},
				asm.CInstruction{Dest: "AM", Comp: "M-1"},
				asm.CInstruction{Dest: "D", Comp: "M"},
				asm.AInstruction{Location: fmt.Sprintf("%s.%d", l.module, op.Offset)},
				asm.CInstruction{Dest: "M", Comp: "D"},
			}, nil
		}

		// For the relative segments the effective address is computed first and
		// parked in R13, since both A and D are needed to pop the stack top.
		var address []asm.Instruction

		if base := baseTable[op.Segment]; base != "" {
			address = []asm.Instruction{
				asm.AInstruction{Location: fmt.Sprint(op.Offset)},
				asm.CInstruction{Dest: "D", Comp: "A"},
				asm.AInstruction{Location: base},
				asm.CInstruction{Dest: "D", Comp: "D+M"},
			}
		} else if alias := aliasTable[op.Segment]; alias != "" {
			address = []asm.Instruction{
				asm.AInstruction{Location: fmt.Sprint(op.Offset)},
				asm.CInstruction{Dest: "D", Comp: "A"},
				asm.AInstruction{Location: alias},
				asm.CInstruction{Dest: "D", Comp: "D+A"},
			}
		} else {
			return nil, diag.Errorf(diag.SyntaxError, "unrecognized segment '%s'", op.Segment)
		}

		return append(address,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil
	}

	return nil, diag.Errorf(diag.SyntaxError, "unrecognized memory operation '%s'", op.Operation)
}

// Specialized function to convert a 'vm.ArithmeticOp' to a list of 'asm.Instruction'.
//
// Binary operations pop y into D and overwrite x (still on the stack) in place,
// unary ones rewrite the stack top without moving SP. Comparisons lower to a
// conditional jump over a pair of freshly minted labels and leave -1 (true) or
// 0 (false) on the stack.
func (l *Lowerer) HandleArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	if comp, found := binaryTable[op.Operation]; found {
		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.CInstruction{Dest: "A", Comp: "A-1"},
			asm.CInstruction{Dest: "M", Comp: comp},
		}, nil
	}

	if comp, found := unaryTable[op.Operation]; found {
		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: comp},
		}, nil
	}

	if jump, found := compareTable[op.Operation]; found {
		id := l.nextID()
		trueLabel := fmt.Sprintf("%s_true_%s", op.Operation, id)
		returnLabel := fmt.Sprintf("%s_return_%s", op.Operation, id)

		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.CInstruction{Dest: "A", Comp: "A-1"},
			asm.CInstruction{Dest: "D", Comp: "M-D"},
			asm.AInstruction{Location: trueLabel},
			asm.CInstruction{Comp: "D", Jump: jump},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "0"},
			asm.AInstruction{Location: returnLabel},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
			asm.LabelDecl{Name: trueLabel},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "-1"},
			asm.LabelDecl{Name: returnLabel},
		}, nil
	}

	return nil, diag.Errorf(diag.SyntaxError, "unrecognized arithmetic operation '%s'", op.Operation)
}

// Specialized function to convert a 'vm.LabelDecl' to a list of 'asm.Instruction'.
func (l *Lowerer) HandleLabelDecl(op LabelDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, diag.Errorf(diag.SyntaxError, "label declaration with empty name")
	}

	return []asm.Instruction{
		asm.LabelDecl{Name: fmt.Sprintf("%s.%s", l.module, op.Name)},
	}, nil
}

// Specialized function to convert a 'vm.GotoOp' to a list of 'asm.Instruction'.
func (l *Lowerer) HandleGotoOp(op GotoOp) ([]asm.Instruction, error) {
	if op.Label == "" {
		return nil, diag.Errorf(diag.SyntaxError, "jump with empty target label")
	}

	target := asm.AInstruction{Location: fmt.Sprintf("%s.%s", l.module, op.Label)}

	if op.Jump == Unconditional {
		return []asm.Instruction{target, asm.CInstruction{Comp: "0", Jump: "JMP"}}, nil
	}

	// Conditional jumps consume the stack top and branch when it's non-zero
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		target,
		asm.CInstruction{Comp: "D", Jump: "JNE"},
	}, nil
}

// Specialized function to convert a 'vm.FuncDecl' to a list of 'asm.Instruction'.
//
// Function names already carry their class prefix in the source so they are
// used verbatim as entry labels, the local variables are zero-initialized by
// pushing as many zeroes.
func (l *Lowerer) HandleFuncDecl(op FuncDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, diag.Errorf(diag.SyntaxError, "function declaration with empty name")
	}

	insts := []asm.Instruction{asm.LabelDecl{Name: op.Name}}
	for i := uint16(0); i < op.NLocals; i++ {
		insts = append(insts,
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "0"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
		)
	}

	return insts, nil
}

// Specialized function to convert a 'vm.FuncCallOp' to a list of 'asm.Instruction'.
//
// Implements the caller side of the calling convention: pushes the return address
// and the four saved pointers, repositions ARG below the already pushed arguments,
// rebases LCL and transfers control with an unconditional jump.
func (l *Lowerer) HandleFuncCallOp(op FuncCallOp) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, diag.Errorf(diag.SyntaxError, "function call with empty name")
	}

	returnLabel := fmt.Sprintf("%s$ret.%s", op.Name, l.nextID())

	insts := append([]asm.Instruction{
		asm.AInstruction{Location: returnLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}, pushD()...)

	for _, register := range []string{"LCL", "ARG", "THIS", "THAT"} {
		insts = append(insts, asm.AInstruction{Location: register}, asm.CInstruction{Dest: "D", Comp: "M"})
		insts = append(insts, pushD()...)
	}

	return append(insts,
		// ARG = SP - 5 - nArgs (the saved frame is 5 words long)
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(5 + op.NArgs)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// LCL = SP
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// Transfer control and declare the return address
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: returnLabel},
	), nil
}

// Specialized function to convert a 'vm.ReturnOp' to a list of 'asm.Instruction'.
//
// Implements the callee side of the calling convention: parks the frame pointer in
// R13 and the return address in R14, relocates the return value where the caller
// expects it (the base of its argument area), restores the caller's pointers from
// the saved frame and jumps back.
func (l *Lowerer) HandleReturnOp(op ReturnOp) ([]asm.Instruction, error) {
	insts := []asm.Instruction{
		// FRAME (R13) = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// RET (R14) = *(FRAME - 5), saved before *ARG is overwritten because for
		// a zero-argument call the return address lives exactly at *ARG
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// *ARG = pop() (the return value)
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	// Restore THAT, THIS, ARG, LCL from the saved frame, walking R13 downwards
	for _, register := range []string{"THAT", "THIS", "ARG", "LCL"} {
		insts = append(insts,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: register},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
	}

	return append(insts,
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	), nil
}
