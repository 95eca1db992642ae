package vm_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/vm"
)

func TestMemoryOp(t *testing.T) {
	// Instantiate a shared codegen instance for every test case
	codegen := vm.NewCodeGenerator(vm.Program{})

	test := func(inst vm.MemoryOp, expected string, fail bool) {
		t.Helper()
		res, err := codegen.GenerateMemoryOp(inst)
		if res != expected {
			t.Fail()
		}
		// 'err' should be not nil only if 'fail' is passed as true from the caller
		if (err != nil) != fail {
			t.Fail()
		}
	}

	t.Run("Valid data", func(t *testing.T) {
		test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 5}, "push constant 5", false)
		test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 3}, "pop local 3", false)
		test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 2}, "push argument 2", false)
		test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Static, Offset: 1}, "pop static 1", false)
		test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 1}, "push pointer 1", false)
		test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 7}, "pop temp 7", false)
	})

	t.Run("Invalid data", func(t *testing.T) {
		// Offset 8 for the temp segment is out of range (valid: 0-7)
		test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 8}, "", true)
		// Offset 2 for the pointer segment is out of range (valid: 0-1)
		test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 2}, "", true)
		// The constant segment is read-only
		test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Constant, Offset: 0}, "", true)
	})
}

func TestArithmeticOp(t *testing.T) {
	// Instantiate a shared codegen instance for every test case
	codegen := vm.NewCodeGenerator(vm.Program{})

	test := func(inst vm.ArithmeticOp, expected string) {
		t.Helper()
		res, err := codegen.GenerateArithmeticOp(inst)
		if res != expected || err != nil {
			t.Fail()
		}
	}

	t.Run("Valid data", func(t *testing.T) {
		test(vm.ArithmeticOp{Operation: vm.Add}, "add")
		test(vm.ArithmeticOp{Operation: vm.Sub}, "sub")
		test(vm.ArithmeticOp{Operation: vm.Neg}, "neg")
		test(vm.ArithmeticOp{Operation: vm.Eq}, "eq")
		test(vm.ArithmeticOp{Operation: vm.Gt}, "gt")
		test(vm.ArithmeticOp{Operation: vm.Lt}, "lt")
		test(vm.ArithmeticOp{Operation: vm.And}, "and")
		test(vm.ArithmeticOp{Operation: vm.Or}, "or")
		test(vm.ArithmeticOp{Operation: vm.Not}, "not")
	})
}

func TestLabelDecl(t *testing.T) {
	// Instantiate a shared codegen instance for every test case
	codegen := vm.NewCodeGenerator(vm.Program{})

	test := func(inst vm.LabelDecl, expected string, fail bool) {
		t.Helper()
		res, err := codegen.GenerateLabelDecl(inst)
		if res != expected {
			t.Fail()
		}
		// 'err' should be not nil only if 'fail' is passed as true from the caller
		if (err != nil) != fail {
			t.Fail()
		}
	}

	t.Run("Valid data", func(t *testing.T) {
		test(vm.LabelDecl{Name: "END"}, "label END", false)
		test(vm.LabelDecl{Name: "CHECK"}, "label CHECK", false)
		test(vm.LabelDecl{Name: "LOOP_START"}, "label LOOP_START", false)
	})

	t.Run("Invalid data", func(t *testing.T) {
		test(vm.LabelDecl{Name: ""}, "", true) // Empty label name
	})
}

func TestGotoOp(t *testing.T) {
	// Instantiate a shared codegen instance for every test case
	codegen := vm.NewCodeGenerator(vm.Program{})

	test := func(inst vm.GotoOp, expected string, fail bool) {
		t.Helper()
		res, err := codegen.GenerateGotoOp(inst)
		if res != expected {
			t.Fail()
		}
		// 'err' should be not nil only if 'fail' is passed as true from the caller
		if (err != nil) != fail {
			t.Fail()
		}
	}

	t.Run("Valid data", func(t *testing.T) {
		test(vm.GotoOp{Jump: vm.Unconditional, Label: "END"}, "goto END", false)
		test(vm.GotoOp{Jump: vm.Conditional, Label: "CHECK"}, "if-goto CHECK", false)
		test(vm.GotoOp{Jump: vm.Unconditional, Label: "LOOP_START"}, "goto LOOP_START", false)
		test(vm.GotoOp{Jump: vm.Conditional, Label: "FUNC_RET"}, "if-goto FUNC_RET", false)
	})

	t.Run("Invalid data", func(t *testing.T) {
		test(vm.GotoOp{Jump: vm.Unconditional, Label: ""}, "", true) // Empty label
		test(vm.GotoOp{Jump: vm.Conditional, Label: ""}, "", true)   // Empty label with valid jump
	})
}

func TestFuncDecl(t *testing.T) {
	// Instantiate a shared codegen instance for every test case
	codegen := vm.NewCodeGenerator(vm.Program{})

	test := func(inst vm.FuncDecl, expected string, fail bool) {
		t.Helper()
		res, err := codegen.GenerateFuncDecl(inst)
		if res != expected {
			t.Fail()
		}
		// 'err' should be not nil only if 'fail' is passed as true from the caller
		if (err != nil) != fail {
			t.Fail()
		}
	}

	t.Run("Valid data", func(t *testing.T) {
		test(vm.FuncDecl{Name: "Main.main", NLocals: 0}, "function Main.main 0", false)
		test(vm.FuncDecl{Name: "Math.multiply", NLocals: 2}, "function Math.multiply 2", false)
		test(vm.FuncDecl{Name: "LoopHandler", NLocals: 10}, "function LoopHandler 10", false)
		test(vm.FuncDecl{Name: "f", NLocals: 1}, "function f 1", false)
	})

	t.Run("Invalid data", func(t *testing.T) {
		test(vm.FuncDecl{Name: "", NLocals: 2}, "", true) // Empty function name
	})
}

func TestReturnOp(t *testing.T) {
	// Instantiate a shared codegen instance for every test case
	codegen := vm.NewCodeGenerator(vm.Program{})

	res, err := codegen.GenerateReturnOp(vm.ReturnOp{})
	if res != "return" || err != nil {
		t.Fail()
	}
}

func TestFuncCallOp(t *testing.T) {
	// Instantiate a shared codegen instance for every test case
	codegen := vm.NewCodeGenerator(vm.Program{})

	test := func(inst vm.FuncCallOp, expected string, fail bool) {
		t.Helper()
		res, err := codegen.GenerateFuncCallOp(inst)
		if res != expected {
			t.Fail()
		}
		// 'err' should be not nil only if 'fail' is passed as true from the caller
		if (err != nil) != fail {
			t.Fail()
		}
	}

	t.Run("Valid data", func(t *testing.T) {
		test(vm.FuncCallOp{Name: "Main.main", NArgs: 0}, "call Main.main 0", false)
		test(vm.FuncCallOp{Name: "Math.multiply", NArgs: 2}, "call Math.multiply 2", false)
		test(vm.FuncCallOp{Name: "Sys.init", NArgs: 0}, "call Sys.init 0", false)
		test(vm.FuncCallOp{Name: "String.appendChar", NArgs: 2}, "call String.appendChar 2", false)
	})

	t.Run("Invalid data", func(t *testing.T) {
		test(vm.FuncCallOp{Name: "", NArgs: 2}, "", true) // Empty function name
	})
}
