package asm_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/asm"
)

func TestGenerateAInst(t *testing.T) {
	// Instantiate a shared codegen instance for every test case
	codegen := asm.NewCodeGenerator(asm.Program{})

	test := func(inst asm.AInstruction, expected string, fail bool) {
		t.Helper()
		res, err := codegen.GenerateAInst(inst)
		if res != expected {
			t.Fail()
		}
		// 'err' should be not nil only if 'fail' is passed as true from the caller
		if (err != nil) != fail {
			t.Fail()
		}
	}

	t.Run("Valid data", func(t *testing.T) {
		test(asm.AInstruction{Location: "2"}, "@2", false)
		test(asm.AInstruction{Location: "SP"}, "@SP", false)
		test(asm.AInstruction{Location: "Main.0"}, "@Main.0", false)
		test(asm.AInstruction{Location: "Sys.init$ret.0000"}, "@Sys.init$ret.0000", false)
	})

	t.Run("Invalid data", func(t *testing.T) {
		test(asm.AInstruction{Location: ""}, "", true) // Empty location
	})
}

func TestGenerateCInst(t *testing.T) {
	// Instantiate a shared codegen instance for every test case
	codegen := asm.NewCodeGenerator(asm.Program{})

	test := func(inst asm.CInstruction, expected string, fail bool) {
		t.Helper()
		res, err := codegen.GenerateCInst(inst)
		if res != expected {
			t.Fail()
		}
		// 'err' should be not nil only if 'fail' is passed as true from the caller
		if (err != nil) != fail {
			t.Fail()
		}
	}

	t.Run("Valid data", func(t *testing.T) {
		test(asm.CInstruction{Dest: "D", Comp: "A"}, "D=A", false)
		test(asm.CInstruction{Comp: "0", Jump: "JMP"}, "0;JMP", false)
		test(asm.CInstruction{Dest: "AM", Comp: "M-1"}, "AM=M-1", false)
		test(asm.CInstruction{Dest: "M", Comp: "M+1", Jump: "JGT"}, "M=M+1;JGT", false)
		test(asm.CInstruction{Comp: "D"}, "D", false)
	})

	t.Run("Invalid data", func(t *testing.T) {
		test(asm.CInstruction{Dest: "D"}, "", true) // Missing comp directive
	})
}

func TestGenerateLabelDecl(t *testing.T) {
	// Instantiate a shared codegen instance for every test case
	codegen := asm.NewCodeGenerator(asm.Program{})

	test := func(inst asm.LabelDecl, expected string, fail bool) {
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
		test(asm.LabelDecl{Name: "LOOP"}, "(LOOP)", false)
		test(asm.LabelDecl{Name: "Main.main"}, "(Main.main)", false)
		test(asm.LabelDecl{Name: "eq_true_0000"}, "(eq_true_0000)", false)
	})

	t.Run("Invalid data", func(t *testing.T) {
		test(asm.LabelDecl{Name: ""}, "", true)   // Empty label name
		test(asm.LabelDecl{Name: "SP"}, "", true) // Built-in names are reserved
	})
}
