package vm

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	pc "github.com/prataprc/goparsec"

	"n2t.dev/toolchain/pkg/diag"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token & instruction of the Vm language.
//
// Each parser combinator either manages an operation (MemoryOp, ArithmeticOp, ...) or some
// pieces of it: namely tokens and identifiers. Also we manage comments inside the codebase
// that can either present themselves at the beginning of the line or in the middle.

// Top level object, will generate the traversable AST based on the input plus the PCs below.
var ast = pc.NewAST("virtual_machine", 0)

var (
	// Parser combinator for a VM module/class, in the nand2tetris VM there's a Java like
	// behavior where a program is composed of multiple '.vm' files ('.class' in Java) where
	// each contains the bytecode for the specific module/class (a separate translation unit).
	pModule = ast.ManyUntil("module", nil, ast.OrdChoice("node", nil, pComment, pOperation), pc.End())

	// Parser combinator for comments, both line ('//') and block ('/* */') forms
	pComment = ast.OrdChoice("comment", nil,
		ast.And("sl_comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT")),
		ast.And("ml_comment", nil, pc.Token(`/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`, "COMMENT")),
	)
	// Parser combinator for a generic VM operation (MemoryOp, ArithmeticOp, ...)
	pOperation = ast.OrdChoice("operation", nil,
		// Stack operations + label and jump operations
		pMemoryOp, pArithmeticOp, pLabelDecl, pGotoOp,
		// Function related operations and statements
		pFuncDecl, pFunCallOp, pReturnOp,
	)

	// Memory operation, compliant with the following syntax: "{push|pop} {segment} {index}"
	pMemoryOp = ast.And("memory_op", nil, pMemOpType, pSegment, pc.Int())
	// Arithmetic operation, could either be binary or unary (modifies only the stack)
	pArithmeticOp = ast.And("arithmetic_op", nil, pArithOpType)

	// Label declaration, compliant with the following syntax: "label {symbol}"
	pLabelDecl = ast.And("label_decl", nil, pc.Atom("label", "LABEL"), pIdent)
	// Jump operation, compliant with the following syntax: "{if-goto|goto} {symbol}"
	pGotoOp = ast.And("goto_op", nil, pJumpType, pIdent)

	// Function declaration, compliant with the following syntax: "function {name} {n_locals}"
	pFuncDecl = ast.And("func_decl", nil, pc.Atom("function", "FUNC"), pIdent, pc.Int())
	// Function call operation, compliant with the following syntax: "call {name} {n_args}"
	pFunCallOp = ast.And("func_call", nil, pc.Atom("call", "CALL"), pIdent, pc.Int())
	// Return operation, compliant with the following syntax: "return"
	pReturnOp = ast.And("return_op", nil, pc.Atom("return", "RETURN"))
)

var (
	// Generic Identifier parser (for label and function declarations)
	// NOTE: An ident can be any sequence of letters, digits, and symbols (_, ., $, :).
	// NOTE: An ident cannot begin with a leading digit (a symbol is indeed allowed).
	pIdent = pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "IDENT")

	// Available memory operation types (only push and pop since it's stack based)
	pMemOpType = ast.OrdChoice("mem_op_type", nil, pc.Atom("push", "PUSH"), pc.Atom("pop", "POP"))
	// Available memory segments (they act as registers and are used alongside the stack)
	pSegment = ast.OrdChoice("mem_segment", nil,
		pc.Atom("argument", "ARGUMENT"), pc.Atom("local", "LOCAL"),
		pc.Atom("static", "STATIC"), pc.Atom("constant", "CONSTANT"),
		pc.Atom("this", "THIS"), pc.Atom("that", "THAT"),
		pc.Atom("temp", "TEMP"), pc.Atom("pointer", "POINTER"),
	)

	// Available arithmetic operation types
	pArithOpType = ast.OrdChoice("operations", nil,
		// Comparison operations available on the VM bytecode
		pc.Atom("eq", "EQ"), pc.Atom("gt", "GT"), pc.Atom("lt", "LT"),
		// Arithmetic operations available on the VM bytecode
		pc.Atom("add", "ADD"), pc.Atom("sub", "SUB"), pc.Atom("neg", "NEG"),
		// Bit-a-bit operations available on the VM bytecode
		pc.Atom("not", "NOT"), pc.Atom("and", "AND"), pc.Atom("or", "OR"),
	)

	// Jump types can either be conditional (if-goto) or unconditional (goto).
	pJumpType = ast.OrdChoice("jump_type", nil, pc.Atom("goto", "GOTO"), pc.Atom("if-goto", "IF-GOTO"))
)

// ----------------------------------------------------------------------------
// Vm Parser

// This section defines the Parser for the nand2tetris Vm language.
//
// It uses parser combinators to obtain the AST from the source code (the latter can be
// provided in multiple ways using a generic io.Reader), the library reads up the feature
// flags (as env vars):
// - PARSEC_DEBUG: Verbose logging to inspect which of the PCs gets triggered and match
// - EXPORT_AST:   Exports in the DEBUG_FOLDER a Graphviz representation of the AST
// - PRINT_AST:    Print on the stdout a textual representation of the AST
type Parser struct {
	reader io.Reader
	name   string // The translation unit name bound to the parsed module
}

// Initializes and returns to the caller a brand new 'Parser' struct.
// Requires the argument io.Reader 'r' to be valid and usable, 'name' is the
// translation unit name (filename without extension) of the parsed module.
func NewParser(r io.Reader, name string) Parser {
	return Parser{reader: r, name: name}
}

// Parser entrypoint divides the 2 phases of the parsing pipeline
// Text --> AST: This step is done using PCs and returns a generic traversable AST
// AST --> IR: This step is done by traversing the AST and extracting the 'vm.Module'
func (p *Parser) Parse() (Module, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return Module{}, diag.Errorf(diag.IOError, "cannot read from 'io.Reader': %s", err)
	}

	root, success := p.FromSource(content)
	if !success {
		return Module{}, diag.Errorf(diag.SyntaxError, "unable to parse module '%s'%s", p.name, offendingLine(content))
	}

	return p.FromAST(root)
}

// Scans the textual input stream coming from the 'reader' method and returns a traversable AST
// (Abstract Syntax Tree) that can be eventually visited to extract/transform the info available.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {

	// Feature flag: Enable 'goparsec' library's debug logs
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	// We generate the traversable Abstract Syntax Tree from the source content
	root, rest := ast.Parsewith(pModule, pc.NewScanner(source))

	// Feature flag: Enables export of the AST as Dot file (debug.ast.dot)
	if os.Getenv("EXPORT_AST") != "" {
		file, _ := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		defer file.Close()

		file.Write([]byte(ast.Dotstring("\"VM AST\"")))
	}

	// Feature flag: Enables pretty printing of the AST on the console
	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	// 'pModule' stops at the first line that matches no command form and still
	// returns the operations before it, so the parse only succeeds when the
	// scanner reached the end of the input (trailing whitespace aside).
	if root == nil {
		return nil, false
	}
	_, rest = rest.SkipWS()
	return root, rest.Endof()
}

// On a failed parse, retries each significant line in isolation to name the first
// offending one in the returned diagnostic.
func offendingLine(source []byte) string {
	for n, line := range strings.Split(string(source), "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if root, _ := ast.Parsewith(pOperation, pc.NewScanner([]byte(line))); root == nil {
			return fmt.Sprintf(", offending line %d: '%s'", n+1, line)
		}
	}
	return ""
}

// This function takes the root node of the raw parsed AST and does a DFS on it parsing
// one by one each subtree and returning a 'vm.Module' that can be used as in-memory and
// type-safe AST not dependent on the parsing library used.
func (p *Parser) FromAST(root pc.Queryable) (Module, error) {
	module := Module{Name: p.name}

	if root.GetName() != "module" {
		return Module{}, diag.Errorf(diag.SyntaxError, "expected node 'module', found '%s'", root.GetName())
	}

	for _, child := range root.GetChildren() {
		var op Operation
		var err error

		switch child.GetName() {
		case "memory_op": // Memory operation subtree, appends 'vm.MemoryOp'
			op, err = p.HandleMemoryOp(child)
		case "arithmetic_op": // Arithmetic operation subtree, appends 'vm.ArithmeticOp'
			op, err = p.HandleArithmeticOp(child)
		case "label_decl": // Label declaration subtree, appends 'vm.LabelDecl'
			op, err = p.HandleLabelDecl(child)
		case "goto_op": // Goto operation subtree, appends 'vm.GotoOp'
			op, err = p.HandleGotoOp(child)
		case "func_decl": // Function declaration subtree, appends 'vm.FuncDecl'
			op, err = p.HandleFuncDecl(child)
		case "return_op": // Return operation subtree, appends 'vm.ReturnOp'
			op, err = p.HandleReturnOp(child)
		case "func_call": // Function call operation subtree, appends 'vm.FuncCallOp'
			op, err = p.HandleFuncCall(child)
		case "comment", "sl_comment", "ml_comment": // Comment nodes in the AST are just skipped
			continue
		default: // Error case, unrecognized subtree in the AST
			return Module{}, diag.Errorf(diag.SyntaxError, "unrecognized node '%s'", child.GetName())
		}

		if err != nil {
			return Module{}, err
		}
		module.Ops = append(module.Ops, op)
	}

	return module, nil
}

// Specialized function to convert a "memory_op" node to a 'vm.MemoryOp'.
func (Parser) HandleMemoryOp(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, diag.Errorf(diag.SyntaxError, "expected node 'memory_op' with 3 leaves, got %d", len(children))
	}

	operation := OperationType(children[0].GetValue())
	segment := SegmentType(children[1].GetValue())
	offset, err := strconv.ParseUint(children[2].GetValue(), 10, 16)
	if err != nil {
		return nil, diag.Errorf(diag.SyntaxError, "failed to parse 'offset' in memory operation, got '%s'", children[2].GetValue())
	}

	return MemoryOp{Operation: operation, Segment: segment, Offset: uint16(offset)}, nil
}

// Specialized function to convert an "arithmetic_op" node to a 'vm.ArithmeticOp'.
func (Parser) HandleArithmeticOp(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 1 {
		return nil, diag.Errorf(diag.SyntaxError, "expected node 'arithmetic_op' with 1 leaf, got %d", len(children))
	}

	return ArithmeticOp{Operation: ArithOpType(children[0].GetValue())}, nil
}

// Specialized function to convert a "label_decl" node to a 'vm.LabelDecl'.
func (Parser) HandleLabelDecl(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 2 {
		return nil, diag.Errorf(diag.SyntaxError, "expected node 'label_decl' with 2 leaves, got %d", len(children))
	}

	return LabelDecl{Name: children[1].GetValue()}, nil
}

// Specialized function to convert a "goto_op" node to a 'vm.GotoOp'.
func (Parser) HandleGotoOp(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 2 {
		return nil, diag.Errorf(diag.SyntaxError, "expected node 'goto_op' with 2 leaves, got %d", len(children))
	}

	return GotoOp{Jump: JumpType(children[0].GetValue()), Label: children[1].GetValue()}, nil
}

// Specialized function to convert a "func_decl" node to a 'vm.FuncDecl'.
func (Parser) HandleFuncDecl(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, diag.Errorf(diag.SyntaxError, "expected node 'func_decl' with 3 leaves, got %d", len(children))
	}

	nLocals, err := strconv.ParseUint(children[2].GetValue(), 10, 16)
	if err != nil {
		return nil, diag.Errorf(diag.SyntaxError, "failed to parse 'n_locals' in function declaration, got '%s'", children[2].GetValue())
	}

	return FuncDecl{Name: children[1].GetValue(), NLocals: uint16(nLocals)}, nil
}

// Specialized function to convert a "return_op" node to a 'vm.ReturnOp'.
func (Parser) HandleReturnOp(node pc.Queryable) (Operation, error) {
	return ReturnOp{}, nil
}

// Specialized function to convert a "func_call" node to a 'vm.FuncCallOp'.
func (Parser) HandleFuncCall(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, diag.Errorf(diag.SyntaxError, "expected node 'func_call' with 3 leaves, got %d", len(children))
	}

	nArgs, err := strconv.ParseUint(children[2].GetValue(), 10, 16)
	if err != nil {
		return nil, diag.Errorf(diag.SyntaxError, "failed to parse 'n_args' in function call, got '%s'", children[2].GetValue())
	}

	return FuncCallOp{Name: children[1].GetValue(), NArgs: uint16(nArgs)}, nil
}
