package jack

import (
	"fmt"
	"strconv"

	"n2t.dev/toolchain/pkg/diag"
	"n2t.dev/toolchain/pkg/vm"
)

// ----------------------------------------------------------------------------
// Jack Lowerer

// The Lowerer takes a 'jack.Class' and produces its 'vm.Module' counterpart.
//
// Classes compile independently (one .vm module per class), so the Lowerer is
// scoped to a single class: it owns the class' ScopeTable and the monotonic
// counter minting the control-flow label ids (unique per class, reset for each
// one, so recompiling the same source yields the same module byte for byte).
// VM operations are emitted during a DFS of the typed AST, one helper per node
// type, much like a recursive descent parser but for lowering.
type Lowerer struct {
	class   Class       // The class being lowered
	scopes  *ScopeTable // Tracks the class and subroutine scopes
	current *Subroutine // The subroutine currently being lowered
	nLabels uint        // Monotonic seed for control-flow label ids
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
func NewLowerer(c Class) Lowerer {
	return Lowerer{class: c, scopes: NewScopeTable()}
}

// Triggers the lowering process: registers the class-level variables and then
// lowers subroutine by subroutine in declaration order.
func (l *Lowerer) Lower() (vm.Module, error) {
	module := vm.Module{Name: l.class.Name}

	for _, field := range l.class.Fields.Entries() {
		if err := l.scopes.Define(field.Value); err != nil {
			return vm.Module{}, diag.Wrapf(err, "class '%s'", l.class.Name)
		}
	}

	for _, subroutine := range l.class.Subroutines.Entries() {
		ops, err := l.HandleSubroutine(subroutine.Value)
		if err != nil {
			return vm.Module{}, diag.Wrapf(err, "subroutine '%s.%s'", l.class.Name, subroutine.Key)
		}
		module.Ops = append(module.Ops, ops...)
	}

	return module, nil
}

// Mints the next control-flow label id (shared by the labels of one statement).
func (l *Lowerer) nextID() string {
	id := fmt.Sprint(l.nLabels)
	l.nLabels++
	return id
}

// Specialized function to convert a 'jack.Subroutine' node to a list of 'vm.Operation'.
//
// The three subroutine flavors differ only in their prelude:
// - constructors allocate the object (one word per field) and anchor 'this' to it;
// - methods receive the object as a synthetic first argument and anchor 'this' to that;
// - functions have no prelude at all.
func (l *Lowerer) HandleSubroutine(subroutine Subroutine) ([]vm.Operation, error) {
	l.scopes.StartSubroutine()
	l.current = &subroutine

	// Methods can both read and write the instance fields, so they receive the
	// object pointer as a synthetic first argument shifting the real ones by one.
	if subroutine.Type == Method {
		this := Variable{Name: "this", VarType: Parameter, DataType: DataType{Main: Object, Subtype: l.class.Name}}
		if err := l.scopes.Define(this); err != nil {
			return nil, err
		}
	}

	for _, argument := range subroutine.Arguments {
		if err := l.scopes.Define(argument); err != nil {
			return nil, err
		}
	}
	for _, local := range subroutine.Locals {
		if err := l.scopes.Define(local); err != nil {
			return nil, err
		}
	}

	ops := []vm.Operation{vm.FuncDecl{
		Name:    fmt.Sprintf("%s.%s", l.class.Name, subroutine.Name),
		NLocals: l.scopes.VarCount(Local),
	}}

	switch subroutine.Type {
	case Constructor:
		// Each field is exactly one word long, so the allocation size is the
		// field count of the class (statics live elsewhere and don't count).
		ops = append(ops,
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: l.scopes.VarCount(Field)},
			vm.FuncCallOp{Name: "Memory.alloc", NArgs: 1},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
		)
	case Method:
		ops = append(ops,
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
		)
	}

	body, err := l.HandleStatements(subroutine.Statements)
	if err != nil {
		return nil, err
	}

	return append(ops, body...), nil
}

// Generalized function to lower a statement list returning a 'vm.Operation' list.
func (l *Lowerer) HandleStatements(statements []Statement) ([]vm.Operation, error) {
	ops := []vm.Operation{}

	for _, statement := range statements {
		var lowered []vm.Operation
		var err error

		switch tStmt := statement.(type) {
		case LetStmt:
			lowered, err = l.HandleLetStmt(tStmt)
		case IfStmt:
			lowered, err = l.HandleIfStmt(tStmt)
		case WhileStmt:
			lowered, err = l.HandleWhileStmt(tStmt)
		case DoStmt:
			lowered, err = l.HandleDoStmt(tStmt)
		case ReturnStmt:
			lowered, err = l.HandleReturnStmt(tStmt)
		default:
			err = diag.Errorf(diag.SyntaxError, "unrecognized statement '%T'", statement)
		}

		if err != nil {
			return nil, err
		}
		ops = append(ops, lowered...)
	}

	return ops, nil
}

// Specialized function to convert a 'jack.LetStmt' to a list of 'vm.Operation'.
func (l *Lowerer) HandleLetStmt(statement LetStmt) ([]vm.Operation, error) {
	// Plain variable target: evaluate the RHS and pop it straight into the slot
	if target, isVar := statement.Lhs.(VarExpr); isVar {
		info, found := l.scopes.Resolve(target.Var)
		if !found {
			return nil, diag.Errorf(diag.SemanticError, "assignment to undeclared variable '%s'", target.Var)
		}

		ops, err := l.HandleExpression(statement.Rhs)
		if err != nil {
			return nil, err
		}
		return append(ops, vm.MemoryOp{Operation: vm.Pop, Segment: SegmentOf[info.Kind], Offset: info.Index}), nil
	}

	// Array cell target: compute the cell address first (index + base), then the
	// RHS, then shuffle through temp 0 so the address survives the evaluation and
	// can be anchored to the THAT pointer only at the very end.
	if target, isArray := statement.Lhs.(ArrayExpr); isArray {
		ops, err := l.HandleExpression(target.Index)
		if err != nil {
			return nil, err
		}

		base, err := l.HandleVarExpr(VarExpr{Var: target.Var})
		if err != nil {
			return nil, err
		}
		ops = append(append(ops, base...), vm.ArithmeticOp{Operation: vm.Add})

		rhs, err := l.HandleExpression(statement.Rhs)
		if err != nil {
			return nil, err
		}

		return append(append(ops, rhs...),
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.That, Offset: 0},
		), nil
	}

	return nil, diag.Errorf(diag.SyntaxError, "assignment target must be a variable or an array cell, got '%T'", statement.Lhs)
}

// Specialized function to convert a 'jack.IfStmt' to a list of 'vm.Operation'.
//
// The condition branches to IF_TRUE/IF_FALSE, the else-less form reuses IF_FALSE
// as the join point while the two-armed form adds a dedicated IF_END join label.
func (l *Lowerer) HandleIfStmt(statement IfStmt) ([]vm.Operation, error) {
	id := l.nextID()
	trueLabel := fmt.Sprintf("IF_TRUE_%s", id)
	falseLabel := fmt.Sprintf("IF_FALSE_%s", id)
	endLabel := fmt.Sprintf("IF_END_%s", id)

	ops, err := l.HandleExpression(statement.Condition)
	if err != nil {
		return nil, err
	}
	ops = append(ops,
		vm.GotoOp{Jump: vm.Conditional, Label: trueLabel},
		vm.GotoOp{Jump: vm.Unconditional, Label: falseLabel},
		vm.LabelDecl{Name: trueLabel},
	)

	thenOps, err := l.HandleStatements(statement.ThenBlock)
	if err != nil {
		return nil, err
	}
	ops = append(ops, thenOps...)

	if !statement.HasElse {
		return append(ops, vm.LabelDecl{Name: falseLabel}), nil
	}

	elseOps, err := l.HandleStatements(statement.ElseBlock)
	if err != nil {
		return nil, err
	}

	return append(append(ops,
		vm.GotoOp{Jump: vm.Unconditional, Label: endLabel},
		vm.LabelDecl{Name: falseLabel}),
		append(elseOps, vm.LabelDecl{Name: endLabel})...,
	), nil
}

// Specialized function to convert a 'jack.WhileStmt' to a list of 'vm.Operation'.
//
// The condition is negated so the conditional jump reads as "exit when false".
func (l *Lowerer) HandleWhileStmt(statement WhileStmt) ([]vm.Operation, error) {
	id := l.nextID()
	expLabel := fmt.Sprintf("WHILE_EXP_%s", id)
	endLabel := fmt.Sprintf("WHILE_END_%s", id)

	ops := []vm.Operation{vm.LabelDecl{Name: expLabel}}

	condition, err := l.HandleExpression(statement.Condition)
	if err != nil {
		return nil, err
	}
	ops = append(append(ops, condition...),
		vm.ArithmeticOp{Operation: vm.Not},
		vm.GotoOp{Jump: vm.Conditional, Label: endLabel},
	)

	block, err := l.HandleStatements(statement.Block)
	if err != nil {
		return nil, err
	}

	return append(append(ops, block...),
		vm.GotoOp{Jump: vm.Unconditional, Label: expLabel},
		vm.LabelDecl{Name: endLabel},
	), nil
}

// Specialized function to convert a 'jack.DoStmt' to a list of 'vm.Operation'.
func (l *Lowerer) HandleDoStmt(statement DoStmt) ([]vm.Operation, error) {
	ops, err := l.HandleFuncCallExpr(statement.Call)
	if err != nil {
		return nil, err
	}

	// Do statements ignore the produced value, so it's dropped into temp 0
	return append(ops, vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0}), nil
}

// Specialized function to convert a 'jack.ReturnStmt' to a list of 'vm.Operation'.
func (l *Lowerer) HandleReturnStmt(statement ReturnStmt) ([]vm.Operation, error) {
	if statement.Expr == nil {
		// Void returns still push a value, the calling convention always leaves
		// one on the stack (the caller's 'do' wrapper discards it).
		return []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
			vm.ReturnOp{},
		}, nil
	}

	if l.current != nil && l.current.Return.Main == Void {
		return nil, diag.Errorf(diag.SemanticError, "void subroutine '%s' cannot return a value", l.current.Name)
	}

	ops, err := l.HandleExpression(statement.Expr)
	if err != nil {
		return nil, err
	}

	return append(ops, vm.ReturnOp{}), nil
}

// Generalized function to lower multiple expression types returning a 'vm.Operation' list.
func (l *Lowerer) HandleExpression(expression Expression) ([]vm.Operation, error) {
	switch tExpr := expression.(type) {
	case VarExpr:
		return l.HandleVarExpr(tExpr)
	case LiteralExpr:
		return l.HandleLiteralExpr(tExpr)
	case ArrayExpr:
		return l.HandleArrayExpr(tExpr)
	case UnaryExpr:
		return l.HandleUnaryExpr(tExpr)
	case BinaryExpr:
		return l.HandleBinaryExpr(tExpr)
	case FuncCallExpr:
		return l.HandleFuncCallExpr(tExpr)
	default:
		return nil, diag.Errorf(diag.SyntaxError, "unrecognized expression '%T'", expression)
	}
}

// Specialized function to convert a 'jack.VarExpr' to a list of 'vm.Operation'.
func (l *Lowerer) HandleVarExpr(expression VarExpr) ([]vm.Operation, error) {
	if expression.Var == "this" {
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0}}, nil
	}

	info, found := l.scopes.Resolve(expression.Var)
	if !found {
		return nil, diag.Errorf(diag.SemanticError, "use of undeclared variable '%s'", expression.Var)
	}

	return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: SegmentOf[info.Kind], Offset: info.Index}}, nil
}

// Specialized function to convert a 'jack.LiteralExpr' to a list of 'vm.Operation'.
func (l *Lowerer) HandleLiteralExpr(expression LiteralExpr) ([]vm.Operation, error) {
	switch expression.Type.Main {
	case Int:
		value, err := strconv.ParseUint(expression.Value, 10, 16)
		if err != nil {
			return nil, diag.Errorf(diag.LexError, "invalid integer literal '%s'", expression.Value)
		}
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(value)}}, nil

	case Bool:
		// 'true' is all ones (-1), obtained by negating the constant 1
		if expression.Value == "true" {
			return []vm.Operation{
				vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1},
				vm.ArithmeticOp{Operation: vm.Neg},
			}, nil
		}
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0}}, nil

	case Object: // The only object literal is 'null', i.e. address zero
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0}}, nil

	case String:
		// String literals lower to a String.new of the right capacity followed
		// by one appendChar per character (appendChar returns the string itself,
		// so the chain leaves the object on the stack).
		ops := []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(len(expression.Value))},
			vm.FuncCallOp{Name: "String.new", NArgs: 1},
		}
		for _, char := range expression.Value {
			ops = append(ops,
				vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(char)},
				vm.FuncCallOp{Name: "String.appendChar", NArgs: 2},
			)
		}
		return ops, nil

	default:
		return nil, diag.Errorf(diag.SyntaxError, "unrecognized literal type '%s'", expression.Type.Main)
	}
}

// Specialized function to convert a 'jack.ArrayExpr' to a list of 'vm.Operation'.
//
// The cell address (index + base) is anchored to the THAT pointer and the cell
// value read back through 'that 0'.
func (l *Lowerer) HandleArrayExpr(expression ArrayExpr) ([]vm.Operation, error) {
	ops, err := l.HandleExpression(expression.Index)
	if err != nil {
		return nil, err
	}

	base, err := l.HandleVarExpr(VarExpr{Var: expression.Var})
	if err != nil {
		return nil, err
	}

	return append(append(ops, base...),
		vm.ArithmeticOp{Operation: vm.Add},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.That, Offset: 0},
	), nil
}

// Specialized function to convert a 'jack.UnaryExpr' to a list of 'vm.Operation'.
func (l *Lowerer) HandleUnaryExpr(expression UnaryExpr) ([]vm.Operation, error) {
	ops, err := l.HandleExpression(expression.Rhs)
	if err != nil {
		return nil, err
	}

	switch expression.Type {
	case Negation:
		return append(ops, vm.ArithmeticOp{Operation: vm.Neg}), nil
	case BoolNot:
		return append(ops, vm.ArithmeticOp{Operation: vm.Not}), nil
	default:
		return nil, diag.Errorf(diag.SyntaxError, "unrecognized unary operator '%s'", expression.Type)
	}
}

// Specialized function to convert a 'jack.BinaryExpr' to a list of 'vm.Operation'.
//
// Operands emit in reverse-Polish order, the operator comes last. Multiplication
// and division have no VM opcode and lower to their OS routines.
func (l *Lowerer) HandleBinaryExpr(expression BinaryExpr) ([]vm.Operation, error) {
	ops, err := l.HandleExpression(expression.Lhs)
	if err != nil {
		return nil, err
	}

	rhs, err := l.HandleExpression(expression.Rhs)
	if err != nil {
		return nil, err
	}
	ops = append(ops, rhs...)

	switch expression.Type {
	case Plus:
		return append(ops, vm.ArithmeticOp{Operation: vm.Add}), nil
	case Minus:
		return append(ops, vm.ArithmeticOp{Operation: vm.Sub}), nil
	case Multiply:
		return append(ops, vm.FuncCallOp{Name: "Math.multiply", NArgs: 2}), nil
	case Divide:
		return append(ops, vm.FuncCallOp{Name: "Math.divide", NArgs: 2}), nil
	case BoolAnd:
		return append(ops, vm.ArithmeticOp{Operation: vm.And}), nil
	case BoolOr:
		return append(ops, vm.ArithmeticOp{Operation: vm.Or}), nil
	case Equal:
		return append(ops, vm.ArithmeticOp{Operation: vm.Eq}), nil
	case LessThan:
		return append(ops, vm.ArithmeticOp{Operation: vm.Lt}), nil
	case GreatThan:
		return append(ops, vm.ArithmeticOp{Operation: vm.Gt}), nil
	default:
		return nil, diag.Errorf(diag.SyntaxError, "unrecognized binary operator '%s'", expression.Type)
	}
}

// Specialized function to convert a 'jack.FuncCallExpr' to a list of 'vm.Operation'.
//
// Call dispatch depends on what the receiver resolves to:
// - a declared variable: method call on that object, the object is pushed as the
//   extra first argument and the callee class is the variable's declared type;
// - a bare name matching a method of the current class: implicit 'this' call;
// - a bare name matching a function/constructor of the current class: plain call;
// - anything else with a receiver: plain function or OS call, name used verbatim.
func (l *Lowerer) HandleFuncCallExpr(expression FuncCallExpr) ([]vm.Operation, error) {
	ops, callee, nArgs := []vm.Operation{}, "", uint16(len(expression.Arguments))

	if expression.Receiver != "" {
		if info, found := l.scopes.Resolve(expression.Receiver); found {
			if info.Type.Main != Object {
				return nil, diag.Errorf(diag.SemanticError, "variable '%s' of type '%s' has no methods", expression.Receiver, info.Type.Main)
			}
			ops = append(ops, vm.MemoryOp{Operation: vm.Push, Segment: SegmentOf[info.Kind], Offset: info.Index})
			callee, nArgs = fmt.Sprintf("%s.%s", info.Type.Subtype, expression.FuncName), nArgs+1
		} else {
			callee = fmt.Sprintf("%s.%s", expression.Receiver, expression.FuncName)
		}
	} else {
		target, found := l.class.Subroutines.Get(expression.FuncName)
		if !found {
			return nil, diag.Errorf(diag.SemanticError, "call to undefined subroutine '%s' in class '%s'", expression.FuncName, l.class.Name)
		}

		callee = fmt.Sprintf("%s.%s", l.class.Name, expression.FuncName)
		if target.Type == Method {
			ops = append(ops, vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0})
			nArgs++
		}
	}

	for _, argument := range expression.Arguments {
		lowered, err := l.HandleExpression(argument)
		if err != nil {
			return nil, err
		}
		ops = append(ops, lowered...)
	}

	return append(ops, vm.FuncCallOp{Name: callee, NArgs: nArgs}), nil
}
