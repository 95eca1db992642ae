package jack

import "n2t.dev/toolchain/pkg/utils"

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the Jack programming language.
//
// A program is basically a container of classes (the only top-level object allowed)
// and the program is started by locating the Main class and executing its 'main' method.
// Other than classes the other main constructs are:
// - Variables: to declare containers of value (also used for class' fields)
// - Subroutines: to declare containers of instructions (also used for class' methods)
// - Statements: to perform a side effect, conditional jump or other program flow changes
// - Expressions: to perform a calculation that produces a result (arithmetic ops and so on...)

// ----------------------------------------------------------------------------
// Classes

// A Class is a list of Fields that contain the state and Subroutines to change said state.
//
// In the Jack spec each class is compiled to its own .vm file (just like Java .class files)
// so the class is the compilation unit of the language: classes never reference each other's
// internals and compile independently.
type Class struct {
	Name        string                               // The class name, also identifies the instantiated object type
	Fields      utils.OrderedMap[string, Variable]   // The static and instance variables, in declaration order
	Subroutines utils.OrderedMap[string, Subroutine] // The subroutines, in declaration order
}

// ----------------------------------------------------------------------------
// Subroutines

// A Subroutine is somewhat like a math function: it takes a series of inputs and returns an output.
//
// As part of its computation (statement evaluation) it may change the state of some variables in
// the program either by direct manipulation of the class' fields (static or not) or by just
// returning values that will influence the program flow once returned to the caller.
type Subroutine struct {
	Name string         // Name/id, together with the class id identifies the subroutine universally
	Type SubroutineType // Subroutine flavor, determines the codegen strategy for the prelude

	Return    DataType   // The type of value returned by the subroutine ('void' for no value)
	Arguments []Variable // The parameters in declaration order (their order fixes the 'argument' indices)
	Locals    []Variable // The 'var' declarations in declaration order (their order fixes the 'local' indices)

	Statements []Statement // The statement list to be executed, a representation of the subroutine body
}

type SubroutineType string // Enum to manage the different flavors allowed for a Subroutine

const (
	Method      SubroutineType = "method"
	Function    SubroutineType = "function"
	Constructor SubroutineType = "constructor"
)

// ----------------------------------------------------------------------------
// Statements

// A statement produces a side effect in the program flow whether by changing a var or jumping
// to another instruction.
//
// We declare a shared 'Statement' interface for every statement available in the Jack
// language, then we define one after the other all the specific statements w/ the data
// required to compile them.
type Statement interface{}

type DoStmt struct { // Calls another subroutine and discards its return value
	Call FuncCallExpr // The subroutine call to be performed
}

type LetStmt struct { // Variable assignment construct
	Lhs Expression // The assignment target (only VarExpr and ArrayExpr are allowed)
	Rhs Expression // The expression to be evaluated and assigned to the LHS counterpart
}

type ReturnStmt struct { // Goes back to the caller providing it an (optional) output
	Expr Expression // The expression to be evaluated as return value (nil for void returns)
}

type IfStmt struct { // Conditional fork of the execution flow
	Condition Expression  // The expression to be evaluated as a bool value
	ThenBlock []Statement // The code block to be executed if the condition is met
	ElseBlock []Statement // The code block to be executed otherwise (nil when no 'else' is present)
	HasElse   bool        // Whether an 'else' branch was present in the source
}

type WhileStmt struct { // Conditional iteration construct
	Condition Expression  // The expression to be evaluated as a bool value
	Block     []Statement // The code block to be executed while the condition holds
}

// ----------------------------------------------------------------------------
// Expressions

// Expressions take one or two sub-expressions and create a new value that can be used further.
//
// We declare a shared 'Expression' interface for every expression available in the Jack
// language, then we define one after the other all the specific expressions w/ the data
// required to compile them.
type Expression interface{}

type VarExpr struct { // Extracts the value contained in a variable (or the 'this' pointer)
	Var string // The name of the variable we want the value of
}

type LiteralExpr struct { // Produces the value of a constant (int, string, keyword)
	Type  DataType // The literal type (string, int, bool, ...)
	Value string   // The constant value to be produced
}

type ArrayExpr struct { // Extracts the value of a single cell of an array
	Var   string     // The name of the array variable we want the value from
	Index Expression // The index of the cell we want to read
}

type UnaryExpr struct { // Applies a transformation to 1 expression to produce a new value
	Type ExprType   // Here only 'Negation' and 'BoolNot' are allowed
	Rhs  Expression // UnaryExpr only applies to the expression on the Right Hand Side
}

type BinaryExpr struct { // Combines the values of 2 expressions to produce a new value
	Type ExprType   // Any binary operator of the language
	Lhs  Expression // The expression on the Left Hand Side (1st to be evaluated)
	Rhs  Expression // The expression on the Right Hand Side (2nd to be evaluated)
}

type FuncCallExpr struct { // Calls another subroutine, on a receiver or inside the same class
	Receiver string // The receiver before the dot: a variable, a class name, or "" for bare calls
	FuncName string // The name of the subroutine we want to execute

	Arguments []Expression // The argument list to be passed (they are yet to be evaluated)
}

type ExprType string // Enum to manage the operators allowed in Unary/BinaryExpr

const (
	Plus     ExprType = "plus"
	Minus    ExprType = "minus"
	Negation ExprType = "negation" // Arithmetic negation (the unary counterpart of Minus)
	Divide   ExprType = "divide"
	Multiply ExprType = "multiply"

	BoolOr  ExprType = "bool_or"
	BoolAnd ExprType = "bool_and"
	BoolNot ExprType = "bool_not"

	Equal     ExprType = "equal"
	LessThan  ExprType = "less_than"
	GreatThan ExprType = "greater_than"
)

// ----------------------------------------------------------------------------
// Variables

// Variables are containers of value that can be read/written through expressions/statements.
//
// The declared 'Variable' struct accommodates multiple configurations at the same time such as
// - Static & instance fields for classes
// - Local variables and parameters for subroutines
type Variable struct {
	Name     string   // The var name, acts as identifier in the scope it is declared
	VarType  VarType  // The variable kind, determines the memory segment backing it
	DataType DataType // The data type defines how to read or cast the value contained by the variable
}

type VarType string // Enum to manage the kinds allowed for a Variable

const (
	Local     VarType = "local"
	Field     VarType = "field"
	Static    VarType = "static"
	Parameter VarType = "parameter"
)

// A DataType pairs the broad kind of a type with the class name for object types.
type DataType struct {
	Main    DataTypeKind // The broad family the type belongs to
	Subtype string       // The class name when Main == Object ("" otherwise)
}

type DataTypeKind string // Enum to manage the type families of the language

const (
	Int    DataTypeKind = "int"
	Bool   DataTypeKind = "boolean"
	Char   DataTypeKind = "char"
	Void   DataTypeKind = "void"
	String DataTypeKind = "string" // Only inhabited by string literals
	Object DataTypeKind = "object" // Class instances (including the untyped Array)
)
