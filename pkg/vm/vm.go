package vm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level structs such as Program and Module.
// It is important to note that a VM program can be composed of multiple translation units
// that can also be referenced as files or modules or also classes.

// A VM Program is just an ordered set of modules/files: in the VM spec each Jack class is
// translated to its own .vm file (just like Java .class files). The slice keeps the modules
// in the order chosen by the caller (lexicographic for directory inputs), which in turn
// fixes the layout of the translated assembly.
type Program []Module

// A VM Module is a named linear list of VM operations. The name (the source filename
// without extension) namespaces the module's 'static' segment and its structured labels.
type Module struct {
	Name string      // The translation unit name (e.g. 'Main' for Main.vm)
	Ops  []Operation // The operations in declaration order
}

// Used to put together all operations in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operations on the
// stack. We could either push a new value taken from the specified segment location on
// the stack's top or take the stack's top and save its value at the specified segment
// location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operations allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segments accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment (R5-R12) used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constants (push only)

	Local    SegmentType = "local"    // Base-pointer relative segment for function local variables
	Static   SegmentType = "static"   // Per-module segment backed by FILE.INDEX assembly symbols
	Argument SegmentType = "argument" // Base-pointer relative segment for function arguments

	This    SegmentType = "this"    // Base-pointer relative segment addressed through THIS
	That    SegmentType = "that"    // Base-pointer relative segment addressed through THAT
	Pointer SegmentType = "pointer" // Two-slot segment (R3/R4) aliasing the THIS and THAT pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of an Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operations available.
// In particular each operation acts directly on the top of the stack, of course we have
// both unary and binary operations, the specific management of each op is handled in the
// lowering phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operations allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations (push -1 for true, 0 for false)
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Branching Ops

// Label declaration for structured branching inside a function body. During the
// lowering phase the name gets prefixed with the module name to avoid collisions
// between homonymous labels in different translation units.
type LabelDecl struct {
	Name string // The user (or compiler) chosen name for the label
}

// Jump operation towards a previously (or later) declared label, either conditional
// (pops the stack top and jumps when it's non-zero) or unconditional.
type GotoOp struct {
	Jump  JumpType // Whether the jump is conditional on the stack top or not
	Label string   // The target label name (module prefixing happens at lowering)
}

type JumpType string // Enum to manage the jump flavors of a GotoOp

const (
	Unconditional JumpType = "goto"
	Conditional   JumpType = "if-goto"
)

// ----------------------------------------------------------------------------
// Function Ops

// Function declaration: marks the entrypoint of a function and the number of local
// variables that must be zero-initialized on the callee frame.
type FuncDecl struct {
	Name    string // The fully qualified function name (e.g. 'Main.main')
	NLocals uint16 // The number of local variables to allocate and zero out
}

// Function call operation: transfers control to a function after saving the caller
// frame per the standard calling convention.
type FuncCallOp struct {
	Name  string // The fully qualified callee name (used verbatim)
	NArgs uint16 // The number of arguments already pushed by the caller
}

// Return operation: tears down the callee frame, restores the caller's pointers and
// transfers control back past the call site, leaving the return value on the stack.
type ReturnOp struct{}
