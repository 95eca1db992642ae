package jack

import (
	"n2t.dev/toolchain/pkg/diag"
	"n2t.dev/toolchain/pkg/vm"
)

// ----------------------------------------------------------------------------
// Scope Table

// The ScopeTable tracks the two scopes alive during the compilation of a class:
// the class scope (static and field variables) and the subroutine scope (arguments
// and locals). Lookups search the subroutine scope first, so subroutine variables
// shadow homonymous class ones. Each kind keeps its own running index, which maps
// the variable straight onto its slot of the backing memory segment.

// Memory segment backing each variable kind.
var SegmentOf = map[VarType]vm.SegmentType{
	Static:    vm.Static,
	Field:     vm.This,
	Parameter: vm.Argument,
	Local:     vm.Local,
}

// What the table records about a declared variable.
type SymbolInfo struct {
	Type  DataType // The declared data type (drives method call dispatch)
	Kind  VarType  // The variable kind (drives the memory segment)
	Index uint16   // The slot inside the segment backing the kind
}

type ScopeTable struct {
	class      map[string]SymbolInfo
	subroutine map[string]SymbolInfo

	classCounts      map[VarType]uint16
	subroutineCounts map[VarType]uint16
}

func NewScopeTable() *ScopeTable {
	return &ScopeTable{
		class:            map[string]SymbolInfo{},
		subroutine:       map[string]SymbolInfo{},
		classCounts:      map[VarType]uint16{},
		subroutineCounts: map[VarType]uint16{},
	}
}

// StartSubroutine clears the subroutine scope and resets its per-kind counters,
// called on entry of each subroutine compilation.
func (st *ScopeTable) StartSubroutine() {
	st.subroutine = map[string]SymbolInfo{}
	st.subroutineCounts = map[VarType]uint16{}
}

// Define registers a variable in the scope implied by its kind, assigning the
// next per-kind index. Redefinitions within the same scope are rejected.
func (st *ScopeTable) Define(variable Variable) error {
	if variable.DataType.Main == Void {
		return diag.Errorf(diag.SemanticError, "variable '%s' cannot be of type 'void'", variable.Name)
	}

	scope, counts := st.subroutine, st.subroutineCounts
	if variable.VarType == Static || variable.VarType == Field {
		scope, counts = st.class, st.classCounts
	}

	if _, duplicate := scope[variable.Name]; duplicate {
		return diag.Errorf(diag.SemanticError, "duplicate declaration of variable '%s'", variable.Name)
	}

	scope[variable.Name] = SymbolInfo{Type: variable.DataType, Kind: variable.VarType, Index: counts[variable.VarType]}
	counts[variable.VarType]++
	return nil
}

// VarCount reports how many variables of the given kind have been defined in
// the scope applicable to that kind.
func (st *ScopeTable) VarCount(kind VarType) uint16 {
	if kind == Static || kind == Field {
		return st.classCounts[kind]
	}
	return st.subroutineCounts[kind]
}

// Resolve looks a name up, subroutine scope first then class scope.
func (st *ScopeTable) Resolve(name string) (SymbolInfo, bool) {
	if info, found := st.subroutine[name]; found {
		return info, true
	}
	info, found := st.class[name]
	return info, found
}
