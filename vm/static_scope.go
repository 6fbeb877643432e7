package vm

// ScopeKind distinguishes method/top-level scopes from block and eval
// scopes. Block and eval scopes close over their enclosing scope.
type ScopeKind uint8

const (
	LocalScopeKind ScopeKind = iota
	BlockScopeKind
	EvalScopeKind
)

// StaticScope is the compile-time description of a lexical scope: its
// variable names and the scope it is nested in. The parser and compiler own
// these; the runtime only sizes and labels DynamicScope storage from them.
//
// Variables may be added after creation only to eval scopes, which grow as
// evaluated code introduces locals.
type StaticScope struct {
	kind      ScopeKind
	enclosing *StaticScope
	names     []string
	module    *Module
}

// NewLocalScope creates a method or top-level scope.
func NewLocalScope(module *Module, names ...string) *StaticScope {
	return &StaticScope{kind: LocalScopeKind, module: module, names: names}
}

// NewBlockScope creates a block scope nested in enclosing.
func NewBlockScope(enclosing *StaticScope, names ...string) *StaticScope {
	return &StaticScope{kind: BlockScopeKind, enclosing: enclosing, names: names}
}

// NewEvalScope creates the scope that hosts locals introduced by eval.
func NewEvalScope(enclosing *StaticScope) *StaticScope {
	return &StaticScope{kind: EvalScopeKind, enclosing: enclosing}
}

func (s *StaticScope) Kind() ScopeKind           { return s.kind }
func (s *StaticScope) Enclosing() *StaticScope   { return s.enclosing }
func (s *StaticScope) NumberOfVariables() int    { return len(s.names) }
func (s *StaticScope) IsBlockScope() bool        { return s.kind != LocalScopeKind }
func (s *StaticScope) IsEvalScope() bool         { return s.kind == EvalScopeKind }
func (s *StaticScope) SetModule(m *Module)       { s.module = m }
func (s *StaticScope) VariableName(i int) string { return s.names[i] }

// VariableNames returns a copy of the variable names in slot order.
func (s *StaticScope) VariableNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Module returns the module this scope is defined in, inherited from the
// nearest enclosing scope that declares one.
func (s *StaticScope) Module() *Module {
	for sc := s; sc != nil; sc = sc.enclosing {
		if sc.module != nil {
			return sc.module
		}
	}
	return nil
}

// LocalScope returns the nearest enclosing method or top-level scope.
func (s *StaticScope) LocalScope() *StaticScope {
	sc := s
	for sc.kind != LocalScopeKind && sc.enclosing != nil {
		sc = sc.enclosing
	}
	return sc
}

// AddVariable appends name and returns its slot. An existing name returns
// its current slot.
func (s *StaticScope) AddVariable(name string) int {
	if i := s.indexOf(name); i >= 0 {
		return i
	}
	s.names = append(s.names, name)
	return len(s.names) - 1
}

func (s *StaticScope) indexOf(name string) int {
	for i, n := range s.names {
		if n == name {
			return i
		}
	}
	return -1
}

// IsDefined resolves name through the enclosing chain and returns its depth
// and slot offset.
func (s *StaticScope) IsDefined(name string) (depth, offset int, ok bool) {
	for sc := s; sc != nil; sc = sc.enclosing {
		if i := sc.indexOf(name); i >= 0 {
			return depth, i, true
		}
		if sc.kind == LocalScopeKind {
			break
		}
		depth++
	}
	return 0, 0, false
}
