package vm

import (
	"fmt"
	"strings"
)

// EvalType records how the current block body was entered when it runs
// under a rebound self.
type EvalType uint8

const (
	EvalNone EvalType = iota
	EvalInstance
	EvalModule
	EvalBinding
)

func (e EvalType) String() string {
	switch e {
	case EvalInstance:
		return "instance_eval"
	case EvalModule:
		return "module_eval"
	case EvalBinding:
		return "binding_eval"
	}
	return "none"
}

// inlineSlots is the variable count stored without a separate allocation.
const inlineSlots = 4

// DynamicScope holds the runtime values of one lexical scope activation.
// Scopes chain through parent to the scopes they close over. Small scopes
// keep their slots inline; the representation does not change behaviour.
//
// A DynamicScope shared between goroutines must be synchronized by the
// caller.
type DynamicScope struct {
	static *StaticScope
	parent *DynamicScope

	values []Value
	inline [inlineSlots]Value

	evalScope *DynamicScope
	evalType  EvalType
	lambda    bool
}

// NewDynamicScope creates storage sized for static, closing over parent.
func NewDynamicScope(static *StaticScope, parent *DynamicScope) *DynamicScope {
	d := &DynamicScope{static: static, parent: parent}
	d.allocate(static.NumberOfVariables())
	return d
}

func (d *DynamicScope) allocate(n int) {
	if n <= inlineSlots {
		d.values = d.inline[:n:n]
		return
	}
	d.values = make([]Value, n)
}

func (d *DynamicScope) StaticScope() *StaticScope { return d.static }
func (d *DynamicScope) Parent() *DynamicScope     { return d.parent }
func (d *DynamicScope) EvalType() EvalType        { return d.evalType }
func (d *DynamicScope) SetEvalType(t EvalType)    { d.evalType = t }
func (d *DynamicScope) IsLambda() bool            { return d.lambda }
func (d *DynamicScope) SetLambda(b bool)          { d.lambda = b }

// Size returns the number of slots currently allocated.
func (d *DynamicScope) Size() int { return len(d.values) }

// IsInline reports whether the slots live inside the scope itself.
func (d *DynamicScope) IsInline() bool {
	return len(d.values) == 0 || &d.values[0] == &d.inline[0]
}

// NthParentScope walks n parent links.
func (d *DynamicScope) NthParentScope(n int) *DynamicScope {
	s := d
	for ; n > 0; n-- {
		s = s.parent
	}
	return s
}

// GetValue reads slot offset of the scope depth levels up. An unassigned
// slot reads as a Go nil.
func (d *DynamicScope) GetValue(offset, depth int) Value {
	return d.NthParentScope(depth).values[offset]
}

// GetValueDepthZero reads slot offset of this scope.
func (d *DynamicScope) GetValueDepthZero(offset int) Value {
	return d.values[offset]
}

// GetValueOrNil is GetValue with unassigned slots primed to nilValue.
func (d *DynamicScope) GetValueOrNil(offset, depth int, nilValue Value) Value {
	s := d.NthParentScope(depth)
	if v := s.values[offset]; v != nil {
		return v
	}
	s.values[offset] = nilValue
	return nilValue
}

// SetValue writes slot offset of the scope depth levels up.
func (d *DynamicScope) SetValue(offset, depth int, v Value) Value {
	d.NthParentScope(depth).values[offset] = v
	return v
}

// SetValueDepthZero writes slot offset of this scope.
func (d *DynamicScope) SetValueDepthZero(offset int, v Value) Value {
	d.values[offset] = v
	return v
}

// Values returns a copy of this scope's slots.
func (d *DynamicScope) Values() []Value {
	out := make([]Value, len(d.values))
	copy(out, d.values)
	return out
}

// GrowIfNeeded extends storage after variables were added to the static
// scope, which happens to eval scopes.
func (d *DynamicScope) GrowIfNeeded() {
	n := d.static.NumberOfVariables()
	if n <= len(d.values) {
		return
	}
	old := d.values
	d.allocate(n)
	copy(d.values, old)
}

// GetEvalScope returns the scope that hosts locals introduced by eval
// against this scope, creating it on first use. A scope that is itself the
// eval scope of its parent serves as its own eval scope, so nested evals on
// one binding share a single growable scope.
func (d *DynamicScope) GetEvalScope() *DynamicScope {
	if d.evalScope == nil {
		if d.parent != nil && d.parent.evalScope == d {
			d.evalScope = d
		} else {
			d.evalScope = NewDynamicScope(NewEvalScope(d.static), d)
		}
	}
	return d.evalScope
}

// GetFlipScope returns the method or top-level scope activation that owns
// this scope. Flip-flop state lives there so it survives block re-entry.
// The walk follows the dynamic chain, so a block scope created without an
// enclosing static scope still reaches its method.
func (d *DynamicScope) GetFlipScope() *DynamicScope {
	s := d
	for s.static.IsBlockScope() && s.parent != nil {
		s = s.parent
	}
	return s
}

// CloneScope copies this scope's slots into a new scope with the same
// parent. The eval scope is not carried over.
func (d *DynamicScope) CloneScope() *DynamicScope {
	c := &DynamicScope{static: d.static, parent: d.parent, evalType: d.evalType, lambda: d.lambda}
	c.allocate(len(d.values))
	copy(c.values, d.values)
	return c
}

// Lookup resolves a variable by name through the chain.
func (d *DynamicScope) Lookup(name string) (Value, bool) {
	for s := d; s != nil; s = s.parent {
		if i := s.static.indexOf(name); i >= 0 && i < len(s.values) {
			return orNil(s.values[i]), true
		}
	}
	return nil, false
}

// Assign sets an existing variable by name. It reports false when no scope
// in the chain defines name.
func (d *DynamicScope) Assign(name string, v Value) bool {
	for s := d; s != nil; s = s.parent {
		if i := s.static.indexOf(name); i >= 0 && i < len(s.values) {
			s.values[i] = v
			return true
		}
	}
	return false
}

// AllNamesInScope lists variable names visible from this scope, innermost
// first, without duplicates.
func (d *DynamicScope) AllNamesInScope() []string {
	var out []string
	seen := make(map[string]bool)
	for s := d; s != nil; s = s.parent {
		for _, n := range s.static.names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

func (d *DynamicScope) String() string {
	var b strings.Builder
	for s, depth := d, 0; s != nil; s, depth = s.parent, depth+1 {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(&b, "%sScope: [", indent)
		for i, v := range s.values {
			if i > 0 {
				b.WriteString(", ")
			}
			name := "?"
			if i < s.static.NumberOfVariables() {
				name = s.static.names[i]
			}
			fmt.Fprintf(&b, "%s=%s", name, inspect(v))
		}
		b.WriteString("]\n")
	}
	return b.String()
}
