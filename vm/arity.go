package vm

import (
	"fmt"
	"sync"
)

// Arity is the scalar summary of a signature. A value >= 0 means exactly
// that many arguments; a negative value means at least -value-1 arguments
// with no upper bound. Arities are interned by value.
type Arity struct {
	value int
}

var arities sync.Map // int -> *Arity

var (
	ArityNoArguments    = ArityOf(0)
	ArityOneArgument    = ArityOf(1)
	ArityTwoArguments   = ArityOf(2)
	ArityThreeArguments = ArityOf(3)
	ArityOptional       = ArityOf(-1)
	ArityOneRequired    = ArityOf(-2)
	ArityTwoRequired    = ArityOf(-3)
	ArityThreeRequired  = ArityOf(-4)
)

// ArityOf returns the interned arity for value.
func ArityOf(value int) *Arity {
	if a, ok := arities.Load(value); ok {
		return a.(*Arity)
	}
	a, _ := arities.LoadOrStore(value, &Arity{value: value})
	return a.(*Arity)
}

// Value returns the raw arity value.
func (a *Arity) Value() int { return a.value }

// IsFixed reports an exact argument count.
func (a *Arity) IsFixed() bool { return a.value >= 0 }

// Required returns the minimum number of arguments.
func (a *Arity) Required() int {
	if a.value < 0 {
		return -(a.value + 1)
	}
	return a.value
}

// CheckArity validates an argument count against the arity alone.
func (a *Arity) CheckArity(n int) error {
	if a.IsFixed() {
		if n != a.value {
			return &ArgumentCountError{Given: n, Min: a.value, Max: a.value}
		}
		return nil
	}
	if n < a.Required() {
		return &ArgumentCountError{Given: n, Min: a.Required(), Max: -1}
	}
	return nil
}

func (a *Arity) String() string {
	return fmt.Sprintf("Arity(%d)", a.value)
}
