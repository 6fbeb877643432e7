package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is anything the invocation core can bind to a variable or pass as an
// argument. The object model proper lives outside this package; the types
// below are the minimum the argument reshaping rules need to tell apart.
type Value interface {
	Inspect() string
}

// ArrayCoercible is implemented by values that may respond to the implicit
// array conversion protocol (to_ary). ok is false when the value does not
// respond at all, in which case callers fall back to wrapping it.
type ArrayCoercible interface {
	Value
	ToAry() (result Value, ok bool, err error)
}

// ---------------------------------------------------------------------------
// Immediates
// ---------------------------------------------------------------------------

// NilValue is the type of Nil.
type NilValue struct{}

// Nil is the nil value. Uninitialized variable slots hold a Go nil instead,
// see DynamicScope.GetValueOrNil.
var Nil Value = NilValue{}

func (NilValue) Inspect() string { return "nil" }

// Bool is a boolean value.
type Bool bool

// True and False are the boolean values.
const (
	True  Bool = true
	False Bool = false
)

func (b Bool) Inspect() string { return strconv.FormatBool(bool(b)) }

// Int is an integer value.
type Int int64

func (i Int) Inspect() string { return strconv.FormatInt(int64(i), 10) }

// Str is a string value.
type Str string

func (s Str) Inspect() string { return strconv.Quote(string(s)) }

// Symbol is an interned name, also used as a keyword argument key.
type Symbol string

func (s Symbol) Inspect() string { return ":" + string(s) }

// IsNil reports whether v is Nil or an uninitialized slot.
func IsNil(v Value) bool {
	return v == nil || v == Nil
}

// Truthy reports whether v counts as true in a conditional.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil, NilValue:
		return false
	case Bool:
		return bool(x)
	}
	return true
}

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

// Array is an ordered, mutable list of values.
type Array struct {
	Elems []Value
}

// NewArray creates an array holding elems. The slice is not copied.
func NewArray(elems ...Value) *Array {
	return &Array{Elems: elems}
}

// NewArrayCopy creates an array holding a copy of elems.
func NewArrayCopy(elems []Value) *Array {
	out := make([]Value, len(elems))
	copy(out, elems)
	return &Array{Elems: out}
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.Elems) }

// At returns the element at i, or Nil when i is out of range.
func (a *Array) At(i int) Value {
	if i < 0 || i >= len(a.Elems) {
		return Nil
	}
	return a.Elems[i]
}

// Append adds v to the end of the array.
func (a *Array) Append(v Value) { a.Elems = append(a.Elems, v) }

func (a *Array) Inspect() string {
	parts := make([]string, len(a.Elems))
	for i, e := range a.Elems {
		parts[i] = inspect(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ---------------------------------------------------------------------------
// Hash
// ---------------------------------------------------------------------------

// Hash is an insertion-ordered symbol-keyed hash. It is what keyword
// arguments travel as at the end of a positional argument list.
type Hash struct {
	keys []Symbol
	vals map[Symbol]Value
}

// NewHash creates an empty hash.
func NewHash() *Hash {
	return &Hash{vals: make(map[Symbol]Value)}
}

// HashOf builds a hash from alternating key/value pairs.
func HashOf(pairs ...any) *Hash {
	h := NewHash()
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Set(Symbol(fmt.Sprint(pairs[i])), pairs[i+1].(Value))
	}
	return h
}

// Get returns the value stored at k.
func (h *Hash) Get(k Symbol) (Value, bool) {
	v, ok := h.vals[k]
	return v, ok
}

// Set stores v at k, keeping the original insertion position of k.
func (h *Hash) Set(k Symbol, v Value) {
	if _, ok := h.vals[k]; !ok {
		h.keys = append(h.keys, k)
	}
	h.vals[k] = v
}

// Delete removes k and returns its value.
func (h *Hash) Delete(k Symbol) (Value, bool) {
	v, ok := h.vals[k]
	if !ok {
		return nil, false
	}
	delete(h.vals, k)
	for i, key := range h.keys {
		if key == k {
			h.keys = append(h.keys[:i:i], h.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the keys in insertion order.
func (h *Hash) Keys() []Symbol {
	out := make([]Symbol, len(h.keys))
	copy(out, h.keys)
	return out
}

// Len returns the number of entries.
func (h *Hash) Len() int { return len(h.keys) }

// Dup returns a shallow copy.
func (h *Hash) Dup() *Hash {
	out := NewHash()
	for _, k := range h.keys {
		out.Set(k, h.vals[k])
	}
	return out
}

func (h *Hash) Inspect() string {
	parts := make([]string, len(h.keys))
	for i, k := range h.keys {
		parts[i] = string(k) + ": " + inspect(h.vals[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ---------------------------------------------------------------------------
// Module and Object
// ---------------------------------------------------------------------------

// Module is the class context recorded in a Frame. Method tables and
// ancestry belong to the object model and are not modelled here.
type Module struct {
	Name string
}

// NewModule creates a module named name.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

func (m *Module) Inspect() string { return m.Name }

// Object is a plain instance. When ToAryFunc is set the object responds to
// the implicit array conversion protocol.
type Object struct {
	Class     *Module
	ToAryFunc func() (Value, error)
}

// NewObject creates an instance of class.
func NewObject(class *Module) *Object {
	return &Object{Class: class}
}

// ToAry implements ArrayCoercible.
func (o *Object) ToAry() (Value, bool, error) {
	if o.ToAryFunc == nil {
		return nil, false, nil
	}
	v, err := o.ToAryFunc()
	return v, true, err
}

func (o *Object) Inspect() string {
	if o.Class == nil {
		return "#<Object>"
	}
	return "#<" + o.Class.Name + ">"
}

// ClassName returns a display name for the class of v.
func ClassName(v Value) string {
	switch x := v.(type) {
	case nil, NilValue:
		return "NilClass"
	case Bool:
		if x {
			return "TrueClass"
		}
		return "FalseClass"
	case Int:
		return "Integer"
	case Str:
		return "String"
	case Symbol:
		return "Symbol"
	case *Array:
		return "Array"
	case *Hash:
		return "Hash"
	case *Proc:
		return "Proc"
	case *Module:
		return "Module"
	case *Object:
		if x.Class != nil {
			return x.Class.Name
		}
		return "Object"
	}
	return fmt.Sprintf("%T", v)
}

// ---------------------------------------------------------------------------
// Proc
// ---------------------------------------------------------------------------

// Proc is a block reified as a value, as bound to an &blk parameter.
type Proc struct {
	Block *Block
}

// NewProc wraps b. A NORMAL block becomes PROC typed.
func NewProc(b *Block) *Proc {
	if b.Type() == TypeNormal {
		b = b.ToProc()
	}
	return &Proc{Block: b}
}

func (p *Proc) Inspect() string {
	if p.Block != nil && p.Block.Type() == TypeLambda {
		return "#<Proc (lambda)>"
	}
	return "#<Proc>"
}

func inspect(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Inspect()
}

// Inspect renders v, treating an uninitialized slot as nil.
func Inspect(v Value) string {
	return inspect(v)
}
