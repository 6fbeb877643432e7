// Package conformance checks block dispatch against an independent model of
// the argument reconciliation rules. A matrix of cases covers every block
// type, parameter shape, entry point and call-site shape; each case runs
// through every body variant and the result is compared with the oracle.
package conformance

import (
	"fmt"
	"strings"

	"github.com/chazu/yield/vm"
)

// ArgShape is the call-site side of a case.
type ArgShape uint8

const (
	ArgsNone ArgShape = iota
	ArgsScalar
	ArgsArray
	ArgsCoercible
	ArgsBadCoercible
	ArgsTwo
	ArgsThree
	ArgsMany
)

var argShapeNames = [...]string{"none", "scalar", "array", "coercible", "bad_coercible", "two", "three", "many"}

func (a ArgShape) String() string {
	if int(a) < len(argShapeNames) {
		return argShapeNames[a]
	}
	return fmt.Sprintf("args(%d)", a)
}

// ParseArgShape parses the names produced by ArgShape.String.
func ParseArgShape(s string) (ArgShape, error) {
	for i, name := range argShapeNames {
		if name == s {
			return ArgShape(i), nil
		}
	}
	return 0, fmt.Errorf("unknown argument shape %q", s)
}

// AllArgShapes lists every shape in order.
func AllArgShapes() []ArgShape {
	out := make([]ArgShape, len(argShapeNames))
	for i := range out {
		out[i] = ArgShape(i)
	}
	return out
}

// Count is the number of arguments the shape passes.
func (a ArgShape) Count(many int) int {
	switch a {
	case ArgsNone:
		return 0
	case ArgsTwo:
		return 2
	case ArgsThree:
		return 3
	case ArgsMany:
		return many
	}
	return 1
}

var (
	pairClass = vm.NewModule("Pair")
	badClass  = vm.NewModule("Bad")
)

// Values builds fresh arguments for the shape. The coercible object
// converts to [8, 9]; the bad one answers an Integer from to_ary.
func (a ArgShape) Values(many int) []vm.Value {
	switch a {
	case ArgsNone:
		return nil
	case ArgsScalar:
		return []vm.Value{vm.Int(5)}
	case ArgsArray:
		return []vm.Value{vm.NewArray(vm.Int(1), vm.Int(2))}
	case ArgsCoercible:
		o := vm.NewObject(pairClass)
		o.ToAryFunc = func() (vm.Value, error) { return vm.NewArray(vm.Int(8), vm.Int(9)), nil }
		return []vm.Value{o}
	case ArgsBadCoercible:
		o := vm.NewObject(badClass)
		o.ToAryFunc = func() (vm.Value, error) { return vm.Int(0), nil }
		return []vm.Value{o}
	}
	n := a.Count(many)
	out := make([]vm.Value, n)
	for i := range out {
		out[i] = vm.Int(i + 1)
	}
	return out
}

// Case is one block invocation: who is called, how, and with what.
type Case struct {
	Type  vm.Type
	Sig   *vm.Signature
	Entry vm.Entry
	Args  ArgShape
}

func (c Case) String() string {
	return fmt.Sprintf("%s [%s] %s %s", c.Type, c.Sig, c.Entry, c.Args)
}

// ParseCase parses the String form.
func ParseCase(s string) (Case, error) {
	open := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if open < 0 || end < open {
		return Case{}, fmt.Errorf("malformed case %q", s)
	}
	typ, ok := vm.ParseType(strings.TrimSpace(s[:open]))
	if !ok {
		return Case{}, fmt.Errorf("unknown block type in %q", s)
	}
	sig, err := vm.ParseSignature(s[open+1 : end])
	if err != nil {
		return Case{}, err
	}
	fields := strings.Fields(s[end+1:])
	if len(fields) != 2 {
		return Case{}, fmt.Errorf("malformed case %q", s)
	}
	entry, err := ParseEntry(fields[0])
	if err != nil {
		return Case{}, err
	}
	args, err := ParseArgShape(fields[1])
	if err != nil {
		return Case{}, err
	}
	return Case{Type: typ, Sig: sig, Entry: entry, Args: args}, nil
}

// ParseEntry parses the names produced by vm.Entry.String.
func ParseEntry(s string) (vm.Entry, error) {
	for _, e := range allEntries {
		if e.String() == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown entry %q", s)
}

var (
	allTypes   = []vm.Type{vm.TypeNormal, vm.TypeProc, vm.TypeLambda, vm.TypeThread}
	allEntries = []vm.Entry{vm.EntryYield, vm.EntryYieldValues, vm.EntryCall, vm.EntryYieldNonArray}
)

// Valid reports whether the entry point can pass the argument shape.
// Single-value entries take exactly one argument.
func (c Case) Valid(many int) bool {
	switch c.Entry {
	case vm.EntryYield, vm.EntryYieldNonArray:
		return c.Args.Count(many) == 1
	}
	return true
}
