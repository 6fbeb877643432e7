package conformance

import (
	"errors"
	"strconv"

	"github.com/chazu/yield/vm"
)

// Error kinds recorded in an Outcome.
const (
	KindArgumentCount = "argument_count"
	KindArgument      = "argument"
	KindTypeCoercion  = "type_coercion"
	KindLocalJump     = "local_jump"
	KindOther         = "error"
)

// Outcome is what one invocation observed: the inspected values the body
// saw, or the kind of error raised before the body ran, and whether a
// multiple-values warning was emitted on the way.
type Outcome struct {
	Values string `cbor:"1,keyasint,omitempty" yaml:"values,omitempty"`
	Err    string `cbor:"2,keyasint,omitempty" yaml:"error,omitempty"`
	Warned bool   `cbor:"3,keyasint,omitempty" yaml:"warned,omitempty"`
}

func (o Outcome) String() string {
	s := o.Values
	if o.Err != "" {
		s = "error " + o.Err
	}
	if o.Warned {
		s += " (warned)"
	}
	return s
}

func valuesOutcome(vals []vm.Value) Outcome {
	return Outcome{Values: vm.NewArrayCopy(vals).Inspect()}
}

// ErrorKind classifies err for an Outcome.
func ErrorKind(err error) string {
	var (
		countErr *vm.ArgumentCountError
		argErr   *vm.ArgumentError
		coerce   *vm.TypeCoercionError
		jumpErr  *vm.LocalJumpError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &countErr):
		return KindArgumentCount
	case errors.As(err, &argErr):
		return KindArgument
	case errors.As(err, &coerce):
		return KindTypeCoercion
	case errors.As(err, &jumpErr):
		return KindLocalJump
	}
	return KindOther
}

// Expectation is the oracle's answer for a case.
type Expectation struct {
	// Reconciled is what a callback body receives: the argument list after
	// reshaping, before parameters are bound.
	Reconciled Outcome `cbor:"1,keyasint" yaml:"reconciled"`
	// Received is the parameter slots of a body that binds arguments, in
	// declaration order.
	Received Outcome `cbor:"2,keyasint" yaml:"received"`
	// Warns is set when the invocation reports discarded values.
	Warns bool `cbor:"3,keyasint,omitempty" yaml:"warns,omitempty"`
}

// Oracle computes the expected result of c without going through vm's
// dispatch code.
func Oracle(c Case, many int) Expectation {
	args := c.Args.Values(many)
	shaped, warns, kind := reshape(c, args)
	if kind != "" {
		return Expectation{Reconciled: Outcome{Err: kind}, Received: Outcome{Err: kind}}
	}
	exp := Expectation{Reconciled: valuesOutcome(shaped), Warns: warns}
	slots, kind := bind(c.Sig, shaped, c.Type == vm.TypeLambda)
	if kind != "" {
		exp.Received = Outcome{Err: kind}
	} else {
		exp.Received = valuesOutcome(slots)
	}
	// Reshaping warns before any parameter is bound.
	exp.Reconciled.Warned = warns
	exp.Received.Warned = warns
	return exp
}

// reshape is the dispatch decision list, top to bottom.
func reshape(c Case, args []vm.Value) ([]vm.Value, bool, string) {
	sig := c.Sig
	n := len(args)
	takesKeywords := sig.Kwargs() > 0 || sig.RestKwargs()

	// Lambdas take the list as given once the count fits.
	if c.Type == vm.TypeLambda {
		min := sig.Pre() + sig.Post()
		limit, bounded := positionalLimit(sig)
		if takesKeywords {
			limit++
		}
		if n < min || (bounded && n > limit) {
			return nil, false, KindArgumentCount
		}
		return args, false, ""
	}

	switch c.Entry {
	case vm.EntryYieldNonArray:
		return args, false, ""

	case vm.EntryCall:
		if n == 1 {
			out, kind := callWithOne(c, args[0])
			return out, false, kind
		}
		if sig.ArityValue() == 1 && !sig.RestKwargs() {
			if n == 0 {
				return []vm.Value{vm.Nil}, false, ""
			}
			return args[:1], n > 1, ""
		}
		return args, false, ""
	}

	// yield and yield_values
	if n == 1 && (takesKeywords || spreads(sig)) {
		out, kind := destructure(args[0])
		return out, false, kind
	}
	if n > 1 && oneParameter(sig) {
		return []vm.Value{vm.NewArrayCopy(args)}, false, ""
	}
	if sig.ArityValue() == 0 {
		return nil, false, ""
	}
	return args, false, ""
}

func callWithOne(c Case, v vm.Value) ([]vm.Value, string) {
	sig := c.Sig
	if a := sig.ArityValue(); a == 0 || a == 1 {
		if sig.Rest() == vm.RestAnon {
			return destructure(v)
		}
		return []vm.Value{v}, ""
	}
	if arr, ok := v.(*vm.Array); ok && c.Type == vm.TypeNormal {
		return append([]vm.Value(nil), arr.Elems...), ""
	}
	if spreads(sig) {
		return destructure(v)
	}
	return []vm.Value{v}, ""
}

// destructure applies to_ary to one value.
func destructure(v vm.Value) ([]vm.Value, string) {
	switch x := v.(type) {
	case *vm.Array:
		return x.Elems, ""
	case vm.ArrayCoercible:
		res, responds, err := x.ToAry()
		if err != nil {
			return nil, KindOther
		}
		if !responds || vm.IsNil(res) {
			return []vm.Value{v}, ""
		}
		arr, ok := res.(*vm.Array)
		if !ok {
			return nil, KindTypeCoercion
		}
		return arr.Elems, ""
	}
	return []vm.Value{v}, ""
}

// spreads reports whether one value could fill more than one positional
// parameter.
func spreads(sig *vm.Signature) bool {
	if sig.Kwargs() > 0 || sig.RestKwargs() || sig.Rest() == vm.RestAnon {
		return true
	}
	required := sig.Pre() + sig.Post()
	switch required {
	case 0:
		return sig.Opt() > 1
	case 1:
		return sig.Opt() > 0 || sig.Rest() != vm.RestNone
	}
	return true
}

func oneParameter(sig *vm.Signature) bool {
	return sig.Pre()+sig.Post() == 1 && sig.Opt() == 0 && sig.Rest() == vm.RestNone &&
		sig.Kwargs() == 0 && !sig.RestKwargs()
}

func positionalLimit(sig *vm.Signature) (int, bool) {
	if sig.Rest() == vm.RestNorm || sig.Rest() == vm.RestStar {
		return 0, false
	}
	return sig.Pre() + sig.Opt() + sig.Post(), true
}

// bind fills parameter slots the way a parameter list declared with the
// anonymous names of vm.ParamsFor would.
func bind(sig *vm.Signature, args []vm.Value, strict bool) ([]vm.Value, string) {
	takesKeywords := sig.Kwargs() > 0 || sig.RestKwargs()
	required := sig.Pre() + sig.Post()

	var kw *vm.Hash
	if takesKeywords && len(args) > required {
		if h, ok := args[len(args)-1].(*vm.Hash); ok {
			kw = h
			args = args[:len(args)-1]
		}
	}

	n := len(args)
	limit, bounded := positionalLimit(sig)
	if strict && (n < required || (bounded && n > limit)) {
		return nil, KindArgumentCount
	}
	pos := make([]vm.Value, 0, required)
	pos = append(pos, args...)
	for len(pos) < required {
		pos = append(pos, vm.Nil)
	}
	if bounded && len(pos) > limit {
		pos = pos[:limit]
	}
	n = len(pos)

	var slots []vm.Value
	slots = append(slots, pos[:sig.Pre()]...)
	filled := n - sig.Pre() - sig.Post()
	if filled > sig.Opt() {
		filled = sig.Opt()
	}
	for i := 0; i < sig.Opt(); i++ {
		if i < filled {
			slots = append(slots, pos[sig.Pre()+i])
		} else {
			slots = append(slots, vm.Nil)
		}
	}
	if sig.Rest() == vm.RestNorm {
		slots = append(slots, vm.NewArrayCopy(pos[sig.Pre()+filled:n-sig.Post()]))
	}
	slots = append(slots, pos[n-sig.Post():]...)

	if !takesKeywords {
		return slots, ""
	}
	remaining := vm.NewHash()
	if kw != nil {
		remaining = kw.Dup()
	}
	for i := 0; i < sig.Kwargs(); i++ {
		name := vm.Symbol("k" + strconv.Itoa(i))
		v, ok := remaining.Delete(name)
		if !ok {
			if i < sig.RequiredKwargs() {
				return nil, KindArgument
			}
			v = vm.Nil
		}
		slots = append(slots, v)
	}
	if sig.RestKwargs() {
		return append(slots, remaining), ""
	}
	if remaining.Len() > 0 {
		return nil, KindArgument
	}
	return slots, ""
}
