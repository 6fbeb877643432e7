package vm

// Entry identifies how a block was invoked. Reconciliation depends on it
// together with the block type and signature.
type Entry uint8

const (
	// EntryYield is yield with one value.
	EntryYield Entry = iota
	// EntryYieldValues is yield with any number of values.
	EntryYieldValues
	// EntryCall is a direct proc or lambda call.
	EntryCall
	// EntryYieldNonArray is a yield whose single value must never be
	// destructured (instance_eval passes the receiver this way).
	EntryYieldNonArray
)

func (e Entry) String() string {
	switch e {
	case EntryYield:
		return "yield"
	case EntryYieldValues:
		return "yield_values"
	case EntryCall:
		return "call"
	case EntryYieldNonArray:
		return "yield_non_array"
	}
	return "entry"
}

// ReconcileArgs shapes the arguments of one block invocation for sig. It is
// the single implementation of the dispatch rules for every body kind:
//
//  1. Lambdas check arity strictly against the exact list. A single yielded
//     value is never destructured.
//  2. A non-lambda single-value yield is destructured by to_ary when the
//     signature is spreadable or takes keywords, and passed alone otherwise.
//  3. A non-lambda multi-value yield to one parameter collapses into one
//     array.
//  4. A non-lambda yield to no parameters discards everything.
//  5. A direct call with one argument unwraps an array for NORMAL blocks and
//     for spreadable signatures.
//  6. A direct call with several arguments to one parameter keeps the first.
//
// Missing parameters are padded with nil by the receiver, not here. The
// returned slice may alias args.
func ReconcileArgs(typ Type, sig *Signature, entry Entry, args []Value, w Warnings) ([]Value, error) {
	if typ == TypeLambda {
		if err := sig.CheckArity(len(args)); err != nil {
			return nil, err
		}
		return args, nil
	}

	switch entry {
	case EntryCall:
		if len(args) == 1 {
			_, isArray := args[0].(*Array)
			return ConvertValueIntoArgArray(args[0], sig, typ == TypeNormal && isArray)
		}
		if sig.ArityValue() == 1 && !sig.RestKwargs() {
			return SqueezeIntoOne(args, w), nil
		}
		return args, nil

	case EntryYieldNonArray:
		return args, nil
	}

	switch {
	case sig.IsNoArguments():
		return nil, nil
	case len(args) == 1:
		if sig.HasKwargs() || sig.IsSpreadable() {
			return ToAry(args[0])
		}
		return args, nil
	case len(args) > 1 && sig.IsSingleParameter():
		return []Value{NewArrayCopy(args)}, nil
	}
	return args, nil
}

// isIdentityShape reports whether reconciling n arguments for sig cannot
// change them for any entry or block type, which is when the direct fast
// path may skip the boxed path.
func isIdentityShape(sig *Signature, n int) bool {
	if !sig.IsFixed() || sig.Required() != n || sig.HasKwargs() || sig.Rest() != RestNone {
		return false
	}
	// A yielded single value to a spreadable signature is destructured.
	return n != 1 || !sig.IsSpreadable()
}
