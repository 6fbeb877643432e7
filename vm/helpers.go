package vm

// Argument reshaping between "one possibly-array value" and "an argument
// list". These are shared by block dispatch and by call sites that splat.

// NeedsSplat reports whether a single value must be spread across the
// parameters of a shape with required positional parameters and an
// optional rest.
func NeedsSplat(required int, isRest bool) bool {
	return (isRest && required > 0) || (!isRest && required > 1)
}

// coerceArray applies the implicit array conversion protocol. ok is false
// when v does not take part in it.
func coerceArray(v Value) (arr *Array, ok bool, err error) {
	switch x := v.(type) {
	case *Array:
		return x, true, nil
	case ArrayCoercible:
		res, responds, err := x.ToAry()
		if err != nil {
			return nil, true, err
		}
		if !responds || IsNil(res) {
			return nil, false, nil
		}
		a, isArray := res.(*Array)
		if !isArray {
			return nil, true, &TypeCoercionError{From: ClassName(v), To: "Array", Method: "to_ary", Got: ClassName(res)}
		}
		return a, true, nil
	}
	return nil, false, nil
}

// AryToAry converts v to an array, wrapping it when it does not convert.
func AryToAry(v Value) (*Array, error) {
	a, ok, err := coerceArray(v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewArray(v), nil
	}
	return a, nil
}

// AryOrToAry converts v to an array when it can be, returning v itself
// when it cannot.
func AryOrToAry(v Value) (Value, error) {
	a, ok, err := coerceArray(v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return v, nil
	}
	return a, nil
}

// ToAry converts a single value into an argument list by to_ary
// coercion, falling back to a one element list.
func ToAry(v Value) ([]Value, error) {
	a, err := AryToAry(v)
	if err != nil {
		return nil, err
	}
	return a.Elems, nil
}

// SplatValue is the conversion behind *v: nil becomes an empty array.
func SplatValue(v Value) (*Array, error) {
	if IsNil(v) {
		return NewArray(), nil
	}
	return AryToAry(v)
}

// ConvertToArray turns a block argument into an array. A Go nil (no value
// at all) becomes empty; with coerce set non-arrays go through to_ary.
func ConvertToArray(v Value, coerce bool) (*Array, error) {
	switch x := v.(type) {
	case nil:
		return NewArray(), nil
	case *Array:
		return x, nil
	}
	if coerce {
		return AryToAry(v)
	}
	return NewArray(v), nil
}

// RestructureBlockArgs prepares one yielded value for a block whose
// receiver will destructure it. A non-lambda block without parameters
// gets nothing.
func RestructureBlockArgs(v Value, sig *Signature, typ Type, needsSplat, alreadyArray bool) (Value, error) {
	if typ != TypeLambda && sig.IsNoArguments() {
		return nil, nil
	}
	if v != nil && needsSplat && !alreadyArray {
		if _, isArray := v.(*Array); !isArray {
			a, err := ConvertToArray(v, true)
			if err != nil {
				return nil, err
			}
			return a, nil
		}
	}
	return v, nil
}

// ConvertValueIntoArgArray is how a direct call with a single argument is
// shaped. argIsArray marks an argument the caller already knows to be an
// array that may be unwrapped as is.
func ConvertValueIntoArgArray(v Value, sig *Signature, argIsArray bool) ([]Value, error) {
	arr, isArray := v.(*Array)
	if argIsArray && !isArray {
		argIsArray = false
	}
	switch {
	case sig.ArityValue() == 0 || sig.ArityValue() == 1:
		if sig.Rest() == RestAnon {
			return ToAry(v)
		}
		return []Value{v}, nil
	case argIsArray:
		out := make([]Value, len(arr.Elems))
		copy(out, arr.Elems)
		return out, nil
	case sig.IsSpreadable():
		return ToAry(v)
	}
	return []Value{v}, nil
}

// SingleBlockArgToArray unwraps a one element array.
func SingleBlockArgToArray(v Value) Value {
	if a, ok := v.(*Array); ok && len(a.Elems) == 1 {
		return a.Elems[0]
	}
	return v
}

// ViewArgsArray exposes v as an argument list without copying.
func ViewArgsArray(v Value) []Value {
	if a, ok := v.(*Array); ok {
		return a.Elems
	}
	return []Value{v}
}

// CheckArgumentCount validates n against [min, max]; max < 0 is unbounded.
func CheckArgumentCount(n, min, max int) error {
	if n < min || (max >= 0 && n > max) {
		return &ArgumentCountError{Given: n, Min: min, Max: max}
	}
	return nil
}

// CheckArgsArrayArity is CheckArgumentCount over an array's length.
func CheckArgsArrayArity(args *Array, min, max int) error {
	return CheckArgumentCount(args.Len(), min, max)
}

// SqueezeIntoOne keeps the first of several values bound to one parameter,
// warning about the rest.
func SqueezeIntoOne(args []Value, w Warnings) []Value {
	if len(args) > 1 && w != nil {
		w.Warn(WarnMultipleValues, "multiple values for a block parameter (%d for 1)", len(args))
	}
	if len(args) == 0 {
		return []Value{Nil}
	}
	return args[:1:1]
}
