package conformance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/yield/vm"
)

var log = commonlog.GetLogger("yield.conformance")

// Variant names a way of building the block body under test.
type Variant string

const (
	VariantInterpreted Variant = "interpreted"
	VariantIR          Variant = "ir"
	VariantCompiled    Variant = "compiled"
	VariantMixed       Variant = "mixed"
	VariantCallback    Variant = "callback"
)

// AllVariants lists every body variant.
func AllVariants() []Variant {
	return []Variant{VariantInterpreted, VariantIR, VariantCompiled, VariantMixed, VariantCallback}
}

// ParseVariants converts names, as found in yield.toml, to variants.
func ParseVariants(names []string) ([]Variant, error) {
	out := make([]Variant, 0, len(names))
	for _, name := range names {
		v := Variant(name)
		if !v.valid() {
			return nil, fmt.Errorf("unknown body variant %q", name)
		}
		out = append(out, v)
	}
	return out, nil
}

func (v Variant) valid() bool {
	for _, known := range AllVariants() {
		if v == known {
			return true
		}
	}
	return false
}

// record answers the parameter slots of the invocation.
func record(_ *vm.ThreadContext, _ vm.Value, scope *vm.DynamicScope, _ []vm.Value, _ *vm.Block) (vm.Value, error) {
	return vm.NewArrayCopy(scope.Values()), nil
}

var recordDirect = &vm.DirectFuncs{
	Call0: func(_ *vm.ThreadContext, _ vm.Value, scope *vm.DynamicScope, _ *vm.Block) (vm.Value, error) {
		return vm.NewArrayCopy(scope.Values()), nil
	},
	Call1: func(_ *vm.ThreadContext, _ vm.Value, scope *vm.DynamicScope, _ vm.Value, _ *vm.Block) (vm.Value, error) {
		return vm.NewArrayCopy(scope.Values()), nil
	},
	Call2: func(_ *vm.ThreadContext, _ vm.Value, scope *vm.DynamicScope, _, _ vm.Value, _ *vm.Block) (vm.Value, error) {
		return vm.NewArrayCopy(scope.Values()), nil
	},
	Call3: func(_ *vm.ThreadContext, _ vm.Value, scope *vm.DynamicScope, _, _, _ vm.Value, _ *vm.Block) (vm.Value, error) {
		return vm.NewArrayCopy(scope.Values()), nil
	},
}

// Body builds a recording body of the given variant for sig.
func Body(variant Variant, sig *vm.Signature) (*vm.BlockBody, error) {
	switch variant {
	case VariantInterpreted:
		return vm.NewInterpretedBody(nil, vm.ParamsFor(sig), record), nil
	case VariantIR:
		return vm.NewIRBody(nil, vm.ParamsFor(sig), record, false), nil
	case VariantCompiled:
		return vm.NewCompiledBody(nil, vm.ParamsFor(sig), record, recordDirect), nil
	case VariantMixed:
		interp := vm.NewInterpretedBody(nil, vm.ParamsFor(sig), record)
		return vm.NewMixedModeBody(interp, func(in *vm.BlockBody) (*vm.BlockBody, error) {
			return vm.NewCompiledBody(nil, vm.ParamsFor(in.Signature()), record, recordDirect), nil
		}), nil
	case VariantCallback:
		return vm.NewCallbackBody(sig, func(_ *vm.ThreadContext, args []vm.Value, _ *vm.Block) (vm.Value, error) {
			return vm.NewArrayCopy(args), nil
		}), nil
	}
	return nil, fmt.Errorf("unknown body variant %q", variant)
}

// Invoke runs c once against a body of the given variant and reports what
// the body observed.
func Invoke(tc *vm.ThreadContext, binding *vm.Binding, c Case, variant Variant, many int) (Outcome, error) {
	body, err := Body(variant, c.Sig)
	if err != nil {
		return Outcome{}, err
	}
	blk := vm.NewBlock(body, binding, c.Type)
	args := c.Args.Values(many)

	warned := false
	sink := tc.Warnings()
	prev := tc.SetWarnings(vm.WarningsFunc(func(id vm.WarningID, msg string) {
		if id == vm.WarnMultipleValues {
			warned = true
		}
		sink.Warn(id, "%s", msg)
	}))
	defer tc.SetWarnings(prev)

	var v vm.Value
	switch c.Entry {
	case vm.EntryYield:
		v, err = blk.Yield(tc, args[0])
	case vm.EntryYieldValues:
		v, err = blk.YieldSpecific(tc, args...)
	case vm.EntryCall:
		v, err = blk.Call(tc, args...)
	case vm.EntryYieldNonArray:
		v, err = blk.YieldNonArray(tc, args[0], tc.Runtime().TopSelf())
	default:
		return Outcome{}, fmt.Errorf("unknown entry %v", c.Entry)
	}
	if err != nil {
		if _, isJump := vm.AsJump(err); isJump {
			return Outcome{}, err
		}
		return Outcome{Err: ErrorKind(err), Warned: warned}, nil
	}
	return Outcome{Values: vm.Inspect(v), Warned: warned}, nil
}

// Want is the oracle outcome a variant is held to. Callback bodies see the
// reshaped argument list; every other variant binds parameters.
func Want(exp Expectation, variant Variant) Outcome {
	if variant == VariantCallback {
		return exp.Reconciled
	}
	return exp.Received
}

// Classification is the result of one case across variants.
type Classification struct {
	Case     string              `cbor:"1,keyasint" yaml:"case"`
	Expected Expectation         `cbor:"2,keyasint" yaml:"expected"`
	Got      map[Variant]Outcome `cbor:"3,keyasint" yaml:"got"`
}

// OK reports whether every variant matched the oracle.
func (c *Classification) OK() bool {
	for variant, got := range c.Got {
		if got != Want(c.Expected, variant) {
			return false
		}
	}
	return true
}

// Classify runs a single case through every given variant.
func Classify(tc *vm.ThreadContext, c Case, variants []Variant, many int) (*Classification, error) {
	if !c.Valid(many) {
		return nil, fmt.Errorf("%s passes %d arguments to a single-value entry", c.Args, c.Args.Count(many))
	}
	binding := tc.CurrentBinding()
	res := &Classification{Case: c.String(), Expected: Oracle(c, many), Got: map[Variant]Outcome{}}
	for _, variant := range variants {
		got, err := Invoke(tc, binding, c, variant, many)
		if err != nil {
			return nil, fmt.Errorf("%s (%s): %w", c, variant, err)
		}
		res.Got[variant] = got
	}
	return res, nil
}

// Run drives every case through every variant on a fresh thread context
// and compares each outcome with the oracle. It stops early when ctx is
// cancelled.
func Run(ctx context.Context, rt *vm.Runtime, cases []Case, variants []Variant, many int) (*Report, error) {
	if len(variants) == 0 {
		variants = AllVariants()
	}
	started := time.Now()
	report := &Report{
		ID:       uuid.NewString(),
		Started:  started.UnixNano(),
		Variants: variants,
		Cases:    len(cases),
	}

	tc := rt.NewThreadContext()
	binding := tc.CurrentBinding()
	for i, c := range cases {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			log.Debugf("run %s: case %d/%d", report.ID, i, len(cases))
		}
		exp := Oracle(c, many)
		for _, variant := range variants {
			got, err := Invoke(tc, binding, c, variant, many)
			if err != nil {
				return nil, fmt.Errorf("%s (%s): %w", c, variant, err)
			}
			report.Checks++
			if want := Want(exp, variant); got != want {
				report.Failed++
				report.Mismatches = append(report.Mismatches, Mismatch{
					Variant: variant,
					Case:    c.String(),
					Want:    want,
					Got:     got,
				})
			}
		}
	}
	report.Duration = time.Since(started)
	log.Infof("run %s: %d checks, %d failed in %s", report.ID, report.Checks, report.Failed, report.Duration)
	return report, nil
}
