package vm

import (
	"errors"
	"sync"
	"testing"
)

func TestSignatureInterning(t *testing.T) {
	a := SignatureFrom(2, 1, 0, RestNorm, 0, 0, false)
	b := SignatureFrom(2, 1, 0, RestNorm, 0, 0, false)
	if a != b {
		t.Error("equal shapes should share one instance")
	}
	if SignatureFrom(1, 0, 0, RestNone, 0, 0, false) != OneArgument {
		t.Error("SignatureFrom(1, ...) should return OneArgument")
	}
	if SignatureFrom(0, 0, 0, RestNorm, 0, 0, false) != OptionalArguments {
		t.Error("SignatureFrom(0, 0, 0, RestNorm, ...) should return OptionalArguments")
	}
}

func TestSignatureInterningConcurrent(t *testing.T) {
	const n = 32
	results := make([]*Signature, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = SignatureFrom(7, 3, 2, RestStar, 4, 2, true)
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d observed a different instance", i)
		}
	}
}

func TestSignatureArityValue(t *testing.T) {
	tests := []struct {
		name string
		sig  *Signature
		want int
	}{
		{"no arguments", NoArguments, 0},
		{"two required", TwoArguments, 2},
		{"pre and post", SignatureFrom(1, 0, 2, RestNone, 0, 0, false), 3},
		{"optional", SignatureFrom(1, 1, 0, RestNone, 0, 0, false), -2},
		{"rest", SignatureFrom(2, 0, 0, RestNorm, 0, 0, false), -3},
		{"star", SignatureFrom(0, 0, 0, RestStar, 0, 0, false), -1},
		{"anon rest is fixed", SignatureFrom(1, 0, 0, RestAnon, 0, 0, false), 1},
		{"required keyword", SignatureFrom(1, 0, 0, RestNone, 1, 1, false), 2},
		{"required and optional keywords", SignatureFrom(1, 0, 0, RestNone, 2, 1, false), 2},
		{"optional keyword", SignatureFrom(1, 0, 0, RestNone, 1, 0, false), -2},
		{"keyword rest", SignatureFrom(0, 0, 0, RestNone, 0, 0, true), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sig.ArityValue(); got != tt.want {
				t.Errorf("ArityValue() = %d, want %d", got, tt.want)
			}
			if tt.sig.Arity() != ArityOf(tt.want) {
				t.Error("Arity() should be the interned arity")
			}
		})
	}
}

func TestSignatureCheckArity(t *testing.T) {
	tests := []struct {
		sig *Signature
		n   int
		ok  bool
	}{
		{NoArguments, 0, true},
		{NoArguments, 1, false},
		{TwoArguments, 1, false},
		{TwoArguments, 2, true},
		{TwoArguments, 3, false},
		{SignatureFrom(1, 2, 0, RestNone, 0, 0, false), 0, false},
		{SignatureFrom(1, 2, 0, RestNone, 0, 0, false), 3, true},
		{SignatureFrom(1, 2, 0, RestNone, 0, 0, false), 4, false},
		{OneRequired, 1, true},
		{OneRequired, 100, true},
		// A keyword signature accepts one extra argument for the hash.
		{SignatureFrom(3, 0, 0, RestNone, 1, 0, false), 4, true},
		{SignatureFrom(3, 0, 0, RestNone, 1, 0, false), 5, false},
	}
	for _, tt := range tests {
		err := tt.sig.CheckArity(tt.n)
		if (err == nil) != tt.ok {
			t.Errorf("%s CheckArity(%d) = %v, want ok=%v", tt.sig, tt.n, err, tt.ok)
		}
		var countErr *ArgumentCountError
		if err != nil && !errors.As(err, &countErr) {
			t.Errorf("%s CheckArity(%d) returned %T, want *ArgumentCountError", tt.sig, tt.n, err)
		}
	}
}

func TestSignatureCheckArityArgs(t *testing.T) {
	sig := SignatureFrom(1, 0, 0, RestNone, 1, 0, false)
	if err := sig.CheckArityArgs([]Value{Int(1), HashOf("k", Int(2))}); err != nil {
		t.Errorf("trailing hash: %v", err)
	}
	if err := sig.CheckArityArgs([]Value{Int(1), Int(2)}); err == nil {
		t.Error("trailing non-hash should be rejected")
	}
}

func TestSignatureEncodeDecode(t *testing.T) {
	sigs := []*Signature{
		NoArguments,
		ThreeRequired,
		SignatureFrom(4, 3, 2, RestAnon, 0, 0, false),
		SignatureFrom(1, 0, 1, RestStar, 5, 3, true),
		SignatureFrom(sigMaxCount, sigMaxCount, sigMaxCount, RestNorm, sigMaxKw, sigMaxKw, true),
	}
	for _, s := range sigs {
		got, err := DecodeSignature(s.Encode())
		if err != nil {
			t.Fatalf("DecodeSignature(%s): %v", s, err)
		}
		if got != s {
			t.Errorf("DecodeSignature(Encode(%s)) = %s", s, got)
		}
	}
	if _, err := DecodeSignature(^uint64(0)); err == nil {
		t.Error("DecodeSignature should reject out of range bits")
	}
}

func TestSignatureFromPanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("SignatureFrom should panic for kwargs < requiredKwargs")
		}
	}()
	SignatureFrom(0, 0, 0, RestNone, 1, 2, false)
}

func TestSignatureStringRoundTrip(t *testing.T) {
	sigs := []*Signature{
		NoArguments,
		SignatureFrom(2, 1, 1, RestNorm, 2, 1, true),
		SignatureFrom(1, 0, 0, RestAnon, 0, 0, false),
	}
	for _, s := range sigs {
		got, err := ParseSignature(s.String())
		if err != nil {
			t.Fatalf("ParseSignature(%q): %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseSignature(%q) = %s", s.String(), got)
		}
	}
	if s := SignatureFrom(2, 1, 1, RestNorm, 2, 1, true).String(); s != "pre=2,opt=1,rest=norm,post=1,kw=1/2,kwrest" {
		t.Errorf("String() = %q", s)
	}
	if _, err := ParseSignature("pre=1,bogus=2"); err == nil {
		t.Error("ParseSignature should reject unknown fields")
	}
	if _, err := ParseSignature("kw=3/1"); err == nil {
		t.Error("ParseSignature should reject more required than total keywords")
	}
}

func TestSignatureFromArity(t *testing.T) {
	if SignatureFromArity(2) != TwoArguments {
		t.Error("SignatureFromArity(2) should be TwoArguments")
	}
	if SignatureFromArity(-2) != OneRequired {
		t.Error("SignatureFromArity(-2) should be OneRequired")
	}
	if SignatureFromArity(-1) != OptionalArguments {
		t.Error("SignatureFromArity(-1) should be OptionalArguments")
	}
}

func TestSignatureIsSpreadable(t *testing.T) {
	tests := []struct {
		sig  *Signature
		want bool
	}{
		{NoArguments, false},
		{OneArgument, false},
		{TwoArguments, true},
		{OptionalArguments, false},
		{OneRequired, true},
		{SignatureFrom(1, 1, 0, RestNone, 0, 0, false), true},
		{SignatureFrom(0, 1, 0, RestNone, 0, 0, false), false},
		{SignatureFrom(0, 2, 0, RestNone, 0, 0, false), true},
		{SignatureFrom(1, 0, 0, RestAnon, 0, 0, false), true},
		{SignatureFrom(0, 0, 0, RestNone, 1, 0, false), true},
	}
	for _, tt := range tests {
		if got := tt.sig.IsSpreadable(); got != tt.want {
			t.Errorf("%s IsSpreadable() = %v, want %v", tt.sig, got, tt.want)
		}
	}
}

func TestSignaturePredicates(t *testing.T) {
	if !OneArgument.IsSingleParameter() {
		t.Error("OneArgument should be a single parameter")
	}
	if OneRequired.IsSingleParameter() {
		t.Error("OneRequired should not be a single parameter")
	}
	if !NoArguments.IsNoArguments() || !OneArgument.IsOneArgument() || !TwoArguments.IsTwoArguments() {
		t.Error("singleton predicates disagree with their singletons")
	}
	if OneRequired.Max() != -1 {
		t.Errorf("OneRequired.Max() = %d, want -1", OneRequired.Max())
	}
	anon := SignatureFrom(1, 0, 0, RestAnon, 0, 0, false)
	if anon.HasRest() {
		t.Error("anonymous rest should not absorb arguments")
	}
	if anon.Max() != 1 {
		t.Errorf("anon.Max() = %d, want 1", anon.Max())
	}
}

func TestArity(t *testing.T) {
	if ArityOf(2) != ArityTwoArguments {
		t.Error("ArityOf(2) should be interned")
	}
	if ArityOneRequired.Required() != 1 || ArityOneRequired.IsFixed() {
		t.Errorf("ArityOneRequired: Required() = %d, IsFixed() = %v", ArityOneRequired.Required(), ArityOneRequired.IsFixed())
	}
	if err := ArityTwoArguments.CheckArity(2); err != nil {
		t.Errorf("CheckArity(2): %v", err)
	}
	if err := ArityTwoArguments.CheckArity(3); err == nil {
		t.Error("CheckArity(3) should fail for a fixed arity of 2")
	}
	if err := ArityTwoRequired.CheckArity(1); err == nil {
		t.Error("CheckArity(1) should fail for at least 2")
	}
	if err := ArityTwoRequired.CheckArity(9); err != nil {
		t.Errorf("CheckArity(9): %v", err)
	}
}

func TestArgumentCountErrorMessage(t *testing.T) {
	tests := []struct {
		err  *ArgumentCountError
		want string
	}{
		{&ArgumentCountError{Given: 1, Min: 2, Max: 2}, "wrong number of arguments (given 1, expected 2)"},
		{&ArgumentCountError{Given: 0, Min: 1, Max: -1}, "wrong number of arguments (given 0, expected 1+)"},
		{&ArgumentCountError{Given: 4, Min: 1, Max: 3}, "wrong number of arguments (given 4, expected 1..3)"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
