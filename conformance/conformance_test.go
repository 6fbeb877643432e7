package conformance

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/chazu/yield/vm"
)

func testRuntime(t *testing.T) *vm.Runtime {
	t.Helper()
	cfg := vm.DefaultConfig()
	cfg.Warnings = false
	cfg.JITThreshold = 1
	cfg.JITBackground = false
	rt := vm.NewRuntime(cfg)
	t.Cleanup(rt.Close)
	return rt
}

func TestOracleDecisionTable(t *testing.T) {
	sig := func(text string) *vm.Signature {
		s, err := vm.ParseSignature(text)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	tests := []struct {
		name     string
		c        Case
		received string
		err      string
	}{
		{"yield array to |a, b|", Case{vm.TypeNormal, sig("pre=2"), vm.EntryYield, ArgsArray}, "[1, 2]", ""},
		{"yield scalar to |a, b|", Case{vm.TypeNormal, sig("pre=2"), vm.EntryYield, ArgsScalar}, "[5, nil]", ""},
		{"yield array to |a|", Case{vm.TypeProc, sig("pre=1"), vm.EntryYield, ArgsArray}, "[[1, 2]]", ""},
		{"yield values to |a|", Case{vm.TypeProc, sig("pre=1"), vm.EntryYieldValues, ArgsTwo}, "[[1, 2]]", ""},
		{"yield to no parameters", Case{vm.TypeProc, sig(""), vm.EntryYieldValues, ArgsThree}, "[]", ""},
		{"trailing comma", Case{vm.TypeProc, sig("pre=1,rest=anon"), vm.EntryYield, ArgsArray}, "[1]", ""},
		{"coercible object", Case{vm.TypeNormal, sig("pre=2"), vm.EntryYield, ArgsCoercible}, "[8, 9]", ""},
		{"bad coercion", Case{vm.TypeNormal, sig("pre=2"), vm.EntryYield, ArgsBadCoercible}, "", KindTypeCoercion},
		{"normal call unwraps for rest", Case{vm.TypeNormal, sig("rest=norm"), vm.EntryCall, ArgsArray}, "[[1, 2]]", ""},
		{"proc call keeps array for rest", Case{vm.TypeProc, sig("rest=norm"), vm.EntryCall, ArgsArray}, "[[[1, 2]]]", ""},
		{"call squeezes into one", Case{vm.TypeProc, sig("pre=1"), vm.EntryCall, ArgsThree}, "[1]", ""},
		{"lambda arity", Case{vm.TypeLambda, sig("pre=2"), vm.EntryCall, ArgsArray}, "", KindArgumentCount},
		{"lambda yield not destructured", Case{vm.TypeLambda, sig("pre=1"), vm.EntryYield, ArgsArray}, "[[1, 2]]", ""},
		{"non array entry", Case{vm.TypeProc, sig("pre=2"), vm.EntryYieldNonArray, ArgsArray}, "[[1, 2], nil]", ""},
		{"optional keyword", Case{vm.TypeProc, sig("pre=1,kw=0/1"), vm.EntryYield, ArgsArray}, "[1, nil]", ""},
		{"keyword rest", Case{vm.TypeProc, sig("pre=1,kwrest"), vm.EntryYieldValues, ArgsTwo}, "[1, {}]", ""},
		{"lambda keyword overflow", Case{vm.TypeLambda, sig("pre=1,kw=0/1"), vm.EntryYieldValues, ArgsTwo}, "", KindArgumentCount},
		{"opt and post", Case{vm.TypeProc, sig("pre=1,opt=1,post=1"), vm.EntryYieldValues, ArgsTwo}, "[1, nil, 2]", ""},
		{"rest between", Case{vm.TypeProc, sig("pre=1,rest=norm,post=1"), vm.EntryYieldValues, ArgsMany}, "[1, [2, 3, 4], 5]", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Oracle(tt.c, 5).Received
			if got.Err != tt.err {
				t.Fatalf("Oracle(%s) error = %q, want %q", tt.c, got.Err, tt.err)
			}
			if tt.err == "" && got.Values != tt.received {
				t.Errorf("Oracle(%s) = %s, want %s", tt.c, got.Values, tt.received)
			}
		})
	}
}

func TestOracleWarnings(t *testing.T) {
	c := Case{vm.TypeProc, vm.OneArgument, vm.EntryCall, ArgsTwo}
	if !Oracle(c, 5).Warns {
		t.Error("two values called into |a| should warn")
	}
	c.Entry = vm.EntryYieldValues
	if Oracle(c, 5).Warns {
		t.Error("yielding two values to |a| should not warn")
	}
}

func TestOracleLambdaKeywordOverflowReconciles(t *testing.T) {
	sig := vm.SignatureFrom(1, 0, 0, vm.RestNone, 1, 0, false)
	exp := Oracle(Case{vm.TypeLambda, sig, vm.EntryYieldValues, ArgsTwo}, 5)
	if exp.Reconciled.Err != "" || exp.Reconciled.Values != "[1, 2]" {
		t.Errorf("Reconciled = %v, want [1, 2]", exp.Reconciled)
	}
	if exp.Received.Err != KindArgumentCount {
		t.Errorf("Received = %v, want an argument count error", exp.Received)
	}
}

func TestShapes(t *testing.T) {
	shapes := Shapes(Config{MaxPre: 1})
	seen := map[*vm.Signature]bool{}
	for _, s := range shapes {
		if seen[s] {
			t.Errorf("shape %s listed twice", s)
		}
		seen[s] = true
		if s.Rest() == vm.RestAnon && (s.Pre() == 0 || s.Opt() > 0 || s.Post() > 0) {
			t.Errorf("trailing comma shape %s cannot be written", s)
		}
	}
	// pre 0..1 x opt x post x {none, norm, star} plus |a,|
	if want := 2*2*2*3 + 1; len(shapes) != want {
		t.Errorf("len(Shapes) = %d, want %d", len(shapes), want)
	}
	if len(Shapes(Config{MaxPre: 1, Keywords: true})) <= len(shapes) {
		t.Error("keywords should add shapes")
	}
}

func TestMatrixValidCases(t *testing.T) {
	cfg := DefaultConfig()
	cases := Matrix(cfg)
	if len(cases) == 0 {
		t.Fatal("empty matrix")
	}
	for _, c := range cases {
		if (c.Entry == vm.EntryYield || c.Entry == vm.EntryYieldNonArray) && c.Args.Count(cfg.many()) != 1 {
			t.Fatalf("%s passes several values to a single-value entry", c)
		}
	}

	cfg.Types = []vm.Type{vm.TypeLambda}
	cfg.Entries = []vm.Entry{vm.EntryCall}
	for _, c := range Matrix(cfg) {
		if c.Type != vm.TypeLambda || c.Entry != vm.EntryCall {
			t.Fatalf("restricted matrix produced %s", c)
		}
	}
}

func TestCaseStringRoundTrip(t *testing.T) {
	for _, c := range Matrix(Config{MaxPre: 2, Keywords: true}) {
		parsed, err := ParseCase(c.String())
		if err != nil {
			t.Fatalf("ParseCase(%q): %v", c, err)
		}
		if parsed != c {
			t.Fatalf("ParseCase(%q) = %s", c, parsed)
		}
	}
	if _, err := ParseCase("proc pre=1 yield scalar"); err == nil {
		t.Error("ParseCase should reject a case without brackets")
	}
	if _, err := ParseCase("sideways [pre=1] yield scalar"); err == nil {
		t.Error("ParseCase should reject an unknown type")
	}
}

func TestParseVariants(t *testing.T) {
	vs, err := ParseVariants([]string{"ir", "callback"})
	if err != nil || len(vs) != 2 || vs[0] != VariantIR {
		t.Errorf("ParseVariants = %v, %v", vs, err)
	}
	if _, err := ParseVariants([]string{"jit"}); err == nil {
		t.Error("ParseVariants should reject unknown names")
	}
}

func TestClassify(t *testing.T) {
	rt := testRuntime(t)
	tc := rt.NewThreadContext()
	c := Case{vm.TypeNormal, vm.TwoArguments, vm.EntryYield, ArgsScalar}

	res, err := Classify(tc, c, AllVariants(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() {
		t.Errorf("Classify(%s) = %+v", c, res.Got)
	}
	if got := res.Got[VariantCompiled].Values; got != "[5, nil]" {
		t.Errorf("compiled body received %s, want [5, nil]", got)
	}
	if got := res.Got[VariantCallback].Values; got != "[5]" {
		t.Errorf("callback body received %s, want [5]", got)
	}

	none := Case{vm.TypeNormal, vm.NoArguments, vm.EntryYield, ArgsScalar}
	res, err = Classify(tc, none, AllVariants(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Got[VariantCallback].Values; got != "[]" || !res.OK() {
		t.Errorf("yield scalar to || = %+v, want every variant to receive []", res.Got)
	}

	bad := Case{vm.TypeNormal, vm.TwoArguments, vm.EntryYield, ArgsTwo}
	if _, err := Classify(tc, bad, AllVariants(), 5); err == nil {
		t.Error("Classify should reject two values to a single-value entry")
	}
}

func TestClassifyRecordsWarnings(t *testing.T) {
	rt := testRuntime(t)
	tc := rt.NewThreadContext()
	c := Case{vm.TypeProc, vm.OneArgument, vm.EntryCall, ArgsTwo}

	res, err := Classify(tc, c, AllVariants(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Expected.Received.Warned || !res.Expected.Reconciled.Warned {
		t.Fatalf("expectation %+v should carry the warning", res.Expected)
	}
	for variant, got := range res.Got {
		if !got.Warned {
			t.Errorf("%s: no multiple-values warning recorded", variant)
		}
		if got.Values != "[1]" {
			t.Errorf("%s received %s, want [1]", variant, got.Values)
		}
	}
	if !res.OK() {
		t.Errorf("Classify(%s) = %+v", c, res.Got)
	}

	silent := res.Got[VariantCompiled]
	silent.Warned = false
	if silent == Want(res.Expected, VariantCompiled) {
		t.Error("a missing warning should count as a mismatch")
	}
	if tc.Warnings() != vm.SilentWarnings {
		t.Error("Invoke should restore the thread's warnings sink")
	}

	quiet := Case{vm.TypeProc, vm.OneArgument, vm.EntryYieldValues, ArgsTwo}
	res, err = Classify(tc, quiet, AllVariants(), 5)
	if err != nil {
		t.Fatal(err)
	}
	for variant, got := range res.Got {
		if got.Warned {
			t.Errorf("%s: yielding two values to |a| should not warn", variant)
		}
	}
}

func TestRunFullMatrix(t *testing.T) {
	rt := testRuntime(t)
	cases := Matrix(DefaultConfig())
	report, err := Run(context.Background(), rt, cases, nil, DefaultConfig().Many)
	if err != nil {
		t.Fatal(err)
	}
	if report.Cases != len(cases) || report.Checks != len(cases)*len(AllVariants()) {
		t.Errorf("report counts cases=%d checks=%d", report.Cases, report.Checks)
	}
	for i, m := range report.Mismatches {
		if i == 20 {
			t.Errorf("... %d more", len(report.Mismatches)-20)
			break
		}
		t.Errorf("%s (%s): got %s, want %s", m.Case, m.Variant, m.Got, m.Want)
	}
	if report.ID == "" || report.Started == 0 {
		t.Error("report should carry an id and start time")
	}
}

func TestRunCancelled(t *testing.T) {
	rt := testRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, rt, Matrix(DefaultConfig()), nil, 5); err == nil {
		t.Error("Run should stop on a cancelled context")
	}
}

func TestRunDetectsMismatch(t *testing.T) {
	rt := testRuntime(t)
	tc := rt.NewThreadContext()
	c := Case{vm.TypeProc, vm.TwoArguments, vm.EntryYield, ArgsArray}
	got, err := Invoke(tc, tc.CurrentBinding(), c, VariantInterpreted, 5)
	if err != nil {
		t.Fatal(err)
	}
	wrong := Oracle(Case{vm.TypeLambda, vm.TwoArguments, vm.EntryYield, ArgsArray}, 5)
	if got == Want(wrong, VariantInterpreted) {
		t.Errorf("lambda and proc expectations should differ for %s", c)
	}
}

func TestReportCBORRoundTrip(t *testing.T) {
	r := &Report{
		ID:       "run-1",
		Started:  1700000000123456789,
		Duration: 1500,
		Variants: []Variant{VariantIR, VariantMixed},
		Cases:    2,
		Checks:   4,
		Failed:   1,
		Mismatches: []Mismatch{{
			Variant: VariantIR,
			Case:    "proc [pre=2] yield array",
			Want:    Outcome{Values: "[1, 2]"},
			Got:     Outcome{Err: KindArgumentCount},
		}},
	}
	data, err := MarshalReport(r)
	if err != nil {
		t.Fatal(err)
	}
	again, err := MarshalReport(r)
	if err != nil || !bytes.Equal(data, again) {
		t.Error("canonical encoding should be deterministic")
	}

	got, err := UnmarshalReport(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != r.ID || got.Started != r.Started || got.Duration != r.Duration || got.Failed != 1 {
		t.Errorf("UnmarshalReport = %+v", got)
	}
	if len(got.Mismatches) != 1 || got.Mismatches[0] != r.Mismatches[0] {
		t.Errorf("mismatches = %+v", got.Mismatches)
	}
	if got.Passed() != 3 || got.OK() {
		t.Errorf("Passed() = %d, OK() = %v", got.Passed(), got.OK())
	}
	if got.StartedAt().UnixNano() != r.Started {
		t.Error("StartedAt should round trip")
	}

	if _, err := UnmarshalReport([]byte{0xff}); err == nil {
		t.Error("UnmarshalReport should reject garbage")
	}
}

func TestClassificationCBORRoundTrip(t *testing.T) {
	rt := testRuntime(t)
	c := Case{vm.TypeLambda, vm.OneArgument, vm.EntryCall, ArgsTwo}
	res, err := Classify(rt.NewThreadContext(), c, AllVariants(), 5)
	if err != nil {
		t.Fatal(err)
	}
	data, err := MarshalClassification(res)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalClassification(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Case != res.Case || got.Expected != res.Expected || len(got.Got) != len(res.Got) {
		t.Errorf("UnmarshalClassification = %+v", got)
	}
	if got.Got[VariantMixed].Err != KindArgumentCount {
		t.Errorf("mixed = %v, want an argument count error", got.Got[VariantMixed])
	}
}

func TestReportWriteYAML(t *testing.T) {
	r := &Report{ID: "abc", Variants: []Variant{VariantCallback}, Cases: 1, Checks: 1}
	var buf bytes.Buffer
	if err := r.WriteYAML(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"id: abc", "- callback", "checks: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "mismatches") {
		t.Error("empty mismatches should be omitted")
	}
}
