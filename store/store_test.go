package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/yield/conformance"
	"github.com/chazu/yield/vm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "nested", "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport(started int64, failed int) *conformance.Report {
	r := &conformance.Report{
		ID:       uuid.NewString(),
		Started:  started,
		Duration: 2 * time.Second,
		Variants: conformance.AllVariants(),
		Cases:    10,
		Checks:   50,
		Failed:   failed,
	}
	for i := 0; i < failed; i++ {
		r.Mismatches = append(r.Mismatches, conformance.Mismatch{
			Variant: conformance.VariantIR,
			Case:    "proc [pre=2] yield scalar",
			Want:    conformance.Outcome{Values: "[5, nil]"},
			Got:     conformance.Outcome{Values: "[5]"},
		})
	}
	return r
}

func TestSaveLoad(t *testing.T) {
	s := openTestStore(t)
	r := testReport(100, 1)
	if err := s.Save(r); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load(r.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.ID != r.ID || got.Checks != 50 || got.Failed != 1 || got.Duration != 2*time.Second {
		t.Errorf("Load = %+v", got)
	}
	if len(got.Mismatches) != 1 || got.Mismatches[0] != r.Mismatches[0] {
		t.Errorf("mismatches = %+v", got.Mismatches)
	}
	if len(got.Variants) != len(r.Variants) {
		t.Errorf("variants = %v", got.Variants)
	}
}

func TestSaveReplaces(t *testing.T) {
	s := openTestStore(t)
	r := testReport(100, 0)
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}
	r.Failed = 3
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}
	runs, err := s.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Failed != 3 {
		t.Errorf("List = %+v, want one replaced run", runs)
	}
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Load(uuid.NewString()); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Load = %v, want ErrRunNotFound", err)
	}
}

func TestSaveRejectsBadID(t *testing.T) {
	s := openTestStore(t)
	r := testReport(1, 0)
	r.ID = "not-a-uuid"
	if err := s.Save(r); err == nil {
		t.Error("Save should reject a non-uuid id")
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	var ids []string
	for i := 1; i <= 3; i++ {
		r := testReport(int64(i)*1000, 0)
		ids = append(ids, r.ID)
		if err := s.Save(r); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || runs[0].ID != ids[2] || runs[2].ID != ids[0] {
		t.Fatalf("List = %+v", runs)
	}
	if runs[0].Started.UnixNano() != 3000 || runs[0].Duration != 2*time.Second {
		t.Errorf("summary = %+v", runs[0])
	}

	limited, err := s.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d runs", len(limited))
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	r := testReport(1, 0)
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(r.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load(r.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Load after Delete = %v", err)
	}
	if err := s.Delete(r.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second Delete = %v, want ErrRunNotFound", err)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	r := testReport(5, 0)
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(DriverSQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Load(r.ID); err != nil {
		t.Errorf("Load after reopen: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("postgres", filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Error("Open should reject an unknown driver")
	}
}

func TestRunThenStore(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a matrix")
	}
	s := openTestStore(t)
	rt := newRuntime(t)
	cfg := conformance.Config{MaxPre: 1, Many: 4}
	report, err := conformance.Run(t.Context(), rt, conformance.Matrix(cfg), nil, cfg.Many)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(report); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(report.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Checks != report.Checks || !got.OK() {
		t.Errorf("stored run = %d checks, %d failed", got.Checks, got.Failed)
	}
}

func newRuntime(t *testing.T) *vm.Runtime {
	t.Helper()
	cfg := vm.DefaultConfig()
	cfg.Warnings = false
	cfg.JITBackground = false
	rt := vm.NewRuntime(cfg)
	t.Cleanup(rt.Close)
	return rt
}
