package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "test-app"
version = "0.1.0"

[runtime]
frame-stack = 128
scope-stack = 32
backtrace = 16
warnings = false

[jit]
enabled = true
threshold = 10
background = false
queue = 8

[log]
verbosity = 2
file = "yield.log"

[store]
driver = "duckdb"
path = "runs.duckdb"

[server]
addr = "127.0.0.1:9000"

[conformance]
max-args = 4
variants = ["interpreted", "compiled"]
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" || m.Project.Version != "0.1.0" {
		t.Errorf("project = %+v", m.Project)
	}
	if m.Runtime.FrameStack != 128 || m.Runtime.ScopeStack != 32 || m.Runtime.Backtrace != 16 {
		t.Errorf("runtime = %+v", m.Runtime)
	}
	if m.Runtime.Warnings {
		t.Error("runtime warnings = true, want false")
	}
	if m.JIT.Threshold != 10 || m.JIT.Background || m.JIT.Queue != 8 {
		t.Errorf("jit = %+v", m.JIT)
	}
	if m.Store.Driver != "duckdb" {
		t.Errorf("store driver = %q, want duckdb", m.Store.Driver)
	}
	if m.StorePath() != filepath.Join(m.Dir, "runs.duckdb") {
		t.Errorf("StorePath() = %q", m.StorePath())
	}
	if lf := m.LogFile(); lf == nil || *lf != filepath.Join(m.Dir, "yield.log") {
		t.Errorf("LogFile() = %v", lf)
	}
	if m.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server addr = %q", m.Server.Addr)
	}
	if m.Conformance.MaxArgs != 4 || len(m.Conformance.Variants) != 2 {
		t.Errorf("conformance = %+v", m.Conformance)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := Default()
	if m.Runtime != def.Runtime || m.JIT != def.JIT || m.Store != def.Store {
		t.Errorf("defaults not applied: %+v %+v %+v", m.Runtime, m.JIT, m.Store)
	}
	if m.LogFile() != nil {
		t.Error("LogFile() should be nil by default")
	}
	if len(m.Conformance.Variants) != 5 {
		t.Errorf("variants = %v, want all five", m.Conformance.Variants)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load should fail without yield.toml")
	}
}

func TestLoadManifestUnknownKey(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[runtime]
frame-stak = 10
`)
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "frame-stak") {
		t.Errorf("error = %v, want the unknown key named", err)
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero frame stack", "[runtime]\nframe-stack = 0\n"},
		{"unknown driver", "[store]\ndriver = \"postgres\"\n"},
		{"unknown variant", "[conformance]\nvariants = [\"jit\"]\n"},
		{"bad address", "[server]\naddr = \"nowhere\"\n"},
		{"too many args", "[conformance]\nmax-args = 40\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			if _, err := Load(dir); err == nil {
				t.Error("Load should reject the manifest")
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"walk\"\n")
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil || m.Project.Name != "walk" {
		t.Fatalf("FindAndLoad = %+v, want the root manifest", m)
	}
}

func TestFindAndLoadNone(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		// A yield.toml above the temp dir would be found; only fail when
		// it is not ours.
		if _, statErr := os.Stat(filepath.Join(m.Dir, FileName)); statErr != nil {
			t.Errorf("FindAndLoad returned %+v without a file", m)
		}
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadOrDefault(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil {
		t.Fatal("LoadOrDefault returned nil")
	}
	if m.Dir == "" {
		t.Error("Dir should be set")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvFrameStack, "256")
	t.Setenv(EnvWarnings, "false")
	t.Setenv(EnvJITThreshold, "99")
	t.Setenv(EnvStoreDriver, "duckdb")
	t.Setenv(EnvServerAddr, "0.0.0.0:1234")

	m := Default()
	m.ApplyEnv()
	if m.Runtime.FrameStack != 256 {
		t.Errorf("frame stack = %d, want 256", m.Runtime.FrameStack)
	}
	if m.Runtime.Warnings {
		t.Error("warnings should be overridden to false")
	}
	if m.JIT.Threshold != 99 {
		t.Errorf("threshold = %d, want 99", m.JIT.Threshold)
	}
	if m.Store.Driver != "duckdb" || m.Server.Addr != "0.0.0.0:1234" {
		t.Errorf("store = %+v, server = %+v", m.Store, m.Server)
	}
	if m.Runtime.ScopeStack != Default().Runtime.ScopeStack {
		t.Error("unset variables should keep their values")
	}
}

func TestApplyEnvSeesLaterChanges(t *testing.T) {
	t.Setenv(EnvMaxArgs, "2")
	m := Default()
	m.ApplyEnv()
	if m.Conformance.MaxArgs != 2 {
		t.Fatalf("max args = %d, want 2", m.Conformance.MaxArgs)
	}

	t.Setenv(EnvMaxArgs, "4")
	t.Setenv(EnvLogVerbosity, "1")
	m = Default()
	m.ApplyEnv()
	if m.Conformance.MaxArgs != 4 {
		t.Errorf("max args = %d, want 4 after the variable changed", m.Conformance.MaxArgs)
	}
	if m.Log.Verbosity != 1 {
		t.Errorf("verbosity = %d, want 1", m.Log.Verbosity)
	}
}

func TestVMConfig(t *testing.T) {
	m := Default()
	m.Runtime.FrameStack = 10
	m.JIT.Threshold = 5
	m.JIT.Enabled = false
	cfg := m.VMConfig()
	if cfg.FrameStackSize != 10 || cfg.JITThreshold != 5 || cfg.JITEnabled {
		t.Errorf("VMConfig() = %+v", cfg)
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}
