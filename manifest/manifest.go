// Package manifest handles yield.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/yield/vm"
)

// FileName is the name of the configuration file.
const FileName = "yield.toml"

// Manifest represents a yield.toml configuration.
type Manifest struct {
	Project     Project     `toml:"project" json:"project"`
	Runtime     Runtime     `toml:"runtime" json:"runtime"`
	JIT         JIT         `toml:"jit" json:"jit"`
	Log         Log         `toml:"log" json:"log"`
	Store       Store       `toml:"store" json:"store"`
	Server      Server      `toml:"server" json:"server"`
	Conformance Conformance `toml:"conformance" json:"conformance"`

	// Dir is the directory containing the yield.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version"`
}

// Runtime sizes the per-goroutine stacks.
type Runtime struct {
	FrameStack int  `toml:"frame-stack" json:"frame-stack"`
	ScopeStack int  `toml:"scope-stack" json:"scope-stack"`
	Backtrace  int  `toml:"backtrace" json:"backtrace"`
	Warnings   bool `toml:"warnings" json:"warnings"`
}

// JIT configures promotion of mixed mode block bodies.
type JIT struct {
	Enabled    bool `toml:"enabled" json:"enabled"`
	Threshold  int  `toml:"threshold" json:"threshold"`
	Background bool `toml:"background" json:"background"`
	Queue      int  `toml:"queue" json:"queue"`
}

// Log configures commonlog. Verbosity -1 disables logging.
type Log struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// Store configures where conformance runs are recorded.
type Store struct {
	Driver string `toml:"driver" json:"driver"`
	Path   string `toml:"path" json:"path"`
}

// Server configures the inspection service.
type Server struct {
	Addr string `toml:"addr" json:"addr"`
}

// Conformance configures the dispatch matrix.
type Conformance struct {
	MaxArgs  int      `toml:"max-args" json:"max-args"`
	Variants []string `toml:"variants" json:"variants"`
}

// Default returns the configuration used when no yield.toml exists.
func Default() *Manifest {
	cfg := vm.DefaultConfig()
	return &Manifest{
		Project: Project{Name: "yield"},
		Runtime: Runtime{
			FrameStack: cfg.FrameStackSize,
			ScopeStack: cfg.ScopeStackSize,
			Backtrace:  cfg.BacktraceSize,
			Warnings:   cfg.Warnings,
		},
		JIT: JIT{
			Enabled:    cfg.JITEnabled,
			Threshold:  int(cfg.JITThreshold),
			Background: cfg.JITBackground,
			Queue:      cfg.JITQueue,
		},
		Log:    Log{Verbosity: 0},
		Store:  Store{Driver: "sqlite", Path: filepath.Join(".yield", "runs.db")},
		Server: Server{Addr: "localhost:7411"},
		Conformance: Conformance{
			MaxArgs:  3,
			Variants: []string{"interpreted", "ir", "compiled", "mixed", "callback"},
		},
	}
}

// Parse decodes yield.toml content over the defaults. Keys absent from data
// keep their default values.
func Parse(data []byte) (*Manifest, error) {
	m := Default()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return m, nil
}

// Load parses a yield.toml file from the given directory, applies
// environment overrides and validates the result.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.ApplyEnv()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a yield.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// LoadOrDefault is FindAndLoad falling back to the defaults, with
// environment overrides applied either way.
func LoadOrDefault(startDir string) (*Manifest, error) {
	m, err := FindAndLoad(startDir)
	if err != nil || m != nil {
		return m, err
	}
	m = Default()
	m.Dir, err = filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	m.ApplyEnv()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// VMConfig converts the runtime and JIT sections to a vm.Config.
func (m *Manifest) VMConfig() vm.Config {
	return vm.Config{
		FrameStackSize: m.Runtime.FrameStack,
		ScopeStackSize: m.Runtime.ScopeStack,
		BacktraceSize:  m.Runtime.Backtrace,
		Warnings:       m.Runtime.Warnings,
		JITEnabled:     m.JIT.Enabled,
		JITThreshold:   uint64(m.JIT.Threshold),
		JITBackground:  m.JIT.Background,
		JITQueue:       m.JIT.Queue,
	}
}

// StorePath returns the store path resolved against Dir.
func (m *Manifest) StorePath() string {
	return m.resolve(m.Store.Path)
}

// LogFile returns the log file resolved against Dir, or nil for stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.resolve(m.Log.File)
	return &path
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) || m.Dir == "" {
		return path
	}
	return filepath.Join(m.Dir, path)
}
