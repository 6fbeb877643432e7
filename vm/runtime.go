package vm

import (
	"github.com/tliron/commonlog"
)

// Config sizes the per-goroutine stacks and configures promotion.
type Config struct {
	FrameStackSize int
	ScopeStackSize int
	BacktraceSize  int

	// Warnings enables the warnings sink; when false warnings are dropped.
	Warnings bool

	JITEnabled    bool
	JITThreshold  uint64
	JITBackground bool
	JITQueue      int
}

// DefaultConfig returns the stack sizes and promotion settings used when
// nothing is configured.
func DefaultConfig() Config {
	return Config{
		FrameStackSize: 64,
		ScopeStackSize: 64,
		BacktraceSize:  64,
		Warnings:       true,
		JITEnabled:     true,
		JITThreshold:   50,
		JITBackground:  true,
		JITQueue:       100,
	}
}

// Runtime owns what ThreadContexts share: configuration, the warnings
// sink, the profiler and the JIT. It is safe for concurrent use; each
// goroutine gets its own ThreadContext from NewThreadContext.
type Runtime struct {
	config   Config
	log      commonlog.Logger
	warnings Warnings
	profiler *Profiler
	jit      *JITCompiler

	objectModule *Module
	topSelf      Value
	topScope     *StaticScope
}

// NewRuntime creates a runtime. Zero stack sizes fall back to defaults.
func NewRuntime(cfg Config) *Runtime {
	def := DefaultConfig()
	if cfg.FrameStackSize <= 0 {
		cfg.FrameStackSize = def.FrameStackSize
	}
	if cfg.ScopeStackSize <= 0 {
		cfg.ScopeStackSize = def.ScopeStackSize
	}
	if cfg.BacktraceSize <= 0 {
		cfg.BacktraceSize = def.BacktraceSize
	}
	if cfg.JITThreshold == 0 {
		cfg.JITThreshold = def.JITThreshold
	}

	rt := &Runtime{
		config:       cfg,
		log:          commonlog.GetLogger("yield.vm"),
		profiler:     NewProfiler(),
		objectModule: NewModule("Object"),
	}
	rt.topSelf = NewObject(rt.objectModule)
	rt.topScope = NewLocalScope(rt.objectModule)
	rt.profiler.BodyHotThreshold = cfg.JITThreshold
	rt.profiler.MethodHotThreshold = cfg.JITThreshold

	if cfg.Warnings {
		rt.warnings = NewLogWarnings()
	} else {
		rt.warnings = SilentWarnings
	}
	if cfg.JITEnabled {
		rt.jit = NewJITCompiler(rt.profiler, cfg.JITBackground, cfg.JITQueue)
	}
	rt.log.Debugf("runtime created (frames=%d scopes=%d jit=%v)", cfg.FrameStackSize, cfg.ScopeStackSize, cfg.JITEnabled)
	return rt
}

// NewThreadContext creates call state for one goroutine.
func (rt *Runtime) NewThreadContext() *ThreadContext {
	return newThreadContext(rt)
}

// SetWarnings replaces the warnings sink. Call before handing out
// ThreadContexts.
func (rt *Runtime) SetWarnings(w Warnings) {
	if w == nil {
		w = SilentWarnings
	}
	rt.warnings = w
}

func (rt *Runtime) Config() Config        { return rt.config }
func (rt *Runtime) Warnings() Warnings    { return rt.warnings }
func (rt *Runtime) Profiler() *Profiler   { return rt.profiler }
func (rt *Runtime) ObjectModule() *Module { return rt.objectModule }
func (rt *Runtime) TopSelf() Value        { return rt.topSelf }

// JIT returns the JIT, or nil when promotion is disabled.
func (rt *Runtime) JIT() *JITCompiler { return rt.jit }

// Close stops background work.
func (rt *Runtime) Close() {
	if rt.jit != nil {
		rt.jit.Stop()
	}
}
