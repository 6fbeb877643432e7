package manifest

import (
	"github.com/xyproto/env/v2"
)

// Environment variables that override yield.toml.
const (
	EnvFrameStack    = "YIELD_FRAME_STACK"
	EnvScopeStack    = "YIELD_SCOPE_STACK"
	EnvBacktrace     = "YIELD_BACKTRACE"
	EnvWarnings      = "YIELD_WARNINGS"
	EnvJIT           = "YIELD_JIT"
	EnvJITThreshold  = "YIELD_JIT_THRESHOLD"
	EnvJITBackground = "YIELD_JIT_BACKGROUND"
	EnvJITQueue      = "YIELD_JIT_QUEUE"
	EnvLogVerbosity  = "YIELD_LOG_VERBOSITY"
	EnvLogFile       = "YIELD_LOG_FILE"
	EnvStoreDriver   = "YIELD_STORE_DRIVER"
	EnvStorePath     = "YIELD_STORE_PATH"
	EnvServerAddr    = "YIELD_ADDR"
	EnvMaxArgs       = "YIELD_MAX_ARGS"
)

// ApplyEnv overrides settings from YIELD_* environment variables. Unset
// variables leave the current values alone. The environment is re-read on
// every call.
func (m *Manifest) ApplyEnv() {
	env.Load()

	m.Runtime.FrameStack = env.Int(EnvFrameStack, m.Runtime.FrameStack)
	m.Runtime.ScopeStack = env.Int(EnvScopeStack, m.Runtime.ScopeStack)
	m.Runtime.Backtrace = env.Int(EnvBacktrace, m.Runtime.Backtrace)
	m.Runtime.Warnings = boolEnv(EnvWarnings, m.Runtime.Warnings)

	m.JIT.Enabled = boolEnv(EnvJIT, m.JIT.Enabled)
	m.JIT.Threshold = env.Int(EnvJITThreshold, m.JIT.Threshold)
	m.JIT.Background = boolEnv(EnvJITBackground, m.JIT.Background)
	m.JIT.Queue = env.Int(EnvJITQueue, m.JIT.Queue)

	m.Log.Verbosity = env.Int(EnvLogVerbosity, m.Log.Verbosity)
	m.Log.File = env.Str(EnvLogFile, m.Log.File)

	m.Store.Driver = env.Str(EnvStoreDriver, m.Store.Driver)
	m.Store.Path = env.Str(EnvStorePath, m.Store.Path)

	m.Server.Addr = env.Str(EnvServerAddr, m.Server.Addr)

	m.Conformance.MaxArgs = env.Int(EnvMaxArgs, m.Conformance.MaxArgs)
}

func boolEnv(name string, current bool) bool {
	if !env.Has(name) {
		return current
	}
	return env.Bool(name)
}
