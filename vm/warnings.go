package vm

import (
	"fmt"

	"github.com/tliron/commonlog"
)

// WarningID classifies a warning.
type WarningID string

const (
	WarnMultipleValues WarningID = "multiple_values"
	WarnBlockUnused    WarningID = "block_unused"
)

// Warnings receives non-fatal diagnostics. Emitting a warning never changes
// control flow.
type Warnings interface {
	Warn(id WarningID, format string, args ...any)
}

// WarningsFunc adapts a function to Warnings.
type WarningsFunc func(id WarningID, msg string)

func (f WarningsFunc) Warn(id WarningID, format string, args ...any) {
	f(id, fmt.Sprintf(format, args...))
}

// LogWarnings writes warnings to a commonlog logger.
type LogWarnings struct {
	log commonlog.Logger
}

// NewLogWarnings logs to the "yield.warnings" logger.
func NewLogWarnings() *LogWarnings {
	return &LogWarnings{log: commonlog.GetLogger("yield.warnings")}
}

func (w *LogWarnings) Warn(id WarningID, format string, args ...any) {
	w.log.Warningf("[%s] "+format, append([]any{id}, args...)...)
}

type silentWarnings struct{}

func (silentWarnings) Warn(WarningID, string, ...any) {}

// SilentWarnings discards everything.
var SilentWarnings Warnings = silentWarnings{}
