package vm

import "errors"

// JumpKind identifies a non-local control transfer.
type JumpKind uint8

const (
	JumpBreak JumpKind = iota + 1
	JumpNext
	JumpRedo
	JumpRetry
	JumpReturn
)

func (k JumpKind) String() string {
	switch k {
	case JumpBreak:
		return "break"
	case JumpNext:
		return "next"
	case JumpRedo:
		return "redo"
	case JumpRetry:
		return "retry"
	case JumpReturn:
		return "return"
	}
	return "jump"
}

// Jump is a control transfer travelling up the error return of every
// invocation until the frame it targets resolves it. Target is the jump
// token of the frame a break or return unwinds to; lambda is set when the
// transfer ends at a lambda invocation instead.
type Jump struct {
	Kind   JumpKind
	Value  Value
	Target uint64

	lambda *Block
}

func (j *Jump) Error() string {
	return "unhandled " + j.Kind.String()
}

// AsJump returns the jump carried by err, if any.
func AsJump(err error) (*Jump, bool) {
	var j *Jump
	if errors.As(err, &j) {
		return j, true
	}
	return nil, false
}

// Next ends the current block invocation with v as its result.
func Next(v Value) error {
	return &Jump{Kind: JumpNext, Value: orNil(v)}
}

// Redo restarts the current block invocation without rebinding arguments.
func Redo() error {
	return &Jump{Kind: JumpRedo}
}

// Retry is propagated untouched; rescue handling lives outside this package.
func Retry() error {
	return &Jump{Kind: JumpRetry}
}

func orNil(v Value) Value {
	if v == nil {
		return Nil
	}
	return v
}
