package vm

import "fmt"

// Visibility is the default visibility for methods defined in a frame.
type Visibility uint8

const (
	Public Visibility = iota
	Private
	Protected
	ModuleFunction
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	case ModuleFunction:
		return "module_function"
	}
	return "public"
}

// Frame is the call metadata of one activation: class context, self, the
// method name, the block it was given and the per-activation values read by
// regexp and line input builtins.
//
// Frames live in a per-goroutine arena owned by ThreadContext and are
// reused in place. A Binding never aliases an arena slot: capturing a
// frame copies it out into an owned snapshot (see Duplicate). Once an
// activation has a snapshot, its visibility, backref and lastline live in
// the snapshot, so the method and its blocks see one set of values.
type Frame struct {
	klazz      *Module
	self       Value
	name       string
	block      *Block
	visibility Visibility
	backref    Value
	lastline   Value

	captured   bool
	jumpTarget uint64

	// snapshot is the copy handed out by the first capture of this
	// activation; later captures share it. It holds the shared state.
	snapshot *Frame
}

func newFrame() *Frame {
	return &Frame{block: NullBlock}
}

func (f *Frame) updateFrame(klazz *Module, self Value, name string, block *Block, jumpTarget uint64) {
	f.klazz = klazz
	f.self = self
	f.name = name
	if block == nil {
		block = NullBlock
	}
	f.block = block
	f.visibility = Public
	f.backref = nil
	f.lastline = nil
	f.captured = false
	f.jumpTarget = jumpTarget
	f.snapshot = nil
}

func (f *Frame) clear() {
	f.klazz = nil
	f.self = nil
	f.name = ""
	f.block = NullBlock
	f.visibility = Public
	f.backref = nil
	f.lastline = nil
	f.captured = false
	f.jumpTarget = 0
	f.snapshot = nil
}

// Duplicate returns an owned copy of f marked as captured.
func (f *Frame) Duplicate() *Frame {
	return &Frame{
		klazz:      f.klazz,
		self:       f.self,
		name:       f.name,
		block:      f.block,
		visibility: f.visibility,
		backref:    f.backref,
		lastline:   f.lastline,
		captured:   true,
		jumpTarget: f.jumpTarget,
	}
}

// capture returns the snapshot for this activation, creating it once.
func (f *Frame) capture() *Frame {
	if f.captured {
		return f
	}
	if f.snapshot == nil {
		f.snapshot = f.Duplicate()
	}
	return f.snapshot
}

// state is the frame holding the activation's mutable values.
func (f *Frame) state() *Frame {
	if f.snapshot != nil {
		return f.snapshot
	}
	return f
}

func (f *Frame) Klazz() *Module             { return f.klazz }
func (f *Frame) Self() Value                { return f.self }
func (f *Frame) SetSelf(v Value)            { f.self = v }
func (f *Frame) Name() string               { return f.name }
func (f *Frame) SetName(n string)           { f.name = n }
func (f *Frame) Block() *Block              { return f.block }
func (f *Frame) Visibility() Visibility     { return f.state().visibility }
func (f *Frame) SetVisibility(v Visibility) { f.state().visibility = v }
func (f *Frame) IsCaptured() bool           { return f.captured }
func (f *Frame) JumpTarget() uint64         { return f.jumpTarget }

// Backref returns the last match, or Nil.
func (f *Frame) Backref() Value { return orNil(f.state().backref) }

func (f *Frame) SetBackref(v Value) { f.state().backref = v }

// Lastline returns the last line read, or Nil.
func (f *Frame) Lastline() Value { return orNil(f.state().lastline) }

func (f *Frame) SetLastline(v Value) { f.state().lastline = v }

func (f *Frame) String() string {
	klazz := "?"
	if f.klazz != nil {
		klazz = f.klazz.Name
	}
	return fmt.Sprintf("%s#%s (self=%s, captured=%v)", klazz, f.name, inspect(f.self), f.captured)
}
