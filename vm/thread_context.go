package vm

import (
	"github.com/tliron/commonlog"
)

// BacktraceElement is one entry of the diagnostic call stack.
type BacktraceElement struct {
	Method string
	File   string
	Line   int
}

// ThreadContext holds the per-goroutine call state: a frame stack, a scope
// stack and a backtrace stack, pushed and popped in strict LIFO order.
// A ThreadContext must only be used by the goroutine that owns it.
type ThreadContext struct {
	runtime *Runtime
	log     commonlog.Logger

	// Frame arena. Slots are reused in place. A binding frame pushed for a
	// block displaces the pooled slot, which is restored on pop.
	frames     []*Frame
	displaced  []*Frame
	bound      []bool
	frameIndex int

	scopes     []*DynamicScope
	scopeIndex int

	backtrace      []BacktraceElement
	backtraceIndex int

	callNumber uint64
	evalType   EvalType

	// warnings overrides the runtime sink for this goroutine when set.
	warnings Warnings

	// Blocks created during a method activation, escaped when it returns.
	blocksByFrame map[uint64][]*Block
}

func newThreadContext(rt *Runtime) *ThreadContext {
	cfg := rt.config
	ctx := &ThreadContext{
		runtime:        rt,
		log:            commonlog.GetLogger("yield.vm"),
		frames:         make([]*Frame, cfg.FrameStackSize),
		displaced:      make([]*Frame, cfg.FrameStackSize),
		bound:          make([]bool, cfg.FrameStackSize),
		frameIndex:     -1,
		scopes:         make([]*DynamicScope, cfg.ScopeStackSize),
		scopeIndex:     -1,
		backtrace:      make([]BacktraceElement, cfg.BacktraceSize),
		backtraceIndex: -1,
		blocksByFrame:  make(map[uint64][]*Block),
	}

	// Top level activation.
	ctx.PushFrame(rt.objectModule, rt.topSelf, "<main>", NullBlock)
	ctx.PushScope(NewDynamicScope(rt.topScope, nil))
	ctx.PushBacktrace("<main>", "-", 0)
	return ctx
}

// Runtime returns the runtime this context belongs to.
func (ctx *ThreadContext) Runtime() *Runtime { return ctx.runtime }

// Warnings returns the sink warnings raised on this goroutine go to.
func (ctx *ThreadContext) Warnings() Warnings {
	if ctx.warnings != nil {
		return ctx.warnings
	}
	return ctx.runtime.warnings
}

// SetWarnings overrides the runtime sink for this context and returns the
// previous override. nil restores the runtime sink.
func (ctx *ThreadContext) SetWarnings(w Warnings) Warnings {
	prev := ctx.warnings
	ctx.warnings = w
	return prev
}

// ---------------------------------------------------------------------------
// Stack growth
// ---------------------------------------------------------------------------

// growTo doubles the length of s until index fits.
func growTo[T any](s []T, index int) []T {
	n := len(s)
	if n == 0 {
		n = 1
	}
	for n <= index {
		n *= 2
	}
	grown := make([]T, n)
	copy(grown, s)
	return grown
}

func (ctx *ThreadContext) ensureFrameCapacity() {
	next := ctx.frameIndex + 1
	if next < len(ctx.frames) {
		return
	}
	ctx.frames = growTo(ctx.frames, next)
	ctx.displaced = growTo(ctx.displaced, next)
	ctx.bound = growTo(ctx.bound, next)
	ctx.log.Debugf("expanded frame stack to %d", len(ctx.frames))
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

func (ctx *ThreadContext) nextCallNumber() uint64 {
	ctx.callNumber++
	return ctx.callNumber
}

// PushFrame activates a pooled frame for a method call and gives it a fresh
// jump token.
func (ctx *ThreadContext) PushFrame(klazz *Module, self Value, name string, block *Block) *Frame {
	ctx.ensureFrameCapacity()
	ctx.frameIndex++
	f := ctx.frames[ctx.frameIndex]
	if f == nil {
		f = newFrame()
		ctx.frames[ctx.frameIndex] = f
	}
	f.updateFrame(klazz, self, name, block, ctx.nextCallNumber())
	return f
}

// pushBoundFrame pushes a frame owned by someone else, typically a binding.
// The pooled slot it displaces comes back on pop.
func (ctx *ThreadContext) pushBoundFrame(f *Frame) {
	ctx.ensureFrameCapacity()
	ctx.frameIndex++
	i := ctx.frameIndex
	ctx.displaced[i] = ctx.frames[i]
	ctx.bound[i] = true
	ctx.frames[i] = f
}

// PushFrameForBlock pushes the frame captured by b.
func (ctx *ThreadContext) PushFrameForBlock(b *Binding) {
	ctx.pushBoundFrame(b.frame)
}

// PopFrame pops the current frame. Pooled frames are cleared in place;
// bound frames are left untouched and the pooled slot is restored.
func (ctx *ThreadContext) PopFrame() {
	i := ctx.frameIndex
	if ctx.bound[i] {
		ctx.frames[i] = ctx.displaced[i]
		ctx.displaced[i] = nil
		ctx.bound[i] = false
	} else {
		ctx.frames[i].clear()
	}
	ctx.frameIndex--
}

// CurrentFrame returns the innermost frame.
func (ctx *ThreadContext) CurrentFrame() *Frame {
	return ctx.frames[ctx.frameIndex]
}

// PreviousFrame returns the frame below the current one, or nil.
func (ctx *ThreadContext) PreviousFrame() *Frame {
	if ctx.frameIndex < 1 {
		return nil
	}
	return ctx.frames[ctx.frameIndex-1]
}

// FrameDepth returns the number of frames on the stack.
func (ctx *ThreadContext) FrameDepth() int { return ctx.frameIndex + 1 }

func (ctx *ThreadContext) Self() Value         { return ctx.CurrentFrame().self }
func (ctx *ThreadContext) FrameKlazz() *Module { return ctx.CurrentFrame().klazz }
func (ctx *ThreadContext) FrameName() string   { return ctx.CurrentFrame().name }
func (ctx *ThreadContext) FrameBlock() *Block  { return ctx.CurrentFrame().block }

func (ctx *ThreadContext) Backref() Value      { return ctx.CurrentFrame().Backref() }
func (ctx *ThreadContext) SetBackref(v Value)  { ctx.CurrentFrame().SetBackref(v) }
func (ctx *ThreadContext) Lastline() Value     { return ctx.CurrentFrame().Lastline() }
func (ctx *ThreadContext) SetLastline(v Value) { ctx.CurrentFrame().SetLastline(v) }

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

// PushScope makes s the current scope.
func (ctx *ThreadContext) PushScope(s *DynamicScope) {
	next := ctx.scopeIndex + 1
	if next >= len(ctx.scopes) {
		ctx.scopes = growTo(ctx.scopes, next)
		ctx.log.Debugf("expanded scope stack to %d", len(ctx.scopes))
	}
	ctx.scopeIndex = next
	ctx.scopes[next] = s
}

// PopScope drops the current scope.
func (ctx *ThreadContext) PopScope() {
	ctx.scopes[ctx.scopeIndex] = nil
	ctx.scopeIndex--
}

// CurrentScope returns the innermost scope.
func (ctx *ThreadContext) CurrentScope() *DynamicScope {
	return ctx.scopes[ctx.scopeIndex]
}

// CurrentStaticScope returns the static scope of the innermost scope.
func (ctx *ThreadContext) CurrentStaticScope() *StaticScope {
	return ctx.CurrentScope().static
}

// ScopeDepth returns the number of scopes on the stack.
func (ctx *ThreadContext) ScopeDepth() int { return ctx.scopeIndex + 1 }

// ScopeExistsOnCallStack reports whether s is an active scope.
func (ctx *ThreadContext) ScopeExistsOnCallStack(s *DynamicScope) bool {
	for i := ctx.scopeIndex; i >= 0; i-- {
		if ctx.scopes[i] == s {
			return true
		}
	}
	return false
}

// EvalType returns the eval type of the innermost block invocation.
func (ctx *ThreadContext) EvalType() EvalType { return ctx.evalType }

// ---------------------------------------------------------------------------
// Backtrace
// ---------------------------------------------------------------------------

// PushBacktrace records entry into method at file:line.
func (ctx *ThreadContext) PushBacktrace(method, file string, line int) {
	next := ctx.backtraceIndex + 1
	if next >= len(ctx.backtrace) {
		ctx.backtrace = growTo(ctx.backtrace, next)
		ctx.log.Debugf("expanded backtrace stack to %d", len(ctx.backtrace))
	}
	ctx.backtraceIndex = next
	ctx.backtrace[next] = BacktraceElement{Method: method, File: file, Line: line}
}

// PopBacktrace drops the innermost backtrace entry.
func (ctx *ThreadContext) PopBacktrace() {
	ctx.backtrace[ctx.backtraceIndex] = BacktraceElement{}
	ctx.backtraceIndex--
}

// SetLine updates the line of the innermost backtrace entry.
func (ctx *ThreadContext) SetLine(line int) {
	ctx.backtrace[ctx.backtraceIndex].Line = line
}

// SetFile updates the file of the innermost backtrace entry.
func (ctx *ThreadContext) SetFile(file string) {
	ctx.backtrace[ctx.backtraceIndex].File = file
}

func (ctx *ThreadContext) Line() int    { return ctx.backtrace[ctx.backtraceIndex].Line }
func (ctx *ThreadContext) File() string { return ctx.backtrace[ctx.backtraceIndex].File }

// BacktraceDepth returns the number of backtrace entries.
func (ctx *ThreadContext) BacktraceDepth() int { return ctx.backtraceIndex + 1 }

// Backtrace returns a snapshot of the backtrace, innermost first.
func (ctx *ThreadContext) Backtrace() []BacktraceElement {
	out := make([]BacktraceElement, 0, ctx.backtraceIndex+1)
	for i := ctx.backtraceIndex; i >= 0; i-- {
		out = append(out, ctx.backtrace[i])
	}
	return out
}

// ---------------------------------------------------------------------------
// Activation helpers
// ---------------------------------------------------------------------------

// PreMethodFrameAndScope pushes a method frame and a fresh scope for static.
func (ctx *ThreadContext) PreMethodFrameAndScope(klazz *Module, name string, self Value, block *Block, static *StaticScope) *DynamicScope {
	ctx.PushFrame(klazz, self, name, block)
	scope := NewDynamicScope(static, nil)
	ctx.PushScope(scope)
	return scope
}

func (ctx *ThreadContext) PostMethodFrameAndScope() {
	ctx.PopScope()
	ctx.PopFrame()
}

// PreMethodFrameOnly pushes a method frame without a scope.
func (ctx *ThreadContext) PreMethodFrameOnly(klazz *Module, name string, self Value, block *Block) {
	ctx.PushFrame(klazz, self, name, block)
}

func (ctx *ThreadContext) PostMethodFrameOnly() {
	ctx.PopFrame()
}

// PreYieldSpecificBlock pushes the binding frame and a new scope for static
// chained to the binding scope.
func (ctx *ThreadContext) PreYieldSpecificBlock(b *Binding, static *StaticScope) *DynamicScope {
	ctx.PushFrameForBlock(b)
	scope := NewDynamicScope(static, b.scope)
	ctx.PushScope(scope)
	return scope
}

// PreYieldLightBlock pushes the binding frame and an existing scope.
func (ctx *ThreadContext) PreYieldLightBlock(b *Binding, scope *DynamicScope) {
	ctx.PushFrameForBlock(b)
	ctx.PushScope(scope)
}

// PostYield undoes either PreYield helper.
func (ctx *ThreadContext) PostYield() {
	ctx.PopScope()
	ctx.PopFrame()
}

// PreExecuteUnder pushes a copy of the current frame with self and class
// context replaced, as instance_exec and class_exec do.
func (ctx *ThreadContext) PreExecuteUnder(klazz *Module, self Value, block *Block) {
	cur := ctx.CurrentFrame()
	token := cur.jumpTarget
	name := cur.name
	vis := cur.Visibility()
	f := ctx.PushFrame(klazz, self, name, block)
	f.jumpTarget = token
	f.visibility = vis
}

func (ctx *ThreadContext) PostExecuteUnder() {
	ctx.PopFrame()
}

// PreEvalWithBinding enters b for eval and returns the scope eval code
// runs in.
func (ctx *ThreadContext) PreEvalWithBinding(b *Binding) *DynamicScope {
	ctx.PushFrameForBlock(b)
	b.frame.visibility = b.visibility
	scope := b.EvalScope()
	ctx.PushScope(scope)
	ctx.PushBacktrace(b.method, b.file, b.line)
	return scope
}

func (ctx *ThreadContext) PostEvalWithBinding(b *Binding) {
	b.visibility = b.frame.visibility
	ctx.PopBacktrace()
	ctx.PopScope()
	ctx.PopFrame()
}

// CurrentBinding captures the current frame, self and scope. The frame is
// copied out of the arena once per activation.
func (ctx *ThreadContext) CurrentBinding() *Binding {
	f := ctx.CurrentFrame().capture()
	top := ctx.backtrace[ctx.backtraceIndex]
	return NewBinding(f.self, f, f.visibility, ctx.CurrentScope(), f.klazz, f.name, top.File, top.Line)
}

// ---------------------------------------------------------------------------
// Jumps
// ---------------------------------------------------------------------------

// IsJumpTargetAlive reports whether a frame carrying target is on the
// stack, ignoring the innermost skip frames.
func (ctx *ThreadContext) IsJumpTargetAlive(target uint64, skip int) bool {
	for i := ctx.frameIndex - skip; i >= 0; i-- {
		if ctx.frames[i].jumpTarget == target {
			return true
		}
	}
	return false
}

// Break builds the break signal for a body of blk. In a lambda it ends the
// lambda invocation. Otherwise it unwinds to the call that was handed the
// block, which must still be running.
func (ctx *ThreadContext) Break(blk *Block, v Value) error {
	return ctx.jumpFrom(JumpBreak, blk, v)
}

// Return builds the return signal for a body of blk. In a lambda it ends
// the lambda invocation; otherwise it returns from the defining method.
func (ctx *ThreadContext) Return(blk *Block, v Value) error {
	return ctx.jumpFrom(JumpReturn, blk, v)
}

func (ctx *ThreadContext) jumpFrom(kind JumpKind, blk *Block, v Value) error {
	v = orNil(v)
	if blk.Type() == TypeLambda {
		return &Jump{Kind: kind, Value: v, lambda: blk.escapeBlock}
	}
	target := blk.binding.frame.jumpTarget
	// The block's own activation carries the same token; skip it.
	if blk.IsEscaped() || !ctx.IsJumpTargetAlive(target, 1) {
		return &LocalJumpError{Reason: kind, Value: v}
	}
	return &Jump{Kind: kind, Value: v, Target: target}
}

// CallWithBlock runs call, a call site that passes blk, and resolves a
// break aimed at the current frame into the call's result.
func (ctx *ThreadContext) CallWithBlock(blk *Block, call func() (Value, error)) (Value, error) {
	token := ctx.CurrentFrame().jumpTarget
	v, err := call()
	if err != nil {
		if j, ok := AsJump(err); ok && j.Kind == JumpBreak && j.lambda == nil && j.Target == token {
			return j.Value, nil
		}
		return nil, err
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Blocks and methods
// ---------------------------------------------------------------------------

// NewBlock creates a block of typ closing over the current binding. The
// block escapes when the current method activation returns.
func (ctx *ThreadContext) NewBlock(body *BlockBody, typ Type) *Block {
	b := newBlock(body, ctx.CurrentBinding(), typ)
	token := b.binding.frame.jumpTarget
	ctx.blocksByFrame[token] = append(ctx.blocksByFrame[token], b)
	return b
}

// NewLambda is NewBlock with TypeLambda.
func (ctx *ThreadContext) NewLambda(body *BlockBody) *Block {
	return ctx.NewBlock(body, TypeLambda)
}

func (ctx *ThreadContext) releaseBlocksForFrame(token uint64) {
	blocks, ok := ctx.blocksByFrame[token]
	if !ok {
		return
	}
	delete(ctx.blocksByFrame, token)
	for _, b := range blocks {
		b.Escape()
	}
}

// InvokeMethod activates m on self. Arguments are checked strictly. A
// return aimed at this activation ends it; a break aimed at it means a
// proc was called outside the call it was handed to.
func (ctx *ThreadContext) InvokeMethod(m *Method, self Value, args []Value, block *Block) (Value, error) {
	if block == nil {
		block = NullBlock
	}
	if err := m.sig.CheckArity(len(args)); err != nil {
		return nil, err
	}
	ctx.runtime.profiler.RecordMethodInvocation(m)

	scope := ctx.PreMethodFrameAndScope(m.module, m.name, self, block, m.static)
	token := ctx.CurrentFrame().jumpTarget
	ctx.PushBacktrace(m.name, m.file, m.line)
	defer func() {
		ctx.PopBacktrace()
		ctx.releaseBlocksForFrame(token)
		ctx.PostMethodFrameAndScope()
	}()

	if m.params != nil {
		if err := m.params.Receive(scope, args, true, block); err != nil {
			return nil, err
		}
	}
	v, err := m.body(ctx, self, scope, args, block)
	if err != nil {
		if j, ok := AsJump(err); ok && j.lambda == nil && j.Target == token {
			switch j.Kind {
			case JumpReturn:
				return j.Value, nil
			case JumpBreak:
				return nil, &LocalJumpError{Reason: JumpBreak, Value: j.Value}
			}
		}
		return nil, err
	}
	return orNil(v), nil
}
