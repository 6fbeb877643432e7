package vm

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// BodyKind selects how a block body executes. The kinds share argument
// reconciliation and differ only in how the reconciled arguments reach the
// code.
type BodyKind uint8

const (
	BodyNull        BodyKind = iota // NullBlock; returns nil
	BodyInterpreted                 // AST walking; always gets its own scope
	BodyIR                          // IR interpretation; scope only when needed
	BodyCompiled                    // compiled code with optional direct entries
	BodyMixed                       // interpreted until promoted to compiled
	BodyCallback                    // Go callback; no frame or scope
)

var bodyKindNames = [...]string{"null", "interpreted", "ir", "compiled", "mixed", "callback"}

func (k BodyKind) String() string {
	if int(k) < len(bodyKindNames) {
		return bodyKindNames[k]
	}
	return fmt.Sprintf("BodyKind(%d)", uint8(k))
}

// BodyFunc executes a body once its frame and scope are in place and its
// parameters are bound.
type BodyFunc func(ctx *ThreadContext, self Value, scope *DynamicScope, args []Value, blockArg *Block) (Value, error)

// CallbackFunc is a Go implemented block, used by builtin iteration.
type CallbackFunc func(ctx *ThreadContext, args []Value, blockArg *Block) (Value, error)

// DirectFuncs are unboxed entry points of compiled code for 0 to 3
// arguments. Any of them may be nil; the boxed body is always present.
type DirectFuncs struct {
	Call0 func(ctx *ThreadContext, self Value, scope *DynamicScope, blockArg *Block) (Value, error)
	Call1 func(ctx *ThreadContext, self Value, scope *DynamicScope, a0 Value, blockArg *Block) (Value, error)
	Call2 func(ctx *ThreadContext, self Value, scope *DynamicScope, a0, a1 Value, blockArg *Block) (Value, error)
	Call3 func(ctx *ThreadContext, self Value, scope *DynamicScope, a0, a1, a2 Value, blockArg *Block) (Value, error)
}

func (d *DirectFuncs) has(n int) bool {
	if d == nil {
		return false
	}
	switch n {
	case 0:
		return d.Call0 != nil
	case 1:
		return d.Call1 != nil
	case 2:
		return d.Call2 != nil
	case 3:
		return d.Call3 != nil
	}
	return false
}

// Compiler turns an interpreted body into an equivalent compiled one.
type Compiler func(interp *BlockBody) (*BlockBody, error)

// BlockBody is the executable part of a block.
type BlockBody struct {
	kind       BodyKind
	sig        *Signature
	static     *StaticScope
	params     *ParamList
	fn         BodyFunc
	callback   CallbackFunc
	direct     *DirectFuncs
	needsScope bool
	file       string
	line       int

	// Mixed mode.
	interp   *BlockBody
	compiler Compiler
	compiled atomic.Pointer[BlockBody]
}

var nullBody = &BlockBody{kind: BodyNull, sig: NoArguments}

// newBody defaults a nil static scope to a block scope with no enclosing
// scope. Lookups that follow the static chain (Module, LocalScope) then stop
// at the block; callers that need them pass the enclosing scope.
func newBody(kind BodyKind, static *StaticScope, params *ParamList, fn BodyFunc) *BlockBody {
	if static == nil {
		static = NewBlockScope(nil)
	}
	if params == nil {
		params = &ParamList{}
	}
	params = params.Bind(static)
	return &BlockBody{
		kind:       kind,
		sig:        params.Signature(),
		static:     static,
		params:     params,
		fn:         fn,
		needsScope: true,
	}
}

// NewInterpretedBody wraps an AST interpreter entry point.
func NewInterpretedBody(static *StaticScope, params *ParamList, fn BodyFunc) *BlockBody {
	return newBody(BodyInterpreted, static, params, fn)
}

// NewIRBody wraps an IR interpreter entry point. needsScope false is only
// honoured when the block declares no variables; the body then runs in the
// binding scope.
func NewIRBody(static *StaticScope, params *ParamList, fn BodyFunc, needsScope bool) *BlockBody {
	b := newBody(BodyIR, static, params, fn)
	b.needsScope = needsScope || b.static.NumberOfVariables() > 0
	return b
}

// NewCompiledBody wraps compiled code. direct may be nil.
func NewCompiledBody(static *StaticScope, params *ParamList, fn BodyFunc, direct *DirectFuncs) *BlockBody {
	b := newBody(BodyCompiled, static, params, fn)
	b.direct = direct
	return b
}

// NewMixedModeBody runs interp until the profiler finds it hot, then
// switches to the body produced by compile. It panics if either is nil.
func NewMixedModeBody(interp *BlockBody, compile Compiler) *BlockBody {
	if interp == nil || compile == nil {
		panic("vm: NewMixedModeBody needs an interpreted body and a compiler")
	}
	return &BlockBody{
		kind:       BodyMixed,
		sig:        interp.sig,
		static:     interp.static,
		params:     interp.params,
		needsScope: interp.needsScope,
		file:       interp.file,
		line:       interp.line,
		interp:     interp,
		compiler:   compile,
	}
}

// NewCallbackBody wraps a Go function with the given signature.
func NewCallbackBody(sig *Signature, fn CallbackFunc) *BlockBody {
	return &BlockBody{kind: BodyCallback, sig: sig, callback: fn}
}

// WithLocation records where the body was defined.
func (body *BlockBody) WithLocation(file string, line int) *BlockBody {
	body.file = file
	body.line = line
	return body
}

func (body *BlockBody) Kind() BodyKind            { return body.kind }
func (body *BlockBody) Signature() *Signature     { return body.sig }
func (body *BlockBody) StaticScope() *StaticScope { return body.static }
func (body *BlockBody) Params() *ParamList        { return body.params }
func (body *BlockBody) NeedsScope() bool          { return body.needsScope }
func (body *BlockBody) File() string              { return body.file }
func (body *BlockBody) Line() int                 { return body.line }

// IsPromoted reports whether a mixed mode body switched to compiled code.
func (body *BlockBody) IsPromoted() bool {
	return body.kind == BodyMixed && body.compiled.Load() != nil
}

// Promote compiles a mixed mode body now. It is what the JIT worker runs.
func (body *BlockBody) Promote() error {
	if body.kind != BodyMixed {
		return fmt.Errorf("vm: promote %s body", body.kind)
	}
	if body.compiled.Load() != nil {
		return nil
	}
	if body.compiler == nil {
		return errors.New("vm: mixed mode body has no compiler")
	}
	c, err := body.compiler(body.interp)
	if err != nil {
		return fmt.Errorf("vm: compile block body: %w", err)
	}
	if c == nil {
		return errors.New("vm: compiler returned no body")
	}
	if c.sig != body.sig {
		return fmt.Errorf("vm: compiled body signature %s differs from %s", c.sig, body.sig)
	}
	body.compiled.CompareAndSwap(nil, c)
	return nil
}

// ---------------------------------------------------------------------------
// Invocation
// ---------------------------------------------------------------------------

type invokeOptions struct {
	self     Value
	evalType EvalType
	blockArg *Block
}

func (o invokeOptions) block() *Block {
	if o.blockArg == nil {
		return NullBlock
	}
	return o.blockArg
}

// target resolves a mixed mode body to the body that runs now.
func (body *BlockBody) target(ctx *ThreadContext) *BlockBody {
	if body.kind != BodyMixed {
		return body
	}
	if c := body.compiled.Load(); c != nil {
		return c
	}
	ctx.runtime.profiler.RecordBodyInvocation(body)
	if c := body.compiled.Load(); c != nil {
		return c
	}
	return body.interp
}

func (body *BlockBody) invoke(ctx *ThreadContext, blk *Block, args []Value, opts invokeOptions) (Value, error) {
	body = body.target(ctx)
	if body.kind == BodyCallback {
		v, err := body.callback(ctx, args, opts.block())
		if j, ok := AsJump(err); ok && j.Kind == JumpNext {
			return j.Value, nil
		}
		return v, err
	}
	strict := blk.typ == TypeLambda
	return body.activate(ctx, blk, opts,
		func(scope *DynamicScope) error {
			if !body.needsScope {
				return nil
			}
			return body.params.Receive(scope, args, strict, opts.block())
		},
		func(self Value, scope *DynamicScope) (Value, error) {
			return body.fn(ctx, self, scope, args, opts.block())
		})
}

func (body *BlockBody) canCallDirect(n int) bool {
	switch body.kind {
	case BodyCompiled:
		return body.direct.has(n) && isIdentityShape(body.sig, n)
	case BodyMixed:
		c := body.compiled.Load()
		return c != nil && c.canCallDirect(n)
	}
	return false
}

func (body *BlockBody) invokeDirect(ctx *ThreadContext, blk *Block, n int, a0, a1, a2 Value, opts invokeOptions) (Value, error) {
	if body.kind == BodyMixed {
		body = body.compiled.Load()
	}
	d := body.direct
	blockArg := opts.block()
	return body.activate(ctx, blk, opts,
		func(scope *DynamicScope) error {
			for i, v := range [3]Value{a0, a1, a2} {
				if i == n {
					break
				}
				body.params.receiveFixed(scope, i, v)
			}
			body.params.receiveBlock(scope, blockArg)
			return nil
		},
		func(self Value, scope *DynamicScope) (Value, error) {
			switch n {
			case 0:
				return d.Call0(ctx, self, scope, blockArg)
			case 1:
				return d.Call1(ctx, self, scope, a0, blockArg)
			case 2:
				return d.Call2(ctx, self, scope, a0, a1, blockArg)
			}
			return d.Call3(ctx, self, scope, a0, a1, a2, blockArg)
		})
}

// activate pushes the frame, scope and backtrace entry of one block
// invocation, binds arguments and runs exec, handling next and redo and the
// lambda ends of break and return. The stacks are restored on every exit.
func (body *BlockBody) activate(ctx *ThreadContext, blk *Block, opts invokeOptions,
	bind func(*DynamicScope) error, exec func(Value, *DynamicScope) (Value, error)) (Value, error) {

	binding := blk.binding
	self := binding.self
	if opts.self != nil {
		self = opts.self
		f := binding.frame.Duplicate()
		f.self = self
		ctx.pushBoundFrame(f)
	} else {
		ctx.PushFrameForBlock(binding)
	}

	scope := binding.scope
	if body.needsScope {
		scope = NewDynamicScope(body.static, binding.scope)
		scope.evalType = opts.evalType
		scope.lambda = blk.typ == TypeLambda
	}
	ctx.PushScope(scope)
	ctx.PushBacktrace("block in "+binding.method, body.file, body.line)
	prevEval := ctx.evalType
	ctx.evalType = opts.evalType
	defer func() {
		ctx.evalType = prevEval
		ctx.PopBacktrace()
		ctx.PopScope()
		ctx.PopFrame()
	}()

	if err := bind(scope); err != nil {
		return nil, err
	}
	for {
		v, err := exec(self, scope)
		if err == nil {
			return orNil(v), nil
		}
		j, ok := AsJump(err)
		if !ok {
			return nil, err
		}
		switch {
		case j.Kind == JumpNext:
			return j.Value, nil
		case j.Kind == JumpRedo:
			continue
		case j.lambda != nil && j.lambda == blk.escapeBlock:
			return j.Value, nil
		}
		return nil, err
	}
}
