package vm

import "sync/atomic"

// Type governs how strictly a block checks its arguments.
type Type uint8

const (
	TypeNormal Type = iota
	TypeProc
	TypeLambda
	TypeThread
)

func (t Type) String() string {
	switch t {
	case TypeProc:
		return "proc"
	case TypeLambda:
		return "lambda"
	case TypeThread:
		return "thread"
	}
	return "normal"
}

// ParseType parses the names produced by Type.String.
func ParseType(s string) (Type, bool) {
	for _, t := range []Type{TypeNormal, TypeProc, TypeLambda, TypeThread} {
		if t.String() == s {
			return t, true
		}
	}
	return TypeNormal, false
}

// Block is a closure value: a body, the binding it closes over and a type.
// Retyping builds a new Block; every retyped copy shares escape state with
// the block it was made from.
type Block struct {
	body    *BlockBody
	binding *Binding
	typ     Type

	// escapeBlock is the block this one was retyped from, or itself.
	escapeBlock *Block
	escaped     atomic.Bool
}

// NullBlock stands for "no block given". Invoking it returns nil and
// retyping it returns it unchanged.
var NullBlock = &Block{body: nullBody, typ: TypeNormal}

func init() {
	NullBlock.escapeBlock = NullBlock
	NullBlock.binding = &Binding{frame: &Frame{}, self: Nil, eval: &evalScopeHandle{}}
}

// NewBlock creates a block over binding. Most callers want
// ThreadContext.NewBlock, which also tracks escape.
func NewBlock(body *BlockBody, binding *Binding, typ Type) *Block {
	return newBlock(body, binding, typ)
}

func newBlock(body *BlockBody, binding *Binding, typ Type) *Block {
	b := &Block{body: body, binding: binding, typ: typ}
	b.escapeBlock = b
	return b
}

func (b *Block) Body() *BlockBody      { return b.body }
func (b *Block) Binding() *Binding     { return b.binding }
func (b *Block) Type() Type            { return b.typ }
func (b *Block) Signature() *Signature { return b.body.sig }
func (b *Block) Arity() *Arity         { return b.body.sig.arity }

// IsGiven reports whether b is a real block.
func (b *Block) IsGiven() bool { return b != nil && b != NullBlock }

// IsLambda reports TypeLambda.
func (b *Block) IsLambda() bool { return b.typ == TypeLambda }

// Escape marks the original block, and so every retyped copy, as having
// outlived the call it was passed to.
func (b *Block) Escape() { b.escapeBlock.escaped.Store(true) }

// IsEscaped reports the escape state of the original block.
func (b *Block) IsEscaped() bool { return b.escapeBlock.escaped.Load() }

func (b *Block) retype(t Type) *Block {
	if b == NullBlock {
		return b
	}
	return &Block{body: b.body, binding: b.binding, typ: t, escapeBlock: b.escapeBlock}
}

func (b *Block) ToProc() *Block   { return b.retype(TypeProc) }
func (b *Block) ToLambda() *Block { return b.retype(TypeLambda) }
func (b *Block) ToThread() *Block { return b.retype(TypeThread) }
func (b *Block) ToNormal() *Block { return b.retype(TypeNormal) }

// Clone copies b with a cloned binding. The copy starts a new escape
// lineage.
func (b *Block) Clone() *Block {
	if b == NullBlock {
		return b
	}
	return newBlock(b.body, b.binding.Clone(), b.typ)
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Yield invokes b with a single yielded value.
func (b *Block) Yield(ctx *ThreadContext, v Value) (Value, error) {
	return b.invoke(ctx, EntryYield, []Value{v}, invokeOptions{})
}

// YieldValues invokes b with any number of yielded values.
func (b *Block) YieldValues(ctx *ThreadContext, args ...Value) (Value, error) {
	return b.invoke(ctx, EntryYieldValues, args, invokeOptions{})
}

// YieldArray is yield *v: an array yields its elements, anything else
// yields itself.
func (b *Block) YieldArray(ctx *ThreadContext, v Value) (Value, error) {
	if a, ok := v.(*Array); ok {
		return b.YieldValues(ctx, a.Elems...)
	}
	return b.Yield(ctx, v)
}

// YieldSpecific is the fixed-arity yield. Bodies with direct entry points
// are invoked without boxing when reconciliation cannot change the
// arguments; the result is the same as the general path.
func (b *Block) YieldSpecific(ctx *ThreadContext, args ...Value) (Value, error) {
	switch len(args) {
	case 0:
		return b.YieldSpecific0(ctx)
	case 1:
		return b.YieldSpecific1(ctx, args[0])
	case 2:
		return b.YieldSpecific2(ctx, args[0], args[1])
	case 3:
		return b.YieldSpecific3(ctx, args[0], args[1], args[2])
	}
	return b.YieldValues(ctx, args...)
}

func (b *Block) YieldSpecific0(ctx *ThreadContext) (Value, error) {
	if b.body.canCallDirect(0) {
		return b.body.invokeDirect(ctx, b, 0, nil, nil, nil, invokeOptions{})
	}
	return b.invoke(ctx, EntryYieldValues, nil, invokeOptions{})
}

func (b *Block) YieldSpecific1(ctx *ThreadContext, a0 Value) (Value, error) {
	if b.body.canCallDirect(1) {
		return b.body.invokeDirect(ctx, b, 1, a0, nil, nil, invokeOptions{})
	}
	return b.invoke(ctx, EntryYield, []Value{a0}, invokeOptions{})
}

func (b *Block) YieldSpecific2(ctx *ThreadContext, a0, a1 Value) (Value, error) {
	if b.body.canCallDirect(2) {
		return b.body.invokeDirect(ctx, b, 2, a0, a1, nil, invokeOptions{})
	}
	return b.invoke(ctx, EntryYieldValues, []Value{a0, a1}, invokeOptions{})
}

func (b *Block) YieldSpecific3(ctx *ThreadContext, a0, a1, a2 Value) (Value, error) {
	if b.body.canCallDirect(3) {
		return b.body.invokeDirect(ctx, b, 3, a0, a1, a2, invokeOptions{})
	}
	return b.invoke(ctx, EntryYieldValues, []Value{a0, a1, a2}, invokeOptions{})
}

// Call invokes b directly, as proc.call(args) does.
func (b *Block) Call(ctx *ThreadContext, args ...Value) (Value, error) {
	return b.invoke(ctx, EntryCall, args, invokeOptions{})
}

// CallWithBlock is Call passing blockArg to the body.
func (b *Block) CallWithBlock(ctx *ThreadContext, args []Value, blockArg *Block) (Value, error) {
	return b.invoke(ctx, EntryCall, args, invokeOptions{blockArg: blockArg})
}

// YieldNonArray yields v with self rebound, never destructuring v.
func (b *Block) YieldNonArray(ctx *ThreadContext, v Value, self Value) (Value, error) {
	return b.invoke(ctx, EntryYieldNonArray, []Value{v}, invokeOptions{self: self, evalType: EvalInstance})
}

// YieldUnder yields args with self rebound, as instance_exec and
// module_exec do.
func (b *Block) YieldUnder(ctx *ThreadContext, self Value, evalType EvalType, args ...Value) (Value, error) {
	return b.invoke(ctx, EntryYieldValues, args, invokeOptions{self: self, evalType: evalType})
}

func (b *Block) invoke(ctx *ThreadContext, entry Entry, args []Value, opts invokeOptions) (Value, error) {
	if b.body.kind == BodyNull {
		return Nil, nil
	}
	args, err := ReconcileArgs(b.typ, b.body.sig, entry, args, ctx.Warnings())
	if err != nil {
		return nil, err
	}
	return b.body.invoke(ctx, b, args, opts)
}
