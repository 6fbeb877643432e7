package vm

// evalScopeHandle is shared by a binding and all of its clones so that
// every clone of one logical binding evaluates against the same eval scope.
type evalScopeHandle struct {
	scope *DynamicScope
}

// Binding is a captured call context: frame, self, visibility, scope and
// source location. Blocks carry one; eval re-enters one.
type Binding struct {
	frame      *Frame
	self       Value
	visibility Visibility
	scope      *DynamicScope
	klazz      *Module
	method     string
	file       string
	line       int

	eval *evalScopeHandle
}

// NewBinding creates a binding. frame should already be an owned snapshot;
// ThreadContext.CurrentBinding takes care of that.
func NewBinding(self Value, frame *Frame, visibility Visibility, scope *DynamicScope, klazz *Module, method, file string, line int) *Binding {
	return &Binding{
		frame:      frame,
		self:       self,
		visibility: visibility,
		scope:      scope,
		klazz:      klazz,
		method:     method,
		file:       file,
		line:       line,
		eval:       &evalScopeHandle{},
	}
}

func (b *Binding) Frame() *Frame               { return b.frame }
func (b *Binding) Self() Value                 { return b.self }
func (b *Binding) Visibility() Visibility      { return b.visibility }
func (b *Binding) SetVisibility(v Visibility)  { b.visibility = v }
func (b *Binding) DynamicScope() *DynamicScope { return b.scope }
func (b *Binding) Klazz() *Module              { return b.klazz }
func (b *Binding) Method() string              { return b.method }
func (b *Binding) File() string                { return b.file }
func (b *Binding) Line() int                   { return b.line }
func (b *Binding) SetLine(line int)            { b.line = line }

// SetSelf rebinds self. Used when a block is re-targeted at another
// receiver, e.g. define_method.
func (b *Binding) SetSelf(self Value) {
	b.self = self
}

// Clone copies the binding with a duplicated frame. The clone shares the
// eval scope of the original.
func (b *Binding) Clone() *Binding {
	c := *b
	if b.frame != nil {
		c.frame = b.frame.Duplicate()
	}
	return &c
}

// CloneForEval copies the binding keeping the same frame so that eval
// observes and updates the original frame. The clone shares the eval scope
// of the original.
func (b *Binding) CloneForEval() *Binding {
	c := *b
	return &c
}

// EvalScope returns the scope eval runs in, created on first use and
// shared by every clone of this binding.
func (b *Binding) EvalScope() *DynamicScope {
	if b.eval.scope == nil {
		b.eval.scope = b.scope.GetEvalScope()
	}
	return b.eval.scope
}

// lookupScope is where local variable queries start: the eval scope if one
// exists, otherwise the binding scope.
func (b *Binding) lookupScope() *DynamicScope {
	if b.eval.scope != nil {
		return b.eval.scope
	}
	return b.scope
}

// LocalVariableGet returns the value of a visible local variable.
func (b *Binding) LocalVariableGet(name string) (Value, bool) {
	return b.lookupScope().Lookup(name)
}

// LocalVariableSet assigns a visible local variable, defining it in the
// eval scope when it does not exist yet.
func (b *Binding) LocalVariableSet(name string, v Value) {
	if b.lookupScope().Assign(name, v) {
		return
	}
	es := b.EvalScope()
	offset := es.static.AddVariable(name)
	es.GrowIfNeeded()
	es.SetValueDepthZero(offset, v)
}

// LocalVariableDefined reports whether name is visible.
func (b *Binding) LocalVariableDefined(name string) bool {
	_, ok := b.LocalVariableGet(name)
	return ok
}

// LocalVariables lists visible local variable names, innermost first.
func (b *Binding) LocalVariables() []string {
	return b.lookupScope().AllNamesInScope()
}
