package vm

import "testing"

func testBinding() *Binding {
	mod := NewModule("Foo")
	scope := NewDynamicScope(NewLocalScope(mod, "x"), nil)
	scope.SetValueDepthZero(0, Int(1))
	f := newFrame()
	f.updateFrame(mod, Int(0), "bar", NullBlock, 42)
	return NewBinding(Int(0), f.Duplicate(), Public, scope, mod, "bar", "foo.rb", 3)
}

func TestBindingCloneForEvalSharesEvalScope(t *testing.T) {
	b := testBinding()
	c := b.CloneForEval()

	if c.Frame() != b.Frame() {
		t.Error("CloneForEval should keep the frame")
	}
	c.LocalVariableSet("y", Int(2))
	if v, ok := b.LocalVariableGet("y"); !ok || v != Int(2) {
		t.Errorf("LocalVariableGet(y) on original = %v, %v, want 2", v, ok)
	}
	if c.EvalScope() != b.EvalScope() {
		t.Error("clones should share one eval scope")
	}
}

func TestBindingCloneDuplicatesFrame(t *testing.T) {
	b := testBinding()
	c := b.Clone()
	if c.Frame() == b.Frame() {
		t.Fatal("Clone should duplicate the frame")
	}
	if !c.Frame().IsCaptured() || c.Frame().JumpTarget() != 42 {
		t.Errorf("cloned frame: captured=%v target=%d", c.Frame().IsCaptured(), c.Frame().JumpTarget())
	}
	c.SetSelf(Int(9))
	if b.Self() != Int(0) {
		t.Error("SetSelf on a clone should not change the original")
	}
	c.LocalVariableSet("z", Int(3))
	if !b.LocalVariableDefined("z") {
		t.Error("Clone should share the eval scope")
	}
}

func TestBindingLocalVariables(t *testing.T) {
	b := testBinding()
	b.LocalVariableSet("x", Int(5))
	if v, _ := b.LocalVariableGet("x"); v != Int(5) {
		t.Errorf("x = %v, want 5", v)
	}
	if b.DynamicScope().GetValueDepthZero(0) != Int(5) {
		t.Error("setting an existing variable should write its scope")
	}
	b.LocalVariableSet("w", Int(6))
	names := b.LocalVariables()
	if len(names) != 2 || names[0] != "w" || names[1] != "x" {
		t.Errorf("LocalVariables() = %v, want [w x]", names)
	}
	if b.LocalVariableDefined("nope") {
		t.Error("LocalVariableDefined(nope) should be false")
	}
}
