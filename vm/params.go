package vm

import "strconv"

// OptParam is an optional positional parameter and its default.
type OptParam struct {
	Name    string
	Default Value
}

// KeywordParam is a keyword parameter. Required keywords have no default.
type KeywordParam struct {
	Name     string
	Required bool
	Default  Value
}

// ParamList names the parameters of a block or method in declaration order
// and binds reconciled arguments into scope slots. A ParamList must be
// bound to a static scope with Bind before it can receive arguments.
type ParamList struct {
	Pre      []string
	Opt      []OptParam
	Rest     string
	RestKind Rest
	Post     []string
	Keywords []KeywordParam
	KeyRest  string
	// HasKeyRest is set for **opts, also when KeyRest is empty (bare **).
	HasKeyRest bool
	Block      string

	sig   *Signature
	slots paramSlots
}

type paramSlots struct {
	bound   bool
	pre     []int
	opt     []int
	rest    int
	post    []int
	kw      []int
	keyRest int
	block   int
}

// Params is shorthand for a list of required parameters.
func Params(names ...string) *ParamList {
	return &ParamList{Pre: names}
}

// ParamsFor builds an anonymous parameter list matching sig, naming the
// parameters after their position. It is how bodies that only know their
// shape get argument binding.
func ParamsFor(sig *Signature) *ParamList {
	p := &ParamList{RestKind: sig.Rest()}
	for i := 0; i < sig.Pre(); i++ {
		p.Pre = append(p.Pre, paramName("p", i))
	}
	for i := 0; i < sig.Opt(); i++ {
		p.Opt = append(p.Opt, OptParam{Name: paramName("o", i), Default: Nil})
	}
	if sig.Rest() == RestNorm {
		p.Rest = "r"
	}
	for i := 0; i < sig.Post(); i++ {
		p.Post = append(p.Post, paramName("q", i))
	}
	for i := 0; i < sig.Kwargs(); i++ {
		p.Keywords = append(p.Keywords, KeywordParam{
			Name:     paramName("k", i),
			Required: i < sig.RequiredKwargs(),
			Default:  Nil,
		})
	}
	if sig.RestKwargs() {
		p.HasKeyRest = true
		p.KeyRest = "kr"
	}
	return p
}

func paramName(prefix string, i int) string {
	return prefix + strconv.Itoa(i)
}

// Signature derives the signature of the list.
func (p *ParamList) Signature() *Signature {
	if p.sig != nil {
		return p.sig
	}
	rest := p.RestKind
	if rest == RestNone && p.Rest != "" {
		rest = RestNorm
	}
	required := 0
	for _, k := range p.Keywords {
		if k.Required {
			required++
		}
	}
	return SignatureFrom(len(p.Pre), len(p.Opt), len(p.Post), rest, len(p.Keywords), required, p.HasKeyRest || p.KeyRest != "")
}

// Bind returns a copy of p with every named parameter allocated a slot in
// static.
func (p *ParamList) Bind(static *StaticScope) *ParamList {
	c := *p
	c.sig = p.Signature()
	s := paramSlots{bound: true, rest: -1, keyRest: -1, block: -1}
	for _, n := range p.Pre {
		s.pre = append(s.pre, static.AddVariable(n))
	}
	for _, o := range p.Opt {
		s.opt = append(s.opt, static.AddVariable(o.Name))
	}
	if p.Rest != "" {
		s.rest = static.AddVariable(p.Rest)
	}
	for _, n := range p.Post {
		s.post = append(s.post, static.AddVariable(n))
	}
	for _, k := range p.Keywords {
		s.kw = append(s.kw, static.AddVariable(k.Name))
	}
	if p.KeyRest != "" {
		s.keyRest = static.AddVariable(p.KeyRest)
	}
	if p.Block != "" {
		s.block = static.AddVariable(p.Block)
	}
	c.slots = s
	return &c
}

// IsBound reports whether Bind produced p.
func (p *ParamList) IsBound() bool { return p.slots.bound }

// Receive binds args into scope. Strict receiving (lambdas and methods)
// rejects a count the signature does not accept; otherwise missing
// positional parameters read nil and extras are dropped. A trailing Hash is
// taken as keyword arguments when the list declares keywords.
func (p *ParamList) Receive(scope *DynamicScope, args []Value, strict bool, block *Block) error {
	if !p.slots.bound {
		panic("vm: Receive on unbound ParamList")
	}
	sig := p.Signature()
	given := len(args)

	var kwargs *Hash
	if sig.HasKwargs() && len(args) > sig.Required() {
		if h, ok := args[len(args)-1].(*Hash); ok {
			kwargs = h
			args = args[:len(args)-1]
		}
	}

	n := len(args)
	required := sig.Required()
	max := sig.Max()
	if strict {
		if n < required || (max >= 0 && n > max) {
			return &ArgumentCountError{Given: given, Min: required, Max: max}
		}
	} else {
		if n < required {
			padded := make([]Value, required)
			copy(padded, args)
			for i := n; i < required; i++ {
				padded[i] = Nil
			}
			args, n = padded, required
		}
		if max >= 0 && n > max {
			args, n = args[:max], max
		}
	}

	pre, post := len(p.Pre), len(p.Post)
	for i := 0; i < pre; i++ {
		scope.SetValueDepthZero(p.slots.pre[i], args[i])
	}
	optFilled := n - pre - post
	if optFilled > len(p.Opt) {
		optFilled = len(p.Opt)
	}
	for i, o := range p.Opt {
		v := o.Default
		if i < optFilled {
			v = args[pre+i]
		}
		scope.SetValueDepthZero(p.slots.opt[i], orNil(v))
	}
	if p.slots.rest >= 0 {
		scope.SetValueDepthZero(p.slots.rest, NewArrayCopy(args[pre+optFilled:n-post]))
	}
	for i := 0; i < post; i++ {
		scope.SetValueDepthZero(p.slots.post[i], args[n-post+i])
	}

	if sig.HasKwargs() {
		if err := p.receiveKeywords(scope, kwargs); err != nil {
			return err
		}
	}

	p.receiveBlock(scope, block)
	return nil
}

func (p *ParamList) receiveBlock(scope *DynamicScope, block *Block) {
	if p.slots.block < 0 {
		return
	}
	var v Value = Nil
	if block.IsGiven() {
		v = NewProc(block)
	}
	scope.SetValueDepthZero(p.slots.block, v)
}

func (p *ParamList) receiveKeywords(scope *DynamicScope, kwargs *Hash) error {
	var rest *Hash
	if kwargs != nil {
		rest = kwargs.Dup()
	} else {
		rest = NewHash()
	}
	var missing []Symbol
	for i, k := range p.Keywords {
		if v, ok := rest.Delete(Symbol(k.Name)); ok {
			scope.SetValueDepthZero(p.slots.kw[i], v)
			continue
		}
		if k.Required {
			missing = append(missing, Symbol(k.Name))
			continue
		}
		scope.SetValueDepthZero(p.slots.kw[i], orNil(k.Default))
	}
	if len(missing) > 0 {
		return &ArgumentError{Missing: missing}
	}
	if p.HasKeyRest || p.KeyRest != "" {
		if p.slots.keyRest >= 0 {
			scope.SetValueDepthZero(p.slots.keyRest, rest)
		}
		return nil
	}
	if rest.Len() > 0 {
		return &ArgumentError{Unknown: rest.Keys()}
	}
	return nil
}

// receiveFixed binds exactly Required() positional arguments without a
// slice, for the direct fast path.
func (p *ParamList) receiveFixed(scope *DynamicScope, i int, v Value) {
	if i < len(p.Pre) {
		scope.SetValueDepthZero(p.slots.pre[i], v)
		return
	}
	scope.SetValueDepthZero(p.slots.post[i-len(p.Pre)], v)
}
