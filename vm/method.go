package vm

// Method is a callable body defined on a module. Lookup and visibility
// rules belong to the object model; the invocation core only needs enough
// to activate a method and route jumps to it.
type Method struct {
	module     *Module
	name       string
	static     *StaticScope
	params     *ParamList
	sig        *Signature
	body       BodyFunc
	visibility Visibility
	file       string
	line       int
}

// NewMethod defines name on module. params may be nil for a method that
// reads its arguments straight from the args slice.
func NewMethod(module *Module, name string, params *ParamList, body BodyFunc) *Method {
	static := NewLocalScope(module)
	sig := NoArguments
	if params != nil {
		params = params.Bind(static)
		sig = params.Signature()
	}
	return &Method{
		module: module,
		name:   name,
		static: static,
		params: params,
		sig:    sig,
		body:   body,
	}
}

// NewVariadicMethod defines a method accepting any number of arguments
// without binding them to variables.
func NewVariadicMethod(module *Module, name string, body BodyFunc) *Method {
	m := NewMethod(module, name, nil, body)
	m.sig = OptionalArguments
	return m
}

// WithLocation records where the method was defined.
func (m *Method) WithLocation(file string, line int) *Method {
	m.file = file
	m.line = line
	return m
}

func (m *Method) Module() *Module            { return m.module }
func (m *Method) Name() string               { return m.name }
func (m *Method) StaticScope() *StaticScope  { return m.static }
func (m *Method) Signature() *Signature      { return m.sig }
func (m *Method) Visibility() Visibility     { return m.visibility }
func (m *Method) SetVisibility(v Visibility) { m.visibility = v }
