package talc

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/pontaoski/talc/errors"
	"github.com/ztrue/tracerr"
)

func TestScopeLookup(t *testing.T) {
	global := NewScope(nil, ScopeGlobal)
	_, ok := global.DefineVariable("x", 1)
	be.True(t, ok)
	prev, ok := global.DefineVariable("x", 2)
	be.True(t, !ok)
	be.Equal(t, prev, VarID(1))

	local := NewScope(global, ScopeLocal)
	local.DefineVariable("x", 3)
	id, _ := local.LookupVariable("x")
	be.Equal(t, id, VarID(3))
	id, _ = global.LookupVariable("x")
	be.Equal(t, id, VarID(1))

	// Variables and functions don't share a namespace.
	_, ok = local.LookupFunction("x")
	be.True(t, !ok)

	members := NewScope(NewScope(nil, ScopeMembers), ScopeMembers)
	members.Outer = local
	id, ok = members.LookupVariable("x")
	be.True(t, ok)
	be.Equal(t, id, VarID(3))
	be.True(t, local.Enclosing(ScopeGlobal) == global)
	be.True(t, local.Enclosing(ScopeBuiltin) == nil)
}

func TestBindShadowing(t *testing.T) {
	nodes := parse(t, `
- def: x
  init: {int: 1}
- block:
    - def: x
      init: {string: inner}
    - call: puts
      args: [{var: x}]
- call: puts
  args: [{var: x}]
`)
	st, err := Bind(NewRegistry(), nodes)
	be.Err(t, err, nil)

	outer := nodes[0].(*VariableDefinition)
	block := nodes[1].(*Block)
	inner := block.Statements[0].(*VariableDefinition)
	be.True(t, inner.ID != outer.ID)

	innerUse := block.Statements[1].(*FunctionCall).Args[0].(*VariableName)
	be.Equal(t, innerUse.Decl, inner.ID)
	outerUse := nodes[2].(*FunctionCall).Args[0].(*VariableName)
	be.Equal(t, outerUse.Decl, outer.ID)

	be.True(t, outer.Owner() == st.Global)
	be.True(t, inner.Owner().Parent == st.Global)
}

func TestBindClasses(t *testing.T) {
	nodes := parse(t, `
- def: limit
  init: {int: 10}
- class: shape
  fields:
    - {def: size, type: int}
  methods:
    - function: grow
      body:
        - {op: "=", lhs: {var: size}, rhs: {var: limit}}
- class: square
  extends: shape
  methods:
    - function: area
      returns: int
      body: [{return: {op: "*", lhs: {var: size}, rhs: {var: size}}}]
`)
	st, err := Bind(NewRegistry(), nodes)
	be.Err(t, err, nil)

	shape, square := st.Class("shape"), st.Class("square")
	be.True(t, shape.IsUserDefined())
	be.True(t, square.Super() == shape)
	be.Equal(t, len(st.Classes()), 2)

	// A default constructor is added.
	def := nodes[1].(*ClassDefinition)
	be.Equal(t, len(def.Methods), 2)
	be.True(t, def.Methods[1].Constructor)
	be.Equal(t, def.Methods[1].ReturnType, shape)

	// Methods see fields, inherited fields and globals.
	grow := def.Methods[0].Body.(*Block).Statements[0].(*BinaryOperator)
	be.True(t, grow.Lhs.(*VariableName).FieldAccess)
	be.True(t, !grow.Rhs.(*VariableName).FieldAccess)
	area := nodes[2].(*ClassDefinition).Methods[0].Body.(*Block).Statements[0].(*ReturnStatement)
	be.True(t, area.Expr.(*BinaryOperator).Lhs.(*VariableName).FieldAccess)

	_, ok := square.Members().LookupFunction("grow")
	be.True(t, ok)
}

func TestBindErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"own initializer", "- {def: x, init: {var: x}}", `no variable "x" in scope`},
		{"redefined variable", "- {def: x, type: int}\n- {def: x, type: int}", `redefinition of "x"`},
		{"redefined function", "- {function: f}\n- {function: f}", `redefinition of "f"`},
		{"redefined class", "- {class: c}\n- {class: c}", `redefinition of "c"`},
		{"built-in class name", "- {class: string}", `redefinition of "string"`},
		{"template arity", "- {def: x, type: 'map<int>'}", "map<int>, doesn't exist"},
		{"arguments on a simple type", "- {def: x, type: 'int<int>'}", "int<int>, doesn't exist"},
		{"parameter type", "- {function: f, params: [{name: a, type: nope}]}", `parameter "a" of f, nope`},
		{"loop variable type", "- {foreach: [{name: a, type: nope}], in: {list: []}}", `loop variable "a", nope`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Bind(NewRegistry(), parse(t, test.src))
			be.Err(t, err, test.want)
		})
	}
}

func TestBindErrorKinds(t *testing.T) {
	_, err := Bind(NewRegistry(), parse(t, "- {var: nope}"))
	resErr, ok := tracerr.Unwrap(err).(errors.ResolutionError)
	be.True(t, ok)
	be.Equal(t, resErr.Name, "nope")

	_, err = Bind(NewRegistry(), parse(t, "- {def: x, type: int}\n- {def: x, type: int, line: 2}"))
	redef, ok := tracerr.Unwrap(err).(errors.RedefinitionError)
	be.True(t, ok)
	be.Equal(t, redef.Location.From.Line, 2)
	be.Equal(t, redef.Previous.From.Line, 1)
}

func TestBindFunctionsDontCapture(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"enclosing parameter", `
- function: outer
  params: [{name: a, type: int}]
  body:
    - function: inner
      returns: int
      body: [{return: {var: a}}]
`, "a"},
		{"enclosing local", `
- function: outer
  body:
    - {def: b, init: {int: 1}}
    - function: inner
      body: [{call: puts, args: [{var: b}]}]
`, "b"},
		{"field from a nested function", `
- class: box
  fields: [{def: v, type: int}]
  methods:
    - function: get
      returns: int
      body:
        - function: peek
          returns: int
          body: [{return: {var: v}}]
        - return: {call: peek}
`, "v"},
		{"block local of the main program", `
- block:
    - {def: c, init: {int: 1}}
    - function: inner
      body: [{call: puts, args: [{var: c}]}]
`, "c"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Bind(NewRegistry(), parse(t, test.src))
			resErr, ok := tracerr.Unwrap(err).(errors.ResolutionError)
			be.True(t, ok)
			be.Equal(t, resErr.Name, test.want)
		})
	}
}

func TestBindNestedFunctions(t *testing.T) {
	nodes := parse(t, `
- {def: g, init: {int: 1}}
- class: box
  fields: [{def: v, type: int}]
  methods:
    - function: get
      returns: int
      body:
        - function: add
          params: [{name: a, type: int}]
          returns: int
          body: [{return: {op: "+", lhs: {var: a}, rhs: {var: g}}}]
        - return: {call: add, args: [{var: v}]}
`)
	_, err := Bind(NewRegistry(), nodes)
	be.Err(t, err, nil)

	get := nodes[1].(*ClassDefinition).Methods[0]
	ret := get.Body.(*Block).Statements[1].(*ReturnStatement)
	be.True(t, ret.Expr.(*FunctionCall).Args[0].(*VariableName).FieldAccess)
}

func TestSymbolTablesShareTheRegistry(t *testing.T) {
	reg := NewRegistry()
	builtins := reg.Decls().NumVars()

	a, err := Bind(reg, parse(t, "- {def: x, type: int}"))
	be.Err(t, err, nil)
	b, err := Bind(reg, parse(t, "- {def: w, type: int}\n- {def: z, type: int}"))
	be.Err(t, err, nil)

	be.Equal(t, a.Decls.NumVars(), builtins+1)
	be.Equal(t, b.Decls.NumVars(), builtins+2)
	be.Equal(t, reg.Decls().NumVars(), builtins)
}
