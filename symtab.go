package talc

import (
	"github.com/pontaoski/talc/errors"
)

// SymbolTable is the per-compilation view of declarations: the arena, the
// global scope and the user-defined classes.
type SymbolTable struct {
	Registry *Registry
	Decls    *Decls
	Global   *Scope

	classes   map[string]*Type
	classDefs map[string]*ClassDefinition
	order     []*Type

	scope *Scope
}

func NewSymbolTable(reg *Registry) *SymbolTable {
	st := &SymbolTable{
		Registry:  reg,
		Decls:     reg.decls.fork(),
		Global:    NewScope(reg.scope, ScopeGlobal),
		classes:   make(map[string]*Type),
		classDefs: make(map[string]*ClassDefinition),
	}
	st.scope = st.Global
	return st
}

// Bind attaches a scope to every node, binds every declaration, resolves
// variable references and declared type names, and registers user classes.
func Bind(reg *Registry, nodes []Node) (st *SymbolTable, err error) {
	st = NewSymbolTable(reg)
	defer catch(&err)

	for _, n := range nodes {
		st.bind(n)
	}
	return st, nil
}

// Class looks up a user-defined class.
func (st *SymbolTable) Class(name string) *Type {
	return st.classes[name]
}

// Classes returns the user-defined classes in declaration order.
func (st *SymbolTable) Classes() []*Type {
	return st.order
}

// LookupType resolves a class name, user-defined first.
func (st *SymbolTable) LookupType(name string) *Type {
	if t, ok := st.classes[name]; ok {
		return t
	}
	if name == st.Registry.Void.Name() {
		return st.Registry.Void
	}
	return st.Registry.ByName(name)
}

// ResolveType turns a written type into a Type. what names the thing being
// declared for the error message.
func (st *SymbolTable) ResolveType(what string, n *TypeName, at Node) *Type {
	fail := func() {
		panic(errors.TypeDeclarationError{What: what, TypeName: n.String(), Location: at.Span()})
	}
	t := st.LookupType(n.Name)
	if t == nil {
		fail()
	}
	if !t.IsTemplate() {
		if len(n.Args) != 0 {
			fail()
		}
		return t
	}
	var key, value *Type
	switch {
	case t.Key() != nil && t.Value() != nil:
		if len(n.Args) != 2 {
			fail()
		}
		key = st.ResolveType(what, n.Args[0], at)
		value = st.ResolveType(what, n.Args[1], at)
	default:
		if len(n.Args) != 1 {
			fail()
		}
		key = st.ResolveType(what, n.Args[0], at)
	}
	return st.Registry.Instantiate(t, key, value)
}

func (st *SymbolTable) push(kind ScopeKind) {
	st.scope = NewScope(st.scope, kind)
}

func (st *SymbolTable) pop() {
	st.scope = st.scope.Parent
}

// inScope runs fn with s as the current scope.
func (st *SymbolTable) inScope(s *Scope, fn func()) {
	saved := st.scope
	st.scope = s
	defer func() { st.scope = saved }()
	fn()
}

// nested runs fn in a fresh local scope.
func (st *SymbolTable) nested(fn func()) {
	st.push(ScopeLocal)
	defer st.pop()
	fn()
}

func (st *SymbolTable) defineVariable(v *VariableDefinition) {
	v.setScope(st.scope)
	st.Decls.addVar(v)
	if prev, ok := st.scope.DefineVariable(v.Name, v.ID); !ok {
		panic(errors.RedefinitionError{Name: v.Name, Location: v.Pos, Previous: st.Decls.Var(prev).Pos})
	}
}

func (st *SymbolTable) defineFunction(f *FunctionDefinition) {
	st.Decls.addFunc(f)
	if prev, ok := st.scope.DefineFunction(f.Name, f.ID); !ok {
		panic(errors.RedefinitionError{Name: f.Name, Location: f.Pos, Previous: st.Decls.Func(prev).Pos})
	}
}

// reachable reports whether code in the current scope can use decl.
// Functions don't capture: a body sees globals and its own frame, plus
// fields when it's a method. Field initializers see fields and globals.
func (st *SymbolTable) reachable(decl *VariableDefinition) bool {
	owner := decl.Owner()
	if decl.Builtin || owner == nil || owner.Kind == ScopeGlobal || owner.Kind == ScopeBuiltin {
		return true
	}
	for sc := st.scope; sc != nil; sc = sc.Parent {
		switch sc.Kind {
		case ScopeMembers:
			return decl.Field
		case ScopeFunction:
			if sc == owner {
				return true
			}
			return decl.Field && sc.Parent != nil && sc.Parent.Kind == ScopeMembers
		}
		if sc == owner {
			return true
		}
	}
	return true
}

func (st *SymbolTable) bindAll(nodes []Node) {
	for _, n := range nodes {
		st.bind(n)
	}
}

func (st *SymbolTable) bindOptional(n Node) {
	if n != nil {
		st.bind(n)
	}
}

func (st *SymbolTable) bind(n Node) {
	switch v := n.(type) {
	case *Constant:
		v.setScope(st.scope)
	case *BinaryOperator:
		v.setScope(st.scope)
		st.bind(v.Lhs)
		st.bindOptional(v.Rhs)
	case *VariableDefinition:
		st.bindOptional(v.Init)
		if v.TypeName != nil && v.Type == nil {
			v.Type = st.ResolveType("variable \""+v.Name+"\"", v.TypeName, v)
		}
		st.defineVariable(v)
	case *VariableName:
		v.setScope(st.scope)
		id, ok := st.scope.LookupVariable(v.Name)
		if !ok || !st.reachable(st.Decls.Var(id)) {
			panic(errors.ResolutionError{Kind: "variable", Name: v.Name, Location: v.Pos})
		}
		v.Decl = id
		v.FieldAccess = st.Decls.Var(id).Field
	case *FunctionDefinition:
		st.bindFunction(v, nil)
	case *FunctionCall:
		v.setScope(st.scope)
		st.bindOptional(v.Instance)
		st.bindAll(v.Args)
	case *ClassDefinition:
		st.bindClass(v)
	case *Block:
		if v != EmptyBlock {
			v.setScope(st.scope)
		}
		st.nested(func() {
			st.bindAll(v.Statements)
		})
	case *IfStatement:
		v.setScope(st.scope)
		st.bindAll(v.Conds)
		for _, body := range v.Bodies {
			st.nested(func() { st.bind(body) })
		}
		if v.Else != nil {
			st.nested(func() { st.bind(v.Else) })
		}
	case *WhileStatement:
		v.setScope(st.scope)
		st.bind(v.Cond)
		st.nested(func() { st.bind(v.Body) })
	case *DoStatement:
		v.setScope(st.scope)
		st.nested(func() { st.bind(v.Body) })
		st.bind(v.Cond)
	case *ForStatement:
		v.setScope(st.scope)
		st.nested(func() {
			st.bindOptional(v.Init)
			st.bindOptional(v.Cond)
			st.bindOptional(v.Update)
			st.bind(v.Body)
		})
	case *ForEachStatement:
		v.setScope(st.scope)
		// The loop variables aren't visible in the expression.
		st.bind(v.Expr)
		st.nested(func() {
			for _, lv := range v.Vars {
				if lv.TypeName != nil && lv.Type == nil {
					lv.Type = st.ResolveType("loop variable \""+lv.Name+"\"", lv.TypeName, lv)
				}
				st.defineVariable(lv)
			}
			st.bind(v.Body)
		})
	case *ReturnStatement:
		v.setScope(st.scope)
		st.bindOptional(v.Expr)
	case *BreakStatement:
		v.setScope(st.scope)
	case *ContinueStatement:
		v.setScope(st.scope)
	case *AssertStatement:
		v.setScope(st.scope)
		st.bind(v.Test)
		st.bindOptional(v.Explanation)
	case *ListLiteral:
		v.setScope(st.scope)
		st.bindAll(v.Elems)
	case *MapLiteral:
		v.setScope(st.scope)
		st.bindAll(v.Keys)
		st.bindAll(v.Values)
	default:
		panic(errors.CodegenError{Msg: "unknown node in symbol table", Location: n.Span()})
	}
}

func (st *SymbolTable) bindFunction(f *FunctionDefinition, class *Type) {
	f.setScope(st.scope)
	f.Class = class

	if f.ParamTypes == nil {
		for i, tn := range f.ParamTypeNames {
			f.ParamTypes = append(f.ParamTypes, st.ResolveType("parameter \""+f.ParamNames[i]+"\" of "+f.Name, tn, f))
		}
	}
	switch {
	case f.ReturnType != nil:
	case f.Constructor:
		f.ReturnType = class
	case f.ReturnTypeName != nil:
		f.ReturnType = st.ResolveType("return value of "+f.Name, f.ReturnTypeName, f)
	default:
		f.ReturnType = st.Registry.Void
	}

	// The function is visible in its own body.
	st.defineFunction(f)

	st.push(ScopeFunction)
	defer st.pop()
	f.Params = nil
	for i, name := range f.ParamNames {
		p := &VariableDefinition{Name: name, Type: f.ParamTypes[i]}
		p.Pos = f.Pos
		if i < len(f.ParamTypeNames) {
			p.TypeName = f.ParamTypeNames[i]
		}
		st.defineVariable(p)
		f.Params = append(f.Params, p)
	}
	if f.Body != nil {
		st.bind(f.Body)
	}
}

func (st *SymbolTable) bindClass(c *ClassDefinition) {
	c.setScope(st.scope)

	if prev, ok := st.classDefs[c.Name]; ok {
		panic(errors.RedefinitionError{Name: c.Name, Location: c.Pos, Previous: prev.Pos})
	}
	if st.LookupType(c.Name) != nil {
		panic(errors.RedefinitionError{Name: c.Name, Location: c.Pos})
	}

	super := st.Registry.Object
	if c.Super != "" {
		super = st.classes[c.Super]
		if super == nil && c.Super == st.Registry.Object.Name() {
			super = st.Registry.Object
		}
		if super == nil {
			panic(errors.TypeDeclarationError{What: "superclass of " + c.Name, TypeName: c.Super, Location: c.Pos})
		}
	}

	t := NewClass(super, c.Name)
	t.members.Outer = st.scope
	c.Type = t
	st.classes[c.Name] = t
	st.classDefs[c.Name] = c
	st.order = append(st.order, t)

	hasConstructor := false
	for _, m := range c.Methods {
		if m.Name == c.Name {
			m.Constructor = true
			hasConstructor = true
		}
	}
	if !hasConstructor {
		init := &FunctionDefinition{Name: c.Name, Body: EmptyBlock, Constructor: true}
		init.Pos = c.Pos
		c.Methods = append(c.Methods, init)
	}

	st.inScope(t.members, func() {
		for _, field := range c.Fields {
			field.Field = true
			st.bind(field)
		}
		for _, m := range c.Methods {
			st.bindFunction(m, t)
		}
	})
}
