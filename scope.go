package talc

import (
	"fmt"
	"sort"
	"strings"
)

type VarID int
type FuncID int

const (
	NoVar  VarID  = 0
	NoFunc FuncID = 0
)

type ScopeKind int

const (
	ScopeBuiltin ScopeKind = iota
	ScopeGlobal
	ScopeLocal
	ScopeMembers
	// ScopeFunction holds a function's parameters. It bounds the frame
	// the body runs in.
	ScopeFunction
)

// Decls is the arena every declaration lives in. Use sites hold a VarID or
// FuncID; id 0 is never allocated.
type Decls struct {
	vars  []*VariableDefinition
	funcs []*FunctionDefinition
}

func newDecls() *Decls {
	return &Decls{
		vars:  []*VariableDefinition{nil},
		funcs: []*FunctionDefinition{nil},
	}
}

// fork copies the arena so ids already handed out stay valid in both.
func (d *Decls) fork() *Decls {
	return &Decls{
		vars:  append([]*VariableDefinition(nil), d.vars...),
		funcs: append([]*FunctionDefinition(nil), d.funcs...),
	}
}

func (d *Decls) addVar(v *VariableDefinition) VarID {
	d.vars = append(d.vars, v)
	v.ID = VarID(len(d.vars) - 1)
	return v.ID
}

func (d *Decls) addFunc(f *FunctionDefinition) FuncID {
	d.funcs = append(d.funcs, f)
	f.ID = FuncID(len(d.funcs) - 1)
	return f.ID
}

func (d *Decls) Var(id VarID) *VariableDefinition {
	if id <= 0 || int(id) >= len(d.vars) {
		return nil
	}
	return d.vars[id]
}

func (d *Decls) Func(id FuncID) *FunctionDefinition {
	if id <= 0 || int(id) >= len(d.funcs) {
		return nil
	}
	return d.funcs[id]
}

func (d *Decls) NumVars() int {
	return len(d.vars) - 1
}

func (d *Decls) NumFuncs() int {
	return len(d.funcs) - 1
}

// Scope is one lexical environment. Variables and functions are separate
// namespaces.
type Scope struct {
	Kind   ScopeKind
	Parent *Scope
	// Outer is set on a user class's member scope to the scope the class
	// was declared in. Lookups that miss the member chain continue there.
	Outer *Scope

	vars  map[string]VarID
	funcs map[string]FuncID
}

func NewScope(parent *Scope, kind ScopeKind) *Scope {
	return &Scope{
		Kind:   kind,
		Parent: parent,
		vars:   map[string]VarID{},
		funcs:  map[string]FuncID{},
	}
}

// DefineVariable binds name in s. If s already binds it, the previous id is
// returned and nothing changes.
func (s *Scope) DefineVariable(name string, id VarID) (VarID, bool) {
	if prev, ok := s.vars[name]; ok {
		return prev, false
	}
	s.vars[name] = id
	return id, true
}

func (s *Scope) DefineFunction(name string, id FuncID) (FuncID, bool) {
	if prev, ok := s.funcs[name]; ok {
		return prev, false
	}
	s.funcs[name] = id
	return id, true
}

// walk visits s and its ancestors until visit returns true.
func (s *Scope) walk(visit func(*Scope) bool) {
	var outer *Scope
	for sc := s; sc != nil; {
		if visit(sc) {
			return
		}
		if outer == nil && sc.Outer != nil {
			outer = sc.Outer
		}
		sc = sc.Parent
		if sc == nil {
			sc, outer = outer, nil
		}
	}
}

func (s *Scope) LookupVariable(name string) (id VarID, ok bool) {
	s.walk(func(sc *Scope) bool {
		id, ok = sc.vars[name]
		return ok
	})
	return
}

func (s *Scope) LookupFunction(name string) (id FuncID, ok bool) {
	s.walk(func(sc *Scope) bool {
		id, ok = sc.funcs[name]
		return ok
	})
	return
}

// Own reports whether s itself binds the variable name.
func (s *Scope) Own(name string) (VarID, bool) {
	id, ok := s.vars[name]
	return id, ok
}

// Enclosing returns the nearest scope of the given kind, or nil.
func (s *Scope) Enclosing(kind ScopeKind) *Scope {
	for sc := s; sc != nil; sc = sc.Parent {
		if sc.Kind == kind {
			return sc
		}
	}
	return nil
}

// Describe lists the scope's own declarations, variables first, each group
// sorted by name.
func (s *Scope) Describe(d *Decls) string {
	var b strings.Builder

	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s;\n", d.Var(s.vars[name]).Signature())
	}

	if len(names) > 0 && len(s.funcs) > 0 {
		b.WriteString("\n")
	}

	names = names[:0]
	for name := range s.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", d.Func(s.funcs[name]).Signature())
	}
	return b.String()
}
