package talc

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/alecthomas/participle"
)

// Type is a nominal talc type. It is one of a simple type (name and
// superclass), an uninstantiated template such as list<T>, an
// instantiation such as list<int>, or a type variable.
type Type struct {
	super    *Type
	name     string
	template *Type
	key      *Type
	value    *Type
	members  *Scope
	typeVar  bool
	user     bool

	hash uint64
}

func newSimpleType(super *Type, name string) *Type {
	t := &Type{super: super, name: name}
	t.members = NewScope(memberScope(super), ScopeMembers)
	return t.seal()
}

func newTemplate(super *Type, name string, key, value *Type) *Type {
	t := &Type{super: super, name: name, key: key, value: value}
	t.members = NewScope(memberScope(super), ScopeMembers)
	return t.seal()
}

func newTypeVariable(name string) *Type {
	return (&Type{name: name, typeVar: true}).seal()
}

// NewClass makes a user-defined class. Its member scope is nested in the
// superclass's so inherited members resolve without copying.
func NewClass(super *Type, name string) *Type {
	t := &Type{super: super, name: name, user: true}
	t.members = NewScope(memberScope(super), ScopeMembers)
	return t.seal()
}

func memberScope(t *Type) *Scope {
	if t == nil {
		return nil
	}
	return t.members
}

// withKey copies t with a different key type, sharing members. It's how
// list<K> and list<V> are made for map's keys and values.
func (t *Type) withKey(key *Type) *Type {
	c := *t
	c.key = key
	return c.seal()
}

// seal computes the memoized hash. A Type never changes afterwards.
func (t *Type) seal() *Type {
	if t.typeVar {
		t.hash = 7
		return t
	}
	h := uint64(17)
	mix := func(v uint64) { h = 37*h + v }
	if t.super != nil {
		mix(t.super.hash)
	} else {
		mix(0)
	}
	f := fnv.New64a()
	f.Write([]byte(t.name))
	mix(f.Sum64())
	for _, field := range []*Type{t.template, t.key, t.value} {
		if field != nil {
			mix(field.hash)
		} else {
			mix(0)
		}
	}
	t.hash = h
	return t
}

func (t *Type) Hash() uint64 {
	return t.hash
}

// Equal is structural. Any two type variables are equal to each other.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	if t.typeVar && o.typeVar {
		return true
	}
	if t.hash != o.hash {
		return false
	}
	return t.super.Equal(o.super) &&
		t.name == o.name &&
		t.template.Equal(o.template) &&
		t.key.Equal(o.key) &&
		t.value.Equal(o.value) &&
		t.members == o.members
}

func (t *Type) Super() *Type         { return t.super }
func (t *Type) Key() *Type           { return t.key }
func (t *Type) Value() *Type         { return t.value }
func (t *Type) Template() *Type      { return t.template }
func (t *Type) Members() *Scope      { return t.members }
func (t *Type) IsTypeVariable() bool { return t.typeVar }
func (t *Type) IsUserDefined() bool  { return t.user }
func (t *Type) IsInstantiated() bool { return t.template != nil }

// IsTemplate reports whether t still has unbound type variables.
func (t *Type) IsTemplate() bool {
	if t == nil {
		return false
	}
	return t.typeVar || t.key.IsTemplate() || t.value.IsTemplate()
}

// Name is the raw name, so an instantiation of list is "list".
func (t *Type) Name() string {
	if t.name == "" && t.template != nil {
		return t.template.name
	}
	return t.name
}

// Depth is the distance from the root of the class hierarchy.
func (t *Type) Depth() int {
	n := 0
	for s := t; s.super != nil; s = s.super {
		n++
	}
	return n
}

// TypeParameter maps a type variable to the argument bound to it, so
// list<string>.TypeParameter(T) is string and map<K,V>.TypeParameter(V) is
// V's argument.
func (t *Type) TypeParameter(tv *Type) *Type {
	if !tv.typeVar {
		panic(fmt.Sprintf("alleged type variable %s isn't a type variable", tv))
	}
	switch tv.name {
	case "T", "K":
		return t.key
	case "V":
		return t.value
	}
	return nil
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(t.Name())
	if t.key != nil {
		b.WriteString("<")
		b.WriteString(t.key.String())
		if t.value != nil {
			b.WriteString(",")
			b.WriteString(t.value.String())
		}
		b.WriteString(">")
	}
	return b.String()
}

// Describe renders the class header followed by its own members.
func (t *Type) Describe(d *Decls) string {
	var b strings.Builder
	b.WriteString(t.String())
	if t.super != nil {
		b.WriteString(" : ")
		b.WriteString(t.super.String())
	}
	b.WriteString("\n")
	if t.members != nil {
		b.WriteString(t.members.Describe(d))
	}
	return b.String()
}

// TypeName is a type as written in source, before resolution.
type TypeName struct {
	Name string
	Args []*TypeName
}

func (n *TypeName) String() string {
	if n == nil {
		return "<inferred>"
	}
	if len(n.Args) == 0 {
		return n.Name
	}
	var args []string
	for _, a := range n.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s<%s>", n.Name, strings.Join(args, ","))
}

// typeNameGrammar is the written form of a type name.
type typeNameGrammar struct {
	Name string             `@Ident`
	Args []*typeNameGrammar `( "<" @@ ( "," @@ )* ">" )?`
}

var typeNameParser = participle.MustBuild(&typeNameGrammar{})

func (g *typeNameGrammar) typeName() *TypeName {
	n := &TypeName{Name: g.Name}
	for _, a := range g.Args {
		n.Args = append(n.Args, a.typeName())
	}
	return n
}

// ParseTypeName reads forms like "int", "list<string>" and
// "map<string, list<int>>".
func ParseTypeName(s string) (*TypeName, error) {
	var g typeNameGrammar
	if err := typeNameParser.ParseString(s, &g); err != nil {
		return nil, fmt.Errorf("bad type %q: %s", s, err)
	}
	return g.typeName(), nil
}

// Registry holds the built-in types, functions and constants. It is built
// once by NewRegistry and only read afterwards, so compilations may share
// it.
type Registry struct {
	Object *Type
	Bool   *Type
	File   *Type
	Int    *Type
	Match  *Type
	Real   *Type
	String *Type

	Void      *Type
	Null      *Type
	EmptyList *Type

	K *Type
	V *Type
	T *Type

	List *Type
	Map  *Type

	ListOfObject *Type
	ListOfString *Type
	ListOfK      *Type
	ListOfV      *Type

	byName map[string]*Type
	decls  *Decls
	scope  *Scope
}

func (r *Registry) ByName(name string) *Type {
	return r.byName[name]
}

// Classes returns the documented built-in types sorted by name.
func (r *Registry) Classes() []*Type {
	var names []string
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	var ret []*Type
	for _, name := range names {
		ret = append(ret, r.byName[name])
	}
	return ret
}

func (r *Registry) DescribeClass(t *Type) string {
	return t.Describe(r.decls)
}

// Builtins is the scope holding the global built-in functions and
// constants. The global scope of every compilation nests in it.
func (r *Registry) Builtins() *Scope {
	return r.scope
}

func (r *Registry) Decls() *Decls {
	return r.decls
}

// Instantiate binds key and value into the type variable slots of
// template. The result shares the template's members.
func (r *Registry) Instantiate(template, key, value *Type) *Type {
	if template == nil {
		panic("Instantiate: template is nil")
	}
	if !template.IsTemplate() {
		panic(fmt.Sprintf("Instantiate(%s, %s, %s): %s isn't an uninstantiated template", template, key, value, template))
	}
	base := template
	if template.template != nil {
		base = template.template
	}
	t := &Type{
		super:    template.super,
		template: base,
		key:      selectTypeVariable(template.key, key, value),
		value:    selectTypeVariable(template.value, key, value),
		members:  template.members,
	}
	return t.seal()
}

func selectTypeVariable(tv, key, value *Type) *Type {
	if tv == nil {
		return nil
	}
	switch tv.name {
	case "T", "K":
		return key
	case "V":
		return value
	}
	panic(fmt.Sprintf("unknown type variable %s", tv))
}

// AssignableTo reports whether a value of type from can be stored where
// to is declared. Instantiations are covariant in their arguments, so
// list<sub> is assignable to list<super>.
func (r *Registry) AssignableTo(from, to *Type) bool {
	if from == nil || to == nil {
		return false
	}
	if from == r.Null || from.Equal(to) {
		return true
	}
	for s := from.super; s != nil; s = s.super {
		if r.AssignableTo(s, to) {
			return true
		}
	}
	if from.IsInstantiated() {
		if !to.IsInstantiated() || !from.template.Equal(to.template) {
			return false
		}
		if from.key != nil && !r.AssignableTo(from.key, to.key) {
			return false
		}
		if from.value != nil && !r.AssignableTo(from.value, to.value) {
			return false
		}
		return true
	}
	if from == r.EmptyList && to.IsInstantiated() && to.template.Equal(r.List) {
		return true
	}
	return false
}

// Substitute replaces the type variables in t by the arguments bound in
// receiver. Types without variables come back unchanged.
func (r *Registry) Substitute(t, receiver *Type) *Type {
	if t == nil || receiver == nil || !t.IsTemplate() {
		return t
	}
	if t.typeVar {
		if p := receiver.TypeParameter(t); p != nil {
			return p
		}
		return r.Object
	}
	key := r.Substitute(t.key, receiver)
	value := r.Substitute(t.value, receiver)
	base := t
	if t.template != nil {
		base = t.template
	}
	if base.name == r.List.name {
		base = r.List
	} else if base.name == r.Map.name {
		base = r.Map
	}
	return r.Instantiate(base, key, value)
}
