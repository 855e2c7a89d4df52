package talc

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestParseTypeName(t *testing.T) {
	n, err := ParseTypeName("map<string, list<int>>")
	be.Err(t, err, nil)
	be.Equal(t, n.Name, "map")
	be.Equal(t, len(n.Args), 2)
	be.Equal(t, n.String(), "map<string,list<int>>")

	for _, bad := range []string{"list<int", "list<int>>", "list<>", "<int>"} {
		_, err := ParseTypeName(bad)
		be.Err(t, err, "bad type")
	}
}

func TestTypeIdentity(t *testing.T) {
	reg := NewRegistry()
	a := reg.Instantiate(reg.List, reg.Int, nil)
	b := reg.Instantiate(reg.List, reg.Int, nil)
	be.True(t, a != b)
	be.True(t, a.Equal(b))
	be.Equal(t, a.Hash(), b.Hash())
	be.Equal(t, a.String(), "list<int>")
	be.True(t, !a.Equal(reg.Instantiate(reg.List, reg.String, nil)))

	m := reg.Instantiate(reg.Map, reg.String, a)
	be.Equal(t, m.String(), "map<string,list<int>>")
	be.True(t, m.Template() == reg.Map)
	be.True(t, !m.IsTemplate())
	be.True(t, reg.Map.IsTemplate())

	// Type variables are interchangeable.
	be.True(t, reg.K.Equal(reg.V))
	be.Equal(t, reg.K.Hash(), reg.T.Hash())

	// Classes with the same name in different places are different types.
	be.True(t, !NewClass(reg.Object, "p").Equal(NewClass(reg.Object, "p")))
}

func TestAssignability(t *testing.T) {
	reg := NewRegistry()
	listOf := func(t *Type) *Type { return reg.Instantiate(reg.List, t, nil) }
	shape := NewClass(reg.Object, "shape")
	circle := NewClass(shape, "circle")

	tests := []struct {
		name     string
		from, to *Type
		want     bool
	}{
		{"same type", reg.Int, reg.Int, true},
		{"subclass", circle, shape, true},
		{"superclass", shape, circle, false},
		{"everything is an object", circle, reg.Object, true},
		{"no numeric promotion", reg.Int, reg.Real, false},
		{"null fits classes", reg.Null, shape, true},
		{"null fits built-ins", reg.Null, reg.String, true},
		{"covariant lists", listOf(circle), listOf(shape), true},
		{"not contravariant", listOf(shape), listOf(circle), false},
		{"lists are objects", listOf(reg.Int), reg.Object, true},
		{"list and map", listOf(reg.Int), reg.Instantiate(reg.Map, reg.Int, reg.Int), false},
		{"empty list", reg.EmptyList, listOf(reg.String), true},
		{"empty list isn't a map", reg.EmptyList, reg.Instantiate(reg.Map, reg.Int, reg.Int), false},
		{"covariant maps", reg.Instantiate(reg.Map, reg.String, circle), reg.Instantiate(reg.Map, reg.String, shape), true},
		{"void", reg.Void, reg.Object, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			be.Equal(t, reg.AssignableTo(test.from, test.to), test.want)
		})
	}
}

func TestSubstitute(t *testing.T) {
	reg := NewRegistry()
	m := reg.Instantiate(reg.Map, reg.String, reg.Real)
	be.Equal(t, reg.Substitute(reg.K, m).String(), "string")
	be.Equal(t, reg.Substitute(reg.V, m).String(), "real")
	be.Equal(t, reg.Substitute(reg.ListOfV, m).String(), "list<real>")
	be.True(t, reg.Substitute(reg.Int, m) == reg.Int)

	l := reg.Instantiate(reg.List, reg.Bool, nil)
	be.Equal(t, reg.Substitute(reg.List, l).String(), "list<bool>")
	be.Equal(t, reg.Substitute(reg.T, l).String(), "bool")
}
