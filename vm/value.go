package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pontaoski/talc/numeric"
)

// Value is anything that lives on the operand stack: nil for null,
// *numeric.Integer, Real, Bool, String, *List, *Map, *File, *Match or
// *Object.
type Value interface{}

type Real float64

type Bool bool

type String string

const (
	True  = Bool(true)
	False = Bool(false)
)

type List struct {
	Elems []Value
}

func NewList(elems ...Value) *List {
	return &List{Elems: elems}
}

type entry struct {
	key, value Value
}

// Map keeps its entries in insertion order.
type Map struct {
	entries []entry
	index   map[interface{}]int
}

func NewMap() *Map {
	return &Map{index: make(map[interface{}]int)}
}

// hashKey returns a comparable stand-in for v that equal values share.
func hashKey(v Value) interface{} {
	switch v := v.(type) {
	case *numeric.Integer:
		return struct{ i string }{v.String()}
	}
	return v
}

func (m *Map) Len() int { return len(m.entries) }

func (m *Map) Get(k Value) (Value, bool) {
	i, ok := m.index[hashKey(k)]
	if !ok {
		return nil, false
	}
	return m.entries[i].value, true
}

func (m *Map) Put(k, v Value) {
	h := hashKey(k)
	if i, ok := m.index[h]; ok {
		m.entries[i].value = v
		return
	}
	m.index[h] = len(m.entries)
	m.entries = append(m.entries, entry{k, v})
}

func (m *Map) Remove(k Value) {
	h := hashKey(k)
	i, ok := m.index[h]
	if !ok {
		return
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, h)
	for j := i; j < len(m.entries); j++ {
		m.index[hashKey(m.entries[j].key)] = j
	}
}

func (m *Map) Clear() {
	m.entries = nil
	m.index = make(map[interface{}]int)
}

func (m *Map) Keys() *List {
	l := &List{}
	for _, e := range m.entries {
		l.Elems = append(l.Elems, e.key)
	}
	return l
}

func (m *Map) Values() *List {
	l := &List{}
	for _, e := range m.entries {
		l.Elems = append(l.Elems, e.value)
	}
	return l
}

type File struct {
	Path string
}

type Match struct {
	Groups []string
}

type Object struct {
	Class  *Class
	Fields map[string]Value
}

// Equal is structural equality: numbers and strings by value, lists and
// maps element by element, objects by identity.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case *numeric.Integer:
		bi, ok := b.(*numeric.Integer)
		return ok && a.Equal(bi)
	case *List:
		bl, ok := b.(*List)
		if !ok || len(a.Elems) != len(bl.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], bl.Elems[i]) {
				return false
			}
		}
		return true
	case *Map:
		bm, ok := b.(*Map)
		if !ok || a.Len() != bm.Len() {
			return false
		}
		for _, e := range a.entries {
			v, ok := bm.Get(e.key)
			if !ok || !Equal(e.value, v) {
				return false
			}
		}
		return true
	case *File:
		bf, ok := b.(*File)
		return ok && a.Path == bf.Path
	}
	return a == b
}

func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Real:
		return float64(v), true
	case *numeric.Integer:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// Compare three-way compares two numbers or two strings.
func Compare(a, b Value) (int, error) {
	if ai, ok := a.(*numeric.Integer); ok {
		if bi, ok := b.(*numeric.Integer); ok {
			return ai.Cmp(bi), nil
		}
	}
	if as, ok := a.(String); ok {
		if bs, ok := b.(String); ok {
			return strings.Compare(string(as), string(bs)), nil
		}
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0, fmt.Errorf("can't compare %s with %s", TypeName(a), TypeName(b))
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	}
	return 0, nil
}

func TypeName(v Value) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case *numeric.Integer:
		return "int"
	case Real:
		return "real"
	case Bool:
		return "bool"
	case String:
		return "string"
	case *List:
		return "list"
	case *Map:
		return "map"
	case *File:
		return "file"
	case *Match:
		return "match"
	case *Object:
		return v.Class.Name
	}
	return fmt.Sprintf("%T", v)
}

func formatReal(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// ToString renders v the way print does.
func ToString(v Value) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case *numeric.Integer:
		return v.String()
	case Real:
		return formatReal(float64(v))
	case Bool:
		return strconv.FormatBool(bool(v))
	case String:
		return string(v)
	case *List:
		return "[" + join(v, ", ") + "]"
	case *Map:
		var parts []string
		for _, e := range v.entries {
			parts = append(parts, ToString(e.key)+"="+ToString(e.value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *File:
		return v.Path
	case *Match:
		if len(v.Groups) == 0 {
			return ""
		}
		return v.Groups[0]
	case *Object:
		var parts []string
		for c := v.Class; c != nil; c = c.Super {
			for _, f := range c.Fields {
				parts = append(parts, f+"="+ToString(v.Fields[f]))
			}
		}
		return v.Class.Name + "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

func join(l *List, sep string) string {
	parts := make([]string, len(l.Elems))
	for i, e := range l.Elems {
		parts[i] = ToString(e)
	}
	return strings.Join(parts, sep)
}
