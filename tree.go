package talc

import (
	"fmt"
	"strconv"

	"github.com/pontaoski/talc/errors"
	"github.com/pontaoski/talc/numeric"
	"github.com/pontaoski/talc/types"
	"gopkg.in/yaml.v2"
)

// TreeDocument is the YAML form parsers hand programs over in. Every entry
// of Program is a node map; see DecodeTree.
type TreeDocument struct {
	File    string        `yaml:"file"`
	Program []interface{} `yaml:"program"`
}

// DecodeTree reads a tree document. A node is a map whose leading key
// names its kind:
//
//	{int: 42}  {int: "123456789012345678901234567890"}  {int: ff, base: 16}
//	{real: 1.5}  {string: hi}  {bool: true}  {null: ~}
//	{var: x}
//	{op: "+", lhs: ..., rhs: ...}
//	{def: x, type: "list<int>", init: ..., final: true}
//	{function: f, params: [{name: a, type: int}], returns: int, body: [...]}
//	{call: f, receiver: ..., class: list, args: [...]}
//	{class: point, extends: shape, fields: [...], methods: [...]}
//	{block: [...]}
//	{if: [{cond: ..., then: [...]}], else: [...]}
//	{while: ..., body: [...]}  {do: [...], while: ...}
//	{for: ..., cond: ..., update: ..., body: [...]}
//	{foreach: [k, v], in: ..., body: [...]}
//	{return: ...}  {break: ~}  {continue: ~}
//	{assert: ..., message: ...}
//	{list: [...]}  {map: [[k, v], ...]}
//
// Any node may carry line and col. Nodes without a line take their
// parent's. Names that YAML reads as booleans (y, n, on, off, yes, no)
// must be quoted.
func DecodeTree(data []byte) (nodes []Node, err error) {
	var doc TreeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.DecodeError{Msg: err.Error()}
	}
	return doc.Decode()
}

func (doc *TreeDocument) Decode() (nodes []Node, err error) {
	defer catch(&err)

	d := decoder{file: doc.File}
	for _, raw := range doc.Program {
		nodes = append(nodes, d.node(raw, 1))
	}
	return nodes, nil
}

type decoder struct {
	file string
}

type nodeMap struct {
	fields map[string]interface{}
	span   types.Span
}

func (m nodeMap) has(key string) bool {
	_, ok := m.fields[key]
	return ok
}

func (d *decoder) fail(span types.Span, msg string, fmts ...interface{}) {
	panic(errors.DecodeError{Msg: fmt.Sprintf(msg, fmts...), Location: span})
}

func (d *decoder) toMap(raw interface{}, line int) nodeMap {
	span := types.LineSpan(d.file, line)
	in, ok := raw.(map[interface{}]interface{})
	if !ok {
		d.fail(span, "expected a node, got %v", raw)
	}
	m := nodeMap{fields: make(map[string]interface{}, len(in))}
	for k, v := range in {
		// A plain null key decodes as nil.
		if k == nil {
			k = "null"
		}
		if b, ok := k.(bool); ok {
			d.fail(span, "key %v reads as a boolean; quote it", b)
		}
		m.fields[fmt.Sprint(k)] = v
	}
	col := 0
	if l, ok := m.fields["line"].(int); ok {
		line = l
	}
	if c, ok := m.fields["col"].(int); ok {
		col = c
	}
	m.span = types.SingleCharSpan(types.Position{Line: line, Column: col, Filename: d.file})
	return m
}

func (d *decoder) str(m nodeMap, key string) string {
	v, ok := m.fields[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case bool:
		d.fail(m.span, "%s reads as the boolean %v; quote it", key, s)
	case int, int64, uint64, float64:
		return fmt.Sprint(s)
	}
	d.fail(m.span, "%s should be a string, got %v", key, v)
	return ""
}

func (d *decoder) flag(m nodeMap, key string) bool {
	v, ok := m.fields[key]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		d.fail(m.span, "%s should be true or false, got %v", key, v)
	}
	return b
}

func (d *decoder) list(m nodeMap, key string) []interface{} {
	v, ok := m.fields[key]
	if !ok || v == nil {
		return nil
	}
	l, ok := v.([]interface{})
	if !ok {
		d.fail(m.span, "%s should be a list, got %v", key, v)
	}
	return l
}

func (d *decoder) typeName(m nodeMap, key string) *TypeName {
	s := d.str(m, key)
	if s == "" {
		return nil
	}
	tn, err := ParseTypeName(s)
	if err != nil {
		d.fail(m.span, "%s", err)
	}
	return tn
}

func (d *decoder) child(m nodeMap, key string) Node {
	v, ok := m.fields[key]
	if !ok || v == nil {
		return nil
	}
	return d.node(v, m.span.From.Line)
}

func (d *decoder) required(m nodeMap, key string) Node {
	n := d.child(m, key)
	if n == nil {
		d.fail(m.span, "missing %s", key)
	}
	return n
}

func (d *decoder) nodes(raw []interface{}, line int) []Node {
	var ret []Node
	for _, r := range raw {
		ret = append(ret, d.node(r, line))
	}
	return ret
}

// body accepts a list of statements or a single node.
func (d *decoder) body(m nodeMap, key string) Node {
	v, ok := m.fields[key]
	if !ok || v == nil {
		b := &Block{}
		b.Pos = m.span
		return b
	}
	if l, ok := v.([]interface{}); ok {
		b := &Block{Statements: d.nodes(l, m.span.From.Line)}
		b.Pos = m.span
		return b
	}
	return d.node(v, m.span.From.Line)
}

func (d *decoder) node(raw interface{}, line int) Node {
	m := d.toMap(raw, line)
	n := d.decode(m)
	meta := n.(interface{ setPos(types.Span) })
	meta.setPos(m.span)
	return n
}

func (d *decoder) integer(m nodeMap) *numeric.Integer {
	base := 10
	if m.has("base") {
		b, ok := m.fields["base"].(int)
		if !ok {
			d.fail(m.span, "base should be an integer")
		}
		base = b
	}
	var digits string
	switch v := m.fields["int"].(type) {
	case int:
		if base == 10 {
			return numeric.New(int64(v))
		}
		digits = strconv.Itoa(v)
	case int64:
		return numeric.New(v)
	case uint64:
		digits = strconv.FormatUint(v, 10)
	case string:
		digits = v
	default:
		d.fail(m.span, "bad integer %v", v)
	}
	i, err := numeric.Parse(digits, base)
	if err != nil {
		d.fail(m.span, "%s", err)
	}
	return i
}

func (d *decoder) variable(m nodeMap) *VariableDefinition {
	v := &VariableDefinition{
		Name:     d.str(m, "def"),
		TypeName: d.typeName(m, "type"),
		Init:     d.child(m, "init"),
		Final:    d.flag(m, "final"),
	}
	v.Pos = m.span
	return v
}

func (d *decoder) function(m nodeMap) *FunctionDefinition {
	f := &FunctionDefinition{
		Name:           d.str(m, "function"),
		ReturnTypeName: d.typeName(m, "returns"),
		ClassMethod:    d.flag(m, "class_method"),
	}
	f.Pos = m.span
	for _, raw := range d.list(m, "params") {
		p := d.toMap(raw, m.span.From.Line)
		name := d.str(p, "name")
		tn := d.typeName(p, "type")
		if name == "" || tn == nil {
			d.fail(p.span, "parameters need a name and a type")
		}
		f.ParamNames = append(f.ParamNames, name)
		f.ParamTypeNames = append(f.ParamTypeNames, tn)
	}
	f.Body = d.body(m, "body")
	return f
}

func (d *decoder) decode(m nodeMap) Node {
	switch {
	case m.has("int"):
		return &Constant{Value: d.integer(m)}
	case m.has("real"):
		switch v := m.fields["real"].(type) {
		case float64:
			return &Constant{Value: v}
		case int:
			return &Constant{Value: float64(v)}
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				d.fail(m.span, "bad real %q", v)
			}
			return &Constant{Value: f}
		}
		d.fail(m.span, "bad real %v", m.fields["real"])
	case m.has("string"):
		return &Constant{Value: d.str(m, "string")}
	case m.has("bool"):
		return &Constant{Value: d.flag(m, "bool")}
	case m.has("null"):
		return &Constant{}
	case m.has("var"):
		return &VariableName{Name: d.str(m, "var")}
	case m.has("field"):
		return &VariableName{Name: d.str(m, "field"), FieldAccess: true}
	case m.has("op"):
		op, ok := types.ParseOp(d.str(m, "op"))
		if !ok {
			d.fail(m.span, "unknown operator %q", d.str(m, "op"))
		}
		b := &BinaryOperator{Op: op, Lhs: d.required(m, "lhs"), Rhs: d.child(m, "rhs")}
		if !op.IsUnary() && b.Rhs == nil {
			d.fail(m.span, "%s needs a rhs", op)
		}
		if op.IsUnary() && b.Rhs != nil {
			d.fail(m.span, "%s takes no rhs", op)
		}
		return b
	case m.has("def"):
		return d.variable(m)
	case m.has("function"):
		return d.function(m)
	case m.has("call"):
		call := &FunctionCall{
			Name:     d.str(m, "call"),
			Instance: d.child(m, "receiver"),
			Class:    d.typeName(m, "class"),
			Args:     d.nodes(d.list(m, "args"), m.span.From.Line),
		}
		return call
	case m.has("class"):
		c := &ClassDefinition{Name: d.str(m, "class"), Super: d.str(m, "extends")}
		for _, raw := range d.list(m, "fields") {
			f, ok := d.node(raw, m.span.From.Line).(*VariableDefinition)
			if !ok {
				d.fail(m.span, "fields of %s must be definitions", c.Name)
			}
			c.Fields = append(c.Fields, f)
		}
		for _, raw := range d.list(m, "methods") {
			f, ok := d.node(raw, m.span.From.Line).(*FunctionDefinition)
			if !ok {
				d.fail(m.span, "methods of %s must be functions", c.Name)
			}
			c.Methods = append(c.Methods, f)
		}
		return c
	case m.has("block"):
		return &Block{Statements: d.nodes(d.list(m, "block"), m.span.From.Line)}
	case m.has("if"):
		s := &IfStatement{}
		for _, raw := range d.list(m, "if") {
			branch := d.toMap(raw, m.span.From.Line)
			s.Conds = append(s.Conds, d.required(branch, "cond"))
			s.Bodies = append(s.Bodies, d.body(branch, "then"))
		}
		if len(s.Conds) == 0 {
			d.fail(m.span, "if needs at least one branch")
		}
		s.Else = d.body(m, "else")
		return s
	case m.has("do"):
		return &DoStatement{Body: d.body(m, "do"), Cond: d.required(m, "while")}
	case m.has("while"):
		return &WhileStatement{Cond: d.required(m, "while"), Body: d.body(m, "body")}
	case m.has("foreach"):
		s := &ForEachStatement{Expr: d.required(m, "in")}
		for _, raw := range d.list(m, "foreach") {
			v := &VariableDefinition{}
			v.Pos = m.span
			switch r := raw.(type) {
			case string:
				v.Name = r
			case bool:
				d.fail(m.span, "loop variable reads as the boolean %v; quote it", r)
			default:
				vm := d.toMap(r, m.span.From.Line)
				v.Name = d.str(vm, "name")
				v.TypeName = d.typeName(vm, "type")
				v.Pos = vm.span
			}
			s.Vars = append(s.Vars, v)
		}
		if len(s.Vars) == 0 || len(s.Vars) > 2 {
			d.fail(m.span, "foreach binds one or two variables")
		}
		s.Body = d.body(m, "body")
		return s
	case m.has("for"):
		return &ForStatement{
			Init:   d.child(m, "for"),
			Cond:   d.child(m, "cond"),
			Update: d.child(m, "update"),
			Body:   d.body(m, "body"),
		}
	case m.has("return"):
		return &ReturnStatement{Expr: d.child(m, "return")}
	case m.has("break"):
		return &BreakStatement{}
	case m.has("continue"):
		return &ContinueStatement{}
	case m.has("assert"):
		return &AssertStatement{Test: d.required(m, "assert"), Explanation: d.child(m, "message")}
	case m.has("list"):
		return &ListLiteral{Elems: d.nodes(d.list(m, "list"), m.span.From.Line)}
	case m.has("map"):
		lit := &MapLiteral{}
		for _, raw := range d.list(m, "map") {
			pair, ok := raw.([]interface{})
			if !ok || len(pair) != 2 {
				d.fail(m.span, "map entries are [key, value] pairs")
			}
			lit.Keys = append(lit.Keys, d.node(pair[0], m.span.From.Line))
			lit.Values = append(lit.Values, d.node(pair[1], m.span.From.Line))
		}
		return lit
	}
	d.fail(m.span, "unknown node %v", m.fields)
	return nil
}
