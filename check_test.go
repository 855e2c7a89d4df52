package talc

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/pontaoski/talc/errors"
	"github.com/ztrue/tracerr"
)

func annotate(t *testing.T, src string) ([]Node, error) {
	t.Helper()
	nodes := parse(t, src)
	st, err := Bind(NewRegistry(), nodes)
	be.Err(t, err, nil)
	return nodes, Annotate(st, nodes, DefaultSettings())
}

func TestAnnotateInfersTypes(t *testing.T) {
	nodes, err := annotate(t, `
- {def: a, init: {list: [{int: 1}, {int: 2}]}}
- {def: b, init: {map: [[{string: k}, {real: 1.5}]]}}
- {def: c, init: {map: []}}
- {def: d, type: "map<string,int>"}
- {def: e, init: {call: keys, receiver: {var: d}}}
- {def: f, init: {call: __get_item__, receiver: {var: a}, args: [{int: 0}]}}
- {def: g, init: {call: list, class: "list<string>"}}
- {def: h, type: "list<string>", init: {call: list}}
- {def: i, init: {op: "+", lhs: {string: x}, rhs: {string: "y"}}}
- {def: j, init: {op: "<", lhs: {real: 1.0}, rhs: {real: 2.0}}}
- {def: k, init: {call: split, receiver: {var: i}, args: [{string: ","}]}}
`)
	be.Err(t, err, nil)

	want := []string{
		"list<int>",
		"map<string,real>",
		"map<object,object>",
		"map<string,int>",
		"list<string>",
		"int",
		"list<string>",
		"list<string>",
		"string",
		"bool",
		"list<string>",
	}
	for i, w := range want {
		v := nodes[i].(*VariableDefinition)
		be.Equal(t, v.Type.String(), w)
	}
}

func TestAnnotateCollections(t *testing.T) {
	nodes, err := annotate(t, `
- class: shape
- class: circle
  extends: shape
- class: square
  extends: shape
- def: shapes
  init: {list: [{call: circle}, {call: square}, {null: ~}]}
- def: lists
  type: "list<list<shape>>"
  init: {list: [{list: [{call: circle}]}, {list: []}]}
- foreach: [s]
  in: {var: shapes}
- foreach: [k, v]
  in: {map: [[{int: 1}, {string: one}]]}
- foreach: [v]
  in: {map: [[{int: 1}, {string: one}]]}
- foreach: [i, ch]
  in: {string: abc}
`)
	be.Err(t, err, nil)
	be.Equal(t, nodes[3].(*VariableDefinition).Type.String(), "list<shape>")

	loopVars := func(n Node) string {
		var s string
		for _, v := range n.(*ForEachStatement).Vars {
			s += v.Type.String() + " "
		}
		return s
	}
	be.Equal(t, loopVars(nodes[5]), "shape ")
	be.Equal(t, loopVars(nodes[6]), "int string ")
	be.Equal(t, loopVars(nodes[7]), "string ")
	be.Equal(t, loopVars(nodes[8]), "int string ")
}

func TestAnnotateResolvesCalls(t *testing.T) {
	nodes, err := annotate(t, `
- call: puts
  args: [{call: twice, args: [{int: 2}]}]
- function: twice
  params: [{name: num, type: int}]
  returns: int
  body: [{return: {op: "*", lhs: {var: num}, rhs: {int: 2}}}]
`)
	be.Err(t, err, nil)
	call := nodes[0].(*FunctionCall)
	inner := call.Args[0].(*FunctionCall)
	be.Equal(t, inner.Target, nodes[1].(*FunctionDefinition).ID)
	be.Equal(t, inner.Type.String(), "int")
	be.Equal(t, call.Type.String(), "void")
}

func TestAnnotateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"null initializer", "- {def: x, init: {null: ~}}", "a type that can be inferred"},
		{"empty list initializer", "- {def: x, init: {list: []}}", "a type that can be inferred"},
		{"void variable", "- {def: x, type: void}", "a non-void type"},
		{"void initializer", "- {def: x, init: {call: puts}}", "a type that can be inferred"},
		{"condition", "- {while: {int: 1}}", `"while" condition has type int, expected bool`},
		{"mixed arithmetic", "- {op: '+', lhs: {int: 1}, rhs: {real: 1.0}}", "operands of the same type"},
		{"string arithmetic", "- {op: '*', lhs: {string: a}, rhs: {string: b}}", "int or real"},
		{"bitwise on reals", "- {op: '&', lhs: {real: 1.0}, rhs: {real: 1.0}}", "operand to & has type real, expected int"},
		{"logic on ints", "- {op: '!', lhs: {int: 1}}", "operand to ! has type int, expected bool"},
		{"assign to literal", "- {op: '=', lhs: {int: 1}, rhs: {int: 2}}", "expected a variable"},
		{"assign to constant", "- {op: '=', lhs: {var: ARGV0}, rhs: {string: x}}", `constant "ARGV0"`},
		{"assign wrong type", "- {def: x, type: int}\n- {op: '=', lhs: {var: x}, rhs: {string: s}}", `value assigned to "x" has type string`},
		{"increment a string", "- {def: s, type: string}\n- {op: PRE_INCREMENT, lhs: {var: s}}", "int or real"},
		{"list invariance of elements", "- {def: xs, type: 'list<int>', init: {list: [{string: a}]}}", "has type list<string>, expected list<int>"},
		{"argument type", "- {call: getenv, args: [{int: 1}]}", `argument 0 to global function "getenv" has type int, expected string`},
		{"method on int", "- {call: nope, receiver: {int: 1}}", `no method of int named "nope"`},
		{"class method", "- {call: nope, class: string}", `no class method of string named "nope"`},
		{"unknown class", "- {call: nope, class: widget}", "class of nope, widget"},
		{"constructor on instance", "- {call: file, receiver: {string: x}, args: [{string: "y"}]}", `no method of string named "file"`},
		{"void return value", "- {function: f, body: [{return: {int: 1}}]}", "return expression has type int, expected void"},
		{"missing return value", "- {function: f, returns: int, body: [{return: ~}]}", "return expression has type void, expected int"},
		{"foreach over int", "- {foreach: [x], in: {int: 1}}", "for-each expression has type int"},
		{"loop variable type", "- {foreach: [{name: x, type: string}], in: {list: [{int: 1}]}}", `loop variable "x" has type int, expected string`},
		{"assert message", "- {assert: {bool: true}, message: {int: 1}}", "assertion explanation has type int"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := annotate(t, test.src)
			be.Err(t, err, test.want)
		})
	}
}

func TestAnnotateErrorKinds(t *testing.T) {
	_, err := annotate(t, "- {def: x, type: int, init: {bool: true}, line: 7}")
	mismatch, ok := tracerr.Unwrap(err).(errors.TypeMismatch)
	be.True(t, ok)
	be.Equal(t, mismatch.Got, "bool")
	be.Equal(t, mismatch.Expected, "int")
	be.Equal(t, mismatch.Location.From.Line, 7)

	_, err = annotate(t, "- {call: nope}")
	_, ok = tracerr.Unwrap(err).(errors.ResolutionError)
	be.True(t, ok)
}
