package talc

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/pontaoski/talc/errors"
	"github.com/ztrue/tracerr"
)

func simplify(t *testing.T, src string) []Node {
	t.Helper()
	out, err := Simplify(NewRegistry(), parse(t, src))
	be.Err(t, err, nil)
	return out
}

func TestSimplifyFolds(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`{op: "+", lhs: {string: ab}, rhs: {string: cd}}`, `"abcd"`},
		{`{op: "*", lhs: {int: 3}, rhs: {int: 4}}`, "12"},
		{`{op: "-", lhs: {int: 5}, rhs: {int: 5}}`, "0"},
		{`{op: "**", lhs: {int: 2}, rhs: {int: 100}}`, "1267650600228229401496703205376"},
		{`{op: "%", lhs: {int: -7}, rhs: {int: 2}}`, "-1"},
		{`{op: "~", lhs: {int: 0}}`, "-1"},
		{`{op: "<", lhs: {int: 1}, rhs: {int: 2}}`, "true"},
		{`{op: "!=", lhs: {int: 1}, rhs: {int: 1}}`, "false"},
		{`{op: "+", lhs: {int: 0}, rhs: {var: x}}`, "x"},
		{`{op: "*", lhs: {var: x}, rhs: {int: 0}}`, "0"},
		{`{op: "*", lhs: {int: 1}, rhs: {var: x}}`, "x"},
		{`{op: "/", lhs: {var: x}, rhs: {int: 1}}`, "x"},
		{`{op: "-", lhs: {int: 0}, rhs: {var: x}}`, "NEG(x)"},
		{`{op: "<<", lhs: {var: x}, rhs: {int: 0}}`, "x"},
		{`{op: "+", lhs: {op: "*", lhs: {int: 2}, rhs: {int: 3}}, rhs: {var: x}}`, "PLUS(6, x)"},
		{`{op: "+", lhs: {real: 1.5}, rhs: {real: 2.5}}`, "PLUS(1.5, 2.5)"},
		{`{op: "+", lhs: {string: a}, rhs: {var: x}}`, `PLUS("a", x)`},
	}
	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			out := simplify(t, "- "+test.src)
			be.Equal(t, out[0].String(), test.want)
		})
	}
}

func TestSimplifyIdentitiesReturnTheOperand(t *testing.T) {
	tests := []struct {
		name string
		src  string
		pick func(b *BinaryOperator) Node
	}{
		{"0+x", `{op: "+", lhs: {int: 0}, rhs: {var: x}}`, func(b *BinaryOperator) Node { return b.Rhs }},
		{"x+0", `{op: "+", lhs: {var: x}, rhs: {int: 0}}`, func(b *BinaryOperator) Node { return b.Lhs }},
		{"x-0", `{op: "-", lhs: {var: x}, rhs: {int: 0}}`, func(b *BinaryOperator) Node { return b.Lhs }},
		{"1*x", `{op: "*", lhs: {int: 1}, rhs: {var: x}}`, func(b *BinaryOperator) Node { return b.Rhs }},
		{"x*1", `{op: "*", lhs: {var: x}, rhs: {int: 1}}`, func(b *BinaryOperator) Node { return b.Lhs }},
		{"x/1", `{op: "/", lhs: {var: x}, rhs: {int: 1}}`, func(b *BinaryOperator) Node { return b.Lhs }},
		{"x<<0", `{op: "<<", lhs: {var: x}, rhs: {int: 0}}`, func(b *BinaryOperator) Node { return b.Lhs }},
		{"x>>0", `{op: ">>", lhs: {var: x}, rhs: {int: 0}}`, func(b *BinaryOperator) Node { return b.Lhs }},
		{"nested", `{op: "+", lhs: {int: 0}, rhs: {op: "*", lhs: {var: x}, rhs: {int: 1}}}`, func(b *BinaryOperator) Node {
			return b.Rhs.(*BinaryOperator).Lhs
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			nodes := parse(t, "- "+test.src)
			out, err := Simplify(NewRegistry(), nodes)
			be.Err(t, err, nil)
			be.True(t, out[0] == test.pick(nodes[0].(*BinaryOperator)))
		})
	}
}

func TestSimplifyKeepsUnchangedNodes(t *testing.T) {
	nodes := parse(t, `
- def: x
  init: {op: "+", lhs: {var: w}, rhs: {int: 1}}
- while: {var: b}
  body:
    - call: puts
      args: [{var: x}]
    - break: ~
`)
	out, err := Simplify(NewRegistry(), nodes)
	be.Err(t, err, nil)
	be.True(t, out[0] == nodes[0])
	be.True(t, out[1] == nodes[1])
}

func TestSimplifyIsIdempotent(t *testing.T) {
	nodes := parse(t, `
- def: x
  init: {op: "*", lhs: {int: 1}, rhs: {op: "+", lhs: {int: 2}, rhs: {int: 3}}}
- if:
    - cond: {op: ">", lhs: {var: x}, rhs: {op: "-", lhs: {int: 0}, rhs: {var: x}}}
      then: [{call: puts, args: [{op: "+", lhs: {string: a}, rhs: {string: b}}]}]
  else: []
- block: [{block: []}]
- for: {def: i, init: {int: 0}}
  cond: {op: "<", lhs: {var: i}, rhs: {op: "**", lhs: {int: 2}, rhs: {int: 3}}}
  body:
    - def: j
      init: {op: "<<", lhs: {var: i}, rhs: {int: 0}}
`)
	before := join(nodes, "\n")

	reg := NewRegistry()
	once, err := Simplify(reg, nodes)
	be.Err(t, err, nil)
	twice, err := Simplify(reg, once)
	be.Err(t, err, nil)

	be.Equal(t, len(twice), len(once))
	for i := range once {
		be.True(t, once[i] == twice[i])
	}
	be.Equal(t, join(once, "\n"), "x: <to-be-inferred> = 5\n"+
		"if (GT(x, NEG(x))) puts(\"ab\")\n"+
		"{ }\n"+
		"for (i: <to-be-inferred> = 0; LT(i, 8); ) { j: <to-be-inferred> = i; }")
	// The input tree isn't modified.
	be.Equal(t, join(nodes, "\n"), before)
}

func TestSimplifyCanonicalizesEmptyBlocks(t *testing.T) {
	out := simplify(t, `
- block: []
- while: {var: b}
  body: []
- block: [{def: w, init: {int: 1}}]
`)
	be.True(t, out[0] == Node(EmptyBlock))
	be.True(t, out[1].(*WhileStatement).Body == Node(EmptyBlock))
	// A block holding only a definition keeps its scope.
	_, ok := out[2].(*Block)
	be.True(t, ok)
}

func TestSimplifyErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`{op: "/", lhs: {int: 1}, rhs: {int: 0}}`, "division by zero"},
		{`{op: "%", lhs: {int: 1}, rhs: {int: 0}}`, "division by zero"},
		{`{op: FACTORIAL, lhs: {op: "-", lhs: {int: 1}, rhs: {int: 2}}}`, "non-negative"},
		{`{op: "**", lhs: {int: 2}, rhs: {int: -1}}`, "negative exponent"},
	}
	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			_, err := Simplify(NewRegistry(), parse(t, "- "+test.src))
			be.Err(t, err, test.want)
			argErr, ok := tracerr.Unwrap(err).(errors.ArgumentError)
			be.True(t, ok)
			be.Equal(t, argErr.Location.From.Filename, "test.talc")
		})
	}
}
