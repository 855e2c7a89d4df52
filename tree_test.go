package talc

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/pontaoski/talc/errors"
	"github.com/pontaoski/talc/numeric"
	"github.com/ztrue/tracerr"
	"gopkg.in/yaml.v2"
)

// parse decodes a YAML node list as if it were a document's program.
func parse(t *testing.T, src string) []Node {
	t.Helper()
	doc := TreeDocument{File: "test.talc"}
	be.Err(t, yaml.Unmarshal([]byte(src), &doc.Program), nil)
	nodes, err := doc.Decode()
	be.Err(t, err, nil)
	return nodes
}

func TestDecodeTree(t *testing.T) {
	nodes, err := DecodeTree([]byte(`
file: demo.talc
program:
  - def: xs
    type: "map<string, list<int>>"
    line: 3
  - call: puts
    line: 4
    col: 2
    args:
      - {op: "+", lhs: {int: "123456789012345678901234567890"}, rhs: {int: ff, base: 16}}
      - {real: 1.5}
      - {string: hi}
      - {bool: true}
      - {null: ~}
`))
	be.Err(t, err, nil)
	be.Equal(t, len(nodes), 2)

	def := nodes[0].(*VariableDefinition)
	be.Equal(t, def.Name, "xs")
	be.Equal(t, def.TypeName.String(), "map<string,list<int>>")
	be.Equal(t, def.Span().From.Line, 3)
	be.Equal(t, def.Span().From.Filename, "demo.talc")

	call := nodes[1].(*FunctionCall)
	be.Equal(t, call.String(), `puts(PLUS(123456789012345678901234567890, 255), 1.5, "hi", true, null)`)
	be.Equal(t, call.Span().From.Column, 2)
	// Children without a line of their own take their parent's.
	be.Equal(t, call.Args[1].Span().From.Line, 4)

	sum := call.Args[0].(*BinaryOperator)
	want := numeric.MustParse("123456789012345678901234567890", 10)
	be.True(t, sum.Lhs.(*Constant).Value.(*numeric.Integer).Equal(want))
}

func TestDecodeStatements(t *testing.T) {
	nodes := parse(t, `
- function: count
  params: [{name: "n", type: int}]
  returns: int
  body:
    - for: {def: i, init: {int: 0}}
      cond: {op: "<", lhs: {var: i}, rhs: {var: "n"}}
      update: {op: POST_INCREMENT, lhs: {var: i}}
      body: {continue: ~}
    - return: {var: "n"}
- foreach: [k, {name: v, type: string}]
  in: {map: [[{int: 1}, {string: one}]]}
- do: []
  while: {bool: false}
`)
	be.Equal(t, len(nodes), 3)

	f := nodes[0].(*FunctionDefinition)
	be.Equal(t, f.Signature(), "count(n: int) : int")
	body := f.Body.(*Block)
	loop := body.Statements[0].(*ForStatement)
	_, isContinue := loop.Body.(*ContinueStatement)
	be.True(t, isContinue)

	each := nodes[1].(*ForEachStatement)
	be.Equal(t, len(each.Vars), 2)
	be.Equal(t, each.Vars[1].TypeName.String(), "string")
	be.Equal(t, len(each.Body.(*Block).Statements), 0)

	do := nodes[2].(*DoStatement)
	be.Equal(t, do.String(), "do { } while (false)")
}

func TestDecodeReceivers(t *testing.T) {
	nodes := parse(t, `
- {call: length, receiver: {var: s}}
- {call: join, receiver: {call: reverse, receiver: {var: "n"}}, args: [{string: "-"}]}
`)
	call := nodes[0].(*FunctionCall)
	be.Equal(t, call.Instance.(*VariableName).Name, "s")

	join := nodes[1].(*FunctionCall)
	inner := join.Instance.(*FunctionCall)
	be.Equal(t, inner.Name, "reverse")
	be.Equal(t, inner.Instance.(*VariableName).Name, "n")
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown node", "program: [{frob: 1}]", "unknown node"},
		{"unknown operator", "program: [{op: '<>', lhs: {int: 1}, rhs: {int: 2}}]", `unknown operator "<>"`},
		{"unary with rhs", "program: [{op: NEG, lhs: {int: 1}, rhs: {int: 2}}]", "NEG takes no rhs"},
		{"bad integer", "program: [{int: 12x}]", "12x"},
		{"bad type", "program: [{def: x, type: 'list<int'}]", `bad type "list<int"`},
		{"three loop variables", "program: [{foreach: [a, b, c], in: {list: []}}]", "one or two variables"},
		{"map entry", "program: [{map: [[{int: 1}]]}]", "[key, value] pairs"},
		{"not yaml", "program: [", "bad tree document"},
		{"boolean name", "program: [{var: n}]", "var reads as the boolean false"},
		{"boolean key", "program: [{call: length, on: {var: s}}]", "key true reads as a boolean"},
		{"boolean loop variable", "program: [{foreach: [y], in: {list: []}}]", "loop variable reads as the boolean true"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := DecodeTree([]byte(test.src))
			be.Err(t, err, test.want)
			_, ok := tracerr.Unwrap(err).(errors.DecodeError)
			be.True(t, ok)
		})
	}
}
