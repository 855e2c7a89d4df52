package talc

import (
	"fmt"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/pontaoski/talc/bytecode"
	"github.com/pontaoski/talc/errors"
	"github.com/ztrue/tracerr"
)

func generate(t *testing.T, src string, simplify bool) *bytecode.Unit {
	t.Helper()
	settings := DefaultSettings()
	settings.Simplify = simplify
	res, err := Compile(NewRegistry(), parse(t, src), settings)
	be.Err(t, err, nil)
	return res.Unit
}

func TestGenerateFoldedExpression(t *testing.T) {
	src := "- {call: puts, args: [{op: '+', lhs: {int: 1}, rhs: {op: '*', lhs: {int: 2}, rhs: {int: 3}}}]}"

	unit := generate(t, src, false)
	be.Equal(t, bytecode.Listing(unit.Main.Code), ""+
		"\tPUSH_INT 1\n"+
		"\tPUSH_INT 2\n"+
		"\tPUSH_INT 3\n"+
		"\tINVOKE multiply 1\n"+
		"\tINVOKE add 1\n"+
		"\tCALL_BUILTIN puts 1\n"+
		"\tRETURN\n")

	unit = generate(t, src, true)
	be.Equal(t, bytecode.Listing(unit.Main.Code), ""+
		"\tPUSH_INT 7\n"+
		"\tCALL_BUILTIN puts 1\n"+
		"\tRETURN\n")
}

func TestGenerateComparison(t *testing.T) {
	unit := generate(t, `
- {def: num, init: {int: 1}}
- {def: b, init: {op: "<", lhs: {var: num}, rhs: {int: 2}}}
`, true)
	be.Equal(t, unit.Globals, 2)
	be.Equal(t, bytecode.Listing(unit.Main.Code), ""+
		"\tPUSH_INT 1\n"+
		"\tDUP\n"+
		"\tSTORE_GLOBAL 0\n"+
		"\tPOP\n"+
		"\tLOAD_GLOBAL 0\n"+
		"\tPUSH_INT 2\n"+
		"\tJUMP_IF_CMP LT L1\n"+
		"\tPUSH_FALSE\n"+
		"\tJUMP L2\n"+
		"L1:\n"+
		"\tPUSH_TRUE\n"+
		"L2:\n"+
		"\tDUP\n"+
		"\tSTORE_GLOBAL 1\n"+
		"\tPOP\n"+
		"\tRETURN\n")
}

func TestGenerateFunctionNames(t *testing.T) {
	unit := generate(t, `
- function: f
  returns: int
  body: [{return: {int: 1}}]
- block:
    - function: f
      returns: int
      body: [{return: {int: 2}}]
    - call: puts
      args: [{call: f}]
- class: point
  methods:
    - {function: origin, class_method: true, returns: point, body: [{return: {call: point}}]}
`, true)
	be.Equal(t, len(unit.Functions), 3)
	be.Equal(t, unit.Functions[0].Name, "f")
	be.True(t, strings.HasPrefix(unit.Functions[1].Name, "f#"))
	be.Equal(t, unit.Functions[2].Name, "point.origin")

	be.Equal(t, bytecode.Listing(unit.Functions[0].Code), ""+
		"\tPUSH_INT 1\n"+
		"\tRETURN_VALUE\n"+
		"\tPUSH_NULL\n"+
		"\tRETURN_VALUE\n")

	// The call inside the block goes to the inner f.
	var called []string
	for _, in := range unit.Main.Code {
		if in.Op == bytecode.CALL {
			called = append(called, in.Str)
		}
	}
	be.Equal(t, strings.Join(called, ","), unit.Functions[1].Name)
}

func TestGenerateClasses(t *testing.T) {
	unit := generate(t, `
- class: base
  fields: [{def: a, type: int, init: {int: 1}}]
- class: derived
  extends: base
  fields: [{def: b, type: string}]
  methods:
    - function: get
      returns: int
      body: [{return: {var: a}}]
`, true)
	be.Equal(t, len(unit.Classes), 2)
	be.Equal(t, unit.Class("base").Super, "")
	be.Equal(t, bytecode.Listing(unit.Class("base").Init.Code), ""+
		"\tPUSH_INT 1\n"+
		"\tSET_FIELD a\n"+
		"\tRETURN\n")

	derived := unit.Class("derived")
	be.Equal(t, derived.Super, "base")
	be.Equal(t, strings.Join(derived.Fields, ","), "b")
	be.Equal(t, derived.Init.Name, InitFields)

	get := derived.Method("get")
	be.True(t, get.Method)
	be.Equal(t, get.Locals, 1)
	be.Equal(t, bytecode.Listing(get.Code), ""+
		"\tGET_FIELD a\n"+
		"\tRETURN_VALUE\n"+
		"\tPUSH_NULL\n"+
		"\tRETURN_VALUE\n")

	ctor := derived.Method("derived")
	be.Equal(t, bytecode.Listing(ctor.Code), "\tRETURN\n")
}

func TestGenerateSourceLines(t *testing.T) {
	unit := generate(t, `
- {def: x, init: {int: 1}, line: 1}
- {call: puts, args: [{var: x}], line: 2}
`, true)
	be.Equal(t, unit.SourceFile, "test.talc")
	last := unit.Main.Code[len(unit.Main.Code)-2]
	be.Equal(t, last.Op, bytecode.CALL_BUILTIN)
	be.Equal(t, last.Line, 2)
}

func TestGenerateErrors(t *testing.T) {
	_, err := Compile(NewRegistry(), parse(t, "- {continue: ~}"), nil)
	be.Err(t, err, "continue outside a loop")
	_, ok := tracerr.Unwrap(err).(errors.CodegenError)
	be.True(t, ok)
}

func TestEmitModule(t *testing.T) {
	unit := generate(t, "- {call: puts, args: [{string: hi}]}", true)
	m, err := EmitModule(unit)
	be.Err(t, err, nil)

	data, err := bytecode.Encode(unit)
	be.Err(t, err, nil)
	ir := m.String()
	be.True(t, strings.Contains(ir, "@"+UnitSymbol+" = constant"))
	be.True(t, strings.Contains(ir, "@"+SourceSymbol+" = constant"))
	be.True(t, strings.Contains(ir, "define i64 @"+UnitSizeSymbol+"()"))
	be.True(t, strings.Contains(ir, fmt.Sprintf("ret i64 %d", len(data))))
}
