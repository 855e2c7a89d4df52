package bytecode

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func sample() *Unit {
	return &Unit{
		Name:       "main",
		SourceFile: "sample.talc",
		Globals:    1,
		Main: &Function{
			Name:   "main",
			Locals: 0,
			Code: []Instr{
				{Op: PUSH_INT, Str: "7"},
				{Op: STORE_GLOBAL, Int: 0},
				{Op: LOAD_GLOBAL, Int: 0},
				{Op: PUSH_INT, Str: "5"},
				{Op: JUMP_IF_CMP, Int: int(CondGT), Label: 1},
				{Op: PUSH_STRING, Str: "small"},
				{Op: CALL_BUILTIN, Str: "puts", Int: 1},
				{Op: LABEL, Label: 1},
				{Op: RETURN},
			},
		},
		Functions: []*Function{
			{Name: "half", Params: 1, Locals: 1, Code: []Instr{
				{Op: LOAD, Int: 0},
				{Op: PUSH_INT, Str: "2"},
				{Op: INVOKE, Str: "divide", Int: 1},
				{Op: RETURN_VALUE},
			}},
		},
		Classes: []*Class{
			{Name: "point", Fields: []string{"x", "y"}, Init: &Function{Name: "__init_fields__", Method: true, Locals: 1, Code: []Instr{{Op: RETURN}}}},
		},
	}
}

func TestInstrString(t *testing.T) {
	tests := []struct {
		in   Instr
		want string
	}{
		{Instr{Op: PUSH_INT, Str: "12"}, "PUSH_INT 12"},
		{Instr{Op: PUSH_STRING, Str: "a\"b"}, `PUSH_STRING "a\"b"`},
		{Instr{Op: PUSH_REAL, Real: 1.5}, "PUSH_REAL 1.5"},
		{Instr{Op: LOAD, Int: 3}, "LOAD 3"},
		{Instr{Op: INVOKE, Str: "add", Int: 1}, "INVOKE add 1"},
		{Instr{Op: LABEL, Label: 4}, "L4:"},
		{Instr{Op: JUMP, Label: 4}, "JUMP L4"},
		{Instr{Op: JUMP_IF_CMP, Int: int(CondLE), Label: 2}, "JUMP_IF_CMP LE L2"},
		{Instr{Op: POP}, "POP"},
	}
	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			be.Equal(t, test.in.String(), test.want)
		})
	}
}

func TestCondHolds(t *testing.T) {
	be.True(t, CondLT.Holds(-1))
	be.True(t, !CondLT.Holds(0))
	be.True(t, CondLE.Holds(0))
	be.True(t, CondGT.Holds(1))
	be.True(t, !CondGE.Holds(-1))
}

func TestLabelsAndCount(t *testing.T) {
	u := sample()
	labels := Labels(u.Main.Code)
	be.Equal(t, labels[1], 7)
	be.Equal(t, Count(u.Main.Code, PUSH_INT), 2)
	be.Equal(t, Count(u.Main.Code, LOAD_GLOBAL, STORE_GLOBAL), 2)
	be.True(t, JUMP_IF_CMP.IsJump())
	be.True(t, !LABEL.IsJump())
}

func TestDisassemble(t *testing.T) {
	text := sample().Disassemble()
	be.True(t, strings.HasPrefix(text, "unit main (sample.talc) globals 1\n"))
	be.True(t, strings.Contains(text, "function main(0) locals 0\n\tPUSH_INT 7\n"))
	be.True(t, strings.Contains(text, "L1:\n\tRETURN\n"))
	be.True(t, strings.Contains(text, "function half(1) locals 1\n"))
	be.True(t, strings.Contains(text, "class point fields [x, y]\nmethod __init_fields__(0) locals 1\n"))
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(sample())
	be.Err(t, err, nil)

	u, err := Decode(data)
	be.Err(t, err, nil)
	be.Equal(t, u.Disassemble(), sample().Disassemble())
	be.True(t, u.Function("half") != nil)
	be.True(t, u.Class("point") != nil)
	be.True(t, u.Function("missing") == nil)

	_, err = Decode([]byte(`{"name":"x"}`))
	be.Err(t, err, "no entry point")
}
