// Package bytecode defines the stack-machine instruction stream produced
// by the code generator. Every value on the operand stack is a reference to
// a boxed runtime object; there are no raw primitives.
package bytecode

import (
	"github.com/pontaoski/talc/types"
)

type Op byte

const (
	NOP Op = iota

	// LABEL marks the position of Label. It executes as a no-op.
	LABEL

	PUSH_NULL
	PUSH_TRUE
	PUSH_FALSE
	// PUSH_INT constructs a fresh integer from the decimal text in Str.
	PUSH_INT
	PUSH_REAL
	PUSH_STRING

	POP
	DUP

	LOAD
	STORE
	LOAD_GLOBAL
	STORE_GLOBAL
	LOAD_BUILTIN
	// GET_FIELD and SET_FIELD act on "this", which is always local 0.
	GET_FIELD
	SET_FIELD

	// INVOKE dispatches method Str on the receiver below Int arguments.
	INVOKE
	// CONCAT builds a new string from the two strings on top of the stack.
	CONCAT

	NEW_LIST
	APPEND
	NEW_MAP
	PUT

	JUMP
	// JUMP_IF_SAME pops two references and jumps if they're the same object.
	JUMP_IF_SAME
	// JUMP_IF_EQUAL pops two values and jumps if they're structurally equal.
	JUMP_IF_EQUAL
	// JUMP_IF_CMP pops two values, three-way compares them, and jumps if
	// the sign satisfies the condition in Int.
	JUMP_IF_CMP

	// CALL calls function Str with Int arguments.
	CALL
	// CALL_METHOD calls method Str of the receiver below Int arguments.
	CALL_METHOD
	CALL_BUILTIN
	NEW
	RETURN
	RETURN_VALUE

	// FAIL aborts with the message on top of the stack.
	FAIL
)

var opNames = map[Op]string{
	NOP:           "NOP",
	LABEL:         "LABEL",
	PUSH_NULL:     "PUSH_NULL",
	PUSH_TRUE:     "PUSH_TRUE",
	PUSH_FALSE:    "PUSH_FALSE",
	PUSH_INT:      "PUSH_INT",
	PUSH_REAL:     "PUSH_REAL",
	PUSH_STRING:   "PUSH_STRING",
	POP:           "POP",
	DUP:           "DUP",
	LOAD:          "LOAD",
	STORE:         "STORE",
	LOAD_GLOBAL:   "LOAD_GLOBAL",
	STORE_GLOBAL:  "STORE_GLOBAL",
	LOAD_BUILTIN:  "LOAD_BUILTIN",
	GET_FIELD:     "GET_FIELD",
	SET_FIELD:     "SET_FIELD",
	INVOKE:        "INVOKE",
	CONCAT:        "CONCAT",
	NEW_LIST:      "NEW_LIST",
	APPEND:        "APPEND",
	NEW_MAP:       "NEW_MAP",
	PUT:           "PUT",
	JUMP:          "JUMP",
	JUMP_IF_SAME:  "JUMP_IF_SAME",
	JUMP_IF_EQUAL: "JUMP_IF_EQUAL",
	JUMP_IF_CMP:   "JUMP_IF_CMP",
	CALL:          "CALL",
	CALL_METHOD:   "CALL_METHOD",
	CALL_BUILTIN:  "CALL_BUILTIN",
	NEW:           "NEW",
	RETURN:        "RETURN",
	RETURN_VALUE:  "RETURN_VALUE",
	FAIL:          "FAIL",
}

func (o Op) String() string {
	return opNames[o]
}

// IsJump reports whether Label holds a branch target.
func (o Op) IsJump() bool {
	switch o {
	case JUMP, JUMP_IF_SAME, JUMP_IF_EQUAL, JUMP_IF_CMP:
		return true
	}
	return false
}

// Cond is the sign test of JUMP_IF_CMP.
type Cond int

const (
	CondLT Cond = iota
	CondLE
	CondGT
	CondGE
)

func (c Cond) String() string {
	return [...]string{"LT", "LE", "GT", "GE"}[c]
}

func (c Cond) Holds(sign int) bool {
	switch c {
	case CondLT:
		return sign < 0
	case CondLE:
		return sign <= 0
	case CondGT:
		return sign > 0
	case CondGE:
		return sign >= 0
	}
	return false
}

type Label int

type Instr struct {
	Op    Op         `json:"op"`
	Str   string     `json:"str,omitempty"`
	Int   int        `json:"int,omitempty"`
	Real  float64    `json:"real,omitempty"`
	Label Label      `json:"label,omitempty"`
	Pos   types.Span `json:"-"`
	Line  int        `json:"line,omitempty"`
}

type Function struct {
	Name   string  `json:"name"`
	Params int     `json:"params"`
	Locals int     `json:"locals"`
	Method bool    `json:"method,omitempty"`
	Code   []Instr `json:"code"`
}

type Class struct {
	Name    string      `json:"name"`
	Super   string      `json:"super,omitempty"`
	Fields  []string    `json:"fields"`
	Init    *Function   `json:"init"`
	Methods []*Function `json:"methods"`
}

func (c *Class) Method(name string) *Function {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Unit is everything generated for one compilation. Main is the single
// entry point.
type Unit struct {
	Name       string      `json:"name"`
	SourceFile string      `json:"source_file"`
	Globals    int         `json:"globals"`
	Main       *Function   `json:"main"`
	Functions  []*Function `json:"functions"`
	Classes    []*Class    `json:"classes"`
}

func (u *Unit) Function(name string) *Function {
	for _, f := range u.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (u *Unit) Class(name string) *Class {
	for _, c := range u.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Labels maps every label in code to the index of its LABEL instruction.
func Labels(code []Instr) map[Label]int {
	ret := make(map[Label]int)
	for i, in := range code {
		if in.Op == LABEL {
			ret[in.Label] = i
		}
	}
	return ret
}

// Count returns how many instructions in code have one of the given ops.
func Count(code []Instr, ops ...Op) int {
	n := 0
	for _, in := range code {
		for _, op := range ops {
			if in.Op == op {
				n++
				break
			}
		}
	}
	return n
}
