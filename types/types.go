package types

import (
	"fmt"
)

type Position struct {
	Line     int
	Column   int
	Filename string
}

type Span struct {
	From Position
	To   Position
}

// Op tags a BinaryOperator node. Unary, prefix, postfix and assignment
// forms share the same node variant and are distinguished only by Op.
type Op int

const (
	ILLEGAL Op = iota

	PLUS
	SUB
	MUL
	POW
	DIV
	MOD

	SHL
	SHR

	B_AND
	B_NOT
	B_OR
	B_XOR

	L_NOT
	L_AND
	L_OR

	FACTORIAL
	NEG

	POST_DECREMENT
	POST_INCREMENT
	PRE_DECREMENT
	PRE_INCREMENT

	EQ
	NE
	LE
	GE
	GT
	LT

	ASSIGN
	PLUS_ASSIGN
	SUB_ASSIGN
	MUL_ASSIGN
	POW_ASSIGN
	DIV_ASSIGN
	MOD_ASSIGN
	SHL_ASSIGN
	SHR_ASSIGN
	AND_ASSIGN
	OR_ASSIGN
	XOR_ASSIGN
)

var opNames = map[Op]string{
	ILLEGAL:        "ILLEGAL",
	PLUS:           "PLUS",
	SUB:            "SUB",
	MUL:            "MUL",
	POW:            "POW",
	DIV:            "DIV",
	MOD:            "MOD",
	SHL:            "SHL",
	SHR:            "SHR",
	B_AND:          "B_AND",
	B_NOT:          "B_NOT",
	B_OR:           "B_OR",
	B_XOR:          "B_XOR",
	L_NOT:          "L_NOT",
	L_AND:          "L_AND",
	L_OR:           "L_OR",
	FACTORIAL:      "FACTORIAL",
	NEG:            "NEG",
	POST_DECREMENT: "POST_DECREMENT",
	POST_INCREMENT: "POST_INCREMENT",
	PRE_DECREMENT:  "PRE_DECREMENT",
	PRE_INCREMENT:  "PRE_INCREMENT",
	EQ:             "EQ",
	NE:             "NE",
	LE:             "LE",
	GE:             "GE",
	GT:             "GT",
	LT:             "LT",
	ASSIGN:         "ASSIGN",
	PLUS_ASSIGN:    "PLUS_ASSIGN",
	SUB_ASSIGN:     "SUB_ASSIGN",
	MUL_ASSIGN:     "MUL_ASSIGN",
	POW_ASSIGN:     "POW_ASSIGN",
	DIV_ASSIGN:     "DIV_ASSIGN",
	MOD_ASSIGN:     "MOD_ASSIGN",
	SHL_ASSIGN:     "SHL_ASSIGN",
	SHR_ASSIGN:     "SHR_ASSIGN",
	AND_ASSIGN:     "AND_ASSIGN",
	OR_ASSIGN:      "OR_ASSIGN",
	XOR_ASSIGN:     "XOR_ASSIGN",
}

// symbols holds the source spelling of every operator that has an
// unambiguous one. NEG, FACTORIAL and the increment forms are spelled by
// name only.
var symbols = map[Op]string{
	PLUS:        "+",
	SUB:         "-",
	MUL:         "*",
	POW:         "**",
	DIV:         "/",
	MOD:         "%",
	SHL:         "<<",
	SHR:         ">>",
	B_AND:       "&",
	B_NOT:       "~",
	B_OR:        "|",
	B_XOR:       "^",
	L_NOT:       "!",
	L_AND:       "&&",
	L_OR:        "||",
	EQ:          "==",
	NE:          "!=",
	LE:          "<=",
	GE:          ">=",
	GT:          ">",
	LT:          "<",
	ASSIGN:      "=",
	PLUS_ASSIGN: "+=",
	SUB_ASSIGN:  "-=",
	MUL_ASSIGN:  "*=",
	POW_ASSIGN:  "**=",
	DIV_ASSIGN:  "/=",
	MOD_ASSIGN:  "%=",
	SHL_ASSIGN:  "<<=",
	SHR_ASSIGN:  ">>=",
	AND_ASSIGN:  "&=",
	OR_ASSIGN:   "|=",
	XOR_ASSIGN:  "^=",
}

func (o Op) String() string {
	return opNames[o]
}

// Symbol returns the source spelling of o, or its name if it has none.
func (o Op) Symbol() string {
	if s, ok := symbols[o]; ok {
		return s
	}
	return opNames[o]
}

// IsUnary reports whether o takes only a left operand.
func (o Op) IsUnary() bool {
	switch o {
	case B_NOT, L_NOT, FACTORIAL, NEG, POST_DECREMENT, POST_INCREMENT, PRE_DECREMENT, PRE_INCREMENT:
		return true
	}
	return false
}

// IsAssignment reports whether o stores into its left operand.
func (o Op) IsAssignment() bool {
	return o >= ASSIGN && o <= XOR_ASSIGN
}

// Underlying maps a compound assignment to the operator it applies,
// so PLUS_ASSIGN gives PLUS. Other operators map to themselves.
func (o Op) Underlying() Op {
	switch o {
	case PLUS_ASSIGN:
		return PLUS
	case SUB_ASSIGN:
		return SUB
	case MUL_ASSIGN:
		return MUL
	case POW_ASSIGN:
		return POW
	case DIV_ASSIGN:
		return DIV
	case MOD_ASSIGN:
		return MOD
	case SHL_ASSIGN:
		return SHL
	case SHR_ASSIGN:
		return SHR
	case AND_ASSIGN:
		return B_AND
	case OR_ASSIGN:
		return B_OR
	case XOR_ASSIGN:
		return B_XOR
	}
	return o
}

// ParseOp accepts either an operator name ("PLUS") or its symbol ("+").
func ParseOp(s string) (Op, bool) {
	for op, name := range opNames {
		if name == s && op != ILLEGAL {
			return op, true
		}
	}
	for op, sym := range symbols {
		if sym == s {
			return op, true
		}
	}
	return ILLEGAL, false
}

func (p Position) String() string {
	if p.Filename == "" {
		p.Filename = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%d:%d", s.From, s.To.Line, s.To.Column)
}

func (s Span) IsZero() bool {
	return s == Span{}
}

func SingleCharSpan(p Position) Span {
	return Span{p, p}
}

// LineSpan is the span of a whole line when no column is known.
func LineSpan(filename string, line int) Span {
	return SingleCharSpan(Position{Line: line, Filename: filename})
}
