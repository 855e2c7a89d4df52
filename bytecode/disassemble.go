package bytecode

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type operands int

const (
	noOperands operands = iota
	strOperand
	quotedOperand
	intOperand
	realOperand
	callOperands
	labelOperand
	condOperands
)

var layouts = map[Op]operands{
	PUSH_INT:      strOperand,
	PUSH_REAL:     realOperand,
	PUSH_STRING:   quotedOperand,
	LOAD:          intOperand,
	STORE:         intOperand,
	LOAD_GLOBAL:   intOperand,
	STORE_GLOBAL:  intOperand,
	LOAD_BUILTIN:  strOperand,
	GET_FIELD:     strOperand,
	SET_FIELD:     strOperand,
	NEW:           strOperand,
	INVOKE:        callOperands,
	CALL:          callOperands,
	CALL_METHOD:   callOperands,
	CALL_BUILTIN:  callOperands,
	LABEL:         labelOperand,
	JUMP:          labelOperand,
	JUMP_IF_SAME:  labelOperand,
	JUMP_IF_EQUAL: labelOperand,
	JUMP_IF_CMP:   condOperands,
}

func (i Instr) String() string {
	switch layouts[i.Op] {
	case strOperand:
		return fmt.Sprintf("%s %s", i.Op, i.Str)
	case quotedOperand:
		return fmt.Sprintf("%s %s", i.Op, strconv.Quote(i.Str))
	case intOperand:
		return fmt.Sprintf("%s %d", i.Op, i.Int)
	case realOperand:
		return fmt.Sprintf("%s %s", i.Op, strconv.FormatFloat(i.Real, 'g', -1, 64))
	case callOperands:
		return fmt.Sprintf("%s %s %d", i.Op, i.Str, i.Int)
	case labelOperand:
		if i.Op == LABEL {
			return fmt.Sprintf("L%d:", i.Label)
		}
		return fmt.Sprintf("%s L%d", i.Op, i.Label)
	case condOperands:
		return fmt.Sprintf("%s %s L%d", i.Op, Cond(i.Int), i.Label)
	}
	return i.Op.String()
}

// Listing renders code one instruction per line. Labels are outdented.
func Listing(code []Instr) string {
	var b strings.Builder
	for _, in := range code {
		if in.Op == LABEL {
			fmt.Fprintf(&b, "%s\n", in)
			continue
		}
		fmt.Fprintf(&b, "\t%s\n", in)
	}
	return b.String()
}

func (f *Function) Disassemble() string {
	kind := "function"
	if f.Method {
		kind = "method"
	}
	return fmt.Sprintf("%s %s(%d) locals %d\n%s", kind, f.Name, f.Params, f.Locals, Listing(f.Code))
}

func (u *Unit) Disassemble() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unit %s (%s) globals %d\n", u.Name, u.SourceFile, u.Globals)
	if u.Main != nil {
		b.WriteString("\n")
		b.WriteString(u.Main.Disassemble())
	}
	for _, f := range u.Functions {
		b.WriteString("\n")
		b.WriteString(f.Disassemble())
	}
	for _, c := range u.Classes {
		fmt.Fprintf(&b, "\nclass %s", c.Name)
		if c.Super != "" {
			fmt.Fprintf(&b, " : %s", c.Super)
		}
		fmt.Fprintf(&b, " fields [%s]\n", strings.Join(c.Fields, ", "))
		if c.Init != nil {
			b.WriteString(c.Init.Disassemble())
		}
		for _, m := range c.Methods {
			b.WriteString(m.Disassemble())
		}
	}
	return b.String()
}

func Encode(u *Unit) ([]byte, error) {
	return json.Marshal(u)
}

func Decode(data []byte) (*Unit, error) {
	var u Unit
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	if u.Main == nil {
		return nil, fmt.Errorf("unit %q has no entry point", u.Name)
	}
	return &u, nil
}
