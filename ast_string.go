package talc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pontaoski/talc/numeric"
)

func join(nodes []Node, sep string) string {
	var parts []string
	for _, n := range nodes {
		parts = append(parts, n.String())
	}
	return strings.Join(parts, sep)
}

func nodeString(n Node) string {
	if n == nil {
		return "null"
	}
	return n.String()
}

func (v *Constant) String() string {
	switch c := v.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(c)
	case *numeric.Integer:
		return c.String()
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	}
	return fmt.Sprint(v.Value)
}

func (v *BinaryOperator) String() string {
	if v.Rhs == nil {
		return fmt.Sprintf("%s(%s)", v.Op, nodeString(v.Lhs))
	}
	return fmt.Sprintf("%s(%s, %s)", v.Op, nodeString(v.Lhs), nodeString(v.Rhs))
}

// Signature is the definition without its initializer.
func (v *VariableDefinition) Signature() string {
	switch {
	case v.Type != nil:
		return fmt.Sprintf("%s: %s", v.Name, v.Type)
	case v.TypeName != nil:
		return fmt.Sprintf("%s: %s", v.Name, v.TypeName)
	}
	return v.Name + ": <to-be-inferred>"
}

func (v *VariableDefinition) String() string {
	if v.Init == nil {
		return v.Signature()
	}
	return fmt.Sprintf("%s = %s", v.Signature(), v.Init)
}

func (v *VariableName) String() string {
	return v.Name
}

func (v *FunctionDefinition) Signature() string {
	var b strings.Builder
	b.WriteString(v.Name)
	b.WriteString("(")
	if v.Variadic {
		b.WriteString("...")
	} else {
		for i, name := range v.ParamNames {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(name)
			b.WriteString(": ")
			if i < len(v.ParamTypes) && v.ParamTypes[i] != nil {
				b.WriteString(v.ParamTypes[i].String())
			} else if i < len(v.ParamTypeNames) {
				b.WriteString(v.ParamTypeNames[i].String())
			}
		}
	}
	b.WriteString(") : ")
	switch {
	case v.ReturnType != nil:
		b.WriteString(v.ReturnType.String())
	case v.ReturnTypeName != nil:
		b.WriteString(v.ReturnTypeName.String())
	default:
		b.WriteString("void")
	}
	return b.String()
}

func (v *FunctionDefinition) String() string {
	if v.Body == nil {
		return "function " + v.Signature()
	}
	return fmt.Sprintf("function %s %s", v.Signature(), v.Body)
}

func (v *FunctionCall) String() string {
	var b strings.Builder
	if v.Instance != nil {
		b.WriteString(v.Instance.String())
		b.WriteString(".")
	}
	if v.Class != nil {
		b.WriteString(v.Class.String())
		b.WriteString(".")
	}
	fmt.Fprintf(&b, "%s(%s)", v.Name, join(v.Args, ", "))
	return b.String()
}

func (v *ClassDefinition) String() string {
	var b strings.Builder
	b.WriteString("class ")
	b.WriteString(v.Name)
	if v.Super != "" {
		b.WriteString(" : ")
		b.WriteString(v.Super)
	}
	b.WriteString(" {")
	for _, f := range v.Fields {
		b.WriteString(" ")
		b.WriteString(f.String())
		b.WriteString(";")
	}
	for _, m := range v.Methods {
		b.WriteString(" ")
		b.WriteString(m.String())
	}
	b.WriteString(" }")
	return b.String()
}

func (v *Block) String() string {
	var b strings.Builder
	b.WriteString("{")
	for _, s := range v.Statements {
		b.WriteString(" ")
		b.WriteString(s.String())
		b.WriteString(";")
	}
	b.WriteString(" }")
	return b.String()
}

func (v *IfStatement) String() string {
	var b strings.Builder
	for i, cond := range v.Conds {
		if i > 0 {
			b.WriteString(" else ")
		}
		fmt.Fprintf(&b, "if (%s) %s", cond, v.Bodies[i])
	}
	if v.Else != nil && v.Else != Node(EmptyBlock) {
		fmt.Fprintf(&b, " else %s", v.Else)
	}
	return b.String()
}

func (v *WhileStatement) String() string {
	return fmt.Sprintf("while (%s) %s", v.Cond, v.Body)
}

func (v *DoStatement) String() string {
	return fmt.Sprintf("do %s while (%s)", v.Body, v.Cond)
}

func (v *ForStatement) String() string {
	init := ""
	if v.Init != nil {
		init = v.Init.String()
	}
	update := ""
	if v.Update != nil {
		update = v.Update.String()
	}
	cond := ""
	if v.Cond != nil {
		cond = v.Cond.String()
	}
	return fmt.Sprintf("for (%s; %s; %s) %s", init, cond, update, v.Body)
}

func (v *ForEachStatement) String() string {
	var names []string
	for _, lv := range v.Vars {
		names = append(names, lv.Signature())
	}
	return fmt.Sprintf("for (%s in %s) %s", strings.Join(names, ", "), v.Expr, v.Body)
}

func (v *ReturnStatement) String() string {
	if v.Expr == nil {
		return "return"
	}
	return "return " + v.Expr.String()
}

func (v *BreakStatement) String() string    { return "break" }
func (v *ContinueStatement) String() string { return "continue" }

func (v *AssertStatement) String() string {
	if v.Explanation == nil {
		return fmt.Sprintf("assert(%s)", v.Test)
	}
	return fmt.Sprintf("assert(%s, %s)", v.Test, v.Explanation)
}

func (v *ListLiteral) String() string {
	return "[" + join(v.Elems, ", ") + "]"
}

func (v *MapLiteral) String() string {
	if len(v.Keys) == 0 {
		return "[:]"
	}
	var parts []string
	for i := range v.Keys {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Keys[i], v.Values[i]))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
