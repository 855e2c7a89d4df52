package talc

import (
	"github.com/pontaoski/talc/errors"
	"github.com/pontaoski/talc/numeric"
	"github.com/pontaoski/talc/types"
)

type simplifier struct {
	reg *Registry
}

// Simplify folds constant integer and string expressions and applies the
// algebraic identities that don't change the result. The input is left
// untouched: changed nodes are copied and unchanged subtrees are shared.
// Running Simplify on its own output changes nothing.
func Simplify(reg *Registry, nodes []Node) (ret []Node, err error) {
	defer catch(&err)

	s := simplifier{reg: reg}
	ret, _ = s.nodes(nodes)
	return ret, nil
}

func isInteger(n Node, value *numeric.Integer) bool {
	c := integerConstant(n)
	return c != nil && c.Equal(value)
}

func integerConstant(n Node) *numeric.Integer {
	c, ok := n.(*Constant)
	if !ok {
		return nil
	}
	i, _ := c.Value.(*numeric.Integer)
	return i
}

func stringConstant(n Node) (string, bool) {
	c, ok := n.(*Constant)
	if !ok {
		return "", false
	}
	s, ok := c.Value.(string)
	return s, ok
}

// nodes simplifies every node and reports whether any changed.
func (s *simplifier) nodes(in []Node) ([]Node, bool) {
	out := make([]Node, len(in))
	changed := false
	for i, n := range in {
		out[i] = s.node(n)
		if out[i] != n {
			changed = true
		}
	}
	if !changed {
		return in, false
	}
	return out, true
}

func (s *simplifier) optional(n Node) Node {
	if n == nil {
		return nil
	}
	return s.node(n)
}

func (s *simplifier) variable(v *VariableDefinition) *VariableDefinition {
	init := s.optional(v.Init)
	if init == v.Init {
		return v
	}
	c := *v
	c.Init = init
	return &c
}

func (s *simplifier) function(f *FunctionDefinition) *FunctionDefinition {
	body := s.optional(f.Body)
	if body == f.Body {
		return f
	}
	c := *f
	c.Body = body
	return &c
}

func (s *simplifier) node(n Node) Node {
	switch v := n.(type) {
	case *Constant, *VariableName, *BreakStatement, *ContinueStatement:
		return n
	case *BinaryOperator:
		return s.operator(v)
	case *VariableDefinition:
		return s.variable(v)
	case *FunctionDefinition:
		return s.function(v)
	case *FunctionCall:
		instance := s.optional(v.Instance)
		args, changed := s.nodes(v.Args)
		if !changed && instance == v.Instance {
			return v
		}
		c := *v
		c.Instance, c.Args = instance, args
		return &c
	case *ClassDefinition:
		changed := false
		fields := make([]*VariableDefinition, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = s.variable(f)
			changed = changed || fields[i] != f
		}
		methods := make([]*FunctionDefinition, len(v.Methods))
		for i, m := range v.Methods {
			methods[i] = s.function(m)
			changed = changed || methods[i] != m
		}
		if !changed {
			return v
		}
		c := *v
		c.Fields, c.Methods = fields, methods
		return &c
	case *Block:
		return s.block(v)
	case *IfStatement:
		conds, condsChanged := s.nodes(v.Conds)
		bodies, bodiesChanged := s.nodes(v.Bodies)
		els := s.optional(v.Else)
		if !condsChanged && !bodiesChanged && els == v.Else {
			return v
		}
		c := *v
		c.Conds, c.Bodies, c.Else = conds, bodies, els
		return &c
	case *WhileStatement:
		cond, body := s.node(v.Cond), s.node(v.Body)
		if cond == v.Cond && body == v.Body {
			return v
		}
		c := *v
		c.Cond, c.Body = cond, body
		return &c
	case *DoStatement:
		body, cond := s.node(v.Body), s.node(v.Cond)
		if cond == v.Cond && body == v.Body {
			return v
		}
		c := *v
		c.Body, c.Cond = body, cond
		return &c
	case *ForStatement:
		init, cond, update, body := s.optional(v.Init), s.optional(v.Cond), s.optional(v.Update), s.node(v.Body)
		if init == v.Init && cond == v.Cond && update == v.Update && body == v.Body {
			return v
		}
		c := *v
		c.Init, c.Cond, c.Update, c.Body = init, cond, update, body
		return &c
	case *ForEachStatement:
		expr, body := s.node(v.Expr), s.node(v.Body)
		if expr == v.Expr && body == v.Body {
			return v
		}
		c := *v
		c.Expr, c.Body = expr, body
		return &c
	case *ReturnStatement:
		expr := s.optional(v.Expr)
		if expr == v.Expr {
			return v
		}
		c := *v
		c.Expr = expr
		return &c
	case *AssertStatement:
		test, expl := s.node(v.Test), s.optional(v.Explanation)
		if test == v.Test && expl == v.Explanation {
			return v
		}
		c := *v
		c.Test, c.Explanation = test, expl
		return &c
	case *ListLiteral:
		elems, changed := s.nodes(v.Elems)
		if !changed {
			return v
		}
		c := *v
		c.Elems = elems
		return &c
	case *MapLiteral:
		keys, keysChanged := s.nodes(v.Keys)
		values, valuesChanged := s.nodes(v.Values)
		if !keysChanged && !valuesChanged {
			return v
		}
		c := *v
		c.Keys, c.Values = keys, values
		return &c
	}
	panic(errors.CodegenError{Msg: "unknown node in simplifier", Location: n.Span()})
}

func (s *simplifier) block(b *Block) Node {
	if b == EmptyBlock {
		return b
	}
	statements, changed := s.nodes(b.Statements)
	switch len(statements) {
	case 0:
		return EmptyBlock
	case 1:
		// A lone definition keeps its block so it stays out of the
		// enclosing scope.
		if _, ok := statements[0].(*VariableDefinition); !ok {
			return statements[0]
		}
	}
	if !changed {
		return b
	}
	c := *b
	c.Statements = statements
	return &c
}

func (s *simplifier) constant(from *BinaryOperator, value interface{}, t *Type) *Constant {
	c := &Constant{Value: value, Type: t}
	c.Meta = from.Meta
	return c
}

func (s *simplifier) operator(b *BinaryOperator) Node {
	lhs := s.node(b.Lhs)
	rhs := s.optional(b.Rhs)

	switch b.Op {
	case types.PLUS:
		if isInteger(lhs, numeric.Zero) {
			return rhs
		}
		if isInteger(rhs, numeric.Zero) {
			return lhs
		}
		l, lok := stringConstant(lhs)
		r, rok := stringConstant(rhs)
		if lok && rok {
			return s.constant(b, l+r, s.reg.String)
		}
	case types.SUB:
		if isInteger(lhs, numeric.Zero) {
			neg := &BinaryOperator{Op: types.NEG, Lhs: rhs, Type: b.Type}
			neg.Meta = b.Meta
			return neg
		}
		if isInteger(rhs, numeric.Zero) {
			return lhs
		}
	case types.MUL:
		switch {
		case isInteger(lhs, numeric.Zero):
			return lhs
		case isInteger(rhs, numeric.Zero):
			return rhs
		case isInteger(lhs, numeric.One):
			return rhs
		case isInteger(rhs, numeric.One):
			return lhs
		}
	case types.DIV:
		if isInteger(lhs, numeric.Zero) {
			return lhs
		}
		if isInteger(rhs, numeric.One) {
			return lhs
		}
	case types.SHL, types.SHR:
		if isInteger(rhs, numeric.Zero) {
			return lhs
		}
	}

	l := integerConstant(lhs)
	r := integerConstant(rhs)
	if l != nil && (b.Op == types.B_NOT || b.Op == types.FACTORIAL || r != nil) {
		value, err := s.evaluate(b, l, r)
		if err != nil {
			if argErr, ok := err.(errors.ArgumentError); ok {
				argErr.Location = b.Pos
				err = argErr
			}
			panic(err)
		}
		if _, ok := value.(bool); ok {
			return s.constant(b, value, s.reg.Bool)
		}
		return s.constant(b, value, s.reg.Int)
	}

	if lhs == b.Lhs && rhs == b.Rhs {
		return b
	}
	c := *b
	c.Lhs, c.Rhs = lhs, rhs
	return &c
}

func (s *simplifier) evaluate(b *BinaryOperator, l, r *numeric.Integer) (interface{}, error) {
	switch b.Op {
	case types.PLUS:
		return l.Add(r), nil
	case types.SUB:
		return l.Sub(r), nil
	case types.MUL:
		return l.Mul(r), nil
	case types.POW:
		return l.Pow(r)
	case types.DIV:
		return l.Div(r)
	case types.MOD:
		return l.Mod(r)
	case types.SHL:
		return l.Shl(r)
	case types.SHR:
		return l.Shr(r)
	case types.B_AND:
		return l.And(r), nil
	case types.B_NOT:
		return l.Not(), nil
	case types.B_OR:
		return l.Or(r), nil
	case types.B_XOR:
		return l.Xor(r), nil
	case types.FACTORIAL:
		return l.Factorial()
	case types.EQ:
		return l.Equal(r), nil
	case types.NE:
		return !l.Equal(r), nil
	case types.LE:
		return l.Cmp(r) <= 0, nil
	case types.GE:
		return l.Cmp(r) >= 0, nil
	case types.GT:
		return l.Cmp(r) > 0, nil
	case types.LT:
		return l.Cmp(r) < 0, nil
	}
	return nil, errors.EvaluationError{Op: b.Op, Location: b.Pos}
}
