package talc

import (
	"fmt"
	"log"

	"github.com/pontaoski/talc/errors"
	"github.com/pontaoski/talc/numeric"
	"github.com/pontaoski/talc/types"
)

type checker struct {
	st       *SymbolTable
	reg      *Registry
	settings *Settings

	fn      *FunctionDefinition
	visited map[*VariableDefinition]bool
}

// Annotate computes the type of every expression, resolves call targets and
// infers the types of definitions without a declared type. It reports the
// first type error it finds.
func Annotate(st *SymbolTable, nodes []Node, settings *Settings) (err error) {
	defer catch(&err)

	c := &checker{
		st:       st,
		reg:      st.Registry,
		settings: settings,
		visited:  make(map[*VariableDefinition]bool),
	}
	for _, n := range nodes {
		c.check(n, nil)
	}
	return nil
}

func (c *checker) mismatch(what string, got, expected interface{}, at Node) {
	panic(errors.TypeMismatch{What: what, Got: fmt.Sprint(got), Expected: fmt.Sprint(expected), Location: at.Span()})
}

func (c *checker) isNumeric(t *Type) bool {
	return t == c.reg.Int || t == c.reg.Real
}

func (c *checker) checkAll(nodes []Node) {
	for _, n := range nodes {
		c.check(n, nil)
	}
}

func (c *checker) checkOptional(n Node) {
	if n != nil {
		c.check(n, nil)
	}
}

// check returns the type of n. hint is the type the context expects, used
// to type empty literals and template constructors.
func (c *checker) check(n Node, hint *Type) *Type {
	switch v := n.(type) {
	case *Constant:
		if v.Type == nil {
			v.Type = c.constantType(v.Value)
		}
		return v.Type
	case *VariableName:
		decl := c.st.Decls.Var(v.Decl)
		if decl.Type == nil {
			c.variable(decl)
		}
		return decl.Type
	case *VariableDefinition:
		return c.variable(v)
	case *BinaryOperator:
		v.Type = c.operator(v)
		return v.Type
	case *FunctionCall:
		v.Type = c.call(v, hint)
		return v.Type
	case *FunctionDefinition:
		c.function(v)
	case *ClassDefinition:
		for _, f := range v.Fields {
			c.variable(f)
		}
		for _, m := range v.Methods {
			c.function(m)
		}
	case *Block:
		c.checkAll(v.Statements)
	case *IfStatement:
		for _, cond := range v.Conds {
			c.condition("if", cond)
		}
		c.checkAll(v.Bodies)
		c.checkOptional(v.Else)
	case *WhileStatement:
		c.condition("while", v.Cond)
		c.check(v.Body, nil)
	case *DoStatement:
		c.check(v.Body, nil)
		c.condition("do", v.Cond)
	case *ForStatement:
		c.checkOptional(v.Init)
		if v.Cond != nil {
			c.condition("for", v.Cond)
		}
		c.checkOptional(v.Update)
		c.check(v.Body, nil)
	case *ForEachStatement:
		c.forEach(v)
	case *ReturnStatement:
		c.ret(v)
	case *BreakStatement, *ContinueStatement:
	case *AssertStatement:
		c.condition("assert", v.Test)
		if v.Explanation != nil {
			if t := c.check(v.Explanation, c.reg.String); t != c.reg.String {
				c.mismatch("assertion explanation", t, c.reg.String, v.Explanation)
			}
		}
	case *ListLiteral:
		v.Type = c.list(v, hint)
		return v.Type
	case *MapLiteral:
		v.Type = c.dict(v, hint)
		return v.Type
	default:
		panic(errors.CodegenError{Msg: fmt.Sprintf("can't type %T", n), Location: n.Span()})
	}
	return c.reg.Void
}

func (c *checker) constantType(value interface{}) *Type {
	switch value.(type) {
	case *numeric.Integer:
		return c.reg.Int
	case float64:
		return c.reg.Real
	case string:
		return c.reg.String
	case bool:
		return c.reg.Bool
	}
	return c.reg.Null
}

func (c *checker) condition(statement string, cond Node) {
	if t := c.check(cond, c.reg.Bool); t != c.reg.Bool {
		c.mismatch(fmt.Sprintf("%q condition", statement), t, c.reg.Bool, cond)
	}
}

func (c *checker) variable(v *VariableDefinition) *Type {
	if c.visited[v] {
		return v.Type
	}
	c.visited[v] = true

	var actual *Type
	if v.Init != nil {
		actual = c.check(v.Init, v.Type)
	}
	what := fmt.Sprintf("initializer of %q", v.Name)
	if v.Type == nil {
		switch actual {
		case nil:
			c.mismatch(fmt.Sprintf("variable %q", v.Name), "no type", "a declared type or an initializer", v)
		case c.reg.Null, c.reg.EmptyList, c.reg.Void:
			c.mismatch(what, actual, "a type that can be inferred", v)
		}
		v.Type = actual
		if c.settings.Debugging('i') {
			log.Printf("note: inferred type of %q from initializer as %s. %s", v.Name, actual, v.Pos)
		}
		return v.Type
	}
	if v.Type == c.reg.Void {
		c.mismatch(fmt.Sprintf("variable %q", v.Name), v.Type, "a non-void type", v)
	}
	if actual != nil && !c.reg.AssignableTo(actual, v.Type) {
		c.mismatch(what, actual, v.Type, v)
	}
	return v.Type
}

func (c *checker) assignable(target Node, op types.Op) *VariableDefinition {
	name, ok := target.(*VariableName)
	if !ok {
		c.mismatch(fmt.Sprintf("left operand of %s", op.Symbol()), target, "a variable", target)
	}
	decl := c.st.Decls.Var(name.Decl)
	if decl.Builtin || (decl.Final && decl.Init != nil) {
		c.mismatch(fmt.Sprintf("left operand of %s", op.Symbol()), "constant \""+decl.Name+"\"", "a variable", target)
	}
	return decl
}

func (c *checker) operator(b *BinaryOperator) *Type {
	switch b.Op {
	case types.PLUS, types.PLUS_ASSIGN:
		if b.Op.IsAssignment() {
			c.assignable(b.Lhs, b.Op)
		}
		lhs := c.check(b.Lhs, nil)
		rhs := c.check(b.Rhs, nil)
		if lhs == c.reg.String && rhs == c.reg.String {
			return lhs
		}
		if lhs == c.reg.String || rhs == c.reg.String {
			c.mismatch("operands to string concatenation", fmt.Sprintf("%s and %s", lhs, rhs), "string and string", b)
		}
		return c.numeric(b, lhs, rhs)
	case types.NEG, types.SUB, types.MUL, types.POW, types.DIV,
		types.SUB_ASSIGN, types.MUL_ASSIGN, types.DIV_ASSIGN:
		return c.numericOperands(b)
	case types.PRE_INCREMENT, types.PRE_DECREMENT, types.POST_INCREMENT, types.POST_DECREMENT:
		c.assignable(b.Lhs, b.Op)
		return c.numericOperands(b)
	case types.MOD, types.SHL, types.SHR, types.B_AND, types.B_NOT, types.B_OR, types.B_XOR, types.FACTORIAL,
		types.POW_ASSIGN, types.MOD_ASSIGN, types.SHL_ASSIGN, types.SHR_ASSIGN,
		types.AND_ASSIGN, types.OR_ASSIGN, types.XOR_ASSIGN:
		return c.single(b, c.reg.Int)
	case types.L_NOT, types.L_AND, types.L_OR:
		return c.single(b, c.reg.Bool)
	case types.EQ, types.NE:
		lhs := c.check(b.Lhs, nil)
		rhs := c.check(b.Rhs, nil)
		for _, t := range []*Type{c.reg.Bool, c.reg.Int, c.reg.Real} {
			if (lhs == t || rhs == t) && lhs != rhs {
				c.mismatch(fmt.Sprintf("operands to %s", b.Op.Symbol()), fmt.Sprintf("%s and %s", lhs, rhs), fmt.Sprintf("%s and %s", t, t), b)
			}
		}
		return c.reg.Bool
	case types.LE, types.GE, types.GT, types.LT:
		c.numericOperands(b)
		return c.reg.Bool
	case types.ASSIGN:
		decl := c.assignable(b.Lhs, b.Op)
		lhs := c.check(b.Lhs, nil)
		rhs := c.check(b.Rhs, decl.Type)
		if !c.reg.AssignableTo(rhs, lhs) {
			c.mismatch(fmt.Sprintf("value assigned to %q", decl.Name), rhs, lhs, b)
		}
		return lhs
	}
	panic(errors.EvaluationError{Op: b.Op, Location: b.Pos})
}

func (c *checker) numericOperands(b *BinaryOperator) *Type {
	if b.Op.IsAssignment() {
		c.assignable(b.Lhs, b.Op)
	}
	lhs := c.check(b.Lhs, nil)
	var rhs *Type
	if b.Rhs != nil {
		rhs = c.check(b.Rhs, nil)
	}
	return c.numeric(b, lhs, rhs)
}

func (c *checker) numeric(b *BinaryOperator, lhs, rhs *Type) *Type {
	if rhs != nil && rhs != lhs {
		c.mismatch(fmt.Sprintf("operands to %s", b.Op.Symbol()), fmt.Sprintf("%s and %s", lhs, rhs), "operands of the same type", b)
	}
	if !c.isNumeric(lhs) {
		c.mismatch(fmt.Sprintf("operands to %s", b.Op.Symbol()), lhs, "int or real", b)
	}
	return lhs
}

func (c *checker) single(b *BinaryOperator, want *Type) *Type {
	if b.Op.IsAssignment() {
		c.assignable(b.Lhs, b.Op)
	}
	lhs := c.check(b.Lhs, want)
	if lhs != want {
		c.mismatch(fmt.Sprintf("operand to %s", b.Op.Symbol()), lhs, want, b.Lhs)
	}
	if b.Rhs != nil {
		rhs := c.check(b.Rhs, want)
		if rhs != want {
			c.mismatch(fmt.Sprintf("operand to %s", b.Op.Symbol()), rhs, want, b.Rhs)
		}
	}
	return want
}

// classFor picks the type a constructor call builds. Templates are
// instantiated from the hint when it fits, and with object otherwise.
func (c *checker) classFor(t, hint *Type) *Type {
	if !t.IsTemplate() {
		return t
	}
	if hint != nil && hint.IsInstantiated() && hint.Template().Equal(t) {
		return hint
	}
	var value *Type
	if t.Value() != nil {
		value = c.reg.Object
	}
	return c.reg.Instantiate(t, c.reg.Object, value)
}

func (c *checker) call(call *FunctionCall, hint *Type) *Type {
	var instanceType, classType *Type
	if call.Instance != nil && call.Class != nil {
		c.mismatch(fmt.Sprintf("call to %q", call.Name), "both a receiver and a class", "one of them", call)
	}
	if call.Instance != nil {
		instanceType = c.check(call.Instance, nil)
	}
	if call.Class != nil {
		if len(call.Class.Args) == 0 {
			classType = c.st.LookupType(call.Class.Name)
			if classType == nil {
				panic(errors.TypeDeclarationError{What: "class of " + call.Name, TypeName: call.Class.Name, Location: call.Pos})
			}
			classType = c.classFor(classType, hint)
		} else {
			classType = c.st.ResolveType("class of "+call.Name, call.Class, call)
		}
	}

	what := fmt.Sprintf("global function %q", call.Name)
	search := call.Owner()
	switch {
	case classType != nil:
		what = fmt.Sprintf("class method %q", call.Name)
		search = classType.Members()
	case instanceType != nil:
		what = fmt.Sprintf("instance method %q", call.Name)
		search = instanceType.Members()
	}

	var f *FunctionDefinition
	if search != nil {
		if id, ok := search.LookupFunction(call.Name); ok {
			f = c.st.Decls.Func(id)
		}
	}
	// A bare class name calls that class's constructor.
	if (f == nil || f.Constructor) && instanceType == nil && classType == nil {
		if t := c.st.LookupType(call.Name); t != nil && t.Members() != nil {
			if id, ok := t.Members().LookupFunction(call.Name); ok {
				f = c.st.Decls.Func(id)
				classType = c.classFor(t, hint)
			}
		}
	}
	if f == nil {
		kind := "function"
		switch {
		case classType != nil:
			kind = "class method of " + classType.String() + " named"
		case instanceType != nil:
			kind = "method of " + instanceType.String() + " named"
		}
		panic(errors.ResolutionError{Kind: kind, Name: call.Name, Location: call.Pos})
	}
	if f.Constructor {
		what = fmt.Sprintf("constructor for class %q", call.Name)
		if instanceType != nil {
			c.mismatch(what, "a call on an instance", "a call by class name", call)
		}
	}
	call.Target = f.ID

	resolving := classType
	if resolving == nil {
		resolving = instanceType
	}

	if !f.Variadic && len(call.Args) != len(f.ParamTypes) {
		c.mismatch("argument count of "+what, len(call.Args), len(f.ParamTypes), call)
	}
	call.ArgTypes = make([]*Type, len(call.Args))
	for i, arg := range call.Args {
		if f.Variadic {
			t := c.check(arg, nil)
			if t == c.reg.Void {
				c.mismatch(fmt.Sprintf("argument %d to %s", i, what), t, "a value", arg)
			}
			call.ArgTypes[i] = t
			continue
		}
		required := c.reg.Substitute(f.ParamTypes[i], resolving)
		t := c.check(arg, required)
		if !c.reg.AssignableTo(t, required) {
			c.mismatch(fmt.Sprintf("argument %d to %s", i, what), t, required, arg)
		}
		call.ArgTypes[i] = required
	}

	if f.Constructor {
		return classType
	}
	ret := f.ReturnType
	if resolving != nil {
		ret = c.reg.Substitute(ret, resolving)
	}
	return ret
}

func (c *checker) function(f *FunctionDefinition) {
	for _, p := range f.Params {
		c.variable(p)
	}
	if f.Body == nil {
		return
	}
	saved := c.fn
	c.fn = f
	defer func() { c.fn = saved }()
	c.check(f.Body, nil)
}

func (c *checker) ret(r *ReturnStatement) {
	if c.fn == nil {
		panic(errors.ResolutionError{Kind: "enclosing function for", Name: "return", Location: r.Pos})
	}
	returned := c.reg.Void
	if r.Expr != nil {
		returned = c.check(r.Expr, c.fn.ReturnType)
	}
	r.Type = c.fn.ReturnType
	if c.fn.Constructor {
		if returned != c.reg.Void {
			c.mismatch("return value of a constructor", returned, c.reg.Void, r)
		}
		return
	}
	if returned == c.reg.Void && c.fn.ReturnType == c.reg.Void {
		return
	}
	if !c.reg.AssignableTo(returned, c.fn.ReturnType) {
		c.mismatch("return expression", returned, c.fn.ReturnType, r)
	}
}

func (c *checker) forEach(f *ForEachStatement) {
	t := c.check(f.Expr, nil)
	f.ExprType = t

	var key, value *Type
	switch {
	case t == c.reg.String:
		key, value = c.reg.Int, c.reg.String
	case t.IsInstantiated() && t.Template().Equal(c.reg.Map):
		key, value = t.Key(), t.Value()
	case t.IsInstantiated() && t.Template().Equal(c.reg.List):
		key, value = c.reg.Int, t.Key()
	default:
		c.mismatch("for-each expression", t, "a collection type", f.Expr)
	}

	bind := func(v *VariableDefinition, elem *Type) {
		c.visited[v] = true
		if v.Type == nil {
			v.Type = elem
			return
		}
		if !c.reg.AssignableTo(elem, v.Type) {
			c.mismatch(fmt.Sprintf("loop variable %q", v.Name), elem, v.Type, v)
		}
	}
	switch len(f.Vars) {
	case 1:
		bind(f.Vars[0], value)
	case 2:
		bind(f.Vars[0], key)
		bind(f.Vars[1], value)
	default:
		c.mismatch("loop variable count", len(f.Vars), "1 or 2", f)
	}
	c.check(f.Body, nil)
}

// elementType is the hint when every element fits it, and otherwise the
// nearest common superclass of the element types. Null elements fit any
// type.
func (c *checker) elementType(nodes []Node, hint *Type) *Type {
	var ts []*Type
	for _, n := range nodes {
		t := c.check(n, hint)
		if t == c.reg.Null {
			continue
		}
		if t == c.reg.Void {
			c.mismatch("collection element", t, "a value", n)
		}
		ts = append(ts, t)
	}
	if len(ts) == 0 {
		if hint != nil {
			return hint
		}
		return c.reg.Object
	}
	if hint != nil {
		fits := true
		for _, t := range ts {
			if !c.reg.AssignableTo(t, hint) {
				fits = false
				break
			}
		}
		if fits {
			return hint
		}
	}
	same := func() bool {
		for _, t := range ts[1:] {
			if !t.Equal(ts[0]) {
				return false
			}
		}
		return true
	}
	for !same() {
		max := 0
		for _, t := range ts {
			if d := t.Depth(); d > max {
				max = d
			}
		}
		if max == 0 {
			return c.reg.Object
		}
		for i, t := range ts {
			if t.Depth() == max {
				ts[i] = t.Super()
			}
		}
	}
	return ts[0]
}

func (c *checker) list(l *ListLiteral, hint *Type) *Type {
	if len(l.Elems) == 0 {
		return c.reg.EmptyList
	}
	var elemHint *Type
	if hint != nil && hint.IsInstantiated() && hint.Template().Equal(c.reg.List) {
		elemHint = hint.Key()
	}
	return c.reg.Instantiate(c.reg.List, c.elementType(l.Elems, elemHint), nil)
}

func (c *checker) dict(m *MapLiteral, hint *Type) *Type {
	var keyHint, valueHint *Type
	if hint != nil && hint.IsInstantiated() && hint.Template().Equal(c.reg.Map) {
		keyHint, valueHint = hint.Key(), hint.Value()
	}
	if len(m.Keys) == 0 {
		if keyHint != nil {
			return hint
		}
		return c.reg.Instantiate(c.reg.Map, c.reg.Object, c.reg.Object)
	}
	key := c.elementType(m.Keys, keyHint)
	value := c.elementType(m.Values, valueHint)
	return c.reg.Instantiate(c.reg.Map, key, value)
}
