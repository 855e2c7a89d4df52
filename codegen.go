package talc

import (
	"fmt"

	"github.com/pontaoski/talc/bytecode"
	"github.com/pontaoski/talc/errors"
	"github.com/pontaoski/talc/numeric"
	"github.com/pontaoski/talc/types"
)

// InitFields is the name of the method that runs a class's field
// initializers on a new instance.
const InitFields = "__init_fields__"

var methodNames = map[types.Op]string{
	types.PLUS:      "add",
	types.SUB:       "subtract",
	types.MUL:       "multiply",
	types.POW:       "pow",
	types.DIV:       "divide",
	types.MOD:       "mod",
	types.SHL:       "shift_left",
	types.SHR:       "shift_right",
	types.B_AND:     "and",
	types.B_OR:      "or",
	types.B_XOR:     "xor",
	types.B_NOT:     "not",
	types.NEG:       "negate",
	types.FACTORIAL: "factorial",
}

var conds = map[types.Op]bytecode.Cond{
	types.LT: bytecode.CondLT,
	types.LE: bytecode.CondLE,
	types.GT: bytecode.CondGT,
	types.GE: bytecode.CondGE,
}

type loop struct {
	cont, brk bytecode.Label
}

type frame struct {
	fn    *bytecode.Function
	slots map[VarID]int
	loops []loop
}

type generator struct {
	st   *SymbolTable
	reg  *Registry
	unit *bytecode.Unit

	globals map[VarID]int
	names   map[FuncID]string
	used    map[string]bool
	labels  bytecode.Label

	frame *frame
}

// Generate lowers a bound and annotated program to a unit of stack
// machine code. Top-level statements become the unit's entry point.
func Generate(st *SymbolTable, nodes []Node, settings *Settings) (unit *bytecode.Unit, err error) {
	defer catch(&err)

	if settings == nil {
		settings = DefaultSettings()
	}
	g := &generator{
		st:      st,
		reg:     st.Registry,
		globals: make(map[VarID]int),
		names:   make(map[FuncID]string),
		used:    make(map[string]bool),
	}
	g.unit = &bytecode.Unit{Name: settings.UnitName}
	if len(nodes) > 0 {
		g.unit.SourceFile = nodes[0].Span().From.Filename
	}

	main := &bytecode.Function{Name: "main"}
	g.used[main.Name] = true
	g.frame = &frame{fn: main, slots: make(map[VarID]int)}
	for _, n := range nodes {
		g.statement(n)
	}
	g.emit(bytecode.Instr{Op: bytecode.RETURN})
	g.unit.Main = main

	return g.unit, nil
}

func (g *generator) fail(at Node, msg string, fmts ...interface{}) {
	panic(errors.CodegenError{Msg: fmt.Sprintf(msg, fmts...), Location: at.Span()})
}

func (g *generator) emit(in bytecode.Instr) {
	g.frame.fn.Code = append(g.frame.fn.Code, in)
}

// op emits an instruction attributed to the source of at.
func (g *generator) op(at Node, op bytecode.Op) *bytecode.Instr {
	span := at.Span()
	g.emit(bytecode.Instr{Op: op, Pos: span, Line: span.From.Line})
	return &g.frame.fn.Code[len(g.frame.fn.Code)-1]
}

func (g *generator) label() bytecode.Label {
	g.labels++
	return g.labels
}

func (g *generator) mark(l bytecode.Label) {
	g.emit(bytecode.Instr{Op: bytecode.LABEL, Label: l})
}

func (g *generator) jump(at Node, op bytecode.Op, l bytecode.Label) {
	g.op(at, op).Label = l
}

// funcName gives every function a unit-wide unique name. Nested functions
// may share a source name, so later ones get their id appended.
func (g *generator) funcName(id FuncID) string {
	if name, ok := g.names[id]; ok {
		return name
	}
	f := g.st.Decls.Func(id)
	name := f.Name
	if f.ClassMethod && f.Class != nil {
		name = f.Class.Name() + "." + f.Name
	}
	if g.used[name] {
		name = fmt.Sprintf("%s#%d", name, id)
	}
	g.used[name] = true
	g.names[id] = name
	return name
}

func (g *generator) isGlobal(v *VariableDefinition) bool {
	return v.Owner() != nil && v.Owner().Kind == ScopeGlobal
}

// allocate gives a variable its storage the first time it's defined.
func (g *generator) allocate(v *VariableDefinition) {
	switch {
	case v.Field || v.Builtin:
	case g.isGlobal(v):
		if _, ok := g.globals[v.ID]; !ok {
			g.globals[v.ID] = g.unit.Globals
			g.unit.Globals++
		}
	default:
		if _, ok := g.frame.slots[v.ID]; !ok {
			g.frame.slots[v.ID] = g.hidden()
		}
	}
}

// hidden allocates an anonymous local slot.
func (g *generator) hidden() int {
	slot := g.frame.fn.Locals
	g.frame.fn.Locals++
	return slot
}

func (g *generator) load(at Node, id VarID) {
	v := g.st.Decls.Var(id)
	switch {
	case v.Builtin:
		g.op(at, bytecode.LOAD_BUILTIN).Str = v.Name
	case v.Field:
		g.op(at, bytecode.GET_FIELD).Str = v.Name
	case g.isGlobal(v):
		slot, ok := g.globals[id]
		if !ok {
			g.fail(at, "global %q used before it was allocated", v.Name)
		}
		g.op(at, bytecode.LOAD_GLOBAL).Int = slot
	default:
		slot, ok := g.frame.slots[id]
		if !ok {
			g.fail(at, "variable %q isn't in this frame", v.Name)
		}
		g.op(at, bytecode.LOAD).Int = slot
	}
}

func (g *generator) store(at Node, id VarID) {
	v := g.st.Decls.Var(id)
	switch {
	case v.Builtin:
		g.fail(at, "can't assign to built-in constant %q", v.Name)
	case v.Field:
		g.op(at, bytecode.SET_FIELD).Str = v.Name
	case g.isGlobal(v):
		g.op(at, bytecode.STORE_GLOBAL).Int = g.globals[id]
	default:
		slot, ok := g.frame.slots[id]
		if !ok {
			g.fail(at, "variable %q isn't in this frame", v.Name)
		}
		g.op(at, bytecode.STORE).Int = slot
	}
}

func (g *generator) target(n Node) VarID {
	name, ok := n.(*VariableName)
	if !ok {
		g.fail(n, "can't assign to %s", n)
	}
	return name.Decl
}

// statement generates n and drops any value it leaves behind.
func (g *generator) statement(n Node) {
	switch v := n.(type) {
	case *Block:
		for _, s := range v.Statements {
			g.statement(s)
		}
	case *IfStatement:
		g.ifStatement(v)
	case *WhileStatement:
		head, brk := g.label(), g.label()
		g.mark(head)
		g.branchIfFalse(v.Cond, brk)
		g.loopBody(v.Body, loop{cont: head, brk: brk})
		g.jump(v, bytecode.JUMP, head)
		g.mark(brk)
	case *DoStatement:
		body, cont, brk := g.label(), g.label(), g.label()
		g.mark(body)
		g.loopBody(v.Body, loop{cont: cont, brk: brk})
		g.mark(cont)
		g.expr(v.Cond)
		g.op(v, bytecode.PUSH_TRUE)
		g.jump(v, bytecode.JUMP_IF_SAME, body)
		g.mark(brk)
	case *ForStatement:
		head, cont, brk := g.label(), g.label(), g.label()
		if v.Init != nil {
			g.statement(v.Init)
		}
		g.mark(head)
		if v.Cond != nil {
			g.branchIfFalse(v.Cond, brk)
		}
		g.loopBody(v.Body, loop{cont: cont, brk: brk})
		g.mark(cont)
		if v.Update != nil {
			g.statement(v.Update)
		}
		g.jump(v, bytecode.JUMP, head)
		g.mark(brk)
	case *ForEachStatement:
		g.forEach(v)
	case *ReturnStatement:
		if v.Expr == nil {
			g.op(v, bytecode.RETURN)
			return
		}
		g.expr(v.Expr)
		g.op(v, bytecode.RETURN_VALUE)
	case *BreakStatement:
		g.op(v, bytecode.JUMP).Label = g.innermost(v).brk
	case *ContinueStatement:
		g.op(v, bytecode.JUMP).Label = g.innermost(v).cont
	case *AssertStatement:
		ok := g.label()
		g.expr(v.Test)
		g.op(v, bytecode.PUSH_TRUE)
		g.jump(v, bytecode.JUMP_IF_SAME, ok)
		g.op(v, bytecode.PUSH_STRING).Str = fmt.Sprintf("assertion failed: %s", v.Test)
		if v.Explanation != nil {
			g.op(v, bytecode.PUSH_STRING).Str = ": "
			g.op(v, bytecode.CONCAT)
			g.expr(v.Explanation)
			g.op(v, bytecode.CONCAT)
		}
		g.op(v, bytecode.FAIL)
		g.mark(ok)
	case *FunctionDefinition:
		g.unit.Functions = append(g.unit.Functions, g.function(v))
	case *ClassDefinition:
		g.class(v)
	case *FunctionCall:
		g.expr(v)
		if v.Type != g.reg.Void {
			g.op(v, bytecode.POP)
		}
	default:
		g.expr(n)
		g.op(n, bytecode.POP)
	}
}

func (g *generator) innermost(at Node) loop {
	if len(g.frame.loops) == 0 {
		g.fail(at, "%s outside a loop", at)
	}
	return g.frame.loops[len(g.frame.loops)-1]
}

func (g *generator) loopBody(body Node, l loop) {
	g.frame.loops = append(g.frame.loops, l)
	defer func() { g.frame.loops = g.frame.loops[:len(g.frame.loops)-1] }()
	g.statement(body)
}

// branchIfFalse jumps to l unless cond evaluates to true.
func (g *generator) branchIfFalse(cond Node, l bytecode.Label) {
	g.expr(cond)
	g.op(cond, bytecode.PUSH_FALSE)
	g.jump(cond, bytecode.JUMP_IF_SAME, l)
}

func (g *generator) ifStatement(v *IfStatement) {
	end := g.label()
	var bodies []bytecode.Label
	for _, cond := range v.Conds {
		l := g.label()
		bodies = append(bodies, l)
		g.expr(cond)
		g.op(cond, bytecode.PUSH_TRUE)
		g.jump(cond, bytecode.JUMP_IF_SAME, l)
	}
	if v.Else != nil {
		g.statement(v.Else)
	}
	g.jump(v, bytecode.JUMP, end)
	for i, body := range v.Bodies {
		g.mark(bodies[i])
		g.statement(body)
		g.jump(v, bytecode.JUMP, end)
	}
	g.mark(end)
}

// forEach walks lists and strings by index. Maps are walked through their
// key list, and a single loop variable gets the values.
func (g *generator) forEach(v *ForEachStatement) {
	isMap := v.ExprType != nil && v.ExprType.IsInstantiated() && v.ExprType.Template().Equal(g.reg.Map)

	coll, keys, index := g.hidden(), -1, g.hidden()
	g.expr(v.Expr)
	g.op(v, bytecode.STORE).Int = coll
	if isMap {
		keys = g.hidden()
		g.op(v, bytecode.LOAD).Int = coll
		g.op(v, bytecode.INVOKE).Str = "keys"
		g.op(v, bytecode.STORE).Int = keys
	} else {
		keys = coll
	}
	g.op(v, bytecode.PUSH_INT).Str = "0"
	g.op(v, bytecode.STORE).Int = index

	for _, lv := range v.Vars {
		g.allocate(lv)
	}

	head, cont, brk := g.label(), g.label(), g.label()
	g.mark(head)
	g.op(v, bytecode.LOAD).Int = index
	g.op(v, bytecode.LOAD).Int = keys
	g.op(v, bytecode.INVOKE).Str = "length"
	cmp := g.op(v, bytecode.JUMP_IF_CMP)
	cmp.Int, cmp.Label = int(bytecode.CondGE), brk

	var key, value *VariableDefinition
	if len(v.Vars) == 2 {
		key, value = v.Vars[0], v.Vars[1]
	} else {
		value = v.Vars[0]
	}
	getItem := func(from int, slot int) {
		g.op(v, bytecode.LOAD).Int = from
		g.op(v, bytecode.LOAD).Int = slot
		in := g.op(v, bytecode.INVOKE)
		in.Str, in.Int = "__get_item__", 1
	}
	if isMap {
		keySlot := g.hidden()
		getItem(keys, index)
		g.op(v, bytecode.STORE).Int = keySlot
		if key != nil {
			g.op(v, bytecode.LOAD).Int = keySlot
			g.store(v, key.ID)
		}
		getItem(coll, keySlot)
		g.store(v, value.ID)
	} else {
		if key != nil {
			g.op(v, bytecode.LOAD).Int = index
			g.store(v, key.ID)
		}
		getItem(coll, index)
		g.store(v, value.ID)
	}

	g.loopBody(v.Body, loop{cont: cont, brk: brk})
	g.mark(cont)
	g.op(v, bytecode.LOAD).Int = index
	g.op(v, bytecode.INVOKE).Str = "increment"
	g.op(v, bytecode.STORE).Int = index
	g.jump(v, bytecode.JUMP, head)
	g.mark(brk)
}

// expr generates n so that it leaves exactly one value on the stack.
func (g *generator) expr(n Node) {
	switch v := n.(type) {
	case *Constant:
		g.constant(v)
	case *VariableName:
		g.load(v, v.Decl)
	case *VariableDefinition:
		g.allocate(v)
		if v.Init != nil {
			g.expr(v.Init)
		} else {
			g.op(v, bytecode.PUSH_NULL)
		}
		g.op(v, bytecode.DUP)
		g.store(v, v.ID)
	case *BinaryOperator:
		g.operator(v)
	case *FunctionCall:
		g.call(v)
	case *ListLiteral:
		g.op(v, bytecode.NEW_LIST)
		for _, e := range v.Elems {
			g.expr(e)
			g.op(e, bytecode.APPEND)
		}
	case *MapLiteral:
		g.op(v, bytecode.NEW_MAP)
		for i := range v.Keys {
			g.expr(v.Keys[i])
			g.expr(v.Values[i])
			g.op(v.Keys[i], bytecode.PUT)
		}
	default:
		g.fail(n, "%T isn't an expression", n)
	}
}

func (g *generator) constant(c *Constant) {
	switch value := c.Value.(type) {
	case nil:
		g.op(c, bytecode.PUSH_NULL)
	case bool:
		if value {
			g.op(c, bytecode.PUSH_TRUE)
		} else {
			g.op(c, bytecode.PUSH_FALSE)
		}
	case *numeric.Integer:
		g.op(c, bytecode.PUSH_INT).Str = value.String()
	case float64:
		g.op(c, bytecode.PUSH_REAL).Real = value
	case string:
		g.op(c, bytecode.PUSH_STRING).Str = value
	default:
		g.fail(c, "unknown constant %v", value)
	}
}

// materialize turns a conditional jump into a boolean: it's emitted after
// the operands, and jumps to the true case.
func (g *generator) materialize(at Node, op bytecode.Op, cond bytecode.Cond, whenTaken bool) {
	taken, done := g.label(), g.label()
	in := g.op(at, op)
	in.Int, in.Label = int(cond), taken
	push := func(b bool) {
		if b {
			g.op(at, bytecode.PUSH_TRUE)
		} else {
			g.op(at, bytecode.PUSH_FALSE)
		}
	}
	push(!whenTaken)
	g.jump(at, bytecode.JUMP, done)
	g.mark(taken)
	push(whenTaken)
	g.mark(done)
}

func (g *generator) arithmetic(b *BinaryOperator, op types.Op, t *Type) {
	if op == types.PLUS && t == g.reg.String {
		g.op(b, bytecode.CONCAT)
		return
	}
	name, ok := methodNames[op]
	if !ok {
		g.fail(b, "no method for operator %s", op)
	}
	in := g.op(b, bytecode.INVOKE)
	in.Str = name
	if !op.IsUnary() {
		in.Int = 1
	}
}

func (g *generator) operator(b *BinaryOperator) {
	switch b.Op {
	case types.L_NOT:
		g.expr(b.Lhs)
		g.op(b, bytecode.PUSH_TRUE)
		g.materialize(b, bytecode.JUMP_IF_SAME, 0, false)
	case types.L_AND:
		rhs, done := g.label(), g.label()
		g.expr(b.Lhs)
		g.op(b, bytecode.PUSH_TRUE)
		g.jump(b, bytecode.JUMP_IF_SAME, rhs)
		g.op(b, bytecode.PUSH_FALSE)
		g.jump(b, bytecode.JUMP, done)
		g.mark(rhs)
		g.expr(b.Rhs)
		g.mark(done)
	case types.L_OR:
		short, done := g.label(), g.label()
		g.expr(b.Lhs)
		g.op(b, bytecode.PUSH_TRUE)
		g.jump(b, bytecode.JUMP_IF_SAME, short)
		g.expr(b.Rhs)
		g.jump(b, bytecode.JUMP, done)
		g.mark(short)
		g.op(b, bytecode.PUSH_TRUE)
		g.mark(done)
	case types.EQ, types.NE:
		g.expr(b.Lhs)
		g.expr(b.Rhs)
		g.materialize(b, bytecode.JUMP_IF_EQUAL, 0, b.Op == types.EQ)
	case types.LT, types.LE, types.GT, types.GE:
		g.expr(b.Lhs)
		g.expr(b.Rhs)
		g.materialize(b, bytecode.JUMP_IF_CMP, conds[b.Op], true)
	case types.PRE_INCREMENT, types.PRE_DECREMENT, types.POST_INCREMENT, types.POST_DECREMENT:
		id := g.target(b.Lhs)
		post := b.Op == types.POST_INCREMENT || b.Op == types.POST_DECREMENT
		method := "increment"
		if b.Op == types.PRE_DECREMENT || b.Op == types.POST_DECREMENT {
			method = "decrement"
		}
		g.load(b.Lhs, id)
		if post {
			g.op(b, bytecode.DUP)
		}
		g.op(b, bytecode.INVOKE).Str = method
		if !post {
			g.op(b, bytecode.DUP)
		}
		g.store(b, id)
	case types.ASSIGN:
		id := g.target(b.Lhs)
		g.expr(b.Rhs)
		g.op(b, bytecode.DUP)
		g.store(b, id)
	default:
		if b.Op.IsAssignment() {
			id := g.target(b.Lhs)
			g.load(b.Lhs, id)
			g.expr(b.Rhs)
			g.arithmetic(b, b.Op.Underlying(), b.Type)
			g.op(b, bytecode.DUP)
			g.store(b, id)
			return
		}
		g.expr(b.Lhs)
		if b.Rhs != nil {
			g.expr(b.Rhs)
		}
		g.arithmetic(b, b.Op, b.Type)
	}
}

// receiver pushes the instance a method is called on, which is "this" when
// the call has none.
func (g *generator) receiver(call *FunctionCall) {
	if call.Instance != nil {
		g.expr(call.Instance)
		return
	}
	g.op(call, bytecode.LOAD).Int = 0
}

func (g *generator) call(call *FunctionCall) {
	f := g.st.Decls.Func(call.Target)
	if f == nil {
		g.fail(call, "call to %q was never resolved", call.Name)
	}
	args := func() {
		for _, a := range call.Args {
			g.expr(a)
		}
	}
	emit := func(op bytecode.Op, name string) {
		in := g.op(call, op)
		in.Str, in.Int = name, len(call.Args)
	}

	switch {
	case f.Builtin && (f.Class == nil || f.Constructor):
		args()
		emit(bytecode.CALL_BUILTIN, f.Name)
	case f.Builtin:
		g.receiver(call)
		args()
		emit(bytecode.INVOKE, f.Name)
	case f.Constructor:
		g.op(call, bytecode.NEW).Str = f.Class.Name()
		g.op(call, bytecode.DUP)
		args()
		emit(bytecode.CALL_METHOD, f.Name)
	case f.IsMethod():
		g.receiver(call)
		args()
		emit(bytecode.CALL_METHOD, f.Name)
	default:
		args()
		emit(bytecode.CALL, g.funcName(f.ID))
	}
}

// function generates f in a frame of its own. Methods get "this" in slot 0
// and every function's parameters follow in order.
func (g *generator) function(f *FunctionDefinition) *bytecode.Function {
	method := f.IsMethod() || f.Constructor
	name := f.Name
	if !method {
		name = g.funcName(f.ID)
	}
	bf := &bytecode.Function{Name: name, Params: len(f.Params), Method: method}

	saved := g.frame
	g.frame = &frame{fn: bf, slots: make(map[VarID]int)}
	defer func() { g.frame = saved }()

	if method {
		g.hidden()
	}
	for _, p := range f.Params {
		g.allocate(p)
	}
	if f.Body != nil {
		g.statement(f.Body)
	}
	if f.ReturnType == nil || f.ReturnType == g.reg.Void || f.Constructor {
		g.op(f, bytecode.RETURN)
	} else {
		g.op(f, bytecode.PUSH_NULL)
		g.op(f, bytecode.RETURN_VALUE)
	}
	return bf
}

func (g *generator) class(c *ClassDefinition) {
	bc := &bytecode.Class{Name: c.Name}
	if s := c.Type.Super(); s != nil && s.IsUserDefined() {
		bc.Super = s.Name()
	}

	init := &bytecode.Function{Name: InitFields, Method: true}
	saved := g.frame
	g.frame = &frame{fn: init, slots: make(map[VarID]int)}
	g.hidden()
	for _, f := range c.Fields {
		bc.Fields = append(bc.Fields, f.Name)
		if f.Init != nil {
			g.expr(f.Init)
		} else {
			g.op(f, bytecode.PUSH_NULL)
		}
		g.store(f, f.ID)
	}
	g.op(c, bytecode.RETURN)
	g.frame = saved
	bc.Init = init

	for _, m := range c.Methods {
		bf := g.function(m)
		if m.ClassMethod {
			g.unit.Functions = append(g.unit.Functions, bf)
		} else {
			bc.Methods = append(bc.Methods, bf)
		}
	}
	g.unit.Classes = append(g.unit.Classes, bc)
}
