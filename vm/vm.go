// Package vm runs the stack machine code in a bytecode.Unit.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/pontaoski/talc/bytecode"
	"github.com/pontaoski/talc/errors"
	"github.com/pontaoski/talc/numeric"
	"github.com/pontaoski/talc/types"
	"github.com/ztrue/tracerr"
)

const maxDepth = 10000

type Options struct {
	Stdout io.Writer
	Stdin  io.Reader
	// Argv0 and Args back the ARGV0 and ARGS constants.
	Argv0 string
	Args  []string
}

// Exit is returned by Run when the program calls exit.
type Exit struct {
	Status int
}

func (e Exit) Error() string {
	return fmt.Sprintf("exit status %d", e.Status)
}

type function struct {
	*bytecode.Function
	labels map[bytecode.Label]int
}

func compile(f *bytecode.Function) *function {
	return &function{Function: f, labels: bytecode.Labels(f.Code)}
}

type Class struct {
	Name    string
	Super   *Class
	Fields  []string
	init    *function
	methods map[string]*function
}

func (c *Class) method(name string) *function {
	for ; c != nil; c = c.Super {
		if m, ok := c.methods[name]; ok {
			return m
		}
	}
	return nil
}

type Machine struct {
	unit      *bytecode.Unit
	opts      Options
	in        *bufio.Reader
	globals   []Value
	functions map[string]*function
	classes   map[string]*Class
	stack     []Value
	depth     int

	// fn and at locate the instruction being executed, for errors.
	fn *function
	at *bytecode.Instr
}

// New prepares unit for running. Classes are linked to their superclasses
// and every function's labels are resolved up front.
func New(unit *bytecode.Unit, opts Options) (*Machine, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	m := &Machine{
		unit:      unit,
		opts:      opts,
		in:        bufio.NewReader(opts.Stdin),
		globals:   make([]Value, unit.Globals),
		functions: make(map[string]*function),
		classes:   make(map[string]*Class),
	}
	for _, f := range unit.Functions {
		m.functions[f.Name] = compile(f)
	}
	for _, c := range unit.Classes {
		class := &Class{Name: c.Name, Fields: c.Fields, methods: make(map[string]*function)}
		if c.Init != nil {
			class.init = compile(c.Init)
		}
		for _, f := range c.Methods {
			class.methods[f.Name] = compile(f)
		}
		m.classes[c.Name] = class
	}
	for _, c := range unit.Classes {
		if c.Super == "" {
			continue
		}
		super, ok := m.classes[c.Super]
		if !ok {
			return nil, tracerr.Wrap(errors.RuntimeError{Msg: fmt.Sprintf("class %s extends unknown class %s", c.Name, c.Super)})
		}
		m.classes[c.Name].Super = super
	}
	return m, nil
}

// Run executes the unit's entry point. A call to exit comes back as Exit.
func (m *Machine) Run() (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch e := r.(type) {
		case Exit:
			err = e
		case errors.RuntimeError:
			err = tracerr.Wrap(e)
		case runtime.Error:
			err = tracerr.Wrap(m.error(e.Error()))
		default:
			panic(r)
		}
	}()

	m.stack, m.depth = nil, 0
	m.invokeFunction(compile(m.unit.Main), nil)
	return nil
}

func (m *Machine) error(msg string) errors.RuntimeError {
	e := errors.RuntimeError{Msg: msg}
	if m.fn != nil {
		e.Function = m.fn.Name
	}
	if m.at != nil {
		e.Location = m.at.Pos
		if e.Location.IsZero() && m.at.Line > 0 {
			e.Location = types.LineSpan(m.unit.SourceFile, m.at.Line)
		}
	}
	return e
}

func (m *Machine) fail(msg string, fmts ...interface{}) {
	panic(m.error(fmt.Sprintf(msg, fmts...)))
}

func (m *Machine) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() Value {
	if len(m.stack) == 0 {
		m.fail("stack underflow")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *Machine) top() Value {
	if len(m.stack) == 0 {
		m.fail("stack underflow")
	}
	return m.stack[len(m.stack)-1]
}

// popN pops n values and returns them in the order they were pushed.
func (m *Machine) popN(n int) []Value {
	if n > len(m.stack) {
		m.fail("stack underflow")
	}
	args := make([]Value, n)
	copy(args, m.stack[len(m.stack)-n:])
	m.stack = m.stack[:len(m.stack)-n]
	return args
}

func (m *Machine) pushResult(v Value, ok bool) {
	if ok {
		m.push(v)
	}
}

func (m *Machine) invokeFunction(f *function, args []Value) (Value, bool) {
	locals := make([]Value, max(f.Locals, len(args)))
	copy(locals, args)
	return m.execute(f, locals)
}

func (m *Machine) invokeMethod(f *function, this *Object, args []Value) (Value, bool) {
	locals := make([]Value, max(f.Locals, len(args)+1))
	locals[0] = this
	copy(locals[1:], args)
	return m.execute(f, locals)
}

func (m *Machine) instantiate(c *Class) *Object {
	obj := &Object{Class: c, Fields: make(map[string]Value)}
	var chain []*Class
	for k := c; k != nil; k = k.Super {
		chain = append(chain, k)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].init != nil {
			m.invokeMethod(chain[i].init, obj, nil)
		}
	}
	return obj
}

func (m *Machine) this(locals []Value) *Object {
	if len(locals) == 0 {
		m.fail("no receiver for field access")
	}
	obj, ok := locals[0].(*Object)
	if !ok {
		m.fail("no receiver for field access")
	}
	return obj
}

func (m *Machine) jump(f *function, l bytecode.Label) int {
	pc, ok := f.labels[l]
	if !ok {
		m.fail("jump to missing label L%d", l)
	}
	return pc
}

// execute runs f in a fresh frame. It reports whether f returned a value.
// A panic leaves fn and at on the failing instruction.
func (m *Machine) execute(f *function, locals []Value) (Value, bool) {
	m.depth++
	savedFn, savedAt := m.fn, m.at
	m.fn = f
	if m.depth > maxDepth {
		m.fail("stack overflow")
	}
	v, ok := m.frame(f, locals)
	m.depth--
	m.fn, m.at = savedFn, savedAt
	return v, ok
}

func (m *Machine) frame(f *function, locals []Value) (Value, bool) {
	base := len(m.stack)
	code := f.Code
	for pc := 0; pc < len(code); {
		in := &code[pc]
		m.fn, m.at = f, in
		pc++

		switch in.Op {
		case bytecode.NOP, bytecode.LABEL:
		case bytecode.PUSH_NULL:
			m.push(nil)
		case bytecode.PUSH_TRUE:
			m.push(True)
		case bytecode.PUSH_FALSE:
			m.push(False)
		case bytecode.PUSH_INT:
			i, err := numeric.Parse(in.Str, 10)
			if err != nil {
				m.fail("%s", err)
			}
			m.push(i)
		case bytecode.PUSH_REAL:
			m.push(Real(in.Real))
		case bytecode.PUSH_STRING:
			m.push(String(in.Str))
		case bytecode.POP:
			m.pop()
		case bytecode.DUP:
			m.push(m.top())
		case bytecode.LOAD:
			m.push(locals[in.Int])
		case bytecode.STORE:
			locals[in.Int] = m.pop()
		case bytecode.LOAD_GLOBAL:
			m.push(m.globals[in.Int])
		case bytecode.STORE_GLOBAL:
			m.globals[in.Int] = m.pop()
		case bytecode.LOAD_BUILTIN:
			m.push(m.constant(in.Str))
		case bytecode.GET_FIELD:
			m.push(m.this(locals).Fields[in.Str])
		case bytecode.SET_FIELD:
			m.this(locals).Fields[in.Str] = m.pop()
		case bytecode.INVOKE:
			args := m.popN(in.Int)
			recv := m.pop()
			m.pushResult(m.invoke(recv, in.Str, args))
		case bytecode.CONCAT:
			rhs, lhs := m.pop(), m.pop()
			m.push(String(ToString(lhs) + ToString(rhs)))
		case bytecode.NEW_LIST:
			m.push(&List{})
		case bytecode.APPEND:
			v := m.pop()
			l := m.top().(*List)
			l.Elems = append(l.Elems, v)
		case bytecode.NEW_MAP:
			m.push(NewMap())
		case bytecode.PUT:
			v, k := m.pop(), m.pop()
			m.top().(*Map).Put(k, v)
		case bytecode.JUMP:
			pc = m.jump(f, in.Label)
		case bytecode.JUMP_IF_SAME:
			rhs, lhs := m.pop(), m.pop()
			if lhs == rhs {
				pc = m.jump(f, in.Label)
			}
		case bytecode.JUMP_IF_EQUAL:
			rhs, lhs := m.pop(), m.pop()
			if Equal(lhs, rhs) {
				pc = m.jump(f, in.Label)
			}
		case bytecode.JUMP_IF_CMP:
			rhs, lhs := m.pop(), m.pop()
			sign, err := Compare(lhs, rhs)
			if err != nil {
				m.fail("%s", err)
			}
			if bytecode.Cond(in.Int).Holds(sign) {
				pc = m.jump(f, in.Label)
			}
		case bytecode.CALL:
			callee, ok := m.functions[in.Str]
			if !ok {
				m.fail("no function %s", in.Str)
			}
			args := m.popN(in.Int)
			m.pushResult(m.invokeFunction(callee, args))
		case bytecode.CALL_METHOD:
			args := m.popN(in.Int)
			recv := m.pop()
			obj, ok := recv.(*Object)
			if !ok {
				m.fail("can't call %s on %s", in.Str, TypeName(recv))
			}
			method := obj.Class.method(in.Str)
			if method == nil {
				m.fail("%s has no method %s", obj.Class.Name, in.Str)
			}
			m.pushResult(m.invokeMethod(method, obj, args))
		case bytecode.CALL_BUILTIN:
			args := m.popN(in.Int)
			m.pushResult(m.builtin(in.Str, args))
		case bytecode.NEW:
			c, ok := m.classes[in.Str]
			if !ok {
				m.fail("no class %s", in.Str)
			}
			m.push(m.instantiate(c))
		case bytecode.RETURN:
			m.stack = m.stack[:base]
			return nil, false
		case bytecode.RETURN_VALUE:
			v := m.pop()
			m.stack = m.stack[:base]
			return v, true
		case bytecode.FAIL:
			m.fail("%s", ToString(m.pop()))
		default:
			m.fail("unknown instruction %s", in.Op)
		}
	}
	m.stack = m.stack[:base]
	return nil, false
}
