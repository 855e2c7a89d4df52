package vm

import (
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pontaoski/talc/numeric"
)

func (m *Machine) constant(name string) Value {
	switch name {
	case "ARGV0":
		return String(m.opts.Argv0)
	case "ARGS":
		l := &List{}
		for _, a := range m.opts.Args {
			l.Elems = append(l.Elems, String(a))
		}
		return l
	case "FILE_SEPARATOR":
		return String(os.PathSeparator)
	case "PATH_SEPARATOR":
		return String(os.PathListSeparator)
	}
	m.fail("no built-in constant %s", name)
	return nil
}

func (m *Machine) argc(name string, args []Value, n int) {
	if len(args) != n {
		m.fail("%s takes %d arguments, got %d", name, n, len(args))
	}
}

func (m *Machine) integer(v Value) *numeric.Integer {
	i, ok := v.(*numeric.Integer)
	if !ok {
		m.fail("expected an int, got %s", TypeName(v))
	}
	return i
}

func (m *Machine) smallInt(v Value) int {
	i, ok := m.integer(v).Int64()
	if !ok {
		m.fail("%s is too large", v)
	}
	return int(i)
}

func (m *Machine) str(v Value) string {
	s, ok := v.(String)
	if !ok {
		m.fail("expected a string, got %s", TypeName(v))
	}
	return string(s)
}

func (m *Machine) list(v Value) *List {
	l, ok := v.(*List)
	if !ok {
		m.fail("expected a list, got %s", TypeName(v))
	}
	return l
}

// run starts command with its output going to the program's stdout and
// returns the exit status, or -1 if it couldn't be run.
func (m *Machine) run(cmd *exec.Cmd) Value {
	cmd.Stdin = m.in
	cmd.Stdout = m.opts.Stdout
	cmd.Stderr = m.opts.Stdout
	err := cmd.Run()
	if exit, ok := err.(*exec.ExitError); ok {
		return numeric.New(int64(exit.ExitCode()))
	}
	if err != nil {
		return numeric.MinusOne
	}
	return numeric.Zero
}

// builtin calls a global library function. It reports whether the
// function returns a value.
func (m *Machine) builtin(name string, args []Value) (Value, bool) {
	switch name {
	case "print", "puts":
		var b strings.Builder
		for _, a := range args {
			b.WriteString(ToString(a))
		}
		if name == "puts" {
			b.WriteString("\n")
		}
		if _, err := io.WriteString(m.opts.Stdout, b.String()); err != nil {
			m.fail("%s", err)
		}
		return nil, false
	case "exit":
		m.argc(name, args, 1)
		panic(Exit{Status: m.smallInt(args[0])})
	case "getenv":
		m.argc(name, args, 1)
		v, ok := os.LookupEnv(m.str(args[0]))
		if !ok {
			return nil, true
		}
		return String(v), true
	case "gets":
		line, err := m.in.ReadString('\n')
		if err != nil && line == "" {
			return nil, true
		}
		return String(strings.TrimRight(line, "\r\n")), true
	case "backquote":
		m.argc(name, args, 1)
		out, err := exec.Command("bash", "-c", m.str(args[0])).Output()
		if _, ok := err.(*exec.ExitError); err != nil && !ok {
			m.fail("%s", err)
		}
		return String(strings.TrimSuffix(string(out), "\n")), true
	case "shell":
		m.argc(name, args, 1)
		return m.run(exec.Command("bash", "-c", m.str(args[0]))), true
	case "system":
		m.argc(name, args, 1)
		l := m.list(args[0])
		if len(l.Elems) == 0 {
			m.fail("system needs a command")
		}
		argv := make([]string, len(l.Elems))
		for i, e := range l.Elems {
			argv[i] = ToString(e)
		}
		return m.run(exec.Command(argv[0], argv[1:]...)), true
	case "time_ms":
		return numeric.New(time.Now().UnixNano() / int64(time.Millisecond)), true
	case "list":
		return &List{}, true
	case "map":
		return NewMap(), true
	case "file":
		m.argc(name, args, 1)
		return &File{Path: m.str(args[0])}, true
	}
	m.fail("no built-in function %s", name)
	return nil, false
}

// invoke dispatches a built-in method. Every value answers to_s.
func (m *Machine) invoke(recv Value, name string, args []Value) (Value, bool) {
	if name == "to_s" {
		return String(ToString(recv)), true
	}
	switch r := recv.(type) {
	case nil:
		m.fail("can't call %s on null", name)
	case *numeric.Integer:
		return m.intMethod(r, name, args), true
	case Real:
		return m.realMethod(r, name, args), true
	case String:
		return m.stringMethod(string(r), name, args), true
	case *List:
		return m.listMethod(r, name, args), true
	case *Map:
		return m.mapMethod(r, name, args), true
	case *File:
		return m.fileMethod(r, name, args)
	case *Match:
		if name == "group" {
			m.argc(name, args, 1)
			n := m.smallInt(args[0])
			if n < 0 || n >= len(r.Groups) {
				return nil, true
			}
			return String(r.Groups[n]), true
		}
	}
	m.fail("%s has no method %s", TypeName(recv), name)
	return nil, false
}

func (m *Machine) check(v *numeric.Integer, err error) Value {
	if err != nil {
		m.fail("%s", err)
	}
	return v
}

func (m *Machine) intMethod(i *numeric.Integer, name string, args []Value) Value {
	arg := func() *numeric.Integer {
		m.argc(name, args, 1)
		return m.integer(args[0])
	}
	switch name {
	case "add":
		return i.Add(arg())
	case "subtract":
		return i.Sub(arg())
	case "multiply":
		return i.Mul(arg())
	case "divide":
		return m.check(i.Div(arg()))
	case "mod":
		return m.check(i.Mod(arg()))
	case "pow":
		return m.check(i.Pow(arg()))
	case "shift_left":
		return m.check(i.Shl(arg()))
	case "shift_right":
		return m.check(i.Shr(arg()))
	case "and":
		return i.And(arg())
	case "or":
		return i.Or(arg())
	case "xor":
		return i.Xor(arg())
	case "not":
		return i.Not()
	case "negate":
		return i.Neg()
	case "factorial":
		return m.check(i.Factorial())
	case "increment":
		return i.Inc()
	case "decrement":
		return i.Dec()
	case "abs":
		return i.Abs()
	case "signum":
		return numeric.New(int64(i.Signum()))
	case "to_base":
		s, err := i.ToBase(arg())
		if err != nil {
			m.fail("%s", err)
		}
		return String(s)
	case "to_char":
		return String(i.ToChar())
	case "to_i":
		return i
	case "to_r":
		f, err := i.Float64()
		if err != nil {
			m.fail("%s", err)
		}
		return Real(f)
	}
	m.fail("int has no method %s", name)
	return nil
}

func (m *Machine) index(v Value, length int) int {
	i := m.smallInt(v)
	if i < 0 || i >= length {
		m.fail("index %d out of range for length %d", i, length)
	}
	return i
}

func (m *Machine) listMethod(l *List, name string, args []Value) Value {
	switch name {
	case "add_all":
		m.argc(name, args, 1)
		l.Elems = append(l.Elems, m.list(args[0]).Elems...)
		return l
	case "clear":
		l.Elems = nil
		return l
	case "contains":
		m.argc(name, args, 1)
		return Bool(l.find(args[0]) >= 0)
	case "__get_item__":
		m.argc(name, args, 1)
		return l.Elems[m.index(args[0], len(l.Elems))]
	case "__set_item__":
		m.argc(name, args, 2)
		l.Elems[m.index(args[0], len(l.Elems))] = args[1]
		return args[1]
	case "is_empty":
		return Bool(len(l.Elems) == 0)
	case "join":
		m.argc(name, args, 1)
		return String(join(l, m.str(args[0])))
	case "length":
		return numeric.New(int64(len(l.Elems)))
	case "peek_back":
		return l.Elems[m.index(numeric.New(int64(len(l.Elems)-1)), len(l.Elems))]
	case "peek_front":
		return l.Elems[m.index(numeric.Zero, len(l.Elems))]
	case "pop_back":
		i := m.index(numeric.New(int64(len(l.Elems)-1)), len(l.Elems))
		v := l.Elems[i]
		l.Elems = l.Elems[:i]
		return v
	case "pop_front":
		m.index(numeric.Zero, len(l.Elems))
		v := l.Elems[0]
		l.Elems = l.Elems[1:]
		return v
	case "push_back":
		m.argc(name, args, 1)
		l.Elems = append(l.Elems, args[0])
		return l
	case "push_front":
		m.argc(name, args, 1)
		l.Elems = append([]Value{args[0]}, l.Elems...)
		return l
	case "remove_all":
		m.argc(name, args, 1)
		others := m.list(args[0])
		var kept []Value
		for _, e := range l.Elems {
			if others.find(e) < 0 {
				kept = append(kept, e)
			}
		}
		l.Elems = kept
		return l
	case "remove_at":
		m.argc(name, args, 1)
		i := m.index(args[0], len(l.Elems))
		l.Elems = append(l.Elems[:i], l.Elems[i+1:]...)
		return l
	case "remove_first":
		m.argc(name, args, 1)
		i := l.find(args[0])
		if i < 0 {
			return False
		}
		l.Elems = append(l.Elems[:i], l.Elems[i+1:]...)
		return True
	case "reverse":
		r := &List{Elems: make([]Value, len(l.Elems))}
		for i, e := range l.Elems {
			r.Elems[len(l.Elems)-1-i] = e
		}
		return r
	case "sort":
		return l.sorted()
	case "uniq":
		r := &List{}
		for _, e := range l.Elems {
			if r.find(e) < 0 {
				r.Elems = append(r.Elems, e)
			}
		}
		return r
	}
	m.fail("list has no method %s", name)
	return nil
}

func (l *List) find(v Value) int {
	for i, e := range l.Elems {
		if Equal(e, v) {
			return i
		}
	}
	return -1
}

func (m *Machine) mapMethod(mp *Map, name string, args []Value) Value {
	switch name {
	case "clear":
		mp.Clear()
		return mp
	case "__get_item__":
		m.argc(name, args, 1)
		v, _ := mp.Get(args[0])
		return v
	case "__set_item__":
		m.argc(name, args, 2)
		mp.Put(args[0], args[1])
		return args[1]
	case "has_key":
		m.argc(name, args, 1)
		_, ok := mp.Get(args[0])
		return Bool(ok)
	case "has_value":
		m.argc(name, args, 1)
		return Bool(mp.Values().find(args[0]) >= 0)
	case "keys":
		return mp.Keys()
	case "values":
		return mp.Values()
	case "length":
		return numeric.New(int64(mp.Len()))
	case "remove":
		m.argc(name, args, 1)
		mp.Remove(args[0])
		return mp
	}
	m.fail("map has no method %s", name)
	return nil
}

func (m *Machine) fileMethod(f *File, name string, args []Value) (Value, bool) {
	content := func() []byte {
		m.argc(name, args, 1)
		return []byte(m.str(args[0]))
	}
	switch name {
	case "append":
		h, err := os.OpenFile(f.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			m.fail("%s", err)
		}
		defer h.Close()
		if _, err := h.Write(content()); err != nil {
			m.fail("%s", err)
		}
		return nil, false
	case "write":
		if err := os.WriteFile(f.Path, content(), 0666); err != nil {
			m.fail("%s", err)
		}
		return nil, false
	case "exists":
		_, err := os.Stat(f.Path)
		return Bool(err == nil), true
	case "is_directory":
		fi, err := os.Stat(f.Path)
		return Bool(err == nil && fi.IsDir()), true
	case "is_executable":
		fi, err := os.Stat(f.Path)
		return Bool(err == nil && !fi.IsDir() && fi.Mode()&0111 != 0), true
	case "mkdir":
		return Bool(os.Mkdir(f.Path, 0777) == nil), true
	case "mkdir_p":
		return Bool(os.MkdirAll(f.Path, 0777) == nil), true
	case "read":
		data, err := os.ReadFile(f.Path)
		if err != nil {
			m.fail("%s", err)
		}
		return String(data), true
	case "read_lines":
		data, err := os.ReadFile(f.Path)
		if err != nil {
			m.fail("%s", err)
		}
		l := &List{}
		text := strings.TrimSuffix(string(data), "\n")
		if text == "" {
			return l, true
		}
		for _, line := range strings.Split(text, "\n") {
			l.Elems = append(l.Elems, String(line))
		}
		return l, true
	case "realpath":
		p, err := realpath(f.Path)
		if err != nil {
			m.fail("%s", err)
		}
		return &File{Path: p}, true
	}
	m.fail("file has no method %s", name)
	return nil, false
}
