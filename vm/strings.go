package vm

import (
	"html"
	"math"
	"math/big"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pontaoski/talc/numeric"
)

func (m *Machine) real(v Value) float64 {
	r, ok := v.(Real)
	if !ok {
		m.fail("expected a real, got %s", TypeName(v))
	}
	return float64(r)
}

func (m *Machine) realMethod(r Real, name string, args []Value) Value {
	f := float64(r)
	arg := func() float64 {
		m.argc(name, args, 1)
		return m.real(args[0])
	}
	switch name {
	case "add":
		return Real(f + arg())
	case "subtract":
		return Real(f - arg())
	case "multiply":
		return Real(f * arg())
	case "divide":
		return Real(f / arg())
	case "pow":
		return Real(math.Pow(f, arg()))
	case "negate":
		return Real(-f)
	case "increment":
		return Real(f + 1)
	case "decrement":
		return Real(f - 1)
	case "abs":
		return Real(math.Abs(f))
	case "log":
		return Real(math.Log(f) / math.Log(arg()))
	case "log10":
		return Real(math.Log10(f))
	case "logE":
		return Real(math.Log(f))
	case "signum":
		switch {
		case f > 0:
			return Real(1)
		case f < 0:
			return Real(-1)
		}
		return r
	case "sqrt":
		return Real(math.Sqrt(f))
	case "to_i":
		if math.IsNaN(f) || math.IsInf(f, 0) {
			m.fail("can't convert %s to an int", ToString(r))
		}
		i, _ := big.NewFloat(f).Int(nil)
		return numeric.FromBig(i)
	case "to_r":
		return r
	}
	m.fail("real has no method %s", name)
	return nil
}

func (m *Machine) regexp(pattern string) *regexp.Regexp {
	re, err := regexp.Compile(pattern)
	if err != nil {
		m.fail("bad pattern %q: %s", pattern, err)
	}
	return re
}

func mapFirst(s string, fn func(rune) rune) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(fn(r)) + s[size:]
}

func (m *Machine) stringMethod(s string, name string, args []Value) Value {
	arg := func(i int) string {
		m.argc(name, args, i+1)
		return m.str(args[i])
	}
	twoArgs := func() (string, string) {
		m.argc(name, args, 2)
		return m.str(args[0]), m.str(args[1])
	}
	switch name {
	case "contains":
		return Bool(strings.Contains(s, arg(0)))
	case "ends_with":
		return Bool(strings.HasSuffix(s, arg(0)))
	case "starts_with":
		return Bool(strings.HasPrefix(s, arg(0)))
	case "escape_html":
		return String(html.EscapeString(s))
	case "__get_item__":
		m.argc(name, args, 1)
		runes := []rune(s)
		return String(runes[m.index(args[0], len(runes))])
	case "gsub":
		pattern, repl := twoArgs()
		return String(m.regexp(pattern).ReplaceAllString(s, repl))
	case "sub":
		pattern, repl := twoArgs()
		re := m.regexp(pattern)
		loc := re.FindStringSubmatchIndex(s)
		if loc == nil {
			return String(s)
		}
		expanded := re.ExpandString(nil, repl, s, loc)
		return String(s[:loc[0]] + string(expanded) + s[loc[1]:])
	case "replace":
		old, repl := twoArgs()
		return String(strings.ReplaceAll(s, old, repl))
	case "lc":
		return String(strings.ToLower(s))
	case "uc":
		return String(strings.ToUpper(s))
	case "lc_first":
		return String(mapFirst(s, unicode.ToLower))
	case "uc_first":
		return String(mapFirst(s, unicode.ToUpper))
	case "length":
		return numeric.New(int64(utf8.RuneCountInString(s)))
	case "match":
		groups := m.regexp(arg(0)).FindStringSubmatch(s)
		if groups == nil {
			return nil
		}
		return &Match{Groups: groups}
	case "split":
		parts := m.regexp(arg(0)).Split(s, -1)
		for len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		l := &List{}
		for _, p := range parts {
			l.Elems = append(l.Elems, String(p))
		}
		return l
	case "to_i":
		i, err := numeric.Parse(strings.TrimSpace(s), 10)
		if err != nil {
			m.fail("%s", err)
		}
		return i
	case "to_r":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			m.fail("%q isn't a real", s)
		}
		return Real(f)
	case "trim":
		return String(strings.TrimSpace(s))
	}
	m.fail("string has no method %s", name)
	return nil
}

// sorted returns a sorted copy of l. Numbers and strings sort by value,
// anything else by its string form.
func (l *List) sorted() *List {
	r := &List{Elems: append([]Value(nil), l.Elems...)}
	sort.SliceStable(r.Elems, func(i, j int) bool {
		c, err := Compare(r.Elems[i], r.Elems[j])
		if err != nil {
			return ToString(r.Elems[i]) < ToString(r.Elems[j])
		}
		return c < 0
	})
	return r
}

func realpath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
