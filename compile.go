package talc

import (
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/pontaoski/talc/bytecode"
	"github.com/ztrue/tracerr"
)

// Settings controls a compilation. Debug is a set of flag letters:
// 'i' logs inferred variable types, 't' logs pass timings and 'S' logs the
// generated code.
type Settings struct {
	UnitName string
	Simplify bool
	Debug    string
}

func DefaultSettings() *Settings {
	return &Settings{UnitName: "main", Simplify: true}
}

func (s *Settings) Debugging(flag rune) bool {
	return s != nil && strings.ContainsRune(s.Debug, flag)
}

// catch turns a panicking error back into a return value. Anything that
// isn't a talc error, runtime errors included, keeps unwinding.
func catch(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if _, ok := r.(runtime.Error); ok {
		panic(r)
	}
	rerr, ok := r.(error)
	if !ok {
		panic(r)
	}
	*err = tracerr.Wrap(rerr)
}

type Result struct {
	Symbols *SymbolTable
	// Tree is the program as generated, after simplification if enabled.
	Tree []Node
	Unit *bytecode.Unit
}

// Compile runs every pass in order. The first failing pass stops the
// compilation and nothing partial is returned.
func Compile(reg *Registry, nodes []Node, settings *Settings) (*Result, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	timed := func(pass string, fn func() error) error {
		start := time.Now()
		err := fn()
		if settings.Debugging('t') {
			log.Printf("%s took %s", pass, time.Since(start))
		}
		return err
	}

	var st *SymbolTable
	err := timed("bind", func() (err error) {
		st, err = Bind(reg, nodes)
		return
	})
	if err != nil {
		return nil, err
	}

	err = timed("annotate", func() error {
		return Annotate(st, nodes, settings)
	})
	if err != nil {
		return nil, err
	}

	tree := nodes
	if settings.Simplify {
		err = timed("simplify", func() (err error) {
			tree, err = Simplify(reg, nodes)
			return
		})
		if err != nil {
			return nil, err
		}
	}

	var unit *bytecode.Unit
	err = timed("generate", func() (err error) {
		unit, err = Generate(st, tree, settings)
		return
	})
	if err != nil {
		return nil, err
	}
	if settings.Debugging('S') {
		log.Printf("generated code:\n%s", unit.Disassemble())
	}

	return &Result{Symbols: st, Tree: tree, Unit: unit}, nil
}
