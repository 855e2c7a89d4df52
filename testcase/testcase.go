// Package testcase extracts compiler test cases from Markdown documents.
//
// A case starts at a heading "Test: <name>" and owns the fenced code
// blocks up to the next such heading. A case has one talc-tree fence
// holding the program's node list and at least one assertion fence.
package testcase

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const InputFence = "talc-tree"

type AssertionType string

const (
	// Execute holds the expected output of running the program.
	Execute AssertionType = "execute"
	// CompileError holds text the compile error must contain.
	CompileError AssertionType = "compile-error"
	// RuntimeError holds text the runtime error must contain.
	RuntimeError AssertionType = "runtime-error"
	// Simplified holds the simplified program, one top-level node per line.
	Simplified AssertionType = "simplified"
	// Disassembly holds the listing of the entry point.
	Disassembly AssertionType = "disasm"
	// Stdin is fed to the program. It isn't checked.
	Stdin AssertionType = "input"
)

var assertionTypes = map[string]AssertionType{
	string(Execute):      Execute,
	string(CompileError): CompileError,
	string(RuntimeError): RuntimeError,
	string(Simplified):   Simplified,
	string(Disassembly):  Disassembly,
	string(Stdin):        Stdin,
}

type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

type TestCase struct {
	Name       string
	Input      string
	Line       int
	Stdin      string
	Assertions []Assertion
}

// Extract returns every test case in a Markdown document.
func Extract(markdown []byte) ([]TestCase, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	var cases []TestCase
	var current *TestCase
	finish := func() error {
		if current == nil {
			return nil
		}
		if current.Input == "" {
			return fmt.Errorf("test %q has no %s fence", current.Name, InputFence)
		}
		if len(current.Assertions) == 0 {
			return fmt.Errorf("test %q has no assertions", current.Name)
		}
		cases = append(cases, *current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := textOf(n, markdown)
			if !strings.HasPrefix(heading, "Test: ") {
				break
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			current = &TestCase{Name: strings.TrimPrefix(heading, "Test: ")}
		case *ast.FencedCodeBlock:
			lang := string(n.Language(markdown))
			line := lineOf(n, markdown)
			if lang == "" {
				break
			}
			_, isAssertion := assertionTypes[lang]
			if lang != InputFence && !isAssertion {
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence %q", line, lang)
			}
			if current == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence outside a test", line, lang)
			}
			content := contentOf(n, markdown)
			switch {
			case lang == InputFence:
				if current.Input != "" {
					return ast.WalkStop, fmt.Errorf("line %d: second %s fence in test %q", line, lang, current.Name)
				}
				current.Input, current.Line = content, line
			case lang == string(Stdin):
				current.Stdin = content
			default:
				current.Assertions = append(current.Assertions, Assertion{
					Type:    assertionTypes[lang],
					Content: strings.TrimRight(content, "\n"),
					Line:    line,
				})
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

func textOf(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func contentOf(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:start], []byte("\n")) + 1
}
