package talc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/pontaoski/talc/bytecode"
	"github.com/pontaoski/talc/testcase"
	"github.com/pontaoski/talc/vm"
	"gopkg.in/yaml.v2"
)

func compileCase(tc testcase.TestCase, file string) (*Result, error) {
	doc := TreeDocument{File: file}
	if err := yaml.Unmarshal([]byte(tc.Input), &doc.Program); err != nil {
		return nil, err
	}
	nodes, err := doc.Decode()
	if err != nil {
		return nil, err
	}
	return Compile(NewRegistry(), nodes, DefaultSettings())
}

func execute(unit *bytecode.Unit, stdin string) (string, error) {
	var out bytes.Buffer
	m, err := vm.New(unit, vm.Options{Stdout: &out, Stdin: strings.NewReader(stdin), Argv0: "test"})
	if err != nil {
		return "", err
	}
	err = m.Run()
	if exit, ok := err.(vm.Exit); ok && exit.Status == 0 {
		err = nil
	}
	return out.String(), err
}

// sameLines compares listings line by line, ignoring indentation.
func sameLines(t *testing.T, got, want string) {
	t.Helper()
	split := func(s string) string {
		var lines []string
		for _, l := range strings.Split(strings.TrimSpace(s), "\n") {
			lines = append(lines, strings.TrimSpace(l))
		}
		return strings.Join(lines, "\n")
	}
	be.Equal(t, split(got), split(want))
}

func TestCases(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		data, err := os.ReadFile(file)
		be.Err(t, err, nil)
		cases, err := testcase.Extract(data)
		be.Err(t, err, nil)

		for _, tc := range cases {
			tc := tc
			name := strings.TrimSuffix(filepath.Base(file), ".md") + "/" + tc.Name
			t.Run(name, func(t *testing.T) {
				result, err := compileCase(tc, filepath.Base(file))
				for _, a := range tc.Assertions {
					if a.Type == testcase.CompileError {
						be.Err(t, err, a.Content)
						return
					}
				}
				be.Err(t, err, nil)

				for _, a := range tc.Assertions {
					switch a.Type {
					case testcase.Execute:
						out, err := execute(result.Unit, tc.Stdin)
						be.Err(t, err, nil)
						be.Equal(t, strings.TrimRight(out, "\n"), a.Content)
					case testcase.RuntimeError:
						_, err := execute(result.Unit, tc.Stdin)
						be.Err(t, err, a.Content)
					case testcase.Simplified:
						var lines []string
						for _, n := range result.Tree {
							lines = append(lines, n.String())
						}
						be.Equal(t, strings.Join(lines, "\n"), a.Content)
					case testcase.Disassembly:
						sameLines(t, bytecode.Listing(result.Unit.Main.Code), a.Content)
					}
				}
			})
		}
	}
}
