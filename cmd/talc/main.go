package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/pontaoski/talc"
	"github.com/pontaoski/talc/errors"
	"github.com/pontaoski/talc/vm"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"
)

var compileFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "simplify",
		Value: true,
		Usage: "fold constants before generating code",
	},
	&cli.StringFlag{
		Name:  "debug",
		Usage: "debug flags: i (inferred types), t (pass timings), S (generated code)",
	},
}

// settingsFor merges the module information with the command's flags.
func settingsFor(c *cli.Context) (*talcModule, *talc.Settings, error) {
	mod, err := loadModule()
	if err != nil {
		return nil, nil, err
	}
	s := mod.settings()
	if c.IsSet("simplify") {
		s.Simplify = c.Bool("simplify")
	}
	if c.IsSet("debug") {
		s.Debug = c.String("debug")
	}
	return mod, s, nil
}

// report prints compile and runtime errors as diagnostics and everything
// else with the stack it was wrapped at.
func report(err error) {
	switch tracerr.Unwrap(err).(type) {
	case errors.ResolutionError, errors.RedefinitionError, errors.TypeDeclarationError,
		errors.TypeMismatch, errors.ArgumentError, errors.RuntimeError, errors.DecodeError:
		fmt.Fprintf(os.Stderr, "error: %s\n", tracerr.Unwrap(err))
	default:
		tracerr.PrintSourceColor(err)
	}
	os.Exit(1)
}

func main() {
	app := &cli.App{
		Name:  "talc",
		Usage: "talc compiler",
		ExitErrHandler: func(context *cli.Context, err error) {
			if err != nil {
				log.Fatalf("error with talc: %s", err)
			}
		},
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "init a directory",
				ArgsUsage: "<package> [source]",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						fmt.Printf("no module name provided")
						os.Exit(1)
					}
					source := c.Args().Get(1)
					if source == "" {
						source = name + ".yaml"
					}
					return writeModule(&talcModule{Package: name, Source: source})
				},
			},
			{
				Name:  "types",
				Usage: "describe the built-in types",
				Action: func(c *cli.Context) error {
					reg := talc.NewRegistry()
					for _, t := range reg.Classes() {
						fmt.Println(reg.DescribeClass(t))
					}
					return nil
				},
			},
			{
				Name:      "check",
				Usage:     "resolve and type check a tree document",
				ArgsUsage: "[source]",
				Flags:     compileFlags,
				Action: func(c *cli.Context) error {
					mod, settings, err := settingsFor(c)
					if err != nil {
						return err
					}
					path, err := mod.source(c.Args().First())
					if err != nil {
						return err
					}
					nodes, err := readTree(path)
					if err != nil {
						report(err)
					}
					st, err := talc.Bind(talc.NewRegistry(), nodes)
					if err != nil {
						report(err)
					}
					err = talc.Annotate(st, nodes, settings)
					if err != nil {
						report(err)
					}
					fmt.Printf("%s: ok\n", path)
					return nil
				},
			},
			{
				Name:      "build",
				Usage:     "build a shared object holding the compiled unit",
				ArgsUsage: "[source]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name: "output",
					},
					&cli.BoolFlag{
						Name:  "dump",
						Value: false,
						Usage: "print the LLVM module instead of building it",
					},
				}, compileFlags...),
				Action: func(c *cli.Context) error {
					mod, settings, err := settingsFor(c)
					if err != nil {
						return err
					}
					path, err := mod.source(c.Args().First())
					if err != nil {
						return err
					}

					result, err := compileFile(path, settings)
					if err != nil {
						report(err)
					}
					m, err := talc.EmitModule(result.Unit)
					if err != nil {
						report(err)
					}
					module := m.String()

					if c.Bool("dump") {
						println(module)
						os.Exit(0)
					}

					out := c.String("output")
					if out == "" {
						out = settings.UnitName + ".so"
					}

					fi, err := ioutil.TempFile("", "*.ll")
					if err != nil {
						return err
					}
					defer os.Remove(fi.Name())
					defer fi.Close()
					_, err = io.Copy(fi, strings.NewReader(module))
					if err != nil {
						return err
					}

					cmd := exec.Command("clang", "-shared", "-fPIC", "-o", out, fi.Name())
					cmd.Stdout = os.Stdout
					cmd.Stderr = os.Stderr

					err = cmd.Run()
					if err != nil {
						tracerr.PrintSourceColor(tracerr.Wrap(err))
						os.Exit(1)
					}
					return nil
				},
			},
			{
				Name:      "run",
				Usage:     "run a tree document or a built shared object",
				ArgsUsage: "[source|object.so] [args...]",
				Flags:     compileFlags,
				Action: func(c *cli.Context) error {
					mod, settings, err := settingsFor(c)
					if err != nil {
						return err
					}
					path, err := mod.source(c.Args().First())
					if err != nil {
						return err
					}
					unit, err := loadUnit(path, settings)
					if err != nil {
						report(err)
					}

					var args []string
					if c.Args().Len() > 1 {
						args = c.Args().Slice()[1:]
					}
					machine, err := vm.New(unit, vm.Options{Argv0: path, Args: args})
					if err != nil {
						report(err)
					}
					err = machine.Run()
					if exit, ok := err.(vm.Exit); ok {
						os.Exit(exit.Status)
					} else if err != nil {
						report(err)
					}
					return nil
				},
			},
			{
				Name:      "dump",
				Usage:     "dump the tree after each pass",
				ArgsUsage: "[source]",
				Flags:     compileFlags,
				Action: func(c *cli.Context) error {
					mod, settings, err := settingsFor(c)
					if err != nil {
						return err
					}
					path, err := mod.source(c.Args().First())
					if err != nil {
						return err
					}
					nodes, err := readTree(path)
					if err != nil {
						report(err)
					}
					fmt.Println("# decoded")
					repr.Println(nodes, repr.Indent("  "), repr.OmitEmpty(true))

					result, err := talc.Compile(talc.NewRegistry(), nodes, settings)
					if err != nil {
						report(err)
					}
					fmt.Println("# annotated")
					for _, n := range nodes {
						fmt.Println(n)
					}
					if settings.Simplify {
						fmt.Println("# simplified")
						for _, n := range result.Tree {
							fmt.Println(n)
						}
					}
					fmt.Println("# unit")
					repr.Println(result.Unit, repr.Indent("  "), repr.OmitEmpty(true))
					return nil
				},
			},
			{
				Name:      "disasm",
				Usage:     "disassemble a tree document or a built shared object",
				ArgsUsage: "[source|object.so]",
				Flags:     compileFlags,
				Action: func(c *cli.Context) error {
					mod, settings, err := settingsFor(c)
					if err != nil {
						return err
					}
					path, err := mod.source(c.Args().First())
					if err != nil {
						return err
					}
					unit, err := loadUnit(path, settings)
					if err != nil {
						report(err)
					}
					fmt.Print(unit.Disassemble())
					return nil
				},
			},
		},
	}
	app.Run(os.Args)
}
