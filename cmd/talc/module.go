package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pontaoski/talc"
	"github.com/pontaoski/talc/bytecode"
	"github.com/pontaoski/talc/reader"
	"gopkg.in/yaml.v2"
)

const moduleFile = "Talc Module Information"

type talcModule struct {
	Package  string `yaml:"Package"`
	Source   string `yaml:"Source"`
	Simplify *bool  `yaml:"Simplify,omitempty"`
	Debug    string `yaml:"Debug,omitempty"`
}

// loadModule reads the module information in the working directory. A
// missing file isn't an error; commands then need an explicit source.
func loadModule() (*talcModule, error) {
	data, err := ioutil.ReadFile(moduleFile)
	if os.IsNotExist(err) {
		return &talcModule{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", moduleFile, err)
	}

	var doc talcModule
	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", moduleFile, err)
	}
	return &doc, nil
}

func writeModule(doc *talcModule) error {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", moduleFile, err)
	}
	err = ioutil.WriteFile(moduleFile, out, 0644)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", moduleFile, err)
	}
	return nil
}

func (m *talcModule) settings() *talc.Settings {
	s := talc.DefaultSettings()
	if m.Package != "" {
		s.UnitName = m.Package
	}
	if m.Simplify != nil {
		s.Simplify = *m.Simplify
	}
	s.Debug = m.Debug
	return s
}

// source picks the tree document to work on: the argument if there is
// one, else the module's Source.
func (m *talcModule) source(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if m.Source == "" {
		return "", fmt.Errorf("no source given and %s names none", moduleFile)
	}
	return m.Source, nil
}

func readTree(path string) ([]talc.Node, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc talc.TreeDocument
	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.File == "" {
		doc.File = filepath.Base(path)
	}
	return doc.Decode()
}

func compileFile(path string, settings *talc.Settings) (*talc.Result, error) {
	nodes, err := readTree(path)
	if err != nil {
		return nil, err
	}
	return talc.Compile(talc.NewRegistry(), nodes, settings)
}

// loadUnit compiles a tree document, or reads the unit back out of a
// shared object built by talc build.
func loadUnit(path string, settings *talc.Settings) (*bytecode.Unit, error) {
	if filepath.Ext(path) == ".so" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		return reader.ReadUnit(abs)
	}
	result, err := compileFile(path, settings)
	if err != nil {
		return nil, err
	}
	return result.Unit, nil
}
