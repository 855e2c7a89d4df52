package main

import (
	"testing"

	"github.com/nalgeon/be"
	"gopkg.in/yaml.v2"
)

func TestModuleSettings(t *testing.T) {
	var mod talcModule
	err := yaml.Unmarshal([]byte("Package: demo\nSource: demo.yaml\nSimplify: false\nDebug: t\n"), &mod)
	be.Err(t, err, nil)

	s := mod.settings()
	be.Equal(t, s.UnitName, "demo")
	be.Equal(t, s.Simplify, false)
	be.Equal(t, s.Debug, "t")

	path, err := mod.source("")
	be.Err(t, err, nil)
	be.Equal(t, path, "demo.yaml")

	path, err = mod.source("other.yaml")
	be.Err(t, err, nil)
	be.Equal(t, path, "other.yaml")
}

func TestModuleDefaults(t *testing.T) {
	var mod talcModule
	s := mod.settings()
	be.Equal(t, s.UnitName, "main")
	be.Equal(t, s.Simplify, true)

	_, err := mod.source("")
	be.Err(t, err, "names none")
}
