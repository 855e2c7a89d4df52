// Package reader loads the unit embedded in a module built by talc.
package reader

import (
	"github.com/coreos/pkg/dlopen"
	"github.com/pontaoski/talc/bytecode"
	"github.com/ztrue/tracerr"
)

import "C"

const (
	unitSymbol   = "__talc_unit"
	sourceSymbol = "__talc_source"
)

func readString(handle *dlopen.LibHandle, symbol string) (string, error) {
	sym, err := handle.GetSymbolPointer(symbol)
	if err != nil {
		return "", tracerr.Wrap(err)
	}
	return C.GoString((*C.char)(sym)), nil
}

// ReadUnit opens the shared object at from and decodes its unit.
func ReadUnit(from string) (*bytecode.Unit, error) {
	handle, err := dlopen.GetHandle([]string{from})
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer handle.Close()

	data, err := readString(handle, unitSymbol)
	if err != nil {
		return nil, err
	}
	unit, err := bytecode.Decode([]byte(data))
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	if unit.SourceFile == "" {
		if src, err := readString(handle, sourceSymbol); err == nil {
			unit.SourceFile = src
		}
	}
	return unit, nil
}
