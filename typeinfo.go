package talc

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/pontaoski/talc/bytecode"
)

// Symbols exported by a compiled talc module.
const (
	UnitSymbol     = "__talc_unit"
	SourceSymbol   = "__talc_source"
	UnitSizeSymbol = "__talc_unit_size"
)

func cString(m *ir.Module, name string, data []byte) *ir.Global {
	g := m.NewGlobalDef(name, constant.NewCharArray(append(data, 0)))
	g.Immutable = true
	return g
}

// EmitModule wraps an encoded unit in an LLVM module so it can be built
// into a shared object and loaded back with the reader package.
func EmitModule(unit *bytecode.Unit) (*ir.Module, error) {
	data, err := bytecode.Encode(unit)
	if err != nil {
		return nil, err
	}

	m := ir.NewModule()
	m.SourceFilename = unit.SourceFile

	cString(m, UnitSymbol, data)
	cString(m, SourceSymbol, []byte(unit.SourceFile))

	size := m.NewFunc(UnitSizeSymbol, lltypes.I64)
	entry := size.NewBlock("")
	entry.NewRet(constant.NewInt(lltypes.I64, int64(len(data))))

	return m, nil
}
