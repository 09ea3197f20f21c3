package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pbrc/src/instr"
)

func TestLinkResolvesLocalFunctionRef(t *testing.T) {
	funcs := []Func{
		{Name: "caller", Base: 0x80001000, List: instr.List{
			instr.Ins{Op: "bl", Args: []instr.Operand{instr.FunctionRef{Name: "callee"}}},
		}},
		{Name: "callee", Base: 0x80002000, List: instr.List{instr.Ins{Op: "blr"}}},
	}
	require.NoError(t, Link(funcs, "ntsc-u"))
	require.Equal(t, instr.Addr{Value: 0x80002000}, funcs[0].List[0].Args[0])
}

func TestLinkResolvesRegionFunction(t *testing.T) {
	funcs := []Func{
		{Name: "f", Base: 0x80001000, List: instr.List{
			instr.Ins{Op: "bl", Args: []instr.Operand{instr.FunctionRef{Name: "COPY_RANGE"}}},
		}},
	}
	require.NoError(t, Link(funcs, "ntsc-u"))
	require.Equal(t, instr.Addr{Value: 0x80004000}, funcs[0].List[0].Args[0])
}

func TestLinkResolvesLiteralFunAddress(t *testing.T) {
	funcs := []Func{
		{Name: "f", Base: 0x80001000, List: instr.List{
			instr.Ins{Op: "bl", Args: []instr.Operand{instr.FunctionRef{Name: "FUN_80100000"}}},
		}},
	}
	require.NoError(t, Link(funcs, "ntsc-u"))
	require.Equal(t, instr.Addr{Value: 0x80100000}, funcs[0].List[0].Args[0])
}

func TestLinkRejectsUnknownSymbol(t *testing.T) {
	funcs := []Func{
		{Name: "f", Base: 0x80001000, List: instr.List{
			instr.Ins{Op: "bl", Args: []instr.Operand{instr.FunctionRef{Name: "NOT_A_FUNCTION"}}},
		}},
	}
	err := Link(funcs, "ntsc-u")
	require.Error(t, err)
}

func TestLinkResolvesAddrLoadHalfPair(t *testing.T) {
	funcs := []Func{
		{Name: "caller", Base: 0x80001000, List: instr.List{
			instr.Ins{Op: "lis", Args: []instr.Operand{instr.Reg{Num: 3}, instr.AddrLoadHalf{Name: "callee", Hi: true}}},
			instr.Ins{Op: "addi", Args: []instr.Operand{instr.Reg{Num: 3}, instr.Reg{Num: 3}, instr.AddrLoadHalf{Name: "callee"}}},
		}},
		{Name: "callee", Base: 0x80003100, List: instr.List{instr.Ins{Op: "blr"}}},
	}
	require.NoError(t, Link(funcs, "ntsc-u"))

	hi, lo := loadSplit(0x80003100)
	require.Equal(t, instr.Imm{Value: hi}, funcs[0].List[0].Args[1])
	require.Equal(t, instr.Imm{Value: lo}, funcs[0].List[1].Args[2])
}
