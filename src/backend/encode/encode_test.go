package encode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pbrc/src/instr"
)

func TestEncodeAdd(t *testing.T) {
	word, err := Line(0, instr.Ins{Op: "add", Args: []instr.Operand{
		instr.Reg{Num: 3}, instr.Reg{Num: 4}, instr.Reg{Num: 5},
	}})
	require.NoError(t, err)
	// primary 31, d=3, a=4, b=5, ext=266 (add), rc=0
	require.Equal(t, uint32(31<<26|3<<21|4<<16|5<<11|266<<1), word)
}

func TestEncodeAddi(t *testing.T) {
	word, err := Line(0, instr.Ins{Op: "addi", Args: []instr.Operand{
		instr.Reg{Num: 3}, instr.Reg{Num: 1}, instr.Imm{Value: 16},
	}})
	require.NoError(t, err)
	require.Equal(t, uint32(14<<26|3<<21|1<<16|16), word)
}

func TestEncodeBranchLinkComputesRelativeOffset(t *testing.T) {
	word, err := Line(0x80001000, instr.Ins{Op: "bl", Args: []instr.Operand{
		instr.Addr{Value: 0x80002000},
	}})
	require.NoError(t, err)
	li := uint32(0x1000) >> 2 // target - addr, word-aligned
	require.Equal(t, uint32(18<<26|li<<2|1), word)
}

func TestEncodeBlr(t *testing.T) {
	word, err := Line(0, instr.Ins{Op: "blr"})
	require.NoError(t, err)
	require.Equal(t, uint32(19<<26|0b10100<<21|16<<1), word)
}

func TestEncodeBareWord(t *testing.T) {
	word, err := Line(0, instr.Ins{Op: "@word", Args: []instr.Operand{instr.Addr{Value: 0x80001234}}})
	require.NoError(t, err)
	require.Equal(t, uint32(0x80001234), word)
}

func TestEncodeRejectsUnhandledMnemonic(t *testing.T) {
	_, err := Line(0, instr.Ins{Op: "frobnicate"})
	require.Error(t, err)
}

func TestFuncProducesBigEndianWords(t *testing.T) {
	list := instr.List{
		instr.Ins{Op: "blr"},
	}
	b, err := Func(0x80000000, list)
	require.NoError(t, err)
	require.Len(t, b, 4)
	word, err := Line(0x80000000, list[0])
	require.NoError(t, err)
	require.Equal(t, byte(word>>24), b[0])
	require.Equal(t, byte(word), b[3])
}
