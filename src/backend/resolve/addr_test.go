package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pbrc/src/backend/lower"
	"pbrc/src/instr"
)

func TestLoadSplitRoundTrips(t *testing.T) {
	for _, v := range []uint32{0, 0x80000000, 0x80003100, 0x8000ffff, 0x12345678} {
		hi, lo := loadSplit(v)
		got := uint32((hi<<16)+int32(int16(lo))) // lis shifts hi left 16, addi sign-extends lo
		require.Equal(t, v, got, "value %#x", v)
	}
}

func TestResolveAddressesFixesBranchTargets(t *testing.T) {
	body := instr.List{
		instr.NewLabel(0),
		instr.Ins{Op: "li", Args: []instr.Operand{instr.Reg{Num: 3}, instr.Imm{Value: 1}}},
		instr.Ins{Op: "b", Args: []instr.Operand{instr.BranchLabel{K: 1}}},
		instr.NewLabel(1),
		instr.Ins{Op: "blr"},
	}
	out, next := resolveAddresses(0x80001000, body, nil)
	require.Len(t, out, 3)
	require.Equal(t, instr.Addr{Value: 0x80001008}, out[1].Args[0])
	require.Equal(t, uint32(0x8000100c), next)
}

func TestResolveAddressesMaterializesSwitchTable(t *testing.T) {
	sw := &lower.SwitchDesc{Cases: map[uint32]uint32{0: 1, 1: 2}, Default: 0}
	body := instr.List{
		instr.NewLabel(0),
		instr.Ins{Op: "bctr", Args: []instr.Operand{instr.SwitchIdx{K: 0}}},
		instr.NewLabel(1),
		instr.Ins{Op: "blr"},
		instr.NewLabel(2),
		instr.Ins{Op: "blr"},
	}
	out, next := resolveAddresses(0x80000000, body, []*lower.SwitchDesc{sw})

	// 3 real instructions + a 2-entry jump table trailing the body.
	require.Len(t, out, 5)
	require.Equal(t, "@word", out[3].Op)
	require.Equal(t, "@word", out[4].Op)
	require.Equal(t, uint32(0x80000014), next) // body (3 words) + 2-entry table
}
