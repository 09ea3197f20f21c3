package instr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsString(t *testing.T) {
	ln := Ins{Op: "add", Args: []Operand{Reg{Num: 3}, Reg{Num: 4}, Reg{Num: 5}}}
	require.Equal(t, "add r3, r4, r5", ln.String())
}

func TestInsStringNoArgs(t *testing.T) {
	require.Equal(t, "blr", Ins{Op: "blr"}.String())
}

func TestListString(t *testing.T) {
	l := List{
		Ins{Op: "mflr", Args: []Operand{Reg{Num: 0}}},
		Ins{Op: "blr"},
	}
	require.Equal(t, "mflr r0\nblr\n", l.String())
}

func TestLabelRoundTrip(t *testing.T) {
	ln := NewLabel(7)
	require.True(t, ln.IsLabel())
	require.Equal(t, uint32(7), ln.Label())
}

func TestRegStringFloat(t *testing.T) {
	require.Equal(t, "f12", Reg{Num: 12, Float: true}.String())
	require.Equal(t, "r12", Reg{Num: 12}.String())
}

func TestImmAndAddrString(t *testing.T) {
	require.Equal(t, "0x8", Imm{Value: 8}.String())
	require.Equal(t, "0x80003100", Addr{Value: 0x80003100}.String())
}
