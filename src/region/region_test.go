package region

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	require.True(t, Valid(NTSCU))
	require.True(t, Valid(NTSCJ))
	require.True(t, Valid(PAL))
	require.False(t, Valid("dreamcast"))
}

func TestLookupKnownFunction(t *testing.T) {
	addr, ok := Lookup(NTSCU, "COPY_RANGE")
	require.True(t, ok)
	require.Equal(t, uint32(0x80004000), addr)
}

func TestLookupUnknownFunction(t *testing.T) {
	_, ok := Lookup(NTSCU, "NOT_A_REAL_FUNCTION")
	require.False(t, ok)
}

func TestLookupUnknownRegion(t *testing.T) {
	_, ok := Lookup("dreamcast", "COPY_RANGE")
	require.False(t, ok)
}

func TestHelperTableCoversEveryRegion(t *testing.T) {
	for _, r := range []string{NTSCJ, NTSCU, PAL} {
		h, ok := HelperTable[r]
		require.True(t, ok, "missing helper table for %s", r)
		require.NotZero(t, h.StoreInt)
		require.NotZero(t, h.RestoreInt)
	}
}
