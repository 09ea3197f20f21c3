// Package resolve implements the frame & address resolver, §4.3: it turns
// the register-allocated but still placeholder-bearing instruction list for
// one function into a fully addressed one (stack frame prologue/epilogue,
// array offsets, branch addresses, jump tables), and finally patches every
// cross-function FunctionRef/AddrLoadHalf once every function in the
// compilation unit has a fixed address.
package resolve

import "pbrc/src/backend/lower"

// arrayOffsets assigns each array in st a byte offset from r1, starting
// right after the saved-LR word and the cast scratch area (if used), and
// increasing by 4*size per array in declaration order.
func arrayOffsets(st *lower.State) map[string]uint32 {
	base := uint32(0x8)
	if st.UsesCasts {
		base = 0x10
	}
	offsets := make(map[string]uint32, len(st.ArrayOrder))
	for _, name := range st.ArrayOrder {
		offsets[name] = base
		base += 4 * st.Arrays[name].Size
	}
	return offsets
}

// arrayWords is the total word count every declared array occupies.
func arrayWords(st *lower.State) uint32 {
	var n uint32
	for _, name := range st.ArrayOrder {
		n += st.Arrays[name].Size
	}
	return n
}
