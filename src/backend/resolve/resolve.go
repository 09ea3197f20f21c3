package resolve

import (
	"pbrc/src/ast"
	"pbrc/src/backend/lower"
	"pbrc/src/instr"
)

// Func is one function's output from the per-function resolution pass: its
// entry address and its fully addressed instruction list, still possibly
// carrying FunctionRef/AddrLoadHalf placeholders for the global Link pass.
type Func struct {
	Name string
	Base uint32
	List instr.List
}

// Function resolves array offsets, the stack frame, branch addresses and
// switch tables for one function's register-allocated body, placing it at
// address at. regionName selects which region's helper addresses the frame
// builder calls into. It returns the resolved Func and the address the next
// function in the compilation unit should start at.
func Function(at uint32, f *ast.Function, st *lower.State, body instr.List, regionName string) (Func, uint32, error) {
	offsets := arrayOffsets(st)
	resolved := make(instr.List, len(body))
	for i, ln := range body {
		args := make([]instr.Operand, len(ln.Args))
		for j, a := range ln.Args {
			if slot, ok := a.(instr.ArraySlot); ok {
				args[j] = instr.Imm{Value: int32(offsets[slot.Name] + 4*slot.Index)}
				continue
			}
			args[j] = a
		}
		resolved[i] = instr.Ins{Op: ln.Op, Args: args}
	}

	fr := buildFrame(resolved, st, regionName)
	framed := fr.wrap(resolved)

	final, next := resolveAddresses(at, framed, st.Switches)
	return Func{Name: f.Name, Base: at, List: final}, next, nil
}
