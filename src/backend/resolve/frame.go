package resolve

import (
	"sort"

	"pbrc/src/backend/lower"
	"pbrc/src/instr"
	"pbrc/src/region"
)

// frame holds one function's stack-frame layout, computed once from the
// register-allocated body and the lowering state, per §4.3.
type frame struct {
	size          uint32
	needed        bool
	usesCasts     bool
	floatBase     uint32
	intBase       uint32
	persistInts   []uint8 // ascending register numbers actually used
	persistFloats []uint8
	helpers       region.Helpers
}

// persistentRegs scans body for every distinct callee-saved GPR/FPR
// referenced: those are exactly the registers the persistent allocation
// pass assigned, and are the only ones the prologue/epilogue must save.
func persistentRegs(body instr.List) (ints, floats []uint8) {
	intSet, floatSet := map[uint8]bool{}, map[uint8]bool{}
	for _, ln := range body {
		for _, a := range ln.Args {
			r, ok := a.(instr.Reg)
			if !ok || r.Num < 14 {
				continue
			}
			if r.Float {
				floatSet[r.Num] = true
			} else {
				intSet[r.Num] = true
			}
		}
	}
	for n := range intSet {
		ints = append(ints, n)
	}
	for n := range floatSet {
		floats = append(floats, n)
	}
	sort.Slice(ints, func(i, j int) bool { return ints[i] < ints[j] })
	sort.Slice(floats, func(i, j int) bool { return floats[i] < floats[j] })
	return ints, floats
}

// hasCall reports whether body contains a bl or bctrl anywhere.
func hasCall(body instr.List) bool {
	for _, ln := range body {
		if ln.Op == "bl" || ln.Op == "bctrl" {
			return true
		}
	}
	return false
}

// buildFrame computes the stack frame for one function. A frame is only
// materialized when the function actually needs one: it calls another
// function, declares an array, performs an int<->float cast, or has a
// variable allocated to a callee-saved register.
func buildFrame(body instr.List, st *lower.State, regionName string) frame {
	ints, floats := persistentRegs(body)
	fr := frame{
		usesCasts:     st.UsesCasts,
		persistInts:   ints,
		persistFloats: floats,
		helpers:       region.HelperTable[regionName],
	}
	fr.needed = hasCall(body) || st.UsesCasts || len(ints) > 0 || len(floats) > 0 || len(st.ArrayOrder) > 0
	if !fr.needed {
		return fr
	}

	words := uint32(2) // back chain + saved LR
	if st.UsesCasts {
		words += 2
	}
	words += arrayWords(st)
	fr.floatBase = (words) * 4
	words += 4 * uint32(len(floats))
	fr.intBase = words * 4
	words += uint32(len(ints))

	size := words * 4
	if rem := size % 16; rem != 0 {
		size += 16 - rem
	}
	if size < 16 {
		size = 16
	}
	fr.size = size
	return fr
}

// wrap builds the full instruction list for a function: prologue, the
// resolved body (arrays already substituted), and epilogue. If no frame is
// needed the body is returned unchanged save for the trailing blr every
// function gets regardless of framing.
func (fr frame) wrap(body instr.List) instr.List {
	if !fr.needed {
		return append(body, instr.Ins{Op: "blr"})
	}

	out := make(instr.List, 0, len(body)+16)
	out = append(out,
		instr.Ins{Op: "stwu", Args: []instr.Operand{instr.Reg{Num: 1}, instr.Imm{Value: -int32(fr.size)}, instr.Reg{Num: 1}}},
		instr.Ins{Op: "mflr", Args: []instr.Operand{instr.Reg{Num: 0}}},
		instr.Ins{Op: "stw", Args: []instr.Operand{instr.Reg{Num: 0}, instr.Imm{Value: 4}, instr.Reg{Num: 1}}},
	)
	for i, r := range fr.persistFloats {
		off := int32(fr.floatBase) + int32(i)*16
		out = append(out, instr.Ins{Op: "stfd", Args: []instr.Operand{
			instr.Reg{Num: r, Float: true}, instr.Imm{Value: off}, instr.Reg{Num: 1},
		}})
	}
	if len(fr.persistInts) > 0 {
		out = append(out,
			instr.Ins{Op: "addi", Args: []instr.Operand{instr.Reg{Num: 11}, instr.Reg{Num: 1}, instr.Imm{Value: int32(fr.intBase)}}},
			instr.Ins{Op: "bl", Args: []instr.Operand{instr.Addr{Value: fr.helpers.StoreInt - 4*uint32(len(fr.persistInts))}}},
		)
	}

	out = append(out, body...)

	if len(fr.persistInts) > 0 {
		out = append(out,
			instr.Ins{Op: "addi", Args: []instr.Operand{instr.Reg{Num: 11}, instr.Reg{Num: 1}, instr.Imm{Value: int32(fr.intBase)}}},
			instr.Ins{Op: "bl", Args: []instr.Operand{instr.Addr{Value: fr.helpers.RestoreInt - 4*uint32(len(fr.persistInts))}}},
		)
	}
	for i, r := range fr.persistFloats {
		off := int32(fr.floatBase) + int32(i)*16
		out = append(out, instr.Ins{Op: "lfd", Args: []instr.Operand{
			instr.Reg{Num: r, Float: true}, instr.Imm{Value: off}, instr.Reg{Num: 1},
		}})
	}
	out = append(out,
		instr.Ins{Op: "lwz", Args: []instr.Operand{instr.Reg{Num: 0}, instr.Imm{Value: 4}, instr.Reg{Num: 1}}},
		instr.Ins{Op: "mtlr", Args: []instr.Operand{instr.Reg{Num: 0}}},
		instr.Ins{Op: "addi", Args: []instr.Operand{instr.Reg{Num: 1}, instr.Reg{Num: 1}, instr.Imm{Value: int32(fr.size)}}},
		instr.Ins{Op: "blr"},
	)
	return out
}
