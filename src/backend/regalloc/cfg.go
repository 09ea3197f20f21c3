// Package regalloc assigns every symbolic IntVar/FloatVar operand a hard
// register, split into a persistent pass (variables live across a call,
// given a callee-saved register) and a temporary pass (everything else,
// colored from the caller-saved pool via simplify/spill), grounded on the
// interference-graph shape of the teacher's backend/lir register allocator.
package regalloc

import (
	"fmt"
	"regexp"

	"pbrc/src/instr"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// fn is one function's instruction list with its labels stripped into an
// index, ready for CFG and liveness analysis.
type fn struct {
	lines  instr.List   // real instructions, no @label pseudo-ops
	labels map[uint32]int
}

// ---------------------
// ----- Constants -----
// ---------------------

var fixedIntSlot = regexp.MustCompile(`^_r(\d+)_$`)
var fixedFloatSlot = regexp.MustCompile(`^_f(\d+)_$`)

var condBranches = map[string]bool{
	"beq": true, "bne": true, "bgt": true, "bge": true, "blt": true, "ble": true, "bdnz": true,
}

// ---------------------
// ----- Functions -----
// ---------------------

func stripLabels(in instr.List) *fn {
	f := &fn{labels: map[uint32]int{}}
	for _, ln := range in {
		if ln.IsLabel() {
			f.labels[ln.Label()] = len(f.lines)
			continue
		}
		f.lines = append(f.lines, ln)
	}
	return f
}

// successors returns the real-instruction indices control can flow to
// immediately after instruction i.
func (f *fn) successors(i int, switches func(k uint32) []uint32) []int {
	ln := f.lines[i]
	next := i + 1
	hasNext := next < len(f.lines)

	switch {
	case ln.Op == "b":
		return []int{f.labels[ln.Args[0].(instr.BranchLabel).K]}
	case condBranches[ln.Op]:
		out := []int{f.labels[ln.Args[0].(instr.BranchLabel).K]}
		if hasNext {
			out = append(out, next)
		}
		return out
	case ln.Op == "blr":
		return nil
	case ln.Op == "bctr":
		var targets []uint32
		for _, a := range ln.Args {
			if s, ok := a.(instr.SwitchIdx); ok {
				targets = switches(s.K)
			}
		}
		out := make([]int, 0, len(targets))
		for _, k := range targets {
			out = append(out, f.labels[k])
		}
		return out
	default:
		if hasNext {
			return []int{next}
		}
		return nil
	}
}

// varName reports the variable name carried by an IntVar/FloatVar operand.
func varName(o instr.Operand) (string, bool) {
	switch v := o.(type) {
	case instr.IntVar:
		return v.Name, true
	case instr.FloatVar:
		return v.Name, true
	}
	return "", false
}

// isFloatOperand reports whether o is a FloatVar.
func isFloatOperand(o instr.Operand) bool {
	_, ok := o.(instr.FloatVar)
	return ok
}

// defUse classifies one instruction's destination (nil if none) and its
// read operands, by mnemonic family. Everything not explicitly listed
// follows the default PowerPC convention: Args[0] is written, the rest
// are read.
func defUse(ln instr.Ins) (instr.Operand, []instr.Operand) {
	switch ln.Op {
	case "stb", "sth", "stw", "stfd", "stfs",
		"stbu", "sthu", "stwu", "stfdu", "stfsu",
		"stbx", "sthx", "stbux", "sthux":
		return nil, ln.Args
	case "cmpw", "cmplw", "cmpwi", "cmplwi", "fcmpo", "fcmpu":
		return nil, ln.Args
	case "b", "bl", "beq", "bne", "bgt", "bge", "blt", "ble", "bdnz", "blr", "bctr", "bctrl":
		return nil, nil
	case "mtctr", "mtlr":
		return nil, []instr.Operand{ln.Args[0]}
	case "mflr", "mfctr":
		return ln.Args[0], nil
	case "li", "lis":
		return ln.Args[0], nil
	case "rlwimi":
		// rlwimi merges bits into its own destination: both def and use.
		return ln.Args[0], []instr.Operand{ln.Args[0], ln.Args[1]}
	default:
		if len(ln.Args) == 0 {
			return nil, nil
		}
		return ln.Args[0], ln.Args[1:]
	}
}

// fatalTooManyLocals is returned when a pool is exhausted during assignment.
func fatalTooManyLocals(kind, name string) error {
	return fmt.Errorf("too many %s locals: no free register left for %q", kind, name)
}
