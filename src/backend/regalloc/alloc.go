package regalloc

import (
	"strconv"

	"pbrc/src/backend/regfile"
	"pbrc/src/instr"
)

// SwitchTargets resolves a switch descriptor index (as carried by a
// SwitchIdx tag on a bctr) to every branch id control might fan out to -
// one per case arm plus the default arm - so the CFG walk can discover a
// dispatch's successors without understanding switches itself.
type SwitchTargets func(k uint32) []uint32

// Allocate assigns every symbolic IntVar/FloatVar placeholder in list a
// hard PowerPC register, per §4.2: a persistent pass for variables live
// out of a call (bl/bctrl), then a temporary pass coloring
// everything else from the caller-saved pool by interference graph.
// Fixed calling-convention slots (_rK_/_fK_) are pre-colored to their
// corresponding hard register before either pass runs and never
// participate in either pool.
func Allocate(list instr.List, switches SwitchTargets) (instr.List, error) {
	f := stripLabels(list)
	lv := calcLiveness(f, switches)

	fixed := map[string]instr.Reg{}
	allNames := map[string]bool{}
	isFloatOf := map[string]bool{}
	for _, ln := range f.lines {
		for _, a := range ln.Args {
			name, ok := varName(a)
			if !ok {
				continue
			}
			if _, seen := isFloatOf[name]; !seen {
				isFloatOf[name] = isFloatOperand(a)
			}
			if r, ok := fixedSlotReg(name); ok {
				fixed[name] = r
				continue
			}
			allNames[name] = true
		}
	}

	persistentNames := discoverPersistent(f, lv)
	for name := range fixed {
		delete(persistentNames, name)
	}
	persistentColors, err := assignPersistent(persistentNames, isFloatOf)
	if err != nil {
		return nil, err
	}

	intNames, floatNames := map[string]bool{}, map[string]bool{}
	for name := range allNames {
		if persistentNames[name] {
			continue
		}
		if isFloatOf[name] {
			floatNames[name] = true
		} else {
			intNames[name] = true
		}
	}

	r0elig := map[string]bool{}
	ineligible := r0Ineligible(f)
	for name := range intNames {
		if !ineligible[name] {
			r0elig[name] = true
		}
	}

	tempNames := map[string]bool{}
	for n := range intNames {
		tempNames[n] = true
	}
	for n := range floatNames {
		tempNames[n] = true
	}
	bias := moveBias(f, tempNames)

	intColors, err := colorTemp(buildInterference(lv, intNames), regfile.NewTemporaryInt(), bias, r0elig, "integer")
	if err != nil {
		return nil, err
	}
	floatColors, err := colorTemp(buildInterference(lv, floatNames), regfile.NewTemporaryFloat(), bias, nil, "float")
	if err != nil {
		return nil, err
	}

	final := make(map[string]instr.Reg, len(fixed)+len(persistentColors)+len(intColors)+len(floatColors))
	for n, r := range fixed {
		final[n] = r
	}
	for n, r := range persistentColors {
		final[n] = r
	}
	for n, r := range intColors {
		final[n] = r
	}
	for n, r := range floatColors {
		final[n] = r
	}

	return substitute(list, final), nil
}

// fixedSlotReg reports the hard register a calling-convention placeholder
// name (_r3_, _f1_, ...) is pre-colored to.
func fixedSlotReg(name string) (instr.Reg, bool) {
	if m := fixedIntSlot.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return instr.Reg{Num: uint8(n)}, true
	}
	if m := fixedFloatSlot.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return instr.Reg{Num: uint8(n), Float: true}, true
	}
	return instr.Reg{}, false
}

// substitute rewrites every IntVar/FloatVar operand in the original
// instruction list (labels included, since the resolver still needs them)
// with its resolved hard register from colors, and drops any mr/fmr whose
// source and destination resolved to the same register.
func substitute(list instr.List, colors map[string]instr.Reg) instr.List {
	out := make(instr.List, 0, len(list))
	for _, ln := range list {
		if ln.IsLabel() {
			out = append(out, ln)
			continue
		}
		args := make([]instr.Operand, len(ln.Args))
		for j, a := range ln.Args {
			if name, ok := varName(a); ok {
				if r, ok := colors[name]; ok {
					args[j] = r
					continue
				}
			}
			args[j] = a
		}
		if (ln.Op == "mr" || ln.Op == "fmr") && len(args) == 2 && args[0] == args[1] {
			continue
		}
		out = append(out, instr.Ins{Op: ln.Op, Args: args})
	}
	return out
}
