package regalloc

import (
	"sort"

	"pbrc/src/backend/regfile"
	"pbrc/src/instr"
)

// discoverPersistent reports every variable live across a call instruction
// (bl/bctrl): it must survive in a callee-saved register, since nothing in
// the ABI guarantees a caller-saved one keeps its value across the call.
func discoverPersistent(f *fn, lv *liveness) map[string]bool {
	persistent := map[string]bool{}
	for i, ln := range f.lines {
		if ln.Op != "bl" && ln.Op != "bctrl" {
			continue
		}
		for name := range lv.out[i] {
			persistent[name] = true
		}
	}
	return persistent
}

// typeOfVars scans f for the first occurrence of every named variable and
// records whether it is an integer or float var.
func typeOfVars(f *fn) map[string]bool {
	isFloat := map[string]bool{}
	for _, ln := range f.lines {
		for _, a := range ln.Args {
			if name, ok := varName(a); ok {
				if _, seen := isFloat[name]; !seen {
					isFloat[name] = isFloatOperand(a)
				}
			}
		}
	}
	return isFloat
}

// assignPersistent colors every persistent variable from the top of its
// callee-saved pool downward, in deterministic (sorted) order. A pool
// running out mid-assignment is a fatal "too many locals" condition: the
// function declares more live-across-call variables than the ABI has
// callee-saved registers for.
func assignPersistent(names map[string]bool, isFloatOf map[string]bool) (map[string]instr.Reg, error) {
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	intPool := regfile.NewPersistentInt()
	floatPool := regfile.NewPersistentFloat()

	assign := map[string]instr.Reg{}
	for _, name := range sorted {
		pool := intPool
		kind := "integer"
		if isFloatOf[name] {
			pool = floatPool
			kind = "float"
		}
		r, ok := pool.TakeNext()
		if !ok {
			return nil, fatalTooManyLocals("persistent "+kind, name)
		}
		assign[name] = r
	}
	return assign, nil
}
