package regalloc

import (
	"fmt"

	"pbrc/src/backend/regfile"
	"pbrc/src/instr"
	"pbrc/src/util"
)

// retry bounds the simplify/spill worklist: if the interference graph still
// has unsimplified nodes after this many rounds, allocation gives up rather
// than loop forever on a pathological graph.
const retry = 128

// node is one temporary variable's interference-graph entry.
type node struct {
	name       string
	neighbours map[string]bool
}

// buildInterference constructs the interference graph restricted to names:
// two variables interfere when they are both live out of the same
// instruction (the standard "simultaneously live" rule).
func buildInterference(lv *liveness, names map[string]bool) map[string]*node {
	nodes := make(map[string]*node, len(names))
	for n := range names {
		nodes[n] = &node{name: n, neighbours: map[string]bool{}}
	}
	for _, set := range lv.out {
		var present []string
		for k := range set {
			if names[k] {
				present = append(present, k)
			}
		}
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				nodes[present[i]].neighbours[present[j]] = true
				nodes[present[j]].neighbours[present[i]] = true
			}
		}
	}
	return nodes
}

// r0Ineligible collects every variable name that appears where the
// hardware reads register field 0 as the literal value zero instead of a
// register: the base operand of addi/subi, and the base register of any
// load or store (displacement or indexed form). Those positions can never
// be colored r0.
func r0Ineligible(f *fn) map[string]bool {
	ineligible := map[string]bool{}
	mark := func(o instr.Operand) {
		if name, ok := varName(o); ok {
			ineligible[name] = true
		}
	}
	for _, ln := range f.lines {
		switch ln.Op {
		case "addi", "subi":
			if len(ln.Args) > 1 {
				mark(ln.Args[1])
			}
		case "lbz", "lfd", "lfs", "lha", "lhz", "lwz",
			"lbzu", "lfdu", "lfsu", "lhau", "lhzu", "lwzu",
			"stb", "stfd", "stfs", "sth", "stw",
			"stbu", "stfdu", "stfsu", "sthu", "stwu":
			if len(ln.Args) > 2 {
				mark(ln.Args[2])
			}
		case "lbzx", "lhax", "lhzx", "lwzx", "lbzux", "lhaux", "lhzux", "lwzux",
			"stbx", "sthx", "stbux", "sthux":
			if len(ln.Args) > 1 {
				mark(ln.Args[1])
			}
		}
	}
	return ineligible
}

// moveBias maps a variable to the name of another variable it is directly
// mr/fmr-copied with, so the colorer can try to give both the same
// register and let substitute drop the now-redundant move.
func moveBias(f *fn, names map[string]bool) map[string]string {
	bias := map[string]string{}
	for _, ln := range f.lines {
		if ln.Op != "mr" && ln.Op != "fmr" {
			continue
		}
		d, dok := varName(ln.Args[0])
		s, sok := varName(ln.Args[1])
		if dok && sok && names[d] && names[s] {
			bias[d] = s
			bias[s] = d
		}
	}
	return bias
}

// colorTemp runs simplify/spill graph coloring over nodes, assigning hard
// registers from pool. r0Eligible variables may additionally use r0 once
// pool is exhausted and no neighbour already holds it.
func colorTemp(nodes map[string]*node, pool *regfile.Pool, bias map[string]string, r0Eligible map[string]bool, kind string) (map[string]instr.Reg, error) {
	k := pool.Size()
	st := &util.Stack{}
	remaining := make(map[string]*node, len(nodes))
	for name, nd := range nodes {
		remaining[name] = nd
	}

	degree := func(nd *node) int {
		d := 0
		for nb := range nd.neighbours {
			if _, ok := remaining[nb]; ok {
				d++
			}
		}
		return d
	}

	for try := 0; try < retry && len(remaining) > 0; try++ {
		progressed := false
		for name, nd := range remaining {
			if degree(nd) < k {
				st.Push(name)
				delete(remaining, name)
				progressed = true
			}
		}
		if progressed {
			continue
		}
		// No trivially colorable node remains: push the highest-degree
		// node as an optimistic spill candidate, same as an optimistic
		// Chaitin-Briggs allocator, and keep going.
		var worst string
		worstDeg := -1
		for name, nd := range remaining {
			if d := degree(nd); d > worstDeg {
				worstDeg, worst = d, name
			}
		}
		st.Push(worst)
		delete(remaining, worst)
	}
	if len(remaining) > 0 {
		return nil, fmt.Errorf("register allocation failed: %d %s temporaries did not simplify within %d rounds", len(remaining), kind, retry)
	}

	colors := make(map[string]instr.Reg, len(nodes))
	for st.Size() > 0 {
		name := st.Pop().(string)
		nd := nodes[name]
		used := map[uint8]bool{}
		for nb := range nd.neighbours {
			if r, ok := colors[nb]; ok {
				used[r.Num] = true
			}
		}
		cands := pool.Candidates(used)
		if len(cands) == 0 {
			if r0Eligible[name] && !used[0] {
				colors[name] = instr.Reg{Num: 0, Float: pool.IsFloat()}
				continue
			}
			return nil, fmt.Errorf("register allocation failed: no free %s register for %q (spilling to memory is not implemented)", kind, name)
		}
		chosen := false
		if partner, ok := bias[name]; ok {
			if pc, ok2 := colors[partner]; ok2 {
				for _, c := range cands {
					if c.Num == pc.Num {
						colors[name] = c
						chosen = true
						break
					}
				}
			}
		}
		if !chosen {
			colors[name] = cands[0]
		}
	}
	return colors, nil
}
