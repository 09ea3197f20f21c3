// Package regfile describes the PowerPC32 general-purpose and
// floating-point register pools and the two disjoint sub-pools the
// allocator draws from, adapted from the teacher repository's
// Register/RegisterFile interface shape to a fixed PPC32 target instead
// of a pluggable one.
package regfile

import "pbrc/src/instr"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Pool is a disjoint, ordered set of hard registers available to one
// allocation pass (persistent or temporary, integer or float).
type Pool struct {
	regs  []uint8
	float bool
	used  map[uint8]bool
}

// ---------------------
// ----- Constants -----
// ---------------------

// Calling-convention slots: integer args/returns start at r3, float at f1.
const (
	FirstIntArg   = 3
	FirstFloatArg = 1
)

// ---------------------
// ----- Functions -----
// ---------------------

// NewPersistentInt returns a fresh callee-saved GPR pool, r14..r31, handed
// out from the top (r31) down. A fresh pool is built per function rather
// than shared from a package-level singleton so that concurrent
// per-function allocation (see §5, Options.Threads > 1) never races two
// goroutines over the same used-register bitmap.
func NewPersistentInt() *Pool { return newPool(false, rangeDesc(31, 14, -1)) }

// NewPersistentFloat returns a fresh callee-saved FPR pool, f14..f31, top
// down.
func NewPersistentFloat() *Pool { return newPool(true, rangeDesc(31, 14, -1)) }

// NewTemporaryInt returns a fresh caller-saved GPR pool excluding r0 and
// r1/r2 (stack pointer, small-data anchor are never allocated to a
// variable). r0 is added conditionally by the allocator, not
// unconditionally here.
func NewTemporaryInt() *Pool { return newPool(false, rangeAsc(3, 12)) }

// NewTemporaryFloat returns a fresh caller-saved FPR pool f0..f13.
func NewTemporaryFloat() *Pool { return newPool(true, rangeAsc(0, 13)) }

func rangeAsc(lo, hi uint8) []uint8 {
	r := make([]uint8, 0, int(hi-lo)+1)
	for i := lo; i <= hi; i++ {
		r = append(r, i)
	}
	return r
}

func rangeDesc(hi, lo uint8, step int) []uint8 {
	r := make([]uint8, 0, int(hi-lo)+1)
	for i := int(hi); i >= int(lo); i += step {
		r = append(r, uint8(i))
	}
	return r
}

func newPool(float bool, regs []uint8) *Pool {
	return &Pool{regs: regs, float: float, used: make(map[uint8]bool, len(regs))}
}

// Size returns the total number of hard registers in the pool.
func (p *Pool) Size() int { return len(p.regs) }

// IsFloat reports whether this pool hands out FPRs rather than GPRs.
func (p *Pool) IsFloat() bool { return p.float }

// Reg builds the instr.Reg value for the i'th register in declaration
// order (0 = first).
func (p *Pool) Reg(i int) instr.Reg {
	return instr.Reg{Num: p.regs[i], Float: p.float}
}

// TakeNext assigns and returns the next unused register, in pool order.
// Returns ok=false if the pool is exhausted.
func (p *Pool) TakeNext() (instr.Reg, bool) {
	for _, r := range p.regs {
		if !p.used[r] {
			p.used[r] = true
			return instr.Reg{Num: r, Float: p.float}, true
		}
	}
	return instr.Reg{}, false
}

// Candidates returns every register in this pool not present in excl,
// in pool order - the candidate list the temporary allocator colors from.
func (p *Pool) Candidates(excl map[uint8]bool) []instr.Reg {
	out := make([]instr.Reg, 0, len(p.regs))
	for _, r := range p.regs {
		if !excl[r] {
			out = append(out, instr.Reg{Num: r, Float: p.float})
		}
	}
	return out
}

