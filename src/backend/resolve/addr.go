package resolve

import (
	"pbrc/src/backend/lower"
	"pbrc/src/instr"
)

// loadSplit divides a 32-bit value into the hi16 fed to lis and the signed
// lo16 fed to addi, accounting for addi's sign extension of its immediate:
// if bit 15 of the low half is set, addi will subtract 0x10000 from the
// shifted-left high half, so the high half is bumped by one to compensate.
func loadSplit(value uint32) (hi, lo int32) {
	hi = int32(value >> 16)
	lo = int32(int16(uint16(value)))
	if value&0x8000 != 0 {
		hi++
	}
	return hi, lo
}

// maxCase returns the highest case value a switch descriptor dispatches on;
// the jump table has one entry per value from 0 through maxCase inclusive.
func maxCase(sw *lower.SwitchDesc) uint32 {
	var m uint32
	for val := range sw.Cases {
		if val > m {
			m = val
		}
	}
	return m
}

// resolveAddresses fixes the address of every real instruction in body
// starting at base, strips @label pseudo-ops and SwitchIdx tags, rewrites
// BranchLabel operands to their resolved Addr, appends one jump table per
// switch descriptor, and retargets each table's lis/addi SwitchTableIdx
// pair to the table's now-known base address. It returns the fully
// addressed list and the address immediately following it.
func resolveAddresses(base uint32, body instr.List, switches []*lower.SwitchDesc) (instr.List, uint32) {
	addrOf := map[uint32]uint32{}
	addr := base
	for _, ln := range body {
		if ln.IsLabel() {
			addrOf[ln.Label()] = addr
			continue
		}
		addr += 4
	}
	bodyEnd := addr

	tableAddr := make([]uint32, len(switches))
	tAddr := bodyEnd
	for k, sw := range switches {
		tableAddr[k] = tAddr
		tAddr += 4 * (maxCase(sw) + 1)
	}

	out := make(instr.List, 0, len(body)+8)
	for _, ln := range body {
		if ln.IsLabel() {
			continue
		}
		args := make([]instr.Operand, 0, len(ln.Args))
		for _, a := range ln.Args {
			switch v := a.(type) {
			case instr.BranchLabel:
				args = append(args, instr.Addr{Value: addrOf[v.K]})
			case instr.SwitchIdx:
				// informational only, already consumed by the CFG walk.
			case instr.SwitchTableIdx:
				hi, lo := loadSplit(tableAddr[v.K])
				if ln.Op == "lis" {
					args = append(args, instr.Imm{Value: hi})
				} else {
					args = append(args, instr.Imm{Value: lo})
				}
			default:
				args = append(args, a)
			}
		}
		out = append(out, instr.Ins{Op: ln.Op, Args: args})
	}

	for k, sw := range switches {
		n := maxCase(sw) + 1
		entries := make([]uint32, n)
		for i := range entries {
			entries[i] = addrOf[sw.Default]
		}
		for val, branch := range sw.Cases {
			entries[val] = addrOf[branch]
		}
		_ = k
		for _, target := range entries {
			out = append(out, instr.Ins{Op: "@word", Args: []instr.Operand{instr.Addr{Value: target}}})
		}
	}

	return out, tAddr
}
