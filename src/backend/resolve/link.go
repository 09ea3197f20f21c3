package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"pbrc/src/instr"
	"pbrc/src/region"
)

// Link performs the global cross-function pass, per §4.3: every FunctionRef
// and AddrLoadHalf placeholder left over from per-function resolution is
// patched in place against (1) this compilation unit's own function table,
// (2) the region's global function table, or (3) a literal FUN_XXXXXXXX
// fallback. A name resolving to none of those is a fatal unknown symbol.
func Link(funcs []Func, regionName string) error {
	local := make(map[string]uint32, len(funcs))
	for _, f := range funcs {
		local[f.Name] = f.Base
	}

	resolve := func(name string) (uint32, error) {
		if addr, ok := local[name]; ok {
			return addr, nil
		}
		if addr, ok := region.Lookup(regionName, name); ok {
			return addr, nil
		}
		if addr, ok := parseFunLiteral(name); ok {
			return addr, nil
		}
		return 0, fmt.Errorf("UNKNOWN: %s", name)
	}

	for fi, f := range funcs {
		for i, ln := range f.List {
			if ln.Op == "bl" && len(ln.Args) == 1 {
				if ref, ok := ln.Args[0].(instr.FunctionRef); ok {
					addr, err := resolve(ref.Name)
					if err != nil {
						return err
					}
					ln.Args[0] = instr.Addr{Value: addr}
					f.List[i] = ln
				}
				continue
			}
			if ln.Op != "lis" && ln.Op != "addi" {
				continue
			}
			last := len(ln.Args) - 1
			half, ok := ln.Args[last].(instr.AddrLoadHalf)
			if !ok {
				continue
			}
			addr, err := resolve(half.Name)
			if err != nil {
				return err
			}
			hi, lo := loadSplit(addr)
			if half.Hi {
				ln.Args[last] = instr.Imm{Value: hi}
			} else {
				ln.Args[last] = instr.Imm{Value: lo}
			}
			f.List[i] = ln
		}
		funcs[fi] = f
	}
	return nil
}

// parseFunLiteral recognizes the FUN_XXXXXXXX literal-address fallback form
// used for calls into code with no symbolic name in any function table.
func parseFunLiteral(name string) (uint32, bool) {
	hex, ok := strings.CutPrefix(name, "FUN_")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
