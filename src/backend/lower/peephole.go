package lower

import "pbrc/src/instr"

// notAWrite lists mnemonics whose first operand is read rather than
// defined, so they must never be mistaken for the write that invalidates
// a tracked identity: comparisons (operand compared, not assigned),
// stores (value being written to memory, not a placeholder), branches and
// the label pseudo-op (no placeholder operand at all), and the two
// special-register moves that target ctr/lr rather than a placeholder.
var notAWrite = map[string]bool{
	"cmpw": true, "cmplw": true, "cmpwi": true, "cmplwi": true,
	"fcmpo": true, "fcmpu": true,
	"stb": true, "stbu": true, "sth": true, "sthu": true, "stw": true, "stwu": true,
	"stfs": true, "stfsu": true, "stfd": true, "stfdu": true,
	"stbx": true, "stbux": true, "sthx": true, "sthux": true,
	"stwx": true, "stwux": true, "stfsx": true, "stfsux": true,
	"b": true, "bl": true, "beq": true, "bne": true, "bgt": true, "bge": true,
	"blt": true, "ble": true, "bdnz": true, "bctr": true, "bctrl": true, "blr": true,
	"mtctr": true, "mtlr": true, "@label": true,
}

// endsScan lists mnemonics that close out the "from entry to the first
// call or branch" window SPEC_FULL.md:106 scopes the redundant-move rule
// to.
var endsScan = map[string]bool{
	"bl": true, "bctrl": true, "bctr": true, "blr": true,
	"b": true, "beq": true, "bne": true, "bgt": true, "bge": true,
	"blt": true, "ble": true, "bdnz": true, "@label": true,
}

// peephole applies the two local cleanups §4.1.1 describes:
//
//  1. any mr/fmr whose source and destination name the same placeholder
//     is dropped, anywhere in the function;
//  2. scanning forward from entry until the first call or branch, a
//     mapping from "current name of register R" to the placeholder most
//     recently copied into it is maintained; a move that would reproduce
//     an identity already implied by that mapping - including the
//     reversed round trip mr a,b ... mr b,a with no intervening write to
//     either - is deleted. Writing a name invalidates its entry.
func peephole(in instr.List) instr.List {
	out := make(instr.List, 0, len(in))
	known := map[string]string{}
	scanning := true

	for _, ln := range in {
		if isSelfMove(ln) {
			continue
		}

		if scanning && isMove(ln) {
			d := operandName(ln.Args[0])
			s := operandName(ln.Args[1])
			if known[s] == d || known[d] == s {
				continue
			}
			out = append(out, ln)
			invalidate(known, d)
			known[d] = s
			continue
		}

		if scanning {
			if endsScan[ln.Op] {
				scanning = false
			} else if w, ok := writtenName(ln); ok {
				invalidate(known, w)
			}
		}
		out = append(out, ln)
	}
	return out
}

// invalidate forgets every mapping entry that involves name w, either as
// the register name or as the placeholder copied into it.
func invalidate(known map[string]string, w string) {
	delete(known, w)
	for k, v := range known {
		if v == w {
			delete(known, k)
		}
	}
}

func isMove(ln instr.Ins) bool {
	return (ln.Op == "mr" || ln.Op == "fmr") && len(ln.Args) == 2
}

func isSelfMove(ln instr.Ins) bool {
	if !isMove(ln) {
		return false
	}
	return operandName(ln.Args[0]) == operandName(ln.Args[1])
}

// writtenName returns the placeholder ln defines, if any: its first
// operand, unless ln's mnemonic is one of the forms where that operand is
// read rather than written.
func writtenName(ln instr.Ins) (string, bool) {
	if notAWrite[ln.Op] || len(ln.Args) == 0 {
		return "", false
	}
	switch ln.Args[0].(type) {
	case instr.IntVar, instr.FloatVar:
		return operandName(ln.Args[0]), true
	default:
		return "", false
	}
}

func operandName(o instr.Operand) string {
	switch v := o.(type) {
	case instr.IntVar:
		return v.Name
	case instr.FloatVar:
		return v.Name
	default:
		return o.String()
	}
}
