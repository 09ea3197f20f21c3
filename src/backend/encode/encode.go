// Package encode turns a fully resolved instr.List - every placeholder
// gone, every operand a Reg, Imm or Addr - into the 32-bit big-endian
// PowerPC words that make up the final binary image.
package encode

import (
	"encoding/binary"
	"fmt"

	"pbrc/src/instr"
)

// ---------------------
// ----- Constants -----
// ---------------------

var mathExt = map[string]uint32{"add": 266, "sub": 40, "mullw": 235, "divw": 491, "neg": 104}
var mathImmPrefix = map[string]uint32{"addi": 14, "subi": 14, "mulli": 7}
var floatMathExt = map[string]uint32{"fadds": 21, "fsubs": 20, "fmuls": 25, "fdivs": 18}
var shiftExt = map[string]uint32{"slw": 24, "srw": 536}
var connectiveExt = map[string]uint32{"and": 28, "or": 444, "mr": 444}
var compareExt = map[string]uint32{"cmpw": 0, "cmplw": 32}
var compareImmPrefix = map[string]uint32{"cmpwi": 11, "cmplwi": 10}
var floatCompareExt = map[string]uint32{"fcmpo": 32, "fcmpu": 0}
var rotatePrefix = map[string]uint32{"rlwimi": 20, "rlwinm": 21}

var loadPrefix = map[string]uint32{"lbz": 34, "lfd": 50, "lfs": 48, "lha": 42, "lhz": 40, "lwz": 32}
var storePrefix = map[string]uint32{"stb": 38, "stfd": 54, "stfs": 52, "sth": 44, "stw": 36}
var loadIndexedExt = map[string]uint32{"lbzx": 87, "lhax": 343, "lhzx": 279, "lwzx": 23}
var storeIndexedExt = map[string]uint32{"stbx": 215, "sthx": 407}

// branchCondBO/BI per mnemonic, from the source tool's table.
var branchCondBO = map[string]uint32{
	"beq": 0b01100, "bgt": 0b01100, "blt": 0b01100,
	"bge": 0b00100, "ble": 0b00100, "bne": 0b00100,
	"bdnz": 0b10000,
}
var branchCondBI = map[string]uint32{
	"bge": 0, "blt": 0, "bdnz": 0,
	"bgt": 1, "ble": 1,
	"beq": 2, "bne": 2,
}

// ---------------------
// ----- Functions -----
// ---------------------

// Func encodes a single function's resolved instruction list (labels
// already removed, placeholders already resolved) into big-endian words,
// one per instruction, plus any trailing jump-table words.
func Func(at uint32, lines instr.List) ([]byte, error) {
	out := make([]byte, 0, len(lines)*4)
	addr := at
	for _, ln := range lines {
		word, err := Line(addr, ln)
		if err != nil {
			return nil, fmt.Errorf("encode %s at %#x: %w", ln, addr, err)
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], word)
		out = append(out, b[:]...)
		addr += 4
	}
	return out, nil
}

// Line encodes a single resolved instruction at address addr into its
// 32-bit big-endian word.
func Line(addr uint32, ln instr.Ins) (uint32, error) {
	if bare, ok := bareWord(ln); ok {
		return bare, nil
	}
	switch ln.Op {
	case "add", "sub", "mullw", "divw", "neg":
		return compileMath(ln)
	case "addi", "subi", "mulli":
		return compileMathImmediate(ln)
	case "slw", "srw":
		return compileShift(ln)
	case "fadds", "fsubs", "fmuls", "fdivs":
		return compileFloatMath(ln)
	case "fctiwz":
		return compileFloatConvert(ln)
	case "rlwimi", "rlwinm":
		return compileRotation(ln)
	case "and", "or", "mr":
		return compileConnective(ln)
	case "cmpw", "cmplw":
		return compileCompare(ln)
	case "cmpwi", "cmplwi":
		return compileCompareImmediate(ln)
	case "fcmpo", "fcmpu":
		return compileFloatCompare(ln)
	case "lbz", "lbzu", "lfd", "lfdu", "lfs", "lfsu", "lha", "lhau", "lhz", "lhzu", "lwz", "lwzu":
		return compileLoad(ln)
	case "lbzx", "lbzux", "lhax", "lhaux", "lhzx", "lhzux", "lwzx", "lwzux":
		return compileLoadIndexed(ln)
	case "li", "lis":
		return compileLoadImmediate(ln)
	case "stb", "stbu", "stfd", "stfdu", "stfs", "stfsu", "sth", "sthu", "stw", "stwu":
		return compileStore(ln)
	case "stbx", "stbux", "sthx", "sthux":
		return compileStoreIndexed(ln)
	case "b", "bl":
		return compileBranch(addr, ln)
	case "beq", "bgt", "bge", "blt", "ble", "bne", "bdnz":
		return compileBranchConditional(addr, ln)
	case "bctr", "bctrl", "blr":
		return compileBranchSpecial(ln)
	case "mfctr", "mtctr", "mflr", "mtlr":
		return compileMoveSpecial(ln)
	}
	return 0, fmt.Errorf("unhandled mnemonic: %s", ln.Op)
}

// bareWord handles a jump-table entry: a line holding a single already
// resolved Addr operand and no mnemonic opcode.
func bareWord(ln instr.Ins) (uint32, bool) {
	if ln.Op != "@word" {
		return 0, false
	}
	return ln.Args[0].(instr.Addr).Value, true
}

func reg(o instr.Operand) (uint32, error) {
	r, ok := o.(instr.Reg)
	if !ok {
		return 0, fmt.Errorf("operand %v is not a resolved register", o)
	}
	return uint32(r.Num), nil
}

func imm(o instr.Operand) (int32, error) {
	switch v := o.(type) {
	case instr.Imm:
		return v.Value, nil
	case instr.Addr:
		return int32(v.Value), nil
	}
	return 0, fmt.Errorf("operand %v is not a resolved immediate", o)
}

func compileMath(ln instr.Ins) (uint32, error) {
	d, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	a, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	var b uint32
	if ln.Op != "neg" {
		if b, err = reg(ln.Args[2]); err != nil {
			return 0, err
		}
	}
	if ln.Op == "sub" {
		a, b = b, a
	}
	ext := mathExt[ln.Op]
	return (31 << 26) + (d << 21) + (a << 16) + (b << 11) + (ext << 1), nil
}

func compileMathImmediate(ln instr.Ins) (uint32, error) {
	d, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	a, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	simm, err := imm(ln.Args[2])
	if err != nil {
		return 0, err
	}
	if ln.Op == "subi" {
		simm = -simm
	}
	prefix := mathImmPrefix[ln.Op]
	return (prefix << 26) + (d << 21) + (a << 16) + (uint32(simm) & 0xffff), nil
}

func compileShift(ln instr.Ins) (uint32, error) {
	a, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	s, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	b, err := reg(ln.Args[2])
	if err != nil {
		return 0, err
	}
	ext := shiftExt[ln.Op]
	return (31 << 26) + (s << 21) + (a << 16) + (b << 11) + (ext << 1), nil
}

func compileFloatMath(ln instr.Ins) (uint32, error) {
	d, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	a, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	b, err := reg(ln.Args[2])
	if err != nil {
		return 0, err
	}
	var c uint32
	ext := floatMathExt[ln.Op]
	if ln.Op == "fmuls" {
		b, c = c, b
	}
	return (59 << 26) + (d << 21) + (a << 16) + (b << 11) + (c << 6) + (ext << 1), nil
}

func compileFloatConvert(ln instr.Ins) (uint32, error) {
	d, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	b, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	return (63 << 26) + (d << 21) + (b << 11) + (15 << 1), nil
}

func compileRotation(ln instr.Ins) (uint32, error) {
	a, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	s, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	sh, err := imm(ln.Args[2])
	if err != nil {
		return 0, err
	}
	mb, err := imm(ln.Args[3])
	if err != nil {
		return 0, err
	}
	me, err := imm(ln.Args[4])
	if err != nil {
		return 0, err
	}
	prefix := rotatePrefix[ln.Op]
	return (prefix << 26) + (s << 21) + (a << 16) + (uint32(sh) << 11) + (uint32(mb) << 6) + (uint32(me) << 1), nil
}

func compileConnective(ln instr.Ins) (uint32, error) {
	a, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	s, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	b := s
	if ln.Op != "mr" {
		if b, err = reg(ln.Args[2]); err != nil {
			return 0, err
		}
	}
	ext := connectiveExt[ln.Op]
	return (31 << 26) + (s << 21) + (a << 16) + (b << 11) + (ext << 1), nil
}

func compileCompare(ln instr.Ins) (uint32, error) {
	a, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	b, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	ext := compareExt[ln.Op]
	return (31 << 26) + (a << 16) + (b << 11) + (ext << 1), nil
}

func compileCompareImmediate(ln instr.Ins) (uint32, error) {
	a, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	v, err := imm(ln.Args[1])
	if err != nil {
		return 0, err
	}
	prefix := compareImmPrefix[ln.Op]
	return (prefix << 26) + (a << 16) + (uint32(v) & 0xffff), nil
}

// compileFloatCompare: Args[0] is the crfD field (0-7), not a register -
// the encoded result is always compared against cr0 by the lowerer, but the
// field is carried as an Imm so a future crfD other than 0 needs no rework.
func compileFloatCompare(ln instr.Ins) (uint32, error) {
	d, err := imm(ln.Args[0])
	if err != nil {
		return 0, err
	}
	a, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	b, err := reg(ln.Args[2])
	if err != nil {
		return 0, err
	}
	ext := floatCompareExt[ln.Op]
	return (63 << 26) + (uint32(d) << 23) + (a << 16) + (b << 11) + (ext << 1), nil
}

func compileLoad(ln instr.Ins) (uint32, error) {
	d, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	disp, err := imm(ln.Args[1])
	if err != nil {
		return 0, err
	}
	a, err := reg(ln.Args[2])
	if err != nil {
		return 0, err
	}
	base := ln.Op
	update := base[len(base)-1] == 'u'
	if update {
		base = base[:len(base)-1]
	}
	prefix := loadPrefix[base]
	if update {
		prefix++
	}
	return (prefix << 26) + (d << 21) + (a << 16) + (uint32(disp) & 0xffff), nil
}

func compileLoadIndexed(ln instr.Ins) (uint32, error) {
	d, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	a, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	b, err := reg(ln.Args[2])
	if err != nil {
		return 0, err
	}
	base := ln.Op
	update := len(base) >= 2 && base[len(base)-2] == 'u'
	if update {
		base = base[:len(base)-2] + base[len(base)-1:]
	}
	ext := loadIndexedExt[base]
	if update {
		ext += 32
	}
	return (31 << 26) + (d << 21) + (a << 16) + (b << 11) + (ext << 1), nil
}

func compileLoadImmediate(ln instr.Ins) (uint32, error) {
	d, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	simm, err := imm(ln.Args[1])
	if err != nil {
		return 0, err
	}
	prefix := uint32(14)
	if ln.Op == "lis" {
		prefix++
	}
	return (prefix << 26) + (d << 21) + (uint32(simm) & 0xffff), nil
}

func compileStore(ln instr.Ins) (uint32, error) {
	s, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	disp, err := imm(ln.Args[1])
	if err != nil {
		return 0, err
	}
	a, err := reg(ln.Args[2])
	if err != nil {
		return 0, err
	}
	base := ln.Op
	update := base[len(base)-1] == 'u'
	if update {
		base = base[:len(base)-1]
	}
	prefix := storePrefix[base]
	if update {
		prefix++
	}
	return (prefix << 26) + (s << 21) + (a << 16) + (uint32(disp) & 0xffff), nil
}

func compileStoreIndexed(ln instr.Ins) (uint32, error) {
	s, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	a, err := reg(ln.Args[1])
	if err != nil {
		return 0, err
	}
	b, err := reg(ln.Args[2])
	if err != nil {
		return 0, err
	}
	base := ln.Op
	update := len(base) >= 2 && base[len(base)-2] == 'u'
	if update {
		base = base[:len(base)-2] + base[len(base)-1:]
	}
	ext := storeIndexedExt[base]
	if update {
		ext += 32
	}
	return (31 << 26) + (s << 21) + (a << 16) + (b << 11) + (ext << 1), nil
}

func compileBranch(addr uint32, ln instr.Ins) (uint32, error) {
	target, err := imm(ln.Args[0])
	if err != nil {
		return 0, err
	}
	li := (uint32(int64(target)-int64(addr)) >> 2) & 0xffffff
	var lk uint32
	if ln.Op == "bl" {
		lk = 1
	}
	return (18 << 26) + (li << 2) + lk, nil
}

func compileBranchConditional(addr uint32, ln instr.Ins) (uint32, error) {
	target, err := imm(ln.Args[0])
	if err != nil {
		return 0, err
	}
	bd := (uint32(int64(target)-int64(addr)) >> 2) & 0x3fff
	bo, ok := branchCondBO[ln.Op]
	if !ok {
		return 0, fmt.Errorf("unknown conditional branch mnemonic: %s", ln.Op)
	}
	bi := branchCondBI[ln.Op]
	return (16 << 26) + (bo << 21) + (bi << 16) + (bd << 2), nil
}

func compileBranchSpecial(ln instr.Ins) (uint32, error) {
	var lk uint32
	if ln.Op[len(ln.Op)-1] == 'l' {
		lk = 1
	}
	const bo = 0b10100
	const bi = 0
	var suffix uint32
	switch ln.Op {
	case "bctr", "bctrl":
		suffix = 528
	case "blr":
		suffix = 16
	}
	return (19 << 26) + (bo << 21) + (bi << 16) + (suffix << 1) + lk, nil
}

func compileMoveSpecial(ln instr.Ins) (uint32, error) {
	d, err := reg(ln.Args[0])
	if err != nil {
		return 0, err
	}
	var ext uint32 = 339
	if ln.Op == "mtctr" || ln.Op == "mtlr" {
		ext = 467
	}
	var spr uint32 = 9
	if ln.Op == "mflr" || ln.Op == "mtlr" {
		spr = 8
	}
	return (31 << 26) + (d << 21) + (spr << 16) + (ext << 1), nil
}
