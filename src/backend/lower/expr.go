package lower

import (
	"fmt"
	"math/bits"
	"regexp"
	"strings"

	"pbrc/src/ast"
	"pbrc/src/instr"
)

// ---------------------
// ----- Constants -----
// ---------------------

var opToAsm = map[ast.Operator]string{
	ast.Add: "add", ast.Sub: "sub", ast.Mul: "mullw", ast.Div: "divw",
	ast.Mask: "and", ast.Lshift: "slw", ast.Rshift: "srw",
}

var opImmToAsm = map[ast.Operator]string{
	ast.Add: "addi", ast.Sub: "subi", ast.Mul: "mulli",
	ast.Mask: "andi.", ast.Lshift: "slwi", ast.Rshift: "srwi",
}

var fopToAsm = map[ast.Operator]string{
	ast.Add: "fadds", ast.Sub: "fsubs", ast.Mul: "fmuls", ast.Div: "fdivs",
}

var maskGapRe = regexp.MustCompile(`10+1`)

// ---------------------
// ----- Functions -----
// ---------------------

func iv(name string) instr.Operand  { return instr.IntVar{Name: name} }
func fv(name string) instr.Operand  { return instr.FloatVar{Name: name} }
func imm32(v int32) instr.Operand   { return instr.Imm{Value: v} }
func rReg(n uint8) instr.Operand    { return instr.Reg{Num: n} }
func crf0() instr.Operand           { return instr.Imm{Value: 0} }
func arraySlot(a *ast.Array) instr.Operand {
	return instr.ArraySlot{Name: a.Name, Index: a.Index}
}

func mkIns(op string, args ...instr.Operand) instr.Ins {
	return instr.Ins{Op: op, Args: args}
}

func isNumber(e ast.Expr) bool {
	_, ok := e.(*ast.Number)
	return ok
}

func isPowOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// isMaskContiguous reports whether mask's set bits form one contiguous run,
// allowing wraparound across the bit-0/bit-31 boundary (PowerPC MB/ME
// numbering: bit 0 is the most significant bit of the word).
func isMaskContiguous(mask uint32) bool {
	if mask&0x80000000 != 0 {
		mask = ^mask
	}
	b := fmt.Sprintf("%032b", mask)
	return !maskGapRe.MatchString(b)
}

// maskBounds returns the PowerPC MB/ME bit indices (bit 0 = MSB) bounding
// mask's contiguous run, handling the wraparound case.
func maskBounds(mask uint32) (start, end int) {
	b := fmt.Sprintf("%032b", mask)
	first := strings.IndexByte(b, '1')
	last := strings.LastIndexByte(b, '1')
	if first > 0 || last < 31 {
		return first, last
	}
	return strings.LastIndexByte(b, '0') + 1, strings.IndexByte(b, '0') - 1
}

func log2(n uint32) int32 { return int32(bits.TrailingZeros32(n)) }

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func minI32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// genLoad loads the 32-bit literal value into name, picking the shortest
// li/lis/addi sequence. Every immediate field the encoder emits is masked
// to 16 bits regardless of sign, so unlike the source tool this never needs
// to choose between addi and subi to get the right bit pattern - a single
// signed addi with the truncated low half always produces it.
func genLoad(value uint32, name string) instr.List {
	switch {
	case value > 0xffff:
		upper := int32(value >> 16)
		lower := int32(value & 0xffff)
		if lower&0x8000 != 0 {
			upper++
		}
		out := instr.List{mkIns("lis", iv(name), imm32(upper))}
		if lower != 0 {
			out = append(out, mkIns("addi", iv(name), iv(name), imm32(int32(int16(lower)))))
		}
		return out
	case value > 0x7fff:
		return instr.List{
			mkIns("lis", iv(name), imm32(1)),
			mkIns("subi", iv(name), iv(name), imm32(int32(0x10000-value))),
		}
	default:
		return instr.List{mkIns("li", iv(name), imm32(int32(value)))}
	}
}

func castFloatToInt(srcVar, destName string) instr.List {
	return instr.List{
		mkIns("fctiwz", fv("_ftemp_"), fv(srcVar)),
		mkIns("stfd", fv("_ftemp_"), imm32(0x8), rReg(1)),
		mkIns("lwz", iv(destName), imm32(0xc), rReg(1)),
	}
}

func castIntToFloat(srcVar, destName string) instr.List {
	return instr.List{
		mkIns("lis", iv("_temp_"), imm32(0x4330)),
		mkIns("stw", iv("_temp_"), imm32(0x8), rReg(1)),
		mkIns("stw", iv(srcVar), imm32(0xc), rReg(1)),
		mkIns("lfd", fv(destName), imm32(0x8), rReg(1)),
		mkIns("lfd", fv("_ftemp_"), imm32(-0x7ff8), rReg(2)),
		mkIns("fsubs", fv(destName), fv(destName), fv("_ftemp_")),
	}
}

func lowerCastExpr(c *ast.Cast, destName string) instr.List {
	if c.To == ast.Int {
		return castFloatToInt(c.Var.Name, destName)
	}
	return castIntToFloat(c.Var.Name, destName)
}

// genMath lowers an integer Operation tree into dest, threading the
// synthetic-temporary counter n downward exactly as the source tool does:
// each call picks its own temp names starting at n, without reconciling
// against how many temporaries a nested recursive call actually used. Two
// unrelated subexpressions can therefore reuse the same temp name; this is
// harmless because their live ranges never overlap, so the allocator never
// sees a false interference.
func (l *Lowerer) genMath(op *ast.Operation, dest string, n int) (instr.List, error) {
	var out instr.List

	if op.Op == ast.Insert {
		maskOp, ok := op.Left.(*ast.Operation)
		if !ok || maskOp.Op != ast.Mask {
			return nil, fmt.Errorf("insert: left operand must be a mask expression")
		}
		maskNum, ok := maskOp.Right.(*ast.Number)
		if !ok {
			return nil, fmt.Errorf("insert: mask must be a literal")
		}
		var nameL string
		switch base := maskOp.Left.(type) {
		case *ast.Number:
			nameL = fmt.Sprintf("_temp%d_", n)
			out = append(out, genLoad(base.Value, nameL)...)
			n++
		case *ast.Variable:
			nameL = base.Name
		default:
			return nil, fmt.Errorf("insert: unsupported base operand %T", base)
		}
		mask := maskNum.Value
		var nameR string
		switch v := op.Right.(type) {
		case *ast.Number:
			nameR = fmt.Sprintf("_temp%d_", n)
			out = append(out, genLoad(v.Value, nameR)...)
		case *ast.Variable:
			nameR = v.Name
		default:
			return nil, fmt.Errorf("insert: unsupported value operand %T", v)
		}
		if !isMaskContiguous(mask) {
			return nil, fmt.Errorf("insertion mask %#x is not contiguous", mask)
		}
		start, end := maskBounds(mask)
		var size int
		if end > start {
			size = end - start + 1
		} else {
			size = 0x21 + end - start
		}
		tmp := fmt.Sprintf("_temp%d_", n)
		sh := (0x40 - start - size) % 0x20
		mb := start
		me := (start + size - 1) % 0x20
		out = append(out,
			mkIns("mr", iv(tmp), iv(nameL)),
			mkIns("rlwimi", iv(tmp), iv(nameR), imm32(int32(sh)), imm32(int32(mb)), imm32(int32(me))),
			mkIns("mr", iv(dest), iv(tmp)))
		return out, nil
	}

	if op.Op == ast.Mod {
		div := &ast.Operation{Op: ast.Div, Left: op.Left, Right: op.Right}
		mul := &ast.Operation{Op: ast.Mul, Left: div, Right: op.Right}
		sub := &ast.Operation{Op: ast.Sub, Left: op.Left, Right: mul}
		return l.genMath(sub, dest, n)
	}

	var vars []string
	var haveConst bool
	var constVal uint32

	for _, arg := range [2]ast.Expr{op.Left, op.Right} {
		temp := fmt.Sprintf("_temp%d_", n)
		switch a := arg.(type) {
		case *ast.Variable:
			vars = append(vars, a.Name)
		case *ast.Array:
			out = append(out, mkIns("lwz", iv(temp), arraySlot(a), rReg(1)))
			vars = append(vars, temp)
			n++
		case *ast.Cast:
			out = append(out, lowerCastExpr(a, temp)...)
			l.state.UsesCasts = true
			vars = append(vars, temp)
			n++
		case *ast.Number:
			needsLoad := (a.Value > 0x7fff && !(op.Op == ast.Mask && isMaskContiguous(a.Value))) ||
				((op.Op == ast.Div || op.Op == ast.Rshift || op.Op == ast.Lshift) && isNumber(op.Left)) ||
				(op.Op == ast.Div && !isPowOfTwo(a.Value))
			if needsLoad {
				out = append(out, genLoad(a.Value, temp)...)
				vars = append(vars, temp)
				n++
			} else {
				haveConst = true
				constVal = a.Value
			}
		case *ast.Operation:
			sub, err := l.genMath(a, temp, n)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			vars = append(vars, temp)
			n++
		default:
			return nil, fmt.Errorf("genMath: unsupported operand %T", a)
		}
	}

	switch len(vars) {
	case 2:
		out = append(out, mkIns(opToAsm[op.Op], iv(dest), iv(vars[0]), iv(vars[1])))
	case 1:
		if !haveConst {
			return nil, fmt.Errorf("genMath: missing literal operand")
		}
		switch {
		case op.Op == ast.Div && isPowOfTwo(constVal):
			shift := 32 - log2(constVal)
			out = append(out, mkIns("rlwinm", iv(dest), iv(vars[0]), imm32(shift), imm32(32-shift), imm32(0x1f)))
		case op.Op == ast.Mul && isPowOfTwo(constVal):
			shift := log2(constVal)
			out = append(out, mkIns("rlwinm", iv(dest), iv(vars[0]), imm32(shift), imm32(0), imm32(0x1f-shift)))
		case op.Op == ast.Sub && isNumber(op.Left):
			out = append(out, mkIns("neg", iv("_temp_"), iv(vars[0])))
			out = append(out, mkIns("addi", iv(dest), iv("_temp_"), imm32(int32(constVal))))
		case op.Op == ast.Mask && isMaskContiguous(constVal):
			start, end := maskBounds(constVal)
			out = append(out, mkIns("rlwinm", iv(dest), iv(vars[0]), imm32(0), imm32(int32(start)), imm32(int32(end))))
		case (op.Op == ast.Rshift || op.Op == ast.Lshift) && len(out) > 0 && out[len(out)-1].Op == "rlwinm":
			last := out[len(out)-1]
			mb := last.Args[3].(instr.Imm).Value
			me := last.Args[4].(instr.Imm).Value
			var rot, start, end int32
			k := int32(constVal)
			if op.Op == ast.Lshift {
				rot = k
				start = maxI32(mb-k, 0)
				end = maxI32(me-k, 0)
			} else {
				rot = 32 - k
				start = minI32(mb+k, 31)
				end = minI32(me+k, 31)
			}
			src := last.Args[1]
			out[len(out)-1] = mkIns("rlwinm", iv(dest), src, imm32(rot), imm32(start), imm32(end))
		default:
			out = append(out, mkIns(opImmToAsm[op.Op], iv(dest), iv(vars[0]), imm32(int32(constVal))))
		}
	default:
		return nil, fmt.Errorf("genMath: both operands are literals")
	}
	return out, nil
}

// genFMath is genMath's float counterpart: no strength reduction (single
// precision arithmetic never folds to a shift) and no bare literal operand,
// since the language carries no float literal syntax.
func (l *Lowerer) genFMath(op *ast.Operation, dest string, n int) (instr.List, error) {
	var out instr.List
	var vars []string

	for _, arg := range [2]ast.Expr{op.Left, op.Right} {
		temp := fmt.Sprintf("_ftemp%d_", n)
		switch a := arg.(type) {
		case *ast.Variable:
			vars = append(vars, a.Name)
		case *ast.Array:
			out = append(out, mkIns("lfs", fv(temp), arraySlot(a), rReg(1)))
			vars = append(vars, temp)
			n++
		case *ast.Cast:
			out = append(out, lowerCastExpr(a, temp)...)
			l.state.UsesCasts = true
			vars = append(vars, temp)
			n++
		case *ast.Operation:
			sub, err := l.genFMath(a, temp, n)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			vars = append(vars, temp)
			n++
		default:
			return nil, fmt.Errorf("genFMath: unsupported operand %T", a)
		}
	}

	if len(vars) != 2 {
		return nil, fmt.Errorf("genFMath: float operations require two resolvable operands")
	}
	mnem, ok := fopToAsm[op.Op]
	if !ok {
		return nil, fmt.Errorf("genFMath: operator %v is not valid on floats", op.Op)
	}
	out = append(out, mkIns(mnem, fv(dest), fv(vars[0]), fv(vars[1])))
	return out, nil
}
