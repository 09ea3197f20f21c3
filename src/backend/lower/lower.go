package lower

import (
	"fmt"

	"pbrc/src/ast"
	"pbrc/src/backend/regfile"
	"pbrc/src/instr"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Lowerer walks one function at a time, threading its own State.
type Lowerer struct {
	state *State
}

// ---------------------
// ----- Functions -----
// ---------------------

// New returns a Lowerer ready to process one function.
func New() *Lowerer { return &Lowerer{} }

// Function lowers one parsed function definition into a symbolic
// instruction list plus the per-function state the later stages need
// (array table, switch descriptors, the casts flag).
func (l *Lowerer) Function(f *ast.Function) (instr.List, *State, error) {
	l.state = NewState()
	var out instr.List

	intIdx, floatIdx := regfile.FirstIntArg, regfile.FirstFloatArg
	for _, p := range f.Params {
		if p.Typ == ast.Float {
			out = append(out, mkIns("fmr", fv(p.Name), fv(fmt.Sprintf("_f%d_", floatIdx))))
			floatIdx++
		} else {
			out = append(out, mkIns("mr", iv(p.Name), iv(fmt.Sprintf("_r%d_", intIdx))))
			intIdx++
		}
	}

	for _, stmt := range f.Body {
		s, err := l.lowerStmt(stmt)
		if err != nil {
			return nil, nil, fmt.Errorf("function %s: %w", f.Name, err)
		}
		out = append(out, s...)
	}

	if f.Return != nil {
		if f.Return.Typ == ast.Float {
			out = append(out, mkIns("fmr", fv("_f1_"), fv(f.Return.Name)))
		} else {
			out = append(out, mkIns("mr", iv("_r3_"), iv(f.Return.Name)))
		}
	}

	out = peephole(out)
	return out, l.state, nil
}

// lowerStmt dispatches one statement to its specific lowering routine.
func (l *Lowerer) lowerStmt(stmt ast.Stmt) (instr.List, error) {
	switch s := stmt.(type) {
	case *ast.Set:
		return l.lowerSet(s)
	case *ast.FSet:
		return l.lowerFSet(s)
	case *ast.Alloc:
		l.state.Arrays[s.Var] = &ArrayInfo{Typ: s.Typ, Size: s.Size}
		l.state.ArrayOrder = append(l.state.ArrayOrder, s.Var)
		return nil, nil
	case *ast.LoadStore:
		return lowerLoadStore(s), nil
	case *ast.Call:
		return l.lowerCall(s)
	case *ast.If:
		return l.lowerIf(s)
	case *ast.For:
		return l.lowerFor(s)
	case *ast.While:
		return l.lowerWhile(s)
	case *ast.Switch:
		return l.lowerSwitch(s)
	case *ast.Break:
		return instr.List{mkIns("b", instr.BranchLabel{K: l.state.breakIdx})}, nil
	case *ast.Continue:
		return instr.List{mkIns("b", instr.BranchLabel{K: l.state.continueIdx})}, nil
	default:
		return nil, fmt.Errorf("lowerStmt: unhandled statement %T", stmt)
	}
}

// lowerSet lowers an integer assignment to a scalar Variable or Array slot.
func (l *Lowerer) lowerSet(s *ast.Set) (instr.List, error) {
	var out instr.List
	arr, isArrayTarget := s.Var.(*ast.Array)
	name := "_temp_"
	if !isArrayTarget {
		name = s.Var.(*ast.Variable).Name
	}
	handled := false

	switch expr := s.Expression.(type) {
	case *ast.Number:
		out = append(out, genLoad(expr.Value, name)...)
	case *ast.Variable:
		if isArrayTarget {
			out = append(out, mkIns("stw", iv(expr.Name), arraySlot(arr), rReg(1)))
			handled = true
		} else {
			out = append(out, mkIns("mr", iv(name), iv(expr.Name)))
		}
	case *ast.Array:
		out = append(out, mkIns("lwz", iv(name), arraySlot(expr), rReg(1)))
	case *ast.Pointer:
		if expr.Kind == ast.PointerArray {
			out = append(out, mkIns("addi", iv(name), rReg(1), instr.ArraySlot{Name: expr.Target}))
		} else {
			out = append(out, mkIns("lis", iv(name), instr.AddrLoadHalf{Name: expr.Target, Hi: true}))
			out = append(out, mkIns("addi", iv(name), iv(name), instr.AddrLoadHalf{Name: expr.Target}))
		}
	case *ast.Cast:
		out = append(out, lowerCastExpr(expr, name)...)
		l.state.UsesCasts = true
	case *ast.Call:
		callAsm, err := l.lowerCall(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, callAsm...)
		if isArrayTarget {
			out = append(out, mkIns("stw", iv("_r3_"), arraySlot(arr), rReg(1)))
			handled = true
		} else {
			out = append(out, mkIns("mr", iv(name), iv("_r3_")))
		}
	case *ast.Operation:
		mathAsm, err := l.genMath(expr, name, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, mathAsm...)
	default:
		return nil, fmt.Errorf("set: unhandled expression %T", expr)
	}

	if isArrayTarget && !handled {
		out = append(out, mkIns("stw", iv(name), arraySlot(arr), rReg(1)))
	}
	return out, nil
}

// lowerFSet is lowerSet's float counterpart; floats carry no literal syntax
// and no pointer-valued expression, so those two arms are absent.
func (l *Lowerer) lowerFSet(s *ast.FSet) (instr.List, error) {
	var out instr.List
	arr, isArrayTarget := s.Var.(*ast.Array)
	name := "_ftemp_"
	if !isArrayTarget {
		name = s.Var.(*ast.Variable).Name
	}
	handled := false

	switch expr := s.Expression.(type) {
	case *ast.Variable:
		if isArrayTarget {
			out = append(out, mkIns("stfs", fv(expr.Name), arraySlot(arr), rReg(1)))
			handled = true
		} else {
			out = append(out, mkIns("fmr", fv(name), fv(expr.Name)))
		}
	case *ast.Array:
		out = append(out, mkIns("lfs", fv(name), arraySlot(expr), rReg(1)))
	case *ast.Cast:
		out = append(out, lowerCastExpr(expr, name)...)
		l.state.UsesCasts = true
	case *ast.Call:
		callAsm, err := l.lowerCall(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, callAsm...)
		if isArrayTarget {
			out = append(out, mkIns("stfs", fv("_f1_"), arraySlot(arr), rReg(1)))
			handled = true
		} else {
			out = append(out, mkIns("fmr", fv(name), fv("_f1_")))
		}
	case *ast.Operation:
		mathAsm, err := l.genFMath(expr, name, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, mathAsm...)
	default:
		return nil, fmt.Errorf("fset: unhandled expression %T", expr)
	}

	if isArrayTarget && !handled {
		out = append(out, mkIns("stfs", fv(name), arraySlot(arr), rReg(1)))
	}
	return out, nil
}

// lowerLoadStore lowers an explicit memory access, picking the displacement
// form for a literal offset and the indexed form for a variable one.
func lowerLoadStore(ls *ast.LoadStore) instr.List {
	var varOp instr.Operand
	if ls.Typ == ast.Float {
		varOp = fv(ls.Var.Name)
	} else {
		varOp = iv(ls.Var.Name)
	}
	if num, ok := ls.Offset.(*ast.Number); ok {
		return instr.List{mkIns(ls.Opcode, varOp, imm32(int32(num.Value)), iv(ls.Base.Name))}
	}
	offsetVar := ls.Offset.(*ast.Variable)
	return instr.List{mkIns(ls.Opcode+"x", varOp, iv(ls.Base.Name), iv(offsetVar.Name))}
}

// lowerCall marshals arguments into the rK_/fK_ argument slots and emits
// either a direct bl or an indirect mtctr+bctrl.
func (l *Lowerer) lowerCall(c *ast.Call) (instr.List, error) {
	if len(c.Args) > 8 {
		return nil, fmt.Errorf("call to %s: too many arguments (%d)", c.Function, len(c.Args))
	}
	var out instr.List
	intIdx, floatIdx := regfile.FirstIntArg, regfile.FirstFloatArg

	for _, arg := range c.Args {
		isFloatVar := false
		if v, ok := arg.(*ast.Variable); ok && v.Typ == ast.Float {
			isFloatVar = true
		}
		var name string
		if isFloatVar {
			name = fmt.Sprintf("_f%d_", floatIdx)
		} else {
			name = fmt.Sprintf("_r%d_", intIdx)
		}

		switch a := arg.(type) {
		case *ast.Number:
			out = append(out, genLoad(a.Value, name)...)
		case *ast.Variable:
			if a.Typ == ast.Float {
				out = append(out, mkIns("fmr", fv(name), fv(a.Name)))
			} else {
				out = append(out, mkIns("mr", iv(name), iv(a.Name)))
			}
		case *ast.Pointer:
			if a.Kind == ast.PointerArray {
				out = append(out, mkIns("addi", iv(name), rReg(1), instr.ArraySlot{Name: a.Target}))
			} else {
				out = append(out, mkIns("lis", iv(name), instr.AddrLoadHalf{Name: a.Target, Hi: true}))
				out = append(out, mkIns("addi", iv(name), iv(name), instr.AddrLoadHalf{Name: a.Target}))
			}
		default:
			return nil, fmt.Errorf("call to %s: unsupported argument %T", c.Function, arg)
		}

		if isFloatVar {
			floatIdx++
		} else {
			intIdx++
		}
	}

	if c.Kind == ast.CallIndirect {
		out = append(out, mkIns("mtctr", iv(c.Ptr.Target)), mkIns("bctrl"))
	} else {
		out = append(out, mkIns("bl", instr.FunctionRef{Name: c.Function}))
	}
	return out, nil
}
