package lower

import (
	"fmt"

	"pbrc/src/ast"
	"pbrc/src/instr"
)

// ---------------------
// ----- Functions -----
// ---------------------

var comparatorSuffix = [...]string{"eq", "ne", "lt", "le", "gt", "ge"}

// genComparison lowers one leaf Conditional into a cmp/cmpi/fcmpu.
func (l *Lowerer) genComparison(c *ast.Conditional) (instr.List, error) {
	var out instr.List
	var arg1 instr.Operand
	isFloat := c.Left.ValueType() == ast.Float

	switch left := c.Left.(type) {
	case *ast.Variable:
		if isFloat {
			arg1 = fv(left.Name)
		} else {
			arg1 = iv(left.Name)
		}
	case *ast.Operation:
		if isFloat {
			asm, err := l.genFMath(left, "_temp_", 0)
			if err != nil {
				return nil, err
			}
			out = append(out, asm...)
			arg1 = fv("_temp_")
		} else {
			asm, err := l.genMath(left, "_temp_", 0)
			if err != nil {
				return nil, err
			}
			out = append(out, asm...)
			arg1 = iv("_temp_")
		}
	default:
		return nil, fmt.Errorf("comparison: unsupported left operand %T", left)
	}

	if num, ok := c.Right.(*ast.Number); ok {
		if isFloat {
			return nil, fmt.Errorf("comparison: a float cannot be compared with a literal")
		}
		op := "cmpwi"
		if num.Value >= 0x8000 {
			op = "cmplwi"
		}
		out = append(out, mkIns(op, arg1, imm32(int32(num.Value))))
		return out, nil
	}
	right, ok := c.Right.(*ast.Variable)
	if !ok {
		return nil, fmt.Errorf("comparison: unsupported right operand %T", c.Right)
	}
	if isFloat {
		out = append(out, mkIns("fcmpu", crf0(), arg1, fv(right.Name)))
	} else {
		out = append(out, mkIns("cmpw", arg1, iv(right.Name)))
	}
	return out, nil
}

// genCondition lowers an if/while Cond to a compare-and-branch sequence
// falling through to trueIdx and branching away to falseIdx.
func (l *Lowerer) genCondition(cond ast.Cond, trueIdx, falseIdx uint32) (instr.List, error) {
	var out instr.List
	var leaf *ast.Conditional

	if cc, ok := cond.(*ast.CompoundConditional); ok {
		cmpAsm, err := l.genComparison(cc.Left)
		if err != nil {
			return nil, err
		}
		out = append(out, cmpAsm...)
		if cc.Connective == ast.And {
			out = append(out, mkIns("b"+comparatorSuffix[cc.Left.Cmp.Inverse()], instr.BranchLabel{K: falseIdx}))
		} else {
			out = append(out, mkIns("b"+comparatorSuffix[cc.Left.Cmp], instr.BranchLabel{K: trueIdx}))
		}
		leaf = cc.Right
	} else {
		leaf = cond.(*ast.Conditional)
	}

	cmpAsm, err := l.genComparison(leaf)
	if err != nil {
		return nil, err
	}
	out = append(out, cmpAsm...)
	out = append(out, mkIns("b"+comparatorSuffix[leaf.Cmp.Inverse()], instr.BranchLabel{K: falseIdx}))
	return out, nil
}

// lowerIf lowers a chain of condition/body arms into labelled blocks,
// building the instruction list from the trailing arm backward exactly as
// the source tool does, so each arm's fall-through target is already known
// once its predecessor is prepended.
func (l *Lowerer) lowerIf(n *ast.If) (instr.List, error) {
	endIdx := l.state.NextBranch()
	nextIdx := endIdx
	var asm instr.List

	for i := len(n.Blocks) - 1; i >= 0; i-- {
		blk := n.Blocks[i]
		var block instr.List
		for _, stmt := range blk.Body {
			s, err := l.lowerStmt(stmt)
			if err != nil {
				return nil, err
			}
			block = append(block, s...)
		}
		if i < len(n.Blocks)-1 {
			block = append(block, mkIns("b", instr.BranchLabel{K: endIdx}))
		}
		if blk.Cond != nil {
			bodyIdx := l.state.NextBranch()
			cond, err := l.genCondition(blk.Cond, bodyIdx, nextIdx)
			if err != nil {
				return nil, err
			}
			prefixed := append(instr.List{}, cond...)
			prefixed = append(prefixed, instr.NewLabel(bodyIdx))
			block = append(prefixed, block...)
		}
		if i > 0 {
			nextIdx = l.state.NextBranch()
			block = append(instr.List{instr.NewLabel(nextIdx)}, block...)
		}
		asm = append(append(instr.List{}, block...), asm...)
	}
	asm = append(asm, instr.NewLabel(endIdx))
	return asm, nil
}

// lowerFor lowers a counted loop over [0, Range).
func (l *Lowerer) lowerFor(n *ast.For) (instr.List, error) {
	l.state.continueIdx = l.state.NextBranch()
	l.state.breakIdx = l.state.NextBranch()
	bodyIdx := l.state.NextBranch()

	asm := instr.List{
		mkIns("li", iv(n.Var.Name), imm32(0)),
		instr.NewLabel(bodyIdx),
	}
	for _, stmt := range n.Body {
		s, err := l.lowerStmt(stmt)
		if err != nil {
			return nil, err
		}
		asm = append(asm, s...)
	}
	asm = append(asm, instr.NewLabel(l.state.continueIdx))
	asm = append(asm, mkIns("addi", iv(n.Var.Name), iv(n.Var.Name), imm32(1)))
	if rv, ok := n.Range.(*ast.Variable); ok {
		asm = append(asm, mkIns("cmpw", iv(n.Var.Name), iv(rv.Name)))
	} else {
		rn, ok := n.Range.(*ast.Number)
		if !ok {
			return nil, fmt.Errorf("for: range must be a variable or literal, got %T", n.Range)
		}
		asm = append(asm, mkIns("cmpwi", iv(n.Var.Name), imm32(int32(rn.Value))))
	}
	asm = append(asm, mkIns("blt", instr.BranchLabel{K: bodyIdx}))
	asm = append(asm, instr.NewLabel(l.state.breakIdx))
	return asm, nil
}

// lowerWhile lowers a condition-guarded loop.
func (l *Lowerer) lowerWhile(n *ast.While) (instr.List, error) {
	l.state.continueIdx = l.state.NextBranch()
	l.state.breakIdx = l.state.NextBranch()
	bodyIdx := l.state.NextBranch()

	head, err := l.genCondition(n.Condition, bodyIdx, l.state.breakIdx)
	if err != nil {
		return nil, err
	}
	asm := instr.List{instr.NewLabel(l.state.continueIdx)}
	asm = append(asm, head...)
	asm = append(asm, instr.NewLabel(bodyIdx))
	for _, stmt := range n.Body {
		s, err := l.lowerStmt(stmt)
		if err != nil {
			return nil, err
		}
		asm = append(asm, s...)
	}
	asm = append(asm, mkIns("b", instr.BranchLabel{K: l.state.continueIdx}))
	asm = append(asm, instr.NewLabel(l.state.breakIdx))
	return asm, nil
}

// lowerSwitch lowers a range-checked jump-table dispatch. The switch
// descriptor is recorded on the function's state for the resolver to
// materialize the table itself once addresses are known.
func (l *Lowerer) lowerSwitch(n *ast.Switch) (instr.List, error) {
	exitIdx := l.state.NextBranch()
	defaultIdx := exitIdx
	desc := &SwitchDesc{Cases: map[uint32]uint32{}}
	var body instr.List

	for i, blk := range n.Blocks {
		var block instr.List
		if len(blk.Cases) == 0 {
			defaultIdx = l.state.NextBranch()
			block = append(block, instr.NewLabel(defaultIdx))
		} else {
			for _, c := range blk.Cases {
				branchIdx := l.state.NextBranch()
				block = append(block, instr.NewLabel(branchIdx))
				desc.Cases[c] = branchIdx
			}
		}
		for _, stmt := range blk.Body {
			s, err := l.lowerStmt(stmt)
			if err != nil {
				return nil, err
			}
			block = append(block, s...)
		}
		if i < len(n.Blocks)-1 {
			block = append(block, mkIns("b", instr.BranchLabel{K: exitIdx}))
		}
		body = append(body, block...)
	}
	if len(desc.Cases) == 0 {
		return nil, fmt.Errorf("switch on %s: no case arms", n.Var.Name)
	}
	desc.Default = defaultIdx

	switchIdx := uint32(len(l.state.Switches))
	var maxCase uint32
	for c := range desc.Cases {
		if c > maxCase {
			maxCase = c
		}
	}

	head := instr.List{
		mkIns("cmplwi", iv(n.Var.Name), imm32(int32(maxCase))),
		mkIns("bgt", instr.BranchLabel{K: defaultIdx}),
		mkIns("lis", iv("_addr_"), instr.SwitchTableIdx{K: switchIdx}),
		mkIns("addi", iv("_addr_"), iv("_addr_"), instr.SwitchTableIdx{K: switchIdx}),
		mkIns("rlwinm", iv("_offset_"), iv(n.Var.Name), imm32(0x2), imm32(0x0), imm32(0x1d)),
		mkIns("lwzx", iv("_addr_"), iv("_addr_"), iv("_offset_")),
		mkIns("mtctr", iv("_addr_")),
		mkIns("bctr", instr.SwitchIdx{K: switchIdx}),
	}
	asm := append(head, body...)
	asm = append(asm, instr.NewLabel(exitIdx))
	l.state.Switches = append(l.state.Switches, desc)
	return asm, nil
}
