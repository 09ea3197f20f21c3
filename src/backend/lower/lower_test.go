package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pbrc/src/ast"
	"pbrc/src/instr"
)

// addFunction builds the ast.Function for `def add(int a, int b): set c = a
// + b; return c end` without going through the parser.
func addFunction() *ast.Function {
	a := ast.Param{Name: "a", Typ: ast.Int}
	b := ast.Param{Name: "b", Typ: ast.Int}
	set := &ast.Set{
		Var: &ast.Variable{Name: "c", Typ: ast.Int},
		Expression: &ast.Operation{
			Op:    ast.Add,
			Left:  &ast.Variable{Name: "a", Typ: ast.Int},
			Right: &ast.Variable{Name: "b", Typ: ast.Int},
		},
	}
	return &ast.Function{
		Name:   "add",
		Params: []ast.Param{a, b},
		Body:   []ast.Stmt{set},
		Return: &ast.Variable{Name: "c", Typ: ast.Int},
	}
}

func TestLowerSimpleFunction(t *testing.T) {
	body, st, err := New().Function(addFunction())
	require.NoError(t, err)
	require.NotNil(t, st)
	require.False(t, st.UsesCasts)
	require.Empty(t, st.ArrayOrder)

	require.NotEmpty(t, body)
	last := body[len(body)-1]
	require.Equal(t, "mr", last.Op)
	require.Equal(t, instr.IntVar{Name: "_r3_"}, last.Args[0])
	require.Equal(t, instr.IntVar{Name: "c"}, last.Args[1])
}

func TestLowerAllocTracksArrayOrder(t *testing.T) {
	f := &ast.Function{
		Name: "f",
		Body: []ast.Stmt{
			&ast.Alloc{Var: "buf", Typ: ast.Int, Size: 4},
		},
	}
	_, st, err := New().Function(f)
	require.NoError(t, err)
	require.Equal(t, []string{"buf"}, st.ArrayOrder)
	require.Equal(t, &ArrayInfo{Typ: ast.Int, Size: 4}, st.Arrays["buf"])
}

func TestLowerDirectCallEmitsBranchLink(t *testing.T) {
	f := &ast.Function{
		Name: "caller",
		Body: []ast.Stmt{
			&ast.Call{Function: "callee", Kind: ast.CallDirect},
		},
	}
	body, _, err := New().Function(f)
	require.NoError(t, err)

	found := false
	for _, ln := range body {
		if ln.Op == "bl" {
			found = true
			require.Equal(t, instr.FunctionRef{Name: "callee"}, ln.Args[0])
		}
	}
	require.True(t, found, "expected a bl instruction")
}

func TestNextBranchIsMonotonicPerState(t *testing.T) {
	st := NewState()
	require.Equal(t, uint32(0), st.NextBranch())
	require.Equal(t, uint32(1), st.NextBranch())
	require.Equal(t, uint32(2), st.NextBranch())
}

// swapFunction builds `def F(int a, int b): set a = b set b = a return b
// end`: the second assignment merely reverses the first with no
// intervening write to either name, so §4.1.1's redundant-parameter-move
// mapping must drop it.
func swapFunction() *ast.Function {
	a := ast.Param{Name: "a", Typ: ast.Int}
	b := ast.Param{Name: "b", Typ: ast.Int}
	setA := &ast.Set{
		Var:        &ast.Variable{Name: "a", Typ: ast.Int},
		Expression: &ast.Variable{Name: "b", Typ: ast.Int},
	}
	setB := &ast.Set{
		Var:        &ast.Variable{Name: "b", Typ: ast.Int},
		Expression: &ast.Variable{Name: "a", Typ: ast.Int},
	}
	return &ast.Function{
		Name:   "F",
		Params: []ast.Param{a, b},
		Body:   []ast.Stmt{setA, setB},
		Return: &ast.Variable{Name: "b", Typ: ast.Int},
	}
}

func TestPeepholeDropsReversedRoundTripMove(t *testing.T) {
	body, _, err := New().Function(swapFunction())
	require.NoError(t, err)

	require.Contains(t, body, mkIns("mr", iv("a"), iv("b")),
		"the first assignment must survive")
	require.NotContains(t, body, mkIns("mr", iv("b"), iv("a")),
		"mr b,a merely reverses the preceding mr a,b with no intervening write to either name")

	moves := 0
	for _, ln := range body {
		if ln.Op == "mr" {
			moves++
		}
	}
	// mr a,_r3_ ; mr b,_r4_ ; mr a,b ; mr _r3_,b - the reversed mr b,a is gone.
	require.Equal(t, 4, moves)
}

func TestPeepholeDropsSelfMove(t *testing.T) {
	in := instr.List{
		mkIns("mr", iv("x"), iv("x")),
		mkIns("add", iv("x"), iv("x"), iv("y")),
	}
	out := peephole(in)
	require.Equal(t, instr.List{mkIns("add", iv("x"), iv("x"), iv("y"))}, out)
}
