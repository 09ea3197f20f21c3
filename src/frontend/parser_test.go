package frontend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pbrc/src/ast"
)

const validProgram = `<region="ntsc-u">
def add(int a, int b):
set c = a + b
return c
end
`

func TestParseValidProgram(t *testing.T) {
	prog, err := Parse(validProgram)
	require.NoError(t, err)
	require.Equal(t, "ntsc-u", prog.Region)
	require.Len(t, prog.Functions, 1)

	fn := prog.Functions[0]
	require.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	require.Equal(t, ast.Param{Name: "a", Typ: ast.Int}, fn.Params[0])
	require.Len(t, fn.Body, 1)
	require.NotNil(t, fn.Return)
	require.Equal(t, "c", fn.Return.Name)
}

func TestParseRejectsUnknownRegion(t *testing.T) {
	src := `<region="dreamcast">
def f():
end
`
	_, err := Parse(src)
	require.Error(t, err)
}

func TestParseRejectsDuplicateFunction(t *testing.T) {
	src := `<region="ntsc-u">
def f():
end
def f():
end
`
	_, err := Parse(src)
	require.Error(t, err)
}

func TestParseRejectsNestedLoops(t *testing.T) {
	src := `<region="ntsc-u">
def f():
set a = 1
while a gt 0:
while a gt 0:
end
end
end
`
	_, err := Parse(src)
	require.Error(t, err)
}

func TestParseRejectsNestedSwitches(t *testing.T) {
	src := `<region="ntsc-u">
def f():
set a = 0
switch a:
case 0:
switch a:
case 0:
end
end
end
`
	_, err := Parse(src)
	require.Error(t, err)
}

func TestParseRejectsUndeclaredVariable(t *testing.T) {
	src := `<region="ntsc-u">
def f():
set a = b
end
`
	_, err := Parse(src)
	require.Error(t, err)
}

func TestParseRejectsTooManyArguments(t *testing.T) {
	src := `<region="ntsc-u">
def nine(int a, int b, int c, int d, int e, int f, int g, int h, int i):
end
`
	_, err := Parse(src)
	require.Error(t, err)
}

func TestParseRejectsDoubleLiteralOperation(t *testing.T) {
	src := `<region="ntsc-u">
def f():
set a = 1 + 2
end
`
	_, err := Parse(src)
	require.Error(t, err)
}

func TestParseAllocAndLoadStore(t *testing.T) {
	src := `<region="ntsc-u">
def f():
alloc buf[4]
load lwz, v, buf, 0
store stw, v, buf, 0
end
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	body := prog.Functions[0].Body
	require.Len(t, body, 3)

	alloc, ok := body[0].(*ast.Alloc)
	require.True(t, ok)
	require.Equal(t, "buf", alloc.Var)
	require.Equal(t, uint32(4), alloc.Size)

	ls, ok := body[1].(*ast.LoadStore)
	require.True(t, ok)
	require.Equal(t, "lwz", ls.Opcode)
	require.Equal(t, ast.Int, ls.Typ)
}

func TestParseIndirectCall(t *testing.T) {
	src := `<region="ntsc-u">
def callee():
end
def caller():
call *callee()
end
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 2)

	caller := prog.Functions[1]
	require.Len(t, caller.Body, 1)
	call, ok := caller.Body[0].(*ast.Call)
	require.True(t, ok)
	require.Equal(t, ast.CallIndirect, call.Kind)
	require.NotNil(t, call.Ptr)
	require.Equal(t, ast.PointerFunction, call.Ptr.Kind)
}
