package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcct-zkfuzz/zkfuzz/internal/ast"
	"github.com/tcct-zkfuzz/zkfuzz/internal/eval"
	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

func testProgram(tpl *ast.Template, extra ...*ast.Template) *ast.Program {
	p := &ast.Program{Templates: map[string]*ast.Template{tpl.Name: tpl}, Functions: map[string]*ast.Function{}}
	for _, t := range extra {
		p.Templates[t.Name] = t
	}
	return p
}

// TestSafeIsZero models the well-constrained shape: out is witnessed
// via <-- but also pinned by a <== side constraint, so trace and side
// agree.
func TestSafeIsZero(t *testing.T) {
	tpl := &ast.Template{
		Name:   "Main",
		Params: nil,
		Body: []ast.Stmt{
			&ast.SignalDecl{Name: "in", Kind: ast.SignalIn},
			&ast.SignalDecl{Name: "out", Kind: ast.SignalOut},
			&ast.WitnessHint{
				Target: &ast.Ident{Name: "out"},
				Rhs:    &ast.IntLiteral{Value: "0"},
			},
			&ast.EqualityConstraint{
				Target: &ast.Ident{Name: "out"},
				Rhs:    &ast.IntLiteral{Value: "0"},
			},
		},
	}
	program := testProgram(tpl)
	arena := expr.NewArena(field.DefaultModulus())

	result, err := Execute(program, "Main", EntryParams{}, arena, 100, nil)
	require.NoError(t, err)
	require.Len(t, result.Finalized, 1)

	st := result.Finalized[0]
	assert.False(t, st.Unsatisfiable)
	assert.Equal(t, []expr.Name{"Main.in"}, st.Inputs)
	assert.LessOrEqual(t, len(st.SideConstraints), len(st.TraceConstraints))
	for _, c := range st.SideConstraints {
		assert.Contains(t, st.TraceConstraints, c)
	}
}

// TestVulnerableIsZero models the classic under-constrained bug: out is
// witnessed but never pinned by a side constraint, so nothing in S
// contradicts an inconsistent witness.
func TestVulnerableIsZero(t *testing.T) {
	tpl := &ast.Template{
		Name: "Main",
		Body: []ast.Stmt{
			&ast.SignalDecl{Name: "in", Kind: ast.SignalIn},
			&ast.SignalDecl{Name: "out", Kind: ast.SignalOut},
			&ast.WitnessHint{
				Target: &ast.Ident{Name: "out"},
				Rhs:    &ast.IntLiteral{Value: "1"},
			},
		},
	}
	program := testProgram(tpl)
	arena := expr.NewArena(field.DefaultModulus())

	result, err := Execute(program, "Main", EntryParams{}, arena, 100, nil)
	require.NoError(t, err)
	require.Len(t, result.Finalized, 1)

	st := result.Finalized[0]
	assert.Empty(t, st.SideConstraints, "witness hint alone must not add a side constraint")
	assert.Len(t, st.TraceConstraints, 1)
}

// TestDivisionByZeroTaint: a Div(_, 0) reaching a value marks the state
// unsatisfiable without panicking.
func TestDivisionByZeroTaint(t *testing.T) {
	tpl := &ast.Template{
		Name: "Main",
		Body: []ast.Stmt{
			&ast.SignalDecl{Name: "out", Kind: ast.SignalOut},
			&ast.WitnessHint{
				Target: &ast.Ident{Name: "out"},
				Rhs: &ast.BinExpr{
					Op:    ast.OpDiv,
					Left:  &ast.IntLiteral{Value: "1"},
					Right: &ast.IntLiteral{Value: "0"},
				},
			},
		},
	}
	program := testProgram(tpl)
	arena := expr.NewArena(field.DefaultModulus())

	result, err := Execute(program, "Main", EntryParams{}, arena, 100, nil)
	require.NoError(t, err)
	require.Len(t, result.Finalized, 1)
	assert.True(t, result.Finalized[0].Unsatisfiable)
}

// TestIfForksIntoTwoStates checks that a condition over a free signal
// produces exactly two finalized paths.
func TestIfForksIntoTwoStates(t *testing.T) {
	tpl := &ast.Template{
		Name: "Main",
		Body: []ast.Stmt{
			&ast.SignalDecl{Name: "in", Kind: ast.SignalIn},
			&ast.VarDecl{Name: "v"},
			&ast.If{
				Cond: &ast.BinExpr{Op: ast.OpEq, Left: &ast.Ident{Name: "in"}, Right: &ast.IntLiteral{Value: "0"}},
				Then: []ast.Stmt{&ast.Assign{Target: &ast.Ident{Name: "v"}, Rhs: &ast.IntLiteral{Value: "1"}}},
				Else: []ast.Stmt{&ast.Assign{Target: &ast.Ident{Name: "v"}, Rhs: &ast.IntLiteral{Value: "2"}}},
			},
		},
	}
	program := testProgram(tpl)
	arena := expr.NewArena(field.DefaultModulus())

	result, err := Execute(program, "Main", EntryParams{}, arena, 100, nil)
	require.NoError(t, err)
	assert.Len(t, result.Finalized, 2)
}

// TestForLoopUnrollsStaticBound checks static-bound unrolling,
// accumulating a running sum across 3 iterations.
func TestForLoopUnrollsStaticBound(t *testing.T) {
	tpl := &ast.Template{
		Name: "Main",
		Body: []ast.Stmt{
			&ast.VarDecl{Name: "i"},
			&ast.VarDecl{Name: "acc"},
			&ast.Assign{Target: &ast.Ident{Name: "acc"}, Rhs: &ast.IntLiteral{Value: "0"}},
			&ast.For{
				Init: &ast.Assign{Target: &ast.Ident{Name: "i"}, Rhs: &ast.IntLiteral{Value: "0"}},
				Cond: &ast.BinExpr{Op: ast.OpLt, Left: &ast.Ident{Name: "i"}, Right: &ast.IntLiteral{Value: "3"}},
				Step: &ast.Assign{Target: &ast.Ident{Name: "i"}, Rhs: &ast.BinExpr{Op: ast.OpAdd, Left: &ast.Ident{Name: "i"}, Right: &ast.IntLiteral{Value: "1"}}},
				Body: []ast.Stmt{
					&ast.Assign{Target: &ast.Ident{Name: "acc"}, Rhs: &ast.BinExpr{Op: ast.OpAdd, Left: &ast.Ident{Name: "acc"}, Right: &ast.IntLiteral{Value: "1"}}},
				},
			},
		},
	}
	program := testProgram(tpl)
	arena := expr.NewArena(field.DefaultModulus())

	result, err := Execute(program, "Main", EntryParams{}, arena, 100, nil)
	require.NoError(t, err)
	require.Len(t, result.Finalized, 1)

	st := result.Finalized[0]
	acc, ok := arena.AsConst(st.Values["Main.acc"])
	require.True(t, ok)
	assert.Equal(t, "3", acc.String())
}

// TestComponentConnectionsProduceSideConstraints checks that signal
// bindings surface as <== equalities between caller and callee.
func TestComponentConnectionsProduceSideConstraints(t *testing.T) {
	sub := &ast.Template{
		Name: "Sub",
		Body: []ast.Stmt{
			&ast.SignalDecl{Name: "x", Kind: ast.SignalIn},
			&ast.SignalDecl{Name: "y", Kind: ast.SignalOut},
			&ast.EqualityConstraint{Target: &ast.Ident{Name: "y"}, Rhs: &ast.Ident{Name: "x"}},
		},
	}
	main := &ast.Template{
		Name: "Main",
		Body: []ast.Stmt{
			&ast.SignalDecl{Name: "in", Kind: ast.SignalIn},
			&ast.Component{
				Name:     "c",
				Template: "Sub",
				Connections: []ast.SignalConnection{
					{CalleeSignal: "x", CallerExpr: &ast.Ident{Name: "in"}},
				},
			},
		},
	}
	program := testProgram(main, sub)
	arena := expr.NewArena(field.DefaultModulus())

	result, err := Execute(program, "Main", EntryParams{}, arena, 100, nil)
	require.NoError(t, err)
	require.Len(t, result.Finalized, 1)

	st := result.Finalized[0]
	require.NotEmpty(t, st.SideConstraints)
	// Every side constraint must evaluate to zero error once every free
	// symbol is pinned consistently.
	sigma := expr.Subst{
		"Main.in":  arena.ConstInt64(7),
		"Main.c.x": arena.ConstInt64(7),
		"Main.c.y": arena.ConstInt64(7),
	}
	for _, c := range st.SideConstraints {
		assert.True(t, eval.Error(arena, c, sigma).IsZero())
	}
}

// TestWhitelistSkipsComponentBody checks --path_to_whitelist exemption:
// the callee's own constraints never appear, but its signal bindings
// still surface as equalities against fresh opaque leaves.
func TestWhitelistSkipsComponentBody(t *testing.T) {
	sub := &ast.Template{
		Name: "Sub",
		Body: []ast.Stmt{
			&ast.SignalDecl{Name: "x", Kind: ast.SignalIn},
			&ast.SignalDecl{Name: "y", Kind: ast.SignalOut},
			&ast.EqualityConstraint{Target: &ast.Ident{Name: "y"}, Rhs: &ast.IntLiteral{Value: "99"}},
		},
	}
	main := &ast.Template{
		Name: "Main",
		Body: []ast.Stmt{
			&ast.SignalDecl{Name: "in", Kind: ast.SignalIn},
			&ast.Component{
				Name:     "c",
				Template: "Sub",
				Connections: []ast.SignalConnection{
					{CalleeSignal: "x", CallerExpr: &ast.Ident{Name: "in"}},
				},
			},
		},
	}
	program := testProgram(main, sub)
	arena := expr.NewArena(field.DefaultModulus())

	result, err := Execute(program, "Main", EntryParams{}, arena, 100, []string{"Sub"})
	require.NoError(t, err)
	require.Len(t, result.Finalized, 1)

	st := result.Finalized[0]
	require.Len(t, st.TraceConstraints, 1, "only the signal connection itself, never the callee's own constraints")
	for _, c := range st.TraceConstraints {
		for _, ch := range arena.Children(c) {
			if name, ok := arena.AsLeafName(ch); ok {
				assert.NotEqual(t, expr.Name("Main.c.y"), name, "callee internals must not leak from an exempt template")
			}
		}
	}
}
