package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcct-zkfuzz/zkfuzz/internal/executor"
	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

func testArena() *expr.Arena { return expr.NewArena(field.DefaultModulus()) }

// underConstrainedState models a classic "IsZero" style bug: the trace
// witnesses out as a free hint with no side constraint pinning it to the
// input, so the GA should find a witness where out disagrees with a
// second emulation (non-determinism) or find the side constraints
// satisfied with an inconsistent witness.
func underConstrainedState(arena *expr.Arena) (*executor.SymbolicState, []expr.Name) {
	st := &executor.SymbolicState{Arena: arena, Owner: "main", Values: map[expr.Name]expr.Ref{}}
	in := arena.Var("main.in")
	out := arena.Var("main.out")
	hint := arena.ConstInt64(1) // always witnesses 1, regardless of "in"

	st.Values["main.in"] = in
	st.Values["main.out"] = out
	st.TraceConstraints = []expr.Ref{arena.Eq(out, hint)}
	// No side constraint links out to in: classic under-constrained.
	st.SideConstraints = nil
	return st, []expr.Name{"main.in"}
}

func overConstrainedState(arena *expr.Arena) (*executor.SymbolicState, []expr.Name) {
	st := &executor.SymbolicState{Arena: arena, Owner: "main", Values: map[expr.Name]expr.Ref{}}
	in := arena.Var("main.in")
	out := arena.Var("main.out")
	rhs := arena.Add(in, arena.ConstInt64(1))

	st.Values["main.in"] = in
	st.Values["main.out"] = out
	eq := arena.Eq(out, rhs)
	st.TraceConstraints = []expr.Ref{eq}
	// Side constraint contradicts the trace's own witness (out = in, not in+1).
	st.SideConstraints = []expr.Ref{arena.Eq(out, in)}
	return st, []expr.Name{"main.in"}
}

// unexpectedTraceState inverts the input to witness inv, so the
// original trace aborts on in = 0 while the side constraints (which
// never mention inv) stay satisfiable through an alternative witness.
func unexpectedTraceState(arena *expr.Arena) (*executor.SymbolicState, []expr.Name) {
	st := &executor.SymbolicState{Arena: arena, Owner: "main", Values: map[expr.Name]expr.Ref{}}
	in := arena.Var("main.in")
	inv := arena.Var("main.inv")
	out := arena.Var("main.out")

	st.TraceConstraints = []expr.Ref{
		arena.Eq(inv, arena.Div(arena.ConstInt64(1), in)),
		arena.Eq(out, arena.ConstInt64(1)),
	}
	st.SideConstraints = []expr.Ref{arena.Eq(out, arena.ConstInt64(1))}
	return st, []expr.Name{"main.in"}
}

// TestQuickSearchFindsUnexpectedTrace drives the mutated-trace branch:
// a rewrite that sidesteps the inversion emulates cleanly and satisfies
// the side constraints at in = 0, where the original trace divides by
// zero.
func TestQuickSearchFindsUnexpectedTrace(t *testing.T) {
	arena := testArena()
	st, inputs := unexpectedTraceState(arena)

	v := QuickSearch(arena, st, inputs, 4)
	require.Equal(t, UnderConstrainedUnexpectedTrace, v.Kind)
}

// TestSearchFindsUnexpectedTraceOnOriginal drives the identity branch:
// the unmutated trace itself divides by zero at in = 0 while the empty
// side-constraint set stays satisfied.
func TestSearchFindsUnexpectedTraceOnOriginal(t *testing.T) {
	arena := testArena()
	st := &executor.SymbolicState{Arena: arena, Owner: "main", Values: map[expr.Name]expr.Ref{}}
	st.TraceConstraints = []expr.Ref{
		arena.Eq(arena.Var("main.out"), arena.Div(arena.ConstInt64(1), arena.Var("main.in"))),
	}

	cfg := DefaultConfig()
	cfg.Seed = 21
	cfg.MaxGenerations = 10
	cfg.RandomValueRanges = []RandomValueRange{{Lo: 0, Hi: 0}}
	cfg.RandomValueProbs = []float64{1}

	v := Search(arena, st, []expr.Name{"main.in"}, cfg)
	require.Equal(t, UnderConstrainedUnexpectedTrace, v.Kind)
}

func TestSearchDeterministicForFixedSeed(t *testing.T) {
	arena := testArena()
	st, inputs := overConstrainedState(arena)
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.MaxGenerations = 20

	v1 := Search(arena, st, inputs, cfg)
	v2 := Search(arena, st, inputs, cfg)

	assert.Equal(t, v1.Kind, v2.Kind)
	assert.Equal(t, v1.Generation, v2.Generation)
}

func TestSearchFindsOverConstrained(t *testing.T) {
	arena := testArena()
	st, inputs := overConstrainedState(arena)
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.MaxGenerations = 50
	cfg.RandomValueRanges = []RandomValueRange{{Lo: 0, Hi: 50}}
	cfg.RandomValueProbs = []float64{1}

	v := Search(arena, st, inputs, cfg)
	require.Equal(t, OverConstrained, v.Kind)
}

func TestSearchFindsNonDeterministic(t *testing.T) {
	arena := testArena()
	st, inputs := underConstrainedState(arena)
	cfg := DefaultConfig()
	cfg.Seed = 13
	cfg.MaxGenerations = 50

	v := Search(arena, st, inputs, cfg)
	require.Equal(t, UnderConstrainedNonDeterministic, v.Kind)
	require.NotEmpty(t, v.Assignment)
}

// TestQuickSearchSafeCircuit: a trace whose only witness is fully pinned
// by an identical side constraint survives the bounded brute force.
func TestQuickSearchSafeCircuit(t *testing.T) {
	arena := testArena()
	st := &executor.SymbolicState{Arena: arena, Owner: "main", Values: map[expr.Name]expr.Ref{}}
	in := arena.Var("main.in")
	out := arena.Var("main.out")
	eq := arena.Eq(out, arena.Add(in, arena.ConstInt64(1)))
	st.TraceConstraints = []expr.Ref{eq}
	st.SideConstraints = []expr.Ref{eq}

	v := QuickSearch(arena, st, []expr.Name{"main.in"}, 8)
	require.Equal(t, WellConstrained, v.Kind)
}

func TestQuickSearchFindsNonDeterministic(t *testing.T) {
	arena := testArena()
	st, inputs := underConstrainedState(arena)

	v := QuickSearch(arena, st, inputs, 8)
	require.Equal(t, UnderConstrainedNonDeterministic, v.Kind)
}

func TestEmulateStopsOnDivisionByZero(t *testing.T) {
	arena := testArena()
	x := arena.Var("x")
	div := arena.Div(x, arena.ConstInt64(0))
	trace := []expr.Ref{arena.Eq(arena.Var("y"), div)}

	ok, _ := emulate(arena, trace, expr.Subst{"x": arena.ConstInt64(3)})
	assert.False(t, ok)
}

func TestMutationSitesOnlyRelational(t *testing.T) {
	arena := testArena()
	x := arena.Var("x")
	trace := []expr.Ref{
		arena.Eq(x, arena.ConstInt64(1)),
		arena.Add(x, arena.ConstInt64(1)), // not a mutation site
	}
	sites := mutationSites(arena, trace)
	assert.True(t, sites.Test(0))
	assert.False(t, sites.Test(1))
}
