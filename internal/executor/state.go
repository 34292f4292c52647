// Package executor implements the path-sensitive symbolic interpreter:
// it walks a Template's AST and emits, per execution path, a finalized
// SymbolicState carrying a value map, trace constraints and side
// constraints over a prime field.
package executor

import (
	"sort"

	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
)

// SymbolicState is one execution path's view of the circuit: owner
// (template instance path), depth (call depth), values (symbolic name ->
// expression), and the trace/side constraint lists, ordered as
// encountered with duplicates retained.
type SymbolicState struct {
	Owner  string
	Depth  int
	Arena  *expr.Arena
	Values map[expr.Name]expr.Ref

	// Inputs lists the main template's declared input signals in
	// declaration order; the search engine assigns concrete values to
	// exactly these names.
	Inputs []expr.Name

	TraceConstraints []expr.Ref
	SideConstraints  []expr.Ref

	// Unsatisfiable is set once a Div-by-zero taint reaches a value;
	// retained for reporting but excluded from the search target.
	Unsatisfiable bool
}

func newRootState(arena *expr.Arena, owner string) *SymbolicState {
	return &SymbolicState{
		Owner:  owner,
		Depth:  0,
		Arena:  arena,
		Values: make(map[expr.Name]expr.Ref),
	}
}

// Clone produces an independent copy suitable for forking at a branch.
// The underlying Arena is shared; it is append-only and safe to share
// across forks.
func (s *SymbolicState) Clone() *SymbolicState {
	values := make(map[expr.Name]expr.Ref, len(s.Values))
	for k, v := range s.Values {
		values[k] = v
	}
	inputs := make([]expr.Name, len(s.Inputs))
	copy(inputs, s.Inputs)
	trace := make([]expr.Ref, len(s.TraceConstraints))
	copy(trace, s.TraceConstraints)
	side := make([]expr.Ref, len(s.SideConstraints))
	copy(side, s.SideConstraints)

	return &SymbolicState{
		Owner:            s.Owner,
		Depth:            s.Depth,
		Arena:            s.Arena,
		Values:           values,
		Inputs:           inputs,
		TraceConstraints: trace,
		SideConstraints:  side,
		Unsatisfiable:    s.Unsatisfiable,
	}
}

func (s *SymbolicState) addTrace(c expr.Ref) { s.TraceConstraints = append(s.TraceConstraints, c) }

func (s *SymbolicState) addBoth(c expr.Ref) {
	s.TraceConstraints = append(s.TraceConstraints, c)
	s.SideConstraints = append(s.SideConstraints, c)
}

// CompressionRatio reports |side_constraints|/|trace_constraints|, an
// observability metric only. It returns 0 when there are no trace
// constraints at all.
func (s *SymbolicState) CompressionRatio() float64 {
	if len(s.TraceConstraints) == 0 {
		return 0
	}
	return float64(len(s.SideConstraints)) / float64(len(s.TraceConstraints))
}

// AsSubst builds the expr.Subst view of the state's value map, used to
// resolve free variables/signals during lowering.
func (s *SymbolicState) AsSubst() expr.Subst {
	return expr.Subst(s.Values)
}

// PropagateSubstitution re-resolves every entry of the value map against
// the finalized map until a fixed point, collapsing reference chains
// (v -> w -> 3) that the statement-by-statement pass leaves behind.
// Constraint lists are left untouched.
func (s *SymbolicState) PropagateSubstitution() {
	names := make([]expr.Name, 0, len(s.Values))
	for k := range s.Values {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for round := 0; round < len(names); round++ {
		changed := false
		for _, k := range names {
			v := s.Values[k]
			nv := expr.Simplify(s.Arena, expr.Substitute(s.Arena, v, s.AsSubst()))
			if nv != v {
				s.Values[k] = nv
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}
