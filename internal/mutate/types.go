// Package mutate implements the mutation-based counterexample search:
// it evolves a population of program mutations and a population of
// input assignments against a fixed symbolic trace, looking for an
// assignment that drives a mutated trace's emulated output to violate
// (or satisfy where the original did not) the side constraints.
package mutate

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

// MutationOpKind distinguishes the two site-level mutation operators:
// replacing a witness's right-hand side, and swapping a relational
// constraint's operator.
type MutationOpKind int

const (
	OpRhsReplace MutationOpKind = iota
	OpOperatorSwap
)

// ProgramMutation is one individual of the program-mutation population:
// a sparse set of per-trace-constraint-index overrides applied on top of
// the original trace. An identity mutation (no overrides) represents the
// un-mutated trace, which the classification rules treat specially.
type ProgramMutation struct {
	Replacements map[int]expr.Ref
}

func identityMutation() ProgramMutation {
	return ProgramMutation{Replacements: map[int]expr.Ref{}}
}

// IsIdentity reports whether this mutation changes nothing.
func (m ProgramMutation) IsIdentity() bool { return len(m.Replacements) == 0 }

// Apply produces the mutated trace constraint list, leaving the
// original slice untouched.
func (m ProgramMutation) Apply(original []expr.Ref) []expr.Ref {
	out := make([]expr.Ref, len(original))
	copy(out, original)
	for idx, r := range m.Replacements {
		if idx >= 0 && idx < len(out) {
			out[idx] = r
		}
	}
	return out
}

func (m ProgramMutation) clone() ProgramMutation {
	out := make(map[int]expr.Ref, len(m.Replacements))
	for k, v := range m.Replacements {
		out[k] = v
	}
	return ProgramMutation{Replacements: out}
}

// mutationSites identifies the trace-constraint indices eligible for
// mutation: every constraint whose top-level node is relational (Eq,
// NEq, Lt, LEq, Gt, GEq), whatever shape its left operand has.
func mutationSites(arena *expr.Arena, trace []expr.Ref) *bitset.BitSet {
	sites := bitset.New(uint(len(trace)))
	for i, r := range trace {
		switch arena.Kind(r) {
		case expr.KindEq, expr.KindNEq, expr.KindLt, expr.KindLEq, expr.KindGt, expr.KindGEq:
			sites.Set(uint(i))
		}
	}
	return sites
}

// InputAssignment is one individual of the input-assignment population:
// a concrete value for every free input symbol of the symbolic trace.
type InputAssignment struct {
	Values map[expr.Name]field.Element
}

func (a InputAssignment) clone() InputAssignment {
	out := make(map[expr.Name]field.Element, len(a.Values))
	for k, v := range a.Values {
		out[k] = v
	}
	return InputAssignment{Values: out}
}

// AsSubst views the assignment as an expr.Subst for evaluation/emulation.
func (a InputAssignment) AsSubst(arena *expr.Arena) expr.Subst {
	sigma := make(expr.Subst, len(a.Values))
	for k, v := range a.Values {
		sigma[k] = arena.Const(v)
	}
	return sigma
}

// RandomValueRange is one [lo,hi] band of random_value_ranges, sampled
// with the matching weight in random_value_probs.
type RandomValueRange struct {
	Lo, Hi int64
}

// VerdictKind enumerates a search's possible outcomes. WellConstrained
// means "not disproved within the budget", never a proof.
type VerdictKind string

const (
	WellConstrained                  VerdictKind = "well_constrained"
	UnderConstrainedUnexpectedTrace  VerdictKind = "under_constrained_unexpected_trace"
	UnderConstrainedNonDeterministic VerdictKind = "under_constrained_non_deterministic"
	OverConstrained                  VerdictKind = "over_constrained"
)

// Verdict is a search's return value; Assignment is populated for every
// classifying (non-WellConstrained) verdict. Generation and Seed are set
// by Search only; QuickSearch leaves them zero.
type Verdict struct {
	Kind       VerdictKind
	Assignment map[expr.Name]field.Element
	Generation int
	Seed       uint64
}
