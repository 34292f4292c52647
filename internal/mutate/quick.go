package mutate

import (
	"github.com/tcct-zkfuzz/zkfuzz/internal/executor"
	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

// quickPairBudget caps the number of (program, input) pairs a quick
// search evaluates, so a wide input space cannot stall the run.
const quickPairBudget = 4096

// QuickSearch is the --search_mode=quick strategy: a deterministic,
// RNG-free brute force over small concrete inputs. Every input signal is
// enumerated over [0, bound), against the unmutated trace plus a fixed
// set of single-site rewrites (operator swap, RHS pinned to 0 or 1) that
// give the under-constrained classification rules something to bite on.
func QuickSearch(arena *expr.Arena, state *executor.SymbolicState, inputs []expr.Name, bound int) Verdict {
	if bound <= 0 {
		bound = 16
	}
	trace := state.TraceConstraints
	side := state.SideConstraints
	programs := quickPrograms(arena, trace)

	assign := make([]int64, len(inputs))
	tried := 0
	for {
		sigma := make(expr.Subst, len(inputs))
		for i, n := range inputs {
			sigma[n] = arena.Const(field.NewInt64(assign[i], arena.Modulus()))
		}
		for _, m := range programs {
			mutatedTrace := m.Apply(trace)
			if v, ok := evaluatePair(arena, trace, side, mutatedTrace, m, sigma); ok {
				return v
			}
			tried++
			if tried >= quickPairBudget {
				return Verdict{Kind: WellConstrained}
			}
		}

		carry := 0
		for ; carry < len(assign); carry++ {
			assign[carry]++
			if assign[carry] < int64(bound) {
				break
			}
			assign[carry] = 0
		}
		if carry == len(assign) {
			return Verdict{Kind: WellConstrained}
		}
	}
}

// quickPrograms builds the bounded rewrite set: the identity, one
// operator swap per site, and one constant pin per site per value in
// {0, 1}.
func quickPrograms(arena *expr.Arena, trace []expr.Ref) []ProgramMutation {
	programs := []ProgramMutation{identityMutation()}
	sites := mutationSites(arena, trace)
	for _, idx := range siteIndices(sites) {
		if swapped := swapOperator(arena, trace[idx]); swapped != trace[idx] {
			programs = append(programs, ProgramMutation{Replacements: map[int]expr.Ref{idx: swapped}})
		}
		children := arena.Children(trace[idx])
		if len(children) != 2 {
			continue
		}
		for _, c := range []int64{0, 1} {
			repl := rebuildRelational(arena, arena.Kind(trace[idx]), children[0], arena.ConstInt64(c))
			programs = append(programs, ProgramMutation{Replacements: map[int]expr.Ref{idx: repl}})
		}
	}
	return programs
}
