package mutate

import (
	"math/rand/v2"

	"github.com/tcct-zkfuzz/zkfuzz/internal/executor"
	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

// Search runs the mutation engine against a single finalized symbolic
// state. The caller supplies which free symbols of the trace are inputs
// (signals that are not themselves derived by an equality in the
// trace); every other free symbol is left at its program-mutation-time
// value.
func Search(arena *expr.Arena, state *executor.SymbolicState, inputs []expr.Name, cfg Config) Verdict {
	seed := cfg.Seed
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15 // fixed fallback, still deterministic per run
	}
	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))

	trace := state.TraceConstraints
	side := state.SideConstraints
	sites := mutationSites(arena, trace)

	programs := initProgramPopulation(arena, trace, sites, rng, cfg)
	inputPop := initInputPopulation(inputs, rng, cfg, arena.Modulus())

	for gen := 0; gen < cfg.MaxGenerations; gen++ {
		if gen > 0 && cfg.InputUpdateInterval > 0 && gen%cfg.InputUpdateInterval == 0 {
			inputPop = evolveInputs(inputPop, inputs, rng, cfg, arena.Modulus())
		}
		programs = evolvePrograms(arena, trace, sites, programs, rng, cfg)

		for _, m := range programs {
			mutatedTrace := m.Apply(trace)
			for _, inp := range inputPop {
				sigma := inp.AsSubst(arena)
				if v, ok := evaluatePair(arena, trace, side, mutatedTrace, m, sigma); ok {
					v.Generation = gen
					v.Seed = seed
					return v
				}
			}
		}
	}

	return Verdict{Kind: WellConstrained, Generation: cfg.MaxGenerations, Seed: seed}
}

// evaluatePair classifies one (mutated program, input) pair. ok=false
// means no classifying verdict applies to this pair (search continues).
func evaluatePair(arena *expr.Arena, origTrace, side, mutatedTrace []expr.Ref, m ProgramMutation, sigma expr.Subst) (Verdict, bool) {
	okM, outM := emulate(arena, mutatedTrace, sigma)
	errS := totalSideError(arena, side, sigma, outM)

	assignment := mergeAssignment(arena, sigma, outM)

	switch {
	case errS.IsZero() && okM:
		okO, outO := emulate(arena, origTrace, sigma)
		if !okO {
			return Verdict{Kind: UnderConstrainedUnexpectedTrace, Assignment: assignment}, true
		}
		if !sameOutput(outO, outM) {
			return Verdict{Kind: UnderConstrainedNonDeterministic, Assignment: assignment}, true
		}
		return Verdict{}, false

	case errS.IsZero() && !okM && m.IsIdentity():
		return Verdict{Kind: UnderConstrainedUnexpectedTrace, Assignment: assignment}, true

	case !errS.IsZero() && m.IsIdentity() && okM:
		return Verdict{Kind: OverConstrained, Assignment: assignment}, true

	default:
		return Verdict{}, false
	}
}

func mergeAssignment(arena *expr.Arena, sigma expr.Subst, out map[expr.Name]field.Element) map[expr.Name]field.Element {
	merged := make(map[expr.Name]field.Element, len(sigma)+len(out))
	for k, v := range sigma {
		if c, ok := arena.AsConst(v); ok {
			merged[k] = c
		}
	}
	for k, v := range out {
		merged[k] = v
	}
	return merged
}

func sameOutput(a, b map[expr.Name]field.Element) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
