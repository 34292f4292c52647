package mutate

import (
	"math/rand/v2"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

// randomFieldValue picks a value by weighted sampling across
// random_value_ranges, using random_value_probs as the weights.
func randomFieldValue(rng *rand.Rand, cfg Config, mod *field.Modulus) field.Element {
	ranges := cfg.RandomValueRanges
	probs := cfg.RandomValueProbs
	if len(ranges) == 0 {
		return field.NewInt64(rng.Int64N(1<<31), mod)
	}

	total := 0.0
	for _, p := range probs {
		total += p
	}
	pick := ranges[len(ranges)-1]
	if total > 0 {
		target := rng.Float64() * total
		cum := 0.0
		for i, p := range probs {
			if i >= len(ranges) {
				break
			}
			cum += p
			if target <= cum {
				pick = ranges[i]
				break
			}
		}
	}

	span := pick.Hi - pick.Lo
	if span <= 0 {
		return field.NewInt64(pick.Lo, mod)
	}
	return field.NewInt64(pick.Lo+rng.Int64N(span+1), mod)
}

func initInputPopulation(inputs []expr.Name, rng *rand.Rand, cfg Config, mod *field.Modulus) []InputAssignment {
	size := cfg.InputPopulationSize
	if size <= 0 {
		size = 1
	}
	pop := make([]InputAssignment, size)
	for i := range pop {
		values := make(map[expr.Name]field.Element, len(inputs))
		for _, n := range inputs {
			values[n] = randomFieldValue(rng, cfg, mod)
		}
		pop[i] = InputAssignment{Values: values}
	}
	return pop
}

// evolveInputs applies tournament selection, crossover at
// input_generation_crossover_rate and field-value mutation at
// input_generation_mutation_rate, using
// input_generation_singlepoint_mutation_rate as the per-gene mutation
// probability with full reinitialization as the fallback.
func evolveInputs(pop []InputAssignment, inputs []expr.Name, rng *rand.Rand, cfg Config, mod *field.Modulus) []InputAssignment {
	if len(pop) == 0 {
		return pop
	}
	next := make([]InputAssignment, len(pop))
	for i := range next {
		parentA := tournamentSelectInput(pop, rng)
		parentB := tournamentSelectInput(pop, rng)
		child := parentA.clone()

		if rng.Float64() < cfg.InputGenerationCrossoverRate {
			for _, n := range inputs {
				if rng.Float64() < 0.5 {
					if v, ok := parentB.Values[n]; ok {
						child.Values[n] = v
					}
				}
			}
		}

		if rng.Float64() < cfg.InputGenerationMutationRate {
			for _, n := range inputs {
				if rng.Float64() < cfg.InputGenerationSinglepointMutationRate {
					child.Values[n] = randomFieldValue(rng, cfg, mod)
				}
			}
		}
		next[i] = child
	}
	return next
}

func tournamentSelectInput(pop []InputAssignment, rng *rand.Rand) InputAssignment {
	// Fitness-free tournament: the search loop short-circuits on the
	// first classifying pair, so no per-individual fitness survives a
	// generation to weight selection with. Selection is uniform.
	return pop[rng.IntN(len(pop))]
}

func initProgramPopulation(arena *expr.Arena, trace []expr.Ref, sites *bitset.BitSet, rng *rand.Rand, cfg Config) []ProgramMutation {
	size := cfg.ProgramPopulationSize
	if size <= 0 {
		size = 1
	}
	pop := make([]ProgramMutation, size)
	pop[0] = identityMutation()
	for i := 1; i < size; i++ {
		pop[i] = randomProgramMutation(arena, trace, sites, rng, cfg)
	}
	return pop
}

// randomProgramMutation seeds one or two mutation sites with either an
// RHS replacement or an operator swap.
func randomProgramMutation(arena *expr.Arena, trace []expr.Ref, sites *bitset.BitSet, rng *rand.Rand, cfg Config) ProgramMutation {
	m := identityMutation()
	indices := siteIndices(sites)
	if len(indices) == 0 {
		return m
	}
	points := 1 + rng.IntN(2) // single- or double-point
	for k := 0; k < points; k++ {
		idx := indices[rng.IntN(len(indices))]
		m.Replacements[idx] = mutateSite(arena, trace[idx], rng, cfg)
	}
	return m
}

func mutateSite(arena *expr.Arena, original expr.Ref, rng *rand.Rand, cfg Config) expr.Ref {
	if rng.Float64() < cfg.OperatorMutationRate {
		return swapOperator(arena, original)
	}
	children := arena.Children(original)
	if len(children) != 2 {
		return original
	}
	newRhs := arena.Const(randomFieldValue(rng, cfg, arena.Modulus()))
	return rebuildRelational(arena, arena.Kind(original), children[0], newRhs)
}

func swapOperator(arena *expr.Arena, r expr.Ref) expr.Ref {
	children := arena.Children(r)
	if len(children) != 2 {
		return r
	}
	switch arena.Kind(r) {
	case expr.KindEq:
		return arena.NEq(children[0], children[1])
	case expr.KindNEq:
		return arena.Eq(children[0], children[1])
	case expr.KindLt:
		return arena.LEq(children[0], children[1])
	case expr.KindLEq:
		return arena.Lt(children[0], children[1])
	case expr.KindGt:
		return arena.GEq(children[0], children[1])
	case expr.KindGEq:
		return arena.Gt(children[0], children[1])
	default:
		return r
	}
}

func rebuildRelational(arena *expr.Arena, kind expr.Kind, lhs, rhs expr.Ref) expr.Ref {
	switch kind {
	case expr.KindEq:
		return arena.Eq(lhs, rhs)
	case expr.KindNEq:
		return arena.NEq(lhs, rhs)
	case expr.KindLt:
		return arena.Lt(lhs, rhs)
	case expr.KindLEq:
		return arena.LEq(lhs, rhs)
	case expr.KindGt:
		return arena.Gt(lhs, rhs)
	case expr.KindGEq:
		return arena.GEq(lhs, rhs)
	default:
		return arena.Eq(lhs, rhs)
	}
}

func siteIndices(sites *bitset.BitSet) []int {
	var out []int
	for i, ok := sites.NextSet(0); ok; i, ok = sites.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

// evolvePrograms runs one program-population generation: crossover
// (swap mutation sites between two parents) at crossover_rate, mutation
// (re-roll a site) at mutation_rate, with the identity mutation always
// retained at index 0 so the unmutated trace stays in contention for
// the over-constrained classification rule.
func evolvePrograms(arena *expr.Arena, trace []expr.Ref, sites *bitset.BitSet, pop []ProgramMutation, rng *rand.Rand, cfg Config) []ProgramMutation {
	if len(pop) == 0 {
		return pop
	}
	next := make([]ProgramMutation, len(pop))
	next[0] = identityMutation()
	for i := 1; i < len(pop); i++ {
		parentA := pop[rng.IntN(len(pop))]
		parentB := pop[rng.IntN(len(pop))]
		child := parentA.clone()

		if rng.Float64() < cfg.CrossoverRate {
			// Sorted site order: iterating the map directly would pair
			// RNG draws with sites in a different order each run and
			// break seed reproducibility.
			for _, idx := range sortedReplacementSites(parentB) {
				if rng.Float64() < 0.5 {
					child.Replacements[idx] = parentB.Replacements[idx]
				}
			}
		}
		if rng.Float64() < cfg.MutationRate {
			mutated := randomProgramMutation(arena, trace, sites, rng, cfg)
			for _, idx := range sortedReplacementSites(mutated) {
				child.Replacements[idx] = mutated.Replacements[idx]
			}
		}
		next[i] = child
	}
	return next
}

func sortedReplacementSites(m ProgramMutation) []int {
	out := make([]int, 0, len(m.Replacements))
	for idx := range m.Replacements {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
