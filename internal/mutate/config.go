package mutate

// Config is the engine's full tunable surface, deserialized from the
// --path_to_mutation_setting JSON file (internal/config owns the
// on-disk schema; this struct is the engine-facing view of it).
type Config struct {
	ProgramPopulationSize int
	InputPopulationSize   int
	MaxGenerations        int

	MutationRate         float64
	CrossoverRate        float64
	OperatorMutationRate float64

	InputUpdateInterval int

	InputGenerationMaxIteration            int
	InputGenerationCrossoverRate           float64
	InputGenerationMutationRate            float64
	InputGenerationSinglepointMutationRate float64

	RandomValueRanges []RandomValueRange
	RandomValueProbs  []float64

	FitnessFunction string

	// Seed drives every RNG draw in the search; a given nonzero seed
	// reproduces the entire run, tie-breaks included. Zero means "pick
	// a fixed fallback seed" at the call site.
	Seed uint64
}

// DefaultConfig is the baseline the mutation-setting file overlays.
func DefaultConfig() Config {
	return Config{
		ProgramPopulationSize: 16,
		InputPopulationSize:   16,
		MaxGenerations:        200,

		MutationRate:         0.3,
		CrossoverRate:        0.5,
		OperatorMutationRate: 0.1,

		InputUpdateInterval: 5,

		InputGenerationMaxIteration:            50,
		InputGenerationCrossoverRate:           0.5,
		InputGenerationMutationRate:            0.3,
		InputGenerationSinglepointMutationRate: 0.2,

		RandomValueRanges: []RandomValueRange{{Lo: 0, Hi: 1000}},
		RandomValueProbs:  []float64{1.0},

		FitnessFunction: "default",
	}
}
