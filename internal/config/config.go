// Package config owns the CLI-facing configuration surface and the
// on-disk JSON schema for --path_to_mutation_setting, translating both
// into the engine-facing internal/mutate.Config.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
	"github.com/tcct-zkfuzz/zkfuzz/internal/mutate"
)

// SearchMode selects what the CLI does after symbolic execution
// finishes: nothing, a bounded brute force, or the genetic search.
type SearchMode string

const (
	SearchNone  SearchMode = "none"
	SearchQuick SearchMode = "quick"
	SearchGA    SearchMode = "ga"
)

// CLI holds every command-line flag after parsing and defaulting.
type CLI struct {
	InputPath string

	SearchMode SearchMode

	DebugPrime string // raw decimal, empty if unset
	PresetName field.PresetName
	HasPreset  bool

	SymbolicTemplateParams bool
	PropagateSubstitution  bool

	PrintAST       bool
	PrintStats     bool
	PrintStatsCSV  bool
	ShowStatsOfAST bool

	PathToMutationSetting string
	PathToWhitelist       string

	HeuristicsRange int

	SaveOutput bool

	Version bool
}

// DefaultCLI is the flag surface's default state.
func DefaultCLI() CLI {
	return CLI{
		InputPath:       "./circuit.circom",
		SearchMode:      SearchNone,
		HeuristicsRange: 100,
	}
}

// mutationSettingFile is the on-disk JSON shape of
// --path_to_mutation_setting; field names match the engine's tunables
// one-to-one so the file format is self-documenting.
type mutationSettingFile struct {
	ProgramPopulationSize int     `json:"program_population_size"`
	InputPopulationSize   int     `json:"input_population_size"`
	MaxGenerations        int     `json:"max_generations"`
	MutationRate          float64 `json:"mutation_rate"`
	CrossoverRate         float64 `json:"crossover_rate"`
	OperatorMutationRate  float64 `json:"operator_mutation_rate"`
	InputUpdateInterval   int     `json:"input_update_interval"`

	InputGenerationMaxIteration            int     `json:"input_generation_max_iteration"`
	InputGenerationCrossoverRate           float64 `json:"input_generation_crossover_rate"`
	InputGenerationMutationRate            float64 `json:"input_generation_mutation_rate"`
	InputGenerationSinglepointMutationRate float64 `json:"input_generation_singlepoint_mutation_rate"`

	RandomValueRanges [][2]int64 `json:"random_value_ranges"`
	RandomValueProbs  []float64  `json:"random_value_probs"`

	FitnessFunction string `json:"fitness_function"`
	Seed            uint64 `json:"seed"`
}

// LoadMutationSetting reads and validates a --path_to_mutation_setting
// file, overlaying it on top of mutate.DefaultConfig() so a partial file
// (missing fields default to zero in JSON) doesn't silently zero out an
// otherwise-sane default.
func LoadMutationSetting(path string) (mutate.Config, error) {
	cfg := mutate.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mutate.Config{}, fmt.Errorf("config: read mutation setting: %w", err)
	}

	var f mutationSettingFile
	if err := json.Unmarshal(data, &f); err != nil {
		return mutate.Config{}, fmt.Errorf("config: parse mutation setting: %w", err)
	}

	applyIfNonZero(&cfg.ProgramPopulationSize, f.ProgramPopulationSize)
	applyIfNonZero(&cfg.InputPopulationSize, f.InputPopulationSize)
	applyIfNonZero(&cfg.MaxGenerations, f.MaxGenerations)
	applyIfNonZeroF(&cfg.MutationRate, f.MutationRate)
	applyIfNonZeroF(&cfg.CrossoverRate, f.CrossoverRate)
	applyIfNonZeroF(&cfg.OperatorMutationRate, f.OperatorMutationRate)
	applyIfNonZero(&cfg.InputUpdateInterval, f.InputUpdateInterval)
	applyIfNonZero(&cfg.InputGenerationMaxIteration, f.InputGenerationMaxIteration)
	applyIfNonZeroF(&cfg.InputGenerationCrossoverRate, f.InputGenerationCrossoverRate)
	applyIfNonZeroF(&cfg.InputGenerationMutationRate, f.InputGenerationMutationRate)
	applyIfNonZeroF(&cfg.InputGenerationSinglepointMutationRate, f.InputGenerationSinglepointMutationRate)
	if f.FitnessFunction != "" {
		cfg.FitnessFunction = f.FitnessFunction
	}
	cfg.Seed = f.Seed

	if len(f.RandomValueRanges) > 0 {
		ranges := make([]mutate.RandomValueRange, len(f.RandomValueRanges))
		for i, r := range f.RandomValueRanges {
			ranges[i] = mutate.RandomValueRange{Lo: r[0], Hi: r[1]}
		}
		cfg.RandomValueRanges = ranges
	}
	if len(f.RandomValueProbs) > 0 {
		cfg.RandomValueProbs = f.RandomValueProbs
	}

	return cfg, nil
}

// LoadWhitelist reads --path_to_whitelist: one template name per line,
// blank lines and "#"-prefixed comments ignored.
func LoadWhitelist(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read whitelist: %w", err)
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

func applyIfNonZero(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func applyIfNonZeroF(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}
