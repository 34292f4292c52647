// Command zkfuzz loads a circuit, symbolically executes its main
// template, and optionally runs a bounded or mutation-based search for a
// trace/constraint counterexample.
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/blang/semver/v4"
	"github.com/rs/zerolog"

	"github.com/tcct-zkfuzz/zkfuzz/internal/config"
	"github.com/tcct-zkfuzz/zkfuzz/internal/executor"
	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
	"github.com/tcct-zkfuzz/zkfuzz/internal/frontend"
	"github.com/tcct-zkfuzz/zkfuzz/internal/mutate"
	"github.com/tcct-zkfuzz/zkfuzz/internal/report"
	"github.com/tcct-zkfuzz/zkfuzz/internal/telemetry"
)

// version is parsed through blang/semver/v4 at program start (MustParse
// panics on a malformed literal); --version prints the parsed, normalized
// form.
var version = semver.MustParse("0.1.0")

const (
	exitOK         = 0
	exitUsageError = 1
	exitParseError = 2
)

func main() {
	os.Exit(run(os.Args[1:], frontend.Unconfigured{}))
}

func run(args []string, parser frontend.Parser) int {
	cli := config.DefaultCLI()
	fs := flag.NewFlagSet("zkfuzz", flag.ContinueOnError)

	searchMode := fs.String("search_mode", string(config.SearchNone), "none|quick|ga")
	debugPrime := fs.String("debug_prime", "", "decimal prime modulus")
	presetFlag := fs.String("p", "", "bn128|bls12381|goldilocks|grumpkin|pallas|vesta|secq256r1")
	symbolicParams := fs.Bool("symbolic_template_params", false, "treat main's parameters as free symbols")
	propagateSubst := fs.Bool("propagate_substitution", false, "extra aggressive simplification pass")
	printAST := fs.Bool("print_ast", false, "print the parsed AST")
	printStats := fs.Bool("print_stats", false, "print execution statistics")
	printStatsCSV := fs.Bool("print_stats_csv", false, "print execution statistics as CSV")
	showStatsOfAST := fs.Bool("show_stats_of_ast", false, "print AST-level statistics")
	mutationSetting := fs.String("path_to_mutation_setting", "", "JSON mutation-engine configuration")
	whitelistPath := fs.String("path_to_whitelist", "", "template names exempt from analysis")
	heuristicsRange := fs.Int("heuristics_range", 100, "loop-unrolling / brute-force safety bound")
	saveOutput := fs.Bool("save_output", false, "write a counterexample JSON file on a finding")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}
	if *showVersion {
		fmt.Println(version.String())
		return exitOK
	}

	cli.SearchMode = config.SearchMode(*searchMode)
	cli.DebugPrime = *debugPrime
	cli.SymbolicTemplateParams = *symbolicParams
	cli.PropagateSubstitution = *propagateSubst
	cli.PrintAST = *printAST
	cli.PrintStats = *printStats
	cli.PrintStatsCSV = *printStatsCSV
	cli.ShowStatsOfAST = *showStatsOfAST
	cli.PathToMutationSetting = *mutationSetting
	cli.PathToWhitelist = *whitelistPath
	cli.HeuristicsRange = *heuristicsRange
	cli.SaveOutput = *saveOutput

	if *presetFlag != "" {
		cli.PresetName = field.PresetName(*presetFlag)
		cli.HasPreset = true
	}

	cli.InputPath = fs.Arg(0)
	if cli.InputPath == "" {
		cli.InputPath = "./circuit.circom"
	}

	logger := telemetry.New(os.Stderr)

	mod, err := resolveModulus(cli)
	if err != nil {
		logger.Error().Err(err).Msg("invalid field configuration")
		return exitUsageError
	}

	src, err := os.ReadFile(cli.InputPath)
	if err != nil {
		logger.Error().Err(err).Str("path", cli.InputPath).Msg("unable to read input")
		return exitParseError
	}

	program, err := parser.Parse(cli.InputPath, src)
	if err != nil {
		logger.Error().Err(err).Msg("parse failed")
		return exitParseError
	}

	mainTemplate := "main"
	if cli.PrintAST {
		names := make([]string, 0, len(program.Templates))
		for n := range program.Templates {
			names = append(names, n)
		}
		logger.Info().Strs("templates", names).Msg("parsed AST")
	}
	if cli.ShowStatsOfAST {
		logger.Info().
			Int("templates", len(program.Templates)).
			Int("functions", len(program.Functions)).
			Msg("ast stats")
	}

	exemptTemplates, err := config.LoadWhitelist(cli.PathToWhitelist)
	if err != nil {
		logger.Error().Err(err).Msg("unable to read whitelist")
		return exitUsageError
	}

	arena := expr.NewArena(mod)
	result, err := executor.Execute(program, mainTemplate, executor.EntryParams{Symbolic: cli.SymbolicTemplateParams}, arena, cli.HeuristicsRange, exemptTemplates)
	if err != nil {
		logger.Error().Err(err).Msg("symbolic execution failed")
		return exitUsageError
	}
	for _, d := range result.Diagnostics {
		logger.Warn().Str("kind", string(d.Kind)).Str("owner", d.Owner).Msg(d.Message)
	}
	if cli.PropagateSubstitution {
		for _, s := range result.Finalized {
			s.PropagateSubstitution()
		}
	}
	if cli.PrintStats || cli.PrintStatsCSV {
		printExecutionStats(result, cli.PrintStatsCSV)
	}

	if cli.SearchMode == config.SearchNone || len(result.Finalized) == 0 {
		return exitOK
	}

	start := time.Now()
	verdict := runSearch(arena, result, cli)
	elapsed := time.Since(start)

	ce := report.FromVerdict(verdict, cli.InputPath, mainTemplate, string(cli.SearchMode), elapsed)
	stdout := report.StdoutSink{Logger: logger}
	_ = stdout.Emit(ce)

	if cli.SaveOutput && verdict.Kind != mutate.WellConstrained {
		suffix := suffixFromSeed(verdict.Seed ^ uint64(verdict.Generation))
		saveCounterexample(ce, report.SaveOutputPath(cli.InputPath, suffix),
			func(w io.Writer) report.Sink { return report.JSONSink{Writer: w} }, logger)
		saveCounterexample(ce, report.SaveOutputBinaryPath(cli.InputPath, suffix),
			func(w io.Writer) report.Sink { return report.CBORSink{Writer: w} }, logger)
	}

	return exitOK
}

// saveCounterexample writes ce to path through the sink makeSink builds
// over the opened file; write failures are logged, never fatal, since
// the verdict has already been reported on the console.
func saveCounterexample(ce report.Counterexample, path string, makeSink func(io.Writer) report.Sink, logger zerolog.Logger) {
	f, err := os.Create(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("unable to write counterexample file")
		return
	}
	defer f.Close()
	if err := makeSink(f).Emit(ce); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("unable to encode counterexample")
	}
}

// runSearch dispatches --search_mode=quick/ga over every finalized
// SymbolicState, returning the first classifying verdict found (or
// WellConstrained once every path is exhausted).
func runSearch(arena *expr.Arena, result executor.Result, cli config.CLI) mutate.Verdict {
	cfg, err := config.LoadMutationSetting(cli.PathToMutationSetting)
	if err != nil {
		cfg = mutate.DefaultConfig()
	}

	for _, state := range result.Finalized {
		if state.Unsatisfiable {
			continue
		}
		inputs := state.Inputs
		if len(inputs) == 0 {
			inputs = expr.FreeSymbols(arena, combineConstraints(state))
		}
		var v mutate.Verdict
		if cli.SearchMode == config.SearchQuick {
			v = mutate.QuickSearch(arena, state, inputs, cli.HeuristicsRange)
		} else {
			v = mutate.Search(arena, state, inputs, cfg)
		}
		if v.Kind != mutate.WellConstrained {
			return v
		}
	}
	return mutate.Verdict{Kind: mutate.WellConstrained}
}

func combineConstraints(state *executor.SymbolicState) expr.Ref {
	all := append(append([]expr.Ref{}, state.TraceConstraints...), state.SideConstraints...)
	if len(all) == 0 {
		return state.Arena.ConstInt64(0)
	}
	acc := all[0]
	for _, r := range all[1:] {
		acc = state.Arena.BoolAnd(acc, r)
	}
	return acc
}

func resolveModulus(cli config.CLI) (*field.Modulus, error) {
	if cli.DebugPrime != "" {
		return field.ModulusFromDecimal(cli.DebugPrime)
	}
	if cli.HasPreset {
		return field.Preset(cli.PresetName)
	}
	return field.DefaultModulus(), nil
}

func printExecutionStats(result executor.Result, csv bool) {
	if csv {
		fmt.Printf("finalized_states,diagnostics\n%d,%d\n", len(result.Finalized), len(result.Diagnostics))
		return
	}
	fmt.Printf("finalized states: %d\n", len(result.Finalized))
	fmt.Printf("diagnostics: %d\n", len(result.Diagnostics))
	for _, s := range result.Finalized {
		fmt.Printf("  owner=%s trace=%d side=%d compression=%.3f\n", s.Owner, len(s.TraceConstraints), len(s.SideConstraints), s.CompressionRatio())
	}
}

// suffixFromSeed derives the counterexample filename's suffix from the
// search seed instead of a process-global RNG, so a fixed-seed run
// reproduces its output filename too.
func suffixFromSeed(seed uint64) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	rng := rand.New(rand.NewPCG(seed, seed<<1|1))
	b := make([]byte, 8)
	for i := range b {
		b[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return string(b)
}
