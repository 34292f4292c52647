// Package report renders a found counterexample to the outside world:
// the --save_output JSON wire format, a compact CBOR companion for
// machine consumers, and a human-readable console rendering for
// interactive runs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"

	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
	"github.com/tcct-zkfuzz/zkfuzz/internal/mutate"
)

// Flag classifies the finding and, where applicable, the evidence: the
// output the original trace produced, or the constraint it violated.
type Flag struct {
	Type              string `json:"type"`
	ExpectedOutput    string `json:"expected_output,omitempty"`
	ViolatedCondition string `json:"violated_condition,omitempty"`
}

// MutationTestLog is the auxiliary_result.mutation_test_log object.
type MutationTestLog struct {
	Generation      int       `json:"generation"`
	RandomSeed      uint64    `json:"random_seed"`
	FitnessScoreLog []float64 `json:"fitness_score_log,omitempty"`
}

// AuxiliaryResult is the auxiliary_result object, present for every
// classifying (non-WellConstrained) verdict whatever the search mode; a
// quick-mode verdict carries generation 0 and seed 0.
type AuxiliaryResult struct {
	MutationTestConfig any             `json:"mutation_test_config,omitempty"`
	MutationTestLog    MutationTestLog `json:"mutation_test_log"`
}

// Counterexample is the top-level shape of the --save_output JSON file.
type Counterexample struct {
	TargetPath      string            `json:"target_path"`
	MainTemplate    string            `json:"main_template"`
	SearchMode      string            `json:"search_mode"`
	ExecutionTime   string            `json:"execution_time"`
	Flag            Flag              `json:"flag"`
	TargetOutput    map[string]string `json:"target_output,omitempty"`
	Assignment      map[string]string `json:"assignment"`
	AuxiliaryResult *AuxiliaryResult  `json:"auxiliary_result,omitempty"`
}

// FromVerdict renders a mutate.Verdict into the wire schema. Field
// values are decimal strings of canonical representatives.
func FromVerdict(v mutate.Verdict, targetPath, mainTemplate, searchMode string, elapsed time.Duration) Counterexample {
	ce := Counterexample{
		TargetPath:    targetPath,
		MainTemplate:  mainTemplate,
		SearchMode:    searchMode,
		ExecutionTime: elapsed.String(),
		Flag:          Flag{Type: string(v.Kind)},
		Assignment:    make(map[string]string, len(v.Assignment)),
	}
	for name, val := range v.Assignment {
		ce.Assignment[string(name)] = val.String()
	}
	if v.Kind != mutate.WellConstrained {
		ce.AuxiliaryResult = &AuxiliaryResult{
			MutationTestLog: MutationTestLog{
				Generation: v.Generation,
				RandomSeed: v.Seed,
			},
		}
	}
	return ce
}

// Sink is the output boundary every reporting destination implements;
// callers don't need to know whether the verdict ends up as a file, on
// stdout, or both.
type Sink interface {
	Emit(Counterexample) error
}

// JSONSink writes the counterexample schema to a single destination.
type JSONSink struct {
	Writer io.Writer
}

func (s JSONSink) Emit(ce Counterexample) error {
	enc := json.NewEncoder(s.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(ce)
}

// CBORSink writes the counterexample as a compact CBOR document, the
// binary companion to JSONSink. The json struct tags double as CBOR
// field names, so both encodings carry the same keys.
type CBORSink struct {
	Writer io.Writer
}

func (s CBORSink) Emit(ce Counterexample) error {
	data, err := cbor.Marshal(ce)
	if err != nil {
		return err
	}
	_, err = s.Writer.Write(data)
	return err
}

// StdoutSink renders a short human-readable summary through a zerolog
// logger (telemetry.New already decides console-vs-JSON framing based on
// whether the destination is a terminal).
type StdoutSink struct {
	Logger zerolog.Logger
}

func (s StdoutSink) Emit(ce Counterexample) error {
	evt := s.Logger.Info().
		Str("verdict", ce.Flag.Type).
		Str("main_template", ce.MainTemplate).
		Str("search_mode", ce.SearchMode).
		Str("execution_time", ce.ExecutionTime)

	for _, name := range sortedKeys(ce.Assignment) {
		evt = evt.Str("assignment."+name, ce.Assignment[name])
	}
	evt.Msg("counterexample found")
	return nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SaveOutputPath builds the --save_output filename:
// "<input>_<suffix>_counterexample.json".
func SaveOutputPath(inputPath string, suffix string) string {
	return fmt.Sprintf("%s_%s_counterexample.json", inputPath, suffix)
}

// SaveOutputBinaryPath is SaveOutputPath's CBOR sibling.
func SaveOutputBinaryPath(inputPath string, suffix string) string {
	return fmt.Sprintf("%s_%s_counterexample.cbor", inputPath, suffix)
}

// DiagnosticSummary reduces a set of names to decimal strings for a
// report's target_output (e.g. a template's declared `out` signals),
// keyed by Name for callers that already hold concrete field values.
func DiagnosticSummary(values map[expr.Name]field.Element) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[string(k)] = v.String()
	}
	return out
}
