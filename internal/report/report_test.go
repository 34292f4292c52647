package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/tcct-zkfuzz/zkfuzz/internal/mutate"
)

func TestFromVerdictWellConstrainedOmitsAuxiliaryResult(t *testing.T) {
	v := mutate.Verdict{Kind: mutate.WellConstrained}
	ce := FromVerdict(v, "circuit.circom", "Main", "ga", 5*time.Millisecond)

	want := Counterexample{
		TargetPath:    "circuit.circom",
		MainTemplate:  "Main",
		SearchMode:    "ga",
		ExecutionTime: (5 * time.Millisecond).String(),
		Flag:          Flag{Type: string(mutate.WellConstrained)},
		Assignment:    map[string]string{},
	}
	if diff := cmp.Diff(want, ce); diff != "" {
		t.Fatalf("Counterexample mismatch (-want +got):\n%s", diff)
	}
}

func TestFromVerdictClassifiedCarriesMutationLog(t *testing.T) {
	v := mutate.Verdict{
		Kind:       mutate.OverConstrained,
		Generation: 7,
		Seed:       42,
	}
	ce := FromVerdict(v, "circuit.circom", "Main", "ga", 12*time.Millisecond)

	want := &AuxiliaryResult{
		MutationTestLog: MutationTestLog{Generation: 7, RandomSeed: 42},
	}
	if diff := cmp.Diff(want, ce.AuxiliaryResult); diff != "" {
		t.Fatalf("AuxiliaryResult mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONSinkRoundTrips(t *testing.T) {
	ce := Counterexample{
		TargetPath:    "circuit.circom",
		MainTemplate:  "Main",
		SearchMode:    "ga",
		ExecutionTime: "1ms",
		Flag:          Flag{Type: "OverConstrained"},
		Assignment:    map[string]string{"Main.out": "3"},
	}
	var buf bytes.Buffer
	require.NoError(t, (JSONSink{Writer: &buf}).Emit(ce))

	var got Counterexample
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(ce, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCBORSinkRoundTrips(t *testing.T) {
	ce := Counterexample{
		TargetPath:    "circuit.circom",
		MainTemplate:  "Main",
		SearchMode:    "ga",
		ExecutionTime: "1ms",
		Flag:          Flag{Type: "OverConstrained"},
		Assignment:    map[string]string{"Main.out": "3"},
		AuxiliaryResult: &AuxiliaryResult{
			MutationTestLog: MutationTestLog{Generation: 3, RandomSeed: 11},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, (CBORSink{Writer: &buf}).Emit(ce))

	var got Counterexample
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(ce, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveOutputPathConvention(t *testing.T) {
	require.Equal(t, "circuit.circom_ab12cd34_counterexample.json", SaveOutputPath("circuit.circom", "ab12cd34"))
	require.Equal(t, "circuit.circom_ab12cd34_counterexample.cbor", SaveOutputBinaryPath("circuit.circom", "ab12cd34"))
}
