package executor

// DiagnosticKind classifies a non-fatal analyzer-limitation finding
// surfaced during symbolic execution.
type DiagnosticKind string

const (
	DiagSymbolicLoopBound   DiagnosticKind = "symbolic_loop_bound"
	DiagUnsupportedNode     DiagnosticKind = "unsupported_node"
	DiagReassignedSignal    DiagnosticKind = "reassigned_signal"
	DiagNonUniqueHintTarget DiagnosticKind = "non_unique_hint_target"
	DiagDivisionByZero      DiagnosticKind = "division_by_zero_taint"
	DiagLoopTruncated       DiagnosticKind = "loop_truncated"
)

// Diagnostic is a structured warning; the executor never panics for
// data-driven faults and instead accumulates these.
type Diagnostic struct {
	Kind    DiagnosticKind
	Owner   string
	Message string
}
