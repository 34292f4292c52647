package mutate

import (
	"github.com/tcct-zkfuzz/zkfuzz/internal/eval"
	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

// emulate replays a trace constraint list under sigma: each Eq(leaf,
// rhs) constraint, taken in order, fixes that leaf's concrete value by
// evaluating rhs against sigma plus every value computed so far.
// ok=false signals that the replay hit a division by zero.
func emulate(arena *expr.Arena, trace []expr.Ref, sigma expr.Subst) (ok bool, out map[expr.Name]field.Element) {
	out = make(map[expr.Name]field.Element)
	acc := make(expr.Subst, len(sigma))
	for k, v := range sigma {
		acc[k] = v
	}

	for _, c := range trace {
		if arena.Kind(c) != expr.KindEq {
			continue
		}
		children := arena.Children(c)
		name, isLeaf := arena.AsLeafName(children[0])
		if !isLeaf {
			continue
		}

		rhs := expr.Simplify(arena, expr.Substitute(arena, children[1], acc))
		if containsDivByZero(arena, rhs) {
			return false, out
		}

		val, isConst := arena.AsConst(rhs)
		if !isConst {
			val = field.Zero(arena.Modulus())
		}
		out[name] = val
		acc[name] = arena.Const(val)
	}
	return true, out
}

func containsDivByZero(arena *expr.Arena, r expr.Ref) bool {
	if arena.Kind(r) == expr.KindDiv {
		children := arena.Children(r)
		if len(children) == 2 {
			if cv, ok := arena.AsConst(children[1]); ok && cv.IsZero() {
				return true
			}
		}
	}
	for _, ch := range arena.Children(r) {
		if containsDivByZero(arena, ch) {
			return true
		}
	}
	return false
}

// totalSideError sums the side-constraint error under sigma extended
// with the emulated trace's outputs.
func totalSideError(arena *expr.Arena, side []expr.Ref, sigma expr.Subst, out map[expr.Name]field.Element) field.Element {
	merged := make(expr.Subst, len(sigma)+len(out))
	for k, v := range sigma {
		merged[k] = v
	}
	for k, v := range out {
		merged[k] = arena.Const(v)
	}
	return eval.Total(arena, side, merged)
}
