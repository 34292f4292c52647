// Package eval scores a constraint set against a concrete assignment.
// It is the metric the mutation engine climbs: zero total error means
// every constraint is satisfied under that assignment.
package eval

import (
	"math/big"

	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

// Error computes the nonnegative per-constraint error of r under sigma:
// 0 means satisfied. sigma must bind every free symbol of r to a
// concrete field element; unresolved leaves are treated as zero.
func Error(arena *expr.Arena, r expr.Ref, sigma expr.Subst) field.Element {
	mod := arena.Modulus()
	// Substitute only, not Simplify: Simplify folds a fully-resolved
	// relational node straight to Const(0)/Const(1) and the distance to
	// report would be lost. Operands are folded in evalOperand instead.
	substituted := expr.Substitute(arena, r, sigma)
	children := arena.Children(substituted)
	switch arena.Kind(substituted) {
	case expr.KindEq:
		a, b := evalOperand(arena, children[0], mod), evalOperand(arena, children[1], mod)
		return absDiff(a, b)

	case expr.KindNEq:
		a, b := evalOperand(arena, children[0], mod), evalOperand(arena, children[1], mod)
		if !a.Equal(b) {
			return field.Zero(mod)
		}
		return field.One(mod)

	case expr.KindLt:
		return ltPenalty(evalOperand(arena, children[0], mod), evalOperand(arena, children[1], mod), mod, 1)
	case expr.KindLEq:
		return ltPenalty(evalOperand(arena, children[0], mod), evalOperand(arena, children[1], mod), mod, 0)
	case expr.KindGt:
		return ltPenalty(evalOperand(arena, children[1], mod), evalOperand(arena, children[0], mod), mod, 1)
	case expr.KindGEq:
		return ltPenalty(evalOperand(arena, children[1], mod), evalOperand(arena, children[0], mod), mod, 0)

	case expr.KindBoolAnd:
		return Error(arena, children[0], sigma).Add(Error(arena, children[1], sigma))
	case expr.KindBoolOr:
		l := Error(arena, children[0], sigma)
		r := Error(arena, children[1], sigma)
		if l.CmpSigned(r) <= 0 {
			return l
		}
		return r
	case expr.KindBoolNot:
		if Error(arena, children[0], sigma).IsZero() {
			return field.One(mod)
		}
		return field.Zero(mod)

	default:
		// Non-relational expression (e.g. an arithmetic value used
		// directly as a constraint, or an unresolved free symbol the
		// caller didn't bind): treat as satisfied only when it folds
		// to zero.
		folded := expr.Simplify(arena, substituted)
		if c, ok := arena.AsConst(folded); ok && c.IsZero() {
			return field.Zero(mod)
		}
		return field.One(mod)
	}
}

// evalOperand folds r to a constant for scoring purposes, simplifying
// first since an operand (unlike the top-level relational node) carries
// no distance semantics of its own to lose.
func evalOperand(arena *expr.Arena, r expr.Ref, mod *field.Modulus) field.Element {
	folded := expr.Simplify(arena, r)
	if c, ok := arena.AsConst(folded); ok {
		return c
	}
	return field.Zero(mod)
}

func absDiff(a, b field.Element) field.Element {
	d := a.Sub(b)
	if d.SignedBigInt().Sign() < 0 {
		return d.Neg()
	}
	return d
}

// ltPenalty is the piecewise-linear "a < b (+ margin)" penalty:
// Lt(a,b) -> max(0, a-b+1); LEq drops the +1 margin.
func ltPenalty(a, b field.Element, mod *field.Modulus, margin int64) field.Element {
	diff := a.Sub(b).SignedBigInt()
	diff.Add(diff, big.NewInt(margin))
	if diff.Sign() <= 0 {
		return field.Zero(mod)
	}
	return field.New(diff, mod)
}

// Total sums Error over every member of a constraint set.
func Total(arena *expr.Arena, constraints []expr.Ref, sigma expr.Subst) field.Element {
	total := field.Zero(arena.Modulus())
	for _, c := range constraints {
		total = total.Add(Error(arena, c, sigma))
	}
	return total
}

// UnsatisfiedCount counts constraints with nonzero error, the tie-break
// metric between assignments with equal total error.
func UnsatisfiedCount(arena *expr.Arena, constraints []expr.Ref, sigma expr.Subst) int {
	n := 0
	for _, c := range constraints {
		if !Error(arena, c, sigma).IsZero() {
			n++
		}
	}
	return n
}
