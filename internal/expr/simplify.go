package expr

import (
	"math/big"
	"sort"

	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

var bigOne = big.NewInt(1)

// Simplify constant-folds arithmetic and applies the usual identities
// (x+0, x*1, x*0, x-x, double negation, BoolNot(BoolNot)). Add and Mul
// chains are flattened, their constants folded into one term and their
// remaining operands reordered canonically, so reassociated or commuted
// forms of the same sum/product simplify to the same Ref. It is a pure,
// idempotent function of (arena contents, r): calling it twice on the
// same r yields the same Ref both times, since Arena never mutates
// existing nodes.
//
// Division is never partially evaluated unless the denominator
// simplifies to a nonzero constant; Div by a constant zero is left as a
// symbolic node so the executor can taint the owning state as
// unsatisfiable instead of panicking.
func Simplify(a *Arena, r Ref) Ref {
	return simplifyMemo(a, r, make(map[Ref]Ref))
}

func simplifyMemo(a *Arena, r Ref, memo map[Ref]Ref) Ref {
	if out, ok := memo[r]; ok {
		return out
	}
	out := simplifyOnce(a, r, memo)
	memo[r] = out
	return out
}

func simplifyOnce(a *Arena, r Ref, memo map[Ref]Ref) Ref {
	n := a.node(r)
	switch n.kind {
	case KindConst, KindVar, KindSignal:
		return r
	case KindNeg:
		x := simplifyMemo(a, n.a, memo)
		if cx, ok := a.AsConst(x); ok {
			return a.Const(cx.Neg())
		}
		if a.Kind(x) == KindNeg {
			return a.Children(x)[0] // --y == y
		}
		return a.Rebuild(r, []Ref{x})
	case KindBoolNot:
		x := simplifyMemo(a, n.a, memo)
		if cx, ok := a.AsConst(x); ok {
			if cx.IsZero() {
				return a.ConstInt64(1)
			}
			return a.ConstInt64(0)
		}
		if a.Kind(x) == KindBoolNot {
			return a.Children(x)[0]
		}
		return a.Rebuild(r, []Ref{x})
	case KindCond:
		c := simplifyMemo(a, n.a, memo)
		then := simplifyMemo(a, n.b, memo)
		els := simplifyMemo(a, n.c, memo)
		if cc, ok := a.AsConst(c); ok {
			if cc.IsZero() {
				return els
			}
			return then
		}
		return a.Rebuild(r, []Ref{c, then, els})
	case KindAdd:
		return simplifyAdd(a, n, memo)
	case KindSub:
		return simplifySub(a, n, memo)
	case KindMul:
		return simplifyMul(a, n, memo)
	case KindDiv:
		return simplifyDiv(a, n, memo)
	case KindPow:
		return simplifyPow(a, n, memo)
	case KindEq, KindNEq, KindLt, KindLEq, KindGt, KindGEq:
		return simplifyRelational(a, n, memo)
	case KindBoolAnd, KindBoolOr:
		return simplifyBoolBin(a, n, memo)
	default:
		return r
	}
}

// flattenChain collects the leaves of a nested same-kind binary chain,
// simplifying each as it goes.
func flattenChain(a *Arena, k Kind, x, y Ref, memo map[Ref]Ref) []Ref {
	var out []Ref
	var walk func(r Ref)
	walk = func(r Ref) {
		r = simplifyMemo(a, r, memo)
		if a.Kind(r) == k {
			ch := a.Children(r)
			walk(ch[0])
			walk(ch[1])
			return
		}
		out = append(out, r)
	}
	walk(x)
	walk(y)
	return out
}

// rebuildChain folds a sorted operand list back into a left-leaning
// binary chain. Hash-consing makes Ref order a canonical operand order
// within one arena, so equal multisets of operands rebuild to the same
// Ref.
func rebuildChain(a *Arena, k Kind, operands []Ref) Ref {
	acc := operands[0]
	for _, t := range operands[1:] {
		acc = a.bin(k, acc, t)
	}
	return acc
}

func simplifyAdd(a *Arena, n node, memo map[Ref]Ref) Ref {
	terms := flattenChain(a, KindAdd, n.a, n.b, memo)
	sum := field.Zero(a.mod)
	syms := terms[:0]
	for _, t := range terms {
		if c, ok := a.AsConst(t); ok {
			sum = sum.Add(c)
			continue
		}
		syms = append(syms, t)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	if len(syms) == 0 {
		return a.Const(sum)
	}
	acc := rebuildChain(a, KindAdd, syms)
	if !sum.IsZero() {
		acc = a.Add(acc, a.Const(sum))
	}
	return acc
}

func simplifySub(a *Arena, n node, memo map[Ref]Ref) Ref {
	x := simplifyMemo(a, n.a, memo)
	y := simplifyMemo(a, n.b, memo)
	if x == y {
		return a.ConstInt64(0) // x - x == 0, structural
	}
	cx, xIsConst := a.AsConst(x)
	cy, yIsConst := a.AsConst(y)
	switch {
	case xIsConst && yIsConst:
		return a.Const(cx.Sub(cy))
	case yIsConst && cy.IsZero():
		return x
	default:
		return a.Sub(x, y)
	}
}

func simplifyMul(a *Arena, n node, memo map[Ref]Ref) Ref {
	factors := flattenChain(a, KindMul, n.a, n.b, memo)
	prod := field.One(a.mod)
	syms := factors[:0]
	for _, t := range factors {
		if c, ok := a.AsConst(t); ok {
			prod = prod.Mul(c)
			continue
		}
		syms = append(syms, t)
	}
	if prod.IsZero() {
		return a.ConstInt64(0)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	if len(syms) == 0 {
		return a.Const(prod)
	}
	acc := rebuildChain(a, KindMul, syms)
	if prod.BigInt().Cmp(bigOne) != 0 {
		acc = a.Mul(acc, a.Const(prod))
	}
	return acc
}

func simplifyDiv(a *Arena, n node, memo map[Ref]Ref) Ref {
	x := simplifyMemo(a, n.a, memo)
	y := simplifyMemo(a, n.b, memo)
	if cy, ok := a.AsConst(y); ok && !cy.IsZero() {
		if cx, ok := a.AsConst(x); ok {
			q, err := cx.Div(cy)
			if err == nil {
				return a.Const(q)
			}
		}
	}
	// Denominator not a nonzero constant: stays symbolic (never partially
	// evaluated), including the Div(a,0) taint case.
	return a.Div(x, y)
}

func simplifyPow(a *Arena, n node, memo map[Ref]Ref) Ref {
	x := simplifyMemo(a, n.a, memo)
	y := simplifyMemo(a, n.b, memo)
	if cx, okx := a.AsConst(x); okx {
		if cy, oky := a.AsConst(y); oky {
			return a.Const(cx.PowU(cy.BigInt().Uint64()))
		}
	}
	if cy, oky := a.AsConst(y); oky && cy.BigInt().Sign() == 0 {
		return a.ConstInt64(1) // x**0 == 1
	}
	return a.Pow(x, y)
}

func simplifyRelational(a *Arena, n node, memo map[Ref]Ref) Ref {
	x := simplifyMemo(a, n.a, memo)
	y := simplifyMemo(a, n.b, memo)
	cx, xIsConst := a.AsConst(x)
	cy, yIsConst := a.AsConst(y)
	if xIsConst && yIsConst {
		var truth bool
		switch n.kind {
		case KindEq:
			truth = cx.Equal(cy)
		case KindNEq:
			truth = !cx.Equal(cy)
		case KindLt:
			truth = cx.CmpSigned(cy) < 0
		case KindLEq:
			truth = cx.CmpSigned(cy) <= 0
		case KindGt:
			truth = cx.CmpSigned(cy) > 0
		case KindGEq:
			truth = cx.CmpSigned(cy) >= 0
		}
		if truth {
			return a.ConstInt64(1)
		}
		return a.ConstInt64(0)
	}
	if n.kind == KindEq && x == y {
		return a.ConstInt64(1)
	}
	return a.bin(n.kind, x, y)
}

func simplifyBoolBin(a *Arena, n node, memo map[Ref]Ref) Ref {
	x := simplifyMemo(a, n.a, memo)
	y := simplifyMemo(a, n.b, memo)
	cx, xIsConst := a.AsConst(x)
	cy, yIsConst := a.AsConst(y)
	truthy := func(e field.Element) bool { return !e.IsZero() }
	if xIsConst && yIsConst {
		var truth bool
		if n.kind == KindBoolAnd {
			truth = truthy(cx) && truthy(cy)
		} else {
			truth = truthy(cx) || truthy(cy)
		}
		if truth {
			return a.ConstInt64(1)
		}
		return a.ConstInt64(0)
	}
	return a.bin(n.kind, x, y)
}
