// Package expr implements the tagged algebraic/boolean expression IR
// and the symbolic library built on top of it: substitution,
// simplification, free-variable extraction, structural equivalence and
// serialization.
//
// Expressions are stored in an Arena and referenced by Ref (an index),
// giving pointer-free structural sharing: nodes are hash-consed on
// construction so structurally identical sub-expressions share one slot.
package expr

import (
	"fmt"

	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

// Name is a dotted symbolic path, e.g. "main.inv" or "main.sub.out[3]";
// array indices with statically-known values are flattened into the
// string by the caller.
type Name string

// Kind tags the variant of an expression node.
type Kind int

const (
	KindConst Kind = iota
	KindVar
	KindSignal
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindNeg
	KindPow
	KindEq
	KindNEq
	KindLt
	KindLEq
	KindGt
	KindGEq
	KindBoolAnd
	KindBoolOr
	KindBoolNot
	KindCond
)

func (k Kind) String() string {
	switch k {
	case KindConst:
		return "const"
	case KindVar:
		return "var"
	case KindSignal:
		return "signal"
	case KindAdd:
		return "+"
	case KindSub:
		return "-"
	case KindMul:
		return "*"
	case KindDiv:
		return "/"
	case KindNeg:
		return "neg"
	case KindPow:
		return "**"
	case KindEq:
		return "=="
	case KindNEq:
		return "!="
	case KindLt:
		return "<"
	case KindLEq:
		return "<="
	case KindGt:
		return ">"
	case KindGEq:
		return ">="
	case KindBoolAnd:
		return "&&"
	case KindBoolOr:
		return "||"
	case KindBoolNot:
		return "!"
	case KindCond:
		return "cond"
	default:
		return "?"
	}
}

// arity reports how many operand Refs a node of this Kind carries; the
// leaf kinds (const/var/signal) carry none.
func (k Kind) arity() int {
	switch k {
	case KindConst, KindVar, KindSignal:
		return 0
	case KindNeg, KindBoolNot:
		return 1
	case KindCond:
		return 3
	default:
		return 2
	}
}

// Ref is an index into an Arena's node table; use Arena methods to
// obtain valid Refs (Ref 0 is the arena's first node). invalidRef marks
// the absence of a node.
type Ref int

const invalidRef Ref = -1

type node struct {
	kind     Kind
	a, b, c  Ref
	constVal field.Element
	name     Name
}

// Arena owns every expression node produced for one run (or one
// SymbolicState lineage). All Refs from one Arena are only meaningfully
// compared/combined against Refs from that same Arena.
type Arena struct {
	mod   *field.Modulus
	nodes []node
	dedup map[string]Ref
}

// NewArena creates an empty arena bound to a field modulus; every Const
// node built in this arena is reduced mod m.
func NewArena(m *field.Modulus) *Arena {
	return &Arena{mod: m, dedup: make(map[string]Ref)}
}

// Modulus returns the arena's field modulus.
func (a *Arena) Modulus() *field.Modulus { return a.mod }

func (a *Arena) intern(n node) Ref {
	key := dedupKey(n)
	if r, ok := a.dedup[key]; ok {
		return r
	}
	a.nodes = append(a.nodes, n)
	r := Ref(len(a.nodes) - 1)
	a.dedup[key] = r
	return r
}

func dedupKey(n node) string {
	switch n.kind {
	case KindConst:
		return fmt.Sprintf("C:%s", n.constVal.String())
	case KindVar, KindSignal:
		return fmt.Sprintf("%d:%s", n.kind, n.name)
	default:
		return fmt.Sprintf("%d:%d:%d:%d", n.kind, n.a, n.b, n.c)
	}
}

func (a *Arena) node(r Ref) node { return a.nodes[r] }

// Kind returns the node kind at r.
func (a *Arena) Kind(r Ref) Kind { return a.nodes[r].kind }

// --- constructors -----------------------------------------------------

// Const returns a Ref to a (hash-consed) constant node.
func (a *Arena) Const(v field.Element) Ref {
	return a.intern(node{kind: KindConst, constVal: v})
}

// ConstInt64 is a convenience wrapper over Const.
func (a *Arena) ConstInt64(v int64) Ref {
	return a.Const(field.NewInt64(v, a.mod))
}

// Var returns a Ref to a free (or bound, depending on the current
// SymbolicState value map) variable node.
func (a *Arena) Var(name Name) Ref {
	return a.intern(node{kind: KindVar, name: name})
}

// Signal returns a Ref to a signal node.
func (a *Arena) Signal(name Name) Ref {
	return a.intern(node{kind: KindSignal, name: name})
}

func (a *Arena) bin(k Kind, x, y Ref) Ref { return a.intern(node{kind: k, a: x, b: y}) }
func (a *Arena) un(k Kind, x Ref) Ref     { return a.intern(node{kind: k, a: x}) }

func (a *Arena) Add(x, y Ref) Ref { return a.bin(KindAdd, x, y) }
func (a *Arena) Sub(x, y Ref) Ref { return a.bin(KindSub, x, y) }
func (a *Arena) Mul(x, y Ref) Ref { return a.bin(KindMul, x, y) }
func (a *Arena) Div(x, y Ref) Ref { return a.bin(KindDiv, x, y) }
func (a *Arena) Neg(x Ref) Ref    { return a.un(KindNeg, x) }
func (a *Arena) Pow(x, y Ref) Ref { return a.bin(KindPow, x, y) }

func (a *Arena) Eq(x, y Ref) Ref  { return a.bin(KindEq, x, y) }
func (a *Arena) NEq(x, y Ref) Ref { return a.bin(KindNEq, x, y) }
func (a *Arena) Lt(x, y Ref) Ref  { return a.bin(KindLt, x, y) }
func (a *Arena) LEq(x, y Ref) Ref { return a.bin(KindLEq, x, y) }
func (a *Arena) Gt(x, y Ref) Ref  { return a.bin(KindGt, x, y) }
func (a *Arena) GEq(x, y Ref) Ref { return a.bin(KindGEq, x, y) }

func (a *Arena) BoolAnd(x, y Ref) Ref { return a.bin(KindBoolAnd, x, y) }
func (a *Arena) BoolOr(x, y Ref) Ref  { return a.bin(KindBoolOr, x, y) }
func (a *Arena) BoolNot(x Ref) Ref    { return a.un(KindBoolNot, x) }

// Cond builds a ternary c ? then : els.
func (a *Arena) Cond(c, then, els Ref) Ref {
	return a.intern(node{kind: KindCond, a: c, b: then, c: els})
}

// AsConst reports whether r is a constant node and, if so, its value.
func (a *Arena) AsConst(r Ref) (field.Element, bool) {
	n := a.node(r)
	if n.kind == KindConst {
		return n.constVal, true
	}
	return field.Element{}, false
}

// AsLeafName reports the symbolic name carried by a Var/Signal node.
func (a *Arena) AsLeafName(r Ref) (Name, bool) {
	n := a.node(r)
	if n.kind == KindVar || n.kind == KindSignal {
		return n.name, true
	}
	return "", false
}

// Children returns the operand Refs of r in declaration order. Leaf
// nodes (Const/Var/Signal) return nil.
func (a *Arena) Children(r Ref) []Ref {
	n := a.node(r)
	switch n.kind.arity() {
	case 0:
		return nil
	case 1:
		return []Ref{n.a}
	case 2:
		return []Ref{n.a, n.b}
	case 3:
		return []Ref{n.a, n.b, n.c}
	default:
		return nil
	}
}

// Rebuild reconstructs a node of the same kind as r but with new
// children, hash-consing the result. Used by Substitute/Simplify.
func (a *Arena) Rebuild(r Ref, children []Ref) Ref {
	n := a.node(r)
	switch n.kind.arity() {
	case 0:
		return r
	case 1:
		n.a = children[0]
	case 2:
		n.a, n.b = children[0], children[1]
	case 3:
		n.a, n.b, n.c = children[0], children[1], children[2]
	}
	return a.intern(n)
}

// String renders r as a fully-parenthesized debug form.
func (a *Arena) String(r Ref) string {
	n := a.node(r)
	switch n.kind {
	case KindConst:
		return n.constVal.String()
	case KindVar:
		return string(n.name)
	case KindSignal:
		return string(n.name)
	case KindNeg:
		return fmt.Sprintf("(-%s)", a.String(n.a))
	case KindBoolNot:
		return fmt.Sprintf("(!%s)", a.String(n.a))
	case KindCond:
		return fmt.Sprintf("(%s ? %s : %s)", a.String(n.a), a.String(n.b), a.String(n.c))
	default:
		return fmt.Sprintf("(%s %s %s)", a.String(n.a), n.kind, a.String(n.b))
	}
}
