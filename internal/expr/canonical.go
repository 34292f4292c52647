package expr

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

func fieldElementFromDecimal(s string, m *field.Modulus) (field.Element, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return field.Element{}, fmt.Errorf("expr: invalid decimal constant %q", s)
	}
	return field.New(v, m), nil
}

// canonicalNode is the wire form used for serialization and structural
// hashing: unlike Ref, it is arena-independent, so two Expressions built
// in different Arenas compare equal iff they are structurally identical.
type canonicalNode struct {
	Kind  Kind            `cbor:"k"`
	Const string          `cbor:"c,omitempty"`
	Name  Name            `cbor:"n,omitempty"`
	Args  []canonicalNode `cbor:"a,omitempty"`
}

func toCanonical(a *Arena, r Ref) canonicalNode {
	n := a.node(r)
	switch n.kind {
	case KindConst:
		return canonicalNode{Kind: n.kind, Const: n.constVal.String()}
	case KindVar, KindSignal:
		return canonicalNode{Kind: n.kind, Name: n.name}
	default:
		children := a.Children(r)
		args := make([]canonicalNode, len(children))
		for i, c := range children {
			args[i] = toCanonical(a, c)
		}
		return canonicalNode{Kind: n.kind, Args: args}
	}
}

// Serialize renders r to a compact CBOR encoding. The encoding is
// arena-independent and round-trips via Deserialize into a fresh Arena.
func Serialize(a *Arena, r Ref) ([]byte, error) {
	return cbor.Marshal(toCanonical(a, r))
}

// Deserialize rebuilds an expression encoded by Serialize into dst.
func Deserialize(dst *Arena, data []byte) (Ref, error) {
	var cn canonicalNode
	if err := cbor.Unmarshal(data, &cn); err != nil {
		return invalidRef, err
	}
	return fromCanonical(dst, cn), nil
}

func fromCanonical(a *Arena, cn canonicalNode) Ref {
	switch cn.Kind {
	case KindConst:
		v, err := fieldElementFromDecimal(cn.Const, a.mod)
		if err != nil {
			// A malformed constant string cannot occur from our own
			// Serialize output; treat it as zero rather than panic.
			return a.ConstInt64(0)
		}
		return a.Const(v)
	case KindVar:
		return a.Var(cn.Name)
	case KindSignal:
		return a.Signal(cn.Name)
	default:
		refs := make([]Ref, len(cn.Args))
		for i, arg := range cn.Args {
			refs[i] = fromCanonical(a, arg)
		}
		n := node{kind: cn.Kind}
		switch len(refs) {
		case 1:
			n.a = refs[0]
		case 2:
			n.a, n.b = refs[0], refs[1]
		case 3:
			n.a, n.b, n.c = refs[0], refs[1], refs[2]
		}
		return a.intern(n)
	}
}

// structuralHash hashes the arena-independent canonical form of r, used
// for de-duplication and by EqualsStructural below.
func structuralHash(a *Arena, r Ref) [32]byte {
	data, err := Serialize(a, r)
	if err != nil {
		// Serialize only fails if cbor encoding of plain strings/ints
		// fails, which does not happen for this node shape.
		panic(err)
	}
	return blake2b.Sum256(data)
}

// EqualsStructural reports whether r1 and r2 (each from its own Arena,
// possibly the same one) are structurally identical after Simplify, the
// equivalence used for de-duplication. Hash equality is confirmed with a
// canonical-tree comparison to rule out a hash collision.
func EqualsStructural(a1 *Arena, r1 Ref, a2 *Arena, r2 Ref) bool {
	s1 := Simplify(a1, r1)
	s2 := Simplify(a2, r2)
	h1 := structuralHash(a1, s1)
	h2 := structuralHash(a2, s2)
	if h1 != h2 {
		return false
	}
	return toCanonical(a1, s1).equal(toCanonical(a2, s2))
}

func (n canonicalNode) equal(o canonicalNode) bool {
	if n.Kind != o.Kind || n.Const != o.Const || n.Name != o.Name || len(n.Args) != len(o.Args) {
		return false
	}
	for i := range n.Args {
		if !n.Args[i].equal(o.Args[i]) {
			return false
		}
	}
	return true
}
