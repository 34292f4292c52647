// Package field implements modular arithmetic over a prime field whose
// modulus is chosen at run time (no compile-time curve specialization).
package field

import (
	"errors"
	"math/big"
)

// ErrDivisionByZero is returned by Inv and Div when the divisor has no
// multiplicative inverse modulo the field's modulus (i.e. it is zero).
var ErrDivisionByZero = errors.New("field: division by zero")

// Modulus is a prime modulus shared by every Element produced against it.
// Elements hold a pointer to their Modulus rather than copying it, so a
// single run threads exactly one Modulus through every component.
type Modulus struct {
	p    *big.Int
	half *big.Int // floor(p/2), used by CmpSigned
	name string
}

// NewModulus builds a Modulus from an arbitrary-precision prime. It does
// not verify primality; callers are expected to supply a known-good prime
// (see Preset for the built-in curve list).
func NewModulus(p *big.Int, name string) *Modulus {
	m := &Modulus{p: new(big.Int).Set(p), name: name}
	m.half = new(big.Int).Rsh(m.p, 1)
	return m
}

// P returns a copy of the modulus; callers may mutate it freely.
func (m *Modulus) P() *big.Int { return new(big.Int).Set(m.p) }

// Name is the human-readable curve/preset name, or "" for a custom prime.
func (m *Modulus) Name() string { return m.name }

// Element is a field element, always kept in canonical form: 0 <= v < p.
type Element struct {
	v *big.Int
	m *Modulus
}

// New reduces v modulo m and returns the canonical Element.
func New(v *big.Int, m *Modulus) Element {
	r := new(big.Int).Mod(v, m.p)
	return Element{v: r, m: m}
}

// NewInt64 is a convenience constructor over a native int64; negative
// literals are reduced into canonical form.
func NewInt64(v int64, m *Modulus) Element {
	return New(big.NewInt(v), m)
}

// Zero and One return the additive/multiplicative identities for m.
func Zero(m *Modulus) Element { return Element{v: big.NewInt(0), m: m} }
func One(m *Modulus) Element  { return Element{v: big.NewInt(1), m: m} }

// Modulus returns the element's shared modulus.
func (e Element) Modulus() *Modulus { return e.m }

// BigInt returns a copy of the canonical representative.
func (e Element) BigInt() *big.Int { return new(big.Int).Set(e.v) }

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool { return e.v.Sign() == 0 }

// String renders the canonical decimal representative, the form the
// counterexample JSON schema carries field values in.
func (e Element) String() string { return e.v.String() }

func (e Element) requireSameModulus(o Element) {
	if e.m != o.m {
		panic("field: operands from different moduli")
	}
}

// Add returns e+o mod p.
func (e Element) Add(o Element) Element {
	e.requireSameModulus(o)
	r := new(big.Int).Add(e.v, o.v)
	r.Mod(r, e.m.p)
	return Element{v: r, m: e.m}
}

// Sub returns e-o mod p.
func (e Element) Sub(o Element) Element {
	e.requireSameModulus(o)
	r := new(big.Int).Sub(e.v, o.v)
	r.Mod(r, e.m.p)
	return Element{v: r, m: e.m}
}

// Mul returns e*o mod p.
func (e Element) Mul(o Element) Element {
	e.requireSameModulus(o)
	r := new(big.Int).Mul(e.v, o.v)
	r.Mod(r, e.m.p)
	return Element{v: r, m: e.m}
}

// Neg returns -e mod p.
func (e Element) Neg() Element {
	r := new(big.Int).Neg(e.v)
	r.Mod(r, e.m.p)
	return Element{v: r, m: e.m}
}

// Inv returns the modular inverse of e via the extended Euclidean
// algorithm (big.Int.ModInverse). Fails with ErrDivisionByZero when e is
// zero (or, in principle, not invertible against a non-prime modulus).
func (e Element) Inv() (Element, error) {
	if e.IsZero() {
		return Element{}, ErrDivisionByZero
	}
	r := new(big.Int).ModInverse(e.v, e.m.p)
	if r == nil {
		return Element{}, ErrDivisionByZero
	}
	return Element{v: r, m: e.m}, nil
}

// Div returns e/o mod p. Fails with ErrDivisionByZero when o is zero.
func (e Element) Div(o Element) (Element, error) {
	e.requireSameModulus(o)
	inv, err := o.Inv()
	if err != nil {
		return Element{}, err
	}
	return e.Mul(inv), nil
}

// PowU returns e^n mod p for a non-negative exponent n.
func (e Element) PowU(n uint64) Element {
	r := new(big.Int).Exp(e.v, new(big.Int).SetUint64(n), e.m.p)
	return Element{v: r, m: e.m}
}

// Equal reports value equality (moduli must match).
func (e Element) Equal(o Element) bool {
	e.requireSameModulus(o)
	return e.v.Cmp(o.v) == 0
}

// SignedBigInt maps the canonical representative into (-p/2, p/2]:
// values above p/2 are treated as negative.
func (e Element) SignedBigInt() *big.Int {
	if e.v.Cmp(e.m.half) > 0 {
		return new(big.Int).Sub(e.v, e.m.p)
	}
	return new(big.Int).Set(e.v)
}

// CmpSigned compares two elements on their signed representative, used
// by the Lt/LEq/Gt/GEq relational operators.
func (e Element) CmpSigned(o Element) int {
	e.requireSameModulus(o)
	return e.SignedBigInt().Cmp(o.SignedBigInt())
}
