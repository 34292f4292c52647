package field

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicArithmetic(t *testing.T) {
	m := DefaultModulus()
	a := NewInt64(5, m)
	b := NewInt64(3, m)

	assert.Equal(t, "8", a.Add(b).String())
	assert.Equal(t, "2", a.Sub(b).String())
	assert.Equal(t, "15", a.Mul(b).String())

	inv, err := b.Inv()
	require.NoError(t, err)
	assert.True(t, b.Mul(inv).Equal(One(m)))

	_, err = Zero(m).Inv()
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestCmpSigned(t *testing.T) {
	m := DefaultModulus()
	minusOne := NewInt64(-1, m)
	one := NewInt64(1, m)
	// p-1 must compare as negative against 1.
	assert.Equal(t, -1, minusOne.CmpSigned(one))
	assert.Equal(t, 1, one.CmpSigned(minusOne))
}

func TestToBytesRoundTrip(t *testing.T) {
	m := DefaultModulus()
	e := NewInt64(123456789, m)
	data := e.ToBytes()
	back, err := FromBytes(data, m)
	require.NoError(t, err)
	assert.True(t, e.Equal(back))
}

// TestFieldRingAxioms checks add(a, neg(a)) = 0 and mul(a, inv(a)) = 1
// when a != 0, for randomly sampled elements.
func TestFieldRingAxioms(t *testing.T) {
	m := DefaultModulus()
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	elementGen := gen.Int64Range(-1_000_000, 1_000_000).Map(func(v int64) Element {
		return NewInt64(v, m)
	})

	properties.Property("add(a, neg(a)) == 0", prop.ForAll(
		func(a Element) bool {
			return a.Add(a.Neg()).IsZero()
		},
		elementGen,
	))

	properties.Property("mul(a, inv(a)) == 1 when a != 0", prop.ForAll(
		func(a Element) bool {
			if a.IsZero() {
				return true
			}
			inv, err := a.Inv()
			if err != nil {
				return false
			}
			return a.Mul(inv).Equal(One(m))
		},
		elementGen,
	))

	properties.TestingRun(t)
}

func TestPresets(t *testing.T) {
	for _, name := range []PresetName{BN128, BLS12381, Goldilocks, Grumpkin, Pallas, Vesta, Secq256r1} {
		mod, err := Preset(name)
		require.NoError(t, err, name)
		require.True(t, mod.P().Sign() > 0)
	}
	_, err := Preset("nonsense")
	require.Error(t, err)
}

func TestNewModulusCustomPrime(t *testing.T) {
	p := big.NewInt(101)
	m := NewModulus(p, "")
	a := NewInt64(99, m)
	b := NewInt64(5, m)
	assert.Equal(t, "3", a.Add(b).String()) // 104 mod 101 = 3
}
