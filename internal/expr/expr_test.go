package expr

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

func testArena() *Arena { return NewArena(field.DefaultModulus()) }

func TestSimplifyIdentities(t *testing.T) {
	a := testArena()
	x := a.Var("x")

	cases := []struct {
		name string
		r    Ref
		want Ref
	}{
		{"x+0", a.Add(x, a.ConstInt64(0)), x},
		{"0+x", a.Add(a.ConstInt64(0), x), x},
		{"x*1", a.Mul(x, a.ConstInt64(1)), x},
		{"1*x", a.Mul(a.ConstInt64(1), x), x},
		{"x*0", a.Mul(x, a.ConstInt64(0)), a.ConstInt64(0)},
		{"x-x", a.Sub(x, x), a.ConstInt64(0)},
		{"--x", a.Neg(a.Neg(x)), x},
		{"!!x", a.BoolNot(a.BoolNot(x)), x},
		{"const fold", a.Add(a.ConstInt64(2), a.ConstInt64(3)), a.ConstInt64(5)},
	}
	for _, c := range cases {
		got := Simplify(a, c.r)
		assert.Equal(t, a.String(c.want), a.String(got), c.name)
	}
}

// TestSimplifyCanonicalOrdering: reassociated and commuted sums and
// products simplify to the same Ref, the equivalence EqualsStructural
// relies on.
func TestSimplifyCanonicalOrdering(t *testing.T) {
	a := testArena()
	x := a.Var("x")
	y := a.Var("y")
	z := a.Var("z")

	left := a.Add(a.Add(x, y), z)
	right := a.Add(x, a.Add(z, y))
	assert.Equal(t, Simplify(a, left), Simplify(a, right))

	m1 := a.Mul(a.Mul(x, a.ConstInt64(2)), y)
	m2 := a.Mul(y, a.Mul(x, a.ConstInt64(2)))
	assert.Equal(t, Simplify(a, m1), Simplify(a, m2))
}

func TestSimplifyDivStaysSymbolicOnNonConstOrZero(t *testing.T) {
	a := testArena()
	x := a.Var("x")
	y := a.Var("y")

	div := a.Div(x, y)
	got := Simplify(a, div)
	assert.Equal(t, KindDiv, a.Kind(got))

	divByZero := a.Div(x, a.ConstInt64(0))
	gotZero := Simplify(a, divByZero)
	assert.Equal(t, KindDiv, a.Kind(gotZero), "Div(a,0) must stay symbolic, not fold or panic")

	divByConst := a.Div(a.ConstInt64(10), a.ConstInt64(2))
	gotConst := Simplify(a, divByConst)
	c, ok := a.AsConst(gotConst)
	require.True(t, ok)
	assert.Equal(t, "5", c.String())
}

func TestSubstitute(t *testing.T) {
	a := testArena()
	x := a.Var("x")
	y := a.Var("y")
	expr := a.Add(x, y)

	sigma := Subst{"x": a.ConstInt64(7)}
	sub := Substitute(a, expr, sigma)
	_ = Simplify(a, sub)
	// y unresolved, so the result should still reference y.
	free := FreeSymbols(a, sub)
	require.Len(t, free, 1)
	assert.Equal(t, Name("y"), free[0])
}

func TestFreeSymbols(t *testing.T) {
	a := testArena()
	x := a.Var("x")
	sig := a.Signal("main.out")
	e := a.Add(x, a.Mul(sig, a.ConstInt64(2)))
	free := FreeSymbols(a, e)
	assert.ElementsMatch(t, []Name{"x", "main.out"}, free)
}

func TestEqualsStructuralAcrossArenas(t *testing.T) {
	a1 := testArena()
	a2 := testArena()

	e1 := a1.Add(a1.Var("x"), a1.ConstInt64(0))
	e2 := a2.Var("x")

	assert.True(t, EqualsStructural(a1, e1, a2, e2))

	e3 := a2.Var("y")
	assert.False(t, EqualsStructural(a1, e1, a2, e3))
}

func TestSerializeRoundTrip(t *testing.T) {
	a := testArena()
	e := a.Mul(a.Add(a.Var("x"), a.ConstInt64(1)), a.Signal("main.out"))

	data, err := Serialize(a, e)
	require.NoError(t, err)

	dst := testArena()
	got, err := Deserialize(dst, data)
	require.NoError(t, err)

	assert.True(t, EqualsStructural(a, e, dst, got))
}

// TestSimplifyIdempotent checks simplify(simplify(e)) == simplify(e)
// over random expression trees built from a small grammar: a mix of
// constants, a shared free variable, and the binary arithmetic
// operators.
func TestSimplifyIdempotent(t *testing.T) {
	a := testArena()
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	kinds := []Kind{KindAdd, KindSub, KindMul}

	properties.Property("simplify is idempotent", prop.ForAll(
		func(lv, rv int64, useVarLeft, useVarRight bool, kindIdx int) bool {
			left := a.ConstInt64(lv)
			if useVarLeft {
				left = a.Var("x")
			}
			right := a.ConstInt64(rv)
			if useVarRight {
				right = a.Var("x")
			}
			kind := kinds[kindIdx%len(kinds)]
			var r Ref
			switch kind {
			case KindAdd:
				r = a.Add(left, right)
			case KindSub:
				r = a.Sub(left, right)
			default:
				r = a.Mul(left, right)
			}
			once := Simplify(a, r)
			twice := Simplify(a, once)
			return once == twice
		},
		gen.Int64Range(-1000, 1000),
		gen.Int64Range(-1000, 1000),
		gen.Bool(),
		gen.Bool(),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
