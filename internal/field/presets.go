package field

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
)

// PresetName enumerates the -p flag's accepted values.
type PresetName string

const (
	BN128      PresetName = "bn128"
	BLS12381   PresetName = "bls12381"
	Goldilocks PresetName = "goldilocks"
	Grumpkin   PresetName = "grumpkin"
	Pallas     PresetName = "pallas"
	Vesta      PresetName = "vesta"
	Secq256r1  PresetName = "secq256r1"
)

// goldilocksP, grumpkinP, pallasP, vestaP and secq256r1P are scalar-field
// primes for curve families gnark-crypto does not ship (it covers BN254,
// BLS12-381/377, BW6-761 and the STARK curve, not the Halo2/Plonky2
// family). Hardcoded here rather than derived, since no dependency in
// the retrieval pack defines them.
var (
	goldilocksP, _ = new(big.Int).SetString("18446744069414584321", 10)
	grumpkinP, _   = new(big.Int).SetString("21888242871839275222246405745257275088696311157297823662689037894645226208583", 10)
	pallasP, _     = new(big.Int).SetString("28948022309329048855892746252171976963363056481941560715954676764349967630337", 10)
	vestaP, _      = new(big.Int).SetString("28948022309329048855892746252171976963363056481941647379679742748393362948097", 10)
	secq256r1P, _  = new(big.Int).SetString("115792089210356248762697446949407573530086143415290314195533631308867097853951", 10)
)

// Preset resolves one of the -p curve names to a Modulus. bn128 and
// bls12381 are sourced from gnark-crypto's ecc package rather than
// re-typed as literals.
func Preset(name PresetName) (*Modulus, error) {
	switch name {
	case BN128:
		return NewModulus(ecc.BN254.ScalarField(), string(BN128)), nil
	case BLS12381:
		return NewModulus(ecc.BLS12_381.ScalarField(), string(BLS12381)), nil
	case Goldilocks:
		return NewModulus(goldilocksP, string(Goldilocks)), nil
	case Grumpkin:
		return NewModulus(grumpkinP, string(Grumpkin)), nil
	case Pallas:
		return NewModulus(pallasP, string(Pallas)), nil
	case Vesta:
		return NewModulus(vestaP, string(Vesta)), nil
	case Secq256r1:
		return NewModulus(secq256r1P, string(Secq256r1)), nil
	default:
		return nil, fmt.Errorf("field: unknown preset %q", name)
	}
}

// DefaultModulus is the BN254 scalar field, used when neither -p nor
// --debug_prime is given.
func DefaultModulus() *Modulus {
	m, _ := Preset(BN128)
	return m
}

// ModulusFromDecimal builds a custom Modulus from a decimal prime
// literal, for --debug_prime.
func ModulusFromDecimal(s string) (*Modulus, error) {
	p, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("field: invalid decimal prime %q", s)
	}
	return NewModulus(p, ""), nil
}
