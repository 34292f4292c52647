// Package frontend defines the boundary between the source DSL and the
// core analyzer. Lexing, parsing and type-checking of the circuit
// source live outside this module; this package only holds the contract
// a front-end implements.
package frontend

import (
	"fmt"

	"github.com/tcct-zkfuzz/zkfuzz/internal/ast"
	"github.com/tcct-zkfuzz/zkfuzz/internal/zkerr"
)

// Parser turns circuit source bytes into a typed Program. A parse/type
// error is fatal and propagated unchanged.
type Parser interface {
	Parse(path string, src []byte) (*ast.Program, error)
}

// Unconfigured is the zero-value Parser: every real deployment of this
// tool supplies its own front-end for the DSL it targets, so Parse just
// reports that none was wired rather than guessing at a grammar.
type Unconfigured struct{}

func (Unconfigured) Parse(path string, src []byte) (*ast.Program, error) {
	return nil, fmt.Errorf("%w: no front-end registered for %s", zkerr.ErrParse, path)
}
