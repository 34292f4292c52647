package executor

import (
	"github.com/tcct-zkfuzz/zkfuzz/internal/ast"
	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

// execFor statically unrolls a For loop. A loop whose bound cannot be
// determined by constant-folding the Init/Cond/Step triple is logged as
// a symbolic-loop-bound limitation and treated as zero iterations,
// matching the executor's never-panic-on-data policy.
func (c *lowerCtx) execFor(owner, templateName string, depth int, s *ast.For, p *pending, arena *expr.Arena, maxIterations int) {
	loopVar, values, ok := c.detectForBound(owner, templateName, s, p.state.Values, arena, maxIterations)
	if !ok {
		c.diag(Diagnostic{Kind: DiagSymbolicLoopBound, Owner: owner, Message: "for-loop bound is not statically determined; body skipped"})
		return
	}
	if len(values) == 0 {
		return
	}

	flattened := make([]ast.Stmt, 0, len(values)*(len(s.Body)+1))
	for _, v := range values {
		flattened = append(flattened, &ast.Assign{
			Target: &ast.Ident{Name: loopVar},
			Rhs:    &ast.IntLiteral{Value: v.SignedBigInt().String()},
		})
		flattened = append(flattened, s.Body...)
	}

	p.stack = append(p.stack, frame{kind: frameStmts, stmts: flattened, owner: owner, templateName: templateName, depth: depth})
}

// detectForBound runs Init/Cond/Step through a scratch copy of the
// current value map, folding each step to a constant. It returns the
// concrete sequence of loop-variable values the unrolled body should
// bind, one per iteration, capped at maxIterations (--heuristics_range
// doubling as the loop-unrolling safety bound).
func (c *lowerCtx) detectForBound(owner, templateName string, f *ast.For, baseValues map[expr.Name]expr.Ref, arena *expr.Arena, maxIterations int) (string, []field.Element, bool) {
	initAssign, ok := f.Init.(*ast.Assign)
	if !ok {
		return "", nil, false
	}
	ident, ok := initAssign.Target.(*ast.Ident)
	if !ok {
		return "", nil, false
	}
	loopVar := ident.Name

	stepAssign, ok := f.Step.(*ast.Assign)
	if !ok {
		return "", nil, false
	}
	stepIdent, ok := stepAssign.Target.(*ast.Ident)
	if !ok || stepIdent.Name != loopVar {
		return "", nil, false
	}

	scratch := make(map[expr.Name]expr.Ref, len(baseValues)+1)
	for k, v := range baseValues {
		scratch[k] = v
	}
	qualifiedVar := qualify(owner, loopVar)

	startRef := c.lowerExpr(owner, templateName, initAssign.Rhs, scratch, arena)
	startRef = expr.Simplify(arena, expr.Substitute(arena, startRef, expr.Subst(scratch)))
	if _, ok := arena.AsConst(startRef); !ok {
		return "", nil, false
	}
	scratch[qualifiedVar] = startRef

	var out []field.Element
	for i := 0; i < maxIterations; i++ {
		condRef := c.lowerExpr(owner, templateName, f.Cond, scratch, arena)
		condRef = expr.Simplify(arena, expr.Substitute(arena, condRef, expr.Subst(scratch)))
		condConst, ok := arena.AsConst(condRef)
		if !ok {
			return "", nil, false
		}
		if condConst.IsZero() {
			return loopVar, out, true
		}

		cur, ok := arena.AsConst(scratch[qualifiedVar])
		if !ok {
			return "", nil, false
		}
		out = append(out, cur)

		stepRef := c.lowerExpr(owner, templateName, stepAssign.Rhs, scratch, arena)
		stepRef = expr.Simplify(arena, expr.Substitute(arena, stepRef, expr.Subst(scratch)))
		stepConst, ok := arena.AsConst(stepRef)
		if !ok {
			return "", nil, false
		}
		scratch[qualifiedVar] = arena.Const(stepConst)
	}

	c.diag(Diagnostic{Kind: DiagLoopTruncated, Owner: owner, Message: "for-loop truncated at the iteration safety bound"})
	return loopVar, out, true
}
