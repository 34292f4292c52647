package executor

import (
	"math/big"

	"github.com/tcct-zkfuzz/zkfuzz/internal/ast"
	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
)

// symbolTable classifies a template's locally-declared names as signal
// or plain variable, so lowering can decide between expr.Signal and
// expr.Var for a bare ast.Ident. Classification is purely lexical, a
// property of the template definition rather than of any particular
// instance path, so one table is built per template and reused by every
// instance/fork.
type symbolTable struct {
	isSignal map[string]bool
}

func buildSymbolTable(tpl *ast.Template) *symbolTable {
	st := &symbolTable{isSignal: make(map[string]bool)}
	for _, p := range tpl.Params {
		st.isSignal[p.Name] = false
	}
	scanStmts(tpl.Body, st)
	return st
}

func buildFunctionSymbolTable(fn *ast.Function) *symbolTable {
	st := &symbolTable{isSignal: make(map[string]bool)}
	for _, p := range fn.Params {
		st.isSignal[p.Name] = false
	}
	scanStmts(fn.Body, st)
	return st
}

func scanStmts(stmts []ast.Stmt, st *symbolTable) {
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.SignalDecl:
			st.isSignal[n.Name] = true
		case *ast.VarDecl:
			st.isSignal[n.Name] = false
		case *ast.If:
			scanStmts(n.Then, st)
			scanStmts(n.Else, st)
		case *ast.For:
			scanStmts(n.Body, st)
		}
	}
}

func (st *symbolTable) classify(localName string) bool {
	return st.isSignal[localName] // defaults to false (variable) for params/unknowns
}

// qualify turns a local name into this owner's fully-qualified dotted
// symbolic name.
func qualify(owner, local string) expr.Name {
	return expr.Name(owner + "." + local)
}

// lowerCtx threads everything lowering needs without relying on any
// package-level/global state.
type lowerCtx struct {
	program     *ast.Program
	tables      map[string]*symbolTable // per template name
	fnTables    map[string]*symbolTable // per function name
	diagnostics *[]Diagnostic
	// exempt lists template names --path_to_whitelist marks out of
	// scope; their Component bodies are never walked.
	exempt map[string]bool
}

func (c *lowerCtx) diag(d Diagnostic) { *c.diagnostics = append(*c.diagnostics, d) }

// qualifiedNameOf resolves an assignment target (Ident or ArrayIndex with
// a statically-known index) to its fully-qualified Name. The target's
// own name is not looked up in the value map; an array index is folded
// after substituting values into it. Returns ok=false for unsupported
// target shapes (logged as an analyzer limitation by the caller).
func (c *lowerCtx) qualifiedNameOf(owner, templateName string, target ast.Expr, values map[expr.Name]expr.Ref, arena *expr.Arena) (expr.Name, bool) {
	switch t := target.(type) {
	case *ast.Ident:
		return qualify(owner, t.Name), true
	case *ast.ArrayIndex:
		base, ok := c.qualifiedNameOf(owner, templateName, t.Target, values, arena)
		if !ok {
			return "", false
		}
		idxRef := c.lowerExpr(owner, templateName, t.Index, values, arena)
		idxRef = expr.Simplify(arena, expr.Substitute(arena, idxRef, expr.Subst(values)))
		idxConst, ok := arena.AsConst(idxRef)
		if !ok {
			c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "array index is not statically known: " + string(base)})
			return "", false
		}
		return expr.Name(string(base) + "[" + idxConst.String() + "]"), true
	default:
		return "", false
	}
}

// lowerExpr converts a front-end Expr into the expr IR, resolving bare
// identifiers against this owner/template's symbol classification. It
// does not itself substitute against the value map; callers compose
// lowerExpr with expr.Substitute + expr.Simplify.
func (c *lowerCtx) lowerExpr(owner, templateName string, e ast.Expr, values map[expr.Name]expr.Ref, arena *expr.Arena) expr.Ref {
	switch n := e.(type) {
	case *ast.IntLiteral:
		v, ok := new(big.Int).SetString(n.Value, 10)
		if !ok {
			c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "malformed integer literal " + n.Value})
			return arena.ConstInt64(0)
		}
		return arena.Const(field.New(v, arena.Modulus()))
	case *ast.Ident:
		qualified := qualify(owner, n.Name)
		if st := c.tables[templateName]; st != nil && st.classify(n.Name) {
			return arena.Signal(qualified)
		}
		return arena.Var(qualified)
	case *ast.ArrayIndex:
		name, ok := c.qualifiedNameOf(owner, templateName, n, values, arena)
		if !ok {
			return arena.Var(qualify(owner, "$unsupported_index"))
		}
		// Array elements inherit the base's signal/variable
		// classification; re-derive it from the base Ident.
		if c.isSignalExpr(templateName, n) {
			return arena.Signal(name)
		}
		return arena.Var(name)
	case *ast.BinExpr:
		l := c.lowerExpr(owner, templateName, n.Left, values, arena)
		r := c.lowerExpr(owner, templateName, n.Right, values, arena)
		return applyBinOp(arena, n.Op, l, r)
	case *ast.UnExpr:
		operand := c.lowerExpr(owner, templateName, n.Operand, values, arena)
		if n.Op == ast.OpNeg {
			return arena.Neg(operand)
		}
		return arena.BoolNot(operand)
	case *ast.CondExpr:
		cond := c.lowerExpr(owner, templateName, n.Cond, values, arena)
		then := c.lowerExpr(owner, templateName, n.Then, values, arena)
		els := c.lowerExpr(owner, templateName, n.Else, values, arena)
		return arena.Cond(cond, then, els)
	case *ast.Call:
		return c.lowerCall(owner, templateName, n, values, arena)
	default:
		c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "unsupported expression node"})
		return arena.ConstInt64(0)
	}
}

// isSignalExpr reports whether an assignment-target expression ultimately
// resolves (through zero or more ArrayIndex layers) to a signal-classified
// base identifier.
func (c *lowerCtx) isSignalExpr(templateName string, e ast.Expr) bool {
	switch t := e.(type) {
	case *ast.Ident:
		if st := c.tables[templateName]; st != nil {
			return st.classify(t.Name)
		}
		return false
	case *ast.ArrayIndex:
		return c.isSignalExpr(templateName, t.Target)
	default:
		return false
	}
}

func applyBinOp(arena *expr.Arena, op ast.BinOp, l, r expr.Ref) expr.Ref {
	switch op {
	case ast.OpAdd:
		return arena.Add(l, r)
	case ast.OpSub:
		return arena.Sub(l, r)
	case ast.OpMul:
		return arena.Mul(l, r)
	case ast.OpDiv:
		return arena.Div(l, r)
	case ast.OpPow:
		return arena.Pow(l, r)
	case ast.OpEq:
		return arena.Eq(l, r)
	case ast.OpNEq:
		return arena.NEq(l, r)
	case ast.OpLt:
		return arena.Lt(l, r)
	case ast.OpLEq:
		return arena.LEq(l, r)
	case ast.OpGt:
		return arena.Gt(l, r)
	case ast.OpGEq:
		return arena.GEq(l, r)
	case ast.OpBoolAnd:
		return arena.BoolAnd(l, r)
	case ast.OpBoolOr:
		return arena.BoolOr(l, r)
	default:
		return arena.Add(l, r)
	}
}

// lowerCall inlines a pure Function call: arguments are substituted and
// the body evaluated symbolically, the return value replacing the call
// site. Only straight-line bodies (Assign* Return) are supported; a
// branching function body is an analyzer limitation, logged and replaced
// by a fresh opaque variable so the caller's expression stays
// well-formed.
func (c *lowerCtx) lowerCall(owner, templateName string, call *ast.Call, values map[expr.Name]expr.Ref, arena *expr.Arena) expr.Ref {
	fn, ok := c.program.Functions[call.Fn]
	if !ok {
		c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "unknown function " + call.Fn})
		return arena.ConstInt64(0)
	}
	if _, ok := c.fnTables[call.Fn]; !ok {
		c.fnTables[call.Fn] = buildFunctionSymbolTable(fn)
	}

	local := make(map[expr.Name]expr.Ref, len(fn.Params))
	callOwner := owner + ".$" + call.Fn
	for i, p := range fn.Params {
		var argRef expr.Ref
		if i < len(call.Args) {
			argRef = c.lowerExpr(owner, templateName, call.Args[i], values, arena)
			argRef = expr.Simplify(arena, expr.Substitute(arena, argRef, expr.Subst(values)))
		} else {
			argRef = arena.ConstInt64(0)
		}
		local[qualify(callOwner, p.Name)] = argRef
	}

	var result expr.Ref
	found := false
	straightLine := true
	for _, s := range fn.Body {
		switch st := s.(type) {
		case *ast.Assign:
			name, ok := c.qualifiedNameOf(callOwner, call.Fn, st.Target, local, arena)
			if !ok {
				continue
			}
			r := c.lowerExpr(callOwner, call.Fn, st.Rhs, local, arena)
			local[name] = expr.Simplify(arena, expr.Substitute(arena, r, expr.Subst(local)))
		case *ast.Return:
			r := c.lowerExpr(callOwner, call.Fn, st.Value, local, arena)
			result = expr.Simplify(arena, expr.Substitute(arena, r, expr.Subst(local)))
			found = true
		default:
			straightLine = false
			c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "unsupported statement in function body of " + call.Fn})
		}
	}
	if !found || !straightLine {
		c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "function " + call.Fn + " has no straight-line Return; treated as opaque"})
		return arena.Var(qualify(callOwner, "$result"))
	}
	return result
}

// tryConst lowers+substitutes+simplifies e against values and reports
// whether it folds to a field constant, used by loop-bound detection.
func (c *lowerCtx) tryConst(owner, templateName string, e ast.Expr, values map[expr.Name]expr.Ref, arena *expr.Arena) (field.Element, bool) {
	r := c.lowerExpr(owner, templateName, e, values, arena)
	r = expr.Simplify(arena, expr.Substitute(arena, r, expr.Subst(values)))
	return arena.AsConst(r)
}
