package executor

import (
	"fmt"
	"strconv"

	"github.com/tcct-zkfuzz/zkfuzz/internal/ast"
	"github.com/tcct-zkfuzz/zkfuzz/internal/expr"
	"github.com/tcct-zkfuzz/zkfuzz/internal/field"
	"github.com/tcct-zkfuzz/zkfuzz/internal/zkerr"
)

// frameKind distinguishes an ordinary statement sequence from the
// synthetic "apply signal connections" continuation pushed after a
// Component body finishes.
type frameKind int

const (
	frameStmts frameKind = iota
	frameConnections
)

// frame is one entry of a pending state's continuation stack, replacing
// Go call-stack recursion so that path-forking (If) and deep nesting
// (Component, For) never risk a stack overflow on adversarial/mutated
// input.
type frame struct {
	kind         frameKind
	stmts        []ast.Stmt
	pos          int
	owner        string
	templateName string
	depth        int

	// frameConnections fields only.
	connections []ast.SignalConnection
	calleeOwner string
}

// pending is one in-flight execution path: a SymbolicState paired with
// the continuation stack still left to run.
type pending struct {
	state *SymbolicState
	stack []frame
}

func cloneStack(s []frame) []frame {
	out := make([]frame, len(s))
	copy(out, s)
	return out
}

// EntryParams configures how the main template's parameters are bound
// on entry.
type EntryParams struct {
	// Args supplies concrete values positionally; a parameter beyond
	// len(Args) falls back to a fresh free variable either way.
	Args []field.Element
	// Symbolic forces every parameter to a fresh free variable
	// regardless of Args, modelling --symbolic_template_params.
	Symbolic bool
}

// Result is the outcome of executing a template to completion: every
// finalized (non-forked-further) SymbolicState plus the diagnostics
// accumulated along the way.
type Result struct {
	Finalized   []*SymbolicState
	Diagnostics []Diagnostic
}

// DefaultMaxLoopIterations is the fallback safety cap used when a caller
// passes maxLoopIterations<=0; it matches the CLI's --heuristics_range
// default.
const DefaultMaxLoopIterations = 100

// Execute runs the named template's body to completion, forking at every
// data-dependent branch and returning one finalized SymbolicState per
// explored path. whitelist names templates exempt from analysis: a
// Component instantiating one of them still has its signal connections
// turned into equalities, but its body is never walked.
func Execute(program *ast.Program, mainTemplateName string, params EntryParams, arena *expr.Arena, maxLoopIterations int, whitelist []string) (Result, error) {
	mainTpl, ok := program.Templates[mainTemplateName]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", zkerr.ErrUnknownTemplate, mainTemplateName)
	}
	if maxLoopIterations <= 0 {
		maxLoopIterations = DefaultMaxLoopIterations
	}

	exempt := make(map[string]bool, len(whitelist))
	for _, n := range whitelist {
		exempt[n] = true
	}

	diags := make([]Diagnostic, 0)
	ctx := &lowerCtx{
		program:     program,
		tables:      map[string]*symbolTable{mainTemplateName: buildSymbolTable(mainTpl)},
		fnTables:    map[string]*symbolTable{},
		diagnostics: &diags,
		exempt:      exempt,
	}

	root := newRootState(arena, mainTemplateName)
	for i, p := range mainTpl.Params {
		name := qualify(mainTemplateName, p.Name)
		switch {
		case params.Symbolic:
			root.Values[name] = arena.Var(name)
		case i < len(params.Args):
			root.Values[name] = arena.Const(params.Args[i])
		default:
			root.Values[name] = arena.Var(name)
		}
	}

	queue := []pending{{
		state: root,
		stack: []frame{{kind: frameStmts, stmts: mainTpl.Body, owner: mainTemplateName, templateName: mainTemplateName}},
	}}

	var finalized []*SymbolicState
	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		next, done := ctx.step(p, arena, maxLoopIterations)
		if done {
			finalized = append(finalized, p.state)
			continue
		}
		queue = append(queue, next...)
	}

	return Result{Finalized: finalized, Diagnostics: diags}, nil
}

// step advances one pending path by exactly one statement (or one frame
// housekeeping transition) and returns the successor path(s); an empty
// successor list with done=true means this path has finalized.
func (c *lowerCtx) step(p pending, arena *expr.Arena, maxLoopIterations int) ([]pending, bool) {
	if len(p.stack) == 0 {
		return nil, true
	}
	top := &p.stack[len(p.stack)-1]

	if top.kind == frameConnections {
		c.applyConnections(p.state, top, arena)
		p.stack = p.stack[:len(p.stack)-1]
		return []pending{p}, false
	}

	if top.pos >= len(top.stmts) {
		p.stack = p.stack[:len(p.stack)-1]
		return []pending{p}, false
	}

	stmt := top.stmts[top.pos]
	top.pos++
	owner, templateName, depth := top.owner, top.templateName, top.depth

	switch s := stmt.(type) {
	case *ast.SignalDecl:
		c.materializeSignalDecl(owner, templateName, depth, s, p.state, arena)
		return []pending{p}, false

	case *ast.VarDecl:
		// Plain variables are materialized lazily on first assignment;
		// no declaration-time action needed.
		return []pending{p}, false

	case *ast.Assign:
		c.execAssign(owner, templateName, s, p.state, arena)
		return []pending{p}, false

	case *ast.WitnessHint:
		c.execWitnessHint(owner, templateName, s, p.state, arena)
		return []pending{p}, false

	case *ast.EqualityConstraint:
		c.execEqualityConstraint(owner, templateName, s, p.state, arena)
		return []pending{p}, false

	case *ast.Component:
		c.execComponent(owner, templateName, depth, s, &p, arena)
		return []pending{p}, false

	case *ast.If:
		return c.execIf(owner, templateName, depth, s, p, arena)

	case *ast.For:
		c.execFor(owner, templateName, depth, s, &p, arena, maxLoopIterations)
		return []pending{p}, false

	case *ast.ExprStmt:
		r := c.lowerExpr(owner, templateName, s.Value, p.state.Values, arena)
		r = expr.Simplify(arena, expr.Substitute(arena, r, p.state.AsSubst()))
		c.checkDivZeroTaint(p.state, r, arena)
		return []pending{p}, false

	case *ast.Return:
		// A bare Return inside template execution has no receiver;
		// templates don't yield values, only Functions do (those are
		// inlined separately by lowerCall). Treat as a no-op.
		return []pending{p}, false

	default:
		c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "unsupported statement node"})
		return []pending{p}, false
	}
}

func (c *lowerCtx) execAssign(owner, templateName string, s *ast.Assign, state *SymbolicState, arena *expr.Arena) {
	name, ok := c.qualifiedNameOf(owner, templateName, s.Target, state.Values, arena)
	if !ok {
		c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "unsupported assignment target"})
		return
	}
	if c.isSignalExpr(templateName, s.Target) {
		if _, already := state.Values[name]; already {
			c.diag(Diagnostic{Kind: DiagReassignedSignal, Owner: owner, Message: "re-assignment to signal " + string(name)})
		}
	}
	r := c.lowerExpr(owner, templateName, s.Rhs, state.Values, arena)
	val := expr.Simplify(arena, expr.Substitute(arena, r, state.AsSubst()))
	state.Values[name] = val
	c.checkDivZeroTaint(state, val, arena)
}

// execWitnessHint implements `<--`: updates the value map but adds only a
// trace constraint, the source of under-constrained bugs when no matching
// side constraint exists.
func (c *lowerCtx) execWitnessHint(owner, templateName string, s *ast.WitnessHint, state *SymbolicState, arena *expr.Arena) {
	name, ok := c.qualifiedNameOf(owner, templateName, s.Target, state.Values, arena)
	if !ok {
		c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "unsupported witness-hint target"})
		return
	}
	r := c.lowerExpr(owner, templateName, s.Rhs, state.Values, arena)
	val := expr.Simplify(arena, expr.Substitute(arena, r, state.AsSubst()))
	state.Values[name] = val

	lhs := c.leafRef(templateName, s.Target, name, arena)
	eq := expr.Simplify(arena, arena.Eq(lhs, val))
	state.addTrace(eq)
	c.checkDivZeroTaint(state, val, arena)
}

// execEqualityConstraint implements both forms of the `<==`/`===`
// operator. The `<==` form updates the value map and emits a constraint
// into both the trace and side sets; the `===` form emits a
// side-and-trace equality between two already-defined expressions
// without updating any binding.
func (c *lowerCtx) execEqualityConstraint(owner, templateName string, s *ast.EqualityConstraint, state *SymbolicState, arena *expr.Arena) {
	if s.Target == nil {
		l := c.lowerExpr(owner, templateName, s.Lhs, state.Values, arena)
		l = expr.Simplify(arena, expr.Substitute(arena, l, state.AsSubst()))
		r := c.lowerExpr(owner, templateName, s.Rhs, state.Values, arena)
		r = expr.Simplify(arena, expr.Substitute(arena, r, state.AsSubst()))
		eq := expr.Simplify(arena, arena.Eq(l, r))
		state.addBoth(eq)
		c.checkDivZeroTaint(state, l, arena)
		c.checkDivZeroTaint(state, r, arena)
		return
	}

	name, ok := c.qualifiedNameOf(owner, templateName, s.Target, state.Values, arena)
	r := c.lowerExpr(owner, templateName, s.Rhs, state.Values, arena)
	val := expr.Simplify(arena, expr.Substitute(arena, r, state.AsSubst()))
	if !ok {
		// A non-unique/unresolvable `<==` target does not propagate into
		// the value map; it still contributes the raw equality so the
		// constraint sets stay complete, but future reads of the target
		// name are unaffected.
		l := c.lowerExpr(owner, templateName, s.Target, state.Values, arena)
		l = expr.Simplify(arena, expr.Substitute(arena, l, state.AsSubst()))
		eq := expr.Simplify(arena, arena.Eq(l, val))
		state.addBoth(eq)
		c.diag(Diagnostic{Kind: DiagNonUniqueHintTarget, Owner: owner, Message: "<== target does not resolve to a unique symbol; constraint recorded without value propagation"})
		c.checkDivZeroTaint(state, val, arena)
		return
	}

	state.Values[name] = val
	lhs := c.leafRef(templateName, s.Target, name, arena)
	eq := expr.Simplify(arena, arena.Eq(lhs, val))
	state.addBoth(eq)
	c.checkDivZeroTaint(state, val, arena)
}

// leafRef builds the leaf node (Signal or Var) matching target's
// classification, for use on the left side of a freshly emitted
// equality where the caller already knows the resolved Name.
func (c *lowerCtx) leafRef(templateName string, target ast.Expr, name expr.Name, arena *expr.Arena) expr.Ref {
	if c.isSignalExpr(templateName, target) {
		return arena.Signal(name)
	}
	return arena.Var(name)
}

// execComponent instantiates a callee template: parameters are bound by
// position, then the callee body frame is pushed atop a synthetic
// connections frame so the body executes to completion before its
// signal bindings are turned into equalities.
func (c *lowerCtx) execComponent(owner, templateName string, depth int, s *ast.Component, p *pending, arena *expr.Arena) {
	calleeTpl, ok := c.program.Templates[s.Template]
	if !ok {
		c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "unknown template " + s.Template})
		return
	}
	if _, ok := c.tables[s.Template]; !ok {
		c.tables[s.Template] = buildSymbolTable(calleeTpl)
	}

	calleeOwner := owner + "." + s.Name
	for i, prm := range calleeTpl.Params {
		var argRef expr.Ref
		if i < len(s.Params) {
			r := c.lowerExpr(owner, templateName, s.Params[i], p.state.Values, arena)
			argRef = expr.Simplify(arena, expr.Substitute(arena, r, p.state.AsSubst()))
		} else {
			argRef = arena.ConstInt64(0)
		}
		p.state.Values[qualify(calleeOwner, prm.Name)] = argRef
	}

	p.stack = append(p.stack, frame{
		kind:         frameConnections,
		connections:  s.Connections,
		owner:        owner,
		templateName: templateName,
		calleeOwner:  calleeOwner,
		depth:        depth,
	})
	if c.exempt[s.Template] {
		// Whitelisted: its signals surface as fresh opaque leaves via
		// applyConnections' fallback, but the body itself is never
		// walked or added to the constraint sets.
		return
	}
	p.stack = append(p.stack, frame{
		kind:         frameStmts,
		stmts:        calleeTpl.Body,
		owner:        calleeOwner,
		templateName: s.Template,
		depth:        depth + 1,
	})
}

// applyConnections turns each caller/callee signal binding collected on a
// Component into a side-and-trace equality between the callee signal's
// current value (a fresh Signal leaf if it was never bound) and the
// caller expression. Unlike `<==`, it does not update the value map.
func (c *lowerCtx) applyConnections(state *SymbolicState, f *frame, arena *expr.Arena) {
	for _, conn := range f.connections {
		lhsName := qualify(f.calleeOwner, conn.CalleeSignal)
		lhs, ok := state.Values[lhsName]
		if !ok {
			lhs = arena.Signal(lhsName)
		}
		rhs := c.lowerExpr(f.owner, f.templateName, conn.CallerExpr, state.Values, arena)
		rhs = expr.Simplify(arena, expr.Substitute(arena, rhs, state.AsSubst()))
		eq := expr.Simplify(arena, arena.Eq(lhs, rhs))
		state.addBoth(eq)
		c.checkDivZeroTaint(state, rhs, arena)
	}
}

// execIf resolves a statically-known condition in place; a symbolic
// condition instead forks the path into two, each recording which branch
// of the condition it took as a trace constraint.
func (c *lowerCtx) execIf(owner, templateName string, depth int, s *ast.If, p pending, arena *expr.Arena) ([]pending, bool) {
	cond := c.lowerExpr(owner, templateName, s.Cond, p.state.Values, arena)
	cond = expr.Simplify(arena, expr.Substitute(arena, cond, p.state.AsSubst()))

	if cv, ok := arena.AsConst(cond); ok {
		branch := s.Else
		if !cv.IsZero() {
			branch = s.Then
		}
		p.stack = append(p.stack, frame{kind: frameStmts, stmts: branch, owner: owner, templateName: templateName, depth: depth})
		return []pending{p}, false
	}

	thenState := p.state.Clone()
	thenState.addTrace(expr.Simplify(arena, arena.Eq(cond, arena.ConstInt64(1))))
	thenStack := cloneStack(p.stack)
	thenStack = append(thenStack, frame{kind: frameStmts, stmts: s.Then, owner: owner, templateName: templateName, depth: depth})

	elseState := p.state.Clone()
	elseState.addTrace(expr.Simplify(arena, arena.Eq(cond, arena.ConstInt64(0))))
	elseStack := cloneStack(p.stack)
	elseStack = append(elseStack, frame{kind: frameStmts, stmts: s.Else, owner: owner, templateName: templateName, depth: depth})

	return []pending{
		{state: thenState, stack: thenStack},
		{state: elseState, stack: elseStack},
	}, false
}

// checkDivZeroTaint marks a state unsatisfiable once a Div(_, 0) node
// reaches any value it produces. Simplify leaves such a node symbolic
// rather than folding or panicking, so this is the only place the taint
// is observed.
func (c *lowerCtx) checkDivZeroTaint(state *SymbolicState, r expr.Ref, arena *expr.Arena) {
	if containsDivByZero(arena, r) {
		state.Unsatisfiable = true
	}
}

func containsDivByZero(arena *expr.Arena, r expr.Ref) bool {
	if arena.Kind(r) == expr.KindDiv {
		children := arena.Children(r)
		if len(children) == 2 {
			if cv, ok := arena.AsConst(children[1]); ok && cv.IsZero() {
				return true
			}
		}
	}
	for _, ch := range arena.Children(r) {
		if containsDivByZero(arena, ch) {
			return true
		}
	}
	return false
}

func (c *lowerCtx) materializeSignalDecl(owner, templateName string, depth int, s *ast.SignalDecl, state *SymbolicState, arena *expr.Arena) {
	isMainInput := depth == 0 && s.Kind == ast.SignalIn
	base := qualify(owner, s.Name)
	if len(s.ArrayDims) == 0 {
		if _, exists := state.Values[base]; !exists {
			state.Values[base] = arena.Signal(base)
			if isMainInput {
				state.Inputs = append(state.Inputs, base)
			}
		}
		return
	}

	dims := make([]int, 0, len(s.ArrayDims))
	for _, d := range s.ArrayDims {
		v, ok := c.tryConst(owner, templateName, d, state.Values, arena)
		if !ok {
			c.diag(Diagnostic{Kind: DiagUnsupportedNode, Owner: owner, Message: "array signal " + s.Name + " has a non-static dimension"})
			return
		}
		dims = append(dims, int(v.BigInt().Int64()))
	}
	for _, suffix := range cartesianSuffixes(dims) {
		name := expr.Name(string(base) + suffix)
		if _, exists := state.Values[name]; !exists {
			state.Values[name] = arena.Signal(name)
			if isMainInput {
				state.Inputs = append(state.Inputs, name)
			}
		}
	}
}

func cartesianSuffixes(dims []int) []string {
	if len(dims) == 0 {
		return []string{""}
	}
	rest := cartesianSuffixes(dims[1:])
	out := make([]string, 0, dims[0]*len(rest))
	for i := 0; i < dims[0]; i++ {
		prefix := "[" + strconv.Itoa(i) + "]"
		for _, r := range rest {
			out = append(out, prefix+r)
		}
	}
	return out
}
