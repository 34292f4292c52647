package expr

// Subst maps a symbolic Name to its replacement Ref within some Arena.
type Subst map[Name]Ref

// Substitute replaces every free Var/Signal in r that appears as a key
// of sigma with its bound Ref. Structural sharing is preserved:
// hash-consing in Arena.intern means unchanged subtrees keep their Ref.
func Substitute(a *Arena, r Ref, sigma Subst) Ref {
	n := a.node(r)
	switch n.kind {
	case KindConst:
		return r
	case KindVar, KindSignal:
		if repl, ok := sigma[n.name]; ok {
			return repl
		}
		return r
	default:
		children := a.Children(r)
		newChildren := make([]Ref, len(children))
		changed := false
		for i, c := range children {
			nc := Substitute(a, c, sigma)
			newChildren[i] = nc
			if nc != c {
				changed = true
			}
		}
		if !changed {
			return r
		}
		return a.Rebuild(r, newChildren)
	}
}
