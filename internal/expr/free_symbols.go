package expr

import "golang.org/x/exp/slices"

// FreeSymbols returns the exact set of Var/Signal names referenced by r,
// sorted so callers iterate deterministically. The mutation engine uses
// it to pick recombination candidates.
func FreeSymbols(a *Arena, r Ref) []Name {
	seen := make(map[Name]struct{})
	collectFreeSymbols(a, r, seen)
	out := make([]Name, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.SortFunc(out, func(x, y Name) int {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	})
	return out
}

func collectFreeSymbols(a *Arena, r Ref, seen map[Name]struct{}) {
	if name, ok := a.AsLeafName(r); ok {
		seen[name] = struct{}{}
		return
	}
	for _, c := range a.Children(r) {
		collectFreeSymbols(a, c, seen)
	}
}
