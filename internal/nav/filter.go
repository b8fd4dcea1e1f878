// Package nav derives what the navigation chrome shows for one actor at one
// location: the visible items, which of them is active, and the breadcrumb
// trail. Every function here is pure and never mutates the input tree.
package nav

import (
	"github.com/starford/navgate/internal/access"
	"github.com/starford/navgate/internal/menu"
)

// Allowed reports whether cs may see an entry guarded by required. A nil
// cs fails closed.
func Allowed(cs access.CapabilitySet, required []string) bool {
	cs = access.Resolve(cs)
	return cs.IsSuperuser() || cs.HasPermission(required)
}

// VisibleTopLevel returns the top-level nodes cs may see, in tree order.
// A nil cs fails closed: only public nodes survive.
func VisibleTopLevel(tree menu.Tree, cs access.CapabilitySet) []menu.Node {
	cs = access.Resolve(cs)
	if cs.IsSuperuser() {
		return append([]menu.Node(nil), tree...)
	}
	out := make([]menu.Node, 0, len(tree))
	for _, n := range tree {
		if cs.HasPermission(n.RequiredPermissions) {
			out = append(out, n)
		}
	}
	return out
}

// VisibleChildren filters one node's children the same way.
func VisibleChildren(subs []menu.SubNode, cs access.CapabilitySet) []menu.SubNode {
	cs = access.Resolve(cs)
	if cs.IsSuperuser() {
		return append([]menu.SubNode(nil), subs...)
	}
	out := make([]menu.SubNode, 0, len(subs))
	for _, s := range subs {
		if cs.HasPermission(s.RequiredPermissions) {
			out = append(out, s)
		}
	}
	return out
}

// Expandable reports whether n shows a disclosure affordance for cs.
func Expandable(n menu.Node, cs access.CapabilitySet) bool {
	cs = access.Resolve(cs)
	if cs.IsSuperuser() {
		return len(n.SubMenus) > 0
	}
	for _, s := range n.SubMenus {
		if cs.HasPermission(s.RequiredPermissions) {
			return true
		}
	}
	return false
}

// ExpandableFunc adapts Expandable to the predicate the disclosure
// controller expects. Only top-level nodes visible to cs can expand.
func ExpandableFunc(tree menu.Tree, cs access.CapabilitySet) func(menuID int) bool {
	visible := VisibleTopLevel(tree, cs)
	return func(menuID int) bool {
		for _, n := range visible {
			if n.ID == menuID {
				return Expandable(n, cs)
			}
		}
		return false
	}
}
