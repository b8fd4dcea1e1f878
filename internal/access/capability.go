// Package access models the capabilities granted to the current actor.
//
// The navigation core only consumes the CapabilitySet contract. Grants is the
// concrete set backed by the policy index; None is what callers fall back to
// whenever no set is available.
package access

import "sort"

// CapabilitySet answers permission questions for one actor.
type CapabilitySet interface {
	// HasPermission reports whether the actor holds at least one of ids.
	// An empty list must report true: a node without requirements is public.
	HasPermission(ids []string) bool
	// IsSuperuser short-circuits all filtering.
	IsSuperuser() bool
}

// Grants is an immutable set of granted capability ids.
type Grants struct {
	actor     string
	superuser bool
	ids       map[string]struct{}
}

// NewGrants builds a Grants value for actor.
func NewGrants(actor string, superuser bool, ids ...string) Grants {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return Grants{actor: actor, superuser: superuser, ids: set}
}

// Superuser returns a set that sees everything.
func Superuser(actor string) Grants {
	return NewGrants(actor, true)
}

// None returns the fail-closed set: nothing granted, not a superuser.
func None() Grants {
	return Grants{}
}

// Resolve returns cs, or None when cs is nil.
func Resolve(cs CapabilitySet) CapabilitySet {
	if cs == nil {
		return None()
	}
	return cs
}

// HasPermission implements CapabilitySet with OR semantics.
func (g Grants) HasPermission(ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if _, ok := g.ids[id]; ok {
			return true
		}
	}
	return false
}

// IsSuperuser implements CapabilitySet.
func (g Grants) IsSuperuser() bool { return g.superuser }

// Actor returns the actor the grants belong to ("" for None).
func (g Grants) Actor() string { return g.actor }

// Permissions returns the granted ids in sorted order.
func (g Grants) Permissions() []string {
	out := make([]string, 0, len(g.ids))
	for id := range g.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
