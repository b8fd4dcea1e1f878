package access

import (
	"reflect"
	"testing"
)

func TestGrants_EmptyRequirementIsPublic(t *testing.T) {
	for name, cs := range map[string]CapabilitySet{
		"none":    None(),
		"grants":  NewGrants("alice", false, "view_tenant"),
		"resolve": Resolve(nil),
	} {
		if !cs.HasPermission(nil) {
			t.Errorf("%s: HasPermission(nil) = false", name)
		}
		if !cs.HasPermission([]string{}) {
			t.Errorf("%s: HasPermission([]) = false", name)
		}
	}
}

func TestGrants_AnyOf(t *testing.T) {
	g := NewGrants("alice", false, "view_tenant", "view_lease")
	if !g.HasPermission([]string{"view_owner", "view_tenant"}) {
		t.Error("should hold one of the listed ids")
	}
	if g.HasPermission([]string{"view_owner", "manage_settings"}) {
		t.Error("should not hold any of the listed ids")
	}
}

func TestNone_FailsClosed(t *testing.T) {
	n := None()
	if n.IsSuperuser() {
		t.Error("None must not be superuser")
	}
	if n.HasPermission([]string{"view_tenant"}) {
		t.Error("None must not grant anything")
	}
	if n.Actor() != "" {
		t.Errorf("actor = %q", n.Actor())
	}
}

func TestResolve_KeepsNonNil(t *testing.T) {
	g := Superuser("root")
	if got := Resolve(g); !got.IsSuperuser() {
		t.Error("Resolve should return the given set")
	}
}

func TestGrants_PermissionsSortedAndSkipsEmpty(t *testing.T) {
	g := NewGrants("bob", false, "b", "", "a", "b")
	if got := g.Permissions(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Permissions = %v", got)
	}
}
