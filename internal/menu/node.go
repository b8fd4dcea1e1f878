// Package menu defines the static navigation tree of the dashboard.
//
// A tree is loaded once at startup (either the built-in Default tree or a
// YAML file) and is treated as read-only afterwards. Everything derived from
// it (filtered views, trails, active flags) is computed into new values.
package menu

// Node is a top-level navigation entry.
type Node struct {
	ID          int    `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	URL         string `yaml:"url,omitempty" json:"url,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Icon        string `yaml:"icon,omitempty" json:"icon,omitempty"`

	// RequiredPermissions lists capability ids of which the actor must hold
	// at least one. Nil or empty means the node is public.
	RequiredPermissions []string `yaml:"required_permissions,omitempty" json:"required_permissions,omitempty"`

	SubMenus []SubNode `yaml:"sub_menus,omitempty" json:"sub_menus,omitempty"`
}

// SubNode is a child entry. It always has a URL and never has children.
type SubNode struct {
	ID                  int      `yaml:"id" json:"id"`
	Name                string   `yaml:"name" json:"name"`
	URL                 string   `yaml:"url" json:"url"`
	Description         string   `yaml:"description,omitempty" json:"description,omitempty"`
	Icon                string   `yaml:"icon,omitempty" json:"icon,omitempty"`
	RequiredPermissions []string `yaml:"required_permissions,omitempty" json:"required_permissions,omitempty"`
}

// Tree is the ordered forest of top-level nodes.
type Tree []Node

// Clickable reports whether the node navigates anywhere on its own.
func (n Node) Clickable() bool {
	return n.URL != ""
}

// Dead reports whether the node can neither navigate nor expand.
func (n Node) Dead() bool {
	return n.URL == "" && len(n.SubMenus) == 0
}

// Slug returns the derived key used for tab comparison.
func (n Node) Slug() string {
	return Slug(n.Name)
}

// Slug returns the derived key used for tab comparison.
func (s SubNode) Slug() string {
	return Slug(s.Name)
}

// Find returns the first top-level node with the given id.
func (t Tree) Find(id int) (Node, bool) {
	for _, n := range t {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// FindChild returns the first child with childID under the node with parentID.
func (t Tree) FindChild(parentID, childID int) (SubNode, bool) {
	parent, ok := t.Find(parentID)
	if !ok {
		return SubNode{}, false
	}
	for _, s := range parent.SubMenus {
		if s.ID == childID {
			return s, true
		}
	}
	return SubNode{}, false
}
