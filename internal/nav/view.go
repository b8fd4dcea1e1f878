package nav

import (
	"github.com/starford/navgate/internal/access"
	"github.com/starford/navgate/internal/disclosure"
	"github.com/starford/navgate/internal/menu"
)

// Item is a visible top-level entry as handed to the rendering layer.
type Item struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	URL         string  `json:"url,omitempty"`
	Description string  `json:"description,omitempty"`
	Icon        string  `json:"icon"`
	Active      bool    `json:"active"`
	Clickable   bool    `json:"clickable"`
	Expandable  bool    `json:"expandable"`
	Children    []Child `json:"children,omitempty"`
}

// Child is a visible sub-menu entry.
type Child struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon"`
	Active      bool   `json:"active"`
}

// View is the full navigation model for one render.
type View struct {
	Path  string          `json:"path"`
	Items []Item          `json:"items"`
	Trail []RenderedCrumb `json:"breadcrumbs"`
	// ActiveID is the id of the active top-level item, zero if none.
	ActiveID   int                  `json:"active_id,omitempty"`
	Disclosure *disclosure.Snapshot `json:"disclosure,omitempty"`
}

// Build composes the view for cs at path. Children are attached to the
// active item and to the item whose panel is currently shown. snap may be
// nil when no disclosure session is attached.
func Build(tree menu.Tree, cs access.CapabilitySet, path string, snap *disclosure.Snapshot) View {
	visible := VisibleTopLevel(tree, cs)
	active := ActiveIndex(visible, path)

	panelID := 0
	if snap != nil && snap.State.Kind != disclosure.Closed {
		panelID = snap.State.MenuID
	}

	v := View{
		Path:       path,
		Items:      make([]Item, len(visible)),
		Trail:      Render(BuildTrail(tree, path)),
		Disclosure: snap,
	}
	for i, n := range visible {
		item := Item{
			ID:          n.ID,
			Name:        n.Name,
			Slug:        n.Slug(),
			URL:         n.URL,
			Description: n.Description,
			Icon:        menu.Icon(n.Icon),
			Active:      i == active,
			Clickable:   n.Clickable(),
			Expandable:  Expandable(n, cs),
		}
		if item.Active || (panelID != 0 && n.ID == panelID) {
			item.Children = buildChildren(VisibleChildren(n.SubMenus, cs), path)
		}
		if item.Active {
			v.ActiveID = n.ID
		}
		v.Items[i] = item
	}
	return v
}

func buildChildren(subs []menu.SubNode, path string) []Child {
	if len(subs) == 0 {
		return nil
	}
	out := make([]Child, len(subs))
	for i, s := range subs {
		out[i] = Child{
			ID:          s.ID,
			Name:        s.Name,
			Slug:        s.Slug(),
			URL:         s.URL,
			Description: s.Description,
			Icon:        menu.Icon(s.Icon),
			Active:      IsChildActive(s.URL, path),
		}
	}
	return out
}
