package nav

import "github.com/starford/navgate/internal/menu"

// Crumb is one breadcrumb entry.
type Crumb struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// PlaceholderLink stands in for a parent that has no page of its own.
const PlaceholderLink = "#"

// BuildTrail returns the breadcrumb trail for path.
//
// Matching is exact. A top-level hit yields one entry; a child hit yields
// the parent followed by the child. When several entries match, the last
// one scanned wins.
func BuildTrail(tree menu.Tree, path string) []Crumb {
	var trail []Crumb
	for _, n := range tree {
		if n.URL != "" && n.URL == path {
			trail = []Crumb{{Name: n.Name, Link: n.URL}}
		}
		for _, s := range n.SubMenus {
			if s.URL == path {
				parentLink := n.URL
				if parentLink == "" {
					parentLink = PlaceholderLink
				}
				trail = []Crumb{
					{Name: n.Name, Link: parentLink},
					{Name: s.Name, Link: s.URL},
				}
			}
		}
	}
	return trail
}

// RenderedCrumb carries the presentation hints for one trail entry.
type RenderedCrumb struct {
	Crumb
	// Emphasized marks the first entry.
	Emphasized bool `json:"emphasized"`
	// Divider is true for every entry except the last.
	Divider bool `json:"divider"`
}

// Render annotates a trail for display.
func Render(trail []Crumb) []RenderedCrumb {
	out := make([]RenderedCrumb, len(trail))
	for i, c := range trail {
		out[i] = RenderedCrumb{
			Crumb:      c,
			Emphasized: i == 0,
			Divider:    i < len(trail)-1,
		}
	}
	return out
}
