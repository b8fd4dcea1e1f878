package menu

import "fmt"

// Severity of a Check finding.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is a data-definition defect found in a tree.
type Issue struct {
	Severity string `json:"severity"`
	NodeID   int    `json:"node_id"`
	ChildID  int    `json:"child_id,omitempty"`
	Message  string `json:"message"`
}

func (i Issue) String() string {
	if i.ChildID != 0 {
		return fmt.Sprintf("%s: node %d/%d: %s", i.Severity, i.NodeID, i.ChildID, i.Message)
	}
	return fmt.Sprintf("%s: node %d: %s", i.Severity, i.NodeID, i.Message)
}

// Check lints t without failing. Findings are returned in tree order.
func Check(t Tree) []Issue {
	var out []Issue
	topIDs := make(map[int]struct{}, len(t))
	for _, n := range t {
		if _, dup := topIDs[n.ID]; dup {
			out = append(out, Issue{Severity: SeverityError, NodeID: n.ID, Message: fmt.Sprintf("duplicate top-level id (%q)", n.Name)})
		}
		topIDs[n.ID] = struct{}{}

		if n.Dead() {
			out = append(out, Issue{Severity: SeverityWarning, NodeID: n.ID, Message: fmt.Sprintf("%q has no url and no sub-menus", n.Name)})
		}

		childIDs := make(map[int]struct{}, len(n.SubMenus))
		for _, s := range n.SubMenus {
			if _, dup := childIDs[s.ID]; dup {
				out = append(out, Issue{Severity: SeverityWarning, NodeID: n.ID, ChildID: s.ID, Message: fmt.Sprintf("duplicate child id (%q)", s.Name)})
			}
			childIDs[s.ID] = struct{}{}

			switch s.URL {
			case "":
				out = append(out, Issue{Severity: SeverityError, NodeID: n.ID, ChildID: s.ID, Message: fmt.Sprintf("child %q has no url", s.Name)})
			case "/":
				out = append(out, Issue{Severity: SeverityWarning, NodeID: n.ID, ChildID: s.ID, Message: fmt.Sprintf("child %q uses the root url and is active everywhere", s.Name)})
			}
		}
	}
	return out
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
