// Package disclosure implements the hover/click state machine behind the
// mega-menu and the mobile menu.
package disclosure

import "fmt"

// Kind tags a State.
type Kind int

// States of the mega-menu.
const (
	Closed Kind = iota
	OpenPending
	Open
	ClosePending
)

var kindNames = [...]string{
	Closed:       "closed",
	OpenPending:  "open_pending",
	Open:         "open",
	ClosePending: "close_pending",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText renders the kind by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("disclosure: unknown state %q", b)
}

// State is the tagged disclosure state. MenuID is zero when Closed.
type State struct {
	Kind   Kind `json:"kind"`
	MenuID int  `json:"menu_id,omitempty"`
}

// IsOpen reports whether menuID's panel is fully open.
func (s State) IsOpen(menuID int) bool {
	return s.Kind == Open && s.MenuID == menuID
}

// Visible reports whether a panel should currently be drawn. ClosePending
// keeps the panel on screen until its timer fires.
func (s State) Visible() bool {
	return s.Kind == Open || s.Kind == ClosePending
}

func (s State) String() string {
	if s.Kind == Closed {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", s.Kind, s.MenuID)
}

// Snapshot is everything a view needs to render the disclosure chrome.
type Snapshot struct {
	State      State `json:"state"`
	MobileOpen bool  `json:"mobile_open"`
	// Overlay is true whenever a full-screen dismiss surface must be drawn.
	Overlay bool `json:"overlay"`
}
