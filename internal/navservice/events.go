package navservice

import (
	"context"
	"fmt"

	"github.com/starford/navgate/internal/access"
	"github.com/starford/navgate/internal/apperr"
	"github.com/starford/navgate/internal/disclosure"
	"github.com/starford/navgate/internal/menu"
	"github.com/starford/navgate/internal/nav"
	"github.com/starford/navgate/internal/sse"
)

// EventType names an interaction reported by the rendering layer.
type EventType string

// Interaction types.
const (
	EventPointerEnter EventType = "pointer_enter"
	EventPointerLeave EventType = "pointer_leave"
	EventPanelEnter   EventType = "panel_enter"
	EventSelect       EventType = "select"
	EventDismiss      EventType = "dismiss"
	EventToggleMobile EventType = "toggle_mobile"
)

// Event is one interaction. MenuID addresses a top-level entry, ChildID a
// sub-menu entry of it; both are ignored where the type does not use them.
type Event struct {
	Type    EventType `json:"type"`
	MenuID  int       `json:"menu_id,omitempty"`
	ChildID int       `json:"child_id,omitempty"`
}

// DispatchResult is the session state after an event. NavigateTo is set
// when a select resolved to a destination.
type DispatchResult struct {
	Snapshot   disclosure.Snapshot `json:"state"`
	NavigateTo string              `json:"navigate_to,omitempty"`
}

// Dispatch feeds ev into actor's session id.
func (s *Service) Dispatch(ctx context.Context, actor, id string, ev Event) (*DispatchResult, error) {
	sess, err := s.Session(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	ctrl := sess.Controller()
	res := &DispatchResult{}

	switch ev.Type {
	case EventPointerEnter, EventPointerLeave, EventPanelEnter:
		if ev.MenuID <= 0 {
			return nil, fmt.Errorf("navservice: %s needs menu_id: %w", ev.Type, apperr.ErrInvalid)
		}
		switch ev.Type {
		case EventPointerEnter:
			ctrl.PointerEnter(ev.MenuID)
		case EventPointerLeave:
			ctrl.PointerLeave(ev.MenuID)
		default:
			ctrl.PanelEnter(ev.MenuID)
		}
	case EventSelect:
		// Any selection closes the menu, even one that resolves nowhere.
		ctrl.Select()
		if ev.MenuID > 0 {
			node, url, err := s.destination(sess.Capabilities(), ev.MenuID, ev.ChildID)
			if err != nil {
				return nil, err
			}
			res.NavigateTo = url
			s.metrics.Selections.Increment(node.Slug())
		}
		if res.NavigateTo != "" && s.pub != nil {
			s.pub.Publish(sse.Event{
				Topic: sess.ID,
				Type:  sse.TypeNavigationRequested,
				Data:  map[string]string{"url": res.NavigateTo},
			})
		}
	case EventDismiss:
		ctrl.DismissOverlay()
	case EventToggleMobile:
		ctrl.ToggleMobile()
	default:
		return nil, fmt.Errorf("navservice: unknown event type %q: %w", ev.Type, apperr.ErrInvalid)
	}

	res.Snapshot = ctrl.Snapshot()
	return res, nil
}

// destination resolves the URL a select of (menuID, childID) leads to for
// cs. Entries cs cannot see are reported as missing.
func (s *Service) destination(cs access.CapabilitySet, menuID, childID int) (menu.Node, string, error) {
	node, ok := s.tree.Find(menuID)
	if !ok || !nav.Allowed(cs, node.RequiredPermissions) {
		return menu.Node{}, "", fmt.Errorf("navservice: menu %d: %w", menuID, apperr.ErrNotFound)
	}
	if childID == 0 {
		if !node.Clickable() {
			return node, "", nil
		}
		return node, node.URL, nil
	}
	child, ok := s.tree.FindChild(menuID, childID)
	if !ok || !nav.Allowed(cs, child.RequiredPermissions) {
		return menu.Node{}, "", fmt.Errorf("navservice: menu %d child %d: %w", menuID, childID, apperr.ErrNotFound)
	}
	return node, child.URL, nil
}
