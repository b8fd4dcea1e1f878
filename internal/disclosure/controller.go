package disclosure

import (
	"sync"
	"time"
)

// Default debounce delays.
const (
	DefaultOpenDelay  = 150 * time.Millisecond
	DefaultCloseDelay = 200 * time.Millisecond
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithDelays sets the open and close debounce delays.
func WithDelays(openDelay, closeDelay time.Duration) Option {
	return func(c *Controller) {
		c.openDelay = openDelay
		c.closeDelay = closeDelay
	}
}

// WithOnChange registers a hook that receives every new snapshot. It runs
// with the controller lock held and must not call back into the controller.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller owns the disclosure state of one mounted navigation bar.
//
// Every scheduled callback carries the generation that was current when it
// was scheduled. Stopping or replacing a timer bumps the generation, so a
// callback that lost a race with Stop finds a stale generation and does
// nothing.
type Controller struct {
	mu sync.Mutex

	clock      Clock
	openDelay  time.Duration
	closeDelay time.Duration
	expandable func(menuID int) bool
	onChange   func(Snapshot)

	state      State
	mobileOpen bool
	timer      Timer
	gen        uint64
	closed     bool
}

// New creates a controller. expandable reports whether a top-level menu has
// at least one visible child; only such menus can open. A nil expandable
// treats every menu as a leaf.
func New(expandable func(menuID int) bool, opts ...Option) *Controller {
	if expandable == nil {
		expandable = func(int) bool { return false }
	}
	c := &Controller{
		clock:      RealClock(),
		openDelay:  DefaultOpenDelay,
		closeDelay: DefaultCloseDelay,
		expandable: expandable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State returns the current mega-menu state.
func (c *Controller) State() State {
	return c.Snapshot().State
}

// PointerEnter handles the pointer entering a top-level trigger.
func (c *Controller) PointerEnter(menuID int) {
	c.update(func() {
		if c.state.Kind != Closed && c.state.MenuID == menuID {
			switch c.state.Kind {
			case OpenPending:
				// Already arming this menu; keep the running timer.
			case Open, ClosePending:
				c.stopTimerLocked()
				c.state = State{Kind: Open, MenuID: menuID}
			}
			return
		}

		c.stopTimerLocked()
		if !c.expandable(menuID) {
			c.state = State{}
			return
		}
		c.state = State{Kind: OpenPending, MenuID: menuID}
		c.scheduleLocked(c.openDelay, func() {
			if c.state.Kind == OpenPending && c.state.MenuID == menuID {
				c.state = State{Kind: Open, MenuID: menuID}
			}
		})
	})
}

// PanelEnter handles the pointer entering an open panel. It cancels a
// pending close of the same menu.
func (c *Controller) PanelEnter(menuID int) {
	c.update(func() {
		if !c.state.Visible() || c.state.MenuID != menuID {
			return
		}
		c.stopTimerLocked()
		c.state = State{Kind: Open, MenuID: menuID}
	})
}

// PointerLeave handles the pointer leaving a trigger or its panel. Leaves for
// a menu other than the current target are stale and ignored.
func (c *Controller) PointerLeave(menuID int) {
	c.update(func() {
		if c.state.Kind == Closed || c.state.MenuID != menuID {
			return
		}
		switch c.state.Kind {
		case OpenPending:
			c.stopTimerLocked()
			c.state = State{}
		case Open:
			c.state = State{Kind: ClosePending, MenuID: menuID}
			c.scheduleLocked(c.closeDelay, func() {
				if c.state.Kind == ClosePending && c.state.MenuID == menuID {
					c.state = State{}
				}
			})
		}
	})
}

// Select closes everything immediately, bypassing the debounce.
func (c *Controller) Select() {
	c.update(c.resetLocked)
}

// DismissOverlay handles a tap on the full-screen dismiss surface.
func (c *Controller) DismissOverlay() {
	c.update(c.resetLocked)
}

// ToggleMobile flips the mobile menu.
func (c *Controller) ToggleMobile() {
	c.update(func() { c.mobileOpen = !c.mobileOpen })
}

// Close tears the controller down. Outstanding timers are stopped and no
// transition happens afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.closed = true
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) resetLocked() {
	c.stopTimerLocked()
	c.state = State{}
	c.mobileOpen = false
}

func (c *Controller) update(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	before := c.snapshotLocked()
	fn()
	after := c.snapshotLocked()
	if after != before && c.onChange != nil {
		c.onChange(after)
	}
}

func (c *Controller) scheduleLocked(d time.Duration, fire func()) {
	c.stopTimerLocked()
	gen := c.gen
	c.timer = c.clock.AfterFunc(d, func() {
		c.update(func() {
			if gen != c.gen {
				return
			}
			c.timer = nil
			fire()
		})
	})
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:      c.state,
		MobileOpen: c.mobileOpen,
		Overlay:    c.state.Kind != Closed || c.mobileOpen,
	}
}
