package disclosure

import (
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeClock fires callbacks only when Advance moves time past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
}

// pending returns the callbacks that are scheduled but not fired or stopped.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

const (
	openDelay  = 100 * time.Millisecond
	closeDelay = 150 * time.Millisecond
)

func newTestController(t *testing.T, opts ...Option) (*Controller, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	// Menus 1 and 2 have children; 3 is a leaf.
	expandable := func(id int) bool { return id == 1 || id == 2 }
	opts = append([]Option{WithClock(clock), WithDelays(openDelay, closeDelay)}, opts...)
	return New(expandable, opts...), clock
}

func assertState(t *testing.T, c *Controller, want State) {
	t.Helper()
	if got := c.State(); got != want {
		t.Fatalf("state = %v, want %v", got, want)
	}
}

func TestEnterAndHoldOpens(t *testing.T) {
	c, clock := newTestController(t)
	c.PointerEnter(1)
	assertState(t, c, State{Kind: OpenPending, MenuID: 1})

	clock.Advance(openDelay / 2)
	assertState(t, c, State{Kind: OpenPending, MenuID: 1})

	clock.Advance(openDelay)
	assertState(t, c, State{Kind: Open, MenuID: 1})
}

func TestEnterThenQuickLeaveNeverOpens(t *testing.T) {
	c, clock := newTestController(t)
	c.PointerEnter(1)
	clock.Advance(openDelay / 2)
	c.PointerLeave(1)
	assertState(t, c, State{})

	clock.Advance(10 * openDelay)
	assertState(t, c, State{})
	if n := clock.pending(); n != 0 {
		t.Errorf("pending timers = %d, want 0", n)
	}
}

func TestLeafMenuNeverArms(t *testing.T) {
	c, clock := newTestController(t)
	c.PointerEnter(3)
	assertState(t, c, State{})
	if n := clock.pending(); n != 0 {
		t.Errorf("pending timers = %d, want 0", n)
	}
}

func TestLeaveFromOpenDebouncesClose(t *testing.T) {
	c, clock := newTestController(t)
	c.PointerEnter(1)
	clock.Advance(openDelay)
	c.PointerLeave(1)
	assertState(t, c, State{Kind: ClosePending, MenuID: 1})

	clock.Advance(closeDelay - time.Millisecond)
	assertState(t, c, State{Kind: ClosePending, MenuID: 1})

	clock.Advance(time.Millisecond)
	assertState(t, c, State{})
}

func TestReEnterCancelsClose(t *testing.T) {
	for name, reenter := range map[string]func(*Controller){
		"trigger": func(c *Controller) { c.PointerEnter(1) },
		"panel":   func(c *Controller) { c.PanelEnter(1) },
	} {
		t.Run(name, func(t *testing.T) {
			c, clock := newTestController(t)
			c.PointerEnter(1)
			clock.Advance(openDelay)
			c.PointerLeave(1)
			clock.Advance(closeDelay / 2)
			reenter(c)
			assertState(t, c, State{Kind: Open, MenuID: 1})

			clock.Advance(10 * closeDelay)
			assertState(t, c, State{Kind: Open, MenuID: 1})
		})
	}
}

func TestPanelEnterIgnoredWhenNotShown(t *testing.T) {
	c, clock := newTestController(t)
	c.PanelEnter(1)
	assertState(t, c, State{})

	c.PointerEnter(1)
	c.PanelEnter(1)
	assertState(t, c, State{Kind: OpenPending, MenuID: 1})
	clock.Advance(openDelay)
	c.PanelEnter(2)
	assertState(t, c, State{Kind: Open, MenuID: 1})
}

func TestSingleOpenInvariant(t *testing.T) {
	c, clock := newTestController(t)
	c.PointerEnter(1)
	clock.Advance(openDelay)
	assertState(t, c, State{Kind: Open, MenuID: 1})

	c.PointerEnter(2)
	assertState(t, c, State{Kind: OpenPending, MenuID: 2})
	clock.Advance(openDelay)
	assertState(t, c, State{Kind: Open, MenuID: 2})

	if c.State().IsOpen(1) {
		t.Fatal("menu 1 must not remain open")
	}
}

func TestSwitchTargetAbandonsOldTimer(t *testing.T) {
	c, clock := newTestController(t)
	c.PointerEnter(1)
	clock.Advance(openDelay / 2)
	c.PointerEnter(2)
	// Menu 1's timer would fire here had it not been abandoned.
	clock.Advance(openDelay / 2)
	assertState(t, c, State{Kind: OpenPending, MenuID: 2})
	clock.Advance(openDelay / 2)
	assertState(t, c, State{Kind: Open, MenuID: 2})
}

func TestSwitchFromClosePending(t *testing.T) {
	c, clock := newTestController(t)
	c.PointerEnter(1)
	clock.Advance(openDelay)
	c.PointerLeave(1)
	c.PointerEnter(2)
	assertState(t, c, State{Kind: OpenPending, MenuID: 2})
	// The close timer of menu 1 must not close menu 2.
	clock.Advance(closeDelay)
	assertState(t, c, State{Kind: Open, MenuID: 2})
}

func TestEnteringLeafClosesOpenMenu(t *testing.T) {
	c, clock := newTestController(t)
	c.PointerEnter(1)
	clock.Advance(openDelay)
	c.PointerEnter(3)
	assertState(t, c, State{})
}

func TestStaleLeaveIgnored(t *testing.T) {
	c, clock := newTestController(t)
	c.PointerEnter(1)
	c.PointerEnter(2)
	// Leave for menu 1 arrives after the enter on menu 2.
	c.PointerLeave(1)
	assertState(t, c, State{Kind: OpenPending, MenuID: 2})
	clock.Advance(openDelay)
	assertState(t, c, State{Kind: Open, MenuID: 2})
}

func TestRepeatedEnterKeepsPendingTimer(t *testing.T) {
	c, clock := newTestController(t)
	c.PointerEnter(1)
	clock.Advance(openDelay / 2)
	c.PointerEnter(1)
	clock.Advance(openDelay / 2)
	assertState(t, c, State{Kind: Open, MenuID: 1})
}

func TestSelectClosesImmediatelyFromAnyState(t *testing.T) {
	setups := map[string]func(*Controller, *fakeClock){
		"closed":        func(*Controller, *fakeClock) {},
		"open_pending":  func(c *Controller, _ *fakeClock) { c.PointerEnter(1) },
		"open":          func(c *Controller, k *fakeClock) { c.PointerEnter(1); k.Advance(openDelay) },
		"close_pending": func(c *Controller, k *fakeClock) { c.PointerEnter(1); k.Advance(openDelay); c.PointerLeave(1) },
		"mobile":        func(c *Controller, _ *fakeClock) { c.ToggleMobile() },
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			c, clock := newTestController(t)
			setup(c, clock)
			c.Select()
			snap := c.Snapshot()
			if snap.State != (State{}) || snap.MobileOpen || snap.Overlay {
				t.Fatalf("snapshot after select = %+v", snap)
			}
			if n := clock.pending(); n != 0 {
				t.Errorf("pending timers = %d, want 0", n)
			}
			clock.Advance(time.Second)
			assertState(t, c, State{})
		})
	}
}

func TestOverlayPresence(t *testing.T) {
	c, clock := newTestController(t)
	if c.Snapshot().Overlay {
		t.Fatal("closed controller must not show overlay")
	}
	c.PointerEnter(1)
	if !c.Snapshot().Overlay {
		t.Error("overlay expected while open is pending")
	}
	clock.Advance(openDelay)
	c.PointerLeave(1)
	if !c.Snapshot().Overlay {
		t.Error("overlay expected while close is pending")
	}
	c.DismissOverlay()
	if c.Snapshot().Overlay {
		t.Error("dismiss must close the overlay")
	}
}

func TestMobileToggle(t *testing.T) {
	c, _ := newTestController(t)
	c.ToggleMobile()
	snap := c.Snapshot()
	if !snap.MobileOpen || !snap.Overlay {
		t.Fatalf("snapshot = %+v, want mobile open with overlay", snap)
	}
	c.ToggleMobile()
	if c.Snapshot().MobileOpen {
		t.Fatal("second toggle should close the mobile menu")
	}
	c.ToggleMobile()
	c.DismissOverlay()
	if c.Snapshot().MobileOpen {
		t.Fatal("dismiss should close the mobile menu")
	}
}

func TestCloseCancelsTimers(t *testing.T) {
	var changes []Snapshot
	c, clock := newTestController(t, WithOnChange(func(s Snapshot) { changes = append(changes, s) }))
	c.PointerEnter(1)
	c.Close()
	if n := clock.pending(); n != 0 {
		t.Errorf("pending timers after close = %d", n)
	}
	clock.Advance(time.Second)
	assertState(t, c, State{Kind: OpenPending, MenuID: 1})
	if len(changes) != 1 {
		t.Errorf("changes = %d, want only the pre-close transition", len(changes))
	}
	if !c.Closed() {
		t.Error("Closed() = false")
	}
}

func TestCallbackRacingCloseIsIgnored(t *testing.T) {
	clock := &fakeClock{}
	c := New(func(int) bool { return true }, WithClock(clock), WithDelays(openDelay, closeDelay))
	c.PointerEnter(1)

	// Capture the scheduled callback and run it after Close, as a timer that
	// already fired and was waiting on the lock would.
	clock.mu.Lock()
	fn := clock.timers[0].fn
	clock.mu.Unlock()
	c.Close()
	fn()
	assertState(t, c, State{Kind: OpenPending, MenuID: 1})
}

func TestEventsAfterCloseAreIgnored(t *testing.T) {
	c, _ := newTestController(t)
	c.Close()
	c.PointerEnter(1)
	c.ToggleMobile()
	if snap := c.Snapshot(); snap.State != (State{}) || snap.MobileOpen {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestOnChangeSeesEveryTransition(t *testing.T) {
	var kinds []Kind
	c, clock := newTestController(t, WithOnChange(func(s Snapshot) { kinds = append(kinds, s.State.Kind) }))
	c.PointerEnter(1)
	c.PointerEnter(1) // no change, no notification
	clock.Advance(openDelay)
	c.PointerLeave(1)
	clock.Advance(closeDelay)

	want := []Kind{OpenPending, Open, ClosePending, Closed}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}

func TestRealClockOpens(t *testing.T) {
	c := New(func(int) bool { return true }, WithDelays(5*time.Millisecond, 5*time.Millisecond))
	defer c.Close()
	c.PointerEnter(1)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.State().IsOpen(1) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state = %v, want open(1)", c.State())
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{Closed, OpenPending, Open, ClosePending} {
		b, _ := k.MarshalText()
		var back Kind
		if err := back.UnmarshalText(b); err != nil || back != k {
			t.Errorf("kind %v round trip = %v, %v", k, back, err)
		}
	}
	var k Kind
	if err := k.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("unknown kind should fail")
	}
	if got := Kind(42).String(); got != "kind(42)" {
		t.Errorf("String = %q", got)
	}
}
