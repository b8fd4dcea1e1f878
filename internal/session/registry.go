// Package session keeps one disclosure controller per connected navigation
// bar and expires the ones whose clients went away.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/navgate/internal/access"
	"github.com/starford/navgate/internal/apperr"
	"github.com/starford/navgate/internal/disclosure"
	"github.com/starford/navgate/internal/menu"
	"github.com/starford/navgate/internal/nav"
	"github.com/starford/navgate/internal/sse"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 30 * time.Minute

// Publisher receives the events produced by sessions.
type Publisher interface {
	Publish(event sse.Event)
	CloseTopic(topic string)
}

// Session is one mounted navigation bar.
type Session struct {
	ID      string
	Actor   string
	Created time.Time

	ctrl *disclosure.Controller

	mu       sync.Mutex
	cs       access.CapabilitySet
	lastSeen time.Time
}

// Controller returns the session's disclosure controller.
func (s *Session) Controller() *disclosure.Controller { return s.ctrl }

// Capabilities returns the capability set the session currently renders with.
func (s *Session) Capabilities() access.CapabilitySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cs
}

// LastSeen returns the time of the last access.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) setCapabilities(cs access.CapabilitySet) {
	s.mu.Lock()
	s.cs = access.Resolve(cs)
	s.mu.Unlock()
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL sets the idle expiry.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

// WithClock sets the timer source handed to every controller.
func WithClock(clock disclosure.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithNow replaces time.Now for expiry bookkeeping.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithDelays sets the controllers' debounce delays.
func WithDelays(openDelay, closeDelay time.Duration) Option {
	return func(r *Registry) {
		r.openDelay = openDelay
		r.closeDelay = closeDelay
	}
}

// WithPublisher routes snapshot changes to pub under the session id topic.
func WithPublisher(pub Publisher) Option {
	return func(r *Registry) { r.pub = pub }
}

// WithObserver registers a hook called after every snapshot change. Like
// disclosure.WithOnChange it runs under the controller lock.
func WithObserver(fn func(s *Session, snap disclosure.Snapshot)) Option {
	return func(r *Registry) { r.observer = fn }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// Registry owns every live session.
type Registry struct {
	tree       menu.Tree
	ttl        time.Duration
	clock      disclosure.Clock
	now        func() time.Time
	openDelay  time.Duration
	closeDelay time.Duration
	pub        Publisher
	observer   func(*Session, disclosure.Snapshot)
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions navigate tree.
func NewRegistry(tree menu.Tree, opts ...Option) *Registry {
	r := &Registry{
		tree:       tree,
		ttl:        DefaultTTL,
		clock:      disclosure.RealClock(),
		now:        time.Now,
		openDelay:  disclosure.DefaultOpenDelay,
		closeDelay: disclosure.DefaultCloseDelay,
		logger:     slog.Default(),
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open starts a session for actor rendering with cs.
func (r *Registry) Open(actor string, cs access.CapabilitySet) *Session {
	now := r.now()
	s := &Session{
		ID:       uuid.NewString(),
		Actor:    actor,
		Created:  now,
		cs:       access.Resolve(cs),
		lastSeen: now,
	}
	expandable := func(menuID int) bool {
		return nav.ExpandableFunc(r.tree, s.Capabilities())(menuID)
	}
	s.ctrl = disclosure.New(expandable,
		disclosure.WithClock(r.clock),
		disclosure.WithDelays(r.openDelay, r.closeDelay),
		disclosure.WithOnChange(func(snap disclosure.Snapshot) { r.changed(s, snap) }),
	)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.logger.Debug("session: opened", slog.String("id", s.ID), slog.String("actor", actor))
	return s
}

func (r *Registry) changed(s *Session, snap disclosure.Snapshot) {
	if r.pub != nil {
		r.pub.Publish(sse.Event{Topic: s.ID, Type: sse.TypeDisclosureChanged, Data: snap})
	}
	if r.observer != nil {
		r.observer(s, snap)
	}
}

// Get returns the session with id and marks it as seen.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session: %q: %w", id, apperr.ErrNotFound)
	}
	s.touch(r.now())
	return s, nil
}

// Close tears the session down: pending timers are cancelled and its
// stream subscribers are disconnected.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session: %q: %w", id, apperr.ErrNotFound)
	}
	r.teardown(s)
	r.logger.Debug("session: closed", slog.String("id", id))
	return nil
}

func (r *Registry) teardown(s *Session) {
	s.ctrl.Close()
	if r.pub != nil {
		r.pub.CloseTopic(s.ID)
	}
}

// Refresh swaps the capability set of every session of actor. Menus the
// actor can no longer expand stop opening from the next pointer event on.
func (r *Registry) Refresh(actor string, cs access.CapabilitySet) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.Actor == actor {
			s.setCapabilities(cs)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap closes every session idle for longer than the TTL and returns how
// many were closed.
func (r *Registry) Reap(now time.Time) int {
	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if now.Sub(s.LastSeen()) > r.ttl {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.teardown(s)
		r.logger.Debug("session: expired", slog.String("id", s.ID), slog.String("actor", s.Actor))
	}
	return len(expired)
}

// Run reaps idle sessions every interval until ctx is cancelled, then
// closes everything that is left.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = r.ttl / 2
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("session: reaper started", slog.Duration("ttl", r.ttl))
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			r.logger.Info("session: reaper stopped")
			return nil
		case <-ticker.C:
			if n := r.Reap(r.now()); n > 0 {
				r.logger.Info("session: reaped", slog.Int("count", n))
			}
		}
	}
}

// CloseAll tears down every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		r.teardown(s)
	}
}
