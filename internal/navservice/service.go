// Package navservice composes the menu tree, the capability index, the
// disclosure sessions and the metrics into the operations the API and the
// MCP server expose.
package navservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/navgate/internal/access"
	"github.com/starford/navgate/internal/apperr"
	"github.com/starford/navgate/internal/checksum"
	"github.com/starford/navgate/internal/disclosure"
	"github.com/starford/navgate/internal/index"
	"github.com/starford/navgate/internal/menu"
	"github.com/starford/navgate/internal/metric"
	"github.com/starford/navgate/internal/models"
	"github.com/starford/navgate/internal/nav"
	"github.com/starford/navgate/internal/policy"
	"github.com/starford/navgate/internal/session"
	"github.com/starford/navgate/internal/sse"
	"github.com/starford/navgate/internal/storage"
)

// Publisher is the part of the SSE broker the service talks to.
type Publisher interface {
	Publish(event sse.Event)
	PublishPolicyEvent(kind, path, actor string)
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event sink for navigation and policy events.
func WithPublisher(pub Publisher) Option {
	return func(s *Service) { s.pub = pub }
}

// WithMetrics sets the counters the service records to.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service coordinates navigation, sessions and policy operations.
type Service struct {
	tree     menu.Tree
	store    storage.Provider
	db       *index.DB
	sessions *session.Registry
	pub      Publisher
	metrics  *metric.Metrics
	logger   *slog.Logger
}

// NewService creates a new navigation service.
func NewService(tree menu.Tree, store storage.Provider, db *index.DB, sessions *session.Registry, opts ...Option) *Service {
	s := &Service{
		tree:     tree,
		store:    store,
		db:       db,
		sessions: sessions,
		metrics:  metric.Nop(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransitionObserver returns a session observer that counts disclosure
// transitions by resulting state.
func TransitionObserver(m *metric.Metrics) func(*session.Session, disclosure.Snapshot) {
	return func(_ *session.Session, snap disclosure.Snapshot) {
		m.Transitions.Increment(snap.State.Kind.String())
	}
}

// Menu returns the configured tree.
func (s *Service) Menu() menu.Tree {
	return s.tree
}

// Check lints the configured tree.
func (s *Service) Check() []menu.Issue {
	return menu.Check(s.tree)
}

// Ready reports whether the capability index is reachable.
func (s *Service) Ready(_ context.Context) error {
	return s.db.Ping()
}

// Capabilities resolves the capability set of actor. It never fails: an
// unknown actor or a broken lookup yields the empty set.
func (s *Service) Capabilities(_ context.Context, actor string) access.CapabilitySet {
	if actor == "" {
		s.metrics.Lookups.Increment(metric.LookupMiss)
		return access.None()
	}
	g, err := s.db.Capabilities(actor)
	switch {
	case err == nil:
		s.metrics.Lookups.Increment(metric.LookupHit)
		return g
	case errors.Is(err, apperr.ErrNotFound):
		s.metrics.Lookups.Increment(metric.LookupMiss)
	default:
		s.metrics.Lookups.Increment(metric.LookupError)
		s.logger.Warn("navservice: capability lookup failed",
			slog.String("actor", actor), slog.String("error", err.Error()))
	}
	return access.None()
}

// Navigation builds the view actor sees at path. When sessionID is set the
// session's disclosure snapshot is attached.
func (s *Service) Navigation(ctx context.Context, actor, path, sessionID string) (*nav.View, error) {
	cs := s.Capabilities(ctx, actor)
	var snap *disclosure.Snapshot
	if sessionID != "" {
		sess, err := s.Session(ctx, actor, sessionID)
		if err != nil {
			return nil, err
		}
		cur := sess.Controller().Snapshot()
		snap = &cur
	}
	v := nav.Build(s.tree, cs, path, snap)
	return &v, nil
}

// Breadcrumbs returns the rendered trail for path.
func (s *Service) Breadcrumbs(_ context.Context, path string) []nav.RenderedCrumb {
	return nav.Render(nav.BuildTrail(s.tree, path))
}

// SessionInfo describes a disclosure session.
type SessionInfo struct {
	ID       string              `json:"id"`
	Actor    string              `json:"actor"`
	Snapshot disclosure.Snapshot `json:"snapshot"`
}

func info(sess *session.Session) *SessionInfo {
	return &SessionInfo{ID: sess.ID, Actor: sess.Actor, Snapshot: sess.Controller().Snapshot()}
}

// OpenSession mounts a navigation bar for actor.
func (s *Service) OpenSession(ctx context.Context, actor string) *SessionInfo {
	return info(s.sessions.Open(actor, s.Capabilities(ctx, actor)))
}

// Session returns actor's session id. Sessions of other actors are
// reported as missing.
func (s *Service) Session(_ context.Context, actor, id string) (*session.Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Actor != actor {
		return nil, fmt.Errorf("navservice: session %q: %w", id, apperr.ErrNotFound)
	}
	return sess, nil
}

// SessionInfo returns the current state of actor's session id.
func (s *Service) SessionInfo(ctx context.Context, actor, id string) (*SessionInfo, error) {
	sess, err := s.Session(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return info(sess), nil
}

// CloseSession unmounts actor's session id.
func (s *Service) CloseSession(ctx context.Context, actor, id string) error {
	if _, err := s.Session(ctx, actor, id); err != nil {
		return err
	}
	return s.sessions.Close(id)
}

// PolicyDetail is a policy as stored on disk plus its index metadata.
type PolicyDetail struct {
	models.Actor
	Content string `json:"content"`
}

// GetPolicy returns the indexed policy of actor.
func (s *Service) GetPolicy(_ context.Context, actor string) (*PolicyDetail, error) {
	row, err := s.db.GetPolicy(actor)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(row.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("navservice: policy file of %q: %w", actor, apperr.ErrNotFound)
		}
		return nil, err
	}
	return detail(row, data), nil
}

// ListPolicies returns every indexed policy.
func (s *Service) ListPolicies(_ context.Context) ([]models.Actor, error) {
	rows, err := s.db.ListActors()
	if err != nil {
		return nil, err
	}
	out := make([]models.Actor, len(rows))
	for i, r := range rows {
		out[i] = actorModel(r)
	}
	return out, nil
}

// PutPolicy writes actor's policy file and indexes it right away, so the
// change is visible before the watcher catches up. A non-empty ifMatch must
// equal the checksum of the file being replaced; "*" only requires that it
// exists. created reports whether the policy is new.
func (s *Service) PutPolicy(_ context.Context, actor string, doc policy.Document, ifMatch string) (_ *PolicyDetail, created bool, err error) {
	if doc.Actor == "" {
		doc.Actor = actor
	}
	if doc.Actor != actor {
		return nil, false, fmt.Errorf("navservice: actor %q does not match %q: %w", doc.Actor, actor, apperr.ErrInvalid)
	}
	data, err := policy.Marshal(&doc)
	if err != nil {
		return nil, false, fmt.Errorf("navservice: %w: %w", apperr.ErrInvalid, err)
	}

	path := policy.FileName(actor)
	created = true
	if row, err := s.db.GetPolicy(actor); err == nil {
		path = row.Path
		created = false
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	if existing, err := s.store.Read(path); err == nil {
		if ifMatch != "" && ifMatch != "*" && ifMatch != checksum.Sum(existing) {
			return nil, false, apperr.ErrConflict
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	} else if ifMatch != "" {
		return nil, false, apperr.ErrConflict
	}

	if err := s.store.Write(path, data); err != nil {
		return nil, false, err
	}
	_, replaced, err := index.IndexFile(s.db, path, data)
	if err != nil {
		return nil, false, err
	}
	if replaced != "" {
		s.PolicyChanged(index.KindDeleted, path, replaced)
	}

	kind := index.KindUpdated
	if created {
		kind = index.KindCreated
	}
	s.PolicyChanged(kind, path, actor)

	row, err := s.db.GetPolicy(actor)
	if err != nil {
		return nil, false, err
	}
	return detail(row, data), created, nil
}

// DeletePolicy removes actor's policy file and its grants.
func (s *Service) DeletePolicy(_ context.Context, actor string) error {
	row, err := s.db.GetPolicy(actor)
	if err != nil {
		return err
	}
	if err := s.store.Delete(row.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if _, err := s.db.DeletePolicy(row.Path); err != nil {
		return err
	}
	s.PolicyChanged(index.KindDeleted, row.Path, actor)
	return nil
}

// Holders returns the actors holding permission.
func (s *Service) Holders(_ context.Context, permission string) ([]string, error) {
	holders, err := s.db.Holders(permission)
	if err != nil {
		return nil, err
	}
	if holders == nil {
		holders = []string{}
	}
	return holders, nil
}

// PolicyChanged propagates a policy change: live sessions of actor pick up
// the new capability set and subscribers are notified. It matches
// index.EventCallback so the watcher can call it directly.
func (s *Service) PolicyChanged(kind, path, actor string) {
	if actor != "" {
		cs := s.Capabilities(context.Background(), actor)
		if n := s.sessions.Refresh(actor, cs); n > 0 {
			s.logger.Debug("navservice: sessions refreshed",
				slog.String("actor", actor), slog.Int("sessions", n))
		}
	}
	if s.pub != nil {
		s.pub.PublishPolicyEvent(kind, path, actor)
	}
}

func actorModel(r index.PolicyRow) models.Actor {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return models.Actor{
		Actor:       r.Actor,
		Path:        r.Path,
		Superuser:   r.Superuser,
		Permissions: perms,
		Checksum:    r.Checksum,
		UpdatedAt:   r.UpdatedAt,
	}
}

func detail(r *index.PolicyRow, data []byte) *PolicyDetail {
	return &PolicyDetail{Actor: actorModel(*r), Content: string(data)}
}
