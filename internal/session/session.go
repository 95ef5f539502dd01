// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session tracks signed-in users. Each session owns its intake
// workflow, so two experts never share a draft.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pdiddy/medonboard/internal/auth"
	"github.com/pdiddy/medonboard/internal/intake"
	"github.com/pdiddy/medonboard/pkg/types"
)

// Session is one signed-in user.
type Session struct {
	Token     string
	Identity  types.Identity
	CreatedAt time.Time

	// Workflow is nil for roles that cannot submit notes.
	Workflow *intake.Workflow

	// Analyze limits how often the session may run inference.
	Analyze *rate.Limiter

	lastSeen time.Time
}

// WorkflowFactory builds the intake workflow of a new session.
type WorkflowFactory func(id types.Identity) *intake.Workflow

// Option configures a Manager.
type Option func(*Manager)

// WithIdleTimeout ends sessions not used for d. Zero or less disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idle = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager is an in-memory session registry.
type Manager struct {
	factory WorkflowFactory
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns an empty registry. analyzeRate is in calls per second;
// zero or less disables the limit.
func NewManager(factory WorkflowFactory, analyzeRate float64, analyzeBurst int, opts ...Option) *Manager {
	limit := rate.Inf
	if analyzeRate > 0 {
		limit = rate.Limit(analyzeRate)
	}
	if analyzeBurst <= 0 {
		analyzeBurst = 1
	}
	m := &Manager{
		factory:  factory,
		limit:    limit,
		burst:    analyzeBurst,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a session for id and returns it. Expired sessions are
// dropped first.
func (m *Manager) Create(id types.Identity) *Session {
	now := m.now()
	s := &Session{
		Token:     uuid.NewString(),
		Identity:  id,
		CreatedAt: now,
		Analyze:   rate.NewLimiter(m.limit, m.burst),
		lastSeen:  now,
	}
	if auth.CanIntake(id.Role) && m.factory != nil {
		s.Workflow = m.factory(id)
	}

	m.mu.Lock()
	m.sweep(now)
	m.sessions[s.Token] = s
	m.mu.Unlock()
	return s
}

// Get returns the session for token and marks it used. An expired
// session is removed and reported as absent.
func (m *Manager) Get(token string) (*Session, bool) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, false
	}
	if m.expired(s, now) {
		delete(m.sessions, token)
		return nil, false
	}
	s.lastSeen = now
	return s, true
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.idle > 0 && now.Sub(s.lastSeen) > m.idle
}

// sweep removes expired sessions. m.mu must be held.
func (m *Manager) sweep(now time.Time) {
	if m.idle <= 0 {
		return
	}
	for token, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, token)
		}
	}
}

// Delete ends the session for token. Its unsaved draft is discarded.
func (m *Manager) Delete(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[token]
	delete(m.sessions, token)
	return ok
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
