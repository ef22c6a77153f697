// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"sync"

	"github.com/jeranaias/kefu-tui/internal/util"
)

// =============================================================================
// IDENTITY
// =============================================================================

// Identity describes the logged-in user.
type Identity struct {
	Email       string
	DisplayName string
	Role        string
}

// Name returns the display name, falling back to the email.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies a session transition.
type EventKind int

const (
	EventLogin EventKind = iota
	EventLogout
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Event is delivered to observers after a transition has been applied.
type Event struct {
	Kind          EventKind
	Authenticated bool
	Identity      Identity
	Capabilities  Capabilities
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the authentication state. It is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	roles    RoleMap
	identity *Identity
	token    string
	caps     Capabilities

	subject util.Subject[Event]
}

// NewSession creates an anonymous session. A nil role map selects
// DefaultRoleMap.
func NewSession(roles RoleMap) *Session {
	if roles == nil {
		roles = DefaultRoleMap()
	}
	return &Session{roles: roles}
}

// Login records an already validated login result, replacing any previous
// identity. Observers run before Login returns.
func (s *Session) Login(email, token, role, displayName string) {
	s.mu.Lock()
	id := Identity{Email: email, DisplayName: displayName, Role: role}
	s.identity = &id
	s.token = token
	s.caps = s.roles.Resolve(role)
	ev := Event{Kind: EventLogin, Authenticated: true, Identity: id, Capabilities: s.caps}
	publish := s.subject.Hold()
	s.mu.Unlock()

	publish(ev)
}

// Logout clears the session. Calling it while anonymous is allowed and
// still notifies observers.
func (s *Session) Logout() {
	s.mu.Lock()
	s.identity = nil
	s.token = ""
	s.caps = Capabilities{}
	publish := s.subject.Hold()
	s.mu.Unlock()

	publish(Event{Kind: EventLogout})
}

// IsAuthenticated reports whether an identity is present.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// HasPermission reports whether tag was granted at login. Always false for
// an anonymous session.
func (s *Session) HasPermission(tag Capability) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.caps.Has(tag)
}

// Identity returns the current identity and whether one is present.
func (s *Session) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Token returns the opaque bearer token, or "" when anonymous.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Capabilities returns the set granted at login.
func (s *Session) Capabilities() Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps
}

// State is a consistent copy of the whole session.
type State struct {
	Authenticated bool
	Identity      Identity
	Token         string
	Capabilities  Capabilities
}

// Snapshot returns identity, token and capabilities read under one lock.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return State{}
	}
	return State{Authenticated: true, Identity: *s.identity, Token: s.token, Capabilities: s.caps}
}

// Subscribe registers fn for login and logout events. Observers may read
// the session but must not call Login or Logout synchronously.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.subject.Subscribe(fn)
}
