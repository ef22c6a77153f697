// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"sort"
	"strings"
)

// =============================================================================
// CAPABILITIES
// =============================================================================

// Capability is an opaque permission tag.
type Capability string

// CapRAGAccess gates the knowledge-base screens and document operations.
const CapRAGAccess Capability = "rag_access"

// Well-known roles returned by the backend.
const (
	RoleAdmin = "admin"
	RoleTest  = "test"
	RoleUser  = "user"
)

// Capabilities is an immutable set of capability tags. The zero value grants
// nothing.
type Capabilities struct {
	set map[Capability]struct{}
}

// NewCapabilities builds a capability set. Blank tags are ignored.
func NewCapabilities(tags ...Capability) Capabilities {
	set := make(map[Capability]struct{}, len(tags))
	for _, t := range tags {
		if strings.TrimSpace(string(t)) == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return Capabilities{set: set}
}

// Has reports whether tag is granted. Unknown tags are simply absent.
func (c Capabilities) Has(tag Capability) bool {
	_, ok := c.set[tag]
	return ok
}

// Tags returns the granted tags in sorted order.
func (c Capabilities) Tags() []Capability {
	out := make([]Capability, 0, len(c.set))
	for t := range c.set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of granted tags.
func (c Capabilities) Len() int {
	return len(c.set)
}

// String returns the tags joined with commas.
func (c Capabilities) String() string {
	tags := c.Tags()
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

// =============================================================================
// ROLE MAP
// =============================================================================

// RoleMap maps a role name to the capabilities it grants.
type RoleMap map[string][]Capability

// DefaultRoleMap mirrors the backend's permission table.
func DefaultRoleMap() RoleMap {
	return RoleMap{
		RoleAdmin: {CapRAGAccess},
		RoleTest:  {CapRAGAccess},
		RoleUser:  {},
	}
}

// RoleMapFromStrings converts a config table (role -> tag list).
func RoleMapFromStrings(m map[string][]string) RoleMap {
	out := make(RoleMap, len(m))
	for role, tags := range m {
		caps := make([]Capability, 0, len(tags))
		for _, t := range tags {
			caps = append(caps, Capability(t))
		}
		out[strings.ToLower(role)] = caps
	}
	return out
}

// Resolve returns the capabilities for role. Role names are matched case
// insensitively; unknown roles get the empty set.
func (m RoleMap) Resolve(role string) Capabilities {
	return NewCapabilities(m[strings.ToLower(strings.TrimSpace(role))]...)
}

// =============================================================================
// GATING
// =============================================================================

var (
	// ErrNotAuthenticated is returned by Gate for an anonymous session.
	ErrNotAuthenticated = errors.New("not logged in")

	// ErrForbidden is returned by Gate when the capability is missing.
	ErrForbidden = errors.New("permission denied")
)

// Checker answers capability queries. *Session implements it.
type Checker interface {
	IsAuthenticated() bool
	HasPermission(tag Capability) bool
}

// Gate returns nil when c is authenticated and holds tag.
func Gate(c Checker, tag Capability) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if !c.HasPermission(tag) {
		return ErrForbidden
	}
	return nil
}
