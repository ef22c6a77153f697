// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the process-wide login state and the capabilities it
// grants.
//
// A Session is either anonymous or fully authenticated: identity, token and
// capabilities are replaced together on Login and cleared together on
// Logout. Capabilities are computed once from the role at login time and are
// immutable afterwards; checks never re-derive them from the role.
//
// Observers registered with Subscribe run synchronously before Login or
// Logout returns, so a redirect decided right after Logout never reads
// stale state.
//
// # Usage
//
//	s := auth.NewSession(auth.DefaultRoleMap())
//	s.Subscribe(func(e auth.Event) { ... })
//	s.Login("a@example.com", token, "admin", "Alice")
//	if err := auth.Gate(s, auth.CapRAGAccess); err != nil { ... }
package auth
