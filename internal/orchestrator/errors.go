// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

// Failure is a normalized backend failure. Error returns the display text;
// errors.Is matches Kind and the transport error, if any.
type Failure struct {
	Kind   error
	Reason string
	Err    error
}

// Error implements error.
func (f *Failure) Error() string {
	return f.Reason
}

// Unwrap exposes Kind and Err to errors.Is and errors.As.
func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

func fail(kind error, reason string, err error) *Failure {
	return &Failure{Kind: kind, Reason: reason, Err: err}
}
