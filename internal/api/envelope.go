// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Envelope is the uniform response wrapper.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	// Status is the HTTP status code the envelope arrived with.
	Status int `json:"-"`
}

// OK reports whether the call succeeded and carried data.
func (e *Envelope[T]) OK() bool {
	return e != nil && e.Success && e.Data != nil
}

// rawEnvelope detects an envelope without committing to a data type.
type rawEnvelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// decodeEnvelope returns (nil, nil) when body is not an envelope.
func decodeEnvelope[T any](body []byte, status int) (*Envelope[T], error) {
	var p rawEnvelope
	if err := json.Unmarshal(body, &p); err != nil || p.Success == nil {
		return nil, nil
	}
	env := &Envelope[T]{
		Success: *p.Success,
		Message: p.Message,
		Error:   p.Error,
		Status:  status,
	}
	// A non-2xx status or an error field means failure whatever the flag says.
	if status < 200 || status > 299 || p.Error != "" {
		env.Success = false
	}
	if len(p.Data) > 0 && string(p.Data) != "null" {
		var data T
		if err := json.Unmarshal(p.Data, &data); err != nil {
			if !env.Success {
				// The data of a failed call is informational only.
				return env, nil
			}
			return nil, fmt.Errorf("%w: data: %v", ErrMalformedResponse, err)
		}
		env.Data = &data
	}
	return env, nil
}

// =============================================================================
// ERROR REDUCTION
// =============================================================================

// ErrorText reduces a failed call to one display string. The chain is the
// envelope message, the envelope error field, the HTTP detail or transport
// description, and finally fallback. A successful envelope with no error
// yields fallback.
func ErrorText[T any](env *Envelope[T], err error, fallback string) string {
	if env != nil && !env.Success {
		if m := strings.TrimSpace(env.Message); m != "" {
			return m
		}
		if m := strings.TrimSpace(env.Error); m != "" {
			return m
		}
	}
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			if d := strings.TrimSpace(httpErr.Detail); d != "" {
				return d
			}
		}
		if m := strings.TrimSpace(describe(err)); m != "" {
			return m
		}
	}
	return fallback
}
