// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jeranaias/kefu-tui/internal/api"
	"github.com/jeranaias/kefu-tui/internal/auth"
)

// MinPasswordLength matches the backend's registration rule.
const MinPasswordLength = 6

var (
	// ErrInvalidEmail rejects malformed e-mail addresses.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrPasswordTooShort rejects passwords under MinPasswordLength.
	ErrPasswordTooShort = errors.New("password too short")

	// ErrLoginRejected wraps a backend refusal.
	ErrLoginRejected = errors.New("login rejected")
)

// LoginError is a failed login. Reason is the display text; Err is one of
// the sentinel errors above or the transport error.
type LoginError struct {
	Reason string
	Err    error
}

// Error implements error.
func (e *LoginError) Error() string {
	return e.Reason
}

// Unwrap returns the underlying error.
func (e *LoginError) Unwrap() error {
	return e.Err
}

// LoginAPI is the backend login call. *api.Client implements it.
type LoginAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.Envelope[api.LoginResult], error)
}

// Authenticator runs the login flow into a session.
type Authenticator struct {
	session *auth.Session
	api     LoginAPI
	opts    options
	log     *zap.Logger
}

// NewAuthenticator creates the login flow for session.
func NewAuthenticator(session *auth.Session, l LoginAPI, opts ...Option) *Authenticator {
	o := buildOptions(opts)
	return &Authenticator{session: session, api: l, opts: o, log: o.logger.Named("auth")}
}

// ValidateCredentials checks input shape without any network call.
func ValidateCredentials(email, password string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &LoginError{Reason: MsgInvalidEmail, Err: ErrInvalidEmail}
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &LoginError{Reason: MsgShortPassword, Err: ErrPasswordTooShort}
	}
	return nil
}

// Login validates credentials, calls the backend and records the result in
// the session. On any failure the session is left exactly as it was and a
// notice is emitted.
func (a *Authenticator) Login(ctx context.Context, email, password string) (auth.Identity, error) {
	email = strings.TrimSpace(email)
	if err := ValidateCredentials(email, password); err != nil {
		a.opts.notifier.Notify(errorNotice(TitleLoginFailed, err.Error()))
		return auth.Identity{}, err
	}

	env, err := a.api.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil || !env.OK() || env.Data.Token == "" {
		fallback := MsgCheckLogin
		cause := ErrLoginRejected
		if err != nil {
			fallback = MsgNetworkError
			cause = err
		}
		reason := api.ErrorText(env, err, fallback)
		a.log.Info("login failed", zap.String("email", email), zap.String("reason", reason))
		a.opts.notifier.Notify(errorNotice(TitleLoginFailed, reason))
		return auth.Identity{}, &LoginError{Reason: reason, Err: cause}
	}

	data := env.Data
	userEmail := data.Email
	if userEmail == "" {
		userEmail = email
	}
	a.session.Login(userEmail, data.Token, data.Role, data.Name)
	a.log.Info("login succeeded", zap.String("email", userEmail), zap.String("role", data.Role))
	a.opts.notifier.Notify(successNotice(TitleLoginOK, MsgWelcomeBack))

	id, _ := a.session.Identity()
	return id, nil
}

// Logout clears the session.
func (a *Authenticator) Logout() {
	a.session.Logout()
	a.log.Info("logged out")
}
