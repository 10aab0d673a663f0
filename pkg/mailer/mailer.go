// Package mailer sends transactional email through a pluggable Sender.
// The only provider shipped is Resend; tests use a recording fake.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
)

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("email must have at least one recipient")

	// ErrSendFailed indicates email sending failed.
	ErrSendFailed = errors.New("failed to send email")
)

// Email is a fully-prepared message ready for delivery.
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender defines the minimal interface that email providers must implement.
// It accepts a fully-prepared Email and handles the actual delivery.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// Mailer composes and sends the application's transactional messages.
type Mailer struct {
	sender  Sender
	appName string
	logger  *slog.Logger
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithAppName sets the product name used in message copy.
func WithAppName(name string) Option {
	return func(m *Mailer) {
		if name != "" {
			m.appName = name
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mailer) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Mailer over the given provider.
func New(sender Sender, opts ...Option) *Mailer {
	m := &Mailer{
		sender:  sender,
		appName: "Campus",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var resetTemplate = template.Must(template.New("password_reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
<p>Hello,</p>
<p>We received a request to reset the password for your {{.AppName}} account.</p>
<p><a href="{{.ResetURL}}">Reset your password</a></p>
<p>The link expires in {{.ExpiresIn}}. If you did not ask for a reset, ignore this message; your password stays unchanged.</p>
<p>— {{.AppName}}</p>
</body>
</html>
`))

// SendPasswordReset delivers the reset link to the account email.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, resetURL, expiresIn string) error {
	if to == "" {
		return ErrNoRecipient
	}

	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, map[string]string{
		"AppName":   m.appName,
		"ResetURL":  resetURL,
		"ExpiresIn": expiresIn,
	}); err != nil {
		return fmt.Errorf("render password reset email: %w", err)
	}

	email := &Email{
		To:      []string{to},
		Subject: fmt.Sprintf("%s password reset", m.appName),
		HTML:    body.String(),
		Text:    fmt.Sprintf("Reset your %s password: %s (expires in %s)", m.appName, resetURL, expiresIn),
	}

	if err := m.sender.Send(ctx, email); err != nil {
		m.logger.ErrorContext(ctx, "password reset email failed",
			slog.String("to", to), slog.Any("error", err))
		return errors.Join(ErrSendFailed, err)
	}

	m.logger.InfoContext(ctx, "password reset email sent", slog.String("to", to))
	return nil
}
