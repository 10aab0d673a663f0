package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrymomot/campus/pkg/logger"
)

type fakeSender struct {
	sent []*Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, e *Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

func TestSendPasswordReset(t *testing.T) {
	fake := &fakeSender{}
	m := New(fake, WithAppName("Campus LMS"), WithLogger(logger.NewDiscard()))

	err := m.SendPasswordReset(context.Background(),
		"student@example.com", "https://campus.example.com/reset?token=abc", "30 minutes")
	if err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}

	if len(fake.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(fake.sent))
	}
	email := fake.sent[0]
	if email.To[0] != "student@example.com" {
		t.Errorf("To = %v", email.To)
	}
	if !strings.Contains(email.HTML, "https://campus.example.com/reset?token=abc") {
		t.Error("reset URL missing from HTML body")
	}
	if !strings.Contains(email.HTML, "30 minutes") {
		t.Error("expiry missing from HTML body")
	}
	if !strings.Contains(email.Subject, "Campus LMS") {
		t.Errorf("Subject = %q, want app name included", email.Subject)
	}
}

func TestSendPasswordReset_NoRecipient(t *testing.T) {
	m := New(&fakeSender{}, WithLogger(logger.NewDiscard()))
	if err := m.SendPasswordReset(context.Background(), "", "https://x", "30 minutes"); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("err = %v, want ErrNoRecipient", err)
	}
}

func TestSendPasswordReset_ProviderFailure(t *testing.T) {
	m := New(&fakeSender{err: errors.New("rate limited")}, WithLogger(logger.NewDiscard()))
	err := m.SendPasswordReset(context.Background(), "x@example.com", "https://x", "30 minutes")
	if !errors.Is(err, ErrSendFailed) {
		t.Errorf("err = %v, want ErrSendFailed", err)
	}
}
