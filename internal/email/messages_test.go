package email

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type capturingSender struct {
	mu   sync.Mutex
	done chan struct{}

	recipient string
	subject   string
	body      string
}

func newCapturingSender() *capturingSender {
	return &capturingSender{done: make(chan struct{})}
}

func (s *capturingSender) Send(ctx context.Context, recipient, subject, body string) error {
	s.mu.Lock()
	s.recipient = recipient
	s.subject = subject
	s.body = body
	s.mu.Unlock()
	close(s.done)
	return nil
}

func (s *capturingSender) SendFrom(ctx context.Context, recipient, subject, body, sender string) error {
	return s.Send(ctx, recipient, subject, body)
}

func (s *capturingSender) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async send")
	}
}

func TestSendInvitationContent(t *testing.T) {
	sender := newCapturingSender()
	expiresAt := time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)

	SendInvitation(context.Background(), sender,
		"bob@x.com", "Rovers", "alice", "player",
		"http://localhost:8080", "abc123", expiresAt,
	)
	sender.wait(t)

	if sender.recipient != "bob@x.com" {
		t.Fatalf("unexpected recipient %q", sender.recipient)
	}
	if !strings.Contains(sender.subject, "Rovers") {
		t.Fatalf("expected team name in subject, got %q", sender.subject)
	}
	for _, want := range []string{"alice", "player", "http://localhost:8080/invitations/abc123", "March 21, 2026"} {
		if !strings.Contains(sender.body, want) {
			t.Fatalf("expected body to contain %q, got %q", want, sender.body)
		}
	}
}

func TestSendVerificationContent(t *testing.T) {
	sender := newCapturingSender()

	SendVerification(context.Background(), sender,
		"alice@example.com", "alice", "http://localhost:8080", "verify-token",
	)
	sender.wait(t)

	if !strings.Contains(sender.body, "verify?token=verify-token") {
		t.Fatalf("expected verification link in body, got %q", sender.body)
	}
}

func TestSendToleratesNilSender(t *testing.T) {
	// Must not panic or block.
	SendInvitation(context.Background(), nil, "bob@x.com", "Rovers", "alice", "player", "", "abc123", time.Now())
	SendVerification(context.Background(), nil, "alice@example.com", "alice", "", "tok")
}

func TestSendSurvivesCanceledRequestContext(t *testing.T) {
	sender := newCapturingSender()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	SendInvitation(ctx, sender, "bob@x.com", "Rovers", "alice", "player", "", "abc123", time.Now())
	sender.wait(t)
}
