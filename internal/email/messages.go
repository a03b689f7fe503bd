package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const sendTimeout = 10 * time.Second

// SendInvitation delivers a team invitation email carrying the resolution
// link. Delivery is best effort: a nil sender or a send failure is logged and
// swallowed so invitation creation never depends on the mail provider.
func SendInvitation(ctx context.Context, sender Sender, recipient, teamName, invitedBy, role, baseURL, token string, expiresAt time.Time) {
	subject := fmt.Sprintf("You're invited to join %s", teamName)
	body := fmt.Sprintf(
		"%s has invited you to join %s as a %s.\n\n"+
			"Open the link below to view and respond to the invitation:\n"+
			"%s/invitations/%s\n\n"+
			"This invitation expires on %s.",
		invitedBy, teamName, role, baseURL, token,
		expiresAt.Format("January 2, 2006"),
	)
	sendAsync(ctx, sender, recipient, subject, body)
}

// SendVerification delivers the email verification link for a new account.
func SendVerification(ctx context.Context, sender Sender, recipient, username, baseURL, token string) {
	subject := "Verify your Matchday account"
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Confirm your email address to activate your account:\n"+
			"%s/api/v1/auth/verify?token=%s",
		username, baseURL, token,
	)
	sendAsync(ctx, sender, recipient, subject, body)
}

func sendAsync(ctx context.Context, sender Sender, recipient, subject, body string) {
	if sender == nil {
		log.Ctx(ctx).Debug().
			Str("recipient", recipient).
			Str("subject", subject).
			Msg("Email sender not configured, skipping delivery")
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	// Detach cancellation so handler-scoped contexts don't abort async sends.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	go func() {
		defer cancel()
		if err := sender.Send(sendCtx, recipient, subject, body); err != nil {
			log.Error().
				Err(err).
				Str("recipient", recipient).
				Str("subject", subject).
				Msg("Failed to deliver email")
		}
	}()
}
