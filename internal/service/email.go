package service

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// EmailSender delivers transactional email. Template contents live
// here; delivery is Resend's problem.
type EmailSender interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

type resendSender struct {
	client     *resend.Client
	from       string
	appBaseURL string
	logger     zerolog.Logger
}

func NewResendSender(apiKey, from, appBaseURL string, logger zerolog.Logger) EmailSender {
	return &resendSender{
		client:     resend.NewClient(apiKey),
		from:       from,
		appBaseURL: appBaseURL,
		logger:     logger.With().Str("service", "ResendSender").Logger(),
	}
}

func (s *resendSender) SendPasswordReset(ctx context.Context, to, token string) error {
	resetURL := fmt.Sprintf("%s/auth/reset-password?token=%s", s.appBaseURL, token)
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: "Reset Your Thoub-AI Password",
		Html: fmt.Sprintf(`<p>We received a request to reset your password.</p>
<p><a href="%s">Reset Password</a></p>
<p>This link expires in 1 hour. If you didn't request this, you can ignore this email.</p>`, resetURL),
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		s.logger.Error().Err(err).Msg("Failed to send password reset email")
		return fmt.Errorf("sending password reset email: %w", err)
	}
	return nil
}
