package email

import (
	"context"

	"github.com/rs/zerolog"
)

// ConsoleMailer logs reset links instead of sending mail. Development only.
type ConsoleMailer struct {
	log zerolog.Logger
}

func NewConsoleMailer(log zerolog.Logger) *ConsoleMailer {
	return &ConsoleMailer{log: log}
}

func (m *ConsoleMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.log.Info().Str("to", to).Str("link", link).Msg("password reset email (console mailer)")
	return nil
}
