// Package email delivers provider transactional mail. SendGrid is used in
// production; the console mailer serves local development.
package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendgridMailer sends password-reset messages through the SendGrid API.
type SendgridMailer struct {
	apiKey    string
	fromName  string
	fromEmail string
}

func NewSendgridMailer(apiKey, fromName, fromEmail string) *SendgridMailer {
	return &SendgridMailer{apiKey: apiKey, fromName: fromName, fromEmail: fromEmail}
}

func (m *SendgridMailer) SendPasswordReset(_ context.Context, to, link string) error {
	from := sgmail.NewEmail(m.fromName, m.fromEmail)
	subject := "Reset your password"
	plain := fmt.Sprintf("Follow this link to reset your password:\n\n%s\n\nIf you did not request a reset, ignore this message.", link)
	html := fmt.Sprintf(`<p>Follow this link to reset your password:</p><p><a href=%q>Reset password</a></p><p>If you did not request a reset, ignore this message.</p>`, link)

	msg := sgmail.NewSingleEmail(from, subject, sgmail.NewEmail("", to), plain, html)
	resp, err := sendgrid.NewSendClient(m.apiKey).Send(msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
