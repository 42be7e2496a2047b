package report

import (
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// Email delivers a copy of each admin report to an inbox, for admins who
// do not live in the chat.
type Email struct {
	APIKey string
	From   string
	To     string
}

func (e *Email) Send(subject, text string) error {
	client := resend.NewClient(e.APIKey)
	_, err := client.Emails.Send(&resend.SendEmailRequest{
		From:    e.From,
		To:      strings.Split(e.To, ","),
		Subject: subject,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
