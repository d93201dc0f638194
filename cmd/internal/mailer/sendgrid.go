package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGrid delivers account emails through the SendGrid v3 API.
type SendGrid struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGrid constructs a SendGrid mailer. The API key is passed in
// explicitly at construction; this package never reads process env.
func NewSendGrid(apiKey, fromEmail, fromName string) *SendGrid {
	return &SendGrid{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *SendGrid) SendWelcome(ctx context.Context, email, name string) error {
	subject := "Welcome to Task Manager"
	body := fmt.Sprintf("Hello %s!  Welcome to the Task Manager App!", name)
	return s.send(ctx, email, name, subject, body)
}

func (s *SendGrid) SendCancellation(ctx context.Context, email, name string) error {
	subject := fmt.Sprintf("Sorry to see you go %s!", name)
	body := fmt.Sprintf("Hi %s, we noticed you cancelled your account. Is there anything we can do to make our product better?", name)
	return s.send(ctx, email, name, subject, body)
}

func (s *SendGrid) send(ctx context.Context, email, name, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(name, email)
	msg := mail.NewSingleEmail(from, subject, to, body, body)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	return nil
}
