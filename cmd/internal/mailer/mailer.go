// Package mailer is the outbound transactional email boundary.
//
// Delivery is fire-and-forget: a send failure is logged and swallowed, never
// surfaced to the request that triggered it, and never retried here.
package mailer

import (
	"context"
	"log/slog"
	"time"
)

// Mailer delivers transactional account emails.
type Mailer interface {
	SendWelcome(ctx context.Context, email, name string) error
	SendCancellation(ctx context.Context, email, name string) error
}

// Noop is the mailer used in tests and when outbound mail is disabled.
type Noop struct{}

func (Noop) SendWelcome(_ context.Context, _, _ string) error      { return nil }
func (Noop) SendCancellation(_ context.Context, _, _ string) error { return nil }

// Notifier dispatches mail on a background goroutine so the request path
// never waits on (or fails because of) the provider.
type Notifier struct {
	log    *slog.Logger
	mailer Mailer

	// sendTimeout bounds each background delivery attempt.
	sendTimeout time.Duration
}

// NewNotifier wraps a Mailer with async dispatch.
func NewNotifier(log *slog.Logger, m Mailer) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = Noop{}
	}
	return &Notifier{log: log, mailer: m, sendTimeout: 10 * time.Second}
}

// Welcome dispatches the welcome email without blocking the caller.
func (n *Notifier) Welcome(email, name string) {
	n.dispatch("mail.welcome", email, n.mailer.SendWelcome, name)
}

// Cancellation dispatches the account-cancellation email without blocking the caller.
func (n *Notifier) Cancellation(email, name string) {
	n.dispatch("mail.cancellation", email, n.mailer.SendCancellation, name)
}

func (n *Notifier) dispatch(event, email string, send func(context.Context, string, string) error, name string) {
	if n == nil || email == "" {
		return
	}
	go func() {
		// Detached from the request context: the response must not wait on
		// delivery, and a cancelled request must not cancel the send.
		ctx, cancel := context.WithTimeout(context.Background(), n.sendTimeout)
		defer cancel()

		if err := send(ctx, email, name); err != nil {
			n.log.Error(event+".fail", "err", err)
		}
	}()
}
