// Package mail sends registrant-facing notification emails. Delivery is
// best-effort: the owning state change has already committed by the time a
// mail is sent, so failures are logged and swallowed.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"eventsignup/internal/config"
	"eventsignup/internal/model"
)

// SMTPNotifier sends plain-text mail through a relay.
type SMTPNotifier struct {
	addr    string
	from    string
	baseURL string
}

// New constructs the notifier from config.
func New(cfg config.MailConfig) *SMTPNotifier {
	return &SMTPNotifier{
		addr:    cfg.Host + ":" + cfg.Port,
		from:    cfg.From,
		baseURL: cfg.BaseURL,
	}
}

// PromotedFromQueue tells a registrant they moved out of the wait-queue into
// a real slot.
func (n *SMTPNotifier) PromotedFromQueue(ctx context.Context, email string, event model.Event) error {
	subject := fmt.Sprintf("You got a spot: %s", event.Title)
	var b strings.Builder
	fmt.Fprintf(&b, "Good news! A spot opened up in %s and your signup moved off the wait list.\r\n", event.Title)
	if event.Date != nil {
		fmt.Fprintf(&b, "When: %s\r\n", event.Date.Format(time.RFC1123))
	}
	if event.Location != "" {
		fmt.Fprintf(&b, "Where: %s\r\n", event.Location)
	}
	return n.send(ctx, email, subject, b.String())
}

// SignupConfirmation sends the post-edit confirmation mail with an edit link.
func (n *SMTPNotifier) SignupConfirmation(ctx context.Context, email string, event model.Event, signup model.Signup) error {
	subject := fmt.Sprintf("Signup confirmed: %s", event.Title)
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\r\n\r\nyour signup to %s is confirmed.\r\n", signup.FirstName, event.Title)
	if n.baseURL != "" {
		fmt.Fprintf(&b, "You can edit your signup at %s/signups/%s\r\n", n.baseURL, signup.ID)
	}
	return n.send(ctx, email, subject, b.String())
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", n.from, to, subject, body)
	if err := smtp.SendMail(n.addr, nil, n.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	logrus.WithField("to", to).WithField("subject", subject).Debug("mail sent")
	return nil
}

// LogNotifier is the no-mail fallback used when mail is disabled: it only
// logs what would have been sent.
type LogNotifier struct{}

func (LogNotifier) PromotedFromQueue(_ context.Context, email string, event model.Event) error {
	logrus.WithFields(logrus.Fields{"to": email, "event": event.ID}).Info("would send queue promotion mail")
	return nil
}

func (LogNotifier) SignupConfirmation(_ context.Context, email string, event model.Event, _ model.Signup) error {
	logrus.WithFields(logrus.Fields{"to": email, "event": event.ID}).Info("would send confirmation mail")
	return nil
}
