package users

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// Email subjects per notification kind.
const (
	SubjectVerification = "Verify Your Email Address"
	SubjectWelcome      = "Welcome to Our Platform"
	SubjectPromoted     = "Congratulations on Your Professional Upgrade"
)

// MailSender delivers a rendered message. *gomail.Dialer satisfies it
// through dialerSender, tests provide their own stub.
type MailSender interface {
	Send(to, subject, htmlBody string) error
}

// MailSenderFunc adapts a function to the MailSender interface.
type MailSenderFunc func(to, subject, htmlBody string) error

func (f MailSenderFunc) Send(to, subject, htmlBody string) error {
	return f(to, subject, htmlBody)
}

type dialerSender struct {
	dialer *gomail.Dialer
	from   string
}

func (d dialerSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	return d.dialer.DialAndSend(m)
}

// NewSMTPSender wires a gomail dialer behind the MailSender interface.
func NewSMTPSender(host string, port int, username, password, from string) MailSender {
	return dialerSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Mailer renders notification templates and hands the result to a MailSender.
// It implements Notifier, wrap it in an AsyncNotifier so callers never block
// on SMTP.
type Mailer struct {
	sender MailSender
	engine *django.Engine
	logger Logger
}

type notificationTemplate struct {
	subject string
	view    string
}

var notificationTemplates = map[NotificationKind]notificationTemplate{
	NotificationVerificationRequested: {subject: SubjectVerification, view: "verification_email"},
	NotificationVerified:              {subject: SubjectWelcome, view: "welcome_email"},
	NotificationPromoted:              {subject: SubjectPromoted, view: "promotion_email"},
}

// MailerOption customizes the mailer.
type MailerOption func(*Mailer)

// WithMailerLogger overrides the logger.
func WithMailerLogger(logger Logger) MailerOption {
	return func(m *Mailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMailer loads the embedded templates and returns a ready mailer.
func NewMailer(sender MailSender, opts ...MailerOption) (*Mailer, error) {
	engine := django.NewFileSystem(http.FS(TemplatesFS), ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	m := &Mailer{
		sender: sender,
		engine: engine,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m, nil
}

// Notify renders the template for the notification kind and sends it.
func (m *Mailer) Notify(_ context.Context, n Notification) error {
	tpl, ok := notificationTemplates[n.Kind]
	if !ok {
		return goerrors.New(
			fmt.Sprintf("no template registered for notification kind %q", n.Kind),
			goerrors.CategoryInternal,
		)
	}

	name := n.Name
	if name == "" {
		name = n.Email
	}

	var buf bytes.Buffer
	err := m.engine.Render(&buf, tpl.view, map[string]any{
		"name":             name,
		"email":            n.Email,
		"verification_url": n.VerificationURL,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template").
			WithMetadata(map[string]any{
				"kind": n.Kind,
				"view": tpl.view,
			})
	}

	if err := m.sender.Send(n.Email, tpl.subject, buf.String()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send email").
			WithMetadata(map[string]any{
				"kind": n.Kind,
			})
	}

	m.logger.Debug("sent %s email to account %s", n.Kind, n.AccountID)
	return nil
}
