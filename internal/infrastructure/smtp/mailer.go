package smtp

import (
	"github.com/email-otp/internal/config"
	gomail "gopkg.in/mail.v2"
)

// Mailer sends HTML emails from a fixed sender identity.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

// sender abstracts the SMTP dial so messages can be captured in tests.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type mailer struct {
	from   string
	dialer sender
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		from:   cfg.MailFrom,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

func (m *mailer) SendEmail(to, subject, htmlBody string) error {
	return m.dialer.DialAndSend(m.message(to, subject, htmlBody))
}

func (m *mailer) message(to, subject, htmlBody string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return msg
}
