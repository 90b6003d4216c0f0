package mailer

import "github.com/rachelandtim/wedding-api/pkg/logger"

// DevMailer logs outgoing mail instead of sending it. Used when no
// MailerSend key or SMTP host is configured, so local runs never need
// mail infrastructure.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("dev mailer: email not sent",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}
