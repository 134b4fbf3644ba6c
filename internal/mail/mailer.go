// Package mail sends the storefront's verification emails over SMTP.
package mail

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"

	"github.com/jordan-wright/email"
)

type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: smtp.PlainAuth("", username, password, host),
	}
}

func (m *SMTPMailer) SendVerificationCode(recipient, code string) error {
	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, struct {
		Code          string
		ExpiryMinutes int
	}{Code: code, ExpiryMinutes: 10}); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{recipient}
	e.Subject = "Your Silkloom verification code"
	e.HTML = buf.Bytes()

	if err := e.Send(m.addr, m.auth); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

var verificationTemplate = template.Must(template.New("verification").Parse(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 480px; margin: 0 auto; padding: 24px;">
    <h2>Silkloom</h2>
    <p>Use this code to confirm your request:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>The code is valid for {{.ExpiryMinutes}} minutes. If you did not
    request it, you can ignore this email.</p>
  </div>
</body>
</html>
`))
