package otp

import (
	"bytes"
	"html/template"
	"time"
)

var emailTmpl = template.Must(template.New("otp").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Email Verification</h2>
  <p>Hi {{.Name}},</p>
  <p>Your email verification code is:</p>
  <div style="background-color: #f5f5f5; padding: 20px; text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 5px; margin: 20px 0;">
    {{.Code}}
  </div>
  <p>This code will expire in {{.Minutes}} minutes.</p>
  <p>If you didn't request this code, please ignore this email.</p>
  <p>Best regards,<br>QGlide Team</p>
</div>
`))

type emailData struct {
	Name    string
	Code    string
	Minutes int
}

func renderEmail(name, code string, ttl time.Duration) (string, error) {
	if name == "" {
		name = defaultGreeting
	}
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, emailData{
		Name:    name,
		Code:    code,
		Minutes: ttlMinutes(ttl),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ttlMinutes rounds up so the email never understates the validity window.
func ttlMinutes(ttl time.Duration) int {
	return int((ttl + time.Minute - 1) / time.Minute)
}
