package http

import (
	"log/slog"
	"time"

	"github.com/email-otp/internal/application/otp"
	"github.com/email-otp/internal/infrastructure/smtp"
)

// Deps holds the infrastructure the router wires into the OTP service.
// Clock is optional and defaults to time.Now.
type Deps struct {
	Store   otp.Store
	Mailer  smtp.Mailer
	Logger  *slog.Logger
	Backend string
	Clock   func() time.Time
}
