package otp

import (
	"context"
	"log/slog"
	"time"

	"github.com/email-otp/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Caller-facing messages. They never carry infrastructure detail.
const (
	msgSent         = "OTP sent successfully"
	msgSendFailed   = "Failed to send OTP email"
	msgVerified     = "OTP verified successfully"
	msgNotFound     = "OTP not found"
	msgAlreadyUsed  = "OTP already used"
	msgExpired      = "OTP expired"
	msgInvalidCode  = "Invalid OTP"
	msgVerifyFailed = "Failed to verify OTP"
)

const (
	defaultTTL      = 10 * time.Minute
	defaultGreeting = "User"
	defaultSubject  = "Email Verification Code"
)

// Store persists one OTPRecord per email.
//
// Get wraps domain.ErrNotFound when no record exists. IncrementAttempts and
// MarkUsed only apply to the issuance identified by issuanceID and wrap
// domain.ErrConflict when the stored record is a different issuance, has been
// removed, or (for MarkUsed) is already used.
type Store interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
	Get(ctx context.Context, email string) (*domain.OTPRecord, error)
	IncrementAttempts(ctx context.Context, email, issuanceID string) error
	MarkUsed(ctx context.Context, email, issuanceID string) error
}

// Mailer delivers an HTML email.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

type Service interface {
	Issue(ctx context.Context, req domain.IssueRequest) domain.Result
	Verify(ctx context.Context, req domain.VerifyRequest) domain.Result
}

// ServiceDeps carries everything the service needs. Zero values of Logger,
// Clock, TTL, Subject and HashCost fall back to defaults.
type ServiceDeps struct {
	Store     Store
	Mailer    Mailer
	Logger    *slog.Logger
	Clock     func() time.Time
	TTL       time.Duration
	Retention time.Duration
	Subject   string
	HashCost  int // bcrypt cost for stored codes
}

type service struct {
	store     Store
	mailer    Mailer
	log       *slog.Logger
	now       func() time.Time
	ttl       time.Duration
	retention time.Duration
	subject   string
	hashCost  int
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:     deps.Store,
		mailer:    deps.Mailer,
		log:       deps.Logger,
		now:       deps.Clock,
		ttl:       deps.TTL,
		retention: deps.Retention,
		subject:   deps.Subject,
		hashCost:  deps.HashCost,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.subject == "" {
		s.subject = defaultSubject
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	return s
}

func success(msg string) domain.Result {
	return domain.Result{Outcome: domain.OutcomeSuccess, Message: msg}
}

func failure(o domain.Outcome, msg string) domain.Result {
	return domain.Result{Outcome: o, Message: msg}
}

func internal(msg string, err error) domain.Result {
	return domain.Result{Outcome: domain.OutcomeInternal, Message: msg, Err: err}
}
