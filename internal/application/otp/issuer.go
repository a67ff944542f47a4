package otp

import (
	"context"

	"github.com/email-otp/internal/domain"
	"github.com/email-otp/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// Issue overwrites the record for req.Email and mails the code.
// The write is not rolled back if delivery fails.
func (s *service) Issue(ctx context.Context, req domain.IssueRequest) domain.Result {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Code), s.hashCost)
	if err != nil {
		s.log.Error("otp_hash_failed", "email", req.Email, "err", err)
		return internal(msgSendFailed, err)
	}

	createdAt := s.now().UTC()
	rec := &domain.OTPRecord{
		Email:      req.Email,
		CodeHash:   string(hash),
		IssuanceID: id.New(),
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(s.ttl),
	}
	if s.retention > 0 {
		purgeAt := rec.ExpiresAt.Add(s.retention)
		rec.PurgeAt = &purgeAt
	}
	log := s.log.With("email", req.Email, "issuance_id", rec.IssuanceID)

	if err := s.store.Put(ctx, rec); err != nil {
		log.Error("otp_store_failed", "err", err)
		return internal(msgSendFailed, err)
	}

	body, err := renderEmail(req.Name, req.Code, s.ttl)
	if err != nil {
		log.Error("otp_render_failed", "err", err)
		return internal(msgSendFailed, err)
	}
	if err := s.mailer.SendEmail(req.Email, s.subject, body); err != nil {
		log.Error("otp_email_failed", "err", err)
		return internal(msgSendFailed, err)
	}

	log.Info("otp_issued", "expires_at", rec.ExpiresAt)
	return success(msgSent)
}
