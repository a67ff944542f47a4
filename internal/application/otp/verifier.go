package otp

import (
	"context"
	"errors"

	"github.com/email-otp/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Verify checks, in order: existence, used flag, expiry, code match.
// Only the mismatch and success paths write to the store.
func (s *service) Verify(ctx context.Context, req domain.VerifyRequest) domain.Result {
	log := s.log.With("email", req.Email)

	rec, err := s.store.Get(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return failure(domain.OutcomeNotFound, msgNotFound)
	}
	if err != nil {
		log.Error("otp_load_failed", "err", err)
		return internal(msgVerifyFailed, err)
	}
	log = log.With("issuance_id", rec.IssuanceID)

	if rec.Used {
		return failure(domain.OutcomeAlreadyUsed, msgAlreadyUsed)
	}
	if rec.Expired(s.now()) {
		return failure(domain.OutcomeExpired, msgExpired)
	}

	match, err := codeMatches(rec.CodeHash, req.Code)
	if err != nil {
		log.Error("otp_hash_compare_failed", "err", err)
		return internal(msgVerifyFailed, err)
	}
	if !match {
		err := s.store.IncrementAttempts(ctx, req.Email, rec.IssuanceID)
		switch {
		case err == nil:
			log.Info("otp_mismatch", "attempts", rec.Attempts+1)
		case errors.Is(err, domain.ErrConflict):
			// Re-issued between read and write; the new record keeps its own count.
			log.Info("otp_mismatch_superseded")
		default:
			log.Error("otp_attempts_update_failed", "err", err)
			return internal(msgVerifyFailed, err)
		}
		return failure(domain.OutcomeInvalidCode, msgInvalidCode)
	}

	if err := s.store.MarkUsed(ctx, req.Email, rec.IssuanceID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.Info("otp_mark_used_conflict")
			return failure(domain.OutcomeAlreadyUsed, msgAlreadyUsed)
		}
		log.Error("otp_mark_used_failed", "err", err)
		return internal(msgVerifyFailed, err)
	}

	log.Info("otp_verified", "attempts", rec.Attempts)
	return success(msgVerified)
}

// codeMatches compares a submitted code against the stored bcrypt hash.
// Codes longer than bcrypt accepts can never have been issued, so they are
// a mismatch rather than an error.
func codeMatches(hash, code string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, err
	}
}
