package domain

import "time"

// OTPRecord is the per-email verification state. Key: email.
// CodeHash is the bcrypt hash of the issued code; the plaintext is never stored.
// A new issuance overwrites the whole record, history included.
// PurgeAt is only set when a retention window is configured; it is a TTL hint
// for the backing store and is never acted on by the service itself.
type OTPRecord struct {
	Email      string     `json:"email" dynamodbav:"email" firestore:"email"`
	CodeHash   string     `json:"-" dynamodbav:"otp" firestore:"otp"`
	IssuanceID string     `json:"issuance_id" dynamodbav:"issuance_id" firestore:"issuance_id"`
	CreatedAt  time.Time  `json:"created_at" dynamodbav:"created_at" firestore:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at" dynamodbav:"expires_at" firestore:"expires_at"`
	Used       bool       `json:"used" dynamodbav:"used" firestore:"used"`
	Attempts   int        `json:"attempts" dynamodbav:"attempts" firestore:"attempts"`
	PurgeAt    *time.Time `json:"-" dynamodbav:"purge_at,unixtime,omitempty" firestore:"purge_at,omitempty"`
}

// Expired reports whether now is strictly past the record's expiry.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IssueRequest is the payload of sendOTPEmail. The email is not format-checked.
// Code is capped at bcrypt's 72-byte input limit.
type IssueRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"otp" validate:"required,max=72"`
	Name  string `json:"name"`
}

// VerifyRequest is the payload of verifyOTP.
type VerifyRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"otp" validate:"required,max=72"`
}
