package firestoreinfra

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/email-otp/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore field paths; keep in sync with the firestore tags on domain.OTPRecord.
const (
	fieldUsed     = "used"
	fieldAttempts = "attempts"
)

// OTPRepo stores one document per email in a single collection.
// Document ID: email
type OTPRepo struct {
	client     *firestore.Client
	collection string
}

func NewOTPRepo(client *firestore.Client, collection string) *OTPRepo {
	return &OTPRepo{client: client, collection: collection}
}

func (r *OTPRepo) doc(email string) *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(email)
}

// Put replaces the whole document, dropping fields of a previous issuance.
func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	if _, err := r.doc(rec.Email).Set(ctx, rec); err != nil {
		return fmt.Errorf("set otp: %w", err)
	}
	return nil
}

func (r *OTPRepo) Get(ctx context.Context, email string) (*domain.OTPRecord, error) {
	snap, err := r.doc(email).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}
	var rec domain.OTPRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode otp: %w", err)
	}
	return &rec, nil
}

func (r *OTPRepo) IncrementAttempts(ctx context.Context, email, issuanceID string) error {
	return r.updateIssuance(ctx, email, issuanceID, false, []firestore.Update{
		{Path: fieldAttempts, Value: firestore.Increment(1)},
	})
}

func (r *OTPRepo) MarkUsed(ctx context.Context, email, issuanceID string) error {
	return r.updateIssuance(ctx, email, issuanceID, true, []firestore.Update{
		{Path: fieldUsed, Value: true},
	})
}

// updateIssuance applies updates in a transaction if the document still
// belongs to issuanceID (and is unused, when requireUnused is set).
func (r *OTPRepo) updateIssuance(ctx context.Context, email, issuanceID string, requireUnused bool, updates []firestore.Update) error {
	ref := r.doc(email)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return checkIssuance(nil, issuanceID, requireUnused)
		}
		if err != nil {
			return err
		}
		var cur issuanceState
		if err := snap.DataTo(&cur); err != nil {
			return fmt.Errorf("decode otp: %w", err)
		}
		if err := checkIssuance(&cur, issuanceID, requireUnused); err != nil {
			return err
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		return fmt.Errorf("update otp: %w", err)
	}
	return nil
}

// issuanceState is the part of a stored document the write guard reads.
type issuanceState struct {
	IssuanceID string `firestore:"issuance_id"`
	Used       bool   `firestore:"used"`
}

// checkIssuance decides whether a guarded write may proceed. cur is nil when
// the document no longer exists.
func checkIssuance(cur *issuanceState, issuanceID string, requireUnused bool) error {
	switch {
	case cur == nil:
		return fmt.Errorf("otp removed: %w", domain.ErrConflict)
	case cur.IssuanceID != issuanceID:
		return fmt.Errorf("otp reissued: %w", domain.ErrConflict)
	case requireUnused && cur.Used:
		return fmt.Errorf("otp already used: %w", domain.ErrConflict)
	}
	return nil
}
