package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/email-otp/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Hash fields of an OTP record.
const (
	fieldEmail      = "email"
	fieldCodeHash   = "otp"
	fieldIssuanceID = "issuance_id"
	fieldCreatedAt  = "created_at"
	fieldExpiresAt  = "expires_at"
	fieldUsed       = "used"
	fieldAttempts   = "attempts"
)

// maxTxRetries bounds optimistic-lock retries when a watched key changes under us.
const maxTxRetries = 3

// OTPRepo stores one hash per email under <prefix><email>.
type OTPRepo struct {
	client *redis.Client
	prefix string
}

func NewOTPRepo(client *redis.Client, prefix string) *OTPRepo {
	return &OTPRepo{client: client, prefix: prefix}
}

func (r *OTPRepo) key(email string) string { return r.prefix + email }

// Put replaces the hash atomically. PurgeAt, when set, becomes the key expiry.
func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	key := r.key(rec.Email)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]interface{}{
			fieldEmail:      rec.Email,
			fieldCodeHash:   rec.CodeHash,
			fieldIssuanceID: rec.IssuanceID,
			fieldCreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			fieldExpiresAt:  rec.ExpiresAt.UTC().Format(time.RFC3339Nano),
			fieldUsed:       formatBool(rec.Used),
			fieldAttempts:   rec.Attempts,
		})
		if rec.PurgeAt != nil {
			pipe.ExpireAt(ctx, key, *rec.PurgeAt)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put otp: %w", err)
	}
	return nil
}

func (r *OTPRepo) Get(ctx context.Context, email string) (*domain.OTPRecord, error) {
	fields, err := r.client.HGetAll(ctx, r.key(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	return decode(fields)
}

func (r *OTPRepo) IncrementAttempts(ctx context.Context, email, issuanceID string) error {
	return r.updateIssuance(ctx, email, issuanceID, false, func(pipe redis.Pipeliner, key string) {
		pipe.HIncrBy(ctx, key, fieldAttempts, 1)
	})
}

func (r *OTPRepo) MarkUsed(ctx context.Context, email, issuanceID string) error {
	return r.updateIssuance(ctx, email, issuanceID, true, func(pipe redis.Pipeliner, key string) {
		pipe.HSet(ctx, key, fieldUsed, formatBool(true))
	})
}

// updateIssuance runs apply in a WATCH/MULTI transaction guarded on the
// stored issuance (and on used=false when requireUnused is set).
func (r *OTPRepo) updateIssuance(ctx context.Context, email, issuanceID string, requireUnused bool, apply func(redis.Pipeliner, string)) error {
	key := r.key(email)
	txf := func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, key, fieldIssuanceID, fieldUsed).Result()
		if err != nil {
			return err
		}
		if cur, _ := vals[0].(string); cur != issuanceID {
			return fmt.Errorf("otp reissued or removed: %w", domain.ErrConflict)
		}
		if used, _ := vals[1].(string); requireUnused && used == formatBool(true) {
			return fmt.Errorf("otp already used: %w", domain.ErrConflict)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			apply(pipe, key)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("update otp: %w", err)
	}
	return nil
}

func decode(fields map[string]string) (*domain.OTPRecord, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldCreatedAt, err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldExpiresAt, err)
	}
	attempts, err := strconv.Atoi(fields[fieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldAttempts, err)
	}
	return &domain.OTPRecord{
		Email:      fields[fieldEmail],
		CodeHash:   fields[fieldCodeHash],
		IssuanceID: fields[fieldIssuanceID],
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
		Used:       fields[fieldUsed] == formatBool(true),
		Attempts:   attempts,
	}, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
