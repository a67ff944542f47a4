package otp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/email-otp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, rec *domain.OTPRecord) error {
	return m.Called(ctx, rec).Error(0)
}
func (m *mockStore) Get(ctx context.Context, email string) (*domain.OTPRecord, error) {
	args := m.Called(ctx, email)
	if r, _ := args.Get(0).(*domain.OTPRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) IncrementAttempts(ctx context.Context, email, issuanceID string) error {
	return m.Called(ctx, email, issuanceID).Error(0)
}
func (m *mockStore) MarkUsed(ctx context.Context, email, issuanceID string) error {
	return m.Called(ctx, email, issuanceID).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

// --- builder ---

var t0 = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

// liveHash is the stored form of "123456".
var liveHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

func newService(st Store, ml Mailer, now time.Time) Service {
	return NewService(ServiceDeps{
		Store:    st,
		Mailer:   ml,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:    func() time.Time { return now },
		TTL:      10 * time.Minute,
		Subject:  "QGlide - Email Verification Code",
		HashCost: bcrypt.MinCost,
	})
}

func liveRecord() *domain.OTPRecord {
	return &domain.OTPRecord{
		Email:      "a@x.com",
		CodeHash:   liveHash,
		IssuanceID: "iss1",
		CreatedAt:  t0,
		ExpiresAt:  t0.Add(10 * time.Minute),
	}
}

// --- Issue ---

func TestIssue_HappyPath(t *testing.T) {
	st := &mockStore{}
	ml := &mockMailer{}

	var stored *domain.OTPRecord
	st.On("Put", mock.Anything, mock.AnythingOfType("*domain.OTPRecord")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.OTPRecord) }).
		Return(nil)
	ml.On("SendEmail", "a@x.com", "QGlide - Email Verification Code", mock.MatchedBy(func(body string) bool {
		return assert.Contains(t, body, "123456") && assert.Contains(t, body, "Hi Ann,")
	})).Return(nil)

	res := newService(st, ml, t0).Issue(context.Background(), domain.IssueRequest{
		Email: "a@x.com", Code: "123456", Name: "Ann",
	})

	require.True(t, res.OK())
	assert.Equal(t, "OTP sent successfully", res.Message)
	require.NotNil(t, stored)
	assert.Equal(t, "a@x.com", stored.Email)
	assert.NotEqual(t, "123456", stored.CodeHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte("123456")))
	assert.False(t, stored.Used)
	assert.Zero(t, stored.Attempts)
	assert.NotEmpty(t, stored.IssuanceID)
	assert.Equal(t, t0, stored.CreatedAt)
	assert.Equal(t, 10*time.Minute, stored.ExpiresAt.Sub(stored.CreatedAt))
	assert.Nil(t, stored.PurgeAt)
	st.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestIssue_MissingNameUsesGreeting(t *testing.T) {
	st := &mockStore{}
	ml := &mockMailer{}
	st.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return assert.Contains(t, body, "Hi User,")
	})).Return(nil)

	res := newService(st, ml, t0).Issue(context.Background(), domain.IssueRequest{Email: "a@x.com", Code: "1"})
	assert.True(t, res.OK())
	ml.AssertExpectations(t)
}

func TestIssue_RetentionSetsPurgeAt(t *testing.T) {
	st := &mockStore{}
	ml := &mockMailer{}
	st.On("Put", mock.Anything, mock.MatchedBy(func(r *domain.OTPRecord) bool {
		return r.PurgeAt != nil && r.PurgeAt.Equal(t0.Add(10*time.Minute+24*time.Hour))
	})).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := NewService(ServiceDeps{
		Store:     st,
		Mailer:    ml,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:     func() time.Time { return t0 },
		Retention: 24 * time.Hour,
		HashCost:  bcrypt.MinCost,
	})
	res := svc.Issue(context.Background(), domain.IssueRequest{Email: "a@x.com", Code: "1"})
	assert.True(t, res.OK())
	st.AssertExpectations(t)
}

func TestIssue_StoreFailure_ReturnsInternalWithoutMail(t *testing.T) {
	st := &mockStore{}
	ml := &mockMailer{}
	boom := errors.New("throughput exceeded")
	st.On("Put", mock.Anything, mock.Anything).Return(boom)

	res := newService(st, ml, t0).Issue(context.Background(), domain.IssueRequest{Email: "a@x.com", Code: "1"})

	assert.Equal(t, domain.OutcomeInternal, res.Outcome)
	assert.Equal(t, "Failed to send OTP email", res.Message)
	assert.ErrorIs(t, res.Err, boom)
	ml.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_MailFailure_ReturnsInternalAndKeepsRecord(t *testing.T) {
	st := &mockStore{}
	ml := &mockMailer{}
	st.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("535 auth failed"))

	res := newService(st, ml, t0).Issue(context.Background(), domain.IssueRequest{Email: "a@x.com", Code: "1"})

	assert.Equal(t, domain.OutcomeInternal, res.Outcome)
	assert.Equal(t, "Failed to send OTP email", res.Message)
	st.AssertNumberOfCalls(t, "Put", 1)
}

// --- Verify ---

func TestVerify_NotFound(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)

	res := newService(st, nil, t0).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "123456"})

	assert.Equal(t, domain.OutcomeNotFound, res.Outcome)
	assert.Equal(t, "OTP not found", res.Message)
	st.AssertNotCalled(t, "IncrementAttempts", mock.Anything, mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_LoadFailure_ReturnsInternal(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com").Return(nil, errors.New("connection reset"))

	res := newService(st, nil, t0).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "123456"})

	assert.Equal(t, domain.OutcomeInternal, res.Outcome)
	assert.Error(t, res.Err)
}

func TestVerify_AlreadyUsed_TakesPrecedenceOverExpiryAndMismatch(t *testing.T) {
	st := &mockStore{}
	rec := liveRecord()
	rec.Used = true
	st.On("Get", mock.Anything, "a@x.com").Return(rec, nil)

	// Expired and wrong code as well; used wins.
	res := newService(st, nil, t0.Add(time.Hour)).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "000000"})

	assert.Equal(t, domain.OutcomeAlreadyUsed, res.Outcome)
	assert.Equal(t, "OTP already used", res.Message)
	st.AssertNotCalled(t, "IncrementAttempts", mock.Anything, mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_Expired_RegardlessOfCode(t *testing.T) {
	for _, code := range []string{"123456", "000000"} {
		t.Run(code, func(t *testing.T) {
			st := &mockStore{}
			st.On("Get", mock.Anything, "a@x.com").Return(liveRecord(), nil)

			now := t0.Add(10*time.Minute + time.Millisecond)
			res := newService(st, nil, now).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: code})

			assert.Equal(t, domain.OutcomeExpired, res.Outcome)
			assert.Equal(t, "OTP expired", res.Message)
			st.AssertNotCalled(t, "IncrementAttempts", mock.Anything, mock.Anything, mock.Anything)
			st.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestVerify_AtExpiryInstant_StillValid(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com").Return(liveRecord(), nil)
	st.On("MarkUsed", mock.Anything, "a@x.com", "iss1").Return(nil)

	res := newService(st, nil, t0.Add(10*time.Minute)).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "123456"})
	assert.True(t, res.OK())
}

func TestVerify_Mismatch_IncrementsAttempts(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com").Return(liveRecord(), nil)
	st.On("IncrementAttempts", mock.Anything, "a@x.com", "iss1").Return(nil)

	res := newService(st, nil, t0).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "000000"})

	assert.Equal(t, domain.OutcomeInvalidCode, res.Outcome)
	assert.Equal(t, "Invalid OTP", res.Message)
	st.AssertNumberOfCalls(t, "IncrementAttempts", 1)
	st.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_Mismatch_SupersededRecordStillInvalidCode(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com").Return(liveRecord(), nil)
	st.On("IncrementAttempts", mock.Anything, "a@x.com", "iss1").Return(domain.ErrConflict)

	res := newService(st, nil, t0).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "000000"})
	assert.Equal(t, domain.OutcomeInvalidCode, res.Outcome)
}

func TestVerify_Mismatch_StoreFailureIsInternal(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com").Return(liveRecord(), nil)
	st.On("IncrementAttempts", mock.Anything, "a@x.com", "iss1").Return(errors.New("timeout"))

	res := newService(st, nil, t0).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "000000"})
	assert.Equal(t, domain.OutcomeInternal, res.Outcome)
	assert.Equal(t, "Failed to verify OTP", res.Message)
}

func TestVerify_Match_MarksUsed(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com").Return(liveRecord(), nil)
	st.On("MarkUsed", mock.Anything, "a@x.com", "iss1").Return(nil)

	res := newService(st, nil, t0.Add(time.Minute)).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "123456"})

	require.True(t, res.OK())
	assert.Equal(t, "OTP verified successfully", res.Message)
	st.AssertNumberOfCalls(t, "MarkUsed", 1)
	st.AssertNotCalled(t, "IncrementAttempts", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_Match_LostRaceIsAlreadyUsed(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com").Return(liveRecord(), nil)
	st.On("MarkUsed", mock.Anything, "a@x.com", "iss1").Return(domain.ErrConflict)

	res := newService(st, nil, t0).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "123456"})
	assert.Equal(t, domain.OutcomeAlreadyUsed, res.Outcome)
}

func TestVerify_Match_StoreFailureIsInternal(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com").Return(liveRecord(), nil)
	st.On("MarkUsed", mock.Anything, "a@x.com", "iss1").Return(errors.New("timeout"))

	res := newService(st, nil, t0).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "123456"})
	assert.Equal(t, domain.OutcomeInternal, res.Outcome)
}

func TestIssue_CodeTooLongForHash_ReturnsInternalWithoutWrite(t *testing.T) {
	st := &mockStore{}
	ml := &mockMailer{}
	long := string(make([]byte, 73))

	res := newService(st, ml, t0).Issue(context.Background(), domain.IssueRequest{Email: "a@x.com", Code: long})

	assert.Equal(t, domain.OutcomeInternal, res.Outcome)
	st.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	ml.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_OverlongCodeIsMismatch(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com").Return(liveRecord(), nil)
	st.On("IncrementAttempts", mock.Anything, "a@x.com", "iss1").Return(nil)

	code := "123456" + string(make([]byte, 80))
	res := newService(st, nil, t0).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: code})
	assert.Equal(t, domain.OutcomeInvalidCode, res.Outcome)
}

func TestVerify_CorruptStoredHashIsInternal(t *testing.T) {
	st := &mockStore{}
	rec := liveRecord()
	rec.CodeHash = "123456"
	st.On("Get", mock.Anything, "a@x.com").Return(rec, nil)

	res := newService(st, nil, t0).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: "123456"})

	assert.Equal(t, domain.OutcomeInternal, res.Outcome)
	assert.Equal(t, "Failed to verify OTP", res.Message)
	st.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "IncrementAttempts", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_MatchIsExact(t *testing.T) {
	for _, code := range []string{"12345", "1234567", " 123456", "123456 "} {
		t.Run(code, func(t *testing.T) {
			st := &mockStore{}
			st.On("Get", mock.Anything, "a@x.com").Return(liveRecord(), nil)
			st.On("IncrementAttempts", mock.Anything, "a@x.com", "iss1").Return(nil)

			res := newService(st, nil, t0).Verify(context.Background(), domain.VerifyRequest{Email: "a@x.com", Code: code})
			assert.Equal(t, domain.OutcomeInvalidCode, res.Outcome)
		})
	}
}
