package handler

import (
	"encoding/json"
	"net/http"

	"github.com/email-otp/internal/application/otp"
	"github.com/email-otp/internal/domain"
	"github.com/email-otp/internal/pkg/validate"
)

// maxBodyBytes bounds a callable request; {email, otp, name} fits easily.
const maxBodyBytes = 4 << 10

// Callable status codes.
const (
	statusInvalidArgument  = "INVALID_ARGUMENT"
	statusNotFound         = "NOT_FOUND"
	statusAlreadyExists    = "ALREADY_EXISTS"
	statusDeadlineExceeded = "DEADLINE_EXCEEDED"
	statusInternal         = "INTERNAL"
)

type wireStatus struct {
	status string
	http   int
}

var outcomeStatus = map[domain.Outcome]wireStatus{
	domain.OutcomeNotFound:    {statusNotFound, http.StatusNotFound},
	domain.OutcomeAlreadyUsed: {statusAlreadyExists, http.StatusConflict},
	domain.OutcomeExpired:     {statusDeadlineExceeded, http.StatusGone},
	domain.OutcomeInvalidCode: {statusInvalidArgument, http.StatusBadRequest},
	domain.OutcomeInternal:    {statusInternal, http.StatusInternalServerError},
}

// OTPHandler exposes sendOTPEmail and verifyOTP.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler {
	return &OTPHandler{svc: svc}
}

func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeData[domain.IssueRequest](w, r)
	if !ok {
		return
	}
	writeOutcome(w, h.svc.Issue(r.Context(), req))
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeData[domain.VerifyRequest](w, r)
	if !ok {
		return
	}
	writeOutcome(w, h.svc.Verify(r.Context(), req))
}

// decodeData reads and validates the "data" member of a callable request.
// On failure it writes the error response and returns false.
func decodeData[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var zero T
	var body callableRequest[T]
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Data == nil {
		writeError(w, http.StatusBadRequest, statusInvalidArgument, "invalid request body")
		return zero, false
	}
	if err := validate.Struct(body.Data); err != nil {
		writeError(w, http.StatusBadRequest, statusInvalidArgument, err.Error())
		return zero, false
	}
	return *body.Data, true
}

func writeOutcome(w http.ResponseWriter, res domain.Result) {
	if res.OK() {
		writeResult(w, AckResult{Success: true, Message: res.Message})
		return
	}
	ws, ok := outcomeStatus[res.Outcome]
	if !ok {
		ws = outcomeStatus[domain.OutcomeInternal]
	}
	writeError(w, ws.http, ws.status, res.Message)
}
