package handler

import (
	"encoding/json"
	"net/http"
)

// Callable envelopes: requests carry {"data": ...}; responses carry either
// {"result": ...} or {"error": {"status", "message"}}.

type callableRequest[T any] struct {
	Data *T `json:"data"`
}

// ResultEnvelope wraps a successful call.
type ResultEnvelope struct {
	Result any `json:"result"`
}

// ErrorEnvelope wraps a failed call.
type ErrorEnvelope struct {
	Error CallableError `json:"error"`
}

type CallableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AckResult is the payload of both OTP endpoints on success.
type AckResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MessageResult is a bare message payload.
type MessageResult struct {
	Message string `json:"message"`
	Backend string `json:"backend,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, ResultEnvelope{Result: v})
}

func writeError(w http.ResponseWriter, httpStatus int, status, msg string) {
	writeJSON(w, httpStatus, ErrorEnvelope{Error: CallableError{Status: status, Message: msg}})
}
