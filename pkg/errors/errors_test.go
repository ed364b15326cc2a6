package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTaxonomyStatus(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
		check  func(error) bool
	}{
		{NewSelfReferenceError("connect with"), http.StatusBadRequest, IsSelfReference},
		{NewAlreadyExistsError("pair exists"), http.StatusBadRequest, IsAlreadyExists},
		{NewNotFoundError("actor"), http.StatusNotFound, IsNotFound},
		{NewInvalidTransitionError("connection", "connected", "rejected"), http.StatusConflict, IsInvalidTransition},
		{NewForbiddenError(""), http.StatusForbidden, IsForbidden},
		{NewPremiumRequiredError("browsing"), http.StatusForbidden, IsPremiumRequired},
		{NewQuotaExceededError(4, time.Hour), http.StatusTooManyRequests, IsQuotaExceeded},
		{NewLifetimeQuotaExceededError("applications", 2), http.StatusTooManyRequests, IsQuotaExceeded},
		{NewValidationError("bad"), http.StatusBadRequest, IsValidation},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestRetryAfterDays(t *testing.T) {
	days, ok := NewQuotaExceededError(4, 36*time.Hour).RetryAfterDays()
	require.True(t, ok)
	assert.Equal(t, 2, days)

	days, _ = NewQuotaExceededError(4, time.Minute).RetryAfterDays()
	assert.Equal(t, 1, days, "a partial day still rounds up to one")

	_, ok = NewLifetimeQuotaExceededError("applications", 2).RetryAfterDays()
	assert.False(t, ok, "the lifetime quota never resets")
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))

	wrapped := Wrap(NewNotFoundError("edge"), "respond")
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "respond: edge not found", GetAppError(wrapped).Message)

	plain := Wrapf(errors.New("boom"), "load %s", "actor")
	assert.True(t, IsType(plain, ErrorTypeInternal))
	assert.EqualError(t, errors.Unwrap(plain), "boom")
}

func serve(t *testing.T, h *ErrorHandler, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil), err)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandle_QuotaCarriesRetryAfter(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec, body := serve(t, h, NewQuotaExceededError(4, 48*time.Hour))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "QUOTA_EXCEEDED", body.Type)
	require.NotNil(t, body.RetryAfterDays)
	assert.Equal(t, 2, *body.RetryAfterDays)
	assert.Equal(t, "172800", rec.Header().Get("Retry-After"))

	rec, body = serve(t, h, NewLifetimeQuotaExceededError("applications", 2))
	assert.Nil(t, body.RetryAfterDays)
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestHandle_ServerErrorsAreOpaque(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	rec, body := serve(t, h, NewDatabaseError("create edge", errors.New("connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DATABASE", body.Type)
	assert.Equal(t, "An internal error occurred", body.Message)
	assert.Nil(t, body.Details)

	rec, body = serve(t, h, errors.New("raw failure"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL", body.Type)
	assert.NotContains(t, rec.Body.String(), "raw failure")
}

func TestHandle_DebugShowsCause(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), true)

	_, body := serve(t, h, NewDatabaseError("create edge", errors.New("connection refused")))
	assert.Contains(t, body.Message, "connection refused")
	assert.Contains(t, body.Details, "stack_trace")
}

func TestHandle_ClientErrorsKeepDetails(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	rec, body := serve(t, h, NewInvalidTransitionError("connection", "connected", "rejected"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "connection cannot move from connected to rejected", body.Message)
	assert.Equal(t, "connected", body.Details["from"])
}

func TestMiddleware_RecoversPanics(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	handler := h.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"INTERNAL"`)
	assert.NotContains(t, rec.Body.String(), "nil map")
}
