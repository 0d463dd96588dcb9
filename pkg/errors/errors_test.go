package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeInvalidCredentials, http.StatusUnauthorized},
		{ErrCode2FAInvalid, http.StatusUnauthorized},
		{ErrCodeChallengeMissing, http.StatusUnauthorized},
		{ErrCodeUserAlreadyExists, http.StatusConflict},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeDeliveryFailed, http.StatusBadGateway},
		{ErrCodeChannelUnavailable, http.StatusServiceUnavailable},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Status())
			assert.Equal(t, tt.want, New(tt.code, "x").Status())
		})
	}
}

func TestWrapAndInspect(t *testing.T) {
	cause := stderrors.New("smtp: 535 authentication failed")
	err := Wrap(cause, ErrCodeDeliveryFailed, "could not send the code")

	code, ok := CodeOf(fmt.Errorf("sending: %w", err))
	assert.True(t, ok)
	assert.Equal(t, ErrCodeDeliveryFailed, code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "535")
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))

	_, ok = CodeOf(cause)
	assert.False(t, ok)
}

func TestInternalHidesCause(t *testing.T) {
	err := Internal(stderrors.New("pq: connection refused"))
	assert.Equal(t, ErrCodeInternal, err.Code)
	assert.NotContains(t, err.Message, "connection refused")
	assert.NotNil(t, Internal(nil))
}
