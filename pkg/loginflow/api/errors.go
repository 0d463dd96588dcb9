package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/tendant/settle-idm/pkg/errors"
	"github.com/tendant/settle-idm/pkg/loginflow"
)

var flowErrorCodes = map[string]errors.ErrorCode{
	loginflow.ErrorTypeInvalidCredentials: errors.ErrCodeInvalidCredentials,
	loginflow.ErrorTypeInvalidInput:       errors.ErrCodeInvalidInput,
	loginflow.ErrorTypeInvalidCode:        errors.ErrCode2FAInvalid,
	loginflow.ErrorTypeAttemptsExceeded:   errors.ErrCode2FAAttemptsExceeded,
	loginflow.ErrorTypeChallengeMissing:   errors.ErrCodeChallengeMissing,
	loginflow.ErrorTypeDeliveryFailed:     errors.ErrCodeDeliveryFailed,
	loginflow.ErrorTypeChannelUnavailable: errors.ErrCodeChannelUnavailable,
	loginflow.ErrorTypeRateLimited:        errors.ErrCodeRateLimitExceeded,
}

// toAPIError maps a flow error onto the shared error codes
func toAPIError(err error, res loginflow.Result) *errors.Error {
	ferr, ok := loginflow.AsError(err)
	if !ok {
		return errors.Internal(err)
	}
	code, ok := flowErrorCodes[ferr.Type]
	if !ok {
		return errors.Internal(err)
	}

	e := errors.Wrap(ferr, code, ferr.Message)
	if len(ferr.Alternatives) > 0 {
		e.WithDetail("alternatives", ferr.Alternatives)
	}
	if ferr.RetryAfter > 0 {
		e.WithDetail("retry_after", strconv.Itoa(int(math.Ceil(ferr.RetryAfter.Seconds()))))
	}
	if res.Pending != nil {
		e.WithDetail("state", string(res.State))
		e.WithDetail("attempts_left", res.AttemptsLeft)
	}
	return e
}

func writeFlowError(w http.ResponseWriter, r *http.Request, err error, res loginflow.Result) {
	errors.WriteError(w, r, toAPIError(err, res))
}
