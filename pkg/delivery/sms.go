package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/twofa"
	"github.com/tendant/settle-idm/pkg/utils"
	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

const statusApproved = "approved"

// SMSConfig holds the Twilio Verify credentials
type SMSConfig struct {
	AccountSid       string
	AuthToken        string
	VerifyServiceSid string
	CountryCode      string
	Timeout          time.Duration
}

// Configured reports whether all credentials are present
func (c SMSConfig) Configured() bool {
	return c.AccountSid != "" && c.AuthToken != "" && c.VerifyServiceSid != ""
}

// VerifyAPI is the subset of the Twilio Verify v2 service used here.
// *verify.ApiService satisfies it.
type VerifyAPI interface {
	CreateVerification(ServiceSid string, params *verify.CreateVerificationParams) (*verify.VerifyV2Verification, error)
	CreateVerificationCheck(ServiceSid string, params *verify.CreateVerificationCheckParams) (*verify.VerifyV2VerificationCheck, error)
}

// SMSChannel delegates code generation and checking to Twilio Verify
type SMSChannel struct {
	api         VerifyAPI
	serviceSid  string
	countryCode string
	timeout     time.Duration
	now         func() time.Time
}

// NewSMSChannel builds a Twilio client from config. Missing credentials give
// an unavailable channel, not an error.
func NewSMSChannel(config SMSConfig) *SMSChannel {
	if !config.Configured() {
		slog.Warn("Twilio Verify is not configured, SMS channel disabled")
		return NewSMSChannelWithAPI(nil, "", config.CountryCode, config.Timeout)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client.SetTimeout(timeout)

	return NewSMSChannelWithAPI(client.VerifyV2, config.VerifyServiceSid, config.CountryCode, timeout)
}

// NewSMSChannelWithAPI creates the channel over an existing Verify client
func NewSMSChannelWithAPI(api VerifyAPI, serviceSid, countryCode string, timeout time.Duration) *SMSChannel {
	if countryCode == "" {
		countryCode = utils.DefaultCountryCode
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SMSChannel{
		api:         api,
		serviceSid:  serviceSid,
		countryCode: countryCode,
		timeout:     timeout,
		now:         time.Now,
	}
}

func (c *SMSChannel) Method() twofa.Method {
	return twofa.MethodSMS
}

func (c *SMSChannel) Available() bool {
	return c.api != nil && c.serviceSid != ""
}

func (c *SMSChannel) Reaches(user credential.User) bool {
	return utils.DigitsOnly(user.Phone) != ""
}

func (c *SMSChannel) Destination(user credential.User) string {
	return twofa.MaskPhone(user.Phone)
}

// SendChallenge asks Twilio to text a code to the user's canonical number.
func (c *SMSChannel) SendChallenge(ctx context.Context, user credential.User) (ChallengeRef, error) {
	if !c.Available() || !c.Reaches(user) {
		return ChallengeRef{}, ErrChannelUnavailable
	}

	params := &verify.CreateVerificationParams{}
	params.SetTo(utils.CanonicalPhone(user.Phone, c.countryCode))
	params.SetChannel("sms")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := callWithContext(ctx, func() (*verify.VerifyV2Verification, error) {
		return c.api.CreateVerification(c.serviceSid, params)
	})
	if err != nil {
		slog.Error("Twilio verification request failed", "user_id", user.ID, "phone", twofa.MaskPhone(user.Phone), "error", err)
		return ChallengeRef{}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	ref := ChallengeRef{
		Method:      twofa.MethodSMS,
		Destination: c.Destination(user),
		SentAt:      c.now(),
	}
	if resp != nil && resp.Sid != nil {
		ref.Reference = *resp.Sid
	}
	slog.Info("SMS verification sent", "user_id", user.ID, "phone", ref.Destination)
	return ref, nil
}

// Check asks Twilio whether code is approved for the user's number. Twilio
// answers 404 once a verification is approved, expired or cancelled; that is
// an ordinary rejection.
func (c *SMSChannel) Check(ctx context.Context, user credential.User, code string) (bool, error) {
	if !c.Available() || !c.Reaches(user) {
		return false, ErrChannelUnavailable
	}

	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(utils.CanonicalPhone(user.Phone, c.countryCode))
	params.SetCode(code)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := callWithContext(ctx, func() (*verify.VerifyV2VerificationCheck, error) {
		return c.api.CreateVerificationCheck(c.serviceSid, params)
	})
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) && restErr.Status == http.StatusNotFound {
			return false, nil
		}
		slog.Error("Twilio verification check failed", "user_id", user.ID, "error", err)
		return false, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	return resp != nil && resp.Status != nil && *resp.Status == statusApproved, nil
}
