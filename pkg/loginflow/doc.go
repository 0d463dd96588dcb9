// Package loginflow drives a browser login from password to session.
//
// A login moves through four states:
//
//	Anonymous -> PasswordVerified -> AwaitingOTP -> Authenticated
//
// Users without two-factor authentication go straight from a verified password
// to Authenticated. Everyone else gets a PendingChallenge, held in the server
// side session, and a code on their preferred channel. The pending challenge
// remembers a per-login channel override, so switching from SMS to email for
// one login never rewrites the stored preference.
//
// The Controller is transport agnostic. It takes the pending challenge loaded
// by the caller, may mutate it, and reports the new State in a Result; the
// caller persists the challenge and, on Authenticated, rotates the session.
//
// # Limits
//
// Code issuance (first send, resend and switch) is capped per user by a
// ratelimit.Limiter. Wrong codes are counted on the challenge; once
// MaxAttempts is reached the outstanding code is retired and only a resend
// or a switch reopens the challenge.
//
// # Usage
//
//	ctrl := loginflow.NewController(users, registry,
//		loginflow.WithIssueLimiter(ratelimit.NewMemorySlidingWindow(5, time.Minute, nil)),
//		loginflow.WithMaxAttempts(3),
//	)
//
//	res, err := ctrl.SubmitPassword(ctx, email, password, rememberMe)
//	switch res.State {
//	case loginflow.StateAuthenticated:
//		// promote the session
//	case loginflow.StateAwaitingOTP, loginflow.StatePasswordVerified:
//		// store res.Pending in the session
//	}
package loginflow
