// Package errors provides structured errors with codes for the login service.
//
// Services return plain wrapped errors and sentinels; HTTP handlers convert
// them into an *Error whose Message is safe to show to the browser and whose
// Code selects the response status:
//
//	err := errors.New(errors.ErrCode2FAInvalid, "invalid or expired code")
//	status := err.Status() // 401
//
// The wrapped Err is for server-side logs only and never reaches the client.
package errors
