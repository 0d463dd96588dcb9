// Package utils holds small helpers shared by the credential store, the SMS
// channel and the session store: phone number normalization and random tokens.
package utils
