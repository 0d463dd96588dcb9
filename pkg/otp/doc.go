// Package otp is the ledger of one-time codes sent over the email channel.
//
// A user has at most one unused code at any time: Issue retires every
// outstanding code in the same atomic step that stores the new one. Verify
// consumes a code with a compare-and-set on its used flag, so two concurrent
// submissions of the same code yield exactly one success. Expiry is checked
// when a code is verified; PurgeExpired only reclaims space.
//
// Codes are stored as SHA-256 digests, never in plaintext.
package otp
