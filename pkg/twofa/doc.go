// Package twofa defines the two-factor delivery methods and the per-user
// preference shared by the credential store, the delivery channels and the
// login flow, plus helpers to mask a delivery destination for display.
package twofa
