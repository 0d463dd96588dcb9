// Package signup registers customers and sellers.
//
// Registration validates the form the way the storefront does (name, email,
// phone, password and its confirmation), creates the user through the
// credential service and sends a welcome email. The welcome email is best
// effort: a mail failure is logged and never undoes the account.
//
// # Basic Usage
//
//	svc := signup.NewSignupService(users,
//		signup.WithNotifier(emailNotifier),
//		signup.WithServerURL("https://settle.space"),
//	)
//	signup.NewHandle(svc).RegisterRoutes(r)
package signup
